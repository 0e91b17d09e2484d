package voice

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// DefaultWakeWords are the phrases that wake the assistant from passive listening.
var DefaultWakeWords = []string{
	"trợ lý",
	"trợ lý ai",
	"ai ơi",
	"hey ai",
	"chào ai",
	"gọi trợ lý",
	"mở trợ lý",
	"bật trợ lý",
	"assistant",
	"hey assistant",
}

// WakeWordSet is an ordered, immutable list of trigger phrases.
type WakeWordSet struct {
	triggers []string
	folded   []string
}

// NewWakeWordSet normalizes and de-duplicates triggers, keeping their order.
func NewWakeWordSet(triggers ...string) WakeWordSet {
	set := WakeWordSet{}
	seen := make(map[string]bool, len(triggers))
	for _, t := range triggers {
		folded := foldPhrase(t)
		if folded == "" || seen[folded] {
			continue
		}
		seen[folded] = true
		set.triggers = append(set.triggers, strings.TrimSpace(t))
		set.folded = append(set.folded, folded)
	}
	return set
}

// Triggers returns a copy of the configured phrases.
func (s WakeWordSet) Triggers() []string {
	return append([]string(nil), s.triggers...)
}

// Len reports the number of triggers.
func (s WakeWordSet) Len() int { return len(s.triggers) }

// Match reports the first trigger contained in phrase after lowercasing and trimming.
func (s WakeWordSet) Match(phrase string) (string, bool) {
	folded := foldPhrase(phrase)
	if folded == "" {
		return "", false
	}
	for i, trigger := range s.folded {
		if strings.Contains(folded, trigger) {
			return s.triggers[i], true
		}
	}
	return "", false
}

// foldPhrase puts text in NFC form, lowercases it and trims it so composed and
// decomposed diacritics compare equal.
func foldPhrase(text string) string {
	// Casers carry state and are not safe for concurrent use.
	return strings.TrimSpace(cases.Lower(language.Vietnamese).String(norm.NFC.String(text)))
}
