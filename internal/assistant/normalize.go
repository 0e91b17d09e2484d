package assistant

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// DefaultAbbreviations expands shorthand staff type into chat messages.
var DefaultAbbreviations = map[string]string{
	"pk": "phòng khám",
	"bn": "bệnh nhân",
	"bs": "bác sĩ",
	"dt": "điện thoại",
	"dc": "địa chỉ",
}

const (
	vietnameseLetters = "àáạảãâầấậẩẫăằắặẳẵèéẹẻẽêềếệểễìíịỉĩòóọỏõôồốộổỗơờớợởỡùúụủũưừứựửữỳýỵỷỹđ" +
		"ĐÀÁẠẢÃÂẦẤẬẨẪĂẰẮẶẲẴÈÉẸẺẼÊỀẾỆỂỄÌÍỊỈĨÒÓỌỎÕÔỒỐỘỔỖƠỜỚỢỞỠÙÚỤỦŨƯỪỨỰỬỮỲÝỴỶỸ"
	keptPunctuation = ".,!?;:"
)

// Normalizer cleans user text before it goes to the chat backend.
type Normalizer struct {
	abbreviations map[string]string
}

// NewNormalizer builds a normalizer; nil uses DefaultAbbreviations.
func NewNormalizer(abbreviations map[string]string) *Normalizer {
	if abbreviations == nil {
		abbreviations = DefaultAbbreviations
	}
	folded := make(map[string]string, len(abbreviations))
	for k, v := range abbreviations {
		folded[strings.ToLower(k)] = v
	}
	return &Normalizer{abbreviations: folded}
}

var defaultNormalizer = NewNormalizer(nil)

// Normalize applies the default normalizer.
func Normalize(text string) string {
	return defaultNormalizer.Normalize(text)
}

// Normalize composes diacritics, expands standalone abbreviations case-insensitively,
// replaces characters outside the allowed set with spaces and collapses whitespace.
// Normalize(Normalize(s)) == Normalize(s).
func (n *Normalizer) Normalize(text string) string {
	if text == "" {
		return ""
	}
	text = collapseSpace(norm.NFC.String(text))
	text = n.expand(text)
	text = strings.Map(func(r rune) rune {
		if allowedRune(r) {
			return r
		}
		return ' '
	}, text)
	return collapseSpace(text)
}

// expand replaces whole words found in the abbreviation table.
func (n *Normalizer) expand(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	word := make([]rune, 0, 16)
	flush := func() {
		if len(word) == 0 {
			return
		}
		w := string(word)
		if full, ok := n.abbreviations[strings.ToLower(w)]; ok {
			b.WriteString(full)
		} else {
			b.WriteString(w)
		}
		word = word[:0]
	}
	for _, r := range text {
		if isWordRune(r) {
			word = append(word, r)
			continue
		}
		flush()
		b.WriteRune(r)
	}
	flush()
	return b.String()
}

// isWordRune accepts only runes the whitelist keeps, so a dropped rune always
// separates words and cannot expose an abbreviation on a later pass.
func isWordRune(r rune) bool {
	return allowedRune(r) && !unicode.IsSpace(r) && !strings.ContainsRune(keptPunctuation, r)
}

func allowedRune(r rune) bool {
	switch {
	case r < unicode.MaxASCII && (r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)):
		return true
	case unicode.IsSpace(r):
		return true
	case strings.ContainsRune(keptPunctuation, r):
		return true
	default:
		return strings.ContainsRune(vietnameseLetters, r)
	}
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
