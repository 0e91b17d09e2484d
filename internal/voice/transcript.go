package voice

import (
	"strings"
	"time"

	"github.com/wolfman30/clinic-assistant/internal/speech"
)

// TranscriptBuffer accumulates the command listener's recognized text.
type TranscriptBuffer struct {
	Final       string
	Interim     string
	LastFinalAt time.Time

	// consumed counts the leading results already appended to Final.
	consumed int
}

// Apply folds a result event into the buffer. Finalized segments are appended in
// arrival order, each at most once; the interim hypothesis is replaced. It reports
// whether any new final segment arrived.
func (b *TranscriptBuffer) Apply(ev speech.ResultEvent, now time.Time) bool {
	start := ev.Index
	if start < 0 {
		start = 0
	}
	var interim []string
	added := false
	for i := start; i < len(ev.Results); i++ {
		res := ev.Results[i]
		text := strings.TrimSpace(res.Transcript())
		if !res.Final {
			if text != "" {
				interim = append(interim, text)
			}
			continue
		}
		if i < b.consumed {
			continue
		}
		b.consumed = i + 1
		if text == "" {
			continue
		}
		if b.Final == "" {
			b.Final = text
		} else {
			b.Final += " " + text
		}
		b.LastFinalAt = now
		added = true
	}
	b.Interim = strings.Join(interim, " ")
	return added
}

// Text returns the finalized text only.
func (b *TranscriptBuffer) Text() string {
	return b.Final
}

// Display returns what the input shows: finals followed by the tentative hypothesis.
func (b *TranscriptBuffer) Display() (string, bool) {
	if b.Interim == "" {
		return b.Final, false
	}
	return strings.TrimSpace(b.Final + " " + b.Interim), true
}

// Reset clears the buffer for a new recognition run.
func (b *TranscriptBuffer) Reset() {
	*b = TranscriptBuffer{}
}
