package webchat

import (
	"github.com/wolfman30/clinic-assistant/internal/assistant"
)

// Attach forwards new conversation entries and page actions to connected widgets.
func (h *Handler) Attach(history *assistant.History, page *assistant.RecordingPage) {
	if history != nil {
		history.Subscribe(h.PublishEntry)
	}
	if page != nil {
		page.OnAction = h.PublishAction
	}
}
