package handlers

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/wolfman30/clinic-assistant/internal/assistant"
	"github.com/wolfman30/clinic-assistant/internal/clinicapi"
	"github.com/wolfman30/clinic-assistant/internal/voice"
	"github.com/wolfman30/clinic-assistant/pkg/logging"
)

// Chat is the message pipeline.
type Chat interface {
	Send(ctx context.Context, text string) (assistant.ConversationEntry, error)
	SendQuickCommand(ctx context.Context, cmd string) (assistant.ConversationEntry, error)
	SendFeedback(ctx context.Context, id clinicapi.InteractionID, feedback string) (assistant.ConversationEntry, error)
	History() *assistant.History
}

// VoiceControls are the widget buttons. Toggles are applied asynchronously.
type VoiceControls interface {
	TogglePanel()
	ToggleWakeWord()
	ToggleMicrophone()
	Snapshot() voice.Snapshot
}

// AssistantHandler serves the chat panel and its voice buttons.
type AssistantHandler struct {
	chat     Chat
	controls VoiceControls
	logger   *logging.Logger
}

// NewAssistantHandler wires the panel endpoints. controls may be nil.
func NewAssistantHandler(chat Chat, controls VoiceControls, logger *logging.Logger) *AssistantHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &AssistantHandler{chat: chat, controls: controls, logger: logger}
}

type messageRequest struct {
	Text string `json:"text"`
}

type feedbackRequest struct {
	InteractionID clinicapi.InteractionID `json:"interaction_id"`
	Feedback      string                  `json:"feedback"`
}

type entryResponse struct {
	assistant.ConversationEntry
	HTML     string `json:"html"`
	Rateable bool   `json:"rateable"`
}

func toEntryResponse(e assistant.ConversationEntry) entryResponse {
	return entryResponse{ConversationEntry: e, HTML: assistant.FormatMessage(e.Text), Rateable: e.Rateable()}
}

// Health reports liveness.
// GET /health
func (h *AssistantHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// State returns the widget snapshot.
// GET /state
func (h *AssistantHandler) State(w http.ResponseWriter, r *http.Request) {
	if h.controls == nil {
		writeJSON(w, http.StatusOK, voice.Snapshot{Status: "Sẵn sàng"})
		return
	}
	writeJSON(w, http.StatusOK, h.controls.Snapshot())
}

// TogglePanel opens or closes the chat panel.
// POST /panel/toggle
func (h *AssistantHandler) TogglePanel(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, func(c VoiceControls) { c.TogglePanel() })
}

// ToggleWakeWord flips wake-word mode.
// POST /wake-word/toggle
func (h *AssistantHandler) ToggleWakeWord(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, func(c VoiceControls) { c.ToggleWakeWord() })
}

// ToggleMicrophone starts or stops command listening.
// POST /microphone/toggle
func (h *AssistantHandler) ToggleMicrophone(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, func(c VoiceControls) { c.ToggleMicrophone() })
}

func (h *AssistantHandler) toggle(w http.ResponseWriter, fn func(VoiceControls)) {
	if h.controls == nil {
		jsonError(w, "voice controls unavailable", http.StatusServiceUnavailable)
		return
	}
	fn(h.controls)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

// PostMessage sends typed text and returns the reply bubble.
// POST /messages
func (h *AssistantHandler) PostMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := decodeBody(r, &req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	h.reply(w, r, func(ctx context.Context) (assistant.ConversationEntry, error) {
		return h.chat.Send(ctx, req.Text)
	})
}

// QuickCommands lists the canned prompts.
// GET /quick-commands
func (h *AssistantHandler) QuickCommands(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"commands": assistant.QuickCommands})
}

// PostQuickCommand sends one of the canned prompts.
// POST /quick-commands
func (h *AssistantHandler) PostQuickCommand(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := decodeBody(r, &req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	cmd := strings.TrimSpace(req.Text)
	if !slices.Contains(assistant.QuickCommands, cmd) {
		jsonError(w, "unknown quick command", http.StatusBadRequest)
		return
	}
	h.reply(w, r, func(ctx context.Context) (assistant.ConversationEntry, error) {
		return h.chat.SendQuickCommand(ctx, cmd)
	})
}

// PostFeedback rates an assistant reply.
// POST /feedback
func (h *AssistantHandler) PostFeedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := decodeBody(r, &req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	h.reply(w, r, func(ctx context.Context) (assistant.ConversationEntry, error) {
		return h.chat.SendFeedback(ctx, req.InteractionID, req.Feedback)
	})
}

func (h *AssistantHandler) reply(w http.ResponseWriter, r *http.Request, fn func(context.Context) (assistant.ConversationEntry, error)) {
	entry, err := fn(r.Context())
	switch {
	case errors.Is(err, assistant.ErrEmptyMessage),
		errors.Is(err, assistant.ErrInvalidFeedback),
		errors.Is(err, assistant.ErrMissingID):
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	case err != nil:
		h.logger.Error("assistant request failed", "error", err)
		jsonError(w, "request failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, toEntryResponse(entry))
}

// History returns the session conversation.
// GET /history
func (h *AssistantHandler) History(w http.ResponseWriter, r *http.Request) {
	entries := h.chat.History().Entries()
	out := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toEntryResponse(e))
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": out})
}
