package assistant

import (
	"context"
	"sync"
	"time"

	"github.com/wolfman30/clinic-assistant/internal/clinicapi"
	"github.com/wolfman30/clinic-assistant/internal/kvstore"
	"github.com/wolfman30/clinic-assistant/pkg/logging"
)

// HistoryKey is where the trimmed conversation is persisted.
const HistoryKey = "aiAssistantHistory"

// DefaultHistoryLimit is how many recent entries survive a reload.
const DefaultHistoryLimit = 20

// Entry roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleError     = "error"
)

// ConversationEntry is one chat bubble.
type ConversationEntry struct {
	Role           string                  `json:"type"`
	Text           string                  `json:"text"`
	Timestamp      time.Time               `json:"timestamp"`
	InteractionID  clinicapi.InteractionID `json:"interactionId,omitempty"`
	DetectedIntent string                  `json:"detectedIntent,omitempty"`
	Confidence     *float64                `json:"confidence,omitempty"`
}

// Rateable reports whether the entry can receive feedback.
func (e ConversationEntry) Rateable() bool {
	return e.Role == RoleAssistant && e.InteractionID != "" && e.DetectedIntent != ""
}

// History is the session's append-only conversation. Every append persists the
// most recent entries; persistence failures are logged and never surface to the user.
type History struct {
	store  kvstore.Store
	limit  int
	now    func() time.Time
	logger *logging.Logger

	// saveMu orders appends end to end so the persisted tail and subscriber
	// delivery follow the in-memory order.
	saveMu sync.Mutex

	mu          sync.RWMutex
	entries     []ConversationEntry
	subscribers []func(ConversationEntry)
}

// NewHistory creates an empty session history backed by store.
func NewHistory(store kvstore.Store, limit int, logger *logging.Logger) *History {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &History{store: store, limit: limit, now: time.Now, logger: logger}
}

// Subscribe registers fn to receive every future entry. fn must not call Append.
func (h *History) Subscribe(fn func(ConversationEntry)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subscribers = append(h.subscribers, fn)
}

// Append records an entry, stamping it if needed, and persists the tail.
func (h *History) Append(ctx context.Context, entry ConversationEntry) ConversationEntry {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = h.now()
	}
	h.saveMu.Lock()
	defer h.saveMu.Unlock()

	h.mu.Lock()
	h.entries = append(h.entries, entry)
	tail := h.tailLocked()
	subscribers := append([]func(ConversationEntry){}, h.subscribers...)
	h.mu.Unlock()

	if h.store != nil {
		if err := kvstore.SaveJSON(ctx, h.store, HistoryKey, tail); err != nil {
			h.logger.Error("assistant: save history failed", "error", err)
		}
	}
	for _, fn := range subscribers {
		fn(entry)
	}
	return entry
}

func (h *History) tailLocked() []ConversationEntry {
	start := 0
	if len(h.entries) > h.limit {
		start = len(h.entries) - h.limit
	}
	return append([]ConversationEntry(nil), h.entries[start:]...)
}

// Entries returns the whole session conversation in order.
func (h *History) Entries() []ConversationEntry {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]ConversationEntry(nil), h.entries...)
}

// Find returns the entry carrying interaction id.
func (h *History) Find(id clinicapi.InteractionID) (ConversationEntry, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for i := len(h.entries) - 1; i >= 0; i-- {
		if h.entries[i].InteractionID == id {
			return h.entries[i], true
		}
	}
	return ConversationEntry{}, false
}

// Load reads the persisted tail. Missing or corrupt data yields an empty history.
func (h *History) Load(ctx context.Context) []ConversationEntry {
	if h.store == nil {
		return nil
	}
	var saved []ConversationEntry
	if _, err := kvstore.LoadJSON(ctx, h.store, HistoryKey, &saved); err != nil {
		h.logger.Error("assistant: load history failed", "error", err)
		return nil
	}
	return saved
}
