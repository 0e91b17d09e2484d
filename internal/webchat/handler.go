// Package webchat is the live socket between the assistant and the widget in the
// host page. It pushes widget state, chat bubbles and page actions, and accepts
// typed messages and button presses.
package webchat

import (
	"context"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/websocket"

	"github.com/wolfman30/clinic-assistant/internal/assistant"
	"github.com/wolfman30/clinic-assistant/internal/clinicapi"
	"github.com/wolfman30/clinic-assistant/internal/voice"
	"github.com/wolfman30/clinic-assistant/pkg/logging"
)

// Chat is the message pipeline as the widget uses it.
type Chat interface {
	Send(ctx context.Context, text string) (assistant.ConversationEntry, error)
	SendQuickCommand(ctx context.Context, cmd string) (assistant.ConversationEntry, error)
	SendFeedback(ctx context.Context, id clinicapi.InteractionID, feedback string) (assistant.ConversationEntry, error)
	History() *assistant.History
}

// Controls are the widget buttons backed by the voice coordinator.
type Controls interface {
	TogglePanel()
	ToggleWakeWord()
	ToggleMicrophone()
	Snapshot() voice.Snapshot
}

// Inbound frame types.
const (
	InPing             = "ping"
	InMessage          = "message"
	InQuickCommand     = "quick_command"
	InFeedback         = "feedback"
	InTogglePanel      = "toggle_panel"
	InToggleWakeWord   = "toggle_wake_word"
	InToggleMicrophone = "toggle_microphone"
)

// Outbound frame types.
const (
	OutSession = "session"
	OutHistory = "history"
	OutState   = "state"
	OutEntry   = "entry"
	OutAction  = "action"
	OutPong    = "pong"
	OutError   = "error"
)

// InboundMessage is what the widget sends.
type InboundMessage struct {
	Type          string                  `json:"type"`
	Text          string                  `json:"text,omitempty"`
	InteractionID clinicapi.InteractionID `json:"interaction_id,omitempty"`
	Feedback      string                  `json:"feedback,omitempty"`
}

// OutboundMessage is what the widget receives.
type OutboundMessage struct {
	Type      string            `json:"type"`
	SessionID string            `json:"session_id,omitempty"`
	State     *voice.Snapshot   `json:"state,omitempty"`
	Entry     *Bubble           `json:"entry,omitempty"`
	Messages  []Bubble          `json:"messages,omitempty"`
	Action    *clinicapi.Action `json:"action,omitempty"`
	Text      string            `json:"text,omitempty"`
}

// Bubble is a conversation entry with its rendered HTML.
type Bubble struct {
	assistant.ConversationEntry
	HTML     string `json:"html"`
	Rateable bool   `json:"rateable"`
}

func bubble(e assistant.ConversationEntry) Bubble {
	return Bubble{ConversationEntry: e, HTML: assistant.FormatMessage(e.Text), Rateable: e.Rateable()}
}

const sendBuffer = 32

type client struct {
	id   string
	conn *websocket.Conn
	out  chan OutboundMessage
	done chan struct{}
}

// Handler fans assistant events out to every connected widget.
type Handler struct {
	chat     Chat
	controls Controls
	logger   *logging.Logger

	mu      sync.RWMutex
	clients map[string]*client
}

// NewHandler creates the widget socket handler. controls may be nil when voice is disabled.
func NewHandler(chat Chat, controls Controls, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		chat:     chat,
		controls: controls,
		logger:   logger.Component("webchat"),
		clients:  make(map[string]*client),
	}
}

// HandleWebSocket upgrades to WebSocket and serves one widget.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.Server{
		Handler: func(conn *websocket.Conn) {
			h.serveWS(r.Context(), conn)
		},
	}.ServeHTTP(w, r)
}

func (h *Handler) serveWS(ctx context.Context, conn *websocket.Conn) {
	c := &client{
		id:   uuid.NewString(),
		conn: conn,
		out:  make(chan OutboundMessage, sendBuffer),
		done: make(chan struct{}),
	}
	c.out <- OutboundMessage{Type: OutSession, SessionID: c.id}
	if h.chat != nil {
		entries := h.chat.History().Entries()
		history := make([]Bubble, 0, len(entries))
		for _, e := range entries {
			history = append(history, bubble(e))
		}
		c.out <- OutboundMessage{Type: OutHistory, Messages: history}
	}
	if h.controls != nil {
		state := h.controls.Snapshot()
		c.out <- OutboundMessage{Type: OutState, State: &state}
	}

	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		delete(h.clients, c.id)
		h.mu.Unlock()
		close(c.done)
	}()

	go h.writeLoop(c)
	h.logger.Info("webchat: widget connected", "session_id", c.id)

	for {
		var msg InboundMessage
		if err := websocket.JSON.Receive(conn, &msg); err != nil {
			h.logger.Debug("webchat: widget disconnected", "session_id", c.id, "error", err)
			return
		}
		h.handleInbound(ctx, c, msg)
	}
}

func (h *Handler) writeLoop(c *client) {
	for {
		select {
		case <-c.done:
			return
		case msg := <-c.out:
			_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := websocket.JSON.Send(c.conn, msg); err != nil {
				h.logger.Debug("webchat: send failed", "session_id", c.id, "error", err)
				_ = c.conn.Close()
				return
			}
		}
	}
}

func (h *Handler) handleInbound(ctx context.Context, c *client, msg InboundMessage) {
	switch msg.Type {
	case InPing:
		h.enqueue(c, OutboundMessage{Type: OutPong})
	case InMessage:
		if h.chat == nil || strings.TrimSpace(msg.Text) == "" {
			return
		}
		go h.send(ctx, func(ctx context.Context) error {
			_, err := h.chat.Send(ctx, msg.Text)
			return err
		})
	case InQuickCommand:
		if h.chat == nil {
			return
		}
		cmd := strings.TrimSpace(msg.Text)
		if !slices.Contains(assistant.QuickCommands, cmd) {
			h.enqueue(c, OutboundMessage{Type: OutError, Text: "unknown quick command"})
			return
		}
		go h.send(ctx, func(ctx context.Context) error {
			_, err := h.chat.SendQuickCommand(ctx, cmd)
			return err
		})
	case InFeedback:
		if h.chat == nil {
			return
		}
		go h.send(ctx, func(ctx context.Context) error {
			_, err := h.chat.SendFeedback(ctx, msg.InteractionID, msg.Feedback)
			return err
		})
	case InTogglePanel, InToggleWakeWord, InToggleMicrophone:
		if h.controls == nil {
			h.enqueue(c, OutboundMessage{Type: OutError, Text: "voice controls unavailable"})
			return
		}
		switch msg.Type {
		case InTogglePanel:
			h.controls.TogglePanel()
		case InToggleWakeWord:
			h.controls.ToggleWakeWord()
		default:
			h.controls.ToggleMicrophone()
		}
	default:
		h.logger.Debug("webchat: ignoring frame", "type", msg.Type)
	}
}

// send runs a pipeline call detached from the socket read loop. Replies reach
// widgets through PublishEntry.
func (h *Handler) send(ctx context.Context, fn func(context.Context) error) {
	if err := fn(context.WithoutCancel(ctx)); err != nil {
		h.logger.Debug("webchat: request rejected", "error", err)
	}
}

func (h *Handler) enqueue(c *client, msg OutboundMessage) {
	select {
	case c.out <- msg:
	default:
		h.logger.Warn("webchat: widget too slow, dropping frame", "session_id", c.id, "type", msg.Type)
	}
}

func (h *Handler) broadcast(msg OutboundMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		h.enqueue(c, msg)
	}
}

// Clients reports how many widgets are connected.
func (h *Handler) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Render implements voice.View. It never blocks.
func (h *Handler) Render(s voice.Snapshot) {
	h.broadcast(OutboundMessage{Type: OutState, State: &s})
}

// PublishEntry pushes a new conversation bubble.
func (h *Handler) PublishEntry(e assistant.ConversationEntry) {
	b := bubble(e)
	h.broadcast(OutboundMessage{Type: OutEntry, Entry: &b})
}

// PublishAction asks widgets to perform a page action.
func (h *Handler) PublishAction(a clinicapi.Action) {
	h.broadcast(OutboundMessage{Type: OutAction, Action: &a})
}
