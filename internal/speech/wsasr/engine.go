// Package wsasr implements speech.Engine against a streaming recognition gateway
// reached over WebSocket. Each started session owns one connection; the gateway
// streams recognition events back as JSON frames.
package wsasr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wolfman30/clinic-assistant/internal/speech"
	"github.com/wolfman30/clinic-assistant/pkg/logging"
)

const (
	frameStart  = "start"
	frameResult = "result"
	frameError  = "error"
	frameEnd    = "end"
	frameStop   = "stop"
	frameAbort  = "abort"
)

// Config configures the gateway connection.
type Config struct {
	URL              string
	Token            string
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
}

// Engine dials the gateway once per session start.
type Engine struct {
	url          string
	token        string
	writeTimeout time.Duration
	dialer       *websocket.Dialer
	logger       *logging.Logger
}

// New creates a gateway-backed engine.
func New(cfg Config, logger *logging.Logger) (*Engine, error) {
	if cfg.URL == "" {
		return nil, errors.New("wsasr: gateway url is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = 5 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	return &Engine{
		url:          cfg.URL,
		token:        cfg.Token,
		writeTimeout: cfg.WriteTimeout,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: cfg.HandshakeTimeout,
		},
		logger: logger.Component("wsasr"),
	}, nil
}

// NewSession returns an idle session bound to h.
func (e *Engine) NewSession(opts speech.Options, h speech.Handler) (speech.Session, error) {
	if h == nil {
		return nil, errors.New("wsasr: handler is required")
	}
	return &session{engine: e, opts: opts, handler: h}, nil
}

type controlFrame struct {
	Type            string `json:"type"`
	Language        string `json:"language,omitempty"`
	Continuous      bool   `json:"continuous,omitempty"`
	InterimResults  bool   `json:"interim_results,omitempty"`
	MaxAlternatives int    `json:"max_alternatives,omitempty"`
}

type eventFrame struct {
	Type    string          `json:"type"`
	Index   int             `json:"index"`
	Results []speech.Result `json:"results"`
	Error   string          `json:"error"`
}

type session struct {
	engine  *Engine
	opts    speech.Options
	handler speech.Handler

	mu       sync.Mutex
	conn     *websocket.Conn
	running  bool
	aborting bool
	stopping bool
	cancel   context.CancelFunc

	writeMu sync.Mutex
}

// Start returns at once. The handshake runs in the background; a failed dial is
// reported as a network error followed by OnEnd.
func (s *session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return speech.ErrAlreadyStarted
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.running = true
	s.aborting = false
	s.stopping = false
	s.cancel = cancel
	go s.run(ctx, cancel)
	return nil
}

func (s *session) run(ctx context.Context, cancel context.CancelFunc) {
	defer cancel()
	conn, err := s.dial(ctx)

	s.mu.Lock()
	aborting := s.aborting
	if err != nil || aborting {
		s.running = false
		s.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
		if err != nil && !aborting {
			s.engine.logger.Warn("wsasr: gateway unreachable", "error", err)
			s.handler.OnError(speech.ErrNetwork)
		}
		s.handler.OnEnd()
		return
	}
	s.conn = conn
	stopping := s.stopping
	s.mu.Unlock()

	if stopping {
		s.sendStop(conn)
	}
	s.readLoop(conn)
}

func (s *session) dial(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{}
	if s.engine.token != "" {
		header.Set("Authorization", "Bearer "+s.engine.token)
	}
	conn, resp, err := s.engine.dialer.DialContext(ctx, s.engine.url, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("wsasr: dial gateway: %w (status %d)", err, resp.StatusCode)
		}
		return nil, fmt.Errorf("wsasr: dial gateway: %w", err)
	}
	start := controlFrame{
		Type:            frameStart,
		Language:        s.opts.Language,
		Continuous:      s.opts.Continuous,
		InterimResults:  s.opts.InterimResults,
		MaxAlternatives: s.opts.MaxAlternatives,
	}
	if err := s.write(conn, start); err != nil {
		conn.Close()
		return nil, fmt.Errorf("wsasr: send start frame: %w", err)
	}
	return conn, nil
}

func (s *session) write(conn *websocket.Conn, frame controlFrame) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := conn.SetWriteDeadline(time.Now().Add(s.engine.writeTimeout)); err != nil {
		return err
	}
	return conn.WriteJSON(frame)
}

func (s *session) isRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Stop asks the gateway to finalize; OnEnd follows once it closes the stream.
// A stop during the handshake is sent as soon as the socket is up.
func (s *session) Stop() {
	s.mu.Lock()
	conn := s.conn
	if conn == nil {
		if s.running {
			s.stopping = true
		}
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	s.sendStop(conn)
}

func (s *session) sendStop(conn *websocket.Conn) {
	if err := s.write(conn, controlFrame{Type: frameStop}); err != nil {
		s.engine.logger.Debug("wsasr: stop frame failed, closing", "error", err)
		conn.Close()
	}
}

// Abort drops the stream without waiting for pending results.
func (s *session) Abort() {
	s.mu.Lock()
	conn := s.conn
	s.aborting = true
	if conn == nil && s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()
	if conn == nil {
		return
	}
	_ = s.write(conn, controlFrame{Type: frameAbort})
	conn.Close()
}

func (s *session) readLoop(conn *websocket.Conn) {
	defer func() {
		conn.Close()
		s.mu.Lock()
		if s.conn == conn {
			s.conn = nil
			s.running = false
		}
		s.mu.Unlock()
		s.handler.OnEnd()
	}()

	for {
		var ev eventFrame
		if err := conn.ReadJSON(&ev); err != nil {
			s.mu.Lock()
			aborting := s.aborting
			s.mu.Unlock()
			if !aborting && !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				s.engine.logger.Warn("wsasr: gateway stream failed", "error", err)
				s.handler.OnError(speech.ErrNetwork)
			}
			return
		}
		switch ev.Type {
		case frameStart:
			s.handler.OnStart()
		case frameResult:
			s.handler.OnResult(speech.ResultEvent{Index: ev.Index, Results: ev.Results})
		case frameError:
			s.handler.OnError(speech.ErrorCode(ev.Error))
		case frameEnd:
			return
		default:
			s.engine.logger.Debug("wsasr: ignoring unknown frame", "type", ev.Type)
		}
	}
}
