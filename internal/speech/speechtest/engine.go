// Package speechtest provides a scriptable in-memory speech engine for tests.
package speechtest

import (
	"errors"
	"sync"

	"github.com/wolfman30/clinic-assistant/internal/speech"
)

// Engine records every session it creates. Callbacks are only delivered when a
// test drives a session, so tests control event ordering completely.
type Engine struct {
	mu       sync.Mutex
	sessions []*Session
	newErrs  []error

	// Configure, when set, runs on every new session before it is returned.
	Configure func(*Session)
}

// FailNextSession makes the next NewSession call return err.
func (e *Engine) FailNextSession(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.newErrs = append(e.newErrs, err)
}

func (e *Engine) NewSession(opts speech.Options, h speech.Handler) (speech.Session, error) {
	e.mu.Lock()
	if len(e.newErrs) > 0 {
		err := e.newErrs[0]
		e.newErrs = e.newErrs[1:]
		e.mu.Unlock()
		return nil, err
	}
	s := &Session{Options: opts, handler: h}
	e.sessions = append(e.sessions, s)
	configure := e.Configure
	e.mu.Unlock()

	if configure != nil {
		configure(s)
	}
	return s, nil
}

// Sessions returns every session created so far, oldest first.
func (e *Engine) Sessions() []*Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*Session(nil), e.sessions...)
}

// Latest returns the newest session whose options match interim, or nil.
// Wake-word sessions run without interim results; command sessions with them.
func (e *Engine) Latest(interim bool) *Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := len(e.sessions) - 1; i >= 0; i-- {
		if e.sessions[i].Options.InterimResults == interim {
			return e.sessions[i]
		}
	}
	return nil
}

// Running counts sessions currently holding the microphone.
func (e *Engine) Running() int {
	n := 0
	for _, s := range e.Sessions() {
		if s.Running() {
			n++
		}
	}
	return n
}

// Session is a fake recognition stream. Stop and Abort end it immediately and
// deliver OnEnd; results are emitted only through the helper methods.
type Session struct {
	Options speech.Options

	mu        sync.Mutex
	handler   speech.Handler
	running   bool
	startErrs []error
	results   []speech.Result
	starts    int
	stops     int
	aborts    int
}

// ErrNotRunning is returned by emitters called on a stopped session.
var ErrNotRunning = errors.New("speechtest: session not running")

// FailNextStart makes the next Start call return err.
func (s *Session) FailNextStart(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.startErrs = append(s.startErrs, err)
}

func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.startErrs) > 0 {
		err := s.startErrs[0]
		s.startErrs = s.startErrs[1:]
		return err
	}
	if s.running {
		return speech.ErrAlreadyStarted
	}
	s.running = true
	s.results = nil
	s.starts++
	return nil
}

func (s *Session) Stop() {
	s.mu.Lock()
	s.stops++
	s.mu.Unlock()
	s.end()
}

func (s *Session) Abort() {
	s.mu.Lock()
	s.aborts++
	s.mu.Unlock()
	s.end()
}

func (s *Session) end() {
	s.mu.Lock()
	was := s.running
	s.running = false
	s.mu.Unlock()
	if was {
		s.handler.OnEnd()
	}
}

// Running reports whether the session is started and not yet ended.
func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Starts, Stops and Aborts count calls made by the code under test.
func (s *Session) Starts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.starts
}

func (s *Session) Stops() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stops
}

func (s *Session) Aborts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.aborts
}

// Begin delivers OnStart, as engines do once audio capture is live.
func (s *Session) Begin() {
	s.handler.OnStart()
}

// Interim replaces the tentative hypothesis at the end of the result list.
func (s *Session) Interim(text string) error {
	return s.emit(text, false)
}

// Final settles the trailing utterance with text.
func (s *Session) Final(text string) error {
	return s.emit(text, true)
}

func (s *Session) emit(text string, final bool) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return ErrNotRunning
	}
	if n := len(s.results); n > 0 && !s.results[n-1].Final {
		s.results = s.results[:n-1]
	}
	index := len(s.results)
	s.results = append(s.results, speech.Result{
		Final:        final,
		Alternatives: []speech.Alternative{{Transcript: text, Confidence: 0.9}},
	})
	ev := speech.ResultEvent{Index: index, Results: append([]speech.Result(nil), s.results...)}
	s.mu.Unlock()

	s.handler.OnResult(ev)
	return nil
}

// Fail delivers OnError without ending the session.
func (s *Session) Fail(code speech.ErrorCode) {
	s.handler.OnError(code)
}

// End finishes the session as if the engine timed out.
func (s *Session) End() {
	s.end()
}
