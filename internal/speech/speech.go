// Package speech defines the speech-recognition capability the assistant listens through.
// A single Engine hands out sessions; the caller decides which session may hold the
// microphone at any time.
package speech

import "errors"

// ErrAlreadyStarted is returned by Session.Start when the session is still running.
var ErrAlreadyStarted = errors.New("speech: recognition already started")

// ErrorCode mirrors the recognition error taxonomy reported by engines.
type ErrorCode string

const (
	ErrNoSpeech             ErrorCode = "no-speech"
	ErrAborted              ErrorCode = "aborted"
	ErrNotAllowed           ErrorCode = "not-allowed"
	ErrAudioCapture         ErrorCode = "audio-capture"
	ErrNetwork              ErrorCode = "network"
	ErrServiceNotAllowed    ErrorCode = "service-not-allowed"
	ErrBadGrammar           ErrorCode = "bad-grammar"
	ErrLanguageNotSupported ErrorCode = "language-not-supported"
)

// Transient reports whether the code is expected during normal listening.
func (c ErrorCode) Transient() bool {
	return c == ErrNoSpeech || c == ErrAborted
}

// Options configures a recognition session.
type Options struct {
	Language        string
	Continuous      bool
	InterimResults  bool
	MaxAlternatives int
}

// Alternative is one hypothesis for an utterance.
type Alternative struct {
	Transcript string  `json:"transcript"`
	Confidence float64 `json:"confidence"`
}

// Result is one utterance; Final results never change again.
type Result struct {
	Final        bool          `json:"final"`
	Alternatives []Alternative `json:"alternatives"`
}

// Transcript returns the top hypothesis.
func (r Result) Transcript() string {
	if len(r.Alternatives) == 0 {
		return ""
	}
	return r.Alternatives[0].Transcript
}

// ResultEvent carries the cumulative result list of a session. Index is the
// first entry that changed since the previous event.
type ResultEvent struct {
	Index   int      `json:"index"`
	Results []Result `json:"results"`
}

// Last returns the most recent result, if any.
func (e ResultEvent) Last() (Result, bool) {
	if len(e.Results) == 0 {
		return Result{}, false
	}
	return e.Results[len(e.Results)-1], true
}

// Handler receives session callbacks. Engines deliver them in order, one at a time.
type Handler interface {
	OnStart()
	OnResult(ResultEvent)
	OnError(ErrorCode)
	OnEnd()
}

// Session is one recognition stream. Stop requests a graceful end; the OnEnd
// callback may arrive later.
type Session interface {
	Start() error
	Stop()
	Abort()
}

// Engine creates sessions against a single recognition capability.
type Engine interface {
	NewSession(opts Options, h Handler) (Session, error)
}

// HandlerFuncs adapts plain functions to Handler; nil fields are ignored.
type HandlerFuncs struct {
	Start  func()
	Result func(ResultEvent)
	Error  func(ErrorCode)
	End    func()
}

func (h HandlerFuncs) OnStart() {
	if h.Start != nil {
		h.Start()
	}
}

func (h HandlerFuncs) OnResult(ev ResultEvent) {
	if h.Result != nil {
		h.Result(ev)
	}
}

func (h HandlerFuncs) OnError(code ErrorCode) {
	if h.Error != nil {
		h.Error(code)
	}
}

func (h HandlerFuncs) OnEnd() {
	if h.End != nil {
		h.End()
	}
}
