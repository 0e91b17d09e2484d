package voice

import (
	"errors"
	"time"

	"github.com/wolfman30/clinic-assistant/internal/speech"
)

// commandListener captures one spoken request with interim results and submits it
// after a quiet period following the last final segment.
type commandListener struct {
	c         *Coordinator
	session   speech.Session
	gen       uint64
	state     ListenerState
	listening bool
	buffer    TranscriptBuffer

	startTimer timerSlot
	autoSend   timerSlot
	retried    bool

	// stopping is set between our Stop and the session's OnEnd.
	stopping bool
}

func (l *commandListener) options() speech.Options {
	return speech.Options{
		Language:        l.c.cfg.Language,
		Continuous:      true,
		InterimResults:  true,
		MaxAlternatives: 3,
	}
}

func (l *commandListener) ensureSession() error {
	if l.session != nil {
		return nil
	}
	l.gen++
	gen := l.gen
	current := func() uint64 { return l.gen }
	session, err := l.c.engine.NewSession(l.options(), l.c.bind(current, gen, speech.HandlerFuncs{
		Start:  l.onStart,
		Result: l.onResult,
		Error:  l.onError,
		End:    l.onEnd,
	}))
	if err != nil {
		return err
	}
	l.session = session
	return nil
}

// discard stops the current session and forgets it; its late callbacks are ignored.
func (l *commandListener) discard() {
	if l.session != nil {
		l.session.Stop()
		l.session = nil
	}
	l.gen++
	l.stopping = false
}

// scheduleStart reserves the microphone now and starts recognition after d.
func (l *commandListener) scheduleStart(d time.Duration) {
	if l.state == StateActive {
		return
	}
	l.state = StateSuspended
	l.c.arm(&l.startTimer, d, l.start)
}

func (l *commandListener) start() {
	c := l.c
	if c.engine == nil {
		l.state = StateIdle
		c.notify(RoleError, msgUnsupported)
		return
	}
	if l.state == StateActive {
		return
	}
	c.disarm(&l.startTimer)
	c.openPanel()
	c.wake.halt(c.parkedWakeState())

	// Text still waiting for its auto-send is delivered rather than dropped.
	if l.autoSend.armed() {
		c.disarm(&l.autoSend)
		text, _ := l.buffer.Display()
		c.submit(text, SourceAuto)
	}
	l.buffer.Reset()

	if err := l.ensureSession(); err != nil {
		c.logger.Error("voice: create command session failed", "error", err)
		l.state = StateIdle
		c.notify(RoleError, msgStartFailed)
		return
	}
	if err := l.session.Start(); err != nil {
		if errors.Is(err, speech.ErrAlreadyStarted) && !l.retried {
			c.logger.Debug("voice: command session still running, retrying start")
			l.retried = true
			l.discard()
			l.state = StateSuspended
			c.arm(&l.startTimer, c.cfg.StartRetryDelay, l.start)
			return
		}
		c.logger.Error("voice: start command recognition failed", "error", err)
		l.retried = false
		l.state = StateIdle
		c.notify(RoleError, msgStartFailed)
		return
	}
	l.retried = false
	l.state = StateActive
}

// stop ends the command session. With submit set, any recognized text is sent.
func (l *commandListener) stop(submit bool) {
	c := l.c
	c.disarm(&l.startTimer)
	l.retried = false

	wasActive := l.state == StateActive
	if wasActive && l.session != nil {
		l.stopping = true
		l.session.Stop()
	}
	pending := l.autoSend.armed()
	c.disarm(&l.autoSend)
	text, _ := l.buffer.Display()

	l.state = StateIdle
	l.listening = false
	l.buffer.Reset()
	if submit && (wasActive || pending) {
		c.submit(text, SourceManual)
	}
}

func (l *commandListener) autoSubmit() {
	c := l.c
	text, _ := l.buffer.Display()
	if l.state == StateActive && l.session != nil {
		l.stopping = true
		l.session.Stop()
	}
	l.state = StateIdle
	l.listening = false
	l.buffer.Reset()
	c.submit(text, SourceAuto)
}

func (l *commandListener) onStart() {
	if l.state != StateActive {
		return
	}
	l.listening = true
	l.c.notify(RoleAssistant, msgListening)
}

func (l *commandListener) onResult(ev speech.ResultEvent) {
	c := l.c
	if l.state != StateActive {
		return
	}
	if l.buffer.Apply(ev, c.clock.Now()) {
		c.arm(&l.autoSend, c.cfg.AutoSendDelay, l.autoSubmit)
	}
}

func (l *commandListener) onError(code speech.ErrorCode) {
	c := l.c
	if l.stopping && code == speech.ErrAborted {
		return
	}
	c.metrics.ObserveRecognitionError("command", string(code))
	c.logger.Warn("voice: speech recognition error", "error", string(code))

	var msg string
	switch code {
	case speech.ErrNoSpeech:
		c.notify(RoleAssistant, msgNoSpeech)
		return
	case speech.ErrNotAllowed:
		msg = msgNotAllowed
	case speech.ErrAudioCapture:
		msg = msgAudioCapture
	case speech.ErrNetwork:
		msg = msgNetwork
	}
	if l.state == StateActive {
		l.stopping = true
		l.session.Stop()
		l.state = StateIdle
	}
	l.listening = false
	if msg != "" {
		c.notify(RoleError, msg)
	}
}

func (l *commandListener) onEnd() {
	if l.stopping {
		l.stopping = false
		return
	}
	if l.state == StateActive {
		l.state = StateIdle
	}
	l.listening = false
}
