package voice

import (
	"github.com/wolfman30/clinic-assistant/internal/speech"
)

// wakeListener runs a continuous, final-results-only session and watches it for
// trigger phrases. It restarts itself whenever the engine ends the session.
type wakeListener struct {
	c       *Coordinator
	session speech.Session
	gen     uint64
	state   ListenerState
	pending timerSlot

	// stopping is set between our Stop and the session's OnEnd.
	stopping bool

	attempts  int
	exhausted bool

	// failed marks a run that ended on a network error; it is rebuilt after a backoff.
	failed bool
}

func (w *wakeListener) options() speech.Options {
	return speech.Options{
		Language:        w.c.cfg.Language,
		Continuous:      true,
		InterimResults:  false,
		MaxAlternatives: 1,
	}
}

func (w *wakeListener) ensureSession() error {
	if w.session != nil {
		return nil
	}
	w.gen++
	gen := w.gen
	current := func() uint64 { return w.gen }
	session, err := w.c.engine.NewSession(w.options(), w.c.bind(current, gen, speech.HandlerFuncs{
		Start:  w.onStart,
		Result: w.onResult,
		Error:  w.onError,
		End:    w.onEnd,
	}))
	if err != nil {
		return err
	}
	w.session = session
	return nil
}

// teardown discards the current session; its late callbacks are ignored.
func (w *wakeListener) teardown() {
	if w.session != nil {
		w.session.Abort()
		w.session = nil
	}
	w.gen++
	w.stopping = false
	w.failed = false
}

// resume starts listening unless already running, waiting on a timer, or out of retries.
func (w *wakeListener) resume() {
	if w.state == StateActive || w.pending.armed() || w.exhausted {
		return
	}
	w.start()
}

func (w *wakeListener) start() {
	if w.c.engine == nil {
		w.state = StateIdle
		return
	}
	if err := w.ensureSession(); err != nil {
		w.c.logger.Warn("voice: create wake word session failed", "error", err)
		w.retry(w.c.cfg.WakeStartRetry)
		return
	}
	if err := w.session.Start(); err != nil {
		w.c.logger.Warn("voice: start wake word listening failed", "error", err)
		w.retry(w.c.cfg.WakeStartRetry)
		return
	}
	w.state = StateActive
	w.attempts = 0
	w.c.logger.Debug("voice: wake word listening started")
}

// retry parks the listener and schedules another start per policy.
func (w *wakeListener) retry(policy RetryPolicy) {
	w.state = StateSuspended
	delay, ok := policy.Next(w.attempts)
	if !ok {
		w.exhausted = true
		w.c.logger.Error("voice: wake word listening gave up", "attempts", w.attempts)
		return
	}
	w.attempts++
	w.c.arm(&w.pending, delay, func() {})
}

// halt stops listening and cancels pending restarts, leaving the listener in next.
func (w *wakeListener) halt(next ListenerState) {
	w.c.disarm(&w.pending)
	if w.state == StateActive && w.session != nil {
		w.stopping = true
		w.session.Stop()
	}
	if next == StateIdle {
		w.attempts = 0
		w.exhausted = false
	}
	w.state = next
}

func (w *wakeListener) onStart() {
	w.c.logger.Debug("voice: wake word session running")
}

func (w *wakeListener) onResult(ev speech.ResultEvent) {
	c := w.c
	if !c.wakeEnabled || c.panelOpen {
		return
	}
	res, ok := ev.Last()
	if !ok || !res.Final {
		return
	}
	trigger, ok := c.cfg.WakeWords.Match(res.Transcript())
	if !ok {
		return
	}
	c.activate(trigger)
}

func (w *wakeListener) onError(code speech.ErrorCode) {
	w.c.metrics.ObserveRecognitionError("wake", string(code))
	switch {
	case code.Transient():
	case code == speech.ErrNetwork:
		w.failed = true
		w.c.logger.Debug("voice: wake word network error")
	default:
		w.c.logger.Warn("voice: wake word recognition error", "error", string(code))
	}
}

func (w *wakeListener) onEnd() {
	c := w.c
	failed := w.failed
	w.failed = false
	if w.stopping {
		w.stopping = false
		return
	}
	if w.state == StateActive {
		w.state = StateSuspended
	}
	if !c.wakeAllowed() || w.pending.armed() || w.exhausted {
		return
	}
	if failed {
		c.metrics.ObserveWakeRestart("rebuild")
		w.teardown()
		w.retry(c.cfg.WakeRebuild)
		return
	}
	if err := w.session.Start(); err != nil {
		c.logger.Warn("voice: wake word restart failed, rebuilding session", "error", err)
		c.metrics.ObserveWakeRestart("rebuild")
		w.teardown()
		w.retry(c.cfg.WakeRebuild)
		return
	}
	c.metrics.ObserveWakeRestart("restarted")
	w.state = StateActive
	w.attempts = 0
}
