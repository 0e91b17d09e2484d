// Package voice coordinates the assistant's two speech listeners: a passive wake-word
// listener and a foreground command listener sharing one recognition engine.
//
// All state lives on a single dispatcher goroutine. Recognition callbacks, timer
// firings and user actions are posted to the dispatcher and handled one at a time;
// after each one the arbiter (reconcile) decides which listener may hold the microphone.
package voice

import (
	"context"
	"sync"
	"time"

	"github.com/wolfman30/clinic-assistant/internal/observability/metrics"
	"github.com/wolfman30/clinic-assistant/internal/speech"
	"github.com/wolfman30/clinic-assistant/pkg/logging"
)

// Config tunes the coordinator.
type Config struct {
	Language          string
	WakeWords         WakeWordSet
	AutoSendDelay     time.Duration
	CommandStartDelay time.Duration
	ResumeDelay       time.Duration
	StartRetryDelay   time.Duration
	WakeStartRetry    RetryPolicy
	WakeRebuild       RetryPolicy
}

// DefaultConfig returns the production timings.
func DefaultConfig() Config {
	return Config{
		Language:          "vi-VN",
		WakeWords:         NewWakeWordSet(DefaultWakeWords...),
		AutoSendDelay:     time.Second,
		CommandStartDelay: 500 * time.Millisecond,
		ResumeDelay:       500 * time.Millisecond,
		StartRetryDelay:   100 * time.Millisecond,
		WakeStartRetry:    FixedRetry(2 * time.Second),
		WakeRebuild:       FixedRetry(time.Second),
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Language == "" {
		c.Language = def.Language
	}
	if c.WakeWords.Len() == 0 {
		c.WakeWords = def.WakeWords
	}
	if c.AutoSendDelay <= 0 {
		c.AutoSendDelay = def.AutoSendDelay
	}
	if c.CommandStartDelay <= 0 {
		c.CommandStartDelay = def.CommandStartDelay
	}
	if c.ResumeDelay <= 0 {
		c.ResumeDelay = def.ResumeDelay
	}
	if c.StartRetryDelay <= 0 {
		c.StartRetryDelay = def.StartRetryDelay
	}
	if len(c.WakeStartRetry.Delays) == 0 {
		c.WakeStartRetry = def.WakeStartRetry
	}
	if len(c.WakeRebuild.Delays) == 0 {
		c.WakeRebuild = def.WakeRebuild
	}
	return c
}

// Deps are the collaborators injected by the page bootstrap.
type Deps struct {
	// Engine is the recognition capability; nil means speech is unsupported.
	Engine      speech.Engine
	Dispatcher  Dispatcher
	Clock       Clock
	View        View
	Notifier    Notifier
	Submitter   Submitter
	Preferences Preferences
	Metrics     *metrics.AssistantMetrics
	Logger      *logging.Logger
}

// Coordinator is the voice interaction coordinator of the assistant widget.
type Coordinator struct {
	cfg        Config
	engine     speech.Engine
	dispatcher Dispatcher
	clock      Clock
	view       View
	notifier   Notifier
	submitter  Submitter
	prefs      Preferences
	metrics    *metrics.AssistantMetrics
	logger     *logging.Logger

	// Owned by the dispatcher goroutine.
	ctx         context.Context
	panelOpen   bool
	wakeEnabled bool
	wake        *wakeListener
	cmd         *commandListener

	mu       sync.RWMutex
	snapshot Snapshot
}

// New builds a coordinator. Nothing listens until Start is called.
func New(cfg Config, deps Deps) *Coordinator {
	logger := deps.Logger
	if logger == nil {
		logger = logging.Default()
	}
	c := &Coordinator{
		cfg:        cfg.withDefaults(),
		engine:     deps.Engine,
		dispatcher: deps.Dispatcher,
		clock:      deps.Clock,
		view:       deps.View,
		notifier:   deps.Notifier,
		submitter:  deps.Submitter,
		prefs:      deps.Preferences,
		metrics:    deps.Metrics,
		logger:     logger.Component("voice"),
		ctx:        context.Background(),
	}
	if c.dispatcher == nil {
		c.dispatcher = NewEventLoop(c.logger)
	}
	if c.clock == nil {
		c.clock = SystemClock{}
	}
	c.wake = &wakeListener{c: c}
	c.cmd = &commandListener{c: c}
	c.snapshot = c.buildSnapshot()
	return c
}

// Run drains the coordinator's event loop until ctx is done. It is a no-op wait
// when a custom Dispatcher was injected.
func (c *Coordinator) Run(ctx context.Context) error {
	if loop, ok := c.dispatcher.(*EventLoop); ok {
		return loop.Run(ctx)
	}
	<-ctx.Done()
	return ctx.Err()
}

// Start loads the persisted wake-word mode (default on) and begins passive listening.
func (c *Coordinator) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	enabled := true
	if c.prefs != nil {
		saved, err := c.prefs.WakeWordEnabled(ctx)
		if err != nil {
			c.logger.Warn("voice: load wake word setting failed", "error", err)
		} else {
			enabled = saved
		}
	}
	c.post(func() {
		c.ctx = ctx
		c.wakeEnabled = enabled
	})
}

// Shutdown releases the microphone without submitting pending text.
func (c *Coordinator) Shutdown() {
	c.post(func() {
		c.cmd.stop(false)
		c.wakeEnabled = false
		c.wake.halt(StateIdle)
	})
}

// TogglePanel opens a closed chat panel or closes an open one.
func (c *Coordinator) TogglePanel() {
	c.post(func() {
		if c.panelOpen {
			c.closePanel()
		} else {
			c.openPanel()
		}
	})
}

// OpenPanel opens the chat panel, suspending wake-word listening.
func (c *Coordinator) OpenPanel() {
	c.post(c.openPanel)
}

// ClosePanel closes the chat panel, stopping any command session.
func (c *Coordinator) ClosePanel() {
	c.post(c.closePanel)
}

// ToggleWakeWord flips and persists the wake-word mode.
func (c *Coordinator) ToggleWakeWord() {
	c.post(func() {
		c.setWakeEnabled(!c.wakeEnabled)
	})
}

// ToggleMicrophone starts the command listener, or stops it and submits what was heard.
func (c *Coordinator) ToggleMicrophone() {
	c.post(func() {
		if c.cmd.state != StateIdle {
			c.cmd.stop(true)
			return
		}
		c.cmd.start()
	})
}

// Snapshot returns the latest published widget state.
func (c *Coordinator) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot
}

// post runs fn on the dispatcher and re-arbitrates afterwards.
func (c *Coordinator) post(fn func()) {
	c.dispatcher.Dispatch(func() {
		fn()
		c.reconcile()
	})
}

// wakeAllowed is the arbitration rule: the wake-word listener may hold the
// microphone only while enabled, with the panel closed and no command session.
func (c *Coordinator) wakeAllowed() bool {
	return c.wakeEnabled && !c.panelOpen && c.cmd.state == StateIdle
}

// parkedWakeState is where the wake listener rests when it may not run.
func (c *Coordinator) parkedWakeState() ListenerState {
	if c.wakeEnabled {
		return StateSuspended
	}
	return StateIdle
}

// reconcile applies the arbitration rule and publishes the resulting state.
func (c *Coordinator) reconcile() {
	if c.wakeAllowed() {
		c.wake.resume()
	} else {
		c.wake.halt(c.parkedWakeState())
	}
	c.publish()
}

func (c *Coordinator) openPanel() {
	if c.panelOpen {
		return
	}
	c.panelOpen = true
}

func (c *Coordinator) closePanel() {
	if !c.panelOpen {
		return
	}
	c.panelOpen = false
	c.cmd.stop(true)
	if c.wakeEnabled {
		// Give the closing gesture time to pass before listening again.
		c.wake.halt(StateSuspended)
		c.arm(&c.wake.pending, c.cfg.ResumeDelay, func() {})
	}
}

func (c *Coordinator) setWakeEnabled(enabled bool) {
	c.wakeEnabled = enabled
	if c.prefs != nil {
		if err := c.prefs.SetWakeWordEnabled(c.ctx, enabled); err != nil {
			c.logger.Warn("voice: persist wake word setting failed", "error", err)
		}
	}
	if enabled {
		c.wake.attempts = 0
		c.wake.exhausted = false
		c.notify(RoleAssistant, msgWakeOn)
		return
	}
	c.wake.halt(StateIdle)
	c.notify(RoleAssistant, msgWakeOff)
}

// activate wakes the assistant: open the panel, greet, then start the command
// listener once the panel has rendered.
func (c *Coordinator) activate(trigger string) {
	c.logger.Info("voice: wake word detected", "trigger", trigger)
	c.metrics.ObserveWakeDetection(trigger)
	c.openPanel()
	c.notify(RoleAssistant, msgAwake)
	c.cmd.scheduleStart(c.cfg.CommandStartDelay)
}

func (c *Coordinator) notify(role, text string) {
	if c.notifier == nil {
		return
	}
	c.notifier.Notify(c.ctx, role, text)
}

func (c *Coordinator) submit(text, source string) {
	if text == "" {
		return
	}
	c.metrics.ObserveSubmission(source)
	if c.submitter == nil {
		c.logger.Warn("voice: no submitter configured, dropping text", "source", source)
		return
	}
	c.submitter.Submit(text)
}

func (c *Coordinator) buildSnapshot() Snapshot {
	transcript, tentative := c.cmd.buffer.Display()
	commandBusy := c.cmd.state != StateIdle
	status := statusReady
	if commandBusy {
		status = statusListening
	}
	return Snapshot{
		Supported:             c.engine != nil,
		PanelOpen:             c.panelOpen,
		Listening:             c.cmd.listening,
		WakeWordEnabled:       c.wakeEnabled,
		WakeState:             c.wake.state,
		CommandState:          c.cmd.state,
		Status:                status,
		StatusListening:       commandBusy,
		WakeToggleActive:      c.wakeEnabled,
		LauncherWakeListening: c.wakeEnabled && !c.panelOpen,
		LauncherListening:     c.cmd.state == StateActive,
		MicButtonListening:    c.cmd.listening,
		Transcript:            transcript,
		TranscriptTentative:   tentative,
	}
}

func (c *Coordinator) publish() {
	snap := c.buildSnapshot()
	c.mu.Lock()
	changed := snap != c.snapshot
	c.snapshot = snap
	c.mu.Unlock()
	if changed && c.view != nil {
		c.view.Render(snap)
	}
}

// timerSlot holds at most one pending callback. Re-arming or disarming
// invalidates callbacks that already fired but have not run yet.
type timerSlot struct {
	timer Timer
	seq   uint64
}

func (s *timerSlot) armed() bool { return s.timer != nil }

func (c *Coordinator) arm(slot *timerSlot, d time.Duration, fn func()) {
	c.disarm(slot)
	seq := slot.seq
	slot.timer = c.clock.AfterFunc(d, func() {
		c.dispatcher.Dispatch(func() {
			if slot.seq != seq || slot.timer == nil {
				return
			}
			slot.timer = nil
			fn()
			c.reconcile()
		})
	})
}

func (c *Coordinator) disarm(slot *timerSlot) {
	if slot.timer != nil {
		slot.timer.Stop()
		slot.timer = nil
	}
	slot.seq++
}

// bind wraps a listener's callbacks so they run on the dispatcher and are
// dropped once the session generation has moved on.
func (c *Coordinator) bind(current func() uint64, gen uint64, h speech.HandlerFuncs) speech.Handler {
	guard := func(fn func()) {
		c.post(func() {
			if current() != gen {
				return
			}
			fn()
		})
	}
	return speech.HandlerFuncs{
		Start:  func() { guard(h.OnStart) },
		Result: func(ev speech.ResultEvent) { guard(func() { h.OnResult(ev) }) },
		Error:  func(code speech.ErrorCode) { guard(func() { h.OnError(code) }) },
		End:    func() { guard(h.OnEnd) },
	}
}
