package voice

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wolfman30/clinic-assistant/internal/speech/speechtest"
	"github.com/wolfman30/clinic-assistant/pkg/logging"
)

type manualLoop struct {
	queue []func()
}

func (l *manualLoop) Dispatch(fn func()) {
	l.queue = append(l.queue, fn)
}

func (l *manualLoop) drain() {
	for len(l.queue) > 0 {
		fn := l.queue[0]
		l.queue = l.queue[1:]
		fn()
	}
}

type fakeTimer struct {
	at      time.Time
	seq     int
	fn      func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

type fakeClock struct {
	now    time.Time
	seq    int
	timers []*fakeTimer
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) AfterFunc(d time.Duration, fn func()) Timer {
	c.seq++
	t := &fakeTimer{at: c.now.Add(d), seq: c.seq, fn: fn}
	c.timers = append(c.timers, t)
	return t
}

// next returns the earliest live timer due at or before deadline.
func (c *fakeClock) next(deadline time.Time) *fakeTimer {
	var live []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && !t.at.After(deadline) {
			live = append(live, t)
		}
	}
	if len(live) == 0 {
		return nil
	}
	sort.Slice(live, func(i, j int) bool {
		if live[i].at.Equal(live[j].at) {
			return live[i].seq < live[j].seq
		}
		return live[i].at.Before(live[j].at)
	})
	return live[0]
}

type note struct {
	role string
	text string
}

type recorder struct {
	mu        sync.Mutex
	notes     []note
	submitted []string
	renders   []Snapshot
}

func (r *recorder) Notify(_ context.Context, role, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, note{role: role, text: text})
}

func (r *recorder) Submit(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.submitted = append(r.submitted, text)
}

func (r *recorder) Render(s Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.renders = append(r.renders, s)
}

func (r *recorder) hasNote(role, text string) bool {
	for _, n := range r.notes {
		if n.role == role && n.text == text {
			return true
		}
	}
	return false
}

type memPrefs struct {
	enabled *bool
	writes  []bool
}

func (p *memPrefs) WakeWordEnabled(context.Context) (bool, error) {
	if p.enabled == nil {
		return true, nil
	}
	return *p.enabled, nil
}

func (p *memPrefs) SetWakeWordEnabled(_ context.Context, enabled bool) error {
	p.enabled = &enabled
	p.writes = append(p.writes, enabled)
	return nil
}

type harness struct {
	t      *testing.T
	engine *speechtest.Engine
	clock  *fakeClock
	loop   *manualLoop
	rec    *recorder
	prefs  *memPrefs
	c      *Coordinator
}

func newHarness(t *testing.T, withEngine bool) *harness {
	t.Helper()
	return newHarnessWithConfig(t, DefaultConfig(), withEngine)
}

func newHarnessWithConfig(t *testing.T, cfg Config, withEngine bool) *harness {
	t.Helper()
	h := &harness{
		t:     t,
		clock: newFakeClock(),
		loop:  &manualLoop{},
		rec:   &recorder{},
		prefs: &memPrefs{},
	}
	deps := Deps{
		Dispatcher:  h.loop,
		Clock:       h.clock,
		View:        h.rec,
		Notifier:    h.rec,
		Submitter:   h.rec,
		Preferences: h.prefs,
		Logger:      logging.New("error"),
	}
	if withEngine {
		h.engine = &speechtest.Engine{}
		deps.Engine = h.engine
	}
	h.c = New(cfg, deps)
	return h
}

// start boots the coordinator and settles the queue.
func (h *harness) start() {
	h.c.Start(context.Background())
	h.settle()
}

// settle drains queued events and checks the microphone is never shared.
func (h *harness) settle() {
	h.loop.drain()
	if h.engine != nil {
		require.LessOrEqual(h.t, h.engine.Running(), 1, "two recognition sessions running at once")
	}
}

// advance moves the clock forward, firing due timers in order.
func (h *harness) advance(d time.Duration) {
	deadline := h.clock.now.Add(d)
	for {
		t := h.clock.next(deadline)
		if t == nil {
			break
		}
		h.clock.now = t.at
		t.fired = true
		t.fn()
		h.settle()
	}
	h.clock.now = deadline
	h.settle()
}

func (h *harness) wake() *speechtest.Session {
	return h.engine.Latest(false)
}

func (h *harness) command() *speechtest.Session {
	return h.engine.Latest(true)
}

func (h *harness) snapshot() Snapshot {
	return h.c.Snapshot()
}

// activate speaks a trigger phrase and waits for the command listener to start.
func (h *harness) activate() *speechtest.Session {
	h.t.Helper()
	require.NoError(h.t, h.wake().Final("trợ lý ơi"))
	h.settle()
	h.advance(DefaultConfig().CommandStartDelay)
	cmd := h.command()
	require.NotNil(h.t, cmd)
	require.True(h.t, cmd.Running())
	return cmd
}
