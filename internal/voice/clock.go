package voice

import (
	"context"
	"sync"
	"time"

	"github.com/wolfman30/clinic-assistant/pkg/logging"
)

// Timer is a cancellable one-shot callback.
type Timer interface {
	Stop() bool
}

// Clock supplies time and timers. Tests substitute a manual clock.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, fn func()) Timer
}

// SystemClock uses the runtime timer wheel.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

func (SystemClock) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

// Dispatcher serializes coordinator work onto a single goroutine.
type Dispatcher interface {
	Dispatch(fn func())
}

// EventLoop is the production Dispatcher: a FIFO mailbox drained by Run.
type EventLoop struct {
	mu     sync.Mutex
	queue  []func()
	signal chan struct{}
	logger *logging.Logger
}

// NewEventLoop creates an idle loop; call Run to start draining it.
func NewEventLoop(logger *logging.Logger) *EventLoop {
	if logger == nil {
		logger = logging.Default()
	}
	return &EventLoop{
		signal: make(chan struct{}, 1),
		logger: logger,
	}
}

// Dispatch enqueues fn without blocking. Safe from any goroutine, including the loop itself.
func (l *EventLoop) Dispatch(fn func()) {
	if fn == nil {
		return
	}
	l.mu.Lock()
	l.queue = append(l.queue, fn)
	l.mu.Unlock()
	select {
	case l.signal <- struct{}{}:
	default:
	}
}

// Run drains the mailbox until ctx is cancelled.
func (l *EventLoop) Run(ctx context.Context) error {
	for {
		l.mu.Lock()
		batch := l.queue
		l.queue = nil
		l.mu.Unlock()

		if len(batch) == 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-l.signal:
				continue
			}
		}
		for _, fn := range batch {
			l.run(fn)
		}
	}
}

func (l *EventLoop) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("voice: event handler panicked", "panic", r)
		}
	}()
	fn()
}
