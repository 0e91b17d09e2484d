package bootstrap

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/wolfman30/clinic-assistant/pkg/logging"
)

func TestSuperviseStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{}, 2)
	block := func(ctx context.Context) error {
		started <- struct{}{}
		<-ctx.Done()
		return ctx.Err()
	}

	done := make(chan error, 1)
	go func() {
		done <- Supervise(ctx, logging.New("error"), Task{Name: "a", Run: block}, Task{Name: "b", Run: block})
	}()
	<-started
	<-started
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected nil error on cancel, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("supervise did not return after cancel")
	}
}

func TestSuperviseFailureCancelsOthers(t *testing.T) {
	boom := errors.New("boom")
	stopped := make(chan struct{})

	err := Supervise(context.Background(), logging.New("error"),
		Task{Name: "failing", Run: func(context.Context) error { return boom }},
		Task{Name: "waiting", Run: func(ctx context.Context) error {
			<-ctx.Done()
			close(stopped)
			return ctx.Err()
		}},
	)
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	select {
	case <-stopped:
	default:
		t.Fatal("expected sibling task to be cancelled")
	}
}
