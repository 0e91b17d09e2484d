package bootstrap

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/wolfman30/clinic-assistant/pkg/logging"
)

// Task is a long-running component such as the voice event loop or the
// submission pipeline.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// Supervise runs every task until ctx is cancelled or one of them fails. A
// failing task cancels the rest. Cancellation is not reported as an error.
func Supervise(ctx context.Context, logger *logging.Logger, tasks ...Task) error {
	if logger == nil {
		logger = logging.Default()
	}
	g, ctx := errgroup.WithContext(ctx)
	for _, task := range tasks {
		g.Go(func() error {
			logger.Debug("task started", "task", task.Name)
			err := task.Run(ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("task failed", "task", task.Name, "error", err)
				return err
			}
			logger.Debug("task stopped", "task", task.Name)
			return nil
		})
	}
	return g.Wait()
}
