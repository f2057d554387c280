package async

import (
	"context"
	"time"

	"github.com/iLink-CyberShARE/swim-api/pkg/observability"
)

// Go runs fn in its own goroutine. A timeout of zero leaves the deadline to
// the parent context. The returned channel closes once fn has returned.
func Go(parent context.Context, timeout time.Duration, logger *observability.Logger, task string, fn func(context.Context) error) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)

		ctx, cancel := withTimeout(parent, timeout)
		defer cancel()

		run(ctx, logger, task, fn)
	}()
	return done
}

// Every runs fn on each tick of interval until ctx is cancelled. A failed or
// panicking run is logged and the next tick proceeds normally.
func Every(ctx context.Context, interval time.Duration, logger *observability.Logger, task string, fn func(context.Context) error) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				run(ctx, logger, task, fn)
			}
		}
	}()
	return done
}

func run(ctx context.Context, logger *observability.Logger, task string, fn func(context.Context) error) {
	defer observability.RecoverPanic(logger, task)

	if err := fn(ctx); err != nil && ctx.Err() == nil {
		logger.WithError(err).WithField("task", task).Warn("Background task failed")
	}
}

func withTimeout(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, timeout)
}
