package timeout

import (
	"context"
	"time"

	"github.com/osmank/commentsweep"
	"github.com/osmank/commentsweep/errors"
	runnerutils "github.com/osmank/commentsweep/internal/util/runner"
	"github.com/osmank/commentsweep/metrics"
)

const defaultTimeout = 15 * time.Second

// Config is the configuration of the timeout runner.
type Config struct {
	// Timeout is the maximum duration of a single wrapped execution.
	Timeout time.Duration
}

func (c *Config) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
}

// New returns a new timeout runner that cuts the execution when the
// configured duration passes. When combined with a retry runner it bounds
// every attempt on its own.
func New(cfg Config) commentsweep.Runner {
	return NewMiddleware(cfg)(nil)
}

// NewMiddleware returns a new timeout middleware.
func NewMiddleware(cfg Config) commentsweep.Middleware {
	cfg.defaults()

	return func(next commentsweep.Runner) commentsweep.Runner {
		next = runnerutils.Sanitize(next)

		return commentsweep.RunnerFunc(func(ctx context.Context, f commentsweep.Func) error {
			ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
			defer cancel()

			// Run the command, the buffered channel lets the goroutine
			// finish when the deadline wins the select.
			errc := make(chan error, 1)
			go func() {
				errc <- next.Run(ctx, f)
			}()

			select {
			case err := <-errc:
				return err
			case <-ctx.Done():
				metricsRecorder, _ := metrics.RecorderFromContext(ctx)
				metricsRecorder.IncTimeout()
				return errors.ErrTimeout
			}
		})
	}
}
