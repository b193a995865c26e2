package pace

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/osmank/commentsweep"
	"github.com/osmank/commentsweep/errors"
	"github.com/osmank/commentsweep/metrics"
)

// Config is the configuration of the pace runner.
type Config struct {
	// RequestsPerSecond caps the steady outbound request rate. Zero or
	// negative disables pacing and the runner is a passthrough.
	RequestsPerSecond float64
	// Burst is the number of executions that may start at once before
	// the pacing kicks in.
	Burst int
}

func (c *Config) defaults() {
	if c.Burst <= 0 {
		c.Burst = 1
	}
}

type pacer struct {
	runner  commentsweep.Runner
	limiter *rate.Limiter
}

// New returns a new pace runner.
// The pacer caps the steady outbound request rate, a caller blocks until
// its reservation is due. The gate bounds concurrency, the pacer bounds rate.
func New(cfg Config) commentsweep.Runner {
	return NewMiddleware(cfg)(nil)
}

// NewMiddleware returns a new pace middleware.
func NewMiddleware(cfg Config) commentsweep.Middleware {
	cfg.defaults()

	return func(next commentsweep.Runner) commentsweep.Runner {
		next = commentsweep.SanitizeRunner(next)

		if cfg.RequestsPerSecond <= 0 {
			return next
		}

		return &pacer{
			runner:  next,
			limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		}
	}
}

func (p *pacer) Run(ctx context.Context, f commentsweep.Func) error {
	rsv := p.limiter.Reserve()
	if d := rsv.Delay(); d > 0 {
		metricsRecorder, _ := metrics.RecorderFromContext(ctx)
		metricsRecorder.IncPaceWait()

		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-ctx.Done():
			rsv.Cancel()
			return errors.ErrContextCanceled
		case <-t.C:
		}
	}

	return p.runner.Run(ctx, f)
}
