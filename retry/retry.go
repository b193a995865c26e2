package retry

import (
	"context"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/osmank/commentsweep"
	"github.com/osmank/commentsweep/errors"
	"github.com/osmank/commentsweep/metrics"
)

// Config is the configuration used for the retry Runner.
type Config struct {
	// MaxRetries is the number of times a rate limited execution will be
	// reissued before the error is returned to the caller. The total
	// number of attempts is MaxRetries + 1. Zero selects the default of
	// 3 retries, a negative value disables retrying and the call is
	// made once.
	MaxRetries int
	// InitialDelay is the base wait before the first retry, every
	// following wait doubles it.
	InitialDelay time.Duration
	// Retryable decides if waiting and reissuing the call can recover
	// from an error. By default rate limited responses and transport
	// failures are retryable, a response with any other status is not.
	Retryable func(error) bool
	// Logger receives the backoff warnings and the exhaustion error.
	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	} else if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}

	if c.InitialDelay <= 0 {
		c.InitialDelay = 1 * time.Second
	}

	if c.Retryable == nil {
		c.Retryable = errors.IsRetryable
	}

	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// New returns a new retry ready executor. A rate limited execution will be
// reissued up to MaxRetries times with an exponential backoff between the
// attempts, any other failure is returned as is.
func New(cfg Config) commentsweep.Runner {
	return NewMiddleware(cfg)(nil)
}

// NewMiddleware returns a new retry middleware.
//
// When this middleware wraps a gate runner the gate slot is held only for
// the duration of a single attempt, during a backoff wait the slot is
// free for the other callers and it is acquired again on the next attempt.
func NewMiddleware(cfg Config) commentsweep.Middleware {
	cfg.defaults()

	return func(next commentsweep.Runner) commentsweep.Runner {
		next = commentsweep.SanitizeRunner(next)

		// Use the algorithms for jitter and backoff.
		// https://aws.amazon.com/es/blogs/architecture/exponential-backoff-and-jitter/
		return commentsweep.RunnerFunc(func(ctx context.Context, f commentsweep.Func) error {
			metricsRecorder, _ := metrics.RecorderFromContext(ctx)

			retries := 0
			for {
				err := next.Run(ctx, f)
				if err == nil {
					return nil
				}

				if !cfg.Retryable(err) {
					return err
				}

				if errors.IsRateLimit(err) {
					metricsRecorder.IncRateLimited()
				}

				retries++
				metricsRecorder.IncRetry()

				if retries > cfg.MaxRetries {
					metricsRecorder.IncRetryExhausted()
					cfg.Logger.Error("max retries exceeded",
						slog.String("target", commentsweep.TargetFromContext(ctx)),
						slog.Int("max_retries", cfg.MaxRetries))
					return err
				}

				wait := backoffWait(retries, cfg.InitialDelay)
				cfg.Logger.Warn("rate limit hit, waiting before retry",
					slog.String("target", commentsweep.TargetFromContext(ctx)),
					slog.Duration("wait", wait),
					slog.Int("retry", retries))

				if err := sleep(ctx, wait); err != nil {
					return err
				}
			}
		})
	}
}

// backoffWait returns the wait before the given retry, the base delay
// doubled per retry already made plus up to 10% of uniform jitter so
// concurrent callers don't retry in lockstep.
func backoffWait(retries int, base time.Duration) time.Duration {
	delay := time.Duration(float64(base) * math.Exp2(float64(retries-1)))
	jitter := time.Duration(rand.Float64() * 0.1 * float64(delay))
	return delay + jitter
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return errors.ErrContextCanceled
	case <-t.C:
		return nil
	}
}
