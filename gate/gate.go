package gate

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/osmank/commentsweep"
	"github.com/osmank/commentsweep/errors"
	runnerutils "github.com/osmank/commentsweep/internal/util/runner"
	"github.com/osmank/commentsweep/metrics"
)

// Config is the configuration of the gate runner.
type Config struct {
	// MaxConcurrent is the number of wrapped executions allowed past the
	// gate at the same time.
	MaxConcurrent int
}

func (c *Config) defaults() {
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = 10
	}
}

type gate struct {
	cfg       Config
	runner    commentsweep.Runner
	sem       *semaphore.Weighted
	inflights atomicCounter
}

// New returns a new gate runner.
// The gate bounds how many wrapped executions run at the same time. A
// caller blocks on a full gate until a slot frees, and the slot is given
// back on every exit path of the execution, success or failure. There is
// no fairness guarantee, under sustained full load a waiter can starve.
func New(cfg Config) commentsweep.Runner {
	return NewMiddleware(cfg)(nil)
}

// NewMiddleware returns a new middleware for the runner that returns
// gate.New.
func NewMiddleware(cfg Config) commentsweep.Middleware {
	cfg.defaults()

	return func(next commentsweep.Runner) commentsweep.Runner {
		return &gate{
			cfg:    cfg,
			runner: runnerutils.Sanitize(next),
			sem:    semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
		}
	}
}

func (g *gate) Run(ctx context.Context, f commentsweep.Func) error {
	metricsRecorder, _ := metrics.RecorderFromContext(ctx)

	metricsRecorder.IncGateQueued()
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return errors.ErrContextCanceled
	}
	defer g.sem.Release(1)

	metricsRecorder.SetGateInflight(g.inflights.Inc())
	defer func() {
		metricsRecorder.SetGateInflight(g.inflights.Dec())
	}()

	return g.runner.Run(ctx, f)
}

type atomicCounter struct {
	c  int
	mu sync.Mutex
}

func (a *atomicCounter) Inc() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.c++
	return a.c
}

func (a *atomicCounter) Dec() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.c--
	return a.c
}
