package commentsweep

import (
	"context"

	"github.com/osmank/commentsweep/errors"
)

// Func is the function to execute through a runner chain, usually an
// outbound call to the discussion platform.
type Func func(ctx context.Context) error

// Command is the unit of execution, the end of every runner chain.
type Command struct{}

// Run satisfies Runner interface.
func (Command) Run(ctx context.Context, f Func) error {
	// Only execute if we reached the execution and the context has not been cancelled.
	select {
	case <-ctx.Done():
		return errors.ErrContextCanceled
	default:
		return f(ctx)
	}
}

// Runner knows how to execute an execution logic and returns error if errors.
type Runner interface {
	// Run will run the unit of execution passed on f.
	Run(ctx context.Context, f Func) error
}

// RunnerFunc is a helper that satisfies Runner interface by using a function.
type RunnerFunc func(ctx context.Context, f Func) error

// Run satisfies Runner interface.
func (r RunnerFunc) Run(ctx context.Context, f Func) error {
	// Only execute if we reached the execution and the context has not been cancelled.
	select {
	case <-ctx.Done():
		return errors.ErrContextCanceled
	default:
		return r(ctx, f)
	}
}

// Middleware wraps a Runner with another Runner, this way we can compose
// the different runners in chains.
type Middleware func(Runner) Runner

// RunnerChain composes the received middlewares in a single Runner. The
// first middleware is the outermost one, the last one is the nearest to
// the executed Func.
func RunnerChain(middlewares ...Middleware) Runner {
	var runner Runner
	for i := len(middlewares) - 1; i >= 0; i-- {
		runner = middlewares[i](runner)
	}

	return SanitizeRunner(runner)
}

// SanitizeRunner returns a safe execution Runner if the runner is wrong.
func SanitizeRunner(r Runner) Runner {
	// In case of end of execution chain.
	if r == nil {
		return &Command{}
	}
	return r
}
