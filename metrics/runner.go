package metrics

import (
	"context"
	"time"

	"github.com/osmank/commentsweep"
	runnerutils "github.com/osmank/commentsweep/internal/util/runner"
)

var ctxRecorderKey contextKey = "recorder"

type contextKey string

func (c contextKey) String() string {
	return "metrics-ctx-key" + string(c)
}

// RecorderFromContext will get the metrics recorder from the context.
// If there is no recorder it will return a dummy recorder that is
// safe to use.
func RecorderFromContext(ctx context.Context) (recorder Recorder, ok bool) {
	rec, ok := ctx.Value(ctxRecorderKey).(Recorder)

	if !ok {
		return Dummy, false
	}

	return rec, true
}

func setRecorderOnContext(ctx context.Context, r Recorder) context.Context {
	return context.WithValue(ctx, ctxRecorderKey, r)
}

// NewMeasuredRunner is a decorator that will measure the execution of the
// wrapped runner chain and set the recorder on the context so the inner
// runners can measure too.
func NewMeasuredRunner(id string, rec Recorder, r commentsweep.Runner) commentsweep.Runner {
	if rec == nil {
		rec = Dummy
	}
	rec = rec.WithID(id)

	r = runnerutils.Sanitize(r)

	return commentsweep.RunnerFunc(func(ctx context.Context, f commentsweep.Func) (err error) {
		defer func(start time.Time) {
			rec.ObserveCommandExecution(start, err == nil)
		}(time.Now())

		// Set the recorder.
		ctx = setRecorderOnContext(ctx, rec)

		err = r.Run(ctx, f)

		return err
	})
}
