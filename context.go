package commentsweep

import "context"

var ctxTargetKey contextKey = "target"

type contextKey string

func (c contextKey) String() string {
	return "commentsweep-ctx-key" + string(c)
}

// ContextWithTarget returns a copy of ctx carrying the identifier of the
// resource the wrapped call is fetching (by convention the submission URL).
// Runners use it to name the call target on their log lines.
func ContextWithTarget(ctx context.Context, target string) context.Context {
	return context.WithValue(ctx, ctxTargetKey, target)
}

// TargetFromContext returns the resource identifier set on the context, or
// "unknown" when there is none.
func TargetFromContext(ctx context.Context) string {
	target, ok := ctx.Value(ctxTargetKey).(string)
	if !ok || target == "" {
		return "unknown"
	}

	return target
}
