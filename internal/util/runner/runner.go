package runner

import (
	"github.com/osmank/commentsweep"
)

// Sanitize returns a safe Runner if the runner is wrong.
func Sanitize(r commentsweep.Runner) commentsweep.Runner {
	// In case of end of execution chain.
	if r == nil {
		return &commentsweep.Command{}
	}
	return r
}
