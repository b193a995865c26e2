package retry_test

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/osmank/commentsweep"
	cserrors "github.com/osmank/commentsweep/errors"
	"github.com/osmank/commentsweep/gate"
	"github.com/osmank/commentsweep/retry"
)

// counterFailer fails with failWith until notFailOnAttempt is reached.
type counterFailer struct {
	notFailOnAttempt int
	timesExecuted    int
	failWith         error
}

func (c *counterFailer) Run(ctx context.Context) error {
	c.timesExecuted++
	if c.timesExecuted == c.notFailOnAttempt {
		return nil
	}

	return c.failWith
}

// levelCounter is a slog handler that only counts the records per level.
type levelCounter struct {
	mu     sync.Mutex
	counts map[slog.Level]int
}

func newLevelCounter() *levelCounter {
	return &levelCounter{counts: map[slog.Level]int{}}
}

func (l *levelCounter) Enabled(_ context.Context, _ slog.Level) bool { return true }

func (l *levelCounter) Handle(_ context.Context, r slog.Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.counts[r.Level]++
	return nil
}

func (l *levelCounter) WithAttrs(_ []slog.Attr) slog.Handler { return l }
func (l *levelCounter) WithGroup(_ string) slog.Handler      { return l }

func (l *levelCounter) count(level slog.Level) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.counts[level]
}

var (
	errRateLimited = &cserrors.APIError{StatusCode: http.StatusTooManyRequests}
	errServerFault = &cserrors.APIError{StatusCode: http.StatusInternalServerError}
	errTransport   = &cserrors.TransportError{Err: errors.New("connection reset")}
	errWanted      = errors.New("wanted error")
)

func TestRetryResult(t *testing.T) {
	tests := []struct {
		name        string
		cfg         retry.Config
		failer      *counterFailer
		expErr      error
		expExecuted int
		expWarnings int
		expErrLogs  int
	}{
		{
			name: "An always rate limited execution should be attempted max retries + 1 times and log one error.",
			cfg: retry.Config{
				MaxRetries:   3,
				InitialDelay: 1 * time.Millisecond,
			},
			failer:      &counterFailer{notFailOnAttempt: -1, failWith: errRateLimited},
			expErr:      errRateLimited,
			expExecuted: 4,
			expWarnings: 3,
			expErrLogs:  1,
		},
		{
			name: "An execution rate limited once should succeed with exactly one backoff wait.",
			cfg: retry.Config{
				MaxRetries:   3,
				InitialDelay: 1 * time.Millisecond,
			},
			failer:      &counterFailer{notFailOnAttempt: 2, failWith: errRateLimited},
			expErr:      nil,
			expExecuted: 2,
			expWarnings: 1,
			expErrLogs:  0,
		},
		{
			name: "A transport failure should be retried like a rate limit.",
			cfg: retry.Config{
				MaxRetries:   3,
				InitialDelay: 1 * time.Millisecond,
			},
			failer:      &counterFailer{notFailOnAttempt: 3, failWith: errTransport},
			expErr:      nil,
			expExecuted: 3,
			expWarnings: 2,
			expErrLogs:  0,
		},
		{
			name: "An api failure with a non rate limit status should propagate immediately without waits.",
			cfg: retry.Config{
				MaxRetries:   3,
				InitialDelay: 1 * time.Millisecond,
			},
			failer:      &counterFailer{notFailOnAttempt: -1, failWith: errServerFault},
			expErr:      errServerFault,
			expExecuted: 1,
			expWarnings: 0,
			expErrLogs:  0,
		},
		{
			name: "An unclassified failure should propagate immediately without waits.",
			cfg: retry.Config{
				MaxRetries:   3,
				InitialDelay: 1 * time.Millisecond,
			},
			failer:      &counterFailer{notFailOnAttempt: -1, failWith: errWanted},
			expErr:      errWanted,
			expExecuted: 1,
			expWarnings: 0,
			expErrLogs:  0,
		},
		{
			name: "A negative max retries should disable retrying, one attempt and no waits.",
			cfg: retry.Config{
				MaxRetries:   -1,
				InitialDelay: 1 * time.Millisecond,
			},
			failer:      &counterFailer{notFailOnAttempt: -1, failWith: errRateLimited},
			expErr:      errRateLimited,
			expExecuted: 1,
			expWarnings: 0,
			expErrLogs:  1,
		},
		{
			name: "A single allowed retry should give two attempts in total.",
			cfg: retry.Config{
				MaxRetries:   1,
				InitialDelay: 1 * time.Millisecond,
			},
			failer:      &counterFailer{notFailOnAttempt: -1, failWith: errRateLimited},
			expErr:      errRateLimited,
			expExecuted: 2,
			expWarnings: 1,
			expErrLogs:  1,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert := assert.New(t)

			logs := newLevelCounter()
			test.cfg.Logger = slog.New(logs)

			cmd := retry.New(test.cfg)
			err := cmd.Run(context.TODO(), test.failer.Run)

			if test.expErr == nil {
				assert.NoError(err)
			} else {
				assert.Equal(test.expErr, err)
			}
			assert.Equal(test.expExecuted, test.failer.timesExecuted)
			assert.Equal(test.expWarnings, logs.count(slog.LevelWarn))
			assert.Equal(test.expErrLogs, logs.count(slog.LevelError))
		})
	}
}

func TestRetryFreesGateSlotDuringBackoff(t *testing.T) {
	assert := assert.New(t)

	// The retry wraps the gate, so a backoff wait must not hold the
	// only slot of a gate of one.
	runner := commentsweep.RunnerChain(
		retry.NewMiddleware(retry.Config{
			MaxRetries:   3,
			InitialDelay: 500 * time.Millisecond,
			Logger:       slog.New(newLevelCounter()),
		}),
		gate.NewMiddleware(gate.Config{MaxConcurrent: 1}),
	)

	// The first caller rate limits on its first attempt and spends the
	// backoff waiting outside the gate.
	first := &counterFailer{notFailOnAttempt: 2, failWith: errRateLimited}
	firstAttempted := make(chan struct{})
	firstDone := make(chan error, 1)
	go func() {
		firstDone <- runner.Run(context.TODO(), func(ctx context.Context) error {
			err := first.Run(ctx)
			if first.timesExecuted == 1 {
				close(firstAttempted)
			}
			return err
		})
	}()
	<-firstAttempted

	// A second caller must get the slot while the first one backs off.
	start := time.Now()
	err := runner.Run(context.TODO(), func(_ context.Context) error { return nil })
	elapsed := time.Since(start)

	assert.NoError(err)
	assert.Less(elapsed, 250*time.Millisecond)

	assert.NoError(<-firstDone)
}

func TestRetryCanceledDuringBackoff(t *testing.T) {
	assert := assert.New(t)

	ctx, cancel := context.WithCancel(context.Background())
	cmd := retry.New(retry.Config{
		MaxRetries:   3,
		InitialDelay: 5 * time.Second,
		Logger:       slog.New(newLevelCounter()),
	})

	failer := &counterFailer{notFailOnAttempt: -1, failWith: errRateLimited}
	done := make(chan error, 1)
	go func() {
		done <- cmd.Run(ctx, failer.Run)
	}()

	// Give the first attempt time to fail and enter the backoff wait.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.Error(err)
		assert.Equal(1, failer.timesExecuted)
	case <-time.After(2 * time.Second):
		assert.Fail("retry did not stop waiting when the context was canceled")
	}
}
