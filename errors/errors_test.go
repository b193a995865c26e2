package errors_test

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/osmank/commentsweep/errors"
)

func TestClassification(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		expRateLimit bool
		expTransport bool
		expRetryable bool
	}{
		{
			name:         "A 429 response should be a retryable rate limit.",
			err:          &errors.APIError{StatusCode: http.StatusTooManyRequests},
			expRateLimit: true,
			expRetryable: true,
		},
		{
			name:         "A wrapped 429 response should still be a rate limit.",
			err:          fmt.Errorf("fetching submission: %w", &errors.APIError{StatusCode: http.StatusTooManyRequests}),
			expRateLimit: true,
			expRetryable: true,
		},
		{
			name:         "A response with any other status should not be retryable.",
			err:          &errors.APIError{StatusCode: http.StatusInternalServerError},
			expRateLimit: false,
			expRetryable: false,
		},
		{
			name:         "A transport failure should be retryable without being a rate limit.",
			err:          &errors.TransportError{Err: stderrors.New("connection refused")},
			expTransport: true,
			expRetryable: true,
		},
		{
			name:         "An unclassified error should not be retryable.",
			err:          stderrors.New("wanted error"),
			expRetryable: false,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert := assert.New(t)

			assert.Equal(test.expRateLimit, errors.IsRateLimit(test.err))
			assert.Equal(test.expTransport, errors.IsTransport(test.err))
			assert.Equal(test.expRetryable, errors.IsRetryable(test.err))
		})
	}
}

func TestTransportErrorUnwrap(t *testing.T) {
	assert := assert.New(t)

	cause := stderrors.New("connection reset")
	err := &errors.TransportError{Err: cause}

	assert.True(stderrors.Is(err, cause))
	assert.Contains(err.Error(), "connection reset")
}
