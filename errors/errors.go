package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrTimeout will be used when a execution timesout.
	ErrTimeout = errors.New("timeout while executing")
	// ErrContextCanceled will be used when the execution has not been executed due to the
	// context cancelation.
	ErrContextCanceled = errors.New("context canceled, logic not executed")
)

// APIError is a platform response that came back with a failure status
// code. It carries the status so the retry logic can tell a rate limit
// rejection apart from any other remote failure.
type APIError struct {
	StatusCode int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api responded with status %d", e.StatusCode)
}

// TransportError is a network level failure that never produced a
// response, so it carries no status code.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport failure: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsRateLimit returns true if err is a platform response rejected for
// exceeding the allowed request rate.
func IsRateLimit(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests
}

// IsTransport returns true if err is a network transport failure.
func IsTransport(err error) bool {
	var transportErr *TransportError
	return errors.As(err, &transportErr)
}

// IsRetryable returns true if waiting and reissuing the call can recover
// from err. Rate limited responses and transport failures qualify, a
// response with any other status code does not.
func IsRetryable(err error) bool {
	return IsRateLimit(err) || IsTransport(err)
}
