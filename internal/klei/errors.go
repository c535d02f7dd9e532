package klei

import (
	"fmt"
	"net/http"
)

// StatusError is returned for a non-2xx response. It is retried.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// EnvelopeError is returned when a response body is not the expected JSON
// document. It is not retried.
type EnvelopeError struct {
	URL string
	Err error
}

func (e *EnvelopeError) Error() string { return fmt.Sprintf("%s: malformed response: %v", e.URL, e.Err) }
func (e *EnvelopeError) Unwrap() error { return e.Err }

// RequestError is returned when a request cannot be built. It is not retried.
type RequestError struct {
	Err error
}

func (e *RequestError) Error() string { return "could not build request: " + e.Err.Error() }
func (e *RequestError) Unwrap() error { return e.Err }

// BatchError aborts a strict stage. It wraps the failure of the first unit
// that exhausted its retries.
type BatchError struct {
	Stage Stage
	Err   error
}

func (e *BatchError) Error() string { return fmt.Sprintf("%s stage aborted: %v", e.Stage, e.Err) }
func (e *BatchError) Unwrap() error { return e.Err }
