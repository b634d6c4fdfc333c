// ABOUTME: Error taxonomy for a single completion call
// ABOUTME: HTTP status, malformed reply, and transport failures are all recoverable per turn
package llm

import (
	"errors"
	"fmt"
)

// ErrMalformedResponse is returned when a 2xx body cannot be used:
// invalid JSON, wrong shape, or a missing or empty choices array.
var ErrMalformedResponse = errors.New("malformed completion response")

// HTTPStatusError is returned for any non-2xx status.
// Body holds a short prefix of the response for diagnostics and is never parsed.
type HTTPStatusError struct {
	StatusCode int
	Body       string
}

func (e *HTTPStatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("completion service returned HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("completion service returned HTTP %d: %s", e.StatusCode, e.Body)
}

// TransportError wraps failures that prevented a response from arriving:
// request construction, connection errors, timeouts, and cancellation.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("completion transport: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// StatusCode returns the HTTP status carried by err, or 0 when err is not an HTTP status failure
func StatusCode(err error) int {
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode
	}
	return 0
}
