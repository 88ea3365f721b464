package transport

import (
	"errors"
	"fmt"
)

// ErrNoEndpoint is returned when a form does not advertise an endpoint.
var ErrNoEndpoint = errors.New("transport: endpoint is required")

// ServerError reports a non-2xx answer from the endpoint. Detail holds the
// sanitised `detail` message from the body and is empty when the body could
// not be parsed.
type ServerError struct {
	Status    int
	Detail    string
	RequestID string
}

func (e *ServerError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("transport: server rejected answers (status %d)", e.Status)
	}
	return fmt.Sprintf("transport: server rejected answers (status %d): %s", e.Status, e.Detail)
}

// NetworkError wraps failures that prevented a response from arriving.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("transport: request failed: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// IsServerError reports whether err carries a ServerError.
func IsServerError(err error) (*ServerError, bool) {
	var target *ServerError
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}
