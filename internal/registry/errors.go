package registry

import (
	"errors"
	"fmt"
)

// ErrorKind partitions registry failures into the classes callers care about.
type ErrorKind string

// Constants for the registry error kinds.
const (
	// KindNotFound means the requested resource does not exist upstream.
	// It is an expected, user-correctable condition, not an outage.
	KindNotFound ErrorKind = "not_found"
	// KindHTTP means the upstream answered with a non-200, non-404 status.
	KindHTTP ErrorKind = "http"
	// KindTransport means the request never completed: DNS failure,
	// timeout, connection reset, and friends. Retryable by the caller.
	KindTransport ErrorKind = "transport"
)

// maxErrorBody caps how much of an upstream error body is retained for
// diagnostics. The full body may be large and may echo request data.
const maxErrorBody = 512

// Error is the uniform error shape for every registry failure. The API key is
// never part of the message.
type Error struct {
	Kind     ErrorKind
	Endpoint string
	Status   int    // HTTP status, when Kind is KindHTTP or KindNotFound.
	Body     string // Truncated upstream body, when Kind is KindHTTP.
	Err      error  // Underlying transport error, when Kind is KindTransport.
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch e.Kind {
	case KindNotFound:
		return fmt.Sprintf("registry: %s: not found", e.Endpoint)
	case KindHTTP:
		return fmt.Sprintf("registry: %s: HTTP %d: %s", e.Endpoint, e.Status, e.Body)
	default:
		return fmt.Sprintf("registry: %s: %v", e.Endpoint, e.Err)
	}
}

// Unwrap exposes the underlying transport error, if any.
func (e *Error) Unwrap() error { return e.Err }

// IsNotFound reports whether err is a registry not-found error.
func IsNotFound(err error) bool {
	var re *Error
	return errors.As(err, &re) && re.Kind == KindNotFound
}
