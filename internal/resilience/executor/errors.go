package executor

import "fmt"

// Error is returned when all retry attempts against a service have been
// exhausted. It carries the last underlying cause.
type Error struct {
	Service  string
	Attempts int
	Cause    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("call to service %q failed after %d attempts: %v", e.Service, e.Attempts, e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// HTTPError represents a downstream HTTP error response with status code.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}
