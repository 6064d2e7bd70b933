package breaker

import "fmt"

// OpenError is returned when a call is rejected because the circuit is open
// (or a half-open trial is already in flight). No network call was made.
// It is distinct from any error the downstream service itself produces.
type OpenError struct {
	// Service is the logical service name whose circuit rejected the call.
	Service string

	// Failures is the last-known consecutive failure count.
	Failures uint32
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("circuit open for service %q (%d consecutive failures): call rejected", e.Service, e.Failures)
}
