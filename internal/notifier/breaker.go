package notifier

import (
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
)

// sinkBreakerSettings are tuned for webhook endpoints: trip after a few
// consecutive failures and stay quiet for a while before retrying, so a
// dead webhook does not slow every poll cycle down.
func sinkBreakerSettings(name string) gobreaker.Settings {
	return gobreaker.Settings{
		Name:        "sink-" + name,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     5 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			slog.Warn("notification sink circuit state changed",
				slog.String("sink", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
		},
	}
}

// newSinkBreaker wraps webhook delivery in its own circuit breaker.
func newSinkBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(sinkBreakerSettings(name))
}
