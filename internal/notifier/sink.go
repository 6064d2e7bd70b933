// Package notifier delivers monitor alert notifications to pluggable sinks
// (console, Slack, Discord). Sink failures are isolated: a failing webhook
// never blocks other sinks or the monitor's poll cycle.
package notifier

import (
	"context"
	"fmt"
	"time"
)

// EventKind classifies an alert notification.
type EventKind string

const (
	// KindTriggered is the first notification for a newly detected outage.
	KindTriggered EventKind = "triggered"
	// KindRepeated is a follow-up for an alert that stays active.
	KindRepeated EventKind = "repeated"
	// KindResolved signals that the circuit closed again.
	KindResolved EventKind = "resolved"
)

// Event is one alert notification to be delivered to every enabled sink.
type Event struct {
	Kind          EventKind
	Service       string
	OpenPolls     int
	FirstDetected time.Time
	Time          time.Time
}

// Message renders the human-readable notification text.
func (e Event) Message() string {
	switch e.Kind {
	case KindTriggered:
		return fmt.Sprintf("ALERT: circuit for service %q has been open for %d consecutive checks (since %s)",
			e.Service, e.OpenPolls, e.FirstDetected.Format(time.RFC3339))
	case KindRepeated:
		return fmt.Sprintf("STILL OPEN: circuit for service %q remains open (first detected %s)",
			e.Service, e.FirstDetected.Format(time.RFC3339))
	case KindResolved:
		return fmt.Sprintf("RESOLVED: circuit for service %q has closed", e.Service)
	default:
		return fmt.Sprintf("circuit event for service %q", e.Service)
	}
}

// Sink is a notification delivery channel. Implementations must be safe for
// concurrent use and respect context cancellation.
type Sink interface {
	// Name identifies the sink in logs and metrics.
	Name() string

	// Enabled reports whether the sink should receive notifications.
	Enabled() bool

	// Notify delivers one event. A non-nil error means delivery failed
	// after the sink's own protection (rate limit, circuit) was applied.
	Notify(ctx context.Context, event Event) error
}
