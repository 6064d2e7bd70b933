package notifier

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"circuitguard/internal/observability/metrics"
)

// perSinkTimeout bounds a single delivery so one stuck webhook cannot
// stall the dispatch of a poll cycle's notifications.
const perSinkTimeout = 30 * time.Second

// Dispatcher fans events out to every enabled sink. Failures are logged
// and counted but never propagated: a broken sink must not stop monitoring.
type Dispatcher struct {
	sinks  []Sink
	logger *slog.Logger
}

// NewDispatcher creates a Dispatcher over the given sinks.
func NewDispatcher(sinks []Sink, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{sinks: sinks, logger: logger}
}

// Dispatch delivers every event to every enabled sink concurrently and
// waits for all deliveries to finish.
func (d *Dispatcher) Dispatch(ctx context.Context, events []Event) {
	if len(events) == 0 {
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, sink := range d.sinks {
		if !sink.Enabled() {
			continue
		}
		sink := sink
		for _, event := range events {
			event := event
			g.Go(func() error {
				sinkCtx, cancel := context.WithTimeout(gctx, perSinkTimeout)
				defer cancel()

				if err := sink.Notify(sinkCtx, event); err != nil {
					metrics.NotificationFailuresTotal.WithLabelValues(sink.Name()).Inc()
					d.logger.Error("notification delivery failed",
						slog.String("sink", sink.Name()),
						slog.String("service", event.Service),
						slog.String("kind", string(event.Kind)),
						slog.Any("error", err))
				}
				// Errors are isolated per sink; never cancel the group.
				return nil
			})
		}
	}
	_ = g.Wait()
}
