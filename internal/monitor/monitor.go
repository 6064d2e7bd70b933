package monitor

import (
	"context"
	"log/slog"
	"sort"

	"circuitguard/internal/notifier"
	"circuitguard/internal/observability/metrics"
)

// Monitor runs one poll cycle at a time: fetch circuit status from the
// gateway, walk the alert lifecycle, attempt automated recovery, and archive
// the snapshot. Every step that can fail is logged and skipped; a cycle
// never brings the daemon down.
type Monitor struct {
	poller     *Poller
	alerts     *AlertManager
	recovery   *RecoveryManager
	history    *HistoryStore
	dispatcher *notifier.Dispatcher
	logger     *slog.Logger
}

func New(poller *Poller, alerts *AlertManager, recovery *RecoveryManager, history *HistoryStore, dispatcher *notifier.Dispatcher, logger *slog.Logger) *Monitor {
	return &Monitor{
		poller:     poller,
		alerts:     alerts,
		recovery:   recovery,
		history:    history,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// RunCycle executes one monitoring cycle.
func (m *Monitor) RunCycle(ctx context.Context) {
	report, err := m.poller.Poll(ctx)
	if err != nil {
		m.logger.Error("circuit status poll failed", slog.String("error", err.Error()))
		metrics.MonitorPollsTotal.WithLabelValues("error").Inc()
		return
	}
	metrics.MonitorPollsTotal.WithLabelValues("ok").Inc()
	m.logger.Info("circuit status polled",
		slog.Int("total", report.TotalCircuits),
		slog.Int("open", report.OpenCircuits))

	// Walk services in a stable order so alert and recovery behavior is
	// deterministic across cycles.
	names := make([]string, 0, len(report.Circuits))
	for name := range report.Circuits {
		names = append(names, name)
	}
	sort.Strings(names)

	var events []notifier.Event
	for _, name := range names {
		status := report.Circuits[name]
		events = append(events, m.alerts.Observe(name, status.State)...)
	}

	if len(events) > 0 {
		for _, ev := range events {
			metrics.MonitorAlertsTotal.WithLabelValues(string(ev.Kind)).Inc()
		}
		m.dispatcher.Dispatch(ctx, events)
	}

	for _, name := range names {
		m.recovery.Observe(ctx, name, m.alerts.OpenPolls(name))
	}

	if err := m.history.Append(report); err != nil {
		m.logger.Error("history snapshot failed", slog.String("error", err.Error()))
	}
	if err := m.history.Prune(); err != nil {
		m.logger.Error("history prune failed", slog.String("error", err.Error()))
	}
}
