// Package metrics provides centralized Prometheus metrics for the application.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Circuit breaker metrics track per-service circuit state and call outcomes
var (
	// CircuitState exposes the current circuit state per service
	// (0=closed, 1=open, 2=half_open)
	CircuitState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_state",
			Help: "Current circuit state per service (0=closed, 1=open, 2=half_open)",
		},
		[]string{"service"},
	)

	// CircuitTransitionsTotal counts circuit state transitions by target state
	CircuitTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_transitions_total",
			Help: "Total number of circuit state transitions",
		},
		[]string{"service", "to"},
	)

	// CircuitRejectionsTotal counts calls rejected without network I/O
	CircuitRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_rejections_total",
			Help: "Total number of calls rejected because the circuit was open",
		},
		[]string{"service"},
	)
)

// Outbound call metrics track the resilient executor's attempts
var (
	// OutboundAttemptsTotal counts executor attempts by service and outcome
	// (success, failure, timeout)
	OutboundAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outbound_attempts_total",
			Help: "Total number of outbound call attempts",
		},
		[]string{"service", "outcome"},
	)

	// OutboundAttemptDuration measures outbound attempt duration in seconds
	OutboundAttemptDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "outbound_attempt_duration_seconds",
			Help:    "Outbound call attempt duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service"},
	)

	// OutboundRetriesTotal counts retry attempts (attempts after the first)
	OutboundRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outbound_retries_total",
			Help: "Total number of outbound retry attempts",
		},
		[]string{"service"},
	)

	// FallbacksTotal counts fallback invocations after exhausted retries
	FallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outbound_fallbacks_total",
			Help: "Total number of fallback invocations",
		},
		[]string{"service"},
	)
)

// Health probe metrics
var (
	// HealthProbesTotal counts external health probes by service and result
	HealthProbesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "health_probes_total",
			Help: "Total number of external health probes",
		},
		[]string{"service", "result"},
	)
)

// Monitor daemon metrics
var (
	// MonitorPollsTotal counts monitor poll cycles by result (ok, error)
	MonitorPollsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "monitor_polls_total",
			Help: "Total number of monitor poll cycles",
		},
		[]string{"result"},
	)

	// MonitorAlertsTotal counts alert notifications by kind
	// (triggered, repeated, resolved)
	MonitorAlertsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "monitor_alerts_total",
			Help: "Total number of alert notifications emitted",
		},
		[]string{"kind"},
	)

	// RecoveryAttemptsTotal counts automated recovery attempts by result
	RecoveryAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "monitor_recovery_attempts_total",
			Help: "Total number of automated circuit reset attempts",
		},
		[]string{"result"},
	)

	// HistorySnapshotsTotal counts history snapshot writes
	HistorySnapshotsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "monitor_history_snapshots_total",
			Help: "Total number of history snapshots written to disk",
		},
	)

	// NotificationFailuresTotal counts per-sink notification failures
	NotificationFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "monitor_notification_failures_total",
			Help: "Total number of failed notification deliveries",
		},
		[]string{"sink"},
	)
)
