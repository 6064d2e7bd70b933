package monitor

import (
	"context"
	"log/slog"
	"time"

	"circuitguard/internal/observability/metrics"
)

// ResetFunc requests a circuit reset for service and reports whether the
// gateway's health probe succeeded.
type ResetFunc func(ctx context.Context, service string) (bool, error)

// recoveryState tracks automated reset attempts for one continuously open
// circuit. The counter resets when the circuit closes.
type recoveryState struct {
	attempts    int
	lastAttempt time.Time
}

// RecoveryManager drives automated circuit recovery. Once a circuit has been
// open for attemptAfter consecutive polls it issues a reset via resetFn,
// retrying at most maxAttempts times with at least cooldown between attempts
// while the circuit stays open.
type RecoveryManager struct {
	enabled      bool
	attemptAfter int
	maxAttempts  int
	cooldown     time.Duration
	resetFn      ResetFunc
	logger       *slog.Logger
	states       map[string]*recoveryState
	now          func() time.Time
}

func NewRecoveryManager(enabled bool, attemptAfter, maxAttempts int, cooldown time.Duration, resetFn ResetFunc, logger *slog.Logger) *RecoveryManager {
	return &RecoveryManager{
		enabled:      enabled,
		attemptAfter: attemptAfter,
		maxAttempts:  maxAttempts,
		cooldown:     cooldown,
		resetFn:      resetFn,
		logger:       logger,
		states:       map[string]*recoveryState{},
		now:          time.Now,
	}
}

// Observe considers one poll cycle's view of a service. openPolls is the
// number of consecutive polls the circuit has been open; zero means closed.
func (m *RecoveryManager) Observe(ctx context.Context, service string, openPolls int) {
	if openPolls == 0 {
		delete(m.states, service)
		return
	}
	if !m.enabled || openPolls < m.attemptAfter {
		return
	}

	now := m.now()
	st, ok := m.states[service]
	if !ok {
		st = &recoveryState{}
		m.states[service] = st
	}
	if st.attempts >= m.maxAttempts {
		return
	}
	if st.attempts > 0 && now.Sub(st.lastAttempt) < m.cooldown {
		return
	}

	st.attempts++
	st.lastAttempt = now

	healthy, err := m.resetFn(ctx, service)
	outcome := "success"
	switch {
	case err != nil:
		outcome = "error"
		m.logger.Error("auto recovery attempt failed",
			slog.String("service", service),
			slog.Int("attempt", st.attempts),
			slog.String("error", err.Error()))
	case !healthy:
		outcome = "unhealthy"
		m.logger.Warn("auto recovery probe rejected",
			slog.String("service", service),
			slog.Int("attempt", st.attempts))
	default:
		m.logger.Info("auto recovery reset succeeded",
			slog.String("service", service),
			slog.Int("attempt", st.attempts))
	}
	metrics.RecoveryAttemptsTotal.WithLabelValues(outcome).Inc()
}

// Attempts reports how many recovery attempts have been made since the
// service's circuit last opened.
func (m *RecoveryManager) Attempts(service string) int {
	if st, ok := m.states[service]; ok {
		return st.attempts
	}
	return 0
}
