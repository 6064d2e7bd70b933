package monitor

import (
	"time"

	"circuitguard/internal/notifier"
)

// alertState tracks one service's alert lifecycle across poll cycles.
type alertState struct {
	openPolls     int
	firstDetected time.Time
	alerted       bool
	lastNotified  time.Time
}

// AlertManager turns per-cycle circuit states into alert events. A service
// alerts after being observed open for threshold consecutive polls, repeats
// no more often than repeatEvery while it stays open, and emits a resolution
// event the first cycle it is seen closed again.
type AlertManager struct {
	threshold   int
	repeatEvery time.Duration
	states      map[string]*alertState
	now         func() time.Time
}

func NewAlertManager(threshold int, repeatEvery time.Duration) *AlertManager {
	if threshold < 1 {
		threshold = 1
	}
	return &AlertManager{
		threshold:   threshold,
		repeatEvery: repeatEvery,
		states:      map[string]*alertState{},
		now:         time.Now,
	}
}

// Observe records one poll cycle's view of a service and returns the events
// to dispatch, if any.
func (m *AlertManager) Observe(service, state string) []notifier.Event {
	if state == "open" {
		return m.observeOpen(service)
	}
	return m.observeClosed(service)
}

func (m *AlertManager) observeOpen(service string) []notifier.Event {
	now := m.now()
	st, ok := m.states[service]
	if !ok {
		st = &alertState{firstDetected: now}
		m.states[service] = st
	}
	st.openPolls++

	if !st.alerted {
		if st.openPolls < m.threshold {
			return nil
		}
		st.alerted = true
		st.lastNotified = now
		return []notifier.Event{{
			Kind:          notifier.KindTriggered,
			Service:       service,
			OpenPolls:     st.openPolls,
			FirstDetected: st.firstDetected,
			Time:          now,
		}}
	}

	if now.Sub(st.lastNotified) < m.repeatEvery {
		return nil
	}
	st.lastNotified = now
	return []notifier.Event{{
		Kind:          notifier.KindRepeated,
		Service:       service,
		OpenPolls:     st.openPolls,
		FirstDetected: st.firstDetected,
		Time:          now,
	}}
}

func (m *AlertManager) observeClosed(service string) []notifier.Event {
	st, ok := m.states[service]
	if !ok {
		return nil
	}
	delete(m.states, service)
	if !st.alerted {
		return nil
	}
	now := m.now()
	return []notifier.Event{{
		Kind:          notifier.KindResolved,
		Service:       service,
		OpenPolls:     st.openPolls,
		FirstDetected: st.firstDetected,
		Time:          now,
	}}
}

// OpenPolls reports how many consecutive polls the service has been open.
func (m *AlertManager) OpenPolls(service string) int {
	if st, ok := m.states[service]; ok {
		return st.openPolls
	}
	return 0
}
