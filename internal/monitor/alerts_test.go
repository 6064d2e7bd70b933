package monitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"circuitguard/internal/notifier"
)

func TestAlertManagerTriggersAfterThreshold(t *testing.T) {
	m := NewAlertManager(2, time.Hour)

	assert.Empty(t, m.Observe("auth", "open"), "first open poll must not alert")

	events := m.Observe("auth", "open")
	require.Len(t, events, 1)
	assert.Equal(t, notifier.KindTriggered, events[0].Kind)
	assert.Equal(t, "auth", events[0].Service)
	assert.Equal(t, 2, events[0].OpenPolls)
}

func TestAlertManagerRepeatsAfterInterval(t *testing.T) {
	m := NewAlertManager(1, time.Hour)
	clock := time.Date(2026, 8, 26, 9, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return clock }

	events := m.Observe("auth", "open")
	require.Len(t, events, 1)
	require.Equal(t, notifier.KindTriggered, events[0].Kind)

	// Still within the repeat interval: stay quiet.
	clock = clock.Add(30 * time.Minute)
	assert.Empty(t, m.Observe("auth", "open"))

	clock = clock.Add(31 * time.Minute)
	events = m.Observe("auth", "open")
	require.Len(t, events, 1)
	assert.Equal(t, notifier.KindRepeated, events[0].Kind)
	assert.Equal(t, 3, events[0].OpenPolls)
}

func TestAlertManagerResolves(t *testing.T) {
	m := NewAlertManager(1, time.Hour)

	require.Len(t, m.Observe("auth", "open"), 1)

	events := m.Observe("auth", "closed")
	require.Len(t, events, 1)
	assert.Equal(t, notifier.KindResolved, events[0].Kind)

	// Resolved state is terminal; further closed polls are silent.
	assert.Empty(t, m.Observe("auth", "closed"))
}

func TestAlertManagerNoResolutionWithoutAlert(t *testing.T) {
	m := NewAlertManager(3, time.Hour)

	// Open twice, below threshold, then recover.
	m.Observe("auth", "open")
	m.Observe("auth", "open")
	assert.Empty(t, m.Observe("auth", "closed"), "never alerted, so no resolution event")
	assert.Zero(t, m.OpenPolls("auth"))
}

func TestAlertManagerHalfOpenCountsAsNotOpen(t *testing.T) {
	m := NewAlertManager(2, time.Hour)

	m.Observe("auth", "open")
	assert.Empty(t, m.Observe("auth", "half_open"))
	// Streak was broken; one more open poll is below threshold again.
	assert.Empty(t, m.Observe("auth", "open"))
	assert.Equal(t, 1, m.OpenPolls("auth"))
}

func TestAlertManagerTracksServicesIndependently(t *testing.T) {
	m := NewAlertManager(1, time.Hour)

	require.Len(t, m.Observe("auth", "open"), 1)
	require.Len(t, m.Observe("billing", "open"), 1)

	events := m.Observe("auth", "closed")
	require.Len(t, events, 1)
	assert.Equal(t, "auth", events[0].Service)
	assert.Equal(t, 1, m.OpenPolls("billing"))
}
