package client

import (
	"time"

	"circuitguard/internal/resilience/breaker"
)

// CircuitStats is the windowed counter block of a circuit status payload.
type CircuitStats struct {
	Failures  uint64    `json:"failures"`
	Successes uint64    `json:"successes"`
	Rejects   uint64    `json:"rejects"`
	Timeouts  uint64    `json:"timeouts"`
	IsOpen    bool      `json:"isOpen"`
	LastCheck time.Time `json:"lastCheck"`
}

// CircuitStatus is the externally visible state of one service's circuit.
type CircuitStatus struct {
	State string       `json:"state"`
	Stats CircuitStats `json:"stats"`
}

// StatusReport aggregates every known circuit. This is the wire shape of
// GET /circuit-status, consumed by the monitor daemon.
type StatusReport struct {
	Circuits      map[string]CircuitStatus `json:"circuits"`
	TotalCircuits int                      `json:"totalCircuits"`
	OpenCircuits  int                      `json:"openCircuits"`
}

// ResetResult is the wire shape of the POST /circuit-reset response.
type ResetResult struct {
	Result struct {
		Success bool `json:"success"`
	} `json:"result"`
}

func statusFromSnapshot(snap breaker.Snapshot) CircuitStatus {
	return CircuitStatus{
		State: snap.State.String(),
		Stats: CircuitStats{
			Failures:  snap.Window.Failures,
			Successes: snap.Window.Successes,
			Rejects:   snap.Window.Rejects,
			Timeouts:  snap.Window.Timeouts,
			IsOpen:    snap.State == breaker.StateOpen,
			LastCheck: snap.LastHealthCheck,
		},
	}
}
