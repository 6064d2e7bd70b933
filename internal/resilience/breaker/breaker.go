// Package breaker implements a per-service circuit breaker keyed by logical
// service name. Each service gets its own record with a closed/open/half-open
// state machine, a consecutive-failure counter, and a rolling window of call
// outcomes for error-rate based tripping.
package breaker

import (
	"log/slog"
	"sync"
	"time"
)

// State is the circuit state of a single service.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

// String returns the wire representation used in status payloads.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// Config holds the tripping and recovery parameters shared by all records.
type Config struct {
	// FailureThreshold is the number of consecutive failures that trips the circuit.
	FailureThreshold uint32

	// ErrorThresholdPercentage trips the circuit when the windowed error rate
	// reaches this percentage, provided MinWindowRequests outcomes were seen.
	ErrorThresholdPercentage float64

	// MinWindowRequests is the minimum number of windowed outcomes before the
	// error-rate check applies. Prevents tripping on a tiny sample.
	MinWindowRequests uint64

	// ResetTimeout is how long an open circuit waits before allowing a
	// half-open trial call.
	ResetTimeout time.Duration

	// WindowSize and WindowBuckets control the rolling outcome window.
	WindowSize    time.Duration
	WindowBuckets int
}

// DefaultConfig returns the standard breaker parameters.
func DefaultConfig() Config {
	return Config{
		FailureThreshold:         3,
		ErrorThresholdPercentage: 50,
		MinWindowRequests:        5,
		ResetTimeout:             30 * time.Second,
		WindowSize:               60 * time.Second,
		WindowBuckets:            10,
	}
}

// TransitionFunc observes state transitions. Observers are invoked
// synchronously while the record lock is NOT held, in registration order.
type TransitionFunc func(service string, from, to State)

// Snapshot is a point-in-time copy of one service's circuit record.
type Snapshot struct {
	Service             string
	State               State
	ConsecutiveFailures uint32
	LastStateChange     time.Time
	LastHealthCheck     time.Time
	Window              WindowStats
}

// record is the per-service circuit state. All fields are guarded by mu.
type record struct {
	mu                  sync.Mutex
	state               State
	consecutiveFailures uint32
	lastStateChange     time.Time
	lastHealthCheck     time.Time
	probeInFlight       bool
	window              *window
}

// Breaker owns the map of per-service records. The map itself is guarded by
// a read-write mutex; mutations of a single record take only that record's
// lock, so unrelated services never serialize against each other.
type Breaker struct {
	cfg    Config
	logger *slog.Logger
	now    func() time.Time

	mu        sync.RWMutex
	records   map[string]*record
	observers []TransitionFunc
}

// New creates a Breaker with the given configuration. Zero-valued fields in
// cfg fall back to the defaults.
func New(cfg Config, logger *slog.Logger) *Breaker {
	def := DefaultConfig()
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.ErrorThresholdPercentage == 0 {
		cfg.ErrorThresholdPercentage = def.ErrorThresholdPercentage
	}
	if cfg.MinWindowRequests == 0 {
		cfg.MinWindowRequests = def.MinWindowRequests
	}
	if cfg.ResetTimeout == 0 {
		cfg.ResetTimeout = def.ResetTimeout
	}
	if cfg.WindowSize == 0 {
		cfg.WindowSize = def.WindowSize
	}
	if cfg.WindowBuckets == 0 {
		cfg.WindowBuckets = def.WindowBuckets
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Breaker{
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
		records: make(map[string]*record),
	}
}

// OnTransition registers an observer for state transitions.
func (b *Breaker) OnTransition(fn TransitionFunc) {
	if fn == nil {
		return
	}
	b.mu.Lock()
	b.observers = append(b.observers, fn)
	b.mu.Unlock()
}

// get returns the record for service, creating it lazily on first use.
func (b *Breaker) get(service string) *record {
	b.mu.RLock()
	rec, ok := b.records[service]
	b.mu.RUnlock()
	if ok {
		return rec
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	// Double-check after acquiring the write lock.
	if rec, ok = b.records[service]; ok {
		return rec
	}
	now := b.now()
	rec = &record{
		state:           StateClosed,
		lastStateChange: now,
		window:          newWindow(b.cfg.WindowSize, b.cfg.WindowBuckets, now),
	}
	b.records[service] = rec
	return rec
}

// Allow reports whether a call to service may proceed right now.
//
// Closed circuits always allow. An open circuit allows exactly one caller
// after ResetTimeout has elapsed, transitioning to half-open as a side
// effect; that caller becomes the probe. While a half-open probe is in
// flight every other caller is rejected. Rejections return *OpenError and
// are counted in the rolling window.
func (b *Breaker) Allow(service string) error {
	rec := b.get(service)
	now := b.now()

	rec.mu.Lock()
	switch rec.state {
	case StateClosed:
		rec.mu.Unlock()
		return nil
	case StateOpen:
		if now.Sub(rec.lastStateChange) > b.cfg.ResetTimeout {
			rec.state = StateHalfOpen
			rec.probeInFlight = true
			rec.lastStateChange = now
			failures := rec.consecutiveFailures
			rec.mu.Unlock()
			b.notify(service, StateOpen, StateHalfOpen)
			b.logger.Info("circuit half-open, admitting trial call",
				slog.String("service", service),
				slog.Uint64("consecutive_failures", uint64(failures)))
			return nil
		}
		rec.window.addReject(now)
		err := &OpenError{Service: service, Failures: rec.consecutiveFailures}
		rec.mu.Unlock()
		return err
	case StateHalfOpen:
		if !rec.probeInFlight {
			// The previous probe resolved without closing the circuit; admit
			// the next single trial call.
			rec.probeInFlight = true
			rec.mu.Unlock()
			return nil
		}
		rec.window.addReject(now)
		err := &OpenError{Service: service, Failures: rec.consecutiveFailures}
		rec.mu.Unlock()
		return err
	}
	rec.mu.Unlock()
	return nil
}

// RecordSuccess records a successful call outcome. It zeroes the
// consecutive-failure counter and closes a half-open circuit.
func (b *Breaker) RecordSuccess(service string) {
	rec := b.get(service)
	now := b.now()

	rec.mu.Lock()
	rec.window.addSuccess(now)
	rec.consecutiveFailures = 0
	from := rec.state
	if rec.state == StateHalfOpen {
		rec.state = StateClosed
		rec.probeInFlight = false
		rec.lastStateChange = now
	}
	to := rec.state
	rec.mu.Unlock()

	if from != to {
		b.notify(service, from, to)
		b.logger.Info("circuit closed after successful trial call",
			slog.String("service", service))
	}
}

// RecordFailure records a failed call outcome. timeout distinguishes
// deadline expiry from other failures in the window counters; both count
// toward tripping. A half-open circuit re-opens immediately; a closed
// circuit opens when the consecutive-failure threshold or the windowed
// error rate is breached.
func (b *Breaker) RecordFailure(service string, timeout bool) {
	rec := b.get(service)
	now := b.now()

	rec.mu.Lock()
	if timeout {
		rec.window.addTimeout(now)
	} else {
		rec.window.addFailure(now)
	}
	rec.consecutiveFailures++
	from := rec.state

	switch rec.state {
	case StateHalfOpen:
		rec.state = StateOpen
		rec.probeInFlight = false
		rec.lastStateChange = now
	case StateClosed:
		if rec.consecutiveFailures >= b.cfg.FailureThreshold || b.rateTripped(rec, now) {
			rec.state = StateOpen
			rec.lastStateChange = now
		}
	}
	to := rec.state
	failures := rec.consecutiveFailures
	rec.mu.Unlock()

	if from != to {
		b.notify(service, from, to)
		b.logger.Warn("circuit opened",
			slog.String("service", service),
			slog.String("from", from.String()),
			slog.Uint64("consecutive_failures", uint64(failures)))
	}
}

// rateTripped reports whether the windowed error rate breaches the
// configured percentage. Caller holds rec.mu.
func (b *Breaker) rateTripped(rec *record, now time.Time) bool {
	stats := rec.window.stats(now)
	if stats.Total() < b.cfg.MinWindowRequests {
		return false
	}
	return stats.ErrorRate()*100 >= b.cfg.ErrorThresholdPercentage
}

// ForceClose forces the circuit closed and resets its counters. Used when an
// external health probe confirms the service is reachable, and for
// operator-triggered manual resets.
func (b *Breaker) ForceClose(service string) {
	rec := b.get(service)
	now := b.now()

	rec.mu.Lock()
	from := rec.state
	rec.state = StateClosed
	rec.consecutiveFailures = 0
	rec.probeInFlight = false
	rec.lastHealthCheck = now
	if from != StateClosed {
		rec.lastStateChange = now
	}
	rec.mu.Unlock()

	if from != StateClosed {
		b.notify(service, from, StateClosed)
		b.logger.Info("circuit force-closed after health check",
			slog.String("service", service))
	}
}

// ProbeFailed records a failed external health probe. A half-open circuit
// reverts to open; any other state is left unchanged.
func (b *Breaker) ProbeFailed(service string) {
	rec := b.get(service)
	now := b.now()

	rec.mu.Lock()
	rec.lastHealthCheck = now
	from := rec.state
	if rec.state == StateHalfOpen {
		rec.state = StateOpen
		rec.probeInFlight = false
		rec.lastStateChange = now
	}
	to := rec.state
	rec.mu.Unlock()

	if from != to {
		b.notify(service, from, to)
	}
}

// State returns the current circuit state for service, creating the record
// if it does not exist yet.
func (b *Breaker) State(service string) State {
	rec := b.get(service)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.state
}

// Snapshot returns a copy of the circuit record for service, or false if no
// call has been made to that service yet.
func (b *Breaker) Snapshot(service string) (Snapshot, bool) {
	b.mu.RLock()
	rec, ok := b.records[service]
	b.mu.RUnlock()
	if !ok {
		return Snapshot{}, false
	}
	return b.snapshot(service, rec), true
}

// SnapshotAll returns a snapshot of every known circuit record.
func (b *Breaker) SnapshotAll() []Snapshot {
	b.mu.RLock()
	names := make([]string, 0, len(b.records))
	recs := make([]*record, 0, len(b.records))
	for name, rec := range b.records {
		names = append(names, name)
		recs = append(recs, rec)
	}
	b.mu.RUnlock()

	out := make([]Snapshot, 0, len(recs))
	for i, rec := range recs {
		out = append(out, b.snapshot(names[i], rec))
	}
	return out
}

func (b *Breaker) snapshot(service string, rec *record) Snapshot {
	now := b.now()
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return Snapshot{
		Service:             service,
		State:               rec.state,
		ConsecutiveFailures: rec.consecutiveFailures,
		LastStateChange:     rec.lastStateChange,
		LastHealthCheck:     rec.lastHealthCheck,
		Window:              rec.window.stats(now),
	}
}

func (b *Breaker) notify(service string, from, to State) {
	b.mu.RLock()
	observers := make([]TransitionFunc, len(b.observers))
	copy(observers, b.observers)
	b.mu.RUnlock()
	for _, fn := range observers {
		fn(service, from, to)
	}
}
