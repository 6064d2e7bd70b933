// Package client exposes the resilient client facade: verb-level helpers
// over the retrying executor, circuit status introspection, and
// health-probe driven circuit resets, all keyed by logical service name.
package client

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"circuitguard/internal/config"
	"circuitguard/internal/observability/metrics"
	"circuitguard/internal/resilience/breaker"
	"circuitguard/internal/resilience/executor"
)

// UnknownServiceError is returned when a caller names a service that was
// never registered in the configuration.
type UnknownServiceError struct {
	Service string
}

func (e *UnknownServiceError) Error() string {
	return fmt.Sprintf("unknown service %q: not present in the service registry", e.Service)
}

// Registry maps logical service names to endpoints and routes every call
// through the circuit breaker and the retrying executor. It is safe for
// concurrent use without external locking.
type Registry struct {
	services    map[string]config.Service
	breaker     *breaker.Breaker
	exec        *executor.Executor
	prober      *Prober
	defaultOpts executor.Options
	logger      *slog.Logger
}

// NewRegistry builds the facade from the loaded registry configuration.
func NewRegistry(cfg *config.Registry, client *http.Client, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}

	br := breaker.New(breaker.Config{
		FailureThreshold:         cfg.Breaker.FailureThreshold,
		ErrorThresholdPercentage: cfg.Breaker.ErrorThresholdPercentage,
		MinWindowRequests:        cfg.Breaker.MinWindowRequests,
		ResetTimeout:             cfg.Breaker.ResetTimeout,
		WindowSize:               cfg.Breaker.WindowSize,
		WindowBuckets:            cfg.Breaker.WindowBuckets,
	}, logger)
	br.OnTransition(func(service string, from, to breaker.State) {
		metrics.CircuitState.WithLabelValues(service).Set(float64(to))
		metrics.CircuitTransitionsTotal.WithLabelValues(service, to.String()).Inc()
	})

	services := make(map[string]config.Service, len(cfg.Services))
	for _, svc := range cfg.Services {
		services[svc.Name] = svc
	}

	opts := executor.DefaultOptions()
	if cfg.Executor.MaxRetries > 0 {
		opts.MaxRetries = cfg.Executor.MaxRetries
	}
	if cfg.Executor.BaseRetryDelay > 0 {
		opts.BaseRetryDelay = cfg.Executor.BaseRetryDelay
	}
	if cfg.Executor.PerAttemptTimeout > 0 {
		opts.PerAttemptTimeout = cfg.Executor.PerAttemptTimeout
	}

	return &Registry{
		services:    services,
		breaker:     br,
		exec:        executor.New(br, client, logger),
		prober:      NewProber(br, client, logger),
		defaultOpts: opts,
		logger:      logger,
	}
}

// CallOption customizes a single call.
type CallOption func(*executor.Options)

// WithFallback supplies a fallback invoked after retries are exhausted.
func WithFallback(fb executor.Fallback) CallOption {
	return func(o *executor.Options) { o.Fallback = fb }
}

// WithMaxRetries overrides the configured attempt count for one call.
func WithMaxRetries(n int) CallOption {
	return func(o *executor.Options) { o.MaxRetries = n }
}

// Get issues a GET request against the named service.
func (r *Registry) Get(ctx context.Context, service, path string, opts ...CallOption) (*executor.Response, error) {
	return r.do(ctx, service, http.MethodGet, path, nil, opts)
}

// Post issues a POST request with a JSON body against the named service.
func (r *Registry) Post(ctx context.Context, service, path string, body []byte, opts ...CallOption) (*executor.Response, error) {
	return r.do(ctx, service, http.MethodPost, path, body, opts)
}

// Put issues a PUT request with a JSON body against the named service.
func (r *Registry) Put(ctx context.Context, service, path string, body []byte, opts ...CallOption) (*executor.Response, error) {
	return r.do(ctx, service, http.MethodPut, path, body, opts)
}

// Delete issues a DELETE request against the named service.
func (r *Registry) Delete(ctx context.Context, service, path string, opts ...CallOption) (*executor.Response, error) {
	return r.do(ctx, service, http.MethodDelete, path, nil, opts)
}

func (r *Registry) do(ctx context.Context, service, method, path string, body []byte, opts []CallOption) (*executor.Response, error) {
	svc, ok := r.services[service]
	if !ok {
		return nil, &UnknownServiceError{Service: service}
	}

	callOpts := r.defaultOpts
	for _, opt := range opts {
		opt(&callOpts)
	}

	req := executor.Request{
		Method: method,
		URL:    strings.TrimSuffix(svc.BaseURL, "/") + path,
		Body:   body,
	}
	if len(body) > 0 {
		req.Header = http.Header{"Content-Type": []string{"application/json"}}
	}
	return r.exec.Do(ctx, service, req, callOpts)
}

// CircuitStatus returns the status snapshot for one service. Services that
// have never been called report a closed circuit with empty counters.
func (r *Registry) CircuitStatus(service string) (CircuitStatus, error) {
	if _, ok := r.services[service]; !ok {
		return CircuitStatus{}, &UnknownServiceError{Service: service}
	}
	snap, ok := r.breaker.Snapshot(service)
	if !ok {
		return CircuitStatus{State: breaker.StateClosed.String()}, nil
	}
	return statusFromSnapshot(snap), nil
}

// AllCircuitStatus returns the status of every registered service plus
// aggregate counts. The open-circuit count always equals the number of
// entries whose state is open.
func (r *Registry) AllCircuitStatus() StatusReport {
	report := StatusReport{Circuits: make(map[string]CircuitStatus, len(r.services))}

	snaps := make(map[string]breaker.Snapshot)
	for _, snap := range r.breaker.SnapshotAll() {
		snaps[snap.Service] = snap
	}

	for name := range r.services {
		status := CircuitStatus{State: breaker.StateClosed.String()}
		if snap, ok := snaps[name]; ok {
			status = statusFromSnapshot(snap)
		}
		report.Circuits[name] = status
		report.TotalCircuits++
		if status.Stats.IsOpen {
			report.OpenCircuits++
		}
	}
	return report
}

// Reset performs an immediate health probe against the named service and,
// if it succeeds, forces the circuit closed. Used by the manual reset
// endpoint and by the monitor daemon's automated recovery.
func (r *Registry) Reset(ctx context.Context, service string) (bool, error) {
	svc, ok := r.services[service]
	if !ok {
		return false, &UnknownServiceError{Service: service}
	}

	if err := r.prober.Probe(ctx, service, svc.HealthURL()); err != nil {
		r.logger.Warn("circuit reset probe failed",
			slog.String("service", service),
			slog.Any("error", err))
		return false, err
	}
	return true, nil
}

// Breaker exposes the underlying breaker for wiring additional observers.
func (r *Registry) Breaker() *breaker.Breaker {
	return r.breaker
}
