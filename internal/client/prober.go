package client

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"circuitguard/internal/observability/metrics"
	"circuitguard/internal/resilience/breaker"
)

// probeTimeout bounds a single health probe; probes must be cheap.
const probeTimeout = 2 * time.Second

// ProbeError means the health check itself failed. It is distinct from the
// service call failing: the probe never carries business traffic.
type ProbeError struct {
	Service    string
	StatusCode int
	Cause      error
}

func (e *ProbeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("health probe for service %q failed: %v", e.Service, e.Cause)
	}
	return fmt.Sprintf("health probe for service %q returned status %d", e.Service, e.StatusCode)
}

func (e *ProbeError) Unwrap() error {
	return e.Cause
}

// Prober issues short-timeout health checks and reports the result into the
// circuit breaker: a 2xx response forces the circuit closed, anything else
// leaves an open circuit open and reverts a half-open one.
type Prober struct {
	breaker *breaker.Breaker
	client  *http.Client
	logger  *slog.Logger
}

// NewProber creates a Prober sharing the registry's breaker and HTTP client.
func NewProber(br *breaker.Breaker, client *http.Client, logger *slog.Logger) *Prober {
	if client == nil {
		client = &http.Client{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Prober{breaker: br, client: client, logger: logger}
}

// Probe GETs the service's health URL. On a 2xx response the circuit is
// forced closed and counters reset; otherwise a *ProbeError is returned and
// the circuit state is left as the breaker dictates.
func (p *Prober) Probe(ctx context.Context, service, healthURL string) error {
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, healthURL, nil)
	if err != nil {
		return &ProbeError{Service: service, Cause: err}
	}

	resp, err := p.client.Do(req)
	if err != nil {
		p.breaker.ProbeFailed(service)
		metrics.HealthProbesTotal.WithLabelValues(service, "failure").Inc()
		return &ProbeError{Service: service, Cause: err}
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			p.logger.Warn("failed to close probe response body",
				slog.String("service", service),
				slog.Any("error", cerr))
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		p.breaker.ProbeFailed(service)
		metrics.HealthProbesTotal.WithLabelValues(service, "failure").Inc()
		return &ProbeError{Service: service, StatusCode: resp.StatusCode}
	}

	p.breaker.ForceClose(service)
	metrics.HealthProbesTotal.WithLabelValues(service, "success").Inc()
	p.logger.Info("health probe succeeded, circuit closed",
		slog.String("service", service))
	return nil
}
