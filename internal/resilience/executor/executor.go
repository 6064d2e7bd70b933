// Package executor performs outbound HTTP calls with per-attempt timeouts,
// retry with exponential backoff and jitter, and circuit breaker routing.
// Every attempt's outcome is reported back into the breaker so the rolling
// window stays accurate even when the circuit eventually opens.
package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"circuitguard/internal/observability/metrics"
	"circuitguard/internal/observability/tracing"
	"circuitguard/internal/resilience/breaker"
)

// Request describes one outbound HTTP call.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// Response is the captured downstream response. The body is fully read and
// the connection released before the executor returns.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Fallback produces a substitute response after all retries are exhausted.
// Its return values fully replace the executor's error.
type Fallback func(ctx context.Context, cause error) (*Response, error)

// Options control retry and timeout behavior for a single execution.
type Options struct {
	// MaxRetries is the total number of attempts, including the first.
	MaxRetries int

	// BaseRetryDelay is the backoff delay before the first retry; each
	// subsequent retry doubles it.
	BaseRetryDelay time.Duration

	// PerAttemptTimeout is the deadline applied to each individual attempt.
	PerAttemptTimeout time.Duration

	// JitterFraction is the fraction of delay added as random jitter.
	JitterFraction float64

	// Fallback, if non-nil, replaces the final error with its own result.
	Fallback Fallback
}

// DefaultOptions returns the standard execution parameters.
func DefaultOptions() Options {
	return Options{
		MaxRetries:        3,
		BaseRetryDelay:    1 * time.Second,
		PerAttemptTimeout: 5 * time.Second,
		JitterFraction:    0.1,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.MaxRetries <= 0 {
		o.MaxRetries = def.MaxRetries
	}
	if o.BaseRetryDelay <= 0 {
		o.BaseRetryDelay = def.BaseRetryDelay
	}
	if o.PerAttemptTimeout <= 0 {
		o.PerAttemptTimeout = def.PerAttemptTimeout
	}
	return o
}

// Executor routes outbound calls through a circuit breaker.
type Executor struct {
	breaker *breaker.Breaker
	client  *http.Client
	logger  *slog.Logger
}

// New creates an Executor. A nil client falls back to a plain http.Client;
// per-attempt deadlines come from Options, not the client timeout.
func New(br *breaker.Breaker, client *http.Client, logger *slog.Logger) *Executor {
	if client == nil {
		client = &http.Client{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{breaker: br, client: client, logger: logger}
}

// Do performs the request against the named service.
//
// The breaker is consulted before every attempt; a rejection on the first
// attempt fails fast with *breaker.OpenError and makes no network call, and
// a circuit opening mid-retry aborts the remaining attempts. Failures
// (timeouts, connection errors, 5xx responses) are retried with exponential
// backoff until MaxRetries attempts have been made. If a fallback is
// configured it replaces the final error entirely.
func (e *Executor) Do(ctx context.Context, service string, req Request, opts Options) (*Response, error) {
	opts = opts.withDefaults()

	ctx, span := tracing.GetTracer().Start(ctx, "outbound "+service)
	defer span.End()
	span.SetAttributes(
		attribute.String("peer.service", service),
		attribute.String("http.method", req.Method),
	)

	var lastErr error
	attempts := 0

	for attempt := 0; attempt < opts.MaxRetries; attempt++ {
		if err := e.breaker.Allow(service); err != nil {
			metrics.CircuitRejectionsTotal.WithLabelValues(service).Inc()
			if attempt == 0 {
				// Fail fast: the circuit was already open, no call was made.
				span.SetAttributes(attribute.Bool("circuit.rejected", true))
				return e.finish(ctx, service, opts, err)
			}
			// The circuit opened mid-retry; abandon the remaining attempts.
			e.logger.Warn("circuit opened during retries, aborting",
				slog.String("service", service),
				slog.Int("attempts", attempts))
			lastErr = err
			break
		}

		if attempt > 0 {
			metrics.OutboundRetriesTotal.WithLabelValues(service).Inc()
		}
		attempts++

		resp, err := e.attempt(ctx, service, req, opts.PerAttemptTimeout)
		if err == nil {
			e.breaker.RecordSuccess(service)
			metrics.OutboundAttemptsTotal.WithLabelValues(service, "success").Inc()
			if attempt > 0 {
				e.logger.Info("call succeeded after retry",
					slog.String("service", service),
					slog.Int("attempt", attempt+1))
			}
			span.SetAttributes(attribute.Int("attempts", attempts))
			return resp, nil
		}

		timedOut := isTimeout(err)
		e.breaker.RecordFailure(service, timedOut)
		if timedOut {
			metrics.OutboundAttemptsTotal.WithLabelValues(service, "timeout").Inc()
		} else {
			metrics.OutboundAttemptsTotal.WithLabelValues(service, "failure").Inc()
		}
		lastErr = err

		// Upstream cancellation aborts everything; the attempt was already
		// charged to the breaker above since the downstream cost was paid.
		if ctx.Err() != nil {
			return e.finish(ctx, service, opts, fmt.Errorf("call to %s aborted: %w", service, ctx.Err()))
		}

		if attempt == opts.MaxRetries-1 {
			break
		}

		delay := backoffDelay(opts.BaseRetryDelay, attempt, opts.JitterFraction)
		e.logger.Warn("call failed, retrying",
			slog.String("service", service),
			slog.Int("attempt", attempt+1),
			slog.Int("max_attempts", opts.MaxRetries),
			slog.Duration("delay", delay),
			slog.Any("error", err))

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return e.finish(ctx, service, opts, fmt.Errorf("retry aborted: %w", ctx.Err()))
		}
	}

	span.SetAttributes(attribute.Int("attempts", attempts), attribute.Bool("error", true))
	return e.finish(ctx, service, opts, &Error{Service: service, Attempts: attempts, Cause: lastErr})
}

// finish applies the fallback, if any, otherwise returns err.
func (e *Executor) finish(ctx context.Context, service string, opts Options, err error) (*Response, error) {
	if opts.Fallback == nil {
		return nil, err
	}
	metrics.FallbacksTotal.WithLabelValues(service).Inc()
	e.logger.Info("invoking fallback",
		slog.String("service", service),
		slog.Any("error", err))
	return opts.Fallback(ctx, err)
}

// attempt performs a single HTTP call under its own deadline. A 5xx status
// is a failure; everything else (including 4xx) is a downstream answer and
// counts as success for breaker purposes.
func (e *Executor) attempt(ctx context.Context, service string, req Request, timeout time.Duration) (*Response, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(attemptCtx, req.Method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("building request for %s: %w", service, err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}

	start := time.Now()
	httpResp, err := e.client.Do(httpReq)
	metrics.OutboundAttemptDuration.WithLabelValues(service).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("calling %s: %w", service, err)
	}
	defer func() {
		if cerr := httpResp.Body.Close(); cerr != nil {
			e.logger.Warn("failed to close response body",
				slog.String("service", service),
				slog.Any("error", cerr))
		}
	}()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response from %s: %w", service, err)
	}

	if httpResp.StatusCode >= 500 {
		return nil, &HTTPError{StatusCode: httpResp.StatusCode, Message: http.StatusText(httpResp.StatusCode)}
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       respBody,
	}, nil
}

// backoffDelay computes base * 2^attempt plus random jitter.
func backoffDelay(base time.Duration, attempt int, jitterFraction float64) time.Duration {
	delay := base << uint(attempt)
	if jitterFraction <= 0 {
		return delay
	}
	if jitterFraction > 1.0 {
		jitterFraction = 1.0
	}
	// #nosec G404 -- math/rand is fine for backoff jitter; cryptographic
	// randomness is not required here.
	jitter := time.Duration(rand.Float64() * float64(delay) * jitterFraction)
	return delay + jitter
}

// isTimeout reports whether err represents a per-attempt or upstream deadline.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	type timeouter interface{ Timeout() bool }
	var te timeouter
	return errors.As(err, &te) && te.Timeout()
}
