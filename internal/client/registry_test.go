package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"circuitguard/internal/config"
	"circuitguard/internal/resilience/breaker"
	"circuitguard/internal/resilience/executor"
)

func testRegistry(t *testing.T, handler http.Handler, breakerCfg config.BreakerSettings) (*Registry, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := &config.Registry{
		Services: []config.Service{
			{Name: "auth-service", BaseURL: srv.URL, HealthPath: "/health"},
			{Name: "billing-service", BaseURL: srv.URL, HealthPath: "/health"},
		},
		Breaker: breakerCfg,
		Executor: config.ExecutorSettings{
			MaxRetries:        2,
			BaseRetryDelay:    5 * time.Millisecond,
			PerAttemptTimeout: 200 * time.Millisecond,
		},
	}
	return NewRegistry(cfg, &http.Client{}, nil), srv
}

func TestRegistry_GetSuccess(t *testing.T) {
	reg, _ := testRegistry(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/users/42", r.URL.Path)
		_, _ = w.Write([]byte(`{"id":42}`))
	}), config.BreakerSettings{})

	resp, err := reg.Get(context.Background(), "auth-service", "/users/42")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"id":42}`, string(resp.Body))
}

func TestRegistry_PostSetsJSONContentType(t *testing.T) {
	reg, _ := testRegistry(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusCreated)
	}), config.BreakerSettings{})

	resp, err := reg.Post(context.Background(), "billing-service", "/invoices", []byte(`{"amount":100}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestRegistry_UnknownService(t *testing.T) {
	reg, _ := testRegistry(t, http.NotFoundHandler(), config.BreakerSettings{})

	_, err := reg.Get(context.Background(), "no-such-service", "/")
	var unknownErr *UnknownServiceError
	require.ErrorAs(t, err, &unknownErr)
	assert.Equal(t, "no-such-service", unknownErr.Service)

	_, err = reg.CircuitStatus("no-such-service")
	assert.ErrorAs(t, err, &unknownErr)

	_, err = reg.Reset(context.Background(), "no-such-service")
	assert.ErrorAs(t, err, &unknownErr)
}

func TestRegistry_CircuitOpensAndRejects(t *testing.T) {
	var calls atomic.Int32
	reg, _ := testRegistry(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}), config.BreakerSettings{FailureThreshold: 2, ResetTimeout: time.Hour})

	_, err := reg.Get(context.Background(), "auth-service", "/users")
	var execErr *executor.Error
	require.ErrorAs(t, err, &execErr)

	networkCalls := calls.Load()
	_, err = reg.Get(context.Background(), "auth-service", "/users")
	var openErr *breaker.OpenError
	require.ErrorAs(t, err, &openErr, "second call must be rejected by the open circuit")
	assert.Equal(t, networkCalls, calls.Load(), "rejected call must not reach the network")

	// The unrelated service is unaffected.
	status, err := reg.CircuitStatus("billing-service")
	require.NoError(t, err)
	assert.Equal(t, "closed", status.State)
}

func TestRegistry_AllCircuitStatusCounts(t *testing.T) {
	reg, _ := testRegistry(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}), config.BreakerSettings{FailureThreshold: 1, ResetTimeout: time.Hour})

	_, _ = reg.Get(context.Background(), "auth-service", "/users")

	report := reg.AllCircuitStatus()
	assert.Equal(t, 2, report.TotalCircuits)
	assert.Equal(t, 1, report.OpenCircuits)
	assert.Equal(t, "open", report.Circuits["auth-service"].State)
	assert.True(t, report.Circuits["auth-service"].Stats.IsOpen)
	assert.Equal(t, "closed", report.Circuits["billing-service"].State)

	open := 0
	for _, c := range report.Circuits {
		if c.State == "open" {
			open++
		}
	}
	assert.Equal(t, report.OpenCircuits, open, "openCircuits must equal the number of open entries")
}

func TestRegistry_NeverCalledServiceReportsClosed(t *testing.T) {
	reg, _ := testRegistry(t, http.NotFoundHandler(), config.BreakerSettings{})

	status, err := reg.CircuitStatus("auth-service")
	require.NoError(t, err)
	assert.Equal(t, "closed", status.State)
	assert.False(t, status.Stats.IsOpen)
}

func TestRegistry_ResetClosesOpenCircuit(t *testing.T) {
	var healthy atomic.Bool
	reg, _ := testRegistry(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			if healthy.Load() {
				w.WriteHeader(http.StatusOK)
			} else {
				w.WriteHeader(http.StatusServiceUnavailable)
			}
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}), config.BreakerSettings{FailureThreshold: 1, ResetTimeout: time.Hour})

	_, _ = reg.Get(context.Background(), "auth-service", "/users")
	require.Equal(t, breaker.StateOpen, reg.Breaker().State("auth-service"))

	// Unhealthy service: reset fails, circuit stays open.
	ok, err := reg.Reset(context.Background(), "auth-service")
	assert.False(t, ok)
	var probeErr *ProbeError
	require.ErrorAs(t, err, &probeErr)
	assert.Equal(t, breaker.StateOpen, reg.Breaker().State("auth-service"))

	// Healthy service: reset closes the circuit.
	healthy.Store(true)
	ok, err = reg.Reset(context.Background(), "auth-service")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, breaker.StateClosed, reg.Breaker().State("auth-service"))
}

func TestRegistry_FallbackOption(t *testing.T) {
	reg, _ := testRegistry(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}), config.BreakerSettings{FailureThreshold: 10})

	resp, err := reg.Get(context.Background(), "auth-service", "/users",
		WithFallback(func(ctx context.Context, cause error) (*executor.Response, error) {
			require.Error(t, cause)
			return &executor.Response{StatusCode: http.StatusOK, Body: []byte(`[]`)}, nil
		}))

	require.NoError(t, err)
	assert.Equal(t, `[]`, string(resp.Body))
}

func TestRegistry_ErrorIsNotSwallowed(t *testing.T) {
	reg, _ := testRegistry(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}), config.BreakerSettings{FailureThreshold: 10})

	_, err := reg.Delete(context.Background(), "billing-service", "/invoices/1")
	require.Error(t, err)

	var execErr *executor.Error
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, 2, execErr.Attempts)
	assert.False(t, errors.Is(err, context.DeadlineExceeded))
}
