// Package monitor implements the out-of-process circuit monitor daemon: it
// polls the gateway's aggregate circuit status on a fixed schedule, manages
// the alert lifecycle, drives automated recovery, and persists daily
// history snapshots.
package monitor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"circuitguard/internal/client"
)

// pollTimeout bounds one status poll or reset call.
const pollTimeout = 10 * time.Second

// Poller talks to the gateway's status and reset endpoints.
type Poller struct {
	gatewayURL string
	authToken  string
	client     *http.Client
}

// NewPoller creates a Poller for the gateway at gatewayURL. authToken, when
// non-empty, is sent as a bearer token on reset requests.
func NewPoller(gatewayURL, authToken string, httpClient *http.Client) *Poller {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Poller{
		gatewayURL: strings.TrimSuffix(gatewayURL, "/"),
		authToken:  authToken,
		client:     httpClient,
	}
}

// Poll fetches the aggregate circuit status report.
func (p *Poller) Poll(ctx context.Context) (*client.StatusReport, error) {
	ctx, cancel := context.WithTimeout(ctx, pollTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.gatewayURL+"/circuit-status", nil)
	if err != nil {
		return nil, fmt.Errorf("building status request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("polling circuit status: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("circuit status endpoint returned %d", resp.StatusCode)
	}

	var report client.StatusReport
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return nil, fmt.Errorf("decoding circuit status: %w", err)
	}
	return &report, nil
}

// Reset asks the gateway to attempt a circuit reset for service. The
// returned bool is the gateway's verdict on whether the probe succeeded.
func (p *Poller) Reset(ctx context.Context, service string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, pollTimeout)
	defer cancel()

	body, err := json.Marshal(map[string]string{"service": service})
	if err != nil {
		return false, fmt.Errorf("encoding reset request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.gatewayURL+"/circuit-reset", bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("building reset request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+p.authToken)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("requesting circuit reset: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("circuit reset endpoint returned %d", resp.StatusCode)
	}

	var result client.ResetResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return false, fmt.Errorf("decoding reset response: %w", err)
	}
	return result.Result.Success, nil
}
