package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// webhookSink is the shared machinery of Slack and Discord sinks: a JSON
// POST to a webhook URL behind a token-bucket rate limiter and a per-sink
// circuit breaker.
type webhookSink struct {
	name       string
	webhookURL string
	client     *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	payload    func(Event) any
}

func newWebhookSink(name, webhookURL string, payload func(Event) any) *webhookSink {
	return &webhookSink{
		name:       name,
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
		// Webhook providers typically allow about 1 message per second.
		limiter: rate.NewLimiter(rate.Limit(1), 1),
		breaker: newSinkBreaker(name),
		payload: payload,
	}
}

func (s *webhookSink) Name() string { return s.name }

func (s *webhookSink) Enabled() bool { return s.webhookURL != "" }

func (s *webhookSink) Notify(ctx context.Context, event Event) error {
	if !s.Enabled() {
		return fmt.Errorf("sink %s is disabled", s.name)
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("sink %s rate limit wait: %w", s.name, err)
	}

	_, err := s.breaker.Execute(func() (any, error) {
		return nil, s.post(ctx, event)
	})
	if err == gobreaker.ErrOpenState {
		return fmt.Errorf("sink %s temporarily disabled after repeated failures: %w", s.name, err)
	}
	return err
}

func (s *webhookSink) post(ctx context.Context, event Event) error {
	body, err := json.Marshal(s.payload(event))
	if err != nil {
		return fmt.Errorf("sink %s payload: %w", s.name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("sink %s request: %w", s.name, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		// Webhook URLs embed credentials; never echo them in errors.
		return fmt.Errorf("sink %s delivery failed: %w", s.name, sanitizeURLError(err))
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("sink %s returned status %d", s.name, resp.StatusCode)
	}
	return nil
}

// NewSlackSink creates a Slack Incoming Webhook sink.
// A webhook URL of "" yields a disabled sink.
func NewSlackSink(webhookURL string) Sink {
	return newWebhookSink("slack", webhookURL, func(e Event) any {
		return map[string]string{"text": e.Message()}
	})
}

// NewDiscordSink creates a Discord webhook sink.
// A webhook URL of "" yields a disabled sink.
func NewDiscordSink(webhookURL string) Sink {
	return newWebhookSink("discord", webhookURL, func(e Event) any {
		return map[string]string{"content": e.Message()}
	})
}
