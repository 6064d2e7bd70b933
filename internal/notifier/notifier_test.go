package notifier

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEvent(kind EventKind) Event {
	return Event{
		Kind:          kind,
		Service:       "auth-service",
		OpenPolls:     3,
		FirstDetected: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
		Time:          time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestEventMessage(t *testing.T) {
	assert.Contains(t, testEvent(KindTriggered).Message(), "ALERT")
	assert.Contains(t, testEvent(KindTriggered).Message(), "auth-service")
	assert.Contains(t, testEvent(KindRepeated).Message(), "STILL OPEN")
	assert.Contains(t, testEvent(KindResolved).Message(), "RESOLVED")
}

func TestSlackSink_PostsPayload(t *testing.T) {
	var got atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		buf, _ := io.ReadAll(r.Body)
		got.Store(string(buf))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sink := NewSlackSink(srv.URL)
	require.True(t, sink.Enabled())
	require.NoError(t, sink.Notify(context.Background(), testEvent(KindTriggered)))
	assert.Contains(t, got.Load().(string), `"text"`)
}

func TestWebhookSink_DisabledWithoutURL(t *testing.T) {
	assert.False(t, NewSlackSink("").Enabled())
	assert.False(t, NewDiscordSink("").Enabled())
}

func TestWebhookSink_Non2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	err := NewDiscordSink(srv.URL).Notify(context.Background(), testEvent(KindTriggered))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestWebhookSink_BreakerTripsAfterConsecutiveFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	sink := newWebhookSink("slack", srv.URL, func(e Event) any {
		return map[string]string{"text": e.Message()}
	})
	// No rate-limit stalls in this test.
	sink.limiter.SetLimit(1000)
	sink.limiter.SetBurst(1000)

	for i := 0; i < 3; i++ {
		require.Error(t, sink.Notify(context.Background(), testEvent(KindTriggered)))
	}
	before := calls.Load()

	err := sink.Notify(context.Background(), testEvent(KindTriggered))
	require.Error(t, err)
	assert.Equal(t, before, calls.Load(), "open sink circuit must reject without calling the webhook")
}

func TestWebhookSink_ErrorDoesNotLeakURL(t *testing.T) {
	sink := NewSlackSink("http://127.0.0.1:1/services/SECRET/TOKEN")
	err := sink.Notify(context.Background(), testEvent(KindTriggered))
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "SECRET")
	assert.NotContains(t, err.Error(), "TOKEN")
}

// failingSink always errors; used to prove isolation.
type failingSink struct{ calls atomic.Int32 }

func (s *failingSink) Name() string  { return "failing" }
func (s *failingSink) Enabled() bool { return true }
func (s *failingSink) Notify(context.Context, Event) error {
	s.calls.Add(1)
	return errors.New("boom")
}

// recordingSink captures delivered events.
type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *recordingSink) Name() string  { return "recording" }
func (s *recordingSink) Enabled() bool { return true }
func (s *recordingSink) Notify(_ context.Context, e Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

type disabledSink struct{ calls atomic.Int32 }

func (s *disabledSink) Name() string  { return "disabled" }
func (s *disabledSink) Enabled() bool { return false }
func (s *disabledSink) Notify(context.Context, Event) error {
	s.calls.Add(1)
	return nil
}

func TestDispatcher_IsolatesFailingSinks(t *testing.T) {
	failing := &failingSink{}
	recording := &recordingSink{}
	disabled := &disabledSink{}

	d := NewDispatcher([]Sink{failing, recording, disabled}, nil)
	events := []Event{testEvent(KindTriggered), testEvent(KindResolved)}
	d.Dispatch(context.Background(), events)

	recording.mu.Lock()
	defer recording.mu.Unlock()
	assert.Len(t, recording.events, 2, "healthy sink must receive all events despite the failing one")
	assert.Equal(t, int32(2), failing.calls.Load())
	assert.Zero(t, disabled.calls.Load(), "disabled sinks must be skipped")
}

func TestDispatcher_NoEventsNoWork(t *testing.T) {
	failing := &failingSink{}
	NewDispatcher([]Sink{failing}, nil).Dispatch(context.Background(), nil)
	assert.Zero(t, failing.calls.Load())
}

func TestConsoleSink(t *testing.T) {
	sink := NewConsoleSink(nil, true)
	assert.True(t, sink.Enabled())
	assert.NoError(t, sink.Notify(context.Background(), testEvent(KindResolved)))

	off := NewConsoleSink(nil, false)
	assert.False(t, off.Enabled())
}
