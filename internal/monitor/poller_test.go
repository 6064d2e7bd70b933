package monitor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPollerPollRejectsNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := NewPoller(srv.URL, "", srv.Client())
	_, err := p.Poll(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestPollerPollRejectsMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("{truncated"))
	}))
	defer srv.Close()

	p := NewPoller(srv.URL, "", srv.Client())
	_, err := p.Poll(context.Background())
	assert.Error(t, err)
}

func TestPollerResetOmitsAuthWhenTokenEmpty(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"result":{"success":true}}`))
	}))
	defer srv.Close()

	p := NewPoller(srv.URL+"/", "", srv.Client())
	ok, err := p.Reset(context.Background(), "auth")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, gotAuth)
}
