package logging

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"circuitguard/internal/handler/http/requestid"
)

func TestNewLogger_DefaultLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	logger := NewLogger()
	require.NotNil(t, logger)

	assert.True(t, logger.Enabled(context.Background(), slog.LevelInfo))
	assert.False(t, logger.Enabled(context.Background(), slog.LevelDebug))
}

func TestNewLogger_DebugLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	logger := NewLogger()

	assert.True(t, logger.Enabled(context.Background(), slog.LevelDebug))
}

func TestWithRequestID(t *testing.T) {
	logger := NewTextLogger()

	ctx := requestid.WithRequestID(context.Background(), "req-123")
	withID := WithRequestID(ctx, logger)
	assert.NotSame(t, logger, withID)

	// Without a request ID the logger is returned unchanged.
	same := WithRequestID(context.Background(), logger)
	assert.Same(t, logger, same)
}

func TestLoggerContextRoundTrip(t *testing.T) {
	logger := NewTextLogger()
	ctx := WithLogger(context.Background(), logger)

	assert.Same(t, logger, FromContext(ctx))
	assert.NotNil(t, FromContext(context.Background()))
}
