package notifier

import (
	"context"
	"log/slog"
)

// ConsoleSink writes notifications to the structured logger. It is the
// default sink and never fails.
type ConsoleSink struct {
	logger  *slog.Logger
	enabled bool
}

// NewConsoleSink creates a console sink backed by logger.
func NewConsoleSink(logger *slog.Logger, enabled bool) *ConsoleSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConsoleSink{logger: logger, enabled: enabled}
}

func (s *ConsoleSink) Name() string { return "console" }

func (s *ConsoleSink) Enabled() bool { return s.enabled }

func (s *ConsoleSink) Notify(_ context.Context, event Event) error {
	level := slog.LevelWarn
	if event.Kind == KindResolved {
		level = slog.LevelInfo
	}
	s.logger.Log(context.Background(), level, event.Message(),
		slog.String("service", event.Service),
		slog.String("kind", string(event.Kind)),
		slog.Int("open_polls", event.OpenPolls))
	return nil
}
