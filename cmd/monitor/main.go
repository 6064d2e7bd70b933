package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"circuitguard/internal/config"
	"circuitguard/internal/monitor"
	"circuitguard/internal/notifier"
	"circuitguard/internal/observability/logging"
)

func main() {
	logger := logging.NewLogger()
	slog.SetDefault(logger)

	cfg := config.LoadMonitorConfig(logger)
	logger.Info("monitor configuration loaded",
		slog.String("gateway_url", cfg.APIGatewayURL),
		slog.Duration("check_interval", cfg.CheckInterval()),
		slog.Int("alert_threshold", cfg.AlertThreshold),
		slog.Bool("auto_recovery", cfg.AutoRecoveryEnabled),
		slog.String("history_dir", cfg.HistoryDir),
		slog.Int("health_port", cfg.HealthPort))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mon := buildMonitor(cfg, logger)

	healthAddr := fmt.Sprintf(":%d", cfg.HealthPort)
	healthServer := monitor.NewHealthServer(healthAddr, logger)
	go func() {
		if err := healthServer.Start(ctx); err != nil && err != http.ErrServerClosed {
			logger.Error("health server failed", slog.Any("error", err))
		}
	}()

	runScheduler(ctx, logger, cfg, mon, healthServer)
}

// buildMonitor wires the poller, alert lifecycle, recovery, history store
// and notification sinks into one monitor.
func buildMonitor(cfg config.MonitorConfig, logger *slog.Logger) *monitor.Monitor {
	poller := monitor.NewPoller(cfg.APIGatewayURL, cfg.ResetAuthToken, &http.Client{})

	sinks := buildSinks(cfg, logger)
	dispatcher := notifier.NewDispatcher(sinks, logger)

	alerts := monitor.NewAlertManager(cfg.AlertThreshold, cfg.AlertRepeatInterval)
	recovery := monitor.NewRecoveryManager(
		cfg.AutoRecoveryEnabled,
		cfg.AttemptAfterChecks,
		cfg.MaxRecoveryAttempts,
		cfg.RecoveryCooldown,
		poller.Reset,
		logger,
	)
	history := monitor.NewHistoryStore(cfg.HistoryDir, cfg.HistoryRetentionDays)

	return monitor.New(poller, alerts, recovery, history, dispatcher, logger)
}

func buildSinks(cfg config.MonitorConfig, logger *slog.Logger) []notifier.Sink {
	sinks := []notifier.Sink{
		notifier.NewConsoleSink(logger, cfg.ConsoleSinkEnabled),
		notifier.NewSlackSink(cfg.SlackWebhookURL),
		notifier.NewDiscordSink(cfg.DiscordWebhookURL),
	}
	for _, s := range sinks {
		logger.Info("notification sink configured",
			slog.String("sink", s.Name()),
			slog.Bool("enabled", s.Enabled()))
	}
	return sinks
}

// runScheduler starts the cron scheduler and blocks until a termination
// signal arrives. Overlapping cycles are skipped rather than queued.
func runScheduler(ctx context.Context, logger *slog.Logger, cfg config.MonitorConfig, mon *monitor.Monitor, healthServer *monitor.HealthServer) {
	c := cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
		cron.Recover(cron.DefaultLogger),
	))

	schedule := fmt.Sprintf("@every %s", cfg.CheckInterval())
	_, err := c.AddFunc(schedule, func() {
		mon.RunCycle(ctx)
	})
	if err != nil {
		logger.Error("failed to schedule poll cycle", slog.Any("error", err))
		os.Exit(1)
	}
	c.Start()

	healthServer.SetReady(true)
	logger.Info("monitor started", slog.String("schedule", schedule))

	// Run the first cycle immediately; cron waits a full interval before
	// the first tick.
	go mon.RunCycle(ctx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down monitor...")

	healthServer.SetReady(false)
	stopCtx := c.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(30 * time.Second):
		logger.Warn("timed out waiting for running cycle to finish")
	}
	logger.Info("monitor stopped")
}
