package config

import (
	"log/slog"
	"time"

	pkgcfg "circuitguard/internal/pkg/config"
)

// MonitorConfig holds the monitor daemon's settings, loaded from environment
// variables with fail-open fallback: an invalid value is replaced by its
// default and logged, never fatal.
type MonitorConfig struct {
	// APIGatewayURL is the base URL of the process exposing /circuit-status
	// and /circuit-reset.
	APIGatewayURL string

	// CheckIntervalMinutes is how often a poll cycle runs.
	CheckIntervalMinutes int

	// AlertThreshold is the number of consecutive polls a circuit must be
	// open before an alert fires.
	AlertThreshold int

	// AlertRepeatInterval is the minimum spacing between follow-up
	// notifications for an alert that stays active.
	AlertRepeatInterval time.Duration

	// AutoRecoveryEnabled turns automated circuit reset attempts on.
	AutoRecoveryEnabled bool

	// AttemptAfterChecks is the number of consecutive open polls before a
	// reset attempt is made.
	AttemptAfterChecks int

	// MaxRecoveryAttempts caps reset attempts while a circuit stays open.
	MaxRecoveryAttempts int

	// RecoveryCooldown is the minimum spacing between reset attempts.
	RecoveryCooldown time.Duration

	// HistoryDir is where daily snapshot files are written.
	HistoryDir string

	// HistoryRetentionDays is how many daily files are kept.
	HistoryRetentionDays int

	// ResetAuthToken, when non-empty, is sent as a bearer token on
	// /circuit-reset requests.
	ResetAuthToken string

	// HealthPort is the port of the daemon's own health check server.
	HealthPort int

	// Notification sink settings.
	ConsoleSinkEnabled bool
	SlackWebhookURL    string
	DiscordWebhookURL  string
}

// DefaultMonitorConfig returns the monitor defaults.
func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		APIGatewayURL:        "http://localhost:3000",
		CheckIntervalMinutes: 1,
		AlertThreshold:       2,
		AlertRepeatInterval:  time.Hour,
		AutoRecoveryEnabled:  false,
		AttemptAfterChecks:   5,
		MaxRecoveryAttempts:  3,
		RecoveryCooldown:     30 * time.Minute,
		HistoryDir:           "data",
		HistoryRetentionDays: 30,
		HealthPort:           9091,
		ConsoleSinkEnabled:   true,
	}
}

// LoadMonitorConfig loads the monitor configuration from the environment.
// Each invalid value produces a warning log and falls back to its default.
func LoadMonitorConfig(logger *slog.Logger) MonitorConfig {
	def := DefaultMonitorConfig()

	gateway := pkgcfg.String("API_GATEWAY_URL", def.APIGatewayURL, pkgcfg.HTTPURL)
	interval := pkgcfg.Int("CHECK_INTERVAL_MINUTES", def.CheckIntervalMinutes, pkgcfg.IntRange(1, 1440))
	alertThreshold := pkgcfg.Int("ALERT_THRESHOLD", def.AlertThreshold, pkgcfg.IntRange(1, 100))
	repeatInterval := pkgcfg.Duration("ALERT_REPEAT_INTERVAL", def.AlertRepeatInterval, pkgcfg.PositiveDuration)
	recoveryEnabled := pkgcfg.Bool("AUTO_RECOVERY_ENABLED", def.AutoRecoveryEnabled)
	afterChecks := pkgcfg.Int("AUTO_RECOVERY_ATTEMPT_AFTER_CHECKS", def.AttemptAfterChecks, pkgcfg.IntRange(1, 1000))
	maxAttempts := pkgcfg.Int("AUTO_RECOVERY_MAX_ATTEMPTS", def.MaxRecoveryAttempts, pkgcfg.IntRange(1, 100))
	cooldown := pkgcfg.Duration("AUTO_RECOVERY_COOLDOWN", def.RecoveryCooldown, pkgcfg.PositiveDuration)
	historyDir := pkgcfg.String("HISTORY_DIR", def.HistoryDir, nil)
	retention := pkgcfg.Int("HISTORY_RETENTION_DAYS", def.HistoryRetentionDays, pkgcfg.IntRange(1, 3650))
	resetToken := pkgcfg.String("RESET_AUTH_TOKEN", "", nil)
	healthPort := pkgcfg.Int("MONITOR_HEALTH_PORT", def.HealthPort, pkgcfg.IntRange(1024, 65535))
	consoleSink := pkgcfg.Bool("NOTIFY_CONSOLE_ENABLED", def.ConsoleSinkEnabled)
	slackURL := pkgcfg.String("NOTIFY_SLACK_WEBHOOK_URL", "", nil)
	discordURL := pkgcfg.String("NOTIFY_DISCORD_WEBHOOK_URL", "", nil)

	for _, w := range []string{
		gateway.Warning, interval.Warning, alertThreshold.Warning,
		repeatInterval.Warning, recoveryEnabled.Warning, afterChecks.Warning,
		maxAttempts.Warning, cooldown.Warning, historyDir.Warning,
		retention.Warning, healthPort.Warning, consoleSink.Warning,
	} {
		if w != "" {
			logger.Warn("monitor configuration fallback", slog.String("detail", w))
		}
	}

	return MonitorConfig{
		APIGatewayURL:        gateway.Value,
		CheckIntervalMinutes: interval.Value,
		AlertThreshold:       alertThreshold.Value,
		AlertRepeatInterval:  repeatInterval.Value,
		AutoRecoveryEnabled:  recoveryEnabled.Value,
		AttemptAfterChecks:   afterChecks.Value,
		MaxRecoveryAttempts:  maxAttempts.Value,
		RecoveryCooldown:     cooldown.Value,
		HistoryDir:           historyDir.Value,
		HistoryRetentionDays: retention.Value,
		ResetAuthToken:       resetToken.Value,
		HealthPort:           healthPort.Value,
		ConsoleSinkEnabled:   consoleSink.Value,
		SlackWebhookURL:      slackURL.Value,
		DiscordWebhookURL:    discordURL.Value,
	}
}

// CheckInterval returns the poll interval as a duration.
func (c MonitorConfig) CheckInterval() time.Duration {
	return time.Duration(c.CheckIntervalMinutes) * time.Minute
}
