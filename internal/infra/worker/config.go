package worker

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"feedhub/internal/pkg/config"
)

// Config holds the runtime configuration of the feed server and its refresh worker.
//
// Environment variables:
//   - FEEDHUB_ADDR: listen address of the feed server (default: ":3000")
//   - FEEDHUB_SOURCES_FILE: path of the sources YAML (default: "sources.yaml")
//   - REFRESH_SCHEDULE: cron expression, "off" disables refreshing (default: "*/15 * * * *")
//   - REFRESH_TIMEZONE: IANA timezone for the schedule (default: "Asia/Tokyo")
//   - REFRESH_CONCURRENCY: sources refreshed at once, 1-32 (default: 4)
//   - PIPELINE_RUN_TIMEOUT: bound on one pipeline run (default: 60s)
//   - SESSION_TTL: maximum session age, 0 keeps sessions until rejected (default: 0)
//   - FEED_CACHE_TTL: lifetime of a rendered feed, 0 disables the cache (default: 10m)
//   - METRICS_PORT: port of the health and metrics server, 1024-65535 (default: 9090)
type Config struct {
	Addr               string
	SourcesFile        string
	RefreshSchedule    string
	Timezone           string
	RefreshConcurrency int
	RunTimeout         time.Duration
	SessionTTL         time.Duration
	FeedCacheTTL       time.Duration
	MetricsPort        int
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Addr:               ":3000",
		SourcesFile:        "sources.yaml",
		RefreshSchedule:    "*/15 * * * *",
		Timezone:           "Asia/Tokyo",
		RefreshConcurrency: 4,
		RunTimeout:         60 * time.Second,
		SessionTTL:         0,
		FeedCacheTTL:       10 * time.Minute,
		MetricsPort:        9090,
	}
}

// refreshOff disables the periodic refresh.
const refreshOff = "off"

// MetricsAddr returns the listen address of the health and metrics server.
func (c Config) MetricsAddr() string {
	return ":" + strconv.Itoa(c.MetricsPort)
}

// RefreshEnabled reports whether a refresh schedule is configured.
func (c Config) RefreshEnabled() bool {
	s := strings.TrimSpace(c.RefreshSchedule)
	return s != "" && s != refreshOff
}

// Validate checks every field and returns all problems together.
func (c Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Addr) == "" {
		errs = append(errs, fmt.Errorf("addr: must not be empty"))
	}
	if c.RefreshEnabled() {
		if err := config.ValidateCronSchedule(c.RefreshSchedule); err != nil {
			errs = append(errs, fmt.Errorf("refresh schedule: %w", err))
		}
	}
	if err := config.ValidateTimezone(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("timezone: %w", err))
	}
	if err := config.ValidateIntRange(c.RefreshConcurrency, 1, 32); err != nil {
		errs = append(errs, fmt.Errorf("refresh concurrency: %w", err))
	}
	if err := config.ValidateNonNegativeDuration(c.RunTimeout); err != nil {
		errs = append(errs, fmt.Errorf("run timeout: %w", err))
	}
	if err := config.ValidateNonNegativeDuration(c.SessionTTL); err != nil {
		errs = append(errs, fmt.Errorf("session ttl: %w", err))
	}
	if err := config.ValidateNonNegativeDuration(c.FeedCacheTTL); err != nil {
		errs = append(errs, fmt.Errorf("feed cache ttl: %w", err))
	}
	if err := config.ValidateIntRange(c.MetricsPort, 1024, 65535); err != nil {
		errs = append(errs, fmt.Errorf("metrics port: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed: %v", errs)
	}
	return nil
}

// LoadConfigFromEnv loads Config with the fail-open strategy: every invalid
// value falls back to its default, is logged as a warning and counted in metrics.
// It never returns an invalid Config.
func LoadConfigFromEnv(logger *slog.Logger, metrics *WorkerMetrics) Config {
	def := DefaultConfig()
	l := config.NewLoader(nil)
	if metrics != nil {
		l = config.NewLoader(metrics.ConfigMetrics)
	}

	schedule := config.LoadEnvString("REFRESH_SCHEDULE", def.RefreshSchedule)
	if schedule != refreshOff {
		schedule = config.Track(l, "refresh_schedule", config.LoadEnvWithFallback("REFRESH_SCHEDULE", def.RefreshSchedule, config.ValidateCronSchedule))
	}

	cfg := Config{
		Addr:            config.LoadEnvString("FEEDHUB_ADDR", def.Addr),
		SourcesFile:     config.LoadEnvString("FEEDHUB_SOURCES_FILE", def.SourcesFile),
		RefreshSchedule: schedule,
		Timezone:        config.Track(l, "timezone", config.LoadEnvWithFallback("REFRESH_TIMEZONE", def.Timezone, config.ValidateTimezone)),
		RefreshConcurrency: config.Track(l, "refresh_concurrency", config.LoadEnvInt("REFRESH_CONCURRENCY", def.RefreshConcurrency, func(v int) error {
			return config.ValidateIntRange(v, 1, 32)
		})),
		RunTimeout: config.Track(l, "run_timeout", config.LoadEnvDuration("PIPELINE_RUN_TIMEOUT", def.RunTimeout, func(d time.Duration) error {
			return config.ValidateDuration(d, time.Second, 30*time.Minute)
		})),
		SessionTTL:   config.Track(l, "session_ttl", config.LoadEnvDuration("SESSION_TTL", def.SessionTTL, config.ValidateNonNegativeDuration)),
		FeedCacheTTL: config.Track(l, "feed_cache_ttl", config.LoadEnvDuration("FEED_CACHE_TTL", def.FeedCacheTTL, config.ValidateNonNegativeDuration)),
		MetricsPort: config.Track(l, "metrics_port", config.LoadEnvInt("METRICS_PORT", def.MetricsPort, func(v int) error {
			return config.ValidateIntRange(v, 1024, 65535)
		})),
	}
	l.Finish()

	for _, w := range l.Warnings() {
		logger.Warn("Configuration fallback applied", slog.String("warning", w))
	}
	return cfg
}
