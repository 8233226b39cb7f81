package httpclient

import (
	"fmt"
	"time"

	pkgconfig "feedhub/internal/pkg/config"
)

// configMetrics tracks fallbacks applied while loading the facade configuration.
var configMetrics = pkgconfig.NewConfigMetrics("httpclient")

// DefaultUserAgent identifies feedhub to upstream sites.
const DefaultUserAgent = "feedhub/1.0 (+https://github.com/feedhub/feedhub)"

// Config holds the settings shared by every facade client.
type Config struct {
	// Timeout bounds one request including reading the body.
	// Default: 30s
	Timeout time.Duration

	// UserAgent is sent with every request unless the request sets its own.
	UserAgent string

	// RatePerSecond is the sustained request rate allowed per source.
	// Default: 1
	RatePerSecond float64

	// Burst is the number of requests a source may issue back to back.
	// Default: 2
	Burst int

	// MaxBodyBytes caps the response body size. Larger bodies fail with ErrBodyTooLarge.
	// Default: 10MB
	MaxBodyBytes int64
}

// DefaultConfig returns the default facade configuration.
func DefaultConfig() Config {
	return Config{
		Timeout:       30 * time.Second,
		UserAgent:     DefaultUserAgent,
		RatePerSecond: 1,
		Burst:         2,
		MaxBodyBytes:  10 * 1024 * 1024,
	}
}

// Validate checks if the configuration values are usable.
func (c Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", c.Timeout)
	}
	if c.RatePerSecond <= 0 {
		return fmt.Errorf("rate per second must be positive, got %g", c.RatePerSecond)
	}
	if c.Burst < 1 {
		return fmt.Errorf("burst must be at least 1, got %d", c.Burst)
	}
	if c.MaxBodyBytes < 1024 {
		return fmt.Errorf("max body bytes must be at least 1024, got %d", c.MaxBodyBytes)
	}
	return nil
}

// LoadConfigFromEnv loads the facade configuration with fail-open fallback.
// Invalid values are replaced by their defaults and reported as warnings.
//
// Environment variables:
//   - HTTP_TIMEOUT: duration (default: 30s)
//   - HTTP_USER_AGENT: string
//   - HTTP_RATE_PER_SECOND: float (default: 1)
//   - HTTP_BURST: integer 1-100 (default: 2)
//   - HTTP_MAX_BODY_BYTES: integer (default: 10485760)
func LoadConfigFromEnv() (Config, []string) {
	def := DefaultConfig()
	l := pkgconfig.NewLoader(configMetrics)

	cfg := Config{
		Timeout: pkgconfig.Track(l, "timeout", pkgconfig.LoadEnvDuration("HTTP_TIMEOUT", def.Timeout, func(d time.Duration) error {
			return pkgconfig.ValidateDuration(d, time.Second, 10*time.Minute)
		})),
		UserAgent: pkgconfig.LoadEnvString("HTTP_USER_AGENT", def.UserAgent),
		RatePerSecond: pkgconfig.Track(l, "rate_per_second", pkgconfig.LoadEnvFloat("HTTP_RATE_PER_SECOND", def.RatePerSecond, func(v float64) error {
			return pkgconfig.ValidateFloatRange(v, 0.01, 1000)
		})),
		Burst: pkgconfig.Track(l, "burst", pkgconfig.LoadEnvInt("HTTP_BURST", def.Burst, func(v int) error {
			return pkgconfig.ValidateIntRange(v, 1, 100)
		})),
		MaxBodyBytes: pkgconfig.Track(l, "max_body_bytes", pkgconfig.LoadEnvInt64("HTTP_MAX_BODY_BYTES", def.MaxBodyBytes, func(v int64) error {
			if v < 1024 || v > 100*1024*1024 {
				return fmt.Errorf("must be between 1KB and 100MB, got %d", v)
			}
			return nil
		})),
	}
	l.Finish()

	return cfg, l.Warnings()
}
