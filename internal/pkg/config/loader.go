// Package config provides environment variable loaders with validation and
// fail-open fallback, plus Prometheus metrics describing the fallbacks taken.
//
// A loader never returns an error: an unset variable yields the default
// silently, and an unparsable or invalid value yields the default together
// with a warning. Components collect those warnings through a Loader and
// decide how loudly to report them.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// LoadResult represents the result of loading a configuration value.
//
// Fields:
//   - Value: The loaded configuration value (the default if validation failed)
//   - Warnings: List of warning messages (one per fallback applied)
//   - FallbackApplied: True if the default value was used due to a bad value
//
// Example:
//
//	result := LoadEnvDuration("HTTP_TIMEOUT", 30*time.Second, ValidatePositiveDuration)
//	for _, warning := range result.Warnings {
//	    logger.Warn("configuration fallback", slog.String("warning", warning))
//	}
//	timeout := result.Value
type LoadResult[T any] struct {
	Value           T
	Warnings        []string
	FallbackApplied bool
}

// loadEnv is the shared implementation of every typed loader.
//
// Warning format:
//
//	"Invalid {envKey}='{value}': {error}, falling back to default '{default}'"
func loadEnv[T any](envKey string, defaultValue T, parse func(string) (T, error), validator func(T) error) LoadResult[T] {
	raw := os.Getenv(envKey)
	if raw == "" {
		return LoadResult[T]{Value: defaultValue}
	}

	value, err := parse(raw)
	if err == nil && validator != nil {
		err = validator(value)
	}
	if err != nil {
		warning := fmt.Sprintf(
			"Invalid %s='%s': %v, falling back to default '%v'",
			envKey,
			raw,
			err,
			defaultValue,
		)
		return LoadResult[T]{
			Value:           defaultValue,
			Warnings:        []string{warning},
			FallbackApplied: true,
		}
	}

	return LoadResult[T]{Value: value}
}

// LoadEnvString loads a string value from an environment variable.
// If the environment variable is not set, the default value is returned.
// No validation is performed.
func LoadEnvString(envKey, defaultValue string) string {
	if value := os.Getenv(envKey); value != "" {
		return value
	}
	return defaultValue
}

// LoadEnvWithFallback loads a string value from an environment variable
// with validation and automatic fallback to default on validation failure.
//
// Example:
//
//	result := LoadEnvWithFallback("REFRESH_SCHEDULE", "*/15 * * * *", ValidateCronSchedule)
//	schedule := result.Value
func LoadEnvWithFallback(envKey, defaultValue string, validator func(string) error) LoadResult[string] {
	return loadEnv(envKey, defaultValue, func(s string) (string, error) { return s, nil }, validator)
}

// LoadEnvDuration loads a duration value ("30s", "10m", "1h30m") from an environment variable.
// Parse errors and validation errors both fall back to the default.
func LoadEnvDuration(envKey string, defaultValue time.Duration, validator func(time.Duration) error) LoadResult[time.Duration] {
	return loadEnv(envKey, defaultValue, time.ParseDuration, validator)
}

// LoadEnvInt loads a base-10 integer value from an environment variable.
// Decimal values and surrounding spaces are rejected.
func LoadEnvInt(envKey string, defaultValue int, validator func(int) error) LoadResult[int] {
	return loadEnv(envKey, defaultValue, strconv.Atoi, validator)
}

// LoadEnvInt64 loads a base-10 64-bit integer value, used for byte sizes.
func LoadEnvInt64(envKey string, defaultValue int64, validator func(int64) error) LoadResult[int64] {
	return loadEnv(envKey, defaultValue, func(s string) (int64, error) {
		return strconv.ParseInt(s, 10, 64)
	}, validator)
}

// LoadEnvFloat loads a floating point value, used for rates.
func LoadEnvFloat(envKey string, defaultValue float64, validator func(float64) error) LoadResult[float64] {
	return loadEnv(envKey, defaultValue, func(s string) (float64, error) {
		return strconv.ParseFloat(s, 64)
	}, validator)
}

// LoadEnvBool loads a boolean value from an environment variable.
// Accepted spellings are those of strconv.ParseBool.
func LoadEnvBool(envKey string, defaultValue bool) LoadResult[bool] {
	return loadEnv(envKey, defaultValue, func(s string) (bool, error) {
		v, err := strconv.ParseBool(s)
		if err != nil {
			return false, fmt.Errorf("invalid boolean format, expected 'true' or 'false'")
		}
		return v, nil
	}, nil)
}

// Loader accumulates warnings across the fields of one component's configuration
// and reports each fallback to the component's ConfigMetrics.
//
// Example:
//
//	l := config.NewLoader(metrics)
//	cfg.Timeout = config.Track(l, "timeout", config.LoadEnvDuration("HTTP_TIMEOUT", 30*time.Second, config.ValidatePositiveDuration))
//	cfg.Burst = config.Track(l, "burst", config.LoadEnvInt("HTTP_BURST", 2, nil))
//	l.Finish()
//	for _, w := range l.Warnings() { ... }
type Loader struct {
	metrics  *ConfigMetrics
	warnings []string
}

// NewLoader creates a Loader. metrics may be nil.
func NewLoader(metrics *ConfigMetrics) *Loader {
	return &Loader{metrics: metrics}
}

// Track records the outcome of one field load and returns its value.
func Track[T any](l *Loader, field string, result LoadResult[T]) T {
	if result.FallbackApplied {
		l.warnings = append(l.warnings, result.Warnings...)
		if l.metrics != nil {
			l.metrics.RecordValidationError(field)
			l.metrics.RecordFallback(field, "default")
		}
	}
	return result.Value
}

// Warnings returns every warning recorded so far.
func (l *Loader) Warnings() []string {
	return l.warnings
}

// FallbackApplied reports whether any tracked field fell back to its default.
func (l *Loader) FallbackApplied() bool {
	return len(l.warnings) > 0
}

// Finish stamps the load time and publishes the fallback status.
func (l *Loader) Finish() {
	if l.metrics == nil {
		return
	}
	l.metrics.RecordLoadTimestamp()
	l.metrics.SetFallbackActive(l.FallbackApplied())
}
