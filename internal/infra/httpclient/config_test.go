package httpclient

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "zero timeout", mutate: func(c *Config) { c.Timeout = 0 }},
		{name: "zero rate", mutate: func(c *Config) { c.RatePerSecond = 0 }},
		{name: "zero burst", mutate: func(c *Config) { c.Burst = 0 }},
		{name: "tiny body limit", mutate: func(c *Config) { c.MaxBodyBytes = 10 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("HTTP_TIMEOUT", "45s")
	t.Setenv("HTTP_USER_AGENT", "test-agent")
	t.Setenv("HTTP_RATE_PER_SECOND", "0.5")
	t.Setenv("HTTP_BURST", "0")
	t.Setenv("HTTP_MAX_BODY_BYTES", "2048")

	cfg, warnings := LoadConfigFromEnv()

	assert.Equal(t, 45*time.Second, cfg.Timeout)
	assert.Equal(t, "test-agent", cfg.UserAgent)
	assert.Equal(t, 0.5, cfg.RatePerSecond)
	assert.Equal(t, 2, cfg.Burst, "invalid burst falls back to default")
	assert.Equal(t, int64(2048), cfg.MaxBodyBytes)
	assert.Len(t, warnings, 1)
	assert.NoError(t, cfg.Validate())
}
