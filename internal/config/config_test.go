package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultValidates(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadFromEnvOverrides(t *testing.T) {
	t.Setenv("COUNTPROF_LOG_LEVEL", "debug")
	t.Setenv("COUNTPROF_GRANULARITY", "current-line")
	t.Setenv("COUNTPROF_WINDOW", "31")
	t.Setenv("COUNTPROF_DRIFT_GUARD", "true")
	t.Setenv("COUNTPROF_DRIFT_THRESHOLD", "25ms")
	t.Setenv("COUNTPROF_OUTPUT_DIR", "/tmp/profiles")
	t.Setenv("COUNTPROF_DB", "reports.db")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "current-line", cfg.Granularity)
	assert.Equal(t, 31, cfg.Window)
	assert.True(t, cfg.DriftGuard)
	assert.Equal(t, 25*time.Millisecond, cfg.DriftThreshold)
	assert.Equal(t, "/tmp/profiles", cfg.OutputDir)
	assert.Equal(t, "reports.db", cfg.DatabasePath)
}

func TestLoadFromEnvUnsetKeepsDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := map[string]string{
		"COUNTPROF_WINDOW":          "not-a-number",
		"COUNTPROF_DRIFT_THRESHOLD": "soon",
		"COUNTPROF_DRIFT_GUARD":     "maybe",
	}
	for key, val := range tests {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, val)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }, false},
		{"bad granularity", func(c *Config) { c.Granularity = "line-ish" }, false},
		{"zero window", func(c *Config) { c.Window = 0 }, false},
		{"negative drift", func(c *Config) { c.DriftThreshold = -time.Millisecond }, false},
		{"current-line", func(c *Config) { c.Granularity = "current-line" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
