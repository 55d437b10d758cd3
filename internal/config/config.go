// Package config holds countprof's runtime configuration: defaults,
// environment overrides, and validation. Flags layered on top by the CLI
// take final precedence.
package config

import (
	"fmt"
	"time"
)

// Config is the full countprof configuration.
type Config struct {
	// LogLevel is one of trace, debug, info, warn, error.
	LogLevel string `env:"COUNTPROF_LOG_LEVEL"`
	// LogPretty enables human-readable console logs on stderr.
	LogPretty bool `env:"COUNTPROF_LOG_PRETTY"`

	// Granularity is "definition-line" or "current-line".
	Granularity string `env:"COUNTPROF_GRANULARITY"`
	// Window is the cadence filter's median window size.
	Window int `env:"COUNTPROF_WINDOW"`
	// DriftGuard enables forced samples on call entry after long gaps.
	DriftGuard bool `env:"COUNTPROF_DRIFT_GUARD"`
	// DriftThreshold is the guarded gap length (e.g. "10ms").
	DriftThreshold time.Duration `env:"COUNTPROF_DRIFT_THRESHOLD"`
	// OmitZeroCounts drops never-sampled interior nodes from dumps.
	OmitZeroCounts bool `env:"COUNTPROF_OMIT_ZERO_COUNTS"`
	// OutputDir is where dumps are written; empty means the working dir.
	OutputDir string `env:"COUNTPROF_OUTPUT_DIR"`

	// DatabasePath is the DuckDB file used by ingest/top.
	DatabasePath string `env:"COUNTPROF_DB"`
}

// Default returns the stock configuration: definition-line granularity,
// a 19-wide cadence window, no drift guard.
func Default() *Config {
	return &Config{
		LogLevel:       "info",
		LogPretty:      true,
		Granularity:    "definition-line",
		Window:         19,
		DriftThreshold: 10 * time.Millisecond,
		DatabasePath:   "countprof.db",
	}
}

// Load builds the effective configuration: defaults overridden by
// COUNTPROF_* environment variables.
func Load() (*Config, error) {
	cfg := Default()
	if err := LoadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("load config from environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the profiler cannot run with.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	switch c.Granularity {
	case "definition-line", "current-line":
	default:
		return fmt.Errorf("invalid granularity %q (want definition-line or current-line)", c.Granularity)
	}
	if c.Window < 1 {
		return fmt.Errorf("window must be at least 1, got %d", c.Window)
	}
	if c.DriftThreshold < 0 {
		return fmt.Errorf("drift threshold must not be negative, got %s", c.DriftThreshold)
	}
	return nil
}
