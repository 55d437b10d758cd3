// Package testutil provides test doubles for the profiler: quiet loggers, a
// virtual clock, and a scriptable host driver.
package testutil

import (
	"testing"

	"github.com/rs/zerolog"
)

// NewTestLogger returns a logger that discards output.
// Use NewTestLoggerWithOutput to log to t.Log().
func NewTestLogger(t *testing.T) zerolog.Logger {
	t.Helper()
	return zerolog.Nop()
}

// NewTestLoggerWithOutput returns a logger that writes to t.Log().
func NewTestLoggerWithOutput(t *testing.T) zerolog.Logger {
	return zerolog.New(&testLogWriter{t: t}).With().Timestamp().Logger()
}

// testLogWriter wraps testing.T to implement io.Writer.
type testLogWriter struct {
	t *testing.T
}

func (w *testLogWriter) Write(p []byte) (n int, err error) {
	w.t.Log(string(p))
	return len(p), nil
}
