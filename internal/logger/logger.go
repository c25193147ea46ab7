// Package logger constructs the application's structured zap logger.
package logger

import (
	"strings"

	"go.uber.org/zap"
)

// Logger wraps a zap logger so callers can defer level selection to Init.
type Logger struct {
	// Log is the active zap logger. Before Init it is a no-op logger.
	Log *zap.Logger
}

// New returns a Logger with a no-op zap logger installed.
func New() *Logger {
	return &Logger{Log: zap.NewNop()}
}

// Init replaces the logger with a production logger at the given level.
// The level string is case-insensitive ("debug", "info", "warn", "error").
func (l *Logger) Init(level string) error {
	parsed, err := zap.ParseAtomicLevel(strings.ToLower(level))
	if err != nil {
		return err
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = parsed
	built, err := cfg.Build()
	if err != nil {
		return err
	}
	l.Log = built
	return nil
}
