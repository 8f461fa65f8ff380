package instrument

import (
	"context"

	"github.com/go-logr/logr"
)

// SeverityKey is the log key used to mark Info entries that are warnings.
// logr has no warning level, and Error is reserved for operational faults.
const (
	SeverityKey     = "severity"
	SeverityWarning = "warning"
)

// Warn logs msg at Info level, marked as a warning.
func Warn(logger logr.Logger, msg string, keysAndValues ...any) {
	logger.Info(msg, append([]any{SeverityKey, SeverityWarning}, keysAndValues...)...)
}

// NewLoggerFunc returns a logger func that ignores the context.
func NewLoggerFunc(logger logr.Logger) func(ctx context.Context) logr.Logger {
	return func(ctx context.Context) logr.Logger {
		return logger
	}
}
