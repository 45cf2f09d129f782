// Package log provides a structured logging interface for the obesity
// classification pipeline.
//
// The interface is slog-compatible so the backend can be switched without
// touching callers. The default backend is log/slog wrapped by ErrFmtHandler;
// warnings raised through pkg/errors are routed to zerolog (see NewWarnLogger).
//
// Example usage:
//
//	logger := log.GetLogger().With(
//	    log.ModelNameKey, "RandomForestClassifier",
//	    log.ComponentKey, "ensemble",
//	)
//	logger.Info("Training started",
//	    log.OperationKey, log.OperationFit,
//	    log.SamplesKey, 1660,
//	    log.FeaturesKey, 31,
//	)
package log

import (
	"context"
)

// Logger defines a structured logging interface compatible with Go's log/slog.
//
// The With method returns a contextual logger that carries its fields into
// every subsequent message.
type Logger interface {
	// Debug logs a debug-level message with optional key-value fields.
	Debug(msg string, fields ...any)

	// Info logs an info-level message with optional key-value fields.
	//
	// Example:
	//   logger.Info("Validation finished",
	//       log.AccuracyKey, 0.9012,
	//   )
	Info(msg string, fields ...any)

	// Warn logs a warning-level message with optional key-value fields.
	Warn(msg string, fields ...any)

	// Error logs an error-level message with optional key-value fields.
	// Pass the error under ErrAttrKey so that ErrFmtHandler can attach the
	// stack trace captured by cockroachdb/errors.
	//
	// Example:
	//   logger.Error("Stage failed",
	//       log.ErrAttrKey, err,
	//       log.StageKey, "ReconcileSchema",
	//   )
	Error(msg string, fields ...any)

	// With returns a new Logger with the given fields pre-populated.
	With(fields ...any) Logger

	// Enabled reports whether the logger emits log records at the given level.
	Enabled(ctx context.Context, level Level) bool
}

// Level represents a logging level, compatible with slog.Level.
type Level int

// Standard logging levels, values are compatible with slog.Level.
const (
	LevelDebug Level = -4 // Detailed diagnostic information
	LevelInfo  Level = 0  // General operational information
	LevelWarn  Level = 4  // Warning conditions
	LevelError Level = 8  // Error conditions
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}
