package common

import "context"

// Log levels understood by every Logger implementation
const (
	LevelDebug   = "DEBUG"
	LevelInfo    = "INFO"
	LevelWarning = "WARNING"
	LevelError   = "ERROR"
)

// Logger provides structured logging for simulation components
type Logger interface {
	Log(level, message string, metadata map[string]interface{})
}

// Context keys for passing logger through context
type contextKey int

const (
	loggerKey contextKey = iota
)

// WithLogger adds a logger to the context
func WithLogger(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// LoggerFromContext extracts the logger from context, or returns a no-op logger if not found
func LoggerFromContext(ctx context.Context) Logger {
	if logger, ok := ctx.Value(loggerKey).(Logger); ok {
		return logger
	}
	return &noOpLogger{}
}

// OrNoOp returns logger, or a no-op logger when logger is nil
func OrNoOp(logger Logger) Logger {
	if logger == nil {
		return &noOpLogger{}
	}
	return logger
}

// noOpLogger is a logger that does nothing (fallback when no logger is configured)
type noOpLogger struct{}

func (l *noOpLogger) Log(string, string, map[string]interface{}) {}
