package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/andrescamacho/pharmasim-go/internal/application/common"
	"github.com/andrescamacho/pharmasim-go/internal/infrastructure/config"
)

// ConsoleLogger writes simulation logs through log/slog
type ConsoleLogger struct {
	logger *slog.Logger
	closer io.Closer
}

// NewConsoleLogger builds a logger writing to w with the given format and level
func NewConsoleLogger(w io.Writer, format, level string, addSource bool) *ConsoleLogger {
	opts := &slog.HandlerOptions{Level: parseLevel(level), AddSource: addSource}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return &ConsoleLogger{logger: slog.New(handler)}
}

// NewConsoleLoggerFromConfig opens the configured output
func NewConsoleLoggerFromConfig(cfg config.LoggingConfig) (*ConsoleLogger, error) {
	var (
		w      io.Writer
		closer io.Closer
	)
	switch cfg.Output {
	case "stdout":
		w = os.Stdout
	case "file":
		f, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		w, closer = f, f
	default:
		w = os.Stderr
	}

	l := NewConsoleLogger(w, cfg.Format, cfg.Level, cfg.IncludeCaller)
	l.closer = closer
	return l, nil
}

// Log implements common.Logger
func (l *ConsoleLogger) Log(level, message string, metadata map[string]interface{}) {
	l.logger.Log(context.Background(), toSlogLevel(level), message, attrs(metadata)...)
}

// Close releases the log file, if any
func (l *ConsoleLogger) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

// attrs flattens metadata in key order so output is stable
func attrs(metadata map[string]interface{}) []any {
	if len(metadata) == 0 {
		return nil
	}
	keys := make([]string, 0, len(metadata))
	for k := range metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]any, 0, len(keys))
	for _, k := range keys {
		out = append(out, slog.Any(k, metadata[k]))
	}
	return out
}

func toSlogLevel(level string) slog.Level {
	switch level {
	case common.LevelDebug:
		return slog.LevelDebug
	case common.LevelWarning:
		return slog.LevelWarn
	case common.LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

var _ common.Logger = (*ConsoleLogger)(nil)
