// Package logging provides structured logging using Go's slog package.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

const (
	// ExportIDKey is the context key for the export run identifier.
	ExportIDKey ContextKey = "export_id"
)

var (
	// defaultLogger is the global logger instance.
	defaultLogger *slog.Logger
)

func init() {
	InitLogger(LevelInfo, FormatText)
}

// Level represents a log level.
type Level int

const (
	// LevelDebug is for debug messages.
	LevelDebug Level = iota
	// LevelInfo is for informational messages.
	LevelInfo
	// LevelWarn is for warning messages.
	LevelWarn
	// LevelError is for error messages.
	LevelError
)

// Format represents a log output format.
type Format int

const (
	// FormatJSON outputs logs in JSON format.
	FormatJSON Format = iota
	// FormatText outputs logs in human-readable text format.
	FormatText
)

// ParseLevel converts a level name ("debug", "info", "warn", "error").
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	}
	return LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// ParseFormat converts a format name ("json", "text").
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "json":
		return FormatJSON, nil
	case "text", "":
		return FormatText, nil
	}
	return FormatText, fmt.Errorf("unknown log format %q", s)
}

// InitLogger initializes the global logger on stderr.
func InitLogger(level Level, format Format) {
	InitLoggerTo(os.Stderr, level, format)
}

// InitLoggerTo initializes the global logger writing to w.
func InitLoggerTo(w io.Writer, level Level, format Format) {
	var slogLevel slog.Level
	switch level {
	case LevelDebug:
		slogLevel = slog.LevelDebug
	case LevelInfo:
		slogLevel = slog.LevelInfo
	case LevelWarn:
		slogLevel = slog.LevelWarn
	case LevelError:
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: slogLevel,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.String(slog.TimeKey, a.Value.Time().Format(time.RFC3339))
			}
			return a
		},
	}

	var handler slog.Handler
	if format == FormatJSON {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	defaultLogger = slog.New(handler)
	slog.SetDefault(defaultLogger)
}

// WithExportID adds the export run identifier to the context.
func WithExportID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ExportIDKey, id)
}

// GetExportID retrieves the export run identifier from the context.
func GetExportID(ctx context.Context) string {
	if id, ok := ctx.Value(ExportIDKey).(string); ok {
		return id
	}
	return ""
}

// LoggerFromContext returns a logger with context values attached.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	logger := defaultLogger
	if id := GetExportID(ctx); id != "" {
		logger = logger.With("export_id", id)
	}
	return logger
}

// Info logs an info message with optional key-value pairs.
func Info(msg string, args ...any) {
	defaultLogger.Info(msg, args...)
}

// Warn logs a warning message with optional key-value pairs.
func Warn(msg string, args ...any) {
	defaultLogger.Warn(msg, args...)
}

// Step logs the start or end of a pipeline step.
func Step(ctx context.Context, step, phase string, args ...any) {
	allArgs := []any{
		"step", step,
		"phase", phase,
	}
	allArgs = append(allArgs, args...)
	LoggerFromContext(ctx).Debug("export_step", allArgs...)
}

// Artifact logs a written artifact.
func Artifact(ctx context.Context, path, category string, sizeBytes int64, args ...any) {
	allArgs := []any{
		"path", path,
		"category", category,
		"size_bytes", sizeBytes,
	}
	allArgs = append(allArgs, args...)
	LoggerFromContext(ctx).Debug("artifact_written", allArgs...)
}

// OptionalTableMissing logs an optional table that was substituted with an
// empty result set.
func OptionalTableMissing(ctx context.Context, table string) {
	LoggerFromContext(ctx).Debug("optional_table_missing", "table", table)
}

// StepError logs a failed pipeline step.
func StepError(ctx context.Context, step string, err error, args ...any) {
	allArgs := []any{
		"step", step,
		"error", err.Error(),
	}
	allArgs = append(allArgs, args...)
	LoggerFromContext(ctx).Error("export_step_failed", allArgs...)
}
