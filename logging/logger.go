// Package logging provides the structured logger shared by the vecmod packages.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with vecmod-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// New creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func New(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSON creates a Logger that outputs JSON-formatted logs to stderr.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSON(level slog.Level) *Logger {
	return New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NewText creates a Logger that outputs human-readable text logs to stderr.
func NewText(level slog.Level) *Logger {
	return New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// Noop creates a Logger that discards all log output.
func Noop() *Logger {
	return New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	}))
}

// OrNoop returns l, or a discarding logger if l is nil.
func OrNoop(l *Logger) *Logger {
	if l == nil {
		return Noop()
	}
	return l
}

// WithModule adds a module name field to the logger.
func (l *Logger) WithModule(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("module", name),
	}
}

// WithPath adds a module path field to the logger.
func (l *Logger) WithPath(path string) *Logger {
	return &Logger{
		Logger: l.Logger.With("path", path),
	}
}

// WithType adds an index type field to the logger.
func (l *Logger) WithType(typeName string) *Logger {
	return &Logger{
		Logger: l.Logger.With("type", typeName),
	}
}

// LogLoad logs a module load attempt.
func (l *Logger) LogLoad(ctx context.Context, path, name, version string, elapsed time.Duration, err error) {
	if err != nil {
		l.WarnContext(ctx, "module load failed",
			"path", path,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "module loaded",
		"path", path,
		"module", name,
		"version", version,
		"elapsed", elapsed,
	)
}

// LogUnload logs a module unload.
func (l *Logger) LogUnload(ctx context.Context, name string, err error) {
	if err != nil {
		l.WarnContext(ctx, "module unload failed",
			"module", name,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "module unloaded",
		"module", name,
	)
}

// LogRegister logs the registration of a module-provided index type.
func (l *Logger) LogRegister(ctx context.Context, name, registered string, err error) {
	if err != nil {
		l.WarnContext(ctx, "module registration failed",
			"module", name,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "module registered",
		"module", name,
		"registered_name", registered,
	)
}

// LogBuild logs an index build.
func (l *Logger) LogBuild(ctx context.Context, rows, dim int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "build failed",
			"rows", rows,
			"dimension", dim,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "build completed",
		"rows", rows,
		"dimension", dim,
	)
}

// LogSearch logs a search operation.
func (l *Logger) LogSearch(ctx context.Context, queries, k int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "search failed",
			"queries", queries,
			"k", k,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "search completed",
		"queries", queries,
		"k", k,
	)
}
