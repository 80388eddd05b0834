package sitetree

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/hupe1980/sitetree/median"
)

// Logger wraps slog.Logger with sitetree-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return NewLogger(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	}))
}

// WithRun adds a run id field to the logger.
func (l *Logger) WithRun(runID string) *Logger {
	return &Logger{Logger: l.Logger.With("run", runID)}
}

// LogBuild logs a tree build.
func (l *Logger) LogBuild(ctx context.Context, stats BuildStats, err error) {
	if err != nil {
		l.ErrorContext(ctx, "build failed",
			"points", stats.Points,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "build completed",
		"points", stats.Points,
		"nodes", stats.Nodes,
		"leaves", stats.Leaves,
		"max_depth", stats.MaxDepth,
		"duration", stats.Duration,
	)
}

// LogRefusal logs a run that became a leaf, with the years that kept it
// from splitting when there are any.
func (l *Logger) LogRefusal(ctx context.Context, nodeID uint64, depth, size int, reason median.Reason, deficient []int) {
	attrs := []any{
		"node", nodeID,
		"depth", depth,
		"size", size,
		"reason", reason.String(),
	}
	if len(deficient) > 0 {
		attrs = append(attrs, "deficient_years", deficient)
	}
	l.DebugContext(ctx, "split refused", attrs...)
}

// LogSave logs a snapshot write.
func (l *Logger) LogSave(ctx context.Context, name string, bytes int64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "save failed",
			"name", name,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "snapshot saved",
		"name", name,
		"bytes", bytes,
	)
}

// LogLoad logs a snapshot read.
func (l *Logger) LogLoad(ctx context.Context, name string, bytes int64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "load failed",
			"name", name,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "snapshot loaded",
		"name", name,
		"bytes", bytes,
	)
}

// LogPublish logs a published run.
func (l *Logger) LogPublish(ctx context.Context, runID string, blobs int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "publish failed",
			"run", runID,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "run published",
		"run", runID,
		"blobs", blobs,
	)
}
