package lexrag

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with lexrag-specific context.
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
	return &Logger{Logger: slog.New(handler)}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
func NewJSONLogger(level slog.Level) *Logger {
	return &Logger{Logger: slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))}
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	}))}
}

// WithDocument adds the source document path to the logger.
func (l *Logger) WithDocument(path string) *Logger {
	return &Logger{Logger: l.Logger.With("document", path)}
}

// LogIngest logs one document ingestion.
func (l *Logger) LogIngest(ctx context.Context, path string, chunks int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "ingestion failed",
			"document", path,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "ingestion completed",
			"document", path,
			"chunks", chunks,
		)
	}
}

// LogQuery logs one retrieval-augmented query.
func (l *Logger) LogQuery(ctx context.Context, k, sources int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "query failed",
			"k", k,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "query completed",
			"k", k,
			"sources", sources,
		)
	}
}

// LogSnapshot logs an index persistence operation.
func (l *Logger) LogSnapshot(ctx context.Context, name string, count int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "snapshot failed",
			"name", name,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "snapshot saved",
			"name", name,
			"vectors", count,
		)
	}
}

// LogLoad logs an index load from durable storage.
func (l *Logger) LogLoad(ctx context.Context, name string, count int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "index load failed",
			"name", name,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "index loaded",
			"name", name,
			"vectors", count,
		)
	}
}
