package observability

import (
	"context"
	"log/slog"
	"os"
)

// Logger is the global logger instance
var Logger *slog.Logger

// InitLogger initializes the global logger with the appropriate handler.
// For production, use JSON format; for development, use text format.
func InitLogger(production bool) {
	InitLoggerWithLevel(production, slog.LevelInfo)
}

// InitLoggerWithLevel initializes the logger with a specific log level
func InitLoggerWithLevel(production bool, level slog.Level) {
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if production {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	Logger = slog.New(handler)
	slog.SetDefault(Logger)
}

func ensure() *slog.Logger {
	if Logger == nil {
		InitLogger(false)
	}
	return Logger
}

// WithContext returns a logger with context fields
func WithContext(ctx context.Context) *slog.Logger {
	return ensure()
}

// Info logs an info message
func Info(msg string, args ...any) {
	ensure().Info(msg, args...)
}

// Warn logs a warning message
func Warn(msg string, args ...any) {
	ensure().Warn(msg, args...)
}

// Error logs an error message
func Error(msg string, args ...any) {
	ensure().Error(msg, args...)
}

// Debug logs a debug message
func Debug(msg string, args ...any) {
	ensure().Debug(msg, args...)
}

// Fatal logs an error message and exits
func Fatal(msg string, args ...any) {
	ensure().Error(msg, args...)
	os.Exit(1)
}

// WithSymbol returns a logger with symbol field
func WithSymbol(symbol string) *slog.Logger {
	return ensure().With("symbol", symbol)
}

// WithConversation returns a logger with conversation id field
func WithConversation(conversationID string) *slog.Logger {
	return ensure().With("conversation_id", conversationID)
}

// WithError returns a logger with error field
func WithError(err error) *slog.Logger {
	return ensure().With("error", err)
}
