package observability

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestInitLogger_Development(t *testing.T) {
	InitLogger(false)

	if Logger == nil {
		t.Error("Logger should not be nil after initialization")
	}
}

func TestInitLogger_Production(t *testing.T) {
	InitLogger(true)

	if Logger == nil {
		t.Error("Logger should not be nil after initialization")
	}
}

func TestInitLoggerWithLevel(t *testing.T) {
	InitLoggerWithLevel(false, slog.LevelDebug)

	if Logger == nil {
		t.Error("Logger should not be nil after initialization")
	}
}

func TestWithContext(t *testing.T) {
	Logger = nil // Reset
	ctx := context.Background()
	logger := WithContext(ctx)

	if logger == nil {
		t.Error("WithContext should not return nil")
	}
}

func TestLoggingFunctions(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	Logger = slog.New(handler)

	t.Run("Info", func(t *testing.T) {
		buf.Reset()
		Info("test info message", "key", "value")
		if !strings.Contains(buf.String(), "test info message") {
			t.Error("Info should log the message")
		}
		if !strings.Contains(buf.String(), "key=value") {
			t.Error("Info should log the key-value pair")
		}
	})

	t.Run("Warn", func(t *testing.T) {
		buf.Reset()
		Warn("test warn message", "warning_key", "warning_value")
		if !strings.Contains(buf.String(), "WARN") {
			t.Error("Warn should log at WARN level")
		}
	})

	t.Run("Error", func(t *testing.T) {
		buf.Reset()
		Error("test error message", "error_key", "error_value")
		if !strings.Contains(buf.String(), "ERROR") {
			t.Error("Error should log at ERROR level")
		}
	})

	t.Run("Debug", func(t *testing.T) {
		buf.Reset()
		Debug("test debug message", "debug_key", "debug_value")
		if !strings.Contains(buf.String(), "DEBUG") {
			t.Error("Debug should log at DEBUG level")
		}
	})
}

func TestWithSymbol(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewTextHandler(&buf, nil)
	Logger = slog.New(handler)

	logger := WithSymbol("RELIANCE")
	logger.Info("test message")

	if !strings.Contains(buf.String(), "symbol=RELIANCE") {
		t.Error("WithSymbol should add symbol field to logger")
	}
}

func TestWithConversation(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewTextHandler(&buf, nil)
	Logger = slog.New(handler)

	logger := WithConversation("3f1c7a9e")
	logger.Info("test message")

	if !strings.Contains(buf.String(), "conversation_id=3f1c7a9e") {
		t.Error("WithConversation should add conversation_id field to logger")
	}
}
