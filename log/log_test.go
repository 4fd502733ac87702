package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

func TestLogger_Make_DefaultConfiguration(t *testing.T) {
	var buf bytes.Buffer
	logger := Make(&buf)

	if logger.config.level != LevelInfo {
		t.Errorf("expected default level Info, got %v", logger.config.level)
	}
	if logger.config.caller {
		t.Error("expected caller info disabled by default")
	}
	if logger.config.format != FormatJSON {
		t.Errorf("expected default format JSON, got %v", logger.config.format)
	}
}

func TestLogger_Make_WithLevel_FiltersMessages(t *testing.T) {
	var buf bytes.Buffer
	logger := Make(&buf, WithLevel(LevelDebug))

	logger.Debug("debug message")
	if !strings.Contains(buf.String(), "debug message") {
		t.Error("debug message not logged after setting level to Debug")
	}

	buf.Reset()
	logger2 := Make(&buf, WithLevel(LevelError))
	logger2.Info("info message")
	if buf.Len() > 0 {
		t.Error("info message logged when level is Error")
	}

	logger2.Error("error message")
	if !strings.Contains(buf.String(), "error message") {
		t.Error("error message not logged at Error level")
	}
}

func TestLogger_Trace_BelowDebug(t *testing.T) {
	var buf bytes.Buffer

	logger := Make(&buf, WithLevel(LevelDebug))
	logger.Trace("trace message")
	if buf.Len() > 0 {
		t.Error("trace message logged at Debug level")
	}

	buf.Reset()
	logger = Make(&buf, WithLevel(LevelTrace))
	logger.Trace("trace message")
	if !strings.Contains(buf.String(), "trace message") {
		t.Error("trace message not logged at Trace level")
	}
}

func TestLogger_Make_WithFormat_SetsOutputFormat(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		logger := Make(&buf, WithFormat(FormatJSON))
		logger.Info("test message", slog.String("key", "value"))

		var result map[string]any
		if err := json.Unmarshal(buf.Bytes(), &result); err != nil {
			t.Fatalf("failed to parse JSON output: %v", err)
		}
		if result["msg"] != "test message" {
			t.Errorf("expected msg=test message, got %v", result["msg"])
		}
		if result["key"] != "value" {
			t.Errorf("expected key=value, got %v", result["key"])
		}
	})

	t.Run("text", func(t *testing.T) {
		var buf bytes.Buffer
		logger := Make(&buf, WithFormat(FormatText), WithPretty(false))
		logger.Info("test message", slog.String("key", "value"))

		output := buf.String()
		if !strings.Contains(output, "msg=\"test message\"") {
			t.Errorf("text output missing message: %s", output)
		}
		if !strings.Contains(output, "key=value") {
			t.Errorf("text output missing attribute: %s", output)
		}
	})
}

func TestLogger_Make_WithCaller_IncludesSource(t *testing.T) {
	var buf bytes.Buffer
	logger := Make(&buf, WithCaller(true))
	logger.Info("test message")

	if !strings.Contains(buf.String(), "source") {
		t.Error("caller info not included when enabled")
	}

	buf.Reset()
	logger2 := Make(&buf, WithCaller(false))
	logger2.Info("test message")

	if strings.Contains(buf.String(), "source") {
		t.Error("caller info included when disabled")
	}
}

func TestLogger_Wrap_OverridesConfig(t *testing.T) {
	var base, wrapped bytes.Buffer

	logger := Make(&base, WithLevel(LevelError))

	quiet := logger.Wrap(WithWriter(&wrapped), WithLevel(LevelDebug))
	quiet.Debug("wrapped message")

	if base.Len() > 0 {
		t.Error("wrapped logger wrote to the base writer")
	}
	if !strings.Contains(wrapped.String(), "wrapped message") {
		t.Error("wrapped logger did not honor the overridden level")
	}

	// The original logger keeps its configuration.
	if logger.Level() != LevelError {
		t.Errorf("base level changed to %v", logger.Level())
	}
}

func TestLogger_With_AddsAttributes(t *testing.T) {
	var buf bytes.Buffer

	logger := Make(&buf).With(slog.String("component", "engine"))
	logger.Info("hello")

	var result map[string]any
	if err := json.Unmarshal(buf.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON output: %v", err)
	}
	if result["component"] != "engine" {
		t.Errorf("expected component=engine, got %v", result["component"])
	}
}

func TestLogger_ZeroValue_IsSilent(t *testing.T) {
	var logger Logger

	// Must not panic.
	logger.Info("into the void")
	logger.Error("still nothing")

	if logger.Level() != DefaultLevel {
		t.Errorf("zero logger level = %v, want default", logger.Level())
	}
	if logger.Format() != DefaultFormat {
		t.Errorf("zero logger format = %v, want default", logger.Format())
	}
}

func TestLogger_ConcurrentUse(t *testing.T) {
	var buf bytes.Buffer

	logger := Make(&buf)

	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for j := 0; j < 50; j++ {
				_ = logger.Wrap(WithLevel(LevelDebug)).Level()
				_ = logger.Format()
			}
		}()
	}

	wg.Wait()
}
