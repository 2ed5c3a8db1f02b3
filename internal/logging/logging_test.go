package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

// captureLogOutput redirects the package logger to a buffer for the
// duration of f.
func captureLogOutput(f func()) string {
	var buf bytes.Buffer
	oldLogger := defaultLogger
	defaultLogger = slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	f()
	defaultLogger = oldLogger
	return buf.String()
}

func TestLevels(t *testing.T) {
	out := captureLogOutput(func() {
		Debug("debug message", "key", "value")
		Info("info message")
		Warn("warn message")
		Error("error message")
	})
	for _, want := range []string{"debug message", "info message", "warn message", "error message"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestStructuredFields(t *testing.T) {
	out := captureLogOutput(func() {
		Info("document stored", "id", "abc", "spans", 42)
	})
	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(strings.TrimSpace(out)), &entry); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if entry["id"] != "abc" {
		t.Errorf("id = %v, want abc", entry["id"])
	}
	if entry["spans"] != float64(42) {
		t.Errorf("spans = %v, want 42", entry["spans"])
	}
}

func TestWith(t *testing.T) {
	out := captureLogOutput(func() {
		With("component", "storage").Info("opened")
	})
	if !strings.Contains(out, "storage") {
		t.Errorf("output missing component field:\n%s", out)
	}
}

func TestGetLoggerNotNil(t *testing.T) {
	if GetLogger() == nil {
		t.Fatal("GetLogger() = nil")
	}
}
