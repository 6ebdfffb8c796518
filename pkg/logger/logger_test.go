package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"garbage", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLogger_WritesJSONWithFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "info")
	log.With("component", "chat").Info("message sent", "client_id", "c1")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log output is not JSON: %v (%s)", err, buf.String())
	}
	if entry["msg"] != "message sent" {
		t.Errorf("expected msg=message sent, got %v", entry["msg"])
	}
	if entry["component"] != "chat" || entry["client_id"] != "c1" {
		t.Errorf("expected fields to be carried, got %v", entry)
	}
}

func TestLogger_ErrorIncludesStacktrace(t *testing.T) {
	var buf bytes.Buffer
	NewWithWriter(&buf, "info").Error("boom")
	if !strings.Contains(buf.String(), "stacktrace") {
		t.Errorf("expected stacktrace in error log, got %s", buf.String())
	}
}

func TestLogger_DebugSuppressedAtInfo(t *testing.T) {
	var buf bytes.Buffer
	NewWithWriter(&buf, "info").Debug("hidden")
	if buf.Len() != 0 {
		t.Errorf("expected debug to be suppressed, got %s", buf.String())
	}
}
