package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name    string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"info", slog.LevelInfo, false},
		{"DEBUG", slog.LevelDebug, false},
		{"warn", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLevel(tt.name)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestNew_AutoFormatNonTerminalIsJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, Options{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	logger.Info("refresh", slog.String("status", "ok"))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v (%s)", err, buf.String())
	}
	if entry["status"] != "ok" {
		t.Errorf("status = %v, want ok", entry["status"])
	}
}

func TestNew_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, Options{Format: "text", Level: "debug"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	logger.Debug("skipped", slog.String("reason", "empty"))

	if !strings.Contains(buf.String(), "reason=empty") {
		t.Errorf("text output missing attribute: %s", buf.String())
	}
}

func TestNew_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, Options{Format: "text", Level: "warn"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	logger.Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("info message logged at warn level: %s", buf.String())
	}
}

func TestNew_InvalidFormat(t *testing.T) {
	if _, err := New(&bytes.Buffer{}, Options{Format: "xml"}); err == nil {
		t.Error("New() expected error for unknown format")
	}
}
