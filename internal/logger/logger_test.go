package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/neomorfeo/tenancyd/internal/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewWithWriter_JSONWithService(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, config.Logging{Level: "warn", Service: "tenancyd"})

	log.Info("dropped")
	log.Warn("lease operation failed", "lease_id", "l-1")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	if len(lines) != 1 {
		t.Fatalf("got %d records, want 1 (info should be filtered)", len(lines))
	}

	var rec map[string]any
	if err := json.Unmarshal(lines[0], &rec); err != nil {
		t.Fatalf("record is not JSON: %v", err)
	}
	if rec["service"] != "tenancyd" {
		t.Errorf("service = %v, want tenancyd", rec["service"])
	}
	if rec["lease_id"] != "l-1" {
		t.Errorf("lease_id = %v, want l-1", rec["lease_id"])
	}
	if rec["msg"] != "lease operation failed" {
		t.Errorf("msg = %v", rec["msg"])
	}
}
