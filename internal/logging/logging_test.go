package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/vango-dev/signaltower/internal/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name    string
		want    slog.Level
		wantErr bool
	}{
		{"log", LevelLog, false},
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"off", LevelOff, false},
		{"loud", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLevel(tt.name)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestNewTextWithTag(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(config.LoggingConfig{Level: "info", Format: "text", Tag: "signals"}, &buf)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	logger.Debug("hidden")
	logger.Info("channel dispatched", "channel", "msg")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug record should be filtered: %q", out)
	}
	if !strings.Contains(out, "tag=signals") || !strings.Contains(out, "channel=msg") {
		t.Errorf("expected tag and channel attrs, got %q", out)
	}
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(config.LoggingConfig{Level: "log", Format: "json"}, &buf)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	logger.Debug("verbose")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("expected a JSON record, got %q: %v", buf.String(), err)
	}
	if record["msg"] != "verbose" {
		t.Errorf("msg = %v, want %q", record["msg"], "verbose")
	}
	if _, ok := record["tag"]; ok {
		t.Error("tag attr should be absent when no tag is configured")
	}
}

func TestNewOff(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(config.LoggingConfig{Level: "off"}, &buf)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	logger.Error("nothing")
	if buf.Len() != 0 {
		t.Errorf("expected no output, got %q", buf.String())
	}
}

func TestNewInvalid(t *testing.T) {
	if _, err := New(config.LoggingConfig{Level: "info", Format: "xml"}, &bytes.Buffer{}); err == nil {
		t.Error("expected error for unknown format")
	}
	if _, err := New(config.LoggingConfig{Level: "chatty"}, &bytes.Buffer{}); err == nil {
		t.Error("expected error for unknown level")
	}
}
