package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"pocketforge/comet/pkg/config"
)

// TestNew_JSONFormat tests JSON output and level filtering.
func TestNew_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(config.LoggingConfig{Level: "warn", Format: "json"}, &buf)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	logger.Info("filtered out")
	logger.Warn("kept", "key", "value")

	out := buf.String()
	if strings.Contains(out, "filtered out") {
		t.Error("Expected info record filtered at warn level")
	}
	if !strings.Contains(out, "kept") {
		t.Error("Expected warn record in output")
	}

	var record map[string]interface{}
	if err := json.Unmarshal([]byte(strings.TrimSpace(out)), &record); err != nil {
		t.Fatalf("Expected valid JSON record, got %q: %v", out, err)
	}
	if record["key"] != "value" {
		t.Errorf("Expected attribute key=value, got %v", record["key"])
	}
}

// TestNew_TextFormat tests the text handler path.
func TestNew_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(config.LoggingConfig{Level: "info", Format: "text"}, &buf)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	logger.Info("hello", "n", 42)
	if !strings.Contains(buf.String(), "n=42") {
		t.Errorf("Expected text attribute n=42, got %q", buf.String())
	}
}

// TestNew_Defaults tests that empty level and format are accepted.
func TestNew_Defaults(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(config.LoggingConfig{}, &buf)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	logger.Debug("below default level")
	logger.Info("at default level")

	if strings.Contains(buf.String(), "below default level") {
		t.Error("Expected debug filtered at default info level")
	}
	if !strings.Contains(buf.String(), "at default level") {
		t.Error("Expected info record in output")
	}
}

// TestNew_InvalidConfig tests rejection of bad level and format.
func TestNew_InvalidConfig(t *testing.T) {
	if _, err := New(config.LoggingConfig{Level: "trace"}, nil); err == nil {
		t.Error("Expected error for unknown level, got nil")
	}
	if _, err := New(config.LoggingConfig{Format: "xml"}, nil); err == nil {
		t.Error("Expected error for unknown format, got nil")
	}
}

// TestParseLevel tests level name mapping.
func TestParseLevel(t *testing.T) {
	tests := []struct {
		name string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
	}

	for _, tt := range tests {
		got, err := ParseLevel(tt.name)
		if err != nil {
			t.Errorf("ParseLevel(%q) failed: %v", tt.name, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q): expected %v, got %v", tt.name, tt.want, got)
		}
	}

	if _, err := ParseLevel("verbose"); err == nil {
		t.Error("Expected error for unknown level, got nil")
	}
}

// TestComponent tests the component tagging convention.
func TestComponent(t *testing.T) {
	var buf bytes.Buffer
	base, err := New(config.LoggingConfig{Format: "json"}, &buf)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	Component(base, "cache.store").Info("tagged")

	var record map[string]interface{}
	if err := json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &record); err != nil {
		t.Fatalf("Expected valid JSON record: %v", err)
	}
	if record["component"] != "cache.store" {
		t.Errorf("Expected component cache.store, got %v", record["component"])
	}
}
