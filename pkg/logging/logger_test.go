package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name     string
		level    LogLevel
		expected zerolog.Level
	}{
		{"debug level", LevelDebug, zerolog.DebugLevel},
		{"info level", LevelInfo, zerolog.InfoLevel},
		{"warn level", LevelWarn, zerolog.WarnLevel},
		{"warning alias", LogLevel("warning"), zerolog.WarnLevel},
		{"error level", LevelError, zerolog.ErrorLevel},
		{"mixed case", LogLevel("DEBUG"), zerolog.DebugLevel},
		{"unknown defaults to info", LogLevel("verbose"), zerolog.InfoLevel},
		{"empty defaults to info", LogLevel(""), zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseLevel(tt.level); got != tt.expected {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.level, got, tt.expected)
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Level != LevelInfo {
		t.Errorf("default level = %q, want %q", cfg.Level, LevelInfo)
	}
	if cfg.Pretty {
		t.Error("default config should not be pretty")
	}
	if cfg.Output == nil {
		t.Error("default output should not be nil")
	}
}

func TestSetup_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup(Config{
		Level:  LevelDebug,
		Output: &buf,
	})

	logger.Info().Str("key", "value").Msg("test message")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if entry["message"] != "test message" {
		t.Errorf("message = %v, want %q", entry["message"], "test message")
	}
	if entry["key"] != "value" {
		t.Errorf("key field = %v, want %q", entry["key"], "value")
	}
	if _, ok := entry["time"]; !ok {
		t.Error("expected timestamp field in output")
	}
}

func TestSetup_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup(Config{
		Level:  LevelWarn,
		Output: &buf,
	})

	logger.Debug().Msg("should be filtered")
	logger.Info().Msg("should be filtered too")
	logger.Warn().Msg("should appear")

	out := buf.String()
	if strings.Contains(out, "filtered") {
		t.Errorf("output contains filtered messages: %s", out)
	}
	if !strings.Contains(out, "should appear") {
		t.Errorf("output missing warn message: %s", out)
	}
}

func TestNewLogger_ComponentField(t *testing.T) {
	var buf bytes.Buffer
	Setup(Config{Level: LevelDebug, Output: &buf})

	logger := NewLogger("request-queue")
	logger.Info().Msg("hello")

	if !strings.Contains(buf.String(), `"component":"request-queue"`) {
		t.Errorf("output missing component field: %s", buf.String())
	}
}
