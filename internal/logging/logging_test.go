package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Level != LevelInfo {
		t.Errorf("Expected default level %s, got %s", LevelInfo, cfg.Level)
	}
	if cfg.Format != FormatText {
		t.Errorf("Expected default format %s, got %s", FormatText, cfg.Format)
	}
	if cfg.Output != "stderr" {
		t.Errorf("Expected default output 'stderr', got '%s'", cfg.Output)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   LogLevel
		want slog.Level
	}{
		{LevelDebug, slog.LevelDebug},
		{LevelInfo, slog.LevelInfo},
		{LevelWarn, slog.LevelWarn},
		{"WARNING", slog.LevelWarn},
		{LevelError, slog.LevelError},
		{"bogus", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(string(tt.in), func(t *testing.T) {
			if got := ParseLevel(tt.in); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestJSONFormatFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(Config{Level: LevelDebug, Format: FormatJSON}, &buf)

	logger.WithSession("abc").InfoEnumeration("host enumerated", "10.0.0.5", "open_ports", 3)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v (%s)", err, buf.String())
	}
	if entry["session_id"] != "abc" {
		t.Errorf("Expected session_id 'abc', got %v", entry["session_id"])
	}
	if entry["stage"] != "enumeration" {
		t.Errorf("Expected stage 'enumeration', got %v", entry["stage"])
	}
	if entry["host"] != "10.0.0.5" {
		t.Errorf("Expected host '10.0.0.5', got %v", entry["host"])
	}
	if entry["open_ports"] != float64(3) {
		t.Errorf("Expected open_ports 3, got %v", entry["open_ports"])
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(Config{Level: LevelWarn, Format: FormatText}, &buf)

	logger.DebugProbe("no reply", "10.0.0.1", errors.New("timeout"))
	logger.InfoDiscovery("live host", "10.0.0.0/24")
	if buf.Len() != 0 {
		t.Errorf("Expected no output below warn, got %q", buf.String())
	}

	logger.Warn("candidate list truncated")
	if !strings.Contains(buf.String(), "candidate list truncated") {
		t.Errorf("Expected warn output, got %q", buf.String())
	}
}

func TestFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "netsweep.log")
	logger, err := New(Config{Level: LevelInfo, Format: FormatText, Output: path})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	logger.WithComponent("engine").Info("scan complete")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), "component=engine") {
		t.Errorf("Expected component field in %q", string(data))
	}
}

func TestSetAndGetDefault(t *testing.T) {
	original := Default()
	defer SetDefault(original)

	var buf bytes.Buffer
	SetDefault(NewWithWriter(Config{Level: LevelDebug}, &buf))

	Debug("debug line")
	Info("info line")
	Warn("warn line")
	Error("error line")

	out := buf.String()
	for _, want := range []string{"debug line", "info line", "warn line", "error line"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in output", want)
		}
	}
}

func TestDiscard(t *testing.T) {
	logger := Discard()
	logger.WithHost("10.0.0.1").WithError(errors.New("x")).Error("dropped")
}
