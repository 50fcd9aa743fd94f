package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pnger/internal/config"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"info", LevelInfo, false},
		{"", LevelInfo, false},
		{"warn", LevelWarn, false},
		{"warning", LevelWarn, false},
		{"ERROR", LevelError, false},
		{"loud", LevelInfo, true},
	}
	for _, tc := range cases {
		got, err := ParseLevel(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseLevel(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseLevel(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "pnger.log")
	logger, closer, err := New(config.LoggingConfig{Level: "info", Format: "json", Output: path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Info("embedded payload", "carrier", "test.png", "bytes", 42)
	if closer != nil {
		closer.Close()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), `"carrier":"test.png"`) {
		t.Fatalf("log output missing attribute: %s", data)
	}
}

func TestSecretsRedacted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pnger.log")
	logger, closer, err := New(config.LoggingConfig{Level: "debug", Format: "text", Output: path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Info("derived key", "password", "hunter2", "salt", "abcdef")
	if closer != nil {
		closer.Close()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	out := string(data)
	if strings.Contains(out, "hunter2") || strings.Contains(out, "abcdef") {
		t.Fatalf("secret leaked into log: %s", out)
	}
	if !strings.Contains(out, "[REDACTED]") {
		t.Fatalf("expected redaction marker in: %s", out)
	}
}

func TestBadLevelRejected(t *testing.T) {
	_, _, err := New(config.LoggingConfig{Level: "loud"})
	if err == nil {
		t.Fatal("expected error for unknown level")
	}
}
