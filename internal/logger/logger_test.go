package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/dbsmedya/legacymigrate/internal/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"debug", "debug"},
		{"info", "info"},
		{"", "info"},
		{"warn", "warn"},
		{"error", "error"},
		{"unknown", "info"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			level := parseLevel(tt.input)
			if level.String() != tt.expected {
				t.Errorf("parseLevel(%q) = %v, expected %v", tt.input, level.String(), tt.expected)
			}
		})
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name string
		cfg  *config.LoggingConfig
	}{
		{name: "json stdout", cfg: &config.LoggingConfig{Level: "info", Format: "json", Output: "stdout"}},
		{name: "text stderr", cfg: &config.LoggingConfig{Level: "debug", Format: "text", Output: "stderr"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.cfg)
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			if logger == nil || logger.SugaredLogger == nil {
				t.Fatal("expected non-nil logger")
			}
		})
	}
}

func TestNewWithPersistentFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "migrate.log")

	logger, err := New(&config.LoggingConfig{Level: "error", Format: "text", Output: "stderr", File: path})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	logger.WithUnit("object_picture").Debugw("target response", "body", `{"message":"invalid"}`)
	if err := logger.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "target response") {
		t.Errorf("debug entry must reach the file even at error console level, got %q", content)
	}
	if !strings.Contains(content, `"unit":"object_picture"`) {
		t.Errorf("expected unit field in file log, got %q", content)
	}
}

func TestNewWithUnwritableFile(t *testing.T) {
	_, err := New(&config.LoggingConfig{File: filepath.Join(t.TempDir(), "missing", "dir", "x.log")})
	if err == nil {
		t.Error("expected error for unwritable log file")
	}
}

func TestContextMethods(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := FromZap(zap.New(core))

	l.WithUnit("partner").WithPhase(1).WithRecord("mwnf3:museums:M1:jo").
		WithFields(map[string]interface{}{"lang": "en"}).Info("imported")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["unit"] != "partner" {
		t.Errorf("unexpected unit field %v", fields["unit"])
	}
	if fields["phase"] != int64(1) {
		t.Errorf("unexpected phase field %v (%T)", fields["phase"], fields["phase"])
	}
	if fields["record"] != "mwnf3:museums:M1:jo" {
		t.Errorf("unexpected record field %v", fields["record"])
	}
	if fields["lang"] != "en" {
		t.Errorf("unexpected lang field %v", fields["lang"])
	}
}

func TestNewDefaultAndNop(t *testing.T) {
	if NewDefault() == nil {
		t.Fatal("NewDefault returned nil")
	}
	nop := NewNop()
	nop.Info("discarded")
	if err := nop.Close(); err != nil {
		t.Errorf("Close() on nop logger = %v", err)
	}
}
