package logger

import (
	"path/filepath"
	"testing"

	"github.com/dbsmedya/statsync/internal/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected string // String representation of zapcore.Level
	}{
		{"debug", "debug"},
		{"info", "info"},
		{"", "info"}, // empty defaults to info
		{"warn", "warn"},
		{"error", "error"},
		{"unknown", "info"}, // unknown defaults to info
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
		{
			name: "json format info level",
			cfg:  &config.LoggingConfig{Level: "info", Format: "json", Output: "stdout"},
		},
		{
			name: "text format debug level",
			cfg:  &config.LoggingConfig{Level: "debug", Format: "text", Output: "stdout"},
		},
		{
			name: "stderr output",
			cfg:  &config.LoggingConfig{Level: "error", Format: "text", Output: "stderr"},
		},
		{
			name: "file output",
			cfg:  &config.LoggingConfig{Level: "warn", Format: "json", Output: filepath.Join(t.TempDir(), "statsync.log")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := New(tt.cfg)
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			if log == nil {
				t.Fatal("New() returned nil logger")
			}
			log.Debug("debug message")
			log.Info("info message")
		})
	}
}

func TestNewDefault(t *testing.T) {
	log := NewDefault()
	if log == nil {
		t.Fatal("NewDefault() returned nil")
	}
}

func TestContextHelpers(t *testing.T) {
	log := NewDefault()

	withPath := log.WithPath("BE.BE0101.BE0101A.BefolkningNy")
	if withPath == nil {
		t.Fatal("WithPath() returned nil")
	}

	withTable := withPath.WithTable("be_be0101_be0101a_befolkningny")
	if withTable == nil {
		t.Fatal("WithTable() returned nil")
	}

	withChunk := withTable.WithChunk(3)
	if withChunk == nil {
		t.Fatal("WithChunk() returned nil")
	}

	withWorker := log.WithWorker("worker-1")
	if withWorker == nil {
		t.Fatal("WithWorker() returned nil")
	}

	// The derived loggers must not disturb the original.
	log.Info("original logger still usable")
}
