package config

import (
	"strings"
	"testing"
)

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.Database.Host = "localhost"
	cfg.Database.User = "postgres"
	cfg.Database.Password = "secret"
	cfg.Database.Database = "statsync"
	return cfg
}

func TestValidConfig(t *testing.T) {
	cfg := validConfig()

	if err := cfg.Validate(); err != nil {
		t.Errorf("expected no validation errors, got: %v", err)
	}
}

func TestMissingDatabaseHost(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Host = ""

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error for missing database host")
	}
	if !strings.Contains(err.Error(), "database.host") {
		t.Errorf("expected error to mention database.host, got: %v", err)
	}
}

func TestInvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Port = 70000

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error for invalid port")
	}
	if !strings.Contains(err.Error(), "database.port") {
		t.Errorf("expected error to mention database.port, got: %v", err)
	}
}

func TestNonPositiveRowBudget(t *testing.T) {
	cfg := validConfig()
	cfg.API.RowBudget = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error for zero row budget")
	}
	if !strings.Contains(err.Error(), "api.row_budget") {
		t.Errorf("expected error to mention api.row_budget, got: %v", err)
	}
}

func TestUnknownLogLevel(t *testing.T) {
	cfg := validConfig()
	cfg.Logging.Level = "verbose"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error for unknown log level")
	}
	if !strings.Contains(err.Error(), "logging.level") {
		t.Errorf("expected error to mention logging.level, got: %v", err)
	}
}

func TestMultipleErrorsCollected(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Host = ""
	cfg.Database.User = ""
	cfg.Scheduling.BatchSize = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation errors")
	}

	verrs, ok := err.(ValidationErrors)
	if !ok {
		t.Fatalf("expected ValidationErrors, got %T", err)
	}
	if len(verrs) != 3 {
		t.Errorf("expected 3 validation errors, got %d: %v", len(verrs), verrs)
	}
}
