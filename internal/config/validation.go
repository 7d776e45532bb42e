package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

// Validate checks the configuration for required fields and valid values.
func (c *Config) Validate() error {
	var errors ValidationErrors

	errors = append(errors, c.validateAPI()...)
	errors = append(errors, c.validateDatabase()...)
	errors = append(errors, c.validateScheduling()...)
	errors = append(errors, c.validateLogging()...)

	if len(errors) > 0 {
		return errors
	}
	return nil
}

func (c *Config) validateAPI() ValidationErrors {
	var errors ValidationErrors

	if c.API.BaseURL == "" {
		errors = append(errors, ValidationError{
			Field:   "api.base_url",
			Message: "base URL is required",
		})
	}
	if c.API.Locale == "" {
		errors = append(errors, ValidationError{
			Field:   "api.locale",
			Message: "locale is required",
		})
	}
	if c.API.RowBudget <= 0 {
		errors = append(errors, ValidationError{
			Field:   "api.row_budget",
			Message: "row budget must be positive",
		})
	}
	if c.API.PaceEvery <= 0 {
		errors = append(errors, ValidationError{
			Field:   "api.pace_every",
			Message: "pace_every must be positive",
		})
	}
	if c.API.MaxAttempts <= 0 {
		errors = append(errors, ValidationError{
			Field:   "api.max_attempts",
			Message: "max_attempts must be positive",
		})
	}
	if c.API.PaceSeconds < 0 || c.API.CrawlDelaySeconds < 0 || c.API.RetryDelaySeconds < 0 {
		errors = append(errors, ValidationError{
			Field:   "api",
			Message: "delays must not be negative",
		})
	}

	return errors
}

func (c *Config) validateDatabase() ValidationErrors {
	var errors ValidationErrors

	if c.Database.Host == "" {
		errors = append(errors, ValidationError{
			Field:   "database.host",
			Message: "host is required",
		})
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		errors = append(errors, ValidationError{
			Field:   "database.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", c.Database.Port),
		})
	}
	if c.Database.User == "" {
		errors = append(errors, ValidationError{
			Field:   "database.user",
			Message: "user is required",
		})
	}
	if c.Database.Database == "" {
		errors = append(errors, ValidationError{
			Field:   "database.database",
			Message: "database name is required",
		})
	}
	switch c.Database.SSLMode {
	case "", "disable", "allow", "prefer", "require", "verify-ca", "verify-full":
	default:
		errors = append(errors, ValidationError{
			Field:   "database.ssl_mode",
			Message: fmt.Sprintf("unknown ssl_mode %q", c.Database.SSLMode),
		})
	}

	return errors
}

func (c *Config) validateScheduling() ValidationErrors {
	var errors ValidationErrors

	if c.Scheduling.StalenessDays <= 0 {
		errors = append(errors, ValidationError{
			Field:   "scheduling.staleness_days",
			Message: "staleness_days must be positive",
		})
	}
	if c.Scheduling.BatchSize <= 0 {
		errors = append(errors, ValidationError{
			Field:   "scheduling.batch_size",
			Message: "batch_size must be positive",
		})
	}

	return errors
}

func (c *Config) validateLogging() ValidationErrors {
	var errors ValidationErrors

	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("unknown level %q (expected debug, info, warn, error)", c.Logging.Level),
		})
	}
	switch c.Logging.Format {
	case "", "json", "text":
	default:
		errors = append(errors, ValidationError{
			Field:   "logging.format",
			Message: fmt.Sprintf("unknown format %q (expected json or text)", c.Logging.Format),
		})
	}

	return errors
}
