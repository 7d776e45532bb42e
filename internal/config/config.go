// Package config provides configuration structures and loading for statsync.
package config

// Config represents the complete application configuration.
type Config struct {
	API        APIConfig        `yaml:"api" mapstructure:"api"`
	Database   DatabaseConfig   `yaml:"database" mapstructure:"database"`
	Queue      QueueConfig      `yaml:"queue" mapstructure:"queue"`
	Scheduling SchedulingConfig `yaml:"scheduling" mapstructure:"scheduling"`
	Logging    LoggingConfig    `yaml:"logging" mapstructure:"logging"`
}

// APIConfig represents the source catalog API and its pacing limits.
type APIConfig struct {
	BaseURL               string   `yaml:"base_url" mapstructure:"base_url"`
	Locale                string   `yaml:"locale" mapstructure:"locale"`
	RowBudget             int      `yaml:"row_budget" mapstructure:"row_budget"`
	RequestTimeoutSeconds int      `yaml:"request_timeout_seconds" mapstructure:"request_timeout_seconds"`
	PaceEvery             int      `yaml:"pace_every" mapstructure:"pace_every"`
	PaceSeconds           float64  `yaml:"pace_seconds" mapstructure:"pace_seconds"`
	CrawlDelaySeconds     float64  `yaml:"crawl_delay_seconds" mapstructure:"crawl_delay_seconds"`
	RetryDelaySeconds     float64  `yaml:"retry_delay_seconds" mapstructure:"retry_delay_seconds"`
	MaxAttempts           int      `yaml:"max_attempts" mapstructure:"max_attempts"`
	TextColumns           []string `yaml:"text_columns" mapstructure:"text_columns"`
}

// DatabaseConfig represents the Postgres store connection configuration.
type DatabaseConfig struct {
	Host               string `yaml:"host" mapstructure:"host"`
	Port               int    `yaml:"port" mapstructure:"port"`
	User               string `yaml:"user" mapstructure:"user"`
	Password           string `yaml:"password" mapstructure:"password"`
	Database           string `yaml:"database" mapstructure:"database"`
	SSLMode            string `yaml:"ssl_mode" mapstructure:"ssl_mode"` // disable, prefer, require
	MaxConnections     int    `yaml:"max_connections" mapstructure:"max_connections"`
	MaxIdleConnections int    `yaml:"max_idle_connections" mapstructure:"max_idle_connections"`
}

// QueueConfig represents the Pub/Sub identifiers used by scheduler and worker.
type QueueConfig struct {
	ProjectID      string `yaml:"project_id" mapstructure:"project_id"`
	TopicID        string `yaml:"topic_id" mapstructure:"topic_id"`
	SubscriptionID string `yaml:"subscription_id" mapstructure:"subscription_id"`
}

// SchedulingConfig represents refresh staleness and batch settings.
type SchedulingConfig struct {
	StalenessDays int `yaml:"staleness_days" mapstructure:"staleness_days"`
	BatchSize     int `yaml:"batch_size" mapstructure:"batch_size"`
}

// LoggingConfig represents logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // json or text
	Output string `yaml:"output" mapstructure:"output"` // stdout, stderr, or file path
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:               "https://api.scb.se/OV0104/v1/doris",
			Locale:                "sv",
			RowBudget:             70000,
			RequestTimeoutSeconds: 60,
			PaceEvery:             10,
			PaceSeconds:           15,
			CrawlDelaySeconds:     0.1,
			RetryDelaySeconds:     10,
			MaxAttempts:           3,
			TextColumns:           []string{"region"},
		},
		Database: DatabaseConfig{
			Port:               5432,
			SSLMode:            "prefer",
			MaxConnections:     10,
			MaxIdleConnections: 5,
		},
		Scheduling: SchedulingConfig{
			StalenessDays: 30,
			BatchSize:     100,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
	}
}

// ApplyOverrides applies CLI flag values on top of the loaded configuration.
// Zero values leave the configured value untouched.
func (c *Config) ApplyOverrides(logLevel, logFormat string, batchSize, rowBudget int) {
	if logLevel != "" {
		c.Logging.Level = logLevel
	}
	if logFormat != "" {
		c.Logging.Format = logFormat
	}
	if batchSize > 0 {
		c.Scheduling.BatchSize = batchSize
	}
	if rowBudget > 0 {
		c.API.RowBudget = rowBudget
	}
}

// IsTextColumn reports whether a normalized column name is exempt from
// numeric coercion.
func (c *APIConfig) IsTextColumn(name string) bool {
	for _, tc := range c.TextColumns {
		if tc == name {
			return true
		}
	}
	return false
}
