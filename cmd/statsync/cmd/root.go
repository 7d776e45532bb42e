package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/statsync/internal/config"
	"github.com/dbsmedya/statsync/internal/logger"
)

// Version information (set via ldflags at build time)
var (
	Version = "0.0.1-dev"
	Commit  = "unknown"
)

// CLI flags that override config file values
var (
	cfgFile   string
	logLevel  string
	logFormat string
	batchSize int
	rowBudget int
)

var rootCmd = &cobra.Command{
	Use:   "statsync",
	Short: "Statistical catalog crawler and incremental table sync",
	Long: `A CLI tool that discovers tables in a hierarchical statistical catalog,
downloads them in budget-sized chunks and merges the rows incrementally
into a Postgres store.

Features:
  - Recursive catalog crawl with retry and skip-on-failure
  - Chunked downloads that respect the source's per-query row budget
  - Type and date coercion before storage
  - Append-only merge keyed on the table's dimension columns
  - Queue-driven refresh scheduling with a staleness window`,
	Version: Version,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	// Config file flag
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "statsync.yaml",
		"Path to configuration file")

	// Logging overrides
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Override log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "",
		"Override log format (json, text)")

	// Processing overrides
	rootCmd.PersistentFlags().IntVar(&batchSize, "batch-size", 0,
		"Override scheduling batch size (tables enqueued per run)")
	rootCmd.PersistentFlags().IntVar(&rowBudget, "row-budget", 0,
		"Override per-query row budget")
}

// GetConfigFile returns the config file path
func GetConfigFile() string {
	return cfgFile
}

// loadConfig loads the configuration file and applies CLI flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg.ApplyOverrides(logLevel, logFormat, batchSize, rowBudget)
	return cfg, nil
}

// setup loads configuration and builds the logger every command starts from.
func setup() (*config.Config, *logger.Logger, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return cfg, log, nil
}

// staleness converts the configured staleness window into a duration.
func staleness(cfg *config.Config) time.Duration {
	return time.Duration(cfg.Scheduling.StalenessDays) * 24 * time.Hour
}
