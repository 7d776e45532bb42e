package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/statsync/internal/database"
	"github.com/dbsmedya/statsync/internal/pxweb"
)

var validateSkipChecks bool

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration and run connectivity checks",
	Long: `Validate checks the configuration file and verifies that the database
and the catalog API are reachable.

Checks performed:
  - Configuration syntax and required fields
  - Database connectivity
  - Catalog API root listing

Example:
  statsync validate --config statsync.yaml`,
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().BoolVar(&validateSkipChecks, "config-only", false,
		"Only validate the configuration file, skip connectivity checks")

	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}

	fmt.Printf("\n=== Configuration Validation ===\n")
	fmt.Printf("Config file: %s\n\n", GetConfigFile())

	if err := cfg.Validate(); err != nil {
		fmt.Printf("❌ Configuration invalid:\n%v\n", err)
		return fmt.Errorf("configuration validation failed")
	}
	fmt.Printf("✅ Configuration valid\n")

	if validateSkipChecks {
		return nil
	}

	ctx := context.Background()

	log.Info("Checking database connectivity")
	dbManager := database.NewManager(&cfg.Database)
	if err := dbManager.Connect(ctx); err != nil {
		fmt.Printf("❌ Database connection failed: %v\n", err)
		return fmt.Errorf("database check failed")
	}
	defer dbManager.Close()

	if err := dbManager.Ping(ctx); err != nil {
		fmt.Printf("❌ Database ping failed: %v\n", err)
		return fmt.Errorf("database check failed")
	}
	fmt.Printf("✅ Database reachable (%s:%d/%s)\n",
		cfg.Database.Host, cfg.Database.Port, cfg.Database.Database)

	log.Info("Checking catalog API")
	client := pxweb.NewClient(&cfg.API)
	items, err := client.List(ctx, nil)
	if err != nil {
		fmt.Printf("❌ Catalog API check failed: %v\n", err)
		return fmt.Errorf("catalog API check failed")
	}
	fmt.Printf("✅ Catalog API reachable (%d root nodes)\n", len(items))

	fmt.Println("\n=== Validation Complete ===")
	return nil
}
