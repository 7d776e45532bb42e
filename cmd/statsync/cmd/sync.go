package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/statsync/internal/database"
	"github.com/dbsmedya/statsync/internal/downloader"
	"github.com/dbsmedya/statsync/internal/pxweb"
	"github.com/dbsmedya/statsync/internal/refstore"
	"github.com/dbsmedya/statsync/internal/syncer"
	"github.com/dbsmedya/statsync/internal/transform"
)

var syncCmd = &cobra.Command{
	Use:   "sync <nav-path>",
	Short: "Download and sync a single table immediately",
	Long: `Sync runs the full refresh pipeline for one table, bypassing the queue:
download all chunks, normalize the rows and append the ones not yet
stored. Useful for backfills and for debugging a single table.

Example:
  statsync sync --config statsync.yaml BE.BE0101.BE0101A.BefolkningNy`,
	Args: cobra.ExactArgs(1),
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}

	navPath := args[0]
	log.Infow("Starting one-shot sync",
		"path", navPath,
		"config", GetConfigFile(),
	)

	ctx := database.SetupSignalHandler()

	dbManager := database.NewManager(&cfg.Database)
	if err := dbManager.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer dbManager.Close()

	if err := dbManager.Ping(ctx); err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}

	refs := refstore.New(dbManager.DB, staleness(cfg), log)
	if err := refs.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}

	client := pxweb.NewClient(&cfg.API)
	started := time.Now()

	payloads, err := downloader.New(client, &cfg.API, log).Download(ctx, navPath)
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}

	frame, err := transform.New(&cfg.API, log).Transform(payloads)
	if err != nil {
		return fmt.Errorf("transform failed: %w", err)
	}

	inserted, err := syncer.New(dbManager.DB, refs, log).Sync(ctx, navPath, frame)
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	fmt.Printf("\n=== Sync Complete ===\n")
	fmt.Printf("Table: %s\n", syncer.TableName(navPath))
	fmt.Printf("Duration: %s\n", time.Since(started).Round(time.Second))
	fmt.Printf("Chunks Downloaded: %d\n", len(payloads))
	fmt.Printf("Rows Received: %d\n", len(frame.Rows))
	fmt.Printf("Rows Appended: %d\n", inserted)

	return nil
}
