package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/statsync/internal/database"
	"github.com/dbsmedya/statsync/internal/queue"
	"github.com/dbsmedya/statsync/internal/refstore"
	"github.com/dbsmedya/statsync/internal/scheduler"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Enqueue stale tables for refresh",
	Long: `Schedule selects tables whose refresh is due and publishes one queue
message per table. It is a one-shot pass intended to run from cron or a
cloud scheduler; tables beyond the batch size wait for the next run.

A table is due when its next-update time has passed and has not yet been
honored by a successful sync.

Example:
  statsync schedule --config statsync.yaml --batch-size 50`,
	RunE: runSchedule,
}

func init() {
	rootCmd.AddCommand(scheduleCmd)
}

func runSchedule(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}

	log.Infow("Starting scheduling pass",
		"batch_size", cfg.Scheduling.BatchSize,
		"config", GetConfigFile(),
	)

	ctx := context.Background()

	dbManager := database.NewManager(&cfg.Database)
	if err := dbManager.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer dbManager.Close()

	if err := dbManager.Ping(ctx); err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}

	publisher, err := queue.NewPubSubPublisher(ctx, cfg.Queue.ProjectID, cfg.Queue.TopicID)
	if err != nil {
		return fmt.Errorf("failed to connect to queue: %w", err)
	}
	defer publisher.Close()

	refs := refstore.New(dbManager.DB, staleness(cfg), log)
	started := time.Now()

	count, err := scheduler.New(refs, publisher, cfg.Scheduling.BatchSize, log).Run(ctx)
	if err != nil {
		return fmt.Errorf("scheduling pass failed: %w", err)
	}

	fmt.Printf("\n=== Schedule Complete ===\n")
	fmt.Printf("Duration: %s\n", time.Since(started).Round(time.Millisecond))
	fmt.Printf("Tables Enqueued: %d\n", count)

	return nil
}
