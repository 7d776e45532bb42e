package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/statsync/internal/database"
	"github.com/dbsmedya/statsync/internal/downloader"
	"github.com/dbsmedya/statsync/internal/pxweb"
	"github.com/dbsmedya/statsync/internal/queue"
	"github.com/dbsmedya/statsync/internal/refstore"
	"github.com/dbsmedya/statsync/internal/syncer"
	"github.com/dbsmedya/statsync/internal/transform"
	"github.com/dbsmedya/statsync/internal/worker"
)

var workCmd = &cobra.Command{
	Use:   "work",
	Short: "Consume refresh messages and sync tables",
	Long: `Work runs the refresh pipeline as a long-lived consumer: for every
queued table it downloads all chunks, normalizes the rows and appends the
ones not yet stored. Messages are processed one at a time to respect the
source's rate limits.

A failed refresh is logged and dropped; the table stays stale and gets
requeued by a later scheduling pass. SIGINT/SIGTERM finish the current
table before exiting.

Example:
  statsync work --config statsync.yaml`,
	RunE: runWork,
}

func init() {
	rootCmd.AddCommand(workCmd)
}

func runWork(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}

	// Tag every log line with this instance so fan-out deployments stay
	// attributable.
	workerID, err := os.Hostname()
	if err != nil || workerID == "" {
		workerID = "local"
	}
	log = log.WithWorker(workerID)

	log.Infow("Starting refresh worker",
		"subscription", cfg.Queue.SubscriptionID,
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

	subscriber, err := queue.NewPubSubSubscriber(ctx,
		cfg.Queue.ProjectID, cfg.Queue.SubscriptionID, log)
	if err != nil {
		return fmt.Errorf("failed to connect to queue: %w", err)
	}
	defer subscriber.Close()

	client := pxweb.NewClient(&cfg.API)
	w := worker.New(
		subscriber,
		downloader.New(client, &cfg.API, log),
		transform.New(&cfg.API, log),
		syncer.New(dbManager.DB, refs, log),
		log,
	)

	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("worker stopped: %w", err)
	}

	log.Info("Worker shut down cleanly")
	return nil
}
