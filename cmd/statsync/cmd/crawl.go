package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/statsync/internal/crawler"
	"github.com/dbsmedya/statsync/internal/database"
	"github.com/dbsmedya/statsync/internal/pxweb"
	"github.com/dbsmedya/statsync/internal/refstore"
)

var crawlCmd = &cobra.Command{
	Use:   "crawl [start-path]",
	Short: "Discover catalog tables and register them for syncing",
	Long: `Crawl walks the catalog tree depth-first and registers every table it
finds in the reference store. Newly discovered tables get a sentinel
last-update timestamp so the next scheduling run queues their initial
download.

With a start path (dot-separated, e.g. BE.BE0101) only that subtree is
crawled; without one the crawl starts at the catalog root.

Example:
  statsync crawl --config statsync.yaml BE.BE0101`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCrawl,
}

func init() {
	rootCmd.AddCommand(crawlCmd)
}

func runCrawl(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}

	startPath := ""
	if len(args) > 0 {
		startPath = args[0]
	}

	log.Infow("Starting catalog crawl",
		"start_path", startPath,
		"config", GetConfigFile(),
	)

	// Ctrl-C aborts the crawl; nothing discovered so far is lost since
	// registration happens only after the walk completes.
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

	leaves, err := crawler.New(pxweb.NewNavigator(client), &cfg.API, log).
		Crawl(ctx, startPath)
	if err != nil {
		return fmt.Errorf("crawl failed: %w", err)
	}

	references := make([]refstore.Reference, 0, len(leaves))
	for _, leaf := range leaves {
		references = append(references, refstore.Reference{
			FullNavPath: leaf.FullNavPath,
			Description: leaf.Description,
		})
	}

	inserted, err := refs.RegisterLeaves(ctx, references, time.Now())
	if err != nil {
		return fmt.Errorf("failed to register discovered tables: %w", err)
	}

	fmt.Printf("\n=== Crawl Complete ===\n")
	fmt.Printf("Duration: %s\n", time.Since(started).Round(time.Second))
	fmt.Printf("Tables Found: %d\n", len(leaves))
	fmt.Printf("Newly Registered: %d\n", inserted)

	return nil
}
