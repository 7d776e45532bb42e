package cmd

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/gookit/color"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/dbsmedya/statsync/internal/database"
	"github.com/dbsmedya/statsync/internal/refstore"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the sync state of all registered tables",
	Long: `Status lists every registered table with its last successful sync, its
next due time and its current state:

  new     registered by a crawl, first sync still pending
  fresh   synced within the staleness window
  due     eligible for the next scheduling pass
  frozen  next-update at or before last-update; the scheduler will never
          pick it up again without operator intervention

Example:
  statsync status --config statsync.yaml`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}

	ctx := database.SetupSignalHandler()

	dbManager := database.NewManager(&cfg.Database)
	if err := dbManager.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer dbManager.Close()

	if err := dbManager.Ping(ctx); err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}

	refs, err := refstore.New(dbManager.DB, staleness(cfg), log).List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list references: %w", err)
	}

	renderStatus(refs, time.Now())
	return nil
}

// refState classifies one reference for display.
func refState(ref refstore.Reference, now time.Time) string {
	switch {
	case ref.Frozen():
		return color.Red.Sprint("frozen")
	case ref.LastUpdate.Valid && ref.LastUpdate.Time.Equal(refstore.SentinelLastUpdate):
		return color.Cyan.Sprint("new")
	case ref.NextUpdate.Valid && ref.NextUpdate.Time.Before(now):
		return color.Yellow.Sprint("due")
	default:
		return color.Green.Sprint("fresh")
	}
}

// renderStatus prints the reference table.
func renderStatus(refs []refstore.Reference, now time.Time) {
	printHeader("Table Status (%d registered)", len(refs))

	if len(refs) == 0 {
		fmt.Fprintln(outputWriter, "  No tables registered; run 'statsync crawl' first.")
		return
	}

	pathWidth := len("PATH")
	for _, ref := range refs {
		if w := runewidth.StringWidth(ref.FullNavPath); w > pathWidth {
			pathWidth = w
		}
	}

	fmt.Fprintf(outputWriter, "  %s  %-19s  %-19s  %s\n",
		runewidth.FillRight("PATH", pathWidth), "LAST SYNC", "NEXT DUE", "STATE")

	frozen := 0
	for _, ref := range refs {
		if ref.Frozen() {
			frozen++
		}
		fmt.Fprintf(outputWriter, "  %s  %-19s  %-19s  %s\n",
			runewidth.FillRight(ref.FullNavPath, pathWidth),
			formatNullTime(ref.LastUpdate),
			formatNullTime(ref.NextUpdate),
			refState(ref, now),
		)
	}

	if frozen > 0 {
		fmt.Fprintln(outputWriter)
		fmt.Fprintf(outputWriter, "  %s\n", color.Red.Sprintf(
			"%d frozen table(s) will never be rescheduled; fix next_update manually", frozen))
	}
}

// formatNullTime renders a nullable timestamp for the status table.
func formatNullTime(t sql.NullTime) string {
	if !t.Valid {
		return "-"
	}
	if t.Time.Equal(refstore.SentinelLastUpdate) {
		return "never"
	}
	return t.Time.Format("2006-01-02 15:04:05")
}
