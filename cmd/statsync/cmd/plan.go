package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gookit/color"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/dbsmedya/statsync/internal/database"
	"github.com/dbsmedya/statsync/internal/downloader"
	"github.com/dbsmedya/statsync/internal/pxweb"
)

// outputWriter is used for printing output, can be overridden in tests
var outputWriter io.Writer = os.Stdout

var planCmd = &cobra.Command{
	Use:   "plan <nav-path>",
	Short: "Show the chunking plan for a table",
	Long: `Plan fetches a table's metadata and displays how its downloads would be
partitioned under the row budget: which dimension gets chunked, how many
queries it takes and how many datapoints each query returns.

No data is downloaded and nothing is written.

Example:
  statsync plan --config statsync.yaml BE.BE0101.BE0101A.BefolkningNy`,
	Args: cobra.ExactArgs(1),
	RunE: runPlan,
}

func init() {
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	cfg, _, err := setup()
	if err != nil {
		return err
	}

	navPath := args[0]
	ctx := database.SetupSignalHandler()

	client := pxweb.NewClient(&cfg.API)
	nav := pxweb.NewNavigatorAt(client, navPath)
	meta, err := client.Metadata(ctx, nav.PathSegments())
	if err != nil {
		return fmt.Errorf("failed to fetch metadata for %s: %w", navPath, err)
	}

	plan, err := downloader.PlanChunks(meta, cfg.API.RowBudget)
	if err != nil {
		return fmt.Errorf("failed to plan chunks for %s: %w", navPath, err)
	}

	renderPlan(navPath, meta.Title, plan, cfg.API.RowBudget)
	return nil
}

// renderPlan prints the chunking plan for one table.
func renderPlan(navPath, title string, plan *downloader.Plan, budget int) {
	printHeader("Download Plan: %s", navPath)

	if title != "" {
		fmt.Fprintf(outputWriter, "  %s\n", title)
	}
	fmt.Fprintln(outputWriter)

	printSection("Dimensions")
	nameWidth := 0
	for _, v := range plan.Variables {
		if w := runewidth.StringWidth(v.Text); w > nameWidth {
			nameWidth = w
		}
	}
	for i, v := range plan.Variables {
		marker := " "
		name := v.Text
		if i == plan.ChunkIndex {
			marker = color.Cyan.Sprint("*")
			name = color.Cyan.Sprint(name)
		}
		pad := strings.Repeat(" ", nameWidth-runewidth.StringWidth(v.Text))
		fmt.Fprintf(outputWriter, "  %s %s%s  %6d values  (%s)\n",
			marker, name, pad, len(v.ValueTexts), v.Code)
	}
	fmt.Fprintf(outputWriter, "  %s chunked dimension\n", color.Cyan.Sprint("*"))

	fmt.Fprintln(outputWriter)
	printSection("Queries")
	fmt.Fprintf(outputWriter, "  Row Budget:      %d\n", budget)
	fmt.Fprintf(outputWriter, "  Queries Needed:  %d\n", len(plan.Chunks))
	fmt.Fprintf(outputWriter, "  Rows per Query:  %d\n", plan.RowsPerQuery())
	if plan.Clamped {
		fmt.Fprintf(outputWriter, "  %s\n", color.Yellow.Sprint(
			"Warning: fixed dimensions alone exceed the budget; every query will overshoot it"))
	}
}

// printHeader prints a formatted header
func printHeader(format string, args ...interface{}) {
	title := fmt.Sprintf(format, args...)
	width := runewidth.StringWidth(title) + 4
	fmt.Fprintln(outputWriter, strings.Repeat("=", width))
	fmt.Fprintf(outputWriter, "  %s\n", title)
	fmt.Fprintln(outputWriter, strings.Repeat("=", width))
}

// printSection prints a section header
func printSection(title string) {
	fmt.Fprintf(outputWriter, "[%s]\n", title)
	fmt.Fprintln(outputWriter, strings.Repeat("-", len(title)+2))
}
