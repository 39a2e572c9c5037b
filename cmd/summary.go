package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/go-hud-stats/internal/report"
)

var summaryTop int

// summaryCmd is the cobra command for displaying a high-level database overview.
var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show a high-level overview of the database",
	Long: `Display store-wide counts (hands, players, tournaments, imports, cache rows
and sessions), the date range of stored hands and the most active players.`,
	Args: cobra.NoArgs,
	RunE: runSummary,
}

func init() {
	summaryCmd.Flags().IntVar(&summaryTop, "top", 10, "number of most active players to show")
}

func runSummary(cmd *cobra.Command, args []string) error {
	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	ov, err := db.Overview(cmd.Context())
	if err != nil {
		return fmt.Errorf("get overview: %w", err)
	}
	if ov.Hands == 0 {
		fmt.Fprintln(os.Stdout, "No hands stored yet. Run 'hudstats import <file>' to add some.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "\n=== Database Summary ===\n\n")
	report.PrintOverview(os.Stdout, ov)

	players, err := db.ListPlayers(cmd.Context(), 1)
	if err != nil {
		return fmt.Errorf("get players: %w", err)
	}
	if len(players) > summaryTop {
		players = players[:summaryTop]
	}
	fmt.Fprintf(os.Stdout, "\n--- Most Active Players ---\n\n")
	report.PrintPlayers(os.Stdout, players)
	return nil
}
