package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/go-hud-stats/internal/report"
)

var trendFlags hudFlags

var trendCmd = &cobra.Command{
	Use:   "trend <player> <stat>",
	Short: "Day-by-day trend of one statistic for a player",
	Args:  cobra.ExactArgs(2),
	RunE:  runTrend,
}

func init() {
	trendFlags.register(trendCmd)
}

func runTrend(cmd *cobra.Command, args []string) error {
	q, err := trendFlags.query(args[0])
	if err != nil {
		return err
	}
	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	days, err := newHUD(db).Trend(cmd.Context(), q, args[1])
	if err != nil {
		return fmt.Errorf("trend: %w", err)
	}
	if len(days) == 0 {
		fmt.Println("no hands in range")
		return nil
	}
	report.PrintTrend(os.Stdout, args[0], args[1], days)
	return nil
}
