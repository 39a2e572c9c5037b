package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/go-hud-stats/internal/parser"
	"github.com/pable/go-hud-stats/internal/regression"
	"github.com/pable/go-hud-stats/internal/report"
)

var regressDetail int

var regressCmd = &cobra.Command{
	Use:   "regress <fixture-dir>",
	Short: "Check hand-history fixtures against their expected statistics",
	Long: `Parse and derive every .txt fixture under a directory and compare the result
with the expectations stored beside it: X.txt.hp holds per-player values and
X.txt.hands hand-level values, both as JSON keyed by column name. Mismatches
are counted per statistic and per file. Exits non-zero when any value differs.`,
	Args: cobra.ExactArgs(1),
	RunE: runRegress,
}

func init() {
	regressCmd.Flags().IntVar(&regressDetail, "detail", 20, "print this many mismatches in full")
}

func runRegress(_ *cobra.Command, args []string) error {
	rep, err := regression.Run(parser.NewRegistry(), siteName, args[0])
	if err != nil {
		return fmt.Errorf("regression run: %w", err)
	}
	report.PrintRegression(os.Stdout, rep, regressDetail)
	if rep.Errors() > 0 {
		return fmt.Errorf("%d mismatches", rep.Errors())
	}
	return nil
}
