package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/pable/go-hud-stats/internal/report"
)

var showRaw bool

var showCmd = &cobra.Command{
	Use:   "show <hand-number>",
	Short: "Show one stored hand",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func init() {
	showCmd.Flags().BoolVar(&showRaw, "raw", false, "also print the original hand-history text")
}

func runShow(cmd *cobra.Command, args []string) error {
	handNo, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid hand number %q: %w", args[0], err)
	}

	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	d, err := db.HandByNumber(cmd.Context(), siteName, handNo)
	if err != nil {
		return err
	}
	report.PrintHandDetail(os.Stdout, d)
	if showRaw {
		fmt.Fprintf(os.Stdout, "\n%s\n", d.Text)
	}
	return nil
}
