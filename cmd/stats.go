package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pable/go-hud-stats/internal/hud"
	"github.com/pable/go-hud-stats/internal/model"
	"github.com/pable/go-hud-stats/internal/report"
	"github.com/pable/go-hud-stats/internal/stats"
	"github.com/pable/go-hud-stats/internal/storage"
)

var (
	statsFlags hudFlags
	statsJSON  bool
	statsList  bool
)

var statsCmd = &cobra.Command{
	Use:   "stats <player>",
	Short: "Show a player's HUD statistics",
	Long: `Sum the cached statistics of a player and format them the way the HUD shows them.

The buckets summed follow the HUD settings: --style picks the time window,
--agg which game types count alongside the player's latest one, and --pos,
--min-seats and --max-seats narrow by position and table size.

Example:
  hudstats stats Carol --stats vpip,pfr,three_B_0 --style T`,
	Args: func(cmd *cobra.Command, args []string) error {
		if statsList {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.ExactArgs(1)(cmd, args)
	},
	RunE: runStats,
}

func init() {
	statsFlags.register(statsCmd)
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "print JSON instead of a table")
	statsCmd.Flags().BoolVar(&statsList, "list", false, "list the statistic names and exit")
}

func (f *hudFlags) query(player string) (hud.Query, error) {
	q := hud.Query{Site: siteName, Player: player, Stats: splitList(f.stats), MinSeats: f.minSeats, MaxSeats: f.maxSeats}
	var err error
	if q.Style, err = styleFlag(f.style); err != nil {
		return q, err
	}
	if q.AggLevel, err = aggFlag(f.agg); err != nil {
		return q, err
	}
	for _, p := range splitList(f.positions) {
		q.Positions = append(q.Positions, model.PositionClass(strings.ToUpper(p)))
	}
	return q, nil
}

func newHUD(db *storage.DB) *hud.Service {
	return hud.New(db, stats.NewRegistry(), appCfg.HUD)
}

func runStats(cmd *cobra.Command, args []string) error {
	if statsList {
		for _, name := range stats.NewRegistry().Names() {
			fmt.Fprintln(os.Stdout, name)
		}
		return nil
	}
	q, err := statsFlags.query(args[0])
	if err != nil {
		return err
	}

	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	ps, err := newHUD(db).Player(cmd.Context(), q)
	if err != nil {
		return fmt.Errorf("player stats: %w", err)
	}
	if statsJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(ps)
	}
	report.PrintStats(os.Stdout, ps)
	return nil
}
