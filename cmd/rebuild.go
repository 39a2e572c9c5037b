package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/pable/go-hud-stats/internal/cache"
	"github.com/pable/go-hud-stats/internal/importer"
	"github.com/pable/go-hud-stats/internal/parser"
	"github.com/pable/go-hud-stats/internal/storage"
)

var rebuildRederive bool

var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Rebuild the HUD cache and sessions from stored hands",
	Long: `Recompute every HUD cache bucket from the per-hand statistics, then every
player's sessions. With --rederive, every stored hand is first parsed again
from its raw text and its statistics replaced; hands that no longer parse are
excluded from the cache.`,
	Args: cobra.NoArgs,
	RunE: runRebuild,
}

func init() {
	rebuildCmd.Flags().BoolVar(&rebuildRederive, "rederive", false, "re-parse stored hands before rebuilding")
}

func runRebuild(cmd *cobra.Command, _ []string) error {
	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := cmd.Context()
	start := time.Now()
	agg := cache.NewAggregator(db)
	if rebuildRederive {
		res, err := importer.Rederive(ctx, db, parser.NewRegistry(), agg)
		if err != nil {
			return fmt.Errorf("rederive: %w", err)
		}
		fmt.Fprintf(os.Stdout, "Re-derived %d hands: %d updated, %d excluded\n", res.Hands, res.Updated, res.Excluded)
	} else if err := agg.Rebuild(ctx); err != nil {
		return fmt.Errorf("rebuild hudcache: %w", err)
	}

	n, err := recomputeAllSessions(cmd, db)
	if err != nil {
		return err
	}
	log.Info().Int("players", n).Dur("took", time.Since(start)).Msg("hudcache_rebuilt")
	fmt.Fprintf(os.Stdout, "HUD cache rebuilt, sessions recomputed for %d players in %s\n", n, time.Since(start).Round(time.Millisecond))
	return nil
}

func recomputeAllSessions(cmd *cobra.Command, db *storage.DB) (int, error) {
	players, err := db.ListPlayers(cmd.Context(), 1)
	if err != nil {
		return 0, fmt.Errorf("list players: %w", err)
	}
	ids := make([]int64, len(players))
	for i, p := range players {
		ids[i] = p.ID
	}
	if err := db.RecomputeSessions(cmd.Context(), ids, appCfg.Import.SessionGap); err != nil {
		return 0, fmt.Errorf("recompute sessions: %w", err)
	}
	return len(ids), nil
}
