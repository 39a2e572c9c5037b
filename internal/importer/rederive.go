package importer

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/pable/go-hud-stats/internal/cache"
	"github.com/pable/go-hud-stats/internal/derived"
	"github.com/pable/go-hud-stats/internal/parser"
	"github.com/pable/go-hud-stats/internal/storage"
)

// RederiveStore is the persistence Rederive reads from and rewrites.
type RederiveStore interface {
	RawHands(ctx context.Context, fn func(storage.RawHand) error) error
	ReplaceHandStats(ctx context.Context, handID int64, r *derived.Result) error
	SetExcluded(ctx context.Context, handID int64, excluded bool) error
}

// RederiveResult counts the outcome of a re-derivation.
type RederiveResult struct {
	Hands    int
	Updated  int
	Excluded int
}

// Rederive parses every stored hand again from its raw text, replaces its
// stat rows and rebuilds the HUD cache. Hands that no longer parse or
// derive are flagged excluded.
func Rederive(ctx context.Context, store RederiveStore, parsers *parser.Registry, agg *cache.Aggregator) (RederiveResult, error) {
	var res RederiveResult
	bySite := map[string]parser.SiteParser{}
	err := store.RawHands(ctx, func(raw storage.RawHand) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		res.Hands++
		p, ok := bySite[raw.Site]
		if !ok {
			var err error
			if p, err = parsers.Lookup(raw.Site); err != nil {
				return err
			}
			bySite[raw.Site] = p
		}

		h, err := p.Parse(raw.Text)
		var d *derived.Result
		if err == nil {
			d, err = derived.Derive(h)
		}
		if err != nil {
			log.Warn().Err(err).Int64("hand_no", raw.HandNo).Msg("hand_rederive_failed")
			res.Excluded++
			return store.SetExcluded(ctx, raw.ID, true)
		}
		if err := store.ReplaceHandStats(ctx, raw.ID, d); err != nil {
			return fmt.Errorf("hand %d: %w", raw.HandNo, err)
		}
		res.Updated++
		return nil
	})
	if err != nil {
		return res, err
	}
	if err := agg.Rebuild(ctx); err != nil {
		return res, fmt.Errorf("rebuild hudcache: %w", err)
	}
	return res, nil
}
