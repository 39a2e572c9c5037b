package hud

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pable/go-hud-stats/internal/cache"
	"github.com/pable/go-hud-stats/internal/config"
	"github.com/pable/go-hud-stats/internal/derived"
	"github.com/pable/go-hud-stats/internal/model"
	"github.com/pable/go-hud-stats/internal/parser"
	"github.com/pable/go-hud-stats/internal/stats"
	"github.com/pable/go-hud-stats/internal/storage"
)

var handDay = time.Date(2010, 9, 21, 12, 0, 0, 0, time.UTC)

func hudConfig() config.HUDConfig {
	return config.HUDConfig{
		Style:    "A",
		Days:     90,
		AggLevel: "stakes",
		BBMult:   1,
		Stats:    []string{"n", "vpip", "pfr"},
	}
}

// openStore imports the cash fixture into an in-memory store.
func openStore(t *testing.T) *storage.DB {
	t.Helper()
	ctx := context.Background()
	db, err := storage.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	raw, err := os.ReadFile(filepath.Join("..", "parser", "testdata", "winamax_cash.txt"))
	require.NoError(t, err)
	results, err := parser.ParseFile(parser.NewWinamax(), raw)
	require.NoError(t, err)

	agg := cache.NewAggregator(db)
	players := map[int64]bool{}
	for _, r := range results {
		require.NoError(t, r.Err)
		d, err := derived.Derive(r.Hand)
		require.NoError(t, err)
		stored, err := db.StoreHand(ctx, storage.HandRecord{ImportID: "test", Hand: r.Hand, Derived: d})
		require.NoError(t, err)
		require.NoError(t, agg.Update(ctx, stored.Rows))
		for _, id := range stored.PlayerIDs {
			players[id] = true
		}
	}
	var ids []int64
	for id := range players {
		ids = append(ids, id)
	}
	require.NoError(t, db.RecomputeSessions(ctx, ids, 30*time.Minute))
	return db
}

func newService(t *testing.T, cfg config.HUDConfig, now time.Time) *Service {
	t.Helper()
	return New(openStore(t), stats.NewRegistry(), cfg, WithClock(func() time.Time { return now }))
}

func display(t *testing.T, ps *PlayerStats, name string) string {
	t.Helper()
	for _, r := range ps.Stats {
		if r.Name == name {
			return r.Display
		}
	}
	t.Fatalf("stat %q not in result", name)
	return ""
}

func TestPlayer_AllTime(t *testing.T) {
	svc := newService(t, hudConfig(), handDay)
	ps, err := svc.Player(context.Background(), Query{Site: "winamax", Player: "Carol"})
	require.NoError(t, err)

	assert.Equal(t, int64(3), ps.Hands)
	assert.Equal(t, cache.StyleAll, ps.Style)
	assert.Equal(t, "66.7", display(t, ps, "vpip"))
	assert.Equal(t, "66.7", display(t, ps, "pfr"))
	assert.Len(t, ps.Gametypes, 1)
}

func TestPlayer_TimedWindow(t *testing.T) {
	cfg := hudConfig()
	cfg.Style = "T"

	recent := newService(t, cfg, handDay.AddDate(0, 0, 10))
	ps, err := recent.Player(context.Background(), Query{Site: "winamax", Player: "Carol"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), ps.Hands)

	later := newService(t, cfg, handDay.AddDate(1, 0, 0))
	ps, err = later.Player(context.Background(), Query{Site: "winamax", Player: "Carol"})
	require.NoError(t, err)
	assert.Zero(t, ps.Hands)
	assert.Equal(t, stats.NA, display(t, ps, "vpip"))
}

func TestPlayer_SessionStyle(t *testing.T) {
	svc := newService(t, hudConfig(), handDay)
	ps, err := svc.Player(context.Background(), Query{Site: "winamax", Player: "Carol", Style: cache.StyleSession})
	require.NoError(t, err)
	require.NotNil(t, ps.Session)
	assert.Equal(t, 3, ps.Session.Hands)
	assert.Equal(t, int64(3), ps.Hands)
}

func TestPlayer_PositionFilter(t *testing.T) {
	svc := newService(t, hudConfig(), handDay)
	ps, err := svc.Player(context.Background(), Query{
		Site:      "winamax",
		Player:    "Carol",
		Positions: []model.PositionClass{model.ClassButton},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), ps.Hands)
	assert.Equal(t, "100.0", display(t, ps, "vpip"))
}

func TestPlayer_Errors(t *testing.T) {
	svc := newService(t, hudConfig(), handDay)
	ctx := context.Background()

	_, err := svc.Player(ctx, Query{Site: "winamax", Player: "Nobody"})
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = svc.Player(ctx, Query{Site: "winamax", Player: "Carol", Stats: []string{"bogus"}})
	assert.ErrorIs(t, err, stats.ErrUnknownStat)
}

func TestTrend(t *testing.T) {
	svc := newService(t, hudConfig(), handDay)
	days, err := svc.Trend(context.Background(), Query{Site: "winamax", Player: "Carol"}, "vpip_0")
	require.NoError(t, err)
	require.Len(t, days, 1)
	assert.Equal(t, time.Date(2010, 9, 21, 0, 0, 0, 0, time.UTC), days[0].Day)
	assert.Equal(t, int64(3), days[0].Hands)
	assert.Equal(t, "67", days[0].Result.Display)
}

func TestSessions(t *testing.T) {
	svc := newService(t, hudConfig(), handDay)
	sessions, err := svc.Sessions(context.Background(), "winamax", "Alice")
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, 3, sessions[0].Hands)
}
