package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/pable/go-hud-stats/internal/cache"
	"github.com/pable/go-hud-stats/internal/model"
)

var hudcacheKeyColumns = []string{"gametypeId", "playerId", "activeSeats", "position", "tourneyTypeId", "styleKey"}

var _ cache.Store = (*DB)(nil)

// IncrementBuckets upserts buckets, adding their counters to existing rows.
func (db *DB) IncrementBuckets(ctx context.Context, buckets []cache.Bucket) error {
	if len(buckets) == 0 {
		return nil
	}
	cols := model.StatColumns()
	set := make([]string, 0, len(cols)+1)
	set = append(set, "HDs = hudcache.HDs + excluded.HDs")
	for _, c := range cols {
		set = append(set, c+" = hudcache."+c+" + excluded."+c)
	}
	n := len(hudcacheKeyColumns) + 1 + len(cols)
	stmtSQL := "INSERT INTO hudcache (" + strings.Join(hudcacheKeyColumns, ", ") + ", HDs, " + statList("") + ") VALUES " +
		placeholderRow(db.dialect, 1, n) +
		" ON CONFLICT (" + strings.Join(hudcacheKeyColumns, ", ") + ") DO UPDATE SET " + strings.Join(set, ", ")

	return db.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, stmtSQL)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, b := range buckets {
			args := make([]any, 0, n)
			args = append(args, b.GametypeID, b.PlayerID, b.ActiveSeats, string(b.Position), b.TourneyTypeID, b.StyleKey,
				b.Counters[model.HandsKey])
			for _, c := range cols {
				args = append(args, b.Counters[c])
			}
			if _, err := stmt.ExecContext(ctx, args...); err != nil {
				return fmt.Errorf("upsert hudcache: %w", err)
			}
		}
		return nil
	})
}

// RebuildBuckets replaces the whole cache with sums over every stored,
// non-excluded stat row.
func (db *DB) RebuildBuckets(ctx context.Context) error {
	cols := model.StatColumns()
	sums := make([]string, len(cols))
	for i, c := range cols {
		sums[i] = db.dialect.CastInt("SUM(hp." + c + ")")
	}
	insert := "INSERT INTO hudcache (" + strings.Join(hudcacheKeyColumns, ", ") + ", HDs, " + statList("") + `)
		SELECT h.gametypeId, hp.playerId, h.seats, ` + positionClassSQL("hp.position") + `, h.tourneyTypeId, ` +
		db.dialect.DayKey("h.handStart") + `, COUNT(*), ` + strings.Join(sums, ", ") + `
		FROM handsplayers hp JOIN hands h ON h.id = hp.handId
		WHERE h.excluded = 0
		GROUP BY 1, 2, 3, 4, 5, 6`

	return db.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM hudcache"); err != nil {
			return fmt.Errorf("clear hudcache: %w", err)
		}
		if _, err := tx.ExecContext(ctx, insert); err != nil {
			return fmt.Errorf("fill hudcache: %w", err)
		}
		return nil
	})
}

// Buckets loads the cache rows matching f.
func (db *DB) Buckets(ctx context.Context, f cache.Filter) ([]cache.Bucket, error) {
	cols := model.StatColumns()
	q := db.q().sql("SELECT ", strings.Join(hudcacheKeyColumns, ", "), ", HDs, ", statList(""), " FROM hudcache WHERE 1 = 1")
	if f.PlayerID != 0 {
		q.sql(" AND playerId = ").arg(f.PlayerID)
	}
	if len(f.Gametypes) > 0 {
		q.sql(" AND ").in("gametypeId", f.Gametypes)
	}
	if f.Since != "" {
		q.sql(" AND styleKey >= ").arg(f.Since)
	}
	if f.Until != "" {
		q.sql(" AND styleKey <= ").arg(f.Until)
	}
	if f.MinSeats > 0 {
		q.sql(" AND activeSeats >= ").arg(f.MinSeats)
	}
	if f.MaxSeats > 0 {
		q.sql(" AND activeSeats <= ").arg(f.MaxSeats)
	}
	if f.TourneyOff {
		q.sql(" AND tourneyTypeId = 0")
	}
	rows, err := db.conn.QueryContext(ctx, q.String(), q.Args()...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []cache.Bucket
	for rows.Next() {
		var b cache.Bucket
		var pos string
		var hands int64
		vals := make([]int64, len(cols))
		dest := []any{&b.GametypeID, &b.PlayerID, &b.ActiveSeats, &pos, &b.TourneyTypeID, &b.StyleKey, &hands}
		for i := range vals {
			dest = append(dest, &vals[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		b.Position = model.PositionClass(pos)
		if !f.Match(b.Key) {
			continue
		}
		b.Counters = model.Counters{model.HandsKey: hands}
		for i, c := range cols {
			b.Counters[c] = vals[i]
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	cache.SortBuckets(out)
	return out, nil
}

// SumSince adds a player's stat rows from hands started at or after since
// (unix seconds), bypassing the cache. Session-style HUDs read this.
func (db *DB) SumSince(ctx context.Context, playerID int64, gametypes []int64, since int64) (model.Counters, error) {
	cols := model.StatColumns()
	sums := make([]string, len(cols))
	for i, c := range cols {
		sums[i] = db.dialect.CastInt("COALESCE(SUM(hp." + c + "), 0)")
	}
	q := db.q().sql("SELECT COUNT(*), ", strings.Join(sums, ", "),
		" FROM handsplayers hp JOIN hands h ON h.id = hp.handId WHERE h.excluded = 0 AND hp.playerId = ").arg(playerID).
		sql(" AND h.handStart >= ").arg(since)
	if len(gametypes) > 0 {
		q.sql(" AND ").in("h.gametypeId", gametypes)
	}
	var hands int64
	vals := make([]int64, len(cols))
	dest := []any{&hands}
	for i := range vals {
		dest = append(dest, &vals[i])
	}
	if err := db.conn.QueryRowContext(ctx, q.String(), q.Args()...).Scan(dest...); err != nil {
		return nil, err
	}
	out := model.Counters{model.HandsKey: hands}
	for i, c := range cols {
		out[c] = vals[i]
	}
	return out, nil
}

// Gametypes returns every stored game type by id.
func (db *DB) Gametypes(ctx context.Context) (map[int64]model.GameType, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT id, type, base, category, limitType, currency, smallBlind, bigBlind, ante
		FROM gametypes`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[int64]model.GameType{}
	for rows.Next() {
		var id int64
		var g model.GameType
		if err := rows.Scan(&id, &g.Type, &g.Base, &g.Category, &g.LimitType, &g.Currency, &g.SmallBlind, &g.BigBlind, &g.Ante); err != nil {
			return nil, err
		}
		out[id] = g
	}
	return out, rows.Err()
}

// PlayerLastGametype returns the game type of the player's latest hand.
func (db *DB) PlayerLastGametype(ctx context.Context, playerID int64) (int64, error) {
	q := db.q().sql(`SELECT h.gametypeId FROM handsplayers hp JOIN hands h ON h.id = hp.handId
		WHERE hp.playerId = `).arg(playerID).sql(" ORDER BY h.handStart DESC, h.id DESC LIMIT 1")
	var id int64
	err := db.conn.QueryRowContext(ctx, q.String(), q.Args()...).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("player %d has no hands: %w", playerID, ErrNotFound)
	}
	return id, err
}
