package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pable/go-hud-stats/internal/cache"
)

// SessionPoints returns one point per stored, non-excluded hand of each
// player, in hand order.
func (db *DB) SessionPoints(ctx context.Context, playerIDs []int64) ([]cache.Point, error) {
	q := db.q().sql(`SELECT hp.playerId, h.handStart, hp.totalProfit
		FROM handsplayers hp JOIN hands h ON h.id = hp.handId
		WHERE h.excluded = 0 AND `).in("hp.playerId", playerIDs).sql(" ORDER BY hp.playerId, h.handStart")
	rows, err := db.conn.QueryContext(ctx, q.String(), q.Args()...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []cache.Point
	for rows.Next() {
		var p cache.Point
		var start int64
		if err := rows.Scan(&p.PlayerID, &start, &p.Profit); err != nil {
			return nil, err
		}
		p.HandStart = time.Unix(start, 0).UTC()
		out = append(out, p)
	}
	return out, rows.Err()
}

// RecomputeSessions regroups every hand of the given players into
// sessions and replaces their cached sessions.
func (db *DB) RecomputeSessions(ctx context.Context, playerIDs []int64, gap time.Duration) error {
	if len(playerIDs) == 0 {
		return nil
	}
	points, err := db.SessionPoints(ctx, playerIDs)
	if err != nil {
		return fmt.Errorf("load session points: %w", err)
	}
	sessions := cache.Sessions(points, gap)

	return db.inTx(ctx, func(tx *sql.Tx) error {
		del := db.q().sql("DELETE FROM sessionscache WHERE ").in("playerId", playerIDs)
		if _, err := tx.ExecContext(ctx, del.String(), del.Args()...); err != nil {
			return fmt.Errorf("clear sessions: %w", err)
		}
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO sessionscache
			(playerId, sessionStart, sessionEnd, hands, totalProfit) VALUES `+placeholderRow(db.dialect, 1, 5))
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, s := range sessions {
			if _, err := stmt.ExecContext(ctx, s.PlayerID, s.Start.Unix(), s.End.Unix(), s.Hands, s.TotalProfit); err != nil {
				return fmt.Errorf("insert session: %w", err)
			}
		}
		return nil
	})
}

// Sessions returns a player's cached sessions, latest first.
func (db *DB) Sessions(ctx context.Context, playerID int64) ([]cache.Session, error) {
	q := db.q().sql(`SELECT playerId, sessionStart, sessionEnd, hands, totalProfit
		FROM sessionscache WHERE playerId = `).arg(playerID).sql(" ORDER BY sessionStart DESC")
	rows, err := db.conn.QueryContext(ctx, q.String(), q.Args()...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []cache.Session
	for rows.Next() {
		var s cache.Session
		var start, end int64
		if err := rows.Scan(&s.PlayerID, &start, &end, &s.Hands, &s.TotalProfit); err != nil {
			return nil, err
		}
		s.Start = time.Unix(start, 0).UTC()
		s.End = time.Unix(end, 0).UTC()
		out = append(out, s)
	}
	return out, rows.Err()
}
