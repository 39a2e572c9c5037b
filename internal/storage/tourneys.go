package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pable/go-hud-stats/internal/tourney"
)

// StoreTourneySummary records a tournament and its finishers. Storing the
// same summary twice updates the rows in place.
func (db *DB) StoreTourneySummary(ctx context.Context, s *tourney.Summary) (int64, error) {
	var tourneyID int64
	err := db.inTx(ctx, func(tx *sql.Tx) error {
		siteID, err := db.ensureSite(ctx, tx, s.Site.String())
		if err != nil {
			return err
		}
		typeID, err := db.ensureTourneyType(ctx, tx, siteID, s.TourneyInfo(), s.MaxSeats)
		if err != nil {
			return err
		}
		if tourneyID, err = db.ensureTourney(ctx, tx, typeID, s.TourNo, s.Name); err != nil {
			return err
		}
		upd := db.q().sql("UPDATE tourneys SET name = ").arg(s.Name).
			sql(", entries = ").arg(s.Entries).
			sql(", prizepool = ").arg(s.PrizePool).
			sql(", startTime = ").arg(s.StartTime.Unix()).
			sql(" WHERE id = ").arg(tourneyID)
		if _, err := tx.ExecContext(ctx, upd.String(), upd.Args()...); err != nil {
			return fmt.Errorf("update tourney: %w", err)
		}

		for _, f := range s.Players {
			playerID, err := db.ensurePlayer(ctx, tx, siteID, f.Name)
			if err != nil {
				return err
			}
			ins := db.q().sql("INSERT INTO tourneysplayers (tourneyId, playerId, rank, winnings) VALUES (").
				list(tourneyID, playerID, f.Rank, f.Winnings).
				sql(") ON CONFLICT (tourneyId, playerId) DO UPDATE SET rank = excluded.rank, winnings = excluded.winnings")
			if _, err := tx.ExecContext(ctx, ins.String(), ins.Args()...); err != nil {
				return fmt.Errorf("upsert tourneysplayers for %s: %w", f.Name, err)
			}
		}
		return nil
	})
	return tourneyID, err
}

// TourneyResult is one player's line in a tournament listing.
type TourneyResult struct {
	TourNo    int64
	Name      string
	Start     time.Time
	BuyIn     int64
	Fee       int64
	Bounty    int64
	Currency  string
	Entries   int
	PrizePool int64
	Rank      int
	Winnings  int64
}

// Net is the result after buy-in, bounty share and fee.
func (r TourneyResult) Net() int64 { return r.Winnings - r.BuyIn - r.Bounty - r.Fee }

// ListTourneys returns a player's recorded tournament results, latest first.
func (db *DB) ListTourneys(ctx context.Context, player string) ([]TourneyResult, error) {
	q := db.q().sql(`SELECT t.siteTourneyNo, t.name, t.startTime, tt.buyin, tt.fee, tt.bounty, tt.currency,
		t.entries, t.prizepool, tp.rank, tp.winnings
		FROM tourneysplayers tp
		JOIN tourneys t ON t.id = tp.tourneyId
		JOIN tourneytypes tt ON tt.id = t.tourneyTypeId
		JOIN players p ON p.id = tp.playerId
		WHERE p.name = `).arg(player).sql(" ORDER BY t.startTime DESC, t.id DESC")
	rows, err := db.conn.QueryContext(ctx, q.String(), q.Args()...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TourneyResult
	for rows.Next() {
		var r TourneyResult
		var start int64
		if err := rows.Scan(&r.TourNo, &r.Name, &start, &r.BuyIn, &r.Fee, &r.Bounty, &r.Currency,
			&r.Entries, &r.PrizePool, &r.Rank, &r.Winnings); err != nil {
			return nil, err
		}
		r.Start = time.Unix(start, 0).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}
