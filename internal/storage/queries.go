package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/pable/go-hud-stats/internal/model"
)

// QueryRaw runs an arbitrary query and returns its columns and rows as
// strings. NULL values print as "NULL".
func (db *DB) QueryRaw(query string) ([]string, [][]string, error) {
	rows, err := db.conn.Query(query)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}
	var out [][]string
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, err
		}
		row := make([]string, len(cols))
		for i, v := range vals {
			row[i] = formatValue(v)
		}
		out = append(out, row)
	}
	return cols, out, rows.Err()
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case time.Time:
		return x.UTC().Format(time.RFC3339)
	default:
		return fmt.Sprint(x)
	}
}

// Overview counts the rows of the main tables.
type Overview struct {
	Sites, Players, Hands, Excluded, Tourneys, Imports, CacheRows, Sessions int
	FirstHand, LastHand                                                  time.Time
}

// Overview returns store-wide counts.
func (db *DB) Overview(ctx context.Context) (Overview, error) {
	var o Overview
	var first, last int64
	err := db.conn.QueryRowContext(ctx, `SELECT
		(SELECT COUNT(*) FROM sites),
		(SELECT COUNT(*) FROM players),
		(SELECT COUNT(*) FROM hands),
		(SELECT COUNT(*) FROM hands WHERE excluded = 1),
		(SELECT COUNT(*) FROM tourneys),
		(SELECT COUNT(*) FROM imports),
		(SELECT COUNT(*) FROM hudcache),
		(SELECT COUNT(*) FROM sessionscache),
		(SELECT COALESCE(MIN(handStart), 0) FROM hands),
		(SELECT COALESCE(MAX(handStart), 0) FROM hands)`).Scan(
		&o.Sites, &o.Players, &o.Hands, &o.Excluded, &o.Tourneys, &o.Imports, &o.CacheRows, &o.Sessions,
		&first, &last)
	if err != nil {
		return o, err
	}
	if first > 0 {
		o.FirstHand = time.Unix(first, 0).UTC()
		o.LastHand = time.Unix(last, 0).UTC()
	}
	return o, nil
}

// PlayerID resolves a player's id. An empty site matches any site and
// picks the lowest id.
func (db *DB) PlayerID(ctx context.Context, name, site string) (int64, error) {
	q := db.q().sql("SELECT p.id FROM players p JOIN sites s ON s.id = p.siteId WHERE p.name = ").arg(name)
	if site != "" {
		q.sql(" AND s.name = ").arg(site)
	}
	q.sql(" ORDER BY p.id LIMIT 1")
	var id int64
	err := db.conn.QueryRowContext(ctx, q.String(), q.Args()...).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("player %q: %w", name, ErrNotFound)
	}
	return id, err
}

// PlayerIDs resolves several player names on a site.
func (db *DB) PlayerIDs(ctx context.Context, site string, names []string) (map[string]int64, error) {
	out := make(map[string]int64, len(names))
	for _, n := range names {
		id, err := db.PlayerID(ctx, n, site)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out[n] = id
	}
	return out, nil
}

// PlayerSummary is one line of the player listing.
type PlayerSummary struct {
	ID          int64
	Name        string
	Site        string
	Hands       int
	TotalProfit int64
	LastHand    time.Time
}

// ListPlayers returns players with their hand counts, busiest first.
func (db *DB) ListPlayers(ctx context.Context, minHands int) ([]PlayerSummary, error) {
	q := db.q().sql(`SELECT p.id, p.name, s.name, COUNT(hp.id), `, db.dialect.CastInt("COALESCE(SUM(hp.totalProfit), 0)"),
		`, COALESCE(MAX(h.handStart), 0)
		FROM players p
		JOIN sites s ON s.id = p.siteId
		LEFT JOIN handsplayers hp ON hp.playerId = p.id
		LEFT JOIN hands h ON h.id = hp.handId
		GROUP BY p.id, p.name, s.name
		HAVING COUNT(hp.id) >= `).arg(minHands).sql(" ORDER BY COUNT(hp.id) DESC, p.name")
	rows, err := db.conn.QueryContext(ctx, q.String(), q.Args()...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PlayerSummary
	for rows.Next() {
		var p PlayerSummary
		var last int64
		if err := rows.Scan(&p.ID, &p.Name, &p.Site, &p.Hands, &p.TotalProfit, &last); err != nil {
			return nil, err
		}
		if last > 0 {
			p.LastHand = time.Unix(last, 0).UTC()
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ExportRow is one player's stat row for one hand.
type ExportRow struct {
	HandNo    int64
	Site      string
	HandStart time.Time
	Game      string
	Stat      *model.PlayerHandStat
}

// ExportRows streams a player's stat rows in hand order.
func (db *DB) ExportRows(ctx context.Context, playerID int64, fn func(ExportRow) error) error {
	q := db.q().sql(`SELECT h.siteHandNo, s.name, h.handStart, g.limitType, g.category, g.smallBlind, g.bigBlind,
		p.name, hp.seatNo, hp.startCash, hp.position, hp.startCards, `, statList("hp."), `
		FROM handsplayers hp
		JOIN hands h ON h.id = hp.handId
		JOIN sites s ON s.id = h.siteId
		JOIN gametypes g ON g.id = h.gametypeId
		JOIN players p ON p.id = hp.playerId
		WHERE hp.playerId = `).arg(playerID).sql(" ORDER BY h.handStart, h.id")
	rows, err := db.conn.QueryContext(ctx, q.String(), q.Args()...)
	if err != nil {
		return err
	}
	defer rows.Close()

	cols := model.StatColumns()
	for rows.Next() {
		r := ExportRow{Stat: &model.PlayerHandStat{}}
		var start, sb, bb int64
		var limitType, category, pos string
		vals := make([]int64, len(cols))
		dest := []any{&r.HandNo, &r.Site, &start, &limitType, &category, &sb, &bb,
			&r.Stat.PlayerName, &r.Stat.SeatNo, &r.Stat.StartCash, &pos, &r.Stat.StartCards}
		for i := range vals {
			dest = append(dest, &vals[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return err
		}
		r.HandStart = time.Unix(start, 0).UTC()
		r.Game = fmt.Sprintf("%s %s %d/%d", limitType, category, sb, bb)
		r.Stat.Position = model.Position(pos)
		for i, c := range cols {
			r.Stat.SetCounter(c, vals[i])
		}
		if err := fn(r); err != nil {
			return err
		}
	}
	return rows.Err()
}
