package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pable/go-hud-stats/internal/cache"
	"github.com/pable/go-hud-stats/internal/derived"
	"github.com/pable/go-hud-stats/internal/model"
)

// HandRecord is one parsed hand ready to store.
type HandRecord struct {
	ImportID string
	Hand     *model.Hand
	Derived  *derived.Result // nil when the hand could not be derived
	Excluded bool            // keep out of the HUD cache
}

// StoredHand reports the ids assigned to a stored hand. Rows are the
// cache rows of the hand, empty when it is excluded.
type StoredHand struct {
	ID            int64
	GametypeID    int64
	TourneyTypeID int64
	TourneyID     int64
	PlayerIDs     map[string]int64
	Rows          []cache.Row
}

var handColumns = []string{
	"siteId", "siteHandNo", "gametypeId", "tourneyId", "tourneyTypeId", "tableName", "maxSeats", "seats",
	"handStart", "importId", "excluded", "warnings", "handText",
	"boardcard1", "boardcard2", "boardcard3", "boardcard4", "boardcard5",
	"street1Pot", "street2Pot", "street3Pot", "street4Pot", "showdownPot", "playersVpi",
	"playersAtStreet1", "playersAtStreet2", "playersAtStreet3", "playersAtStreet4", "playersAtShowdown",
	"street0Raises", "street1Raises", "street2Raises", "street3Raises", "street4Raises", "rake",
}

var playerIdentityColumns = []string{
	"handId", "playerId", "seatNo", "startCash", "position", "startCards",
	"card1", "card2", "card3", "card4", "card5", "card6", "card7",
}

// statList returns the stat columns joined for a select or insert list.
func statList(prefix string) string {
	cols := model.StatColumns()
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = prefix + c
	}
	return strings.Join(out, ", ")
}

// StoreHand writes a hand, its players, actions and stat rows in one
// transaction. It returns ErrDuplicateHand if the hand is already stored.
func (db *DB) StoreHand(ctx context.Context, rec HandRecord) (*StoredHand, error) {
	h := rec.Hand
	out := &StoredHand{PlayerIDs: map[string]int64{}}
	err := db.inTx(ctx, func(tx *sql.Tx) error {
		siteID, err := db.ensureSite(ctx, tx, h.Site.String())
		if err != nil {
			return err
		}
		if out.GametypeID, err = db.ensureGametype(ctx, tx, siteID, h.GameType); err != nil {
			return err
		}
		if h.Tourney != nil {
			if out.TourneyTypeID, err = db.ensureTourneyType(ctx, tx, siteID, h.Tourney, h.MaxSeats); err != nil {
				return err
			}
			if out.TourneyID, err = db.ensureTourney(ctx, tx, out.TourneyTypeID, h.Tourney.TourNo, h.Tourney.Name); err != nil {
				return err
			}
		}
		for _, p := range h.Players {
			id, err := db.ensurePlayer(ctx, tx, siteID, p.Name)
			if err != nil {
				return err
			}
			out.PlayerIDs[p.Name] = id
		}

		if out.ID, err = db.insertHand(ctx, tx, siteID, out, rec); err != nil {
			return err
		}
		if rec.Derived != nil {
			if err := db.insertHandPlayers(ctx, tx, out.ID, out.PlayerIDs, rec.Derived.Players); err != nil {
				return err
			}
		}
		return db.insertActions(ctx, tx, out.ID, out.PlayerIDs, h)
	})
	if err != nil {
		return nil, err
	}

	if rec.Derived != nil && !rec.Excluded {
		for _, s := range rec.Derived.Players {
			out.Rows = append(out.Rows, cache.Row{
				HandID:        out.ID,
				GametypeID:    out.GametypeID,
				PlayerID:      out.PlayerIDs[s.PlayerName],
				TourneyTypeID: out.TourneyTypeID,
				ActiveSeats:   rec.Derived.Hand.Seats,
				HandStart:     h.StartTime,
				Stat:          s,
			})
		}
	}
	return out, nil
}

func (db *DB) insertHand(ctx context.Context, tx *sql.Tx, siteID int64, ids *StoredHand, rec HandRecord) (int64, error) {
	h := rec.Hand
	var hs model.HandStats
	if rec.Derived != nil {
		hs = rec.Derived.Hand
	} else {
		hs.Seats = len(h.DealtIn())
	}
	vals := []any{
		siteID, h.HandNo, ids.GametypeID, ids.TourneyID, ids.TourneyTypeID, h.TableName, h.MaxSeats, hs.Seats,
		h.StartTime.Unix(), rec.ImportID, boolInt(rec.Excluded), strings.Join(h.Warnings, "\n"), h.Text,
	}
	for _, c := range hs.BoardCards {
		vals = append(vals, c)
	}
	for _, p := range hs.StreetPots {
		vals = append(vals, p)
	}
	vals = append(vals, hs.ShowdownPot, hs.PlayersVPI)
	for _, n := range hs.PlayersAtStreet {
		vals = append(vals, n)
	}
	vals = append(vals, hs.PlayersAtShowdown)
	for _, n := range hs.StreetRaises {
		vals = append(vals, n)
	}
	vals = append(vals, h.Rake)

	q := db.q().sql("INSERT INTO hands (", strings.Join(handColumns, ", "), ") VALUES (").
		list(vals...).
		sql(") ON CONFLICT (siteId, siteHandNo, gametypeId) DO NOTHING RETURNING id")
	var id int64
	err := tx.QueryRowContext(ctx, q.String(), q.Args()...).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("hand %d: %w", h.HandNo, ErrDuplicateHand)
	}
	if err != nil {
		return 0, fmt.Errorf("insert hand %d: %w", h.HandNo, err)
	}
	return id, nil
}

func (db *DB) insertHandPlayers(ctx context.Context, tx *sql.Tx, handID int64, playerIDs map[string]int64, rows []*model.PlayerHandStat) error {
	cols := model.StatColumns()
	n := len(playerIdentityColumns) + len(cols)
	stmt, err := tx.PrepareContext(ctx, "INSERT INTO handsplayers ("+strings.Join(playerIdentityColumns, ", ")+", "+
		statList("")+") VALUES "+placeholderRow(db.dialect, 1, n))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, s := range rows {
		args := make([]any, 0, n)
		args = append(args, handID, playerIDs[s.PlayerName], s.SeatNo, s.StartCash, string(s.Position), s.StartCards)
		for _, c := range s.Cards {
			args = append(args, c)
		}
		for _, v := range s.Values() {
			args = append(args, v)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("insert handsplayers for %s: %w", s.PlayerName, err)
		}
	}
	return nil
}

func (db *DB) insertActions(ctx context.Context, tx *sql.Tx, handID int64, playerIDs map[string]int64, h *model.Hand) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO handsactions
		(handId, playerId, street, actionNo, verb, amount, raiseTo, allIn, cards) VALUES `+placeholderRow(db.dialect, 1, 9))
	if err != nil {
		return err
	}
	defer stmt.Close()

	no := 0
	insert := func(st model.Street, a model.Action) error {
		no++
		_, err := stmt.ExecContext(ctx, handID, playerIDs[a.Player], int(st), no, a.Verb.String(),
			a.Amount, a.RaiseTo, boolInt(a.AllIn), strings.Join(a.Cards, " "))
		return err
	}
	for _, a := range h.Posts {
		if err := insert(model.Street0, a); err != nil {
			return fmt.Errorf("insert post: %w", err)
		}
	}
	for st, actions := range h.Actions {
		for _, a := range actions {
			if err := insert(model.Street(st), a); err != nil {
				return fmt.Errorf("insert action: %w", err)
			}
		}
	}
	return nil
}

// ---- Lookup tables ----

// ensureID inserts a row keyed by keys unless it exists and returns its id.
func (db *DB) ensureID(ctx context.Context, tx *sql.Tx, table string, keys []string, vals []any, extra map[string]any) (int64, error) {
	cols := append([]string{}, keys...)
	all := append([]any{}, vals...)
	for k, v := range extra {
		cols = append(cols, k)
		all = append(all, v)
	}
	ins := db.q().sql("INSERT INTO ", table, " (", strings.Join(cols, ", "), ") VALUES (").list(all...).
		sql(") ON CONFLICT (", strings.Join(keys, ", "), ") DO NOTHING")
	if _, err := tx.ExecContext(ctx, ins.String(), ins.Args()...); err != nil {
		return 0, fmt.Errorf("insert %s: %w", table, err)
	}

	sel := db.q().sql("SELECT id FROM ", table, " WHERE ")
	for i, k := range keys {
		if i > 0 {
			sel.sql(" AND ")
		}
		sel.sql(k, " = ").arg(vals[i])
	}
	var id int64
	if err := tx.QueryRowContext(ctx, sel.String(), sel.Args()...).Scan(&id); err != nil {
		return 0, fmt.Errorf("select %s id: %w", table, err)
	}
	return id, nil
}

func (db *DB) ensureSite(ctx context.Context, tx *sql.Tx, name string) (int64, error) {
	return db.ensureID(ctx, tx, "sites", []string{"name"}, []any{name}, nil)
}

func (db *DB) ensurePlayer(ctx context.Context, tx *sql.Tx, siteID int64, name string) (int64, error) {
	return db.ensureID(ctx, tx, "players", []string{"name", "siteId"}, []any{name, siteID}, nil)
}

func (db *DB) ensureGametype(ctx context.Context, tx *sql.Tx, siteID int64, g model.GameType) (int64, error) {
	return db.ensureID(ctx, tx, "gametypes",
		[]string{"siteId", "type", "base", "category", "limitType", "currency", "smallBlind", "bigBlind", "ante"},
		[]any{siteID, g.Type, g.Base, g.Category, g.LimitType, g.Currency, g.SmallBlind, g.BigBlind, g.Ante}, nil)
}

func (db *DB) ensureTourneyType(ctx context.Context, tx *sql.Tx, siteID int64, t *model.TourneyInfo, maxSeats int) (int64, error) {
	return db.ensureID(ctx, tx, "tourneytypes",
		[]string{"siteId", "buyin", "fee", "bounty", "currency", "maxSeats"},
		[]any{siteID, t.BuyIn, t.Fee, t.Bounty, t.Currency, maxSeats}, nil)
}

func (db *DB) ensureTourney(ctx context.Context, tx *sql.Tx, tourneyTypeID, tourNo int64, name string) (int64, error) {
	return db.ensureID(ctx, tx, "tourneys",
		[]string{"tourneyTypeId", "siteTourneyNo"}, []any{tourneyTypeID, tourNo},
		map[string]any{"name": name})
}

// ---- Reads ----

// HandSummary is one line of a hand listing.
type HandSummary struct {
	ID        int64
	Site      string
	HandNo    int64
	Start     time.Time
	TableName string
	Game      string
	Seats     int
	Pot       int64
	Excluded  bool
}

// ListHands returns the most recent hands, optionally only those player sat in.
func (db *DB) ListHands(ctx context.Context, player string, limit int) ([]HandSummary, error) {
	q := db.q().sql(`SELECT h.id, s.name, h.siteHandNo, h.handStart, h.tableName,
		g.category, g.limitType, g.smallBlind, g.bigBlind, h.seats, h.showdownPot, h.excluded
		FROM hands h JOIN sites s ON s.id = h.siteId JOIN gametypes g ON g.id = h.gametypeId`)
	if player != "" {
		q.sql(` WHERE EXISTS (SELECT 1 FROM handsplayers hp JOIN players p ON p.id = hp.playerId
			WHERE hp.handId = h.id AND p.name = `).arg(player).sql(")")
	}
	q.sql(" ORDER BY h.handStart DESC, h.id DESC")
	if limit > 0 {
		q.sql(" LIMIT ").arg(limit)
	}
	rows, err := db.conn.QueryContext(ctx, q.String(), q.Args()...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []HandSummary
	for rows.Next() {
		var s HandSummary
		var start int64
		var category, limitType string
		var sb, bb int64
		var excluded int
		if err := rows.Scan(&s.ID, &s.Site, &s.HandNo, &start, &s.TableName,
			&category, &limitType, &sb, &bb, &s.Seats, &s.Pot, &excluded); err != nil {
			return nil, err
		}
		s.Start = time.Unix(start, 0).UTC()
		s.Game = fmt.Sprintf("%s %s %d/%d", limitType, category, sb, bb)
		s.Excluded = excluded != 0
		out = append(out, s)
	}
	return out, rows.Err()
}

// StoredPlayer is one handsplayers row with the player's name.
type StoredPlayer struct {
	PlayerID int64
	Name     string
	Stat     *model.PlayerHandStat
}

// StoredHandDetail is a stored hand with its players and raw text.
type StoredHandDetail struct {
	HandSummary
	GameType model.GameType
	Warnings []string
	Text     string
	Board    []string
	Players  []StoredPlayer
}

// MadeHand names the best five-card hand of a player whose two hole cards
// are known on a full hold'em board, or "" when it cannot be evaluated.
func (d *StoredHandDetail) MadeHand(p StoredPlayer) string {
	if d.GameType.Category != "holdem" || len(d.Board) != 5 {
		return ""
	}
	var hole []string
	for _, c := range p.Stat.Cards {
		if c != 0 {
			hole = append(hole, model.DecodeCard(c))
		}
	}
	if len(hole) != 2 {
		return ""
	}
	desc, err := model.DescribeHand(hole, d.Board)
	if err != nil {
		return ""
	}
	return desc
}

// HandByNumber loads one hand by site name and site hand number.
func (db *DB) HandByNumber(ctx context.Context, site string, handNo int64) (*StoredHandDetail, error) {
	q := db.q().sql(`SELECT h.id, s.name, h.siteHandNo, h.handStart, h.tableName, h.seats, h.showdownPot,
		h.excluded, h.warnings, h.handText, h.boardcard1, h.boardcard2, h.boardcard3, h.boardcard4, h.boardcard5,
		g.type, g.base, g.category, g.limitType, g.currency, g.smallBlind, g.bigBlind, g.ante
		FROM hands h JOIN sites s ON s.id = h.siteId JOIN gametypes g ON g.id = h.gametypeId
		WHERE s.name = `).arg(site).sql(" AND h.siteHandNo = ").arg(handNo).sql(" ORDER BY h.id LIMIT 1")

	var d StoredHandDetail
	var start int64
	var excluded int
	var warnings string
	var board [5]int
	g := &d.GameType
	err := db.conn.QueryRowContext(ctx, q.String(), q.Args()...).Scan(
		&d.ID, &d.Site, &d.HandNo, &start, &d.TableName, &d.Seats, &d.Pot,
		&excluded, &warnings, &d.Text, &board[0], &board[1], &board[2], &board[3], &board[4],
		&g.Type, &g.Base, &g.Category, &g.LimitType, &g.Currency, &g.SmallBlind, &g.BigBlind, &g.Ante)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("hand %s #%d: %w", site, handNo, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	d.Start = time.Unix(start, 0).UTC()
	d.Excluded = excluded != 0
	d.Game = fmt.Sprintf("%s %s %d/%d", g.LimitType, g.Category, g.SmallBlind, g.BigBlind)
	if warnings != "" {
		d.Warnings = strings.Split(warnings, "\n")
	}
	for _, c := range board {
		if c != 0 {
			d.Board = append(d.Board, model.DecodeCard(c))
		}
	}

	d.Players, err = db.handPlayers(ctx, d.ID)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (db *DB) handPlayers(ctx context.Context, handID int64) ([]StoredPlayer, error) {
	q := db.q().sql(`SELECT hp.playerId, p.name, hp.seatNo, hp.startCash, hp.position, hp.startCards,
		hp.card1, hp.card2, hp.card3, hp.card4, hp.card5, hp.card6, hp.card7, `, statList("hp."), `
		FROM handsplayers hp JOIN players p ON p.id = hp.playerId
		WHERE hp.handId = `).arg(handID).sql(" ORDER BY hp.seatNo")
	rows, err := db.conn.QueryContext(ctx, q.String(), q.Args()...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols := model.StatColumns()
	var out []StoredPlayer
	for rows.Next() {
		s := &model.PlayerHandStat{}
		var p StoredPlayer
		var pos string
		vals := make([]int64, len(cols))
		dest := []any{&p.PlayerID, &s.PlayerName, &s.SeatNo, &s.StartCash, &pos, &s.StartCards}
		for i := range s.Cards {
			dest = append(dest, &s.Cards[i])
		}
		for i := range vals {
			dest = append(dest, &vals[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		s.Position = model.Position(pos)
		for i, c := range cols {
			s.SetCounter(c, vals[i])
		}
		p.Name, p.Stat = s.PlayerName, s
		out = append(out, p)
	}
	return out, rows.Err()
}

// RawHand is a stored hand's text for re-deriving.
type RawHand struct {
	ID       int64
	Site     string
	HandNo   int64
	Excluded bool
	Text     string
}

// RawHands streams every stored hand's text in id order.
func (db *DB) RawHands(ctx context.Context, fn func(RawHand) error) error {
	rows, err := db.conn.QueryContext(ctx, `SELECT h.id, s.name, h.siteHandNo, h.excluded, h.handText
		FROM hands h JOIN sites s ON s.id = h.siteId ORDER BY h.id`)
	if err != nil {
		return err
	}
	var raws []RawHand
	for rows.Next() {
		var r RawHand
		var excluded int
		if err := rows.Scan(&r.ID, &r.Site, &r.HandNo, &excluded, &r.Text); err != nil {
			rows.Close()
			return err
		}
		r.Excluded = excluded != 0
		raws = append(raws, r)
	}
	if err := rows.Close(); err != nil {
		return err
	}
	// fn may write to the store, so the cursor is drained first.
	for _, r := range raws {
		if err := fn(r); err != nil {
			return err
		}
	}
	return nil
}

// ReplaceHandStats swaps a stored hand's stat rows for freshly derived
// ones and clears its excluded flag.
func (db *DB) ReplaceHandStats(ctx context.Context, handID int64, r *derived.Result) error {
	return db.inTx(ctx, func(tx *sql.Tx) error {
		var siteID int64
		q := db.q().sql("SELECT siteId FROM hands WHERE id = ").arg(handID)
		if err := tx.QueryRowContext(ctx, q.String(), q.Args()...).Scan(&siteID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("hand id %d: %w", handID, ErrNotFound)
			}
			return err
		}
		del := db.q().sql("DELETE FROM handsplayers WHERE handId = ").arg(handID)
		if _, err := tx.ExecContext(ctx, del.String(), del.Args()...); err != nil {
			return err
		}
		ids := map[string]int64{}
		for _, s := range r.Players {
			id, err := db.ensurePlayer(ctx, tx, siteID, s.PlayerName)
			if err != nil {
				return err
			}
			ids[s.PlayerName] = id
		}
		if err := db.insertHandPlayers(ctx, tx, handID, ids, r.Players); err != nil {
			return err
		}
		hs := r.Hand
		upd := db.q().sql("UPDATE hands SET excluded = 0, seats = ").arg(hs.Seats).
			sql(", showdownPot = ").arg(hs.ShowdownPot).
			sql(", playersVpi = ").arg(hs.PlayersVPI).
			sql(", playersAtShowdown = ").arg(hs.PlayersAtShowdown)
		for i := 0; i < 4; i++ {
			n := strconv.Itoa(i + 1)
			upd.sql(", street"+n+"Pot = ").arg(hs.StreetPots[i])
			upd.sql(", playersAtStreet"+n+" = ").arg(hs.PlayersAtStreet[i])
		}
		for i, n := range hs.StreetRaises {
			upd.sql(", street"+strconv.Itoa(i)+"Raises = ").arg(n)
		}
		upd.sql(" WHERE id = ").arg(handID)
		_, err := tx.ExecContext(ctx, upd.String(), upd.Args()...)
		return err
	})
}

// SetExcluded flags a stored hand in or out of the HUD cache.
func (db *DB) SetExcluded(ctx context.Context, handID int64, excluded bool) error {
	q := db.q().sql("UPDATE hands SET excluded = ").arg(boolInt(excluded)).sql(" WHERE id = ").arg(handID)
	_, err := db.conn.ExecContext(ctx, q.String(), q.Args()...)
	return err
}
