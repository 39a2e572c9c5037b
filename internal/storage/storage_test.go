package storage

import (
	"context"
	"errors"
	"os"
	"reflect"
	"testing"
	"time"

	"github.com/pable/go-hud-stats/internal/cache"
	"github.com/pable/go-hud-stats/internal/derived"
	"github.com/pable/go-hud-stats/internal/model"
	"github.com/pable/go-hud-stats/internal/parser"
	"github.com/pable/go-hud-stats/internal/tourney"
)

func openMemDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open in-memory db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// fixtureRecords parses and derives every hand of a parser fixture.
func fixtureRecords(t *testing.T, name, importID string) []HandRecord {
	t.Helper()
	raw, err := os.ReadFile("../parser/testdata/" + name)
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	results, err := parser.ParseFile(parser.NewWinamax(), raw)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	var out []HandRecord
	for _, r := range results {
		if r.Err != nil {
			t.Fatalf("parse hand %d: %v", r.Index, r.Err)
		}
		d, err := derived.Derive(r.Hand)
		if err != nil {
			t.Fatalf("derive hand %d: %v", r.Index, err)
		}
		out = append(out, HandRecord{ImportID: importID, Hand: r.Hand, Derived: d})
	}
	return out
}

func storeAll(t *testing.T, db *DB, recs []HandRecord) []cache.Row {
	t.Helper()
	var rows []cache.Row
	for _, rec := range recs {
		stored, err := db.StoreHand(context.Background(), rec)
		if err != nil {
			t.Fatalf("StoreHand %d: %v", rec.Hand.HandNo, err)
		}
		rows = append(rows, stored.Rows...)
	}
	return rows
}

// ---- Schema ----

func TestSchemaHasEveryStatColumn(t *testing.T) {
	db := openMemDB(t)
	for _, table := range []string{"handsplayers", "hudcache"} {
		_, rows, err := db.QueryRaw("SELECT name FROM pragma_table_info('" + table + "')")
		if err != nil {
			t.Fatalf("table_info %s: %v", table, err)
		}
		have := map[string]bool{}
		for _, r := range rows {
			have[r[0]] = true
		}
		for _, c := range model.StatColumns() {
			if !have[c] {
				t.Errorf("%s lacks stat column %s", table, c)
			}
		}
	}
}

// ---- Hands ----

func TestStoreHandAndDuplicate(t *testing.T) {
	db := openMemDB(t)
	ctx := context.Background()
	recs := fixtureRecords(t, "winamax_cash.txt", "imp1")

	stored, err := db.StoreHand(ctx, recs[0])
	if err != nil {
		t.Fatalf("StoreHand: %v", err)
	}
	if stored.ID == 0 || stored.GametypeID == 0 {
		t.Errorf("ids not assigned: %+v", stored)
	}
	if len(stored.Rows) != 4 {
		t.Errorf("expected 4 cache rows, got %d", len(stored.Rows))
	}
	if len(stored.PlayerIDs) != 4 {
		t.Errorf("expected 4 player ids, got %d", len(stored.PlayerIDs))
	}

	_, err = db.StoreHand(ctx, recs[0])
	if !errors.Is(err, ErrDuplicateHand) {
		t.Fatalf("second store: want ErrDuplicateHand, got %v", err)
	}

	hands, err := db.ListHands(ctx, "", 0)
	if err != nil {
		t.Fatalf("ListHands: %v", err)
	}
	if len(hands) != 1 {
		t.Errorf("duplicate stored twice: %d hands", len(hands))
	}
}

func TestHandByNumber(t *testing.T) {
	db := openMemDB(t)
	ctx := context.Background()
	storeAll(t, db, fixtureRecords(t, "winamax_cash.txt", "imp1"))

	d, err := db.HandByNumber(ctx, "winamax", 1285031451)
	if err != nil {
		t.Fatalf("HandByNumber: %v", err)
	}
	if len(d.Board) != 3 || d.Board[0] != "2c" {
		t.Errorf("board = %v", d.Board)
	}
	var carol *model.PlayerHandStat
	for _, p := range d.Players {
		if p.Name == "Carol" {
			carol = p.Stat
		}
	}
	if carol == nil {
		t.Fatal("Carol not stored")
	}
	if carol.TotalProfit != 17 || carol.Position != model.PositionButton {
		t.Errorf("Carol profit=%d position=%q", carol.TotalProfit, carol.Position)
	}

	_, err = db.HandByNumber(ctx, "winamax", 42)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("missing hand: want ErrNotFound, got %v", err)
	}
}

func TestMadeHandAtShowdown(t *testing.T) {
	db := openMemDB(t)
	ctx := context.Background()
	storeAll(t, db, fixtureRecords(t, "winamax_cash.txt", "imp1"))

	d, err := db.HandByNumber(ctx, "winamax", 1285031500)
	if err != nil {
		t.Fatalf("HandByNumber: %v", err)
	}
	made := map[string]string{}
	for _, p := range d.Players {
		made[p.Name] = d.MadeHand(p)
	}
	want, err := model.DescribeHand([]string{"Ah", "Ad"}, []string{"2c", "7d", "Jh", "9s", "Kd"})
	if err != nil {
		t.Fatalf("DescribeHand: %v", err)
	}
	if made["Bob"] != want {
		t.Errorf("Bob made %q, want %q", made["Bob"], want)
	}
	if made["Carol"] == "" || made["Carol"] == made["Bob"] {
		t.Errorf("Carol made %q", made["Carol"])
	}
	if made["Dave"] != "" {
		t.Errorf("Dave has no known cards, got %q", made["Dave"])
	}

	// Hero cards on a flop-only board cannot make a five-card hand.
	d, err = db.HandByNumber(ctx, "winamax", 1285031451)
	if err != nil {
		t.Fatalf("HandByNumber: %v", err)
	}
	for _, p := range d.Players {
		if got := d.MadeHand(p); got != "" {
			t.Errorf("%s made %q on a three-card board", p.Name, got)
		}
	}
}

func TestExcludedHandStaysOutOfCache(t *testing.T) {
	db := openMemDB(t)
	ctx := context.Background()
	rec := fixtureRecords(t, "winamax_cash.txt", "imp1")[0]
	rec.Excluded = true

	stored, err := db.StoreHand(ctx, rec)
	if err != nil {
		t.Fatalf("StoreHand: %v", err)
	}
	if len(stored.Rows) != 0 {
		t.Errorf("excluded hand produced %d cache rows", len(stored.Rows))
	}
	if err := db.RebuildBuckets(ctx); err != nil {
		t.Fatalf("RebuildBuckets: %v", err)
	}
	buckets, err := db.Buckets(ctx, cache.Filter{})
	if err != nil {
		t.Fatalf("Buckets: %v", err)
	}
	if len(buckets) != 0 {
		t.Errorf("rebuild cached %d buckets from an excluded hand", len(buckets))
	}
}

// ---- HUD cache ----

func TestRebuildMatchesIncremental(t *testing.T) {
	db := openMemDB(t)
	ctx := context.Background()
	recs := append(fixtureRecords(t, "winamax_cash.txt", "imp1"), fixtureRecords(t, "winamax_tourney.txt", "imp2")...)
	rows := storeAll(t, db, recs)

	agg := cache.NewAggregator(db)
	if err := agg.Update(ctx, rows); err != nil {
		t.Fatalf("Update: %v", err)
	}
	incremental, err := db.Buckets(ctx, cache.Filter{})
	if err != nil {
		t.Fatalf("Buckets: %v", err)
	}
	if len(incremental) == 0 {
		t.Fatal("no buckets after update")
	}

	if err := agg.Rebuild(ctx); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	rebuilt, err := db.Buckets(ctx, cache.Filter{})
	if err != nil {
		t.Fatalf("Buckets: %v", err)
	}
	if !reflect.DeepEqual(incremental, rebuilt) {
		t.Errorf("rebuilt cache differs from incremental:\n inc=%v\n reb=%v", incremental, rebuilt)
	}
}

func TestBucketsFilterAndSum(t *testing.T) {
	db := openMemDB(t)
	ctx := context.Background()
	rows := storeAll(t, db, fixtureRecords(t, "winamax_cash.txt", "imp1"))
	if err := db.IncrementBuckets(ctx, cache.Build(rows)); err != nil {
		t.Fatalf("IncrementBuckets: %v", err)
	}

	carol, err := db.PlayerID(ctx, "Carol", "winamax")
	if err != nil {
		t.Fatalf("PlayerID: %v", err)
	}
	buckets, err := db.Buckets(ctx, cache.Filter{PlayerID: carol})
	if err != nil {
		t.Fatalf("Buckets: %v", err)
	}
	total := cache.Sum(buckets, cache.Filter{PlayerID: carol})
	if total[model.HandsKey] != 3 {
		t.Errorf("Carol hands = %d, want 3", total[model.HandsKey])
	}
	if total["totalProfit"] != 17-30+2 {
		t.Errorf("Carol totalProfit = %d", total["totalProfit"])
	}

	direct, err := db.SumSince(ctx, carol, nil, 0)
	if err != nil {
		t.Fatalf("SumSince: %v", err)
	}
	if direct[model.HandsKey] != 3 || direct["totalProfit"] != total["totalProfit"] {
		t.Errorf("SumSince = %d hands, %d profit", direct[model.HandsKey], direct["totalProfit"])
	}

	late, err := db.SumSince(ctx, carol, nil, time.Date(2010, 9, 21, 1, 12, 0, 0, time.UTC).Unix())
	if err != nil {
		t.Fatalf("SumSince late: %v", err)
	}
	if late[model.HandsKey] != 1 {
		t.Errorf("hands since 01:12 = %d, want 1", late[model.HandsKey])
	}
}

// ---- Sessions ----

func TestRecomputeSessions(t *testing.T) {
	db := openMemDB(t)
	ctx := context.Background()
	storeAll(t, db, fixtureRecords(t, "winamax_cash.txt", "imp1"))

	carol, err := db.PlayerID(ctx, "Carol", "")
	if err != nil {
		t.Fatalf("PlayerID: %v", err)
	}
	if err := db.RecomputeSessions(ctx, []int64{carol}, 30*time.Minute); err != nil {
		t.Fatalf("RecomputeSessions: %v", err)
	}
	sessions, err := db.Sessions(ctx, carol)
	if err != nil {
		t.Fatalf("Sessions: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("expected 1 session, got %d", len(sessions))
	}
	if sessions[0].Hands != 3 || sessions[0].TotalProfit != -11 {
		t.Errorf("session = %+v", sessions[0])
	}

	// A one-minute gap splits the three hands apart.
	if err := db.RecomputeSessions(ctx, []int64{carol}, time.Minute); err != nil {
		t.Fatalf("RecomputeSessions: %v", err)
	}
	sessions, _ = db.Sessions(ctx, carol)
	if len(sessions) != 2 {
		t.Errorf("expected 2 sessions with a 1m gap, got %d", len(sessions))
	}
}

// ---- Imports ----

func TestImportLifecycle(t *testing.T) {
	db := openMemDB(t)
	ctx := context.Background()
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	if err := db.BeginImport(ctx, "imp1", "cash.txt", "abc", "winamax", now); err != nil {
		t.Fatalf("BeginImport: %v", err)
	}
	if err := db.BeginImport(ctx, "imp1", "cash.txt", "abc", "winamax", now); !errors.Is(err, ErrImportExists) {
		t.Errorf("reused id: want ErrImportExists, got %v", err)
	}
	done, _ := db.FileImported(ctx, "abc")
	if done {
		t.Error("unfinished import counted as imported")
	}

	storeAll(t, db, fixtureRecords(t, "winamax_cash.txt", "imp1"))
	if err := db.FinishImport(ctx, Import{ID: "imp1", FinishedAt: now.Add(time.Second), Stored: 3}); err != nil {
		t.Fatalf("FinishImport: %v", err)
	}
	done, _ = db.FileImported(ctx, "abc")
	if !done {
		t.Error("finished import not reported")
	}

	imports, err := db.ListImports(ctx)
	if err != nil {
		t.Fatalf("ListImports: %v", err)
	}
	if len(imports) != 1 || imports[0].Stored != 3 || imports[0].FileName != "cash.txt" {
		t.Errorf("imports = %+v", imports)
	}

	players, err := db.DeleteImport(ctx, "imp1")
	if err != nil {
		t.Fatalf("DeleteImport: %v", err)
	}
	if len(players) != 4 {
		t.Errorf("affected players = %v", players)
	}
	o, err := db.Overview(ctx)
	if err != nil {
		t.Fatalf("Overview: %v", err)
	}
	if o.Hands != 0 || o.Imports != 0 {
		t.Errorf("after delete: %d hands, %d imports", o.Hands, o.Imports)
	}
	if _, err := db.DeleteImport(ctx, "imp1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete: want ErrNotFound, got %v", err)
	}
}

// ---- Tourneys ----

func TestStoreTourneySummary(t *testing.T) {
	db := openMemDB(t)
	ctx := context.Background()
	s := &tourney.Summary{
		Site: model.SiteWinamax, TourNo: 771114925, Name: "Sunday KO",
		BuyIn: 450, Bounty: 500, Fee: 50, Currency: "EUR", MaxSeats: 6,
		Entries: 120, PrizePool: 108000, StartTime: time.Date(2010, 9, 21, 20, 0, 0, 0, time.UTC),
		Hero: "Fred", Rank: 14, Winnings: 1240,
		Players: []tourney.Finisher{{Name: "Fred", Rank: 14, Winnings: 1240}},
	}
	id1, err := db.StoreTourneySummary(ctx, s)
	if err != nil {
		t.Fatalf("StoreTourneySummary: %v", err)
	}
	s.Players[0].Winnings = 2000
	id2, err := db.StoreTourneySummary(ctx, s)
	if err != nil {
		t.Fatalf("second StoreTourneySummary: %v", err)
	}
	if id1 != id2 {
		t.Errorf("same tournament stored twice: %d, %d", id1, id2)
	}

	results, err := db.ListTourneys(ctx, "Fred")
	if err != nil {
		t.Fatalf("ListTourneys: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	r := results[0]
	if r.Rank != 14 || r.Winnings != 2000 || r.Entries != 120 {
		t.Errorf("result = %+v", r)
	}
	if r.Net() != 2000-1000 {
		t.Errorf("net = %d", r.Net())
	}
}

// ---- Raw queries ----

func TestQueryRawAndPlayers(t *testing.T) {
	db := openMemDB(t)
	ctx := context.Background()
	storeAll(t, db, fixtureRecords(t, "winamax_cash.txt", "imp1"))

	cols, rows, err := db.QueryRaw("SELECT COUNT(*) AS n, NULL AS empty FROM hands")
	if err != nil {
		t.Fatalf("QueryRaw: %v", err)
	}
	if len(cols) != 2 || cols[0] != "n" {
		t.Errorf("cols = %v", cols)
	}
	if len(rows) != 1 || rows[0][0] != "3" || rows[0][1] != "NULL" {
		t.Errorf("rows = %v", rows)
	}

	players, err := db.ListPlayers(ctx, 3)
	if err != nil {
		t.Fatalf("ListPlayers: %v", err)
	}
	// Alice, Bob and Carol sit in all three hands; Dave in two.
	if len(players) != 3 {
		t.Errorf("players with 3+ hands = %+v", players)
	}
}

func TestExportRows(t *testing.T) {
	db := openMemDB(t)
	ctx := context.Background()
	recs := fixtureRecords(t, "winamax_cash.txt", "imp1")
	storeAll(t, db, recs)

	want := map[int64]*model.PlayerHandStat{}
	for _, rec := range recs {
		want[rec.Hand.HandNo] = rec.Derived.Player("Carol")
	}
	carol, err := db.PlayerID(ctx, "Carol", "winamax")
	if err != nil {
		t.Fatalf("PlayerID: %v", err)
	}

	var got []ExportRow
	err = db.ExportRows(ctx, carol, func(r ExportRow) error {
		got = append(got, r)
		return nil
	})
	if err != nil {
		t.Fatalf("ExportRows: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("rows = %d, want 3", len(got))
	}
	for i, r := range got {
		if i > 0 && r.HandStart.Before(got[i-1].HandStart) {
			t.Errorf("row %d out of hand order", i)
		}
		if r.Stat.PlayerName != "Carol" {
			t.Errorf("row %d player = %q", i, r.Stat.PlayerName)
		}
		w, ok := want[r.HandNo]
		if !ok {
			t.Fatalf("unexpected hand %d", r.HandNo)
		}
		if !reflect.DeepEqual(r.Stat.Values(), w.Values()) {
			t.Errorf("hand %d: exported counters differ from derived", r.HandNo)
		}
	}

	stop := errors.New("stop")
	if err := db.ExportRows(ctx, carol, func(ExportRow) error { return stop }); !errors.Is(err, stop) {
		t.Errorf("callback error = %v, want stop", err)
	}
}
