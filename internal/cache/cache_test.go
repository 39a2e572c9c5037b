package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pable/go-hud-stats/internal/model"
)

var day1 = time.Date(2010, 9, 21, 1, 10, 51, 0, time.UTC)

func row(hand, player int64, pos model.Position, at time.Time, vpip bool) Row {
	return Row{
		HandID:      hand,
		GametypeID:  1,
		PlayerID:    player,
		ActiveSeats: 6,
		HandStart:   at,
		Stat:        &model.PlayerHandStat{Position: pos, VPIP: vpip, TotalProfit: 10, StealChance: true},
	}
}

// ---- Keys and buckets ----

func TestStyleKey(t *testing.T) {
	assert.Equal(t, "d100921", StyleKey(day1))
	paris, err := time.LoadLocation("Europe/Paris")
	require.NoError(t, err)
	// 00:30 in Paris is still the previous day in UTC.
	assert.Equal(t, "d100920", StyleKey(time.Date(2010, 9, 21, 0, 30, 0, 0, paris)))
}

func TestBuild_CollapsesPositions(t *testing.T) {
	rows := []Row{
		row(1, 7, "2", day1, true),
		row(2, 7, "4", day1, false),
		row(3, 7, "0", day1, true),
		row(4, 7, "", day1, false),
	}
	buckets := Build(rows)
	require.Len(t, buckets, 3)

	byClass := map[model.PositionClass]model.Counters{}
	for _, b := range buckets {
		byClass[b.Position] = b.Counters
	}
	assert.Equal(t, int64(2), byClass[model.ClassMiddle][model.HandsKey])
	assert.Equal(t, int64(1), byClass[model.ClassMiddle]["street0VPI"])
	assert.Equal(t, int64(1), byClass[model.ClassButton][model.HandsKey])
	assert.Equal(t, int64(1), byClass[model.ClassEarly][model.HandsKey], "unknown position buckets as early")
}

func TestSum_MatchesRows(t *testing.T) {
	var rows []Row
	for i := int64(0); i < 30; i++ {
		rows = append(rows, row(i, 1+i%2, model.SeatPosition(int(i%6)), day1.AddDate(0, 0, int(i%5)), i%3 == 0))
	}
	buckets := Build(rows)
	f := Filter{PlayerID: 1, Since: StyleKey(day1.AddDate(0, 0, 1)), Until: StyleKey(day1.AddDate(0, 0, 3))}

	want := model.Counters{}
	for _, r := range rows {
		k := KeyFor(r)
		if f.Match(k) {
			want.Add(r.Stat.Counters())
			want[model.HandsKey]++
		}
	}
	assert.Equal(t, want, Sum(buckets, f))
}

func TestDaily(t *testing.T) {
	buckets := Build([]Row{
		row(1, 1, "0", day1, true),
		row(2, 1, "B", day1.AddDate(0, 0, 1), true),
		row(3, 1, "S", day1.AddDate(0, 0, 1), false),
	})
	days := Daily(buckets, Filter{PlayerID: 1})
	require.Len(t, days, 2)
	assert.Equal(t, "d100921", days[0].StyleKey)
	assert.Equal(t, int64(2), days[1].Counters[model.HandsKey])
}

// ---- Aggregator ----

func TestRebuild_Idempotent(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	for i := int64(0); i < 20; i++ {
		m.Record(row(i, i%3, model.SeatPosition(int(i%4)), day1.Add(time.Duration(i)*time.Hour), i%2 == 0))
	}
	a := NewAggregator(m)
	require.NoError(t, a.Rebuild(ctx))
	first := m.Buckets()
	require.NoError(t, a.Rebuild(ctx))
	assert.Equal(t, first, m.Buckets())
}

func TestUpdate_ConcurrentNoLostUpdates(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	a := NewAggregator(m)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				r := row(int64(w*100+i), 1, "0", day1, true)
				m.Record(r)
				assert.NoError(t, a.Update(ctx, []Row{r}))
			}
		}(w)
	}
	wg.Wait()

	got := Sum(m.Buckets(), Filter{PlayerID: 1})
	assert.Equal(t, int64(200), got[model.HandsKey])
	assert.Equal(t, int64(200), got["street0VPI"])

	incremental := m.Buckets()
	require.NoError(t, a.Rebuild(ctx))
	assert.Equal(t, incremental, m.Buckets(), "incremental and rebuilt buckets agree")
}

type flakyStore struct {
	*Memory
	conflicts int
	calls     int
	fail      error
}

func (f *flakyStore) IncrementBuckets(ctx context.Context, b []Bucket) error {
	f.calls++
	if f.fail != nil {
		return f.fail
	}
	if f.conflicts > 0 {
		f.conflicts--
		return fmt.Errorf("database is locked: %w", ErrConflict)
	}
	return f.Memory.IncrementBuckets(ctx, b)
}

func TestUpdate_RetriesConflicts(t *testing.T) {
	s := &flakyStore{Memory: NewMemory(), conflicts: 3}
	a := NewAggregator(s, WithRetry(5, time.Millisecond))
	require.NoError(t, a.Update(context.Background(), []Row{row(1, 1, "0", day1, true)}))
	assert.Equal(t, 4, s.calls)
	assert.Equal(t, int64(1), Sum(s.Buckets(), Filter{})[model.HandsKey])
}

func TestUpdate_RetryBudgetExhausted(t *testing.T) {
	s := &flakyStore{Memory: NewMemory(), conflicts: 100}
	a := NewAggregator(s, WithRetry(2, time.Millisecond))
	err := a.Update(context.Background(), []Row{row(1, 1, "0", day1, true)})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, 3, s.calls)
}

func TestUpdate_OtherErrorsNotRetried(t *testing.T) {
	boom := errors.New("disk full")
	s := &flakyStore{Memory: NewMemory(), fail: boom}
	a := NewAggregator(s, WithRetry(5, time.Millisecond))
	err := a.Update(context.Background(), []Row{row(1, 1, "0", day1, true)})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, s.calls)
}

// ---- Selection ----

func TestMatchGametypes(t *testing.T) {
	nl2 := model.GameType{Type: "ring", Base: "hold", Category: "holdem", LimitType: "nl", Currency: "EUR", SmallBlind: 1, BigBlind: 2}
	nl5 := nl2
	nl5.SmallBlind, nl5.BigBlind = 2, 5
	nl10 := nl2
	nl10.SmallBlind, nl10.BigBlind = 5, 10
	plo := nl2
	plo.Category, plo.LimitType = "omahahi", "pl"
	candidates := map[int64]model.GameType{1: nl2, 2: nl5, 3: nl10, 4: plo}

	assert.Equal(t, []int64{1}, MatchGametypes(nl2, candidates, AggExact, 1))
	assert.Equal(t, []int64{1}, MatchGametypes(nl2, candidates, AggStakes, 1))
	assert.Equal(t, []int64{1, 2}, MatchGametypes(nl2, candidates, AggStakes, 2.5))
	assert.Equal(t, []int64{1, 2, 3}, MatchGametypes(nl2, candidates, AggCategory, 1))
}

func TestSince(t *testing.T) {
	now := time.Date(2010, 10, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "", Since(StyleAll, 90, now, time.Time{}))
	assert.Equal(t, "d100922", Since(StyleTimed, 9, now, time.Time{}))
	assert.Equal(t, "d100921", Since(StyleSession, 0, now, day1))

	_, err := ParseStyle("X")
	assert.Error(t, err)
	lvl, err := ParseAggLevel("stakes")
	require.NoError(t, err)
	assert.Equal(t, AggStakes, lvl)
}

// ---- Sessions ----

func TestSessions_SplitOnGap(t *testing.T) {
	pts := []Point{
		{PlayerID: 1, HandStart: day1, Profit: 5},
		{PlayerID: 1, HandStart: day1.Add(10 * time.Minute), Profit: -2},
		{PlayerID: 1, HandStart: day1.Add(2 * time.Hour), Profit: 7},
		{PlayerID: 2, HandStart: day1, Profit: 1},
	}
	s := Sessions(pts, 30*time.Minute)
	require.Len(t, s, 3)
	assert.Equal(t, 2, s[0].Hands)
	assert.Equal(t, int64(3), s[0].TotalProfit)
	assert.Equal(t, day1.Add(10*time.Minute), s[0].End)
	assert.Equal(t, 1, s[1].Hands)
	assert.Equal(t, int64(2), s[2].PlayerID)

	cur, ok := Current(s, 1)
	require.True(t, ok)
	assert.Equal(t, day1.Add(2*time.Hour), cur.Start)
}

func TestSessions_LateHandMergesSessions(t *testing.T) {
	pts := []Point{
		{PlayerID: 1, HandStart: day1},
		{PlayerID: 1, HandStart: day1.Add(50 * time.Minute)},
	}
	require.Len(t, Sessions(pts, 30*time.Minute), 2)

	// A hand imported later that fills the gap joins both halves.
	pts = append(pts, Point{PlayerID: 1, HandStart: day1.Add(25 * time.Minute)})
	merged := Sessions(pts, 30*time.Minute)
	require.Len(t, merged, 1)
	assert.Equal(t, 3, merged[0].Hands)
}
