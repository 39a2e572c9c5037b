// Package cache keeps per-player HUD counters pre-summed into buckets so
// the overlay can read a player's numbers without scanning every hand.
package cache

import (
	"sort"
	"time"

	"github.com/pable/go-hud-stats/internal/model"
)

// Key identifies one bucket. StyleKey is the day of the hand ("dYYMMDD").
type Key struct {
	GametypeID    int64
	PlayerID      int64
	ActiveSeats   int
	Position      model.PositionClass
	TourneyTypeID int64
	StyleKey      string
}

// Bucket is the summed counters of every row sharing a key.
type Bucket struct {
	Key
	Counters model.Counters
}

// Row is one stored (hand, player) stat row with the hand context the
// key needs.
type Row struct {
	HandID        int64
	GametypeID    int64
	PlayerID      int64
	TourneyTypeID int64
	ActiveSeats   int
	HandStart     time.Time
	Stat          *model.PlayerHandStat
}

// StyleKey returns the day bucket for t, in UTC.
func StyleKey(t time.Time) string {
	return "d" + t.UTC().Format("060102")
}

// KeyFor returns the bucket key of a row.
func KeyFor(r Row) Key {
	return Key{
		GametypeID:    r.GametypeID,
		PlayerID:      r.PlayerID,
		ActiveSeats:   r.ActiveSeats,
		Position:      r.Stat.Position.Class(),
		TourneyTypeID: r.TourneyTypeID,
		StyleKey:      StyleKey(r.HandStart),
	}
}

// Build folds rows into buckets, counting one hand per row. The result
// is sorted so identical inputs give identical output.
func Build(rows []Row) []Bucket {
	byKey := map[Key]model.Counters{}
	for _, r := range rows {
		k := KeyFor(r)
		c, ok := byKey[k]
		if !ok {
			c = model.Counters{}
			byKey[k] = c
		}
		c.Add(r.Stat.Counters())
		c[model.HandsKey]++
	}
	out := make([]Bucket, 0, len(byKey))
	for k, c := range byKey {
		out = append(out, Bucket{Key: k, Counters: c})
	}
	SortBuckets(out)
	return out
}

// SortBuckets orders buckets by every key field.
func SortBuckets(b []Bucket) {
	sort.Slice(b, func(i, j int) bool { return keyLess(b[i].Key, b[j].Key) })
}

func keyLess(a, b Key) bool {
	switch {
	case a.PlayerID != b.PlayerID:
		return a.PlayerID < b.PlayerID
	case a.GametypeID != b.GametypeID:
		return a.GametypeID < b.GametypeID
	case a.StyleKey != b.StyleKey:
		return a.StyleKey < b.StyleKey
	case a.ActiveSeats != b.ActiveSeats:
		return a.ActiveSeats < b.ActiveSeats
	case a.Position != b.Position:
		return a.Position < b.Position
	default:
		return a.TourneyTypeID < b.TourneyTypeID
	}
}

// Filter selects buckets when summing. Zero fields match everything.
type Filter struct {
	PlayerID   int64
	Gametypes  []int64
	Since      string // inclusive StyleKey
	Until      string // inclusive StyleKey
	MinSeats   int
	MaxSeats   int
	Positions  []model.PositionClass
	TourneyOff bool // only cash buckets
}

// Match reports whether k passes the filter.
func (f Filter) Match(k Key) bool {
	if f.PlayerID != 0 && k.PlayerID != f.PlayerID {
		return false
	}
	if len(f.Gametypes) > 0 && !containsID(f.Gametypes, k.GametypeID) {
		return false
	}
	if f.Since != "" && k.StyleKey < f.Since {
		return false
	}
	if f.Until != "" && k.StyleKey > f.Until {
		return false
	}
	if f.MinSeats > 0 && k.ActiveSeats < f.MinSeats {
		return false
	}
	if f.MaxSeats > 0 && k.ActiveSeats > f.MaxSeats {
		return false
	}
	if f.TourneyOff && k.TourneyTypeID != 0 {
		return false
	}
	if len(f.Positions) > 0 {
		found := false
		for _, p := range f.Positions {
			if p == k.Position {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func containsID(ids []int64, id int64) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

// Sum adds the counters of every bucket the filter matches.
func Sum(buckets []Bucket, f Filter) model.Counters {
	out := model.Counters{}
	for _, b := range buckets {
		if f.Match(b.Key) {
			out.Add(b.Counters)
		}
	}
	return out
}

// Day is one day's summed counters.
type Day struct {
	StyleKey string
	Counters model.Counters
}

// Daily groups matching buckets by day in date order.
func Daily(buckets []Bucket, f Filter) []Day {
	byDay := map[string]model.Counters{}
	for _, b := range buckets {
		if !f.Match(b.Key) {
			continue
		}
		c, ok := byDay[b.StyleKey]
		if !ok {
			c = model.Counters{}
			byDay[b.StyleKey] = c
		}
		c.Add(b.Counters)
	}
	out := make([]Day, 0, len(byDay))
	for k, c := range byDay {
		out = append(out, Day{StyleKey: k, Counters: c})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StyleKey < out[j].StyleKey })
	return out
}
