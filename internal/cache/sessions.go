package cache

import (
	"sort"
	"time"
)

// Point is one hand played by one player.
type Point struct {
	PlayerID  int64
	HandStart time.Time
	Profit    int64
}

// Session is a run of hands with no gap longer than the threshold.
type Session struct {
	PlayerID    int64
	Start       time.Time
	End         time.Time
	Hands       int
	TotalProfit int64
}

// Sessions groups points into sessions per player. It always works from
// the full point set, so hands imported out of order can split or merge
// sessions computed earlier.
func Sessions(points []Point, gap time.Duration) []Session {
	sorted := make([]Point, len(points))
	copy(sorted, points)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].PlayerID != sorted[j].PlayerID {
			return sorted[i].PlayerID < sorted[j].PlayerID
		}
		return sorted[i].HandStart.Before(sorted[j].HandStart)
	})

	var out []Session
	for _, p := range sorted {
		n := len(out)
		if n > 0 && out[n-1].PlayerID == p.PlayerID && p.HandStart.Sub(out[n-1].End) <= gap {
			s := &out[n-1]
			s.End = p.HandStart
			s.Hands++
			s.TotalProfit += p.Profit
			continue
		}
		out = append(out, Session{
			PlayerID:    p.PlayerID,
			Start:       p.HandStart,
			End:         p.HandStart,
			Hands:       1,
			TotalProfit: p.Profit,
		})
	}
	return out
}

// Current returns the latest session of a player, if any.
func Current(sessions []Session, playerID int64) (Session, bool) {
	var last Session
	found := false
	for _, s := range sessions {
		if s.PlayerID == playerID && (!found || s.Start.After(last.Start)) {
			last, found = s, true
		}
	}
	return last, found
}
