package cache

import (
	"fmt"
	"sort"
	"time"

	"github.com/pable/go-hud-stats/internal/model"
)

// Style picks the time window of a HUD display.
type Style string

const (
	StyleAll     Style = "A" // every hand
	StyleTimed   Style = "T" // the last N days
	StyleSession Style = "S" // the current session only
)

// AggLevel picks which game types are summed together.
type AggLevel string

const (
	AggExact    AggLevel = "exact"
	AggStakes   AggLevel = "stakes"
	AggCategory AggLevel = "category"
)

// ParseStyle accepts A, T or S.
func ParseStyle(s string) (Style, error) {
	switch Style(s) {
	case StyleAll, StyleTimed, StyleSession:
		return Style(s), nil
	}
	return "", fmt.Errorf("unknown HUD style %q", s)
}

// ParseAggLevel accepts exact, stakes or category.
func ParseAggLevel(s string) (AggLevel, error) {
	switch AggLevel(s) {
	case AggExact, AggStakes, AggCategory:
		return AggLevel(s), nil
	}
	return "", fmt.Errorf("unknown aggregation level %q", s)
}

// Since returns the first StyleKey a style covers. Session style reads
// hands rather than buckets; callers pass the session start for it.
func Since(style Style, days int, now, sessionStart time.Time) string {
	switch style {
	case StyleTimed:
		return StyleKey(now.AddDate(0, 0, -days))
	case StyleSession:
		if sessionStart.IsZero() {
			return ""
		}
		return StyleKey(sessionStart)
	default:
		return ""
	}
}

// MatchGametypes returns the ids of candidates summed together with
// target at the given level. For AggStakes the big blind must be within
// a factor of bbMult of the target's.
func MatchGametypes(target model.GameType, candidates map[int64]model.GameType, level AggLevel, bbMult float64) []int64 {
	if bbMult < 1 {
		bbMult = 1
	}
	var out []int64
	for id, g := range candidates {
		if sameGameType(target, g, level, bbMult) {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func sameGameType(target, g model.GameType, level AggLevel, bbMult float64) bool {
	if level == AggExact {
		return g.Key() == target.Key()
	}
	if g.Type != target.Type || g.Base != target.Base || g.Category != target.Category || g.LimitType != target.LimitType {
		return false
	}
	if level == AggCategory {
		return true
	}
	lo := float64(target.BigBlind) / bbMult
	hi := float64(target.BigBlind) * bbMult
	bb := float64(g.BigBlind)
	return bb >= lo && bb <= hi
}
