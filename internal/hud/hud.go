// Package hud answers "what are this player's numbers" for the overlay and
// the CLI. It picks the cache buckets a HUD configuration asks for (time
// window, game-type aggregation, positions), sums them and formats the
// requested statistics.
package hud

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pable/go-hud-stats/internal/cache"
	"github.com/pable/go-hud-stats/internal/config"
	"github.com/pable/go-hud-stats/internal/model"
	"github.com/pable/go-hud-stats/internal/stats"
)

// ErrNoSession is returned for session-style queries on a player with no
// cached session.
var ErrNoSession = errors.New("no session")

// Store is the read side of the hand store the service needs.
// *storage.DB implements it.
type Store interface {
	PlayerID(ctx context.Context, name, site string) (int64, error)
	PlayerLastGametype(ctx context.Context, playerID int64) (int64, error)
	Gametypes(ctx context.Context) (map[int64]model.GameType, error)
	Buckets(ctx context.Context, f cache.Filter) ([]cache.Bucket, error)
	Sessions(ctx context.Context, playerID int64) ([]cache.Session, error)
	SumSince(ctx context.Context, playerID int64, gametypes []int64, since int64) (model.Counters, error)
}

// Query selects one player's statistics. Empty fields fall back to the
// service's HUD configuration.
type Query struct {
	Site      string
	Player    string
	Stats     []string
	Style     cache.Style
	AggLevel  cache.AggLevel
	Positions []model.PositionClass
	MinSeats  int
	MaxSeats  int
}

// PlayerStats is the answer to a Query.
type PlayerStats struct {
	Player    string         `json:"player"`
	PlayerID  int64          `json:"playerId"`
	Style     cache.Style    `json:"style"`
	AggLevel  cache.AggLevel `json:"aggLevel"`
	Since     string         `json:"since,omitempty"`
	Gametypes []int64        `json:"gametypes"`
	Hands     int64          `json:"hands"`
	Stats     []stats.Result `json:"stats"`
	Counters  model.Counters `json:"-"`
	Session   *cache.Session `json:"session,omitempty"`
}

// Service computes HUD figures from the cache.
type Service struct {
	store Store
	reg   *stats.Registry
	cfg   config.HUDConfig
	now   func() time.Time
}

type Option func(*Service)

// WithClock replaces time.Now for the timed style.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func New(store Store, reg *stats.Registry, cfg config.HUDConfig, opts ...Option) *Service {
	s := &Service{store: store, reg: reg, cfg: cfg, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Registry returns the stat registry used for formatting.
func (s *Service) Registry() *stats.Registry { return s.reg }

// Player sums and formats one player's statistics.
func (s *Service) Player(ctx context.Context, q Query) (*PlayerStats, error) {
	q = s.withDefaults(q)
	for _, name := range q.Stats {
		if !s.reg.Has(name) {
			return nil, fmt.Errorf("%w: %q", stats.ErrUnknownStat, name)
		}
	}

	id, err := s.store.PlayerID(ctx, q.Player, q.Site)
	if err != nil {
		return nil, err
	}
	gametypes, err := s.gametypes(ctx, id, q.AggLevel)
	if err != nil {
		return nil, err
	}

	out := &PlayerStats{Player: q.Player, PlayerID: id, Style: q.Style, AggLevel: q.AggLevel, Gametypes: gametypes}
	if q.Style == cache.StyleSession {
		// Session figures read stat rows directly: a session can start
		// mid-day, finer than a bucket.
		sessions, err := s.store.Sessions(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("load sessions: %w", err)
		}
		cur, ok := cache.Current(sessions, id)
		if !ok {
			return nil, fmt.Errorf("player %q: %w", q.Player, ErrNoSession)
		}
		out.Session = &cur
		out.Since = cache.StyleKey(cur.Start)
		out.Counters, err = s.store.SumSince(ctx, id, gametypes, cur.Start.Unix())
		if err != nil {
			return nil, fmt.Errorf("sum session: %w", err)
		}
	} else {
		f := s.filter(q, id, gametypes)
		out.Since = f.Since
		buckets, err := s.store.Buckets(ctx, f)
		if err != nil {
			return nil, fmt.Errorf("load buckets: %w", err)
		}
		out.Counters = cache.Sum(buckets, f)
	}

	out.Hands = out.Counters[model.HandsKey]
	out.Stats, err = s.reg.ComputeAll(q.Stats, stats.Input{Player: q.Player, Counters: out.Counters})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DayStat is one day of a player's trend for a single statistic.
type DayStat struct {
	Day    time.Time    `json:"day"`
	Hands  int64        `json:"hands"`
	Result stats.Result `json:"result"`
}

// Trend formats stat per day over the query's buckets. Session style has
// no day buckets to walk, so it reads the same as the all-time style.
func (s *Service) Trend(ctx context.Context, q Query, stat string) ([]DayStat, error) {
	q = s.withDefaults(q)
	if !s.reg.Has(stat) {
		return nil, fmt.Errorf("%w: %q", stats.ErrUnknownStat, stat)
	}
	if q.Style == cache.StyleSession {
		q.Style = cache.StyleAll
	}
	id, err := s.store.PlayerID(ctx, q.Player, q.Site)
	if err != nil {
		return nil, err
	}
	gametypes, err := s.gametypes(ctx, id, q.AggLevel)
	if err != nil {
		return nil, err
	}
	f := s.filter(q, id, gametypes)
	buckets, err := s.store.Buckets(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("load buckets: %w", err)
	}

	days := cache.Daily(buckets, f)
	out := make([]DayStat, 0, len(days))
	for _, d := range days {
		res, err := s.reg.Compute(stat, stats.Input{Player: q.Player, Counters: d.Counters})
		if err != nil {
			return nil, err
		}
		day, _ := time.Parse("060102", d.StyleKey[1:])
		out = append(out, DayStat{Day: day, Hands: d.Counters[model.HandsKey], Result: res})
	}
	return out, nil
}

// Sessions returns a player's cached sessions, latest first.
func (s *Service) Sessions(ctx context.Context, site, player string) ([]cache.Session, error) {
	id, err := s.store.PlayerID(ctx, player, site)
	if err != nil {
		return nil, err
	}
	return s.store.Sessions(ctx, id)
}

func (s *Service) withDefaults(q Query) Query {
	if q.Style == "" {
		q.Style = cache.Style(s.cfg.Style)
	}
	if q.AggLevel == "" {
		q.AggLevel = cache.AggLevel(s.cfg.AggLevel)
	}
	if len(q.Stats) == 0 {
		q.Stats = s.cfg.Stats
	}
	return q
}

// gametypes lists the game types summed for the player: those matching
// the game of their latest hand at the given level.
func (s *Service) gametypes(ctx context.Context, playerID int64, level cache.AggLevel) ([]int64, error) {
	last, err := s.store.PlayerLastGametype(ctx, playerID)
	if err != nil {
		return nil, err
	}
	all, err := s.store.Gametypes(ctx)
	if err != nil {
		return nil, fmt.Errorf("load gametypes: %w", err)
	}
	target, ok := all[last]
	if !ok {
		return []int64{last}, nil
	}
	return cache.MatchGametypes(target, all, level, s.cfg.BBMult), nil
}

func (s *Service) filter(q Query, playerID int64, gametypes []int64) cache.Filter {
	return cache.Filter{
		PlayerID:  playerID,
		Gametypes: gametypes,
		Since:     cache.Since(q.Style, s.cfg.Days, s.now(), time.Time{}),
		MinSeats:  q.MinSeats,
		MaxSeats:  q.MaxSeats,
		Positions: q.Positions,
	}
}
