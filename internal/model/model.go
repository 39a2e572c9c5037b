package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ---- Sites and streets ----

// Site identifies a poker room whose hand histories can be imported.
type Site int

const (
	SiteUnknown Site = iota
	SiteWinamax
)

func (s Site) String() string {
	switch s {
	case SiteWinamax:
		return "winamax"
	default:
		return "unknown"
	}
}

// ParseSite maps a case-insensitive site name to its Site.
func ParseSite(name string) (Site, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "winamax":
		return SiteWinamax, true
	default:
		return SiteUnknown, false
	}
}

// Street is the canonical ordinal of a betting round. Street0 is pre-flop
// in flop games and third street in stud.
type Street int

const (
	Street0 Street = iota
	Street1
	Street2
	Street3
	Street4
)

// NumStreets is the number of betting rounds a hand can have.
const NumStreets = 5

// ---- Actions ----

// Verb is what a player did in an Action.
type Verb int

const (
	VerbPostBlind Verb = iota + 1
	VerbPostAnte
	VerbBringIn
	VerbBets
	VerbCalls
	VerbRaises
	VerbCompletes
	VerbChecks
	VerbFolds
	VerbDiscards
	VerbStandsPat
	VerbShows
)

var verbNames = map[Verb]string{
	VerbPostBlind: "posts",
	VerbPostAnte:  "antes",
	VerbBringIn:   "brings in",
	VerbBets:      "bets",
	VerbCalls:     "calls",
	VerbRaises:    "raises",
	VerbCompletes: "completes",
	VerbChecks:    "checks",
	VerbFolds:     "folds",
	VerbDiscards:  "discards",
	VerbStandsPat: "stands pat",
	VerbShows:     "shows",
}

func (v Verb) String() string {
	if s, ok := verbNames[v]; ok {
		return s
	}
	return fmt.Sprintf("verb(%d)", int(v))
}

// ParseVerb is the inverse of Verb.String.
func ParseVerb(s string) (Verb, bool) {
	for v, name := range verbNames {
		if name == s {
			return v, true
		}
	}
	return 0, false
}

// IsAggressive reports whether the verb opens or increases the betting.
func (v Verb) IsAggressive() bool {
	return v == VerbBets || v == VerbRaises || v == VerbCompletes
}

// IsVoluntary reports whether the verb puts money in the pot by choice.
func (v Verb) IsVoluntary() bool {
	return v == VerbCalls || v.IsAggressive()
}

// BlindKind distinguishes the forced posts of a hand.
type BlindKind int

const (
	BlindNone BlindKind = iota
	BlindSmall
	BlindBig
	BlindBoth // small and big posted together; only the big part plays
	BlindDead
)

// Action is one entry of a street's ordered action list. Amounts are cents.
// For raises Amount is the money added by this action and RaiseTo the
// player's total for the street afterwards.
type Action struct {
	Player  string
	Verb    Verb
	Amount  int64
	RaiseTo int64
	AllIn   bool
	Blind   BlindKind
	Cards   []string
}

// ---- Game description ----

// GameType identifies the game variant and stakes. Blind and ante amounts
// are in cents.
type GameType struct {
	Type       string // "ring" or "tour"
	Base       string // "hold", "stud" or "draw"
	Category   string // "holdem", "omahahi", ...
	LimitType  string // "nl", "pl" or "fl"
	Currency   string
	SmallBlind int64
	BigBlind   int64
	Ante       int64
}

func (g GameType) IsStud() bool { return g.Base == "stud" }

// Key is a stable text form used to deduplicate game types.
func (g GameType) Key() string {
	return fmt.Sprintf("%s/%s/%s/%s/%s/%d/%d/%d",
		g.Type, g.Base, g.Category, g.LimitType, g.Currency, g.SmallBlind, g.BigBlind, g.Ante)
}

// TourneyInfo carries the tournament fields of a tournament hand.
type TourneyInfo struct {
	TourNo   int64
	Name     string
	TableNo  int
	BuyIn    int64
	Fee      int64
	Bounty   int64
	Currency string
	Level    int
	Free     bool
}

// IsKO reports whether the tournament pays bounties.
func (t *TourneyInfo) IsKO() bool { return t != nil && t.Bounty > 0 }

// ---- Hand ----

// Player is a seated participant. StartCash is in cents.
type Player struct {
	Seat       int
	Name       string
	StartCash  int64
	SittingOut bool
}

// Pot totals a hand's money by player, in cents. Committed is live money
// after any uncalled amount has been handed back, Common holds antes and
// dead blinds, Returned the uncalled amounts.
type Pot struct {
	Committed map[string]int64
	Common    map[string]int64
	Returned  map[string]int64
	// StreetTotals[n] is the live money put in during street n.
	StreetTotals [NumStreets]int64
}

// Total is the money in the middle once uncalled amounts are handed back.
func (p Pot) Total() int64 {
	var total int64
	for _, v := range p.Committed {
		total += v
	}
	for _, v := range p.Common {
		total += v
	}
	return total
}

// CommonTotal is the dead money (antes and dead blinds).
func (p Pot) CommonTotal() int64 {
	var total int64
	for _, v := range p.Common {
		total += v
	}
	return total
}

// Hand is the site-independent record of one played hand. It is built by
// a site parser, read by the derived stats engine and persisted by storage.
type Hand struct {
	Site       Site
	HandNo     int64
	TableName  string
	MaxSeats   int
	ButtonSeat int
	StartTime  time.Time // UTC
	GameType   GameType
	Tourney    *TourneyInfo
	Hero       string

	Players []Player
	Posts   []Action // blinds, antes and dead money in text order
	Actions [NumStreets][]Action
	Board   [NumStreets][]string // community cards revealed at each street
	Reached [NumStreets]bool     // street was dealt

	HoleCards map[string][]string
	Shown     map[string][]string

	Pot       Pot
	Collected map[string]int64 // reconciled winnings per player
	Rake      int64
	Warnings  []string
	Text      string
}

// ErrInvalidHand is wrapped by every Validate failure.
var ErrInvalidHand = errors.New("invalid hand")

// Player returns the seated player with the given name.
func (h *Hand) Player(name string) (Player, bool) {
	for _, p := range h.Players {
		if p.Name == name {
			return p, true
		}
	}
	return Player{}, false
}

// DealtIn returns the names of players dealt into the hand, in seat order.
func (h *Hand) DealtIn() []string {
	names := make([]string, 0, len(h.Players))
	for _, p := range h.Players {
		if !p.SittingOut {
			names = append(names, p.Name)
		}
	}
	return names
}

// BoardCards flattens the board across streets.
func (h *Hand) BoardCards() []string {
	var out []string
	for _, cards := range h.Board {
		out = append(out, cards...)
	}
	return out
}

// Cards returns every card known for a player: hole cards first, then any
// shown cards not already listed.
func (h *Hand) Cards(name string) []string {
	var out []string
	seen := map[string]bool{}
	for _, src := range [][]string{h.HoleCards[name], h.Shown[name]} {
		for _, c := range src {
			if !seen[c] {
				seen[c] = true
				out = append(out, c)
			}
		}
	}
	return out
}

// Validate checks the hand's structural invariants.
func (h *Hand) Validate() error {
	if len(h.Players) == 0 {
		return fmt.Errorf("%w: no players", ErrInvalidHand)
	}
	if h.MaxSeats > 0 && len(h.Players) > h.MaxSeats {
		return fmt.Errorf("%w: %d players at a %d-max table", ErrInvalidHand, len(h.Players), h.MaxSeats)
	}
	seats := map[int]bool{}
	names := map[string]bool{}
	for _, p := range h.Players {
		if seats[p.Seat] {
			return fmt.Errorf("%w: seat %d taken twice", ErrInvalidHand, p.Seat)
		}
		if names[p.Name] {
			return fmt.Errorf("%w: player %q seated twice", ErrInvalidHand, p.Name)
		}
		seats[p.Seat] = true
		names[p.Name] = true
	}
	check := func(a Action) error {
		if !names[a.Player] {
			return fmt.Errorf("%w: action by unknown player %q", ErrInvalidHand, a.Player)
		}
		return nil
	}
	for _, a := range h.Posts {
		if err := check(a); err != nil {
			return err
		}
	}
	for _, street := range h.Actions {
		for _, a := range street {
			if err := check(a); err != nil {
				return err
			}
		}
	}
	for name := range h.Collected {
		if !names[name] {
			return fmt.Errorf("%w: collection by unknown player %q", ErrInvalidHand, name)
		}
	}
	var collected int64
	for _, v := range h.Collected {
		collected += v
	}
	if collected > h.Pot.Total() {
		return fmt.Errorf("%w: collected %d exceeds pot %d", ErrInvalidHand, collected, h.Pot.Total())
	}
	return nil
}
