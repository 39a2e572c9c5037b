package model

import (
	"strconv"
	"time"
)

// ---- Derived per-player stats ----

// PlayerHandStat is the derived row for one (hand, player). Fields tagged
// with `stat` are additive counters; the tag is the persisted column name
// and, for arrays, a format taking the street number starting at `first`.
type PlayerHandStat struct {
	PlayerName string
	SeatNo     int
	StartCash  int64
	Position   Position
	Cards      [7]int
	StartCards int

	VPIP           bool `stat:"street0VPI"`
	ThreeBChance   bool `stat:"street0_3BChance"`
	ThreeBDone     bool `stat:"street0_3BDone"`
	FourBChance    bool `stat:"street0_4BChance"`
	FourBDone      bool `stat:"street0_4BDone"`
	C4BChance      bool `stat:"street0_C4BChance"`
	C4BDone        bool `stat:"street0_C4BDone"`
	FoldTo3BChance bool `stat:"street0_FoldTo3BChance"`
	FoldTo3BDone   bool `stat:"street0_FoldTo3BDone"`
	FoldTo4BChance bool `stat:"street0_FoldTo4BChance"`
	FoldTo4BDone   bool `stat:"street0_FoldTo4BDone"`
	SqueezeChance  bool `stat:"street0_SqueezeChance"`
	SqueezeDone    bool `stat:"street0_SqueezeDone"`

	RaiseFirstInChance  bool `stat:"raiseFirstInChance"`
	RaisedFirstIn       bool `stat:"raisedFirstIn"`
	StealChance         bool `stat:"stealAttemptChance"`
	StealDone           bool `stat:"stealAttempted"`
	SuccessSteal        bool `stat:"success_Steal"`
	RaiseToStealChance  bool `stat:"raiseToStealChance"`
	RaiseToStealDone    bool `stat:"raiseToStealDone"`
	FoldBBToStealChance bool `stat:"foldBbToStealChance"`
	FoldedBBToSteal     bool `stat:"foldedBbToSteal"`
	FoldSBToStealChance bool `stat:"foldSbToStealChance"`
	FoldedSBToSteal     bool `stat:"foldedSbToSteal"`

	Seen                 [4]bool `stat:"street%dSeen" first:"1"`
	SawShowdown          bool    `stat:"sawShowdown"`
	Aggr                 [5]bool `stat:"street%dAggr"`
	OtherRaised          [5]bool `stat:"otherRaisedStreet%d"`
	FoldToOtherRaised    [5]bool `stat:"foldToOtherRaisedStreet%d"`
	CBChance             [4]bool `stat:"street%dCBChance" first:"1"`
	CBDone               [4]bool `stat:"street%dCBDone" first:"1"`
	FoldToCBChance       [4]bool `stat:"foldToStreet%dCBChance" first:"1"`
	FoldToCBDone         [4]bool `stat:"foldToStreet%dCBDone" first:"1"`
	CheckCallRaiseChance [4]bool `stat:"street%dCheckCallRaiseChance" first:"1"`
	CheckCallRaiseDone   [4]bool `stat:"street%dCheckCallRaiseDone" first:"1"`
	Calls                [5]int  `stat:"street%dCalls"`
	Bets                 [5]int  `stat:"street%dBets"`
	Raises               [5]int  `stat:"street%dRaises"`

	WonWhenSeen [4]bool `stat:"wonWhenSeenStreet%d" first:"1"`
	WonAtSD     bool    `stat:"wonAtSD"`
	Winnings    int64   `stat:"winnings"`
	Rake        int64   `stat:"rake"`
	TotalProfit int64   `stat:"totalProfit"`
	BigBlind    int64   `stat:"bigBlind"`
}

// Fields returns identity fields and counters keyed by column name.
// Booleans read as 0 or 1.
func (s *PlayerHandStat) Fields() map[string]int64 {
	out := s.Counters()
	out["seatNo"] = int64(s.SeatNo)
	out["startCash"] = s.StartCash
	out["startCards"] = int64(s.StartCards)
	for i, c := range s.Cards {
		out["card"+strconv.Itoa(i+1)] = int64(c)
	}
	return out
}

// HandStats holds the hand-level derived values.
type HandStats struct {
	TableName         string
	SiteHandNo        int64
	HandStart         time.Time
	Seats             int
	MaxSeats          int
	BoardCards        [5]int
	StreetPots        [4]int64 // pot at the start of streets 1-4
	ShowdownPot       int64
	PlayersVPI        int
	PlayersAtStreet   [4]int // players seeing streets 1-4
	PlayersAtShowdown int
	StreetRaises      [5]int
}

// Fields returns the numeric hand-level values keyed by column name.
func (h *HandStats) Fields() map[string]int64 {
	out := map[string]int64{
		"siteHandNo":        h.SiteHandNo,
		"seats":             int64(h.Seats),
		"maxSeats":          int64(h.MaxSeats),
		"showdownPot":       h.ShowdownPot,
		"playersVpi":        int64(h.PlayersVPI),
		"playersAtShowdown": int64(h.PlayersAtShowdown),
	}
	for i, c := range h.BoardCards {
		out["boardcard"+strconv.Itoa(i+1)] = int64(c)
	}
	for i := 0; i < 4; i++ {
		n := strconv.Itoa(i + 1)
		out["street"+n+"Pot"] = h.StreetPots[i]
		out["playersAtStreet"+n] = int64(h.PlayersAtStreet[i])
	}
	for i, r := range h.StreetRaises {
		out["street"+strconv.Itoa(i)+"Raises"] = int64(r)
	}
	return out
}
