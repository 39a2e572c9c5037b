package model

import (
	"errors"
	"strings"
	"testing"
)

// ---- Card encoding ----

func TestEncodeCard(t *testing.T) {
	cases := map[string]int{
		"2h": 1, "Ah": 13, "2d": 14, "Kd": 25, "2c": 27, "Tc": 35,
		"2s": 40, "As": 52, "0x": 0, "": 0, "xx": 0, "Zz": 0,
	}
	for in, want := range cases {
		if got := EncodeCard(in); got != want {
			t.Errorf("EncodeCard(%q) = %d, want %d", in, got, want)
		}
	}
	for code := 1; code <= 52; code++ {
		if got := EncodeCard(DecodeCard(code)); got != code {
			t.Errorf("round trip of %d gave %d", code, got)
		}
	}
}

func TestStartCardsDistinct(t *testing.T) {
	seen := map[int]string{}
	ranks := "23456789TJQKA"
	for i := 0; i < 13; i++ {
		for j := 0; j <= i; j++ {
			hands := [][]string{{string(ranks[i]) + "h", string(ranks[j]) + "d"}}
			if i != j {
				hands = append(hands, []string{string(ranks[i]) + "s", string(ranks[j]) + "s"})
			}
			for _, h := range hands {
				idx := StartCards(h)
				if idx < 1 || idx > 169 {
					t.Fatalf("StartCards(%v) = %d out of range", h, idx)
				}
				if prev, ok := seen[idx]; ok {
					t.Fatalf("StartCards(%v) = %d collides with %s", h, idx, prev)
				}
				seen[idx] = strings.Join(h, "")
			}
		}
	}
	if len(seen) != 169 {
		t.Errorf("expected 169 start-card classes, got %d", len(seen))
	}
	if StartCards([]string{"Ah", "Kh"}) != StartCards([]string{"Kd", "Ad"}) {
		t.Error("suited AK should not depend on suit or order")
	}
	if StartCards([]string{"Ah"}) != 0 {
		t.Error("single card should give 0")
	}
}

func TestDescribeHand(t *testing.T) {
	desc, err := DescribeHand([]string{"Ah", "Ad"}, []string{"As", "Kc", "Kd", "2h", "7s"})
	if err != nil {
		t.Fatalf("DescribeHand: %v", err)
	}
	other, err := DescribeHand([]string{"2c", "9d"}, []string{"As", "Kc", "Kd", "3h", "7s"})
	if err != nil {
		t.Fatalf("DescribeHand: %v", err)
	}
	if desc == "" || desc == other {
		t.Errorf("expected distinct descriptions, got %q and %q", desc, other)
	}

	flush, err := HandStrength([]string{"2h", "9h"}, []string{"Jh", "Qh", "3h", "Kc", "Kd"})
	if err != nil {
		t.Fatalf("HandStrength: %v", err)
	}
	pair, err := HandStrength([]string{"2c", "9d"}, []string{"Jh", "Qh", "3h", "Kc", "Kd"})
	if err != nil {
		t.Fatalf("HandStrength: %v", err)
	}
	if flush <= pair {
		t.Errorf("flush (%d) should beat a pair (%d)", flush, pair)
	}

	if _, err := DescribeHand([]string{"Ah"}, nil); err == nil {
		t.Error("expected error for too few cards")
	}
}

func TestHandStrengthAces(t *testing.T) {
	board := []string{"2c", "7d", "Jh", "9s", "Kd"}
	aces, err := HandStrength([]string{"Ah", "Ad"}, board)
	if err != nil {
		t.Fatalf("HandStrength aces: %v", err)
	}
	queens, err := HandStrength([]string{"Qs", "Qd"}, board)
	if err != nil {
		t.Fatalf("HandStrength queens: %v", err)
	}
	if aces <= queens {
		t.Errorf("aces (%d) should beat queens (%d)", aces, queens)
	}

	// Ace-high straight and wheel both evaluate.
	broadway, err := HandStrength([]string{"As", "Kc"}, []string{"Qd", "Jh", "Tc", "3s", "4d"})
	if err != nil {
		t.Fatalf("HandStrength broadway: %v", err)
	}
	wheel, err := HandStrength([]string{"As", "2c"}, []string{"3d", "4h", "5c", "9s", "Td"})
	if err != nil {
		t.Fatalf("HandStrength wheel: %v", err)
	}
	if broadway <= wheel {
		t.Errorf("broadway (%d) should beat the wheel (%d)", broadway, wheel)
	}
}

// ---- Positions ----

func TestPositionClass(t *testing.T) {
	cases := map[Position]PositionClass{
		PositionBigBlind:   ClassBigBlind,
		PositionSmallBlind: ClassSmallBlind,
		"0":                ClassButton,
		"1":                ClassCutoff,
		"2":                ClassMiddle,
		"4":                ClassMiddle,
		"5":                ClassEarly,
		"9":                ClassEarly,
		PositionUnknown:    ClassEarly,
	}
	for p, want := range cases {
		if got := p.Class(); got != want {
			t.Errorf("Position(%q).Class() = %q, want %q", p, got, want)
		}
	}
}

// ---- Stat columns ----

func TestStatColumns(t *testing.T) {
	cols := StatColumns()
	seen := map[string]bool{}
	for _, c := range cols {
		if seen[c] {
			t.Fatalf("duplicate column %q", c)
		}
		seen[c] = true
	}
	for _, want := range []string{
		"street0VPI", "street0Aggr", "street1Seen", "street4Seen", "street1CBChance",
		"foldToStreet4CBDone", "street0Calls", "wonWhenSeenStreet1", "success_Steal", "totalProfit",
	} {
		if !seen[want] {
			t.Errorf("missing column %q", want)
		}
	}
	for _, bad := range []string{"street0Seen", "street0CBChance", "street5Aggr"} {
		if seen[bad] {
			t.Errorf("unexpected column %q", bad)
		}
	}
}

func TestCountersRoundTrip(t *testing.T) {
	var s PlayerHandStat
	s.VPIP = true
	s.Seen[1] = true
	s.Calls[3] = 2
	s.TotalProfit = -150

	c := s.Counters()
	if c["street0VPI"] != 1 || c["street2Seen"] != 1 || c["street3Calls"] != 2 || c["totalProfit"] != -150 {
		t.Fatalf("unexpected counters: %v", c)
	}
	if c["street1Seen"] != 0 {
		t.Errorf("street1Seen = %d, want 0", c["street1Seen"])
	}

	var back PlayerHandStat
	for k, v := range c {
		if !back.SetCounter(k, v) {
			t.Fatalf("SetCounter(%q) rejected", k)
		}
	}
	if !back.VPIP || !back.Seen[1] || back.Calls[3] != 2 || back.TotalProfit != -150 {
		t.Errorf("round trip lost values: %+v", back)
	}
	if back.SetCounter("nope", 1) {
		t.Error("SetCounter accepted unknown column")
	}
}

func TestCountersAdd(t *testing.T) {
	a := Counters{HandsKey: 1, "street0VPI": 1}
	a.Add(Counters{HandsKey: 2, "street0Aggr": 1})
	if a[HandsKey] != 3 || a["street0VPI"] != 1 || a["street0Aggr"] != 1 {
		t.Errorf("unexpected sum: %v", a)
	}
	if a.Sum("street0VPI", "street0Aggr") != 2 {
		t.Errorf("Sum = %d, want 2", a.Sum("street0VPI", "street0Aggr"))
	}
}

// ---- Hand validation ----

func TestValidate(t *testing.T) {
	h := &Hand{
		MaxSeats: 2,
		Players:  []Player{{Seat: 1, Name: "A"}, {Seat: 2, Name: "B"}},
		Pot:      Pot{Committed: map[string]int64{"A": 100, "B": 100}},
	}
	h.Actions[0] = []Action{{Player: "A", Verb: VerbCalls, Amount: 50}}
	h.Collected = map[string]int64{"B": 200}
	if err := h.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	h.Actions[1] = []Action{{Player: "Ghost", Verb: VerbBets, Amount: 50}}
	if err := h.Validate(); !errors.Is(err, ErrInvalidHand) {
		t.Errorf("expected ErrInvalidHand for unknown actor, got %v", err)
	}
	h.Actions[1] = nil

	h.Collected["B"] = 500
	if err := h.Validate(); !errors.Is(err, ErrInvalidHand) {
		t.Errorf("expected ErrInvalidHand for over-collection, got %v", err)
	}
	h.Collected["B"] = 200

	h.Players = append(h.Players, Player{Seat: 3, Name: "C"})
	if err := h.Validate(); !errors.Is(err, ErrInvalidHand) {
		t.Errorf("expected ErrInvalidHand for too many players, got %v", err)
	}
}
