package parser

import (
	"testing"

	"github.com/pable/go-hud-stats/internal/model"
)

func newTestBuilder(players ...string) *builder {
	b := newBuilder(model.SiteWinamax)
	b.h.GameType.BigBlind = 10
	for i, p := range players {
		b.addPlayer(i+1, p, 10000)
	}
	return b
}

func TestRaiseByMatchesThenAdds(t *testing.T) {
	b := newTestBuilder("A", "B", "C")
	b.addBlind("A", model.BlindSmall, 5)
	b.addBlind("B", model.BlindBig, 10)
	b.addRaiseBy(model.Street0, "C", 20, false)
	b.addRaiseBy(model.Street0, "A", 30, false)

	pre := b.h.Actions[model.Street0]
	if pre[0].Amount != 30 || pre[0].RaiseTo != 30 {
		t.Errorf("C raise = %+v, want 30 to 30", pre[0])
	}
	// A has 5 in, faces 30: calls 25 and adds 30.
	if pre[1].Amount != 55 || pre[1].RaiseTo != 60 {
		t.Errorf("A raise = %+v, want 55 to 60", pre[1])
	}
}

func TestBothBlindsSplitLiveAndDead(t *testing.T) {
	b := newTestBuilder("A", "B")
	b.addBlind("A", model.BlindBoth, 15)
	if b.h.Pot.Committed["A"] != 10 || b.h.Pot.Common["A"] != 5 {
		t.Errorf("committed %v common %v", b.h.Pot.Committed, b.h.Pot.Common)
	}
	b.addBlind("B", model.BlindDead, 5)
	if b.h.Pot.Committed["B"] != 0 || b.h.Pot.Common["B"] != 5 {
		t.Errorf("dead blind: committed %v common %v", b.h.Pot.Committed, b.h.Pot.Common)
	}
}

func TestUncalledAllInSubtractedFromCollect(t *testing.T) {
	b := newTestBuilder("A", "B")
	b.addBet(model.Street1, "A", 50, true)
	b.addCall(model.Street1, "B", 30, true)
	b.addCollect("A", 50)
	h := b.finish()

	if h.Pot.Returned["A"] != 20 {
		t.Errorf("returned = %v, want A 20", h.Pot.Returned)
	}
	if h.Collected["A"] != 30 {
		t.Errorf("A winnings = %d, want 30", h.Collected["A"])
	}
	if h.Pot.StreetTotals[model.Street1] != 60 {
		t.Errorf("street total = %d, want 60", h.Pot.StreetTotals[model.Street1])
	}
}

func TestCollectEqualToReturnIsDropped(t *testing.T) {
	b := newTestBuilder("A", "B")
	b.addBet(model.Street1, "A", 50, true)
	b.addCall(model.Street1, "B", 30, true)
	b.addCollect("B", 60)
	b.addCollect("A", 20)
	h := b.finish()

	if _, ok := h.Collected["A"]; ok {
		t.Errorf("A collected %d, want no winnings", h.Collected["A"])
	}
	if h.Collected["B"] != 60 || h.Rake != 0 {
		t.Errorf("collected %v rake %d", h.Collected, h.Rake)
	}
}

func TestSidePotTiersWarn(t *testing.T) {
	b := newTestBuilder("A", "B", "C")
	b.addBet(model.Street1, "A", 100, true)
	b.addCall(model.Street1, "B", 70, true)
	b.addCall(model.Street1, "C", 30, true)
	b.addCollect("C", 90)
	b.addCollect("B", 80)
	b.addCollect("A", 30)
	h := b.finish()

	if len(h.Warnings) != 1 {
		t.Fatalf("expected one warning, got %v", h.Warnings)
	}
	if h.Collected["A"] != 0 || h.Collected["B"] != 80 || h.Collected["C"] != 90 {
		t.Errorf("collected = %v", h.Collected)
	}
}

func TestRakeIsPotMinusCollected(t *testing.T) {
	b := newTestBuilder("A", "B")
	b.addBet(model.Street1, "A", 50, false)
	b.addCall(model.Street1, "B", 50, false)
	b.addCollect("A", 95)
	h := b.finish()
	if h.Rake != 5 {
		t.Errorf("rake = %d, want 5", h.Rake)
	}
}
