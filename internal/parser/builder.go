package parser

import (
	"fmt"
	"sort"

	"github.com/pable/go-hud-stats/internal/model"
)

// builder accumulates a hand while a site parser walks its text and keeps
// the per-street betting totals needed to resolve call and raise amounts.
type builder struct {
	h          *model.Hand
	streetBets [model.NumStreets]map[string]int64
	lastAllIn  map[string]bool
	collects   []collectLine
}

type collectLine struct {
	player string
	amount int64
}

func newBuilder(site model.Site) *builder {
	b := &builder{
		h: &model.Hand{
			Site:      site,
			HoleCards: map[string][]string{},
			Shown:     map[string][]string{},
			Collected: map[string]int64{},
			Pot: model.Pot{
				Committed: map[string]int64{},
				Common:    map[string]int64{},
				Returned:  map[string]int64{},
			},
		},
		lastAllIn: map[string]bool{},
	}
	for i := range b.streetBets {
		b.streetBets[i] = map[string]int64{}
	}
	return b
}

func (b *builder) addPlayer(seat int, name string, cash int64) {
	b.h.Players = append(b.h.Players, model.Player{Seat: seat, Name: name, StartCash: cash})
}

func (b *builder) sitOut(name string) {
	for i := range b.h.Players {
		if b.h.Players[i].Name == name {
			b.h.Players[i].SittingOut = true
		}
	}
}

func (b *builder) commit(street model.Street, name string, amount int64) {
	b.h.Pot.Committed[name] += amount
	b.streetBets[street][name] += amount
	b.h.Pot.StreetTotals[street] += amount
}

func (b *builder) addBlind(name string, kind model.BlindKind, amount int64) {
	switch kind {
	case model.BlindSmall, model.BlindBig:
		b.commit(model.Street0, name, amount)
	case model.BlindBoth:
		live := min(amount, b.h.GameType.BigBlind)
		b.commit(model.Street0, name, live)
		if dead := amount - live; dead > 0 {
			b.h.Pot.Common[name] += dead
		}
	case model.BlindDead:
		b.h.Pot.Common[name] += amount
	}
	b.h.Posts = append(b.h.Posts, model.Action{Player: name, Verb: model.VerbPostBlind, Amount: amount, Blind: kind})
}

func (b *builder) addAnte(name string, amount int64) {
	b.h.Pot.Common[name] += amount
	b.h.Posts = append(b.h.Posts, model.Action{Player: name, Verb: model.VerbPostAnte, Amount: amount})
}

func (b *builder) addBringIn(name string, amount int64) {
	b.commit(model.Street0, name, amount)
	b.act(model.Street0, model.Action{Player: name, Verb: model.VerbBringIn, Amount: amount, RaiseTo: amount})
}

func (b *builder) act(street model.Street, a model.Action) {
	b.h.Actions[street] = append(b.h.Actions[street], a)
	b.h.Reached[street] = true
	if a.Verb != model.VerbShows {
		b.lastAllIn[a.Player] = a.AllIn
	}
}

func (b *builder) maxBet(street model.Street) int64 {
	var top int64
	for _, v := range b.streetBets[street] {
		top = max(top, v)
	}
	return top
}

func (b *builder) addCall(street model.Street, name string, amount int64, allIn bool) {
	b.commit(street, name, amount)
	b.act(street, model.Action{Player: name, Verb: model.VerbCalls, Amount: amount, AllIn: allIn})
}

func (b *builder) addBet(street model.Street, name string, amount int64, allIn bool) {
	b.commit(street, name, amount)
	b.act(street, model.Action{Player: name, Verb: model.VerbBets, Amount: amount, RaiseTo: b.streetBets[street][name], AllIn: allIn})
}

// addRaiseBy handles "raises X": the player first matches the current bet
// and then adds X.
func (b *builder) addRaiseBy(street model.Street, name string, by int64, allIn bool) {
	toCall := b.maxBet(street) - b.streetBets[street][name]
	total := toCall + by
	b.commit(street, name, total)
	b.act(street, model.Action{Player: name, Verb: model.VerbRaises, Amount: total, RaiseTo: b.streetBets[street][name], AllIn: allIn})
}

// addRaiseTo handles "raises ... to Y" where Y is the street total.
func (b *builder) addRaiseTo(street model.Street, name string, to int64, allIn bool) {
	total := to - b.streetBets[street][name]
	b.commit(street, name, total)
	b.act(street, model.Action{Player: name, Verb: model.VerbRaises, Amount: total, RaiseTo: to, AllIn: allIn})
}

func (b *builder) addComplete(street model.Street, name string, to int64, allIn bool) {
	total := to - b.streetBets[street][name]
	b.commit(street, name, total)
	b.act(street, model.Action{Player: name, Verb: model.VerbCompletes, Amount: total, RaiseTo: to, AllIn: allIn})
}

func (b *builder) addCheck(street model.Street, name string) {
	b.act(street, model.Action{Player: name, Verb: model.VerbChecks})
}

func (b *builder) addFold(street model.Street, name string) {
	b.act(street, model.Action{Player: name, Verb: model.VerbFolds})
}

func (b *builder) addHoleCards(name string, cards []string) {
	b.h.HoleCards[name] = cards
}

func (b *builder) addShownCards(name string, cards []string) {
	if len(b.h.Shown[name]) == 0 {
		b.h.Shown[name] = cards
	}
}

func (b *builder) addCollect(name string, amount int64) {
	b.collects = append(b.collects, collectLine{player: name, amount: amount})
}

// finish hands back any uncalled all-in excess, reconciles the collect
// lines against it and computes the rake.
func (b *builder) finish() *model.Hand {
	h := b.h
	returnedTo, excess := b.uncalledAllIn()
	if excess > 0 {
		h.Pot.Committed[returnedTo] -= excess
		h.Pot.Returned[returnedTo] = excess
		for s := model.NumStreets - 1; s >= 0; s-- {
			if b.streetBets[s][returnedTo] > 0 {
				h.Pot.StreetTotals[s] -= excess
				break
			}
		}
		if b.allInTiers(returnedTo) > 1 {
			h.Warnings = append(h.Warnings, fmt.Sprintf("several all-in levels; returned %d to %s from the top tier only", excess, returnedTo))
		}
	}

	outstanding := excess
	drop := -1
	if outstanding > 0 {
		for i, c := range b.collects {
			if c.player == returnedTo && c.amount == outstanding {
				drop, outstanding = i, 0
				break
			}
		}
	}
	if outstanding > 0 {
		largest := -1
		for i, c := range b.collects {
			if c.player == returnedTo && (largest < 0 || c.amount > b.collects[largest].amount) {
				largest = i
			}
		}
		if largest >= 0 && b.collects[largest].amount >= outstanding {
			b.collects[largest].amount -= outstanding
		}
	}
	for i, c := range b.collects {
		if i == drop {
			continue
		}
		if c.amount > 0 {
			h.Collected[c.player] += c.amount
		}
	}

	var collected int64
	for _, v := range h.Collected {
		collected += v
	}
	if collected > 0 {
		h.Rake = max(h.Pot.Total()-collected, 0)
	}
	return h
}

// uncalledAllIn returns the player whose all-in was not fully matched and
// the unmatched amount. A plain uncalled bet is left in the pot because
// the collect lines already count it.
func (b *builder) uncalledAllIn() (string, int64) {
	type committed struct {
		name   string
		amount int64
	}
	var list []committed
	for name, amt := range b.h.Pot.Committed {
		list = append(list, committed{name, amt})
	}
	if len(list) < 2 {
		return "", 0
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].amount != list[j].amount {
			return list[i].amount > list[j].amount
		}
		return list[i].name < list[j].name
	})
	top, second := list[0], list[1]
	if top.amount <= second.amount || !b.lastAllIn[top.name] {
		return "", 0
	}
	return top.name, top.amount - second.amount
}

// allInTiers counts the distinct all-in levels below the top committer,
// one per side pot.
func (b *builder) allInTiers(top string) int {
	levels := map[int64]bool{}
	for name, allIn := range b.lastAllIn {
		if allIn && name != top {
			levels[b.h.Pot.Committed[name]] = true
		}
	}
	return len(levels)
}
