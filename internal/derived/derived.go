package derived

import (
	"github.com/pable/go-hud-stats/internal/model"
)

// Result holds the derived statistics of one hand.
type Result struct {
	Hand    model.HandStats
	Players []*model.PlayerHandStat // seat order, dealt-in players only
	byName  map[string]*model.PlayerHandStat
}

// Player returns the row for name, or nil.
func (r *Result) Player(name string) *model.PlayerHandStat {
	return r.byName[name]
}

// Derive computes the hand-level and per-player statistics of h. The hand
// is only read.
func Derive(h *model.Hand) (*Result, error) {
	if err := h.Validate(); err != nil {
		return nil, err
	}
	r := &Result{byName: map[string]*model.PlayerHandStat{}}
	for _, p := range h.Players {
		if p.SittingOut {
			continue
		}
		s := &model.PlayerHandStat{
			PlayerName: p.Name,
			SeatNo:     p.Seat,
			StartCash:  p.StartCash,
			Position:   model.PositionUnknown,
			BigBlind:   h.GameType.BigBlind,
		}
		cards := h.Cards(p.Name)
		for i := 0; i < len(cards) && i < len(s.Cards); i++ {
			s.Cards[i] = model.EncodeCard(cards[i])
		}
		if h.GameType.Category == "holdem" {
			s.StartCards = model.StartCards(cards)
		}
		r.Players = append(r.Players, s)
		r.byName[p.Name] = s
	}

	d := &deriver{h: h, r: r}
	d.assembleHand()
	d.setPositions()
	d.vpip()
	for st := model.Street0; st < model.NumStreets; st++ {
		d.streetCounts(st)
		d.aggression(st)
	}
	d.playersAtStreets()
	d.betLevels()
	d.raiseFirstIn()
	d.steals()
	d.cbets()
	d.checkCallRaise()
	d.money()
	return r, nil
}

type deriver struct {
	h *model.Hand
	r *Result
}

// stat returns the row for name. Actions by players who were sitting out
// land on a detached row.
func (d *deriver) stat(name string) *model.PlayerHandStat {
	if s := d.r.byName[name]; s != nil {
		return s
	}
	return &model.PlayerHandStat{}
}

func (d *deriver) assembleHand() {
	h, hs := d.h, &d.r.Hand
	hs.TableName = h.TableName
	hs.SiteHandNo = h.HandNo
	hs.HandStart = h.StartTime
	hs.Seats = len(d.r.Players)
	hs.MaxSeats = h.MaxSeats
	for i, c := range h.BoardCards() {
		if i < len(hs.BoardCards) {
			hs.BoardCards[i] = model.EncodeCard(c)
		}
	}

	// Pot at the start of street n: dead money plus everything put in on
	// earlier streets. Streets that were never dealt stay zero.
	running := h.Pot.CommonTotal()
	for st := model.Street0; st < model.NumStreets; st++ {
		running += h.Pot.StreetTotals[st]
		if next := st + 1; next < model.NumStreets && h.Reached[next] {
			hs.StreetPots[next-1] = running
		}
	}
	hs.ShowdownPot = h.Pot.Total()

	for st, actions := range h.Actions {
		for _, a := range actions {
			if a.Verb == model.VerbBets || a.Verb == model.VerbRaises || a.Verb == model.VerbCompletes {
				hs.StreetRaises[st]++
			}
		}
	}
}

// setPositions numbers flop-game players back from the last pre-flop actor
// (0 = button) after taking out the blinds. In stud the bring-in is "S"
// and the rest count down to 0 in betting order.
func (d *deriver) setPositions() {
	actors := uniqueActors(d.h.Actions[model.Street0])
	if d.h.GameType.IsStud() {
		for i, name := range actors {
			if i == 0 {
				d.stat(name).Position = model.PositionSmallBlind
				continue
			}
			d.stat(name).Position = model.SeatPosition(len(actors) - 1 - i)
		}
		return
	}

	var sb, bb string
	for _, a := range d.h.Posts {
		if a.Blind == model.BlindBig && bb == "" {
			bb = a.Player
		}
		if a.Blind == model.BlindSmall && sb == "" {
			sb = a.Player
		}
	}
	rest := actors[:0:0]
	for _, name := range actors {
		if name != sb && name != bb {
			rest = append(rest, name)
		}
	}
	for i := range rest {
		d.stat(rest[len(rest)-1-i]).Position = model.SeatPosition(i)
	}
	if sb != "" {
		d.stat(sb).Position = model.PositionSmallBlind
	}
	if bb != "" {
		d.stat(bb).Position = model.PositionBigBlind
	}
}

func uniqueActors(actions []model.Action) []string {
	var out []string
	seen := map[string]bool{}
	for _, a := range actions {
		if !seen[a.Player] {
			seen[a.Player] = true
			out = append(out, a.Player)
		}
	}
	return out
}

func (d *deriver) vpip() {
	for _, a := range d.h.Actions[model.Street0] {
		s := d.stat(a.Player)
		if a.Verb.IsVoluntary() && !s.VPIP {
			s.VPIP = true
			d.r.Hand.PlayersVPI++
		}
	}
}

// streetCounts fills seen flags and per-street call, bet and raise counts.
func (d *deriver) streetCounts(st model.Street) {
	for _, a := range d.h.Actions[st] {
		s := d.stat(a.Player)
		if st > model.Street0 {
			s.Seen[st-1] = true
		}
		switch a.Verb {
		case model.VerbCalls:
			s.Calls[st]++
		case model.VerbBets, model.VerbCompletes:
			s.Bets[st]++
		case model.VerbRaises:
			s.Raises[st]++
		}
	}
}

// aggression marks aggressors and the players who acted after someone
// else's bet or raise on the same street.
func (d *deriver) aggression(st model.Street) {
	aggressors := map[string]bool{}
	for _, a := range d.h.Actions[st] {
		s := d.stat(a.Player)
		facing := len(aggressors) > 1 || (len(aggressors) == 1 && !aggressors[a.Player])
		if facing {
			s.OtherRaised[st] = true
			if a.Verb == model.VerbFolds {
				s.FoldToOtherRaised[st] = true
			}
		}
		if a.Verb.IsAggressive() {
			s.Aggr[st] = true
			aggressors[a.Player] = true
		}
	}
}

// playersAtStreets counts who was still in at each dealt street and at
// showdown.
func (d *deriver) playersAtStreets() {
	in := map[string]bool{}
	for _, s := range d.r.Players {
		in[s.PlayerName] = true
	}
	for st := model.Street0; st < model.NumStreets; st++ {
		if st > model.Street0 && d.h.Reached[st] {
			d.r.Hand.PlayersAtStreet[st-1] = len(in)
		}
		for _, a := range d.h.Actions[st] {
			if a.Verb == model.VerbFolds {
				delete(in, a.Player)
			}
		}
	}
	if len(in) > 1 {
		d.r.Hand.PlayersAtShowdown = len(in)
		for name := range in {
			d.stat(name).SawShowdown = true
		}
	}
}

// betLevels walks the pre-flop action tracking the raise level: the forced
// bet is level 1 and every raise adds one, so a player acting at level 2
// faces a 3-bet decision and at level 3 a 4-bet decision.
func (d *deriver) betLevels() {
	level := 1
	var opener, threeBettor string
	voluntary := map[string]bool{}
	callersAfterOpen := 0

	for _, a := range d.h.Actions[model.Street0] {
		s := d.stat(a.Player)
		raise := a.Verb == model.VerbRaises

		switch level {
		case 2:
			s.ThreeBChance = true
			if raise {
				s.ThreeBDone = true
			}
			if callersAfterOpen > 0 && !voluntary[a.Player] && a.Player != opener {
				s.SqueezeChance = true
				if raise {
					s.SqueezeDone = true
				}
			}
		case 3:
			s.FourBChance = true
			if raise {
				s.FourBDone = true
			}
			if !voluntary[a.Player] && !s.C4BChance {
				s.C4BChance = true
				if raise {
					s.C4BDone = true
				}
			}
			if a.Player == opener && !s.FoldTo3BChance {
				s.FoldTo3BChance = true
				s.FoldTo3BDone = a.Verb == model.VerbFolds
			}
		case 4:
			if a.Player == threeBettor && !s.FoldTo4BChance {
				s.FoldTo4BChance = true
				s.FoldTo4BDone = a.Verb == model.VerbFolds
			}
		}

		if a.Verb == model.VerbCalls && level == 2 {
			callersAfterOpen++
		}
		if a.Verb.IsVoluntary() {
			voluntary[a.Player] = true
		}
		if raise {
			level++
			switch level {
			case 2:
				opener = a.Player
			case 3:
				threeBettor = a.Player
			}
		}
	}
}

// raiseFirstIn marks who had the chance to open a pot nobody had entered.
func (d *deriver) raiseFirstIn() {
	for _, a := range d.h.Actions[model.Street0] {
		s := d.stat(a.Player)
		if a.Verb == model.VerbBringIn {
			continue
		}
		s.RaiseFirstInChance = true
		if a.Verb.IsAggressive() {
			s.RaisedFirstIn = true
		}
		if a.Verb != model.VerbFolds {
			return
		}
	}
}

func isStealPosition(p model.Position, stud bool) bool {
	if stud {
		n := p.Distance()
		return n >= 0 && n <= 2
	}
	return p == model.PositionSmallBlind || p == model.PositionButton || p == "1"
}

// steals looks for an unopened raise from a late position and how the
// blinds answered it. Any caller in between ends the blind reactions.
func (d *deriver) steals() {
	stud := d.h.GameType.IsStud()
	stealer := ""
	stealIdx := -1
	actions := d.h.Actions[model.Street0]

loop:
	for i, a := range actions {
		s := d.stat(a.Player)
		if stealer != "" {
			fold := a.Verb == model.VerbFolds
			switch s.Position {
			case model.PositionBigBlind:
				s.FoldBBToStealChance, s.FoldedBBToSteal = true, fold
				s.RaiseToStealChance, s.RaiseToStealDone = true, a.Verb == model.VerbRaises
				break loop
			case model.PositionSmallBlind:
				if !stud {
					s.FoldSBToStealChance, s.FoldedSBToSteal = true, fold
					s.RaiseToStealChance, s.RaiseToStealDone = true, a.Verb == model.VerbRaises
				}
			}
			if !fold {
				break loop
			}
			continue
		}
		if a.Verb == model.VerbBringIn {
			continue
		}
		if s.Position == model.PositionBigBlind && !stud {
			break
		}
		if isStealPosition(s.Position, stud) {
			s.StealChance = true
			if a.Verb.IsAggressive() {
				s.StealDone = true
				stealer, stealIdx = a.Player, i
				continue
			}
		}
		if a.Verb != model.VerbFolds {
			break
		}
	}

	if stealer == "" {
		return
	}
	for _, a := range actions[stealIdx+1:] {
		if a.Player != stealer && a.Verb != model.VerbFolds {
			return
		}
	}
	d.stat(stealer).SuccessSteal = true
}

// cbets handles continuation bets on streets 1-4: the last aggressor of
// the previous street has the chance when nobody bets before them.
func (d *deriver) cbets() {
	for st := model.Street1; st < model.NumStreets; st++ {
		name := lastAggressor(d.h.Actions[st-1])
		if name == "" {
			continue
		}
		actions := d.h.Actions[st]
		idx := -1
		for i, a := range actions {
			if a.Player == name {
				idx = i
				break
			}
			if a.Verb.IsAggressive() {
				break
			}
		}
		if idx < 0 {
			continue
		}
		s := d.stat(name)
		s.CBChance[st-1] = true
		if !actions[idx].Verb.IsAggressive() {
			continue
		}
		s.CBDone[st-1] = true

		answered := map[string]bool{}
		for _, a := range actions[idx+1:] {
			if a.Player == name || answered[a.Player] {
				continue
			}
			answered[a.Player] = true
			o := d.stat(a.Player)
			o.FoldToCBChance[st-1] = true
			o.FoldToCBDone[st-1] = a.Verb == model.VerbFolds
			if a.Verb.IsAggressive() {
				break
			}
		}
	}
}

func lastAggressor(actions []model.Action) string {
	name := ""
	for _, a := range actions {
		if a.Verb.IsAggressive() {
			name = a.Player
		}
	}
	return name
}

// checkCallRaise marks players who checked and then faced a bet on the
// same street. Done means they did not fold to it.
func (d *deriver) checkCallRaise() {
	for st := model.Street1; st < model.NumStreets; st++ {
		checkers := map[string]bool{}
		answered := map[string]bool{}
		raised := false
		for _, a := range d.h.Actions[st] {
			switch {
			case !raised && a.Verb.IsAggressive():
				raised = true
			case !raised && a.Verb == model.VerbChecks:
				checkers[a.Player] = true
			case raised && checkers[a.Player] && !answered[a.Player]:
				answered[a.Player] = true
				s := d.stat(a.Player)
				s.CheckCallRaiseChance[st-1] = true
				s.CheckCallRaiseDone[st-1] = a.Verb != model.VerbFolds
			}
		}
	}
}

// money fills winnings, the rake share and net profit.
func (d *deriver) money() {
	h := d.h
	var rakeShare int64
	if n := int64(len(h.Collected)); n > 0 {
		rakeShare = h.Rake / n
	}
	for _, s := range d.r.Players {
		won, ok := h.Collected[s.PlayerName]
		if ok && won > 0 {
			s.Winnings = won
			s.Rake = rakeShare
			for i := range s.WonWhenSeen {
				s.WonWhenSeen[i] = s.Seen[i]
			}
			s.WonAtSD = s.SawShowdown
		}
		s.TotalProfit = s.Winnings - h.Pot.Committed[s.PlayerName] - h.Pot.Common[s.PlayerName]
	}
}
