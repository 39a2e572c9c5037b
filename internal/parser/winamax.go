package parser

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/pable/go-hud-stats/internal/model"
)

const winamaxAmount = `[€$£]?[\d.,]+[€$£]?`

var (
	reWinamaxHeader = regexp.MustCompile(`^Winamax\s+Poker\s+-\s+` +
		`(?:(?P<RING>CashGame)|(?P<TOUR>Tournament\s+"?(?P<TOURNAME>[^"]+?)"?\s+buyIn:\s+` +
		`(?P<BUYIN>Gratuit|Freeroll|Ticket uniquement|(?P<BIAMT>` + winamaxAmount + `)` +
		`(?:\s+\+\s+(?P<BIP2>` + winamaxAmount + `))?(?:\s+\+\s+(?P<BIP3>` + winamaxAmount + `))?` +
		`(?:\s+(?P<ISO>USD|EUR|GBP|FPP))?)(?:\s+level:\s+(?P<LEVEL>\d+))?))` +
		`\s+-\s+HandId:\s+#(?P<HID1>\d+)-(?P<HID2>\d+)-(?P<HID3>\d+)\s+-\s+` +
		`(?P<GAME>Holdem|Omaha)\s+(?P<LIMIT>no limit|pot limit|fixed limit)\s+` +
		`\((?:(?P<ANTE>` + winamaxAmount + `)/)?(?P<SB>` + winamaxAmount + `)/(?P<BB>` + winamaxAmount + `)\)` +
		`\s+-\s+(?P<DATETIME>.+)$`)
	reWinamaxTable = regexp.MustCompile(`^Table:\s+'(?P<TABLE>[^'(]+?)(?:\((?P<TOURNO>\d+)\)#(?P<TABLENO>\d+))?'\s+` +
		`(?P<MAXPLAYER>\d+)-max(?:\s+\((?:real|play) money\))?(?:\s+Seat\s+#(?P<BUTTON>\d+)\s+is\s+the\s+button)?`)
	reWinamaxDate = regexp.MustCompile(`(?P<Y>\d{4})/(?P<M>\d{1,2})/(?P<D>\d{1,2})\s+(?P<H>\d{1,2}):(?P<MIN>\d{2}):(?P<S>\d{2})(?:\s+(?P<TZ>[A-Z]{3,4}))?`)
	reWinamaxSeat  = regexp.MustCompile(`^Seat\s+(?P<SEAT>\d+):\s+(?P<PNAME>.+?)\s+\([€$£]?(?P<CASH>[\d.,]+)[€$£]?(?:,\s+[^)]*)?\)$`)
	reWinamaxCards = regexp.MustCompile(`\[([^\]]*)\]`)
	// Generic action shape, used to spot actions by players that are not
	// seated at the table.
	reWinamaxAnyAction = regexp.MustCompile(`^(.+?)\s+(?:bets|checks|raises|calls|folds)(?:\s|$)`)
)

var winamaxPlayerTemplates = map[string]string{
	"action": `^{P}\s+(?P<ATYPE>bets|checks|raises|calls|folds)` +
		`(?:\s+[€$£]?(?P<BET>[\d.,]+)[€$£]?)?(?:\s+to\s+[€$£]?(?P<TO>[\d.,]+)[€$£]?)?(?P<ALLIN>\s+and\s+is\s+all-in)?\s*$`,
	"smallBlind": `^{P}\s+posts\s+small\s+blind\s+[€$£]?(?P<AMT>[\d.,]+)[€$£]?(?P<ALLIN>\s+and\s+is\s+all-in)?\s*$`,
	"bigBlind":   `^{P}\s+posts\s+big\s+blind\s+[€$£]?(?P<AMT>[\d.,]+)[€$£]?(?P<ALLIN>\s+and\s+is\s+all-in)?\s*$`,
	"bothBlinds": `^{P}:?\s+posts\s+small\s+&\s+big\s+blinds?\s+\(?\s*[€$£]?(?P<AMT>[\d.,]+)[€$£]?\s*\)?\s*$`,
	"deadBlind":  `^{P}\s+posts\s+dead\s+blind\s+\(?\s*[€$£]?(?P<AMT>[\d.,]+)[€$£]?\s*\)?\s*$`,
	"ante":       `^{P}\s+posts\s+ante\s+[€$£]?(?P<AMT>[\d.,]+)[€$£]?(?P<ALLIN>\s+and\s+is\s+all-in)?\s*$`,
	"denySB":     `^{P}\s+(?:deny\s+SB|denies\s+small\s+blind)\s*$`,
	"dealt":      `^Dealt\s+to\s+{P}\s+\[(?P<CARDS>[^\]]*)\]`,
	"shows":      `^{P}\s+(?:\([^)]*\)\s+)?shows\s+\[(?P<CARDS>[^\]]*)\]`,
	"showed":     `^Seat\s+\d+:\s+{P}(?:\s+\([^)]*\))?\s+showed\s+\[(?P<CARDS>[^\]]*)\]`,
	"collect":    `^{P}\s+collected\s+[€$£]?(?P<AMT>[\d.,]+)[€$£]?(?:\s.*)?$`,
	"sitsOut":    `^{P}\s+sits\s+out`,
}

// Winamax parses Winamax Poker cash-game and tournament histories.
type Winamax struct {
	paris    *time.Location
	namesKey string
	patterns map[string]*regexp.Regexp
}

// NewWinamax returns a parser for Winamax histories.
func NewWinamax() *Winamax {
	loc, err := time.LoadLocation("Europe/Paris")
	if err != nil {
		loc = time.UTC
	}
	return &Winamax{paris: loc}
}

func (w *Winamax) Site() model.Site { return model.SiteWinamax }

func (w *Winamax) Encodings() []Encoding { return []Encoding{EncodingUTF8, EncodingCP1252} }

func (w *Winamax) SplitHands(text string) []string { return SplitOnBlankLines(text) }

// playerPatterns returns the name-aware regexps for the given seated
// players, recompiling when the set differs from the previous hand's.
func (w *Winamax) playerPatterns(names []string) (map[string]*regexp.Regexp, error) {
	key := nameSetKey(names)
	if w.patterns != nil && key == w.namesKey {
		return w.patterns, nil
	}
	patterns, err := compileWithNames(names, winamaxPlayerTemplates)
	if err != nil {
		return nil, err
	}
	w.namesKey, w.patterns = key, patterns
	return patterns, nil
}

type winamaxSection int

const (
	sectionSeats winamaxSection = iota
	sectionBlinds
	sectionStreet
	sectionShowdown
	sectionSummary
)

func (w *Winamax) Parse(text string) (*model.Hand, error) {
	text = strings.TrimSpace(normalizeNewlines(text))
	lines := strings.Split(text, "\n")
	if len(lines) < 2 {
		return nil, unrecognized(w.Site(), text, errors.New("too short for a hand"))
	}

	b := newBuilder(w.Site())
	h := b.h
	h.Text = text
	if err := w.readHeader(h, lines[0], lines[1]); err != nil {
		return nil, err
	}

	// Seat lines come before the first section marker.
	i := 2
	for ; i < len(lines) && !strings.HasPrefix(lines[i], "***"); i++ {
		g := NamedGroups(reWinamaxSeat, strings.TrimSpace(lines[i]))
		if g == nil {
			continue
		}
		seat, _ := strconv.Atoi(g["SEAT"])
		cash, err := ParseCents(g["CASH"])
		if err != nil {
			return h, inconsistent(w.Site(), h.HandNo, lines[i], err)
		}
		b.addPlayer(seat, g["PNAME"], cash)
	}
	if i == len(lines) {
		return nil, unrecognized(w.Site(), lines[0], errors.New("no street markers"))
	}
	if len(h.Players) == 0 {
		return h, inconsistent(w.Site(), h.HandNo, lines[0], errors.New("no seated players"))
	}

	names := make([]string, len(h.Players))
	for j, p := range h.Players {
		names[j] = p.Name
	}
	re, err := w.playerPatterns(names)
	if err != nil {
		return nil, unrecognized(w.Site(), lines[0], err)
	}

	var firstErr *ParseError
	fail := func(line string, err error) {
		if firstErr == nil {
			firstErr = inconsistent(w.Site(), h.HandNo, line, err)
		}
	}

	section := sectionSeats
	street := model.Street0
	for ; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "***") {
			section, street = w.marker(b, line, section, street, fail)
			continue
		}
		w.line(b, re, line, section, street, fail)
	}

	b.finish()
	if err := h.Validate(); err != nil {
		fail("", err)
	}
	if firstErr != nil {
		return h, firstErr
	}
	return h, nil
}

func (w *Winamax) readHeader(h *model.Hand, header, table string) error {
	g := NamedGroups(reWinamaxHeader, strings.TrimSpace(header))
	if g == nil {
		return unrecognized(w.Site(), header, errors.New("header does not match"))
	}
	handNo, err := strconv.ParseInt(g["HID3"], 10, 64)
	if err != nil {
		return unrecognized(w.Site(), header, err)
	}
	h.HandNo = handNo

	gt := &h.GameType
	gt.Base = "hold"
	switch g["GAME"] {
	case "Holdem":
		gt.Category = "holdem"
	case "Omaha":
		gt.Category = "omahahi"
	}
	switch g["LIMIT"] {
	case "no limit":
		gt.LimitType = "nl"
	case "pot limit":
		gt.LimitType = "pl"
	case "fixed limit":
		gt.LimitType = "fl"
	}
	if gt.SmallBlind, err = ParseCents(g["SB"]); err != nil {
		return unrecognized(w.Site(), header, err)
	}
	if gt.BigBlind, err = ParseCents(g["BB"]); err != nil {
		return unrecognized(w.Site(), header, err)
	}
	if g["ANTE"] != "" {
		if gt.Ante, err = ParseCents(g["ANTE"]); err != nil {
			return unrecognized(w.Site(), header, err)
		}
	}

	if g["RING"] != "" {
		gt.Type = "ring"
		gt.Currency = currencyOf(g["BB"], "EUR")
	} else {
		gt.Type = "tour"
		gt.Currency = "T$"
		t, err := tourneyFromHeader(g)
		if err != nil {
			return unrecognized(w.Site(), header, err)
		}
		h.Tourney = t
	}

	start, err := w.parseTime(g["DATETIME"])
	if err != nil {
		return unrecognized(w.Site(), header, err)
	}
	h.StartTime = start

	tg := NamedGroups(reWinamaxTable, strings.TrimSpace(table))
	if tg == nil {
		return unrecognized(w.Site(), table, errors.New("table line does not match"))
	}
	h.TableName = strings.TrimSpace(tg["TABLE"])
	h.MaxSeats, _ = strconv.Atoi(tg["MAXPLAYER"])
	h.ButtonSeat, _ = strconv.Atoi(tg["BUTTON"])
	if h.Tourney != nil {
		if tg["TOURNO"] != "" {
			h.Tourney.TourNo, _ = strconv.ParseInt(tg["TOURNO"], 10, 64)
		}
		h.Tourney.TableNo, _ = strconv.Atoi(tg["TABLENO"])
	}
	return nil
}

func tourneyFromHeader(g map[string]string) (*model.TourneyInfo, error) {
	t := &model.TourneyInfo{Name: strings.TrimSpace(g["TOURNAME"])}
	if g["LEVEL"] != "" {
		t.Level, _ = strconv.Atoi(g["LEVEL"])
	}
	switch g["BUYIN"] {
	case "Gratuit", "Freeroll", "Ticket uniquement":
		t.Free = true
		t.Currency = "FREE"
		return t, nil
	}
	parts := []string{g["BIAMT"], g["BIP2"], g["BIP3"]}
	amounts := make([]int64, 3)
	for i, p := range parts {
		if p == "" {
			continue
		}
		v, err := ParseCents(p)
		if err != nil {
			return nil, err
		}
		amounts[i] = v
	}
	t.BuyIn = amounts[0]
	if parts[2] != "" {
		// Three parts read amount + bounty + fee.
		t.Bounty, t.Fee = amounts[1], amounts[2]
	} else {
		t.Fee = amounts[1]
	}
	switch {
	case g["ISO"] == "FPP":
		t.Currency = "FPP"
	case g["ISO"] != "":
		t.Currency = g["ISO"]
	default:
		t.Currency = currencyOf(g["BIAMT"], "EUR")
	}
	return t, nil
}

func currencyOf(amount, fallback string) string {
	switch {
	case strings.Contains(amount, "$"):
		return "USD"
	case strings.Contains(amount, "£"):
		return "GBP"
	case strings.Contains(amount, "€"):
		return "EUR"
	default:
		return fallback
	}
}

// parseTime reads the header timestamp. Stamps without a UTC marker are
// Paris local time.
func (w *Winamax) parseTime(s string) (time.Time, error) {
	g := NamedGroups(reWinamaxDate, s)
	if g == nil {
		return time.Time{}, fmt.Errorf("no timestamp in %q", s)
	}
	loc := w.paris
	if tz := g["TZ"]; tz == "UTC" || tz == "GMT" {
		loc = time.UTC
	}
	num := func(k string) int { n, _ := strconv.Atoi(g[k]); return n }
	t := time.Date(num("Y"), time.Month(num("M")), num("D"), num("H"), num("MIN"), num("S"), 0, loc)
	return t.UTC(), nil
}

// marker handles a "*** ... ***" line and returns the new section.
func (w *Winamax) marker(b *builder, line string, section winamaxSection, street model.Street, fail func(string, error)) (winamaxSection, model.Street) {
	switch {
	case strings.HasPrefix(line, "*** ANTE/BLINDS"):
		return sectionBlinds, model.Street0
	case strings.HasPrefix(line, "*** PRE-FLOP"):
		b.h.Reached[model.Street0] = true
		return sectionStreet, model.Street0
	case strings.HasPrefix(line, "*** FLOP"):
		w.board(b, line, model.Street1, fail)
		return sectionStreet, model.Street1
	case strings.HasPrefix(line, "*** TURN"):
		w.board(b, line, model.Street2, fail)
		return sectionStreet, model.Street2
	case strings.HasPrefix(line, "*** RIVER"):
		w.board(b, line, model.Street3, fail)
		return sectionStreet, model.Street3
	case strings.HasPrefix(line, "*** SHOW DOWN"):
		return sectionShowdown, street
	case strings.HasPrefix(line, "*** SUMMARY"):
		return sectionSummary, street
	}
	return section, street
}

func (w *Winamax) board(b *builder, line string, street model.Street, fail func(string, error)) {
	b.h.Reached[street] = true
	groups := reWinamaxCards.FindAllStringSubmatch(line, -1)
	if len(groups) == 0 {
		return
	}
	cards, err := splitCards(groups[len(groups)-1][1])
	if err != nil {
		fail(line, err)
		return
	}
	b.h.Board[street] = cards
}

func splitCards(s string) ([]string, error) {
	fields := strings.Fields(s)
	for _, c := range fields {
		if !model.ValidCard(c) {
			return nil, fmt.Errorf("invalid card %q", c)
		}
	}
	return fields, nil
}

// line dispatches one non-marker line of the current section.
func (w *Winamax) line(b *builder, re map[string]*regexp.Regexp, line string, section winamaxSection, street model.Street, fail func(string, error)) {
	amount := func(g map[string]string, key string) (int64, bool) {
		v, err := ParseCents(g[key])
		if err != nil {
			fail(line, err)
			return 0, false
		}
		return v, true
	}

	if g := NamedGroups(re["dealt"], line); g != nil {
		cards, err := splitCards(g["CARDS"])
		if err != nil {
			fail(line, err)
			return
		}
		b.h.Hero = g["PNAME"]
		b.addHoleCards(g["PNAME"], cards)
		return
	}
	if g := NamedGroups(re["collect"], line); g != nil {
		if v, ok := amount(g, "AMT"); ok {
			b.addCollect(g["PNAME"], v)
		}
		return
	}
	if g := NamedGroups(re["shows"], line); g != nil {
		cards, err := splitCards(g["CARDS"])
		if err != nil {
			fail(line, err)
			return
		}
		b.addShownCards(g["PNAME"], cards)
		return
	}
	if g := NamedGroups(re["showed"], line); g != nil {
		cards, err := splitCards(g["CARDS"])
		if err != nil {
			fail(line, err)
			return
		}
		b.addShownCards(g["PNAME"], cards)
		return
	}
	if g := NamedGroups(re["sitsOut"], line); g != nil {
		b.sitOut(g["PNAME"])
		return
	}
	if section == sectionSummary || section == sectionSeats {
		return
	}

	if section == sectionBlinds {
		for _, kind := range []struct {
			key   string
			blind model.BlindKind
		}{
			{"smallBlind", model.BlindSmall},
			{"bigBlind", model.BlindBig},
			{"bothBlinds", model.BlindBoth},
			{"deadBlind", model.BlindDead},
		} {
			if g := NamedGroups(re[kind.key], line); g != nil {
				if v, ok := amount(g, "AMT"); ok {
					b.addBlind(g["PNAME"], kind.blind, v)
					if g["ALLIN"] != "" {
						b.lastAllIn[g["PNAME"]] = true
					}
				}
				return
			}
		}
		if g := NamedGroups(re["ante"], line); g != nil {
			if v, ok := amount(g, "AMT"); ok {
				b.addAnte(g["PNAME"], v)
			}
			return
		}
		if NamedGroups(re["denySB"], line) != nil {
			return
		}
	}

	g := NamedGroups(re["action"], line)
	if g == nil {
		if reWinamaxAnyAction.MatchString(line) {
			fail(line, errors.New("action by a player who is not seated"))
		}
		return
	}
	name, allIn := g["PNAME"], g["ALLIN"] != ""
	if section == sectionBlinds {
		street = model.Street0
	}
	switch g["ATYPE"] {
	case "folds":
		b.addFold(street, name)
	case "checks":
		b.addCheck(street, name)
	case "calls":
		if v, ok := amount(g, "BET"); ok {
			b.addCall(street, name, v, allIn)
		}
	case "bets":
		if v, ok := amount(g, "BET"); ok {
			b.addBet(street, name, v, allIn)
		}
	case "raises":
		if g["TO"] != "" {
			if v, ok := amount(g, "TO"); ok {
				b.addRaiseTo(street, name, v, allIn)
			}
		} else if v, ok := amount(g, "BET"); ok {
			b.addRaiseBy(street, name, v, allIn)
		}
	}
}
