// Package tourney parses tournament summary files.
package tourney

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pable/go-hud-stats/internal/model"
	"github.com/pable/go-hud-stats/internal/parser"
)

// Finisher is one player's result in a tournament.
type Finisher struct {
	Name     string
	Rank     int
	Winnings int64
}

// Summary is a parsed tournament summary. Money is in cents.
type Summary struct {
	Site      model.Site
	TourNo    int64
	Name      string
	BuyIn     int64
	Fee       int64
	Bounty    int64
	Currency  string
	MaxSeats  int
	Entries   int
	PrizePool int64
	StartTime time.Time
	Hero      string
	Rank      int
	Winnings  int64
	Players   []Finisher
}

// TourneyInfo returns the hand-level tournament description, so hands
// and summaries land on the same tourney type.
func (s *Summary) TourneyInfo() *model.TourneyInfo {
	return &model.TourneyInfo{
		TourNo:   s.TourNo,
		Name:     s.Name,
		BuyIn:    s.BuyIn,
		Fee:      s.Fee,
		Bounty:   s.Bounty,
		Currency: s.Currency,
		Free:     s.Currency == "FREE",
	}
}

var (
	reSummaryHeader = regexp.MustCompile(`^Winamax Poker - Tournament summary : (?P<NAME>.+)\((?P<TOURNO>\d+)\)\s*$`)
	reSummaryPlayer = regexp.MustCompile(`^Player : (?P<PNAME>.+?)\s*$`)
	reSummaryBuyIn  = regexp.MustCompile(`^Buy-In : (?P<BUYIN>.+?)\s*$`)
	reSummaryReg    = regexp.MustCompile(`^Registered players : (?P<ENTRIES>\d+)`)
	reSummaryPrize  = regexp.MustCompile(`^Prizepool : (?P<PRIZE>[0-9][0-9., \x{a0}]*[€$£]?)`)
	reSummaryTable  = regexp.MustCompile(`^Tables? : (?P<MAX>\d+)-max`)
	reSummaryStart  = regexp.MustCompile(`^Tournament started (?P<Y>\d{4})/(?P<M>\d{2})/(?P<D>\d{2}) (?P<H>\d{2}):(?P<MIN>\d{2}):(?P<S>\d{2})(?: (?P<TZ>UTC|GMT))?`)
	reSummaryRank   = regexp.MustCompile(`^You finished in (?P<RANK>\d+)(?:st|nd|rd|th) place`)
	reSummaryWon    = regexp.MustCompile(`^You won (?P<WON>[0-9][0-9., \x{a0}]*[€$£]?)`)
)

// Winamax parses Winamax tournament summaries.
type Winamax struct {
	paris *time.Location
}

func NewWinamax() *Winamax {
	loc, err := time.LoadLocation("Europe/Paris")
	if err != nil {
		loc = time.UTC
	}
	return &Winamax{paris: loc}
}

// Parse reads one summary. A missing header is an unrecognized format; a
// missing player line is inconsistent data.
func (w *Winamax) Parse(text string) (*Summary, error) {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	first := ""
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			first = strings.TrimSpace(l)
			break
		}
	}
	g := parser.NamedGroups(reSummaryHeader, first)
	if g == nil {
		return nil, &parser.ParseError{Kind: parser.KindUnrecognizedFormat, Site: model.SiteWinamax,
			Fragment: first, Err: errors.New("no tournament summary header")}
	}
	s := &Summary{Site: model.SiteWinamax, Name: strings.TrimSpace(g["NAME"]), Currency: "EUR"}
	s.TourNo, _ = strconv.ParseInt(g["TOURNO"], 10, 64)

	fail := func(line string, err error) error {
		return &parser.ParseError{Kind: parser.KindInconsistentData, Site: model.SiteWinamax,
			HandNo: s.TourNo, Fragment: line, Err: err}
	}

	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		var err error
		switch {
		case line == "":
		case reSummaryPlayer.MatchString(line):
			s.Hero = parser.NamedGroups(reSummaryPlayer, line)["PNAME"]
		case reSummaryBuyIn.MatchString(line):
			err = s.setBuyIn(parser.NamedGroups(reSummaryBuyIn, line)["BUYIN"])
		case reSummaryReg.MatchString(line):
			s.Entries, _ = strconv.Atoi(parser.NamedGroups(reSummaryReg, line)["ENTRIES"])
		case reSummaryPrize.MatchString(line):
			s.PrizePool, err = parser.ParseCents(parser.NamedGroups(reSummaryPrize, line)["PRIZE"])
		case reSummaryTable.MatchString(line):
			s.MaxSeats, _ = strconv.Atoi(parser.NamedGroups(reSummaryTable, line)["MAX"])
		case reSummaryStart.MatchString(line):
			s.StartTime = w.startTime(parser.NamedGroups(reSummaryStart, line))
		case reSummaryRank.MatchString(line):
			s.Rank, _ = strconv.Atoi(parser.NamedGroups(reSummaryRank, line)["RANK"])
		case reSummaryWon.MatchString(line):
			s.Winnings, err = parser.ParseCents(parser.NamedGroups(reSummaryWon, line)["WON"])
		}
		if err != nil {
			return s, fail(line, err)
		}
	}

	if s.Hero == "" {
		return s, fail(first, errors.New("no player line"))
	}
	if s.Rank > 0 {
		s.Players = append(s.Players, Finisher{Name: s.Hero, Rank: s.Rank, Winnings: s.Winnings})
	}
	if s.Entries > 0 && s.Rank > s.Entries {
		return s, fail(first, fmt.Errorf("rank %d of %d entries", s.Rank, s.Entries))
	}
	return s, nil
}

// setBuyIn reads "4.50€ + 5€ + 0.50€" (buy-in, bounty, fee), "4.50€ + 0.50€"
// or a free-roll marker.
func (s *Summary) setBuyIn(v string) error {
	switch {
	case strings.Contains(v, "Gratuit"), strings.Contains(v, "Freeroll"), strings.Contains(v, "Ticket"):
		s.Currency = "FREE"
		return nil
	case strings.Contains(v, "$"):
		s.Currency = "USD"
	case strings.Contains(v, "£"):
		s.Currency = "GBP"
	}
	var amounts []int64
	for _, part := range strings.Split(v, "+") {
		c, err := parser.ParseCents(part)
		if err != nil {
			return fmt.Errorf("buy-in %q: %w", v, err)
		}
		amounts = append(amounts, c)
	}
	switch len(amounts) {
	case 1:
		s.BuyIn = amounts[0]
	case 2:
		s.BuyIn, s.Fee = amounts[0], amounts[1]
	case 3:
		s.BuyIn, s.Bounty, s.Fee = amounts[0], amounts[1], amounts[2]
	default:
		return fmt.Errorf("buy-in %q: %d parts", v, len(amounts))
	}
	return nil
}

func (w *Winamax) startTime(g map[string]string) time.Time {
	loc := w.paris
	if tz := g["TZ"]; tz == "UTC" || tz == "GMT" {
		loc = time.UTC
	}
	num := func(k string) int { n, _ := strconv.Atoi(g[k]); return n }
	return time.Date(num("Y"), time.Month(num("M")), num("D"), num("H"), num("MIN"), num("S"), 0, loc).UTC()
}
