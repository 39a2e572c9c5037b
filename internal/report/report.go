package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/pable/go-hud-stats/internal/cache"
	"github.com/pable/go-hud-stats/internal/hud"
	"github.com/pable/go-hud-stats/internal/importer"
	"github.com/pable/go-hud-stats/internal/model"
	"github.com/pable/go-hud-stats/internal/regression"
	"github.com/pable/go-hud-stats/internal/storage"
)

const timeLayout = "2006-01-02 15:04"

func newTable(w io.Writer) *tablewriter.Table {
	return tablewriter.NewTable(w, tablewriter.WithConfig(tablewriter.Config{
		Row: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignRight},
		},
		Header: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignCenter},
		},
	}))
}

// Money formats an amount in cents.
func Money(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

// sampleFlag grades how far a hand count can be trusted.
func sampleFlag(hands int64) string {
	switch {
	case hands >= 500:
		return "OK"
	case hands >= 100:
		return "LOW"
	default:
		return "VERY_LOW"
	}
}

// PrintStats prints a player's HUD figures with a one-line header.
func PrintStats(w io.Writer, ps *hud.PlayerStats) {
	fmt.Fprintf(w, "\nPlayer: %s  |  Style: %s  |  Agg: %s  |  Hands: %d  |  Sample: %s",
		ps.Player, ps.Style, ps.AggLevel, ps.Hands, sampleFlag(ps.Hands))
	if ps.Since != "" {
		fmt.Fprintf(w, "  |  Since: %s", ps.Since)
	}
	if ps.Session != nil {
		fmt.Fprintf(w, "  |  Session: %s", ps.Session.Start.Format(timeLayout))
	}
	fmt.Fprint(w, "\n\n")

	table := newTable(w)
	table.Header("STAT", "VALUE", "DETAIL", "DESCRIPTION")
	for _, r := range ps.Stats {
		table.Append(r.Name, r.Display, r.Breakdown, r.Verbose)
	}
	table.Render()
}

// PrintTrend prints one statistic per day.
func PrintTrend(w io.Writer, player, stat string, days []hud.DayStat) {
	fmt.Fprintf(w, "\n%s: %s per day\n\n", player, stat)
	table := newTable(w)
	table.Header("DAY", "HANDS", strings.ToUpper(stat), "DETAIL")
	for _, d := range days {
		table.Append(d.Day.Format("2006-01-02"), strconv.FormatInt(d.Hands, 10), d.Result.Display, d.Result.Breakdown)
	}
	table.Render()
}

// PrintSessions prints a player's sessions, latest first.
func PrintSessions(w io.Writer, sessions []cache.Session) {
	table := newTable(w)
	table.Header("START", "END", "LENGTH", "HANDS", "PROFIT")
	for _, s := range sessions {
		table.Append(
			s.Start.Format(timeLayout),
			s.End.Format(timeLayout),
			s.End.Sub(s.Start).Round(time.Minute).String(),
			strconv.Itoa(s.Hands),
			Money(s.TotalProfit),
		)
	}
	table.Render()
}

// PrintHands prints stored hand summaries.
func PrintHands(w io.Writer, hands []storage.HandSummary) {
	table := newTable(w)
	table.Header("SITE", "HAND", "DATE", "TABLE", "GAME", "SEATS", "POT", "EXCL")
	for _, h := range hands {
		excl := ""
		if h.Excluded {
			excl = "x"
		}
		table.Append(
			h.Site,
			strconv.FormatInt(h.HandNo, 10),
			h.Start.Format(timeLayout),
			h.TableName,
			h.Game,
			strconv.Itoa(h.Seats),
			Money(h.Pot),
			excl,
		)
	}
	table.Render()
}

// PrintHandDetail prints one hand: the header, the per-player outcome and
// any warnings recorded at import.
func PrintHandDetail(w io.Writer, d *storage.StoredHandDetail) {
	fmt.Fprintf(w, "\nHand: %s #%d  |  Table: %s  |  Date: %s  |  Game: %s  |  Pot: %s\n",
		d.Site, d.HandNo, d.TableName, d.Start.Format(timeLayout), d.Game, Money(d.Pot))
	if len(d.Board) > 0 {
		fmt.Fprintf(w, "Board: %s\n", strings.Join(d.Board, " "))
	}
	fmt.Fprintln(w)

	table := newTable(w)
	table.Header("SEAT", "POS", "PLAYER", "CARDS", "MADE", "VPIP", "PFR", "SD", "WON", "RAKE", "PROFIT")
	for _, p := range d.Players {
		s := p.Stat
		table.Append(
			strconv.Itoa(s.SeatNo),
			string(s.Position),
			p.Name,
			cards(s.Cards[:]),
			d.MadeHand(p),
			flag(s.VPIP),
			flag(s.Aggr[0]),
			flag(s.SawShowdown),
			Money(s.Winnings),
			Money(s.Rake),
			Money(s.TotalProfit),
		)
	}
	table.Render()

	for _, warn := range d.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warn)
	}
	if d.Excluded {
		fmt.Fprintln(w, "excluded from the HUD cache")
	}
}

func cards(codes []int) string {
	var out []string
	for _, c := range codes {
		if c != 0 {
			out = append(out, model.DecodeCard(c))
		}
	}
	return strings.Join(out, " ")
}

func flag(b bool) string {
	if b {
		return "x"
	}
	return ""
}

// PrintPlayers prints known players with their hand counts.
func PrintPlayers(w io.Writer, players []storage.PlayerSummary) {
	table := newTable(w)
	table.Header("ID", "PLAYER", "SITE", "HANDS", "PROFIT", "LAST_HAND")
	for _, p := range players {
		last := "—"
		if !p.LastHand.IsZero() {
			last = p.LastHand.Format(timeLayout)
		}
		table.Append(
			strconv.FormatInt(p.ID, 10),
			p.Name,
			p.Site,
			strconv.Itoa(p.Hands),
			Money(p.TotalProfit),
			last,
		)
	}
	table.Render()
}

// PrintImports prints the import log, latest first.
func PrintImports(w io.Writer, imports []storage.Import) {
	table := newTable(w)
	table.Header("ID", "FILE", "SITE", "STARTED", "STORED", "DUPES", "PARTIAL", "ERRORS")
	for _, imp := range imports {
		table.Append(
			imp.ID,
			imp.FileName,
			imp.Site,
			imp.StartedAt.Format(timeLayout),
			strconv.Itoa(imp.Stored),
			strconv.Itoa(imp.Duplicates),
			strconv.Itoa(imp.Partial),
			strconv.Itoa(imp.Errors),
		)
	}
	table.Render()
}

// PrintBatch prints per-file import counts, the totals and every hand
// that failed.
func PrintBatch(w io.Writer, b *importer.Batch) {
	table := newTable(w)
	table.Header("FILE", "STORED", "DUPES", "PARTIAL", "ERRORS", "TIME")
	for _, f := range b.Files {
		if f.Skipped {
			table.Append(f.Path, "skipped", "", "", "", "")
			continue
		}
		errs := strconv.Itoa(f.Errors)
		if f.Err != nil {
			errs = f.Err.Error()
		}
		table.Append(
			f.Path,
			strconv.Itoa(f.Stored),
			strconv.Itoa(f.Duplicates),
			strconv.Itoa(f.Partial),
			errs,
			f.Duration.Round(time.Millisecond).String(),
		)
	}
	table.Render()

	fmt.Fprintf(w, "\n%d stored, %d duplicates, %d partial, %d errors, %d file errors, %d skipped in %s\n",
		b.Stored, b.Duplicates, b.Partial, b.Errors, b.FileErrors, b.Skipped, b.Duration.Round(time.Millisecond))
	for _, he := range b.HandErrors() {
		fmt.Fprintf(w, "  %s hand %d (#%d) %s: %v\n", he.File, he.Index, he.HandNo, he.Kind, he.Err)
	}
}

// PrintRegression prints the mismatch histograms of a regression run,
// by statistic then by file, followed by the first mismatches in full.
func PrintRegression(w io.Writer, rep *regression.Report, detail int) {
	fmt.Fprintf(w, "\nSite: %s  |  Files: %d  |  Hands: %d  |  Errors: %d\n\n",
		rep.Site, rep.Files, rep.Hands, rep.Errors())
	if rep.Errors() == 0 {
		return
	}

	table := newTable(w)
	table.Header("STAT", "ERRORS")
	for _, c := range rep.StatCounts() {
		table.Append(c.Key, strconv.Itoa(c.Count))
	}
	table.Render()
	fmt.Fprintln(w)

	table = newTable(w)
	table.Header("FILE", "ERRORS")
	for _, c := range rep.FileCounts() {
		table.Append(c.Key, strconv.Itoa(c.Count))
	}
	table.Render()

	if detail > len(rep.Mismatches) {
		detail = len(rep.Mismatches)
	}
	if detail > 0 {
		fmt.Fprintln(w)
	}
	for _, m := range rep.Mismatches[:detail] {
		fmt.Fprintln(w, m.String())
	}
}

// PrintTourneys prints a player's tournament results with the running net.
func PrintTourneys(w io.Writer, results []storage.TourneyResult) {
	table := newTable(w)
	table.Header("TOURNEY", "NAME", "DATE", "BUY_IN", "ENTRIES", "RANK", "WON", "NET")
	var total int64
	for _, t := range results {
		total += t.Net()
		table.Append(
			strconv.FormatInt(t.TourNo, 10),
			t.Name,
			t.Start.Format(timeLayout),
			Money(t.BuyIn+t.Fee+t.Bounty)+" "+t.Currency,
			strconv.Itoa(t.Entries),
			strconv.Itoa(t.Rank),
			Money(t.Winnings),
			Money(t.Net()),
		)
	}
	table.Render()
	fmt.Fprintf(w, "\n%d tournaments, net %s\n", len(results), Money(total))
}

// PrintOverview prints store-wide counts.
func PrintOverview(w io.Writer, o storage.Overview) {
	table := newTable(w)
	table.Header("WHAT", "COUNT")
	rows := []struct {
		name string
		n    int
	}{
		{"sites", o.Sites},
		{"players", o.Players},
		{"hands", o.Hands},
		{"excluded hands", o.Excluded},
		{"tournaments", o.Tourneys},
		{"imports", o.Imports},
		{"hudcache rows", o.CacheRows},
		{"sessions", o.Sessions},
	}
	for _, r := range rows {
		table.Append(r.name, strconv.Itoa(r.n))
	}
	table.Render()
	if o.Hands > 0 {
		fmt.Fprintf(w, "\nHands from %s to %s\n", o.FirstHand.Format(timeLayout), o.LastHand.Format(timeLayout))
	}
}
