// Package regression checks parsed and derived hands against expected
// values kept next to each hand-history fixture. For a fixture X.txt,
// X.txt.hp holds a JSON object of player name to column to value and
// X.txt.hands a JSON object of hand-level column to value. Only the keys
// present in those files are compared.
package regression

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/pable/go-hud-stats/internal/derived"
	"github.com/pable/go-hud-stats/internal/model"
	"github.com/pable/go-hud-stats/internal/parser"
)

const (
	playersExt = ".hp"
	handsExt   = ".hands"
)

// Mismatch is one expected value that did not hold.
type Mismatch struct {
	File   string
	HandNo int64
	Player string // empty for hand-level values and parse failures
	Stat   string
	Want   string
	Got    string
}

func (m Mismatch) String() string {
	who := m.Player
	if who == "" {
		who = "-"
	}
	return fmt.Sprintf("%s #%d %s %s: want %s, got %s", filepath.Base(m.File), m.HandNo, who, m.Stat, m.Want, m.Got)
}

// Report is the error histogram of a run.
type Report struct {
	Site       string
	Files      int
	Hands      int
	Mismatches []Mismatch
	ByFile     map[string]int
	ByStat     map[string]int
}

func newReport(site string) *Report {
	return &Report{Site: site, ByFile: map[string]int{}, ByStat: map[string]int{}}
}

// Errors is the total number of mismatches.
func (r *Report) Errors() int { return len(r.Mismatches) }

func (r *Report) add(m Mismatch) {
	r.Mismatches = append(r.Mismatches, m)
	r.ByFile[m.File]++
	r.ByStat[m.Stat]++
	log.Debug().Str("file", m.File).Str("stat", m.Stat).Str("player", m.Player).
		Str("want", m.Want).Str("got", m.Got).Msg("regression_mismatch")
}

// Counts is a histogram bucket.
type Counts struct {
	Key   string
	Count int
}

// FileCounts returns the per-file histogram, worst first.
func (r *Report) FileCounts() []Counts { return sortedCounts(r.ByFile) }

// StatCounts returns the per-stat histogram, worst first.
func (r *Report) StatCounts() []Counts { return sortedCounts(r.ByStat) }

func sortedCounts(m map[string]int) []Counts {
	out := make([]Counts, 0, len(m))
	for k, v := range m {
		out = append(out, Counts{Key: k, Count: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// Run checks every .txt fixture under root with the parser for site.
func Run(parsers *parser.Registry, site, root string) (*Report, error) {
	rep := newReport(site)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".txt") {
			return nil
		}
		p, err := parsers.Lookup(site)
		if err != nil {
			return err
		}
		return CheckFile(p, path, rep)
	})
	if err != nil {
		return nil, err
	}
	return rep, nil
}

// CheckFile parses one fixture and records its mismatches in rep. A
// fixture with no expectation files only has to parse and derive.
func CheckFile(p parser.SiteParser, path string, rep *Report) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	wantPlayers := map[string]map[string]any{}
	if err := readExpected(path+playersExt, &wantPlayers); err != nil {
		return err
	}
	wantHand := map[string]any{}
	if err := readExpected(path+handsExt, &wantHand); err != nil {
		return err
	}

	rep.Files++
	results, err := parser.ParseFile(p, raw)
	if err != nil {
		rep.add(Mismatch{File: path, Stat: "Decode", Want: "ok", Got: err.Error()})
		return nil
	}
	for _, r := range results {
		rep.Hands++
		if r.Err != nil {
			rep.add(Mismatch{File: path, Stat: "Parse", Want: "ok", Got: r.Err.Error()})
			continue
		}
		d, err := derived.Derive(r.Hand)
		if err != nil {
			rep.add(Mismatch{File: path, HandNo: r.Hand.HandNo, Stat: "Derive", Want: "ok", Got: err.Error()})
			continue
		}
		comparePlayers(rep, path, r.Hand.HandNo, d, wantPlayers)
		compareHand(rep, path, r.Hand.HandNo, d, wantHand)
	}
	return nil
}

func readExpected(path string, into any) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, into); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

func comparePlayers(rep *Report, file string, handNo int64, d *derived.Result, want map[string]map[string]any) {
	names := sortedKeys(want)
	for _, name := range names {
		s := d.Player(name)
		if s == nil {
			rep.add(Mismatch{File: file, HandNo: handNo, Player: name, Stat: "player", Want: "present", Got: "missing"})
			continue
		}
		got := playerValues(s)
		for _, stat := range sortedKeys(want[name]) {
			compareValue(rep, Mismatch{File: file, HandNo: handNo, Player: name, Stat: stat}, want[name][stat], got)
		}
	}
}

func compareHand(rep *Report, file string, handNo int64, d *derived.Result, want map[string]any) {
	got := handValues(&d.Hand)
	for _, stat := range sortedKeys(want) {
		compareValue(rep, Mismatch{File: file, HandNo: handNo, Stat: stat}, want[stat], got)
	}
}

func compareValue(rep *Report, m Mismatch, want any, got map[string]any) {
	g, ok := got[m.Stat]
	if !ok {
		m.Want, m.Got = formatValue(want), "unknown column"
		rep.add(m)
		return
	}
	if normalize(want) != normalize(g) {
		m.Want, m.Got = formatValue(want), formatValue(g)
		rep.add(m)
	}
}

// normalize maps JSON and Go values onto one comparable form: booleans
// compare as 0/1 like the stored columns.
func normalize(v any) string {
	switch x := v.(type) {
	case bool:
		if x {
			return "1"
		}
		return "0"
	case float64:
		return fmt.Sprintf("%d", int64(x))
	default:
		return fmt.Sprint(x)
	}
}

func formatValue(v any) string {
	if f, ok := v.(float64); ok {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprint(v)
}

func playerValues(s *model.PlayerHandStat) map[string]any {
	out := map[string]any{
		"position":   string(s.Position),
		"playerName": s.PlayerName,
	}
	for k, v := range s.Fields() {
		out[k] = v
	}
	return out
}

func handValues(h *model.HandStats) map[string]any {
	out := map[string]any{
		"tableName": h.TableName,
		"handStart": h.HandStart.UTC().Format(time.RFC3339),
	}
	for k, v := range h.Fields() {
		out[k] = v
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
