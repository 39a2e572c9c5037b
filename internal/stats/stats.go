// Package stats turns aggregated HUD counters into display values.
//
// Every statistic is a ratio of two counters summed over the hands in
// scope (done over chance, seen over hands, and so on). A zero
// denominator never fails: the value is 0 and the display reads "NA".
package stats

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/pable/go-hud-stats/internal/model"
)

// ErrUnknownStat is returned for names missing from the registry.
var ErrUnknownStat = errors.New("unknown stat")

// NA is the display used when a ratio has no denominator.
const NA = "NA"

// Result is one formatted statistic.
type Result struct {
	Name      string  `json:"name"`
	Value     float64 `json:"value"`
	Display   string  `json:"display"`
	Hint      string  `json:"hint"`
	Verbose   string  `json:"verbose"`
	Breakdown string  `json:"breakdown"`
	Label     string  `json:"label"`
	NA        bool    `json:"na,omitempty"`
}

// Input is what a formatter reads: a player's name and their summed counters.
type Input struct {
	Player   string
	Counters model.Counters
}

// Func computes one statistic.
type Func func(in Input) Result

type entry struct {
	fn      Func
	percent bool
}

// Registry maps statistic names to formatters.
type Registry struct {
	stats map[string]entry
}

// NewRegistry returns a registry holding the full catalogue.
func NewRegistry() *Registry {
	r := &Registry{stats: map[string]entry{}}
	registerCatalogue(r)
	return r
}

// Register adds or replaces a formatter. Percent formatters accept a
// decimals suffix.
func (r *Registry) Register(name string, percent bool, fn Func) {
	r.stats[name] = entry{fn: fn, percent: percent}
}

// Has reports whether name (with or without a decimals suffix) is known.
func (r *Registry) Has(name string) bool {
	base, _, _ := ParseName(name)
	_, ok := r.stats[base]
	return ok
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.stats))
	for n := range r.stats {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Compute formats stat for the given input. A "_N" suffix on the name
// sets the number of decimals of a percentage display.
func (r *Registry) Compute(stat string, in Input) (Result, error) {
	base, decimals, ok := ParseName(stat)
	e, found := r.stats[base]
	if !found {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownStat, stat)
	}
	if in.Counters == nil {
		in.Counters = model.Counters{}
	}
	res := e.fn(in)
	res.Name = stat
	if ok && e.percent && !res.NA {
		res.Display = strconv.FormatFloat(100*res.Value, 'f', decimals, 64)
	}
	return res, nil
}

// ComputeAll formats every name in stats, stopping at the first unknown one.
func (r *Registry) ComputeAll(stats []string, in Input) ([]Result, error) {
	out := make([]Result, 0, len(stats))
	for _, s := range stats {
		res, err := r.Compute(s, in)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, nil
}

// ParseName splits a trailing "_N" decimals suffix off a stat name.
func ParseName(stat string) (base string, decimals int, ok bool) {
	i := strings.LastIndexByte(stat, '_')
	if i < 0 || i != len(stat)-2 {
		return stat, 0, false
	}
	c := stat[len(stat)-1]
	if c < '0' || c > '9' {
		return stat, 0, false
	}
	return stat[:i], int(c - '0'), true
}

// ratio describes a percentage statistic.
type ratio struct {
	hint, verbose, label string
	num, den             func(model.Counters) int64
}

func (q ratio) compute(in Input) Result {
	num, den := q.num(in.Counters), q.den(in.Counters)
	if den == 0 {
		return naResult(q.hint, q.verbose, q.label)
	}
	v := float64(num) / float64(den)
	pct := fmt.Sprintf("%3.1f", 100*v)
	return Result{
		Value:     v,
		Display:   pct,
		Hint:      q.hint + "=" + pct + "%",
		Verbose:   q.verbose + "=" + pct + "%",
		Breakdown: fmt.Sprintf("(%d/%d)", num, den),
		Label:     q.label,
	}
}

func naResult(hint, verbose, label string) Result {
	return Result{
		Display:   NA,
		Hint:      hint + "=" + NA,
		Verbose:   verbose + "=" + NA,
		Breakdown: "(0/0)",
		Label:     label,
		NA:        true,
	}
}

func col(name string) func(model.Counters) int64 {
	return func(c model.Counters) int64 { return c[name] }
}

func cols(names ...string) func(model.Counters) int64 {
	return func(c model.Counters) int64 { return c.Sum(names...) }
}

// streets expands a column format over street numbers from..to.
func streets(format string, from, to int) []string {
	var out []string
	for i := from; i <= to; i++ {
		out = append(out, fmt.Sprintf(format, i))
	}
	return out
}

func (r *Registry) ratio(name string, q ratio) {
	r.Register(name, true, q.compute)
}
