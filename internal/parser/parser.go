// Package parser turns raw hand-history text into model.Hand values. Each
// poker site has its own SiteParser; the Registry picks one by site.
package parser

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/pable/go-hud-stats/internal/model"
)

// SiteParser normalises one site's text format. Implementations are not
// safe for concurrent use; create one per file with Registry.New.
type SiteParser interface {
	Site() model.Site
	// Encodings lists candidate file encodings in the order to try them.
	Encodings() []Encoding
	SplitHands(text string) []string
	// Parse converts the text of one hand. On ErrInconsistentData the
	// returned hand is still populated so it can be stored as excluded.
	Parse(text string) (*model.Hand, error)
}

// Factory builds a fresh parser.
type Factory func() SiteParser

// Registry maps sites to parser factories.
type Registry struct {
	factories map[model.Site]Factory
}

// NewRegistry returns a registry holding every built-in site parser.
func NewRegistry() *Registry {
	r := &Registry{factories: map[model.Site]Factory{}}
	r.Register(model.SiteWinamax, func() SiteParser { return NewWinamax() })
	return r
}

func (r *Registry) Register(site model.Site, f Factory) {
	r.factories[site] = f
}

// New returns a fresh parser for site.
func (r *Registry) New(site model.Site) (SiteParser, error) {
	f, ok := r.factories[site]
	if !ok {
		return nil, fmt.Errorf("no parser registered for site %s", site)
	}
	return f(), nil
}

// Lookup resolves a site by name and returns a fresh parser for it.
func (r *Registry) Lookup(name string) (SiteParser, error) {
	site, ok := model.ParseSite(name)
	if !ok {
		return nil, fmt.Errorf("unknown site %q", name)
	}
	return r.New(site)
}

// Sites lists the registered sites.
func (r *Registry) Sites() []model.Site {
	out := make([]model.Site, 0, len(r.factories))
	for s := range r.factories {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Result is the outcome for one hand of a file.
type Result struct {
	Index int
	Text  string
	Hand  *model.Hand
	Err   error
}

// ParseFile decodes raw and parses every hand in it. Per-hand failures
// are reported in the results; only a decode failure returns an error.
func ParseFile(p SiteParser, raw []byte) ([]Result, error) {
	text, _, err := Decode(raw, p.Encodings())
	if err != nil {
		return nil, err
	}
	chunks := p.SplitHands(text)
	out := make([]Result, 0, len(chunks))
	for i, chunk := range chunks {
		h, err := p.Parse(chunk)
		out = append(out, Result{Index: i, Text: chunk, Hand: h, Err: err})
	}
	return out, nil
}

var blankLines = regexp.MustCompile(`\n[ \t]*\n`)

// SplitOnBlankLines splits text into hands separated by empty lines.
func SplitOnBlankLines(text string) []string {
	var out []string
	for _, chunk := range blankLines.Split(text, -1) {
		chunk = strings.TrimSpace(chunk)
		if chunk != "" {
			out = append(out, chunk)
		}
	}
	return out
}
