package parser

import (
	"regexp"
	"sort"
	"strings"
)

// nameAlternation builds an escaped alternation of player names, longest
// first so that "Bob Smith" is tried before "Bob".
func nameAlternation(names []string) string {
	sorted := append([]string(nil), names...)
	sort.Slice(sorted, func(i, j int) bool {
		if len(sorted[i]) != len(sorted[j]) {
			return len(sorted[i]) > len(sorted[j])
		}
		return sorted[i] < sorted[j]
	})
	quoted := make([]string, len(sorted))
	for i, n := range sorted {
		quoted[i] = regexp.QuoteMeta(n)
	}
	return strings.Join(quoted, "|")
}

// nameSetKey identifies a set of names regardless of order.
func nameSetKey(names []string) string {
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)
	return strings.Join(sorted, "\x00")
}

// compileWithNames substitutes {P} in each template with a capturing
// group over the given names.
func compileWithNames(names []string, templates map[string]string) (map[string]*regexp.Regexp, error) {
	group := "(?P<PNAME>" + nameAlternation(names) + ")"
	out := make(map[string]*regexp.Regexp, len(templates))
	for key, tmpl := range templates {
		re, err := regexp.Compile(strings.ReplaceAll(tmpl, "{P}", group))
		if err != nil {
			return nil, err
		}
		out[key] = re
	}
	return out, nil
}

// NamedGroups returns the named submatches of re in s, or nil when re
// does not match.
func NamedGroups(re *regexp.Regexp, s string) map[string]string {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for i, name := range re.SubexpNames() {
		if name != "" && i < len(m) {
			out[name] = m[i]
		}
	}
	return out
}
