package parser

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseCents converts a site money string such as "1.234,50€", "$0.05" or
// "12" to integer cents without going through floating point. When both
// '.' and ',' appear the last one is the decimal mark. A lone separator
// is decimal when one or two digits follow it and a thousands mark when
// three do.
func ParseCents(s string) (int64, error) {
	orig := s
	s = strings.Map(func(r rune) rune {
		switch r {
		case '€', '$', '£', ' ', '\u00a0':
			return -1
		}
		return r
	}, s)
	if s == "" {
		return 0, fmt.Errorf("empty amount %q", orig)
	}
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	whole, frac := s, ""
	lastDot, lastComma := strings.LastIndexByte(s, '.'), strings.LastIndexByte(s, ',')
	switch {
	case lastDot >= 0 && lastComma >= 0:
		dec := max(lastDot, lastComma)
		thousands := ","
		if dec == lastComma {
			thousands = "."
		}
		whole = strings.ReplaceAll(s[:dec], thousands, "")
		frac = s[dec+1:]
	case lastDot >= 0 || lastComma >= 0:
		sep := "."
		if lastComma >= 0 {
			sep = ","
		}
		i := max(lastDot, lastComma)
		tail := s[i+1:]
		if strings.Count(s, sep) > 1 || len(tail) == 3 {
			whole = strings.ReplaceAll(s, sep, "")
		} else {
			whole, frac = s[:i], tail
		}
	}
	if whole == "" {
		whole = "0"
	}
	if len(frac) > 2 {
		return 0, fmt.Errorf("amount %q has more than two decimals", orig)
	}
	for len(frac) < 2 {
		frac += "0"
	}
	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("amount %q: %w", orig, err)
	}
	f, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("amount %q: %w", orig, err)
	}
	cents := w*100 + f
	if neg {
		cents = -cents
	}
	return cents, nil
}
