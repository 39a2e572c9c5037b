package parser

import (
	"fmt"
	"regexp"
	"unicode"
	"unicode/utf8"
)

// Anonymise replaces every seated player name in raw with Player<N>.
// Aliases are numbered by first seat appearance across the file, so a
// name keeps its alias from hand to hand. Hands that fail to parse
// contribute no names but are still rewritten. A match glued to a
// letter or digit is left alone so that "Bob" does not eat into "Bobby".
func Anonymise(p SiteParser, raw []byte) (string, map[string]string, error) {
	text, _, err := Decode(raw, p.Encodings())
	if err != nil {
		return "", nil, err
	}

	aliases := map[string]string{}
	var names []string
	for _, chunk := range p.SplitHands(text) {
		h, _ := p.Parse(chunk)
		if h == nil {
			continue
		}
		for _, pl := range h.Players {
			if _, ok := aliases[pl.Name]; ok {
				continue
			}
			aliases[pl.Name] = fmt.Sprintf("Player%d", len(aliases)+1)
			names = append(names, pl.Name)
		}
	}
	if len(names) == 0 {
		return text, aliases, nil
	}

	re, err := regexp.Compile(nameAlternation(names))
	if err != nil {
		return "", nil, err
	}
	var out []byte
	last := 0
	for _, loc := range re.FindAllStringIndex(text, -1) {
		if wordRune(text, loc[0], -1) || wordRune(text, loc[1], 1) {
			continue
		}
		out = append(out, text[last:loc[0]]...)
		out = append(out, aliases[text[loc[0]:loc[1]]]...)
		last = loc[1]
	}
	out = append(out, text[last:]...)
	return string(out), aliases, nil
}

// wordRune reports whether the rune just before (dir < 0) or at (dir > 0)
// offset i is a letter or digit.
func wordRune(s string, i, dir int) bool {
	var r rune
	if dir < 0 {
		if i == 0 {
			return false
		}
		r, _ = utf8.DecodeLastRuneInString(s[:i])
	} else {
		if i >= len(s) {
			return false
		}
		r, _ = utf8.DecodeRuneInString(s[i:])
	}
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
