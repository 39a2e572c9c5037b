package parser

import (
	"regexp"
	"testing"
)

func TestNameAlternationLongestFirst(t *testing.T) {
	re := regexp.MustCompile("^(" + nameAlternation([]string{"Bob", "Bob calls", "a.b"}) + ") folds$")
	m := re.FindStringSubmatch("Bob calls folds")
	if m == nil || m[1] != "Bob calls" {
		t.Fatalf("expected the longer name to win, got %v", m)
	}
	if re.MatchString("aXb folds") {
		t.Error("metacharacters in names must be escaped")
	}
	if !re.MatchString("a.b folds") {
		t.Error("expected literal name to match")
	}
}

func TestNameSetKeyIgnoresOrder(t *testing.T) {
	if nameSetKey([]string{"a", "b"}) != nameSetKey([]string{"b", "a"}) {
		t.Error("key should not depend on order")
	}
	if nameSetKey([]string{"a", "b"}) == nameSetKey([]string{"a", "c"}) {
		t.Error("different sets must differ")
	}
}

func TestNamedGroups(t *testing.T) {
	re := regexp.MustCompile(`^Seat (?P<SEAT>\d+): (?P<PNAME>.+)$`)
	g := NamedGroups(re, "Seat 5: Carol")
	if g["SEAT"] != "5" || g["PNAME"] != "Carol" {
		t.Errorf("groups = %v", g)
	}
	if len(g) != 2 {
		t.Errorf("unnamed groups leaked: %v", g)
	}
	if NamedGroups(re, "Dealt to Carol") != nil {
		t.Error("expected nil on no match")
	}
}
