package parser

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestAnonymiseCashFile(t *testing.T) {
	raw, err := os.ReadFile(filepath.Join("testdata", "winamax_cash.txt"))
	if err != nil {
		t.Fatal(err)
	}
	out, aliases, err := Anonymise(NewWinamax(), raw)
	if err != nil {
		t.Fatal(err)
	}

	want := map[string]string{"Alice": "Player1", "Bob": "Player2", "Carol": "Player3", "Dave": "Player4"}
	for name, alias := range want {
		if aliases[name] != alias {
			t.Errorf("alias of %s = %q, want %q", name, aliases[name], alias)
		}
		if strings.Contains(out, name) {
			t.Errorf("%s still present in output", name)
		}
	}
	if !strings.Contains(out, "Seat 5: Player3 (5.16€)") {
		t.Error("expected seat line rewritten")
	}
	if !strings.Contains(out, "Dealt to Player3 [Ah Kd]") {
		t.Error("expected hero line rewritten")
	}

	// The rewritten file must still parse, with the aliases seated.
	again, err := ParseFile(NewWinamax(), []byte(out))
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range again {
		if r.Err != nil {
			t.Fatalf("hand %d: %v", r.Index, r.Err)
		}
		if _, ok := r.Hand.Player("Player1"); !ok {
			t.Errorf("hand %d: Player1 not seated", r.Index)
		}
	}
}

func TestAnonymiseKeepsLongerWords(t *testing.T) {
	if wordRune("Bobby", 3, 1) != true {
		t.Error("expected a letter after the match")
	}
	if wordRune("Bob folds", 3, 1) {
		t.Error("space is not a word rune")
	}
	if wordRune("Bob", 0, -1) {
		t.Error("start of text has no rune before it")
	}
}
