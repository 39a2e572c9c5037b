package model

import (
	"fmt"
	"strings"

	"github.com/paulhankin/poker"
)

const cardRanks = "23456789TJQKA"

// Suit blocks of the integer card code: hearts 1-13, diamonds 14-26,
// clubs 27-39, spades 40-52. Zero means unknown.
var suitBase = map[byte]int{'h': 0, 'd': 13, 'c': 26, 's': 39}

// EncodeCard converts a two-letter card like "Ah" to its integer code.
// Unknown or hidden cards ("", "xx", "0x") encode as 0.
func EncodeCard(c string) int {
	if len(c) != 2 {
		return 0
	}
	r := strings.IndexByte(cardRanks, upperRank(c[0]))
	base, ok := suitBase[c[1]|0x20]
	if r < 0 || !ok {
		return 0
	}
	return base + r + 1
}

// DecodeCard is the inverse of EncodeCard.
func DecodeCard(code int) string {
	if code < 1 || code > 52 {
		return ""
	}
	idx := code - 1
	return string(cardRanks[idx%13]) + string("hdcs"[idx/13])
}

// ValidCard reports whether c names one of the 52 cards.
func ValidCard(c string) bool { return EncodeCard(c) != 0 }

func upperRank(b byte) byte {
	if b >= 'a' && b <= 'z' {
		return b - 0x20
	}
	return b
}

// StartCards returns the 1-169 index of a two-card starting hand, or 0
// when either card is unknown. Pairs sit on the diagonal, suited hands
// above it and offsuit hands below.
func StartCards(cards []string) int {
	if len(cards) != 2 {
		return 0
	}
	a, b := EncodeCard(cards[0]), EncodeCard(cards[1])
	if a == 0 || b == 0 {
		return 0
	}
	ra, rb := (a-1)%13, (b-1)%13
	hi, lo := ra, rb
	if lo > hi {
		hi, lo = lo, hi
	}
	suited := (a-1)/13 == (b-1)/13
	switch {
	case hi == lo:
		return hi*13 + lo + 1
	case suited:
		return lo*13 + hi + 1
	default:
		return hi*13 + lo + 1
	}
}

// pokerCard converts "Ah" to the evaluator's card type.
func pokerCard(c string) (poker.Card, error) {
	if !ValidCard(c) {
		var zero poker.Card
		return zero, fmt.Errorf("invalid card %q", c)
	}
	var suit poker.Suit
	switch c[1] | 0x20 {
	case 'c':
		suit = poker.Club
	case 'd':
		suit = poker.Diamond
	case 'h':
		suit = poker.Heart
	case 's':
		suit = poker.Spade
	}
	// Aces are rank 1 in the evaluator.
	rank := poker.Rank(strings.IndexByte(cardRanks, upperRank(c[0])) + 2)
	if rank == 14 {
		rank = 1
	}
	return poker.MakeCard(suit, rank)
}

func sevenCards(hole, board []string) ([7]poker.Card, error) {
	var out [7]poker.Card
	all := append(append([]string{}, hole...), board...)
	if len(all) != 7 {
		return out, fmt.Errorf("need 7 cards, got %d", len(all))
	}
	for i, c := range all {
		pc, err := pokerCard(c)
		if err != nil {
			return out, err
		}
		out[i] = pc
	}
	return out, nil
}

// DescribeHand names the best five-card hand made from two hole cards and
// a five-card board, e.g. "two pair, kings and sevens".
func DescribeHand(hole, board []string) (string, error) {
	cards, err := sevenCards(hole, board)
	if err != nil {
		return "", err
	}
	return poker.Describe(cards[:])
}

// HandStrength scores the same seven cards; higher is better.
func HandStrength(hole, board []string) (int16, error) {
	cards, err := sevenCards(hole, board)
	if err != nil {
		return 0, err
	}
	return poker.Eval7(&cards), nil
}
