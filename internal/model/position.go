package model

import "strconv"

// Position is a player's seat relative to the button: "B" big blind,
// "S" small blind, "0" button, "1" cutoff and so on. Stud hands number
// positions by betting order from the bring-in.
type Position string

const (
	PositionBigBlind   Position = "B"
	PositionSmallBlind Position = "S"
	PositionButton     Position = "0"
	PositionUnknown    Position = ""
)

// SeatPosition returns the position n seats before the button.
func SeatPosition(n int) Position { return Position(strconv.Itoa(n)) }

// Distance returns the numeric position, or -1 for blinds and unknown.
func (p Position) Distance() int {
	n, err := strconv.Atoi(string(p))
	if err != nil {
		return -1
	}
	return n
}

// PositionClass groups positions for cache bucketing.
type PositionClass string

const (
	ClassBigBlind   PositionClass = "B"
	ClassSmallBlind PositionClass = "S"
	ClassButton     PositionClass = "D"
	ClassCutoff     PositionClass = "C"
	ClassMiddle     PositionClass = "M"
	ClassEarly      PositionClass = "E"
)

// Class maps a position to its bucket class. Positions past the middle
// band and unknown positions count as early.
func (p Position) Class() PositionClass {
	switch p {
	case PositionBigBlind:
		return ClassBigBlind
	case PositionSmallBlind:
		return ClassSmallBlind
	}
	switch p.Distance() {
	case 0:
		return ClassButton
	case 1:
		return ClassCutoff
	case 2, 3, 4:
		return ClassMiddle
	default:
		return ClassEarly
	}
}
