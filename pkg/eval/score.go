// Package eval contains position evaluation logic and the Score type shared across search.
package eval

import (
	"fmt"
	"github.com/antforge/antforge/pkg/board"
)

// Score is a signed position or move score in centi-pawns, positive favoring the side to
// move. Scores beyond the mate window represent forced mate in a number of plies.
type Score int32

const (
	ZeroScore Score = 0

	// Inf/NegInf bound the search window; no legitimate evaluation reaches them.
	Inf    Score = 1 << 20
	NegInf Score = -Inf

	// Mate is the score of an immediate checkmate (mate in 0 plies). Scores with absolute
	// value greater than Mate-MaxMateDistance are in the mate window.
	Mate            Score = 1000000
	MaxMateDistance       = 1000
)

// HeuristicScore constructs a plain centi-pawn score, outside the mate window.
func HeuristicScore(centipawns int) Score {
	return Score(centipawns)
}

// MateInXScore constructs the score for "mate in x plies" for the side to move.
func MateInXScore(plies int) Score {
	return Mate - Score(plies)
}

// MatedInXScore constructs the score for "mated in x plies" for the side to move.
func MatedInXScore(plies int) Score {
	return -Mate + Score(plies)
}

// IsMate returns true iff the score is within the mate window.
func (s Score) IsMate() bool {
	return s > Mate-MaxMateDistance || s < -(Mate-MaxMateDistance)
}

// IsInvalid returns true iff the score is the NAN sentinel used by the transposition table
// to signal "no usable value."
func (s Score) IsInvalid() bool {
	return s == NegInf-1
}

// InvalidScore is the transposition-table NAN sentinel: a value outside the legal score
// range no Evaluator or search ever produces on purpose.
const InvalidScore Score = NegInf - 1

// MateDistance returns the number of plies to mate and true, iff the score is in the mate
// window. The distance is non-negative either way; the sign of the score itself tells
// whether the side to move delivers mate (positive) or is mated (negative).
func (s Score) MateDistance() (int, bool) {
	switch {
	case s > Mate-MaxMateDistance:
		return int(Mate - s), true
	case s < -(Mate - MaxMateDistance):
		return int(s + Mate), true
	}
	return 0, false
}

// Negate flips the score to the opponent's perspective, preserving Inf/NegInf identity.
func (s Score) Negate() Score {
	switch s {
	case Inf:
		return NegInf
	case NegInf:
		return Inf
	default:
		return -s
	}
}

// Less reports whether s is strictly worse for the side to move than o.
func (s Score) Less(o Score) bool {
	return s < o
}

func Max(a, b Score) Score {
	if a < b {
		return b
	}
	return a
}

func Min(a, b Score) Score {
	if a < b {
		return a
	}
	return b
}

func (s Score) String() string {
	if d, ok := s.MateDistance(); ok {
		if s > 0 {
			return fmt.Sprintf("mate %d", (d+1)/2)
		}
		return fmt.Sprintf("mate -%d", (d+1)/2)
	}
	return fmt.Sprintf("%.2f", float64(s)/100)
}

// Unit returns the signed unit for the color: +1 for White, -1 for Black, so that
// Unit(c)*score always reads as "favors c" when positive.
func Unit(c board.Color) Score {
	if c == board.White {
		return 1
	}
	return -1
}
