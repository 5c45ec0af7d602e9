package eval

import (
	"context"
	"github.com/antforge/antforge/pkg/board"
)

// Evaluator is a static position evaluator: a pure function from position to a centi-pawn
// score for the side to move. The production evaluator (a trained network or weighted
// material+mobility model) is an external collaborator; Material below is a minimal
// reference implementation used by tests and as a fallback.
type Evaluator interface {
	Evaluate(ctx context.Context, b *board.Board) Score
}

// Sum combines several evaluators by adding their scores, e.g. Sum{Material{},
// NewRandom(noise, seed)} to diversify an otherwise-deterministic evaluator's leaf scores.
type Sum []Evaluator

func (s Sum) Evaluate(ctx context.Context, b *board.Board) Score {
	var total Score
	for _, e := range s {
		total += e.Evaluate(ctx, b)
	}
	return total
}

// Material returns the nominal material advantage for the side to move.
type Material struct{}

func (Material) Evaluate(ctx context.Context, b *board.Board) Score {
	pos := b.Position()
	turn := b.Turn()

	var score Score
	for p := board.ZeroPiece; p < board.NumPieces; p++ {
		diff := pos.Piece(turn, p).PopCount() - pos.Piece(turn.Opponent(), p).PopCount()
		score += Score(diff) * NominalValue(p)
	}
	return score
}

// NominalValue is the absolute nominal value, in centi-pawns, of a piece. The king has an
// arbitrary large value; each side always has exactly one king, so it never changes a
// material difference.
func NominalValue(p board.Piece) Score {
	switch p {
	case board.Pawn:
		return 100
	case board.Knight:
		return 320
	case board.Bishop:
		return 330
	case board.Rook:
		return 500
	case board.Queen:
		return 900
	case board.King:
		return 10000
	default:
		return 0
	}
}

// NominalValueGain is the nominal material gain of playing a move.
func NominalValueGain(m board.Move) Score {
	switch m.Type {
	case board.CapturePromotion:
		return NominalValue(m.Capture) + NominalValue(m.Promotion) - NominalValue(board.Pawn)
	case board.Promotion:
		return NominalValue(m.Promotion) - NominalValue(board.Pawn)
	case board.Capture:
		return NominalValue(m.Capture)
	case board.EnPassant:
		return NominalValue(board.Pawn)
	default:
		return 0
	}
}
