package search

import (
	"github.com/antforge/antforge/pkg/board"
)

// pieceOrderValue is the move-ordering base score table for a captured piece, distinct from
// eval.NominalValue: this scale only needs to rank captures relative to each other and to the
// fixed bonuses below, not to reflect a realistic material count.
func pieceOrderValue(p board.Piece) board.MovePriority {
	switch p {
	case board.Pawn:
		return 136
	case board.Knight:
		return 782
	case board.Bishop:
		return 830
	case board.Rook:
		return 1289
	case board.Queen:
		return 2529
	default:
		return 0
	}
}

const (
	ttBonus          board.MovePriority = 1000000
	gameTreeBonus    board.MovePriority = 2000000
	queenPromoBonus  board.MovePriority = 3000
	givesCheckBonus  board.MovePriority = 10000
	primaryKiller    board.MovePriority = 5000
	secondaryKiller  board.MovePriority = 3000
	quietPawnBonus   board.MovePriority = 5
	mobilityNumer                       = 200
)

// threatBonus ranks a move by the enemy piece it attacks, tiered by the attacked piece's
// importance; whether that piece is defended is not considered.
func threatBonus(p board.Piece) board.MovePriority {
	switch p {
	case board.Queen:
		return 90
	case board.Rook:
		return 80
	case board.Bishop, board.Knight:
		return 70
	case board.Pawn:
		return 60
	default:
		return 0
	}
}

// Killers holds the two killer-move slots for one search ply: quiet moves that caused a beta
// cutoff elsewhere at the same depth, tried early as they are likely good again.
type Killers struct {
	Primary, Secondary board.Move
}

// Add records a new killer, demoting the current primary to secondary.
func (k *Killers) Add(m board.Move) {
	if k.Primary.Equals(m) {
		return
	}
	k.Secondary = k.Primary
	k.Primary = m
}

// OrderingContext carries the per-node hints used to score moves for search order.
type OrderingContext struct {
	TT      board.Move
	GT      board.Move
	Killers Killers
}

// Priority scores a single pseudo-legal move for search ordering, highest first. A move
// matching the game-tree or hash hint gets that hint's fixed bonus outright (game tree above
// hash). Otherwise the score sums, in decreasing weight: giving check, a killer slot, queen
// promotion, captures (MVV with a cheaper-attacker tiebreak), attacked enemy pieces, quiet
// mobility, and a small bonus for quiet pawn pushes.
func Priority(pos *board.Position, turn board.Color, oc OrderingContext, m board.Move) board.MovePriority {
	if !oc.TT.IsZero() && oc.TT.Equals(m) {
		return ttBonus
	}
	if !oc.GT.IsZero() && oc.GT.Equals(m) {
		return gameTreeBonus
	}

	var score board.MovePriority

	if m.IsCapture() {
		victim := m.Capture
		if m.Type == board.EnPassant {
			victim = board.Pawn
		}
		score += pieceOrderValue(victim) - pieceOrderValue(m.Piece)/100
	}
	if m.Promotion == board.Queen {
		score += queenPromoBonus
	}

	next, ok := pos.Move(m)
	if ok {
		if next.IsChecked(turn.Opponent()) {
			score += givesCheckBonus
		}
		score += newThreats(next, turn, m.To, m.Piece)
		mobility := len(next.PseudoLegalMoves(turn.Opponent()))
		score += board.MovePriority(mobilityNumer / (mobility + 1))
	}

	if oc.Killers.Primary.Equals(m) {
		score += primaryKiller
	} else if oc.Killers.Secondary.Equals(m) {
		score += secondaryKiller
	}

	if m.IsQuiet() && m.Piece == board.Pawn {
		score += quietPawnBonus
	}

	return score
}

// newThreats scores the strongest newly-attacked enemy piece from the moved piece's
// destination square, a cheap stand-in for full static-exchange threat detection.
func newThreats(next *board.Position, turn board.Color, from board.Square, mover board.Piece) board.MovePriority {
	var attacks board.Bitboard
	if mover == board.Pawn {
		attacks = board.PawnCaptureboard(turn, board.BitMask(from))
	} else {
		attacks = board.Attackboard(next.Rotated(), from, mover)
	}

	opponent := turn.Opponent()
	var best board.MovePriority
	for p := board.ZeroPiece; p < board.NumPieces; p++ {
		bb := next.Piece(opponent, p) & attacks
		if bb != 0 {
			if b := threatBonus(p); b > best {
				best = b
			}
		}
	}
	return best
}

// NewPriorityFn returns a board.MovePriorityFn bound to one position and ordering context, for
// use with board.NewMoveList.
func NewPriorityFn(pos *board.Position, turn board.Color, oc OrderingContext) board.MovePriorityFn {
	return func(m board.Move) board.MovePriority {
		return Priority(pos, turn, oc, m)
	}
}
