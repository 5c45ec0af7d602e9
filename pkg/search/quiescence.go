package search

import (
	"context"

	"github.com/antforge/antforge/pkg/board"
	"github.com/antforge/antforge/pkg/eval"
)

// deltaMargin prunes a capture in quiescence search when even its best-case material gain,
// plus this margin, cannot reach alpha.
const deltaMargin = eval.Score(600)

// quiescence extends the search beyond the nominal depth limit along captures, promotions,
// and check-giving moves (plus, when already in check, every evasion), to avoid misjudging
// a position mid-exchange. It shares the parent table's TT discipline (probing and storing
// depth-0 entries); its moves are ordered by Priority with the TT move as the only hint (no
// game-tree or killer hints), and it never reduces or extends depth further.
func (ab *AlphaBeta) quiescence(ctx context.Context, b *board.Board, ply int, alpha, beta eval.Score) (eval.Score, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	ab.nodes++

	if r := b.Result(); r.Outcome != board.Undecided {
		return terminalScore(r, b.Turn(), ply), nil
	}

	turn := b.Turn()
	pos := b.Position()
	hash := b.Hash()
	inCheck := pos.IsChecked(turn)

	var ttMove board.Move
	if ab.TT != nil {
		if score, move, ok := ab.TT.Read(hash, pos, alpha, beta, 0, ply); ok {
			ttMove = move
			if !score.IsInvalid() {
				return score, nil
			}
		}
	}

	standPat := ab.Eval.Evaluate(ctx, b)

	if !inCheck {
		if standPat >= beta {
			return beta, nil
		}
		if standPat > alpha {
			alpha = standPat
		}
	}
	moves := pos.PseudoLegalMoves(turn)

	oc := OrderingContext{TT: ttMove}
	ml := board.NewMoveList(moves, NewPriorityFn(pos, turn, oc))

	best := standPat
	var bestMove board.Move
	bound := UpperBound
	searched := 0

	for {
		m, ok := ml.Next()
		if !ok {
			break
		}
		if !inCheck {
			switch {
			case m.IsCapture():
				if standPat+eval.NominalValueGain(m)+deltaMargin < alpha {
					continue // delta pruning: even winning this material can't reach alpha
				}
			case m.Promotion != 0:
				// always worth a look, regardless of delta pruning.
			default:
				// quiet moves are only worth searching here if they give check.
				next, pok := pos.Move(m)
				if !pok || !next.IsChecked(turn.Opponent()) {
					continue
				}
			}
		}

		if !b.PushMove(m) {
			continue
		}
		score, err := ab.quiescence(ctx, b, ply+1, beta.Negate(), alpha.Negate())
		score = score.Negate()
		b.PopMove()
		if err != nil {
			return 0, err
		}
		searched++

		if score > best {
			best = score
			bestMove = m
		}
		if best > alpha {
			alpha = best
			bound = ExactBound
		}
		if alpha >= beta {
			bound = LowerBound
			break
		}
	}

	if inCheck && searched == 0 {
		result := b.AdjudicateNoLegalMoves()
		return terminalScore(result, turn, ply), nil
	}

	if ab.TT != nil {
		ab.TT.Write(hash, pos, bound, 0, ply, best, bestMove)
	}

	return best, nil
}
