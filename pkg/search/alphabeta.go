package search

import (
	"context"
	"math"

	"github.com/antforge/antforge/pkg/board"
	"github.com/antforge/antforge/pkg/eval"
)

const maxPly = 128

// reverseFutilityMargin and extendedFutilityMargin bound how far below beta (or above alpha,
// for extended) a static evaluation must sit before a near-leaf node is pruned without
// searching any move at all.
const (
	reverseFutilityMargin  = eval.Score(320)
	extendedFutilityMargin = eval.Score(220)
	maxFutilityDepth       = 3
)

// HintSource supplies a preferred move for a position, typically the best path discovered by
// a concurrent ant-colony rollout search. It is optional: a nil HintSource simply contributes
// no ordering hint.
type HintSource interface {
	Hint(hash board.ZobristHash) (board.Move, bool)
}

// AlphaBeta is a single negamax alpha-beta searcher sharing a transposition table (and,
// optionally, a game-tree hint source) with any number of concurrent instances. Each instance
// is single-goroutine and holds its own killer and PV state; construct one per search worker.
type AlphaBeta struct {
	Eval eval.Evaluator
	TT   TranspositionTable
	GT   HintSource

	killers [maxPly]Killers
	pv      [maxPly + 1][]board.Move
	nodes   uint64
}

// Nodes returns the number of nodes visited by the most recent Search call.
func (ab *AlphaBeta) Nodes() uint64 {
	return ab.nodes
}

// PV returns the principal variation found by the most recent Search call.
func (ab *AlphaBeta) PV() []board.Move {
	return ab.pv[0]
}

// Search runs a fixed-depth negamax alpha-beta search from the board's current position and
// returns the score for the side to move. depth is in plies; alpha/beta form the aspiration
// window. The board is mutated and restored (PushMove/PopMove) during the search.
func (ab *AlphaBeta) Search(ctx context.Context, b *board.Board, depth int, alpha, beta eval.Score) (eval.Score, error) {
	ab.nodes = 0
	return ab.negamax(ctx, b, depth, 0, alpha, beta)
}

func (ab *AlphaBeta) negamax(ctx context.Context, b *board.Board, depth, ply int, alpha, beta eval.Score) (eval.Score, error) {
	ab.pv[ply] = ab.pv[ply][:0]

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

	if depth <= 0 {
		return ab.quiescence(ctx, b, ply, alpha, beta)
	}

	var ttMove board.Move
	if ab.TT != nil {
		if score, move, ok := ab.TT.Read(hash, pos, alpha, beta, depth, ply); ok {
			ttMove = move
			if !score.IsInvalid() {
				return score, nil
			}
		}
	}

	moves := pos.PseudoLegalMoves(turn)
	if len(moves) == 0 {
		result := b.AdjudicateNoLegalMoves()
		return terminalScore(result, turn, ply), nil
	}

	staticEval := ab.Eval.Evaluate(ctx, b)

	// isPV mirrors the standard null-window test: a node searched with beta == alpha+1 carries
	// no information (any score returned is just "above" or "below" alpha), so only a window
	// wider than that is a genuine PV node. Reverse/extended futility are pruning heuristics
	// that can misjudge a position the static evaluator undervalues, so they are restricted
	// (per spec) to non-PV, non-root, non-check nodes only — applying them at the root or
	// along the PV could prune away the actual best line.
	isPV := beta-alpha > 1
	nonRoot := ply > 0
	inCheck := pos.IsChecked(turn)
	prunable := depth <= maxFutilityDepth && !isPV && nonRoot && !inCheck && !staticEval.IsMate()

	// Reverse futility: if the position is already comfortably above beta, bail out without
	// searching any move, returning the midpoint of the static eval and beta rather than beta
	// itself (a smaller, safer cutoff value).
	if prunable && staticEval-reverseFutilityMargin*eval.Score(depth) >= beta {
		return (staticEval + beta) / 2, nil
	}

	var gtMove board.Move
	if ab.GT != nil {
		gtMove, _ = ab.GT.Hint(hash)
	}

	oc := OrderingContext{TT: ttMove, GT: gtMove, Killers: ab.killers[ply]}
	ml := board.NewMoveList(moves, NewPriorityFn(pos, turn, oc))

	// Extended futility: if the position is comfortably below alpha even with the remaining
	// depth's worth of margin, skip quiet late moves entirely rather than searching them.
	var (
		best      = eval.NegInf
		bestMove  board.Move
		bound     = UpperBound
		searched  int
		extFutile = prunable && staticEval+extendedFutilityMargin*eval.Score(depth) < alpha
	)

	for {
		m, ok := ml.Next()
		if !ok {
			break
		}
		if !b.PushMove(m) {
			continue
		}

		if extFutile && m.IsQuiet() && searched > 0 {
			b.PopMove()
			continue
		}

		childDepth := depth - 1
		reduced := false
		if searched >= 3 && depth >= 3 && m.IsQuiet() && !b.Position().IsChecked(b.Turn()) {
			priority := Priority(pos, turn, oc, m)
			r := lmrReduction(searched+1, depth)
			if priority >= 100 {
				r--
			}
			if r > 0 && childDepth-r > 0 {
				childDepth -= r
				reduced = true
			}
		}

		var score eval.Score
		var err error
		if searched == 0 {
			score, err = ab.negamax(ctx, b, childDepth, ply+1, beta.Negate(), alpha.Negate())
			score = score.Negate()
		} else {
			score, err = ab.negamax(ctx, b, childDepth, ply+1, alpha.Negate()-1, alpha.Negate())
			score = score.Negate()
			if err == nil && score > alpha && (reduced || score < beta) {
				score, err = ab.negamax(ctx, b, depth-1, ply+1, beta.Negate(), alpha.Negate())
				score = score.Negate()
			}
		}

		b.PopMove()
		if err != nil {
			return 0, err
		}
		searched++

		if score > best {
			best = score
			bestMove = m
			ab.pv[ply] = append(ab.pv[ply][:0], m)
			ab.pv[ply] = append(ab.pv[ply], ab.pv[ply+1]...)
		}
		if best > alpha {
			alpha = best
			bound = ExactBound
		}
		if alpha >= beta {
			if m.IsQuiet() {
				ab.killers[ply].Add(m)
			}
			bound = LowerBound
			break
		}
	}

	if searched == 0 {
		// Every pseudo-legal move left the mover in check: no legal moves.
		result := b.AdjudicateNoLegalMoves()
		return terminalScore(result, turn, ply), nil
	}

	if ab.TT != nil {
		ab.TT.Write(hash, pos, bound, depth, ply, best, bestMove)
	}

	return best, nil
}

// lmrReduction implements the late-move-reduction depth cut: floor(0.8 + 0.3*log2(m) +
// 0.5*log2(depth)), for the m-th move searched (1-based) at the given remaining depth.
func lmrReduction(m, depth int) int {
	if m < 1 {
		m = 1
	}
	if depth < 1 {
		depth = 1
	}
	r := 0.8 + 0.3*math.Log2(float64(m)) + 0.5*math.Log2(float64(depth))
	if r < 0 {
		return 0
	}
	return int(r)
}

func terminalScore(r board.Result, turn board.Color, ply int) eval.Score {
	switch r.Reason {
	case board.Checkmate:
		if r.Outcome == board.Loss(turn) {
			return eval.MatedInXScore(ply)
		}
		return eval.MateInXScore(ply)
	default:
		return eval.ZeroScore
	}
}
