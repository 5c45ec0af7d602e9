package search

import (
	"context"

	"github.com/antforge/antforge/pkg/board"
	"github.com/antforge/antforge/pkg/eval"
	"github.com/seekerror/logw"
)

const (
	initialAspirationWindow = eval.Score(80)
	maxAspirationWindow     = eval.Score(1000)
	maxAspirationAttempts   = 4
)

// Result is one completed iteration of iterative deepening.
type Result struct {
	Depth int
	Score eval.Score
	Move  board.Move
	PV    []board.Move
	Nodes uint64
}

// IterativeDeepen runs iterative deepening alpha-beta from depth 1 to maxDepth (or until ctx
// is done), widening an aspiration window around each iteration's previous score. on reports
// every completed iteration; IterativeDeepen returns the last completed Result, or an error if
// not even depth 1 completed (e.g. ctx was already done).
func (ab *AlphaBeta) IterativeDeepen(ctx context.Context, b *board.Board, maxDepth int, on func(Result)) (Result, error) {
	var last Result
	var haveResult bool

	prevScore := eval.ZeroScore
	for depth := 1; depth <= maxDepth; depth++ {
		score, err := ab.searchAspirated(ctx, b, depth, prevScore)
		if err != nil {
			if haveResult {
				return last, nil
			}
			return Result{}, err
		}

		pv := append([]board.Move(nil), ab.PV()...)
		var move board.Move
		if len(pv) > 0 {
			move = pv[0]
		}

		last = Result{Depth: depth, Score: score, Move: move, PV: pv, Nodes: ab.Nodes()}
		haveResult = true
		prevScore = score

		if on != nil {
			on(last)
		}
		if score.IsMate() {
			if d, _ := score.MateDistance(); d <= depth {
				break
			}
		}
	}
	return last, nil
}

// searchAspirated searches one depth with a narrow window around guess, widening (doubling,
// capped at maxAspirationWindow) and re-searching on fail-high/fail-low, falling back to a
// full window after maxAspirationAttempts failures.
func (ab *AlphaBeta) searchAspirated(ctx context.Context, b *board.Board, depth int, guess eval.Score) (eval.Score, error) {
	if depth <= 2 {
		return ab.Search(ctx, b, depth, eval.NegInf, eval.Inf)
	}

	window := initialAspirationWindow
	alpha, beta := clampWindow(guess-window), clampWindow(guess+window)

	for attempt := 0; attempt < maxAspirationAttempts; attempt++ {
		score, err := ab.Search(ctx, b, depth, alpha, beta)
		if err != nil {
			return 0, err
		}
		if score <= alpha {
			logw.Debugf(ctx, "aspiration fail-low at depth %d: score=%v alpha=%v", depth, score, alpha)
			window = minScore(window*2, maxAspirationWindow)
			alpha = clampWindow(score - window)
			continue
		}
		if score >= beta {
			logw.Debugf(ctx, "aspiration fail-high at depth %d: score=%v beta=%v", depth, score, beta)
			window = minScore(window*2, maxAspirationWindow)
			beta = clampWindow(score + window)
			continue
		}
		return score, nil
	}
	return ab.Search(ctx, b, depth, eval.NegInf, eval.Inf)
}

func clampWindow(s eval.Score) eval.Score {
	if s > eval.Inf {
		return eval.Inf
	}
	if s < eval.NegInf {
		return eval.NegInf
	}
	return s
}

func minScore(a, b eval.Score) eval.Score {
	if a < b {
		return a
	}
	return b
}
