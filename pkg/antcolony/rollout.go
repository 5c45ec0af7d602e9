package antcolony

import (
	"context"
	"math/rand"

	"github.com/antforge/antforge/pkg/board"
	"github.com/antforge/antforge/pkg/eval"
)

// maxPath bounds how many plies a single rollout walks before being abandoned, guarding
// against runaway walks through sparsely-reinforced parts of the tree.
const maxPath = 64

// BestLineSource supplies the current best principal variation from a concurrent alpha-beta
// search, for the alpha-beta-guided rollout mode. *search.AlphaBeta satisfies this structurally
// so antcolony need not import the search package.
type BestLineSource interface {
	PV() []board.Move
}

// Mode selects how a rollout picks its next move at each step.
type Mode int

const (
	// ModeRandom picks an edge by roulette-wheel sampling over edge probabilities.
	ModeRandom Mode = iota
	// ModeAlphaBetaPV follows the concurrent alpha-beta search's current best line, falling
	// back to ModeRandom past the end of that line or if no edge matches it.
	ModeAlphaBetaPV
	// ModeMax always takes the highest-probability edge (pure exploitation).
	ModeMax
)

// abCycle/maxCycle mirror the rollout-mode cycling period from the reference engine: after
// abCycle consecutive rollouts, run one ModeAlphaBetaPV rollout; after maxCycle, one ModeMax;
// otherwise ModeRandom.
const (
	abCycle  = 128
	maxCycle = 128
)

// Colony runs concurrent ant-colony rollouts over a shared GameTree, reinforcing edges that
// lead to outcomes favorable to whichever color was to move at the rollout's root.
type Colony struct {
	Tree *GameTree
	Eval eval.Evaluator
	Line BestLineSource // optional

	// History holds the Zobrist hashes of the real game's position history (not the rollout's
	// own, which is tracked per-walk), so a rollout that would repeat an actual prior game
	// position is treated as a loop and penalized like any other cycle.
	History []board.ZobristHash
}

type pathStep struct {
	edge *Edge
}

type stepResult int

const (
	stepSuccess stepResult = iota
	stepInLoop
	stepMate
	stepPat
	stepEndPath
	stepRetry
)

// Worker runs rollouts in a loop, cycling through ModeRandom/ModeAlphaBetaPV/ModeMax, until ctx
// is done. rootScore is the current alpha-beta evaluation of root, refreshed by the caller as
// iterative deepening progresses; b is forked so concurrent workers never share board state.
func (c *Colony) Worker(ctx context.Context, root *board.Board, rootScore func() eval.Score, seed int64) {
	rng := rand.New(rand.NewSource(seed))
	var abCount, maxCount int

	for ctx.Err() == nil {
		abCount++
		maxCount++

		mode := ModeRandom
		switch {
		case abCount > abCycle:
			mode = ModeAlphaBetaPV
			abCount = 0
		case maxCount > maxCycle:
			mode = ModeMax
			maxCount = 0
		}

		c.rollout(ctx, root.Fork(), mode, rootScore(), rng)
	}
}

// rollout walks one path from b's current position, reinforcing the game tree with the
// resulting outcome relative to the mover at b's current position (the rollout's root color).
func (c *Colony) rollout(ctx context.Context, b *board.Board, mode Mode, rootScore eval.Score, rng *rand.Rand) {
	rootColor := b.Turn()

	path := make([]pathStep, 0, maxPath)
	repetition := make([]board.ZobristHash, 0, maxPath)
	repetition = append(repetition, b.Hash())

	result := stepEndPath
	ply := 0
	for ply < maxPath-2 {
		if ctx.Err() != nil {
			return
		}
		result = c.step(b, mode, &path, &repetition, rng)
		if result != stepSuccess {
			break
		}
		ply = len(path)
	}

	if result == stepRetry {
		return
	}

	lastCost := c.leafCost(b, rootColor, result, ply)
	cost := float64(lastCost - rootScore)

	if result == stepPat || result == stepInLoop {
		cost = -500
	}

	const eps = 1e-6
	switch {
	case cost > eps:
		for _, p := range path {
			p.edge.AddSugar(rootColor == board.White, cost)
		}
	case cost < -eps:
		for _, p := range path {
			p.edge.AddSugar(rootColor != board.White, -cost)
		}
	}
	for _, p := range path {
		p.edge.addEntries()
	}
}

func (c *Colony) leafCost(b *board.Board, rootColor board.Color, result stepResult, ply int) eval.Score {
	switch result {
	case stepMate:
		if b.Turn() == rootColor {
			return eval.MatedInXScore(ply) // rootColor is mated
		}
		return eval.MateInXScore(ply) // rootColor delivers mate
	case stepEndPath:
		v := c.Eval.Evaluate(context.Background(), b)
		if b.Turn() != rootColor {
			return -v
		}
		return v
	default:
		return 0
	}
}

// step advances the board by one move chosen according to mode, expanding the game tree node
// for the current position if necessary, and records the edge walked.
func (c *Colony) step(b *board.Board, mode Mode, path *[]pathStep, repetition *[]board.ZobristHash, rng *rand.Rand) stepResult {
	turn := b.Turn()
	hash := b.Hash()
	pos := b.Position()

	h := c.Tree.Get(hash, pos)
	if h.IsZero() {
		moves := pos.PseudoLegalMoves(turn)
		legal := moves[:0:0]
		for _, m := range moves {
			if _, ok := pos.Move(m); ok {
				legal = append(legal, m)
			}
		}
		h = c.Tree.Put(hash, pos, legal)
		if h.IsZero() {
			return stepRetry
		}
	}
	defer h.Release()

	edges := h.Edges()
	if len(edges) == 0 {
		if pos.IsChecked(turn) {
			return stepMate
		}
		return stepPat
	}

	edge := chooseEdge(edges, mode, turn, c.Line, len(*path), rng)

	*path = append(*path, pathStep{edge: edge})

	if !b.PushMove(edge.Move) {
		return stepRetry
	}

	newHash := b.Hash()
	for _, h := range c.History {
		if h == newHash {
			return stepInLoop
		}
	}
	for i := len(*repetition) - 2; i >= 0; i -= 2 {
		if (*repetition)[i] == newHash {
			return stepInLoop
		}
	}
	*repetition = append(*repetition, newHash)

	if edge.Entries() == 0 {
		return stepEndPath
	}
	return stepSuccess
}

func chooseEdge(edges []*Edge, mode Mode, mover board.Color, line BestLineSource, ply int, rng *rand.Rand) *Edge {
	white := mover == board.White

	switch mode {
	case ModeMax:
		best := edges[0]
		bestProb := best.Probability(white)
		for _, e := range edges[1:] {
			if p := e.Probability(white); p > bestProb {
				bestProb = p
				best = e
			}
		}
		return best

	case ModeAlphaBetaPV:
		if line != nil {
			if pv := line.PV(); ply < len(pv) {
				want := pv[ply]
				for _, e := range edges {
					if e.Move.Equals(want) {
						return e
					}
				}
			}
		}
		fallthrough

	default: // ModeRandom
		return rouletteSelect(edges, white, rng)
	}
}

// rouletteSelect picks an edge with probability proportional to its current weight,
// preferring an unvisited edge outright if the roulette draw happens to land on one that has
// already been visited while others remain untried.
func rouletteSelect(edges []*Edge, white bool, rng *rand.Rand) *Edge {
	var sum float64
	weights := make([]float64, len(edges))
	for i, e := range edges {
		weights[i] = e.Probability(white)
		sum += weights[i]
	}

	r := rng.Float64() * sum
	chosen := 0
	for i, w := range weights {
		r -= w
		if r < 0 {
			chosen = i
			break
		}
	}

	if edges[chosen].Entries() == 0 {
		return edges[chosen]
	}
	for i, e := range edges {
		if e.Entries() == 0 {
			return edges[i]
		}
	}
	return edges[chosen]
}
