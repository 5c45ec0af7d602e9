// Package coordinator wires together a transposition-table-backed alpha-beta search and an
// ant-colony rollout search over a shared game tree, running both concurrently against one
// position and reporting a single best move.
package coordinator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/antforge/antforge/pkg/antcolony"
	"github.com/antforge/antforge/pkg/board"
	"github.com/antforge/antforge/pkg/board/fen"
	"github.com/antforge/antforge/pkg/eval"
	"github.com/antforge/antforge/pkg/search"
	"github.com/seekerror/build"
	"github.com/seekerror/logw"
)

var version = build.NewVersion(0, 1, 0)

// maxSearchDepth bounds alpha-beta iterative deepening; in practice the time budget always
// runs out first.
const maxSearchDepth = 64

// ttSlotBytes approximates the memory of one transposition table slot (a position pointer
// and two 64-bit words), used to turn Options.Hash megabytes into an entry count.
const ttSlotBytes = 24

// Options are coordinator creation and runtime options.
type Options struct {
	// Hash is the transposition table size in MB. Zero disables the table.
	Hash uint
	// TreeSize is the ant-colony game tree's approximate entry capacity.
	TreeSize uint64
	// Noise is the centipawn evaluation-noise limit the caller layered onto the evaluator; the
	// coordinator only reports it.
	Noise uint
}

func (o Options) String() string {
	return fmt.Sprintf("{hash=%vMB, tree=%v, noise=%v}", o.Hash, o.TreeSize, o.Noise)
}

// Coordinator owns one game's board state and starts/stops combined alpha-beta + ant-colony
// searches over it. Not safe for concurrent calls to its own methods (mirroring a single
// UI/protocol thread driving it), but the search it starts is internally concurrent.
type Coordinator struct {
	name, author string
	eval         eval.Evaluator

	zt   *board.ZobristTable
	seed int64
	opts Options

	b    *board.Board
	tt   search.TranspositionTable
	tree *antcolony.GameTree

	mu     sync.Mutex
	cancel context.CancelFunc
	active bool
}

// Option is a coordinator creation option.
type Option func(*Coordinator)

// WithOptions sets default runtime options.
func WithOptions(opts Options) Option {
	return func(c *Coordinator) {
		c.opts = opts
	}
}

// WithZobrist configures the coordinator to use the given random seed instead of zero.
func WithZobrist(seed int64) Option {
	return func(c *Coordinator) {
		c.seed = seed
	}
}

// New creates a coordinator at the initial position.
func New(ctx context.Context, name, author string, evaluator eval.Evaluator, opts ...Option) *Coordinator {
	c := &Coordinator{
		name:   name,
		author: author,
		eval:   evaluator,
	}
	for _, fn := range opts {
		fn(c)
	}
	c.zt = board.NewZobristTable(c.seed)

	_ = c.Reset(ctx, fen.Initial)

	logw.Infof(ctx, "Initialized coordinator: %v, options=%v", c.Name(), c.opts)
	return c
}

func (c *Coordinator) Name() string {
	return fmt.Sprintf("%v %v", c.name, version)
}

func (c *Coordinator) Author() string {
	return c.author
}

// Board returns a forked board, safe for the caller to inspect or mutate independently.
func (c *Coordinator) Board() *board.Board {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.b.Fork()
}

// Position returns the current position in FEN format.
func (c *Coordinator) Position() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return fen.Encode(c.b.Position(), c.b.Turn(), c.b.NoProgress(), c.b.FullMoves())
}

// Reset resets to a new starting position in FEN format, allocating a fresh transposition
// table and game tree.
func (c *Coordinator) Reset(ctx context.Context, position string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	logw.Infof(ctx, "Reset %v, options=%v", position, c.opts)

	c.stopLocked()

	pos, turn, noprogress, fullmoves, err := fen.Decode(position)
	if err != nil {
		return err
	}
	c.b = board.NewBoard(c.zt, pos, turn, noprogress, fullmoves)

	c.tt = search.NoTranspositionTable{}
	if c.opts.Hash > 0 {
		c.tt = search.NewTranspositionTable((uint64(c.opts.Hash) << 20) / ttSlotBytes)
	}
	treeSize := c.opts.TreeSize
	if treeSize == 0 {
		treeSize = 1 << 20
	}
	c.tree = antcolony.NewGameTree(treeSize)

	logw.Infof(ctx, "New board: %v", c.b)
	return nil
}

// Move applies an opponent (or any external) move, given in coordinate notation.
func (c *Coordinator) Move(ctx context.Context, move string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	logw.Infof(ctx, "Move %v", move)

	candidate, err := board.ParseMove(move)
	if err != nil {
		return fmt.Errorf("invalid move: %w", err)
	}

	c.stopLocked()

	m, ok := c.b.Position().Decorate(c.b.Turn(), candidate)
	if !ok || !c.b.PushMove(m) {
		return fmt.Errorf("illegal move: %v", move)
	}

	logw.Infof(ctx, "Move %v: %v", m, c.b)
	return nil
}

// TakeBack undoes the latest move.
func (c *Coordinator) TakeBack(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopLocked()

	m, ok := c.b.PopMove()
	if !ok {
		return fmt.Errorf("no move to take back")
	}

	logw.Infof(ctx, "Takeback %v", m)
	return nil
}

// Start launches totalThreads-abThreads ant-colony rollout workers and abThreads alpha-beta
// iterative deepening workers (the first of which publishes its principal variation) against
// the current position, running for at most timeMS milliseconds or until Stop is called,
// whichever comes first. onDone is invoked exactly once, with the best move found; if no
// alpha-beta move was published it receives the game tree's most-visited root edge, or the
// zero move if the game tree has no root node either.
func (c *Coordinator) Start(ctx context.Context, totalThreads, abThreads int, timeMS int, onDone func(board.Move)) error {
	c.mu.Lock()
	if c.active {
		c.mu.Unlock()
		return fmt.Errorf("search already active")
	}
	c.active = true

	root := c.b.Fork()
	tt := c.tt
	tree := c.tree
	ev := c.eval
	c.mu.Unlock()

	searchCtx, cancel := context.WithTimeout(ctx, time.Duration(timeMS)*time.Millisecond)
	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()

	var (
		once      sync.Once
		resultMu  sync.Mutex
		bestMove  board.Move
		bestScore = eval.NegInf
	)
	rootScore := func() eval.Score {
		resultMu.Lock()
		defer resultMu.Unlock()
		return bestScore
	}

	var abEngines []*search.AlphaBeta
	for i := 0; i < abThreads; i++ {
		abEngines = append(abEngines, &search.AlphaBeta{Eval: ev, TT: tt, GT: tree})
	}

	colony := &antcolony.Colony{Tree: tree, Eval: ev}
	if len(abEngines) > 0 {
		colony.Line = abEngines[0]
	}

	// finish is defined before any worker starts so the publishing worker's mate-detection
	// callback can always call it safely; it fires the callback exactly once, whether reached
	// via an early mate stop or the wg.Wait() fallback below.
	finish := func() {
		once.Do(func() {
			c.mu.Lock()
			c.active = false
			c.cancel = nil
			c.mu.Unlock()

			resultMu.Lock()
			m := bestMove
			resultMu.Unlock()

			if m.IsZero() {
				if h, ok := fallbackMove(tree, root); ok {
					m = h
				}
			}
			onDone(m)
		})
	}

	var wg sync.WaitGroup
	for i := 0; i < totalThreads-abThreads; i++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			colony.Worker(searchCtx, root, rootScore, seed)
		}(int64(i + 1))
	}

	for i, ab := range abEngines {
		wg.Add(1)
		go func(ab *search.AlphaBeta, publish bool) {
			defer wg.Done()

			b := root.Fork()
			_, _ = ab.IterativeDeepen(searchCtx, b, maxSearchDepth, func(r search.Result) {
				if !publish {
					return
				}
				resultMu.Lock()
				bestMove, bestScore = r.Move, r.Score
				resultMu.Unlock()

				if r.Score.IsMate() {
					// Mate found: stop every worker immediately rather than burning the rest
					// of the time budget, per spec's "stop all workers" on mate detection.
					cancel()
					finish()
				}
			})
		}(ab, i == 0)
	}

	go func() {
		wg.Wait()
		finish()
	}()

	return nil
}

// fallbackMove returns the game tree's most-visited edge at root, used when no alpha-beta
// worker completed even depth 1 before the time budget ran out.
func fallbackMove(tree *antcolony.GameTree, root *board.Board) (board.Move, bool) {
	h := tree.Get(root.Hash(), root.Position())
	if h.IsZero() {
		return board.Move{}, false
	}
	defer h.Release()

	var best *antcolony.Edge
	var maxEntries uint32
	for _, e := range h.Edges() {
		if e.Entries() >= maxEntries {
			maxEntries = e.Entries()
			best = e
		}
	}
	if best == nil {
		return board.Move{}, false
	}
	return best.Move, true
}

// Stop halts any active search; its onDone callback still fires (with whatever move had been
// found so far). A no-op if no search is active.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopLocked()
}

func (c *Coordinator) stopLocked() {
	if c.cancel != nil {
		c.cancel()
	}
}
