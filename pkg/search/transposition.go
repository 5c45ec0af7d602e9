// Package search implements the alpha-beta search engine: transposition table, move
// ordering, quiescence, and iterative deepening with aspiration windows.
package search

import (
	"github.com/antforge/antforge/pkg/board"
	"github.com/antforge/antforge/pkg/eval"
	"go.uber.org/atomic"
)

// Bound indicates how a stored score relates to the search window that produced it.
type Bound uint8

const (
	ExactBound Bound = iota
	LowerBound
	UpperBound
)

func (b Bound) String() string {
	switch b {
	case ExactBound:
		return "exact"
	case LowerBound:
		return "lower"
	case UpperBound:
		return "upper"
	default:
		return "?"
	}
}

const bucketSize = 2

// slot is one transposition table entry. smpKey/smpData implement the lockless XOR-verified
// scheme from the design: a reader accepts the slot only if smpKey^smpData equals the probed
// hash, which rejects any write torn between the two fields without a lock. The position is
// held separately purely to reject hash collisions between genuinely different positions;
// a stale read of it, racing a concurrent Put, is itself rejected by the equality check and
// costs nothing but a cache miss (see the Game Tree's identical tolerance for lost updates).
type slot struct {
	pos     atomic.Pointer[board.Position]
	smpData atomic.Uint64
	smpKey  atomic.Uint64
}

func (s *slot) depth() uint8 {
	return extractDepth(s.smpData.Load())
}

// TranspositionTable is a bounded, lock-striped cache of search results keyed by position
// hash, safe for concurrent use by many alpha-beta workers without any locking.
type TranspositionTable interface {
	// Size returns the entry capacity (buckets * bucketSize), rounded down to a power of two.
	Size() uint64

	// Read probes the table for the given hash and position. It returns the best move and a
	// usable score (filtered by alpha/beta/depth per the stored bound), or an invalid score
	// and whatever best move (if any) was found, for move ordering. ply is the current search
	// ply, used to re-adjust any mate score found to be relative to this node.
	Read(hash board.ZobristHash, pos *board.Position, alpha, beta eval.Score, depth, ply int) (score eval.Score, move board.Move, hasMove bool)

	// Write stores a search result, refusing to overwrite an existing entry for the same
	// position with strictly greater depth. Returns true iff the slot was written. ply adjusts
	// a mate-window score to be ply-independent before storing.
	Write(hash board.ZobristHash, pos *board.Position, bound Bound, depth int, ply int, score eval.Score, move board.Move) bool

	// Clear resets all slots to empty.
	Clear()
}

type table struct {
	buckets []bucket
	mask    uint64
}

type bucket [bucketSize]slot

// NewTranspositionTable allocates a table sized to hold approximately the given number of
// entries (rounded down to a power of two, and split into buckets of two).
func NewTranspositionTable(size uint64) TranspositionTable {
	size = roundDownPow2(size)
	if size < bucketSize {
		size = bucketSize
	}
	numBuckets := size / bucketSize

	return &table{
		buckets: make([]bucket, numBuckets),
		mask:    numBuckets - 1,
	}
}

func roundDownPow2(n uint64) uint64 {
	if n == 0 {
		return 1
	}
	p := uint64(1)
	for p<<1 <= n {
		p <<= 1
	}
	return p
}

func (t *table) Size() uint64 {
	return (t.mask + 1) * bucketSize
}

func (t *table) bucketFor(hash board.ZobristHash) *bucket {
	return &t.buckets[uint64(hash)&t.mask]
}

func (t *table) Read(hash board.ZobristHash, pos *board.Position, alpha, beta eval.Score, depth, ply int) (eval.Score, board.Move, bool) {
	b := t.bucketFor(hash)

	for i := range b {
		s := &b[i]

		data := s.smpData.Load()
		key := s.smpKey.Load()
		if key^data != uint64(hash) {
			continue
		}
		p := s.pos.Load()
		if p == nil || pos == nil || *p != *pos {
			continue
		}

		move := board.UnpackMove(extractMove(data))

		if int(extractDepth(data)) >= depth {
			score := adjustScoreForLoad(extractScore(data), ply)
			switch extractBound(data) {
			case ExactBound:
				return score, move, true
			case LowerBound:
				if score >= beta {
					return beta, move, true
				}
			case UpperBound:
				if score <= alpha {
					return alpha, move, true
				}
			}
		}
		return eval.InvalidScore, move, true
	}
	return eval.InvalidScore, board.Move{}, false
}

func (t *table) Write(hash board.ZobristHash, pos *board.Position, bound Bound, depth int, ply int, score eval.Score, move board.Move) bool {
	b := t.bucketFor(hash)

	minDepth := 256
	minIndex := 0
	for i := range b {
		s := &b[i]

		data := s.smpData.Load()
		key := s.smpKey.Load()
		if key^data == uint64(hash) {
			if p := s.pos.Load(); p != nil && pos != nil && *p == *pos {
				if int(extractDepth(data)) > depth {
					return false // refuse: existing entry is deeper
				}
			}
		}

		if d := int(extractDepth(data)); d < minDepth {
			minDepth = d
			minIndex = i
		}
	}

	stored := adjustScoreForStore(score, ply)
	data := packData(stored, move.Pack(), uint8(depth), bound)

	s := &b[minIndex]
	s.pos.Store(pos)
	s.smpData.Store(data)
	s.smpKey.Store(uint64(hash) ^ data)
	return true
}

func (t *table) Clear() {
	t.buckets = make([]bucket, len(t.buckets))
}

// NoTranspositionTable is a TranspositionTable that stores nothing, for running search with
// the table disabled (Options.Hash == 0).
type NoTranspositionTable struct{}

func (NoTranspositionTable) Size() uint64 { return 0 }

func (NoTranspositionTable) Read(board.ZobristHash, *board.Position, eval.Score, eval.Score, int, int) (eval.Score, board.Move, bool) {
	return eval.InvalidScore, board.Move{}, false
}

func (NoTranspositionTable) Write(board.ZobristHash, *board.Position, Bound, int, int, eval.Score, board.Move) bool {
	return false
}

func (NoTranspositionTable) Clear() {}

// packData packs (score, move, depth, bound) into a single 64-bit word: 32-bit signed
// score, 16-bit move, 8-bit depth, 8-bit bound flag.
func packData(score eval.Score, move uint16, depth uint8, bound Bound) uint64 {
	data := uint64(uint32(score))
	data |= uint64(move) << 32
	data |= uint64(depth) << 48
	data |= uint64(bound) << 56
	return data
}

func extractScore(data uint64) eval.Score {
	return eval.Score(int32(uint32(data)))
}

func extractMove(data uint64) uint16 {
	return uint16((data >> 32) & 0xffff)
}

func extractDepth(data uint64) uint8 {
	return uint8((data >> 48) & 0xff)
}

func extractBound(data uint64) Bound {
	return Bound((data >> 56) & 0xff)
}

// adjustScoreForStore/adjustScoreForLoad implement mate-score ply normalization (spec 4.1):
// search expresses a mate score as a distance from the root; it is stored as a distance from
// the storing node (ply-independent) by folding in the current ply, and re-expressed from
// the root at the probing node's ply by removing that ply.
func adjustScoreForStore(s eval.Score, ply int) eval.Score {
	if !s.IsMate() {
		return s
	}
	if s > 0 {
		return s + eval.Score(ply)
	}
	return s - eval.Score(ply)
}

func adjustScoreForLoad(s eval.Score, ply int) eval.Score {
	if !s.IsMate() {
		return s
	}
	if s > 0 {
		return s - eval.Score(ply)
	}
	return s + eval.Score(ply)
}
