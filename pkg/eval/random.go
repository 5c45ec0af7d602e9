package eval

import (
	"context"
	"github.com/antforge/antforge/pkg/board"
	"math/rand"
	"sync"
)

// Random is a noise generator adding a small amount of randomness to leaf evaluations, so
// otherwise-deterministic search does not always pick the same move among ties. The limit
// specifies the centi-pawn range [-limit/2; limit/2]. The zero value always returns zero.
//
// A *Random is shared by every alpha-beta and ant-colony worker (it is wrapped in a Sum and
// handed to each as the same Evaluator), and math/rand.Rand is not safe for concurrent use, so
// access to the source is serialized here rather than left to the caller.
type Random struct {
	mu    sync.Mutex
	rand  *rand.Rand
	limit int
}

func NewRandom(limit int, seed int64) *Random {
	return &Random{
		limit: limit,
		rand:  rand.New(rand.NewSource(seed)),
	}
}

func (n *Random) Evaluate(ctx context.Context, b *board.Board) Score {
	if n.limit <= 0 {
		return 0
	}
	n.mu.Lock()
	v := n.rand.Intn(n.limit) - n.limit/2
	n.mu.Unlock()
	return Score(v)
}
