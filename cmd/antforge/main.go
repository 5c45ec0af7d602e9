package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/antforge/antforge/pkg/coordinator"
	"github.com/antforge/antforge/pkg/eval"
	"github.com/antforge/antforge/pkg/protocol"
	"github.com/seekerror/logw"
)

var (
	abThreads  = flag.Int("ab-threads", 4, "Number of alpha-beta search worker threads")
	antThreads = flag.Int("ant-threads", 4, "Number of ant-colony rollout worker threads")
	hash       = flag.Uint("hash", 64, "Transposition table size in MB (0 disables it)")
	treeSize   = flag.Uint64("tree", 1<<20, "Ant-colony game tree capacity in entries")
	noise      = flag.Uint("noise", 0, "Evaluation noise in centipawns (zero if deterministic)")
)

func init() {
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, `usage: antforge [options]

ANTFORGE is a chess engine combining alpha-beta search with an ant-colony rollout search
over a shared game tree. It speaks a line-oriented shell protocol on stdin/stdout.

Options:
`)
		flag.PrintDefaults()
	}
}

func main() {
	flag.Parse()
	ctx := context.Background()

	opts := coordinator.Options{
		Hash:     *hash,
		TreeSize: *treeSize,
		Noise:    *noise,
	}

	e := eval.Evaluator(eval.Material{})
	if *noise > 0 {
		e = eval.Sum{eval.Material{}, eval.NewRandom(int(*noise), 1)}
	}

	co := coordinator.New(ctx, "antforge", "antforge", e, coordinator.WithOptions(opts))

	in := protocol.ReadStdinLines(ctx)
	driver, out := protocol.NewDriver(ctx, co, protocol.Threads{AlphaBeta: *abThreads, Ants: *antThreads}, in)
	go protocol.WriteStdoutLines(ctx, out)

	<-driver.Closed()
	logw.Infof(ctx, "Shutting down")
}
