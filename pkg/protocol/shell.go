package protocol

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/antforge/antforge/pkg/board"
	"github.com/antforge/antforge/pkg/board/fen"
	"github.com/antforge/antforge/pkg/coordinator"
	"github.com/seekerror/logw"
	"github.com/seekerror/stdlib/pkg/util/iox"
)

// ProtocolName is the first line a caller sends to select this shell, mirroring the
// uci/console protocol-name convention in the engine this one is descended from.
const ProtocolName = "init"

// Threads configures how many alpha-beta and ant-colony workers a search spawns.
type Threads struct {
	AlphaBeta int
	Ants      int
}

func (t Threads) total() int {
	return t.AlphaBeta + t.Ants
}

// Driver implements the line-oriented engine shell described by the protocol commands
// init/ready/newgame/position/go/stop/quit/d: one command per line, one or more response
// lines flushed immediately after each.
type Driver struct {
	iox.AsyncCloser

	co      *coordinator.Coordinator
	threads Threads

	out chan<- string

	active atomic.Bool
}

// NewDriver starts processing lines from in, writing shell responses to the returned channel
// until in closes or a "quit" command is read.
func NewDriver(ctx context.Context, co *coordinator.Coordinator, threads Threads, in <-chan string) (*Driver, <-chan string) {
	out := make(chan string, 100)
	d := &Driver{
		AsyncCloser: iox.NewAsyncCloser(),
		co:          co,
		threads:     threads,
		out:         out,
	}
	go d.process(ctx, in)

	return d, out
}

func (d *Driver) process(ctx context.Context, in <-chan string) {
	defer d.Close()
	defer close(d.out)

	logw.Infof(ctx, "Shell protocol initialized")

	for line := range in {
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}

		cmd, args := strings.ToLower(parts[0]), parts[1:]
		switch cmd {
		case "init":
			d.out <- "ready"

		case "ready":
			d.out <- "readyok"

		case "newgame":
			d.ensureInactive(ctx)
			if err := d.co.Reset(ctx, fen.Initial); err != nil {
				logw.Errorf(ctx, "newgame reset failed: %v", err)
			}

		case "position":
			d.ensureInactive(ctx)
			d.handlePosition(ctx, args, line)

		case "go":
			d.ensureInactive(ctx)
			d.handleGo(ctx, args)

		case "stop":
			d.co.Stop()

		case "quit":
			d.ensureInactive(ctx)
			return

		case "d":
			d.printBoard(ctx)

		default:
			logw.Warningf(ctx, "Unknown command '%v': %v", cmd, args)
		}
	}
	logw.Infof(ctx, "Input stream closed. Exiting")
}

func (d *Driver) ensureInactive(ctx context.Context) {
	if d.active.CompareAndSwap(true, false) {
		d.co.Stop()
	}
}

// handlePosition implements `position startpos [moves ...]` and `position fen <fen> [moves
// ...]`. An invalid position or move is silently ignored, leaving the current position
// unchanged, per the error taxonomy (bad FEN/invalid move are not fatal).
func (d *Driver) handlePosition(ctx context.Context, args []string, line string) {
	if len(args) == 0 {
		return
	}

	var rest []string
	switch args[0] {
	case "startpos":
		if err := d.co.Reset(ctx, fen.Initial); err != nil {
			logw.Errorf(ctx, "invalid position: %v", line)
			return
		}
		rest = args[1:]

	case "fen":
		if len(args) < 7 {
			logw.Errorf(ctx, "invalid fen position: %v", line)
			return
		}
		if err := d.co.Reset(ctx, strings.Join(args[1:7], " ")); err != nil {
			logw.Errorf(ctx, "invalid fen position: %v", line)
			return
		}
		rest = args[7:]

	default:
		logw.Errorf(ctx, "invalid position command: %v", line)
		return
	}

	apply := false
	for _, a := range rest {
		if a == "moves" {
			apply = true
			continue
		}
		if !apply {
			continue
		}
		if err := d.co.Move(ctx, strings.ReplaceAll(a, "=", "")); err != nil {
			logw.Warningf(ctx, "invalid move '%v', ignored: %v", a, err)
		}
	}
}

// handleGo parses `go wtime W btime B winc Wi binc Bi`, computes the think time for the side
// to move, and starts a search that reports "bestmove <uci>" on completion.
func (d *Driver) handleGo(ctx context.Context, args []string) {
	clock := parseClock(args)

	turn := d.co.Board().Turn()
	mytime, myinc := clock.wtime, clock.winc
	if turn == board.Black {
		mytime, myinc = clock.btime, clock.binc
	}

	thinkMS := computeThinkTimeMS(mytime, myinc)

	d.active.Store(true)
	err := d.co.Start(ctx, d.threads.total(), d.threads.AlphaBeta, thinkMS, func(m board.Move) {
		d.active.Store(false)
		if m.IsZero() {
			return
		}
		d.out <- fmt.Sprintf("bestmove %v", strings.ToLower(m.String()))
	})
	if err != nil {
		d.active.Store(false)
		logw.Errorf(ctx, "go failed: %v", err)
	}
}

type clock struct {
	wtime, btime, winc, binc int
}

func parseClock(args []string) clock {
	var c clock
	for i := 0; i+1 < len(args); i += 2 {
		n, err := strconv.Atoi(args[i+1])
		if err != nil {
			continue
		}
		switch args[i] {
		case "wtime":
			c.wtime = n
		case "btime":
			c.btime = n
		case "winc":
			c.winc = n
		case "binc":
			c.binc = n
		}
	}
	return c
}

// computeThinkTimeMS implements the time-budget heuristic: spend the larger of a 15% slice
// of the remaining clock (capped at 50ms) or a 1/40th-of-remaining base plus a
// 75%-of-increment bonus (when the increment is small relative to remaining time), capped at
// 10 seconds. mytime < 0 (fixed-time-per-move modes do not set a clock) falls back to the cap.
func computeThinkTimeMS(mytime, myinc int) int {
	const cap = 10000

	if mytime < 0 {
		return cap
	}

	a := 50.0
	if slice := float64(mytime) * 0.15; slice < a {
		a = slice
	}

	b := float64(mytime) / 40
	if float64(mytime) > 2*float64(myinc) {
		b += float64(myinc) * 0.75
	}

	think := a
	if b > think {
		think = b
	}
	if think > cap {
		think = cap
	}
	if think < 0 {
		think = 0
	}
	return int(think)
}

const (
	files      = "    a   b   c   d   e   f   g   h"
	horizontal = "  ---------------------------------"
	vertical   = " | "
)

// printBoard implements the `d` command: an ASCII board diagram plus FEN and result summary.
func (d *Driver) printBoard(ctx context.Context) {
	b := d.co.Board()
	p := b.Position()

	d.out <- ""
	d.out <- files
	d.out <- horizontal

	var sb strings.Builder
	sb.WriteString("8" + vertical)
	for i := board.ZeroSquare; i < board.NumSquares; i++ {
		if i != 0 && i%8 == 0 {
			d.out <- sb.String()
			d.out <- horizontal

			sb.Reset()
			sb.WriteString((7 - i.Rank()).String())
			sb.WriteString(vertical)
		}

		if color, piece, ok := p.Square(board.NumSquares - i - 1); ok {
			sb.WriteString(printPiece(color, piece))
		} else {
			sb.WriteString(" ")
		}
		sb.WriteString(vertical)
	}
	d.out <- sb.String()
	d.out <- horizontal
	d.out <- files
	d.out <- ""
	d.out <- fmt.Sprintf("fen:    %v", d.co.Position())
	d.out <- fmt.Sprintf("result: %v, hash: 0x%x", b.Result(), b.Hash())
	d.out <- ""

	_ = ctx
}

func printPiece(c board.Color, p board.Piece) string {
	if c == board.White {
		return strings.ToUpper(p.String())
	}
	return strings.ToLower(p.String())
}
