package database

import (
	"context"
	"math"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultMiningSteps is the number of nonces a miner tries between checks for
// cancellation.
const DefaultMiningSteps = 50_000

// POWArgs represents the set of arguments required to run POW.
type POWArgs struct {
	Block      Block
	Goroutines int
	Steps      uint64
	EvHandler  func(v string, args ...any)
}

// POW searches for a nonce that solves the block header. The nonce space is
// split between the goroutines and each one mines a private copy of the
// header in bounded steps so the search stops shortly after the context is
// cancelled or another goroutine finds a solution.
func POW(ctx context.Context, args POWArgs) (Block, error) {
	ev := func(v string, a ...any) {
		if args.EvHandler != nil {
			args.EvHandler(v, a...)
		}
	}

	goroutines := max(args.Goroutines, 1)
	steps := args.Steps
	if steps == 0 {
		steps = DefaultMiningSteps
	}

	ev("database: POW: MINING: started: goroutines[%d]: steps[%d]", goroutines, steps)
	defer ev("database: POW: MINING: completed")

	mctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(mctx)

	solved := make(chan BlockHeader, goroutines)
	span := math.MaxUint64 / uint64(goroutines)
	start := time.Now()

	for i := range goroutines {
		header := args.Block.Header
		header.Nonce += uint64(i) * span

		g.Go(func() error {
			for {
				if err := gctx.Err(); err != nil {
					return err
				}

				if header.Mine(steps) {
					solved <- header
					cancel()
					return nil
				}
			}
		})
	}

	g.Wait()

	select {
	case header := <-solved:
		block := args.Block
		block.Header = header
		ev("database: POW: MINING: SOLVED: nonce[%d]: hash[%s]: duration[%v]", header.Nonce, header.Hash(), time.Since(start))
		return block, nil
	default:
	}

	// Without a solution the only way out is a cancelled caller.
	err := ctx.Err()
	if err == nil {
		err = context.Canceled
	}

	ev("database: POW: MINING: CANCELLED: %s", err)
	return Block{}, err
}
