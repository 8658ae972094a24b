package worker

import (
	"context"
	"errors"
	"time"

	"github.com/ardanlabs/utxochain/foundation/blockchain/state"
	"golang.org/x/sync/errgroup"
)

// miningOperations mines one block for every start signal received.
func (w *Worker) miningOperations() {
	w.evHandler("worker: miningOperations: G started")
	defer w.evHandler("worker: miningOperations: G completed")

	for {
		select {
		case <-w.startMining:
			if !w.isShutdown() {
				w.mineOnce()
			}

		case <-w.shut:
			w.evHandler("worker: miningOperations: received shut signal")
			return
		}
	}
}

// mineOnce searches for the next block and proposes it to the peers. A
// cancel signal stops the search and holds this G until the canceller calls
// its done function.
func (w *Worker) mineOnce() {
	w.evHandler("worker: mineOnce: MINING: started")
	defer w.evHandler("worker: mineOnce: MINING: completed")

	if !w.state.IsMiningAllowed() {
		w.evHandler("worker: mineOnce: MINING: turned off")
		return
	}

	// Above the genesis block there is only something to mine when
	// transactions are waiting.
	if pending := w.state.QueryMempoolLength(); w.state.RetrieveHeight() > 0 && pending == 0 {
		w.evHandler("worker: mineOnce: MINING: mempool empty")
		return
	}

	// A cancel sent while no search was running is stale.
	select {
	case <-w.cancelMining:
		w.evHandler("worker: mineOnce: MINING: dropped stale cancel")
	default:
	}

	ctx, cancel := context.WithCancel(w.ctx)
	defer cancel()

	var release chan struct{}
	var g errgroup.Group

	g.Go(func() error {
		defer cancel()

		select {
		case release = <-w.cancelMining:
			w.evHandler("worker: mineOnce: MINING: CANCEL: requested")
		case <-ctx.Done():
		}
		return nil
	})

	g.Go(func() error {
		defer cancel()
		return w.mine(ctx)
	})

	err := g.Wait()
	switch {
	case err == nil:
	case errors.Is(err, state.ErrNoTransactions):
		w.evHandler("worker: mineOnce: MINING: WARNING: no transactions in mempool")
	case ctx.Err() != nil:
		w.evHandler("worker: mineOnce: MINING: CANCEL: complete")
	default:
		w.evHandler("worker: mineOnce: MINING: ERROR: %s", err)
	}

	if release != nil {
		w.evHandler("worker: mineOnce: MINING: waiting for release")
		<-release
	}

	if pending := w.state.QueryMempoolLength(); pending > 0 && !w.isShutdown() {
		w.evHandler("worker: mineOnce: MINING: more work: Txs[%d]", pending)
		w.SignalStartMining()
	}
}

// mine solves and applies the next block, then sends it to the known peers.
func (w *Worker) mine(ctx context.Context) error {
	start := time.Now()
	block, err := w.state.MineNewBlock(ctx)
	w.evHandler("worker: mine: MINING: duration[%v]", time.Since(start))

	if err != nil {
		return err
	}

	if err := w.state.NetSendBlockToPeers(w.ctx, block); err != nil {
		w.evHandler("worker: mine: MINING: send block: WARNING: %s", err)
	}

	return nil
}
