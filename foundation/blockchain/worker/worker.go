// Package worker runs the background jobs of a node: mining, sharing new
// transactions, learning peers and catching up with longer chains.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/ardanlabs/utxochain/foundation/blockchain/state"
)

// peerUpdateInterval is how often peers are asked for their peers and the
// node checks whether it fell behind.
const peerUpdateInterval = time.Minute

// =============================================================================

// Worker owns the goroutines that act on the node state. It implements the
// state.Worker interface so the state can hand it work.
type Worker struct {
	state     *state.State
	evHandler state.EventHandler
	wg        sync.WaitGroup

	// ctx bounds every network call and search started by the worker.
	ctx    context.Context
	cancel context.CancelFunc

	ticker       *time.Ticker
	shut         chan struct{}
	startMining  chan bool
	cancelMining chan chan struct{}
	syncing      chan bool
	txSharing    chan database.Tx
}

// Run syncs the node with its peers, registers the worker with the state and
// starts the background goroutines.
func Run(st *state.State, evHandler state.EventHandler) *Worker {
	return run(st, evHandler, peerUpdateInterval)
}

func run(st *state.State, evHandler state.EventHandler, interval time.Duration) *Worker {
	if evHandler == nil {
		evHandler = func(string, ...any) {}
	}

	ctx, cancel := context.WithCancel(context.Background())

	w := Worker{
		state:        st,
		evHandler:    evHandler,
		ctx:          ctx,
		cancel:       cancel,
		ticker:       time.NewTicker(interval),
		shut:         make(chan struct{}),
		startMining:  make(chan bool, 1),
		cancelMining: make(chan chan struct{}, 1),
		syncing:      make(chan bool, 1),
		txSharing:    make(chan database.Tx, maxTxShareRequests),
	}

	st.Worker = &w

	// Catch up before mining so the first block builds on the best tip known.
	w.Sync()

	for _, op := range []func(){w.peerOperations, w.miningOperations, w.shareTxOperations} {
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			op()
		}()
	}

	// An empty chain needs its genesis block and a restarted node may already
	// hold pending transactions.
	w.SignalStartMining()

	return &w
}

// =============================================================================

// Shutdown stops any search in flight and waits for the goroutines to return.
func (w *Worker) Shutdown() {
	w.evHandler("worker: shutdown: started")
	defer w.evHandler("worker: shutdown: completed")

	w.ticker.Stop()

	w.evHandler("worker: shutdown: cancel mining")
	done := w.SignalCancelMining()
	w.cancel()

	w.evHandler("worker: shutdown: terminate goroutines")
	close(w.shut)
	done()
	w.wg.Wait()
}

// SignalStartMining asks for a block to be mined. A signal already pending
// covers this one.
func (w *Worker) SignalStartMining() {
	if !w.state.IsMiningAllowed() {
		w.evHandler("worker: SignalStartMining: mining turned off")
		return
	}

	select {
	case w.startMining <- true:
		w.evHandler("worker: SignalStartMining: mining signaled")
	default:
	}
}

// SignalCancelMining stops the search in flight. The mining G stays parked
// until the returned function is called so the caller can finish changing
// the state first.
func (w *Worker) SignalCancelMining() (done func()) {
	wait := make(chan struct{})

	select {
	case w.cancelMining <- wait:
		w.evHandler("worker: SignalCancelMining: MINING: CANCEL: signaled")
	default:
	}

	return func() { close(wait) }
}

// SignalShareTx queues the transaction to be sent to the peers. It is
// dropped when the queue is full.
func (w *Worker) SignalShareTx(tx database.Tx) {
	select {
	case w.txSharing <- tx:
		w.evHandler("worker: SignalShareTx: share Tx signaled")
	default:
		w.evHandler("worker: SignalShareTx: queue full, transaction won't be shared")
	}
}

// SignalSync asks the peer G to catch up with the known peers.
func (w *Worker) SignalSync() {
	select {
	case w.syncing <- true:
		w.evHandler("worker: SignalSync: sync signaled")
	default:
	}
}

// =============================================================================

func (w *Worker) isShutdown() bool {
	select {
	case <-w.shut:
		return true
	default:
		return false
	}
}
