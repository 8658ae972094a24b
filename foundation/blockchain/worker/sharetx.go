package worker

import "github.com/ardanlabs/utxochain/foundation/blockchain/database"

// maxTxShareRequests represents the max number of pending tx network share
// requests that can be outstanding before share requests are dropped. If the
// channel does become full, requests for new transactions to be shared will
// not be accepted.
const maxTxShareRequests = 100

// =============================================================================

// shareTxOperations handles sharing new transactions.
func (w *Worker) shareTxOperations() {
	w.evHandler("worker: shareTxOperations: G started")
	defer w.evHandler("worker: shareTxOperations: G completed")

	for {
		select {
		case tx := <-w.txSharing:
			if !w.isShutdown() {
				w.runShareTxOperation(tx)
			}
		case <-w.shut:
			w.evHandler("worker: shareTxOperations: received shut signal")
			return
		}
	}
}

// runShareTxOperation shares a new transaction with the known peers.
func (w *Worker) runShareTxOperation(tx database.Tx) {
	w.evHandler("worker: runShareTxOperation: started: tx[%s]", tx.Hash())
	defer w.evHandler("worker: runShareTxOperation: completed")

	w.state.NetSendTxToPeers(w.ctx, tx)
}
