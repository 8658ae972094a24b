package worker

import "github.com/ardanlabs/utxochain/foundation/blockchain/peer"

// peerOperations keeps this node in step with its peers.
func (w *Worker) peerOperations() {
	w.evHandler("worker: peerOperations: G started")
	defer w.evHandler("worker: peerOperations: G completed")

	for {
		select {
		case <-w.ticker.C:
			if !w.isShutdown() {
				w.runPeersOperation()
				w.Sync()
			}
		case <-w.syncing:
			if !w.isShutdown() {
				w.Sync()
			}
		case <-w.shut:
			w.evHandler("worker: peerOperations: received shut signal")
			return
		}
	}
}

// runPeersOperation learns the nodes known by each peer.
func (w *Worker) runPeersOperation() {
	w.evHandler("worker: runPeersOperation: started")
	defer w.evHandler("worker: runPeersOperation: completed")

	for _, pr := range w.state.RetrieveKnownPeers() {
		nodes, err := w.state.NetRequestPeerNodes(w.ctx, pr)
		if err != nil {
			w.evHandler("worker: runPeersOperation: requestPeerNodes: %s: ERROR: %s", pr.Host, err)
			continue
		}

		// Add new peers to this nodes list.
		w.addNewPeers(nodes)
	}
}

// addNewPeers takes the list of known peers and makes sure they are included
// in the nodes list of know peers.
func (w *Worker) addNewPeers(knownPeers []peer.Peer) {
	for _, pr := range knownPeers {
		if w.state.AddKnownPeer(pr) {
			w.evHandler("worker: addNewPeers: adding peer-node %s", pr)
		}
	}
}
