package worker

// Sync fetches the blocks the known peers hold beyond this node's height.
func (w *Worker) Sync() {
	w.evHandler("worker: sync: started")
	defer w.evHandler("worker: sync: completed")

	for _, pr := range w.state.RetrieveKnownPeers() {
		diff, err := w.state.NetRequestPeerDifference(w.ctx, pr)
		if err != nil {
			w.evHandler("worker: sync: requestPeerDifference: %s: ERROR: %s", pr.Host, err)
			continue
		}

		// If this peer has blocks we don't have, we need to add them.
		if diff <= 0 {
			continue
		}

		w.evHandler("worker: sync: requestPeerBlocks: %s: difference[%d]", pr.Host, diff)

		if err := w.state.NetRequestPeerBlocks(w.ctx, pr); err != nil {
			w.evHandler("worker: sync: requestPeerBlocks: %s: ERROR %s", pr.Host, err)
		}
	}
}
