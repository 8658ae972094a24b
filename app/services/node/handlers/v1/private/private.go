// Package private maintains the group of handlers for node administration.
package private

import (
	"context"
	"net/http"

	"github.com/ardanlabs/utxochain/business/web/errs"
	"github.com/ardanlabs/utxochain/foundation/blockchain/peer"
	"github.com/ardanlabs/utxochain/foundation/blockchain/state"
	"github.com/ardanlabs/utxochain/foundation/web"
	"go.uber.org/zap"
)

// Handlers manages the set of node administration endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
}

// Peers returns the hosts this node shares blocks and transactions with.
func (h Handlers) Peers(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.RetrieveKnownPeers(), http.StatusOK)
}

// SubmitPeer adds a host to the known peers.
func (h Handlers) SubmitPeer(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var req struct {
		Host string `json:"host" validate:"required,hostname_port"`
	}
	if err := web.Decode(r, &req); err != nil {
		return err
	}

	if !h.State.AddKnownPeer(peer.New(req.Host)) {
		h.Log.Infow("add peer", "traceid", v.TraceID, "host", req.Host, "status", "not added")
		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}

	h.Log.Infow("add peer", "traceid", v.TraceID, "host", req.Host)

	// Pick up any blocks the new peer has.
	if h.State.Worker != nil {
		h.State.Worker.SignalSync()
	}

	return web.Respond(ctx, w, peer.New(req.Host), http.StatusCreated)
}

// Truncate removes every block from the node. The node will sync the chain
// again from its peers.
func (h Handlers) Truncate(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	h.Log.Infow("truncate", "traceid", v.TraceID, "height", h.State.RetrieveHeight())

	if err := h.State.Truncate(); err != nil {
		return errs.FromLedger(err)
	}

	if h.State.Worker != nil {
		h.State.Worker.SignalSync()
	}

	return web.Respond(ctx, w, nil, http.StatusNoContent)
}
