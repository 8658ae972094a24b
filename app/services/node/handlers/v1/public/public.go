// Package public maintains the group of handlers for public access.
package public

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ardanlabs/utxochain/business/web/errs"
	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/ardanlabs/utxochain/foundation/blockchain/genesis"
	"github.com/ardanlabs/utxochain/foundation/blockchain/signature"
	"github.com/ardanlabs/utxochain/foundation/blockchain/state"
	"github.com/ardanlabs/utxochain/foundation/events"
	"github.com/ardanlabs/utxochain/foundation/nameservice"
	"github.com/ardanlabs/utxochain/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handlers manages the set of node endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
	NS    *nameservice.NameService
	WS    websocket.Upgrader
	Evts  *events.Events
}

// Events handles a web socket to provide events to a client. The topics
// query parameter is a comma separated list of event prefixes to receive.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	var topics []string
	if t := r.URL.Query().Get("topics"); t != "" {
		topics = strings.Split(t, ",")
	}

	ch := h.Evts.Acquire(v.TraceID, topics...)
	defer h.Evts.Release(v.TraceID)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, wd := <-ch:
			if !wd {
				return nil
			}

			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return err
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}

// Status returns the current status of the node.
func (h Handlers) Status(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var latestHash signature.Digest
	if latest, ok := h.State.RetrieveLatestBlock(); ok {
		latestHash = latest.Hash()
	}

	var peers []string
	for _, pr := range h.State.RetrieveKnownPeers() {
		peers = append(peers, pr.Host)
	}

	resp := status{
		Host:        h.State.RetrieveHost(),
		Height:      h.State.RetrieveHeight(),
		LatestBlock: latestHash,
		Target:      h.State.RetrieveTarget().Hex(),
		Mempool:     h.State.QueryMempoolLength(),
		Peers:       peers,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Genesis returns the consensus values for this chain.
func (h Handlers) Genesis(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	gen := h.State.RetrieveGenesis()
	return web.Respond(ctx, w, gen, http.StatusOK)
}

// BlocksByHeight returns the blocks in the inclusive height range. Either
// bound can be "latest".
func (h Handlers) BlocksByHeight(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	from, err := parseHeight(web.Param(r, "from"))
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	to, err := parseHeight(web.Param(r, "to"))
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	if from != state.QueryLatest && to != state.QueryLatest && from > to {
		return errs.NewTrusted(errors.New("from greater than to"), http.StatusBadRequest)
	}

	blocks, err := h.State.QueryBlocksByHeight(from, to)
	if err != nil {
		return errs.FromLedger(err)
	}

	if len(blocks) == 0 {
		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}

	first := from
	if first == state.QueryLatest {
		first = h.State.RetrieveHeight() - uint64(len(blocks))
	}

	data := make([]database.BlockData, len(blocks))
	for i, block := range blocks {
		data[i] = database.NewBlockData(first+uint64(i), block)
	}

	return web.Respond(ctx, w, data, http.StatusOK)
}

// Mempool returns the set of pending transactions, highest fee first.
func (h Handlers) Mempool(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	entries := h.State.RetrieveMempool()

	txs := make([]mempoolTx, len(entries))
	for i, e := range entries {
		outs := make([]txOutput, len(e.Tx.Outputs))
		for j, out := range e.Tx.Outputs {
			outs[j] = txOutput{
				To:    h.NS.Lookup(out.PublicKey),
				Value: out.Value,
			}
		}

		txs[i] = mempoolTx{
			Hash:      e.Hash,
			TimeStamp: e.TimeStamp,
			Fee:       e.Fee,
			Inputs:    len(e.Tx.Inputs),
			Outputs:   outs,
		}
	}

	return web.Respond(ctx, w, txs, http.StatusOK)
}

// UTXOs returns the unspent outputs owned by the account. The account can be
// a name known to the name service or a public key in hex.
func (h Handlers) UTXOs(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	account := web.Param(r, "account")

	pk, ok := h.NS.PublicKey(account)
	if !ok {
		var err error
		if pk, err = signature.ToPublicKeyHex(account); err != nil {
			return errs.NewTrusted(fmt.Errorf("unknown account %q", account), http.StatusBadRequest)
		}
	}

	set := h.State.QueryUTXOs(pk)

	list := make([]utxo, 0, len(set))
	for _, e := range set.Entries() {
		list = append(list, utxo{
			Hash:     e.Output.Hash(),
			Value:    e.Output.Value,
			Coins:    genesis.FormatCoins(e.Output.Value),
			Reserved: e.Reserved,
		})
	}

	balance := set.Balance()
	resp := utxos{
		Name:    h.NS.Lookup(pk),
		Account: pk.Hex(),
		Balance: balance,
		Coins:   genesis.FormatCoins(balance),
		UTXOs:   list,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// SubmitTransaction adds a signed wallet transaction to the mempool.
func (h Handlers) SubmitTransaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var req submitTx
	if err := web.Decode(r, &req); err != nil {
		return err
	}

	tx := database.NewTx(req.Inputs, req.Outputs)

	h.Log.Infow("submit tran", "traceid", v.TraceID, "tx", tx.Hash(), "inputs", len(tx.Inputs), "outputs", len(tx.Outputs))
	if err := h.State.SubmitTransaction(tx); err != nil {
		return errs.FromLedger(err)
	}

	resp := struct {
		Status string           `json:"status"`
		Hash   signature.Digest `json:"hash"`
	}{
		Status: "transaction added to mempool",
		Hash:   tx.Hash(),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// =============================================================================

func parseHeight(s string) (uint64, error) {
	if s == "" || s == "latest" {
		return state.QueryLatest, nil
	}

	h, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid height %q", s)
	}

	return h, nil
}
