package state_test

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/ardanlabs/utxochain/foundation/blockchain/genesis"
	"github.com/ardanlabs/utxochain/foundation/blockchain/network"
	"github.com/ardanlabs/utxochain/foundation/blockchain/peer"
	"github.com/ardanlabs/utxochain/foundation/blockchain/signature"
	"github.com/ardanlabs/utxochain/foundation/blockchain/state"
	"github.com/ardanlabs/utxochain/foundation/blockchain/storage/memory"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

const (
	minerECDSA = "8dc79feefd3b86e2f9991def0e5ccd9a5128e104682407b308594bc1032ac7f0"
	userECDSA  = "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"
)

func testGenesis() genesis.Genesis {
	g := genesis.Default()
	g.MinTarget = "0x0fffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff"
	return g
}

func mustKey(t *testing.T, hexKey string) (*ecdsa.PrivateKey, signature.PublicKey) {
	t.Helper()

	pk, err := crypto.HexToECDSA(hexKey)
	require.NoError(t, err)

	return pk, signature.ToPublicKey(pk.PublicKey)
}

// recorder captures the events raised by a node.
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) handle(v string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, fmt.Sprintf(v, args...))
}

func (r *recorder) count(prefix string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int
	for _, e := range r.events {
		if strings.HasPrefix(e, prefix) {
			n++
		}
	}
	return n
}

func newNode(t *testing.T, host string, storage database.Storage, ev state.EventHandler, knownPeers ...string) *state.State {
	t.Helper()

	_, miner := mustKey(t, minerECDSA)

	st, err := state.New(state.Config{
		MinerPublicKey:  miner,
		Host:            host,
		Storage:         storage,
		Genesis:         testGenesis(),
		KnownPeers:      peer.NewPeerSet(knownPeers...),
		Client:          network.NewClient(5 * time.Second),
		MinerGoroutines: 2,
		MiningSteps:     1_000,
		EvHandler:       ev,
	})
	require.NoError(t, err)

	return st
}

// fundUser mines a block moving part of the genesis reward to the user key,
// mining the genesis block first when the node has none. It returns the output
// the user owns.
func fundUser(t *testing.T, st *state.State) database.TxOutput {
	t.Helper()

	minerKey, miner := mustKey(t, minerECDSA)
	_, user := mustKey(t, userECDSA)

	if st.RetrieveHeight() == 0 {
		_, err := st.MineNewBlock(context.Background())
		require.NoError(t, err)
	}

	owned := st.QueryUTXOs(miner).Entries()
	require.Len(t, owned, 1)

	gen := st.RetrieveGenesis()
	out := database.NewTxOutput(gen.BlockReward(0)/2, user)
	change := database.NewTxOutput(gen.BlockReward(0)/2-100, miner)

	in, err := database.NewTxInput(owned[0].Output.Hash(), minerKey)
	require.NoError(t, err)

	require.NoError(t, st.SubmitTransaction(database.NewTx([]database.TxInput{in}, []database.TxOutput{out, change})))

	_, err = st.MineNewBlock(context.Background())
	require.NoError(t, err)

	return out
}

// =============================================================================

func TestMineNewBlock(t *testing.T) {
	var rec recorder
	st := newNode(t, "127.0.0.1:0", memory.New(), rec.handle)

	_, err := st.MineNewBlock(context.Background())
	require.NoError(t, err, "the genesis block needs no transactions")
	require.EqualValues(t, 1, st.RetrieveHeight())

	_, err = st.MineNewBlock(context.Background())
	require.ErrorIs(t, err, state.ErrNoTransactions)

	out := fundUser(t, st)
	require.EqualValues(t, 2, st.RetrieveHeight())
	require.Zero(t, st.QueryMempoolLength())

	_, user := mustKey(t, userECDSA)
	require.Equal(t, out.Value, st.QueryUTXOs(user).Balance())

	// Fees go to the miner on top of the reward.
	_, miner := mustKey(t, minerECDSA)
	gen := st.RetrieveGenesis()
	want := gen.BlockReward(0)/2 - 100 + gen.BlockReward(1) + 100
	require.Equal(t, want, st.QueryUTXOs(miner).Balance())

	require.Equal(t, 2, rec.count("explorer: block:"))
}

func TestMineNewBlockCancel(t *testing.T) {
	g := testGenesis()
	g.MinTarget = "0x1"

	_, miner := mustKey(t, minerECDSA)
	st, err := state.New(state.Config{
		MinerPublicKey: miner,
		Storage:        memory.New(),
		Genesis:        g,
		MiningSteps:    100,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = st.MineNewBlock(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Zero(t, st.RetrieveHeight())
}

func TestSubmitTransactionRejected(t *testing.T) {
	st := newNode(t, "127.0.0.1:0", memory.New(), nil)
	out := fundUser(t, st)

	userKey, user := mustKey(t, userECDSA)
	_, miner := mustKey(t, minerECDSA)

	in, err := database.NewTxInput(out.Hash(), userKey)
	require.NoError(t, err)

	tooMuch := database.NewTx([]database.TxInput{in}, []database.TxOutput{database.NewTxOutput(out.Value+1, miner)})
	require.ErrorIs(t, st.SubmitTransaction(tooMuch), database.ErrInvalidTransaction)

	// Signed by the wrong key.
	minerKey, _ := mustKey(t, minerECDSA)
	in, err = database.NewTxInput(out.Hash(), minerKey)
	require.NoError(t, err)

	stolen := database.NewTx([]database.TxInput{in}, []database.TxOutput{database.NewTxOutput(out.Value, miner)})
	require.ErrorIs(t, st.SubmitTransaction(stolen), database.ErrInvalidTransactionInput)

	require.Zero(t, st.QueryMempoolLength())
	require.Equal(t, out.Value, st.QueryUTXOs(user).Balance())
}

func TestReplay(t *testing.T) {
	storage := memory.New()

	st := newNode(t, "127.0.0.1:0", storage, nil)
	fundUser(t, st)

	_, miner := mustKey(t, minerECDSA)
	want := st.QueryUTXOs(miner)
	latest, ok := st.RetrieveLatestBlock()
	require.True(t, ok)

	st2 := newNode(t, "127.0.0.1:0", storage, nil)
	require.EqualValues(t, 2, st2.RetrieveHeight())

	latest2, ok := st2.RetrieveLatestBlock()
	require.True(t, ok)
	require.Equal(t, latest.Hash(), latest2.Hash())
	require.Equal(t, want, st2.QueryUTXOs(miner))

	_, user := mustKey(t, userECDSA)
	require.Equal(t, st.QueryUTXOs(user), st2.QueryUTXOs(user))

	blocks, err := st2.QueryBlocksByHeight(0, state.QueryLatest)
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	require.Equal(t, latest.Hash(), blocks[1].Hash())

	require.NoError(t, st2.Truncate())
	require.Zero(t, st2.RetrieveHeight())

	_, err = storage.GetBlock(0)
	require.ErrorIs(t, err, database.ErrNotFound)
}

func TestHandleMessage(t *testing.T) {
	st := newNode(t, "127.0.0.1:9000", memory.New(), nil, "127.0.0.1:9001")
	out := fundUser(t, st)

	ctx := context.Background()
	userKey, user := mustKey(t, userECDSA)
	_, miner := mustKey(t, minerECDSA)

	t.Run("fetchutxos", func(t *testing.T) {
		resp, err := st.HandleMessage(ctx, network.FetchUTXOs(user))
		require.NoError(t, err)
		require.Equal(t, network.KindUTXOs, resp.Kind)
		require.Len(t, resp.UTXOs, 1)
		require.Equal(t, out, resp.UTXOs[0].Output)
	})

	t.Run("difference", func(t *testing.T) {
		resp, err := st.HandleMessage(ctx, network.AskDifference(0))
		require.NoError(t, err)
		require.EqualValues(t, 2, resp.Difference)

		resp, err = st.HandleMessage(ctx, network.AskDifference(5))
		require.NoError(t, err)
		require.EqualValues(t, -3, resp.Difference)
	})

	t.Run("fetchblock", func(t *testing.T) {
		resp, err := st.HandleMessage(ctx, network.FetchBlock(1))
		require.NoError(t, err)
		require.Equal(t, network.KindNewBlock, resp.Kind)

		latest, _ := st.RetrieveLatestBlock()
		require.Equal(t, latest.Hash(), resp.Block.Hash())

		_, err = st.HandleMessage(ctx, network.FetchBlock(10))
		require.ErrorIs(t, err, database.ErrNotFound)
	})

	t.Run("discovernodes", func(t *testing.T) {
		resp, err := st.HandleMessage(ctx, network.DiscoverNodes())
		require.NoError(t, err)
		require.Equal(t, []string{"127.0.0.1:9001"}, resp.Nodes)
	})

	t.Run("notarequest", func(t *testing.T) {
		_, err := st.HandleMessage(ctx, network.Difference(1))
		require.ErrorIs(t, err, network.ErrMessage)
	})

	t.Run("transaction", func(t *testing.T) {
		in, err := database.NewTxInput(out.Hash(), userKey)
		require.NoError(t, err)
		tx := database.NewTx([]database.TxInput{in}, []database.TxOutput{database.NewTxOutput(out.Value-5, miner)})

		resp, err := st.HandleMessage(ctx, network.NewTransaction(tx))
		require.NoError(t, err)
		require.Nil(t, resp)
		require.Equal(t, 1, st.QueryMempoolLength())

		// Resubmitting replaces the pending copy.
		_, err = st.HandleMessage(ctx, network.SubmitTransaction(tx))
		require.NoError(t, err)
		require.Equal(t, 1, st.QueryMempoolLength())
	})

	t.Run("template", func(t *testing.T) {
		resp, err := st.HandleMessage(ctx, network.FetchTemplate(user))
		require.NoError(t, err)
		require.Equal(t, network.KindTemplate, resp.Kind)

		tmpl := *resp.Block
		require.Len(t, tmpl.Trans, 2)

		resp, err = st.HandleMessage(ctx, network.ValidateTemplate(tmpl))
		require.NoError(t, err)
		require.True(t, resp.Valid)

		bad := tmpl
		bad.Header.TimeStamp = 0
		resp, err = st.HandleMessage(ctx, network.ValidateTemplate(bad))
		require.NoError(t, err)
		require.False(t, resp.Valid)

		block, err := database.POW(ctx, database.POWArgs{Block: tmpl, Goroutines: 2})
		require.NoError(t, err)

		// The known peer is not listening so the broadcast only warns.
		resp, err = st.HandleMessage(ctx, network.SubmitTemplate(block))
		require.NoError(t, err)
		require.Nil(t, resp)

		require.EqualValues(t, 3, st.RetrieveHeight())
		require.Zero(t, st.QueryMempoolLength())
		require.Equal(t, st.RetrieveGenesis().BlockReward(2)+5, st.QueryUTXOs(user).Balance())

		_, err = st.HandleMessage(ctx, network.NewBlock(block))
		require.ErrorIs(t, err, database.ErrInvalidBlock, "the block is already in the chain")
	})
}

func TestSync(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	host := ln.Addr().String()
	src := newNode(t, host, memory.New(), nil)
	fundUser(t, src)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- network.Serve(ctx, ln, src.HandleMessage, nil)
	}()

	dst := newNode(t, "127.0.0.1:0", memory.New(), nil, host)

	diff, err := dst.NetRequestPeerDifference(ctx, peer.New(host))
	require.NoError(t, err)
	require.EqualValues(t, 2, diff)

	require.NoError(t, dst.NetRequestPeerBlocks(ctx, peer.New(host)))
	require.EqualValues(t, 2, dst.RetrieveHeight())

	want, _ := src.RetrieveLatestBlock()
	got, _ := dst.RetrieveLatestBlock()
	require.Equal(t, want.Hash(), got.Hash())

	_, user := mustKey(t, userECDSA)
	require.Equal(t, src.QueryUTXOs(user), dst.QueryUTXOs(user))

	// A second pass has nothing to fetch.
	require.NoError(t, dst.NetRequestPeerBlocks(ctx, peer.New(host)))
	require.EqualValues(t, 2, dst.RetrieveHeight())

	nodes, err := dst.NetRequestPeerNodes(ctx, peer.New(host))
	require.NoError(t, err)
	require.Empty(t, nodes)

	cancel()
	<-done
}
