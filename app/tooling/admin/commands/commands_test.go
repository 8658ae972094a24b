package commands_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/ardanlabs/utxochain/app/tooling/admin/commands"
	"github.com/ardanlabs/utxochain/foundation/blockchain/chain"
	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/ardanlabs/utxochain/foundation/blockchain/genesis"
	"github.com/ardanlabs/utxochain/foundation/blockchain/signature"
	"github.com/ardanlabs/utxochain/foundation/blockchain/storage/memory"
	"github.com/ardanlabs/utxochain/foundation/nameservice"
	"github.com/stretchr/testify/require"
)

func testGenesis() genesis.Genesis {
	g := genesis.Default()
	g.MinTarget = "0x0fffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff"
	return g
}

// mineChain mines the number of blocks paying the public key and writes them
// to the returned storage.
func mineChain(t *testing.T, gen genesis.Genesis, pk signature.PublicKey, blocks int) *memory.Memory {
	t.Helper()

	bc := chain.New(gen, nil)
	store := memory.New()

	for i := range blocks {
		tmpl, err := bc.BlockTemplate(pk)
		require.NoError(t, err)

		block, err := database.POW(context.Background(), database.POWArgs{Block: tmpl, Goroutines: 1})
		require.NoError(t, err)

		require.NoError(t, bc.AddBlock(block))
		require.NoError(t, store.Write(database.NewBlockData(uint64(i), block)))
	}

	return store
}

func TestReplayAndReport(t *testing.T) {
	gen := testGenesis()

	key, err := signature.GenerateKey()
	require.NoError(t, err)
	pk := signature.ToPublicKey(key.PublicKey)

	store := mineChain(t, gen, pk, 3)

	bc, err := commands.Replay(store, gen)
	require.NoError(t, err)
	require.Equal(t, uint64(3), bc.Height())

	ns, err := nameservice.New(t.TempDir())
	require.NoError(t, err)

	t.Run("balances", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, commands.Balances(&buf, bc, ns, ""))

		want := 3 * gen.BlockReward(0)
		require.Contains(t, buf.String(), "Account: "+pk.Hex())
		require.Contains(t, buf.String(), "Balance: "+genesis.FormatCoins(want))
		require.Contains(t, buf.String(), "UTXOs: 3")
	})

	t.Run("unknown account", func(t *testing.T) {
		var buf bytes.Buffer
		require.Error(t, commands.Balances(&buf, bc, ns, "nobody"))
	})

	t.Run("blocks", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, commands.Blocks(&buf, bc, 1, bc.Height()))

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Len(t, lines, 2)
	})

	t.Run("blocks bad range", func(t *testing.T) {
		var buf bytes.Buffer
		require.Error(t, commands.Blocks(&buf, bc, 2, 1))
	})
}

func TestReplayRejectsTamperedBlock(t *testing.T) {
	gen := testGenesis()

	key, err := signature.GenerateKey()
	require.NoError(t, err)

	store := mineChain(t, gen, signature.ToPublicKey(key.PublicKey), 2)

	first, err := store.GetBlock(0)
	require.NoError(t, err)

	second, err := store.GetBlock(1)
	require.NoError(t, err)

	// The header still carries the old merkle root.
	second.Block.Trans[0].Outputs[0].Value++
	second.Hash = second.Block.Hash()

	tampered := memory.New()
	require.NoError(t, tampered.Write(first))
	require.NoError(t, tampered.Write(second))

	_, err = commands.Replay(tampered, gen)
	require.Error(t, err)
}
