package badgerdb_test

import (
	"testing"

	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/ardanlabs/utxochain/foundation/blockchain/signature"
	"github.com/ardanlabs/utxochain/foundation/blockchain/storage/badgerdb"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func blockData(t *testing.T, height uint64) database.BlockData {
	t.Helper()

	tx := database.NewCoinbaseTx(database.NewTxOutput(height+1, signature.PublicKey{0x02}))
	b, err := database.NewBlock(signature.Hash(height), uint256.NewInt(1000), height+1, []database.Tx{tx})
	require.NoError(t, err)

	return database.NewBlockData(height, b)
}

func TestBadger(t *testing.T) {
	dir := t.TempDir()

	b, err := badgerdb.New(dir)
	require.NoError(t, err)

	for h := range uint64(4) {
		require.NoError(t, b.Write(blockData(t, h)))
	}

	got, err := b.GetBlock(3)
	require.NoError(t, err)
	require.Equal(t, uint64(3), got.Height)

	_, err = b.GetBlock(4)
	require.ErrorIs(t, err, database.ErrNotFound)

	require.NoError(t, b.Close())

	// Reopen to make sure the blocks were persisted.
	b, err = badgerdb.New(dir)
	require.NoError(t, err)
	defer b.Close()

	var heights []uint64
	iter := b.ForEach()
	for bd, err := iter.Next(); !iter.Done(); bd, err = iter.Next() {
		require.NoError(t, err)
		heights = append(heights, bd.Height)
	}
	require.Equal(t, []uint64{0, 1, 2, 3}, heights)

	require.NoError(t, b.Reset())
	_, err = b.GetBlock(0)
	require.ErrorIs(t, err, database.ErrNotFound)
}
