package disk_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/ardanlabs/utxochain/foundation/blockchain/signature"
	"github.com/ardanlabs/utxochain/foundation/blockchain/storage/disk"
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

func TestDisk(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "blocks")

	d, err := disk.New(dir)
	require.NoError(t, err)
	defer d.Close()

	var written []database.BlockData
	for h := range uint64(3) {
		bd := blockData(t, h)
		require.NoError(t, d.Write(bd))
		written = append(written, bd)
	}

	got, err := d.GetBlock(2)
	require.NoError(t, err)
	require.Equal(t, written[2].Hash, got.Hash)

	block, err := database.ToBlock(got)
	require.NoError(t, err)
	require.Equal(t, written[2].Block.Hash(), block.Hash())

	_, err = d.GetBlock(3)
	require.ErrorIs(t, err, database.ErrNotFound)

	var count int
	iter := d.ForEach()
	for bd, err := iter.Next(); !iter.Done(); bd, err = iter.Next() {
		require.NoError(t, err)
		require.Equal(t, uint64(count), bd.Height)
		count++
	}
	require.Equal(t, 3, count)

	require.NoError(t, d.Reset())
	_, err = d.GetBlock(0)
	require.ErrorIs(t, err, database.ErrNotFound)
}

func TestDiskCorrupt(t *testing.T) {
	dir := t.TempDir()

	d, err := disk.New(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "0.block"), []byte{0xff, 0xff}, 0600))

	_, err = d.GetBlock(0)
	require.ErrorIs(t, err, database.ErrData)
}
