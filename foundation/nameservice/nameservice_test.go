package nameservice_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ardanlabs/utxochain/foundation/blockchain/signature"
	"github.com/ardanlabs/utxochain/foundation/nameservice"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	dir := t.TempDir()

	miner, err := signature.GenerateKey()
	require.NoError(t, err)
	require.NoError(t, signature.SavePrivateKey(filepath.Join(dir, "miner1.ecdsa"), miner))

	other, err := signature.GenerateKey()
	require.NoError(t, err)
	otherPK := signature.ToPublicKey(other.PublicKey)
	require.NoError(t, signature.SavePublicKey(filepath.Join(dir, "kennedy.pub"), otherPK))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "README"), []byte("notes"), 0644))

	ns, err := nameservice.New(dir)
	require.NoError(t, err)

	minerPK := signature.ToPublicKey(miner.PublicKey)
	require.Equal(t, "miner1", ns.Lookup(minerPK))
	require.Equal(t, "kennedy", ns.Lookup(otherPK))
	require.Equal(t, []string{"kennedy", "miner1"}, ns.Names())

	pk, ok := ns.PublicKey("kennedy")
	require.True(t, ok)
	require.True(t, pk.Equal(otherPK))

	unknown, err := signature.GenerateKey()
	require.NoError(t, err)
	unknownPK := signature.ToPublicKey(unknown.PublicKey)
	require.Equal(t, unknownPK.Hex(), ns.Lookup(unknownPK))

	require.Len(t, ns.Copy(), 2)
}

func TestMalformedKey(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.pub"), []byte("zz"), 0644))

	_, err := nameservice.New(dir)
	require.Error(t, err)
}
