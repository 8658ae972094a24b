package merkle_test

import (
	"crypto/sha256"
	"crypto/sha512"
	"errors"
	"hash"
	"testing"

	"github.com/ardanlabs/utxochain/foundation/blockchain/merkle"
	"github.com/ardanlabs/utxochain/foundation/blockchain/signature"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

// Data represents a simple value stored in the tree.
type Data struct {
	x string
}

// Hash hashes the value using sha256.
func (d Data) Hash() signature.Digest {
	return sha256.Sum256([]byte(d.x))
}

// Equals tests for equality of two pieces of data.
func (d Data) Equals(other Data) bool {
	return d.x == other.x
}

func pair(a, b signature.Digest) signature.Digest {
	buf := make([]byte, 0, 64)
	buf = append(buf, a[:]...)
	buf = append(buf, b[:]...)
	return sha256.Sum256(buf)
}

func values(xs ...string) []Data {
	data := make([]Data, len(xs))
	for i, x := range xs {
		data[i] = Data{x: x}
	}
	return data
}

// =============================================================================

func Test_MerkleRoot(t *testing.T) {
	a, b, c, d, e := Data{"a"}.Hash(), Data{"b"}.Hash(), Data{"c"}.Hash(), Data{"d"}.Hash(), Data{"e"}.Hash()

	table := []struct {
		name string
		data []Data
		exp  signature.Digest
	}{
		{"one", values("a"), a},
		{"two", values("a", "b"), pair(a, b)},
		{"three", values("a", "b", "c"), pair(pair(a, b), pair(c, c))},
		{"four", values("a", "b", "c", "d"), pair(pair(a, b), pair(c, d))},
		{"five", values("a", "b", "c", "d", "e"), pair(pair(pair(a, b), pair(c, d)), pair(pair(e, e), pair(e, e)))},
	}

	t.Log("Given the need to calculate merkle roots.")
	{
		for testID, tt := range table {
			t.Logf("\tTest %d:\tWhen handling %s value(s).", testID, tt.name)
			{
				tree, err := merkle.NewTree(tt.data)
				if err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to create the tree: %v", failed, testID, err)
				}
				t.Logf("\t%s\tTest %d:\tShould be able to create the tree.", success, testID)

				if tree.MerkleRoot != tt.exp {
					t.Logf("\t\tTest %d:\tgot: %s", testID, tree.MerkleRoot)
					t.Logf("\t\tTest %d:\texp: %s", testID, tt.exp)
					t.Fatalf("\t%s\tTest %d:\tShould get back the right root.", failed, testID)
				}
				t.Logf("\t%s\tTest %d:\tShould get back the right root.", success, testID)

				root, err := merkle.Root(tt.data)
				if err != nil || root != tt.exp {
					t.Fatalf("\t%s\tTest %d:\tShould get the same root from the helper: %v", failed, testID, err)
				}
				t.Logf("\t%s\tTest %d:\tShould get the same root from the helper.", success, testID)
			}
		}
	}
}

func Test_Deterministic(t *testing.T) {
	t.Log("Given the need to have a deterministic root.")
	{
		t.Log("\tWhen building the tree twice and in a different order.")
		{
			r1, _ := merkle.Root(values("a", "b", "c"))
			r2, _ := merkle.Root(values("a", "b", "c"))
			if r1 != r2 {
				t.Fatalf("\t%s\tShould get the same root for the same values.", failed)
			}
			t.Logf("\t%s\tShould get the same root for the same values.", success)

			r3, _ := merkle.Root(values("c", "b", "a"))
			if r1 == r3 {
				t.Fatalf("\t%s\tShould get a different root for a different order.", failed)
			}
			t.Logf("\t%s\tShould get a different root for a different order.", success)
		}
	}
}

func Test_Empty(t *testing.T) {
	if _, err := merkle.NewTree([]Data{}); !errors.Is(err, merkle.ErrEmpty) {
		t.Fatalf("Should get ErrEmpty for an empty list, got %v", err)
	}
}

func Test_HashStrategy(t *testing.T) {
	data := values("a", "b")

	tree, err := merkle.NewTree(data, merkle.WithHashStrategy[Data](func() hash.Hash { return sha512.New512_256() }))
	if err != nil {
		t.Fatalf("Should be able to create the tree: %v", err)
	}

	a, b := data[0].Hash(), data[1].Hash()
	buf := append(append([]byte{}, a[:]...), b[:]...)
	exp := signature.Digest(sha512.Sum512_256(buf))

	if tree.MerkleRoot != exp {
		t.Logf("got: %s", tree.MerkleRoot)
		t.Logf("exp: %s", exp)
		t.Fatalf("Should use the configured hash strategy.")
	}
}

func Test_VerifyTree(t *testing.T) {
	tree, err := merkle.NewTree(values("a", "b", "c", "d", "e"))
	if err != nil {
		t.Fatalf("Should be able to create the tree: %v", err)
	}

	if err := tree.Verify(); err != nil {
		t.Fatalf("Should be able to verify the tree: %v", err)
	}

	tree.Leafs[1].Value = Data{"z"}
	if err := tree.Verify(); err == nil {
		t.Fatalf("Should not verify a tree with a modified leaf.")
	}

	if err := tree.Rebuild(); err != nil {
		t.Fatalf("Should be able to rebuild the tree: %v", err)
	}

	if err := tree.Verify(); err != nil {
		t.Fatalf("Should verify the rebuilt tree: %v", err)
	}
}

func Test_VerifyData(t *testing.T) {
	data := values("a", "b", "c")

	tree, err := merkle.NewTree(data)
	if err != nil {
		t.Fatalf("Should be able to create the tree: %v", err)
	}

	for _, d := range data {
		if err := tree.VerifyData(d); err != nil {
			t.Fatalf("Should be able to verify %q: %v", d.x, err)
		}
	}

	if err := tree.VerifyData(Data{"q"}); err == nil {
		t.Fatalf("Should not verify data that is not in the tree.")
	}
}

func Test_MerklePath(t *testing.T) {
	data := values("a", "b", "c", "d", "e")

	tree, err := merkle.NewTree(data)
	if err != nil {
		t.Fatalf("Should be able to create the tree: %v", err)
	}

	for _, d := range data {
		proof, order, err := tree.Proof(d)
		if err != nil {
			t.Fatalf("Should be able to get a proof for %q: %v", d.x, err)
		}

		h := d.Hash()
		for i := range proof {
			if order[i] == 0 {
				h = pair(proof[i], h)
			} else {
				h = pair(h, proof[i])
			}
		}

		if h != tree.MerkleRoot {
			t.Logf("got: %s", h)
			t.Logf("exp: %s", tree.MerkleRoot)
			t.Fatalf("Should be able to rebuild the root from the proof for %q.", d.x)
		}
	}

	if got := tree.Values(); len(got) != len(data) {
		t.Fatalf("Should get back %d values, got %d", len(data), len(got))
	}
}
