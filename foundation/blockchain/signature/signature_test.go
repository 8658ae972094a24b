package signature_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ardanlabs/utxochain/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

const (
	pkHexKey  = "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"
	pkHexKey2 = "aed31b6b5a5ba4c2e8ed6b2d4a8b8fc5f9f5d6a7d1c4e8e1b0f2a3c4d5e6f708"
)

// =============================================================================

func Test_Signing(t *testing.T) {
	pk, err := crypto.HexToECDSA(pkHexKey)
	if err != nil {
		t.Fatalf("Should be able to generate a private key: %s", err)
	}

	digest := signature.Hash(struct{ Name string }{Name: "Bill"})

	sig, err := signature.Sign(digest, pk)
	if err != nil {
		t.Fatalf("Should be able to sign data: %s", err)
	}

	if len(sig) != crypto.SignatureLength {
		t.Fatalf("Should get a %d byte signature, got %d", crypto.SignatureLength, len(sig))
	}

	pub := signature.ToPublicKey(pk.PublicKey)
	if !signature.Verify(sig, digest, pub) {
		t.Fatalf("Should be able to verify the signature.")
	}

	other := signature.Hash(struct{ Name string }{Name: "Jill"})
	if signature.Verify(sig, other, pub) {
		t.Fatalf("Should not verify the signature against a different digest.")
	}
}

func Test_VerifyWrongKey(t *testing.T) {
	pk1, err := crypto.HexToECDSA(pkHexKey)
	if err != nil {
		t.Fatalf("Should be able to generate a private key: %s", err)
	}

	pk2, err := crypto.HexToECDSA(pkHexKey2)
	if err != nil {
		t.Fatalf("Should be able to generate a private key: %s", err)
	}

	digest := signature.Hash("payload")

	sig, err := signature.Sign(digest, pk2)
	if err != nil {
		t.Fatalf("Should be able to sign data: %s", err)
	}

	if signature.Verify(sig, digest, signature.ToPublicKey(pk1.PublicKey)) {
		t.Fatalf("Should not verify a signature produced by another key.")
	}

	if signature.Verify(sig[:10], digest, signature.ToPublicKey(pk2.PublicKey)) {
		t.Fatalf("Should not verify a truncated signature.")
	}
}

func Test_Hash(t *testing.T) {
	value := struct {
		Name string
	}{
		Name: "Bill",
	}

	h1 := signature.Hash(value)
	if h1.IsZero() {
		t.Fatalf("Should not get back the zero hash.")
	}

	h2 := signature.Hash(value)
	if h1 != h2 {
		t.Logf("got: %s", h2)
		t.Logf("exp: %s", h1)
		t.Fatalf("Should get back the same hash twice.")
	}

	h3 := signature.Hash(struct{ Name string }{Name: "Jill"})
	if h1 == h3 {
		t.Fatalf("Should get a different hash for a different value.")
	}

	func() {
		defer func() {
			if recover() == nil {
				t.Fatalf("Should panic for a value that can't be encoded.")
			}
		}()
		signature.Hash(make(chan int))
	}()
}

func Test_DigestHex(t *testing.T) {
	h := signature.Hash("hello")

	d, err := signature.ToDigest(h.Hex())
	if err != nil {
		t.Fatalf("Should be able to parse the hex digest: %s", err)
	}

	if d != h {
		t.Logf("got: %s", d)
		t.Logf("exp: %s", h)
		t.Fatalf("Should get back the same digest.")
	}

	if _, err := signature.ToDigest("0x1234"); err == nil {
		t.Fatalf("Should not accept a short digest.")
	}
}

func Test_MatchesTarget(t *testing.T) {
	var d signature.Digest
	d[31] = 0x10

	if !d.MatchesTarget(uint256.NewInt(0x11)) {
		t.Fatalf("Should match a target larger than the digest.")
	}

	if d.MatchesTarget(uint256.NewInt(0x10)) {
		t.Fatalf("Should not match a target equal to the digest.")
	}

	d[0] = 0x01
	if d.MatchesTarget(uint256.NewInt(0xffff)) {
		t.Fatalf("Should treat the first byte as the most significant.")
	}
}

func Test_KeyFiles(t *testing.T) {
	dir := t.TempDir()

	pk, err := signature.GenerateKey()
	if err != nil {
		t.Fatalf("Should be able to generate a private key: %s", err)
	}

	privPath := filepath.Join(dir, "key.ecdsa")
	if err := signature.SavePrivateKey(privPath, pk); err != nil {
		t.Fatalf("Should be able to save the private key: %s", err)
	}

	loaded, err := signature.LoadPrivateKey(privPath)
	if err != nil {
		t.Fatalf("Should be able to load the private key: %s", err)
	}

	if !loaded.Equal(pk) {
		t.Fatalf("Should load back the same private key.")
	}

	pub := signature.ToPublicKey(pk.PublicKey)
	pubPath := filepath.Join(dir, "key.pub")
	if err := signature.SavePublicKey(pubPath, pub); err != nil {
		t.Fatalf("Should be able to save the public key: %s", err)
	}

	loadedPub, err := signature.LoadPublicKey(pubPath)
	if err != nil {
		t.Fatalf("Should be able to load the public key: %s", err)
	}

	if !loadedPub.Equal(pub) {
		t.Logf("got: %s", loadedPub)
		t.Logf("exp: %s", pub)
		t.Fatalf("Should load back the same public key.")
	}
}

func Test_KeyFilesMalformed(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "bad.ecdsa")
	if err := os.WriteFile(path, []byte("not a key"), 0600); err != nil {
		t.Fatalf("Should be able to write the file: %s", err)
	}

	if _, err := signature.LoadPrivateKey(path); !errors.Is(err, signature.ErrData) {
		t.Fatalf("Should get ErrData for a malformed private key, got %v", err)
	}

	if _, err := signature.LoadPublicKey(path); !errors.Is(err, signature.ErrData) {
		t.Fatalf("Should get ErrData for a malformed public key, got %v", err)
	}

	if _, err := signature.LoadPrivateKey(filepath.Join(dir, "missing")); err == nil || errors.Is(err, signature.ErrData) {
		t.Fatalf("Should get a file error for a missing key, got %v", err)
	}
}

func Test_DecodeMalformed(t *testing.T) {
	var v struct{ Name string }
	if err := signature.Decode([]byte{0xff, 0x00, 0x13}, &v); !errors.Is(err, signature.ErrData) {
		t.Fatalf("Should get ErrData for malformed data, got %v", err)
	}

	data, err := signature.Encode(struct{ Name string }{Name: "Bill"})
	if err != nil {
		t.Fatalf("Should be able to encode: %s", err)
	}

	if err := signature.Decode(data, &v); err != nil {
		t.Fatalf("Should be able to decode: %s", err)
	}

	if v.Name != "Bill" {
		t.Fatalf("Should decode the same value, got %q", v.Name)
	}
}
