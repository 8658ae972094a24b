// Package signature provides helper functions for handling the blockchain
// hashing, key and signature needs.
package signature

import (
	"bytes"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// PublicKey represents the compressed secp256k1 public key that owns an
// output on the blockchain.
type PublicKey []byte

// ToPublicKey converts an ecdsa public key into its compressed form.
func ToPublicKey(pk ecdsa.PublicKey) PublicKey {
	return crypto.CompressPubkey(&pk)
}

// ToPublicKeyHex converts a hex-encoded string to a public key and validates
// the key is a point on the curve.
func ToPublicKeyHex(hex string) (PublicKey, error) {
	b, err := hexutil.Decode(hex)
	if err != nil {
		return nil, fmt.Errorf("decoding public key: %w", err)
	}

	pk := PublicKey(b)
	if !pk.IsValid() {
		return nil, errors.New("invalid public key format")
	}

	return pk, nil
}

// IsValid reports whether the bytes represent a compressed public key.
func (pk PublicKey) IsValid() bool {
	if len(pk) != 33 {
		return false
	}

	_, err := crypto.DecompressPubkey(pk)
	return err == nil
}

// Equal reports whether both keys are the same.
func (pk PublicKey) Equal(other PublicKey) bool {
	return bytes.Equal(pk, other)
}

// Hex returns the 0x prefixed hex encoding of the key.
func (pk PublicKey) Hex() string {
	return hexutil.Encode(pk)
}

// String implements the fmt.Stringer interface for logging.
func (pk PublicKey) String() string {
	return pk.Hex()
}

// MarshalText implements the encoding.TextMarshaler interface.
func (pk PublicKey) MarshalText() ([]byte, error) {
	return []byte(pk.Hex()), nil
}

// UnmarshalText implements the encoding.TextUnmarshaler interface.
func (pk *PublicKey) UnmarshalText(text []byte) error {
	v, err := ToPublicKeyHex(string(text))
	if err != nil {
		return err
	}

	*pk = v
	return nil
}

// =============================================================================

// Signature represents a 65 byte secp256k1 signature in the [R|S|V] format.
type Signature []byte

// Sign uses the specified private key to sign the digest.
func Sign(digest Digest, privateKey *ecdsa.PrivateKey) (Signature, error) {
	sig, err := crypto.Sign(digest[:], privateKey)
	if err != nil {
		return nil, err
	}

	return sig, nil
}

// Verify reports whether the signature was produced over the digest by the
// private key belonging to the public key.
func Verify(sig Signature, digest Digest, pk PublicKey) bool {
	if len(sig) != crypto.SignatureLength {
		return false
	}

	// The recovery id is not part of the verification.
	return crypto.VerifySignature(pk, digest[:], sig[:crypto.RecoveryIDOffset])
}

// Hex returns the 0x prefixed hex encoding of the signature.
func (sig Signature) Hex() string {
	return hexutil.Encode(sig)
}

// MarshalText implements the encoding.TextMarshaler interface.
func (sig Signature) MarshalText() ([]byte, error) {
	return []byte(sig.Hex()), nil
}

// UnmarshalText implements the encoding.TextUnmarshaler interface.
func (sig *Signature) UnmarshalText(text []byte) error {
	b, err := hexutil.Decode(string(text))
	if err != nil {
		return fmt.Errorf("decoding signature: %w", err)
	}

	*sig = b
	return nil
}

// =============================================================================

// GenerateKey creates a new private key.
func GenerateKey() (*ecdsa.PrivateKey, error) {
	return crypto.GenerateKey()
}

// SavePrivateKey writes the private key to the file in hex format.
func SavePrivateKey(path string, privateKey *ecdsa.PrivateKey) error {
	return crypto.SaveECDSA(path, privateKey)
}

// LoadPrivateKey reads a hex encoded private key from the file. A file that
// exists but holds no valid key is reported as ErrData.
func LoadPrivateKey(path string) (*ecdsa.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	privateKey, err := crypto.HexToECDSA(strings.TrimSpace(string(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: private key %s: %w", ErrData, path, err)
	}

	return privateKey, nil
}

// SavePublicKey writes the public key to the file in hex format.
func SavePublicKey(path string, pk PublicKey) error {
	return os.WriteFile(path, []byte(pk.Hex()+"\n"), 0600)
}

// LoadPublicKey reads a hex encoded public key from the file. A file that
// exists but holds no valid key is reported as ErrData.
func LoadPublicKey(path string) (PublicKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	pk, err := ToPublicKeyHex(strings.TrimSpace(string(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: public key %s: %w", ErrData, path, err)
	}

	return pk, nil
}
