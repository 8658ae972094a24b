package signature

import (
	"crypto/sha256"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
)

// DigestLength is the number of bytes in a digest.
const DigestLength = 32

// Digest represents a 256 bit hash value. It is used as the identity of
// transactions, outputs and blocks and as the value compared against a
// proof of work target.
type Digest [DigestLength]byte

// ZeroHash represents a hash code of zeros.
var ZeroHash Digest

// Hash returns a unique digest for the value. The value is encoded using the
// canonical CBOR encoding and then hashed with sha256. Hash panics if the value
// can't be encoded.
func Hash(value any) Digest {
	data, err := Encode(value)
	if err != nil {
		panic(fmt.Sprintf("hashing %T: %s", value, err))
	}

	return sha256.Sum256(data)
}

// BytesToDigest copies the specified bytes into a digest. If b is larger than
// the digest, b is cropped from the left.
func BytesToDigest(b []byte) Digest {
	var d Digest
	if len(b) > DigestLength {
		b = b[len(b)-DigestLength:]
	}
	copy(d[DigestLength-len(b):], b)

	return d
}

// ToDigest converts a hex-encoded string into a digest.
func ToDigest(hex string) (Digest, error) {
	b, err := hexutil.Decode(hex)
	if err != nil {
		return ZeroHash, fmt.Errorf("decoding digest: %w", err)
	}

	if len(b) != DigestLength {
		return ZeroHash, fmt.Errorf("digest must be %d bytes, got %d", DigestLength, len(b))
	}

	return BytesToDigest(b), nil
}

// Bytes returns a copy of the digest as a slice of bytes.
func (d Digest) Bytes() []byte {
	b := make([]byte, DigestLength)
	copy(b, d[:])
	return b
}

// Int interprets the digest as a big-endian unsigned 256 bit integer.
func (d Digest) Int() *uint256.Int {
	return new(uint256.Int).SetBytes32(d[:])
}

// MatchesTarget reports whether the digest, as an unsigned integer, is
// strictly less than the target. A lower target is harder to satisfy.
func (d Digest) MatchesTarget(target *uint256.Int) bool {
	return d.Int().Lt(target)
}

// IsZero reports whether this is the zero digest.
func (d Digest) IsZero() bool {
	return d == ZeroHash
}

// Hex returns the 0x prefixed hex encoding of the digest.
func (d Digest) Hex() string {
	return hexutil.Encode(d[:])
}

// String implements the fmt.Stringer interface.
func (d Digest) String() string {
	return d.Hex()
}

// MarshalText implements the encoding.TextMarshaler interface so digests are
// rendered as hex in JSON documents and map keys.
func (d Digest) MarshalText() ([]byte, error) {
	return []byte(d.Hex()), nil
}

// UnmarshalText implements the encoding.TextUnmarshaler interface.
func (d *Digest) UnmarshalText(text []byte) error {
	v, err := ToDigest(string(text))
	if err != nil {
		return err
	}

	*d = v
	return nil
}
