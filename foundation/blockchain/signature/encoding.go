package signature

import (
	"errors"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
)

// ErrData is returned when encoded data or key material is malformed.
var ErrData = errors.New("invalid data")

// maxCollectionSize bounds arrays and maps accepted while decoding. The
// UTXO set of a long chain is the largest collection ever decoded.
const maxCollectionSize = 1 << 30

var (
	encMode = mustEncMode()
	decMode = mustDecMode()
)

// Encode returns the canonical CBOR encoding of the value. The encoding is
// deterministic so it can be used to calculate hashes that every node agrees on.
func Encode(value any) ([]byte, error) {
	return encMode.Marshal(value)
}

// Decode parses the CBOR encoded data into the value pointed to by v. Any
// decoding failure is reported as ErrData.
func Decode(data []byte, v any) error {
	if err := decMode.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %w", ErrData, err)
	}

	return nil
}

// Save writes the canonical encoding of the value to the writer.
func Save(w io.Writer, value any) error {
	if err := encMode.NewEncoder(w).Encode(value); err != nil {
		return fmt.Errorf("encoding: %w", err)
	}

	return nil
}

// Load reads one encoded value from the reader into the value pointed to by
// v. Malformed input is reported as ErrData.
func Load(r io.Reader, v any) error {
	if err := decMode.NewDecoder(r).Decode(v); err != nil {
		return fmt.Errorf("%w: %w", ErrData, err)
	}

	return nil
}

// =============================================================================

func mustEncMode() cbor.EncMode {
	opts := cbor.CoreDetEncOptions()
	opts.NilContainers = cbor.NilContainerAsEmpty

	em, err := opts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("cbor encoding mode: %s", err))
	}

	return em
}

func mustDecMode() cbor.DecMode {
	opts := cbor.DecOptions{
		MaxArrayElements: maxCollectionSize,
		MaxMapPairs:      maxCollectionSize,
	}

	dm, err := opts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("cbor decoding mode: %s", err))
	}

	return dm
}
