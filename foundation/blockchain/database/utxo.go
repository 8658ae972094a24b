package database

import (
	"bytes"
	"sort"

	"github.com/ardanlabs/utxochain/foundation/blockchain/signature"
)

// UTXO represents an unspent output. Reserved marks an output claimed by a
// transaction in the mempool.
type UTXO struct {
	Reserved bool     `json:"reserved"`
	Output   TxOutput `json:"output"`
}

// UTXOSet maps the hash of an output to the unspent output.
type UTXOSet map[signature.Digest]UTXO

// Copy makes a copy of the set.
func (s UTXOSet) Copy() UTXOSet {
	utxos := make(UTXOSet, len(s))
	for hash, utxo := range s {
		utxos[hash] = utxo
	}

	return utxos
}

// ByPublicKey returns the unspent outputs owned by the public key.
func (s UTXOSet) ByPublicKey(pk signature.PublicKey) UTXOSet {
	utxos := make(UTXOSet)
	for hash, utxo := range s {
		if utxo.Output.PublicKey.Equal(pk) {
			utxos[hash] = utxo
		}
	}

	return utxos
}

// Balance returns the total value of the set. Reserved outputs are counted.
func (s UTXOSet) Balance() uint64 {
	var total uint64
	for _, utxo := range s {
		total += utxo.Output.Value
	}

	return total
}

// Entries returns the set as a slice ordered by output hash.
func (s UTXOSet) Entries() []UTXOEntry {
	entries := make([]UTXOEntry, 0, len(s))
	for hash, utxo := range s {
		entries = append(entries, UTXOEntry{Hash: hash, UTXO: utxo})
	}

	sort.Slice(entries, func(i, j int) bool {
		return bytes.Compare(entries[i].Hash[:], entries[j].Hash[:]) < 0
	})

	return entries
}

// UTXOEntry is a single element of the set used when the set is persisted
// or transmitted.
type UTXOEntry struct {
	Hash signature.Digest `json:"hash"`
	UTXO
}

// ToUTXOSet converts the entries back into a set.
func ToUTXOSet(entries []UTXOEntry) UTXOSet {
	utxos := make(UTXOSet, len(entries))
	for _, e := range entries {
		utxos[e.Hash] = e.UTXO
	}

	return utxos
}
