// Package mempool maintains the pool of transactions that have been accepted
// but not yet included in a block. Transactions are kept ordered by fee with
// the highest fee first, ties going to the transaction admitted first.
//
// A Mempool is not safe for concurrent use. It is owned by the blockchain
// which serializes access to it.
package mempool

import (
	"sort"
	"time"

	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/ardanlabs/utxochain/foundation/blockchain/signature"
)

// Entry represents a transaction in the mempool.
type Entry struct {
	TimeStamp time.Time        `json:"timestamp"` // Time the transaction was admitted.
	Hash      signature.Digest `json:"hash"`
	Fee       uint64           `json:"fee"`
	Tx        database.Tx      `json:"tx"`
}

// Mempool represents the ordered set of pending transactions.
type Mempool struct {
	entries []Entry
}

// New constructs a new empty mempool.
func New() *Mempool {
	return &Mempool{}
}

// Count returns the current number of transactions in the pool.
func (mp *Mempool) Count() int {
	return len(mp.entries)
}

// Upsert adds the transaction to the pool, replacing any transaction with the
// same hash, and returns the new size of the pool.
func (mp *Mempool) Upsert(tx database.Tx, fee uint64, now time.Time) int {
	hash := tx.Hash()
	mp.Delete(hash)

	entry := Entry{
		TimeStamp: now,
		Hash:      hash,
		Fee:       fee,
		Tx:        tx,
	}

	// The new entry was admitted last so it goes after every entry with
	// the same or a higher fee.
	i := sort.Search(len(mp.entries), func(i int) bool {
		return mp.entries[i].Fee < fee
	})

	mp.entries = append(mp.entries, Entry{})
	copy(mp.entries[i+1:], mp.entries[i:])
	mp.entries[i] = entry

	return len(mp.entries)
}

// Delete removes the transaction with the specified hash and reports whether
// it was in the pool.
func (mp *Mempool) Delete(hash signature.Digest) bool {
	for i, entry := range mp.entries {
		if entry.Hash == hash {
			mp.entries = append(mp.entries[:i], mp.entries[i+1:]...)
			return true
		}
	}

	return false
}

// DeleteFunc removes every transaction for which fn returns true and returns
// the removed entries.
func (mp *Mempool) DeleteFunc(fn func(Entry) bool) []Entry {
	var removed []Entry

	kept := mp.entries[:0]
	for _, entry := range mp.entries {
		if fn(entry) {
			removed = append(removed, entry)
			continue
		}
		kept = append(kept, entry)
	}

	clear(mp.entries[len(kept):])
	mp.entries = kept

	return removed
}

// Contains reports whether the transaction with the specified hash is in the
// pool.
func (mp *Mempool) Contains(hash signature.Digest) bool {
	for _, entry := range mp.entries {
		if entry.Hash == hash {
			return true
		}
	}

	return false
}

// FindSpender returns the transaction whose inputs consume the output with
// the specified hash.
func (mp *Mempool) FindSpender(outputHash signature.Digest) (Entry, bool) {
	for _, entry := range mp.entries {
		for _, in := range entry.Tx.Inputs {
			if in.PrevOutputHash == outputHash {
				return entry, true
			}
		}
	}

	return Entry{}, false
}

// FindProducer returns the transaction that creates the output with the
// specified hash.
func (mp *Mempool) FindProducer(outputHash signature.Digest) (Entry, bool) {
	for _, entry := range mp.entries {
		for _, out := range entry.Tx.Outputs {
			if out.Hash() == outputHash {
				return entry, true
			}
		}
	}

	return Entry{}, false
}

// PickBest returns the next set of transactions for the next block in fee
// order. Pass -1 for all the transactions.
func (mp *Mempool) PickBest(howMany int) []database.Tx {
	if howMany < 0 || howMany > len(mp.entries) {
		howMany = len(mp.entries)
	}

	trans := make([]database.Tx, howMany)
	for i := range howMany {
		trans[i] = mp.entries[i].Tx
	}

	return trans
}

// Copy returns a copy of the entries in fee order.
func (mp *Mempool) Copy() []Entry {
	entries := make([]Entry, len(mp.entries))
	copy(entries, mp.entries)

	return entries
}

// Truncate clears all the transactions from the pool.
func (mp *Mempool) Truncate() {
	mp.entries = nil
}
