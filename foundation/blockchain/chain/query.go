package chain

import (
	"fmt"
	"io"

	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/ardanlabs/utxochain/foundation/blockchain/genesis"
	"github.com/ardanlabs/utxochain/foundation/blockchain/mempool"
	"github.com/ardanlabs/utxochain/foundation/blockchain/signature"
	"github.com/holiman/uint256"
)

// Genesis returns the genesis the chain was constructed with.
func (bc *Blockchain) Genesis() genesis.Genesis {
	return bc.genesis
}

// Height returns the number of blocks in the chain.
func (bc *Blockchain) Height() uint64 {
	bc.mu.RLock()
	defer bc.mu.RUnlock()

	return uint64(len(bc.blocks))
}

// LatestBlock returns the last block in the chain and false when the chain
// is empty.
func (bc *Blockchain) LatestBlock() (database.Block, bool) {
	bc.mu.RLock()
	defer bc.mu.RUnlock()

	if len(bc.blocks) == 0 {
		return database.Block{}, false
	}

	return bc.blocks[len(bc.blocks)-1], true
}

// BlockByHeight returns the block at the specified height. The genesis block
// is at height 0.
func (bc *Blockchain) BlockByHeight(height uint64) (database.Block, error) {
	bc.mu.RLock()
	defer bc.mu.RUnlock()

	if height >= uint64(len(bc.blocks)) {
		return database.Block{}, fmt.Errorf("%w: height %d", database.ErrNotFound, height)
	}

	return bc.blocks[height], nil
}

// Blocks returns the blocks in the range [from, to). A to value beyond the
// end of the chain is clamped.
func (bc *Blockchain) Blocks(from uint64, to uint64) []database.Block {
	bc.mu.RLock()
	defer bc.mu.RUnlock()

	if to > uint64(len(bc.blocks)) {
		to = uint64(len(bc.blocks))
	}

	if from >= to {
		return nil
	}

	blocks := make([]database.Block, to-from)
	copy(blocks, bc.blocks[from:to])

	return blocks
}

// Target returns a copy of the current target.
func (bc *Blockchain) Target() *uint256.Int {
	bc.mu.RLock()
	defer bc.mu.RUnlock()

	return new(uint256.Int).Set(&bc.target)
}

// UTXOs returns a copy of the unspent outputs.
func (bc *Blockchain) UTXOs() database.UTXOSet {
	bc.mu.RLock()
	defer bc.mu.RUnlock()

	return bc.utxos.Copy()
}

// UTXOsByPublicKey returns the unspent outputs owned by the public key.
func (bc *Blockchain) UTXOsByPublicKey(pk signature.PublicKey) database.UTXOSet {
	bc.mu.RLock()
	defer bc.mu.RUnlock()

	return bc.utxos.ByPublicKey(pk)
}

// Mempool returns a copy of the pending transactions in fee order.
func (bc *Blockchain) Mempool() []mempool.Entry {
	bc.mu.RLock()
	defer bc.mu.RUnlock()

	return bc.mempool.Copy()
}

// MempoolCount returns the number of pending transactions.
func (bc *Blockchain) MempoolCount() int {
	bc.mu.RLock()
	defer bc.mu.RUnlock()

	return bc.mempool.Count()
}

// PickBest returns the highest fee pending transactions. Pass -1 for all the
// transactions.
func (bc *Blockchain) PickBest(howMany int) []database.Tx {
	bc.mu.RLock()
	defer bc.mu.RUnlock()

	return bc.mempool.PickBest(howMany)
}

// TruncateMempool clears the pending transactions and releases their
// reservations.
func (bc *Blockchain) TruncateMempool() {
	bc.mu.Lock()
	defer bc.mu.Unlock()

	for _, e := range bc.mempool.Copy() {
		bc.release(e.Tx)
	}
	bc.mempool.Truncate()
}

// =============================================================================

// snapshot represents the persisted state of the chain. Pending transactions
// are not persisted.
type snapshot struct {
	Blocks []database.Block     `json:"blocks"`
	UTXOs  []database.UTXOEntry `json:"utxos"`
	Target uint256.Int          `json:"target"`
}

// Save writes the blocks, the unspent outputs and the target.
func (bc *Blockchain) Save(w io.Writer) error {
	bc.mu.RLock()
	defer bc.mu.RUnlock()

	// Reservations belong to the mempool which is not persisted.
	entries := bc.utxos.Entries()
	for i := range entries {
		entries[i].Reserved = false
	}

	snap := snapshot{
		Blocks: bc.blocks,
		UTXOs:  entries,
		Target: bc.target,
	}

	return signature.Save(w, snap)
}

// Load replaces the state of the chain with the state written by Save. The
// mempool is cleared.
func (bc *Blockchain) Load(r io.Reader) error {
	var snap snapshot
	if err := signature.Load(r, &snap); err != nil {
		return err
	}

	bc.mu.Lock()
	defer bc.mu.Unlock()

	bc.blocks = snap.Blocks
	bc.utxos = database.ToUTXOSet(snap.UTXOs)
	bc.target = snap.Target
	bc.mempool.Truncate()

	return nil
}
