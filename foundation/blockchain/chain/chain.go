// Package chain maintains the ledger state of the blockchain: the ordered list
// of blocks, the set of unspent outputs, the mempool and the current target.
// It is the only component allowed to mutate consensus state and it does so
// through AddBlock and AddToMempool.
package chain

import (
	"fmt"
	"sync"
	"time"

	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/ardanlabs/utxochain/foundation/blockchain/genesis"
	"github.com/ardanlabs/utxochain/foundation/blockchain/mempool"
	"github.com/ardanlabs/utxochain/foundation/blockchain/signature"
	"github.com/holiman/uint256"
)

// EventHandler defines a function that is called when events occur in the
// processing of blocks and transactions.
type EventHandler func(v string, args ...any)

// Blockchain manages the ledger state. A single lock guards the blocks, the
// unspent outputs, the mempool and the target together so a block or a
// transaction is validated and applied without another writer interleaving.
type Blockchain struct {
	mu sync.RWMutex

	genesis genesis.Genesis
	blocks  []database.Block
	utxos   database.UTXOSet
	mempool *mempool.Mempool
	target  uint256.Int

	evHandler EventHandler
	now       func() time.Time
}

// New constructs an empty blockchain for the specified genesis.
func New(gen genesis.Genesis, evHandler EventHandler) *Blockchain {
	ev := func(v string, args ...any) {
		if evHandler != nil {
			evHandler(v, args...)
		}
	}

	bc := Blockchain{
		genesis:   gen,
		utxos:     make(database.UTXOSet),
		mempool:   mempool.New(),
		target:    *gen.MinimumTarget(),
		evHandler: ev,
		now:       time.Now,
	}

	return &bc
}

// Reset re-initializes the blockchain back to the empty state.
func (bc *Blockchain) Reset() {
	bc.mu.Lock()
	defer bc.mu.Unlock()

	bc.blocks = nil
	bc.utxos = make(database.UTXOSet)
	bc.mempool.Truncate()
	bc.target = *bc.genesis.MinimumTarget()
}

// =============================================================================

// AddBlock validates the block against the current state and, if valid,
// appends it to the chain. A failed block leaves the state unchanged.
func (bc *Blockchain) AddBlock(block database.Block) error {
	bc.mu.Lock()
	defer bc.mu.Unlock()

	height := uint64(len(bc.blocks))

	bc.evHandler("chain: AddBlock: blk[%d]: validate", height)

	if err := bc.validateBlock(block, true); err != nil {
		bc.evHandler("chain: AddBlock: blk[%d]: ERROR: %s", height, err)
		return err
	}

	bc.applyBlock(block)

	bc.evHandler("chain: AddBlock: blk[%d]: applied: hash[%s]: trans[%d]", height, block.Hash(), len(block.Trans))

	return nil
}

// ValidateTemplate checks whether the block would be accepted as the next
// block once its proof of work is solved.
func (bc *Blockchain) ValidateTemplate(block database.Block) error {
	bc.mu.RLock()
	defer bc.mu.RUnlock()

	if len(bc.blocks) == 0 {
		return fmt.Errorf("%w: chain has no genesis block", database.ErrInvalidBlock)
	}

	return bc.validateBlock(block, false)
}

// validateBlock runs every check required for the block to be the next block
// in the chain. The caller must hold a lock.
func (bc *Blockchain) validateBlock(block database.Block, checkPOW bool) error {

	// The genesis block is trusted and only needs to start the chain.
	if len(bc.blocks) == 0 {
		if block.Header.PrevBlockHash != signature.ZeroHash {
			return fmt.Errorf("%w: genesis block must have a zero previous hash, got %s", database.ErrInvalidBlock, block.Header.PrevBlockHash)
		}
		return nil
	}

	height := uint64(len(bc.blocks))
	last := bc.blocks[len(bc.blocks)-1]

	if hash := last.Hash(); block.Header.PrevBlockHash != hash {
		return fmt.Errorf("%w: previous hash %s does not match %s", database.ErrInvalidBlock, block.Header.PrevBlockHash, hash)
	}

	if !block.Header.Target.Eq(&bc.target) {
		return fmt.Errorf("%w: target %s does not match chain target %s", database.ErrInvalidBlock, block.Header.Target.Hex(), bc.target.Hex())
	}

	if checkPOW && !block.Header.IsSolved() {
		return fmt.Errorf("%w: header hash %s does not satisfy target", database.ErrInvalidBlock, block.Header.Hash())
	}

	root, err := block.MerkleRoot()
	if err != nil {
		return fmt.Errorf("%w: %w", database.ErrInvalidTransaction, err)
	}

	if root != block.Header.MerkleRoot {
		return fmt.Errorf("%w: got %s, exp %s", database.ErrInvalidMerkleRoot, block.Header.MerkleRoot, root)
	}

	if block.Header.TimeStamp <= last.Header.TimeStamp {
		return fmt.Errorf("%w: timestamp %d is not after parent timestamp %d", database.ErrInvalidBlock, block.Header.TimeStamp, last.Header.TimeStamp)
	}

	return block.VerifyTransactions(height, bc.utxos, bc.genesis)
}

// applyBlock updates the state with the effects of a validated block. The
// caller must hold the write lock.
func (bc *Blockchain) applyBlock(block database.Block) {

	// Transactions settled by this block are no longer pending.
	for _, tx := range block.Trans {
		bc.mempool.Delete(tx.Hash())
	}

	bc.blocks = append(bc.blocks, block)

	for _, tx := range block.Trans {
		for _, in := range tx.Inputs {
			delete(bc.utxos, in.PrevOutputHash)
		}
		for _, out := range tx.Outputs {
			bc.utxos[out.Hash()] = database.UTXO{Output: out}
		}
	}

	// Pending transactions that lost an input to this block, or whose outputs
	// this block already created, can never be mined. Their remaining inputs
	// are released.
	evicted := bc.mempool.DeleteFunc(func(e mempool.Entry) bool {
		for _, in := range e.Tx.Inputs {
			if _, exists := bc.utxos[in.PrevOutputHash]; !exists {
				return true
			}
		}
		for _, out := range e.Tx.Outputs {
			if _, exists := bc.utxos[out.Hash()]; exists {
				return true
			}
		}
		return false
	})

	for _, e := range evicted {
		bc.release(e.Tx)
		bc.evHandler("chain: AddBlock: evicted conflicting tx[%s]", e.Hash)
	}

	bc.tryAdjustTarget()
}

// =============================================================================

// AddToMempool validates the transaction against the unspent outputs and, if
// valid, adds it to the mempool. An input already reserved by another pending
// transaction evicts that transaction. A failed transaction leaves the state
// unchanged.
func (bc *Blockchain) AddToMempool(tx database.Tx) error {
	bc.mu.Lock()
	defer bc.mu.Unlock()

	hash := tx.Hash()

	bc.evHandler("chain: AddToMempool: tx[%s]: validate", hash)

	fee, err := bc.validateTx(tx)
	if err != nil {
		bc.evHandler("chain: AddToMempool: tx[%s]: ERROR: %s", hash, err)
		return err
	}

	for _, in := range tx.Inputs {
		utxo := bc.utxos[in.PrevOutputHash]
		if !utxo.Reserved {
			continue
		}

		holder, found := bc.mempool.FindSpender(in.PrevOutputHash)
		if !found {
			utxo.Reserved = false
			bc.utxos[in.PrevOutputHash] = utxo
			continue
		}

		bc.mempool.Delete(holder.Hash)
		bc.release(holder.Tx)
		bc.evHandler("chain: AddToMempool: tx[%s]: replaced tx[%s]", hash, holder.Hash)
	}

	for _, in := range tx.Inputs {
		utxo := bc.utxos[in.PrevOutputHash]
		utxo.Reserved = true
		bc.utxos[in.PrevOutputHash] = utxo
	}

	n := bc.mempool.Upsert(tx, fee, bc.now())

	bc.evHandler("chain: AddToMempool: tx[%s]: fee[%d]: mempool[%d]", hash, fee, n)

	return nil
}

// validateTx checks the transaction against the unspent outputs and returns
// its fee. The caller must hold a lock.
func (bc *Blockchain) validateTx(tx database.Tx) (uint64, error) {
	if len(tx.Inputs) == 0 {
		return 0, fmt.Errorf("%w: transaction has no inputs", database.ErrInvalidTransaction)
	}

	seen := make(map[signature.Digest]struct{}, len(tx.Inputs))
	for _, in := range tx.Inputs {
		if _, exists := seen[in.PrevOutputHash]; exists {
			return 0, fmt.Errorf("%w: output %s referenced twice", database.ErrInvalidTransaction, in.PrevOutputHash)
		}
		seen[in.PrevOutputHash] = struct{}{}

		if _, exists := bc.utxos[in.PrevOutputHash]; !exists {
			return 0, fmt.Errorf("%w: output %s not found", database.ErrInvalidTransaction, in.PrevOutputHash)
		}
	}

	for _, in := range tx.Inputs {
		if !in.Verify(bc.utxos[in.PrevOutputHash].Output.PublicKey) {
			return 0, fmt.Errorf("%w: invalid signature for %s", database.ErrInvalidTransactionInput, in.PrevOutputHash)
		}
	}

	// Outputs must be new to the chain and to every other pending transaction.
	hash := tx.Hash()
	produced := make(map[signature.Digest]struct{}, len(tx.Outputs))
	for _, out := range tx.Outputs {
		outHash := out.Hash()
		if _, exists := produced[outHash]; exists {
			return 0, fmt.Errorf("%w: output %s produced twice", database.ErrInvalidTransaction, outHash)
		}
		produced[outHash] = struct{}{}

		if _, exists := bc.utxos[outHash]; exists {
			return 0, fmt.Errorf("%w: output %s already unspent", database.ErrInvalidTransaction, outHash)
		}

		if e, exists := bc.mempool.FindProducer(outHash); exists && e.Hash != hash {
			return 0, fmt.Errorf("%w: output %s produced by pending tx %s", database.ErrInvalidTransaction, outHash, e.Hash)
		}
	}

	return tx.Fee(bc.utxos)
}

// release clears the reservation on the inputs of the transaction that are
// still unspent. The caller must hold the write lock.
func (bc *Blockchain) release(tx database.Tx) {
	for _, in := range tx.Inputs {
		if utxo, exists := bc.utxos[in.PrevOutputHash]; exists {
			utxo.Reserved = false
			bc.utxos[in.PrevOutputHash] = utxo
		}
	}
}

// =============================================================================

// RebuildUTXOs recalculates the unspent outputs from the blocks and then
// reserves the inputs of the pending transactions. Pending transactions that
// no longer validate are dropped.
func (bc *Blockchain) RebuildUTXOs() {
	bc.mu.Lock()
	defer bc.mu.Unlock()

	bc.rebuildUTXOs()
}

func (bc *Blockchain) rebuildUTXOs() {
	utxos := make(database.UTXOSet)
	for _, block := range bc.blocks {
		for _, tx := range block.Trans {
			for _, in := range tx.Inputs {
				delete(utxos, in.PrevOutputHash)
			}
			for _, out := range tx.Outputs {
				utxos[out.Hash()] = database.UTXO{Output: out}
			}
		}
	}
	bc.utxos = utxos

	pending := bc.mempool.Copy()
	bc.mempool.Truncate()

	for _, e := range pending {
		if _, err := bc.validateTx(e.Tx); err != nil {
			continue
		}

		conflict := false
		for _, in := range e.Tx.Inputs {
			if bc.utxos[in.PrevOutputHash].Reserved {
				conflict = true
				break
			}
		}
		if conflict {
			continue
		}

		for _, in := range e.Tx.Inputs {
			utxo := bc.utxos[in.PrevOutputHash]
			utxo.Reserved = true
			bc.utxos[in.PrevOutputHash] = utxo
		}

		bc.mempool.Upsert(e.Tx, e.Fee, e.TimeStamp)
	}
}
