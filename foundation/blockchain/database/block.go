package database

import (
	"fmt"
	"io"
	"math"
	"time"

	"github.com/ardanlabs/utxochain/foundation/blockchain/genesis"
	"github.com/ardanlabs/utxochain/foundation/blockchain/merkle"
	"github.com/ardanlabs/utxochain/foundation/blockchain/signature"
	"github.com/holiman/uint256"
)

// BlockHeader represents common information required for each block.
type BlockHeader struct {
	TimeStamp     uint64           `json:"timestamp"`       // Time the block was mined in unix seconds.
	Nonce         uint64           `json:"nonce"`           // Value identified to solve the hash solution.
	PrevBlockHash signature.Digest `json:"prev_block_hash"` // Hash of the previous block in the chain.
	MerkleRoot    signature.Digest `json:"merkle_root"`     // Merkle tree root hash for the transactions in this block.
	Target        uint256.Int      `json:"target"`          // Value the header hash must be less than.
}

// Hash returns the proof of work digest for the header.
func (h BlockHeader) Hash() signature.Digest {
	return signature.Hash(h)
}

// IsSolved reports whether the header hash satisfies its target.
func (h BlockHeader) IsSolved() bool {
	return h.Hash().MatchesTarget(&h.Target)
}

// Mine searches at most steps nonces for a header hash that satisfies the
// target and reports whether one was found. The search resumes from the
// current nonce so the caller can call Mine again to continue. When the nonce
// space is exhausted the nonce starts over and the timestamp is refreshed.
func (h *BlockHeader) Mine(steps uint64) bool {
	if h.IsSolved() {
		return true
	}

	for range steps {
		if h.Nonce == math.MaxUint64 {
			h.Nonce = 0
			h.TimeStamp = uint64(time.Now().UTC().Unix())
		} else {
			h.Nonce++
		}

		if h.IsSolved() {
			return true
		}
	}

	return false
}

// =============================================================================

// Block represents a group of transactions batched together. The first
// transaction is always the coinbase.
type Block struct {
	Header BlockHeader `json:"header"`
	Trans  []Tx        `json:"trans"`
}

// NewBlock constructs an unmined block on top of the previous block hash.
func NewBlock(prevBlockHash signature.Digest, target *uint256.Int, timeStamp uint64, trans []Tx) (Block, error) {
	root, err := merkle.Root(trans)
	if err != nil {
		return Block{}, fmt.Errorf("%w: %w", ErrInvalidTransaction, err)
	}

	b := Block{
		Header: BlockHeader{
			TimeStamp:     timeStamp,
			PrevBlockHash: prevBlockHash,
			MerkleRoot:    root,
			Target:        *target,
		},
		Trans: trans,
	}

	return b, nil
}

// Hash returns the digest of the full block. Blocks are linked using this
// hash while the proof of work is checked against the header hash.
func (b Block) Hash() signature.Digest {
	return signature.Hash(b)
}

// MerkleRoot calculates the merkle root for the block's transactions.
func (b Block) MerkleRoot() (signature.Digest, error) {
	return merkle.Root(b.Trans)
}

// CalculateMinerFee returns the sum of the fees paid by the non coinbase
// transactions. Every input must reference an output in the set. An output
// referenced twice by one transaction is malformed while an output spent by
// two transactions is a double spend. Produced outputs may not collide with each
// other or with an existing unspent output.
//
// Malformed transactions fail with ErrInvalidTransaction. A double spend and
// outputs exceeding inputs fail with ErrInvalidTransactionInput, the same kind
// VerifyTransactions reports for them.
func (b Block) CalculateMinerFee(utxos UTXOSet) (uint64, error) {
	var inputs, outputs uint64
	spent := make(map[signature.Digest]struct{})
	produced := make(map[signature.Digest]struct{})

	for i, tx := range b.Trans {
		for _, out := range tx.Outputs {
			hash := out.Hash()
			if _, exists := produced[hash]; exists {
				return 0, fmt.Errorf("%w: tx[%d]: output %s produced twice", ErrInvalidTransaction, i, hash)
			}
			if _, exists := utxos[hash]; exists {
				return 0, fmt.Errorf("%w: tx[%d]: output %s already unspent", ErrInvalidTransaction, i, hash)
			}
			produced[hash] = struct{}{}
		}

		if i == 0 {
			continue
		}

		if len(tx.Inputs) == 0 {
			return 0, fmt.Errorf("%w: tx[%d] has no inputs", ErrInvalidTransaction, i)
		}

		local := make(map[signature.Digest]struct{}, len(tx.Inputs))
		for _, in := range tx.Inputs {
			if _, exists := local[in.PrevOutputHash]; exists {
				return 0, fmt.Errorf("%w: tx[%d]: output %s referenced twice", ErrInvalidTransaction, i, in.PrevOutputHash)
			}
			local[in.PrevOutputHash] = struct{}{}

			if _, exists := spent[in.PrevOutputHash]; exists {
				return 0, fmt.Errorf("%w: tx[%d]: double spend of %s", ErrInvalidTransactionInput, i, in.PrevOutputHash)
			}

			utxo, exists := utxos[in.PrevOutputHash]
			if !exists {
				return 0, fmt.Errorf("%w: tx[%d]: output %s not found", ErrInvalidTransaction, i, in.PrevOutputHash)
			}

			spent[in.PrevOutputHash] = struct{}{}

			var err error
			if inputs, err = addValue(inputs, utxo.Output.Value); err != nil {
				return 0, err
			}
		}

		value, err := tx.OutputValue()
		if err != nil {
			return 0, err
		}

		if outputs, err = addValue(outputs, value); err != nil {
			return 0, err
		}
	}

	if outputs > inputs {
		return 0, fmt.Errorf("%w: outputs %d exceed inputs %d", ErrInvalidTransactionInput, outputs, inputs)
	}

	return inputs - outputs, nil
}

// VerifyCoinbaseTransaction validates that the first transaction has no
// inputs and pays exactly the block reward plus the fees of the block.
func (b Block) VerifyCoinbaseTransaction(height uint64, utxos UTXOSet, gen genesis.Genesis) error {
	if len(b.Trans) == 0 {
		return fmt.Errorf("%w: block has no transactions", ErrInvalidTransaction)
	}

	coinbase := b.Trans[0]

	if len(coinbase.Inputs) != 0 {
		return fmt.Errorf("%w: coinbase has %d inputs", ErrInvalidTransaction, len(coinbase.Inputs))
	}

	if len(coinbase.Outputs) == 0 {
		return fmt.Errorf("%w: coinbase has no outputs", ErrInvalidTransaction)
	}

	fee, err := b.CalculateMinerFee(utxos)
	if err != nil {
		return err
	}

	expected, err := addValue(gen.BlockReward(height), fee)
	if err != nil {
		return err
	}

	total, err := coinbase.OutputValue()
	if err != nil {
		return err
	}

	if total != expected {
		return fmt.Errorf("%w: coinbase pays %d, expected %d", ErrInvalidTransaction, total, expected)
	}

	return nil
}

// VerifyTransactions validates the transactions of the block against the
// set of unspent outputs. The set is not modified.
func (b Block) VerifyTransactions(height uint64, utxos UTXOSet, gen genesis.Genesis) error {
	if len(b.Trans) == 0 {
		return fmt.Errorf("%w: block has no transactions", ErrInvalidTransaction)
	}

	if err := b.VerifyCoinbaseTransaction(height, utxos, gen); err != nil {
		return err
	}

	spent := make(map[signature.Digest]struct{})

	for i, tx := range b.Trans[1:] {
		i++

		if len(tx.Inputs) == 0 {
			return fmt.Errorf("%w: tx[%d] has no inputs", ErrInvalidTransaction, i)
		}

		var inputs uint64
		for _, in := range tx.Inputs {
			if _, exists := spent[in.PrevOutputHash]; exists {
				return fmt.Errorf("%w: tx[%d]: double spend of %s", ErrInvalidTransactionInput, i, in.PrevOutputHash)
			}

			utxo, exists := utxos[in.PrevOutputHash]
			if !exists {
				return fmt.Errorf("%w: tx[%d]: output %s not found", ErrInvalidTransactionInput, i, in.PrevOutputHash)
			}

			if !in.Verify(utxo.Output.PublicKey) {
				return fmt.Errorf("%w: tx[%d]: invalid signature for %s", ErrInvalidTransactionInput, i, in.PrevOutputHash)
			}

			spent[in.PrevOutputHash] = struct{}{}

			var err error
			if inputs, err = addValue(inputs, utxo.Output.Value); err != nil {
				return err
			}
		}

		outputs, err := tx.OutputValue()
		if err != nil {
			return err
		}

		if outputs > inputs {
			return fmt.Errorf("%w: tx[%d]: outputs %d exceed inputs %d", ErrInvalidTransactionInput, i, outputs, inputs)
		}
	}

	return nil
}

// Save writes the canonical encoding of the block.
func (b Block) Save(w io.Writer) error {
	return signature.Save(w, b)
}

// LoadBlock reads a block written by Save.
func LoadBlock(r io.Reader) (Block, error) {
	var b Block
	if err := signature.Load(r, &b); err != nil {
		return Block{}, err
	}

	return b, nil
}

// =============================================================================

// BlockData represents what is written to storage and sent over the network.
type BlockData struct {
	Hash   signature.Digest `json:"hash"`
	Height uint64           `json:"height"`
	Block  Block            `json:"block"`
}

// NewBlockData constructs the value to serialize for the block stored at
// the specified height. The first block is stored at height 0.
func NewBlockData(height uint64, block Block) BlockData {
	return BlockData{
		Hash:   block.Hash(),
		Height: height,
		Block:  block,
	}
}

// ToBlock converts the stored data back into a block, checking the data
// was not altered.
func ToBlock(data BlockData) (Block, error) {
	if hash := data.Block.Hash(); hash != data.Hash {
		return Block{}, fmt.Errorf("%w: block %d hash %s does not match %s", ErrData, data.Height, hash, data.Hash)
	}

	return data.Block, nil
}
