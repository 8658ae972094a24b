package database

import (
	"crypto/ecdsa"
	"fmt"
	"io"
	"math/bits"

	"github.com/ardanlabs/utxochain/foundation/blockchain/signature"
	"github.com/google/uuid"
)

// TxOutput represents value locked to the owner of a public key. The output
// is identified by its hash, so the unique id keeps two outputs with the same
// value and owner from colliding.
type TxOutput struct {
	Value     uint64              `json:"value"`      // Amount in the smallest unit.
	UniqueID  uuid.UUID           `json:"unique_id"`  // Random id that makes the output hash unique.
	PublicKey signature.PublicKey `json:"public_key"` // Owner of the value.
}

// NewTxOutput constructs an output with a random unique id.
func NewTxOutput(value uint64, publicKey signature.PublicKey) TxOutput {
	return TxOutput{
		Value:     value,
		UniqueID:  uuid.New(),
		PublicKey: publicKey,
	}
}

// Hash returns the digest that identifies the output in the UTXO set.
func (out TxOutput) Hash() signature.Digest {
	return signature.Hash(out)
}

// =============================================================================

// TxInput consumes a previously produced output. The signature is produced
// by the owner of that output over the output's hash.
type TxInput struct {
	PrevOutputHash signature.Digest    `json:"prev_output_hash"`
	Signature      signature.Signature `json:"signature"`
}

// NewTxInput constructs an input spending the output with the specified hash
// and signs it with the private key that owns that output.
func NewTxInput(prevOutputHash signature.Digest, privateKey *ecdsa.PrivateKey) (TxInput, error) {
	sig, err := signature.Sign(prevOutputHash, privateKey)
	if err != nil {
		return TxInput{}, fmt.Errorf("signing input: %w", err)
	}

	input := TxInput{
		PrevOutputHash: prevOutputHash,
		Signature:      sig,
	}

	return input, nil
}

// Verify reports whether the input's signature was produced by the owner of
// the specified output.
func (in TxInput) Verify(owner signature.PublicKey) bool {
	return signature.Verify(in.Signature, in.PrevOutputHash, owner)
}

// =============================================================================

// Tx is the unit of value transfer. It consumes a set of outputs through its
// inputs and produces new outputs. A transaction with no inputs is only
// valid as the coinbase of a block.
type Tx struct {
	Inputs  []TxInput  `json:"inputs"`
	Outputs []TxOutput `json:"outputs"`
}

// NewTx constructs a transaction.
func NewTx(inputs []TxInput, outputs []TxOutput) Tx {
	return Tx{
		Inputs:  inputs,
		Outputs: outputs,
	}
}

// NewCoinbaseTx constructs the transaction that pays the block reward and
// fees to the miner.
func NewCoinbaseTx(outputs ...TxOutput) Tx {
	return Tx{
		Outputs: outputs,
	}
}

// Hash returns the unique digest for the transaction.
func (tx Tx) Hash() signature.Digest {
	return signature.Hash(tx)
}

// Equals implements the merkle Hashable interface for providing an equality
// check between two transactions.
func (tx Tx) Equals(other Tx) bool {
	return tx.Hash() == other.Hash()
}

// IsCoinbase reports whether the transaction has the shape of a coinbase.
func (tx Tx) IsCoinbase() bool {
	return len(tx.Inputs) == 0
}

// OutputValue returns the total value of the outputs.
func (tx Tx) OutputValue() (uint64, error) {
	var total uint64
	for _, out := range tx.Outputs {
		sum, carry := bits.Add64(total, out.Value, 0)
		if carry != 0 {
			return 0, fmt.Errorf("%w: output value overflows", ErrInvalidTransaction)
		}
		total = sum
	}

	return total, nil
}

// InputValue returns the total value of the outputs consumed by the inputs.
func (tx Tx) InputValue(utxos UTXOSet) (uint64, error) {
	var total uint64
	for _, in := range tx.Inputs {
		utxo, exists := utxos[in.PrevOutputHash]
		if !exists {
			return 0, fmt.Errorf("%w: output %s not found", ErrInvalidTransaction, in.PrevOutputHash)
		}

		var err error
		if total, err = addValue(total, utxo.Output.Value); err != nil {
			return 0, err
		}
	}

	return total, nil
}

// Fee returns the value of the inputs minus the value of the outputs.
func (tx Tx) Fee(utxos UTXOSet) (uint64, error) {
	inputs, err := tx.InputValue(utxos)
	if err != nil {
		return 0, err
	}

	outputs, err := tx.OutputValue()
	if err != nil {
		return 0, err
	}

	if outputs > inputs {
		return 0, fmt.Errorf("%w: outputs %d exceed inputs %d", ErrInvalidTransaction, outputs, inputs)
	}

	return inputs - outputs, nil
}

// String implements the fmt.Stringer interface for logging.
func (tx Tx) String() string {
	return fmt.Sprintf("%s:in[%d]:out[%d]", tx.Hash(), len(tx.Inputs), len(tx.Outputs))
}

// Save writes the canonical encoding of the transaction.
func (tx Tx) Save(w io.Writer) error {
	return signature.Save(w, tx)
}

// LoadTx reads a transaction written by Save.
func LoadTx(r io.Reader) (Tx, error) {
	var tx Tx
	if err := signature.Load(r, &tx); err != nil {
		return Tx{}, err
	}

	return tx, nil
}

// =============================================================================

// addValue adds two amounts and fails when the sum overflows.
func addValue(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, fmt.Errorf("%w: value overflows", ErrInvalidTransaction)
	}

	return sum, nil
}
