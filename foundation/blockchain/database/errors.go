package database

import (
	"errors"

	"github.com/ardanlabs/utxochain/foundation/blockchain/signature"
)

// Set of error kinds returned when validating blocks and transactions. Callers
// should check for a kind using errors.Is since every error returned is
// wrapped with additional context.
var (
	ErrInvalidBlock            = errors.New("invalid block")
	ErrInvalidMerkleRoot       = errors.New("invalid merkle root")
	ErrInvalidTransaction      = errors.New("invalid transaction")
	ErrInvalidTransactionInput = errors.New("invalid transaction input")
)

// ErrData is returned when persisted or transmitted data can't be decoded.
var ErrData = signature.ErrData

// ErrNotFound is returned by storage when a block does not exist.
var ErrNotFound = errors.New("block not found")
