package commands

import (
	"fmt"

	"github.com/ardanlabs/utxochain/foundation/blockchain/chain"
	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/ardanlabs/utxochain/foundation/blockchain/genesis"
)

// Replay validates every stored block through a fresh ledger. The first
// block that fails stops the replay.
func Replay(store database.Storage, gen genesis.Genesis) (*chain.Blockchain, error) {
	bc := chain.New(gen, nil)

	iter := store.ForEach()
	for blockData, err := iter.Next(); !iter.Done(); blockData, err = iter.Next() {
		if err != nil {
			return nil, fmt.Errorf("reading block: %w", err)
		}

		block, err := database.ToBlock(blockData)
		if err != nil {
			return nil, err
		}

		if err := bc.AddBlock(block); err != nil {
			return nil, fmt.Errorf("replaying block %d: %w", blockData.Height, err)
		}
	}

	return bc, nil
}
