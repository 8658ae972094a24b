package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/ardanlabs/utxochain/foundation/blockchain/chain"
)

// Blocks writes the header of every block from the from height up to, but
// not including, the to height.
func Blocks(w io.Writer, bc *chain.Blockchain, from uint64, to uint64) error {
	if from > to {
		return fmt.Errorf("from %d greater than to %d", from, to)
	}

	for _, block := range bc.Blocks(from, to) {
		h := block.Header
		fmt.Fprintf(w, "Hash: %s  Prev: %s  Time: %s  Nonce: %d  Trans: %d  Target: %s\n",
			block.Hash(), h.PrevBlockHash, time.Unix(int64(h.TimeStamp), 0).UTC().Format(time.RFC3339), h.Nonce, len(block.Trans), h.Target.Hex())
	}

	return nil
}
