package chain

import (
	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/ardanlabs/utxochain/foundation/blockchain/signature"
)

// BlockTemplate assembles the next block for the miner: a coinbase paying the
// block reward plus the fees to the public key followed by the highest fee
// pending transactions. The header is not solved. The timestamp is the
// current time unless that does not move past the parent.
func (bc *Blockchain) BlockTemplate(pk signature.PublicKey) (database.Block, error) {
	bc.mu.RLock()
	defer bc.mu.RUnlock()

	height := uint64(len(bc.blocks))
	timeStamp := uint64(bc.now().UTC().Unix())

	var prevHash signature.Digest
	if height > 0 {
		last := bc.blocks[height-1]
		prevHash = last.Hash()
		timeStamp = max(timeStamp, last.Header.TimeStamp+1)
	}

	maxTrans := int(bc.genesis.TransPerBlock) - 1

	var fees uint64
	trans := []database.Tx{{}}

	// The genesis block only pays the reward.
	if height > 0 {
		for _, e := range bc.mempool.Copy() {
			if len(trans)-1 >= maxTrans {
				break
			}
			trans = append(trans, e.Tx)
			fees += e.Fee
		}
	}

	trans[0] = database.NewCoinbaseTx(database.NewTxOutput(bc.genesis.BlockReward(height)+fees, pk))

	block, err := database.NewBlock(prevHash, &bc.target, timeStamp, trans)
	if err != nil {
		return database.Block{}, err
	}

	bc.evHandler("chain: BlockTemplate: blk[%d]: trans[%d]: fees[%d]", height, len(trans), fees)

	return block, nil
}
