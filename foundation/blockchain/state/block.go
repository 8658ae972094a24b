package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/ardanlabs/utxochain/foundation/blockchain/signature"
)

// ErrNoTransactions is returned when a block is requested to be created
// and there are not enough transactions.
var ErrNoTransactions = errors.New("no transactions in mempool")

// =============================================================================

// MineNewBlock attempts to create a new block with a proper hash that can become
// the next block in the chain. An empty chain mines its genesis block.
func (s *State) MineNewBlock(ctx context.Context) (database.Block, error) {
	s.evHandler("state: MineNewBlock: MINING: check mempool count")

	// Are there enough transactions in the pool.
	if s.chain.Height() > 0 && s.chain.MempoolCount() == 0 {
		return database.Block{}, ErrNoTransactions
	}

	tmpl, err := s.chain.BlockTemplate(s.minerPublicKey)
	if err != nil {
		return database.Block{}, err
	}

	s.evHandler("state: MineNewBlock: MINING: perform POW: trans[%d]", len(tmpl.Trans))

	// Attempt to create a new block by solving the POW puzzle. This can be cancelled.
	t := time.Now()
	block, err := database.POW(ctx, database.POWArgs{
		Block:      tmpl,
		Goroutines: s.minerGoroutines,
		Steps:      s.miningSteps,
		EvHandler:  s.evHandler,
	})
	if err != nil {
		return database.Block{}, err
	}
	s.metrics.mineTime.Observe(time.Since(t).Seconds())

	// Just check one more time we were not cancelled.
	if ctx.Err() != nil {
		return database.Block{}, ctx.Err()
	}

	s.evHandler("state: MineNewBlock: MINING: validate and update database")

	// Validate the block and then update the blockchain database.
	if err := s.validateUpdateDatabase(block); err != nil {
		return database.Block{}, err
	}

	return block, nil
}

// ProcessProposedBlock takes a block received from a peer or a miner,
// validates it and if that passes, adds the block to the local blockchain.
func (s *State) ProcessProposedBlock(block database.Block) error {
	s.evHandler("state: ProcessProposedBlock: started: prevBlk[%s]: newBlk[%s]: numTrans[%d]", block.Header.PrevBlockHash, block.Hash(), len(block.Trans))
	defer s.evHandler("state: ProcessProposedBlock: completed: newBlk[%s]", block.Hash())

	// Validate the block and then update the blockchain database.
	if err := s.validateUpdateDatabase(block); err != nil {
		return err
	}

	// A search in flight is now building on a stale tip. The miner stays
	// parked until done is called so no new search starts before this
	// function returns.
	if s.Worker != nil {
		done := s.Worker.SignalCancelMining()
		defer func() {
			s.evHandler("state: ProcessProposedBlock: release miner")
			done()
		}()
	}

	return nil
}

// BlockTemplate returns the next block for a miner paying the public key. The
// header still needs to be solved.
func (s *State) BlockTemplate(pk signature.PublicKey) (database.Block, error) {
	if !pk.IsValid() {
		return database.Block{}, fmt.Errorf("invalid public key %q", pk.Hex())
	}

	return s.chain.BlockTemplate(pk)
}

// ValidateTemplate reports whether the block would be accepted once solved.
func (s *State) ValidateTemplate(block database.Block) error {
	return s.chain.ValidateTemplate(block)
}

// =============================================================================

// validateUpdateDatabase takes the block and validates the block against the
// consensus rules. If the block passes, then the state of the node is updated
// including adding the block to storage.
func (s *State) validateUpdateDatabase(block database.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	height := s.chain.Height()

	s.evHandler("state: validateUpdateDatabase: validate and apply block: blk[%d]", height)

	err := s.chain.AddBlock(block)
	s.metrics.blocks.WithLabelValues(result(err)).Inc()
	if err != nil {
		return err
	}

	s.evHandler("state: validateUpdateDatabase: write to storage: blk[%d]", height)

	// The ledger already holds the block. A failed write leaves storage
	// behind and the node must be resynced from peers after a restart.
	if err := s.storage.Write(database.NewBlockData(height, block)); err != nil {
		return fmt.Errorf("writing block %d: %w", height, err)
	}

	s.metrics.observe(s.chain)

	// Send an event about this new block.
	s.blockEvent(height, block)

	return nil
}

// blockEvent publishes the new block as JSON for websocket clients
// subscribed to the explorer topic.
func (s *State) blockEvent(height uint64, block database.Block) {
	blockHeaderJSON, err := json.Marshal(&block.Header)
	if err != nil {
		blockHeaderJSON = []byte(fmt.Sprintf("%q", err.Error()))
	}

	blockTransJSON, err := json.Marshal(block.Trans)
	if err != nil {
		blockTransJSON = []byte(fmt.Sprintf("%q", err.Error()))
	}

	s.evHandler(`explorer: block: {"height":%d,"hash":%q,"header":%s,"trans":%s}`, height, block.Hash(), string(blockHeaderJSON), string(blockTransJSON))
}
