// Package memory implements the ability to read and write blocks to memory
// using a slice.
package memory

import (
	"fmt"
	"sync"

	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
)

// Memory represents the serialization implementation for reading and storing
// blocks in memory using a slice. This implements the database.Storage
// interface.
type Memory struct {
	mu     sync.RWMutex
	blocks []database.BlockData
}

// New constructs an Memory value for use.
func New() *Memory {
	return &Memory{}
}

// Close in this implementation has nothing to do since everything
// is in memory.
func (m *Memory) Close() error {
	return nil
}

// Write takes the specified block data and stores it in memory. Blocks must
// be written in height order.
func (m *Memory) Write(blockData database.BlockData) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if l := uint64(len(m.blocks)); blockData.Height != l {
		return fmt.Errorf("block %d is out of order, expecting %d", blockData.Height, l)
	}

	m.blocks = append(m.blocks, blockData)

	return nil
}

// GetBlock returns the block stored at the specified height.
func (m *Memory) GetBlock(height uint64) (database.BlockData, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if height >= uint64(len(m.blocks)) {
		return database.BlockData{}, fmt.Errorf("%w: height %d", database.ErrNotFound, height)
	}

	return m.blocks[height], nil
}

// ForEach returns an iterator to walk through all the blocks starting with
// the block at height 0.
func (m *Memory) ForEach() database.Iterator {
	return &memoryIterator{storage: m}
}

// Reset will clear out the blockchain.
func (m *Memory) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.blocks = nil
	return nil
}

// =============================================================================

// memoryIterator represents the iteration implementation for walking
// through and reading blocks in memory. This implements the database
// Iterator interface.
type memoryIterator struct {
	storage *Memory // Access to the storage API.
	current uint64  // Current block height being iterated over.
	eoc     bool    // Represents the iterator is at the end of the chain.
}

// Next retrieves the next block from memory.
func (mi *memoryIterator) Next() (database.BlockData, error) {
	if mi.eoc {
		return database.BlockData{}, database.ErrNotFound
	}

	blockData, err := mi.storage.GetBlock(mi.current)
	if err != nil {
		mi.eoc = true
		return database.BlockData{}, err
	}

	mi.current++

	return blockData, nil
}

// Done returns the end of chain value.
func (mi *memoryIterator) Done() bool {
	return mi.eoc
}
