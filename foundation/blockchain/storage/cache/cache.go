// Package cache provides a storage decorator that keeps recently used blocks
// in an LRU cache in front of another storage implementation.
package cache

import (
	"fmt"

	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultSize is the number of blocks kept when no size is provided.
const DefaultSize = 256

// Cache wraps a storage implementation. Writes go through to the underlying
// storage and populate the cache. This implements the database.Storage
// interface.
type Cache struct {
	storage database.Storage
	blocks  *lru.Cache[uint64, database.BlockData]
}

// New constructs a cache of the specified size in front of the storage.
func New(storage database.Storage, size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultSize
	}

	blocks, err := lru.New[uint64, database.BlockData](size)
	if err != nil {
		return nil, fmt.Errorf("constructing lru: %w", err)
	}

	c := Cache{
		storage: storage,
		blocks:  blocks,
	}

	return &c, nil
}

// Close closes the underlying storage.
func (c *Cache) Close() error {
	c.blocks.Purge()
	return c.storage.Close()
}

// Write stores the block and caches it.
func (c *Cache) Write(blockData database.BlockData) error {
	if err := c.storage.Write(blockData); err != nil {
		return err
	}

	c.blocks.Add(blockData.Height, blockData)
	return nil
}

// GetBlock returns the block from the cache or the underlying storage.
func (c *Cache) GetBlock(height uint64) (database.BlockData, error) {
	if blockData, ok := c.blocks.Get(height); ok {
		return blockData, nil
	}

	blockData, err := c.storage.GetBlock(height)
	if err != nil {
		return database.BlockData{}, err
	}

	c.blocks.Add(height, blockData)
	return blockData, nil
}

// ForEach iterates over the underlying storage. A full walk of the chain is
// not cached so it doesn't evict the recently used blocks.
func (c *Cache) ForEach() database.Iterator {
	return c.storage.ForEach()
}

// Reset clears the cache and the underlying storage.
func (c *Cache) Reset() error {
	c.blocks.Purge()
	return c.storage.Reset()
}

// Len returns the number of cached blocks.
func (c *Cache) Len() int {
	return c.blocks.Len()
}
