// Package badgerdb implements the ability to read and write blocks to a
// badger key value store. Blocks are keyed by their big endian height so the
// natural key order of the store is the order of the chain.
package badgerdb

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/ardanlabs/utxochain/foundation/blockchain/signature"
	"github.com/dgraph-io/badger"
)

var blockPrefix = []byte("block-")

// Badger represents the serialization implementation for reading and storing
// blocks in a badger database. This implements the database.Storage interface.
type Badger struct {
	db *badger.DB
}

// New opens or creates the badger database in the specified directory.
func New(dbPath string) (*Badger, error) {
	opts := badger.DefaultOptions(dbPath).WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening badger: %w", err)
	}

	return &Badger{db: db}, nil
}

// Close releases the database.
func (b *Badger) Close() error {
	return b.db.Close()
}

// Write stores the block data under its height.
func (b *Badger) Write(blockData database.BlockData) error {
	data, err := signature.Encode(blockData)
	if err != nil {
		return fmt.Errorf("encoding block %d: %w", blockData.Height, err)
	}

	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key(blockData.Height), data)
	})
}

// GetBlock returns the block stored at the specified height.
func (b *Badger) GetBlock(height uint64) (database.BlockData, error) {
	var data []byte

	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(height))
		if err != nil {
			return err
		}

		data, err = item.ValueCopy(nil)
		return err
	})

	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return database.BlockData{}, fmt.Errorf("%w: height %d", database.ErrNotFound, height)
		}
		return database.BlockData{}, err
	}

	var blockData database.BlockData
	if err := signature.Decode(data, &blockData); err != nil {
		return database.BlockData{}, fmt.Errorf("block %d: %w", height, err)
	}

	return blockData, nil
}

// ForEach returns an iterator to walk through all the blocks starting with
// the block at height 0.
func (b *Badger) ForEach() database.Iterator {
	return &badgerIterator{storage: b}
}

// Reset drops every block in the database.
func (b *Badger) Reset() error {
	return b.db.DropAll()
}

// =============================================================================

func key(height uint64) []byte {
	k := make([]byte, len(blockPrefix)+8)
	copy(k, blockPrefix)
	binary.BigEndian.PutUint64(k[len(blockPrefix):], height)
	return k
}

// badgerIterator walks the blocks by height. Reading one block per call keeps
// no badger transaction open between calls.
type badgerIterator struct {
	storage *Badger
	current uint64
	eoc     bool
}

// Next retrieves the next block from the database.
func (bi *badgerIterator) Next() (database.BlockData, error) {
	if bi.eoc {
		return database.BlockData{}, database.ErrNotFound
	}

	blockData, err := bi.storage.GetBlock(bi.current)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			bi.eoc = true
		}
		return database.BlockData{}, err
	}

	bi.current++

	return blockData, nil
}

// Done returns the end of chain value.
func (bi *badgerIterator) Done() bool {
	return bi.eoc
}
