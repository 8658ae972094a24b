// Package disk implements the ability to read and write blocks to disk
// writing each block to a separate file.
package disk

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/ardanlabs/utxochain/foundation/blockchain/signature"
)

// Disk represents the serialization implementation for reading and storing
// blocks in their own separate files on disk. This implements the
// database.Storage interface.
type Disk struct {
	dbPath string
}

// New constructs a Disk value for use.
func New(dbPath string) (*Disk, error) {
	if err := os.MkdirAll(dbPath, 0755); err != nil {
		return nil, err
	}

	return &Disk{dbPath: dbPath}, nil
}

// Close in this implementation has nothing to do since a new file is
// written to disk for each new block and then immediately closed.
func (d *Disk) Close() error {
	return nil
}

// Write takes the specified block data and stores it on disk in a file
// labeled with the block height. The file is written to a temporary name
// first so a crash never leaves a partial block behind.
func (d *Disk) Write(blockData database.BlockData) error {
	data, err := signature.Encode(blockData)
	if err != nil {
		return fmt.Errorf("encoding block %d: %w", blockData.Height, err)
	}

	path := d.getPath(blockData.Height)
	tmp := path + ".tmp"

	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}

	return os.Rename(tmp, path)
}

// GetBlock searches the blockchain on disk to locate and return the
// contents of the specified block by height.
func (d *Disk) GetBlock(height uint64) (database.BlockData, error) {
	data, err := os.ReadFile(d.getPath(height))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
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
func (d *Disk) ForEach() database.Iterator {
	return &diskIterator{disk: d}
}

// Reset will clear out the blockchain on disk.
func (d *Disk) Reset() error {
	if err := os.RemoveAll(d.dbPath); err != nil {
		return err
	}

	return os.MkdirAll(d.dbPath, 0755)
}

// getPath forms the path to the specified block.
func (d *Disk) getPath(height uint64) string {
	name := strconv.FormatUint(height, 10)
	return filepath.Join(d.dbPath, name+".block")
}

// =============================================================================

// diskIterator represents the iteration implementation for walking
// through and reading blocks on disk. This implements the database
// Iterator interface.
type diskIterator struct {
	disk    *Disk  // Access to the disk storage API.
	current uint64 // Current block height being iterated over.
	eoc     bool   // Represents the iterator is at the end of the chain.
}

// Next retrieves the next block from disk.
func (di *diskIterator) Next() (database.BlockData, error) {
	if di.eoc {
		return database.BlockData{}, database.ErrNotFound
	}

	blockData, err := di.disk.GetBlock(di.current)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			di.eoc = true
		}
		return database.BlockData{}, err
	}

	di.current++

	return blockData, nil
}

// Done returns the end of chain value.
func (di *diskIterator) Done() bool {
	return di.eoc
}
