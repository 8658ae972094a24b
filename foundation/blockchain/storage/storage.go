// Package storage selects a block storage implementation by name.
package storage

import (
	"fmt"

	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/ardanlabs/utxochain/foundation/blockchain/storage/badgerdb"
	"github.com/ardanlabs/utxochain/foundation/blockchain/storage/cache"
	"github.com/ardanlabs/utxochain/foundation/blockchain/storage/disk"
	"github.com/ardanlabs/utxochain/foundation/blockchain/storage/memory"
)

// Set of supported storage kinds.
const (
	KindMemory = "memory"
	KindDisk   = "disk"
	KindBadger = "badger"
)

// Open constructs the storage of the specified kind rooted at path. A
// positive cache size wraps the storage with a cache of recent blocks.
func Open(kind string, path string, cacheSize int) (database.Storage, error) {
	var store database.Storage

	switch kind {
	case KindMemory:
		store = memory.New()

	case KindDisk:
		d, err := disk.New(path)
		if err != nil {
			return nil, fmt.Errorf("unable to open disk storage: %w", err)
		}
		store = d

	case KindBadger:
		b, err := badgerdb.New(path)
		if err != nil {
			return nil, fmt.Errorf("unable to open badger storage: %w", err)
		}
		store = b

	default:
		return nil, fmt.Errorf("unknown storage kind %q", kind)
	}

	if cacheSize <= 0 {
		return store, nil
	}

	c, err := cache.New(store, cacheSize)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("unable to construct block cache: %w", err)
	}

	return c, nil
}
