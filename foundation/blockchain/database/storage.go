package database

// Storage interface represents the behavior required to be implemented by any
// package providing support for storing and reading the blockchain.
type Storage interface {
	Write(blockData BlockData) error
	GetBlock(height uint64) (BlockData, error)
	ForEach() Iterator
	Close() error
	Reset() error
}

// Iterator interface represents the behavior required to be implemented by any
// package providing support to iterate over the blocks in height order.
type Iterator interface {
	Next() (BlockData, error)
	Done() bool
}
