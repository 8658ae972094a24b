package state

import (
	"fmt"

	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/ardanlabs/utxochain/foundation/blockchain/genesis"
	"github.com/ardanlabs/utxochain/foundation/blockchain/mempool"
	"github.com/ardanlabs/utxochain/foundation/blockchain/peer"
	"github.com/ardanlabs/utxochain/foundation/blockchain/signature"
	"github.com/holiman/uint256"
)

// QueryLatest represents to query the latest block in the chain.
const QueryLatest = ^uint64(0) >> 1

// =============================================================================

// QueryUTXOs returns the unspent outputs owned by the public key.
func (s *State) QueryUTXOs(pk signature.PublicKey) database.UTXOSet {
	return s.chain.UTXOsByPublicKey(pk)
}

// QueryMempoolLength returns the current length of the mempool.
func (s *State) QueryMempoolLength() int {
	return s.chain.MempoolCount()
}

// QueryBlock returns the block at the specified height. The block is read
// from storage.
func (s *State) QueryBlock(height uint64) (database.Block, error) {
	blockData, err := s.storage.GetBlock(height)
	if err != nil {
		return database.Block{}, err
	}

	return database.ToBlock(blockData)
}

// QueryBlocksByHeight returns the blocks in the inclusive range. QueryLatest
// can be used for either bound.
func (s *State) QueryBlocksByHeight(from uint64, to uint64) ([]database.Block, error) {
	height := s.chain.Height()
	if height == 0 {
		return nil, nil
	}

	if from == QueryLatest {
		from = height - 1
	}
	if from >= height {
		return nil, nil
	}
	if to == QueryLatest || to >= height {
		to = height - 1
	}

	if from > to {
		return nil, fmt.Errorf("invalid range %d to %d", from, to)
	}

	out := make([]database.Block, 0, to-from+1)
	for h := from; h <= to; h++ {
		block, err := s.QueryBlock(h)
		if err != nil {
			return nil, err
		}
		out = append(out, block)
	}

	return out, nil
}

// HeightDifference returns how many blocks this node has beyond the
// specified height. A negative value means the caller is ahead.
func (s *State) HeightDifference(height uint64) int64 {
	return int64(s.chain.Height()) - int64(height)
}

// =============================================================================

// RetrieveHost returns a copy of host information.
func (s *State) RetrieveHost() string {
	return s.host
}

// RetrieveGenesis returns a copy of the genesis information.
func (s *State) RetrieveGenesis() genesis.Genesis {
	return s.genesis
}

// RetrieveHeight returns the number of blocks in the chain.
func (s *State) RetrieveHeight() uint64 {
	return s.chain.Height()
}

// RetrieveTarget returns the current target.
func (s *State) RetrieveTarget() *uint256.Int {
	return s.chain.Target()
}

// RetrieveLatestBlock returns a copy the current latest block. The second
// value is false when the chain is empty.
func (s *State) RetrieveLatestBlock() (database.Block, bool) {
	return s.chain.LatestBlock()
}

// RetrieveMempool returns a copy of the mempool.
func (s *State) RetrieveMempool() []mempool.Entry {
	return s.chain.Mempool()
}

// RetrieveKnownPeers retrieves a copy of the known peer list.
func (s *State) RetrieveKnownPeers() []peer.Peer {
	return s.knownPeers.Copy(s.host)
}

// IsMiningAllowed reports whether the node has a key to pay mined blocks to.
func (s *State) IsMiningAllowed() bool {
	return s.minerPublicKey.IsValid()
}

// RetrieveMinerPublicKey returns the key mined blocks pay to.
func (s *State) RetrieveMinerPublicKey() signature.PublicKey {
	return s.minerPublicKey
}

// =============================================================================

// AddKnownPeer provides the ability to add a new peer.
func (s *State) AddKnownPeer(peer peer.Peer) bool {
	if peer.Match(s.host) {
		return false
	}
	return s.knownPeers.Add(peer)
}

// RemoveKnownPeer removes the peer from the known peers.
func (s *State) RemoveKnownPeer(peer peer.Peer) {
	s.knownPeers.Remove(peer)
}
