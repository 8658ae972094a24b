// Package state is the core API for the blockchain node. It owns the ledger,
// keeps storage in step with it and coordinates the worker and the peers.
package state

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ardanlabs/utxochain/foundation/blockchain/chain"
	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/ardanlabs/utxochain/foundation/blockchain/genesis"
	"github.com/ardanlabs/utxochain/foundation/blockchain/network"
	"github.com/ardanlabs/utxochain/foundation/blockchain/peer"
	"github.com/ardanlabs/utxochain/foundation/blockchain/signature"
	"github.com/prometheus/client_golang/prometheus"
)

// EventHandler defines a function that is called when events
// occur in the processing of persisting blocks.
type EventHandler func(v string, args ...any)

// Worker interface represents the behavior required to be implemented by any
// package providing support for mining, peer updates, and transaction sharing.
type Worker interface {
	Shutdown()
	Sync()
	SignalSync()
	SignalStartMining()
	SignalCancelMining() (done func())
	SignalShareTx(tx database.Tx)
}

// =============================================================================

// Config represents the configuration required to start
// the blockchain node.
type Config struct {
	MinerPublicKey  signature.PublicKey
	Host            string
	Storage         database.Storage
	Genesis         genesis.Genesis
	KnownPeers      *peer.PeerSet
	Client          *network.Client
	MinerGoroutines int
	MiningSteps     uint64
	Registerer      prometheus.Registerer
	EvHandler       EventHandler
}

// State manages the blockchain node.
type State struct {
	mu sync.Mutex

	minerPublicKey  signature.PublicKey
	host            string
	minerGoroutines int
	miningSteps     uint64
	evHandler       EventHandler

	genesis    genesis.Genesis
	chain      *chain.Blockchain
	storage    database.Storage
	knownPeers *peer.PeerSet
	client     *network.Client
	metrics    *metrics

	Worker Worker
}

// New constructs the node state and replays the blocks held in storage.
func New(cfg Config) (*State, error) {

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	if cfg.Storage == nil {
		return nil, errors.New("storage is required")
	}

	if err := cfg.Genesis.Validate(); err != nil {
		return nil, err
	}

	knownPeers := cfg.KnownPeers
	if knownPeers == nil {
		knownPeers = peer.NewPeerSet()
	}

	client := cfg.Client
	if client == nil {
		client = network.NewClient(5 * time.Second)
	}

	reg := cfg.Registerer
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	m, err := newMetrics(reg)
	if err != nil {
		return nil, err
	}

	state := State{
		minerPublicKey:  cfg.MinerPublicKey,
		host:            cfg.Host,
		minerGoroutines: cfg.MinerGoroutines,
		miningSteps:     cfg.MiningSteps,
		evHandler:       ev,

		genesis:    cfg.Genesis,
		chain:      chain.New(cfg.Genesis, chain.EventHandler(ev)),
		storage:    cfg.Storage,
		knownPeers: knownPeers,
		client:     client,
		metrics:    m,
	}

	if err := state.replay(); err != nil {
		return nil, err
	}

	// The Worker is not set here. The call to worker.Run will assign itself
	// and start everything up and running for the node.

	return &state, nil
}

// replay validates every stored block through the ledger so the in memory
// state matches storage.
func (s *State) replay() error {
	s.evHandler("state: replay: started")

	iter := s.storage.ForEach()
	for blockData, err := iter.Next(); !iter.Done(); blockData, err = iter.Next() {
		if err != nil {
			return fmt.Errorf("reading block: %w", err)
		}

		block, err := database.ToBlock(blockData)
		if err != nil {
			return err
		}

		if err := s.chain.AddBlock(block); err != nil {
			return fmt.Errorf("replaying block %d: %w", blockData.Height, err)
		}
	}

	s.metrics.observe(s.chain)
	s.evHandler("state: replay: completed: height[%d]", s.chain.Height())

	return nil
}

// Shutdown cleanly brings the node down.
func (s *State) Shutdown() error {
	s.evHandler("state: shutdown: started")
	defer s.evHandler("state: shutdown: completed")

	// Stop all blockchain writing activity.
	if s.Worker != nil {
		s.Worker.Shutdown()
	}

	return s.storage.Close()
}

// Truncate resets the chain both in storage and in memory.
func (s *State) Truncate() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.evHandler("state: truncate: started")
	defer s.evHandler("state: truncate: completed")

	s.chain.Reset()
	s.metrics.observe(s.chain)

	return s.storage.Reset()
}
