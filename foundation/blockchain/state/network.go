package state

import (
	"context"
	"errors"
	"fmt"

	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/ardanlabs/utxochain/foundation/blockchain/network"
	"github.com/ardanlabs/utxochain/foundation/blockchain/peer"
)

// NetSendBlockToPeers takes the new mined block and sends it to all known peers.
func (s *State) NetSendBlockToPeers(ctx context.Context, block database.Block) error {
	s.evHandler("state: NetSendBlockToPeers: started")
	defer s.evHandler("state: NetSendBlockToPeers: completed")

	var errs []error
	for _, pr := range s.RetrieveKnownPeers() {
		if err := s.client.Notify(ctx, pr.Host, network.NewBlock(block)); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", pr.Host, err))
			continue
		}

		s.evHandler("state: NetSendBlockToPeers: sent to peer[%s]", pr)
	}

	return errors.Join(errs...)
}

// NetSendTxToPeers shares a new transaction with the known peers.
func (s *State) NetSendTxToPeers(ctx context.Context, tx database.Tx) {
	s.evHandler("state: NetSendTxToPeers: started")
	defer s.evHandler("state: NetSendTxToPeers: completed")

	for _, pr := range s.RetrieveKnownPeers() {
		if err := s.client.Notify(ctx, pr.Host, network.NewTransaction(tx)); err != nil {
			s.evHandler("state: NetSendTxToPeers: WARNING: %s", err)
		}
	}
}

// NetRequestPeerDifference asks the peer how many blocks it holds beyond
// this node's height.
func (s *State) NetRequestPeerDifference(ctx context.Context, pr peer.Peer) (int64, error) {
	s.evHandler("state: NetRequestPeerDifference: started: %s", pr)
	defer s.evHandler("state: NetRequestPeerDifference: completed: %s", pr)

	resp, err := s.client.Request(ctx, pr.Host, network.AskDifference(s.chain.Height()))
	if err != nil {
		return 0, err
	}

	if resp.Kind != network.KindDifference {
		return 0, fmt.Errorf("%w: unexpected reply %s", network.ErrMessage, resp.Kind)
	}

	s.evHandler("state: NetRequestPeerDifference: peer-node[%s]: difference[%d]", pr, resp.Difference)

	return resp.Difference, nil
}

// NetRequestPeerBlocks fetches the blocks the peer holds beyond this node's
// height and applies them in order.
func (s *State) NetRequestPeerBlocks(ctx context.Context, pr peer.Peer) error {
	s.evHandler("state: NetRequestPeerBlocks: started: %s", pr)
	defer s.evHandler("state: NetRequestPeerBlocks: completed: %s", pr)

	diff, err := s.NetRequestPeerDifference(ctx, pr)
	if err != nil {
		return err
	}

	for ; diff > 0; diff-- {
		height := s.chain.Height()

		resp, err := s.client.Request(ctx, pr.Host, network.FetchBlock(height))
		if err != nil {
			return err
		}

		if resp.Kind != network.KindNewBlock {
			return fmt.Errorf("%w: unexpected reply %s", network.ErrMessage, resp.Kind)
		}

		s.evHandler("state: NetRequestPeerBlocks: peer-node[%s]: blk[%d]: hash[%s]", pr, height, resp.Block.Hash())

		if err := s.ProcessProposedBlock(*resp.Block); err != nil {
			return fmt.Errorf("block %d from %s: %w", height, pr.Host, err)
		}
	}

	return nil
}

// NetRequestPeerNodes asks the peer for the nodes it knows about.
func (s *State) NetRequestPeerNodes(ctx context.Context, pr peer.Peer) ([]peer.Peer, error) {
	s.evHandler("state: NetRequestPeerNodes: started: %s", pr)
	defer s.evHandler("state: NetRequestPeerNodes: completed: %s", pr)

	resp, err := s.client.Request(ctx, pr.Host, network.DiscoverNodes())
	if err != nil {
		return nil, err
	}

	if resp.Kind != network.KindNodeList {
		return nil, fmt.Errorf("%w: unexpected reply %s", network.ErrMessage, resp.Kind)
	}

	peers := make([]peer.Peer, len(resp.Nodes))
	for i, host := range resp.Nodes {
		peers[i] = peer.New(host)
	}

	return peers, nil
}

// =============================================================================

// HandleMessage answers a message received from a wallet or another node.
// A nil message means there is nothing to send back.
func (s *State) HandleMessage(ctx context.Context, msg network.Message) (*network.Message, error) {
	s.evHandler("state: HandleMessage: %s", msg)

	reply := func(m network.Message) (*network.Message, error) {
		return &m, nil
	}

	switch msg.Kind {
	case network.KindFetchUTXOs:
		return reply(network.UTXOs(s.QueryUTXOs(msg.PublicKey)))

	case network.KindSubmitTransaction:
		if err := s.SubmitTransaction(*msg.Tx); err != nil {
			return nil, err
		}
		return nil, nil

	case network.KindNewTransaction:
		if err := s.UpsertNodeTransaction(*msg.Tx); err != nil {
			return nil, err
		}
		return nil, nil

	case network.KindFetchTemplate:
		block, err := s.BlockTemplate(msg.PublicKey)
		if err != nil {
			return nil, err
		}
		return reply(network.Template(block))

	case network.KindValidateTemplate:
		err := s.ValidateTemplate(*msg.Block)
		if err != nil {
			s.evHandler("state: HandleMessage: template rejected: %s", err)
		}
		return reply(network.TemplateValidity(err == nil))

	case network.KindSubmitTemplate:
		block := *msg.Block
		if err := s.ProcessProposedBlock(block); err != nil {
			return nil, err
		}
		if err := s.NetSendBlockToPeers(ctx, block); err != nil {
			s.evHandler("state: HandleMessage: WARNING: %s", err)
		}
		return nil, nil

	case network.KindDiscoverNodes:
		return reply(network.NodeList(s.knownPeers.Hosts(s.host)))

	case network.KindAskDifference:
		return reply(network.Difference(s.HeightDifference(msg.Height)))

	case network.KindFetchBlock:
		block, err := s.QueryBlock(msg.Height)
		if err != nil {
			return nil, err
		}
		return reply(network.NewBlock(block))

	case network.KindNewBlock:
		block := *msg.Block
		if err := s.ProcessProposedBlock(block); err != nil {

			// A block that doesn't build on our tip may mean this node fell
			// behind. Ask the worker to catch up.
			if latest, ok := s.chain.LatestBlock(); ok && latest.Hash() != block.Header.PrevBlockHash && s.Worker != nil {
				s.Worker.SignalSync()
			}
			return nil, err
		}
		return nil, nil
	}

	return nil, fmt.Errorf("%w: %s is not a request", network.ErrMessage, msg.Kind)
}
