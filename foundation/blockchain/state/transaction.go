package state

import "github.com/ardanlabs/utxochain/foundation/blockchain/database"

// SubmitTransaction accepts a transaction from a wallet for inclusion. The
// transaction is shared with the known peers.
func (s *State) SubmitTransaction(tx database.Tx) error {
	if err := s.upsertMempool(tx); err != nil {
		return err
	}

	if s.Worker != nil {
		s.Worker.SignalShareTx(tx)
		s.Worker.SignalStartMining()
	}

	return nil
}

// UpsertNodeTransaction accepts a transaction relayed by another node. It is
// not shared again.
func (s *State) UpsertNodeTransaction(tx database.Tx) error {
	if err := s.upsertMempool(tx); err != nil {
		return err
	}

	if s.Worker != nil {
		s.Worker.SignalStartMining()
	}

	return nil
}

func (s *State) upsertMempool(tx database.Tx) error {
	err := s.chain.AddToMempool(tx)
	s.metrics.trans.WithLabelValues(result(err)).Inc()
	s.metrics.observe(s.chain)

	return err
}
