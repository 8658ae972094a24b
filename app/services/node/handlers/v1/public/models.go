package public

import (
	"time"

	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/ardanlabs/utxochain/foundation/blockchain/signature"
)

type status struct {
	Host        string           `json:"host"`
	Height      uint64           `json:"height"`
	LatestBlock signature.Digest `json:"latest_block"`
	Target      string           `json:"target"`
	Mempool     int              `json:"mempool"`
	Peers       []string         `json:"peers"`
}

type utxo struct {
	Hash     signature.Digest `json:"hash"`
	Value    uint64           `json:"value"`
	Coins    string           `json:"coins"`
	Reserved bool             `json:"reserved"`
}

type utxos struct {
	Name    string `json:"name"`
	Account string `json:"account"`
	Balance uint64 `json:"balance"`
	Coins   string `json:"coins"`
	UTXOs   []utxo `json:"utxos"`
}

type mempoolTx struct {
	Hash      signature.Digest `json:"hash"`
	TimeStamp time.Time        `json:"timestamp"`
	Fee       uint64           `json:"fee"`
	Inputs    int              `json:"inputs"`
	Outputs   []txOutput       `json:"outputs"`
}

type txOutput struct {
	To    string `json:"to"`
	Value uint64 `json:"value"`
}

// submitTx is the payload for a signed transaction. The transaction is built
// and signed by the wallet.
type submitTx struct {
	Inputs  []database.TxInput  `json:"inputs" validate:"required,min=1"`
	Outputs []database.TxOutput `json:"outputs" validate:"required,min=1"`
}
