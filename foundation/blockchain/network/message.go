// Package network provides the message protocol nodes and clients use to talk
// to each other. Every message is a CBOR encoded value prefixed with its length
// as an 8 byte big endian integer.
package network

import (
	"fmt"

	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/ardanlabs/utxochain/foundation/blockchain/signature"
)

// Kind identifies the request or response a message carries.
type Kind uint8

// Set of message kinds.
const (
	KindFetchUTXOs Kind = iota + 1
	KindUTXOs
	KindSubmitTransaction
	KindNewTransaction
	KindFetchTemplate
	KindTemplate
	KindValidateTemplate
	KindTemplateValidity
	KindSubmitTemplate
	KindDiscoverNodes
	KindNodeList
	KindAskDifference
	KindDifference
	KindFetchBlock
	KindNewBlock
	KindError
)

var kindNames = map[Kind]string{
	KindFetchUTXOs:        "FetchUTXOs",
	KindUTXOs:             "UTXOs",
	KindSubmitTransaction: "SubmitTransaction",
	KindNewTransaction:    "NewTransaction",
	KindFetchTemplate:     "FetchTemplate",
	KindTemplate:          "Template",
	KindValidateTemplate:  "ValidateTemplate",
	KindTemplateValidity:  "TemplateValidity",
	KindSubmitTemplate:    "SubmitTemplate",
	KindDiscoverNodes:     "DiscoverNodes",
	KindNodeList:          "NodeList",
	KindAskDifference:     "AskDifference",
	KindDifference:        "Difference",
	KindFetchBlock:        "FetchBlock",
	KindNewBlock:          "NewBlock",
	KindError:             "Error",
}

// String implements the fmt.Stringer interface.
func (k Kind) String() string {
	if name, exists := kindNames[k]; exists {
		return name
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// =============================================================================

// UTXO is an unspent output reported to a client. Reserved marks an output
// already claimed by a pending transaction.
type UTXO struct {
	Output   database.TxOutput `json:"output"`
	Reserved bool              `json:"reserved"`
}

// Message is the unit of communication. Only the fields that belong to the
// kind are set.
type Message struct {
	Kind       Kind                `json:"kind"`
	PublicKey  signature.PublicKey `json:"public_key,omitempty"`
	UTXOs      []UTXO              `json:"utxos,omitempty"`
	Tx         *database.Tx        `json:"tx,omitempty"`
	Block      *database.Block     `json:"block,omitempty"`
	Valid      bool                `json:"valid,omitempty"`
	Nodes      []string            `json:"nodes,omitempty"`
	Height     uint64              `json:"height,omitempty"`
	Difference int64               `json:"difference,omitempty"`
	Error      string              `json:"error,omitempty"`
}

// Validate checks the message carries the payload its kind requires.
func (m Message) Validate() error {
	switch m.Kind {
	case KindFetchUTXOs, KindFetchTemplate:
		if !m.PublicKey.IsValid() {
			return fmt.Errorf("%w: %s: invalid public key", ErrMessage, m.Kind)
		}

	case KindSubmitTransaction, KindNewTransaction:
		if m.Tx == nil {
			return fmt.Errorf("%w: %s: missing transaction", ErrMessage, m.Kind)
		}

	case KindTemplate, KindValidateTemplate, KindSubmitTemplate, KindNewBlock:
		if m.Block == nil {
			return fmt.Errorf("%w: %s: missing block", ErrMessage, m.Kind)
		}

	case KindUTXOs, KindTemplateValidity, KindDiscoverNodes, KindNodeList,
		KindAskDifference, KindDifference, KindFetchBlock, KindError:

	default:
		return fmt.Errorf("%w: unknown kind %d", ErrMessage, m.Kind)
	}

	return nil
}

// String implements the fmt.Stringer interface for logging.
func (m Message) String() string {
	switch m.Kind {
	case KindFetchUTXOs, KindFetchTemplate:
		return fmt.Sprintf("%s[%s]", m.Kind, m.PublicKey)
	case KindUTXOs:
		return fmt.Sprintf("%s[%d]", m.Kind, len(m.UTXOs))
	case KindSubmitTransaction, KindNewTransaction:
		if m.Tx != nil {
			return fmt.Sprintf("%s[%s]", m.Kind, m.Tx.Hash())
		}
	case KindTemplate, KindValidateTemplate, KindSubmitTemplate, KindNewBlock:
		if m.Block != nil {
			return fmt.Sprintf("%s[%s]", m.Kind, m.Block.Hash())
		}
	case KindTemplateValidity:
		return fmt.Sprintf("%s[%t]", m.Kind, m.Valid)
	case KindNodeList:
		return fmt.Sprintf("%s%v", m.Kind, m.Nodes)
	case KindAskDifference, KindFetchBlock:
		return fmt.Sprintf("%s[%d]", m.Kind, m.Height)
	case KindDifference:
		return fmt.Sprintf("%s[%d]", m.Kind, m.Difference)
	case KindError:
		return fmt.Sprintf("%s[%s]", m.Kind, m.Error)
	}

	return m.Kind.String()
}

// =============================================================================

// FetchUTXOs asks for the unspent outputs owned by the public key.
func FetchUTXOs(pk signature.PublicKey) Message {
	return Message{Kind: KindFetchUTXOs, PublicKey: pk}
}

// UTXOs answers FetchUTXOs.
func UTXOs(utxos database.UTXOSet) Message {
	entries := utxos.Entries()

	list := make([]UTXO, len(entries))
	for i, e := range entries {
		list[i] = UTXO{Output: e.Output, Reserved: e.Reserved}
	}

	return Message{Kind: KindUTXOs, UTXOs: list}
}

// SubmitTransaction sends a transaction from a wallet to a node.
func SubmitTransaction(tx database.Tx) Message {
	return Message{Kind: KindSubmitTransaction, Tx: &tx}
}

// NewTransaction relays a transaction between nodes.
func NewTransaction(tx database.Tx) Message {
	return Message{Kind: KindNewTransaction, Tx: &tx}
}

// FetchTemplate asks a node for a block template paying the public key.
func FetchTemplate(pk signature.PublicKey) Message {
	return Message{Kind: KindFetchTemplate, PublicKey: pk}
}

// Template answers FetchTemplate.
func Template(block database.Block) Message {
	return Message{Kind: KindTemplate, Block: &block}
}

// ValidateTemplate asks a node whether a template is still valid.
func ValidateTemplate(block database.Block) Message {
	return Message{Kind: KindValidateTemplate, Block: &block}
}

// TemplateValidity answers ValidateTemplate.
func TemplateValidity(valid bool) Message {
	return Message{Kind: KindTemplateValidity, Valid: valid}
}

// SubmitTemplate sends a mined block to a node.
func SubmitTemplate(block database.Block) Message {
	return Message{Kind: KindSubmitTemplate, Block: &block}
}

// DiscoverNodes asks a node for the peers it knows about.
func DiscoverNodes() Message {
	return Message{Kind: KindDiscoverNodes}
}

// NodeList answers DiscoverNodes.
func NodeList(nodes []string) Message {
	return Message{Kind: KindNodeList, Nodes: nodes}
}

// AskDifference asks a node how many blocks it has beyond the height.
func AskDifference(height uint64) Message {
	return Message{Kind: KindAskDifference, Height: height}
}

// Difference answers AskDifference.
func Difference(diff int64) Message {
	return Message{Kind: KindDifference, Difference: diff}
}

// FetchBlock asks a node for the block at the height.
func FetchBlock(height uint64) Message {
	return Message{Kind: KindFetchBlock, Height: height}
}

// NewBlock broadcasts a block to other nodes. It also answers FetchBlock.
func NewBlock(block database.Block) Message {
	return Message{Kind: KindNewBlock, Block: &block}
}

// Error reports a failure to process a request.
func Error(err error) Message {
	return Message{Kind: KindError, Error: err.Error()}
}
