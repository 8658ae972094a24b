package commands

import (
	"cmp"
	"fmt"
	"io"
	"slices"

	"github.com/ardanlabs/utxochain/foundation/blockchain/chain"
	"github.com/ardanlabs/utxochain/foundation/blockchain/genesis"
	"github.com/ardanlabs/utxochain/foundation/blockchain/signature"
	"github.com/ardanlabs/utxochain/foundation/nameservice"
)

// Balances writes the balance of every account holding unspent outputs,
// largest first. A non empty account limits the output to that account
// which can be a known name or a public key in hex.
func Balances(w io.Writer, bc *chain.Blockchain, ns *nameservice.NameService, account string) error {
	var only signature.PublicKey
	if account != "" {
		pk, ok := ns.PublicKey(account)
		if !ok {
			var err error
			if pk, err = signature.ToPublicKeyHex(account); err != nil {
				return fmt.Errorf("unknown account %q", account)
			}
		}
		only = pk
	}

	type balance struct {
		pk    signature.PublicKey
		value uint64
		utxos int
	}

	byOwner := make(map[string]*balance)
	for _, utxo := range bc.UTXOs() {
		pk := utxo.Output.PublicKey
		if only != nil && !pk.Equal(only) {
			continue
		}

		b, exists := byOwner[pk.Hex()]
		if !exists {
			b = &balance{pk: pk}
			byOwner[pk.Hex()] = b
		}
		b.value += utxo.Output.Value
		b.utxos++
	}

	list := make([]*balance, 0, len(byOwner))
	for _, b := range byOwner {
		list = append(list, b)
	}
	slices.SortFunc(list, func(a, b *balance) int {
		if c := cmp.Compare(b.value, a.value); c != 0 {
			return c
		}
		return cmp.Compare(a.pk.Hex(), b.pk.Hex())
	})

	if latest, ok := bc.LatestBlock(); ok {
		fmt.Fprintf(w, "LatestBlockHash: %s  Height: %d\n\n", latest.Hash(), bc.Height())
	}

	for _, b := range list {
		fmt.Fprintf(w, "Account: %s  Balance: %s  UTXOs: %d\n", ns.Lookup(b.pk), genesis.FormatCoins(b.value), b.utxos)
	}

	if only != nil && len(list) == 0 {
		fmt.Fprintf(w, "Account: %s  Balance: %s  UTXOs: 0\n", ns.Lookup(only), genesis.FormatCoins(0))
	}

	return nil
}
