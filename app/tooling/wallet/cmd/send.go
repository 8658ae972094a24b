package cmd

import (
	"cmp"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/ardanlabs/utxochain/foundation/blockchain/genesis"
	"github.com/ardanlabs/utxochain/foundation/blockchain/network"
	"github.com/ardanlabs/utxochain/foundation/blockchain/signature"
	"github.com/ardanlabs/utxochain/foundation/nameservice"
	"github.com/spf13/cobra"
)

var (
	sendTo     string
	sendAmount string
	sendFee    string
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send coins to another account",
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := genesis.ParseCoins(sendAmount)
		if err != nil {
			return usageErr(err)
		}
		if amount == 0 {
			return usageErr(errors.New("amount must be positive"))
		}

		fee, err := genesis.ParseCoins(sendFee)
		if err != nil {
			return usageErr(err)
		}

		to, err := resolveAccount(sendTo)
		if err != nil {
			return usageErr(err)
		}

		privateKey, err := signature.LoadPrivateKey(privateKeyPath())
		if err != nil {
			return dataErr(err)
		}
		from := signature.ToPublicKey(privateKey.PublicKey)

		utxos, err := fetchUTXOs(cmd, from)
		if err != nil {
			return err
		}

		tx, err := buildTx(utxos, privateKey, to, amount, fee)
		if err != nil {
			return dataErr(err)
		}

		if err := client().Notify(cmd.Context(), nodeHost, network.SubmitTransaction(tx)); err != nil {
			return networkErr(err)
		}

		// The node doesn't answer a submission. Its inputs are reserved once
		// the transaction is in the mempool.
		if err := awaitReserved(cmd, from, tx); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "transaction %s submitted: %s to %s fee %s\n", tx.Hash(), genesis.FormatCoins(amount), to.Hex(), genesis.FormatCoins(fee))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVarP(&sendTo, "to", "t", "", "Account name or public key in hex to send to.")
	sendCmd.Flags().StringVarP(&sendAmount, "amount", "v", "", "Coins to send.")
	sendCmd.Flags().StringVarP(&sendFee, "fee", "f", "0", "Coins paid to the miner.")
	sendCmd.MarkFlagRequired("to")
	sendCmd.MarkFlagRequired("amount")
}

// resolveAccount accepts a public key in hex or the name of a key in the
// account path.
func resolveAccount(account string) (signature.PublicKey, error) {
	if pk, err := signature.ToPublicKeyHex(account); err == nil {
		return pk, nil
	}

	ns, err := nameservice.New(accountPath)
	if err != nil {
		return signature.PublicKey{}, err
	}

	pk, ok := ns.PublicKey(account)
	if !ok {
		return signature.PublicKey{}, fmt.Errorf("unknown account %q", account)
	}

	return pk, nil
}

// buildTx spends unreserved outputs, largest first, until they cover the
// amount and the fee. Any remainder is returned to the sender.
func buildTx(utxos []network.UTXO, privateKey *ecdsa.PrivateKey, to signature.PublicKey, amount uint64, fee uint64) (database.Tx, error) {
	need := amount + fee
	if need < amount {
		return database.Tx{}, errors.New("amount plus fee overflows")
	}

	available := make([]network.UTXO, 0, len(utxos))
	for _, u := range utxos {
		if !u.Reserved {
			available = append(available, u)
		}
	}

	// Largest first keeps the number of inputs small.
	slices.SortFunc(available, func(a, b network.UTXO) int {
		return cmp.Compare(b.Output.Value, a.Output.Value)
	})

	var inputs []database.TxInput
	var total uint64
	for _, u := range available {
		if total >= need {
			break
		}

		in, err := database.NewTxInput(u.Output.Hash(), privateKey)
		if err != nil {
			return database.Tx{}, err
		}

		inputs = append(inputs, in)
		total += u.Output.Value
	}

	if total < need {
		return database.Tx{}, fmt.Errorf("insufficient funds: have %s, need %s", genesis.FormatCoins(total), genesis.FormatCoins(need))
	}

	outputs := []database.TxOutput{database.NewTxOutput(amount, to)}
	if change := total - need; change > 0 {
		outputs = append(outputs, database.NewTxOutput(change, signature.ToPublicKey(privateKey.PublicKey)))
	}

	return database.NewTx(inputs, outputs), nil
}

// awaitReserved polls the node until the inputs of the transaction are
// reserved by its mempool.
func awaitReserved(cmd *cobra.Command, from signature.PublicKey, tx database.Tx) error {
	spent := make(map[signature.Digest]bool, len(tx.Inputs))
	for _, in := range tx.Inputs {
		spent[in.PrevOutputHash] = true
	}

	for range 10 {
		utxos, err := fetchUTXOs(cmd, from)
		if err != nil {
			return err
		}

		reserved := 0
		for _, u := range utxos {
			if u.Reserved && spent[u.Output.Hash()] {
				reserved++
			}
		}
		if reserved == len(spent) {
			return nil
		}

		time.Sleep(200 * time.Millisecond)
	}

	return dataErr(fmt.Errorf("transaction %s was not accepted by the node", tx.Hash()))
}
