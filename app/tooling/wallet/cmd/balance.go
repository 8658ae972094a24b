package cmd

import (
	"fmt"

	"github.com/ardanlabs/utxochain/foundation/blockchain/genesis"
	"github.com/ardanlabs/utxochain/foundation/blockchain/network"
	"github.com/ardanlabs/utxochain/foundation/blockchain/signature"
	"github.com/spf13/cobra"
)

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Print the balance of the account",
	RunE: func(cmd *cobra.Command, args []string) error {
		pk, err := signature.LoadPublicKey(publicKeyPath())
		if err != nil {
			return dataErr(err)
		}

		utxos, err := fetchUTXOs(cmd, pk)
		if err != nil {
			return err
		}

		var total, reserved uint64
		for _, u := range utxos {
			total += u.Output.Value
			if u.Reserved {
				reserved += u.Output.Value
			}
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "account:   %s\n", pk.Hex())
		fmt.Fprintf(out, "balance:   %s\n", genesis.FormatCoins(total))
		fmt.Fprintf(out, "pending:   %s\n", genesis.FormatCoins(reserved))
		fmt.Fprintf(out, "available: %s\n", genesis.FormatCoins(total-reserved))

		for _, u := range utxos {
			fmt.Fprintf(out, "  %s %s reserved[%t]\n", u.Output.Hash(), genesis.FormatCoins(u.Output.Value), u.Reserved)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(balanceCmd)
}

func fetchUTXOs(cmd *cobra.Command, pk signature.PublicKey) ([]network.UTXO, error) {
	resp, err := client().Request(cmd.Context(), nodeHost, network.FetchUTXOs(pk))
	if err != nil {
		return nil, networkErr(err)
	}

	if resp.Kind != network.KindUTXOs {
		return nil, networkErr(fmt.Errorf("unexpected reply %s", resp.Kind))
	}

	return resp.UTXOs, nil
}
