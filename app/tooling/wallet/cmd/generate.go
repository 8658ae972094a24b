package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/ardanlabs/utxochain/foundation/blockchain/signature"
	"github.com/spf13/cobra"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a new key pair for the account",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(privateKeyPath()); err == nil {
			return usageErr(fmt.Errorf("account %q already exists", accountName))
		} else if !errors.Is(err, os.ErrNotExist) {
			return dataErr(err)
		}

		if err := os.MkdirAll(accountPath, 0755); err != nil {
			return dataErr(err)
		}

		privateKey, err := signature.GenerateKey()
		if err != nil {
			return err
		}

		if err := signature.SavePrivateKey(privateKeyPath(), privateKey); err != nil {
			return dataErr(err)
		}

		pk := signature.ToPublicKey(privateKey.PublicKey)
		if err := signature.SavePublicKey(publicKeyPath(), pk); err != nil {
			return dataErr(err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "account %s: %s\n", accountName, pk.Hex())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(generateCmd)
}
