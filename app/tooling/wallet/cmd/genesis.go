package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ardanlabs/utxochain/foundation/blockchain/genesis"
	"github.com/spf13/cobra"
)

var (
	genesisPath      string
	genesisChainID   uint16
	genesisMinTarget string
	genesisReward    uint64
	genesisRetarget  uint64
	genesisBlockTime time.Duration
)

var genesisCmd = &cobra.Command{
	Use:   "genesis",
	Short: "Write a genesis file with the consensus values for a new chain",
	RunE: func(cmd *cobra.Command, args []string) error {
		gen := genesis.Default()
		gen.Date = time.Now().UTC().Truncate(time.Second)
		gen.ChainID = genesisChainID

		if cmd.Flags().Changed("min-target") {
			gen.MinTarget = genesisMinTarget
		}
		if cmd.Flags().Changed("reward") {
			gen.InitialReward = genesisReward
		}
		if cmd.Flags().Changed("retarget") {
			gen.RetargetInterval = genesisRetarget
		}
		if cmd.Flags().Changed("block-time") {
			gen.IdealBlockTime = genesisBlockTime
		}

		if err := gen.Validate(); err != nil {
			return usageErr(err)
		}

		if err := os.MkdirAll(filepath.Dir(genesisPath), 0755); err != nil {
			return dataErr(err)
		}

		if err := genesis.Save(genesisPath, gen); err != nil {
			return dataErr(err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "genesis written to %s\n", genesisPath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(genesisCmd)
	genesisCmd.Flags().StringVar(&genesisPath, "path", "zblock/genesis.json", "Where to write the genesis file.")
	genesisCmd.Flags().Uint16Var(&genesisChainID, "chain-id", 1, "Unique id for the chain.")
	genesisCmd.Flags().StringVar(&genesisMinTarget, "min-target", genesis.DefaultMinTarget, "Easiest allowed target in hex.")
	genesisCmd.Flags().Uint64Var(&genesisReward, "reward", genesis.DefaultInitialReward, "Coins paid for a block before any halving.")
	genesisCmd.Flags().Uint64Var(&genesisRetarget, "retarget", genesis.DefaultRetargetInterval, "Blocks between difficulty adjustments.")
	genesisCmd.Flags().DurationVar(&genesisBlockTime, "block-time", genesis.DefaultIdealBlockTime, "Expected time between blocks.")
}
