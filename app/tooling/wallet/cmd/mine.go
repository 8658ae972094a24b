package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/ardanlabs/utxochain/foundation/blockchain/network"
	"github.com/ardanlabs/utxochain/foundation/blockchain/signature"
	"github.com/spf13/cobra"
)

var (
	mineBlocks     int
	mineGoroutines int
	mineSteps      uint64
	mineRefresh    time.Duration
)

var mineCmd = &cobra.Command{
	Use:   "mine",
	Short: "Mine blocks for the node paying the account",
	RunE: func(cmd *cobra.Command, args []string) error {
		pk, err := signature.LoadPublicKey(publicKeyPath())
		if err != nil {
			return dataErr(err)
		}

		for mined := 0; mineBlocks == 0 || mined < mineBlocks; mined++ {
			block, err := mineOne(cmd.Context(), pk)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "block %s submitted: trans[%d]\n", block.Hash(), len(block.Trans))
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(mineCmd)
	mineCmd.Flags().IntVar(&mineBlocks, "blocks", 1, "Blocks to mine, zero mines until interrupted.")
	mineCmd.Flags().IntVar(&mineGoroutines, "goroutines", 4, "Goroutines searching for a nonce.")
	mineCmd.Flags().Uint64Var(&mineSteps, "steps", database.DefaultMiningSteps, "Nonces tried between checks for cancellation.")
	mineCmd.Flags().DurationVar(&mineRefresh, "refresh", 10*time.Second, "How often the node is asked if the template is still valid.")
}

// mineOne fetches a template from the node and solves it. The node is asked
// to validate the template every refresh interval and a fresh template is
// fetched once the node rejects it.
func mineOne(ctx context.Context, pk signature.PublicKey) (database.Block, error) {
	c := client()

	for {
		resp, err := c.Request(ctx, nodeHost, network.FetchTemplate(pk))
		if err != nil {
			return database.Block{}, networkErr(err)
		}
		if resp.Kind != network.KindTemplate {
			return database.Block{}, networkErr(fmt.Errorf("unexpected reply %s", resp.Kind))
		}

		tmpl := *resp.Block

		for {
			mctx, cancel := context.WithTimeout(ctx, mineRefresh)
			block, err := database.POW(mctx, database.POWArgs{
				Block:      tmpl,
				Goroutines: mineGoroutines,
				Steps:      mineSteps,
			})
			cancel()

			if err == nil {
				if err := c.Notify(ctx, nodeHost, network.SubmitTemplate(block)); err != nil {
					return database.Block{}, networkErr(err)
				}
				return block, nil
			}

			if !errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
				return database.Block{}, err
			}

			valid, err := validTemplate(ctx, c, tmpl)
			if err != nil {
				return database.Block{}, err
			}
			if !valid {
				break
			}
		}
	}
}

func validTemplate(ctx context.Context, c *network.Client, tmpl database.Block) (bool, error) {
	resp, err := c.Request(ctx, nodeHost, network.ValidateTemplate(tmpl))
	if err != nil {
		return false, networkErr(err)
	}
	if resp.Kind != network.KindTemplateValidity {
		return false, networkErr(fmt.Errorf("unexpected reply %s", resp.Kind))
	}

	return resp.Valid, nil
}
