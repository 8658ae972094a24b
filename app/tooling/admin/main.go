// This program inspects the blocks a node holds in storage without running
// the node.
package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/ardanlabs/utxochain/app/tooling/admin/commands"
	"github.com/ardanlabs/utxochain/foundation/blockchain/chain"
	"github.com/ardanlabs/utxochain/foundation/blockchain/genesis"
	"github.com/ardanlabs/utxochain/foundation/blockchain/storage"
	"github.com/ardanlabs/utxochain/foundation/logger"
	"github.com/ardanlabs/utxochain/foundation/nameservice"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

var (
	dbPath      string
	storageKind string
	genesisPath string
	accountPath string
)

func main() {

	// Construct the application logger.
	log, err := logger.New("ADMIN")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := newRoot(log).Execute(); err != nil {
		log.Errorw("admin", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func newRoot(log *zap.SugaredLogger) *cobra.Command {
	root := &cobra.Command{
		Use:           "admin",
		Short:         "Inspect the blocks stored by a node",
		Version:       build,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&dbPath, "db", "zblock/blocks", "Path to the node storage.")
	root.PersistentFlags().StringVar(&storageKind, "kind", storage.KindDisk, "Storage kind: disk|badger.")
	root.PersistentFlags().StringVar(&genesisPath, "genesis", "zblock/genesis.json", "Path to the genesis file.")
	root.PersistentFlags().StringVar(&accountPath, "account-path", "zblock/accounts/", "Path to the directory with the keys.")

	bals := &cobra.Command{
		Use:   "bals [account]",
		Short: "Show the balance of every account or a single one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bc, ns, err := load(log)
			if err != nil {
				return err
			}

			var account string
			if len(args) == 1 {
				account = args[0]
			}

			return commands.Balances(cmd.OutOrStdout(), bc, ns, account)
		},
	}

	blocks := &cobra.Command{
		Use:   "blocks [from] [to]",
		Short: "Show the headers of the stored blocks, to is exclusive",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			bc, _, err := load(log)
			if err != nil {
				return err
			}

			from, to := uint64(0), bc.Height()
			if len(args) > 0 {
				if from, err = strconv.ParseUint(args[0], 10, 64); err != nil {
					return fmt.Errorf("invalid from height: %w", err)
				}
			}
			if len(args) > 1 {
				if to, err = strconv.ParseUint(args[1], 10, 64); err != nil {
					return fmt.Errorf("invalid to height: %w", err)
				}
			}

			return commands.Blocks(cmd.OutOrStdout(), bc, from, to)
		},
	}

	root.AddCommand(bals, blocks)

	return root
}

// load replays the stored blocks into a ledger.
func load(log *zap.SugaredLogger) (*chain.Blockchain, *nameservice.NameService, error) {
	gen, err := genesis.Load(genesisPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		gen = genesis.Default()
	case err != nil:
		return nil, nil, fmt.Errorf("unable to load genesis file: %w", err)
	}

	ns, err := nameservice.New(accountPath)
	if err != nil {
		return nil, nil, fmt.Errorf("unable to load account name service: %w", err)
	}

	store, err := storage.Open(storageKind, dbPath, 0)
	if err != nil {
		return nil, nil, err
	}
	defer store.Close()

	bc, err := commands.Replay(store, gen)
	if err != nil {
		return nil, nil, err
	}

	log.Infow("admin", "status", "replayed", "height", bc.Height())

	return bc, ns, nil
}
