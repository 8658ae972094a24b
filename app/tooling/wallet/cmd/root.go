// Package cmd contains the wallet and miner commands.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ardanlabs/utxochain/foundation/blockchain/network"
	"github.com/ardanlabs/utxochain/foundation/nameservice"
	"github.com/spf13/cobra"
)

// Exit codes reported by the tool.
const (
	exitUsage   = 1
	exitData    = 2
	exitNetwork = 3
	exitOther   = 4
)

var (
	accountName string
	accountPath string
	nodeHost    string
	timeout     time.Duration
)

var rootCmd = &cobra.Command{
	Use:           "wallet",
	Short:         "Wallet and miner for a utxochain node",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&accountName, "account", "a", "private", "Name of the key pair.")
	rootCmd.PersistentFlags().StringVarP(&accountPath, "account-path", "p", "zblock/accounts/", "Path to the directory with the keys.")
	rootCmd.PersistentFlags().StringVarP(&nodeHost, "node", "n", "localhost:9180", "P2P host of the node.")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "Bound on every request to the node.")
}

// Execute runs the command and exits with the code matching the failure.
func Execute() {
	err := rootCmd.ExecuteContext(context.Background())
	if err == nil {
		return
	}

	fmt.Fprintln(os.Stderr, "ERROR:", err)
	os.Exit(exitCode(err))
}

// =============================================================================

// exitError attaches an exit code to an error.
type exitError struct {
	err  error
	code int
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func usageErr(err error) error   { return &exitError{err, exitUsage} }
func dataErr(err error) error    { return &exitError{err, exitData} }
func networkErr(err error) error { return &exitError{err, exitNetwork} }

func exitCode(err error) int {
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}

	// Errors raised by cobra itself are about flags and arguments.
	if strings.HasPrefix(err.Error(), "unknown") || strings.Contains(err.Error(), "flag") || strings.Contains(err.Error(), "arg") {
		return exitUsage
	}

	return exitOther
}

// =============================================================================

func privateKeyPath() string {
	return filepath.Join(accountPath, strings.TrimSuffix(accountName, nameservice.PrivateKeyExt)+nameservice.PrivateKeyExt)
}

func publicKeyPath() string {
	return filepath.Join(accountPath, strings.TrimSuffix(accountName, nameservice.PrivateKeyExt)+nameservice.PublicKeyExt)
}

func client() *network.Client {
	return network.NewClient(timeout)
}
