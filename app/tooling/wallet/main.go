// This program provides the wallet and miner tooling for the node.
package main

import "github.com/ardanlabs/utxochain/app/tooling/wallet/cmd"

func main() {
	cmd.Execute()
}
