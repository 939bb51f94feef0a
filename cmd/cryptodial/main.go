// Command cryptodial serves a custodial multi-chain wallet over USSD.
package main

import (
	"os"

	"github.com/cryptodial/cryptodial/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
