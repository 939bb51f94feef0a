// Package explorer maps chains to their block-explorer transaction URLs.
package explorer

import "github.com/cryptodial/cryptodial/internal/chain"

// placeholderBase is used for chains without a configured explorer; the raw
// hash is still appended so the message stays useful.
const placeholderBase = "https://explorer.example.com/tx/"

var txBases = map[chain.ID]string{
	chain.EVM:     "https://blockexplorer.electroneum.com/tx/",
	chain.Binance: "https://bscscan.com/tx/",
	chain.Polygon: "https://polygonscan.com/tx/",
	chain.Solana:  "https://explorer.solana.com/tx/",
}

// TxURL returns the explorer link for a transaction hash on the given chain.
func TxURL(id chain.ID, txHash string) string {
	base, ok := txBases[id]
	if !ok {
		base = placeholderBase
	}
	return base + txHash
}
