package sol

import (
	"context"
	"math/big"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/cryptodial/cryptodial/internal/chain"
	dialerr "github.com/cryptodial/cryptodial/pkg/errors"
)

// maxTxVersion opts in to versioned transactions on lookups; without it the
// RPC node rejects blocks containing v0 transactions.
var maxTxVersion = uint64(0)

// BlockByHeight returns the signatures of the block at the given slot.
// Solana block lookups are signature-only: amounts and parties require a
// per-transaction fetch, which callers do through a list selector.
func (c *Client) BlockByHeight(ctx context.Context, height uint64) (chain.History, error) {
	cl := c.connect()

	block, err := chain.Retry(ctx, func() (*rpc.GetBlockResult, error) {
		return cl.GetBlockWithOpts(ctx, height, &rpc.GetBlockOpts{
			TransactionDetails:             rpc.TransactionDetailsSignatures,
			MaxSupportedTransactionVersion: &maxTxVersion,
			Commitment:                     rpc.CommitmentFinalized,
		})
	})
	if err != nil {
		return nil, dialerr.WrapWith(err, dialerr.ErrNotFound, "fetching block %d", height)
	}

	out := make(chain.History, len(block.Signatures))
	for _, sig := range block.Signatures {
		hash := sig.String()
		out[hash] = chain.TxSummary{
			Hash:        hash,
			Value:       big.NewInt(0),
			BlockNumber: height,
		}
	}
	return out, nil
}

// BlockByRef always fails: Solana blocks are addressed by slot number only,
// so every reference string falls through to a transaction lookup.
func (c *Client) BlockByRef(_ context.Context, ref string) (chain.History, error) {
	return nil, dialerr.WithDetails(dialerr.ErrNotFound, map[string]string{
		"block": ref,
	})
}

// TransactionByID returns the summary of a single transaction by signature.
func (c *Client) TransactionByID(ctx context.Context, id string) (*chain.TxSummary, error) {
	sig, err := solana.SignatureFromBase58(id)
	if err != nil {
		return nil, dialerr.WithDetails(dialerr.ErrNotFound, map[string]string{
			"transaction": id,
		})
	}

	cl := c.connect()
	out, err := cl.GetTransaction(ctx, sig, &rpc.GetTransactionOpts{
		MaxSupportedTransactionVersion: &maxTxVersion,
		Commitment:                     rpc.CommitmentFinalized,
	})
	if err != nil || out == nil {
		return nil, dialerr.WrapWith(err, dialerr.ErrNotFound, "fetching transaction %s", id)
	}

	summary := &chain.TxSummary{
		Hash:        sig.String(),
		Value:       big.NewInt(0),
		BlockNumber: out.Slot,
	}

	tx, err := out.Transaction.GetTransaction()
	if err == nil && tx != nil && len(tx.Message.AccountKeys) > 0 {
		summary.From = tx.Message.AccountKeys[0].String()
		if len(tx.Message.AccountKeys) > 1 {
			summary.To = tx.Message.AccountKeys[1].String()
		}
	}

	// Recipient balance delta is the transferred amount for a plain transfer.
	if out.Meta != nil && len(out.Meta.PostBalances) > 1 && len(out.Meta.PreBalances) > 1 {
		delta := int64(out.Meta.PostBalances[1]) - int64(out.Meta.PreBalances[1])
		if delta > 0 {
			summary.Value = big.NewInt(delta)
		}
	}

	return summary, nil
}
