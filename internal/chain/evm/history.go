package evm

import (
	"context"
	"math/big"
	"regexp"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/cryptodial/cryptodial/internal/chain"
	dialerr "github.com/cryptodial/cryptodial/pkg/errors"
)

var hashPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)

// BlockByHeight returns the transactions of the block at the given height.
func (c *Client) BlockByHeight(ctx context.Context, height uint64) (chain.History, error) {
	eth, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}

	block, err := chain.Retry(ctx, func() (*types.Block, error) {
		return eth.BlockByNumber(ctx, new(big.Int).SetUint64(height))
	})
	if err != nil {
		return nil, dialerr.WrapWith(err, dialerr.ErrNotFound, "fetching block %d", height)
	}
	return c.summarizeBlock(block), nil
}

// BlockByRef treats ref as a block hash. Anything that is not a well-formed
// 32-byte hash, or a hash that does not name a block, fails with ErrNotFound
// so the caller can retry the ref as a transaction id.
func (c *Client) BlockByRef(ctx context.Context, ref string) (chain.History, error) {
	if !hashPattern.MatchString(ref) {
		return nil, dialerr.WithDetails(dialerr.ErrNotFound, map[string]string{
			"block": ref,
		})
	}

	eth, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}

	block, err := eth.BlockByHash(ctx, common.HexToHash(ref))
	if err != nil {
		return nil, dialerr.WrapWith(err, dialerr.ErrNotFound, "fetching block %s", ref)
	}
	return c.summarizeBlock(block), nil
}

// TransactionByID returns the summary of a single transaction by hash.
func (c *Client) TransactionByID(ctx context.Context, id string) (*chain.TxSummary, error) {
	if !hashPattern.MatchString(id) {
		return nil, dialerr.WithDetails(dialerr.ErrNotFound, map[string]string{
			"transaction": id,
		})
	}

	eth, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}

	tx, _, err := eth.TransactionByHash(ctx, common.HexToHash(id))
	if err != nil {
		return nil, dialerr.WrapWith(err, dialerr.ErrNotFound, "fetching transaction %s", id)
	}

	summary := c.summarizeTx(tx, 0)
	return &summary, nil
}

func (c *Client) summarizeBlock(block *types.Block) chain.History {
	out := make(chain.History, len(block.Transactions()))
	for _, tx := range block.Transactions() {
		s := c.summarizeTx(tx, block.NumberU64())
		out[s.Hash] = s
	}
	return out
}

// summarizeTx normalizes a raw transaction. The sender is recovered from the
// signature; contract creations have an empty To.
func (c *Client) summarizeTx(tx *types.Transaction, blockNumber uint64) chain.TxSummary {
	var from string
	if sender, err := types.Sender(types.LatestSignerForChainID(c.chainID), tx); err == nil {
		from = sender.Hex()
	}

	var to string
	if tx.To() != nil {
		to = tx.To().Hex()
	}

	return chain.TxSummary{
		Hash:        tx.Hash().Hex(),
		From:        from,
		To:          to,
		Value:       tx.Value(),
		BlockNumber: blockNumber,
	}
}
