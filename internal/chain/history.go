package chain

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	dialerr "github.com/cryptodial/cryptodial/pkg/errors"
)

// HistorySource is the per-chain lookup surface ResolveHistory drives.
// Adapters implement it over their native RPC client.
type HistorySource interface {
	// BlockByHeight returns the transactions of the block at the given
	// height, keyed by transaction hash.
	BlockByHeight(ctx context.Context, height uint64) (History, error)

	// BlockByRef returns the transactions of the block identified by a
	// reference string, or ErrNotFound when the chain has no such notion
	// or no such block.
	BlockByRef(ctx context.Context, ref string) (History, error)

	// TransactionByID returns a single transaction summary, or ErrNotFound.
	TransactionByID(ctx context.Context, id string) (*TxSummary, error)
}

// maxHistoryFanout bounds concurrent transaction lookups for list selectors.
const maxHistoryFanout = 8

// ResolveHistory applies the selector resolution policy shared by all chain
// variants:
//
//   - a numeric selector always means the block at that height, expanded to
//     a mapping keyed by transaction hash;
//   - a string selector is tried as a block identifier first and retried as
//     a single transaction identifier on failure;
//   - a list selector fans out as concurrent independent lookups and fails
//     entirely, naming the missing entry, if any lookup does not resolve.
func ResolveHistory(ctx context.Context, src HistorySource, sel HistorySelector) (History, error) {
	switch {
	case sel.BlockHeight != nil:
		return src.BlockByHeight(ctx, *sel.BlockHeight)

	case sel.Ref != "":
		if h, err := src.BlockByRef(ctx, sel.Ref); err == nil {
			return h, nil
		}
		tx, err := src.TransactionByID(ctx, sel.Ref)
		if err != nil {
			return nil, dialerr.WithDetails(dialerr.ErrNotFound, map[string]string{
				"ref": sel.Ref,
			})
		}
		return History{tx.Hash: *tx}, nil

	case len(sel.TxIDs) > 0:
		return resolveTxList(ctx, src, sel.TxIDs)

	default:
		return nil, dialerr.WithDetails(dialerr.ErrValidation, map[string]string{
			"selector": "empty",
		})
	}
}

// resolveTxList looks up every id concurrently and joins the results.
// No partial results: one unresolved entry fails the whole call.
func resolveTxList(ctx context.Context, src HistorySource, ids []string) (History, error) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxHistoryFanout)

	var mu sync.Mutex
	out := make(History, len(ids))

	for _, id := range ids {
		id := id
		g.Go(func() error {
			tx, err := src.TransactionByID(ctx, id)
			if err != nil {
				return dialerr.WithDetails(dialerr.ErrNotFound, map[string]string{
					"transaction": id,
				})
			}
			mu.Lock()
			out[tx.Hash] = *tx
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
