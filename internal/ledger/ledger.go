// Package ledger records every attempted transfer, completed or failed.
// Records are append-only: an attempted transfer must never silently
// disappear, and corrections are new records, never edits.
package ledger

import (
	"context"
	"math/big"
	"time"

	"github.com/cryptodial/cryptodial/internal/chain"
	"github.com/cryptodial/cryptodial/internal/storage"
)

// Recorder appends transaction records through the document store.
type Recorder struct {
	store storage.DocumentStore
	now   func() time.Time
}

// New creates a recorder over the given document store.
func New(store storage.DocumentStore) *Recorder {
	return &Recorder{store: store, now: time.Now}
}

// Attempt describes one transfer to be recorded.
type Attempt struct {
	SenderWalletID    string
	RecipientWalletID string
	Chain             chain.ID
	Amount            string
}

// RecordCompleted appends a completed record carrying the receipt details.
func (r *Recorder) RecordCompleted(ctx context.Context, a Attempt, receipt *chain.Receipt) error {
	rec := &storage.TransactionRecord{
		SenderWalletID:    a.SenderWalletID,
		RecipientWalletID: a.RecipientWalletID,
		Blockchain:        a.Chain.String(),
		Amount:            a.Amount,
		Status:            storage.StatusCompleted,
		TxHash:            receipt.TxHash,
		NetworkFee:        feeString(receipt.NetworkFee),
		BlockNumber:       receipt.BlockNumber,
		CreatedAt:         r.now(),
	}
	return r.store.InsertTransaction(ctx, rec)
}

// RecordFailed appends a failed record carrying the underlying cause.
func (r *Recorder) RecordFailed(ctx context.Context, a Attempt, cause error) error {
	rec := &storage.TransactionRecord{
		SenderWalletID:    a.SenderWalletID,
		RecipientWalletID: a.RecipientWalletID,
		Blockchain:        a.Chain.String(),
		Amount:            a.Amount,
		Status:            storage.StatusFailed,
		Error:             cause.Error(),
		CreatedAt:         r.now(),
	}
	return r.store.InsertTransaction(ctx, rec)
}

// RecentBySender returns up to limit records for the sender, newest first.
func (r *Recorder) RecentBySender(ctx context.Context, walletID string, limit int64) ([]storage.TransactionRecord, error) {
	return r.store.RecentBySender(ctx, walletID, limit)
}

func feeString(fee *big.Int) string {
	if fee == nil {
		return ""
	}
	return fee.String()
}
