// Package storage defines the document store the wallet directory and the
// transaction ledger persist through, plus its MongoDB implementation.
package storage

import (
	"context"
	"time"
)

// Transaction status values. Records are append-only, so a status never
// changes after insert; a retried transfer is a new record.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// WalletRecord is the persisted form of a custodial wallet. EncryptedKey is
// the vault blob; the plaintext private key never reaches this layer.
type WalletRecord struct {
	WalletID     string    `bson:"walletId"`
	PhoneNumber  string    `bson:"phoneNumber"`
	Blockchain   string    `bson:"blockchain"`
	Address      string    `bson:"address"`
	EncryptedKey string    `bson:"encryptedKey"`
	PinHash      string    `bson:"pinHash"`
	CreatedAt    time.Time `bson:"createdAt"`
}

// TransactionRecord is one attempted transfer, successful or not. Amount is
// the user-entered decimal string; Fee is in smallest on-chain units.
type TransactionRecord struct {
	SenderWalletID    string    `bson:"senderWalletId"`
	RecipientWalletID string    `bson:"recipientWalletId"`
	Blockchain        string    `bson:"blockchain"`
	Amount            string    `bson:"amount"`
	Status            string    `bson:"status"`
	TxHash            string    `bson:"txHash,omitempty"`
	NetworkFee        string    `bson:"networkFee,omitempty"`
	BlockNumber       uint64    `bson:"blockNumber,omitempty"`
	Error             string    `bson:"error,omitempty"`
	CreatedAt         time.Time `bson:"createdAt"`
}

// DocumentStore is the persistence surface for wallets and transactions.
// Implementations guarantee single-document write atomicity and nothing
// more; callers never rely on multi-document transactions.
type DocumentStore interface {
	// InsertWallet stores a new wallet record.
	InsertWallet(ctx context.Context, rec *WalletRecord) error

	// FindWalletByID returns the wallet with the given service wallet id,
	// or ErrWalletNotFound.
	FindWalletByID(ctx context.Context, walletID string) (*WalletRecord, error)

	// CountWalletsByID returns how many records carry the given wallet id.
	CountWalletsByID(ctx context.Context, walletID string) (int64, error)

	// InsertTransaction appends a transaction record.
	InsertTransaction(ctx context.Context, rec *TransactionRecord) error

	// RecentBySender returns up to limit transaction records for the sender,
	// newest first.
	RecentBySender(ctx context.Context, walletID string, limit int64) ([]TransactionRecord, error)

	// Close releases the underlying connection.
	Close(ctx context.Context) error
}
