package storage

import (
	"context"
	"sync"

	dialerr "github.com/cryptodial/cryptodial/pkg/errors"
)

// MemoryStore is an in-memory DocumentStore used by tests and local runs
// without a MongoDB instance.
type MemoryStore struct {
	mu           sync.Mutex
	wallets      map[string]WalletRecord
	transactions []TransactionRecord
}

var _ DocumentStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{wallets: make(map[string]WalletRecord)}
}

// InsertWallet stores a new wallet record.
func (s *MemoryStore) InsertWallet(_ context.Context, rec *WalletRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.wallets[rec.WalletID]; exists {
		return dialerr.WithDetails(dialerr.ErrPersistence, map[string]string{
			"walletId": rec.WalletID,
			"cause":    "duplicate",
		})
	}
	s.wallets[rec.WalletID] = *rec
	return nil
}

// FindWalletByID returns the wallet with the given service wallet id.
func (s *MemoryStore) FindWalletByID(_ context.Context, walletID string) (*WalletRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.wallets[walletID]
	if !ok {
		return nil, dialerr.WithDetails(dialerr.ErrWalletNotFound, map[string]string{
			"walletId": walletID,
		})
	}
	return &rec, nil
}

// CountWalletsByID returns how many records carry the given wallet id.
func (s *MemoryStore) CountWalletsByID(_ context.Context, walletID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.wallets[walletID]; ok {
		return 1, nil
	}
	return 0, nil
}

// InsertTransaction appends a transaction record.
func (s *MemoryStore) InsertTransaction(_ context.Context, rec *TransactionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactions = append(s.transactions, *rec)
	return nil
}

// RecentBySender returns up to limit transactions for the sender, newest
// first (reverse insertion order).
func (s *MemoryStore) RecentBySender(_ context.Context, walletID string, limit int64) ([]TransactionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []TransactionRecord
	for i := len(s.transactions) - 1; i >= 0 && int64(len(out)) < limit; i-- {
		if s.transactions[i].SenderWalletID == walletID {
			out = append(out, s.transactions[i])
		}
	}
	return out, nil
}

// Transactions returns a copy of every stored transaction, oldest first.
// Test helper.
func (s *MemoryStore) Transactions() []TransactionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]TransactionRecord, len(s.transactions))
	copy(out, s.transactions)
	return out
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close(context.Context) error { return nil }
