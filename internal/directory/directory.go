// Package directory manages custodial wallet records and the service wallet
// identifiers users share instead of raw chain addresses.
package directory

import (
	"context"
	"crypto/rand"
	"math/big"
	"regexp"
	"time"

	"github.com/cryptodial/cryptodial/internal/chain"
	"github.com/cryptodial/cryptodial/internal/storage"
	dialerr "github.com/cryptodial/cryptodial/pkg/errors"
)

// maxIDAttempts bounds collision retries during id generation.
const maxIDAttempts = 10

// idDigits is the length of the random numeric suffix.
const idDigits = 10

// walletIDPattern matches the service wallet id format:
// 3-letter chain prefix, 3-digit country code, '#', 10 digits.
var (
	walletIDPattern    = regexp.MustCompile(`^[A-Z]{3}\d{3}#\d{10}$`)
	countryCodePattern = regexp.MustCompile(`^\d{3}$`)
)

// Directory owns WalletRecord persistence. All writes are single-document;
// a failed write never partially applies.
type Directory struct {
	store storage.DocumentStore
	now   func() time.Time
}

// New creates a wallet directory over the given document store.
func New(store storage.DocumentStore) *Directory {
	return &Directory{store: store, now: time.Now}
}

// ValidWalletID reports whether s is a well-formed service wallet id.
func ValidWalletID(s string) bool {
	return walletIDPattern.MatchString(s)
}

// GenerateWalletID produces a unique wallet id of the form
// <prefix><countryCode>#<10 random digits>, retrying on collision up to
// maxIDAttempts before failing with ErrIDGenerationExhausted.
func (d *Directory) GenerateWalletID(ctx context.Context, id chain.ID, countryCode string) (string, error) {
	prefix := id.WalletPrefix()
	if prefix == "" {
		return "", dialerr.WithDetails(dialerr.ErrUnsupportedChain, map[string]string{
			"chain": id.String(),
		})
	}
	if !countryCodePattern.MatchString(countryCode) {
		return "", dialerr.WithDetails(dialerr.ErrValidation, map[string]string{
			"countryCode": countryCode,
		})
	}

	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		candidate := prefix + countryCode + "#" + randomDigits(idDigits)

		n, err := d.store.CountWalletsByID(ctx, candidate)
		if err != nil {
			return "", err
		}
		if n == 0 {
			return candidate, nil
		}
	}

	return "", dialerr.WithDetails(dialerr.ErrIDGenerationExhausted, map[string]string{
		"attempts": "10",
	})
}

// Save persists a new wallet record, stamping CreatedAt.
func (d *Directory) Save(ctx context.Context, rec *storage.WalletRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = d.now()
	}
	return d.store.InsertWallet(ctx, rec)
}

// FindByWalletID returns the record for a service wallet id, or
// ErrWalletNotFound.
func (d *Directory) FindByWalletID(ctx context.Context, walletID string) (*storage.WalletRecord, error) {
	return d.store.FindWalletByID(ctx, walletID)
}

// randomDigits returns n cryptographically random decimal digits.
func randomDigits(n int) string {
	out := make([]byte, n)
	for i := range out {
		v, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			// crypto/rand failure means the platform RNG is broken; there
			// is no meaningful recovery for id generation.
			panic(err)
		}
		out[i] = byte('0' + v.Int64())
	}
	return string(out)
}
