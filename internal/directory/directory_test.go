package directory

import (
	"context"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cryptodial/cryptodial/internal/chain"
	"github.com/cryptodial/cryptodial/internal/storage"
	dialerr "github.com/cryptodial/cryptodial/pkg/errors"
)

// collidingStore reports every candidate id as taken.
type collidingStore struct {
	storage.DocumentStore
	calls int
}

func (c *collidingStore) CountWalletsByID(context.Context, string) (int64, error) {
	c.calls++
	return 1, nil
}

func TestGenerateWalletID_Format(t *testing.T) {
	d := New(storage.NewMemoryStore())

	tests := []struct {
		chain  chain.ID
		prefix string
	}{
		{chain.EVM, "ETN"},
		{chain.Binance, "BNB"},
		{chain.Polygon, "MAT"},
		{chain.Solana, "SOL"},
	}
	pattern := regexp.MustCompile(`^[A-Z]{3}254#\d{10}$`)

	for _, tt := range tests {
		t.Run(tt.chain.String(), func(t *testing.T) {
			id, err := d.GenerateWalletID(context.Background(), tt.chain, "254")
			require.NoError(t, err)
			assert.Regexp(t, pattern, id)
			assert.Equal(t, tt.prefix, id[:3])
			assert.True(t, ValidWalletID(id))
		})
	}
}

func TestGenerateWalletID_SkipsCollisions(t *testing.T) {
	store := storage.NewMemoryStore()
	d := New(store)

	// Fill the store with one id, then verify fresh ids avoid it. Collisions
	// on 10 random digits are not forceable here; the dedicated exhaustion
	// test covers the retry loop.
	require.NoError(t, store.InsertWallet(context.Background(), &storage.WalletRecord{
		WalletID: "ETN254#0000000000",
	}))

	id, err := d.GenerateWalletID(context.Background(), chain.EVM, "254")
	require.NoError(t, err)
	assert.NotEqual(t, "ETN254#0000000000", id)
}

func TestGenerateWalletID_Exhaustion(t *testing.T) {
	store := &collidingStore{}
	d := New(store)

	_, err := d.GenerateWalletID(context.Background(), chain.EVM, "254")
	assert.True(t, dialerr.Is(err, dialerr.ErrIDGenerationExhausted))
	assert.Equal(t, 10, store.calls, "must stop after the bounded attempt count")
}

func TestGenerateWalletID_RejectsBadInputs(t *testing.T) {
	d := New(storage.NewMemoryStore())

	_, err := d.GenerateWalletID(context.Background(), chain.ID("dogecoin"), "254")
	assert.True(t, dialerr.Is(err, dialerr.ErrUnsupportedChain))

	for _, cc := range []string{"", "12", "1234", "25a"} {
		_, err := d.GenerateWalletID(context.Background(), chain.EVM, cc)
		assert.True(t, dialerr.Is(err, dialerr.ErrValidation), "countryCode %q", cc)
	}
}

func TestValidWalletID(t *testing.T) {
	valid := []string{"ETN254#1234567890", "SOL001#0000000000"}
	invalid := []string{
		"",
		"ETN254#123456789",   // 9 digits
		"ETN254#12345678901", // 11 digits
		"etn254#1234567890",  // lowercase prefix
		"ETN25#1234567890",   // 2-digit country
		"ETN2541234567890",   // missing separator
	}

	for _, id := range valid {
		assert.True(t, ValidWalletID(id), id)
	}
	for _, id := range invalid {
		assert.False(t, ValidWalletID(id), id)
	}
}

func TestSaveAndFind(t *testing.T) {
	d := New(storage.NewMemoryStore())

	rec := &storage.WalletRecord{
		WalletID:     "ETN254#1234567890",
		PhoneNumber:  "+254712345678",
		Blockchain:   "evm",
		Address:      "0x9858EfFD232B4033E47d90003D41EC34EcaEda94",
		EncryptedKey: "aa:bb",
		PinHash:      "digest",
	}
	require.NoError(t, d.Save(context.Background(), rec))
	assert.False(t, rec.CreatedAt.IsZero(), "Save must stamp CreatedAt")

	got, err := d.FindByWalletID(context.Background(), rec.WalletID)
	require.NoError(t, err)
	assert.Equal(t, rec.Address, got.Address)

	_, err = d.FindByWalletID(context.Background(), "ETN254#9999999999")
	assert.True(t, dialerr.Is(err, dialerr.ErrWalletNotFound))
}
