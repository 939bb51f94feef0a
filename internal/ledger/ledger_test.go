package ledger

import (
	"context"
	"fmt"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cryptodial/cryptodial/internal/chain"
	"github.com/cryptodial/cryptodial/internal/storage"
	dialerr "github.com/cryptodial/cryptodial/pkg/errors"
)

func testAttempt() Attempt {
	return Attempt{
		SenderWalletID:    "ETN254#1234567890",
		RecipientWalletID: "ETN254#1111111111",
		Chain:             chain.EVM,
		Amount:            "5",
	}
}

func TestRecordCompleted(t *testing.T) {
	store := storage.NewMemoryStore()
	r := New(store)

	receipt := &chain.Receipt{
		TxHash:      "0xabc",
		NetworkFee:  big.NewInt(21000),
		BlockNumber: 77,
	}
	require.NoError(t, r.RecordCompleted(context.Background(), testAttempt(), receipt))

	records := store.Transactions()
	require.Len(t, records, 1)
	assert.Equal(t, storage.StatusCompleted, records[0].Status)
	assert.Equal(t, "0xabc", records[0].TxHash)
	assert.Equal(t, "21000", records[0].NetworkFee)
	assert.EqualValues(t, 77, records[0].BlockNumber)
	assert.Equal(t, "evm", records[0].Blockchain)
	assert.False(t, records[0].CreatedAt.IsZero())
}

func TestRecordCompleted_NilFee(t *testing.T) {
	store := storage.NewMemoryStore()
	r := New(store)

	require.NoError(t, r.RecordCompleted(context.Background(), testAttempt(),
		&chain.Receipt{TxHash: "0xabc"}))
	assert.Empty(t, store.Transactions()[0].NetworkFee)
}

func TestRecordFailed_PreservesCause(t *testing.T) {
	store := storage.NewMemoryStore()
	r := New(store)

	cause := dialerr.WithDetails(dialerr.ErrChainSubmission, map[string]string{
		"cause": "insufficient funds",
	})
	require.NoError(t, r.RecordFailed(context.Background(), testAttempt(), cause))

	records := store.Transactions()
	require.Len(t, records, 1)
	assert.Equal(t, storage.StatusFailed, records[0].Status)
	assert.Contains(t, records[0].Error, "insufficient funds")
	assert.Empty(t, records[0].TxHash)
}

func TestRecentBySender_NewestFirstAndLimited(t *testing.T) {
	store := storage.NewMemoryStore()
	r := New(store)

	for i := 0; i < 7; i++ {
		a := testAttempt()
		a.Amount = fmt.Sprintf("%d", i)
		require.NoError(t, r.RecordCompleted(context.Background(), a,
			&chain.Receipt{TxHash: fmt.Sprintf("0x%d", i)}))
	}

	records, err := r.RecentBySender(context.Background(), "ETN254#1234567890", 5)
	require.NoError(t, err)
	require.Len(t, records, 5)
	assert.Equal(t, "6", records[0].Amount)
	assert.Equal(t, "2", records[4].Amount)

	records, err = r.RecentBySender(context.Background(), "SOL254#0000000000", 5)
	require.NoError(t, err)
	assert.Empty(t, records)
}
