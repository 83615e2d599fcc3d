package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerlens/ledgerlens/internal/common"
	"github.com/ledgerlens/ledgerlens/internal/model"
)

func setupStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Migrate(context.Background()))
	return store
}

func TestSQLiteStore_Patterns(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	pattern := &model.LearnedPattern{
		SignatureHash: "abc123",
		BankID:        "BT",
		SampleText:    "EXTRAS DE CONT",
		Features:      model.SignatureFeatures{Length: 1200, LineCount: 40, DigitRatio: 0.2},
		Accuracy:      0.5,
		UsageCount:    1,
		CreatedAt:     time.Now().UTC(),
		LastUsedAt:    time.Now().UTC(),
	}
	require.NoError(t, store.SavePattern(ctx, pattern))

	got, err := store.GetPattern(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, "BT", got.BankID)
	assert.Equal(t, 1200, got.Features.Length)
	assert.InDelta(t, 0.5, got.Accuracy, 0.001)

	// Upsert updates accuracy and usage in place.
	pattern.Accuracy = 0.8
	pattern.UsageCount = 5
	require.NoError(t, store.SavePattern(ctx, pattern))

	got, err = store.GetPattern(ctx, "abc123")
	require.NoError(t, err)
	assert.InDelta(t, 0.8, got.Accuracy, 0.001)
	assert.Equal(t, 5, got.UsageCount)

	count, err := store.CountPatterns(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	_, err = store.GetPattern(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestSQLiteStore_Transactions_DuplicateHashSkipped(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	date := time.Date(2025, 9, 15, 0, 0, 0, 0, time.UTC)
	txn := model.Transaction{
		Date:        date,
		Amount:      -45.67,
		Description: "PLATA CARD KAUFLAND",
		Merchant:    "KAUFLAND",
		Category:    "Alimente",
	}
	txn.Hash = txn.GenerateHash()

	inserted, err := store.SaveTransactions(ctx, []model.Transaction{txn})
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)

	// Same (date, amount, description) hashes identically and is skipped.
	dup := model.Transaction{Date: date, Amount: -45.67, Description: "PLATA CARD KAUFLAND"}
	inserted, err = store.SaveTransactions(ctx, []model.Transaction{dup})
	require.NoError(t, err)
	assert.Equal(t, 0, inserted)

	count, err := store.CountTransactions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	got, err := store.GetTransactionByHash(ctx, txn.Hash)
	require.NoError(t, err)
	assert.Equal(t, "KAUFLAND", got.Merchant)
	assert.False(t, got.Processed.IsZero())
}

func TestSQLiteStore_Merchants(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	merchant := &model.Merchant{
		Normalized: "kaufland",
		Name:       "KAUFLAND",
		Category:   "Alimente",
		UseCount:   3,
		LastSeenAt: time.Now().UTC(),
	}
	require.NoError(t, store.SaveMerchant(ctx, merchant))

	got, err := store.GetMerchant(ctx, "kaufland")
	require.NoError(t, err)
	assert.Equal(t, "KAUFLAND", got.Name)
	assert.Equal(t, 3, got.UseCount)

	all, err := store.GetAllMerchants(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSQLiteStore_FeedbackAppendOnly(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	merchant := "LIDL"
	for i := 0; i < 3; i++ {
		fb := &model.Feedback{
			TransactionHash: "hash1",
			Original:        model.Transaction{Description: "PLATA POS LIDL"},
			Corrections:     model.Corrections{Merchant: &merchant},
			Timestamp:       time.Now().UTC().Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, store.SaveFeedback(ctx, fb))
	}

	count, err := store.CountFeedback(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	recent, err := store.GetRecentFeedback(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	require.NotNil(t, recent[0].Corrections.Merchant)
	assert.Equal(t, "LIDL", *recent[0].Corrections.Merchant)
}

func TestSQLiteStore_ModelState(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	missing, err := store.GetModelState(ctx, "merchant")
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, store.SaveModelState(ctx, "merchant", []byte(`{"samples":[]}`)))

	state, err := store.GetModelState(ctx, "merchant")
	require.NoError(t, err)
	assert.JSONEq(t, `{"samples":[]}`, string(state))
}

func TestSQLiteStore_Stats(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	require.NoError(t, store.IncrementStat(ctx, "documents_processed", 1))
	require.NoError(t, store.IncrementStat(ctx, "documents_processed", 2))

	stats, err := store.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats["documents_processed"])
}
