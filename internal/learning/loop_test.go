package learning

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerlens/ledgerlens/internal/classify"
	"github.com/ledgerlens/ledgerlens/internal/model"
	"github.com/ledgerlens/ledgerlens/internal/service"
	"github.com/ledgerlens/ledgerlens/internal/testutil"
)

type fakeTrainer struct {
	merchantUpdates    []string
	categoryUpdates    []string
	amountUpdates      int
	merchantRetrains   int
	categoryRetrains   int
	amountRetrains     int
	retrainMerchantErr error
}

func (f *fakeTrainer) UpdateMerchant(_, label string) {
	f.merchantUpdates = append(f.merchantUpdates, label)
}

func (f *fakeTrainer) UpdateCategory(_ string, _ float64, label string) {
	f.categoryUpdates = append(f.categoryUpdates, label)
}

func (f *fakeTrainer) UpdateAmountRange(string, float64) { f.amountUpdates++ }

func (f *fakeTrainer) RetrainMerchant() error {
	f.merchantRetrains++
	return f.retrainMerchantErr
}

func (f *fakeTrainer) RetrainCategory() error {
	f.categoryRetrains++
	return nil
}

func (f *fakeTrainer) RetrainAmountRange() error {
	f.amountRetrains++
	return nil
}

func (f *fakeTrainer) Snapshot() ([]byte, error) { return []byte(`{}`), nil }

type fakePatterns struct {
	calls []bool
}

func (f *fakePatterns) UpdatePatternAccuracy(_ context.Context, _ string, wasCorrect bool) error {
	f.calls = append(f.calls, wasCorrect)
	return nil
}

func seedTransaction(t *testing.T, store service.Store, description string) string {
	t.Helper()
	txn := model.Transaction{
		Date:        time.Date(2025, 9, 15, 0, 0, 0, 0, time.UTC),
		Description: description,
		Merchant:    "KAUFLAND",
		Category:    "Alimente",
		Amount:      -45.67,
	}
	txn.Hash = txn.GenerateHash()
	n, err := store.SaveTransactions(context.Background(), []model.Transaction{txn})
	require.NoError(t, err)
	require.Equal(t, 1, n)
	return txn.Hash
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func TestLearnFromFeedback_PersistsAndUpdates(t *testing.T) {
	store := testutil.SetupTestDB(t)
	trainer := &fakeTrainer{}
	patterns := &fakePatterns{}
	loop := NewLoop(store, trainer, patterns, nil)
	hash := seedTransaction(t, store, "PLATA CARD KAUFLAND")

	err := loop.LearnFromFeedback(context.Background(), hash, "pat-1", model.Corrections{
		Merchant: strPtr("Kaufland Romania"),
		Category: strPtr("Alimente"),
	})
	require.NoError(t, err)

	count, err := store.CountFeedback(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	assert.Equal(t, []string{"Kaufland Romania"}, trainer.merchantUpdates)
	assert.Equal(t, []string{"Alimente"}, trainer.categoryUpdates)
	assert.Equal(t, 1, trainer.amountUpdates)

	// A correction means the original detection was wrong.
	require.Len(t, patterns.calls, 1)
	assert.False(t, patterns.calls[0])
}

func TestLearnFromFeedback_ConfirmationReinforces(t *testing.T) {
	store := testutil.SetupTestDB(t)
	trainer := &fakeTrainer{}
	patterns := &fakePatterns{}
	loop := NewLoop(store, trainer, patterns, nil)
	hash := seedTransaction(t, store, "PLATA CARD KAUFLAND")

	err := loop.LearnFromFeedback(context.Background(), hash, "pat-1", model.Corrections{
		IsCorrect: boolPtr(true),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"KAUFLAND"}, trainer.merchantUpdates)
	assert.Equal(t, []string{"Alimente"}, trainer.categoryUpdates)
	require.Len(t, patterns.calls, 1)
	assert.True(t, patterns.calls[0])
}

func TestLearnFromFeedback_UnknownTransaction(t *testing.T) {
	store := testutil.SetupTestDB(t)
	loop := NewLoop(store, &fakeTrainer{}, nil, nil)

	err := loop.LearnFromFeedback(context.Background(), "no-such-hash", "", model.Corrections{})
	assert.Error(t, err)
}

func TestLearnFromFeedback_TenthFeedbackRetrainsOnce(t *testing.T) {
	store := testutil.SetupTestDB(t)
	trainer := &fakeTrainer{}
	loop := NewLoop(store, trainer, nil, nil)

	hashes := make([]string, 10)
	for i := range hashes {
		hashes[i] = seedTransaction(t, store, fmt.Sprintf("PLATA CARD KAUFLAND %d", i))
	}

	for i, hash := range hashes {
		err := loop.LearnFromFeedback(context.Background(), hash, "", model.Corrections{
			Merchant: strPtr(fmt.Sprintf("Kaufland %d", i)),
		})
		require.NoError(t, err)
	}

	assert.Equal(t, 1, trainer.merchantRetrains)
	assert.Equal(t, 0, trainer.categoryRetrains)
	assert.Equal(t, 1, trainer.amountRetrains)

	state, err := store.GetModelState(context.Background(), ModelStateKey)
	require.NoError(t, err)
	assert.NotEmpty(t, state)
}

func TestLearnFromFeedback_WindowBoundedAfterRetrain(t *testing.T) {
	store := testutil.SetupTestDB(t)
	classifier := classify.NewClassifier(nil)
	loop := NewLoop(store, classifier, nil, nil)

	for i := 0; i < 10; i++ {
		hash := seedTransaction(t, store, fmt.Sprintf("PLATA CARD LIDL %d", i))
		err := loop.LearnFromFeedback(context.Background(), hash, "", model.Corrections{
			Merchant: strPtr("Lidl"),
		})
		require.NoError(t, err)
	}

	assert.LessOrEqual(t, classifier.WindowSize(classify.ModelMerchant), 25)
}

func TestLearnFromFeedback_RetrainFailureDoesNotBlock(t *testing.T) {
	store := testutil.SetupTestDB(t)
	trainer := &fakeTrainer{retrainMerchantErr: assert.AnError}
	loop := NewLoop(store, trainer, nil, nil)

	for i := 0; i < 10; i++ {
		hash := seedTransaction(t, store, fmt.Sprintf("POS OMV %d", i))
		err := loop.LearnFromFeedback(context.Background(), hash, "", model.Corrections{
			Merchant: strPtr("OMV"),
		})
		require.NoError(t, err)
	}

	assert.Equal(t, 1, trainer.merchantRetrains)
	assert.Equal(t, 1, trainer.amountRetrains)
}

func TestRestoreState_MissingIsNoop(t *testing.T) {
	store := testutil.SetupTestDB(t)

	called := false
	err := RestoreState(context.Background(), store, func([]byte) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.False(t, called)
}

func TestRestoreState_RoundTrip(t *testing.T) {
	store := testutil.SetupTestDB(t)
	classifier := classify.NewClassifier(nil)
	for i := 0; i < 4; i++ {
		classifier.UpdateMerchant(fmt.Sprintf("plata kaufland %d", i), "KAUFLAND")
		classifier.UpdateMerchant(fmt.Sprintf("bolt ride %d", i), "BOLT")
	}
	state, err := classifier.Snapshot()
	require.NoError(t, err)
	require.NoError(t, store.SaveModelState(context.Background(), ModelStateKey, state))

	restored := classify.NewClassifier(nil)
	require.NoError(t, RestoreState(context.Background(), store, restored.Restore))

	assert.Equal(t,
		classifier.WindowSize(classify.ModelMerchant),
		restored.WindowSize(classify.ModelMerchant))
}

func TestWasCorrect(t *testing.T) {
	tests := []struct {
		name        string
		corrections model.Corrections
		want        bool
	}{
		{"explicit correct", model.Corrections{IsCorrect: boolPtr(true)}, true},
		{"explicit incorrect", model.Corrections{IsCorrect: boolPtr(false)}, false},
		{"merchant correction implies wrong", model.Corrections{Merchant: strPtr("X")}, false},
		{"empty implies confirmed", model.Corrections{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, wasCorrect(tt.corrections))
		})
	}
}
