package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGenerateHash_Deterministic(t *testing.T) {
	day := time.Date(2025, 9, 15, 0, 0, 0, 0, time.UTC)
	a := Transaction{Date: day, Amount: -45.67, Description: "PLATA CARD KAUFLAND"}
	b := Transaction{Date: day.Add(3 * time.Hour), Amount: -45.67, Description: "PLATA CARD KAUFLAND"}

	assert.Equal(t, a.GenerateHash(), b.GenerateHash())
	assert.Len(t, a.GenerateHash(), 64)
}

func TestGenerateHash_DistinctInputs(t *testing.T) {
	base := Transaction{
		Date:        time.Date(2025, 9, 15, 0, 0, 0, 0, time.UTC),
		Amount:      -45.67,
		Description: "PLATA CARD KAUFLAND",
	}

	tests := []struct {
		name  string
		mutor func(Transaction) Transaction
	}{
		{"different amount", func(tx Transaction) Transaction { tx.Amount = -45.68; return tx }},
		{"different date", func(tx Transaction) Transaction { tx.Date = tx.Date.AddDate(0, 0, 1); return tx }},
		{"different description", func(tx Transaction) Transaction { tx.Description = "PLATA CARD LIDL"; return tx }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mutated := tt.mutor(base)
			assert.NotEqual(t, base.GenerateHash(), mutated.GenerateHash())
		})
	}
}

func TestCandidateLine_IsTransaction(t *testing.T) {
	assert.False(t, CandidateLine{Probability: 0.6}.IsTransaction())
	assert.True(t, CandidateLine{Probability: 0.61}.IsTransaction())
	assert.False(t, CandidateLine{}.IsTransaction())
}
