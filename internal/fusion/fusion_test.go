package fusion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerlens/ledgerlens/internal/extract"
	"github.com/ledgerlens/ledgerlens/internal/model"
)

func testMerchants() []model.Merchant {
	return []model.Merchant{
		{Name: "Kaufland", Normalized: "KAUFLAND", Category: extract.CategoryGroceries, UseCount: 12},
		{Name: "Lidl", Normalized: "LIDL", Category: extract.CategoryGroceries, UseCount: 4},
		{Name: "OMV", Normalized: "OMV", Category: extract.CategoryTransport, UseCount: 7},
	}
}

func TestMatcher_ContainmentMatch(t *testing.T) {
	matcher := NewMatcher(testMerchants())

	match := matcher.Match("PLATA CARD KAUFLAND MILITARI", 0.7)

	require.NotNil(t, match)
	assert.Equal(t, "Kaufland", match.Name)
	assert.Equal(t, extract.CategoryGroceries, match.Category)
	assert.Greater(t, match.Score, 0.7)
}

func TestMatcher_BelowThreshold(t *testing.T) {
	matcher := NewMatcher(testMerchants())

	assert.Nil(t, matcher.Match("TRANSFER CONT PROPRIU", 0.7))
}

func TestMatcher_EmptyRegistry(t *testing.T) {
	matcher := NewMatcher(nil)

	assert.Nil(t, matcher.Match("PLATA CARD KAUFLAND", 0.7))
	assert.Equal(t, 0, matcher.PatternCount())
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		name string
		s1   string
		s2   string
		min  float64
		max  float64
	}{
		{"exact", "KAUFLAND", "KAUFLAND", 1, 1},
		{"contained", "PLATA KAUFLAND 001", "KAUFLAND", 0.75, 1},
		{"one edit", "KAUFLAND", "KAUFLAMD", 0.8, 1},
		{"unrelated", "KAUFLAND", "ENEL", 0, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score := similarity(tt.s1, tt.s2)
			assert.GreaterOrEqual(t, score, tt.min)
			assert.LessOrEqual(t, score, tt.max)
		})
	}
}

func TestFuse_ModelPredictionWins(t *testing.T) {
	engine := NewEngine(NewMatcher(testMerchants()), nil)

	fields := model.ExtractedFields{
		Date:        "2025-09-15",
		Description: "PLATA CARD KAUFLAND",
		Amount:      -45.67,
		Category:    extract.CategoryGroceries,
		Confidence:  0.8,
	}
	predictions := []model.Prediction{
		{Kind: model.KindMerchant, Value: "Kaufland Romania", Method: model.MethodBayes, Confidence: 0.9},
		{Kind: model.KindCategory, Value: extract.CategoryGroceries, Method: model.MethodBayes, Confidence: 0.85},
	}

	tx := engine.Fuse(fields, predictions)

	assert.Equal(t, "Kaufland Romania", tx.Merchant)
	assert.Equal(t, extract.CategoryGroceries, tx.Category)
	assert.True(t, tx.MLEnhanced)
	assert.Equal(t, 2025, tx.Date.Year())
	assert.NotEmpty(t, tx.Hash)
}

func TestFuse_RecordsImprovements(t *testing.T) {
	engine := NewEngine(NewMatcher(testMerchants()), nil)

	fields := model.ExtractedFields{
		Date:        "2025-09-15",
		Description: "PLATA CARD KAUFLAND",
		Amount:      -45.67,
		Confidence:  0.8,
	}
	predictions := []model.Prediction{
		{Kind: model.KindMerchant, Value: "Kaufland Romania", Method: model.MethodBayes, Confidence: 0.9},
		{Kind: model.KindCategory, Value: extract.CategoryGroceries, Method: model.MethodBayes, Confidence: 0.85},
	}

	tx := engine.Fuse(fields, predictions)

	require.Len(t, tx.Improvements, 2)
	assert.Contains(t, tx.Improvements[0], "merchant: model prediction")
	assert.Contains(t, tx.Improvements[0], "Kaufland Romania")
	assert.Contains(t, tx.Improvements[1], "category: bayes prediction")
}

func TestFuse_NoImprovementsOnExtractedFallback(t *testing.T) {
	engine := NewEngine(NewMatcher(nil), nil)

	tx := engine.Fuse(model.ExtractedFields{
		Date:        "2025-09-15",
		Description: "COMISION ADMINISTRARE",
		Amount:      -5,
		Confidence:  0.65,
	}, nil)

	assert.Empty(t, tx.Improvements)
}

func TestFuse_FuzzyFallback(t *testing.T) {
	engine := NewEngine(NewMatcher(testMerchants()), nil)

	fields := model.ExtractedFields{
		Date:        "2025-09-15",
		Description: "POS KAUFLAND BERCENI",
		Amount:      -30,
		Confidence:  0.7,
	}
	// Low-confidence model output must not win over a strong fuzzy match.
	predictions := []model.Prediction{
		{Kind: model.KindMerchant, Value: "KAUFLAND BERCENI", Method: model.MethodRuleBased, Confidence: 0.7},
	}

	tx := engine.Fuse(fields, predictions)

	assert.Equal(t, "Kaufland", tx.Merchant)
	assert.False(t, tx.MLEnhanced)

	var fuzzyPred *model.Prediction
	for i := range tx.Predictions {
		if tx.Predictions[i].Method == model.MethodFuzzy {
			fuzzyPred = &tx.Predictions[i]
		}
	}
	require.NotNil(t, fuzzyPred)
	assert.Greater(t, fuzzyPred.Confidence, 0.7)
}

func TestFuse_ExtractedFallback(t *testing.T) {
	engine := NewEngine(NewMatcher(nil), nil)

	fields := model.ExtractedFields{
		Date:        "2025-09-15",
		Description: "COMISION ADMINISTRARE",
		Amount:      -5,
		Confidence:  0.65,
	}

	tx := engine.Fuse(fields, nil)

	assert.Equal(t, "COMISION ADMINISTRARE", tx.Merchant)
	assert.Equal(t, extract.CategoryGeneral, tx.Category)
	assert.False(t, tx.MLEnhanced)
}

func TestFuse_LowConfidenceCategoryFallsBackToGeneral(t *testing.T) {
	engine := NewEngine(NewMatcher(nil), nil)

	fields := model.ExtractedFields{
		Date:        "2025-09-15",
		Description: "XYZZY",
		Amount:      -12,
		Confidence:  0.61,
	}
	predictions := []model.Prediction{
		{Kind: model.KindCategory, Value: extract.CategoryEntertainment, Method: model.MethodBayes, Confidence: 0.4},
	}

	tx := engine.Fuse(fields, predictions)

	assert.Equal(t, extract.CategoryGeneral, tx.Category)
}

// Raising any input confidence can only raise the fused overall confidence.
func TestFuse_OverallConfidenceMonotone(t *testing.T) {
	engine := NewEngine(NewMatcher(nil), nil)

	base := model.ExtractedFields{
		Date:        "2025-09-15",
		Description: "PLATA CARD LIDL",
		Amount:      -20,
		Confidence:  0.6,
	}

	low := engine.Fuse(base, []model.Prediction{
		{Kind: model.KindMerchant, Value: "Lidl", Method: model.MethodBayes, Confidence: 0.55},
	})
	high := engine.Fuse(base, []model.Prediction{
		{Kind: model.KindMerchant, Value: "Lidl", Method: model.MethodBayes, Confidence: 0.95},
	})

	assert.GreaterOrEqual(t, high.OverallConfidence, low.OverallConfidence)
	assert.LessOrEqual(t, high.OverallConfidence, 1.0)
	assert.GreaterOrEqual(t, low.OverallConfidence, 0.0)
}

func TestFuseAll_IndexAligned(t *testing.T) {
	engine := NewEngine(NewMatcher(testMerchants()), nil)

	fields := []model.ExtractedFields{
		{Date: "2025-09-15", Description: "PLATA CARD KAUFLAND", Amount: -45.67, Confidence: 0.8},
		{Date: "2025-09-16", Description: "COMISION", Amount: -2.5, Confidence: 0.62},
	}
	predictions := [][]model.Prediction{
		{{Kind: model.KindMerchant, Value: "Kaufland", Method: model.MethodBayes, Confidence: 0.9}},
	}

	transactions := engine.FuseAll(fields, predictions)

	require.Len(t, transactions, 2)
	assert.Equal(t, "Kaufland", transactions[0].Merchant)
	assert.Equal(t, "COMISION", transactions[1].Merchant)
}
