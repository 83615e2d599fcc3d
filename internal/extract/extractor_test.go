package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerlens/ledgerlens/internal/model"
)

func TestScoreLine(t *testing.T) {
	extractor := NewExtractor()

	tests := []struct {
		name     string
		line     string
		wantMin  float64
		wantMax  float64
		features []string
	}{
		{
			name:     "full transaction line",
			line:     "15/09/2025  PLATA CARD KAUFLAND  -45.67",
			wantMin:  0.7,
			wantMax:  1.0,
			features: []string{"date", "amount"},
		},
		{
			name:    "header line",
			line:    "EXTRAS DE CONT",
			wantMin: 0,
			wantMax: 0.2,
		},
		{
			name:    "empty line",
			line:    "   ",
			wantMin: 0,
			wantMax: 0,
		},
		{
			name:     "merchant suffix adds weight",
			line:     "12.03.2025 PLATA FURNIZOR EXEMPLU SRL 120,00",
			wantMin:  0.9,
			wantMax:  1.0,
			features: []string{"date", "amount", "merchant_indicator"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			candidate := extractor.ScoreLine(tt.line)
			assert.GreaterOrEqual(t, candidate.Probability, tt.wantMin)
			assert.LessOrEqual(t, candidate.Probability, tt.wantMax)
			for _, feature := range tt.features {
				assert.Contains(t, candidate.MatchedFeatures, feature)
			}
		})
	}
}

func TestExtractFields_KauflandScenario(t *testing.T) {
	extractor := NewExtractor()

	candidate := extractor.ScoreLine("15/09/2025  PLATA CARD KAUFLAND  -45.67")
	require.Greater(t, candidate.Probability, 0.6)

	fields, ok := extractor.ExtractFields(candidate)
	require.True(t, ok)

	assert.Equal(t, "2025-09-15", fields.Date)
	assert.InDelta(t, -45.67, fields.Amount, 0.001)
	assert.Contains(t, fields.Description, "KAUFLAND")
	assert.Equal(t, CategoryGroceries, fields.Category)
	assert.Equal(t, "expense", fields.Type())
	assert.Greater(t, fields.Confidence, 0.6)
	assert.LessOrEqual(t, fields.Confidence, 1.0)
}

func TestExtractFields_DottedDateDoesNotBecomeAmount(t *testing.T) {
	extractor := NewExtractor()

	candidate := extractor.ScoreLine("15.09.2025  PLATA CARD KAUFLAND  -4,67")
	require.Greater(t, candidate.Probability, 0.6)

	fields, ok := extractor.ExtractFields(candidate)
	require.True(t, ok)

	assert.Equal(t, "2025-09-15", fields.Date)
	assert.InDelta(t, -4.67, fields.Amount, 0.001)
	assert.Equal(t, "PLATA CARD KAUFLAND", fields.Description)
}

func TestExtractFields_BookingAndValueDates(t *testing.T) {
	extractor := NewExtractor()

	fields, ok := extractor.ExtractFields(model.CandidateLine{
		Text:        "15.09.2025 16.09.2025 PLATA CARD LIDL -4,20",
		Probability: 0.7,
	})
	require.True(t, ok)

	assert.Equal(t, "2025-09-15", fields.Date)
	assert.InDelta(t, -4.20, fields.Amount, 0.001)
	assert.Equal(t, "PLATA CARD LIDL", fields.Description)
}

func TestExtractFields_LosingAmountStrippedFromDescription(t *testing.T) {
	extractor := NewExtractor()

	fields, ok := extractor.ExtractFields(model.CandidateLine{
		Text:        "15/09/2025 PLATA CARD KAUFLAND -45,67 SOLD 1.250,00",
		Probability: 0.8,
	})
	require.True(t, ok)

	assert.InDelta(t, 1250.00, fields.Amount, 0.001)
	assert.Equal(t, "PLATA CARD KAUFLAND SOLD", fields.Description)
}

func TestExtractFields_BelowThresholdDropped(t *testing.T) {
	extractor := NewExtractor()

	_, ok := extractor.ExtractFields(model.CandidateLine{
		Text:        "SOLD FINAL",
		Probability: 0.4,
	})
	assert.False(t, ok)
}

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		raw    string
		want   string
		wantOK bool
	}{
		{"15-09-2025", "2025-09-15", true},
		{"2025-09-15", "2025-09-15", true},
		{"15/09/2025", "2025-09-15", true},
		{"15.09.25", "2025-09-15", true},
		{"05.01.2024", "2024-01-05", true},
		{"2024-1-5", "2024-01-05", true},
		{"15-13-2025", "", false},
		{"not a date", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := NormalizeDate(tt.raw)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractAmount_PicksLargestMagnitude(t *testing.T) {
	tests := []struct {
		name string
		line string
		want float64
	}{
		{
			name: "two amounts, larger magnitude wins",
			line: "PLATA 12,50 TOTAL 1.250,00",
			want: 1250.00,
		},
		{
			name: "explicit negative sign kept",
			line: "PLATA CARD -45.67 SOLD 10,00",
			want: -45.67,
		},
		{
			name: "debit word flips sign",
			line: "DEBIT CONT 99,99",
			want: -99.99,
		},
		{
			name: "romanian thousands format",
			line: "TRANSFER 3.500,00",
			want: 3500.00,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, amount, ok := extractAmount(tt.line)
			require.True(t, ok)
			assert.InDelta(t, tt.want, amount, 0.001)
		})
	}
}

func TestExtractAmount_NoAmount(t *testing.T) {
	_, _, ok := extractAmount("EXTRAS DE CONT")
	assert.False(t, ok)
}

func TestCategoryLookup(t *testing.T) {
	table := defaultCategories()

	tests := []struct {
		line string
		want string
	}{
		{"PLATA CARD KAUFLAND", CategoryGroceries},
		{"BOLT RIDE BUCURESTI", CategoryTransport},
		{"FACTURA ENEL ENERGIE", CategoryUtilities},
		{"NETFLIX.COM", CategoryEntertainment},
		{"TRANSFER SALARIU SEPTEMBRIE", CategoryIncome},
		{"SOMETHING UNRECOGNIZED", ""},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, confidence := table.lookup(tt.line)
			assert.Equal(t, tt.want, got)
			if tt.want != "" {
				assert.Greater(t, confidence, 0.0)
			}
		})
	}
}
