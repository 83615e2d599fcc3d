// Package model defines the core domain models used throughout the application.
package model

import (
	"crypto/sha256"
	"fmt"
	"time"
)

// PredictionMethod records which path produced a prediction.
type PredictionMethod string

// Prediction methods.
const (
	MethodBayes     PredictionMethod = "bayes"
	MethodRuleBased PredictionMethod = "rule_based"
	MethodFuzzy     PredictionMethod = "fuzzy"
)

// PredictionKind identifies what a prediction is about.
type PredictionKind string

// Prediction kinds.
const (
	KindMerchant    PredictionKind = "merchant"
	KindCategory    PredictionKind = "category"
	KindAmountRange PredictionKind = "amount_range"
)

// Prediction is a single classifier output. Predictions are never persisted
// standalone, only embedded in a Transaction.
type Prediction struct {
	Kind       PredictionKind
	Value      string
	Method     PredictionMethod
	Confidence float64
}

// Transaction represents a single extracted and fused financial transaction.
type Transaction struct {
	Date               time.Time
	Processed          time.Time
	Description        string
	Merchant           string
	Category           string
	Hash               string
	Predictions        []Prediction
	// Improvements is a human-readable log of the fusion decisions that
	// upgraded the raw extraction. Informational only, never persisted.
	Improvements []string
	Amount             float64
	MerchantConfidence float64
	CategoryConfidence float64
	OverallConfidence  float64
	MLEnhanced         bool
}

// GenerateHash creates a stable content hash of (date, amount, description)
// used for duplicate detection at the storage boundary.
func (t *Transaction) GenerateHash() string {
	data := fmt.Sprintf("%s:%.2f:%s",
		t.Date.Format("2006-01-02"),
		t.Amount,
		t.Description)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}

// ExtractedFields holds the per-line extraction result before fusion.
type ExtractedFields struct {
	Date        string
	Description string
	Category    string
	Amount      float64
	Confidence  float64
}

// Type reports the transaction direction implied by the amount sign.
func (f ExtractedFields) Type() string {
	if f.Amount < 0 {
		return "expense"
	}
	return "income"
}

// CandidateLine is a source text line scored for transaction likelihood.
type CandidateLine struct {
	Text            string
	MatchedFeatures []string
	Probability     float64
}

// IsTransaction reports whether the line cleared the extraction threshold.
func (c CandidateLine) IsTransaction() bool {
	return c.Probability > 0.6
}
