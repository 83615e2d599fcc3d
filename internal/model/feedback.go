package model

import "time"

// Corrections carries the fields a user changed on a transaction. Nil fields
// were left untouched.
type Corrections struct {
	Merchant  *string
	Category  *string
	IsCorrect *bool
}

// Feedback is one user correction tied to a persisted transaction.
// Append-only; read back in batches to drive retraining.
type Feedback struct {
	Timestamp       time.Time
	ID              string
	TransactionHash string
	PatternHash     string
	Original        Transaction
	Corrections     Corrections
}

// Merchant is a normalized merchant name with usage statistics, fed to the
// fuzzy matcher.
type Merchant struct {
	LastSeenAt time.Time
	Name       string
	Normalized string
	Category   string
	UseCount   int
}
