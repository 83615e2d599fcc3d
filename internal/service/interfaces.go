// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"image"
	"time"

	"github.com/ledgerlens/ledgerlens/internal/model"
)

// Store defines the contract for the persistence layer. Collections map to
// the entities in internal/model; transactions are unique on their content
// hash, feedback is append-only.
type Store interface {
	// Learned pattern operations
	SavePattern(ctx context.Context, pattern *model.LearnedPattern) error
	GetPattern(ctx context.Context, signatureHash string) (*model.LearnedPattern, error)
	GetAllPatterns(ctx context.Context) ([]model.LearnedPattern, error)
	CountPatterns(ctx context.Context) (int, error)

	// Merchant operations
	SaveMerchant(ctx context.Context, merchant *model.Merchant) error
	GetMerchant(ctx context.Context, normalized string) (*model.Merchant, error)
	GetAllMerchants(ctx context.Context) ([]model.Merchant, error)

	// Transaction operations
	SaveTransactions(ctx context.Context, transactions []model.Transaction) (int, error)
	GetTransactionByHash(ctx context.Context, hash string) (*model.Transaction, error)
	GetTransactions(ctx context.Context, limit int) ([]model.Transaction, error)
	CountTransactions(ctx context.Context) (int, error)

	// Model state operations, keyed by predictor name
	SaveModelState(ctx context.Context, name string, state []byte) error
	GetModelState(ctx context.Context, name string) ([]byte, error)

	// Feedback operations
	SaveFeedback(ctx context.Context, feedback *model.Feedback) error
	GetRecentFeedback(ctx context.Context, limit int) ([]model.Feedback, error)
	CountFeedback(ctx context.Context) (int, error)

	// Statistics counters
	IncrementStat(ctx context.Context, name string, delta int) error
	GetStats(ctx context.Context) (map[string]int, error)

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// Recognizer is the OCR capability. Implementations must be safe for
// concurrent use by the recognizer pool.
type Recognizer interface {
	Recognize(ctx context.Context, img image.Image, pageIndex int) (model.RecognizedPage, error)
}

// Preprocessor enhances a page image before recognition. Best-effort:
// implementations return the input unchanged on failure.
type Preprocessor interface {
	Enhance(img image.Image) image.Image
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
