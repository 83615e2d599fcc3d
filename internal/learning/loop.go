// Package learning drives the feedback loop: it persists user corrections,
// feeds them back into the classifier and the pattern accuracy state, and
// triggers periodic retraining.
package learning

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ledgerlens/ledgerlens/internal/model"
	"github.com/ledgerlens/ledgerlens/internal/service"
)

const (
	// retrainEvery is the feedback interval between full retrains.
	retrainEvery = 10
	// retrainHistory bounds how much feedback history a retrain considers.
	retrainHistory = 100
)

// Trainer is the classifier surface the loop drives. Satisfied by
// classify.Classifier.
type Trainer interface {
	UpdateMerchant(text, label string)
	UpdateCategory(text string, amount float64, label string)
	UpdateAmountRange(text string, amount float64)
	RetrainMerchant() error
	RetrainCategory() error
	RetrainAmountRange() error
	Snapshot() ([]byte, error)
}

// PatternUpdater adapts learned-pattern accuracy from feedback. Satisfied by
// signature.Engine.
type PatternUpdater interface {
	UpdatePatternAccuracy(ctx context.Context, signatureHash string, wasCorrect bool) error
}

// Loop applies feedback sequentially: updates, EMA adjustments, and retrains
// happen in arrival order under a single mutex.
type Loop struct {
	store    service.Store
	trainer  Trainer
	patterns PatternUpdater
	logger   *slog.Logger
	mu       sync.Mutex
}

// NewLoop creates a learning loop. patterns may be nil when no signature
// engine participates (raw-text pipelines without detection feedback).
func NewLoop(store service.Store, trainer Trainer, patterns PatternUpdater, logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{store: store, trainer: trainer, patterns: patterns, logger: logger}
}

// LearnFromFeedback records one user correction and folds it into the
// trainable state. patternHash ties the correction to the learned pattern
// that detected the document; empty when unknown. Every tenth accumulated
// feedback record triggers a retrain of the corrected predictors.
func (l *Loop) LearnFromFeedback(ctx context.Context, transactionHash, patternHash string, corrections model.Corrections) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	original, err := l.store.GetTransactionByHash(ctx, transactionHash)
	if err != nil {
		return fmt.Errorf("load transaction for feedback: %w", err)
	}

	feedback := &model.Feedback{
		TransactionHash: transactionHash,
		PatternHash:     patternHash,
		Original:        *original,
		Corrections:     corrections,
		Timestamp:       time.Now().UTC(),
	}
	if err := l.store.SaveFeedback(ctx, feedback); err != nil {
		return fmt.Errorf("persist feedback: %w", err)
	}

	l.applyCorrections(*original, corrections)

	if patternHash != "" && l.patterns != nil {
		if err := l.patterns.UpdatePatternAccuracy(ctx, patternHash, wasCorrect(corrections)); err != nil {
			l.logger.Warn("pattern accuracy update failed",
				"pattern", patternHash, "error", err)
		}
	}

	count, err := l.store.CountFeedback(ctx)
	if err != nil {
		l.logger.Warn("feedback count unavailable, skipping retrain check", "error", err)
		return nil
	}
	if count%retrainEvery == 0 {
		l.retrainModels(ctx)
	}
	return nil
}

// applyCorrections pushes corrected labels into the classifier windows. The
// amount-range window always receives the observed amount so range buckets
// stay calibrated.
func (l *Loop) applyCorrections(original model.Transaction, corrections model.Corrections) {
	text := original.Description
	if text == "" {
		return
	}

	if corrections.Merchant != nil && *corrections.Merchant != "" {
		l.trainer.UpdateMerchant(text, *corrections.Merchant)
	}
	if corrections.Category != nil && *corrections.Category != "" {
		l.trainer.UpdateCategory(text, original.Amount, *corrections.Category)
	}
	if corrections.IsCorrect != nil && *corrections.IsCorrect {
		// Confirmation reinforces the labels the pipeline already chose.
		if original.Merchant != "" {
			l.trainer.UpdateMerchant(text, original.Merchant)
		}
		if original.Category != "" {
			l.trainer.UpdateCategory(text, original.Amount, original.Category)
		}
	}
	l.trainer.UpdateAmountRange(text, original.Amount)
}

// retrainModels retrains the predictors touched by the most recent feedback
// and persists the serialized windows. Best-effort: one predictor's failure
// never blocks the others.
func (l *Loop) retrainModels(ctx context.Context) {
	recent, err := l.store.GetRecentFeedback(ctx, retrainHistory)
	if err != nil {
		l.logger.Warn("feedback history unavailable, retraining all predictors", "error", err)
	}

	merchant, category := false, false
	for _, fb := range recent {
		if fb.Corrections.Merchant != nil {
			merchant = true
		}
		if fb.Corrections.Category != nil {
			category = true
		}
		if fb.Corrections.IsCorrect != nil && *fb.Corrections.IsCorrect {
			merchant, category = true, true
		}
	}
	if err != nil {
		merchant, category = true, true
	}

	if merchant {
		if err := l.trainer.RetrainMerchant(); err != nil {
			l.logger.Warn("merchant retrain failed", "error", err)
		}
	}
	if category {
		if err := l.trainer.RetrainCategory(); err != nil {
			l.logger.Warn("category retrain failed", "error", err)
		}
	}
	if err := l.trainer.RetrainAmountRange(); err != nil {
		l.logger.Warn("amount range retrain failed", "error", err)
	}

	l.persistState(ctx)
	l.logger.Info("retrain cycle complete",
		"merchant", merchant,
		"category", category,
		"history", len(recent))
}

// persistState saves the serialized training windows so a restarted process
// resumes with the same models.
func (l *Loop) persistState(ctx context.Context) {
	state, err := l.trainer.Snapshot()
	if err != nil {
		l.logger.Warn("classifier snapshot failed", "error", err)
		return
	}
	if err := l.store.SaveModelState(ctx, ModelStateKey, state); err != nil {
		l.logger.Warn("model state persist failed", "error", err)
	}
}

// ModelStateKey is the models-collection key holding the serialized
// classifier windows.
const ModelStateKey = "classifier"

// RestoreState loads previously persisted training windows into a restorer.
// Missing state is not an error.
func RestoreState(ctx context.Context, store service.Store, restore func([]byte) error) error {
	state, err := store.GetModelState(ctx, ModelStateKey)
	if err != nil {
		return fmt.Errorf("load model state: %w", err)
	}
	if len(state) == 0 {
		return nil
	}
	return restore(state)
}

// wasCorrect interprets corrections as detection feedback: an explicit
// isCorrect wins, otherwise the presence of any correction means the
// detection-driven result was wrong.
func wasCorrect(corrections model.Corrections) bool {
	if corrections.IsCorrect != nil {
		return *corrections.IsCorrect
	}
	return corrections.Merchant == nil && corrections.Category == nil
}
