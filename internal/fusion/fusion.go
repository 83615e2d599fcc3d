package fusion

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ledgerlens/ledgerlens/internal/extract"
	"github.com/ledgerlens/ledgerlens/internal/model"
)

// Resolution thresholds and overall-confidence weights.
const (
	merchantModelThreshold = 0.5
	fuzzyMatchThreshold    = 0.7
	categoryThreshold      = 0.6

	merchantWeight = 0.4
	fuzzyWeight    = 0.3
	fieldWeight    = 0.2
)

// Engine merges extracted fields, classifier predictions, and fuzzy registry
// matches into final transactions.
type Engine struct {
	matcher *Matcher
	logger  *slog.Logger
}

// NewEngine creates a fusion engine over the given merchant matcher.
func NewEngine(matcher *Matcher, logger *slog.Logger) *Engine {
	if matcher == nil {
		matcher = NewMatcher(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{matcher: matcher, logger: logger}
}

// Matcher exposes the underlying merchant matcher so callers can rebuild it
// when the registry changes.
func (e *Engine) Matcher() *Matcher {
	return e.matcher
}

// Fuse resolves one extracted line against its predictions. The merchant
// resolution order is model prediction, then fuzzy registry match, then the
// merchant guessed from the raw description.
func (e *Engine) Fuse(fields model.ExtractedFields, predictions []model.Prediction) model.Transaction {
	tx := model.Transaction{
		Date:        parseDate(fields.Date),
		Description: fields.Description,
		Amount:      fields.Amount,
		Category:    fields.Category,
		Predictions: predictions,
	}

	merchantPred := findPrediction(predictions, model.KindMerchant)
	categoryPred := findPrediction(predictions, model.KindCategory)

	fuzzyConfidence := 0.0
	match := e.matcher.Match(fields.Description, fuzzyMatchThreshold)
	if match != nil {
		fuzzyConfidence = match.Score
	}

	switch {
	case merchantPred != nil && merchantPred.Method == model.MethodBayes &&
		merchantPred.Confidence > merchantModelThreshold:
		tx.Merchant = merchantPred.Value
		tx.MerchantConfidence = merchantPred.Confidence
		tx.MLEnhanced = true
		tx.Improvements = append(tx.Improvements,
			fmt.Sprintf("merchant: model prediction %q (%.2f) over extracted", merchantPred.Value, merchantPred.Confidence))
	case match != nil:
		tx.Merchant = match.Name
		tx.MerchantConfidence = match.Score
		tx.Predictions = append(tx.Predictions, model.Prediction{
			Kind:       model.KindMerchant,
			Value:      match.Name,
			Method:     model.MethodFuzzy,
			Confidence: match.Score,
		})
		tx.Improvements = append(tx.Improvements,
			fmt.Sprintf("merchant: registry match %q (%.2f)", match.Name, match.Score))
	case merchantPred != nil && merchantPred.Value != "":
		tx.Merchant = merchantPred.Value
		tx.MerchantConfidence = merchantPred.Confidence
		tx.Improvements = append(tx.Improvements,
			fmt.Sprintf("merchant: %s prediction %q (%.2f)", merchantPred.Method, merchantPred.Value, merchantPred.Confidence))
	default:
		tx.Merchant = strings.TrimSpace(fields.Description)
		tx.MerchantConfidence = fields.Confidence
	}

	switch {
	case categoryPred != nil && categoryPred.Confidence > categoryThreshold:
		tx.Category = categoryPred.Value
		tx.CategoryConfidence = categoryPred.Confidence
		if categoryPred.Method == model.MethodBayes {
			tx.MLEnhanced = true
		}
		tx.Improvements = append(tx.Improvements,
			fmt.Sprintf("category: %s prediction %q (%.2f)", categoryPred.Method, categoryPred.Value, categoryPred.Confidence))
	case match != nil && match.Category != "":
		tx.Category = match.Category
		tx.CategoryConfidence = match.Score
		tx.Improvements = append(tx.Improvements,
			fmt.Sprintf("category: registry match %q via %q", match.Category, match.Name))
	case tx.Category != "":
		tx.CategoryConfidence = fields.Confidence
	default:
		tx.Category = extract.CategoryGeneral
		tx.CategoryConfidence = fields.Confidence
	}

	tx.OverallConfidence = clamp01(
		merchantWeight*tx.MerchantConfidence +
			fuzzyWeight*fuzzyConfidence +
			fieldWeight*fields.Confidence)
	tx.Hash = tx.GenerateHash()

	if tx.MLEnhanced {
		e.logger.Debug("fusion used model predictions",
			"merchant", tx.Merchant,
			"category", tx.Category,
			"confidence", tx.OverallConfidence)
	}
	return tx
}

// FuseAll fuses a batch of extracted lines with their per-line predictions.
// The two slices are index-aligned; predictions may be shorter.
func (e *Engine) FuseAll(fields []model.ExtractedFields, predictions [][]model.Prediction) []model.Transaction {
	transactions := make([]model.Transaction, 0, len(fields))
	for i, f := range fields {
		var preds []model.Prediction
		if i < len(predictions) {
			preds = predictions[i]
		}
		transactions = append(transactions, e.Fuse(f, preds))
	}
	return transactions
}

func findPrediction(predictions []model.Prediction, kind model.PredictionKind) *model.Prediction {
	for i := range predictions {
		if predictions[i].Kind == kind {
			return &predictions[i]
		}
	}
	return nil
}

func parseDate(value string) time.Time {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}
	}
	return t
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
