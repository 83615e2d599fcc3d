// Package classify implements the trainable merchant, category and
// amount-range predictors with deterministic rule-based fallbacks.
package classify

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jbrukh/bayesian"

	"github.com/ledgerlens/ledgerlens/internal/common"
	"github.com/ledgerlens/ledgerlens/internal/extract"
	"github.com/ledgerlens/ledgerlens/internal/model"
)

// Window and training bounds.
const (
	defaultWindowCap = 50
	// retrainThreshold is the window size that triggers an automatic
	// retrain on update.
	retrainThreshold = 15
	// bayesMinConfidence is the floor under which a trained prediction is
	// discarded in favor of the rule fallback.
	bayesMinConfidence = 0.4
)

// Predictor names, used as model state keys at the storage boundary.
const (
	ModelMerchant    = "merchant"
	ModelCategory    = "category"
	ModelAmountRange = "amount_range"
)

// predictor pairs a bounded training window with a rebuildable naive Bayes
// model. The model is nil until enough distinct labels have been observed.
type predictor struct {
	model   *bayesian.Classifier
	window  *trainingWindow
	classes []bayesian.Class
	// fixedClasses, when set, pins the class list instead of deriving it
	// from window labels.
	fixedClasses []string
}

func newPredictor(fixedClasses []string) *predictor {
	return &predictor{
		window:       newTrainingWindow(defaultWindowCap),
		fixedClasses: fixedClasses,
	}
}

// rebuild retrains the model from the current window contents. Samples whose
// label is outside a fixed class list are skipped; bayesian.Learn on an
// unregistered class dereferences a nil class entry.
func (p *predictor) rebuild() {
	labels := p.fixedClasses
	if labels == nil {
		labels = p.window.labels()
	}
	if len(labels) < 2 || p.window.len() == 0 {
		p.model = nil
		return
	}

	classes := make([]bayesian.Class, len(labels))
	known := make(map[bayesian.Class]bool, len(labels))
	for i, label := range labels {
		classes[i] = bayesian.Class(label)
		known[classes[i]] = true
	}

	cl := bayesian.NewClassifier(classes...)
	learned := 0
	for _, sample := range p.window.samples {
		class := bayesian.Class(sample.Label)
		if !known[class] {
			continue
		}
		cl.Learn(encode(sample.Text, sample.Amount, ""), class)
		learned++
	}
	if learned == 0 {
		p.model = nil
		return
	}
	p.model = cl
	p.classes = classes
}

// predict scores the tokens against the trained model.
func (p *predictor) predict(tokens []string) (string, float64, error) {
	if p.model == nil {
		return "", 0, common.ErrModelUnavailable
	}
	scores, idx, _ := p.model.ProbScores(tokens)
	if idx < 0 || idx >= len(p.classes) {
		return "", 0, common.ErrNotTrained
	}
	return string(p.classes[idx]), scores[idx], nil
}

// Classifier holds the three predictors. All methods are safe for
// concurrent use; training windows are the only mutable state.
type Classifier struct {
	logger      *slog.Logger
	merchant    *predictor
	category    *predictor
	amountRange *predictor
	mu          sync.Mutex
}

// NewClassifier creates a classifier with empty training windows. Until
// trained, every prediction takes the rule-based path.
func NewClassifier(logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{
		logger:      logger,
		merchant:    newPredictor(nil),
		category:    newPredictor(extract.Categories()),
		amountRange: newPredictor(AmountRanges()),
	}
}

// PredictMerchant predicts the merchant behind a transaction description.
func (c *Classifier) PredictMerchant(text string) model.Prediction {
	c.mu.Lock()
	value, confidence, err := c.merchant.predict(encode(text, 0, ""))
	c.mu.Unlock()

	if err == nil && confidence >= bayesMinConfidence {
		return model.Prediction{
			Kind:       model.KindMerchant,
			Value:      value,
			Confidence: confidence,
			Method:     model.MethodBayes,
		}
	}

	if value, confidence := applyRules(merchantRules, text); value != "" {
		return model.Prediction{
			Kind:       model.KindMerchant,
			Value:      value,
			Confidence: confidence,
			Method:     model.MethodRuleBased,
		}
	}

	if guessed := guessMerchant(text); guessed != "" {
		return model.Prediction{
			Kind:       model.KindMerchant,
			Value:      guessed,
			Confidence: 0.6,
			Method:     model.MethodRuleBased,
		}
	}

	return model.Prediction{Kind: model.KindMerchant, Method: model.MethodRuleBased}
}

// PredictCategory predicts the spending category for a description, using
// the amount and an optional merchant hint as additional features.
func (c *Classifier) PredictCategory(text string, amount float64, merchantHint string) model.Prediction {
	c.mu.Lock()
	value, confidence, err := c.category.predict(encode(text, amount, merchantHint))
	c.mu.Unlock()

	if err == nil && confidence >= bayesMinConfidence {
		return model.Prediction{
			Kind:       model.KindCategory,
			Value:      value,
			Confidence: confidence,
			Method:     model.MethodBayes,
		}
	}

	if value, confidence := applyRules(categoryRules, text); value != "" {
		return model.Prediction{
			Kind:       model.KindCategory,
			Value:      value,
			Confidence: confidence,
			Method:     model.MethodRuleBased,
		}
	}

	if amount > 0 {
		return model.Prediction{
			Kind:       model.KindCategory,
			Value:      extract.CategoryIncome,
			Confidence: 0.6,
			Method:     model.MethodRuleBased,
		}
	}

	return model.Prediction{
		Kind:       model.KindCategory,
		Value:      extract.CategoryGeneral,
		Confidence: 0.6,
		Method:     model.MethodRuleBased,
	}
}

// PredictAmountRange predicts the expected spend bucket for a description.
func (c *Classifier) PredictAmountRange(text string, merchantHint string) model.Prediction {
	c.mu.Lock()
	value, confidence, err := c.amountRange.predict(encode(text, 0, merchantHint))
	c.mu.Unlock()

	if err == nil && confidence >= bayesMinConfidence {
		return model.Prediction{
			Kind:       model.KindAmountRange,
			Value:      value,
			Confidence: confidence,
			Method:     model.MethodBayes,
		}
	}

	if value, confidence := applyRules(amountRangeRules, text); value != "" {
		return model.Prediction{
			Kind:       model.KindAmountRange,
			Value:      value,
			Confidence: confidence,
			Method:     model.MethodRuleBased,
		}
	}

	return model.Prediction{
		Kind:       model.KindAmountRange,
		Value:      RangeSmall,
		Confidence: 0.6,
		Method:     model.MethodRuleBased,
	}
}

// UpdateMerchant appends a training sample for the merchant predictor.
func (c *Classifier) UpdateMerchant(text, label string) {
	c.update(c.merchant, Sample{Text: text, Label: label, SeenAt: time.Now().UTC()})
}

// UpdateCategory appends a training sample for the category predictor.
// Labels outside the fixed category set are dropped; the category model's
// class list is pinned at construction.
func (c *Classifier) UpdateCategory(text string, amount float64, label string) {
	if !KnownCategory(label) {
		c.logger.Warn("dropping training sample with unknown category", "label", label)
		return
	}
	c.update(c.category, Sample{Text: text, Label: label, Amount: amount, SeenAt: time.Now().UTC()})
}

// KnownCategory reports whether a label belongs to the fixed category set.
func KnownCategory(label string) bool {
	return categorySet[label]
}

var categorySet = func() map[string]bool {
	set := make(map[string]bool)
	for _, category := range extract.Categories() {
		set[category] = true
	}
	return set
}()

// UpdateAmountRange appends a training sample for the amount-range
// predictor, deriving the label from the observed amount.
func (c *Classifier) UpdateAmountRange(text string, amount float64) {
	c.update(c.amountRange, Sample{Text: text, Label: amountRange(amount), Amount: amount, SeenAt: time.Now().UTC()})
}

// update appends and retrains once the window passes the threshold, after
// which the window keeps only its most recent half.
func (c *Classifier) update(p *predictor, sample Sample) {
	if sample.Label == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p.window.append(sample)
	if p.window.len() >= retrainThreshold {
		p.rebuild()
		p.window.trimToHalf()
	}
}

// RetrainMerchant rebuilds the merchant model from its window.
func (c *Classifier) RetrainMerchant() error {
	return c.retrain(c.merchant, ModelMerchant)
}

// RetrainCategory rebuilds the category model from its window.
func (c *Classifier) RetrainCategory() error {
	return c.retrain(c.category, ModelCategory)
}

// RetrainAmountRange rebuilds the amount-range model from its window.
func (c *Classifier) RetrainAmountRange() error {
	return c.retrain(c.amountRange, ModelAmountRange)
}

func (c *Classifier) retrain(p *predictor, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if p.window.len() == 0 {
		return fmt.Errorf("%w: %s has no training samples", common.ErrNotTrained, name)
	}
	p.rebuild()
	p.window.trimToHalf()

	c.logger.Info("model retrained",
		"model", name,
		"window", p.window.len(),
		"trained", p.model != nil)
	return nil
}

// WindowSize reports the current training window length for a predictor
// name.
func (c *Classifier) WindowSize(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p := c.byName(name); p != nil {
		return p.window.len()
	}
	return 0
}

func (c *Classifier) byName(name string) *predictor {
	switch name {
	case ModelMerchant:
		return c.merchant
	case ModelCategory:
		return c.category
	case ModelAmountRange:
		return c.amountRange
	}
	return nil
}

// snapshot is the serialized form of all training windows.
type snapshot struct {
	Merchant    []Sample `json:"merchant"`
	Category    []Sample `json:"category"`
	AmountRange []Sample `json:"amount_range"`
}

// Snapshot serializes the training windows for persistence at the storage
// boundary.
func (c *Classifier) Snapshot() ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return json.Marshal(snapshot{
		Merchant:    c.merchant.window.samples,
		Category:    c.category.window.samples,
		AmountRange: c.amountRange.window.samples,
	})
}

// Restore loads previously serialized training windows and rebuilds the
// models from them.
func (c *Classifier) Restore(state []byte) error {
	if len(state) == 0 {
		return nil
	}
	var snap snapshot
	if err := json.Unmarshal(state, &snap); err != nil {
		return fmt.Errorf("restore classifier state: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.merchant.window.samples = snap.Merchant
	c.category.window.samples = snap.Category
	c.amountRange.window.samples = snap.AmountRange
	c.merchant.rebuild()
	c.category.rebuild()
	c.amountRange.rebuild()
	return nil
}
