// Package pipeline wires the full document flow: OCR text recovery, bank
// detection, line extraction, classifier enrichment, confidence fusion, and
// persistence. Each document run is independent; a pipeline can process
// documents sequentially or be constructed per run.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ledgerlens/ledgerlens/internal/classify"
	"github.com/ledgerlens/ledgerlens/internal/extract"
	"github.com/ledgerlens/ledgerlens/internal/fusion"
	"github.com/ledgerlens/ledgerlens/internal/model"
	"github.com/ledgerlens/ledgerlens/internal/recognize"
	"github.com/ledgerlens/ledgerlens/internal/service"
	"github.com/ledgerlens/ledgerlens/internal/signature"
)

// fallbackConfidence is reported when a run fails outright and the caller
// receives the empty fallback result instead of an error.
const fallbackConfidence = 0.1

// State names the pipeline's current step.
type State string

// Pipeline states, in flow order. Failed is terminal and reachable from any
// step.
const (
	StateIdle            State = "idle"
	StateExtractingText  State = "extracting_text"
	StateDetectingBank   State = "detecting_bank"
	StateExtractingLines State = "extracting_lines"
	StateEnriching       State = "enriching"
	StateFusing          State = "fusing"
	StatePersisting      State = "persisting"
	StateDone            State = "done"
	StateFailed          State = "failed"
)

// Metrics carries per-document processing counters.
type Metrics struct {
	PagesTotal        int
	PagesRecognized   int
	LinesScanned      int
	LinesExtracted    int
	TransactionsSaved int
	OCRConfidence     float64
}

// Result is the document-level outcome. Always well-formed: a failed run
// yields an empty transaction list with fallback confidence, never an error.
type Result struct {
	Transactions   []model.Transaction
	Detection      model.BankDetection
	Pattern        *model.LearnedPattern
	Metrics        Metrics
	Confidence     float64
	ProcessingTime time.Duration
	MLEnhanced     bool
}

// Pipeline owns one instance of every processing component.
type Pipeline struct {
	pool       *recognize.Pool
	signatures *signature.Engine
	extractor  *extract.Extractor
	classifier *classify.Classifier
	fuser      *fusion.Engine
	store      service.Store
	logger     *slog.Logger

	mu    sync.Mutex
	state State
}

// Config holds the injected components. Pool may be nil for text-only
// pipelines.
type Config struct {
	Pool       *recognize.Pool
	Signatures *signature.Engine
	Classifier *classify.Classifier
	Fuser      *fusion.Engine
	Store      service.Store
	Logger     *slog.Logger
}

// New assembles a pipeline from its components.
func New(cfg Config) (*Pipeline, error) {
	if cfg.Signatures == nil {
		return nil, fmt.Errorf("pipeline requires a signature engine")
	}
	if cfg.Classifier == nil {
		return nil, fmt.Errorf("pipeline requires a classifier")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("pipeline requires a store")
	}
	if cfg.Fuser == nil {
		cfg.Fuser = fusion.NewEngine(nil, cfg.Logger)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Pipeline{
		pool:       cfg.Pool,
		signatures: cfg.Signatures,
		extractor:  extract.NewExtractor(),
		classifier: cfg.Classifier,
		fuser:      cfg.Fuser,
		store:      cfg.Store,
		logger:     cfg.Logger,
		state:      StateIdle,
	}, nil
}

// State reports the pipeline's current step.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Pipeline) setState(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

// ProcessImages runs the full pipeline over scanned page images. OCR failures
// drop pages; a document whose every page fails still produces a well-formed
// empty result.
func (p *Pipeline) ProcessImages(ctx context.Context, images []model.PageImage) *Result {
	start := time.Now()
	metrics := Metrics{PagesTotal: len(images)}

	p.setState(StateExtractingText)
	text := ""
	if p.pool != nil {
		pages, confidence := p.pool.RecognizeAll(ctx, images)
		metrics.PagesRecognized = len(pages)
		metrics.OCRConfidence = confidence
		text = recognize.JoinPages(pages)
	}

	return p.run(ctx, text, metrics, start)
}

// ProcessText runs the pipeline over already-extracted statement text,
// skipping OCR entirely.
func (p *Pipeline) ProcessText(ctx context.Context, text string) *Result {
	return p.run(ctx, text, Metrics{}, time.Now())
}

// run executes detection through persistence. Any panic or persistence error
// collapses to the fallback result so callers always get a result object.
func (p *Pipeline) run(ctx context.Context, text string, metrics Metrics, start time.Time) (result *Result) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("pipeline run panicked", "panic", r)
			result = p.fallback(metrics, start)
		}
	}()

	p.setState(StateDetectingBank)
	detection := p.signatures.DetectBank(ctx, text)

	var pattern *model.LearnedPattern
	if strings.TrimSpace(text) != "" {
		learned, err := p.signatures.FindOrLearnPattern(ctx, detection.Signature, text, detection.Bank)
		if err != nil {
			p.logger.Warn("pattern learning failed", "error", err)
		} else {
			pattern = learned
		}
	}

	p.setState(StateExtractingLines)
	fields := p.extractLines(text, &metrics)

	p.setState(StateEnriching)
	predictions := p.enrich(fields)

	p.setState(StateFusing)
	p.refreshMatcher(ctx)
	transactions := p.fuser.FuseAll(fields, predictions)

	p.setState(StatePersisting)
	saved, err := p.persist(ctx, transactions)
	if err != nil {
		p.logger.Error("persistence failed", "error", err)
		return p.fallback(metrics, start)
	}
	metrics.TransactionsSaved = saved

	p.setState(StateDone)
	result = &Result{
		Transactions:   transactions,
		Detection:      detection,
		Pattern:        pattern,
		Metrics:        metrics,
		Confidence:     documentConfidence(detection, transactions),
		ProcessingTime: time.Since(start),
		MLEnhanced:     anyMLEnhanced(transactions),
	}
	p.logger.Info("document processed",
		"bank", detection.Bank,
		"method", detection.Method,
		"transactions", len(transactions),
		"saved", saved,
		"confidence", result.Confidence,
		"duration", result.ProcessingTime)
	return result
}

// extractLines scores every line and extracts fields from those that clear
// the transaction threshold. Unparseable lines are dropped, not retried.
func (p *Pipeline) extractLines(text string, metrics *Metrics) []model.ExtractedFields {
	var fields []model.ExtractedFields
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		metrics.LinesScanned++

		candidate := p.extractor.ScoreLine(line)
		if !candidate.IsTransaction() {
			continue
		}
		extracted, ok := p.extractor.ExtractFields(candidate)
		if !ok {
			continue
		}
		fields = append(fields, extracted)
		metrics.LinesExtracted++
	}
	return fields
}

// enrich runs the three predictors per extracted line. The merchant
// prediction doubles as the hint for the other two.
func (p *Pipeline) enrich(fields []model.ExtractedFields) [][]model.Prediction {
	predictions := make([][]model.Prediction, len(fields))
	for i, f := range fields {
		merchant := p.classifier.PredictMerchant(f.Description)
		category := p.classifier.PredictCategory(f.Description, f.Amount, merchant.Value)
		amountRange := p.classifier.PredictAmountRange(f.Description, merchant.Value)
		predictions[i] = []model.Prediction{merchant, category, amountRange}
	}
	return predictions
}

// refreshMatcher rebuilds the fuzzy matcher from the merchant registry so
// fusion sees merchants learned from earlier documents.
func (p *Pipeline) refreshMatcher(ctx context.Context) {
	merchants, err := p.store.GetAllMerchants(ctx)
	if err != nil {
		p.logger.Warn("merchant registry unavailable", "error", err)
		return
	}
	p.fuser.Matcher().Build(merchants)
}

// persist saves the fused transactions, updates the merchant registry, and
// bumps the statistics counters.
func (p *Pipeline) persist(ctx context.Context, transactions []model.Transaction) (int, error) {
	saved, err := p.store.SaveTransactions(ctx, transactions)
	if err != nil {
		return 0, err
	}

	for i := range transactions {
		p.recordMerchant(ctx, &transactions[i])
	}

	if err := p.store.IncrementStat(ctx, "documents_processed", 1); err != nil {
		p.logger.Warn("stat update failed", "stat", "documents_processed", "error", err)
	}
	if saved > 0 {
		if err := p.store.IncrementStat(ctx, "transactions_saved", saved); err != nil {
			p.logger.Warn("stat update failed", "stat", "transactions_saved", "error", err)
		}
	}
	return saved, nil
}

// recordMerchant upserts one transaction's merchant into the registry,
// bumping its usage count.
func (p *Pipeline) recordMerchant(ctx context.Context, txn *model.Transaction) {
	name := strings.TrimSpace(txn.Merchant)
	if name == "" {
		return
	}
	normalized := strings.ToUpper(name)

	merchant, err := p.store.GetMerchant(ctx, normalized)
	if err != nil || merchant == nil {
		merchant = &model.Merchant{
			Name:       name,
			Normalized: normalized,
			Category:   txn.Category,
		}
	}
	merchant.UseCount++
	merchant.LastSeenAt = time.Now().UTC()
	if err := p.store.SaveMerchant(ctx, merchant); err != nil {
		p.logger.Warn("merchant registry update failed",
			"merchant", normalized, "error", err)
	}
}

// fallback is the guaranteed result shape for failed runs.
func (p *Pipeline) fallback(metrics Metrics, start time.Time) *Result {
	p.setState(StateFailed)
	return &Result{
		Transactions:   []model.Transaction{},
		Detection:      model.BankDetection{Bank: signature.UnknownBank, Method: model.DetectionNone},
		Metrics:        metrics,
		Confidence:     fallbackConfidence,
		ProcessingTime: time.Since(start),
	}
}

// documentConfidence blends detection confidence with the mean fused
// transaction confidence.
func documentConfidence(detection model.BankDetection, transactions []model.Transaction) float64 {
	if len(transactions) == 0 {
		return detection.Confidence / 2
	}
	total := 0.0
	for _, txn := range transactions {
		total += txn.OverallConfidence
	}
	mean := total / float64(len(transactions))
	return clamp01(0.5*mean + 0.5*detection.Confidence)
}

func anyMLEnhanced(transactions []model.Transaction) bool {
	for _, txn := range transactions {
		if txn.MLEnhanced {
			return true
		}
	}
	return false
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
