package signature

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/ledgerlens/ledgerlens/internal/common"
	"github.com/ledgerlens/ledgerlens/internal/model"
	"github.com/ledgerlens/ledgerlens/internal/service"
)

// UnknownBank is returned when no resolution step clears its threshold.
const UnknownBank = "UNKNOWN"

// Resolution thresholds, in chain order.
const (
	signatureThreshold = 0.8
	patternThreshold   = 0.6
	learnedThreshold   = 0.5
	keywordConfidence  = 0.4
	unknownConfidence  = 0.2
)

// defaultCacheCap bounds the in-memory learned pattern cache. The store
// keeps every pattern; only the cache evicts.
const defaultCacheCap = 500

// patternAccuracyAlpha is the EMA rate for feedback-driven accuracy updates.
const patternAccuracyAlpha = 0.1

type compiledTemplate struct {
	model.BankTemplate
	docRegexes   []*regexp.Regexp
	fieldRegexes []*regexp.Regexp
}

// Engine matches document signatures against bank templates and the growing
// set of learned patterns.
type Engine struct {
	store     service.Store
	logger    *slog.Logger
	cache     map[string]*model.LearnedPattern
	templates []compiledTemplate
	keywords  []keywordEntry
	cacheCap  int
	mu        sync.Mutex
}

type keywordEntry struct {
	re     *regexp.Regexp
	bankID string
}

// NewEngine creates a signature engine over the given templates. A nil
// template slice uses the curated defaults.
func NewEngine(store service.Store, templates []model.BankTemplate, logger *slog.Logger) (*Engine, error) {
	if templates == nil {
		templates = DefaultTemplates()
	}
	if logger == nil {
		logger = slog.Default()
	}

	compiled := make([]compiledTemplate, 0, len(templates))
	for _, tpl := range templates {
		ct := compiledTemplate{BankTemplate: tpl}
		for _, pattern := range tpl.DocumentRegexes {
			re, err := regexp.Compile(pattern)
			if err != nil {
				return nil, fmt.Errorf("template %s: compile document regex: %w", tpl.BankID, err)
			}
			ct.docRegexes = append(ct.docRegexes, re)
		}
		for _, pattern := range []string{tpl.FieldRegexes.Date, tpl.FieldRegexes.Amount, tpl.FieldRegexes.Description} {
			if pattern == "" {
				continue
			}
			re, err := regexp.Compile(pattern)
			if err != nil {
				return nil, fmt.Errorf("template %s: compile field regex: %w", tpl.BankID, err)
			}
			ct.fieldRegexes = append(ct.fieldRegexes, re)
		}
		compiled = append(compiled, ct)
	}

	keywords := make([]keywordEntry, 0, len(bankNameKeywords))
	for keyword, bankID := range bankNameKeywords {
		keywords = append(keywords, keywordEntry{
			re:     regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(keyword) + `\b`),
			bankID: bankID,
		})
	}

	return &Engine{
		store:     store,
		logger:    logger,
		templates: compiled,
		keywords:  keywords,
		cache:     make(map[string]*model.LearnedPattern),
		cacheCap:  defaultCacheCap,
	}, nil
}

// DetectBank resolves the document's bank. It never fails on content: the
// chain always terminates in the keyword fallback or UNKNOWN.
func (e *Engine) DetectBank(ctx context.Context, text string) model.BankDetection {
	sig := Compute(text)
	detection := model.BankDetection{
		Bank:      UnknownBank,
		Method:    model.DetectionNone,
		Signature: sig,
	}
	if strings.TrimSpace(text) == "" {
		return detection
	}

	// Steps 1 and 2 share the weighted template score; they differ only in
	// the acceptance threshold.
	bestBank, bestScore := e.bestTemplateScore(text)
	if bestScore > signatureThreshold {
		detection.Bank = bestBank
		detection.Confidence = clamp01(bestScore)
		detection.Method = model.DetectionSignature
		return detection
	}
	if bestScore > patternThreshold {
		detection.Bank = bestBank
		detection.Confidence = clamp01(bestScore)
		detection.Method = model.DetectionPattern
		return detection
	}

	if learned, similarityScore := e.nearestLearnedPattern(ctx, sig.Features); learned != nil && similarityScore > learnedThreshold {
		detection.Bank = learned.BankID
		detection.Confidence = clamp01(similarityScore)
		detection.Method = model.DetectionLearned
		return detection
	}

	for _, entry := range e.keywords {
		if entry.re.MatchString(text) {
			detection.Bank = entry.bankID
			detection.Confidence = keywordConfidence
			detection.Method = model.DetectionKeyword
			return detection
		}
	}

	detection.Confidence = unknownConfidence
	return detection
}

// bestTemplateScore scores the text against every template and returns the
// best bank with its weighted score.
func (e *Engine) bestTemplateScore(text string) (string, float64) {
	upper := strings.ToUpper(text)
	lines := strings.Count(text, "\n") + 1

	bestBank := UnknownBank
	bestScore := 0.0
	for _, tpl := range e.templates {
		score := tpl.score(upper, text, lines)
		if score > bestScore {
			bestScore = score
			bestBank = tpl.BankID
		}
	}
	return bestBank, bestScore
}

// score combines signature-string hits (0.4), document-regex hits (0.3) and
// field-regex density (0.3), multiplied by the template prior.
func (t compiledTemplate) score(upper, text string, lines int) float64 {
	sigHits := 0
	for _, s := range t.SignatureStrings {
		if strings.Contains(upper, s) {
			sigHits++
		}
	}
	sigScore := 0.0
	if len(t.SignatureStrings) > 0 {
		sigScore = 0.4 * float64(sigHits) / float64(len(t.SignatureStrings))
	}

	docHits := 0
	for _, re := range t.docRegexes {
		if re.MatchString(text) {
			docHits++
		}
	}
	docScore := 0.0
	if len(t.docRegexes) > 0 {
		docScore = 0.3 * float64(docHits) / float64(len(t.docRegexes))
	}

	fieldMatches := 0
	for _, re := range t.fieldRegexes {
		fieldMatches += len(re.FindAllString(text, -1))
	}
	density := float64(fieldMatches) / float64(lines)
	if density > 1 {
		density = 1
	}
	fieldScore := 0.3 * density

	return (sigScore + docScore + fieldScore) * t.PriorConfidence
}

// nearestLearnedPattern runs a fuzzy nearest-neighbor search over all
// learned patterns.
func (e *Engine) nearestLearnedPattern(ctx context.Context, features model.SignatureFeatures) (*model.LearnedPattern, float64) {
	patterns, err := e.loadPatterns(ctx)
	if err != nil {
		e.logger.Warn("learned pattern lookup failed", "error", err)
		return nil, 0
	}

	var best *model.LearnedPattern
	bestScore := 0.0
	for i := range patterns {
		score := similarity(features, patterns[i].Features)
		if score > bestScore {
			bestScore = score
			best = &patterns[i]
		}
	}
	return best, bestScore
}

// FindOrLearnPattern returns the stored pattern for the signature, creating
// one with neutral accuracy on first observation. Signatures are never
// mutated; a new observation either matches an existing hash or creates a
// new pattern.
func (e *Engine) FindOrLearnPattern(ctx context.Context, sig model.DocumentSignature, text, bank string) (*model.LearnedPattern, error) {
	existing, err := e.lookupPattern(ctx, sig.Hash)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}

	if existing != nil {
		existing.UsageCount++
		existing.LastUsedAt = time.Now().UTC()
		if err := e.store.SavePattern(ctx, existing); err != nil {
			return nil, fmt.Errorf("update pattern usage: %w", err)
		}
		e.cachePattern(existing)
		return existing, nil
	}

	sample := text
	if len(sample) > 500 {
		sample = sample[:500]
	}
	pattern := &model.LearnedPattern{
		SignatureHash: sig.Hash,
		BankID:        bank,
		SampleText:    sample,
		Features:      sig.Features,
		Accuracy:      0.5,
		UsageCount:    1,
		CreatedAt:     time.Now().UTC(),
		LastUsedAt:    time.Now().UTC(),
	}
	if err := e.store.SavePattern(ctx, pattern); err != nil {
		return nil, fmt.Errorf("save learned pattern: %w", err)
	}
	e.cachePattern(pattern)

	e.logger.Info("learned new document pattern",
		"signature", sig.Hash,
		"bank", bank)
	return pattern, nil
}

// UpdatePatternAccuracy applies one EMA step from feedback:
// accuracy <- accuracy*0.9 + observed*0.1, clamped to [0,1].
func (e *Engine) UpdatePatternAccuracy(ctx context.Context, signatureHash string, wasCorrect bool) error {
	pattern, err := e.lookupPattern(ctx, signatureHash)
	if err != nil {
		return err
	}

	observed := 0.0
	if wasCorrect {
		observed = 1.0
	}
	pattern.Accuracy = clamp01(pattern.Accuracy*(1-patternAccuracyAlpha) + observed*patternAccuracyAlpha)

	if err := e.store.SavePattern(ctx, pattern); err != nil {
		return fmt.Errorf("save pattern accuracy: %w", err)
	}
	e.cachePattern(pattern)
	return nil
}

func (e *Engine) lookupPattern(ctx context.Context, hash string) (*model.LearnedPattern, error) {
	e.mu.Lock()
	if cached, ok := e.cache[hash]; ok {
		copied := *cached
		e.mu.Unlock()
		return &copied, nil
	}
	e.mu.Unlock()

	return e.store.GetPattern(ctx, hash)
}

func (e *Engine) loadPatterns(ctx context.Context) ([]model.LearnedPattern, error) {
	return e.store.GetAllPatterns(ctx)
}

// cachePattern stores a pattern in the bounded cache, evicting the least
// recently used entry when full.
func (e *Engine) cachePattern(pattern *model.LearnedPattern) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.cache[pattern.SignatureHash]; !ok && len(e.cache) >= e.cacheCap {
		oldestHash := ""
		var oldest time.Time
		for hash, cached := range e.cache {
			if oldestHash == "" || cached.LastUsedAt.Before(oldest) {
				oldestHash = hash
				oldest = cached.LastUsedAt
			}
		}
		delete(e.cache, oldestHash)
	}

	copied := *pattern
	e.cache[pattern.SignatureHash] = &copied
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
