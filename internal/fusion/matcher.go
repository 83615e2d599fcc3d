// Package fusion combines field extraction output with classifier
// predictions and known-merchant fuzzy matches into final transactions.
package fusion

import (
	"strings"
	"sync"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/ledgerlens/ledgerlens/internal/model"
)

// MatchResult is a fuzzy match against the known-merchant registry.
// Score is a similarity in [0,1], 1 being an exact match.
type MatchResult struct {
	Name     string
	Category string
	Score    float64
}

// Matcher fuzzy-matches transaction descriptions against known merchants.
// It catches variations like "KAUFLAND 001" vs "KAUFLAND MILITARI" and maps
// them to one canonical merchant.
type Matcher struct {
	patterns []matchPattern
	mu       sync.RWMutex
}

type matchPattern struct {
	normalized string
	name       string
	category   string
	useCount   int
}

// NewMatcher builds a matcher from the merchant registry.
func NewMatcher(merchants []model.Merchant) *Matcher {
	m := &Matcher{}
	m.Build(merchants)
	return m
}

// Build replaces the matcher's patterns with the given merchants.
func (m *Matcher) Build(merchants []model.Merchant) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.patterns = make([]matchPattern, 0, len(merchants))
	for _, merchant := range merchants {
		normalized := strings.ToUpper(strings.TrimSpace(merchant.Normalized))
		if normalized == "" {
			normalized = strings.ToUpper(strings.TrimSpace(merchant.Name))
		}
		if normalized == "" {
			continue
		}
		m.patterns = append(m.patterns, matchPattern{
			normalized: normalized,
			name:       merchant.Name,
			category:   merchant.Category,
			useCount:   merchant.UseCount,
		})
	}
}

// Match returns the best match at or above threshold, or nil.
func (m *Matcher) Match(description string, threshold float64) *MatchResult {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.patterns) == 0 || strings.TrimSpace(description) == "" {
		return nil
	}

	normalized := strings.ToUpper(description)

	var best *MatchResult
	bestUseCount := 0
	for _, p := range m.patterns {
		score := similarity(normalized, p.normalized)
		if score < threshold {
			continue
		}
		// Ties go to the merchant seen most often.
		if best == nil || score > best.Score || (score == best.Score && p.useCount > bestUseCount) {
			best = &MatchResult{Name: p.name, Category: p.category, Score: score}
			bestUseCount = p.useCount
		}
	}
	return best
}

// PatternCount reports how many merchants the matcher currently holds.
func (m *Matcher) PatternCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.patterns)
}

// similarity scores two normalized strings in [0,1] using containment,
// Levenshtein distance, and subsequence ranking, keeping the best of the
// three.
func similarity(s1, s2 string) float64 {
	if s1 == s2 {
		return 1
	}

	// Containment is the common case for merchant variations: the registry
	// name appears inside a longer statement line.
	if strings.Contains(s1, s2) {
		return 0.75 + 0.25*float64(len(s2))/float64(len(s1))
	}
	if strings.Contains(s2, s1) {
		return 0.75 + 0.25*float64(len(s1))/float64(len(s2))
	}

	maxLen := len(s1)
	if len(s2) > maxLen {
		maxLen = len(s2)
	}
	if maxLen == 0 {
		return 0
	}

	distance := fuzzy.LevenshteinDistance(s1, s2)
	score := float64(maxLen-distance) / float64(maxLen)

	if rank := fuzzy.RankMatchFold(s2, s1); rank >= 0 && rank < len(s1) {
		if sub := 0.6 - 0.4*float64(rank)/float64(len(s1)); sub > score {
			score = sub
		}
	}
	if score < 0 {
		return 0
	}
	return score
}
