// Package signature derives structural fingerprints from document text and
// resolves them against known bank templates and learned patterns.
package signature

import (
	"crypto/sha256"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/ledgerlens/ledgerlens/internal/model"
)

var (
	dateRe   = regexp.MustCompile(`\b\d{1,4}[./-]\d{1,2}[./-]\d{1,4}\b`)
	amountRe = regexp.MustCompile(`[-+]?\d{1,3}(?:[.,]\d{3})*[.,]\d{2}\b`)
	// columnRe matches a column separator: a tab or a run of 2+ spaces.
	columnRe = regexp.MustCompile(`\t| {2,}`)
)

// bankKeywords are terms whose density feeds the signature feature vector.
var bankKeywords = []string{
	"banca", "bank", "cont", "iban", "sold", "extras",
	"tranzactie", "tranzactii", "debit", "credit", "card",
	"transfer", "plata", "comision", "dobanda", "statement",
	"balance", "account",
}

// Compute derives a deterministic signature from document text.
func Compute(text string) model.DocumentSignature {
	features := computeFeatures(text)
	return model.DocumentSignature{
		Hash:      hashFeatures(features),
		Features:  features,
		CreatedAt: time.Now().UTC(),
	}
}

func computeFeatures(text string) model.SignatureFeatures {
	features := model.SignatureFeatures{Length: len(text)}
	if text == "" {
		return features
	}

	lines := strings.Split(text, "\n")
	features.LineCount = len(lines)

	digits, letters, uppercase := 0, 0, 0
	for _, r := range text {
		switch {
		case unicode.IsDigit(r):
			digits++
		case unicode.IsLetter(r):
			letters++
			if unicode.IsUpper(r) {
				uppercase++
			}
		}
	}
	features.DigitRatio = float64(digits) / float64(len(text))
	if letters > 0 {
		features.UppercaseRatio = float64(uppercase) / float64(letters)
	}

	lower := strings.ToLower(text)
	words := len(strings.Fields(text))
	if words > 0 {
		hits := 0
		for _, keyword := range bankKeywords {
			hits += strings.Count(lower, keyword)
		}
		features.BankKeywordDensity = float64(hits) / float64(words)
		if features.BankKeywordDensity > 1 {
			features.BankKeywordDensity = 1
		}
	}

	tabular := 0
	for _, line := range lines {
		if len(columnRe.FindAllString(line, -1)) >= 2 {
			tabular++
		}
	}
	features.HasTableStructure = tabular*5 >= len(lines)

	features.DateCount = len(dateRe.FindAllString(text, -1))
	features.AmountCount = len(amountRe.FindAllString(text, -1))

	return features
}

// hashFeatures folds the quantized feature vector into a stable hash. Two
// documents with the same structural profile share a signature.
func hashFeatures(f model.SignatureFeatures) string {
	data := fmt.Sprintf("%d:%d:%.3f:%.3f:%.3f:%t:%d:%d",
		f.Length/100,
		f.LineCount,
		f.DigitRatio,
		f.UppercaseRatio,
		f.BankKeywordDensity,
		f.HasTableStructure,
		f.DateCount,
		f.AmountCount)
	sum := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", sum[:16])
}

// similarity computes the mean per-feature closeness between two feature
// vectors: 1-|delta| on normalized numeric features, exact match on booleans.
func similarity(a, b model.SignatureFeatures) float64 {
	score := 0.0
	score += 1 - absDiff(normalizeCount(a.Length, 10000), normalizeCount(b.Length, 10000))
	score += 1 - absDiff(normalizeCount(a.LineCount, 200), normalizeCount(b.LineCount, 200))
	score += 1 - absDiff(a.DigitRatio, b.DigitRatio)
	score += 1 - absDiff(a.UppercaseRatio, b.UppercaseRatio)
	score += 1 - absDiff(a.BankKeywordDensity, b.BankKeywordDensity)
	score += 1 - absDiff(normalizeCount(a.DateCount, 100), normalizeCount(b.DateCount, 100))
	score += 1 - absDiff(normalizeCount(a.AmountCount, 100), normalizeCount(b.AmountCount, 100))
	if a.HasTableStructure == b.HasTableStructure {
		score++
	}
	return score / 8
}

func normalizeCount(v, scale int) float64 {
	if v >= scale {
		return 1
	}
	return float64(v) / float64(scale)
}

func absDiff(a, b float64) float64 {
	if a > b {
		return a - b
	}
	return b - a
}
