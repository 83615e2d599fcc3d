// Package extract implements per-line heuristics that decide whether a text
// line is a transaction and pull out date, amount and description candidates.
package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ledgerlens/ledgerlens/internal/model"
)

// Line scoring weights.
const (
	dateWeight     = 0.3
	amountWeight   = 0.4
	keywordWeight  = 0.1
	merchantWeight = 0.2
)

// Field confidence weights.
const (
	dateConfidence        = 0.25
	amountConfidence      = 0.35
	descriptionConfidence = 0.2
	categoryWeight        = 0.2
)

var (
	dateRe   = regexp.MustCompile(`\b(\d{1,4})[./-](\d{1,2})[./-](\d{1,4})\b`)
	amountRe = regexp.MustCompile(`[-+]?\d{1,3}(?:[.,]\d{3})*[.,]\d{1,2}\b`)
)

// transactionKeywords mark operation words typical of statement lines.
var transactionKeywords = []string{
	"plata", "transfer", "retragere", "card", "pos", "atm",
	"cumparare", "comision", "incasare", "depunere", "debit", "credit",
	"payment", "purchase", "withdrawal",
}

// merchantIndicators are company suffixes hinting at a merchant name.
var merchantIndicators = []string{
	" srl", " s.r.l", " sa ", " s.a", " pfa", " scs", " snc",
	" ltd", " gmbh", " inc",
}

// Extractor scores lines and extracts transaction fields.
type Extractor struct {
	categories *categoryTable
}

// NewExtractor creates a field extractor with the default category table.
func NewExtractor() *Extractor {
	return &Extractor{categories: defaultCategories()}
}

// ScoreLine computes the probability that a line is a transaction line,
// with the list of features that matched.
func (e *Extractor) ScoreLine(line string) model.CandidateLine {
	candidate := model.CandidateLine{Text: line}
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return candidate
	}
	lower := " " + strings.ToLower(trimmed) + " "

	rest := trimmed
	if dateRe.MatchString(trimmed) {
		candidate.Probability += dateWeight
		candidate.MatchedFeatures = append(candidate.MatchedFeatures, "date")
		// Dotted dates (15.09.2025) would otherwise score as amounts.
		rest = dateRe.ReplaceAllString(trimmed, " ")
	}
	if amountRe.MatchString(rest) {
		candidate.Probability += amountWeight
		candidate.MatchedFeatures = append(candidate.MatchedFeatures, "amount")
	}
	for _, keyword := range transactionKeywords {
		if strings.Contains(lower, keyword) {
			candidate.Probability += keywordWeight
			candidate.MatchedFeatures = append(candidate.MatchedFeatures, "keyword:"+keyword)
			break
		}
	}
	for _, indicator := range merchantIndicators {
		if strings.Contains(lower, indicator) {
			candidate.Probability += merchantWeight
			candidate.MatchedFeatures = append(candidate.MatchedFeatures, "merchant_indicator")
			break
		}
	}

	if candidate.Probability > 1 {
		candidate.Probability = 1
	}
	return candidate
}

// ExtractFields pulls date, amount, description and category from a line
// that cleared the transaction threshold. Returns false when the line is
// below the threshold or yields no fields at all.
func (e *Extractor) ExtractFields(candidate model.CandidateLine) (model.ExtractedFields, bool) {
	if !candidate.IsTransaction() {
		return model.ExtractedFields{}, false
	}

	line := candidate.Text
	var fields model.ExtractedFields

	// Date tokens come out first: the DD.MM fragment of a dotted date is a
	// valid amount match, and a booking/value date pair would leave a second
	// date-shaped token behind.
	dateMatch := dateRe.FindString(line)
	rest := line
	if dateMatch != "" {
		if iso, ok := NormalizeDate(dateMatch); ok {
			fields.Date = iso
			fields.Confidence += dateConfidence
		}
		rest = dateRe.ReplaceAllString(line, " ")
	}

	_, amount, ok := extractAmount(rest)
	if ok {
		fields.Amount = amount
		fields.Confidence += amountConfidence
	}

	description := amountRe.ReplaceAllString(rest, " ")
	description = strings.Join(strings.Fields(description), " ")
	if description != "" {
		fields.Description = description
		fields.Confidence += descriptionConfidence
	}

	if category, confidence := e.categories.lookup(line); category != "" {
		fields.Category = category
		fields.Confidence += categoryWeight * confidence
	}

	if fields.Confidence == 0 {
		return model.ExtractedFields{}, false
	}
	return fields, true
}

// NormalizeDate converts DD-MM-YYYY, YYYY-MM-DD and 2-digit-year variants
// (any of ./- separators) to canonical ISO YYYY-MM-DD. The group with four
// digits decides where the year is.
func NormalizeDate(raw string) (string, bool) {
	match := dateRe.FindStringSubmatch(raw)
	if match == nil {
		return "", false
	}

	first, middle, last := match[1], match[2], match[3]
	var year, month, day string
	switch {
	case len(first) == 4:
		year, month, day = first, middle, last
	case len(last) == 4:
		year, month, day = last, middle, first
	case len(last) == 2:
		// Two-digit years belong to the current century.
		year, month, day = "20"+last, middle, first
	default:
		return "", false
	}

	m, err := strconv.Atoi(month)
	if err != nil || m < 1 || m > 12 {
		return "", false
	}
	d, err := strconv.Atoi(day)
	if err != nil || d < 1 || d > 31 {
		return "", false
	}

	return fmt.Sprintf("%s-%02d-%02d", year, m, d), true
}

// extractAmount finds the largest-magnitude amount in the line. The sign
// comes from an explicit leading -/+ on the match or the word "debit".
func extractAmount(line string) (string, float64, bool) {
	matches := amountRe.FindAllString(line, -1)
	if len(matches) == 0 {
		return "", 0, false
	}

	bestMatch := ""
	bestValue := 0.0
	bestMagnitude := -1.0
	for _, match := range matches {
		value, err := parseAmountToken(match)
		if err != nil {
			continue
		}
		magnitude := value
		if magnitude < 0 {
			magnitude = -magnitude
		}
		if magnitude > bestMagnitude {
			bestMagnitude = magnitude
			bestValue = value
			bestMatch = match
		}
	}
	if bestMatch == "" {
		return "", 0, false
	}

	if bestValue > 0 && !strings.HasPrefix(bestMatch, "+") &&
		strings.Contains(strings.ToLower(line), "debit") {
		bestValue = -bestValue
	}
	return bestMatch, bestValue, true
}

// parseAmountToken parses amounts in both Romanian (1.234,56) and plain
// (1,234.56 or 45.67) formats. The last separator is the decimal mark.
func parseAmountToken(token string) (float64, error) {
	s := token
	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")

	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		s = strings.Replace(s, ",", ".", 1)
	}

	return strconv.ParseFloat(s, 64)
}
