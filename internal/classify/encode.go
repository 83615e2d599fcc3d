package classify

import (
	"fmt"
	"strings"
	"unicode"
)

// Amount range labels, a fixed set.
const (
	RangeMicro  = "micro"
	RangeSmall  = "small"
	RangeMedium = "medium"
	RangeLarge  = "large"
	RangeXLarge = "xlarge"
)

// AmountRanges returns the fixed amount-range label set.
func AmountRanges() []string {
	return []string{RangeMicro, RangeSmall, RangeMedium, RangeLarge, RangeXLarge}
}

// amountRange buckets an absolute amount into its range label.
func amountRange(amount float64) string {
	if amount < 0 {
		amount = -amount
	}
	switch {
	case amount < 10:
		return RangeMicro
	case amount < 50:
		return RangeSmall
	case amount < 200:
		return RangeMedium
	case amount < 1000:
		return RangeLarge
	default:
		return RangeXLarge
	}
}

// encode turns raw text plus bounded scalar features into the token set fed
// to the bayesian models: word tokens plus discretized feature tokens for
// amount bucket, sign, text length and merchant hint.
func encode(text string, amount float64, merchantHint string) []string {
	tokens := tokenize(text)

	if amount != 0 {
		tokens = append(tokens, "amt:"+amountRange(amount))
		if amount < 0 {
			tokens = append(tokens, "sign:debit")
		} else {
			tokens = append(tokens, "sign:credit")
		}
	}

	tokens = append(tokens, fmt.Sprintf("len:%d", len(text)/20))

	if merchantHint != "" {
		tokens = append(tokens, "merchant:"+normalizeToken(merchantHint))
	}

	return tokens
}

// tokenize lowercases and splits on non-alphanumeric runes, dropping short
// fragments and pure numbers.
func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	tokens := make([]string, 0, len(fields))
	for _, field := range fields {
		if len(field) < 2 {
			continue
		}
		if isNumeric(field) {
			continue
		}
		tokens = append(tokens, field)
	}
	return tokens
}

func isNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func normalizeToken(s string) string {
	return strings.Join(tokenize(s), "_")
}
