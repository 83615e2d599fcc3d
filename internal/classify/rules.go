package classify

import (
	"regexp"
	"strings"
)

// ruleEntry maps a compiled pattern to a label with a fixed confidence.
type ruleEntry struct {
	re         *regexp.Regexp
	label      string
	confidence float64
}

func rule(pattern, label string, confidence float64) ruleEntry {
	return ruleEntry{
		re:         regexp.MustCompile("(?i)" + pattern),
		label:      label,
		confidence: confidence,
	}
}

// merchantRules recognize well-known merchants in raw descriptions.
var merchantRules = []ruleEntry{
	rule(`\bkaufland\b`, "KAUFLAND", 0.7),
	rule(`\blidl\b`, "LIDL", 0.7),
	rule(`\bcarrefour\b`, "CARREFOUR", 0.7),
	rule(`\bauchan\b`, "AUCHAN", 0.7),
	rule(`\bprofi\b`, "PROFI", 0.7),
	rule(`mega\s*image`, "MEGA IMAGE", 0.7),
	rule(`\bemag\b`, "EMAG", 0.7),
	rule(`\buber\b`, "UBER", 0.7),
	rule(`\bbolt\b`, "BOLT", 0.7),
	rule(`\bomv\b`, "OMV", 0.7),
	rule(`\bpetrom\b`, "PETROM", 0.7),
	rule(`\benel\b`, "ENEL", 0.7),
	rule(`\bengie\b`, "ENGIE", 0.7),
	rule(`\bnetflix\b`, "NETFLIX", 0.7),
	rule(`\bspotify\b`, "SPOTIFY", 0.7),
	rule(`\bglovo\b`, "GLOVO", 0.7),
	rule(`mcdonald`, "MCDONALDS", 0.7),
	rule(`\bkfc\b`, "KFC", 0.7),
	rule(`\brevolut\b`, "REVOLUT", 0.65),
}

// categoryRules map description patterns to the fixed category label set.
var categoryRules = []ruleEntry{
	rule(`kaufland|lidl|carrefour|auchan|profi|penny|mega\s*image`, "Alimente", 0.7),
	rule(`uber|bolt|omv|petrom|rompetrol|lukoil|metrorex|\bcfr\b|\bstb\b`, "Transport", 0.7),
	rule(`enel|engie|e\.on|electrica|\bdigi\b|orange|vodafone|telekom|apa\s*nova`, "Utilitati", 0.7),
	rule(`netflix|spotify|hbo|disney|cinema|steam`, "Divertisment", 0.65),
	rule(`farmacia|catena|sensiblu|helpnet|medlife|regina\s*maria`, "Sanatate", 0.7),
	rule(`emag|altex|flanco|dedeman|ikea|zara|decathlon|pepco`, "Cumparaturi", 0.65),
	rule(`restaurant|pizzeria|kfc|mcdonald|starbucks|bistro|glovo|tazz`, "Restaurant", 0.65),
	rule(`salariu|salary|dividende|incasare`, "Venit", 0.7),
	rule(`transfer|virament`, "Transfer", 0.6),
}

// amountRangeRules guess a typical spend bucket from the description when
// no trained model is available.
var amountRangeRules = []ruleEntry{
	rule(`chirie|rent|rata|credit\s*ipotecar`, RangeLarge, 0.6),
	rule(`omv|petrom|rompetrol|lukoil|enel|engie|electrica`, RangeMedium, 0.6),
	rule(`kaufland|lidl|carrefour|auchan|restaurant|glovo|tazz`, RangeMedium, 0.6),
	rule(`netflix|spotify|hbo|metrorex|\bstb\b`, RangeMicro, 0.6),
	rule(`uber|bolt|farmacia|catena`, RangeSmall, 0.6),
}

// applyRules returns the first matching rule's label, or empty.
func applyRules(rules []ruleEntry, text string) (string, float64) {
	for _, entry := range rules {
		if entry.re.MatchString(text) {
			return entry.label, entry.confidence
		}
	}
	return "", 0
}

// operation words stripped when guessing a merchant from capitalized runs.
var operationWords = map[string]bool{
	"PLATA": true, "CARD": true, "POS": true, "ATM": true, "TRANSFER": true,
	"RETRAGERE": true, "CUMPARARE": true, "COMISION": true, "DEBIT": true,
	"CREDIT": true, "PAYMENT": true, "PURCHASE": true, "RON": true, "EUR": true,
}

// guessMerchant extracts the longest run of uppercase words that are not
// operation keywords. Used as the lowest-confidence merchant fallback.
func guessMerchant(text string) string {
	var best, current []string
	for _, word := range strings.Fields(text) {
		upper := strings.ToUpper(word)
		isWord := upper == word && len(word) >= 3 && !operationWords[upper] && !hasDigits(word)
		if isWord {
			current = append(current, word)
			if len(current) > len(best) {
				best = append([]string(nil), current...)
			}
		} else {
			current = nil
		}
	}
	return strings.Join(best, " ")
}

func hasDigits(s string) bool {
	for _, r := range s {
		if r >= '0' && r <= '9' {
			return true
		}
	}
	return false
}
