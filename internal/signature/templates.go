package signature

import "github.com/ledgerlens/ledgerlens/internal/model"

// DefaultTemplates is the curated set of known Romanian bank statement
// layouts. Read-only reference data.
func DefaultTemplates() []model.BankTemplate {
	return []model.BankTemplate{
		{
			BankID:           "BT",
			SignatureStrings: []string{"BANCA TRANSILVANIA", "BT24", "EXTRAS DE CONT BT"},
			DocumentRegexes:  []string{`(?i)banca\s+transilvania`, `(?i)bt\s*24`},
			FieldRegexes: model.FieldRegexes{
				Date:        `\d{2}[./-]\d{2}[./-]\d{4}`,
				Amount:      `[-+]?\d{1,3}(?:\.\d{3})*,\d{2}`,
				Description: `(?i)(plata|transfer|pos)\s+.+`,
			},
			PriorConfidence: 0.95,
		},
		{
			BankID:           "BCR",
			SignatureStrings: []string{"BCR", "BANCA COMERCIALA ROMANA", "GEORGE"},
			DocumentRegexes:  []string{`(?i)banca\s+comerciala\s+romana`, `(?i)\bgeorge\b`},
			FieldRegexes: model.FieldRegexes{
				Date:        `\d{2}\.\d{2}\.\d{4}`,
				Amount:      `[-+]?\d{1,3}(?:\.\d{3})*,\d{2}`,
				Description: `(?i)(cumparare|plata|transfer)\s+.+`,
			},
			PriorConfidence: 0.9,
		},
		{
			BankID:           "BRD",
			SignatureStrings: []string{"BRD", "GROUPE SOCIETE GENERALE"},
			DocumentRegexes:  []string{`(?i)\bbrd\b`, `(?i)societe\s+generale`},
			FieldRegexes: model.FieldRegexes{
				Date:        `\d{2}/\d{2}/\d{4}`,
				Amount:      `[-+]?\d+[.,]\d{2}`,
				Description: `(?i)(plata|retragere)\s+.+`,
			},
			PriorConfidence: 0.9,
		},
		{
			BankID:           "ING",
			SignatureStrings: []string{"ING BANK", "ING HOME'BANK", "HOMEBANK"},
			DocumentRegexes:  []string{`(?i)ing\s+bank`, `(?i)home'?bank`},
			FieldRegexes: model.FieldRegexes{
				Date:        `\d{2}\s+\w+\s+\d{4}|\d{4}-\d{2}-\d{2}`,
				Amount:      `[-+]?\d{1,3}(?:\.\d{3})*,\d{2}`,
				Description: `(?i)(cumparare|plata|transfer)\s+.+`,
			},
			PriorConfidence: 0.9,
		},
		{
			BankID:           "RAIFFEISEN",
			SignatureStrings: []string{"RAIFFEISEN BANK", "RAIFFEISEN"},
			DocumentRegexes:  []string{`(?i)raiffeisen`},
			FieldRegexes: model.FieldRegexes{
				Date:        `\d{2}[./-]\d{2}[./-]\d{4}`,
				Amount:      `[-+]?\d+[.,]\d{2}`,
				Description: `(?i)(plata|pos|atm)\s+.+`,
			},
			PriorConfidence: 0.9,
		},
		{
			BankID:           "UNICREDIT",
			SignatureStrings: []string{"UNICREDIT BANK", "UNICREDIT"},
			DocumentRegexes:  []string{`(?i)unicredit`},
			FieldRegexes: model.FieldRegexes{
				Date:        `\d{2}\.\d{2}\.\d{4}`,
				Amount:      `[-+]?\d+[.,]\d{2}`,
				Description: `(?i)(plata|transfer)\s+.+`,
			},
			PriorConfidence: 0.85,
		},
		{
			BankID:           "CEC",
			SignatureStrings: []string{"CEC BANK"},
			DocumentRegexes:  []string{`(?i)cec\s+bank`},
			FieldRegexes: model.FieldRegexes{
				Date:        `\d{2}[./-]\d{2}[./-]\d{4}`,
				Amount:      `[-+]?\d+[.,]\d{2}`,
				Description: `(?i)(plata|retragere)\s+.+`,
			},
			PriorConfidence: 0.85,
		},
		{
			BankID:           "ALPHA",
			SignatureStrings: []string{"ALPHA BANK"},
			DocumentRegexes:  []string{`(?i)alpha\s+bank`},
			FieldRegexes: model.FieldRegexes{
				Date:        `\d{2}/\d{2}/\d{4}`,
				Amount:      `[-+]?\d+[.,]\d{2}`,
				Description: `(?i)(plata|transfer)\s+.+`,
			},
			PriorConfidence: 0.85,
		},
		{
			BankID:           "REVOLUT",
			SignatureStrings: []string{"REVOLUT", "REVOLUT BANK UAB"},
			DocumentRegexes:  []string{`(?i)revolut`},
			FieldRegexes: model.FieldRegexes{
				Date:        `\d{1,2}\s+\w+\s+\d{4}|\d{4}-\d{2}-\d{2}`,
				Amount:      `[-+]?\d+\.\d{2}`,
				Description: `(?i)(payment|transfer|exchange)\s+.+`,
			},
			PriorConfidence: 0.85,
		},
	}
}

// bankNameKeywords backs the lowest-confidence fallback: plain substring
// lookup of a bank name in the document text.
var bankNameKeywords = map[string]string{
	"transilvania": "BT",
	"bcr":          "BCR",
	"george":       "BCR",
	"brd":          "BRD",
	"ing":          "ING",
	"raiffeisen":   "RAIFFEISEN",
	"unicredit":    "UNICREDIT",
	"cec":          "CEC",
	"alpha":        "ALPHA",
	"revolut":      "REVOLUT",
}
