package model

import "time"

// SignatureFeatures is the compact numeric feature vector derived from
// document text. All ratio features are in [0,1].
type SignatureFeatures struct {
	Length             int
	LineCount          int
	DateCount          int
	AmountCount        int
	DigitRatio         float64
	UppercaseRatio     float64
	BankKeywordDensity float64
	HasTableStructure  bool
}

// DocumentSignature fingerprints a document's structural text properties.
// Immutable once created.
type DocumentSignature struct {
	CreatedAt time.Time
	Hash      string
	Features  SignatureFeatures
}

// BankTemplate is static, hand-curated reference data for a known bank's
// statement layout.
type BankTemplate struct {
	BankID           string
	SignatureStrings []string
	DocumentRegexes  []string
	FieldRegexes     FieldRegexes
	PriorConfidence  float64
}

// FieldRegexes holds per-field extraction patterns for a bank template.
type FieldRegexes struct {
	Date        string
	Amount      string
	Description string
}

// LearnedPattern is a signature promoted to persistent state the first time
// it has no template or learned match. Accuracy adapts from feedback via an
// exponential moving average; patterns are never deleted automatically.
type LearnedPattern struct {
	LastUsedAt    time.Time
	CreatedAt     time.Time
	SignatureHash string
	BankID        string
	SampleText    string
	Features      SignatureFeatures
	Accuracy      float64
	UsageCount    int
}

// DetectionMethod names the resolution step that identified a bank.
type DetectionMethod string

// Detection methods, in resolution order.
const (
	DetectionSignature DetectionMethod = "signature"
	DetectionPattern   DetectionMethod = "pattern"
	DetectionLearned   DetectionMethod = "learned"
	DetectionKeyword   DetectionMethod = "keyword"
	DetectionNone      DetectionMethod = "none"
)

// BankDetection is the outcome of the bank resolution chain.
type BankDetection struct {
	Bank       string
	Method     DetectionMethod
	Signature  DocumentSignature
	Confidence float64
}
