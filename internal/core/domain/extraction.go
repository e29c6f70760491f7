package domain

// Extraction field names shared by the extractor, the audit log, and edits.
const (
	FieldVendorName      = "vendor_name"
	FieldBusinessID      = "business_id"
	FieldReceiptNumber   = "receipt_number"
	FieldTransactionDate = "transaction_date"
	FieldTotal           = "total"
	FieldPreTax          = "pre_tax"
	FieldTax             = "tax"
)

// FieldCandidate is one extracted value with its reliability estimate.
// Confidence is a heuristic in [0,1], not a statistical probability.
type FieldCandidate struct {
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
}

// ExtractionResult maps field names to extracted candidates. It is transient:
// the pipeline folds it into the Receipt and never persists it independently.
type ExtractionResult map[string]FieldCandidate

// Get returns the candidate for a field; absent fields yield a zero candidate.
func (r ExtractionResult) Get(field string) FieldCandidate {
	return r[field]
}

// Has reports whether a non-empty value was extracted for the field.
func (r ExtractionResult) Has(field string) bool {
	c, ok := r[field]
	return ok && c.Value != ""
}

// MeanConfidence averages the confidences of fields with present values.
// An all-empty result yields 0.
func (r ExtractionResult) MeanConfidence() float64 {
	var sum float64
	var n int
	for _, c := range r {
		if c.Value == "" {
			continue
		}
		sum += c.Confidence
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
