package extraction

import (
	"regexp"
	"strings"
	"time"

	"github.com/heshbonit/receipt-pipeline/internal/core/domain"
	"github.com/shopspring/decimal"
)

// Weights control how per-field confidence is assembled. They should sum to 1.
type Weights struct {
	LabelAdjacency float64 // value found next to a recognized label
	ValueShape     float64 // value matches the strict expected shape
	Uniqueness     float64 // no conflicting candidate elsewhere in the text
}

// Config is the immutable lookup configuration for an Extractor. Labels are
// matched case- and punctuation-insensitively in both scripts.
type Config struct {
	BusinessIDLabels    []string
	ReceiptNumberLabels []string
	DateLabels          []string
	TotalLabels         []string
	TaxLabels           []string
	PreTaxLabels        []string
	DateLayouts         []string
	Weights             Weights

	// MaxAmountDigits caps the integer digits of a currency-shaped token so
	// id-like digit runs are never mistaken for amounts.
	MaxAmountDigits int
}

// DefaultConfig returns the extraction tables tuned for Israeli receipts.
func DefaultConfig() Config {
	return Config{
		BusinessIDLabels: []string{
			"עוסק מורשה", "עוסק", "ע.מ", "ח.פ", "מספר עוסק", "חברה", "business", "id",
		},
		ReceiptNumberLabels: []string{
			"קבלה", "חשבונית", "מס קבלה", "receipt", "invoice",
		},
		DateLabels: []string{"תאריך", "date"},
		TotalLabels: []string{
			"סה\"כ", "סך הכל", "לתשלום", "total", "amount due",
		},
		TaxLabels:   []string{"מע\"מ", "vat", "tax"},
		PreTaxLabels: []string{
			"לפני מע\"מ", "subtotal", "pre-tax",
		},
		DateLayouts: []string{
			"02/01/2006", "02-01-2006", "02.01.2006", "2006-01-02", "02/01/06", "2/1/2006",
		},
		Weights: Weights{
			LabelAdjacency: 0.5,
			ValueShape:     0.3,
			Uniqueness:     0.2,
		},
		MaxAmountDigits: 7,
	}
}

// Extractor turns raw OCR text into candidate field values with confidence
// scores. It is deterministic: every field resolves first-match-wins in
// reading order, never best-match.
type Extractor struct {
	cfg Config

	// label tables pre-normalized once at construction
	bizLabels     []string
	receiptLabels []string
	dateLabels    []string
	totalLabels   []string
	taxLabels     []string
	preTaxLabels  []string
}

// NewExtractor builds an Extractor from an immutable config.
func NewExtractor(cfg Config) *Extractor {
	return &Extractor{
		cfg:           cfg,
		bizLabels:     normalizeAll(cfg.BusinessIDLabels),
		receiptLabels: normalizeAll(cfg.ReceiptNumberLabels),
		dateLabels:    normalizeAll(cfg.DateLabels),
		totalLabels:   normalizeAll(cfg.TotalLabels),
		taxLabels:     normalizeAll(cfg.TaxLabels),
		preTaxLabels:  normalizeAll(cfg.PreTaxLabels),
	}
}

func normalizeAll(labels []string) []string {
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		if n := Normalize(l); n != "" {
			out = append(out, n)
		}
	}
	return out
}

var (
	exactNineDigits = regexp.MustCompile(`(?:^|\D)(\d{9})(?:\D|$)`)
	fourPlusDigits  = regexp.MustCompile(`(?:^|\D)(\d{4,})(?:\D|$)`)
	dateShaped      = regexp.MustCompile(`\d{1,4}[./-]\d{1,2}[./-]\d{1,4}`)
	amountShaped    = regexp.MustCompile(`^\d{1,3}(?:,\d{3})*(?:\.\d{1,2})?$|^\d+(?:\.\d{1,2})?$`)
)

// line pairs a raw OCR line with its normalized form.
type line struct {
	raw  string
	norm string
}

// Extract parses the raw recognition text. Empty or blank input yields an
// all-empty result with zero confidences; it never fails.
func (e *Extractor) Extract(raw string) domain.ExtractionResult {
	result := domain.ExtractionResult{}

	lines := splitLines(raw)
	if len(lines) == 0 {
		return result
	}

	result[domain.FieldVendorName] = e.extractVendor(lines)
	result[domain.FieldBusinessID] = e.extractBusinessID(lines)
	result[domain.FieldReceiptNumber] = e.extractReceiptNumber(lines)
	result[domain.FieldTransactionDate] = e.extractDate(lines)

	total, tax, preTax := e.extractAmounts(lines)
	result[domain.FieldTotal] = total
	result[domain.FieldTax] = tax
	result[domain.FieldPreTax] = preTax

	return result
}

func splitLines(raw string) []line {
	var out []line
	for _, l := range strings.Split(raw, "\n") {
		norm := Normalize(l)
		if norm == "" && strings.TrimSpace(l) == "" {
			continue
		}
		out = append(out, line{raw: strings.TrimSpace(l), norm: norm})
	}
	return out
}

// hasLabel returns the index just past the first matching label, or -1.
// Labels match on word boundaries so "tax" never fires inside "taxi".
func hasLabel(norm string, labels []string) int {
	best := -1
	for _, label := range labels {
		from := 0
		for {
			idx := strings.Index(norm[from:], label)
			if idx < 0 {
				break
			}
			idx += from
			end := idx + len(label)
			startOK := idx == 0 || norm[idx-1] == ' '
			// digits directly after a label still count as label-adjacent
			endOK := end == len(norm) || norm[end] == ' ' || (norm[end] >= '0' && norm[end] <= '9')
			if startOK && endOK {
				if best == -1 || end < best {
					best = end
				}
				break
			}
			from = end
		}
	}
	return best
}

func (e *Extractor) anyLabel(norm string) bool {
	for _, set := range [][]string{
		e.bizLabels, e.receiptLabels, e.dateLabels, e.totalLabels, e.taxLabels, e.preTaxLabels,
	} {
		if hasLabel(norm, set) >= 0 {
			return true
		}
	}
	return false
}

func (e *Extractor) conf(label, shape, unique bool) float64 {
	var c float64
	if label {
		c += e.cfg.Weights.LabelAdjacency
	}
	if shape {
		c += e.cfg.Weights.ValueShape
	}
	if unique {
		c += e.cfg.Weights.Uniqueness
	}
	return c
}

// extractVendor picks the first non-empty line that is neither a label line
// nor a bare number. Receipts print the vendor name at the top.
func (e *Extractor) extractVendor(lines []line) domain.FieldCandidate {
	for _, l := range lines {
		if l.norm == "" || e.anyLabel(l.norm) {
			continue
		}
		if !containsLetter(l.norm) {
			continue
		}
		if dateShaped.MatchString(l.raw) {
			continue
		}
		return domain.FieldCandidate{
			Value:      l.raw,
			Confidence: e.conf(false, true, true),
		}
	}
	return domain.FieldCandidate{}
}

func containsLetter(s string) bool {
	for _, r := range s {
		if r >= '0' && r <= '9' || r == ' ' {
			continue
		}
		return true
	}
	return false
}

// extractBusinessID finds the first run of exactly nine digits following a
// dealer/company label, on the label's line or the one right below it.
func (e *Extractor) extractBusinessID(lines []line) domain.FieldCandidate {
	total := 0
	for _, l := range lines {
		total += len(exactNineDigits.FindAllString(l.norm, -1))
	}
	unique := total <= 1

	for i, l := range lines {
		end := hasLabel(l.norm, e.bizLabels)
		if end < 0 {
			continue
		}
		if m := exactNineDigits.FindStringSubmatch(l.norm[end:]); m != nil {
			return domain.FieldCandidate{Value: m[1], Confidence: e.conf(true, true, unique)}
		}
		// OCR often breaks the label and the number onto separate lines.
		if i+1 < len(lines) {
			if m := exactNineDigits.FindStringSubmatch(lines[i+1].norm); m != nil {
				return domain.FieldCandidate{Value: m[1], Confidence: e.conf(true, true, unique)}
			}
		}
	}
	return domain.FieldCandidate{}
}

// extractReceiptNumber finds the first run of four or more digits following a
// receipt/invoice label; empty when nothing is labeled.
func (e *Extractor) extractReceiptNumber(lines []line) domain.FieldCandidate {
	var candidates int
	var first string
	var firstLabeled bool
	for i, l := range lines {
		end := hasLabel(l.norm, e.receiptLabels)
		if end < 0 {
			continue
		}
		seg := l.norm[end:]
		m := fourPlusDigits.FindStringSubmatch(seg)
		if m == nil && i+1 < len(lines) {
			m = fourPlusDigits.FindStringSubmatch(lines[i+1].norm)
		}
		if m == nil {
			continue
		}
		candidates++
		if first == "" {
			first = m[1]
			firstLabeled = true
		}
	}
	if first == "" {
		return domain.FieldCandidate{}
	}
	return domain.FieldCandidate{
		Value:      first,
		Confidence: e.conf(firstLabeled, true, candidates == 1),
	}
}

// extractDate walks date-shaped tokens in reading order and tries the
// configured layouts in order; the first successful parse wins.
func (e *Extractor) extractDate(lines []line) domain.FieldCandidate {
	tokens := 0
	for _, l := range lines {
		tokens += len(dateShaped.FindAllString(l.raw, -1))
	}
	unique := tokens <= 1

	for _, l := range lines {
		for _, tok := range dateShaped.FindAllString(l.raw, -1) {
			for _, layout := range e.cfg.DateLayouts {
				t, err := time.Parse(layout, tok)
				if err != nil {
					continue
				}
				labeled := hasLabel(l.norm, e.dateLabels) >= 0
				return domain.FieldCandidate{
					Value:      t.Format("2006-01-02"),
					Confidence: e.conf(labeled, true, unique),
				}
			}
		}
	}
	return domain.FieldCandidate{}
}

// amountToken is one currency-shaped token with its position.
type amountToken struct {
	value   decimal.Decimal
	exact2  bool // printed with an explicit 2-digit fraction
	lineIdx int
}

// parseAmountToken strips currency markers and validates the numeric shape.
func (e *Extractor) parseAmountToken(tok string) (decimal.Decimal, bool, bool) {
	tok = strings.Trim(tok, "₪$")
	tok = strings.TrimSuffix(strings.TrimPrefix(tok, "NIS"), "NIS")
	tok = strings.TrimSuffix(strings.TrimPrefix(tok, "ILS"), "ILS")
	tok = strings.TrimSpace(tok)
	if tok == "" || !amountShaped.MatchString(tok) {
		return decimal.Zero, false, false
	}
	intPart := tok
	exact2 := false
	if dot := strings.IndexByte(tok, '.'); dot >= 0 {
		intPart = tok[:dot]
		exact2 = len(tok)-dot-1 == 2
	}
	digits := len(intPart) - strings.Count(intPart, ",")
	if digits > e.cfg.MaxAmountDigits {
		return decimal.Zero, false, false
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(tok, ",", ""))
	if err != nil {
		return decimal.Zero, false, false
	}
	return d, exact2, true
}

func (e *Extractor) amountTokens(lines []line) []amountToken {
	var out []amountToken
	for i, l := range lines {
		// numbers on identifier lines are ids, not money
		if hasLabel(l.norm, e.bizLabels) >= 0 || hasLabel(l.norm, e.receiptLabels) >= 0 {
			continue
		}
		for _, tok := range strings.Fields(l.raw) {
			if dateShaped.MatchString(tok) {
				continue
			}
			d, exact2, ok := e.parseAmountToken(tok)
			if !ok {
				continue
			}
			out = append(out, amountToken{value: d, exact2: exact2, lineIdx: i})
		}
	}
	return out
}

// extractAmounts resolves total, tax and pre-tax in one pass over the
// currency-shaped tokens. The total is the numerically largest token (ties go
// to the earliest); labeled tax and pre-tax lines are read directly and left
// empty otherwise so the validator can compute them later.
func (e *Extractor) extractAmounts(lines []line) (total, tax, preTax domain.FieldCandidate) {
	tokens := e.amountTokens(lines)
	if len(tokens) == 0 {
		return domain.FieldCandidate{}, domain.FieldCandidate{}, domain.FieldCandidate{}
	}

	best := tokens[0]
	occurrences := 1
	for _, t := range tokens[1:] {
		switch {
		case t.value.GreaterThan(best.value):
			best = t
			occurrences = 1
		case t.value.Equal(best.value):
			occurrences++
		}
	}
	totalLabeled := hasLabel(lines[best.lineIdx].norm, e.totalLabels) >= 0
	total = domain.FieldCandidate{
		Value:      best.value.StringFixed(2),
		Confidence: e.conf(totalLabeled, best.exact2, occurrences == 1),
	}

	tax = e.labeledAmount(lines, tokens, e.preTaxLabels, e.taxLabels)
	preTax = e.labeledAmount(lines, tokens, nil, e.preTaxLabels)
	return total, tax, preTax
}

// labeledAmount returns the first token on a line carrying one of want's
// labels. Lines matching any of the skip set are ignored first, so a
// "pre-tax" line is never misread as the tax line it textually contains.
func (e *Extractor) labeledAmount(lines []line, tokens []amountToken, skip, want []string) domain.FieldCandidate {
	matches := 0
	var first *amountToken
	for i := range tokens {
		norm := lines[tokens[i].lineIdx].norm
		if skip != nil && hasLabel(norm, skip) >= 0 {
			continue
		}
		if hasLabel(norm, want) < 0 {
			continue
		}
		matches++
		if first == nil {
			first = &tokens[i]
		}
	}
	if first == nil {
		return domain.FieldCandidate{}
	}
	return domain.FieldCandidate{
		Value:      first.value.StringFixed(2),
		Confidence: e.conf(true, first.exact2, matches == 1),
	}
}
