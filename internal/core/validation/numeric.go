package validation

import (
	"time"

	"github.com/heshbonit/receipt-pipeline/internal/core/domain"
	"github.com/shopspring/decimal"
)

// DefaultVATRate is the standard Israeli VAT rate applied when no override is
// configured.
var DefaultVATRate = decimal.NewFromFloat(0.17)

// DefaultVATTolerance absorbs the rounding error that accumulates when OCR
// sub-amounts were rounded independently on the printed receipt.
var DefaultVATTolerance = decimal.NewFromFloat(0.02)

// maxTransactionAge bounds how far back a receipt date may reasonably lie.
const maxTransactionAgeYears = 7

// ValidNationalID runs the weighted-digit checksum shared by personal ID
// numbers and business registration numbers: digits at even 0-indexed
// positions are doubled (two-digit products sum their digits), the rest kept,
// and the total must divide by 10. Anything but exactly nine digits fails.
func ValidNationalID(value string) bool {
	if len(value) != 9 {
		return false
	}
	sum := 0
	for i := 0; i < 9; i++ {
		c := value[i]
		if c < '0' || c > '9' {
			return false
		}
		d := int(c - '0')
		if i%2 == 0 {
			d *= 2
			if d > 9 {
				d = d/10 + d%10
			}
		}
		sum += d
	}
	return sum%10 == 0
}

// ComputeVAT derives the pre-tax and tax portions from a VAT-inclusive total.
// Both results are rounded half-up to two decimals and always sum back to the
// total within DefaultVATTolerance.
func ComputeVAT(total, rate decimal.Decimal) (preTax, tax decimal.Decimal) {
	preTax = total.Div(decimal.NewFromInt(1).Add(rate)).Round(2)
	tax = total.Sub(preTax).Round(2)
	return preTax, tax
}

// ValidateVAT cross-checks independently extracted amounts. The tolerance is
// deliberately nonzero: per-line rounding on the printed receipt makes an
// exact equality check reject correct receipts.
func ValidateVAT(total, tax, preTax, tolerance decimal.Decimal) bool {
	diff := preTax.Add(tax).Sub(total).Abs()
	return diff.LessThanOrEqual(tolerance)
}

// ValidTransactionDate accepts dates in the inclusive window
// [now - 7 years, now]. Future dates and ancient dates are OCR misreads far
// more often than real transactions.
func ValidTransactionDate(date, now time.Time) bool {
	if date.After(now) {
		return false
	}
	oldest := now.AddDate(-maxTransactionAgeYears, 0, 0)
	return !date.Before(oldest)
}

// Advisory messages attached to receipts that fail a non-fatal check.
const (
	AdvisoryBadChecksum   = "business id failed checksum"
	AdvisoryDateOutOfRange = "transaction date out of plausible range"
	AdvisoryVATMismatch   = "tax and pre-tax amounts do not reconcile with total"
)

// Check runs every applicable validator over the receipt's present fields and
// returns the advisory list. Advisories never block a state transition; they
// only flag fields the user should look at.
func Check(r domain.Receipt, now time.Time) []string {
	var advisories []string

	if r.BusinessID != "" && !ValidNationalID(r.BusinessID) {
		advisories = append(advisories, AdvisoryBadChecksum)
	}
	if r.TransactionDate != nil && !ValidTransactionDate(*r.TransactionDate, now) {
		advisories = append(advisories, AdvisoryDateOutOfRange)
	}
	if r.Total != nil && r.Tax != nil && r.PreTax != nil {
		if !ValidateVAT(*r.Total, *r.Tax, *r.PreTax, DefaultVATTolerance) {
			advisories = append(advisories, AdvisoryVATMismatch)
		}
	}
	return advisories
}
