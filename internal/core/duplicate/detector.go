// Package duplicate finds prior receipts that likely represent the same
// physical transaction as a newly processed one.
package duplicate

import (
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/heshbonit/receipt-pipeline/internal/core/domain"
	"github.com/heshbonit/receipt-pipeline/internal/core/extraction"
	"github.com/shopspring/decimal"
)

// Detector compares a candidate receipt against an owner's existing receipts.
// Thresholds are fixed at construction so alternate tunings stay testable.
type Detector struct {
	minSimilarity  int             // token-level vendor similarity, 0-100
	maxAmountDrift decimal.Decimal // relative total difference, e.g. 0.05
	maxDayDiff     int             // calendar days between transaction dates
}

// NewDetector returns a Detector with the standard thresholds: vendor
// similarity >= 80, amounts within 5%, dates within one calendar day.
func NewDetector() *Detector {
	return &Detector{
		minSimilarity:  80,
		maxAmountDrift: decimal.NewFromFloat(0.05),
		maxDayDiff:     1,
	}
}

// FindDuplicate returns the id of the first existing receipt judged to be the
// same transaction, or "" when none qualifies. Candidates are considered
// most-recently-created first. Receipts of other owners, terminally FAILED
// receipts and the candidate itself are never matched. A candidate missing
// its date or total cannot be compared and never matches.
func (d *Detector) FindDuplicate(candidate domain.Receipt, existing []domain.Receipt) string {
	if candidate.TransactionDate == nil || candidate.Total == nil {
		return ""
	}

	ordered := make([]domain.Receipt, len(existing))
	copy(ordered, existing)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].CreatedAt.After(ordered[j].CreatedAt)
	})

	candVendor := extraction.Normalize(candidate.VendorName)
	for _, other := range ordered {
		if other.ReceiptID == candidate.ReceiptID {
			continue
		}
		if other.OwnerID != candidate.OwnerID {
			continue
		}
		if other.Status == domain.StatusFailed {
			continue
		}
		if other.TransactionDate == nil || other.Total == nil {
			continue
		}
		if dayDiff(*candidate.TransactionDate, *other.TransactionDate) > d.maxDayDiff {
			continue
		}
		if TokenSortRatio(candVendor, extraction.Normalize(other.VendorName)) < d.minSimilarity {
			continue
		}
		if !d.amountClose(*candidate.Total, *other.Total) {
			continue
		}
		return other.ReceiptID
	}
	return ""
}

// amountClose checks the relative total difference against the drift
// threshold, scaled by the candidate's total.
func (d *Detector) amountClose(candidate, other decimal.Decimal) bool {
	diff := candidate.Sub(other).Abs()
	if candidate.IsZero() {
		return other.IsZero()
	}
	return diff.LessThanOrEqual(candidate.Abs().Mul(d.maxAmountDrift))
}

// dayDiff counts whole calendar days between two dates, ignoring clock time.
func dayDiff(a, b time.Time) int {
	ad := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	bd := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	diff := int(ad.Sub(bd).Hours() / 24)
	if diff < 0 {
		diff = -diff
	}
	return diff
}

// TokenSortRatio scores how similar two normalized strings are on a 0-100
// scale: tokens are sorted and rejoined, then scored by Levenshtein distance
// over the longer length. Token sorting makes "fuel abc" and "abc fuel"
// identical, which matters for OCR text with unstable reading order.
func TokenSortRatio(a, b string) int {
	as := sortedTokens(a)
	bs := sortedTokens(b)
	if as == "" && bs == "" {
		return 100
	}
	if as == "" || bs == "" {
		return 0
	}
	dist := levenshtein(as, bs)
	longest := utf8.RuneCountInString(as)
	if n := utf8.RuneCountInString(bs); n > longest {
		longest = n
	}
	return int(float64(longest-dist) / float64(longest) * 100)
}

func sortedTokens(s string) string {
	tokens := strings.Fields(s)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

// levenshtein computes the edit distance between two strings.
func levenshtein(s1, s2 string) int {
	r1 := []rune(s1)
	r2 := []rune(s2)
	if len(r1) == 0 {
		return len(r2)
	}
	if len(r2) == 0 {
		return len(r1)
	}

	prev := make([]int, len(r2)+1)
	curr := make([]int, len(r2)+1)
	for j := 0; j <= len(r2); j++ {
		prev[j] = j
	}
	for i := 1; i <= len(r1); i++ {
		curr[0] = i
		for j := 1; j <= len(r2); j++ {
			cost := 1
			if r1[i-1] == r2[j-1] {
				cost = 0
			}
			curr[j] = min3(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}
	return prev[len(r2)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
