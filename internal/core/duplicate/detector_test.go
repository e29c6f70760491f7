package duplicate

import (
	"testing"
	"time"

	"github.com/heshbonit/receipt-pipeline/internal/core/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func receiptFixture(id, owner, vendor string, date time.Time, total string, status domain.ReceiptStatus, createdAt time.Time) domain.Receipt {
	amount := decimal.RequireFromString(total)
	return domain.Receipt{
		ReceiptID:       id,
		OwnerID:         owner,
		VendorName:      vendor,
		TransactionDate: &date,
		Total:           &amount,
		Status:          status,
		AuditFields:     domain.AuditFields{CreatedAt: createdAt},
	}
}

func TestFindDuplicate(t *testing.T) {
	d := NewDetector()
	date := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	created := time.Date(2024, 3, 16, 10, 0, 0, 0, time.UTC)

	candidate := receiptFixture("new", "owner-1", "ABC Fuel", date, "117.00", domain.StatusProcessing, created)

	t.Run("identical vendor date and amount matches", func(t *testing.T) {
		existing := []domain.Receipt{
			receiptFixture("old", "owner-1", "ABC Fuel", date, "117.00", domain.StatusApproved, created.Add(-time.Hour)),
		}
		assert.Equal(t, "old", d.FindDuplicate(candidate, existing))
	})

	t.Run("one day apart still matches", func(t *testing.T) {
		existing := []domain.Receipt{
			receiptFixture("old", "owner-1", "ABC Fuel", date.AddDate(0, 0, 1), "117.00", domain.StatusReview, created),
		}
		assert.Equal(t, "old", d.FindDuplicate(candidate, existing))
	})

	t.Run("three days apart does not match", func(t *testing.T) {
		existing := []domain.Receipt{
			receiptFixture("old", "owner-1", "ABC Fuel", date.AddDate(0, 0, 3), "117.00", domain.StatusApproved, created),
		}
		assert.Equal(t, "", d.FindDuplicate(candidate, existing))
	})

	t.Run("amount off by fifty percent does not match", func(t *testing.T) {
		existing := []domain.Receipt{
			receiptFixture("old", "owner-1", "ABC Fuel", date, "175.50", domain.StatusApproved, created),
		}
		assert.Equal(t, "", d.FindDuplicate(candidate, existing))
	})

	t.Run("amount within five percent matches", func(t *testing.T) {
		existing := []domain.Receipt{
			receiptFixture("old", "owner-1", "ABC Fuel", date, "120.00", domain.StatusApproved, created),
		}
		assert.Equal(t, "old", d.FindDuplicate(candidate, existing))
	})

	t.Run("different owner never matches", func(t *testing.T) {
		existing := []domain.Receipt{
			receiptFixture("old", "owner-2", "ABC Fuel", date, "117.00", domain.StatusApproved, created),
		}
		assert.Equal(t, "", d.FindDuplicate(candidate, existing))
	})

	t.Run("failed receipts are excluded", func(t *testing.T) {
		existing := []domain.Receipt{
			receiptFixture("old", "owner-1", "ABC Fuel", date, "117.00", domain.StatusFailed, created),
		}
		assert.Equal(t, "", d.FindDuplicate(candidate, existing))
	})

	t.Run("candidate itself is excluded", func(t *testing.T) {
		existing := []domain.Receipt{
			receiptFixture("new", "owner-1", "ABC Fuel", date, "117.00", domain.StatusProcessing, created),
		}
		assert.Equal(t, "", d.FindDuplicate(candidate, existing))
	})

	t.Run("most recently created wins ties", func(t *testing.T) {
		existing := []domain.Receipt{
			receiptFixture("older", "owner-1", "ABC Fuel", date, "117.00", domain.StatusApproved, created.Add(-2*time.Hour)),
			receiptFixture("newer", "owner-1", "ABC Fuel", date, "117.00", domain.StatusApproved, created.Add(-time.Hour)),
		}
		assert.Equal(t, "newer", d.FindDuplicate(candidate, existing))
	})

	t.Run("similar but reordered vendor matches", func(t *testing.T) {
		existing := []domain.Receipt{
			receiptFixture("old", "owner-1", "Fuel ABC", date, "117.00", domain.StatusApproved, created),
		}
		assert.Equal(t, "old", d.FindDuplicate(candidate, existing))
	})

	t.Run("unrelated vendor does not match", func(t *testing.T) {
		existing := []domain.Receipt{
			receiptFixture("old", "owner-1", "Pizza Roma", date, "117.00", domain.StatusApproved, created),
		}
		assert.Equal(t, "", d.FindDuplicate(candidate, existing))
	})

	t.Run("candidate without date or total never matches", func(t *testing.T) {
		existing := []domain.Receipt{
			receiptFixture("old", "owner-1", "ABC Fuel", date, "117.00", domain.StatusApproved, created),
		}
		noDate := candidate
		noDate.TransactionDate = nil
		assert.Equal(t, "", d.FindDuplicate(noDate, existing))

		noTotal := candidate
		noTotal.Total = nil
		assert.Equal(t, "", d.FindDuplicate(noTotal, existing))
	})
}

func TestTokenSortRatio(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want int
	}{
		{name: "identical", a: "abc fuel", b: "abc fuel", want: 100},
		{name: "token order ignored", a: "fuel abc", b: "abc fuel", want: 100},
		{name: "both empty", a: "", b: "", want: 100},
		{name: "one empty", a: "abc", b: "", want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TokenSortRatio(tt.a, tt.b))
		})
	}

	assert.Less(t, TokenSortRatio("abc fuel", "pizza roma"), 50)
	assert.GreaterOrEqual(t, TokenSortRatio("abc fuel ltd", "abc fuel"), 60)
}

func TestTokenSortRatioHebrew(t *testing.T) {
	// rune-level distance, not byte-level: identical Hebrew scores 100 and a
	// one-letter difference stays high
	assert.Equal(t, 100, TokenSortRatio("דלק פז", "פז דלק"))
	assert.GreaterOrEqual(t, TokenSortRatio("דלק פז", "דלק פו"), 80)
}
