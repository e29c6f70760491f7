package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Receipt represents a receipt row as persisted.
// Nullable columns use pointers; Advisories maps onto a text[] column.
type Receipt struct {
	ReceiptID             string           `db:"receipt_id"`
	OwnerID               string           `db:"owner_id"`
	FileRef               string           `db:"file_ref"`
	VendorName            string           `db:"vendor_name"`
	BusinessID            string           `db:"business_id"`
	ReceiptNumber         string           `db:"receipt_number"`
	TransactionDate       *time.Time       `db:"transaction_date"`
	Total                 *decimal.Decimal `db:"total"`
	PreTax                *decimal.Decimal `db:"pre_tax"`
	Tax                   *decimal.Decimal `db:"tax"`
	CategoryID            *string          `db:"category_id"` // Nullable FK to categories
	Status                string           `db:"status"`
	Confidence            float64          `db:"confidence"`
	IsDuplicate           bool             `db:"is_duplicate"`
	DuplicateOfID         *string          `db:"duplicate_of_id"` // Nullable self-reference
	Advisories            []string         `db:"advisories"`
	Notes                 string           `db:"notes"`
	ProcessingStartedAt   *time.Time       `db:"processing_started_at"`
	ProcessingCompletedAt *time.Time       `db:"processing_completed_at"`
	ApprovedAt            *time.Time       `db:"approved_at"`
	AuditFields
}
