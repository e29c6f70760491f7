package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReceiptStatus indicates where a receipt is in its processing lifecycle.
type ReceiptStatus string

const (
	// StatusProcessing means the pipeline owns the record exclusively.
	StatusProcessing ReceiptStatus = "PROCESSING"
	// StatusReview means recognition succeeded and the receipt awaits user confirmation.
	StatusReview ReceiptStatus = "REVIEW"
	// StatusDuplicate means a likely duplicate was found; editable like REVIEW until resolved.
	StatusDuplicate ReceiptStatus = "DUPLICATE"
	// StatusApproved is terminal; extracted fields are immutable afterwards.
	StatusApproved ReceiptStatus = "APPROVED"
	// StatusFailed is terminal unless the user retries.
	StatusFailed ReceiptStatus = "FAILED"
)

// Receipt is the record produced by the processing pipeline from one uploaded
// receipt image. Amount fields are nil until extraction fills them.
type Receipt struct {
	ReceiptID       string           `json:"receiptID"` // Primary Key (UUID)
	OwnerID         string           `json:"ownerID"`   // FK -> users, scopes all queries
	FileRef         string           `json:"fileRef"`   // Reference to the stored image (opaque here)
	VendorName      string           `json:"vendorName"`
	BusinessID      string           `json:"businessID"` // 9-digit registered business number
	ReceiptNumber   string           `json:"receiptNumber"`
	TransactionDate *time.Time       `json:"transactionDate"` // Date component only
	Total           *decimal.Decimal `json:"total"`
	PreTax          *decimal.Decimal `json:"preTax"`
	Tax             *decimal.Decimal `json:"tax"`
	CategoryID      *string          `json:"categoryID"` // Nullable; nil means needs human classification
	Status          ReceiptStatus    `json:"status"`
	Confidence      float64          `json:"confidence"` // Mean of present per-field confidences, [0,1]
	IsDuplicate     bool             `json:"isDuplicate"`
	DuplicateOfID   *string          `json:"duplicateOfID"` // Set when Status is DUPLICATE
	Advisories      []string         `json:"advisories"`    // Non-fatal validation warnings
	Notes           string           `json:"notes"`
	AuditFields

	ProcessingStartedAt   *time.Time `json:"processingStartedAt"`
	ProcessingCompletedAt *time.Time `json:"processingCompletedAt"`
	ApprovedAt            *time.Time `json:"approvedAt"`
}

// Editable reports whether user edits are currently allowed. The pipeline owns
// PROCESSING records and APPROVED is terminal.
func (r Receipt) Editable() bool {
	return r.Status == StatusReview || r.Status == StatusDuplicate
}
