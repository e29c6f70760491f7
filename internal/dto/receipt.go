package dto

import (
	"time"

	"github.com/heshbonit/receipt-pipeline/internal/core/domain"
	"github.com/shopspring/decimal"
)

// CreateReceiptRequest defines the data needed to register an uploaded receipt.
type CreateReceiptRequest struct {
	FileRef string `json:"fileRef" validate:"required"` // Reference to the stored image
	Notes   string `json:"notes"`                       // Optional
}

// EditReceiptRequest defines user corrections to an extracted receipt.
// Use pointers to distinguish between zero-value updates and fields not provided.
type EditReceiptRequest struct {
	VendorName      *string          `json:"vendorName" validate:"omitempty,min=1"`
	BusinessID      *string          `json:"businessID" validate:"omitempty,len=9,numeric"`
	ReceiptNumber   *string          `json:"receiptNumber"`
	TransactionDate *time.Time       `json:"transactionDate"`
	Total           *decimal.Decimal `json:"total"`
	PreTax          *decimal.Decimal `json:"preTax"`
	Tax             *decimal.Decimal `json:"tax"`
	CategoryID      *string          `json:"categoryID"`
	Notes           *string          `json:"notes"`
}

// TouchesAmounts reports whether the edit changes any of the VAT-linked
// amount fields.
func (r EditReceiptRequest) TouchesAmounts() bool {
	return r.Total != nil || r.PreTax != nil || r.Tax != nil
}

// ApproveReceiptRequest carries the caller-confirmed final values. The VAT
// split is always recomputed from the supplied total.
type ApproveReceiptRequest struct {
	VendorName      string           `json:"vendorName" validate:"required"`
	BusinessID      string           `json:"businessID" validate:"omitempty,len=9,numeric"`
	ReceiptNumber   string           `json:"receiptNumber"`
	TransactionDate *time.Time       `json:"transactionDate" validate:"required"`
	Total           *decimal.Decimal `json:"total" validate:"required"`
	CategoryID      *string          `json:"categoryID"`
	Notes           string           `json:"notes"`
}

// ReceiptResponse defines the data returned for a receipt.
// Mirrors domain.Receipt.
type ReceiptResponse struct {
	ReceiptID       string           `json:"receiptID"`
	OwnerID         string           `json:"ownerID"`
	FileRef         string           `json:"fileRef"`
	VendorName      string           `json:"vendorName"`
	BusinessID      string           `json:"businessID"`
	ReceiptNumber   string           `json:"receiptNumber"`
	TransactionDate *time.Time       `json:"transactionDate"`
	Total           *decimal.Decimal `json:"total"`
	PreTax          *decimal.Decimal `json:"preTax"`
	Tax             *decimal.Decimal `json:"tax"`
	CategoryID      *string          `json:"categoryID"`
	Status          string           `json:"status"`
	Confidence      float64          `json:"confidence"`
	IsDuplicate     bool             `json:"isDuplicate"`
	DuplicateOfID   *string          `json:"duplicateOfID"`
	Advisories      []string         `json:"advisories"`
	Notes           string           `json:"notes"`
	CreatedAt       time.Time        `json:"createdAt"`
	ApprovedAt      *time.Time       `json:"approvedAt"`
}

// ToReceiptResponse converts a domain.Receipt to ReceiptResponse DTO
func ToReceiptResponse(r *domain.Receipt) ReceiptResponse {
	return ReceiptResponse{
		ReceiptID:       r.ReceiptID,
		OwnerID:         r.OwnerID,
		FileRef:         r.FileRef,
		VendorName:      r.VendorName,
		BusinessID:      r.BusinessID,
		ReceiptNumber:   r.ReceiptNumber,
		TransactionDate: r.TransactionDate,
		Total:           r.Total,
		PreTax:          r.PreTax,
		Tax:             r.Tax,
		CategoryID:      r.CategoryID,
		Status:          string(r.Status),
		Confidence:      r.Confidence,
		IsDuplicate:     r.IsDuplicate,
		DuplicateOfID:   r.DuplicateOfID,
		Advisories:      r.Advisories,
		Notes:           r.Notes,
		CreatedAt:       r.CreatedAt,
		ApprovedAt:      r.ApprovedAt,
	}
}

// ToListReceiptResponse converts a slice of domain.Receipt to response DTOs
func ToListReceiptResponse(receipts []domain.Receipt) []ReceiptResponse {
	res := make([]ReceiptResponse, len(receipts))
	for i := range receipts {
		res[i] = ToReceiptResponse(&receipts[i])
	}
	return res
}

// FieldEditResponse defines one audit log entry returned to callers.
type FieldEditResponse struct {
	EditID    string    `json:"editID"`
	ReceiptID string    `json:"receiptID"`
	FieldName string    `json:"fieldName"`
	OldValue  string    `json:"oldValue"`
	NewValue  string    `json:"newValue"`
	EditorID  string    `json:"editorID"`
	EditedAt  time.Time `json:"editedAt"`
}

// ToFieldEditResponse converts a domain.FieldEdit to its response DTO
func ToFieldEditResponse(e domain.FieldEdit) FieldEditResponse {
	return FieldEditResponse{
		EditID:    e.EditID,
		ReceiptID: e.ReceiptID,
		FieldName: e.FieldName,
		OldValue:  e.OldValue,
		NewValue:  e.NewValue,
		EditorID:  e.EditorID,
		EditedAt:  e.EditedAt,
	}
}
