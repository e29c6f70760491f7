package services

import (
	"context"
	"time"

	"github.com/heshbonit/receipt-pipeline/internal/core/domain"
	"github.com/heshbonit/receipt-pipeline/internal/dto"
)

// ReceiptReaderSvc defines read-only receipt operations.
type ReceiptReaderSvc interface {
	// GetReceipt retrieves a single receipt owned by ownerID.
	GetReceipt(ctx context.Context, ownerID, receiptID string) (*domain.Receipt, error)

	// ListReceipts retrieves an owner's receipts in the inclusive date window.
	ListReceipts(ctx context.Context, ownerID string, from, to time.Time) ([]domain.Receipt, error)

	// GetFieldEdits retrieves the full audit log for a receipt.
	GetFieldEdits(ctx context.Context, ownerID, receiptID string) ([]domain.FieldEdit, error)
}

// ReceiptWriterSvc defines the user-facing mutations of a receipt's lifecycle.
// Illegal-source transitions are rejected with apperrors.ErrConflict and leave
// the receipt untouched.
type ReceiptWriterSvc interface {
	// CreateReceipt registers an uploaded receipt in PROCESSING and hands it
	// to the pipeline.
	CreateReceipt(ctx context.Context, ownerID string, req dto.CreateReceiptRequest) (*domain.Receipt, error)

	// EditReceipt applies user corrections. Legal only in REVIEW or DUPLICATE;
	// every changed field is written to the audit log before being overwritten,
	// and changing any amount recomputes the VAT split.
	EditReceipt(ctx context.Context, ownerID, receiptID string, req dto.EditReceiptRequest) (*domain.Receipt, error)

	// ApproveReceipt finalizes a receipt with caller-supplied values. Legal
	// only from REVIEW.
	ApproveReceipt(ctx context.Context, ownerID, receiptID string, req dto.ApproveReceiptRequest) (*domain.Receipt, error)

	// ResolveDuplicate clears the duplicate flag and moves the receipt from
	// DUPLICATE back to REVIEW for normal confirmation.
	ResolveDuplicate(ctx context.Context, ownerID, receiptID string) (*domain.Receipt, error)

	// RetryReceipt moves a FAILED receipt back to PROCESSING and reruns the
	// pipeline. This is the only retry path; nothing retries automatically.
	RetryReceipt(ctx context.Context, ownerID, receiptID string) (*domain.Receipt, error)
}

// ReceiptSvcFacade combines all receipt service interfaces
type ReceiptSvcFacade interface {
	ReceiptReaderSvc
	ReceiptWriterSvc
}
