package repositories

import (
	"context"
	"time"

	"github.com/heshbonit/receipt-pipeline/internal/core/domain"
)

// ReceiptReader defines read operations for receipt data
type ReceiptReader interface {
	// FindReceiptByID retrieves a specific receipt by its unique identifier.
	FindReceiptByID(ctx context.Context, receiptID string) (*domain.Receipt, error)

	// ListReceiptsByOwner retrieves an owner's receipts whose transaction date
	// falls inside the inclusive [from, to] window. Receipts without a
	// transaction date are excluded.
	ListReceiptsByOwner(ctx context.Context, ownerID string, from, to time.Time) ([]domain.Receipt, error)

	// ListPendingReceipts retrieves up to limit receipts in PROCESSING whose
	// pipeline run has not started yet, oldest first.
	ListPendingReceipts(ctx context.Context, limit int) ([]domain.Receipt, error)
}

// ReceiptWriter defines write operations for receipt data
type ReceiptWriter interface {
	// SaveReceipt inserts or updates a receipt record.
	SaveReceipt(ctx context.Context, receipt domain.Receipt) error

	// UpdateReceipt updates an existing receipt record. A receipt that no
	// longer exists yields ErrNotFound; it is never re-created.
	UpdateReceipt(ctx context.Context, receipt domain.Receipt) error

	// ClaimReceipt atomically stamps the processing start time on a
	// PROCESSING receipt whose run has not started yet and returns the
	// claimed receipt. When no claimable row exists, because the receipt is
	// gone, in another status, or already claimed, it yields ErrNotFound, so
	// concurrent callers racing on the same receipt see exactly one winner.
	ClaimReceipt(ctx context.Context, receiptID string, startedAt time.Time) (*domain.Receipt, error)

	// SaveReceiptWithEdits persists a receipt together with the audit entries
	// describing the edit, atomically.
	SaveReceiptWithEdits(ctx context.Context, receipt domain.Receipt, edits []domain.FieldEdit) error
}

// ReceiptRepositoryFacade combines all receipt-related repository interfaces
type ReceiptRepositoryFacade interface {
	ReceiptReader
	ReceiptWriter
}

// ReceiptRepositoryWithTx extends ReceiptRepositoryFacade with transaction capabilities
type ReceiptRepositoryWithTx interface {
	ReceiptRepositoryFacade
	TransactionManager
}

// FieldEditReader defines read operations for the edit audit log
type FieldEditReader interface {
	// ListFieldEdits retrieves the full edit history of a receipt in append order.
	ListFieldEdits(ctx context.Context, receiptID string) ([]domain.FieldEdit, error)
}

// FieldEditWriter defines write operations for the edit audit log
type FieldEditWriter interface {
	// AppendFieldEdit appends one audit entry. The log is append-only; entries
	// are never updated or removed.
	AppendFieldEdit(ctx context.Context, edit domain.FieldEdit) error
}

// FieldEditRepositoryFacade combines the audit log interfaces
type FieldEditRepositoryFacade interface {
	FieldEditReader
	FieldEditWriter
}

// CategoryReader defines read operations for category data
type CategoryReader interface {
	// FindCategoryByID retrieves a category by its unique identifier.
	FindCategoryByID(ctx context.Context, categoryID string) (*domain.Category, error)

	// FindCategoryByName retrieves a category by its canonical name.
	FindCategoryByName(ctx context.Context, name string) (*domain.Category, error)

	// ListCategories retrieves all categories.
	ListCategories(ctx context.Context) ([]domain.Category, error)
}

// CategoryRepositoryFacade combines all category-related repository interfaces
type CategoryRepositoryFacade interface {
	CategoryReader
}
