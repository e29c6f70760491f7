package pgsql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/heshbonit/receipt-pipeline/internal/apperrors"
	"github.com/heshbonit/receipt-pipeline/internal/core/domain"
	portsrepo "github.com/heshbonit/receipt-pipeline/internal/core/ports/repositories"
	"github.com/heshbonit/receipt-pipeline/internal/models"
	"github.com/heshbonit/receipt-pipeline/internal/utils/mapping"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgxReceiptRepository struct {
	BaseRepository
}

// newPgxReceiptRepository creates a new repository for receipt data.
func newPgxReceiptRepository(pool *pgxpool.Pool) portsrepo.ReceiptRepositoryWithTx {
	return &PgxReceiptRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

// Ensure implementation matches interface
var _ portsrepo.ReceiptRepositoryWithTx = (*PgxReceiptRepository)(nil)

const receiptColumns = `receipt_id, owner_id, file_ref, vendor_name, business_id, receipt_number,
	transaction_date, total, pre_tax, tax, category_id, status, confidence,
	is_duplicate, duplicate_of_id, advisories, notes,
	processing_started_at, processing_completed_at, approved_at,
	created_at, created_by, last_updated_at, last_updated_by`

const saveReceiptQuery = `
	INSERT INTO receipts (` + receiptColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24)
	ON CONFLICT (receipt_id) DO UPDATE SET
		vendor_name = EXCLUDED.vendor_name,
		business_id = EXCLUDED.business_id,
		receipt_number = EXCLUDED.receipt_number,
		transaction_date = EXCLUDED.transaction_date,
		total = EXCLUDED.total,
		pre_tax = EXCLUDED.pre_tax,
		tax = EXCLUDED.tax,
		category_id = EXCLUDED.category_id,
		status = EXCLUDED.status,
		confidence = EXCLUDED.confidence,
		is_duplicate = EXCLUDED.is_duplicate,
		duplicate_of_id = EXCLUDED.duplicate_of_id,
		advisories = EXCLUDED.advisories,
		notes = EXCLUDED.notes,
		processing_started_at = EXCLUDED.processing_started_at,
		processing_completed_at = EXCLUDED.processing_completed_at,
		approved_at = EXCLUDED.approved_at,
		last_updated_at = EXCLUDED.last_updated_at,
		last_updated_by = EXCLUDED.last_updated_by;
`

const updateReceiptQuery = `
	UPDATE receipts SET
		vendor_name = $2,
		business_id = $3,
		receipt_number = $4,
		transaction_date = $5,
		total = $6,
		pre_tax = $7,
		tax = $8,
		category_id = $9,
		status = $10,
		confidence = $11,
		is_duplicate = $12,
		duplicate_of_id = $13,
		advisories = $14,
		notes = $15,
		processing_started_at = $16,
		processing_completed_at = $17,
		approved_at = $18,
		last_updated_at = $19,
		last_updated_by = $20
	WHERE receipt_id = $1;
`

const claimReceiptQuery = `
	UPDATE receipts
	SET processing_started_at = $2, last_updated_at = $2
	WHERE receipt_id = $1
	  AND status = $3
	  AND processing_started_at IS NULL
	RETURNING ` + receiptColumns + `;`

func receiptArgs(m models.Receipt) []interface{} {
	return []interface{}{
		m.ReceiptID,
		m.OwnerID,
		m.FileRef,
		m.VendorName,
		m.BusinessID,
		m.ReceiptNumber,
		m.TransactionDate,
		m.Total,
		m.PreTax,
		m.Tax,
		m.CategoryID,
		m.Status,
		m.Confidence,
		m.IsDuplicate,
		m.DuplicateOfID,
		m.Advisories,
		m.Notes,
		m.ProcessingStartedAt,
		m.ProcessingCompletedAt,
		m.ApprovedAt,
		m.CreatedAt,
		m.CreatedBy,
		m.LastUpdatedAt,
		m.LastUpdatedBy,
	}
}

func updateReceiptArgs(m models.Receipt) []interface{} {
	return []interface{}{
		m.ReceiptID,
		m.VendorName,
		m.BusinessID,
		m.ReceiptNumber,
		m.TransactionDate,
		m.Total,
		m.PreTax,
		m.Tax,
		m.CategoryID,
		m.Status,
		m.Confidence,
		m.IsDuplicate,
		m.DuplicateOfID,
		m.Advisories,
		m.Notes,
		m.ProcessingStartedAt,
		m.ProcessingCompletedAt,
		m.ApprovedAt,
		m.LastUpdatedAt,
		m.LastUpdatedBy,
	}
}

func scanReceipt(row pgx.Row) (models.Receipt, error) {
	var m models.Receipt
	err := row.Scan(
		&m.ReceiptID,
		&m.OwnerID,
		&m.FileRef,
		&m.VendorName,
		&m.BusinessID,
		&m.ReceiptNumber,
		&m.TransactionDate,
		&m.Total,
		&m.PreTax,
		&m.Tax,
		&m.CategoryID,
		&m.Status,
		&m.Confidence,
		&m.IsDuplicate,
		&m.DuplicateOfID,
		&m.Advisories,
		&m.Notes,
		&m.ProcessingStartedAt,
		&m.ProcessingCompletedAt,
		&m.ApprovedAt,
		&m.CreatedAt,
		&m.CreatedBy,
		&m.LastUpdatedAt,
		&m.LastUpdatedBy,
	)
	return m, err
}

// SaveReceipt inserts or updates a receipt.
func (r *PgxReceiptRepository) SaveReceipt(ctx context.Context, receipt domain.Receipt) error {
	m := mapping.ToModelReceipt(receipt)

	_, err := r.Pool.Exec(ctx, saveReceiptQuery, receiptArgs(m)...)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // Unique violation
			return fmt.Errorf("%w: receipt %s", apperrors.ErrDuplicate, m.ReceiptID)
		}
		return fmt.Errorf("failed to save receipt %s: %w", m.ReceiptID, err)
	}
	return nil
}

// UpdateReceipt updates an existing receipt. A row that vanished maps to
// ErrNotFound instead of being re-inserted.
func (r *PgxReceiptRepository) UpdateReceipt(ctx context.Context, receipt domain.Receipt) error {
	m := mapping.ToModelReceipt(receipt)

	tag, err := r.Pool.Exec(ctx, updateReceiptQuery, updateReceiptArgs(m)...)
	if err != nil {
		return fmt.Errorf("failed to update receipt %s: %w", m.ReceiptID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("receipt %s: %w", m.ReceiptID, apperrors.ErrNotFound)
	}
	return nil
}

// ClaimReceipt stamps the processing start time if and only if the receipt is
// still unclaimed PROCESSING. The conditional UPDATE makes the claim atomic;
// of any number of concurrent callers exactly one gets the row back.
func (r *PgxReceiptRepository) ClaimReceipt(ctx context.Context, receiptID string, startedAt time.Time) (*domain.Receipt, error) {
	row := r.Pool.QueryRow(ctx, claimReceiptQuery, receiptID, startedAt, string(domain.StatusProcessing))
	m, err := scanReceipt(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to claim receipt %s: %w", receiptID, err)
	}

	receipt := mapping.ToDomainReceipt(m)
	return &receipt, nil
}

// SaveReceiptWithEdits persists the receipt and its audit entries in one
// transaction so a partial edit never becomes visible.
func (r *PgxReceiptRepository) SaveReceiptWithEdits(ctx context.Context, receipt domain.Receipt, edits []domain.FieldEdit) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx) //nolint:errcheck

	m := mapping.ToModelReceipt(receipt)
	if _, err := tx.Exec(ctx, saveReceiptQuery, receiptArgs(m)...); err != nil {
		return fmt.Errorf("failed to save receipt %s: %w", m.ReceiptID, err)
	}
	for _, edit := range edits {
		e := mapping.ToModelFieldEdit(edit)
		if _, err := tx.Exec(ctx, appendFieldEditQuery,
			e.EditID, e.ReceiptID, e.FieldName, e.OldValue, e.NewValue, e.EditorID, e.EditedAt,
		); err != nil {
			return fmt.Errorf("failed to append edit %s for receipt %s: %w", e.EditID, e.ReceiptID, err)
		}
	}
	return r.Commit(ctx, tx)
}

// FindReceiptByID retrieves a receipt by its ID.
func (r *PgxReceiptRepository) FindReceiptByID(ctx context.Context, receiptID string) (*domain.Receipt, error) {
	query := `SELECT ` + receiptColumns + ` FROM receipts WHERE receipt_id = $1;`

	m, err := scanReceipt(r.Pool.QueryRow(ctx, query, receiptID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find receipt %s: %w", receiptID, err)
	}

	receipt := mapping.ToDomainReceipt(m)
	return &receipt, nil
}

// ListReceiptsByOwner retrieves an owner's receipts whose transaction date
// falls inside the inclusive window. Undated receipts are excluded.
func (r *PgxReceiptRepository) ListReceiptsByOwner(ctx context.Context, ownerID string, from, to time.Time) ([]domain.Receipt, error) {
	query := `
		SELECT ` + receiptColumns + `
		FROM receipts
		WHERE owner_id = $1
		  AND transaction_date IS NOT NULL
		  AND transaction_date >= $2
		  AND transaction_date <= $3
		ORDER BY created_at DESC;
	`
	rows, err := r.Pool.Query(ctx, query, ownerID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query receipts for owner %s: %w", ownerID, err)
	}
	defer rows.Close()

	return collectReceipts(rows)
}

// ListPendingReceipts retrieves receipts waiting for a pipeline run, oldest
// first.
func (r *PgxReceiptRepository) ListPendingReceipts(ctx context.Context, limit int) ([]domain.Receipt, error) {
	query := `
		SELECT ` + receiptColumns + `
		FROM receipts
		WHERE status = $1 AND processing_started_at IS NULL
		ORDER BY created_at ASC
		LIMIT $2;
	`
	rows, err := r.Pool.Query(ctx, query, string(domain.StatusProcessing), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending receipts: %w", err)
	}
	defer rows.Close()

	return collectReceipts(rows)
}

func collectReceipts(rows pgx.Rows) ([]domain.Receipt, error) {
	modelReceipts, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Receipt, error) {
		return scanReceipt(row)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return []domain.Receipt{}, nil
		}
		return nil, fmt.Errorf("failed to scan receipts: %w", err)
	}
	return mapping.ToDomainReceiptSlice(modelReceipts), nil
}
