package pgsql

import (
	"context"
	"errors"
	"fmt"

	"github.com/heshbonit/receipt-pipeline/internal/apperrors"
	"github.com/heshbonit/receipt-pipeline/internal/core/domain"
	portsrepo "github.com/heshbonit/receipt-pipeline/internal/core/ports/repositories"
	"github.com/heshbonit/receipt-pipeline/internal/models"
	"github.com/heshbonit/receipt-pipeline/internal/utils/mapping"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgxFieldEditRepository struct {
	BaseRepository
}

// newPgxFieldEditRepository creates a new repository for the edit audit log.
func newPgxFieldEditRepository(pool *pgxpool.Pool) portsrepo.FieldEditRepositoryFacade {
	return &PgxFieldEditRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

// Ensure implementation matches interface
var _ portsrepo.FieldEditRepositoryFacade = (*PgxFieldEditRepository)(nil)

const appendFieldEditQuery = `
	INSERT INTO field_edits (edit_id, receipt_id, field_name, old_value, new_value, editor_id, edited_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7);
`

// AppendFieldEdit appends one audit entry. The table has no update path.
func (r *PgxFieldEditRepository) AppendFieldEdit(ctx context.Context, edit domain.FieldEdit) error {
	e := mapping.ToModelFieldEdit(edit)

	_, err := r.Pool.Exec(ctx, appendFieldEditQuery,
		e.EditID, e.ReceiptID, e.FieldName, e.OldValue, e.NewValue, e.EditorID, e.EditedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // Unique violation
			return fmt.Errorf("%w: edit %s", apperrors.ErrDuplicate, e.EditID)
		}
		return fmt.Errorf("failed to append edit %s: %w", e.EditID, err)
	}
	return nil
}

// ListFieldEdits retrieves a receipt's full edit history in append order.
func (r *PgxFieldEditRepository) ListFieldEdits(ctx context.Context, receiptID string) ([]domain.FieldEdit, error) {
	query := `
		SELECT edit_id, receipt_id, field_name, old_value, new_value, editor_id, edited_at
		FROM field_edits
		WHERE receipt_id = $1
		ORDER BY edited_at ASC, edit_id ASC;
	`
	rows, err := r.Pool.Query(ctx, query, receiptID)
	if err != nil {
		return nil, fmt.Errorf("failed to query edits for receipt %s: %w", receiptID, err)
	}
	defer rows.Close()

	modelEdits, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.FieldEdit, error) {
		var e models.FieldEdit
		err := row.Scan(&e.EditID, &e.ReceiptID, &e.FieldName, &e.OldValue, &e.NewValue, &e.EditorID, &e.EditedAt)
		return e, err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return []domain.FieldEdit{}, nil
		}
		return nil, fmt.Errorf("failed to scan edits: %w", err)
	}

	return mapping.ToDomainFieldEditSlice(modelEdits), nil
}
