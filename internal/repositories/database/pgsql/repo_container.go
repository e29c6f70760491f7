package pgsql

import (
	portsrepo "github.com/heshbonit/receipt-pipeline/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5/pgxpool"
)

func NewRepositoryProvider(dbPool *pgxpool.Pool) portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		ReceiptRepo:   newPgxReceiptRepository(dbPool),
		FieldEditRepo: newPgxFieldEditRepository(dbPool),
		CategoryRepo:  newPgxCategoryRepository(dbPool),
	}
}
