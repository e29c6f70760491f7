package mapping

import (
	"github.com/heshbonit/receipt-pipeline/internal/core/domain"
	"github.com/heshbonit/receipt-pipeline/internal/models"
)

// ToModelFieldEdit converts a domain FieldEdit to a model FieldEdit
func ToModelFieldEdit(d domain.FieldEdit) models.FieldEdit {
	return models.FieldEdit{
		EditID:    d.EditID,
		ReceiptID: d.ReceiptID,
		FieldName: d.FieldName,
		OldValue:  d.OldValue,
		NewValue:  d.NewValue,
		EditorID:  d.EditorID,
		EditedAt:  d.EditedAt,
	}
}

// ToDomainFieldEdit converts a model FieldEdit to a domain FieldEdit
func ToDomainFieldEdit(m models.FieldEdit) domain.FieldEdit {
	return domain.FieldEdit{
		EditID:    m.EditID,
		ReceiptID: m.ReceiptID,
		FieldName: m.FieldName,
		OldValue:  m.OldValue,
		NewValue:  m.NewValue,
		EditorID:  m.EditorID,
		EditedAt:  m.EditedAt,
	}
}

// ToDomainFieldEditSlice converts a slice of model FieldEdits to a slice of domain FieldEdits
func ToDomainFieldEditSlice(ms []models.FieldEdit) []domain.FieldEdit {
	ds := make([]domain.FieldEdit, len(ms))
	for i, m := range ms {
		ds[i] = ToDomainFieldEdit(m)
	}
	return ds
}
