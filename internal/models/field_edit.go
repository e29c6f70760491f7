package models

import "time"

// FieldEdit represents one append-only audit log row for a receipt edit.
type FieldEdit struct {
	EditID    string    `db:"edit_id"`
	ReceiptID string    `db:"receipt_id"`
	FieldName string    `db:"field_name"`
	OldValue  string    `db:"old_value"`
	NewValue  string    `db:"new_value"`
	EditorID  string    `db:"editor_id"`
	EditedAt  time.Time `db:"edited_at"`
}
