package domain

import "time"

// FieldEdit is a single entry in the append-only audit log of user edits to a
// receipt. Entries are never updated or deleted.
type FieldEdit struct {
	EditID    string    `json:"editID"`    // Primary Key (UUID)
	ReceiptID string    `json:"receiptID"` // FK -> Receipt.receiptID
	FieldName string    `json:"fieldName"`
	OldValue  string    `json:"oldValue"`
	NewValue  string    `json:"newValue"`
	EditorID  string    `json:"editorID"` // UserID Reference
	EditedAt  time.Time `json:"editedAt"`
}
