package domain

// Category is a canonical expense category. Keyword affinity lives in the
// categorizer's rule table, not here.
type Category struct {
	CategoryID string `json:"categoryID"` // Primary Key (UUID)
	Name       string `json:"name"`
	AuditFields
}
