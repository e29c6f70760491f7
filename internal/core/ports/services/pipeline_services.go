package services

import "context"

// Recognizer is the external text-detection collaborator. It converts a stored
// receipt image into raw text. The pipeline treats a failed call and a
// successful call with empty text identically, so implementations should not
// paper over empty results.
type Recognizer interface {
	// Recognize returns the raw detected text for the referenced file. The
	// caller bounds ctx with the recognition timeout.
	Recognize(ctx context.Context, fileRef string) (string, error)
}

// PipelineSvcFacade drives a receipt through its processing states.
type PipelineSvcFacade interface {
	// ProcessReceipt runs the full pipeline for one receipt currently in
	// PROCESSING: recognition, extraction, VAT fill-in, categorization and
	// duplicate detection, ending in REVIEW, DUPLICATE or FAILED.
	ProcessReceipt(ctx context.Context, receiptID string) error

	// Run polls for pending receipts and processes them concurrently until
	// ctx is cancelled.
	Run(ctx context.Context) error
}
