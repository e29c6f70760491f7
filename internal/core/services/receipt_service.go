package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/heshbonit/receipt-pipeline/internal/apperrors"
	"github.com/heshbonit/receipt-pipeline/internal/core/domain"
	portsrepo "github.com/heshbonit/receipt-pipeline/internal/core/ports/repositories"
	portssvc "github.com/heshbonit/receipt-pipeline/internal/core/ports/services"
	"github.com/heshbonit/receipt-pipeline/internal/core/validation"
	"github.com/heshbonit/receipt-pipeline/internal/dto"
	"github.com/shopspring/decimal"
)

// receiptService implements the ReceiptSvcFacade interface
type receiptService struct {
	BaseService
	receiptRepo   portsrepo.ReceiptRepositoryFacade
	fieldEditRepo portsrepo.FieldEditRepositoryFacade
	validate      *validator.Validate
	vatRate       decimal.Decimal
	now           func() time.Time
	newID         func() string
}

// ReceiptOption is a functional option for configuring the receipt service
type ReceiptOption func(*receiptService)

// WithReceiptVATRate overrides the VAT rate used when edits trigger recomputation
func WithReceiptVATRate(rate decimal.Decimal) ReceiptOption {
	return func(s *receiptService) {
		s.vatRate = rate
	}
}

// WithReceiptClock injects a time source for tests
func WithReceiptClock(now func() time.Time) ReceiptOption {
	return func(s *receiptService) {
		s.now = now
	}
}

// WithIDGenerator injects an id source for tests
func WithIDGenerator(newID func() string) ReceiptOption {
	return func(s *receiptService) {
		s.newID = newID
	}
}

// NewReceiptService creates a new receipt service with the provided options
func NewReceiptService(
	receiptRepo portsrepo.ReceiptRepositoryFacade,
	fieldEditRepo portsrepo.FieldEditRepositoryFacade,
	options ...ReceiptOption,
) portssvc.ReceiptSvcFacade {
	svc := &receiptService{
		receiptRepo:   receiptRepo,
		fieldEditRepo: fieldEditRepo,
		validate:      validator.New(),
		vatRate:       validation.DefaultVATRate,
		now:           time.Now,
		newID:         uuid.NewString,
	}
	for _, option := range options {
		option(svc)
	}
	return svc
}

// Ensure receiptService implements the ReceiptSvcFacade interface
var _ portssvc.ReceiptSvcFacade = (*receiptService)(nil)

func (s *receiptService) CreateReceipt(ctx context.Context, ownerID string, req dto.CreateReceiptRequest) (*domain.Receipt, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("invalid create request: %w: %w", apperrors.ErrValidation, err)
	}

	now := s.now()
	receipt := domain.Receipt{
		ReceiptID: s.newID(),
		OwnerID:   ownerID,
		FileRef:   req.FileRef,
		Status:    domain.StatusProcessing,
		Notes:     req.Notes,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     ownerID,
			LastUpdatedAt: now,
			LastUpdatedBy: ownerID,
		},
	}
	if err := s.receiptRepo.SaveReceipt(ctx, receipt); err != nil {
		s.LogError(ctx, err, "Failed to save new receipt", slog.String("owner_id", ownerID))
		return nil, fmt.Errorf("creating receipt: %w", err)
	}

	s.LogInfo(ctx, "Receipt registered for processing",
		slog.String("receipt_id", receipt.ReceiptID),
		slog.String("owner_id", ownerID))
	return &receipt, nil
}

func (s *receiptService) GetReceipt(ctx context.Context, ownerID, receiptID string) (*domain.Receipt, error) {
	return s.loadOwned(ctx, ownerID, receiptID)
}

func (s *receiptService) ListReceipts(ctx context.Context, ownerID string, from, to time.Time) ([]domain.Receipt, error) {
	receipts, err := s.receiptRepo.ListReceiptsByOwner(ctx, ownerID, from, to)
	if err != nil {
		return nil, fmt.Errorf("listing receipts for owner %s: %w", ownerID, err)
	}
	return receipts, nil
}

func (s *receiptService) GetFieldEdits(ctx context.Context, ownerID, receiptID string) ([]domain.FieldEdit, error) {
	if _, err := s.loadOwned(ctx, ownerID, receiptID); err != nil {
		return nil, err
	}
	edits, err := s.fieldEditRepo.ListFieldEdits(ctx, receiptID)
	if err != nil {
		return nil, fmt.Errorf("listing edits for receipt %s: %w", receiptID, err)
	}
	return edits, nil
}

// EditReceipt applies user corrections inside REVIEW or DUPLICATE. Every
// changed field is appended to the audit log atomically with the save, and any
// amount change triggers VAT recomputation.
func (s *receiptService) EditReceipt(ctx context.Context, ownerID, receiptID string, req dto.EditReceiptRequest) (*domain.Receipt, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("invalid edit request: %w: %w", apperrors.ErrValidation, err)
	}

	receipt, err := s.loadOwned(ctx, ownerID, receiptID)
	if err != nil {
		return nil, err
	}
	if !receipt.Editable() {
		return nil, fmt.Errorf("receipt %s is %s and cannot be edited: %w",
			receiptID, receipt.Status, apperrors.ErrConflict)
	}

	now := s.now()
	edits := s.applyEdit(receipt, req, ownerID, now)
	if len(edits) == 0 {
		return receipt, nil
	}

	if req.TouchesAmounts() {
		s.recomputeVAT(receipt, req)
	}
	receipt.Advisories = validation.Check(*receipt, now)
	receipt.LastUpdatedAt = now
	receipt.LastUpdatedBy = ownerID

	if err := s.receiptRepo.SaveReceiptWithEdits(ctx, *receipt, edits); err != nil {
		s.LogError(ctx, err, "Failed to save edited receipt", slog.String("receipt_id", receiptID))
		return nil, fmt.Errorf("saving edits for receipt %s: %w", receiptID, err)
	}
	return receipt, nil
}

// applyEdit overwrites the provided fields, recording one audit entry per
// actual change before the overwrite.
func (s *receiptService) applyEdit(receipt *domain.Receipt, req dto.EditReceiptRequest, editorID string, now time.Time) []domain.FieldEdit {
	var edits []domain.FieldEdit
	record := func(field, oldValue, newValue string) {
		if oldValue == newValue {
			return
		}
		edits = append(edits, domain.FieldEdit{
			EditID:    s.newID(),
			ReceiptID: receipt.ReceiptID,
			FieldName: field,
			OldValue:  oldValue,
			NewValue:  newValue,
			EditorID:  editorID,
			EditedAt:  now,
		})
	}

	if req.VendorName != nil {
		record(domain.FieldVendorName, receipt.VendorName, *req.VendorName)
		receipt.VendorName = *req.VendorName
	}
	if req.BusinessID != nil {
		record(domain.FieldBusinessID, receipt.BusinessID, *req.BusinessID)
		receipt.BusinessID = *req.BusinessID
	}
	if req.ReceiptNumber != nil {
		record(domain.FieldReceiptNumber, receipt.ReceiptNumber, *req.ReceiptNumber)
		receipt.ReceiptNumber = *req.ReceiptNumber
	}
	if req.TransactionDate != nil {
		record(domain.FieldTransactionDate, dateString(receipt.TransactionDate), dateString(req.TransactionDate))
		receipt.TransactionDate = req.TransactionDate
	}
	if req.Total != nil {
		record(domain.FieldTotal, amountString(receipt.Total), amountString(req.Total))
		receipt.Total = req.Total
	}
	if req.PreTax != nil {
		record(domain.FieldPreTax, amountString(receipt.PreTax), amountString(req.PreTax))
		receipt.PreTax = req.PreTax
	}
	if req.Tax != nil {
		record(domain.FieldTax, amountString(receipt.Tax), amountString(req.Tax))
		receipt.Tax = req.Tax
	}
	if req.CategoryID != nil {
		oldCat := ""
		if receipt.CategoryID != nil {
			oldCat = *receipt.CategoryID
		}
		record("category_id", oldCat, *req.CategoryID)
		receipt.CategoryID = req.CategoryID
	}
	if req.Notes != nil {
		record("notes", receipt.Notes, *req.Notes)
		receipt.Notes = *req.Notes
	}
	return edits
}

// recomputeVAT keeps the VAT split consistent after an amount edit. An
// explicitly supplied tax or pre-tax wins over the derived value; a bare
// total change rederives both sides.
func (s *receiptService) recomputeVAT(receipt *domain.Receipt, req dto.EditReceiptRequest) {
	if receipt.Total == nil {
		return
	}
	switch {
	case req.Tax != nil:
		preTax := receipt.Total.Sub(*req.Tax).Round(2)
		receipt.PreTax = &preTax
	case req.PreTax != nil:
		tax := receipt.Total.Sub(*req.PreTax).Round(2)
		receipt.Tax = &tax
	default:
		preTax, tax := validation.ComputeVAT(*receipt.Total, s.vatRate)
		receipt.PreTax = &preTax
		receipt.Tax = &tax
	}
}

// ApproveReceipt finalizes the receipt with caller-confirmed values. Legal
// only from REVIEW; the VAT split is always recomputed from the caller total.
func (s *receiptService) ApproveReceipt(ctx context.Context, ownerID, receiptID string, req dto.ApproveReceiptRequest) (*domain.Receipt, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("invalid approve request: %w: %w", apperrors.ErrValidation, err)
	}

	receipt, err := s.loadOwned(ctx, ownerID, receiptID)
	if err != nil {
		return nil, err
	}
	if receipt.Status != domain.StatusReview {
		return nil, fmt.Errorf("receipt %s is %s, approval requires %s: %w",
			receiptID, receipt.Status, domain.StatusReview, apperrors.ErrConflict)
	}

	now := s.now()
	editReq := dto.EditReceiptRequest{
		VendorName:      &req.VendorName,
		TransactionDate: req.TransactionDate,
		Total:           req.Total,
		CategoryID:      req.CategoryID,
	}
	// optional fields left blank keep the extracted values
	if req.BusinessID != "" {
		editReq.BusinessID = &req.BusinessID
	}
	if req.ReceiptNumber != "" {
		editReq.ReceiptNumber = &req.ReceiptNumber
	}
	if req.Notes != "" {
		editReq.Notes = &req.Notes
	}
	edits := s.applyEdit(receipt, editReq, ownerID, now)

	preTax, tax := validation.ComputeVAT(*receipt.Total, s.vatRate)
	receipt.PreTax = &preTax
	receipt.Tax = &tax
	receipt.Advisories = validation.Check(*receipt, now)
	receipt.Status = domain.StatusApproved
	receipt.ApprovedAt = &now
	receipt.LastUpdatedAt = now
	receipt.LastUpdatedBy = ownerID

	if err := s.receiptRepo.SaveReceiptWithEdits(ctx, *receipt, edits); err != nil {
		s.LogError(ctx, err, "Failed to save approved receipt", slog.String("receipt_id", receiptID))
		return nil, fmt.Errorf("approving receipt %s: %w", receiptID, err)
	}

	s.LogInfo(ctx, "Receipt approved",
		slog.String("receipt_id", receiptID),
		slog.String("owner_id", ownerID))
	return receipt, nil
}

// ResolveDuplicate moves a DUPLICATE receipt back to REVIEW once the user has
// decided it is a distinct transaction.
func (s *receiptService) ResolveDuplicate(ctx context.Context, ownerID, receiptID string) (*domain.Receipt, error) {
	receipt, err := s.loadOwned(ctx, ownerID, receiptID)
	if err != nil {
		return nil, err
	}
	if receipt.Status != domain.StatusDuplicate {
		return nil, fmt.Errorf("receipt %s is %s, not %s: %w",
			receiptID, receipt.Status, domain.StatusDuplicate, apperrors.ErrConflict)
	}

	now := s.now()
	receipt.Status = domain.StatusReview
	receipt.IsDuplicate = false
	receipt.DuplicateOfID = nil
	receipt.LastUpdatedAt = now
	receipt.LastUpdatedBy = ownerID

	if err := s.receiptRepo.SaveReceipt(ctx, *receipt); err != nil {
		return nil, fmt.Errorf("resolving duplicate receipt %s: %w", receiptID, err)
	}
	return receipt, nil
}

// RetryReceipt moves a FAILED receipt back into PROCESSING. The cleared
// processing timestamps make the pipeline worker pick it up again.
func (s *receiptService) RetryReceipt(ctx context.Context, ownerID, receiptID string) (*domain.Receipt, error) {
	receipt, err := s.loadOwned(ctx, ownerID, receiptID)
	if err != nil {
		return nil, err
	}
	if receipt.Status != domain.StatusFailed {
		return nil, fmt.Errorf("receipt %s is %s, retry requires %s: %w",
			receiptID, receipt.Status, domain.StatusFailed, apperrors.ErrConflict)
	}

	now := s.now()
	receipt.Status = domain.StatusProcessing
	receipt.ProcessingStartedAt = nil
	receipt.ProcessingCompletedAt = nil
	receipt.LastUpdatedAt = now
	receipt.LastUpdatedBy = ownerID

	if err := s.receiptRepo.SaveReceipt(ctx, *receipt); err != nil {
		return nil, fmt.Errorf("retrying receipt %s: %w", receiptID, err)
	}

	s.LogInfo(ctx, "Receipt queued for retry", slog.String("receipt_id", receiptID))
	return receipt, nil
}

// loadOwned fetches a receipt and scopes it to the owner. A foreign receipt
// is indistinguishable from a missing one.
func (s *receiptService) loadOwned(ctx context.Context, ownerID, receiptID string) (*domain.Receipt, error) {
	receipt, err := s.receiptRepo.FindReceiptByID(ctx, receiptID)
	if err != nil {
		return nil, fmt.Errorf("loading receipt %s: %w", receiptID, err)
	}
	if receipt.OwnerID != ownerID {
		return nil, fmt.Errorf("receipt %s not found for owner %s: %w",
			receiptID, ownerID, apperrors.ErrNotFound)
	}
	return receipt, nil
}

func dateString(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

func amountString(d *decimal.Decimal) string {
	if d == nil {
		return ""
	}
	return d.StringFixed(2)
}
