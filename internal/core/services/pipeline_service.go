package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/heshbonit/receipt-pipeline/internal/apperrors"
	"github.com/heshbonit/receipt-pipeline/internal/core/categorize"
	"github.com/heshbonit/receipt-pipeline/internal/core/domain"
	"github.com/heshbonit/receipt-pipeline/internal/core/duplicate"
	"github.com/heshbonit/receipt-pipeline/internal/core/extraction"
	portsrepo "github.com/heshbonit/receipt-pipeline/internal/core/ports/repositories"
	portssvc "github.com/heshbonit/receipt-pipeline/internal/core/ports/services"
	"github.com/heshbonit/receipt-pipeline/internal/core/validation"
	"github.com/heshbonit/receipt-pipeline/internal/platform/logging"
	"github.com/shopspring/decimal"
)

// pipelineService implements the PipelineSvcFacade interface
type pipelineService struct {
	BaseService
	receiptRepo  portsrepo.ReceiptRepositoryFacade
	categoryRepo portsrepo.CategoryRepositoryFacade
	recognizer   portssvc.Recognizer
	extractor    *extraction.Extractor
	categorizer  *categorize.Categorizer
	detector     *duplicate.Detector

	vatRate            decimal.Decimal
	recognitionTimeout time.Duration
	pollInterval       time.Duration
	workers            int
	now                func() time.Time
}

// PipelineOption is a functional option for configuring the pipeline service
type PipelineOption func(*pipelineService)

// WithExtractor overrides the default field extractor
func WithExtractor(e *extraction.Extractor) PipelineOption {
	return func(s *pipelineService) {
		s.extractor = e
	}
}

// WithCategorizer overrides the default categorizer
func WithCategorizer(c *categorize.Categorizer) PipelineOption {
	return func(s *pipelineService) {
		s.categorizer = c
	}
}

// WithVATRate overrides the default VAT rate used for fill-in computation
func WithVATRate(rate decimal.Decimal) PipelineOption {
	return func(s *pipelineService) {
		s.vatRate = rate
	}
}

// WithRecognitionTimeout bounds the external recognition call
func WithRecognitionTimeout(d time.Duration) PipelineOption {
	return func(s *pipelineService) {
		s.recognitionTimeout = d
	}
}

// WithPollInterval sets how often Run looks for pending receipts
func WithPollInterval(d time.Duration) PipelineOption {
	return func(s *pipelineService) {
		s.pollInterval = d
	}
}

// WithWorkers caps how many receipts process concurrently
func WithWorkers(n int) PipelineOption {
	return func(s *pipelineService) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithClock injects a time source for tests
func WithClock(now func() time.Time) PipelineOption {
	return func(s *pipelineService) {
		s.now = now
	}
}

// NewPipelineService creates the pipeline orchestrator with the provided options
func NewPipelineService(
	receiptRepo portsrepo.ReceiptRepositoryFacade,
	categoryRepo portsrepo.CategoryRepositoryFacade,
	recognizer portssvc.Recognizer,
	options ...PipelineOption,
) portssvc.PipelineSvcFacade {
	svc := &pipelineService{
		receiptRepo:        receiptRepo,
		categoryRepo:       categoryRepo,
		recognizer:         recognizer,
		extractor:          extraction.NewExtractor(extraction.DefaultConfig()),
		categorizer:        categorize.NewDefault(),
		detector:           duplicate.NewDetector(),
		vatRate:            validation.DefaultVATRate,
		recognitionTimeout: 30 * time.Second,
		pollInterval:       5 * time.Second,
		workers:            4,
		now:                time.Now,
	}
	for _, option := range options {
		option(svc)
	}
	return svc
}

// Ensure pipelineService implements the PipelineSvcFacade interface
var _ portssvc.PipelineSvcFacade = (*pipelineService)(nil)

// ProcessReceipt runs one full pipeline pass over a PROCESSING receipt.
// Recognition and extraction failures are absorbed into the FAILED status;
// only unexpected persistence errors surface to the caller.
func (s *pipelineService) ProcessReceipt(ctx context.Context, receiptID string) error {
	receipt, err := s.receiptRepo.ClaimReceipt(ctx, receiptID, s.now())
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return s.claimMiss(ctx, receiptID)
		}
		return fmt.Errorf("claiming receipt %s: %w", receiptID, err)
	}

	rctx, cancel := context.WithTimeout(ctx, s.recognitionTimeout)
	rawText, err := s.recognizer.Recognize(rctx, receipt.FileRef)
	cancel()
	if err != nil || strings.TrimSpace(rawText) == "" {
		if err == nil {
			err = apperrors.ErrRecognition
		}
		s.LogInfo(ctx, "Recognition failed, marking receipt FAILED",
			slog.String("receipt_id", receiptID),
			slog.String("reason", err.Error()))
		return s.complete(ctx, receipt, domain.StatusFailed)
	}

	result := s.extractor.Extract(rawText)
	if !result.Has(domain.FieldVendorName) && !result.Has(domain.FieldTotal) &&
		!result.Has(domain.FieldTransactionDate) && !result.Has(domain.FieldBusinessID) {
		// recognizer produced text but nothing usable; no field guessing
		s.LogInfo(ctx, "Extraction produced no usable fields, marking receipt FAILED",
			slog.String("receipt_id", receiptID))
		return s.complete(ctx, receipt, domain.StatusFailed)
	}

	s.populateFields(receipt, result)
	s.fillVAT(receipt)
	receipt.Advisories = validation.Check(*receipt, s.now())
	s.assignCategory(ctx, receipt)

	matchID := s.findDuplicate(ctx, receipt)
	if matchID != "" {
		receipt.IsDuplicate = true
		receipt.DuplicateOfID = &matchID
		s.LogInfo(ctx, "Duplicate detected",
			slog.String("receipt_id", receiptID),
			slog.String("duplicate_of", matchID))
		return s.complete(ctx, receipt, domain.StatusDuplicate)
	}
	return s.complete(ctx, receipt, domain.StatusReview)
}

// claimMiss explains why an atomic claim matched no row. A deleted receipt is
// a no-op; anything still present lost the claim and is a conflict.
func (s *pipelineService) claimMiss(ctx context.Context, receiptID string) error {
	receipt, err := s.receiptRepo.FindReceiptByID(ctx, receiptID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.LogWarn(ctx, "Receipt vanished before processing", slog.String("receipt_id", receiptID))
			return nil
		}
		return fmt.Errorf("loading receipt %s: %w", receiptID, err)
	}
	if receipt.Status != domain.StatusProcessing {
		return fmt.Errorf("receipt %s is %s, not %s: %w",
			receiptID, receipt.Status, domain.StatusProcessing, apperrors.ErrConflict)
	}
	return fmt.Errorf("receipt %s already has a run in flight: %w", receiptID, apperrors.ErrConflict)
}

// populateFields copies the extraction result onto the receipt and folds the
// per-field confidences into the overall score.
func (s *pipelineService) populateFields(receipt *domain.Receipt, result domain.ExtractionResult) {
	receipt.VendorName = result.Get(domain.FieldVendorName).Value
	receipt.BusinessID = result.Get(domain.FieldBusinessID).Value
	receipt.ReceiptNumber = result.Get(domain.FieldReceiptNumber).Value
	receipt.Confidence = result.MeanConfidence()

	if v := result.Get(domain.FieldTransactionDate).Value; v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			receipt.TransactionDate = &t
		}
	}
	receipt.Total = parseAmount(result.Get(domain.FieldTotal).Value)
	receipt.Tax = parseAmount(result.Get(domain.FieldTax).Value)
	receipt.PreTax = parseAmount(result.Get(domain.FieldPreTax).Value)
}

func parseAmount(v string) *decimal.Decimal {
	if v == "" {
		return nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return nil
	}
	return &d
}

// fillVAT completes the tax split. A half-printed split derives its missing
// side from the total; a bare total is divided by the VAT rate.
func (s *pipelineService) fillVAT(receipt *domain.Receipt) {
	if receipt.Total == nil {
		return
	}
	switch {
	case receipt.Tax != nil && receipt.PreTax != nil:
		return
	case receipt.Tax != nil:
		preTax := receipt.Total.Sub(*receipt.Tax).Round(2)
		receipt.PreTax = &preTax
	case receipt.PreTax != nil:
		tax := receipt.Total.Sub(*receipt.PreTax).Round(2)
		receipt.Tax = &tax
	default:
		preTax, tax := validation.ComputeVAT(*receipt.Total, s.vatRate)
		receipt.PreTax = &preTax
		receipt.Tax = &tax
	}
}

// assignCategory maps the vendor name onto a stored category id. An unmatched
// vendor is a valid outcome, not an error.
func (s *pipelineService) assignCategory(ctx context.Context, receipt *domain.Receipt) {
	receipt.CategoryID = nil
	name := s.categorizer.Categorize(receipt.VendorName)
	if name == "" {
		return
	}
	category, err := s.categoryRepo.FindCategoryByName(ctx, name)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Category lookup failed", slog.String("category", name))
		}
		return
	}
	receipt.CategoryID = &category.CategoryID
}

// findDuplicate performs one short-lived read of the owner's nearby receipts.
func (s *pipelineService) findDuplicate(ctx context.Context, receipt *domain.Receipt) string {
	if receipt.TransactionDate == nil || receipt.Total == nil {
		return ""
	}
	from := receipt.TransactionDate.AddDate(0, 0, -1)
	to := receipt.TransactionDate.AddDate(0, 0, 1)
	existing, err := s.receiptRepo.ListReceiptsByOwner(ctx, receipt.OwnerID, from, to)
	if err != nil {
		s.LogError(ctx, err, "Listing receipts for duplicate check failed",
			slog.String("owner_id", receipt.OwnerID))
		return ""
	}
	return s.detector.FindDuplicate(*receipt, existing)
}

// complete stamps the completion timestamp, sets the final status and saves.
func (s *pipelineService) complete(ctx context.Context, receipt *domain.Receipt, status domain.ReceiptStatus) error {
	completed := s.now()
	receipt.Status = status
	receipt.ProcessingCompletedAt = &completed
	receipt.LastUpdatedAt = completed
	return s.save(ctx, *receipt)
}

// save persists the receipt, tolerating deletion mid-run as a no-op. The
// update never re-inserts, so a receipt deleted during the run stays deleted.
func (s *pipelineService) save(ctx context.Context, receipt domain.Receipt) error {
	err := s.receiptRepo.UpdateReceipt(ctx, receipt)
	if err == nil {
		return nil
	}
	if errors.Is(err, apperrors.ErrNotFound) {
		s.LogWarn(ctx, "Receipt deleted during processing, dropping result",
			slog.String("receipt_id", receipt.ReceiptID))
		return nil
	}
	return fmt.Errorf("saving receipt %s: %w", receipt.ReceiptID, err)
}

// Run polls for pending receipts and processes them concurrently until ctx is
// cancelled. Receipts process with no ordering guarantee across each other;
// within one receipt the steps are strictly sequential.
func (s *pipelineService) Run(ctx context.Context) error {
	s.LogInfo(ctx, "Pipeline worker started",
		slog.Int("workers", s.workers),
		slog.Duration("poll_interval", s.pollInterval))

	sem := make(chan struct{}, s.workers)
	var wg sync.WaitGroup

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			s.LogInfo(ctx, "Pipeline worker stopped")
			return nil
		case <-ticker.C:
		}

		pending, err := s.receiptRepo.ListPendingReceipts(ctx, s.workers)
		if err != nil {
			s.LogError(ctx, err, "Listing pending receipts failed")
			continue
		}
		for _, receipt := range pending {
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				wg.Wait()
				return nil
			}
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				defer func() { <-sem }()
				runCtx := logging.IntoContext(ctx, s.GetLogger(ctx).With(slog.String("receipt_id", id)))
				if err := s.ProcessReceipt(runCtx, id); err != nil {
					s.LogError(runCtx, err, "Pipeline run failed", slog.String("receipt_id", id))
				}
			}(receipt.ReceiptID)
		}
	}
}
