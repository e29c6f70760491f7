package services_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/heshbonit/receipt-pipeline/internal/apperrors"
	"github.com/heshbonit/receipt-pipeline/internal/core/domain"
	portssvc "github.com/heshbonit/receipt-pipeline/internal/core/ports/services"
	"github.com/heshbonit/receipt-pipeline/internal/core/services"
	"github.com/heshbonit/receipt-pipeline/internal/dto"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

// --- Mock FieldEditRepository ---
type MockFieldEditRepository struct {
	mock.Mock
}

func (m *MockFieldEditRepository) ListFieldEdits(ctx context.Context, receiptID string) ([]domain.FieldEdit, error) {
	args := m.Called(ctx, receiptID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.FieldEdit), args.Error(1)
}

func (m *MockFieldEditRepository) AppendFieldEdit(ctx context.Context, edit domain.FieldEdit) error {
	args := m.Called(ctx, edit)
	return args.Error(0)
}

func strPtr(s string) *string { return &s }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

// --- Test Suite ---
type ReceiptServiceTestSuite struct {
	suite.Suite
	mockRepo  *MockReceiptRepository
	mockEdits *MockFieldEditRepository
	service   portssvc.ReceiptSvcFacade
	now       time.Time
	nextID    int
}

func (suite *ReceiptServiceTestSuite) SetupTest() {
	suite.mockRepo = new(MockReceiptRepository)
	suite.mockEdits = new(MockFieldEditRepository)
	suite.now = time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC)
	suite.nextID = 0
	suite.service = services.NewReceiptService(
		suite.mockRepo,
		suite.mockEdits,
		services.WithReceiptClock(func() time.Time { return suite.now }),
		services.WithIDGenerator(func() string {
			suite.nextID++
			return fmt.Sprintf("id-%d", suite.nextID)
		}),
	)
}

// reviewReceipt returns a receipt in REVIEW owned by o1 with extracted fields.
func (suite *ReceiptServiceTestSuite) reviewReceipt() *domain.Receipt {
	date := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	return &domain.Receipt{
		ReceiptID:       "r1",
		OwnerID:         "o1",
		FileRef:         "receipts/o1/r1.jpg",
		VendorName:      "ABC Fuel Ltd",
		BusinessID:      "514123459",
		TransactionDate: &date,
		Total:           decPtr("117.00"),
		PreTax:          decPtr("100.00"),
		Tax:             decPtr("17.00"),
		Status:          domain.StatusReview,
	}
}

func (suite *ReceiptServiceTestSuite) TestCreateReceipt_Success() {
	ctx := context.Background()
	req := dto.CreateReceiptRequest{FileRef: "receipts/o1/new.jpg", Notes: "march fuel"}

	suite.mockRepo.On("SaveReceipt", ctx, mock.MatchedBy(func(r domain.Receipt) bool {
		return r.ReceiptID == "id-1" &&
			r.OwnerID == "o1" &&
			r.FileRef == req.FileRef &&
			r.Status == domain.StatusProcessing &&
			r.CreatedBy == "o1"
	})).Return(nil).Once()

	receipt, err := suite.service.CreateReceipt(ctx, "o1", req)

	suite.Require().NoError(err)
	suite.Require().NotNil(receipt)
	suite.Equal(domain.StatusProcessing, receipt.Status)
	suite.Equal("march fuel", receipt.Notes)
	suite.Equal(suite.now, receipt.CreatedAt)
	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *ReceiptServiceTestSuite) TestCreateReceipt_MissingFileRef() {
	ctx := context.Background()

	receipt, err := suite.service.CreateReceipt(ctx, "o1", dto.CreateReceiptRequest{})

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrValidation)
	suite.Nil(receipt)
	suite.mockRepo.AssertNotCalled(suite.T(), "SaveReceipt", mock.Anything, mock.Anything)
}

func (suite *ReceiptServiceTestSuite) TestGetReceipt_OwnerScoped() {
	ctx := context.Background()
	receipt := suite.reviewReceipt()

	suite.mockRepo.On("FindReceiptByID", ctx, "r1").Return(receipt, nil).Twice()

	got, err := suite.service.GetReceipt(ctx, "o1", "r1")
	suite.Require().NoError(err)
	suite.Equal(receipt, got)

	// someone else's receipt looks like a missing one
	got, err = suite.service.GetReceipt(ctx, "o2", "r1")
	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrNotFound)
	suite.Nil(got)
}

func (suite *ReceiptServiceTestSuite) TestGetFieldEdits() {
	ctx := context.Background()
	receipt := suite.reviewReceipt()
	history := []domain.FieldEdit{
		{EditID: "e1", ReceiptID: "r1", FieldName: domain.FieldTotal},
	}

	suite.mockRepo.On("FindReceiptByID", ctx, "r1").Return(receipt, nil).Once()
	suite.mockEdits.On("ListFieldEdits", ctx, "r1").Return(history, nil).Once()

	edits, err := suite.service.GetFieldEdits(ctx, "o1", "r1")

	suite.Require().NoError(err)
	suite.Equal(history, edits)
	suite.mockEdits.AssertExpectations(suite.T())
}

func (suite *ReceiptServiceTestSuite) TestEditReceipt_AuditsChangedFields() {
	ctx := context.Background()
	receipt := suite.reviewReceipt()
	req := dto.EditReceiptRequest{
		VendorName: strPtr("Paz Gas Station"),
		Total:      decPtr("234.00"),
	}

	suite.mockRepo.On("FindReceiptByID", ctx, "r1").Return(receipt, nil).Once()

	var savedReceipt domain.Receipt
	var savedEdits []domain.FieldEdit
	suite.mockRepo.On("SaveReceiptWithEdits", ctx, mock.AnythingOfType("domain.Receipt"), mock.Anything).
		Run(func(args mock.Arguments) {
			savedReceipt = args.Get(1).(domain.Receipt)
			savedEdits = args.Get(2).([]domain.FieldEdit)
		}).Return(nil).Once()

	updated, err := suite.service.EditReceipt(ctx, "o1", "r1", req)

	suite.Require().NoError(err)
	suite.Equal("Paz Gas Station", updated.VendorName)

	suite.Require().Len(savedEdits, 2)
	suite.Equal(domain.FieldVendorName, savedEdits[0].FieldName)
	suite.Equal("ABC Fuel Ltd", savedEdits[0].OldValue)
	suite.Equal("Paz Gas Station", savedEdits[0].NewValue)
	suite.Equal("o1", savedEdits[0].EditorID)
	suite.Equal(domain.FieldTotal, savedEdits[1].FieldName)
	suite.Equal("117.00", savedEdits[1].OldValue)
	suite.Equal("234.00", savedEdits[1].NewValue)

	// the total change rederives the VAT split
	suite.Require().NotNil(savedReceipt.PreTax)
	suite.True(savedReceipt.PreTax.Equal(dec("200.00")), "preTax = %s", savedReceipt.PreTax)
	suite.Require().NotNil(savedReceipt.Tax)
	suite.True(savedReceipt.Tax.Equal(dec("34.00")), "tax = %s", savedReceipt.Tax)

	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *ReceiptServiceTestSuite) TestEditReceipt_ExplicitTaxWins() {
	ctx := context.Background()
	receipt := suite.reviewReceipt()
	req := dto.EditReceiptRequest{Tax: decPtr("15.00")}

	suite.mockRepo.On("FindReceiptByID", ctx, "r1").Return(receipt, nil).Once()

	var savedReceipt domain.Receipt
	suite.mockRepo.On("SaveReceiptWithEdits", ctx, mock.AnythingOfType("domain.Receipt"), mock.Anything).
		Run(func(args mock.Arguments) {
			savedReceipt = args.Get(1).(domain.Receipt)
		}).Return(nil).Once()

	_, err := suite.service.EditReceipt(ctx, "o1", "r1", req)

	suite.Require().NoError(err)
	suite.True(savedReceipt.Tax.Equal(dec("15.00")))
	suite.True(savedReceipt.PreTax.Equal(dec("102.00")), "preTax = %s", savedReceipt.PreTax)
}

func (suite *ReceiptServiceTestSuite) TestEditReceipt_NoChangesNoSave() {
	ctx := context.Background()
	receipt := suite.reviewReceipt()
	req := dto.EditReceiptRequest{VendorName: strPtr("ABC Fuel Ltd")}

	suite.mockRepo.On("FindReceiptByID", ctx, "r1").Return(receipt, nil).Once()

	updated, err := suite.service.EditReceipt(ctx, "o1", "r1", req)

	suite.Require().NoError(err)
	suite.Equal(receipt, updated)
	suite.mockRepo.AssertNotCalled(suite.T(), "SaveReceiptWithEdits", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *ReceiptServiceTestSuite) TestEditReceipt_IllegalStates() {
	ctx := context.Background()
	req := dto.EditReceiptRequest{VendorName: strPtr("X")}

	for _, status := range []domain.ReceiptStatus{
		domain.StatusProcessing, domain.StatusApproved, domain.StatusFailed,
	} {
		receipt := suite.reviewReceipt()
		receipt.Status = status
		suite.mockRepo.On("FindReceiptByID", ctx, "r1").Return(receipt, nil).Once()

		_, err := suite.service.EditReceipt(ctx, "o1", "r1", req)

		suite.Require().Error(err, "status %s", status)
		suite.ErrorIs(err, apperrors.ErrConflict)
	}
	suite.mockRepo.AssertNotCalled(suite.T(), "SaveReceiptWithEdits", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *ReceiptServiceTestSuite) TestEditReceipt_BadBusinessID() {
	ctx := context.Background()

	_, err := suite.service.EditReceipt(ctx, "o1", "r1", dto.EditReceiptRequest{
		BusinessID: strPtr("12345"),
	})

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrValidation)
	suite.mockRepo.AssertNotCalled(suite.T(), "FindReceiptByID", mock.Anything, mock.Anything)
}

func (suite *ReceiptServiceTestSuite) TestApproveReceipt_Success() {
	ctx := context.Background()
	receipt := suite.reviewReceipt()
	date := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	req := dto.ApproveReceiptRequest{
		VendorName:      "ABC Fuel Ltd",
		BusinessID:      "514123459",
		ReceiptNumber:   "00412",
		TransactionDate: &date,
		Total:           decPtr("117.00"),
		CategoryID:      strPtr("cat-transport"),
	}

	suite.mockRepo.On("FindReceiptByID", ctx, "r1").Return(receipt, nil).Once()

	var savedReceipt domain.Receipt
	suite.mockRepo.On("SaveReceiptWithEdits", ctx, mock.AnythingOfType("domain.Receipt"), mock.Anything).
		Run(func(args mock.Arguments) {
			savedReceipt = args.Get(1).(domain.Receipt)
		}).Return(nil).Once()

	approved, err := suite.service.ApproveReceipt(ctx, "o1", "r1", req)

	suite.Require().NoError(err)
	suite.Equal(domain.StatusApproved, approved.Status)
	suite.Require().NotNil(approved.ApprovedAt)
	suite.Equal(suite.now, *approved.ApprovedAt)
	suite.Equal(domain.StatusApproved, savedReceipt.Status)
	suite.True(savedReceipt.PreTax.Equal(dec("100.00")))
	suite.True(savedReceipt.Tax.Equal(dec("17.00")))
	suite.Require().NotNil(savedReceipt.CategoryID)
	suite.Equal("cat-transport", *savedReceipt.CategoryID)
	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *ReceiptServiceTestSuite) TestApproveReceipt_KeepsExtractedReceiptNumber() {
	ctx := context.Background()
	receipt := suite.reviewReceipt()
	receipt.ReceiptNumber = "00412"
	date := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	// no receipt number or business id in the approval
	req := dto.ApproveReceiptRequest{
		VendorName:      "ABC Fuel Ltd",
		TransactionDate: &date,
		Total:           decPtr("117.00"),
	}

	suite.mockRepo.On("FindReceiptByID", ctx, "r1").Return(receipt, nil).Once()

	var savedReceipt domain.Receipt
	var savedEdits []domain.FieldEdit
	suite.mockRepo.On("SaveReceiptWithEdits", ctx, mock.AnythingOfType("domain.Receipt"), mock.Anything).
		Run(func(args mock.Arguments) {
			savedReceipt = args.Get(1).(domain.Receipt)
			savedEdits = args.Get(2).([]domain.FieldEdit)
		}).Return(nil).Once()

	_, err := suite.service.ApproveReceipt(ctx, "o1", "r1", req)

	suite.Require().NoError(err)
	suite.Equal("00412", savedReceipt.ReceiptNumber)
	suite.Equal("514123459", savedReceipt.BusinessID)
	for _, edit := range savedEdits {
		suite.NotEqual(domain.FieldReceiptNumber, edit.FieldName)
		suite.NotEqual(domain.FieldBusinessID, edit.FieldName)
	}
	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *ReceiptServiceTestSuite) TestApproveReceipt_RequiresReview() {
	ctx := context.Background()
	receipt := suite.reviewReceipt()
	receipt.Status = domain.StatusDuplicate
	date := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	req := dto.ApproveReceiptRequest{
		VendorName:      "ABC Fuel Ltd",
		TransactionDate: &date,
		Total:           decPtr("117.00"),
	}

	suite.mockRepo.On("FindReceiptByID", ctx, "r1").Return(receipt, nil).Once()

	_, err := suite.service.ApproveReceipt(ctx, "o1", "r1", req)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrConflict)
}

func (suite *ReceiptServiceTestSuite) TestApproveReceipt_MissingTotal() {
	ctx := context.Background()
	date := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	req := dto.ApproveReceiptRequest{
		VendorName:      "ABC Fuel Ltd",
		TransactionDate: &date,
	}

	_, err := suite.service.ApproveReceipt(ctx, "o1", "r1", req)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrValidation)
	suite.mockRepo.AssertNotCalled(suite.T(), "FindReceiptByID", mock.Anything, mock.Anything)
}

func (suite *ReceiptServiceTestSuite) TestResolveDuplicate() {
	ctx := context.Background()
	receipt := suite.reviewReceipt()
	receipt.Status = domain.StatusDuplicate
	receipt.IsDuplicate = true
	receipt.DuplicateOfID = strPtr("r0")

	suite.mockRepo.On("FindReceiptByID", ctx, "r1").Return(receipt, nil).Once()
	suite.mockRepo.On("SaveReceipt", ctx, mock.MatchedBy(func(r domain.Receipt) bool {
		return r.Status == domain.StatusReview && !r.IsDuplicate && r.DuplicateOfID == nil
	})).Return(nil).Once()

	resolved, err := suite.service.ResolveDuplicate(ctx, "o1", "r1")

	suite.Require().NoError(err)
	suite.Equal(domain.StatusReview, resolved.Status)
	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *ReceiptServiceTestSuite) TestResolveDuplicate_RequiresDuplicate() {
	ctx := context.Background()
	receipt := suite.reviewReceipt()

	suite.mockRepo.On("FindReceiptByID", ctx, "r1").Return(receipt, nil).Once()

	_, err := suite.service.ResolveDuplicate(ctx, "o1", "r1")

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrConflict)
	suite.mockRepo.AssertNotCalled(suite.T(), "SaveReceipt", mock.Anything, mock.Anything)
}

func (suite *ReceiptServiceTestSuite) TestRetryReceipt() {
	ctx := context.Background()
	started := suite.now.Add(-time.Hour)
	receipt := suite.reviewReceipt()
	receipt.Status = domain.StatusFailed
	receipt.ProcessingStartedAt = &started
	receipt.ProcessingCompletedAt = &started

	suite.mockRepo.On("FindReceiptByID", ctx, "r1").Return(receipt, nil).Once()
	suite.mockRepo.On("SaveReceipt", ctx, mock.MatchedBy(func(r domain.Receipt) bool {
		return r.Status == domain.StatusProcessing &&
			r.ProcessingStartedAt == nil &&
			r.ProcessingCompletedAt == nil
	})).Return(nil).Once()

	retried, err := suite.service.RetryReceipt(ctx, "o1", "r1")

	suite.Require().NoError(err)
	suite.Equal(domain.StatusProcessing, retried.Status)
	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *ReceiptServiceTestSuite) TestRetryReceipt_RequiresFailed() {
	ctx := context.Background()

	for _, status := range []domain.ReceiptStatus{
		domain.StatusProcessing, domain.StatusReview, domain.StatusDuplicate, domain.StatusApproved,
	} {
		receipt := suite.reviewReceipt()
		receipt.Status = status
		suite.mockRepo.On("FindReceiptByID", ctx, "r1").Return(receipt, nil).Once()

		_, err := suite.service.RetryReceipt(ctx, "o1", "r1")

		suite.Require().Error(err, "status %s", status)
		suite.ErrorIs(err, apperrors.ErrConflict)
	}
	suite.mockRepo.AssertNotCalled(suite.T(), "SaveReceipt", mock.Anything, mock.Anything)
}

func (suite *ReceiptServiceTestSuite) TestRepositoryErrorsWrapped() {
	ctx := context.Background()

	suite.mockRepo.On("FindReceiptByID", ctx, "r1").Return(nil, assert.AnError).Once()

	_, err := suite.service.GetReceipt(ctx, "o1", "r1")

	suite.Require().Error(err)
	suite.ErrorIs(err, assert.AnError)
}

func TestReceiptServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ReceiptServiceTestSuite))
}
