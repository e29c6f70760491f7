package mapping

import (
	"github.com/heshbonit/receipt-pipeline/internal/core/domain"
	"github.com/heshbonit/receipt-pipeline/internal/models"
)

// ToModelReceipt converts a domain Receipt to a model Receipt
func ToModelReceipt(d domain.Receipt) models.Receipt {
	return models.Receipt{
		ReceiptID:             d.ReceiptID,
		OwnerID:               d.OwnerID,
		FileRef:               d.FileRef,
		VendorName:            d.VendorName,
		BusinessID:            d.BusinessID,
		ReceiptNumber:         d.ReceiptNumber,
		TransactionDate:       d.TransactionDate,
		Total:                 d.Total,
		PreTax:                d.PreTax,
		Tax:                   d.Tax,
		CategoryID:            d.CategoryID,
		Status:                string(d.Status),
		Confidence:            d.Confidence,
		IsDuplicate:           d.IsDuplicate,
		DuplicateOfID:         d.DuplicateOfID,
		Advisories:            d.Advisories,
		Notes:                 d.Notes,
		ProcessingStartedAt:   d.ProcessingStartedAt,
		ProcessingCompletedAt: d.ProcessingCompletedAt,
		ApprovedAt:            d.ApprovedAt,
		AuditFields:           ToModelAuditFields(d.AuditFields),
	}
}

// ToDomainReceipt converts a model Receipt to a domain Receipt
func ToDomainReceipt(m models.Receipt) domain.Receipt {
	return domain.Receipt{
		ReceiptID:             m.ReceiptID,
		OwnerID:               m.OwnerID,
		FileRef:               m.FileRef,
		VendorName:            m.VendorName,
		BusinessID:            m.BusinessID,
		ReceiptNumber:         m.ReceiptNumber,
		TransactionDate:       m.TransactionDate,
		Total:                 m.Total,
		PreTax:                m.PreTax,
		Tax:                   m.Tax,
		CategoryID:            m.CategoryID,
		Status:                domain.ReceiptStatus(m.Status),
		Confidence:            m.Confidence,
		IsDuplicate:           m.IsDuplicate,
		DuplicateOfID:         m.DuplicateOfID,
		Advisories:            m.Advisories,
		Notes:                 m.Notes,
		ProcessingStartedAt:   m.ProcessingStartedAt,
		ProcessingCompletedAt: m.ProcessingCompletedAt,
		ApprovedAt:            m.ApprovedAt,
		AuditFields:           ToDomainAuditFields(m.AuditFields),
	}
}

// ToDomainReceiptSlice converts a slice of model Receipts to a slice of domain Receipts
func ToDomainReceiptSlice(ms []models.Receipt) []domain.Receipt {
	ds := make([]domain.Receipt, len(ms))
	for i, m := range ms {
		ds[i] = ToDomainReceipt(m)
	}
	return ds
}
