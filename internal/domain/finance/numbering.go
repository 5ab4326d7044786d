package finance

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// DocumentType identifies a numbered financial document
type DocumentType string

const (
	DocumentTypeQuote      DocumentType = "QUOTE"
	DocumentTypeInvoice    DocumentType = "INVOICE"
	DocumentTypePayment    DocumentType = "PAYMENT"
	DocumentTypeCreditNote DocumentType = "CREDIT_NOTE"
)

var documentPrefixes = map[DocumentType]string{
	DocumentTypeQuote:      "COT",
	DocumentTypeInvoice:    "FAC",
	DocumentTypePayment:    "PAG",
	DocumentTypeCreditNote: "NC",
}

// IsValid checks if the document type is numbered
func (t DocumentType) IsValid() bool {
	_, ok := documentPrefixes[t]
	return ok
}

// Prefix returns the number prefix of the document type
func (t DocumentType) Prefix() string {
	return documentPrefixes[t]
}

// FormatDocumentNumber renders "<PREFIX>-<YEAR>-<6-digit sequence>"
func FormatDocumentNumber(docType DocumentType, year int, sequence int64) string {
	return fmt.Sprintf("%s-%d-%06d", docType.Prefix(), year, sequence)
}

// SequenceAllocator hands out the next value of a per-tenant, per-type, per-year counter.
// Implementations must be atomic inside the caller's transaction and never return a
// value twice, even when the surrounding document is later cancelled.
type SequenceAllocator interface {
	Next(ctx context.Context, tenantID uuid.UUID, docType DocumentType, year int) (int64, error)
}

// DocumentNumberer formats numbers from an allocator
type DocumentNumberer struct {
	allocator SequenceAllocator
}

// NewDocumentNumberer creates a numberer over the given allocator
func NewDocumentNumberer(allocator SequenceAllocator) *DocumentNumberer {
	return &DocumentNumberer{allocator: allocator}
}

// NextNumber allocates and formats the next document number
func (n *DocumentNumberer) NextNumber(ctx context.Context, tenantID uuid.UUID, docType DocumentType, year int) (string, error) {
	if !docType.IsValid() {
		return "", fmt.Errorf("unknown document type %q", docType)
	}
	seq, err := n.allocator.Next(ctx, tenantID, docType, year)
	if err != nil {
		return "", fmt.Errorf("allocate %s number: %w", docType, err)
	}
	return FormatDocumentNumber(docType, year, seq), nil
}
