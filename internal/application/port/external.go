package port

import (
	"context"

	"github.com/garyjia/ap-invoice-intake/internal/domain/entity"
)

// TextExtractor turns PDF bytes into plain text. Failures yield "".
type TextExtractor interface {
	Extract(ctx context.Context, pdf []byte) string
}

// OCREngine recognises text in a rendered page image
type OCREngine interface {
	Name() string
	Recognize(ctx context.Context, image []byte) (string, error)
}

// ReferenceDataProvider resolves the accounting references a draft invoice needs
type ReferenceDataProvider interface {
	// ExpenseAccount returns the configured expense account, falling back to any expense-type account
	ExpenseAccount(ctx context.Context) (*entity.Account, error)

	// PurchaseVAT returns the configured purchase VAT, falling back to any purchase tax at the configured rate
	PurchaseVAT(ctx context.Context) (*entity.Tax, error)

	// DocumentType maps an extracted document type code to its record; nil when unknown
	DocumentType(ctx context.Context, code string) (*entity.DocumentType, error)

	// DefaultDistribution returns the cost allocation used when a purchase order carries none
	DefaultDistribution(ctx context.Context) (entity.Distribution, error)
}

// Notifier publishes batch run summaries
type Notifier interface {
	NotifyBatch(ctx context.Context, run *entity.BatchRun) error
}
