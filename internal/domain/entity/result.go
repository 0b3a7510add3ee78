package entity

// ResultKind classifies what processing one PDF attachment produced
type ResultKind string

const (
	ResultInvoiceLinked  ResultKind = "INVOICE_LINKED"
	ResultDuplicateFound ResultKind = "DUPLICATE_FOUND"
	ResultCreationFailed ResultKind = "CREATION_FAILED"
	ResultPOInexistent   ResultKind = "PO_INEXISTENT"
	ResultNoValidPO      ResultKind = "NO_VALID_PO"
	ResultError          ResultKind = "ERROR"
)

// IsDefinitive returns true if no further attachment of the ticket needs processing
func (k ResultKind) IsDefinitive() bool {
	return k == ResultInvoiceLinked || k == ResultDuplicateFound
}

// AttachmentResult is the outcome of the extraction, resolution and creation chain for one PDF
type AttachmentResult struct {
	AttachmentID   int64
	AttachmentName string
	Kind           ResultKind
	PONumber       string
	Data           *InvoiceData
	Record         *AccountingRecord
	Reason         string
	Warnings       []string

	// Special is set when the PO came from the "pedido de compra #P<digits>" phrase
	Special bool
}

// StopsProcessing returns true if the remaining attachments of the ticket must be skipped.
// A special-phrase PO that resolves to nothing is as final as a linked invoice.
func (r AttachmentResult) StopsProcessing() bool {
	return r.Kind.IsDefinitive() || (r.Kind == ResultPOInexistent && r.Special)
}
