package entity

// Stage codes for tickets handled by the intake pipeline
const (
	StageNewInvoices    = "NEW_INVOICES"
	StageNoPDF          = "NO_PDF"
	StageNoValidPO      = "NO_VALID_PO"
	StagePOInexistent   = "PO_INEXISTENT"
	StageInvoiceLinked  = "INVOICE_LINKED"
	StageDuplicateFound = "DUPLICATE_FOUND"
	StageCreationFailed = "CREATION_FAILED"
)

// Accounting record constants
const (
	MoveTypeInInvoice = "in_invoice"

	RecordStateDraft  = "draft"
	RecordStatePosted = "posted"
	RecordStateCancel = "cancel"
)

// Thread message kinds
const (
	MessageKindComment = "comment"
	MessageKindNote    = "note"
)

// MimeTypePDF is the only attachment type the pipeline reads
const MimeTypePDF = "application/pdf"

// Document types recognised on Argentine vendor invoices
const (
	DocTypeFacturaA    = "FACTURA_A"
	DocTypeFacturaB    = "FACTURA_B"
	DocTypeFacturaC    = "FACTURA_C"
	DocTypeNotaDebitoA = "NOTA_DEBITO_A"
	DocTypeNotaDebitoB = "NOTA_DEBITO_B"
	DocTypeNotaDebitoC = "NOTA_DEBITO_C"
)

// Batch run trigger sources
const (
	RunTriggerSchedule = "SCHEDULE"
	RunTriggerManual   = "MANUAL"
	RunTriggerAPI      = "API"
	RunTriggerCLI      = "CLI"
)
