package entity

import "time"

// AccountingRecord is a vendor bill. The pipeline creates drafts and reads existing ones.
type AccountingRecord struct {
	ID              int64            `json:"id"`
	MoveType        string           `json:"move_type"`
	State           string           `json:"state"`
	PartnerID       int64            `json:"partner_id"`
	PartnerVAT      string           `json:"partner_vat,omitempty"`
	Reference       string           `json:"reference"`
	InvoiceDate     time.Time        `json:"invoice_date"`
	DocumentTypeID  *int64           `json:"document_type_id,omitempty"`
	DocumentNumber  string           `json:"document_number,omitempty"`
	PurchaseOrderID *int64           `json:"purchase_order_id,omitempty"`
	AmountTotal     float64          `json:"amount_total"`
	Lines           []AccountingLine `json:"lines,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
}

// AccountingLine is a single invoice line of an accounting record
type AccountingLine struct {
	ID           int64        `json:"id"`
	RecordID     int64        `json:"record_id"`
	ProductID    *int64       `json:"product_id,omitempty"`
	Quantity     float64      `json:"quantity"`
	PriceUnit    float64      `json:"price_unit"`
	TaxID        int64        `json:"tax_id"`
	AccountID    int64        `json:"account_id"`
	Distribution Distribution `json:"distribution"`
}

// Account is a ledger account
type Account struct {
	ID          int64  `json:"id"`
	Code        string `json:"code"`
	Name        string `json:"name"`
	AccountType string `json:"account_type"`
}

// Tax is a tax definition applied to invoice lines
type Tax struct {
	ID         int64   `json:"id"`
	Code       string  `json:"code"`
	Name       string  `json:"name"`
	Rate       float64 `json:"rate"`
	TypeTaxUse string  `json:"type_tax_use"`
}

// DocumentType is a fiscal document type (Factura A, Nota de Debito B, ...)
type DocumentType struct {
	ID   int64  `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

// AnalyticAccount is a cost-allocation account
type AnalyticAccount struct {
	ID        int64  `json:"id"`
	Code      string `json:"code"`
	Name      string `json:"name"`
	IsDefault bool   `json:"is_default"`
}
