package entity

import "time"

// InvoiceData holds the fields extracted from a single vendor invoice PDF.
// It is built per document and consumed immediately by draft creation.
type InvoiceData struct {
	PONumber      string    `json:"po_number"`
	CUIT          string    `json:"cuit,omitempty"`
	InvoiceNumber string    `json:"invoice_number,omitempty"`
	InvoiceDate   time.Time `json:"invoice_date"`
	DateDefaulted bool      `json:"date_defaulted"`
	DocumentType  string    `json:"document_type,omitempty"`
	TotalAmount   float64   `json:"total_amount"`
	IVAAmount     float64   `json:"iva_amount"`
	IVAEstimated  bool      `json:"iva_estimated"`
	BaseAmount    float64   `json:"base_amount"`
}
