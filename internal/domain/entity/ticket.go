package entity

import "time"

// Ticket represents a helpdesk ticket in the accounts-payable inbox
type Ticket struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Team        string    `json:"team,omitempty"`
	Stage       string    `json:"stage"`
	InvoiceID   *int64    `json:"invoice_id,omitempty"`
	PONumber    string    `json:"po_number,omitempty"`
	CUIT        string    `json:"cuit,omitempty"`
	TotalAmount float64   `json:"total_amount"`
	IVAAmount   float64   `json:"iva_amount"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TicketFilter selects tickets for a batch run
type TicketFilter struct {
	Stage string
	Team  string
	Limit int
}

// TicketUpdate is the set of writes applied to a ticket when it leaves NEW_INVOICES.
// Nil fields are left untouched.
type TicketUpdate struct {
	Stage       string
	InvoiceID   *int64
	PONumber    *string
	CUIT        *string
	TotalAmount *float64
	IVAAmount   *float64
}

// HasFieldWrites reports whether the update touches any result field
func (u *TicketUpdate) HasFieldWrites() bool {
	return u.InvoiceID != nil || u.PONumber != nil || u.CUIT != nil || u.TotalAmount != nil || u.IVAAmount != nil
}
