package entity

import "time"

// Attachment is a file attached to a ticket or to one of its thread messages
type Attachment struct {
	ID        int64     `json:"id"`
	TicketID  *int64    `json:"ticket_id,omitempty"`
	MessageID *int64    `json:"message_id,omitempty"`
	Name      string    `json:"name"`
	MimeType  string    `json:"mime_type"`
	Size      int64     `json:"size"`
	Data      []byte    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// IsPDF returns true if the attachment is a PDF document
func (a *Attachment) IsPDF() bool {
	return a.MimeType == MimeTypePDF
}
