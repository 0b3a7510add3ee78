package entity

import "time"

// BatchRun records one pass of the pipeline over a set of tickets
type BatchRun struct {
	ID             string           `json:"id"`
	Trigger        string           `json:"trigger"`
	Success        bool             `json:"success"`
	Error          string           `json:"error,omitempty"`
	TicketCount    int              `json:"ticket_count"`
	Linked         int              `json:"linked"`
	Duplicates     int              `json:"duplicates"`
	NoPDF          int              `json:"no_pdf"`
	NoValidPO      int              `json:"no_valid_po"`
	POInexistent   int              `json:"po_inexistent"`
	CreationFailed int              `json:"creation_failed"`
	Failed         int              `json:"failed"`
	Skipped        int              `json:"skipped"`
	StartedAt      time.Time        `json:"started_at"`
	FinishedAt     *time.Time       `json:"finished_at,omitempty"`
	Tickets        []BatchRunTicket `json:"tickets,omitempty"`
}

// BatchRunTicket is the per-ticket line of a batch run
type BatchRunTicket struct {
	RunID      string `json:"run_id"`
	TicketID   int64  `json:"ticket_id"`
	TicketName string `json:"ticket_name"`
	Stage      string `json:"stage,omitempty"`
	PONumber   string `json:"po_number,omitempty"`
	InvoiceID  *int64 `json:"invoice_id,omitempty"`
	Reason     string `json:"reason,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Record adds a ticket line and updates the per-stage counters
func (r *BatchRun) Record(t BatchRunTicket) {
	r.Tickets = append(r.Tickets, t)
	r.TicketCount++

	if t.Error != "" {
		r.Failed++
		return
	}

	switch t.Stage {
	case StageInvoiceLinked:
		r.Linked++
	case StageDuplicateFound:
		r.Duplicates++
	case StageNoPDF:
		r.NoPDF++
	case StageNoValidPO:
		r.NoValidPO++
	case StagePOInexistent:
		r.POInexistent++
	case StageCreationFailed:
		r.CreationFailed++
	case "":
		r.Skipped++
	}
}
