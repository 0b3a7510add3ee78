// Package report renders batch run results as XLSX workbooks for the AP team.
package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/garyjia/ap-invoice-intake/internal/domain/entity"
)

// Sheet names
const (
	SummarySheet = "Summary"
	TicketsSheet = "Tickets"
)

const timeLayout = "2006-01-02 15:04:05"

// ticketColumns is the header row of the tickets sheet
var ticketColumns = []string{"Ticket ID", "Ticket", "Stage", "PO Number", "Invoice ID", "Reason", "Error"}

// BatchReportWriter builds the batch run workbook
type BatchReportWriter struct {
	logger *zap.Logger
}

// NewBatchReportWriter creates a new BatchReportWriter
func NewBatchReportWriter(logger *zap.Logger) *BatchReportWriter {
	return &BatchReportWriter{logger: logger}
}

// Write renders the run into an XLSX document
func (w *BatchReportWriter) Write(run *entity.BatchRun) ([]byte, error) {
	file := excelize.NewFile()
	defer file.Close()

	if err := file.SetSheetName("Sheet1", SummarySheet); err != nil {
		return nil, fmt.Errorf("failed to rename summary sheet: %w", err)
	}
	if _, err := file.NewSheet(TicketsSheet); err != nil {
		return nil, fmt.Errorf("failed to create tickets sheet: %w", err)
	}

	bold, err := file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	if err := w.fillSummary(file, run, bold); err != nil {
		return nil, fmt.Errorf("failed to fill summary: %w", err)
	}
	if err := w.fillTickets(file, run.Tickets, bold); err != nil {
		return nil, fmt.Errorf("failed to fill tickets: %w", err)
	}

	buf, err := file.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}

	w.logger.Debug("Batch report rendered",
		zap.String("run_id", run.ID),
		zap.Int("tickets", len(run.Tickets)),
		zap.Int("bytes", buf.Len()))

	return buf.Bytes(), nil
}

// fillSummary writes label/value pairs in columns A and B
func (w *BatchReportWriter) fillSummary(file *excelize.File, run *entity.BatchRun, headerStyle int) error {
	finished := ""
	if run.FinishedAt != nil {
		finished = run.FinishedAt.Format(timeLayout)
	}

	rows := [][2]interface{}{
		{"Run ID", run.ID},
		{"Trigger", run.Trigger},
		{"Success", run.Success},
		{"Error", run.Error},
		{"Started", run.StartedAt.Format(timeLayout)},
		{"Finished", finished},
		{"Tickets", run.TicketCount},
		{"Invoice linked", run.Linked},
		{"Duplicate found", run.Duplicates},
		{"No PDF", run.NoPDF},
		{"No valid PO", run.NoValidPO},
		{"PO inexistent", run.POInexistent},
		{"Creation failed", run.CreationFailed},
		{"Failed", run.Failed},
		{"Skipped", run.Skipped},
	}

	for i, r := range rows {
		row := i + 1
		if err := file.SetCellValue(SummarySheet, fmt.Sprintf("A%d", row), r[0]); err != nil {
			return fmt.Errorf("failed to set label at row %d: %w", row, err)
		}
		if err := file.SetCellValue(SummarySheet, fmt.Sprintf("B%d", row), r[1]); err != nil {
			return fmt.Errorf("failed to set value at row %d: %w", row, err)
		}
	}

	if err := file.SetCellStyle(SummarySheet, "A1", fmt.Sprintf("A%d", len(rows)), headerStyle); err != nil {
		return err
	}
	return file.SetColWidth(SummarySheet, "A", "B", 24)
}

func (w *BatchReportWriter) fillTickets(file *excelize.File, tickets []entity.BatchRunTicket, headerStyle int) error {
	header := make([]interface{}, len(ticketColumns))
	for i, c := range ticketColumns {
		header[i] = c
	}
	if err := file.SetSheetRow(TicketsSheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to set header: %w", err)
	}

	last, err := excelize.CoordinatesToCellName(len(ticketColumns), 1)
	if err != nil {
		return err
	}
	if err := file.SetCellStyle(TicketsSheet, "A1", last, headerStyle); err != nil {
		return err
	}

	for i, t := range tickets {
		row := i + 2
		var invoiceID interface{}
		if t.InvoiceID != nil {
			invoiceID = *t.InvoiceID
		}

		values := []interface{}{t.TicketID, t.TicketName, t.Stage, t.PONumber, invoiceID, t.Reason, t.Error}
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return err
		}
		if err := file.SetSheetRow(TicketsSheet, cell, &values); err != nil {
			return fmt.Errorf("failed to set ticket row %d: %w", row, err)
		}
	}

	if err := file.SetColWidth(TicketsSheet, "B", "B", 32); err != nil {
		return err
	}
	return file.SetColWidth(TicketsSheet, "F", "G", 48)
}
