package service

import (
	"fmt"
	"strings"

	"github.com/garyjia/ap-invoice-intake/internal/domain/entity"
	"github.com/garyjia/ap-invoice-intake/internal/domain/workflow"
	"github.com/garyjia/ap-invoice-intake/internal/invoice"
)

// stageLabels maps stage codes to the names operators see
var stageLabels = func() map[string]string {
	m := make(map[string]string, len(entity.RequiredStages))
	for _, def := range entity.RequiredStages {
		m[def.Code] = def.Name
	}
	return m
}()

func stageLabel(code string) string {
	if name, ok := stageLabels[code]; ok {
		return name
	}
	return code
}

func formatAmount(v float64) string {
	return fmt.Sprintf("$%.2f", v)
}

func extractionNote(att *entity.Attachment, po invoice.POExtraction, data *entity.InvoiceData) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Information extracted from %s:\n", att.Name)
	fmt.Fprintf(&b, "- PO Number: %s (%s)\n", po.PONumber, po.Tier)
	fmt.Fprintf(&b, "- CUIT: %s\n", orDash(data.CUIT))
	fmt.Fprintf(&b, "- Invoice Number: %s\n", orDash(data.InvoiceNumber))
	fmt.Fprintf(&b, "- Document Type: %s\n", orDash(data.DocumentType))
	fmt.Fprintf(&b, "- Total Amount: %s\n", formatAmount(data.TotalAmount))
	if data.IVAEstimated {
		fmt.Fprintf(&b, "- IVA Amount: %s (estimated at 21%%)", formatAmount(data.IVAAmount))
	} else {
		fmt.Fprintf(&b, "- IVA Amount: %s", formatAmount(data.IVAAmount))
	}
	return b.String()
}

func noTextNote(att *entity.Attachment) string {
	return fmt.Sprintf("Could not extract any text from %s", att.Name)
}

func noPONote(att *entity.Attachment, po invoice.POExtraction) string {
	if len(po.Candidates) == 0 {
		return fmt.Sprintf("No PO number found in %s", att.Name)
	}

	rejected := make([]string, 0, len(po.Candidates))
	for _, c := range po.Candidates {
		rejected = append(rejected, fmt.Sprintf("%s (%s)", c.Raw, c.Reason))
	}
	return fmt.Sprintf("No valid PO number found in %s. Rejected candidates: %s",
		att.Name, strings.Join(rejected, ", "))
}

func poInexistentNote(att *entity.Attachment, res *Resolution) string {
	return fmt.Sprintf("Purchase Order %s from %s not found in the system (searched as %s)",
		res.Original, att.Name, strings.Join(res.Variants, ", "))
}

func creationFailedNote(att *entity.Attachment, po string, err error) string {
	return fmt.Sprintf("Error creating invoice for PO %s from %s: %v", po, att.Name, err)
}

func attachmentErrorNote(att *entity.Attachment, reason string) string {
	return fmt.Sprintf("Error processing %s: %s", att.Name, reason)
}

func duplicateWarningNote(att *entity.Attachment, warnings []string) string {
	return fmt.Sprintf("Warning on duplicate invoice for %s:\n- %s", att.Name, strings.Join(warnings, "\n- "))
}

// transitionNote explains why the ticket moved to its outcome stage
func transitionNote(to workflow.State, pdfCount int, decisive *entity.AttachmentResult) string {
	header := fmt.Sprintf("Ticket moved to '%s'", stageLabel(string(to)))

	switch to {
	case workflow.StateNoPDF:
		return header + " - No PDF attachments found"
	case workflow.StateNoValidPO:
		return fmt.Sprintf("%s - No valid PO number found in %d PDF attachment(s)", header, pdfCount)
	}

	if decisive == nil {
		return header
	}

	switch to {
	case workflow.StateInvoiceLinked:
		return fmt.Sprintf("%s - Draft invoice %d created from %s:\n%s",
			header, decisive.Record.ID, decisive.AttachmentName, resultFields(decisive))
	case workflow.StateDuplicateFound:
		return fmt.Sprintf("%s - Existing invoice %d already covers %s (from %s):\n%s",
			header, decisive.Record.ID, decisive.PONumber, decisive.AttachmentName, resultFields(decisive))
	case workflow.StatePOInexistent:
		return fmt.Sprintf("%s - Purchase Order %s from %s does not exist", header, decisive.PONumber, decisive.AttachmentName)
	case workflow.StateCreationFailed:
		return fmt.Sprintf("%s - Could not create invoice for PO %s from %s: %s",
			header, decisive.PONumber, decisive.AttachmentName, decisive.Reason)
	}
	return header
}

func resultFields(r *entity.AttachmentResult) string {
	lines := []string{"- PO: " + r.PONumber}
	if r.Data != nil {
		lines = append(lines,
			"- CUIT: "+orDash(r.Data.CUIT),
			"- Total Amount: "+formatAmount(r.Data.TotalAmount),
			"- IVA Amount: "+formatAmount(r.Data.IVAAmount))
	}
	return strings.Join(lines, "\n")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
