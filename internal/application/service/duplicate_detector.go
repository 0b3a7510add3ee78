package service

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/garyjia/ap-invoice-intake/internal/application/port"
	"github.com/garyjia/ap-invoice-intake/internal/domain/entity"
)

// Duplicate match reasons
const (
	MatchByReference   = "reference"
	MatchByVATAndTotal = "vat_and_total"
)

// Duplicate is an existing accounting record that already covers an invoice
type Duplicate struct {
	Record   *entity.AccountingRecord
	MatchBy  string
	Warnings []string
}

// DuplicateDetector finds non-cancelled vendor bills already recorded for a purchase order
type DuplicateDetector struct {
	records port.AccountingRecordRepository
	logger  Logger
}

// NewDuplicateDetector creates a new DuplicateDetector
func NewDuplicateDetector(records port.AccountingRecordRepository, logger Logger) *DuplicateDetector {
	return &DuplicateDetector{
		records: records,
		logger:  logger,
	}
}

// Find checks by PO reference first, then by vendor VAT and exact total when both were extracted.
// A vendor VAT + total match can hit an unrelated bill with the same amount; no date is compared.
func (d *DuplicateDetector) Find(ctx context.Context, po *entity.PurchaseOrder, data *entity.InvoiceData) (*Duplicate, error) {
	ref := stripSpaces(po.Reference)

	if ref != "" {
		records, err := d.records.ListActive(ctx, entity.MoveTypeInInvoice)
		if err != nil {
			return nil, fmt.Errorf("failed to list active invoices: %w", err)
		}
		for _, rec := range records {
			if stripSpaces(rec.Reference) == ref {
				return d.found(po, rec, MatchByReference), nil
			}
		}
	}

	if data == nil || data.CUIT == "" || data.TotalAmount <= 0 {
		return nil, nil
	}

	rec, err := d.records.FindByVATAndTotal(ctx, entity.MoveTypeInInvoice, data.CUIT, data.TotalAmount)
	if err != nil {
		return nil, fmt.Errorf("failed to find invoice by vat and total: %w", err)
	}
	if rec == nil {
		return nil, nil
	}
	return d.found(po, rec, MatchByVATAndTotal), nil
}

func (d *DuplicateDetector) found(po *entity.PurchaseOrder, rec *entity.AccountingRecord, matchBy string) *Duplicate {
	dup := &Duplicate{Record: rec, MatchBy: matchBy}

	if matchBy == MatchByVATAndTotal {
		dup.Warnings = append(dup.Warnings,
			fmt.Sprintf("existing invoice %d (reference %s) matched on vendor VAT and total only; invoice dates were not compared",
				rec.ID, rec.Reference))
	}

	if po.PartnerID != nil && rec.PartnerID != *po.PartnerID {
		dup.Warnings = append(dup.Warnings,
			fmt.Sprintf("existing invoice %d belongs to vendor %d, purchase order %s to vendor %d",
				rec.ID, rec.PartnerID, po.Reference, *po.PartnerID))
	}
	if rec.PurchaseOrderID != nil && *rec.PurchaseOrderID != po.ID {
		dup.Warnings = append(dup.Warnings,
			fmt.Sprintf("existing invoice %d is linked to purchase order %d, not %s",
				rec.ID, *rec.PurchaseOrderID, po.Reference))
	}

	d.logger.Info("Duplicate invoice detected",
		"record_id", rec.ID,
		"purchase_order", po.Reference,
		"match_by", matchBy,
		"warnings", len(dup.Warnings))

	return dup
}

func stripSpaces(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
