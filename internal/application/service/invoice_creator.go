package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/garyjia/ap-invoice-intake/internal/application/port"
	"github.com/garyjia/ap-invoice-intake/internal/domain/entity"
)

// ErrNoVendor is returned when neither the purchase order nor the extracted CUIT identifies a vendor
var ErrNoVendor = errors.New("purchase order has no vendor and no partner matches the CUIT")

// CreationResult is what CreateOrLink produced: a new draft or an existing duplicate
type CreationResult struct {
	Record    *entity.AccountingRecord
	Duplicate *Duplicate
	Created   bool
}

// Warnings returns the duplicate warnings, if any
func (r *CreationResult) Warnings() []string {
	if r.Duplicate == nil {
		return nil
	}
	return r.Duplicate.Warnings
}

// InvoiceCreator builds draft vendor bills for resolved purchase orders
type InvoiceCreator struct {
	records    port.AccountingRecordRepository
	partners   port.PartnerRepository
	refs       port.ReferenceDataProvider
	duplicates *DuplicateDetector
	logger     Logger
}

// NewInvoiceCreator creates a new InvoiceCreator
func NewInvoiceCreator(
	records port.AccountingRecordRepository,
	partners port.PartnerRepository,
	refs port.ReferenceDataProvider,
	duplicates *DuplicateDetector,
	logger Logger,
) *InvoiceCreator {
	return &InvoiceCreator{
		records:    records,
		partners:   partners,
		refs:       refs,
		duplicates: duplicates,
		logger:     logger,
	}
}

// CreateOrLink returns an existing non-cancelled bill covering the order, or creates a draft.
// Any error means nothing was written.
func (c *InvoiceCreator) CreateOrLink(ctx context.Context, po *entity.PurchaseOrder, data *entity.InvoiceData) (*CreationResult, error) {
	dup, err := c.duplicates.Find(ctx, po, data)
	if err != nil {
		return nil, fmt.Errorf("duplicate check: %w", err)
	}
	if dup != nil {
		return &CreationResult{Record: dup.Record, Duplicate: dup}, nil
	}

	partner, err := c.vendor(ctx, po, data)
	if err != nil {
		return nil, err
	}

	account, err := c.refs.ExpenseAccount(ctx)
	if err != nil {
		return nil, fmt.Errorf("expense account: %w", err)
	}

	tax, err := c.refs.PurchaseVAT(ctx)
	if err != nil {
		return nil, fmt.Errorf("purchase tax: %w", err)
	}

	docType, err := c.refs.DocumentType(ctx, data.DocumentType)
	if err != nil {
		return nil, fmt.Errorf("document type: %w", err)
	}

	distribution := po.FirstDistribution()
	if distribution.IsEmpty() {
		distribution, err = c.refs.DefaultDistribution(ctx)
		if err != nil {
			return nil, fmt.Errorf("cost allocation: %w", err)
		}
	}

	vat := partner.VAT
	if vat == "" {
		vat = data.CUIT
	}

	orderID := po.ID
	record := &entity.AccountingRecord{
		MoveType:        entity.MoveTypeInInvoice,
		State:           entity.RecordStateDraft,
		PartnerID:       partner.ID,
		PartnerVAT:      vat,
		Reference:       po.Reference,
		InvoiceDate:     data.InvoiceDate,
		DocumentNumber:  data.InvoiceNumber,
		PurchaseOrderID: &orderID,
		AmountTotal:     data.TotalAmount,
		Lines: []entity.AccountingLine{{
			ProductID:    po.FirstProductID(),
			Quantity:     1,
			PriceUnit:    data.BaseAmount,
			TaxID:        tax.ID,
			AccountID:    account.ID,
			Distribution: distribution,
		}},
	}
	if docType != nil {
		record.DocumentTypeID = &docType.ID
	}

	if err := c.records.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("create draft invoice: %w", err)
	}

	c.logger.Info("Draft invoice created",
		"record_id", record.ID,
		"purchase_order", po.Reference,
		"partner_id", partner.ID,
		"amount_total", record.AmountTotal)

	return &CreationResult{Record: record, Created: true}, nil
}

// vendor returns the order's partner, falling back to a partner whose VAT equals the extracted CUIT
func (c *InvoiceCreator) vendor(ctx context.Context, po *entity.PurchaseOrder, data *entity.InvoiceData) (*entity.Partner, error) {
	if po.Partner != nil {
		return po.Partner, nil
	}
	if po.PartnerID != nil {
		p, err := c.partners.GetByID(ctx, *po.PartnerID)
		if err != nil {
			return nil, fmt.Errorf("get vendor: %w", err)
		}
		if p != nil {
			return p, nil
		}
	}
	if data.CUIT != "" {
		p, err := c.partners.FindByVAT(ctx, data.CUIT)
		if err != nil {
			return nil, fmt.Errorf("find vendor by CUIT: %w", err)
		}
		if p != nil {
			c.logger.Info("Vendor resolved from CUIT", "purchase_order", po.Reference, "partner_id", p.ID)
			return p, nil
		}
	}
	return nil, ErrNoVendor
}
