package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/ap-invoice-intake/internal/domain/entity"
)

func int64Ptr(v int64) *int64 {
	return &v
}

func TestDuplicateDetector_Find(t *testing.T) {
	po := &entity.PurchaseOrder{ID: 5, Reference: "P01234", PartnerID: int64Ptr(40)}

	tests := []struct {
		name        string
		records     []*entity.AccountingRecord
		data        *entity.InvoiceData
		wantID      int64
		wantMatchBy string
		wantWarns   int
	}{
		{
			name: "reference match ignores whitespace",
			records: []*entity.AccountingRecord{
				{ID: 1, MoveType: entity.MoveTypeInInvoice, State: entity.RecordStatePosted, PartnerID: 40, Reference: "P 01234", PurchaseOrderID: int64Ptr(5)},
			},
			data:        &entity.InvoiceData{},
			wantID:      1,
			wantMatchBy: MatchByReference,
		},
		{
			name: "cancelled record ignored",
			records: []*entity.AccountingRecord{
				{ID: 1, MoveType: entity.MoveTypeInInvoice, State: entity.RecordStateCancel, PartnerID: 40, Reference: "P01234"},
			},
			data: &entity.InvoiceData{CUIT: "30-12345678-9", TotalAmount: 100},
		},
		{
			name: "other move type ignored",
			records: []*entity.AccountingRecord{
				{ID: 1, MoveType: "out_invoice", State: entity.RecordStateDraft, PartnerID: 40, Reference: "P01234"},
			},
			data: &entity.InvoiceData{},
		},
		{
			name: "vendor vat and total",
			records: []*entity.AccountingRecord{
				{ID: 2, MoveType: entity.MoveTypeInInvoice, State: entity.RecordStateDraft, PartnerID: 40, PartnerVAT: "30-12345678-9", Reference: "P07777", AmountTotal: 12100},
			},
			data:        &entity.InvoiceData{CUIT: "30-12345678-9", TotalAmount: 12100},
			wantID:      2,
			wantMatchBy: MatchByVATAndTotal,
			wantWarns:   1,
		},
		{
			name: "vat match with different total",
			records: []*entity.AccountingRecord{
				{ID: 2, MoveType: entity.MoveTypeInInvoice, State: entity.RecordStateDraft, PartnerVAT: "30-12345678-9", Reference: "P07777", AmountTotal: 500},
			},
			data: &entity.InvoiceData{CUIT: "30-12345678-9", TotalAmount: 12100},
		},
		{
			name: "vendor and order mismatch warned",
			records: []*entity.AccountingRecord{
				{ID: 3, MoveType: entity.MoveTypeInInvoice, State: entity.RecordStateDraft, PartnerID: 99, Reference: "P01234", PurchaseOrderID: int64Ptr(6)},
			},
			data:        &entity.InvoiceData{},
			wantID:      3,
			wantMatchBy: MatchByReference,
			wantWarns:   2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			detector := NewDuplicateDetector(&mockRecordRepo{records: tt.records}, &mockLogger{})

			dup, err := detector.Find(context.Background(), po, tt.data)

			require.NoError(t, err)
			if tt.wantID == 0 {
				assert.Nil(t, dup)
				return
			}
			require.NotNil(t, dup)
			assert.Equal(t, tt.wantID, dup.Record.ID)
			assert.Equal(t, tt.wantMatchBy, dup.MatchBy)
			assert.Len(t, dup.Warnings, tt.wantWarns)
		})
	}
}

func TestDuplicateDetector_Find_NoCUITSkipsAmountCheck(t *testing.T) {
	repo := &mockRecordRepo{records: []*entity.AccountingRecord{
		{ID: 2, MoveType: entity.MoveTypeInInvoice, State: entity.RecordStateDraft, PartnerVAT: "", Reference: "P07777", AmountTotal: 12100},
	}}
	detector := NewDuplicateDetector(repo, &mockLogger{})

	dup, err := detector.Find(context.Background(), &entity.PurchaseOrder{ID: 1, Reference: "P01234"}, &entity.InvoiceData{TotalAmount: 12100})

	require.NoError(t, err)
	assert.Nil(t, dup)
}
