package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/ap-invoice-intake/internal/domain/entity"
	"github.com/garyjia/ap-invoice-intake/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/ap-invoice-intake/migrations"
	"github.com/garyjia/ap-invoice-intake/pkg/database"
)

func setupTestDB(t *testing.T) *sqlite.DB {
	t.Helper()

	logger := zap.NewNop()
	db, err := database.New(database.Config{Path: database.MemoryPath}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = database.NewMigrator(db, logger).Run(migrations.FS)
	require.NoError(t, err)

	return sqlite.NewDB(db.DB, logger)
}

func seedPurchaseOrder(t *testing.T, db *sqlite.DB, reference string) (orderID, partnerID int64) {
	t.Helper()
	ctx := context.Background()

	res, err := db.ExecContext(ctx, `INSERT INTO partners (name, vat) VALUES ('Proveedor SA', '30-12345678-9')`)
	require.NoError(t, err)
	partnerID, _ = res.LastInsertId()

	res, err = db.ExecContext(ctx, `INSERT INTO products (name, default_code) VALUES ('Servicio mensual', 'SRV')`)
	require.NoError(t, err)
	productID, _ := res.LastInsertId()

	res, err = db.ExecContext(ctx, `INSERT INTO purchase_orders (reference, partner_id) VALUES (?, ?)`, reference, partnerID)
	require.NoError(t, err)
	orderID, _ = res.LastInsertId()

	_, err = db.ExecContext(ctx,
		`INSERT INTO purchase_order_lines (order_id, product_id, distribution) VALUES (?, ?, '{"1":100}')`,
		orderID, productID)
	require.NoError(t, err)

	return orderID, partnerID
}

func TestTicketRepository_CreateListApply(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTicketRepository(db, zap.NewNop())
	ctx := context.Background()

	a := &entity.Ticket{Name: "Factura A", Team: "AP", Stage: entity.StageNewInvoices}
	b := &entity.Ticket{Name: "Factura B", Team: "AP", Stage: entity.StageNewInvoices}
	c := &entity.Ticket{Name: "Factura C", Team: "Compras", Stage: entity.StageNewInvoices}
	for _, tk := range []*entity.Ticket{a, b, c} {
		require.NoError(t, repo.Create(ctx, tk))
		assert.NotZero(t, tk.ID)
	}

	got, err := repo.List(ctx, entity.TicketFilter{Stage: entity.StageNewInvoices, Team: "AP"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, a.ID, got[0].ID)

	got, err = repo.List(ctx, entity.TicketFilter{Stage: entity.StageNewInvoices, Limit: 1})
	require.NoError(t, err)
	assert.Len(t, got, 1)

	po := "P09999"
	require.NoError(t, repo.Apply(ctx, a.ID, entity.TicketUpdate{Stage: entity.StagePOInexistent, PONumber: &po}))

	stored, err := repo.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StagePOInexistent, stored.Stage)
	assert.Equal(t, "P09999", stored.PONumber)
	assert.Empty(t, stored.CUIT)
	assert.Nil(t, stored.InvoiceID)

	missing, err := repo.GetByID(ctx, 9999)
	require.NoError(t, err)
	assert.Nil(t, missing)

	assert.Error(t, repo.Apply(ctx, 9999, entity.TicketUpdate{Stage: entity.StageNoPDF}))
}

func TestAttachmentRepository_OwnersAndMimeFilter(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	tickets := NewTicketRepository(db, zap.NewNop())
	threads := NewThreadRepository(db, zap.NewNop())
	repo := NewAttachmentRepository(db, zap.NewNop())

	ticket := &entity.Ticket{Name: "Factura", Stage: entity.StageNewInvoices}
	require.NoError(t, tickets.Create(ctx, ticket))
	msg := &entity.ThreadMessage{TicketID: ticket.ID, Author: "proveedor", Body: "Adjunto"}
	require.NoError(t, threads.Append(ctx, msg))

	onTicket := &entity.Attachment{TicketID: &ticket.ID, Name: "f.pdf", MimeType: entity.MimeTypePDF, Data: []byte("%PDF-1.4")}
	image := &entity.Attachment{TicketID: &ticket.ID, Name: "foto.png", MimeType: "image/png", Data: []byte("png")}
	onMessage := &entity.Attachment{MessageID: &msg.ID, Name: "mail.pdf", MimeType: entity.MimeTypePDF, Data: []byte("%PDF-1.7")}
	for _, a := range []*entity.Attachment{onTicket, image, onMessage} {
		require.NoError(t, repo.Create(ctx, a))
	}

	pdfs, err := repo.ListByTicket(ctx, ticket.ID, entity.MimeTypePDF)
	require.NoError(t, err)
	require.Len(t, pdfs, 1)
	assert.Equal(t, "f.pdf", pdfs[0].Name)
	assert.Nil(t, pdfs[0].Data)
	assert.Equal(t, int64(8), pdfs[0].Size)

	all, err := repo.ListByTicket(ctx, ticket.ID, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	fromMsg, err := repo.ListByMessage(ctx, msg.ID, entity.MimeTypePDF)
	require.NoError(t, err)
	require.Len(t, fromMsg, 1)

	data, err := repo.GetData(ctx, fromMsg[0].ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.7"), data)

	thread, err := threads.ListByTicket(ctx, ticket.ID)
	require.NoError(t, err)
	require.Len(t, thread, 1)
	assert.Equal(t, entity.MessageKindComment, thread[0].Kind)
}

func TestPurchaseOrderRepository_Lookups(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPurchaseOrderRepository(db, zap.NewNop())
	ctx := context.Background()
	orderID, partnerID := seedPurchaseOrder(t, db, "P01234")

	tests := []struct {
		name  string
		find  func() ([]*entity.PurchaseOrder, error)
		found bool
	}{
		{
			name:  "exact ignoring case",
			find:  func() ([]*entity.PurchaseOrder, error) { return repo.FindByReferences(ctx, []string{"x", "p01234"}) },
			found: true,
		},
		{
			name:  "exact miss",
			find:  func() ([]*entity.PurchaseOrder, error) { return repo.FindByReferences(ctx, []string{"P1234"}) },
			found: false,
		},
		{
			name:  "containing digits",
			find:  func() ([]*entity.PurchaseOrder, error) { return repo.FindByReferenceContaining(ctx, []string{"1234"}) },
			found: true,
		},
		{
			name:  "containing miss",
			find:  func() ([]*entity.PurchaseOrder, error) { return repo.FindByReferenceContaining(ctx, []string{"PO01234"}) },
			found: false,
		},
		{
			name:  "no references",
			find:  func() ([]*entity.PurchaseOrder, error) { return repo.FindByReferences(ctx, nil) },
			found: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orders, err := tt.find()
			require.NoError(t, err)
			if !tt.found {
				assert.Empty(t, orders)
				return
			}
			require.Len(t, orders, 1)
			po := orders[0]
			assert.Equal(t, orderID, po.ID)
			require.NotNil(t, po.Partner)
			assert.Equal(t, partnerID, po.Partner.ID)
			assert.Equal(t, "30-12345678-9", po.Partner.VAT)
			require.Len(t, po.Lines, 1)
			assert.Equal(t, "Servicio mensual", po.Lines[0].ProductName)
			assert.Equal(t, entity.Distribution{1: 100}, po.FirstDistribution())
		})
	}
}

func TestAccountingRecordRepository_CreateAndFind(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAccountingRecordRepository(db, zap.NewNop())
	ctx := context.Background()
	orderID, partnerID := seedPurchaseOrder(t, db, "P01234")

	record := &entity.AccountingRecord{
		MoveType:        entity.MoveTypeInInvoice,
		State:           entity.RecordStateDraft,
		PartnerID:       partnerID,
		PartnerVAT:      "30-12345678-9",
		Reference:       "P01234",
		InvoiceDate:     time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		DocumentNumber:  "0003-00012345",
		PurchaseOrderID: &orderID,
		AmountTotal:     12100,
		Lines: []entity.AccountingLine{{
			Quantity:     1,
			PriceUnit:    10000,
			TaxID:        1,
			AccountID:    1,
			Distribution: entity.Distribution{1: 100},
		}},
	}
	require.NoError(t, repo.Create(ctx, record))
	assert.NotZero(t, record.ID)
	assert.Equal(t, record.ID, record.Lines[0].RecordID)

	stored, err := repo.GetByID(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, "P01234", stored.Reference)
	require.Len(t, stored.Lines, 1)
	assert.Equal(t, entity.Distribution{1: 100}, stored.Lines[0].Distribution)

	active, err := repo.ListActive(ctx, entity.MoveTypeInInvoice)
	require.NoError(t, err)
	assert.Len(t, active, 1)

	found, err := repo.FindByVATAndTotal(ctx, entity.MoveTypeInInvoice, "30-12345678-9", 12100)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, record.ID, found.ID)

	found, err = repo.FindByVATAndTotal(ctx, entity.MoveTypeInInvoice, "30-12345678-9", 12100.004)
	require.NoError(t, err)
	require.NotNil(t, found, "totals within half a cent match")

	found, err = repo.FindByVATAndTotal(ctx, entity.MoveTypeInInvoice, "30-12345678-9", 12100.02)
	require.NoError(t, err)
	assert.Nil(t, found, "totals two cents apart do not match")

	_, err = db.ExecContext(ctx, `UPDATE accounting_records SET state = ? WHERE id = ?`, entity.RecordStateCancel, record.ID)
	require.NoError(t, err)

	active, err = repo.ListActive(ctx, entity.MoveTypeInInvoice)
	require.NoError(t, err)
	assert.Empty(t, active)

	found, err = repo.FindByVATAndTotal(ctx, entity.MoveTypeInInvoice, "30-12345678-9", 12100)
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestTransactionRollsBackRepositoryWrites(t *testing.T) {
	db := setupTestDB(t)
	tickets := NewTicketRepository(db, zap.NewNop())
	threads := NewThreadRepository(db, zap.NewNop())
	ctx := context.Background()

	ticket := &entity.Ticket{Name: "Factura", Stage: entity.StageNewInvoices}
	require.NoError(t, tickets.Create(ctx, ticket))

	err := db.WithTransaction(ctx, func(ctx context.Context) error {
		if err := tickets.Apply(ctx, ticket.ID, entity.TicketUpdate{Stage: entity.StageNoPDF}); err != nil {
			return err
		}
		if err := threads.Append(ctx, &entity.ThreadMessage{TicketID: ticket.ID, Body: "moved", Kind: entity.MessageKindNote}); err != nil {
			return err
		}
		return errors.New("annotation rejected")
	})
	require.Error(t, err)

	stored, err := tickets.GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StageNewInvoices, stored.Stage)

	thread, err := threads.ListByTicket(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Empty(t, thread)
}

func TestReferenceRepository_SeedData(t *testing.T) {
	db := setupTestDB(t)
	repo := NewReferenceRepository(db, zap.NewNop())
	ctx := context.Background()

	acc, err := repo.GetAccountByCode(ctx, "511100000")
	require.NoError(t, err)
	require.NotNil(t, acc)
	assert.Equal(t, "expense", acc.AccountType)

	byType, err := repo.FindAccountByType(ctx, "expense")
	require.NoError(t, err)
	assert.Equal(t, acc.ID, byType.ID)

	tax, err := repo.FindPurchaseTaxByRate(ctx, 21)
	require.NoError(t, err)
	require.NotNil(t, tax)
	assert.Equal(t, "purchase", tax.TypeTaxUse)

	dt, err := repo.FindDocumentType(ctx, []string{"999", "FACTURAS B"})
	require.NoError(t, err)
	require.NotNil(t, dt)
	assert.Equal(t, "006", dt.Code)

	dt, err = repo.FindDocumentType(ctx, []string{"011"})
	require.NoError(t, err)
	assert.Equal(t, "FACTURAS C", dt.Name)

	analytic, err := repo.GetDefaultAnalyticAccount(ctx)
	require.NoError(t, err)
	require.NotNil(t, analytic)
	assert.True(t, analytic.IsDefault)

	none, err := repo.GetTaxByCode(ctx, "NOPE")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestStageRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewStageRepository(db, zap.NewNop())
	ctx := context.Background()

	for _, def := range entity.RequiredStages {
		require.NoError(t, repo.Create(ctx, &entity.Stage{Code: def.Code, Name: def.Name, Sequence: def.Sequence}))
	}

	stages, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, stages, len(entity.RequiredStages))
	assert.Equal(t, entity.StageNewInvoices, stages[0].Code)

	assert.Error(t, repo.Create(ctx, &entity.Stage{Code: entity.StageNoPDF, Name: "dup"}))
}

func TestBatchRunRepository_FinishAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewBatchRunRepository(db, zap.NewNop())
	ctx := context.Background()

	started := time.Date(2024, 4, 1, 10, 0, 0, 0, time.UTC)
	run := &entity.BatchRun{ID: "run-1", Trigger: entity.RunTriggerSchedule, StartedAt: started}
	require.NoError(t, repo.Create(ctx, run))

	invoiceID := int64(77)
	run.Record(entity.BatchRunTicket{RunID: "run-1", TicketID: 1, TicketName: "A", Stage: entity.StageInvoiceLinked, PONumber: "P01234", InvoiceID: &invoiceID})
	run.Record(entity.BatchRunTicket{RunID: "run-1", TicketID: 2, TicketName: "B", Stage: entity.StageNoPDF})
	finished := started.Add(time.Minute)
	run.FinishedAt = &finished
	run.Success = true

	require.NoError(t, repo.Finish(ctx, run))
	require.NoError(t, repo.Finish(ctx, run))

	stored, err := repo.GetByID(ctx, "run-1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.True(t, stored.Success)
	assert.Equal(t, 2, stored.TicketCount)
	assert.Equal(t, 1, stored.Linked)
	require.Len(t, stored.Tickets, 2)
	assert.Equal(t, int64(1), stored.Tickets[0].TicketID)
	require.NotNil(t, stored.Tickets[0].InvoiceID)
	assert.Equal(t, invoiceID, *stored.Tickets[0].InvoiceID)
	require.NotNil(t, stored.FinishedAt)

	runs, err := repo.List(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, runs, 1)

	missing, err := repo.GetByID(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}
