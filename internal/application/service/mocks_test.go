package service

import (
	"context"
	"strings"

	"github.com/stretchr/testify/mock"

	"github.com/garyjia/ap-invoice-intake/internal/domain/entity"
)

type mockLogger struct{}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{})  {}
func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {}

type mockTxManager struct {
	withTransactionFunc func(ctx context.Context, fn func(ctx context.Context) error) error
}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.withTransactionFunc != nil {
		return m.withTransactionFunc(ctx, fn)
	}
	return fn(ctx)
}

// mockTicketRepo keeps tickets in memory unless a func field overrides the call
type mockTicketRepo struct {
	tickets map[int64]*entity.Ticket
	nextID  int64
	updates []entity.TicketUpdate

	listFunc    func(ctx context.Context, filter entity.TicketFilter) ([]*entity.Ticket, error)
	getByIDFunc func(ctx context.Context, id int64) (*entity.Ticket, error)
	applyFunc   func(ctx context.Context, id int64, update entity.TicketUpdate) error
}

func newMockTicketRepo(tickets ...*entity.Ticket) *mockTicketRepo {
	m := &mockTicketRepo{tickets: make(map[int64]*entity.Ticket)}
	for _, t := range tickets {
		m.tickets[t.ID] = t
		if t.ID > m.nextID {
			m.nextID = t.ID
		}
	}
	return m
}

func (m *mockTicketRepo) Create(ctx context.Context, ticket *entity.Ticket) error {
	m.nextID++
	ticket.ID = m.nextID
	m.tickets[ticket.ID] = ticket
	return nil
}

func (m *mockTicketRepo) GetByID(ctx context.Context, id int64) (*entity.Ticket, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	t, ok := m.tickets[id]
	if !ok {
		return nil, nil
	}
	copied := *t
	return &copied, nil
}

func (m *mockTicketRepo) List(ctx context.Context, filter entity.TicketFilter) ([]*entity.Ticket, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, filter)
	}
	var out []*entity.Ticket
	for id := int64(1); id <= m.nextID; id++ {
		t, ok := m.tickets[id]
		if !ok || t.Stage != filter.Stage || (filter.Team != "" && t.Team != filter.Team) {
			continue
		}
		copied := *t
		out = append(out, &copied)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

func (m *mockTicketRepo) Apply(ctx context.Context, id int64, update entity.TicketUpdate) error {
	if m.applyFunc != nil {
		return m.applyFunc(ctx, id, update)
	}
	m.updates = append(m.updates, update)
	if t, ok := m.tickets[id]; ok {
		applyUpdate(t, update)
	}
	return nil
}

type mockThreadRepo struct {
	messages []*entity.ThreadMessage
	nextID   int64

	appendFunc func(ctx context.Context, msg *entity.ThreadMessage) error
}

func (m *mockThreadRepo) Append(ctx context.Context, msg *entity.ThreadMessage) error {
	if m.appendFunc != nil {
		return m.appendFunc(ctx, msg)
	}
	m.nextID++
	msg.ID = m.nextID
	m.messages = append(m.messages, msg)
	return nil
}

func (m *mockThreadRepo) ListByTicket(ctx context.Context, ticketID int64) ([]*entity.ThreadMessage, error) {
	var out []*entity.ThreadMessage
	for _, msg := range m.messages {
		if msg.TicketID == ticketID {
			out = append(out, msg)
		}
	}
	return out, nil
}

// notes returns the bodies of pipeline notes on a ticket
func (m *mockThreadRepo) notes(ticketID int64) []string {
	var out []string
	for _, msg := range m.messages {
		if msg.TicketID == ticketID && msg.Kind == entity.MessageKindNote {
			out = append(out, msg.Body)
		}
	}
	return out
}

type mockAttachmentRepo struct {
	attachments []*entity.Attachment
	nextID      int64

	getDataFunc func(ctx context.Context, id int64) ([]byte, error)
}

func (m *mockAttachmentRepo) add(att *entity.Attachment) {
	m.nextID++
	att.ID = m.nextID
	m.attachments = append(m.attachments, att)
}

func (m *mockAttachmentRepo) Create(ctx context.Context, att *entity.Attachment) error {
	m.add(att)
	return nil
}

func (m *mockAttachmentRepo) ListByTicket(ctx context.Context, ticketID int64, mimeType string) ([]*entity.Attachment, error) {
	var out []*entity.Attachment
	for _, a := range m.attachments {
		if a.TicketID != nil && *a.TicketID == ticketID && (mimeType == "" || a.MimeType == mimeType) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *mockAttachmentRepo) ListByMessage(ctx context.Context, messageID int64, mimeType string) ([]*entity.Attachment, error) {
	var out []*entity.Attachment
	for _, a := range m.attachments {
		if a.MessageID != nil && *a.MessageID == messageID && (mimeType == "" || a.MimeType == mimeType) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *mockAttachmentRepo) GetData(ctx context.Context, id int64) ([]byte, error) {
	if m.getDataFunc != nil {
		return m.getDataFunc(ctx, id)
	}
	for _, a := range m.attachments {
		if a.ID == id {
			return a.Data, nil
		}
	}
	return nil, nil
}

// mockPORepo matches references in memory the way the SQL repository does
type mockPORepo struct {
	orders []*entity.PurchaseOrder
	calls  []string

	findByReferencesFunc func(ctx context.Context, refs []string) ([]*entity.PurchaseOrder, error)
}

func (m *mockPORepo) GetByID(ctx context.Context, id int64) (*entity.PurchaseOrder, error) {
	for _, o := range m.orders {
		if o.ID == id {
			return o, nil
		}
	}
	return nil, nil
}

func (m *mockPORepo) FindByReferences(ctx context.Context, refs []string) ([]*entity.PurchaseOrder, error) {
	m.calls = append(m.calls, "exact")
	if m.findByReferencesFunc != nil {
		return m.findByReferencesFunc(ctx, refs)
	}
	var out []*entity.PurchaseOrder
	for _, o := range m.orders {
		for _, r := range refs {
			if strings.EqualFold(o.Reference, r) {
				out = append(out, o)
				break
			}
		}
	}
	return out, nil
}

func (m *mockPORepo) FindByReferenceContaining(ctx context.Context, fragments []string) ([]*entity.PurchaseOrder, error) {
	m.calls = append(m.calls, "contains")
	var out []*entity.PurchaseOrder
	for _, o := range m.orders {
		for _, f := range fragments {
			if strings.Contains(strings.ToUpper(o.Reference), strings.ToUpper(f)) {
				out = append(out, o)
				break
			}
		}
	}
	return out, nil
}

type mockPartnerRepo struct {
	partners []*entity.Partner
}

func (m *mockPartnerRepo) GetByID(ctx context.Context, id int64) (*entity.Partner, error) {
	for _, p := range m.partners {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, nil
}

func (m *mockPartnerRepo) FindByVAT(ctx context.Context, vat string) (*entity.Partner, error) {
	for _, p := range m.partners {
		if p.VAT == vat {
			return p, nil
		}
	}
	return nil, nil
}

type mockRecordRepo struct {
	records []*entity.AccountingRecord
	nextID  int64

	createFunc     func(ctx context.Context, record *entity.AccountingRecord) error
	listActiveFunc func(ctx context.Context, moveType string) ([]*entity.AccountingRecord, error)
}

func (m *mockRecordRepo) Create(ctx context.Context, record *entity.AccountingRecord) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, record)
	}
	m.nextID++
	record.ID = 1000 + m.nextID
	m.records = append(m.records, record)
	return nil
}

func (m *mockRecordRepo) GetByID(ctx context.Context, id int64) (*entity.AccountingRecord, error) {
	for _, r := range m.records {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, nil
}

func (m *mockRecordRepo) ListActive(ctx context.Context, moveType string) ([]*entity.AccountingRecord, error) {
	if m.listActiveFunc != nil {
		return m.listActiveFunc(ctx, moveType)
	}
	var out []*entity.AccountingRecord
	for _, r := range m.records {
		if r.MoveType == moveType && r.State != entity.RecordStateCancel {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockRecordRepo) FindByVATAndTotal(ctx context.Context, moveType, vat string, total float64) (*entity.AccountingRecord, error) {
	for _, r := range m.records {
		if r.MoveType == moveType && r.State != entity.RecordStateCancel && r.PartnerVAT == vat && r.AmountTotal == total {
			return r, nil
		}
	}
	return nil, nil
}

type mockReferenceProvider struct {
	expenseAccountFunc      func(ctx context.Context) (*entity.Account, error)
	purchaseVATFunc         func(ctx context.Context) (*entity.Tax, error)
	documentTypeFunc        func(ctx context.Context, code string) (*entity.DocumentType, error)
	defaultDistributionFunc func(ctx context.Context) (entity.Distribution, error)
}

func (m *mockReferenceProvider) ExpenseAccount(ctx context.Context) (*entity.Account, error) {
	if m.expenseAccountFunc != nil {
		return m.expenseAccountFunc(ctx)
	}
	return &entity.Account{ID: 11, Code: "511100000", AccountType: "expense"}, nil
}

func (m *mockReferenceProvider) PurchaseVAT(ctx context.Context) (*entity.Tax, error) {
	if m.purchaseVATFunc != nil {
		return m.purchaseVATFunc(ctx)
	}
	return &entity.Tax{ID: 21, Code: "VAT21_PURCHASE", Rate: 21, TypeTaxUse: "purchase"}, nil
}

func (m *mockReferenceProvider) DocumentType(ctx context.Context, code string) (*entity.DocumentType, error) {
	if m.documentTypeFunc != nil {
		return m.documentTypeFunc(ctx, code)
	}
	if code == entity.DocTypeFacturaA {
		return &entity.DocumentType{ID: 1, Code: "001", Name: "FACTURAS A"}, nil
	}
	return nil, nil
}

func (m *mockReferenceProvider) DefaultDistribution(ctx context.Context) (entity.Distribution, error) {
	if m.defaultDistributionFunc != nil {
		return m.defaultDistributionFunc(ctx)
	}
	return entity.Distribution{99: 100}, nil
}

type mockStageRepo struct {
	stages []*entity.Stage

	listFunc   func(ctx context.Context) ([]*entity.Stage, error)
	createFunc func(ctx context.Context, stage *entity.Stage) error
}

func newMockStageRepo(complete bool) *mockStageRepo {
	m := &mockStageRepo{}
	if complete {
		for i, def := range entity.RequiredStages {
			m.stages = append(m.stages, &entity.Stage{ID: int64(i + 1), Code: def.Code, Name: def.Name, Sequence: def.Sequence})
		}
	}
	return m
}

func (m *mockStageRepo) List(ctx context.Context) ([]*entity.Stage, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx)
	}
	return m.stages, nil
}

func (m *mockStageRepo) Create(ctx context.Context, stage *entity.Stage) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, stage)
	}
	stage.ID = int64(len(m.stages) + 1)
	m.stages = append(m.stages, stage)
	return nil
}

type mockBatchRunRepo struct {
	created  []*entity.BatchRun
	finished []*entity.BatchRun
	runs     map[string]*entity.BatchRun
}

func (m *mockBatchRunRepo) Create(ctx context.Context, run *entity.BatchRun) error {
	m.created = append(m.created, run)
	return nil
}

func (m *mockBatchRunRepo) Finish(ctx context.Context, run *entity.BatchRun) error {
	m.finished = append(m.finished, run)
	return nil
}

func (m *mockBatchRunRepo) GetByID(ctx context.Context, id string) (*entity.BatchRun, error) {
	return m.runs[id], nil
}

func (m *mockBatchRunRepo) List(ctx context.Context, limit int) ([]*entity.BatchRun, error) {
	var out []*entity.BatchRun
	for _, r := range m.runs {
		out = append(out, r)
	}
	return out, nil
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) NotifyBatch(ctx context.Context, run *entity.BatchRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

// fakeExtractor returns the text registered for a PDF payload
type fakeExtractor struct {
	texts map[string]string
	panic bool
}

func (f *fakeExtractor) Extract(ctx context.Context, pdf []byte) string {
	if f.panic {
		panic("corrupt xref table")
	}
	return f.texts[string(pdf)]
}

type mockFileStorage struct {
	saved map[string][]byte
}

func (m *mockFileStorage) Save(ctx context.Context, path string, content []byte) error {
	if m.saved == nil {
		m.saved = make(map[string][]byte)
	}
	m.saved[path] = content
	return nil
}

func (m *mockFileStorage) GetFullPath(relativePath string) string {
	return "/data/reports/" + relativePath
}
