// Package container provides dependency injection and lifecycle management
// for the invoice intake service.
package container

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/garyjia/ap-invoice-intake/internal/application/port"
	"github.com/garyjia/ap-invoice-intake/internal/application/service"
	"github.com/garyjia/ap-invoice-intake/internal/config"
	infraLark "github.com/garyjia/ap-invoice-intake/internal/infrastructure/external/lark"
	"github.com/garyjia/ap-invoice-intake/internal/infrastructure/external/openai"
	"github.com/garyjia/ap-invoice-intake/internal/infrastructure/ocr"
	"github.com/garyjia/ap-invoice-intake/internal/infrastructure/pdf"
	"github.com/garyjia/ap-invoice-intake/internal/infrastructure/persistence/repository"
	"github.com/garyjia/ap-invoice-intake/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/ap-invoice-intake/internal/infrastructure/storage"
	"github.com/garyjia/ap-invoice-intake/internal/infrastructure/worker"
	"github.com/garyjia/ap-invoice-intake/internal/invoice"
	"github.com/garyjia/ap-invoice-intake/internal/report"
	"github.com/garyjia/ap-invoice-intake/migrations"
	"github.com/garyjia/ap-invoice-intake/pkg/database"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	Conn *database.DB
	DB   *sqlite.DB
}

// ProvideDatabase opens the database and applies the embedded migrations.
func ProvideDatabase(cfg config.DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	conn, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, err
	}

	applied, err := database.NewMigrator(conn, logger).Run(migrations.FS)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	logger.Info("Database schema up to date", zap.Int("applied", applied))

	return &DatabaseBundle{
		Conn: conn,
		DB:   sqlite.NewDB(conn.DB, logger),
	}, nil
}

// ProvideRepositories creates all repositories over the shared connection.
func ProvideRepositories(db *sqlite.DB, logger *zap.Logger) (*RepositoryBundle, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	return &RepositoryBundle{
		Ticket:           repository.NewTicketRepository(db, logger),
		Thread:           repository.NewThreadRepository(db, logger),
		Attachment:       repository.NewAttachmentRepository(db, logger),
		PurchaseOrder:    repository.NewPurchaseOrderRepository(db, logger),
		Partner:          repository.NewPartnerRepository(db, logger),
		AccountingRecord: repository.NewAccountingRecordRepository(db, logger),
		Reference:        repository.NewReferenceRepository(db, logger),
		Stage:            repository.NewStageRepository(db, logger),
		BatchRun:         repository.NewBatchRunRepository(db, logger),
	}, nil
}

// ProvideOCR selects the OCR fallback engine. A nil engine means scanned PDFs yield no text;
// an unavailable tesseract install degrades to that instead of failing startup.
func ProvideOCR(ocrCfg config.OCRConfig, aiCfg config.OpenAIConfig, logger *zap.Logger) (port.OCREngine, error) {
	switch ocrCfg.Provider {
	case config.OCRProviderNone:
		logger.Info("OCR fallback disabled")
		return nil, nil

	case config.OCRProviderOpenAI:
		return openai.NewVisionOCR(openai.Config{
			APIKey:  aiCfg.APIKey,
			Model:   aiCfg.Model,
			BaseURL: aiCfg.BaseURL,
			Timeout: aiCfg.Timeout,
		}, logger), nil

	case config.OCRProviderTesseract:
		engine, err := ocr.NewTesseractEngine(ocrCfg.Languages, logger)
		if errors.Is(err, ocr.ErrUnavailable) {
			logger.Warn("Tesseract unavailable, OCR fallback disabled", zap.Error(err))
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return engine, nil
	}

	return nil, fmt.Errorf("unknown OCR provider: %s", ocrCfg.Provider)
}

// ProvideNotifier returns the Lark batch notifier, or nil when notifications are disabled.
func ProvideNotifier(cfg config.LarkConfig, logger *zap.Logger) port.Notifier {
	if !cfg.Enabled {
		return nil
	}
	client := infraLark.NewClient(infraLark.Config{
		AppID:     cfg.AppID,
		AppSecret: cfg.AppSecret,
		ChatID:    cfg.ChatID,
		BaseURL:   cfg.BaseURL,
	}, logger)
	return infraLark.NewNotifier(client, logger)
}

// ServiceDeps holds dependencies for creating application services.
type ServiceDeps struct {
	Config   *config.Config
	Repos    *RepositoryBundle
	Tx       port.TransactionManager
	OCR      port.OCREngine
	Notifier port.Notifier
	Storage  port.FileStorage
	Logger   *zap.Logger
}

// ProvideServices wires the intake pipeline and the services around it.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil || deps.Repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}

	cfg := deps.Config
	log := &zapLoggerAdapter{logger: deps.Logger}
	repos := deps.Repos

	extractor := pdf.NewTextExtractor(deps.OCR, pdf.Config{
		DPI:      cfg.OCR.DPI,
		MaxPages: cfg.OCR.MaxPages,
	}, deps.Logger.Named("pdf"))

	engine := invoice.NewEngine(
		invoice.WithVATRate(decimal.NewFromFloat(cfg.Reference.VATRate).Div(decimal.NewFromInt(100))),
	)

	refs := service.NewReferenceDataProvider(repos.Reference, service.ReferenceSettings{
		ExpenseAccountCode:  cfg.Reference.ExpenseAccountCode,
		ExpenseAccountType:  cfg.Reference.ExpenseAccountType,
		VATTaxCode:          cfg.Reference.VATTaxCode,
		VATRate:             cfg.Reference.VATRate,
		DefaultAnalyticCode: cfg.Reference.DefaultAnalyticCode,
		DocumentTypes:       cfg.Reference.DocumentTypes,
	}, log)

	duplicates := service.NewDuplicateDetector(repos.AccountingRecord, log)
	creator := service.NewInvoiceCreator(repos.AccountingRecord, repos.Partner, refs, duplicates, log)
	resolver := service.NewPOResolver(repos.PurchaseOrder, log)

	processor := service.NewTicketProcessor(
		repos.Ticket,
		repos.Thread,
		repos.Attachment,
		extractor,
		engine,
		resolver,
		creator,
		deps.Tx,
		cfg.Pipeline.AnnotationAuthor,
		log,
	)

	stages := service.NewStageService(repos.Stage, log)

	batch := service.NewBatchService(
		repos.Ticket,
		repos.BatchRun,
		stages,
		processor,
		deps.Notifier,
		service.BatchSettings{
			Team:    cfg.Pipeline.Team,
			Limit:   cfg.Pipeline.BatchLimit,
			Timeout: cfg.Pipeline.BatchTimeout,
		},
		log,
	)

	return &ServiceBundle{
		Batch:  batch,
		Stage:  stages,
		Ticket: service.NewTicketService(repos.Ticket, repos.Thread, repos.Attachment, deps.Tx, cfg.Pipeline.AnnotationAuthor, log),
		Report: service.NewReportService(repos.BatchRun, report.NewBatchReportWriter(deps.Logger.Named("report")), deps.Storage, log),
	}, nil
}

// ProvideStorage creates the report file storage.
func ProvideStorage(cfg config.ReportConfig, logger *zap.Logger) port.FileStorage {
	return storage.NewLocalFileStorage(cfg.OutputDir, logger)
}

// ProvideWorkers registers the scheduled batch when the worker is enabled.
func ProvideWorkers(cfg config.PipelineConfig, batch *service.BatchService, logger *zap.Logger) (*worker.Manager, *worker.BatchWorker) {
	manager := worker.NewManager(logger)
	if !cfg.WorkerEnabled {
		return manager, nil
	}

	bw := worker.NewBatchWorker(worker.BatchWorkerConfig{
		PollInterval: cfg.PollInterval,
		RunOnStart:   cfg.RunOnStart,
	}, batch, logger.Named("batch_worker"))
	manager.Register(bw)
	return manager, bw
}
