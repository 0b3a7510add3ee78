package container

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/garyjia/ap-invoice-intake/internal/application/port"
	"github.com/garyjia/ap-invoice-intake/internal/application/service"
	"github.com/garyjia/ap-invoice-intake/internal/config"
	"github.com/garyjia/ap-invoice-intake/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/ap-invoice-intake/internal/infrastructure/worker"
	"github.com/garyjia/ap-invoice-intake/pkg/database"
)

// Container manages all application dependencies and lifecycle.
// Components start in dependency order and are torn down in reverse.
type Container struct {
	config *config.Config
	logger *zap.Logger

	// Infrastructure - Data
	conn         *database.DB
	db           *sqlite.DB
	repositories *RepositoryBundle

	// Infrastructure - External
	ocr      port.OCREngine
	notifier port.Notifier
	storage  port.FileStorage

	// Application
	services *ServiceBundle

	// Workers
	workers     *worker.Manager
	batchWorker *worker.BatchWorker

	mu     sync.Mutex
	ready  atomic.Bool
	closed atomic.Bool
}

// RepositoryBundle groups all repositories for convenient access.
type RepositoryBundle struct {
	Ticket           port.TicketRepository
	Thread           port.ThreadRepository
	Attachment       port.AttachmentRepository
	PurchaseOrder    port.PurchaseOrderRepository
	Partner          port.PartnerRepository
	AccountingRecord port.AccountingRecordRepository
	Reference        port.ReferenceRepository
	Stage            port.StageRepository
	BatchRun         port.BatchRunRepository
}

// ServiceBundle groups all application services.
type ServiceBundle struct {
	Batch  *service.BatchService
	Stage  *service.StageService
	Ticket *service.TicketService
	Report *service.ReportService
}

// HealthStatus represents the health of all components.
type HealthStatus struct {
	Overall    bool                       `json:"overall"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth represents health of a single component.
type ComponentHealth struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// New creates a container from configuration. Call Start to initialize components.
func New(cfg *config.Config, logger *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Container{
		config: cfg,
		logger: logger,
	}, nil
}

// Start initializes all components:
// database and repositories, external adapters, services, stage bootstrap, then workers.
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container has been closed")
	}
	if c.ready.Load() {
		return fmt.Errorf("container already started")
	}

	c.logger.Info("Starting container initialization")

	if err := c.initDatabase(); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	c.logger.Info("Database initialized")

	if err := c.initExternal(); err != nil {
		return fmt.Errorf("failed to initialize external adapters: %w", err)
	}
	c.logger.Info("External adapters initialized")

	if err := c.initServices(); err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	c.logger.Info("Application services initialized")

	if c.config.Pipeline.EnsureStages {
		created, err := c.services.Stage.EnsureStages(ctx)
		if err != nil {
			return fmt.Errorf("failed to ensure stages: %w", err)
		}
		if len(created) > 0 {
			c.logger.Info("Created missing stages", zap.Strings("stages", created))
		}
	}

	c.workers, c.batchWorker = ProvideWorkers(c.config.Pipeline, c.services.Batch, c.logger)
	if err := c.workers.StartAll(ctx); err != nil {
		return fmt.Errorf("failed to start workers: %w", err)
	}

	c.ready.Store(true)
	c.logger.Info("Container started successfully")
	return nil
}

// Close gracefully shuts down all components in reverse order.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container already closed")
	}

	c.logger.Info("Closing container")

	var errs []error

	if c.workers != nil {
		if err := c.workers.StopAll(); err != nil {
			c.logger.Error("Failed to stop workers", zap.Error(err))
			errs = append(errs, fmt.Errorf("stop workers: %w", err))
		}
	}

	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			c.logger.Error("Failed to close database", zap.Error(err))
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}

	c.closed.Store(true)
	c.ready.Store(false)

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	c.logger.Info("Container closed successfully")
	return nil
}

// Ready returns true when all components are initialized.
func (c *Container) Ready() bool {
	return c.ready.Load()
}

// Health returns health status of all components.
func (c *Container) Health(ctx context.Context) *HealthStatus {
	status := &HealthStatus{
		Overall:    true,
		Components: make(map[string]ComponentHealth),
	}

	if c.conn == nil {
		status.Components["database"] = ComponentHealth{Healthy: false, Message: "not initialized"}
		status.Overall = false
	} else if err := c.conn.PingContext(ctx); err != nil {
		status.Components["database"] = ComponentHealth{Healthy: false, Message: fmt.Sprintf("ping failed: %v", err)}
		status.Overall = false
	} else {
		status.Components["database"] = ComponentHealth{Healthy: true}
	}

	if c.services != nil {
		if err := c.services.Stage.Check(ctx); err != nil {
			status.Components["stages"] = ComponentHealth{Healthy: false, Message: err.Error()}
			status.Overall = false
		} else {
			status.Components["stages"] = ComponentHealth{Healthy: true}
		}
	}

	if c.ocr != nil {
		status.Components["ocr"] = ComponentHealth{Healthy: true, Message: c.ocr.Name()}
	} else {
		status.Components["ocr"] = ComponentHealth{Healthy: true, Message: "disabled"}
	}

	if c.batchWorker != nil {
		ws := c.batchWorker.Status()
		msg := fmt.Sprintf("runs: %d, failures: %d", ws.Runs, ws.Failures)
		if ws.LastError != "" {
			msg += ", last error: " + ws.LastError
		}
		status.Components["batch_worker"] = ComponentHealth{Healthy: ws.Running, Message: msg}
		if !ws.Running {
			status.Overall = false
		}
	}

	return status
}

func (c *Container) initDatabase() error {
	bundle, err := ProvideDatabase(c.config.Database, c.logger)
	if err != nil {
		return err
	}
	c.conn = bundle.Conn
	c.db = bundle.DB

	repos, err := ProvideRepositories(c.db, c.logger)
	if err != nil {
		c.conn.Close()
		return err
	}
	c.repositories = repos
	return nil
}

func (c *Container) initExternal() error {
	engine, err := ProvideOCR(c.config.OCR, c.config.OpenAI, c.logger.Named("ocr"))
	if err != nil {
		return err
	}
	c.ocr = engine
	c.notifier = ProvideNotifier(c.config.Notify.Lark, c.logger.Named("lark"))
	c.storage = ProvideStorage(c.config.Report, c.logger)
	return nil
}

func (c *Container) initServices() error {
	services, err := ProvideServices(&ServiceDeps{
		Config:   c.config,
		Repos:    c.repositories,
		Tx:       c.db,
		OCR:      c.ocr,
		Notifier: c.notifier,
		Storage:  c.storage,
		Logger:   c.logger,
	})
	if err != nil {
		return err
	}
	c.services = services
	return nil
}

// DB returns the transaction manager.
func (c *Container) DB() port.TransactionManager {
	return c.db
}

// Repositories returns all repositories.
func (c *Container) Repositories() *RepositoryBundle {
	return c.repositories
}

// Services returns all application services.
func (c *Container) Services() *ServiceBundle {
	return c.services
}

// Logger returns the container's logger.
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// Config returns the container's configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// NewServiceLogger adapts a zap logger to the key/value logger the services and handlers take.
func NewServiceLogger(logger *zap.Logger) service.Logger {
	return &zapLoggerAdapter{logger: logger}
}

// zapLoggerAdapter adapts zap.Logger to the service.Logger interface.
type zapLoggerAdapter struct {
	logger *zap.Logger
}

func (a *zapLoggerAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.logger.Info(msg, convertToZapFields(keysAndValues...)...)
}

func (a *zapLoggerAdapter) Error(msg string, keysAndValues ...interface{}) {
	a.logger.Error(msg, convertToZapFields(keysAndValues...)...)
}

// convertToZapFields converts key-value pairs to zap fields.
func convertToZapFields(keysAndValues ...interface{}) []zap.Field {
	fields := make([]zap.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		if err, isErr := keysAndValues[i+1].(error); isErr {
			fields = append(fields, zap.NamedError(key, err))
			continue
		}
		fields = append(fields, zap.Any(key, keysAndValues[i+1]))
	}
	return fields
}
