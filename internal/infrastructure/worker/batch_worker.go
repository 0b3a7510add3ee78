package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/ap-invoice-intake/internal/application/service"
	"github.com/garyjia/ap-invoice-intake/internal/domain/entity"
)

// BatchRunner runs one invoice intake batch
type BatchRunner interface {
	Run(ctx context.Context, req service.BatchRequest) (*entity.BatchRun, error)
}

// BatchWorkerConfig holds configuration for the scheduled batch
type BatchWorkerConfig struct {
	PollInterval time.Duration
	RunOnStart   bool
}

// BatchWorkerStatus is a snapshot of the worker's last activity
type BatchWorkerStatus struct {
	Running   bool      `json:"running"`
	Runs      int       `json:"runs"`
	Failures  int       `json:"failures"`
	LastRunID string    `json:"last_run_id,omitempty"`
	LastRunAt time.Time `json:"last_run_at,omitempty"`
	LastError string    `json:"last_error,omitempty"`
}

// BatchWorker processes the new-invoices stage on a fixed interval
type BatchWorker struct {
	config BatchWorkerConfig
	runner BatchRunner
	logger *zap.Logger

	mu      sync.RWMutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
	status  BatchWorkerStatus
}

// NewBatchWorker creates a new batch worker
func NewBatchWorker(config BatchWorkerConfig, runner BatchRunner, logger *zap.Logger) *BatchWorker {
	if config.PollInterval <= 0 {
		config.PollInterval = 5 * time.Minute
	}
	return &BatchWorker{
		config: config,
		runner: runner,
		logger: logger,
	}
}

// Start begins the polling loop
func (w *BatchWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("batch worker already running")
	}

	ctx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})
	w.running = true
	w.status.Running = true

	w.logger.Info("BatchWorker started",
		zap.Duration("poll_interval", w.config.PollInterval),
		zap.Bool("run_on_start", w.config.RunOnStart))

	go w.loop(ctx, w.done)
	return nil
}

// Stop cancels the loop and waits for an in-flight batch to return
func (w *BatchWorker) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	w.status.Running = false
	cancel, done := w.cancel, w.done
	w.mu.Unlock()

	cancel()
	<-done

	status := w.Status()
	w.logger.Info("BatchWorker stopped",
		zap.Int("runs", status.Runs),
		zap.Int("failures", status.Failures))
	return nil
}

// Name returns the worker name for identification
func (w *BatchWorker) Name() string {
	return "BatchWorker"
}

// Status returns a copy of the current status
func (w *BatchWorker) Status() BatchWorkerStatus {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.status
}

func (w *BatchWorker) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	if w.config.RunOnStart {
		w.runOnce(ctx)
	}

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("Batch loop context cancelled")
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

func (w *BatchWorker) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	run, err := w.runner.Run(ctx, service.BatchRequest{Trigger: entity.RunTriggerSchedule})

	w.mu.Lock()
	defer w.mu.Unlock()

	w.status.Runs++
	w.status.LastRunAt = time.Now()
	if run != nil {
		w.status.LastRunID = run.ID
	}
	if err != nil {
		w.status.Failures++
		w.status.LastError = err.Error()
		w.logger.Error("Scheduled batch failed", zap.Error(err))
		return
	}
	w.status.LastError = ""
}
