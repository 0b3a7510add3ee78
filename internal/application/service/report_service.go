package service

import (
	"context"
	"errors"
	"fmt"
	"path"

	"github.com/garyjia/ap-invoice-intake/internal/application/port"
	"github.com/garyjia/ap-invoice-intake/internal/domain/entity"
)

// ErrRunNotFound is returned for unknown batch run IDs
var ErrRunNotFound = errors.New("batch run not found")

// ReportWriter renders a batch run as a document
type ReportWriter interface {
	Write(run *entity.BatchRun) ([]byte, error)
}

// ReportService exports batch run history
type ReportService struct {
	runs    port.BatchRunRepository
	writer  ReportWriter
	storage port.FileStorage
	logger  Logger
}

// NewReportService creates a new ReportService
func NewReportService(runs port.BatchRunRepository, writer ReportWriter, storage port.FileStorage, logger Logger) *ReportService {
	return &ReportService{
		runs:    runs,
		writer:  writer,
		storage: storage,
		logger:  logger,
	}
}

// GetRun returns a batch run with its ticket lines
func (s *ReportService) GetRun(ctx context.Context, runID string) (*entity.BatchRun, error) {
	run, err := s.runs.GetByID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get batch run: %w", err)
	}
	if run == nil {
		return nil, ErrRunNotFound
	}
	return run, nil
}

// ListRuns returns the most recent batch runs
func (s *ReportService) ListRuns(ctx context.Context, limit int) ([]*entity.BatchRun, error) {
	return s.runs.List(ctx, limit)
}

// Render builds the report document for a run
func (s *ReportService) Render(ctx context.Context, runID string) ([]byte, error) {
	run, err := s.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	return s.writer.Write(run)
}

// ReportPath is the storage path of a run's report
func ReportPath(runID string) string {
	return path.Join("batch-runs", runID+".xlsx")
}

// Export renders the report into file storage and returns its full path
func (s *ReportService) Export(ctx context.Context, runID string) (string, error) {
	data, err := s.Render(ctx, runID)
	if err != nil {
		return "", err
	}

	rel := ReportPath(runID)
	if err := s.storage.Save(ctx, rel, data); err != nil {
		return "", fmt.Errorf("failed to save report: %w", err)
	}

	full := s.storage.GetFullPath(rel)
	s.logger.Info("Batch report exported", "run_id", runID, "path", full)
	return full, nil
}
