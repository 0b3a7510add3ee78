package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/garyjia/ap-invoice-intake/internal/application/port"
	"github.com/garyjia/ap-invoice-intake/internal/domain/entity"
)

// ErrStagesMissing is returned when a stage the pipeline moves tickets into does not exist
var ErrStagesMissing = errors.New("required stages missing")

// StageService checks and bootstraps the helpdesk stages the pipeline needs
type StageService struct {
	stages port.StageRepository
	logger Logger
}

// NewStageService creates a new StageService
func NewStageService(stages port.StageRepository, logger Logger) *StageService {
	return &StageService{
		stages: stages,
		logger: logger,
	}
}

// Missing returns the required stage definitions with no stored stage
func (s *StageService) Missing(ctx context.Context) ([]entity.StageDefinition, error) {
	existing, err := s.stages.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list stages: %w", err)
	}

	present := make(map[string]bool, len(existing))
	for _, st := range existing {
		present[st.Code] = true
	}

	var missing []entity.StageDefinition
	for _, def := range entity.RequiredStages {
		if !present[def.Code] {
			missing = append(missing, def)
		}
	}
	return missing, nil
}

// Check returns ErrStagesMissing naming every absent stage
func (s *StageService) Check(ctx context.Context) error {
	missing, err := s.Missing(ctx)
	if err != nil {
		return err
	}
	if len(missing) == 0 {
		return nil
	}

	codes := make([]string, 0, len(missing))
	for _, def := range missing {
		codes = append(codes, def.Code)
	}
	return fmt.Errorf("%w: %s", ErrStagesMissing, strings.Join(codes, ", "))
}

// EnsureStages creates the missing required stages and returns their codes
func (s *StageService) EnsureStages(ctx context.Context) ([]string, error) {
	missing, err := s.Missing(ctx)
	if err != nil {
		return nil, err
	}

	created := make([]string, 0, len(missing))
	for _, def := range missing {
		stage := &entity.Stage{Code: def.Code, Name: def.Name, Sequence: def.Sequence}
		if err := s.stages.Create(ctx, stage); err != nil {
			return created, fmt.Errorf("failed to create stage %s: %w", def.Code, err)
		}
		created = append(created, def.Code)
	}

	if len(created) > 0 {
		s.logger.Info("Created missing stages", "stages", strings.Join(created, ","))
	}
	return created, nil
}
