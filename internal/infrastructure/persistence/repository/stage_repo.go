package repository

import (
	"context"
	"fmt"

	"github.com/garyjia/ap-invoice-intake/internal/application/port"
	"github.com/garyjia/ap-invoice-intake/internal/domain/entity"
	"github.com/garyjia/ap-invoice-intake/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

// StageRepository implements port.StageRepository
type StageRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewStageRepository creates a new stage repository
func NewStageRepository(db *sqlite.DB, logger *zap.Logger) port.StageRepository {
	return &StageRepository{
		db:     db,
		logger: logger,
	}
}

// List returns every stage by sequence
func (r *StageRepository) List(ctx context.Context) ([]*entity.Stage, error) {
	rows, err := r.db.Executor(ctx).QueryContext(ctx,
		`SELECT id, code, name, sequence FROM stages ORDER BY sequence ASC, id ASC`)
	if err != nil {
		r.logger.Error("Failed to list stages", zap.Error(err))
		return nil, fmt.Errorf("failed to list stages: %w", err)
	}
	defer rows.Close()

	var stages []*entity.Stage
	for rows.Next() {
		var s entity.Stage
		if err := rows.Scan(&s.ID, &s.Code, &s.Name, &s.Sequence); err != nil {
			return nil, fmt.Errorf("failed to scan stage: %w", err)
		}
		stages = append(stages, &s)
	}
	return stages, rows.Err()
}

// Create inserts a stage
func (r *StageRepository) Create(ctx context.Context, stage *entity.Stage) error {
	result, err := r.db.Executor(ctx).ExecContext(ctx,
		`INSERT INTO stages (code, name, sequence) VALUES (?, ?, ?)`,
		stage.Code, stage.Name, stage.Sequence)
	if err != nil {
		r.logger.Error("Failed to create stage", zap.String("code", stage.Code), zap.Error(err))
		return fmt.Errorf("failed to create stage: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	stage.ID = id
	return nil
}

// Verify interface compliance
var _ port.StageRepository = (*StageRepository)(nil)
