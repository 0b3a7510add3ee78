package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/ap-invoice-intake/internal/domain/entity"
)

func TestStageService_Check(t *testing.T) {
	tests := []struct {
		name    string
		repo    *mockStageRepo
		wantErr bool
	}{
		{name: "all stages present", repo: newMockStageRepo(true)},
		{name: "no stages", repo: newMockStageRepo(false), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewStageService(tt.repo, &mockLogger{})

			err := svc.Check(context.Background())

			if tt.wantErr {
				assert.ErrorIs(t, err, ErrStagesMissing)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestStageService_Check_NamesMissingStages(t *testing.T) {
	repo := newMockStageRepo(true)
	repo.stages = repo.stages[:len(repo.stages)-1]
	svc := NewStageService(repo, &mockLogger{})

	err := svc.Check(context.Background())

	require.ErrorIs(t, err, ErrStagesMissing)
	assert.Contains(t, err.Error(), entity.StageCreationFailed)
	assert.NotContains(t, err.Error(), entity.StageNoPDF)
}

func TestStageService_EnsureStages(t *testing.T) {
	repo := newMockStageRepo(false)
	repo.stages = []*entity.Stage{{ID: 1, Code: entity.StageNewInvoices, Name: "Facturas Nuevas", Sequence: 1}}
	svc := NewStageService(repo, &mockLogger{})

	created, err := svc.EnsureStages(context.Background())

	require.NoError(t, err)
	assert.Len(t, created, len(entity.RequiredStages)-1)
	assert.NotContains(t, created, entity.StageNewInvoices)
	assert.NoError(t, svc.Check(context.Background()))

	again, err := svc.EnsureStages(context.Background())
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestStageService_EnsureStages_CreateError(t *testing.T) {
	repo := newMockStageRepo(false)
	repo.createFunc = func(ctx context.Context, stage *entity.Stage) error {
		return errors.New("unique constraint")
	}
	svc := NewStageService(repo, &mockLogger{})

	created, err := svc.EnsureStages(context.Background())

	assert.Error(t, err)
	assert.Empty(t, created)
}

func TestStageService_ListError(t *testing.T) {
	repo := newMockStageRepo(true)
	repo.listFunc = func(ctx context.Context) ([]*entity.Stage, error) {
		return nil, errors.New("no such table: stages")
	}
	svc := NewStageService(repo, &mockLogger{})

	err := svc.Check(context.Background())

	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrStagesMissing)
}
