package container

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/garyjia/ap-invoice-intake/internal/application/service"
	"github.com/garyjia/ap-invoice-intake/internal/config"
	"github.com/garyjia/ap-invoice-intake/internal/domain/entity"
	"github.com/garyjia/ap-invoice-intake/pkg/database"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)

	cfg.Database.Path = database.MemoryPath
	cfg.OCR.Provider = config.OCRProviderNone
	cfg.Pipeline.WorkerEnabled = false
	cfg.Report.OutputDir = t.TempDir()
	return cfg
}

func TestContainer_StartAndClose(t *testing.T) {
	c, err := New(testConfig(t), zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, c.Start(context.Background()))
	assert.True(t, c.Ready())
	assert.Error(t, c.Start(context.Background()))

	stages, err := c.Repositories().Stage.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, stages, len(entity.RequiredStages))

	health := c.Health(context.Background())
	assert.True(t, health.Overall)
	assert.Equal(t, "disabled", health.Components["ocr"].Message)
	assert.NotContains(t, health.Components, "batch_worker")

	require.NoError(t, c.Close())
	assert.False(t, c.Ready())
	assert.Error(t, c.Close())
	assert.Error(t, c.Start(context.Background()))
}

func TestContainer_EndToEndBatch(t *testing.T) {
	c, err := New(testConfig(t), zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, c.Start(context.Background()))
	t.Cleanup(func() { _ = c.Close() })

	ticket, err := c.Services().Ticket.Open(context.Background(), service.TicketIntake{Name: "Sin adjunto"})
	require.NoError(t, err)

	run, err := c.Services().Batch.Run(context.Background(), service.BatchRequest{Trigger: entity.RunTriggerAPI})
	require.NoError(t, err)
	assert.Equal(t, 1, run.NoPDF)

	stored, err := c.Repositories().Ticket.GetByID(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StageNoPDF, stored.Stage)

	saved, err := c.Repositories().BatchRun.GetByID(context.Background(), run.ID)
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Len(t, saved.Tickets, 1)
}

func TestContainer_StagesNotEnsured(t *testing.T) {
	cfg := testConfig(t)
	cfg.Pipeline.EnsureStages = false
	c, err := New(cfg, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, c.Start(context.Background()))
	t.Cleanup(func() { _ = c.Close() })

	health := c.Health(context.Background())

	assert.False(t, health.Overall)
	assert.False(t, health.Components["stages"].Healthy)
	assert.False(t, c.Services().Batch.ProcessAll(context.Background()))
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil, zap.NewNop())
	assert.Error(t, err)

	_, err = New(testConfig(t), nil)
	assert.Error(t, err)

	cfg := testConfig(t)
	cfg.OCR.Provider = "unknown"
	_, err = New(cfg, zap.NewNop())
	assert.Error(t, err)
}

func TestZapLoggerAdapter(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	log := NewServiceLogger(zap.New(core))

	log.Info("Batch started", "run_id", "run-1", "tickets", 3, 42, "dropped")
	log.Error("Batch aborted", "error", errors.New("stages missing"))

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, map[string]interface{}{"run_id": "run-1", "tickets": int64(3)}, entries[0].ContextMap())
	assert.Equal(t, "stages missing", entries[1].ContextMap()["error"])
}
