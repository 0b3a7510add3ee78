package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/ap-invoice-intake/internal/application/service"
)

func writeTestConfig(t *testing.T, ensureStages bool) string {
	t.Helper()
	dir := t.TempDir()

	ensure := "false"
	if ensureStages {
		ensure = "true"
	}
	content := `
database:
  path: ":memory:"
logger:
  level: error
pipeline:
  ensure_stages: ` + ensure + `
ocr:
  provider: none
report:
  output_dir: ` + filepath.Join(dir, "reports") + `
`
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(func() {
		closeApp()
		cfg, logger = nil, nil
	})

	buf := &bytes.Buffer{}
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)

	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func TestMigrate(t *testing.T) {
	output, err := execute(t, "migrate", "--config", writeTestConfig(t, false))

	require.NoError(t, err)
	assert.Contains(t, output, "Database schema up to date")
}

func TestProcess_EmptyQueue(t *testing.T) {
	output, err := execute(t, "process", "--config", writeTestConfig(t, true))

	require.NoError(t, err)
	assert.Contains(t, output, "(CLI) success=true")
	assert.Contains(t, output, "Tickets 0")
	assert.Nil(t, app)
}

func TestStagesCheck_Missing(t *testing.T) {
	_, err := execute(t, "stages", "check", "--config", writeTestConfig(t, false))

	require.Error(t, err)
	assert.ErrorIs(t, err, service.ErrStagesMissing)
}

func TestStagesEnsure(t *testing.T) {
	output, err := execute(t, "stages", "ensure", "--config", writeTestConfig(t, false))

	require.NoError(t, err)
	assert.Contains(t, output, "created NEW_INVOICES")
	assert.Contains(t, output, "created CREATION_FAILED")
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := execute(t, "runs", "--config", filepath.Join(t.TempDir(), "absent.yaml"))

	assert.Error(t, err)
}
