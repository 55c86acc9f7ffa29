package logging_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/pharmasim-go/internal/adapters/logging"
	"github.com/andrescamacho/pharmasim-go/internal/application/common"
	"github.com/andrescamacho/pharmasim-go/internal/infrastructure/config"
	"github.com/andrescamacho/pharmasim-go/test/helpers"
)

func TestConsoleLogger_JSONCarriesMetadata(t *testing.T) {
	// Arrange
	var buf bytes.Buffer
	logger := logging.NewConsoleLogger(&buf, "json", "debug", false)

	// Act
	logger.Log(common.LevelWarning, "Task stuck", map[string]interface{}{"task_id": "t-1", "worker_id": "w-2"})

	// Assert
	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "WARN", line["level"])
	assert.Equal(t, "Task stuck", line["msg"])
	assert.Equal(t, "t-1", line["task_id"])
	assert.Equal(t, "w-2", line["worker_id"])
}

func TestConsoleLogger_FiltersBelowLevel(t *testing.T) {
	// Arrange
	var buf bytes.Buffer
	logger := logging.NewConsoleLogger(&buf, "text", "warn", false)

	// Act
	logger.Log(common.LevelDebug, "tick", nil)
	logger.Log(common.LevelInfo, "assigned", nil)
	logger.Log(common.LevelError, "callback failed", nil)

	// Assert
	out := buf.String()
	assert.NotContains(t, out, "tick")
	assert.NotContains(t, out, "assigned")
	assert.Contains(t, out, "callback failed")
}

func TestNewConsoleLoggerFromConfig_WritesFile(t *testing.T) {
	// Arrange
	path := filepath.Join(t.TempDir(), "sim.log")
	cfg := config.LoggingConfig{Level: "info", Format: "text", Output: "file", FilePath: path}

	// Act
	logger, err := logging.NewConsoleLoggerFromConfig(cfg)
	require.NoError(t, err)
	logger.Log(common.LevelInfo, "day started", map[string]interface{}{"day": 2})
	require.NoError(t, logger.Close())

	// Assert
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "day started")
	assert.Contains(t, string(data), "day=2")
}

func TestPersistentLogger_StoresWarningsAndAbove(t *testing.T) {
	// Arrange
	repo := helpers.NewMockSimulationLogRepository()
	logger := logging.NewPersistentLogger(repo, "sess-1", common.LevelWarning)

	// Act
	logger.Log(common.LevelInfo, "assigned", nil)
	logger.Log(common.LevelWarning, "Task stuck", map[string]interface{}{"task_id": "t-1"})
	logger.Log(common.LevelError, "Callback failed", nil)
	logger.Flush()

	// Assert
	require.Equal(t, 2, repo.Count("sess-1"))
	warning := common.LevelWarning
	logs, err := repo.GetLogs(t.Context(), "sess-1", 10, &warning, nil)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "t-1", logs[0].Metadata["task_id"])
}

func TestPersistentLogger_RepositoryFailureDoesNotPanic(t *testing.T) {
	// Arrange
	repo := helpers.NewMockSimulationLogRepository()
	repo.LogErr = errors.New("disk full")
	logger := logging.NewPersistentLogger(repo, "sess-1", "")

	// Act
	logger.Log(common.LevelError, "Callback failed", nil)
	logger.Flush()

	// Assert
	assert.Zero(t, repo.Count("sess-1"))
}

func TestFanout_ForwardsToEveryLogger(t *testing.T) {
	// Arrange
	first := helpers.NewCaptureLogger()
	second := helpers.NewCaptureLogger()
	fanout := logging.NewFanout(first, nil, second)

	// Act
	fanout.Log(common.LevelInfo, "day ended", nil)

	// Assert
	assert.Len(t, fanout, 2)
	assert.True(t, first.Has(common.LevelInfo, "day ended"))
	assert.True(t, second.Has(common.LevelInfo, "day ended"))
}
