package common_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/pharmasim-go/internal/application/common"
	"github.com/andrescamacho/pharmasim-go/internal/domain/shared"
)

type capturedLog struct {
	level    string
	message  string
	metadata map[string]interface{}
}

type captureLogger struct {
	entries []capturedLog
}

func (l *captureLogger) Log(level, message string, metadata map[string]interface{}) {
	l.entries = append(l.entries, capturedLog{level, message, metadata})
}

func TestSafeCall_ConvertsPanic(t *testing.T) {
	// Act
	err := common.SafeCall("payment", func() error {
		panic("ledger exploded")
	})

	// Assert
	var hookErr *shared.HookError
	require.ErrorAs(t, err, &hookErr)
	assert.Equal(t, "payment", hookErr.Hook)
	assert.Equal(t, "ledger exploded", hookErr.Recovered)
}

func TestSafeCall_WrapsError(t *testing.T) {
	cause := errors.New("boom")

	err := common.SafeCall("mood", func() error { return cause })

	assert.ErrorIs(t, err, cause)
}

func TestGuard_LogsFailureAndReportsResult(t *testing.T) {
	// Arrange
	logger := &captureLogger{}

	// Act
	ok := common.Guard(logger, "departure", map[string]interface{}{"customer_id": "c1"}, func() error {
		return errors.New("gone")
	})

	// Assert
	assert.False(t, ok)
	require.Len(t, logger.entries, 1)
	assert.Equal(t, common.LevelError, logger.entries[0].level)
	assert.Equal(t, "departure", logger.entries[0].metadata["hook"])
	assert.Equal(t, "c1", logger.entries[0].metadata["customer_id"])
}

func TestGuard_SuccessIsSilent(t *testing.T) {
	logger := &captureLogger{}

	ok := common.Guard(logger, "noop", nil, func() error { return nil })

	assert.True(t, ok)
	assert.Empty(t, logger.entries)
}

func TestLoggerFromContext(t *testing.T) {
	// Arrange
	logger := &captureLogger{}
	ctx := common.WithLogger(context.Background(), logger)

	// Act
	common.LoggerFromContext(ctx).Log(common.LevelWarning, "Periodic snapshot failed", nil)
	common.LoggerFromContext(context.Background()).Log(common.LevelError, "dropped", nil)

	// Assert
	require.Len(t, logger.entries, 1)
	assert.Equal(t, common.LevelWarning, logger.entries[0].level)
}
