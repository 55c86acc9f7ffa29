package persistence_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/pharmasim-go/internal/adapters/persistence"
	"github.com/andrescamacho/pharmasim-go/internal/domain/shared"
	"github.com/andrescamacho/pharmasim-go/test/helpers"
)

func TestSimulationLogRepository_DeduplicatesWithinWindow(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	clock := shared.NewMockClock(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	repo := persistence.NewGormSimulationLogRepository(db, clock)
	ctx := context.Background()

	// Act
	require.NoError(t, repo.Log(ctx, "s-1", "Task stuck", "WARNING", map[string]interface{}{"task_id": "t-1"}))
	clock.Advance(30 * time.Second)
	require.NoError(t, repo.Log(ctx, "s-1", "Task stuck", "WARNING", nil))
	require.NoError(t, repo.Log(ctx, "s-2", "Task stuck", "WARNING", nil))
	clock.Advance(31 * time.Second)
	require.NoError(t, repo.Log(ctx, "s-1", "Task stuck", "WARNING", nil))

	// Assert
	entries, err := repo.GetLogs(ctx, "s-1", 10, nil, nil)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Nil(t, entries[0].Metadata)
	assert.Equal(t, "t-1", entries[1].Metadata["task_id"])

	other, err := repo.GetLogs(ctx, "s-2", 10, nil, nil)
	require.NoError(t, err)
	assert.Len(t, other, 1)
}

func TestSimulationLogRepository_Filters(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	clock := shared.NewMockClock(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	repo := persistence.NewGormSimulationLogRepository(db, clock)
	repo.SetDedupWindow(0)
	ctx := context.Background()
	start := clock.Now()

	require.NoError(t, repo.Log(ctx, "s-1", "first", "WARNING", nil))
	clock.Advance(time.Minute)
	require.NoError(t, repo.Log(ctx, "s-1", "second", "ERROR", nil))
	clock.Advance(time.Minute)
	require.NoError(t, repo.Log(ctx, "s-1", "third", "WARNING", nil))

	// Act
	errorLevel := "ERROR"
	errorsOnly, err := repo.GetLogs(ctx, "s-1", 10, &errorLevel, nil)
	require.NoError(t, err)
	recent, err := repo.GetLogs(ctx, "s-1", 10, nil, &start)
	require.NoError(t, err)
	limited, err := repo.GetLogs(ctx, "s-1", 1, nil, nil)
	require.NoError(t, err)

	// Assert
	require.Len(t, errorsOnly, 1)
	assert.Equal(t, "second", errorsOnly[0].Message)
	assert.Len(t, recent, 2)
	require.Len(t, limited, 1)
	assert.Equal(t, "third", limited[0].Message)
}
