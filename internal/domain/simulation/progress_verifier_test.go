package simulation_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/pharmasim-go/internal/domain/shared"
	"github.com/andrescamacho/pharmasim-go/internal/domain/simulation"
)

func newVerifier(threshold int) *simulation.ProgressVerifier {
	clock := shared.NewMockClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	return simulation.NewProgressVerifier(simulation.VerifierConfig{ResetThreshold: threshold}, clock)
}

func TestProgressVerifier_TrackSeedsFromObservedProgress(t *testing.T) {
	// Arrange
	v := newVerifier(0)

	// Act
	first := v.Track("task-1", 4, 1.5)
	second := v.Track("task-1", 999, 0.5)

	// Assert
	assert.InDelta(t, 5.5, first, 1e-9)
	assert.InDelta(t, 6.0, second, 1e-9, "later observations must not reseed")
}

func TestProgressVerifier_VerifyWithinTolerance(t *testing.T) {
	// Arrange
	v := newVerifier(0)
	v.Track("task-1", 0, 1)

	// Act
	expected, ok := v.Verify("task-1", 1.0005)

	// Assert
	assert.True(t, ok)
	assert.InDelta(t, 1.0, expected, 1e-9)
	assert.Equal(t, 0, v.AnomalyCount())
}

func TestProgressVerifier_VerifyRecordsAnomaly(t *testing.T) {
	// Arrange
	v := newVerifier(0)
	v.Track("task-1", 0, 1)

	// Act
	expected, ok := v.Verify("task-1", 3)

	// Assert
	assert.False(t, ok)
	assert.InDelta(t, 1.0, expected, 1e-9)
	require.Len(t, v.Anomalies(), 1)
	anomaly := v.Anomalies()[0]
	assert.Equal(t, "task-1", anomaly.TaskID)
	assert.InDelta(t, 2.0, anomaly.Delta, 1e-9)
	assert.Equal(t, 1, v.AnomalyCount())
}

func TestProgressVerifier_UntrackedTaskAlwaysVerifies(t *testing.T) {
	v := newVerifier(0)

	_, ok := v.Verify("unknown", 42)

	assert.True(t, ok)
}

func TestProgressVerifier_CircuitBreakerResetsExpectations(t *testing.T) {
	// Arrange
	v := newVerifier(3)
	v.Track("other", 0, 1)

	// Act - four anomalies exceed a threshold of three
	for i := 0; i < 4; i++ {
		v.Track("task-1", 0, 1)
		v.Verify("task-1", 100)
	}

	// Assert
	assert.Equal(t, 0, v.AnomalyCount())
	assert.Equal(t, 1, v.Resets())
	assert.Equal(t, 0, v.TrackedCount())
	assert.Len(t, v.Anomalies(), 4, "history survives the reset")
}

func TestProgressVerifier_HistoryIsBounded(t *testing.T) {
	// Arrange
	v := simulation.NewProgressVerifier(simulation.VerifierConfig{
		HistoryCapacity: 3,
		ResetThreshold:  1000,
	}, nil)

	// Act
	for i := 0; i < 5; i++ {
		v.Track("task", 0, 1)
		v.Verify("task", float64(100+i))
	}

	// Assert
	anomalies := v.Anomalies()
	require.Len(t, anomalies, 3)
	assert.InDelta(t, 102.0, anomalies[0].Actual, 1e-9, "oldest entries are overwritten first")
	assert.InDelta(t, 104.0, anomalies[2].Actual, 1e-9)
}

func TestProgressVerifier_ClearDropsTracking(t *testing.T) {
	v := newVerifier(0)
	v.Track("task-1", 0, 1)

	v.Clear("task-1")

	_, tracked := v.Expected("task-1")
	assert.False(t, tracked)
}
