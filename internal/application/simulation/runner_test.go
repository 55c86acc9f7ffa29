package simulation_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/pharmasim-go/internal/application/simulation"
	"github.com/andrescamacho/pharmasim-go/internal/domain/shared"
	domainsim "github.com/andrescamacho/pharmasim-go/internal/domain/simulation"
	"github.com/andrescamacho/pharmasim-go/test/helpers"
)

func startRunner(t *testing.T, f *simFixture, cfg simulation.RunnerConfig, repo *helpers.MemorySnapshotRepository) (*simulation.Runner, context.CancelFunc, chan error) {
	t.Helper()
	var snapshots domainsim.SnapshotRepository
	if repo != nil {
		snapshots = repo
	}
	runner := simulation.NewRunner(f.sim, cfg, snapshots, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan error, 1)
	go func() { result <- runner.Run(ctx) }()
	require.Eventually(t, func() bool {
		return runner.Status().Lifecycle == shared.SessionStatusRunning
	}, time.Second, 5*time.Millisecond)
	return runner, cancel, result
}

func TestRunner_StatusBeforeStartIsPending(t *testing.T) {
	f := newSimFixture(t, nil)

	runner := simulation.NewRunner(f.sim, simulation.RunnerConfig{}, nil, nil, nil)

	assert.Equal(t, shared.SessionStatusPending, runner.Status().Lifecycle)
	assert.Equal(t, "sim-test", runner.Status().SessionID)
}

func TestRunner_DoRunsOnLoop(t *testing.T) {
	// Arrange
	f := newSimFixture(t, nil)
	runner, cancel, result := startRunner(t, f, simulation.RunnerConfig{TickInterval: 5 * time.Millisecond}, nil)
	defer cancel()

	// Act
	err := runner.Do(context.Background(), func(ctx context.Context, sim *simulation.Context) error {
		return sim.SetSpeed(4)
	})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 4.0, runner.Status().Speed)

	cancel()
	require.NoError(t, <-result)
}

func TestRunner_DoReturnsCommandErrors(t *testing.T) {
	f := newSimFixture(t, nil)
	runner, cancel, result := startRunner(t, f, simulation.RunnerConfig{TickInterval: 5 * time.Millisecond}, nil)
	defer cancel()
	boom := errors.New("boom")

	err := runner.Do(context.Background(), func(context.Context, *simulation.Context) error { return boom })
	assert.ErrorIs(t, err, boom)

	err = runner.Do(context.Background(), func(context.Context, *simulation.Context) error { panic("exploded") })
	var hookErr *shared.HookError
	assert.ErrorAs(t, err, &hookErr)

	cancel()
	require.NoError(t, <-result)
}

func TestRunner_StopClosesDoneAndRejectsCommands(t *testing.T) {
	// Arrange
	f := newSimFixture(t, nil)
	repo := helpers.NewMemorySnapshotRepository()
	runner, cancel, result := startRunner(t, f, simulation.RunnerConfig{TickInterval: 5 * time.Millisecond}, repo)

	// Act
	cancel()
	require.NoError(t, <-result)

	// Assert
	select {
	case <-runner.Done():
	default:
		t.Fatal("done channel not closed")
	}
	assert.Equal(t, shared.SessionStatusStopped, runner.Status().Lifecycle)
	err := runner.Do(context.Background(), func(context.Context, *simulation.Context) error { return nil })
	assert.ErrorIs(t, err, simulation.ErrRunnerStopped)

	saved, err := repo.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "sim-test", saved.SessionID)
}

func TestRunner_SaveSnapshotWithoutRepository(t *testing.T) {
	f := newSimFixture(t, nil)
	runner := simulation.NewRunner(f.sim, simulation.RunnerConfig{}, nil, nil, nil)

	assert.Error(t, runner.SaveSnapshot(context.Background()))
}

func TestRunner_PeriodicSnapshots(t *testing.T) {
	f := newSimFixture(t, nil)
	repo := helpers.NewMemorySnapshotRepository()
	_, cancel, result := startRunner(t, f, simulation.RunnerConfig{
		TickInterval:     5 * time.Millisecond,
		SnapshotInterval: 20 * time.Millisecond,
	}, repo)

	assert.Eventually(t, func() bool { return repo.SaveCount() >= 2 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-result)
}
