package bootstrap_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/pharmasim-go/internal/domain/shared"
	"github.com/andrescamacho/pharmasim-go/internal/infrastructure/bootstrap"
	"github.com/andrescamacho/pharmasim-go/internal/infrastructure/config"
	"github.com/andrescamacho/pharmasim-go/test/helpers"
)

// fastConfig makes one fixed step one simulated minute
func fastConfig() *config.Config {
	cfg := config.Default()
	cfg.Simulation.GameMinute = cfg.Simulation.FixedStep
	return cfg
}

func TestSimulationConfig_MapsEverySection(t *testing.T) {
	// Arrange
	cfg := config.Default()
	cfg.Simulation.SessionID = "sess-9"
	cfg.Simulation.StartDate = "2026-03-02"
	cfg.Simulation.OpeningHour = 9
	cfg.Assignment.ContinuityBonus = 70
	cfg.Integrity.ForceCompleteEnabled = false

	// Act
	simCfg, err := bootstrap.SimulationConfig(cfg)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "sess-9", simCfg.SessionID)
	assert.Equal(t, 9, simCfg.Clock.OpeningHour)
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), simCfg.Clock.StartDate)
	assert.Equal(t, 70.0, simCfg.Assignment.ContinuityBonus)
	assert.False(t, simCfg.Integrity.ForceCompleteEnabled)
	assert.Equal(t, 3, simCfg.Integrity.MaxCustomerRecoveries)
	assert.Equal(t, 20, simCfg.Verifier.ResetThreshold)
	assert.True(t, simCfg.AutoStartNextDay)
}

func TestSimulationConfig_RejectsBadStartDate(t *testing.T) {
	cfg := config.Default()
	cfg.Simulation.StartDate = "tomorrow"

	_, err := bootstrap.SimulationConfig(cfg)

	assert.Error(t, err)
}

func TestNewEngine_RunsDefaultPharmacy(t *testing.T) {
	// Arrange
	ctx := context.Background()
	wall := shared.NewMockClock(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	engine, err := bootstrap.NewEngine(ctx, fastConfig(), bootstrap.Options{Clock: wall})
	require.NoError(t, err)

	// Act - two simulated hours
	for i := 0; i < 20; i++ {
		engine.Sim.Tick(ctx, 100*time.Millisecond)
	}

	// Assert
	assert.NotEmpty(t, engine.Sim.SessionID())
	assert.Equal(t, "10:00", engine.Sim.Clock().Now().Format("15:04"))
	assert.Positive(t, engine.Producer.Arrivals())
	assert.NotNil(t, engine.Runner)
}

func TestNewEngine_ResumesLatestSnapshot(t *testing.T) {
	// Arrange
	ctx := context.Background()
	wall := shared.NewMockClock(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	repo := helpers.NewMemorySnapshotRepository()

	first, err := bootstrap.NewEngine(ctx, fastConfig(), bootstrap.Options{Clock: wall, Snapshots: repo})
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		first.Sim.Tick(ctx, 100*time.Millisecond)
	}
	snap, err := first.Sim.Snapshot(ctx)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, snap))

	cfg := fastConfig()
	cfg.Simulation.Resume = true

	// Act
	second, err := bootstrap.NewEngine(ctx, cfg, bootstrap.Options{Clock: wall, Snapshots: repo})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, first.Sim.SessionID(), second.Sim.SessionID())
	assert.Equal(t, first.Sim.Clock().Now(), second.Sim.Clock().Now())
	assert.Equal(t, snap.NextSequence, second.Sim.Store().NextSequence())
}

func TestNewEngine_ResumeWithoutSnapshotStartsFresh(t *testing.T) {
	// Arrange
	cfg := fastConfig()
	cfg.Simulation.Resume = true
	cfg.Simulation.SessionID = "never-saved"

	// Act
	engine, err := bootstrap.NewEngine(context.Background(), cfg, bootstrap.Options{
		Snapshots: helpers.NewMemorySnapshotRepository(),
	})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "never-saved", engine.Sim.SessionID())
}

func TestNewEngine_MissingScenarioFile(t *testing.T) {
	cfg := config.Default()
	cfg.Simulation.Scenario = "/nonexistent/scenario.yaml"

	_, err := bootstrap.NewEngine(context.Background(), cfg, bootstrap.Options{})

	assert.ErrorContains(t, err, "failed to load scenario")
}
