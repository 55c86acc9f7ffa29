package steps

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"

	"github.com/andrescamacho/pharmasim-go/internal/adapters/persistence"
	"github.com/andrescamacho/pharmasim-go/internal/domain/simulation"
	"github.com/andrescamacho/pharmasim-go/test/helpers"
)

type snapshotContext struct {
	sim     *SimulationContext
	repo    *persistence.GormSnapshotRepository
	saved   string
	loadErr error
}

// InitializeSnapshotScenario registers persistence steps on top of the shared engine world
func InitializeSnapshotScenario(sc *godog.ScenarioContext, sim *SimulationContext) {
	snc := &snapshotContext{sim: sim}

	sc.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		snc.saved = ""
		snc.loadErr = nil
		snc.repo = nil
		if helpers.SharedTestDB == nil {
			return ctx, nil
		}
		if err := helpers.TruncateAllTables(); err != nil {
			return ctx, err
		}
		snc.repo = persistence.NewGormSnapshotRepository(helpers.SharedTestDB)
		return ctx, nil
	})

	sc.Step(`^the session is saved$`, snc.theSessionIsSaved)
	sc.Step(`^a fresh engine resumes the saved session$`, snc.aFreshEngineResumesTheSavedSession)
	sc.Step(`^loading session "([^"]*)" fails with not found$`, snc.loadingSessionFailsWithNotFound)
}

func (snc *snapshotContext) theSessionIsSaved() error {
	if err := snc.sim.requireSim(); err != nil {
		return err
	}
	if snc.repo == nil {
		return fmt.Errorf("shared test database not initialized")
	}
	snap, err := snc.sim.sim.Snapshot(snc.sim.ctx)
	if err != nil {
		return err
	}
	if err := snc.repo.Save(snc.sim.ctx, snap); err != nil {
		return err
	}
	snc.saved = snap.SessionID
	return nil
}

func (snc *snapshotContext) aFreshEngineResumesTheSavedSession() error {
	if snc.saved == "" {
		return fmt.Errorf("no session was saved")
	}
	snap, err := snc.repo.Load(snc.sim.ctx, snc.saved)
	if err != nil {
		return err
	}
	// The fresh engine starts with idle workers and an empty store
	if err := snc.sim.build("fresh-session"); err != nil {
		return err
	}
	if err := snc.sim.sim.Restore(snc.sim.ctx, snap); err != nil {
		return err
	}
	if got := snc.sim.sim.SessionID(); got != snc.saved {
		return fmt.Errorf("expected resumed session %s, got %s", snc.saved, got)
	}
	return nil
}

func (snc *snapshotContext) loadingSessionFailsWithNotFound(sessionID string) error {
	if snc.repo == nil {
		return fmt.Errorf("shared test database not initialized")
	}
	_, snc.loadErr = snc.repo.Load(snc.sim.ctx, sessionID)
	if _, ok := snc.loadErr.(*simulation.ErrSnapshotNotFound); !ok {
		return fmt.Errorf("expected snapshot not found, got %v", snc.loadErr)
	}
	return nil
}
