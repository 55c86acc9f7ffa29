package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/andrescamacho/pharmasim-go/internal/adapters/pharmacy"
	"github.com/andrescamacho/pharmasim-go/internal/application/assignment"
	"github.com/andrescamacho/pharmasim-go/internal/application/common"
	"github.com/andrescamacho/pharmasim-go/internal/application/integrity"
	"github.com/andrescamacho/pharmasim-go/internal/application/simulation"
	"github.com/andrescamacho/pharmasim-go/internal/domain/shared"
	domainsim "github.com/andrescamacho/pharmasim-go/internal/domain/simulation"
	"github.com/andrescamacho/pharmasim-go/internal/infrastructure/config"
)

// Engine is a fully wired simulation session
type Engine struct {
	Scenario *pharmacy.Scenario
	World    *pharmacy.World
	Sim      *simulation.Context
	Producer *simulation.ArrivalProducer
	Runner   *simulation.Runner
}

// Options carries the collaborators that are not described by configuration
type Options struct {
	Clock     shared.Clock                 // Wall clock; nil uses the real clock
	Logger    common.Logger                // nil discards logs
	Snapshots domainsim.SnapshotRepository // nil disables snapshots and resume
	Scenario  *pharmacy.Scenario           // Overrides cfg.Simulation.Scenario
}

// SimulationConfig maps configuration onto the engine settings
func SimulationConfig(cfg *config.Config) (simulation.Config, error) {
	sim := cfg.Simulation

	var start time.Time
	if sim.StartDate != "" {
		parsed, err := time.Parse(time.DateOnly, sim.StartDate)
		if err != nil {
			return simulation.Config{}, fmt.Errorf("invalid start date %q: %w", sim.StartDate, err)
		}
		start = parsed
	}

	return simulation.Config{
		SessionID: sim.SessionID,
		Clock: simulation.ClockConfig{
			OpeningHour: sim.OpeningHour,
			ClosingHour: sim.ClosingHour,
			StartDate:   start,
		},
		Driver: simulation.DriverConfig{
			FixedStep:         sim.FixedStep,
			GameMinute:        sim.GameMinute,
			MaxUpdatesPerCall: sim.MaxUpdatesPerCall,
			Speed:             sim.Speed,
			MinSpeed:          sim.MinSpeed,
			MaxSpeed:          sim.MaxSpeed,
		},
		Verifier: domainsim.VerifierConfig{
			Tolerance:       sim.Verifier.Tolerance,
			HistoryCapacity: sim.Verifier.HistoryCapacity,
			ResetThreshold:  sim.Verifier.ResetThreshold,
		},
		Assignment: assignment.Config{
			ContinuityBonus:     cfg.Assignment.ContinuityBonus,
			PrimaryRoleBonus:    cfg.Assignment.PrimaryRoleBonus,
			MoraleBonusMax:      cfg.Assignment.MoraleBonusMax,
			MoraleFactorMin:     cfg.Assignment.MoraleFactorMin,
			MoraleFactorMax:     cfg.Assignment.MoraleFactorMax,
			TaskSkillMultiplier: cfg.Assignment.TaskSkillMultiplier,
			RepassDelay:         cfg.Assignment.RepassDelay,
		},
		Integrity: integrity.Config{
			Interval:               cfg.Integrity.Interval,
			StuckThreshold:         cfg.Integrity.StuckThreshold,
			ForceCompleteThreshold: cfg.Integrity.ForceCompleteThreshold,
			ForceCompleteEnabled:   cfg.Integrity.ForceCompleteEnabled,
			CustomerWaitThreshold:  cfg.Integrity.CustomerWaitThreshold,
			AnomalyThreshold:       cfg.Integrity.AnomalyThreshold,
			MaxCustomerRecoveries:  cfg.Integrity.MaxCustomerRecoveries,
		},
		AutoStartNextDay: sim.AutoStartNextDay,
		NextDayDelay:     sim.NextDayDelay,
	}, nil
}

// RunnerConfig maps configuration onto the host loop settings
func RunnerConfig(cfg *config.Config) simulation.RunnerConfig {
	return simulation.RunnerConfig{
		TickInterval:     cfg.Simulation.TickInterval,
		SnapshotInterval: cfg.Simulation.SnapshotInterval,
		MaxDelta:         cfg.Simulation.MaxDelta,
	}
}

// LoadScenario reads the scenario file, or the built-in pharmacy when path is empty
func LoadScenario(path string) (*pharmacy.Scenario, error) {
	if path == "" {
		return pharmacy.DefaultScenario()
	}
	return pharmacy.LoadScenario(path)
}

// NewEngine builds the pharmacy, the engine and its host loop. When
// cfg.Simulation.Resume is set the latest snapshot is restored first.
// The arrival producer is attached before returning.
func NewEngine(ctx context.Context, cfg *config.Config, opts Options) (*Engine, error) {
	clock := shared.OrRealClock(opts.Clock)
	logger := common.OrNoOp(opts.Logger)

	scenario := opts.Scenario
	if scenario == nil {
		loaded, err := LoadScenario(cfg.Simulation.Scenario)
		if err != nil {
			return nil, fmt.Errorf("failed to load scenario: %w", err)
		}
		scenario = loaded
	}

	simCfg, err := SimulationConfig(cfg)
	if err != nil {
		return nil, err
	}

	world := scenario.Build(clock, logger)
	sim, err := simulation.NewContext(simCfg, simulation.Dependencies{
		Workers:     world.Roster,
		Customers:   world.Customers,
		Feasibility: world.Inventory,
		Hooks:       world.Hooks,
		Clock:       clock,
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create simulation: %w", err)
	}

	if cfg.Simulation.Resume && opts.Snapshots != nil {
		if err := resume(ctx, sim, opts.Snapshots, cfg.Simulation.SessionID, logger); err != nil {
			return nil, err
		}
	}

	producer := simulation.NewArrivalProducer(sim, world.Customers, world.Inventory, world.Customers, world.Customers, scenario.Arrivals.ProducerConfig(), logger)
	producer.Attach(ctx)

	runner := simulation.NewRunner(sim, RunnerConfig(cfg), opts.Snapshots, clock, logger)

	return &Engine{
		Scenario: scenario,
		World:    world,
		Sim:      sim,
		Producer: producer,
		Runner:   runner,
	}, nil
}

// resume restores the named session, or the newest one when sessionID is empty.
// A missing snapshot starts a fresh session.
func resume(ctx context.Context, sim *simulation.Context, repo domainsim.SnapshotRepository, sessionID string, logger common.Logger) error {
	var (
		snap *domainsim.Snapshot
		err  error
	)
	if sessionID != "" {
		snap, err = repo.Load(ctx, sessionID)
	} else {
		snap, err = repo.Latest(ctx)
	}

	var notFound *domainsim.ErrSnapshotNotFound
	if errors.As(err, &notFound) {
		logger.Log(common.LevelInfo, "No snapshot to resume, starting fresh", map[string]interface{}{
			"session_id": sessionID,
		})
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load snapshot: %w", err)
	}

	if err := sim.Restore(ctx, snap); err != nil {
		return fmt.Errorf("failed to restore snapshot: %w", err)
	}
	return nil
}
