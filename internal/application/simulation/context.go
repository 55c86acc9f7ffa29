package simulation

import (
	"context"
	"fmt"
	"time"

	"github.com/andrescamacho/pharmasim-go/internal/application/assignment"
	"github.com/andrescamacho/pharmasim-go/internal/application/common"
	"github.com/andrescamacho/pharmasim-go/internal/application/events"
	"github.com/andrescamacho/pharmasim-go/internal/application/integrity"
	"github.com/andrescamacho/pharmasim-go/internal/application/tasks"
	"github.com/andrescamacho/pharmasim-go/internal/domain/customer"
	"github.com/andrescamacho/pharmasim-go/internal/domain/ports"
	"github.com/andrescamacho/pharmasim-go/internal/domain/shared"
	domainsim "github.com/andrescamacho/pharmasim-go/internal/domain/simulation"
	"github.com/andrescamacho/pharmasim-go/internal/domain/staff"
	"github.com/andrescamacho/pharmasim-go/internal/domain/task"
	"github.com/andrescamacho/pharmasim-go/pkg/utils"
)

// Scheduler keys
const (
	IntegritySweepKey = "integrity-sweep"
	StartDayKey       = "start-day"
)

// DefaultNextDayDelay is the real-time pause between closing and the next opening
const DefaultNextDayDelay = 5 * time.Second

// Config gathers the settings of every engine component
type Config struct {
	SessionID        string
	Clock            ClockConfig
	Driver           DriverConfig
	Verifier         domainsim.VerifierConfig
	Assignment       assignment.Config
	Integrity        integrity.Config
	AutoStartNextDay bool
	NextDayDelay     time.Duration
}

// DefaultConfig returns a configuration with every component at its defaults
func DefaultConfig() Config {
	return Config{
		Clock:            ClockConfig{OpeningHour: DefaultOpeningHour, ClosingHour: DefaultClosingHour},
		Assignment:       assignment.DefaultConfig(),
		Integrity:        integrity.DefaultConfig(),
		AutoStartNextDay: true,
		NextDayDelay:     DefaultNextDayDelay,
	}
}

// Dependencies are the external collaborators the engine consumes
type Dependencies struct {
	Workers     staff.Directory
	Customers   customer.Directory
	Feasibility ports.Feasibility
	Hooks       ports.CompletionHooks
	Clock       shared.Clock // Wall clock for timestamps and staleness
	Logger      common.Logger
}

// Context owns every engine component for one simulation session and wires
// them together. There is no package-level state; all access goes through a
// Context.
type Context struct {
	sessionID string
	cfg       Config

	clock     *GameClock
	driver    *Driver
	scheduler *Scheduler
	verifier  *domainsim.ProgressVerifier
	store     *tasks.Store
	binder    *assignment.Binder
	engine    *assignment.Engine
	monitor   *integrity.Monitor
	workers   staff.Directory

	lastSweep integrity.SweepReport
	sweeps    *events.Bus[integrity.SweepReport]

	wallClock shared.Clock
	logger    common.Logger
}

// NewContext builds and wires the engine
func NewContext(cfg Config, deps Dependencies) (*Context, error) {
	if deps.Workers == nil {
		return nil, fmt.Errorf("worker directory is required")
	}
	wallClock := shared.OrRealClock(deps.Clock)
	logger := common.OrNoOp(deps.Logger)
	if cfg.NextDayDelay <= 0 {
		cfg.NextDayDelay = DefaultNextDayDelay
	}
	sessionID := cfg.SessionID
	if sessionID == "" {
		sessionID = utils.GenerateSessionID("sim")
	}

	c := &Context{
		sessionID: sessionID,
		cfg:       cfg,
		workers:   deps.Workers,
		wallClock: wallClock,
		logger:    logger,
		sweeps:    events.NewBus[integrity.SweepReport]("integrity", logger),
	}

	c.scheduler = NewScheduler(logger)
	c.verifier = domainsim.NewProgressVerifier(cfg.Verifier, wallClock)
	taskBus := events.NewBus[task.Event]("tasks", logger)
	c.store = tasks.NewStore(tasks.Dependencies{
		Workers:     deps.Workers,
		Customers:   deps.Customers,
		Feasibility: deps.Feasibility,
		Hooks:       deps.Hooks,
		Verifier:    c.verifier,
		Events:      taskBus,
		Logger:      logger,
		Clock:       wallClock,
	})
	c.binder = assignment.NewBinder(deps.Workers, taskBus, logger)
	c.engine = assignment.NewEngine(c.store, c.binder, deps.Workers, deps.Customers, c.scheduler, cfg.Assignment, logger)
	c.store.SetBinder(c.binder)
	c.store.SetAssignmentRequester(c.engine)

	c.monitor = integrity.NewMonitor(c.store, c.binder, c.engine, deps.Workers, deps.Customers, c, cfg.Integrity, wallClock, logger)

	c.clock = NewGameClock(cfg.Clock, logger)
	c.clock.AddListener("task-store", c.store)
	c.driver = NewDriver(c.clock, cfg.Driver, logger)

	c.scheduler.Every(IntegritySweepKey, c.monitor.Interval(), func(ctx context.Context) {
		c.Sweep(ctx)
	})
	c.clock.Events().Subscribe("day-rollover", func(e ClockEvent) {
		if _, ok := e.(DayEndedEvent); ok && c.cfg.AutoStartNextDay {
			c.scheduler.Debounce(StartDayKey, c.cfg.NextDayDelay, func(context.Context) { c.StartDay() })
		}
	})

	return c, nil
}

// Accessors

func (c *Context) SessionID() string                                { return c.sessionID }
func (c *Context) Clock() *GameClock                                { return c.clock }
func (c *Context) Driver() *Driver                                  { return c.driver }
func (c *Context) Scheduler() *Scheduler                            { return c.scheduler }
func (c *Context) Store() *tasks.Store                              { return c.store }
func (c *Context) Engine() *assignment.Engine                       { return c.engine }
func (c *Context) Monitor() *integrity.Monitor                      { return c.monitor }
func (c *Context) Verifier() *domainsim.ProgressVerifier            { return c.verifier }
func (c *Context) TaskEvents() *events.Bus[task.Event]              { return c.store.Events() }
func (c *Context) ClockEvents() *events.Bus[ClockEvent]             { return c.clock.Events() }
func (c *Context) SweepReports() *events.Bus[integrity.SweepReport] { return c.sweeps }
func (c *Context) LastSweep() integrity.SweepReport                 { return c.lastSweep }

// Tick is the single host-loop entry point: advance simulated time by the
// real delta, then run every scheduled job that came due.
// Returns the number of fixed steps executed.
func (c *Context) Tick(ctx context.Context, realDelta time.Duration) int {
	steps := c.driver.Advance(ctx, realDelta)
	c.scheduler.RunDue(ctx, realDelta)
	return steps
}

// IsSimulating reports whether simulated time is currently flowing
func (c *Context) IsSimulating() bool {
	return !c.driver.IsPaused() && c.clock.IsActive()
}

// StartDay opens the next business day
func (c *Context) StartDay() {
	c.scheduler.Cancel(StartDayKey)
	c.driver.ResetAccumulator()
	c.clock.StartDay()
	c.engine.RequestAssignment("day started")
}

// Sweep runs an integrity sweep now and publishes its report
func (c *Context) Sweep(ctx context.Context) integrity.SweepReport {
	c.lastSweep = c.monitor.Sweep(ctx)
	c.sweeps.Publish(c.lastSweep)
	return c.lastSweep
}

// Controls

func (c *Context) Pause()                       { c.driver.Pause() }
func (c *Context) Resume()                      { c.driver.Resume() }
func (c *Context) TogglePause() bool            { return c.driver.TogglePause() }
func (c *Context) SetSpeed(speed float64) error { return c.driver.SetSpeed(speed) }

// AddTask is a convenience for producers
func (c *Context) AddTask(ctx context.Context, d task.Descriptor) (*task.Task, error) {
	return c.store.AddTask(ctx, d)
}

// Snapshot captures tasks, workers and clock state
func (c *Context) Snapshot(ctx context.Context) (*domainsim.Snapshot, error) {
	workers, err := c.workers.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list workers: %w", err)
	}
	state := c.clock.State()
	state.IsPaused = c.driver.IsPaused()
	state.Speed = c.driver.Speed()

	snap := &domainsim.Snapshot{
		SessionID:    c.sessionID,
		SavedAt:      c.wallClock.Now(),
		Clock:        state,
		NextSequence: c.store.NextSequence(),
	}
	for _, t := range c.store.All() {
		snap.Tasks = append(snap.Tasks, t.ToRecord())
	}
	for _, w := range workers {
		snap.Workers = append(snap.Workers, w.ToRecord())
	}
	return snap, nil
}

// Restore loads a snapshot into this context. The integrity sweep repairs
// any cross-reference the snapshot left inconsistent.
func (c *Context) Restore(ctx context.Context, snap *domainsim.Snapshot) error {
	if snap == nil {
		return fmt.Errorf("snapshot is nil")
	}
	if err := c.store.Restore(snap.Tasks, snap.NextSequence); err != nil {
		return fmt.Errorf("failed to restore tasks: %w", err)
	}
	for _, r := range snap.Workers {
		if err := c.workers.Save(ctx, staff.FromRecord(r)); err != nil {
			return fmt.Errorf("failed to restore worker %s: %w", r.ID, err)
		}
	}
	c.clock.Restore(snap.Clock)
	if snap.Clock.Speed > 0 {
		if err := c.driver.SetSpeed(snap.Clock.Speed); err != nil {
			c.logger.Log(common.LevelWarning, "Ignoring restored speed", map[string]interface{}{"error": err.Error()})
		}
	}
	if snap.Clock.IsPaused {
		c.driver.Pause()
	} else {
		c.driver.Resume()
	}
	c.sessionID = snap.SessionID
	c.lastSweep = c.monitor.Sweep(ctx)
	c.logger.Log(common.LevelInfo, "Snapshot restored", map[string]interface{}{
		"session_id": snap.SessionID,
		"tasks":      len(snap.Tasks),
		"workers":    len(snap.Workers),
		"day":        snap.Clock.Day,
	})
	return nil
}
