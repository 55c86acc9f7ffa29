package simulation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/andrescamacho/pharmasim-go/internal/application/common"
	"github.com/andrescamacho/pharmasim-go/internal/domain/shared"
	domainsim "github.com/andrescamacho/pharmasim-go/internal/domain/simulation"
)

// SnapshotKey is the scheduler key of the periodic snapshot job
const SnapshotKey = "snapshot"

// ErrRunnerStopped is returned by Do once the loop has exited
var ErrRunnerStopped = errors.New("simulation runner is not running")

// RunnerConfig controls the host loop
type RunnerConfig struct {
	TickInterval     time.Duration // Real time between ticks (default 50ms)
	SnapshotInterval time.Duration // Zero disables periodic snapshots
	MaxDelta         time.Duration // Longest real delta fed into one tick (default 1s)
}

func (c RunnerConfig) withDefaults() RunnerConfig {
	if c.TickInterval <= 0 {
		c.TickInterval = 50 * time.Millisecond
	}
	if c.MaxDelta <= 0 {
		c.MaxDelta = time.Second
	}
	return c
}

type command struct {
	fn    func(ctx context.Context, sim *Context) error
	reply chan error
}

// Runner hosts a Context on a single goroutine. Every mutation from outside
// goes through Do, so the engine itself never needs locks.
type Runner struct {
	sim       *Context
	cfg       RunnerConfig
	snapshots domainsim.SnapshotRepository
	lifecycle *shared.SessionLifecycle
	commands  chan command
	done      chan struct{}
	clock     shared.Clock
	logger    common.Logger

	mu     sync.RWMutex
	status Status
}

// NewRunner creates a runner. snapshots may be nil.
func NewRunner(sim *Context, cfg RunnerConfig, snapshots domainsim.SnapshotRepository, clock shared.Clock, logger common.Logger) *Runner {
	clock = shared.OrRealClock(clock)
	r := &Runner{
		sim:       sim,
		cfg:       cfg.withDefaults(),
		snapshots: snapshots,
		lifecycle: shared.NewSessionLifecycle(clock),
		commands:  make(chan command),
		done:      make(chan struct{}),
		clock:     clock,
		logger:    common.OrNoOp(logger),
	}
	r.status = r.buildStatus(context.Background())
	return r
}

// Status returns the latest published status
func (r *Runner) Status() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.status
}

// Done is closed when Run returns
func (r *Runner) Done() <-chan struct{} { return r.done }

// Run ticks the engine until ctx is cancelled
func (r *Runner) Run(ctx context.Context) error {
	defer close(r.done)
	if err := r.lifecycle.Start(); err != nil {
		return err
	}
	ctx = common.WithLogger(ctx, r.logger)

	if r.snapshots != nil && r.cfg.SnapshotInterval > 0 {
		r.sim.Scheduler().Every(SnapshotKey, r.cfg.SnapshotInterval, func(ctx context.Context) {
			if err := r.saveSnapshot(ctx); err != nil {
				common.LoggerFromContext(ctx).Log(common.LevelError, "Periodic snapshot failed", map[string]interface{}{"error": err.Error()})
			}
		})
	}

	ticker := time.NewTicker(r.cfg.TickInterval)
	defer ticker.Stop()

	r.logger.Log(common.LevelInfo, "Simulation runner started", map[string]interface{}{
		"session_id":    r.sim.SessionID(),
		"tick_interval": r.cfg.TickInterval.String(),
	})
	r.publish(ctx)

	last := r.clock.Now()
	for {
		select {
		case <-ctx.Done():
			return r.shutdown()
		case cmd := <-r.commands:
			cmd.reply <- r.execute(ctx, cmd)
			r.publish(ctx)
		case <-ticker.C:
			now := r.clock.Now()
			delta := now.Sub(last)
			last = now
			if delta > r.cfg.MaxDelta {
				delta = r.cfg.MaxDelta
			}
			r.sim.Tick(ctx, delta)
			r.publish(ctx)
		}
	}
}

// Do runs fn on the loop goroutine and waits for it
func (r *Runner) Do(ctx context.Context, fn func(ctx context.Context, sim *Context) error) error {
	cmd := command{fn: fn, reply: make(chan error, 1)}
	select {
	case r.commands <- cmd:
	case <-r.done:
		return ErrRunnerStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-cmd.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SaveSnapshot persists the current state through the runner loop
func (r *Runner) SaveSnapshot(ctx context.Context) error {
	if r.snapshots == nil {
		return fmt.Errorf("no snapshot repository configured")
	}
	return r.Do(ctx, func(ctx context.Context, _ *Context) error {
		return r.saveSnapshot(ctx)
	})
}

func (r *Runner) execute(ctx context.Context, cmd command) error {
	if hookErr := common.SafeCall("runner.command", func() error { return cmd.fn(ctx, r.sim) }); hookErr != nil {
		var he *shared.HookError
		if errors.As(hookErr, &he) && he.Recovered == nil && he.Cause != nil {
			return he.Cause
		}
		return hookErr
	}
	return nil
}

func (r *Runner) saveSnapshot(ctx context.Context) error {
	snap, err := r.sim.Snapshot(ctx)
	if err != nil {
		return err
	}
	if err := r.snapshots.Save(ctx, snap); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	r.logger.Log(common.LevelDebug, "Snapshot saved", map[string]interface{}{
		"session_id": snap.SessionID,
		"tasks":      len(snap.Tasks),
	})
	return nil
}

func (r *Runner) shutdown() error {
	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if r.snapshots != nil {
		if err := r.saveSnapshot(stopCtx); err != nil {
			r.logger.Log(common.LevelError, "Final snapshot failed", map[string]interface{}{"error": err.Error()})
		}
	}
	if err := r.lifecycle.Stop(); err != nil {
		return err
	}
	r.publish(stopCtx)
	r.logger.Log(common.LevelInfo, "Simulation runner stopped", map[string]interface{}{
		"session_id": r.sim.SessionID(),
		"uptime":     r.lifecycle.Uptime().String(),
	})
	return nil
}

func (r *Runner) publish(ctx context.Context) {
	st := r.buildStatus(ctx)
	r.mu.Lock()
	r.status = st
	r.mu.Unlock()
}

func (r *Runner) buildStatus(ctx context.Context) Status {
	st := r.sim.Status(ctx)
	st.Lifecycle = r.lifecycle.Status()
	st.Uptime = r.lifecycle.Uptime()
	return st
}
