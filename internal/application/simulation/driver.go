package simulation

import (
	"context"
	"fmt"
	"time"

	"github.com/andrescamacho/pharmasim-go/internal/application/common"
	"github.com/andrescamacho/pharmasim-go/internal/domain/shared"
)

// Driver defaults
const (
	DefaultFixedStep         = time.Second / 60
	DefaultGameMinute        = time.Second
	DefaultMaxUpdatesPerCall = 10
	DefaultMinSpeed          = 0.25
	DefaultMaxSpeed          = 16.0
)

// DriverConfig configures the fixed-timestep loop
type DriverConfig struct {
	FixedStep         time.Duration // Real time consumed per update
	GameMinute        time.Duration // Real time that equals one simulated minute at speed 1
	MaxUpdatesPerCall int
	Speed             float64
	MinSpeed          float64
	MaxSpeed          float64
}

// Driver converts real elapsed time into simulated minutes using a fixed step.
// At most MaxUpdatesPerCall steps run per call; the remainder carries over.
type Driver struct {
	clock       *GameClock
	cfg         DriverConfig
	accumulator time.Duration
	paused      bool
	speed       float64
	steps       uint64
	logger      common.Logger
}

// NewDriver creates a running driver for clock
func NewDriver(clock *GameClock, cfg DriverConfig, logger common.Logger) *Driver {
	if cfg.FixedStep <= 0 {
		cfg.FixedStep = DefaultFixedStep
	}
	if cfg.GameMinute <= 0 {
		cfg.GameMinute = DefaultGameMinute
	}
	if cfg.MaxUpdatesPerCall <= 0 {
		cfg.MaxUpdatesPerCall = DefaultMaxUpdatesPerCall
	}
	if cfg.MinSpeed <= 0 {
		cfg.MinSpeed = DefaultMinSpeed
	}
	if cfg.MaxSpeed < cfg.MinSpeed {
		cfg.MaxSpeed = DefaultMaxSpeed
	}
	speed := cfg.Speed
	if speed < cfg.MinSpeed || speed > cfg.MaxSpeed {
		speed = 1
	}
	return &Driver{
		clock:  clock,
		cfg:    cfg,
		speed:  speed,
		logger: common.OrNoOp(logger),
	}
}

// Getters

func (d *Driver) IsPaused() bool             { return d.paused }
func (d *Driver) Speed() float64             { return d.speed }
func (d *Driver) Accumulator() time.Duration { return d.accumulator }
func (d *Driver) Steps() uint64              { return d.steps }
func (d *Driver) Config() DriverConfig       { return d.cfg }

// StepMinutes returns the simulated minutes one fixed step produces at the current speed
func (d *Driver) StepMinutes() float64 {
	return float64(d.cfg.FixedStep) * d.speed / float64(d.cfg.GameMinute)
}

// Advance consumes realDelta and returns the number of fixed steps executed.
// Nothing accumulates while paused or while the clock is inactive.
func (d *Driver) Advance(ctx context.Context, realDelta time.Duration) int {
	if d.paused || !d.clock.IsActive() || realDelta <= 0 {
		return 0
	}
	d.accumulator += realDelta

	updates := 0
	for d.accumulator >= d.cfg.FixedStep && updates < d.cfg.MaxUpdatesPerCall {
		d.clock.Advance(ctx, d.StepMinutes())
		d.accumulator -= d.cfg.FixedStep
		updates++
		d.steps++
		if !d.clock.IsActive() {
			// Day is over; leftover time belongs to no business day
			d.accumulator = 0
			break
		}
	}
	return updates
}

// Pause halts advancement
func (d *Driver) Pause() {
	if d.paused {
		return
	}
	d.paused = true
	d.logger.Log(common.LevelInfo, "Simulation paused", nil)
}

// Resume restarts advancement with an empty accumulator so the paused
// interval is never replayed
func (d *Driver) Resume() {
	d.accumulator = 0
	if !d.paused {
		return
	}
	d.paused = false
	d.logger.Log(common.LevelInfo, "Simulation resumed", nil)
}

// TogglePause flips the paused state and returns the new value
func (d *Driver) TogglePause() bool {
	if d.paused {
		d.Resume()
	} else {
		d.Pause()
	}
	return d.paused
}

// SetSpeed changes the speed multiplier within the configured range
func (d *Driver) SetSpeed(speed float64) error {
	if speed < d.cfg.MinSpeed || speed > d.cfg.MaxSpeed {
		return shared.NewValidationError("speed",
			fmt.Sprintf("must be between %.2f and %.2f, got %.2f", d.cfg.MinSpeed, d.cfg.MaxSpeed, speed))
	}
	d.speed = speed
	d.logger.Log(common.LevelInfo, "Simulation speed changed", map[string]interface{}{"speed": speed})
	return nil
}

// ResetAccumulator drops carried-over time
func (d *Driver) ResetAccumulator() {
	d.accumulator = 0
}
