package simulation

import (
	"context"
	"time"

	"github.com/andrescamacho/pharmasim-go/internal/application/common"
	"github.com/andrescamacho/pharmasim-go/internal/application/events"
	domainsim "github.com/andrescamacho/pharmasim-go/internal/domain/simulation"
)

// Clock defaults
const (
	DefaultOpeningHour = 8
	DefaultClosingHour = 22
)

// ClockEvent is published by the game clock
type ClockEvent interface {
	isClockEvent()
}

// MinuteElapsedEvent fires for every whole simulated minute boundary crossed
type MinuteElapsedEvent struct {
	At time.Time
}

// HourElapsedEvent fires when a crossed minute boundary starts an hour
type HourElapsedEvent struct {
	At   time.Time
	Hour int
}

// DayEndedEvent fires once when the closing-hour boundary is crossed
type DayEndedEvent struct {
	Day int
	At  time.Time
}

// DayStartedEvent fires when a new business day opens
type DayStartedEvent struct {
	Day int
	At  time.Time
}

func (MinuteElapsedEvent) isClockEvent() {}
func (HourElapsedEvent) isClockEvent()   {}
func (DayEndedEvent) isClockEvent()      {}
func (DayStartedEvent) isClockEvent()    {}

// TimeListener receives the exact simulated minutes of every advance
type TimeListener interface {
	OnTimeAdvance(ctx context.Context, simMinutes float64) error
}

// TimeListenerFunc adapts a function to TimeListener
type TimeListenerFunc func(ctx context.Context, simMinutes float64) error

func (f TimeListenerFunc) OnTimeAdvance(ctx context.Context, simMinutes float64) error {
	return f(ctx, simMinutes)
}

// ClockConfig configures business hours and the first day
type ClockConfig struct {
	OpeningHour int
	ClosingHour int
	StartDate   time.Time
}

type namedListener struct {
	name     string
	listener TimeListener
}

// GameClock owns simulated time. It is only active during business hours;
// crossing the closing hour deactivates it until StartDay.
type GameClock struct {
	current     time.Time
	day         int
	active      bool
	openingHour int
	closingHour int

	listeners []namedListener
	bus       *events.Bus[ClockEvent]
	logger    common.Logger
}

// NewGameClock creates an active clock at the opening hour of day one
func NewGameClock(cfg ClockConfig, logger common.Logger) *GameClock {
	if cfg.OpeningHour < 0 || cfg.OpeningHour > 23 {
		cfg.OpeningHour = DefaultOpeningHour
	}
	if cfg.ClosingHour <= cfg.OpeningHour || cfg.ClosingHour > 23 {
		cfg.ClosingHour = DefaultClosingHour
	}
	start := cfg.StartDate
	if start.IsZero() {
		start = time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC)
	}
	logger = common.OrNoOp(logger)
	return &GameClock{
		current:     atHour(start, cfg.OpeningHour),
		day:         1,
		active:      true,
		openingHour: cfg.OpeningHour,
		closingHour: cfg.ClosingHour,
		bus:         events.NewBus[ClockEvent]("clock", logger),
		logger:      logger,
	}
}

// Getters

func (c *GameClock) Now() time.Time                  { return c.current }
func (c *GameClock) Day() int                        { return c.day }
func (c *GameClock) IsActive() bool                  { return c.active }
func (c *GameClock) OpeningHour() int                { return c.openingHour }
func (c *GameClock) ClosingHour() int                { return c.closingHour }
func (c *GameClock) Events() *events.Bus[ClockEvent] { return c.bus }

// AddListener registers a time listener; listeners run in registration order
func (c *GameClock) AddListener(name string, listener TimeListener) {
	c.listeners = append(c.listeners, namedListener{name: name, listener: listener})
}

// Advance moves simulated time forward by simMinutes (fractional allowed),
// notifies listeners with the minutes that actually elapsed, then fires
// boundary events. Time stops at the closing boundary, so listeners never see
// minutes past it. Listener and subscriber failures are logged and never stop
// the clock.
func (c *GameClock) Advance(ctx context.Context, simMinutes float64) {
	if !c.active || simMinutes <= 0 {
		return
	}
	prev := c.current
	c.current = prev.Add(time.Duration(simMinutes * float64(time.Minute)))
	if closing := c.nextClosing(prev); c.current.After(closing) {
		c.current = closing
		simMinutes = closing.Sub(prev).Minutes()
	}

	for _, l := range c.listeners {
		l := l
		common.Guard(c.logger, "time_listener/"+l.name, map[string]interface{}{
			"sim_minutes": simMinutes,
		}, func() error {
			return l.listener.OnTimeAdvance(ctx, simMinutes)
		})
	}

	for boundary := prev.Truncate(time.Minute).Add(time.Minute); !boundary.After(c.current); boundary = boundary.Add(time.Minute) {
		c.bus.Publish(MinuteElapsedEvent{At: boundary})
		if boundary.Minute() == 0 {
			c.bus.Publish(HourElapsedEvent{At: boundary, Hour: boundary.Hour()})
		}
		if c.active && boundary.Hour() == c.closingHour && boundary.Minute() == 0 {
			c.active = false
			c.current = boundary
			c.logger.Log(common.LevelInfo, "Business day ended", map[string]interface{}{
				"day": c.day,
				"at":  boundary.Format(time.RFC3339),
			})
			c.bus.Publish(DayEndedEvent{Day: c.day, At: boundary})
			return
		}
	}
}

// StartDay opens the next business day at the opening hour
func (c *GameClock) StartDay() {
	next := atHour(c.current, c.openingHour)
	if !next.After(c.current) {
		next = next.AddDate(0, 0, 1)
	}
	c.current = next
	c.day++
	c.active = true
	c.logger.Log(common.LevelInfo, "Business day started", map[string]interface{}{
		"day": c.day,
		"at":  next.Format(time.RFC3339),
	})
	c.bus.Publish(DayStartedEvent{Day: c.day, At: next})
}

// State exports the persisted clock fields
func (c *GameClock) State() domainsim.ClockState {
	return domainsim.ClockState{SimTime: c.current, Day: c.day, IsActive: c.active}
}

// Restore loads persisted clock fields
func (c *GameClock) Restore(state domainsim.ClockState) {
	c.current = state.SimTime
	c.day = state.Day
	c.active = state.IsActive
}

// nextClosing is the first closing boundary strictly after t
func (c *GameClock) nextClosing(t time.Time) time.Time {
	closing := atHour(t, c.closingHour)
	if !closing.After(t) {
		closing = closing.AddDate(0, 0, 1)
	}
	return closing
}

func atHour(t time.Time, hour int) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, hour, 0, 0, 0, t.Location())
}
