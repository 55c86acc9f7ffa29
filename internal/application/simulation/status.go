package simulation

import (
	"context"
	"time"

	"github.com/andrescamacho/pharmasim-go/internal/application/integrity"
	"github.com/andrescamacho/pharmasim-go/internal/domain/shared"
	"github.com/andrescamacho/pharmasim-go/internal/domain/task"
)

// Status is an immutable view of the engine, safe to hand to other goroutines
type Status struct {
	SessionID      string                    `json:"session_id"`
	Lifecycle      shared.SessionStatus      `json:"lifecycle"`
	Uptime         time.Duration             `json:"uptime_ns"`
	Day            int                       `json:"day"`
	SimTime        time.Time                 `json:"sim_time"`
	Active         bool                      `json:"active"`
	Paused         bool                      `json:"paused"`
	Speed          float64                   `json:"speed"`
	TotalTasks     int                       `json:"total_tasks"`
	TasksByStatus  map[task.TaskStatus]int   `json:"tasks_by_status"`
	TasksByType    map[task.TaskType]int     `json:"tasks_by_type"`
	IdleWorkers    int                       `json:"idle_workers"`
	BusyWorkers    int                       `json:"busy_workers"`
	AnomalyCount   int                       `json:"anomaly_count"`
	VerifierResets int                       `json:"verifier_resets"`
	AssignPasses   int                       `json:"assign_passes"`
	Integrity      integrity.RecoveryMetrics `json:"integrity"`
	LastSweep      *time.Time                `json:"last_sweep,omitempty"`
	LastSweepOK    bool                      `json:"last_sweep_ok"`
	UpdatedAt      time.Time                 `json:"updated_at"`
}

// Healthy reports whether the session is running and the last sweep had no errors
func (s Status) Healthy() bool {
	return s.Lifecycle == shared.SessionStatusRunning && s.LastSweepOK
}

// Status builds a Status. Must be called from the goroutine that owns the context.
func (c *Context) Status(ctx context.Context) Status {
	st := Status{
		SessionID:      c.sessionID,
		Day:            c.clock.Day(),
		SimTime:        c.clock.Now(),
		Active:         c.clock.IsActive(),
		Paused:         c.driver.IsPaused(),
		Speed:          c.driver.Speed(),
		TasksByStatus:  make(map[task.TaskStatus]int),
		TasksByType:    make(map[task.TaskType]int),
		AnomalyCount:   c.verifier.AnomalyCount(),
		VerifierResets: c.verifier.Resets(),
		AssignPasses:   c.engine.Passes(),
		Integrity:      c.monitor.Metrics(),
		LastSweep:      c.monitor.LastSweepTime(),
		LastSweepOK:    len(c.lastSweep.Errors) == 0,
		UpdatedAt:      c.wallClock.Now(),
	}
	for _, t := range c.store.All() {
		st.TotalTasks++
		st.TasksByStatus[t.Status()]++
		st.TasksByType[t.Type()]++
	}
	if workers, err := c.workers.List(ctx); err == nil {
		for _, w := range workers {
			if w.IsIdle() {
				st.IdleWorkers++
			} else {
				st.BusyWorkers++
			}
		}
	}
	return st
}
