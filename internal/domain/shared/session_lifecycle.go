package shared

import (
	"fmt"
	"time"
)

// SessionStatus represents the lifecycle state of a simulation session
type SessionStatus string

const (
	// SessionStatusPending indicates the session is built but the loop has not started
	SessionStatusPending SessionStatus = "PENDING"

	// SessionStatusRunning indicates the host loop is ticking
	SessionStatusRunning SessionStatus = "RUNNING"

	// SessionStatusStopped indicates the session was stopped by the operator
	SessionStatusStopped SessionStatus = "STOPPED"

	// SessionStatusFailed indicates the host loop exited with an error
	SessionStatusFailed SessionStatus = "FAILED"
)

// SessionLifecycle manages PENDING → RUNNING → STOPPED/FAILED transitions for a
// simulation session hosted by the runner.
type SessionLifecycle struct {
	status    SessionStatus
	createdAt time.Time
	startedAt *time.Time
	stoppedAt *time.Time
	lastError error
	clock     Clock
}

// NewSessionLifecycle creates a lifecycle in PENDING state
func NewSessionLifecycle(clock Clock) *SessionLifecycle {
	clock = OrRealClock(clock)
	return &SessionLifecycle{
		status:    SessionStatusPending,
		createdAt: clock.Now(),
		clock:     clock,
	}
}

func (sl *SessionLifecycle) Status() SessionStatus { return sl.status }
func (sl *SessionLifecycle) CreatedAt() time.Time  { return sl.createdAt }
func (sl *SessionLifecycle) StartedAt() *time.Time { return sl.startedAt }
func (sl *SessionLifecycle) StoppedAt() *time.Time { return sl.stoppedAt }
func (sl *SessionLifecycle) LastError() error      { return sl.lastError }

// Start transitions from PENDING to RUNNING
func (sl *SessionLifecycle) Start() error {
	if sl.status != SessionStatusPending {
		return fmt.Errorf("cannot start session from %s state", sl.status)
	}
	now := sl.clock.Now()
	sl.status = SessionStatusRunning
	sl.startedAt = &now
	return nil
}

// Stop transitions from RUNNING to STOPPED
func (sl *SessionLifecycle) Stop() error {
	if sl.status != SessionStatusRunning {
		return fmt.Errorf("cannot stop session from %s state", sl.status)
	}
	now := sl.clock.Now()
	sl.status = SessionStatusStopped
	sl.stoppedAt = &now
	return nil
}

// Fail records err and transitions to FAILED from any non-terminal state
func (sl *SessionLifecycle) Fail(err error) error {
	if sl.IsFinished() {
		return fmt.Errorf("cannot fail session from %s state", sl.status)
	}
	now := sl.clock.Now()
	sl.status = SessionStatusFailed
	sl.lastError = err
	sl.stoppedAt = &now
	return nil
}

func (sl *SessionLifecycle) IsRunning() bool {
	return sl.status == SessionStatusRunning
}

func (sl *SessionLifecycle) IsFinished() bool {
	return sl.status == SessionStatusStopped || sl.status == SessionStatusFailed
}

// Uptime returns how long the session has been (or was) running
func (sl *SessionLifecycle) Uptime() time.Duration {
	if sl.startedAt == nil {
		return 0
	}
	end := sl.clock.Now()
	if sl.stoppedAt != nil {
		end = *sl.stoppedAt
	}
	return end.Sub(*sl.startedAt)
}
