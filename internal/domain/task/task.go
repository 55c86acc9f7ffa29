package task

import (
	"time"

	"github.com/andrescamacho/pharmasim-go/internal/domain/shared"
	"github.com/andrescamacho/pharmasim-go/internal/domain/staff"
)

// Descriptor is what producers hand to the store to create a task.
// Zero values are replaced by defaults: TotalTime by the type's standard
// duration, RoleNeeded by the canonical role, Priority by PriorityNormal.
type Descriptor struct {
	ID               string
	Type             TaskType
	TotalTime        float64
	RoleNeeded       staff.Role
	Priority         Priority
	CustomerID       string
	PrescriptionID   string
	ProductID        string
	DependencyTaskID string
}

// Task is a unit of work measured in simulated minutes.
//
// State Machine:
//
//	PENDING_DEPENDENT -> PENDING -> IN_PROGRESS -> COMPLETED
//	                        ^            |
//	                        \------------/ (release: unassign, infeasible, repair)
//
// IN_PROGRESS holds exactly when assignedTo is set. The worker side of the
// pair is kept in step by the assignment binder.
type Task struct {
	id       string
	sequence int64
	taskType TaskType
	status   TaskStatus

	progress  float64
	totalTime float64

	assignedTo string
	roleNeeded staff.Role
	priority   Priority

	customerID       string
	prescriptionID   string
	productID        string
	dependencyTaskID string

	createdAt        time.Time
	assignedAt       *time.Time
	lastProgressTime time.Time

	clock shared.Clock
}

// NewTask creates a task from a descriptor. dependencyOpen tells whether the
// referenced dependency exists and has not completed yet.
func NewTask(id string, sequence int64, d Descriptor, dependencyOpen bool, clock shared.Clock) (*Task, error) {
	if id == "" {
		return nil, shared.NewValidationError("id", "task id is required")
	}
	if !d.Type.IsValid() {
		return nil, shared.NewValidationError("type", "unknown task type "+string(d.Type))
	}
	if d.TotalTime < 0 {
		return nil, shared.NewValidationError("totalTime", "must be positive")
	}
	if d.RoleNeeded != "" && !d.RoleNeeded.IsValid() {
		return nil, shared.NewValidationError("roleNeeded", "unknown role "+string(d.RoleNeeded))
	}
	if d.DependencyTaskID != "" && d.DependencyTaskID == id {
		return nil, shared.NewValidationError("dependencyTaskId", "task cannot depend on itself")
	}

	clock = shared.OrRealClock(clock)
	now := clock.Now()

	totalTime := d.TotalTime
	if totalTime == 0 {
		totalTime = DefaultTotalTime(d.Type)
	}
	role := d.RoleNeeded
	if role == "" {
		role = CanonicalRole(d.Type)
	}
	priority := d.Priority
	if priority == "" {
		priority = PriorityNormal
	}
	status := TaskStatusPending
	if d.DependencyTaskID != "" && dependencyOpen {
		status = TaskStatusPendingDependent
	}

	return &Task{
		id:               id,
		sequence:         sequence,
		taskType:         d.Type,
		status:           status,
		totalTime:        totalTime,
		roleNeeded:       role,
		priority:         priority,
		customerID:       d.CustomerID,
		prescriptionID:   d.PrescriptionID,
		productID:        d.ProductID,
		dependencyTaskID: d.DependencyTaskID,
		createdAt:        now,
		lastProgressTime: now,
		clock:            clock,
	}, nil
}

// Getters

func (t *Task) ID() string                  { return t.id }
func (t *Task) Sequence() int64             { return t.sequence }
func (t *Task) Type() TaskType              { return t.taskType }
func (t *Task) Status() TaskStatus          { return t.status }
func (t *Task) Progress() float64           { return t.progress }
func (t *Task) TotalTime() float64          { return t.totalTime }
func (t *Task) AssignedTo() string          { return t.assignedTo }
func (t *Task) RoleNeeded() staff.Role      { return t.roleNeeded }
func (t *Task) Priority() Priority          { return t.priority }
func (t *Task) CustomerID() string          { return t.customerID }
func (t *Task) PrescriptionID() string      { return t.prescriptionID }
func (t *Task) ProductID() string           { return t.productID }
func (t *Task) DependencyTaskID() string    { return t.dependencyTaskID }
func (t *Task) CreatedAt() time.Time        { return t.createdAt }
func (t *Task) AssignedAt() *time.Time      { return t.assignedAt }
func (t *Task) LastProgressTime() time.Time { return t.lastProgressTime }

func (t *Task) IsAssigned() bool   { return t.assignedTo != "" }
func (t *Task) IsCompleted() bool  { return t.status == TaskStatusCompleted }
func (t *Task) IsInProgress() bool { return t.status == TaskStatusInProgress }

// IsAssignable reports whether the task may be bound to an idle worker
func (t *Task) IsAssignable() bool {
	return t.status == TaskStatusPending && t.assignedTo == ""
}

// HasReachedTotal reports whether accumulated progress covers the total time
func (t *Task) HasReachedTotal() bool {
	return t.progress >= t.totalTime
}

// State transitions

// Start binds the task to workerID and moves it to IN_PROGRESS
func (t *Task) Start(workerID string) error {
	if t.status != TaskStatusPending {
		return &ErrInvalidTaskTransition{TaskID: t.id, From: t.status, To: TaskStatusInProgress}
	}
	if t.assignedTo != "" && t.assignedTo != workerID {
		return &ErrTaskAlreadyAssigned{TaskID: t.id, AssignedWorker: t.assignedTo}
	}
	now := t.clock.Now()
	t.assignedTo = workerID
	t.status = TaskStatusInProgress
	t.assignedAt = &now
	t.lastProgressTime = now
	return nil
}

// Release clears the assignee and returns the task to PENDING.
// Progress already made is kept.
func (t *Task) Release() error {
	if t.status == TaskStatusCompleted {
		return &ErrInvalidTaskTransition{
			TaskID:      t.id,
			From:        t.status,
			To:          TaskStatusPending,
			Description: "completed tasks are finalized, not released",
		}
	}
	if t.status == TaskStatusPendingDependent {
		t.assignedTo = ""
		t.assignedAt = nil
		return nil
	}
	t.assignedTo = ""
	t.assignedAt = nil
	t.status = TaskStatusPending
	return nil
}

// Activate moves a PENDING_DEPENDENT task to PENDING once its dependency is gone or done
func (t *Task) Activate() error {
	if t.status != TaskStatusPendingDependent {
		return &ErrInvalidTaskTransition{TaskID: t.id, From: t.status, To: TaskStatusPending}
	}
	t.status = TaskStatusPending
	return nil
}

// AddProgress adds simulated minutes and stamps the wall-clock progress time
func (t *Task) AddProgress(minutes float64) {
	if minutes <= 0 {
		return
	}
	t.progress += minutes
	t.lastProgressTime = t.clock.Now()
}

// SetProgress overwrites progress, used to clamp to the verified expectation
func (t *Task) SetProgress(progress float64) {
	if progress < 0 {
		progress = 0
	}
	t.progress = progress
}

// Complete clamps progress to total time and marks the task COMPLETED
func (t *Task) Complete() error {
	if t.status != TaskStatusInProgress {
		return &ErrInvalidTaskTransition{TaskID: t.id, From: t.status, To: TaskStatusCompleted}
	}
	t.progress = t.totalTime
	t.status = TaskStatusCompleted
	return nil
}

// ForceComplete fabricates full progress regardless of state. Recovery only.
func (t *Task) ForceComplete() {
	t.progress = t.totalTime
	t.status = TaskStatusCompleted
	t.lastProgressTime = t.clock.Now()
}

// IsStale reports whether an IN_PROGRESS task has made no progress within threshold
func (t *Task) IsStale(threshold time.Duration) bool {
	if t.status != TaskStatusInProgress {
		return false
	}
	return t.clock.Now().Sub(t.lastProgressTime) > threshold
}

// SinceLastProgress returns the wall-clock time since progress was last applied
func (t *Task) SinceLastProgress() time.Duration {
	return t.clock.Now().Sub(t.lastProgressTime)
}
