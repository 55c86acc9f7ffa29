package task

import (
	"time"

	"github.com/andrescamacho/pharmasim-go/internal/domain/shared"
	"github.com/andrescamacho/pharmasim-go/internal/domain/staff"
)

// Record is the plain structured form of a task used for snapshots
type Record struct {
	ID               string     `json:"id"`
	Sequence         int64      `json:"sequence"`
	Type             string     `json:"type"`
	Status           string     `json:"status"`
	Progress         float64    `json:"progress"`
	TotalTime        float64    `json:"total_time"`
	AssignedTo       string     `json:"assigned_to,omitempty"`
	RoleNeeded       string     `json:"role_needed"`
	Priority         string     `json:"priority"`
	CustomerID       string     `json:"customer_id,omitempty"`
	PrescriptionID   string     `json:"prescription_id,omitempty"`
	ProductID        string     `json:"product_id,omitempty"`
	DependencyTaskID string     `json:"dependency_task_id,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	AssignedAt       *time.Time `json:"assigned_at,omitempty"`
	LastProgressTime time.Time  `json:"last_progress_time"`
}

// ToRecord exports the task state
func (t *Task) ToRecord() Record {
	return Record{
		ID:               t.id,
		Sequence:         t.sequence,
		Type:             string(t.taskType),
		Status:           string(t.status),
		Progress:         t.progress,
		TotalTime:        t.totalTime,
		AssignedTo:       t.assignedTo,
		RoleNeeded:       string(t.roleNeeded),
		Priority:         string(t.priority),
		CustomerID:       t.customerID,
		PrescriptionID:   t.prescriptionID,
		ProductID:        t.productID,
		DependencyTaskID: t.dependencyTaskID,
		CreatedAt:        t.createdAt,
		AssignedAt:       t.assignedAt,
		LastProgressTime: t.lastProgressTime,
	}
}

// FromRecord rebuilds a task from a snapshot record
func FromRecord(r Record, clock shared.Clock) (*Task, error) {
	taskType, err := ParseTaskType(r.Type)
	if err != nil {
		return nil, shared.NewValidationError("type", err.Error())
	}
	status := TaskStatus(r.Status)
	switch status {
	case TaskStatusPending, TaskStatusPendingDependent, TaskStatusInProgress, TaskStatusCompleted:
	default:
		return nil, shared.NewValidationError("status", "unknown status "+r.Status)
	}
	if r.TotalTime <= 0 {
		return nil, shared.NewValidationError("totalTime", "must be positive")
	}
	priority, err := ParsePriority(r.Priority)
	if err != nil {
		return nil, shared.NewValidationError("priority", err.Error())
	}
	role := staff.Role(r.RoleNeeded)
	if !role.IsValid() {
		role = CanonicalRole(taskType)
	}
	// Only IN_PROGRESS tasks hold a worker; a stale assignee would strand the task
	assignedTo, assignedAt := r.AssignedTo, r.AssignedAt
	if status == TaskStatusPending || status == TaskStatusPendingDependent {
		assignedTo, assignedAt = "", nil
	}

	return &Task{
		id:               r.ID,
		sequence:         r.Sequence,
		taskType:         taskType,
		status:           status,
		progress:         r.Progress,
		totalTime:        r.TotalTime,
		assignedTo:       assignedTo,
		roleNeeded:       role,
		priority:         priority,
		customerID:       r.CustomerID,
		prescriptionID:   r.PrescriptionID,
		productID:        r.ProductID,
		dependencyTaskID: r.DependencyTaskID,
		createdAt:        r.CreatedAt,
		assignedAt:       assignedAt,
		lastProgressTime: r.LastProgressTime,
		clock:            shared.OrRealClock(clock),
	}, nil
}
