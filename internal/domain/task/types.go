package task

import (
	"fmt"
	"strings"

	"github.com/andrescamacho/pharmasim-go/internal/domain/staff"
)

// TaskType identifies the kind of work a task represents
type TaskType string

const (
	// TaskTypeCustomerInteraction - Front-counter work: check-in, checkout or general service
	TaskTypeCustomerInteraction TaskType = "CUSTOMER_INTERACTION"

	// TaskTypeConsultation - Pharmacist counsels a checked-in customer
	TaskTypeConsultation TaskType = "CONSULTATION"

	// TaskTypeFillPrescription - Dispense a prescription from product stock
	TaskTypeFillPrescription TaskType = "FILL_PRESCRIPTION"

	// TaskTypeCompound - Produce a product from raw materials, often ahead of a fill
	TaskTypeCompound TaskType = "COMPOUND"

	// TaskTypeProduction - Batch manufacturing for inventory
	TaskTypeProduction TaskType = "PRODUCTION"
)

// AllTaskTypes lists the known task types
var AllTaskTypes = []TaskType{
	TaskTypeCustomerInteraction,
	TaskTypeConsultation,
	TaskTypeFillPrescription,
	TaskTypeCompound,
	TaskTypeProduction,
}

// ParseTaskType maps external input to a TaskType, failing on unknown values
func ParseTaskType(raw string) (TaskType, error) {
	normalized := strings.ToUpper(strings.TrimSpace(raw))
	normalized = strings.ReplaceAll(normalized, " ", "_")
	for _, t := range AllTaskTypes {
		if string(t) == normalized {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown task type: %q", raw)
}

func (t TaskType) IsValid() bool {
	for _, known := range AllTaskTypes {
		if t == known {
			return true
		}
	}
	return false
}

// IsResourceGated reports whether the type needs a stock feasibility check
// before assignment and on every tick while in progress.
func (t TaskType) IsResourceGated() bool {
	return t == TaskTypeFillPrescription || t == TaskTypeCompound
}

// TaskStatus represents the current status of a task
type TaskStatus string

const (
	// TaskStatusPending - Ready to be assigned
	TaskStatusPending TaskStatus = "PENDING"

	// TaskStatusPendingDependent - Waiting for its dependency task to complete
	TaskStatusPendingDependent TaskStatus = "PENDING_DEPENDENT"

	// TaskStatusInProgress - Bound to a worker and accumulating progress
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"

	// TaskStatusCompleted - Progress reached total time; awaiting finalization
	TaskStatusCompleted TaskStatus = "COMPLETED"
)

// Priority is the producer's urgency hint. Contextual ordering rules in the
// assignment engine take precedence over it.
type Priority string

const (
	PriorityUrgent Priority = "URGENT"
	PriorityHigh   Priority = "HIGH"
	PriorityNormal Priority = "NORMAL"
	PriorityLow    Priority = "LOW"
)

// ParsePriority maps external input to a Priority. Empty input is NORMAL.
func ParsePriority(raw string) (Priority, error) {
	p := Priority(strings.ToUpper(strings.TrimSpace(raw)))
	switch p {
	case "":
		return PriorityNormal, nil
	case PriorityUrgent, PriorityHigh, PriorityNormal, PriorityLow:
		return p, nil
	}
	return "", fmt.Errorf("unknown priority: %q", raw)
}

// Rank orders priorities, lower first
func (p Priority) Rank() int {
	switch p {
	case PriorityUrgent:
		return 0
	case PriorityHigh:
		return 1
	case PriorityLow:
		return 3
	default:
		return 2
	}
}

// Default durations in simulated minutes
const (
	DefaultCustomerInteractionMinutes = 5.0
	DefaultConsultationMinutes        = 10.0
	DefaultFillPrescriptionMinutes    = 15.0
	DefaultCompoundMinutes            = 30.0
	DefaultProductionMinutes          = 60.0
)

// DefaultTotalTime returns the standard duration for a task type
func DefaultTotalTime(t TaskType) float64 {
	switch t {
	case TaskTypeCustomerInteraction:
		return DefaultCustomerInteractionMinutes
	case TaskTypeConsultation:
		return DefaultConsultationMinutes
	case TaskTypeFillPrescription:
		return DefaultFillPrescriptionMinutes
	case TaskTypeCompound:
		return DefaultCompoundMinutes
	case TaskTypeProduction:
		return DefaultProductionMinutes
	default:
		return DefaultCustomerInteractionMinutes
	}
}

// CanonicalRole returns the role that primarily performs a task type
func CanonicalRole(t TaskType) staff.Role {
	switch t {
	case TaskTypeCustomerInteraction:
		return staff.RoleCashier
	case TaskTypeConsultation, TaskTypeFillPrescription:
		return staff.RolePharmacist
	case TaskTypeCompound, TaskTypeProduction:
		return staff.RoleTechnician
	default:
		return staff.RoleAssistant
	}
}
