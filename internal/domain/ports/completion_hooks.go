package ports

import (
	"context"

	"github.com/andrescamacho/pharmasim-go/internal/domain/task"
)

// CompletionHooks receives side effects when a task is finalized.
//
// Every method may fail or panic; the task store isolates each call so one
// failing collaborator never blocks removal of the task or release of its
// worker.
type CompletionHooks interface {
	// MoodOnCompletion applies morale effects to the worker who finished the task
	MoodOnCompletion(ctx context.Context, workerID string, taskType task.TaskType) error

	// ProductionCompleted applies inventory effects; called for every finalized task
	ProductionCompleted(ctx context.Context, completed task.Record) error

	// PrescriptionFilled marks a prescription dispensed
	PrescriptionFilled(ctx context.Context, prescriptionID, customerID string) error

	// PaymentCompleted books revenue for a checked-out customer
	PaymentCompleted(ctx context.Context, customerID, prescriptionID string) error

	// CustomerDeparted records a customer leaving after checkout
	CustomerDeparted(ctx context.Context, customerID string) error
}
