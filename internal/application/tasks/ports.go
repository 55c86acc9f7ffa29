package tasks

import (
	"context"

	"github.com/andrescamacho/pharmasim-go/internal/domain/task"
)

// AssignmentBinder is the single writer of the task/worker assignment pair.
// The store calls it whenever a task must drop its worker.
type AssignmentBinder interface {
	// Release clears both sides of t's assignment and returns t to PENDING
	Release(ctx context.Context, t *task.Task, reason string) error

	// Detach clears the worker back-reference of a task being finalized and
	// returns the worker id that held it
	Detach(ctx context.Context, t *task.Task) string
}

// AssignmentRequester schedules a debounced assignment pass
type AssignmentRequester interface {
	RequestAssignment(reason string)
}
