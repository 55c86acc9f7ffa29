package staff

import "fmt"

// ErrWorkerNotFound indicates a worker id has no entry in the directory
type ErrWorkerNotFound struct {
	WorkerID string
}

func (e *ErrWorkerNotFound) Error() string {
	return fmt.Sprintf("worker not found: %s", e.WorkerID)
}

// ErrUnknownRole indicates a role string could not be mapped to a canonical role
type ErrUnknownRole struct {
	Raw string
}

func (e *ErrUnknownRole) Error() string {
	return fmt.Sprintf("unknown role: %q", e.Raw)
}

// ErrWorkerBusy indicates a worker already holds a different task
type ErrWorkerBusy struct {
	WorkerID      string
	CurrentTaskID string
}

func (e *ErrWorkerBusy) Error() string {
	return fmt.Sprintf("worker %s is busy with task %s", e.WorkerID, e.CurrentTaskID)
}
