package task

import "fmt"

// ErrInvalidTaskTransition indicates an invalid task state transition
type ErrInvalidTaskTransition struct {
	TaskID      string
	From        TaskStatus
	To          TaskStatus
	Description string
}

func (e *ErrInvalidTaskTransition) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("invalid task transition for %s: %s -> %s: %s",
			e.TaskID, e.From, e.To, e.Description)
	}
	return fmt.Sprintf("invalid task transition for %s: %s -> %s",
		e.TaskID, e.From, e.To)
}

// ErrTaskNotFound indicates a task could not be found
type ErrTaskNotFound struct {
	TaskID string
}

func (e *ErrTaskNotFound) Error() string {
	return fmt.Sprintf("task not found: %s", e.TaskID)
}

// ErrTaskAlreadyAssigned indicates a task is already bound to a worker
type ErrTaskAlreadyAssigned struct {
	TaskID         string
	AssignedWorker string
}

func (e *ErrTaskAlreadyAssigned) Error() string {
	return fmt.Sprintf("task %s already assigned to worker %s", e.TaskID, e.AssignedWorker)
}

// ErrDependencyNotMet indicates a task dependency has not been satisfied
type ErrDependencyNotMet struct {
	TaskID          string
	DependencyID    string
	DependencyState TaskStatus
}

func (e *ErrDependencyNotMet) Error() string {
	return fmt.Sprintf("task %s depends on %s which is in state %s",
		e.TaskID, e.DependencyID, e.DependencyState)
}

// ErrDuplicateTask indicates a descriptor reused an id already in the store
type ErrDuplicateTask struct {
	TaskID string
}

func (e *ErrDuplicateTask) Error() string {
	return fmt.Sprintf("task already exists: %s", e.TaskID)
}
