package task

// Event is a task lifecycle event published on the store's bus.
// The set of variants is closed; subscribers switch on the concrete type.
type Event interface {
	EventTaskID() string
	isTaskEvent()
}

// TaskAddedEvent is published after a task is stored
type TaskAddedEvent struct {
	Task Record
}

// TaskProgressUpdatedEvent is published after progress is applied in a tick
type TaskProgressUpdatedEvent struct {
	TaskID    string
	WorkerID  string
	Progress  float64 // Progress after the tick
	TotalTime float64
	Delta     float64 // Simulated minutes applied
	Clamped   bool    // Progress was corrected to the verifier's expectation
}

// TaskStatusChangedEvent is published for every status transition the store makes
type TaskStatusChangedEvent struct {
	TaskID string
	From   TaskStatus
	To     TaskStatus
	Reason string
}

// TaskCompletedEvent is published during finalization, just before removal
type TaskCompletedEvent struct {
	Task     Record
	WorkerID string // Worker that held the task, empty for unassigned completions
	Forced   bool   // Completed by recovery rather than progress
}

// TaskCancelledEvent is published when a task is dropped without completing,
// for example because its customer left
type TaskCancelledEvent struct {
	Task   Record
	Reason string
}

func (e TaskAddedEvent) EventTaskID() string           { return e.Task.ID }
func (e TaskProgressUpdatedEvent) EventTaskID() string { return e.TaskID }
func (e TaskStatusChangedEvent) EventTaskID() string   { return e.TaskID }
func (e TaskCompletedEvent) EventTaskID() string       { return e.Task.ID }
func (e TaskCancelledEvent) EventTaskID() string       { return e.Task.ID }

func (TaskAddedEvent) isTaskEvent()           {}
func (TaskProgressUpdatedEvent) isTaskEvent() {}
func (TaskStatusChangedEvent) isTaskEvent()   {}
func (TaskCompletedEvent) isTaskEvent()       {}
func (TaskCancelledEvent) isTaskEvent()       {}
