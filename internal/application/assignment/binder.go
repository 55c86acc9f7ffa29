package assignment

import (
	"context"

	"github.com/andrescamacho/pharmasim-go/internal/application/common"
	"github.com/andrescamacho/pharmasim-go/internal/application/events"
	"github.com/andrescamacho/pharmasim-go/internal/domain/staff"
	"github.com/andrescamacho/pharmasim-go/internal/domain/task"
	"github.com/andrescamacho/pharmasim-go/pkg/utils"
)

// Binder is the only component that writes the task.assignedTo /
// worker.currentTaskId pair. Every bind and release goes through it so both
// sides change together.
type Binder struct {
	workers staff.Directory
	bus     *events.Bus[task.Event]
	logger  common.Logger
}

// NewBinder creates a binder publishing status changes on bus
func NewBinder(workers staff.Directory, bus *events.Bus[task.Event], logger common.Logger) *Binder {
	return &Binder{
		workers: workers,
		bus:     bus,
		logger:  common.OrNoOp(logger),
	}
}

// Bind assigns t to w: task IN_PROGRESS with assignedAt, worker pointing back
func (b *Binder) Bind(ctx context.Context, t *task.Task, w *staff.Worker) error {
	if err := w.AssignTask(t.ID()); err != nil {
		return err
	}
	from := t.Status()
	if err := t.Start(w.ID()); err != nil {
		w.ClearTask()
		return err
	}
	if err := b.workers.Save(ctx, w); err != nil {
		// Roll back so neither side is left half-bound
		w.ClearTask()
		_ = t.Release()
		return err
	}
	b.publish(t.ID(), from, task.TaskStatusInProgress, "assigned to "+w.ID())
	return nil
}

// Release clears both sides of t's assignment and returns it to PENDING.
// The worker side is only cleared when it still points at t.
func (b *Binder) Release(ctx context.Context, t *task.Task, reason string) error {
	b.clearWorkerFor(ctx, t)
	from := t.Status()
	if err := t.Release(); err != nil {
		return err
	}
	if from != t.Status() {
		b.publish(t.ID(), from, t.Status(), reason)
	}
	return nil
}

// Detach frees the worker of a task being finalized. The task keeps its
// assignee for the completion record.
func (b *Binder) Detach(ctx context.Context, t *task.Task) string {
	workerID := t.AssignedTo()
	b.clearWorkerFor(ctx, t)
	return workerID
}

// ClearWorker drops a worker's back-reference without touching any task.
// Used to repair a worker pointing at a missing or foreign task.
func (b *Binder) ClearWorker(ctx context.Context, w *staff.Worker) error {
	if w.CurrentTaskID() == "" {
		return nil
	}
	w.ClearTask()
	return b.workers.Save(ctx, w)
}

func (b *Binder) clearWorkerFor(ctx context.Context, t *task.Task) {
	workerID := t.AssignedTo()
	if workerID == "" {
		return
	}
	w, err := b.workers.Get(ctx, workerID)
	if err != nil || w == nil {
		return
	}
	if w.CurrentTaskID() != t.ID() {
		return
	}
	w.ClearTask()
	if err := b.workers.Save(ctx, w); err != nil {
		b.logger.Log(common.LevelError, "Failed to save released worker", map[string]interface{}{
			"worker_id": workerID,
			"task_id":   utils.ShortID(t.ID()),
			"error":     err.Error(),
		})
	}
}

func (b *Binder) publish(taskID string, from, to task.TaskStatus, reason string) {
	if b.bus == nil {
		return
	}
	b.bus.Publish(task.TaskStatusChangedEvent{TaskID: taskID, From: from, To: to, Reason: reason})
}
