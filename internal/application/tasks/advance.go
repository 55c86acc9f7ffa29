package tasks

import (
	"context"

	"github.com/andrescamacho/pharmasim-go/internal/application/common"
	"github.com/andrescamacho/pharmasim-go/internal/domain/task"
	"github.com/andrescamacho/pharmasim-go/pkg/utils"
)

// Advance applies simMinutes of work to every IN_PROGRESS task and activates
// PENDING_DEPENDENT tasks whose dependency is gone or done.
//
// Tasks are scanned once in insertion order. Tasks that complete during the
// scan are finalized after it, then a single assignment pass is requested.
func (s *Store) Advance(ctx context.Context, simMinutes float64) error {
	if simMinutes <= 0 {
		return nil
	}

	ids := make([]string, len(s.order))
	copy(ids, s.order)

	var completed []*task.Task
	activated := 0
	for _, id := range ids {
		t, ok := s.tasks[id]
		if !ok {
			continue
		}
		switch t.Status() {
		case task.TaskStatusInProgress:
			if s.advanceInProgress(ctx, t, simMinutes) {
				completed = append(completed, t)
			}
		case task.TaskStatusPendingDependent:
			if s.activateIfReady(t, "dependency satisfied") {
				activated++
			}
		}
	}

	for _, t := range completed {
		s.finalize(ctx, t, false)
	}
	if len(completed) > 0 || activated > 0 {
		s.requestAssignment("tasks finalized or activated")
	}
	return nil
}

// OnTimeAdvance lets the store listen to the game clock
func (s *Store) OnTimeAdvance(ctx context.Context, simMinutes float64) error {
	return s.Advance(ctx, simMinutes)
}

// advanceInProgress applies one tick to t and reports whether it completed
func (s *Store) advanceInProgress(ctx context.Context, t *task.Task, simMinutes float64) bool {
	meta := map[string]interface{}{
		"task_id":   utils.ShortID(t.ID()),
		"type":      string(t.Type()),
		"worker_id": t.AssignedTo(),
	}

	if !s.assignmentIsConsistent(ctx, t) {
		s.logger.Log(common.LevelWarning, "Dangling assignment reverted to pending", meta)
		s.release(ctx, t, "dangling assignment")
		return false
	}

	if !s.readiness.CanContinue(t, task.ReadinessConditions{Feasible: s.IsFeasible(ctx, t)}) {
		s.logger.Log(common.LevelInfo, "Task no longer feasible, unassigning", meta)
		s.release(ctx, t, "resource infeasible")
		s.requestAssignment("task unassigned")
		return false
	}

	s.verifier.Track(t.ID(), t.Progress(), simMinutes)
	t.AddProgress(simMinutes)

	clamped := false
	if expected, ok := s.verifier.Verify(t.ID(), t.Progress()); !ok {
		s.anomalyLog.Do(func() {
			s.logger.Log(common.LevelWarning, "Progress anomaly corrected", map[string]interface{}{
				"task_id":  utils.ShortID(t.ID()),
				"expected": expected,
				"actual":   t.Progress(),
			})
		})
		t.SetProgress(expected)
		clamped = true
	}

	s.bus.Publish(task.TaskProgressUpdatedEvent{
		TaskID:    t.ID(),
		WorkerID:  t.AssignedTo(),
		Progress:  t.Progress(),
		TotalTime: t.TotalTime(),
		Delta:     simMinutes,
		Clamped:   clamped,
	})

	if !t.HasReachedTotal() {
		return false
	}
	if err := t.Complete(); err != nil {
		s.logger.Log(common.LevelError, "Failed to complete task", map[string]interface{}{
			"task_id": utils.ShortID(t.ID()),
			"error":   err.Error(),
		})
		return false
	}
	s.bus.Publish(task.TaskStatusChangedEvent{
		TaskID: t.ID(),
		From:   task.TaskStatusInProgress,
		To:     task.TaskStatusCompleted,
		Reason: "progress reached total time",
	})
	return true
}

// assignmentIsConsistent checks that the assigned worker exists and points back
func (s *Store) assignmentIsConsistent(ctx context.Context, t *task.Task) bool {
	if t.AssignedTo() == "" {
		return false
	}
	if s.workers == nil {
		return true
	}
	w, err := s.workers.Get(ctx, t.AssignedTo())
	if err != nil || w == nil {
		return false
	}
	return w.CurrentTaskID() == t.ID()
}

// activateIfReady moves a PENDING_DEPENDENT task to PENDING when its
// dependency no longer blocks it
func (s *Store) activateIfReady(t *task.Task, reason string) bool {
	cond := task.ReadinessConditions{DependencyOpen: s.DependencyOpen(t.DependencyTaskID())}
	if !s.readiness.CanActivate(t, cond) {
		return false
	}
	if err := t.Activate(); err != nil {
		return false
	}
	s.bus.Publish(task.TaskStatusChangedEvent{
		TaskID: t.ID(),
		From:   task.TaskStatusPendingDependent,
		To:     task.TaskStatusPending,
		Reason: reason,
	})
	return true
}

func (s *Store) release(ctx context.Context, t *task.Task, reason string) {
	if s.binder == nil {
		s.logger.Log(common.LevelError, "No assignment binder wired, cannot release task", map[string]interface{}{
			"task_id": utils.ShortID(t.ID()),
		})
		return
	}
	if err := s.binder.Release(ctx, t, reason); err != nil {
		s.logger.Log(common.LevelError, "Failed to release task", map[string]interface{}{
			"task_id": utils.ShortID(t.ID()),
			"reason":  reason,
			"error":   err.Error(),
		})
	}
}
