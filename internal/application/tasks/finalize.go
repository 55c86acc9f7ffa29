package tasks

import (
	"context"

	"github.com/andrescamacho/pharmasim-go/internal/application/common"
	"github.com/andrescamacho/pharmasim-go/internal/domain/customer"
	"github.com/andrescamacho/pharmasim-go/internal/domain/task"
	"github.com/andrescamacho/pharmasim-go/pkg/utils"
)

// ForceCompleteTask fabricates full progress for id and finalizes it.
// Intended for recovery and diagnostics only.
func (s *Store) ForceCompleteTask(ctx context.Context, id string) error {
	t, err := s.GetTaskByID(id)
	if err != nil {
		return err
	}
	from := t.Status()
	t.ForceComplete()
	if from != task.TaskStatusCompleted {
		s.bus.Publish(task.TaskStatusChangedEvent{
			TaskID: t.ID(),
			From:   from,
			To:     task.TaskStatusCompleted,
			Reason: "force completed",
		})
	}
	s.logger.Log(common.LevelWarning, "Task force completed", map[string]interface{}{
		"task_id": utils.ShortID(t.ID()),
		"type":    string(t.Type()),
		"from":    string(from),
	})
	s.finalize(ctx, t, true)
	s.requestAssignment("task force completed")
	return nil
}

// finalize runs completion side effects for t and removes it.
// Each effect is isolated; removal and worker release always happen.
func (s *Store) finalize(ctx context.Context, t *task.Task, forced bool) {
	id := t.ID()
	defer s.remove(id)

	meta := map[string]interface{}{
		"task_id":     utils.ShortID(id),
		"type":        string(t.Type()),
		"customer_id": t.CustomerID(),
	}

	s.verifier.Clear(id)

	workerID := ""
	if t.AssignedTo() != "" {
		common.Guard(s.logger, "release_worker", meta, func() error {
			if s.binder != nil {
				workerID = s.binder.Detach(ctx, t)
			} else {
				workerID = t.AssignedTo()
			}
			return nil
		})
		if workerID != "" {
			s.rememberCompletion(id, workerID)
			s.callHook("mood_on_completion", meta, func() error {
				return s.hooks.MoodOnCompletion(ctx, workerID, t.Type())
			})
		}
	}

	record := t.ToRecord()
	s.callHook("production_completed", meta, func() error {
		return s.hooks.ProductionCompleted(ctx, record)
	})

	switch t.Type() {
	case task.TaskTypeFillPrescription:
		s.callHook("prescription_filled", meta, func() error {
			return s.hooks.PrescriptionFilled(ctx, t.PrescriptionID(), t.CustomerID())
		})
	case task.TaskTypeCustomerInteraction:
		common.Guard(s.logger, "customer_interaction", meta, func() error {
			return s.completeInteraction(ctx, t)
		})
	case task.TaskTypeConsultation:
		common.Guard(s.logger, "consultation", meta, func() error {
			return s.setCustomerStatus(ctx, t.CustomerID(), customer.StatusAwaitingFill)
		})
	}

	// Compound tasks gate fills; any other dependency chain is released the same way
	common.Guard(s.logger, "activate_dependents", meta, func() error {
		s.activateDependents(id)
		return nil
	})

	s.bus.Publish(task.TaskCompletedEvent{Task: record, WorkerID: workerID, Forced: forced})
	s.logger.Log(common.LevelInfo, "Task completed", map[string]interface{}{
		"task_id":   utils.ShortID(id),
		"type":      string(t.Type()),
		"worker_id": workerID,
		"forced":    forced,
	})
}

// completeInteraction advances the customer after a counter interaction:
// check-in moves them to consultation, checkout collects payment and departs.
func (s *Store) completeInteraction(ctx context.Context, t *task.Task) error {
	if t.CustomerID() == "" || s.customers == nil {
		return nil
	}
	c, err := s.customers.Get(ctx, t.CustomerID())
	if err != nil {
		return err
	}
	switch c.Status() {
	case customer.StatusAwaitingCheckIn:
		return s.customers.SetStatus(ctx, c.ID(), customer.StatusAwaitingConsultation)
	case customer.StatusReadyForCheckout:
		meta := map[string]interface{}{"customer_id": c.ID(), "task_id": utils.ShortID(t.ID())}
		s.callHook("payment_completed", meta, func() error {
			return s.hooks.PaymentCompleted(ctx, c.ID(), t.PrescriptionID())
		})
		s.callHook("customer_departed", meta, func() error {
			return s.hooks.CustomerDeparted(ctx, c.ID())
		})
	}
	return nil
}

func (s *Store) setCustomerStatus(ctx context.Context, customerID string, status customer.Status) error {
	if customerID == "" || s.customers == nil {
		return nil
	}
	return s.customers.SetStatus(ctx, customerID, status)
}

// activateDependents releases every PENDING_DEPENDENT task waiting on completedID
func (s *Store) activateDependents(completedID string) {
	for _, id := range s.order {
		t := s.tasks[id]
		if t.Status() != task.TaskStatusPendingDependent || t.DependencyTaskID() != completedID {
			continue
		}
		if err := t.Activate(); err != nil {
			continue
		}
		s.bus.Publish(task.TaskStatusChangedEvent{
			TaskID: t.ID(),
			From:   task.TaskStatusPendingDependent,
			To:     task.TaskStatusPending,
			Reason: "dependency completed",
		})
	}
}

func (s *Store) callHook(hook string, meta map[string]interface{}, fn func() error) {
	if s.hooks == nil {
		return
	}
	common.Guard(s.logger, hook, meta, fn)
}
