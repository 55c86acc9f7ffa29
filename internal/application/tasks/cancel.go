package tasks

import (
	"context"

	"github.com/andrescamacho/pharmasim-go/internal/application/common"
	"github.com/andrescamacho/pharmasim-go/internal/domain/task"
	"github.com/andrescamacho/pharmasim-go/pkg/utils"
)

// CancelCustomerTasks drops every open task of customerID without running
// completion hooks. Assigned workers are freed first. Returns the number of
// tasks removed.
func (s *Store) CancelCustomerTasks(ctx context.Context, customerID, reason string) int {
	if customerID == "" {
		return 0
	}
	cancelled := s.GetTasksForCustomer(customerID)
	for _, t := range cancelled {
		if t.IsAssigned() {
			s.release(ctx, t, reason)
		}
		s.verifier.Clear(t.ID())
		s.remove(t.ID())
		s.bus.Publish(task.TaskCancelledEvent{Task: t.ToRecord(), Reason: reason})
		s.logger.Log(common.LevelInfo, "Task cancelled", map[string]interface{}{
			"task_id":     utils.ShortID(t.ID()),
			"type":        string(t.Type()),
			"customer_id": customerID,
			"reason":      reason,
		})
	}
	if len(cancelled) > 0 {
		s.requestAssignment("tasks cancelled")
	}
	return len(cancelled)
}
