package simulation

import (
	"context"

	"github.com/andrescamacho/pharmasim-go/internal/application/integrity"
	"github.com/andrescamacho/pharmasim-go/internal/domain/shared"
	"github.com/andrescamacho/pharmasim-go/internal/domain/staff"
	"github.com/andrescamacho/pharmasim-go/internal/domain/task"
)

// TaskRequest is the external form of a new task
type TaskRequest struct {
	ID             string  `json:"id,omitempty"`
	Type           string  `json:"type"`
	TotalTime      float64 `json:"total_time,omitempty"`
	Role           string  `json:"role,omitempty"`
	Priority       string  `json:"priority,omitempty"`
	CustomerID     string  `json:"customer_id,omitempty"`
	PrescriptionID string  `json:"prescription_id,omitempty"`
	ProductID      string  `json:"product_id,omitempty"`
	DependsOn      string  `json:"depends_on,omitempty"`
}

// Descriptor validates the request and converts it for the task store
func (r TaskRequest) Descriptor() (task.Descriptor, error) {
	taskType, err := task.ParseTaskType(r.Type)
	if err != nil {
		return task.Descriptor{}, shared.NewValidationError("type", err.Error())
	}

	var role staff.Role
	if r.Role != "" {
		if role, err = staff.ParseRole(r.Role); err != nil {
			return task.Descriptor{}, shared.NewValidationError("role", err.Error())
		}
	}

	priority, err := task.ParsePriority(r.Priority)
	if err != nil {
		return task.Descriptor{}, shared.NewValidationError("priority", err.Error())
	}

	return task.Descriptor{
		ID:               r.ID,
		Type:             taskType,
		TotalTime:        r.TotalTime,
		RoleNeeded:       role,
		Priority:         priority,
		CustomerID:       r.CustomerID,
		PrescriptionID:   r.PrescriptionID,
		ProductID:        r.ProductID,
		DependencyTaskID: r.DependsOn,
	}, nil
}

// Controller exposes operator commands for a running session. Every command
// executes on the runner goroutine and returns the status it produced.
type Controller struct {
	runner *Runner
}

// NewController wraps runner
func NewController(runner *Runner) *Controller {
	return &Controller{runner: runner}
}

// Status returns the last published status without touching the loop
func (c *Controller) Status() Status {
	return c.runner.Status()
}

// Refresh publishes and returns a fresh status
func (c *Controller) Refresh(ctx context.Context) (Status, error) {
	return c.apply(ctx, func(context.Context, *Context) error { return nil })
}

// Pause stops simulated time
func (c *Controller) Pause(ctx context.Context) (Status, error) {
	return c.apply(ctx, func(_ context.Context, sim *Context) error {
		sim.Pause()
		return nil
	})
}

// Resume restarts simulated time
func (c *Controller) Resume(ctx context.Context) (Status, error) {
	return c.apply(ctx, func(_ context.Context, sim *Context) error {
		sim.Resume()
		return nil
	})
}

// SetSpeed changes the speed multiplier
func (c *Controller) SetSpeed(ctx context.Context, speed float64) (Status, error) {
	return c.apply(ctx, func(_ context.Context, sim *Context) error {
		return sim.SetSpeed(speed)
	})
}

// StartDay opens the next business day immediately
func (c *Controller) StartDay(ctx context.Context) (Status, error) {
	return c.apply(ctx, func(_ context.Context, sim *Context) error {
		if sim.Clock().IsActive() {
			return shared.NewValidationError("day", "business day already running")
		}
		sim.StartDay()
		return nil
	})
}

// ForceComplete finalizes a task as if its work were done
func (c *Controller) ForceComplete(ctx context.Context, taskID string) (Status, error) {
	return c.apply(ctx, func(ctx context.Context, sim *Context) error {
		return sim.Store().ForceCompleteTask(ctx, taskID)
	})
}

// AddTask stores a new task and returns its record
func (c *Controller) AddTask(ctx context.Context, req TaskRequest) (task.Record, error) {
	d, err := req.Descriptor()
	if err != nil {
		return task.Record{}, err
	}
	var record task.Record
	err = c.runner.Do(ctx, func(ctx context.Context, sim *Context) error {
		t, err := sim.AddTask(ctx, d)
		if err != nil {
			return err
		}
		record = t.ToRecord()
		return nil
	})
	return record, err
}

// Tasks lists live tasks in insertion order
func (c *Controller) Tasks(ctx context.Context) ([]task.Record, error) {
	var records []task.Record
	err := c.runner.Do(ctx, func(_ context.Context, sim *Context) error {
		all := sim.Store().All()
		records = make([]task.Record, 0, len(all))
		for _, t := range all {
			records = append(records, t.ToRecord())
		}
		return nil
	})
	return records, err
}

// Sweep runs an integrity sweep now
func (c *Controller) Sweep(ctx context.Context) (integrity.SweepReport, error) {
	var report integrity.SweepReport
	err := c.runner.Do(ctx, func(ctx context.Context, sim *Context) error {
		report = sim.Sweep(ctx)
		return nil
	})
	return report, err
}

// SaveSnapshot persists the session
func (c *Controller) SaveSnapshot(ctx context.Context) error {
	return c.runner.SaveSnapshot(ctx)
}

func (c *Controller) apply(ctx context.Context, fn func(context.Context, *Context) error) (Status, error) {
	var st Status
	err := c.runner.Do(ctx, func(ctx context.Context, sim *Context) error {
		if err := fn(ctx, sim); err != nil {
			return err
		}
		c.runner.publish(ctx)
		st = c.runner.Status()
		return nil
	})
	return st, err
}
