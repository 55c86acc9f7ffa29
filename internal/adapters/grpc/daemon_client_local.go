package grpc

import (
	"context"

	"github.com/andrescamacho/pharmasim-go/internal/application/simulation"
	"github.com/andrescamacho/pharmasim-go/internal/domain/shared"
	"github.com/andrescamacho/pharmasim-go/internal/domain/task"
)

// DaemonClientLocal implements DaemonClient by calling the controller
// directly. Used when the CLI hosts the simulation in-process.
type DaemonClientLocal struct {
	service *daemonServiceImpl
}

// NewDaemonClientLocal creates a new local daemon client
func NewDaemonClientLocal(ctrl *simulation.Controller) *DaemonClientLocal {
	return &DaemonClientLocal{service: newDaemonServiceImpl(ctrl)}
}

func (c *DaemonClientLocal) Status(ctx context.Context) (simulation.Status, error) {
	return c.service.ctrl.Status(), nil
}

func (c *DaemonClientLocal) Control(ctx context.Context, req ControlRequest) (map[string]interface{}, error) {
	result, err := c.service.dispatch(ctx, req)
	if err != nil {
		return nil, toStatusError(err)
	}
	s, err := ToStruct(result)
	if err != nil {
		return nil, err
	}
	return s.AsMap(), nil
}

func (c *DaemonClientLocal) Tasks(ctx context.Context) ([]task.Record, error) {
	return c.service.ctrl.Tasks(ctx)
}

func (c *DaemonClientLocal) AddTask(ctx context.Context, req simulation.TaskRequest) (task.Record, error) {
	return c.service.ctrl.AddTask(ctx, req)
}

func (c *DaemonClientLocal) Healthy(ctx context.Context) (bool, error) {
	return c.service.ctrl.Status().Lifecycle == shared.SessionStatusRunning, nil
}

func (c *DaemonClientLocal) Close() error { return nil }
