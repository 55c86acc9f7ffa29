package grpc

import (
	"context"

	"github.com/andrescamacho/pharmasim-go/internal/application/simulation"
	"github.com/andrescamacho/pharmasim-go/internal/domain/task"
)

// DaemonClient is the operator's view of a running simulation
type DaemonClient interface {
	Status(ctx context.Context) (simulation.Status, error)
	Control(ctx context.Context, req ControlRequest) (map[string]interface{}, error)
	Tasks(ctx context.Context) ([]task.Record, error)
	AddTask(ctx context.Context, req simulation.TaskRequest) (task.Record, error)
	Healthy(ctx context.Context) (bool, error)
	Close() error
}

var (
	_ DaemonClient = (*DaemonClientGRPC)(nil)
	_ DaemonClient = (*DaemonClientLocal)(nil)
)
