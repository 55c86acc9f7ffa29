package grpc

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/andrescamacho/pharmasim-go/internal/application/simulation"
	"github.com/andrescamacho/pharmasim-go/internal/domain/task"
)

// DaemonClientGRPC talks to the daemon over its unix socket
type DaemonClientGRPC struct {
	conn *grpc.ClientConn
}

// NewDaemonClientGRPC creates a client for socketPath
// (e.g. "/tmp/pharmasim-daemon.sock"). The connection is established lazily.
func NewDaemonClientGRPC(socketPath string) (*DaemonClientGRPC, error) {
	return dial("unix:" + socketPath)
}

func dial(target string, opts ...grpc.DialOption) (*DaemonClientGRPC, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to daemon socket: %w", err)
	}
	return &DaemonClientGRPC{conn: conn}, nil
}

// Close closes the gRPC connection
func (c *DaemonClientGRPC) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Status returns the daemon's last published status
func (c *DaemonClientGRPC) Status(ctx context.Context) (simulation.Status, error) {
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, MethodGetStatus, &emptypb.Empty{}, out); err != nil {
		return simulation.Status{}, fmt.Errorf("failed to get status: %w", err)
	}
	var st simulation.Status
	if err := FromStruct(out, &st); err != nil {
		return simulation.Status{}, err
	}
	return st, nil
}

// Control runs an operator action and returns its raw result
func (c *DaemonClientGRPC) Control(ctx context.Context, req ControlRequest) (map[string]interface{}, error) {
	in, err := ToStruct(req)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, MethodControl, in, out); err != nil {
		return nil, fmt.Errorf("failed to %s: %w", req.Action, err)
	}
	return out.AsMap(), nil
}

// Tasks lists live tasks
func (c *DaemonClientGRPC) Tasks(ctx context.Context) ([]task.Record, error) {
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, MethodListTasks, &emptypb.Empty{}, out); err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	var resp struct {
		Tasks []task.Record `json:"tasks"`
	}
	if err := FromStruct(out, &resp); err != nil {
		return nil, err
	}
	return resp.Tasks, nil
}

// AddTask submits a task
func (c *DaemonClientGRPC) AddTask(ctx context.Context, req simulation.TaskRequest) (task.Record, error) {
	in, err := ToStruct(req)
	if err != nil {
		return task.Record{}, err
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, MethodAddTask, in, out); err != nil {
		return task.Record{}, fmt.Errorf("failed to add task: %w", err)
	}
	var record task.Record
	if err := FromStruct(out, &record); err != nil {
		return task.Record{}, err
	}
	return record, nil
}

// Healthy queries the standard health service
func (c *DaemonClientGRPC) Healthy(ctx context.Context) (bool, error) {
	resp, err := healthpb.NewHealthClient(c.conn).Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		return false, fmt.Errorf("health check failed: %w", err)
	}
	return resp.GetStatus() == healthpb.HealthCheckResponse_SERVING, nil
}
