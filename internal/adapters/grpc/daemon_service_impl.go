package grpc

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/andrescamacho/pharmasim-go/internal/application/simulation"
)

// Control actions accepted by the Control method
const (
	ActionPause         = "pause"
	ActionResume        = "resume"
	ActionSpeed         = "speed"
	ActionStartDay      = "start_day"
	ActionForceComplete = "force_complete"
	ActionSweep         = "sweep"
	ActionSnapshot      = "snapshot"
)

// ControlRequest is the decoded Control payload
type ControlRequest struct {
	Action string  `json:"action"`
	Speed  float64 `json:"speed,omitempty"`
	TaskID string  `json:"task_id,omitempty"`
}

// daemonServiceImpl adapts the controller to the gRPC service
type daemonServiceImpl struct {
	ctrl *simulation.Controller
}

func newDaemonServiceImpl(ctrl *simulation.Controller) *daemonServiceImpl {
	return &daemonServiceImpl{ctrl: ctrl}
}

func (s *daemonServiceImpl) GetStatus(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return ToStruct(s.ctrl.Status())
}

func (s *daemonServiceImpl) Control(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req ControlRequest
	if err := FromStruct(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	result, err := s.dispatch(ctx, req)
	if err != nil {
		return nil, toStatusError(err)
	}
	return ToStruct(result)
}

func (s *daemonServiceImpl) dispatch(ctx context.Context, req ControlRequest) (interface{}, error) {
	switch req.Action {
	case ActionPause:
		return s.ctrl.Pause(ctx)
	case ActionResume:
		return s.ctrl.Resume(ctx)
	case ActionSpeed:
		return s.ctrl.SetSpeed(ctx, req.Speed)
	case ActionStartDay:
		return s.ctrl.StartDay(ctx)
	case ActionForceComplete:
		if req.TaskID == "" {
			return nil, status.Error(codes.InvalidArgument, "task_id is required")
		}
		return s.ctrl.ForceComplete(ctx, req.TaskID)
	case ActionSweep:
		return s.ctrl.Sweep(ctx)
	case ActionSnapshot:
		if err := s.ctrl.SaveSnapshot(ctx); err != nil {
			return nil, err
		}
		return map[string]string{"status": "saved"}, nil
	default:
		return nil, status.Errorf(codes.InvalidArgument, "unknown action %q", req.Action)
	}
}

func (s *daemonServiceImpl) ListTasks(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	records, err := s.ctrl.Tasks(ctx)
	if err != nil {
		return nil, toStatusError(err)
	}
	return ToStruct(map[string]interface{}{"tasks": records, "count": len(records)})
}

func (s *daemonServiceImpl) AddTask(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req simulation.TaskRequest
	if err := FromStruct(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	record, err := s.ctrl.AddTask(ctx, req)
	if err != nil {
		return nil, toStatusError(err)
	}
	return ToStruct(record)
}
