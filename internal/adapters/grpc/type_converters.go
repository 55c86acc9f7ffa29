package grpc

import (
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/andrescamacho/pharmasim-go/internal/application/simulation"
	"github.com/andrescamacho/pharmasim-go/internal/domain/shared"
	"github.com/andrescamacho/pharmasim-go/internal/domain/task"
)

// ToStruct converts any JSON-serialisable value into a protobuf Struct
func ToStruct(v interface{}) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("payload is not an object: %w", err)
	}
	return structpb.NewStruct(fields)
}

// FromStruct decodes a protobuf Struct into out
func FromStruct(s *structpb.Struct, out interface{}) error {
	data, err := json.Marshal(s.AsMap())
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode payload: %w", err)
	}
	return nil
}

// toStatusError maps engine errors onto gRPC status codes
func toStatusError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	var (
		validation *shared.ValidationError
		notFound   *task.ErrTaskNotFound
		duplicate  *task.ErrDuplicateTask
	)
	switch {
	case errors.As(err, &validation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.As(err, &notFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.As(err, &duplicate):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, simulation.ErrRunnerStopped):
		return status.Error(codes.Unavailable, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
