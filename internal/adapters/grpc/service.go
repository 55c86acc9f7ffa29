package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name
const ServiceName = "pharmasim.v1.Simulation"

// Full method names
const (
	MethodGetStatus = "/" + ServiceName + "/GetStatus"
	MethodControl   = "/" + ServiceName + "/Control"
	MethodListTasks = "/" + ServiceName + "/ListTasks"
	MethodAddTask   = "/" + ServiceName + "/AddTask"
)

// SimulationServer is the server API for the simulation service.
// Messages are well-known protobuf types; structured payloads travel as
// google.protobuf.Struct.
type SimulationServer interface {
	GetStatus(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Control(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListTasks(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	AddTask(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// RegisterSimulationServer registers srv on s
func RegisterSimulationServer(s grpc.ServiceRegistrar, srv SimulationServer) {
	s.RegisterService(&SimulationServiceDesc, srv)
}

// SimulationServiceDesc describes the simulation service
var SimulationServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SimulationServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetStatus", Handler: getStatusHandler},
		{MethodName: "Control", Handler: controlHandler},
		{MethodName: "ListTasks", Handler: listTasksHandler},
		{MethodName: "AddTask", Handler: addTaskHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "pharmasim/v1/simulation.proto",
}

func getStatusHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	call := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(SimulationServer).GetStatus(ctx, req.(*emptypb.Empty))
	}
	return intercept(ctx, srv, in, MethodGetStatus, interceptor, call)
}

func controlHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	call := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(SimulationServer).Control(ctx, req.(*structpb.Struct))
	}
	return intercept(ctx, srv, in, MethodControl, interceptor, call)
}

func listTasksHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	call := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(SimulationServer).ListTasks(ctx, req.(*emptypb.Empty))
	}
	return intercept(ctx, srv, in, MethodListTasks, interceptor, call)
}

func addTaskHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	call := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(SimulationServer).AddTask(ctx, req.(*structpb.Struct))
	}
	return intercept(ctx, srv, in, MethodAddTask, interceptor, call)
}

func intercept(ctx context.Context, srv, in interface{}, method string, interceptor grpc.UnaryServerInterceptor, call grpc.UnaryHandler) (interface{}, error) {
	if interceptor == nil {
		return call(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
	return interceptor(ctx, in, info, call)
}
