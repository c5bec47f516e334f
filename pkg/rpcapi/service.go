// Package rpcapi is the gRPC façade: the StateManagerService
// definition, its etag protocol, and the interceptor chain that wraps
// every call with correlation-id injection, access logging, metrics,
// and error-to-status mapping.
//
// The service is defined the way protoc-gen-go-grpc's own output is
// structured — a grpc.ServiceDesc built from hand-written MethodDesc
// handlers, a typed client, and a typed server interface — but riding
// on a small JSON codec (see codec.go) instead of protobuf wire
// encoding, so the whole stack runs without a .proto build step.
package rpcapi

import (
	"context"

	"google.golang.org/grpc"
)

const serviceName = "statekeep.StateManagerService"

// StateManagerServer is the service interface a concrete façade
// implementation (see server.go) must satisfy.
type StateManagerServer interface {
	InitApp(context.Context, *InitAppRequest) (*InitAppResponse, error)
	Get(context.Context, *GetRequest) (*GetResponse, error)
	Set(context.Context, *SetRequest) (*SetResponse, error)
	Checkpoints(context.Context, *CheckpointsRequest) (*CheckpointsResponse, error)
	CreateCheckpoint(context.Context, *CreateCheckpointRequest) (*CreateCheckpointResponse, error)
	Revert(context.Context, *RevertRequest) (*RevertResponse, error)
	Cleanup(context.Context, *CleanupRequest) (*CleanupResponse, error)
	Reset(context.Context, *ResetRequest) (*ResetResponse, error)
	RemoveApp(context.Context, *RemoveAppRequest) (*RemoveAppResponse, error)
}

func _StateManagerService_InitApp_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(InitAppRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(StateManagerServer).InitApp(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/InitApp"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(StateManagerServer).InitApp(ctx, req.(*InitAppRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _StateManagerService_Get_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(GetRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(StateManagerServer).Get(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/Get"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(StateManagerServer).Get(ctx, req.(*GetRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _StateManagerService_Set_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(SetRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(StateManagerServer).Set(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/Set"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(StateManagerServer).Set(ctx, req.(*SetRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _StateManagerService_Checkpoints_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(CheckpointsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(StateManagerServer).Checkpoints(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/Checkpoints"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(StateManagerServer).Checkpoints(ctx, req.(*CheckpointsRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _StateManagerService_CreateCheckpoint_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(CreateCheckpointRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(StateManagerServer).CreateCheckpoint(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/CreateCheckpoint"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(StateManagerServer).CreateCheckpoint(ctx, req.(*CreateCheckpointRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _StateManagerService_Revert_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(RevertRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(StateManagerServer).Revert(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/Revert"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(StateManagerServer).Revert(ctx, req.(*RevertRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _StateManagerService_Cleanup_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(CleanupRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(StateManagerServer).Cleanup(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/Cleanup"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(StateManagerServer).Cleanup(ctx, req.(*CleanupRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _StateManagerService_Reset_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ResetRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(StateManagerServer).Reset(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/Reset"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(StateManagerServer).Reset(ctx, req.(*ResetRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _StateManagerService_RemoveApp_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(RemoveAppRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(StateManagerServer).RemoveApp(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/RemoveApp"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(StateManagerServer).RemoveApp(ctx, req.(*RemoveAppRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// ServiceDesc is StateManagerService's grpc.ServiceDesc, the same shape
// protoc-gen-go-grpc emits.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*StateManagerServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "InitApp", Handler: _StateManagerService_InitApp_Handler},
		{MethodName: "Get", Handler: _StateManagerService_Get_Handler},
		{MethodName: "Set", Handler: _StateManagerService_Set_Handler},
		{MethodName: "Checkpoints", Handler: _StateManagerService_Checkpoints_Handler},
		{MethodName: "CreateCheckpoint", Handler: _StateManagerService_CreateCheckpoint_Handler},
		{MethodName: "Revert", Handler: _StateManagerService_Revert_Handler},
		{MethodName: "Cleanup", Handler: _StateManagerService_Cleanup_Handler},
		{MethodName: "Reset", Handler: _StateManagerService_Reset_Handler},
		{MethodName: "RemoveApp", Handler: _StateManagerService_RemoveApp_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "statekeep/rpcapi.proto",
}

// RegisterStateManagerServer registers srv with s.
func RegisterStateManagerServer(s grpc.ServiceRegistrar, srv StateManagerServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// StateManagerClient is the typed client stub.
type StateManagerClient interface {
	InitApp(ctx context.Context, in *InitAppRequest, opts ...grpc.CallOption) (*InitAppResponse, error)
	Get(ctx context.Context, in *GetRequest, opts ...grpc.CallOption) (*GetResponse, error)
	Set(ctx context.Context, in *SetRequest, opts ...grpc.CallOption) (*SetResponse, error)
	Checkpoints(ctx context.Context, in *CheckpointsRequest, opts ...grpc.CallOption) (*CheckpointsResponse, error)
	CreateCheckpoint(ctx context.Context, in *CreateCheckpointRequest, opts ...grpc.CallOption) (*CreateCheckpointResponse, error)
	Revert(ctx context.Context, in *RevertRequest, opts ...grpc.CallOption) (*RevertResponse, error)
	Cleanup(ctx context.Context, in *CleanupRequest, opts ...grpc.CallOption) (*CleanupResponse, error)
	Reset(ctx context.Context, in *ResetRequest, opts ...grpc.CallOption) (*ResetResponse, error)
	RemoveApp(ctx context.Context, in *RemoveAppRequest, opts ...grpc.CallOption) (*RemoveAppResponse, error)
}

type stateManagerClient struct {
	cc grpc.ClientConnInterface
}

// NewStateManagerClient wraps cc, a connection dialed with the JSON
// codec from codec.go forced via grpc.ForceCodec, into a typed
// StateManagerClient.
func NewStateManagerClient(cc grpc.ClientConnInterface) StateManagerClient {
	return &stateManagerClient{cc}
}

func (c *stateManagerClient) InitApp(ctx context.Context, in *InitAppRequest, opts ...grpc.CallOption) (*InitAppResponse, error) {
	out := new(InitAppResponse)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/InitApp", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *stateManagerClient) Get(ctx context.Context, in *GetRequest, opts ...grpc.CallOption) (*GetResponse, error) {
	out := new(GetResponse)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/Get", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *stateManagerClient) Set(ctx context.Context, in *SetRequest, opts ...grpc.CallOption) (*SetResponse, error) {
	out := new(SetResponse)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/Set", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *stateManagerClient) Checkpoints(ctx context.Context, in *CheckpointsRequest, opts ...grpc.CallOption) (*CheckpointsResponse, error) {
	out := new(CheckpointsResponse)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/Checkpoints", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *stateManagerClient) CreateCheckpoint(ctx context.Context, in *CreateCheckpointRequest, opts ...grpc.CallOption) (*CreateCheckpointResponse, error) {
	out := new(CreateCheckpointResponse)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/CreateCheckpoint", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *stateManagerClient) Revert(ctx context.Context, in *RevertRequest, opts ...grpc.CallOption) (*RevertResponse, error) {
	out := new(RevertResponse)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/Revert", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *stateManagerClient) Cleanup(ctx context.Context, in *CleanupRequest, opts ...grpc.CallOption) (*CleanupResponse, error) {
	out := new(CleanupResponse)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/Cleanup", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *stateManagerClient) Reset(ctx context.Context, in *ResetRequest, opts ...grpc.CallOption) (*ResetResponse, error) {
	out := new(ResetResponse)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/Reset", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *stateManagerClient) RemoveApp(ctx context.Context, in *RemoveAppRequest, opts ...grpc.CallOption) (*RemoveAppResponse, error) {
	out := new(RemoveAppResponse)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/RemoveApp", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
