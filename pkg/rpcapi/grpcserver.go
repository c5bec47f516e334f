package rpcapi

import "google.golang.org/grpc"

// NewGRPCServer builds a *grpc.Server wired to the JSON codec and the
// given interceptor (use Chain to compose several), and registers srv
// as the StateManagerService implementation.
func NewGRPCServer(srv StateManagerServer, interceptor grpc.UnaryServerInterceptor) *grpc.Server {
	s := grpc.NewServer(
		grpc.ForceServerCodec(jsonCodec{}),
		grpc.UnaryInterceptor(interceptor),
	)
	RegisterStateManagerServer(s, srv)
	return s
}
