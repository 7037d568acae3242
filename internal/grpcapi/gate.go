// Package grpcapi serves the gate over gRPC as service gatehouse.v1.Gate.
// Messages are google.protobuf.Struct values with the same field names as
// the JSON API, so no generated code is needed on either side.
package grpcapi

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	ServiceName = "gatehouse.v1.Gate"

	identifyMethod     = "/" + ServiceName + "/Identify"
	recordActionMethod = "/" + ServiceName + "/RecordAction"
)

// GateServer is the server side of gatehouse.v1.Gate.
type GateServer interface {
	Identify(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	RecordAction(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
}

func RegisterGateServer(s grpc.ServiceRegistrar, srv GateServer) {
	s.RegisterService(&gateServiceDesc, srv)
}

var gateServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*GateServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Identify", Handler: unaryHandler(identifyMethod, GateServer.Identify)},
		{MethodName: "RecordAction", Handler: unaryHandler(recordActionMethod, GateServer.RecordAction)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "gatehouse/v1/gate.proto",
}

func unaryHandler(fullMethod string, call func(GateServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(GateServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(GateServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// GateClient is the client side of gatehouse.v1.Gate.
type GateClient struct {
	cc grpc.ClientConnInterface
}

func NewGateClient(cc grpc.ClientConnInterface) *GateClient {
	return &GateClient{cc: cc}
}

func (c *GateClient) Identify(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, identifyMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *GateClient) RecordAction(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, recordActionMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
