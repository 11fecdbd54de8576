package grpcapi

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "isam.flatten.v1.FlattenService"

const (
	FlattenService_FlattenLines_FullMethodName = "/" + ServiceName + "/FlattenLines"
	FlattenService_FlattenTree_FullMethodName  = "/" + ServiceName + "/FlattenTree"
	FlattenService_GatherFacts_FullMethodName  = "/" + ServiceName + "/GatherFacts"
	FlattenService_Complete_FullMethodName     = "/" + ServiceName + "/Complete"
)

// PolicyMetadataKey selects the line flattener context policy of a
// FlattenLines call ("reset" or "persist").
const PolicyMetadataKey = "x-isam-policy"

// FlattenServiceServer is the server API for FlattenService. Messages are
// protobuf well-known types, so no generated code is needed.
type FlattenServiceServer interface {
	// FlattenLines flattens a flat bridge dump into one line per attribute.
	FlattenLines(context.Context, *wrapperspb.StringValue) (*structpb.ListValue, error)
	// FlattenTree flattens an indented dump into one line per leaf.
	FlattenTree(context.Context, *wrapperspb.StringValue) (*structpb.ListValue, error)
	// GatherFacts fetches and parses the named resource.
	GatherFacts(context.Context, *wrapperspb.StringValue) (*structpb.Value, error)
	// Complete returns shell completion candidates for a partial line.
	Complete(context.Context, *wrapperspb.StringValue) (*structpb.ListValue, error)
}

// RegisterFlattenServiceServer registers srv on s.
func RegisterFlattenServiceServer(s grpc.ServiceRegistrar, srv FlattenServiceServer) {
	s.RegisterService(&FlattenService_ServiceDesc, srv)
}

func _FlattenService_FlattenLines_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(FlattenServiceServer).FlattenLines(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FlattenService_FlattenLines_FullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(FlattenServiceServer).FlattenLines(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func _FlattenService_FlattenTree_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(FlattenServiceServer).FlattenTree(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FlattenService_FlattenTree_FullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(FlattenServiceServer).FlattenTree(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func _FlattenService_GatherFacts_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(FlattenServiceServer).GatherFacts(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FlattenService_GatherFacts_FullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(FlattenServiceServer).GatherFacts(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func _FlattenService_Complete_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(FlattenServiceServer).Complete(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FlattenService_Complete_FullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(FlattenServiceServer).Complete(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

// FlattenService_ServiceDesc is the grpc.ServiceDesc for FlattenService.
var FlattenService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*FlattenServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "FlattenLines", Handler: _FlattenService_FlattenLines_Handler},
		{MethodName: "FlattenTree", Handler: _FlattenService_FlattenTree_Handler},
		{MethodName: "GatherFacts", Handler: _FlattenService_GatherFacts_Handler},
		{MethodName: "Complete", Handler: _FlattenService_Complete_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "isam/flatten/v1/flatten.proto",
}
