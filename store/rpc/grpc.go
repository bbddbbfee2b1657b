package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// StoreServer is the server API for the Store gRPC service.
//
// Messages are protobuf well-known types,
// so the service needs no generated code.
//
//	Get(StringValue ref) returns (BytesValue blob)
//	Put(BytesValue blob) returns (Struct {ref, added})
//	ListRefs(StringValue start) returns (stream StringValue ref)
//	GetHead(StringValue name) returns (StringValue ref)
//	SwapHead(Struct {name, old, new}) returns (Empty)
//	ListHeads(StringValue start) returns (stream Struct {name, ref})
//
// Refs travel as CID strings.
type StoreServer interface {
	Get(context.Context, *wrapperspb.StringValue) (*wrapperspb.BytesValue, error)
	Put(context.Context, *wrapperspb.BytesValue) (*structpb.Struct, error)
	ListRefs(*wrapperspb.StringValue, Store_ListRefsServer) error
	GetHead(context.Context, *wrapperspb.StringValue) (*wrapperspb.StringValue, error)
	SwapHead(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	ListHeads(*wrapperspb.StringValue, Store_ListHeadsServer) error
}

// UnimplementedStoreServer can be embedded to have forward compatible implementations.
type UnimplementedStoreServer struct{}

func (UnimplementedStoreServer) Get(context.Context, *wrapperspb.StringValue) (*wrapperspb.BytesValue, error) {
	return nil, status.Error(codes.Unimplemented, "method Get not implemented")
}
func (UnimplementedStoreServer) Put(context.Context, *wrapperspb.BytesValue) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method Put not implemented")
}
func (UnimplementedStoreServer) ListRefs(*wrapperspb.StringValue, Store_ListRefsServer) error {
	return status.Error(codes.Unimplemented, "method ListRefs not implemented")
}
func (UnimplementedStoreServer) GetHead(context.Context, *wrapperspb.StringValue) (*wrapperspb.StringValue, error) {
	return nil, status.Error(codes.Unimplemented, "method GetHead not implemented")
}
func (UnimplementedStoreServer) SwapHead(context.Context, *structpb.Struct) (*emptypb.Empty, error) {
	return nil, status.Error(codes.Unimplemented, "method SwapHead not implemented")
}
func (UnimplementedStoreServer) ListHeads(*wrapperspb.StringValue, Store_ListHeadsServer) error {
	return status.Error(codes.Unimplemented, "method ListHeads not implemented")
}

// RegisterStoreServer registers the Store service on a gRPC server.
func RegisterStoreServer(s grpc.ServiceRegistrar, srv StoreServer) {
	s.RegisterService(&Store_ServiceDesc, srv)
}

const serviceName = "lds.store.v1.Store"

// StoreClient is the client API for the Store gRPC service.
type StoreClient interface {
	Get(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error)
	Put(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*structpb.Struct, error)
	ListRefs(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (Store_ListRefsClient, error)
	GetHead(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.StringValue, error)
	SwapHead(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*emptypb.Empty, error)
	ListHeads(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (Store_ListHeadsClient, error)
}

type storeClient struct{ cc grpc.ClientConnInterface }

func NewStoreClient(cc grpc.ClientConnInterface) StoreClient { return &storeClient{cc: cc} }

func (c *storeClient) Get(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	out := new(wrapperspb.BytesValue)
	err := c.cc.Invoke(ctx, "/"+serviceName+"/Get", in, out, opts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *storeClient) Put(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	err := c.cc.Invoke(ctx, "/"+serviceName+"/Put", in, out, opts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *storeClient) GetHead(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.StringValue, error) {
	out := new(wrapperspb.StringValue)
	err := c.cc.Invoke(ctx, "/"+serviceName+"/GetHead", in, out, opts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *storeClient) SwapHead(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	err := c.cc.Invoke(ctx, "/"+serviceName+"/SwapHead", in, out, opts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *storeClient) ListRefs(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (Store_ListRefsClient, error) {
	stream, err := c.cc.NewStream(ctx, &Store_ServiceDesc.Streams[0], "/"+serviceName+"/ListRefs", opts...)
	if err != nil {
		return nil, err
	}
	x := &storeListRefsClient{stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

type Store_ListRefsClient interface {
	Recv() (*wrapperspb.StringValue, error)
	grpc.ClientStream
}

type storeListRefsClient struct {
	grpc.ClientStream
}

func (x *storeListRefsClient) Recv() (*wrapperspb.StringValue, error) {
	m := new(wrapperspb.StringValue)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (c *storeClient) ListHeads(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (Store_ListHeadsClient, error) {
	stream, err := c.cc.NewStream(ctx, &Store_ServiceDesc.Streams[1], "/"+serviceName+"/ListHeads", opts...)
	if err != nil {
		return nil, err
	}
	x := &storeListHeadsClient{stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

type Store_ListHeadsClient interface {
	Recv() (*structpb.Struct, error)
	grpc.ClientStream
}

type storeListHeadsClient struct {
	grpc.ClientStream
}

func (x *storeListHeadsClient) Recv() (*structpb.Struct, error) {
	m := new(structpb.Struct)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

type Store_ListRefsServer interface {
	Send(*wrapperspb.StringValue) error
	grpc.ServerStream
}

type storeListRefsServer struct {
	grpc.ServerStream
}

func (x *storeListRefsServer) Send(m *wrapperspb.StringValue) error {
	return x.ServerStream.SendMsg(m)
}

type Store_ListHeadsServer interface {
	Send(*structpb.Struct) error
	grpc.ServerStream
}

type storeListHeadsServer struct {
	grpc.ServerStream
}

func (x *storeListHeadsServer) Send(m *structpb.Struct) error {
	return x.ServerStream.SendMsg(m)
}

func _Store_Get_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(StoreServer).Get(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/Get"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(StoreServer).Get(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func _Store_Put_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(StoreServer).Put(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/Put"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(StoreServer).Put(ctx, req.(*wrapperspb.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}

func _Store_GetHead_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(StoreServer).GetHead(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/GetHead"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(StoreServer).GetHead(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func _Store_SwapHead_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(StoreServer).SwapHead(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/SwapHead"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(StoreServer).SwapHead(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func _Store_ListRefs_Handler(srv interface{}, stream grpc.ServerStream) error {
	m := new(wrapperspb.StringValue)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(StoreServer).ListRefs(m, &storeListRefsServer{stream})
}

func _Store_ListHeads_Handler(srv interface{}, stream grpc.ServerStream) error {
	m := new(wrapperspb.StringValue)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(StoreServer).ListHeads(m, &storeListHeadsServer{stream})
}

// Store_ServiceDesc is the grpc.ServiceDesc for the Store service.
var Store_ServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*StoreServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Get", Handler: _Store_Get_Handler},
		{MethodName: "Put", Handler: _Store_Put_Handler},
		{MethodName: "GetHead", Handler: _Store_GetHead_Handler},
		{MethodName: "SwapHead", Handler: _Store_SwapHead_Handler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "ListRefs", Handler: _Store_ListRefs_Handler, ServerStreams: true},
		{StreamName: "ListHeads", Handler: _Store_ListHeads_Handler, ServerStreams: true},
	},
	Metadata: "store.proto",
}
