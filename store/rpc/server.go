package rpc

import (
	"context"
	stderrs "errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/bobg/lds"
)

var _ StoreServer = &Server{}

// Server exposes an lds.HeadStore over the Store gRPC service.
type Server struct {
	UnimplementedStoreServer // "All implementations must embed UnimplementedStoreServer for forward compatibility."

	s lds.HeadStore
}

func NewServer(s lds.HeadStore) *Server {
	return &Server{s: s}
}

func (s *Server) Get(ctx context.Context, req *wrapperspb.StringValue) (*wrapperspb.BytesValue, error) {
	ref, err := lds.ParseRef(req.GetValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	blob, err := s.s.Get(ctx, ref)
	if err != nil {
		return nil, mapErr(err)
	}
	return wrapperspb.Bytes(blob), nil
}

func (s *Server) Put(ctx context.Context, req *wrapperspb.BytesValue) (*structpb.Struct, error) {
	ref, added, err := s.s.Put(ctx, req.GetValue())
	if err != nil {
		return nil, mapErr(err)
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"ref":   structpb.NewStringValue(ref.String()),
		"added": structpb.NewBoolValue(added),
	}}, nil
}

func (s *Server) ListRefs(req *wrapperspb.StringValue, srv Store_ListRefsServer) error {
	start, err := lds.ParseRef(req.GetValue())
	if err != nil {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	err = s.s.ListRefs(srv.Context(), start, func(ref lds.Ref) error {
		return srv.Send(wrapperspb.String(ref.String()))
	})
	return mapErr(err)
}

func (s *Server) GetHead(ctx context.Context, req *wrapperspb.StringValue) (*wrapperspb.StringValue, error) {
	ref, err := s.s.GetHead(ctx, req.GetValue())
	if err != nil {
		return nil, mapErr(err)
	}
	return wrapperspb.String(ref.String()), nil
}

func (s *Server) SwapHead(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	fields := req.GetFields()
	name := fields["name"].GetStringValue()
	oldRef, err := lds.ParseRef(fields["old"].GetStringValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "old ref: "+err.Error())
	}
	newRef, err := lds.ParseRef(fields["new"].GetStringValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "new ref: "+err.Error())
	}
	if err = s.s.SwapHead(ctx, name, oldRef, newRef); err != nil {
		return nil, mapErr(err)
	}
	return &emptypb.Empty{}, nil
}

func (s *Server) ListHeads(req *wrapperspb.StringValue, srv Store_ListHeadsServer) error {
	err := s.s.ListHeads(srv.Context(), req.GetValue(), func(name string, ref lds.Ref) error {
		return srv.Send(&structpb.Struct{Fields: map[string]*structpb.Value{
			"name": structpb.NewStringValue(name),
			"ref":  structpb.NewStringValue(ref.String()),
		}})
	})
	return mapErr(err)
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	switch {
	case stderrs.Is(err, lds.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case stderrs.Is(err, lds.ErrConflict):
		return status.Error(codes.Aborted, err.Error())
	case stderrs.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case stderrs.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}
	return status.Error(codes.Unavailable, err.Error())
}
