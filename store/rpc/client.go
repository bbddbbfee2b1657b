package rpc

import (
	"context"
	"io"

	"github.com/pkg/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/bobg/lds"
	"github.com/bobg/lds/store"
)

var _ lds.HeadStore = &Client{}

// Client implements lds.HeadStore over the Store gRPC service.
type Client struct {
	sc StoreClient
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{sc: NewStoreClient(cc)}
}

// Maps a gRPC status back to the error the server's store produced.
func mapRPC(err error, op string) error {
	if err == nil {
		return nil
	}
	switch status.Code(err) {
	case codes.NotFound:
		return lds.ErrNotFound
	case codes.Aborted:
		return lds.ErrConflict
	}
	return lds.StorageErr(err, op)
}

func (c *Client) Get(ctx context.Context, ref lds.Ref) (lds.Blob, error) {
	resp, err := c.sc.Get(ctx, wrapperspb.String(ref.String()))
	if err != nil {
		return nil, mapRPC(err, "rpc get")
	}
	b := lds.Blob(resp.GetValue())
	if b.Ref() != ref {
		return nil, lds.StorageErr(errors.Errorf("server returned wrong blob for %s", ref), "rpc get")
	}
	return b, nil
}

func (c *Client) Put(ctx context.Context, blob lds.Blob) (lds.Ref, bool, error) {
	resp, err := c.sc.Put(ctx, wrapperspb.Bytes(blob))
	if err != nil {
		return lds.Zero, false, mapRPC(err, "rpc put")
	}
	fields := resp.GetFields()
	ref, err := lds.ParseRef(fields["ref"].GetStringValue())
	if err != nil {
		return lds.Zero, false, lds.StorageErr(errors.Wrap(err, "parsing ref from server"), "rpc put")
	}
	if ref != blob.Ref() {
		return lds.Zero, false, lds.StorageErr(errors.Errorf("server stored %s, want %s", ref, blob.Ref()), "rpc put")
	}
	return ref, fields["added"].GetBoolValue(), nil
}

func (c *Client) ListRefs(ctx context.Context, start lds.Ref, f func(lds.Ref) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lc, err := c.sc.ListRefs(ctx, wrapperspb.String(start.String()))
	if err != nil {
		return mapRPC(err, "rpc listrefs")
	}
	for {
		resp, err := lc.Recv()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return mapRPC(errors.Wrap(err, "receiving response"), "rpc listrefs")
		}
		ref, err := lds.ParseRef(resp.GetValue())
		if err != nil {
			return lds.StorageErr(errors.Wrap(err, "parsing ref from server"), "rpc listrefs")
		}
		err = f(ref)
		if err != nil {
			return err
		}
	}
}

func (c *Client) GetHead(ctx context.Context, name string) (lds.Ref, error) {
	resp, err := c.sc.GetHead(ctx, wrapperspb.String(name))
	if err != nil {
		return lds.Zero, mapRPC(err, "rpc gethead")
	}
	ref, err := lds.ParseRef(resp.GetValue())
	return ref, lds.StorageErr(errors.Wrap(err, "parsing ref from server"), "rpc gethead")
}

func (c *Client) SwapHead(ctx context.Context, name string, oldRef, newRef lds.Ref) error {
	req := &structpb.Struct{Fields: map[string]*structpb.Value{
		"name": structpb.NewStringValue(name),
		"old":  structpb.NewStringValue(oldRef.String()),
		"new":  structpb.NewStringValue(newRef.String()),
	}}
	_, err := c.sc.SwapHead(ctx, req)
	return mapRPC(err, "rpc swaphead")
}

func (c *Client) ListHeads(ctx context.Context, start string, f func(string, lds.Ref) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lc, err := c.sc.ListHeads(ctx, wrapperspb.String(start))
	if err != nil {
		return mapRPC(err, "rpc listheads")
	}
	for {
		resp, err := lc.Recv()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return mapRPC(errors.Wrap(err, "receiving response"), "rpc listheads")
		}
		fields := resp.GetFields()
		ref, err := lds.ParseRef(fields["ref"].GetStringValue())
		if err != nil {
			return lds.StorageErr(errors.Wrap(err, "parsing ref from server"), "rpc listheads")
		}
		err = f(fields["name"].GetStringValue(), ref)
		if err != nil {
			return err
		}
	}
}

func init() {
	store.Register("rpc", func(ctx context.Context, conf map[string]interface{}) (lds.HeadStore, error) {
		addr, ok := conf["addr"].(string)
		if !ok {
			return nil, errors.New(`missing "addr" parameter`)
		}
		cc, err := grpc.DialContext(ctx, addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			return nil, errors.Wrapf(err, "dialing %s", addr)
		}
		return NewClient(cc), nil
	})
}
