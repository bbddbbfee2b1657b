package main

import (
	"context"
	"flag"
	"log"
	"net"

	"github.com/pkg/errors"
	"google.golang.org/grpc"

	"github.com/bobg/lds/store/rpc"
)

func (c maincmd) serve(ctx context.Context, fs *flag.FlagSet, args []string) error {
	addr := fs.String("addr", ":2001", "address to listen on")
	err := fs.Parse(args)
	if err != nil {
		return errors.Wrap(err, "parsing args")
	}

	gs := grpc.NewServer()
	rpc.RegisterStoreServer(gs, rpc.NewServer(c.hs))
	defer gs.GracefulStop()

	lis, err := net.Listen("tcp", *addr)
	if err != nil {
		return errors.Wrapf(err, "listening on %s", *addr)
	}
	defer lis.Close()

	log.Printf("Listening on %s", lis.Addr())

	go func() {
		<-ctx.Done()
		gs.Stop()
	}()

	return gs.Serve(lis)
}
