package main

import (
	"context"
	"flag"
	"log"

	"github.com/pkg/errors"

	"github.com/bobg/lds"
	"github.com/bobg/lds/gc"
	"github.com/bobg/lds/store"
)

func (c maincmd) dbGC(ctx context.Context, fs *flag.FlagSet, args []string) error {
	err := fs.Parse(args)
	if err != nil {
		return errors.Wrap(err, "parsing args")
	}

	s, ok := c.hs.(gc.Store)
	if !ok {
		return errors.Errorf("%T does not support deletion", c.hs)
	}

	k := make(gc.MemKeep)
	if err = gc.AddAll(ctx, k, c.ds.Versions()); err != nil {
		return errors.Wrap(err, "finding reachable blobs")
	}
	n, err := gc.Run(ctx, s, k)
	log.Printf("db:gc kept %d blobs, deleted %d", len(k), n)
	return err
}

func (c maincmd) dbSync(ctx context.Context, fs *flag.FlagSet, args []string) error {
	with := fs.String("with", "", "config file of the store to sync with")
	err := fs.Parse(args)
	if err != nil {
		return errors.Wrap(err, "parsing args")
	}
	if *with == "" {
		return errors.New("missing -with")
	}
	log.Printf("db:sync with: %s", *with)

	conf, err := loadConfig(*with)
	if err != nil {
		return err
	}
	other, err := conf.store(ctx)
	if err != nil {
		return err
	}

	if err = store.Sync(ctx, []lds.Store{c.hs, other}); err != nil {
		return errors.Wrap(err, "syncing blobs")
	}

	errs := make(lds.MultiErr)
	if err = store.SyncHeads(ctx, other, c.hs); err != nil {
		errs[*with] = err
	}
	if err = store.SyncHeads(ctx, c.hs, other); err != nil {
		errs["local"] = err
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}
