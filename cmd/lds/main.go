// Command lds is a CLI interface to a linked-data store.
package main

import (
	"context"
	"flag"
	"log"

	"github.com/bobg/subcmd"

	"github.com/bobg/lds"
	"github.com/bobg/lds/dataset"
	"github.com/bobg/lds/provision"
	_ "github.com/bobg/lds/store/bt"
	_ "github.com/bobg/lds/store/file"
	_ "github.com/bobg/lds/store/gcs"
	_ "github.com/bobg/lds/store/logging"
	_ "github.com/bobg/lds/store/lru"
	_ "github.com/bobg/lds/store/mem"
	_ "github.com/bobg/lds/store/pg"
	_ "github.com/bobg/lds/store/rpc"
	_ "github.com/bobg/lds/store/sqlite3"
	"github.com/bobg/lds/version"
)

type maincmd struct {
	hs lds.HeadStore
	ds *dataset.Dataset
	p  *provision.Provisioner
}

func main() {
	configFile := flag.String("config", "ldsconf.json", "path to config file")
	flag.Parse()

	if *configFile == "" {
		log.Fatal("Config value not set")
	}

	conf, err := loadConfig(*configFile)
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()

	hs, err := conf.store(ctx)
	if err != nil {
		log.Fatal(err)
	}

	var vopts []version.Option
	if conf.ChunkThreshold != 0 {
		vopts = append(vopts, version.WithChunkThreshold(conf.ChunkThreshold))
	}
	vs := version.New(hs, vopts...)

	dopts := []dataset.Option{dataset.WithVocabulary(conf.vocabulary())}
	if conf.MaxRetries > 0 {
		dopts = append(dopts, dataset.MaxRetries(conf.MaxRetries))
	}
	if conf.ImportLimit > 0 {
		dopts = append(dopts, dataset.ImportLimit(conf.ImportLimit))
	}
	ds := dataset.New(vs, dopts...)

	c := maincmd{
		hs: hs,
		ds: ds,
		p:  provision.New(ds, provision.BaseURI(conf.BaseURI)),
	}

	err = subcmd.Run(ctx, c, flag.Args())
	if err != nil {
		log.Fatal(err)
	}
}

func (c maincmd) Subcmds() map[string]subcmd.Subcmd {
	return map[string]subcmd.Subcmd{
		"db:get":          c.dbGet,
		"db:put":          c.dbPut,
		"db:import":       c.dbImport,
		"db:history":      c.dbHistory,
		"db:list":         c.dbList,
		"db:gc":           c.dbGC,
		"db:sync":         c.dbSync,
		"idp:new":         c.idpNew,
		"idp:add:key":     c.idpAddKey,
		"idp:add:profile": c.idpAddProfile,
		"ws:new":          c.wsNew,
		"serve":           c.serve,
	}
}
