package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/pkg/errors"

	"github.com/bobg/lds"
	"github.com/bobg/lds/store"
	"github.com/bobg/lds/vocab"
)

type config struct {
	DB             map[string]interface{} `json:"db"`
	BaseURI        string                 `json:"baseURI"`
	Vocabulary     *vocab.Vocabulary      `json:"vocabulary"`
	ChunkThreshold int                    `json:"chunkThreshold"`
	MaxRetries     int                    `json:"maxRetries"`
	ImportLimit    int                    `json:"importLimit"`
}

func loadConfig(filename string) (*config, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "opening config file %s", filename)
	}
	defer f.Close()

	var conf config
	dec := json.NewDecoder(f)
	dec.UseNumber()
	err = dec.Decode(&conf)
	if err != nil {
		return nil, errors.Wrapf(err, "decoding config file %s", filename)
	}
	if conf.DB == nil {
		return nil, errors.Errorf("config file %s missing `db` parameter", filename)
	}
	return &conf, nil
}

func (conf *config) store(ctx context.Context) (lds.HeadStore, error) {
	typ, ok := conf.DB["type"].(string)
	if !ok {
		return nil, errors.New("`db` parameter missing `type`")
	}
	s, err := store.Create(ctx, typ, conf.DB)
	return s, errors.Wrapf(err, "creating %s-type store", typ)
}

// The default vocabulary extended with the configured one.
func (conf *config) vocabulary() *vocab.Vocabulary {
	v := vocab.Default()
	if conf.Vocabulary != nil {
		v = v.Merge(conf.Vocabulary)
	}
	return v
}
