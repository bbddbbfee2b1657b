package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/pkg/errors"

	"github.com/bobg/lds"
	"github.com/bobg/lds/version"
)

func (c maincmd) dbGet(ctx context.Context, fs *flag.FlagSet, args []string) error {
	var (
		uri     = fs.String("uri", "", "URI of resource to get")
		at      = fs.String("at", "", "hash of an earlier version (default: newest)")
		compact = fs.Bool("compact", false, "compact output with the configured vocabulary")
	)
	err := fs.Parse(args)
	if err != nil {
		return errors.Wrap(err, "parsing args")
	}
	if *uri == "" {
		return errors.New("missing -uri")
	}
	log.Printf("db:get uri: %s", *uri)

	var doc interface{}
	if *at != "" {
		log.Printf("db:get at: %s", *at)
		hash, err := lds.ParseRef(*at)
		if err != nil {
			return errors.Wrapf(err, "parsing -at %s", *at)
		}
		doc, err = c.ds.GetResourceAt(ctx, *uri, hash)
		if err != nil {
			return err
		}
	} else {
		doc, err = c.ds.GetResource(ctx, *uri)
		if err != nil {
			return err
		}
	}

	if *compact {
		doc, err = c.ds.Compact(doc, nil)
		if err != nil {
			return err
		}
	}
	return writeJSON(os.Stdout, doc)
}

func (c maincmd) dbPut(ctx context.Context, fs *flag.FlagSet, args []string) error {
	var (
		uri      = fs.String("uri", "", "URI of resource to write")
		file     = fs.String("file", "-", "JSON-LD document to write (- for stdin)")
		create   = fs.Bool("create", false, "fail if the resource already exists")
		doAppend = fs.Bool("append", false, "merge with the existing resource")
	)
	err := fs.Parse(args)
	if err != nil {
		return errors.Wrap(err, "parsing args")
	}
	if *uri == "" {
		return errors.New("missing -uri")
	}
	if *create && *doAppend {
		return errors.New("-create and -append are mutually exclusive")
	}
	log.Printf("db:put uri: %s", *uri)
	log.Printf("db:put file: %s", *file)

	doc, err := readDoc(*file)
	if err != nil {
		return err
	}

	var hash lds.Ref
	switch {
	case *create:
		hash, err = c.ds.CreateResource(ctx, *uri, doc)
	case *doAppend:
		hash, err = c.ds.AppendToResource(ctx, *uri, doc)
	default:
		hash, err = c.ds.UpdateResource(ctx, *uri, doc)
	}
	if err != nil {
		return err
	}

	log.Printf("db:put stored %s at %s", *uri, hash)
	return nil
}

func (c maincmd) dbImport(ctx context.Context, fs *flag.FlagSet, args []string) error {
	file := fs.String("file", "-", "JSON-LD document with named graphs (- for stdin)")
	err := fs.Parse(args)
	if err != nil {
		return errors.Wrap(err, "parsing args")
	}
	log.Printf("db:import file: %s", *file)

	doc, err := readDoc(*file)
	if err != nil {
		return err
	}

	written, err := c.ds.Import(ctx, doc)
	for _, uri := range written {
		log.Printf("db:import stored %s", uri)
	}
	return err
}

func (c maincmd) dbHistory(ctx context.Context, fs *flag.FlagSet, args []string) error {
	uri := fs.String("uri", "", "URI of resource")
	err := fs.Parse(args)
	if err != nil {
		return errors.Wrap(err, "parsing args")
	}
	if *uri == "" {
		return errors.New("missing -uri")
	}
	log.Printf("db:history uri: %s", *uri)

	hist, err := c.ds.History(ctx, *uri)
	if err != nil {
		return err
	}
	for _, v := range hist {
		printVersion(v)
	}
	return nil
}

func (c maincmd) dbList(ctx context.Context, fs *flag.FlagSet, args []string) error {
	start := fs.String("start", "", "list URIs after this one")
	err := fs.Parse(args)
	if err != nil {
		return errors.Wrap(err, "parsing args")
	}
	return c.ds.Versions().List(ctx, *start, func(v *version.Version) error {
		fmt.Printf("%s\t", v.URI)
		printVersion(v)
		return nil
	})
}

func printVersion(v *version.Version) {
	parent := "-"
	if !v.Parent.IsZero() {
		parent = v.Parent.String()
	}
	fmt.Printf("%s\t%s\t%s\n", v.Time.Format(time.RFC3339), v.Hash, parent)
}

func readDoc(filename string) (interface{}, error) {
	var r io.Reader = os.Stdin
	if filename != "-" && filename != "" {
		f, err := os.Open(filename)
		if err != nil {
			return nil, errors.Wrapf(err, "opening %s", filename)
		}
		defer f.Close()
		r = f
	}

	var doc interface{}
	err := json.NewDecoder(r).Decode(&doc)
	return doc, errors.Wrapf(err, "decoding JSON-LD from %s", filename)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(v), "writing JSON")
}
