package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/pkg/errors"
)

func (c maincmd) idpNew(ctx context.Context, fs *flag.FlagSet, args []string) error {
	name := fs.String("name", "", "name of the new identity")
	err := fs.Parse(args)
	if err != nil {
		return errors.Wrap(err, "parsing args")
	}
	if *name == "" {
		return errors.New("missing -name")
	}
	log.Printf("idp:new name: %s", *name)

	rep, err := c.p.NewIdentity(ctx, *name)
	if err != nil {
		return err
	}
	log.Printf("idp:new identity: %s", rep.Identity)
	return writeJSON(os.Stdout, rep)
}

func (c maincmd) idpAddKey(ctx context.Context, fs *flag.FlagSet, args []string) error {
	var (
		identity = fs.String("identity", "", "identity that owns the key")
		pemFile  = fs.String("pem", "", "file holding the PEM-encoded public key")
	)
	err := fs.Parse(args)
	if err != nil {
		return errors.Wrap(err, "parsing args")
	}
	if *identity == "" || *pemFile == "" {
		return errors.New("must supply -identity and -pem")
	}
	log.Printf("idp:add:key identity: %s", *identity)
	log.Printf("idp:add:key pem: %s", *pemFile)

	pem, err := os.ReadFile(*pemFile)
	if err != nil {
		return errors.Wrapf(err, "reading %s", *pemFile)
	}

	rep, err := c.p.AddKey(ctx, *identity, string(pem))
	if err != nil {
		return err
	}
	log.Printf("idp:add:key key: %s", rep.Key)
	return writeJSON(os.Stdout, rep)
}

func (c maincmd) idpAddProfile(ctx context.Context, fs *flag.FlagSet, args []string) error {
	var (
		identity = fs.String("identity", "", "identity the profile describes")
		profile  = fs.String("profile", "", "URI of the profile document")
	)
	err := fs.Parse(args)
	if err != nil {
		return errors.Wrap(err, "parsing args")
	}
	if *identity == "" || *profile == "" {
		return errors.New("must supply -identity and -profile")
	}
	log.Printf("idp:add:profile identity: %s", *identity)
	log.Printf("idp:add:profile profile: %s", *profile)

	rep, err := c.p.AddProfile(ctx, *identity, *profile)
	if err != nil {
		return err
	}
	return writeJSON(os.Stdout, rep)
}

func (c maincmd) wsNew(ctx context.Context, fs *flag.FlagSet, args []string) error {
	identity := fs.String("identity", "", "identity the workspace belongs to")
	err := fs.Parse(args)
	if err != nil {
		return errors.Wrap(err, "parsing args")
	}
	if *identity == "" {
		return errors.New("missing -identity")
	}
	log.Printf("ws:new identity: %s", *identity)

	rep, err := c.p.NewWorkspace(ctx, *identity)
	if err != nil {
		return err
	}
	log.Printf("ws:new workspace: %s", rep.Container)
	return writeJSON(os.Stdout, rep)
}
