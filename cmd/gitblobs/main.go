// Command gitblobs is a CLI interface to versioned object stores.
package main

import (
	"context"
	"flag"
	"log"

	"github.com/bobg/subcmd"
	"go.uber.org/zap"

	"github.com/gitblobsdb/gitblobs"
	"github.com/gitblobsdb/gitblobs/store/logging"
)

type maincmd struct {
	s   gitblobs.Store
	log *zap.SugaredLogger
}

func main() {
	var (
		config  = flag.String("config", "gitblobs.toml", "path to config file")
		verbose = flag.Bool("v", false, "verbose logging")
	)
	flag.Parse()

	if *config == "" {
		log.Fatal("Config value not set")
	}

	var (
		zl  *zap.Logger
		err error
	)
	if *verbose {
		zl, err = zap.NewDevelopment()
	} else {
		zl, err = zap.NewProduction()
	}
	if err != nil {
		log.Fatalf("Creating logger: %s", err)
	}
	defer zl.Sync()

	sugar := zl.Sugar()
	logging.Logger = sugar

	ctx := context.Background()

	s, err := storeFromConfig(ctx, *config)
	if err != nil {
		sugar.Fatalw("opening store", "config", *config, "error", err)
	}

	err = subcmd.Run(ctx, maincmd{s: s, log: sugar}, flag.Args())
	if err != nil {
		sugar.Fatalw("running command", "error", err)
	}
}

func (c maincmd) Subcmds() map[string]subcmd.Subcmd {
	return map[string]subcmd.Subcmd{
		"add":      c.add,
		"apply":    c.apply,
		"branch":   c.branch,
		"diff":     c.diff,
		"export":   c.export,
		"get-blob": c.getBlob,
		"head":     c.head,
		"import":   c.importBundle,
		"log":      c.logCmd,
		"merge":    c.merge,
		"mirror":   c.mirror,
		"refs":     c.refs,
		"snapshot": c.snapshot,
		"sync":     c.sync,
	}
}
