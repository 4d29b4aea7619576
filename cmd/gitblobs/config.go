package main

import (
	"context"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"

	"github.com/gitblobsdb/gitblobs"
	"github.com/gitblobsdb/gitblobs/store"
	_ "github.com/gitblobsdb/gitblobs/store/file"
	_ "github.com/gitblobsdb/gitblobs/store/gcs"
	_ "github.com/gitblobsdb/gitblobs/store/logging"
	_ "github.com/gitblobsdb/gitblobs/store/lru"
	_ "github.com/gitblobsdb/gitblobs/store/mem"
	_ "github.com/gitblobsdb/gitblobs/store/pg"
	_ "github.com/gitblobsdb/gitblobs/store/replica"
	_ "github.com/gitblobsdb/gitblobs/store/sqlite3"
)

func storeFromConfig(ctx context.Context, filename string) (gitblobs.Store, error) {
	var conf map[string]interface{}
	if _, err := toml.DecodeFile(filename, &conf); err != nil {
		return nil, errors.Wrapf(err, "decoding config file %s", filename)
	}
	return store.FromConfig(ctx, conf)
}
