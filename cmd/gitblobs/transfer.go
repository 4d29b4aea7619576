package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/gitblobsdb/gitblobs"
	"github.com/gitblobsdb/gitblobs/codec"
	"github.com/gitblobsdb/gitblobs/diff"
	"github.com/gitblobsdb/gitblobs/ff"
	"github.com/gitblobsdb/gitblobs/merge"
	"github.com/gitblobsdb/gitblobs/store"
)

func (c maincmd) diff(ctx context.Context, fs *flag.FlagSet, args []string) error {
	var (
		from  = fs.String("from", "", "older commit")
		to    = fs.String("to", "", "newer commit (default HEAD)")
		out   = fs.String("out", "", "bundle file to write")
		depth = fs.Int("depth", diff.DefaultMaxDepth, "maximum number of parent hops")
	)
	if err := fs.Parse(args); err != nil {
		return errors.Wrap(err, "parsing args")
	}
	if *from == "" || *out == "" {
		return errors.New("must supply -from and -out")
	}
	fromHash, err := c.commitArg(ctx, *from)
	if err != nil {
		return err
	}
	toHash, err := c.commitArg(ctx, *to)
	if err != nil {
		return err
	}

	d, err := diff.Walk(ctx, c.s, fromHash, toHash, diff.MaxDepth(*depth))
	if err != nil {
		return errors.Wrap(err, "computing diff")
	}
	b, err := gitblobs.DiffBundle(d)
	if err != nil {
		return err
	}
	if err := writeBundle(*out, b); err != nil {
		return err
	}
	c.log.Infow("wrote diff", "file", *out, "commits", len(d.Chain), "objects", d.Objects.Len())
	return nil
}

func (c maincmd) apply(ctx context.Context, fs *flag.FlagSet, args []string) error {
	var (
		in          = fs.String("in", "", "diff bundle to apply")
		mergeOnFail = fs.Bool("merge", false, "merge if the diff does not fast-forward")
	)
	if err := fs.Parse(args); err != nil {
		return errors.Wrap(err, "parsing args")
	}
	d, err := readDiff(*in)
	if err != nil {
		return err
	}

	err = ff.Apply(ctx, c.s, d)
	if errors.Is(err, gitblobs.ErrNotFastForwardable) && *mergeOnFail {
		c.log.Infow("not a fast-forward, merging", "from", d.From(), "to", d.To())
		return c.doMerge(ctx, d, false)
	}
	if err != nil {
		return errors.Wrap(err, "fast-forwarding")
	}
	c.log.Infow("fast-forwarded", "head", d.To(), "commits", len(d.Chain))
	return nil
}

func (c maincmd) merge(ctx context.Context, fs *flag.FlagSet, args []string) error {
	var (
		in   = fs.String("in", "", "diff bundle to merge")
		ours = fs.Bool("ours", false, "record HEAD as a parent of the merge commit")
	)
	if err := fs.Parse(args); err != nil {
		return errors.Wrap(err, "parsing args")
	}
	d, err := readDiff(*in)
	if err != nil {
		return err
	}
	return c.doMerge(ctx, d, *ours)
}

func (c maincmd) doMerge(ctx context.Context, d *gitblobs.Diff, ours bool) error {
	opts := []merge.Option{
		merge.WithAuthor(gitblobs.Signature{Name: os.Getenv("USER")}),
	}
	if ours {
		opts = append(opts, merge.IncludeOurs())
	}
	res, err := merge.Merge(ctx, c.s, d, opts...)
	if err != nil {
		return errors.Wrap(err, "merging")
	}
	if !res.Success {
		for _, conflict := range res.Conflicts {
			fmt.Printf("CONFLICT %s\n", conflict.Path)
		}
		return res.Err()
	}
	c.log.Infow("merged", "commit", res.Commit.Hash, "tree", res.Tree.Hash)
	fmt.Println(res.Commit.Hash)
	return nil
}

func (c maincmd) export(ctx context.Context, fs *flag.FlagSet, args []string) error {
	var (
		out  = fs.String("out", "", "bundle file to write")
		full = fs.Bool("full", false, "export every object, not only HEAD's snapshot")
	)
	if err := fs.Parse(args); err != nil {
		return errors.Wrap(err, "parsing args")
	}
	if *out == "" {
		return errors.New("must supply -out")
	}

	var (
		b   *gitblobs.Bundle
		err error
	)
	if *full {
		b, err = gitblobs.BackupBundle(ctx, c.s)
	} else {
		b, err = gitblobs.HeadSnapshotBundle(ctx, c.s)
	}
	if err != nil {
		return errors.Wrap(err, "building bundle")
	}
	if err := writeBundle(*out, b); err != nil {
		return err
	}
	c.log.Infow("exported", "file", *out, "objects", b.Len(), "full", *full)
	return nil
}

func (c maincmd) importBundle(ctx context.Context, fs *flag.FlagSet, args []string) error {
	in := fs.String("in", "", "bundle file to import")
	if err := fs.Parse(args); err != nil {
		return errors.Wrap(err, "parsing args")
	}
	b, err := readBundle(*in)
	if err != nil {
		return err
	}
	if err := gitblobs.Restore(ctx, c.s, b); err != nil {
		return errors.Wrap(err, "restoring")
	}
	head, _ := gitblobs.BundleHead(b)
	c.log.Infow("imported", "file", *in, "objects", b.Len(), "head", head)
	return nil
}

func (c maincmd) mirror(ctx context.Context, fs *flag.FlagSet, args []string) error {
	to := fs.String("to", "", "config file of the destination store")
	if err := fs.Parse(args); err != nil {
		return errors.Wrap(err, "parsing args")
	}
	src, err := gitblobs.Ext(c.s)
	if err != nil {
		return err
	}
	dst, err := storeFromConfig(ctx, *to)
	if err != nil {
		return errors.Wrapf(err, "reading %s", *to)
	}
	return store.Copy(ctx, dst, src)
}

// sync copies objects among the main store and the stores in the named config files,
// so that each ends up with all of them.
func (c maincmd) sync(ctx context.Context, fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return errors.Wrap(err, "parsing args")
	}
	src, err := gitblobs.Ext(c.s)
	if err != nil {
		return err
	}
	stores := []gitblobs.ExtStore{src}
	for _, arg := range fs.Args() {
		s, err := storeFromConfig(ctx, arg)
		if err != nil {
			return errors.Wrapf(err, "reading %s", arg)
		}
		es, err := gitblobs.Ext(s)
		if err != nil {
			return errors.Wrapf(err, "store in %s", arg)
		}
		stores = append(stores, es)
	}
	if len(stores) < 2 {
		return errors.New("name at least one other store config")
	}
	if err := store.Sync(ctx, stores); err != nil {
		return err
	}
	c.log.Infow("synced stores", "stores", len(stores))
	return nil
}

func writeBundle(filename string, b *gitblobs.Bundle) error {
	data, err := codec.Encode(b)
	if err != nil {
		return errors.Wrap(err, "encoding bundle")
	}
	return errors.Wrapf(os.WriteFile(filename, data, 0644), "writing %s", filename)
}

func readBundle(filename string) (*gitblobs.Bundle, error) {
	if filename == "" {
		return nil, errors.New("must supply -in")
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", filename)
	}
	b, err := codec.Decode(data)
	return b, errors.Wrapf(err, "decoding %s", filename)
}

func readDiff(filename string) (*gitblobs.Diff, error) {
	b, err := readBundle(filename)
	if err != nil {
		return nil, err
	}
	return gitblobs.BundleDiff(b)
}
