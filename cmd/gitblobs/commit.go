package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"github.com/gitblobsdb/gitblobs"
)

func (c maincmd) head(ctx context.Context, fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return errors.Wrap(err, "parsing args")
	}
	head, err := c.s.GetHead(ctx)
	if errors.Is(err, gitblobs.ErrNotFound) {
		fmt.Println("HEAD is unset")
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "getting HEAD")
	}
	if name, ok := head.Branch(); ok {
		h, err := gitblobs.ResolveHead(ctx, c.s)
		if errors.Is(err, gitblobs.ErrNotFound) {
			fmt.Printf("ref %s (no commits)\n", name)
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Printf("ref %s %s\n", name, h)
		return nil
	}
	fmt.Printf("commit %s\n", head.Value)
	return nil
}

func (c maincmd) add(ctx context.Context, fs *flag.FlagSet, args []string) error {
	var (
		msg    = fs.String("m", "", "commit message")
		author = fs.String("author", os.Getenv("USER"), "author name")
		email  = fs.String("email", "", "author email")
		prefix = fs.String("prefix", "", "path prefix within the tree")
		meta   = fs.String("meta", "", "JSON metadata for each added file")
		rm     = fs.Bool("rm", false, "remove the named paths instead of adding them")
	)
	if err := fs.Parse(args); err != nil {
		return errors.Wrap(err, "parsing args")
	}
	if fs.NArg() == 0 {
		return errors.New("no files named")
	}

	var metadata map[string]interface{}
	if *meta != "" {
		var err error
		metadata, err = gitblobs.UnmarshalMetadata([]byte(*meta))
		if err != nil {
			return errors.Wrap(err, "parsing -meta")
		}
	}

	req := gitblobs.CommitRequest{
		Put: make(map[string]gitblobs.File),
		Author: gitblobs.Signature{
			Name:      *author,
			Email:     *email,
			Timestamp: gitblobs.Timestamp(time.Now()),
		},
		Message: *msg,
	}
	for _, name := range fs.Args() {
		path := filepath.ToSlash(filepath.Join(*prefix, name))
		if *rm {
			req.Remove = append(req.Remove, path)
			continue
		}
		content, err := os.ReadFile(name)
		if err != nil {
			return errors.Wrapf(err, "reading %s", name)
		}
		req.Put[path] = gitblobs.File{Content: content, Metadata: metadata}
	}

	commit, err := gitblobs.WriteCommit(ctx, c.s, req)
	if err != nil {
		return errors.Wrap(err, "writing commit")
	}
	c.log.Infow("committed", "commit", commit.Hash, "tree", commit.TreeHash, "files", fs.NArg())
	fmt.Println(commit.Hash)
	return nil
}

func (c maincmd) getBlob(ctx context.Context, fs *flag.FlagSet, args []string) error {
	hashstr := fs.String("hash", "", "hash of blob to get")
	if err := fs.Parse(args); err != nil {
		return errors.Wrap(err, "parsing args")
	}
	h, err := gitblobs.HashFromHex(*hashstr)
	if err != nil {
		return errors.Wrap(err, "parsing -hash")
	}
	blob, err := gitblobs.GetBlob(ctx, c.s, h)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(blob.Content)
	return errors.Wrap(err, "writing blob to stdout")
}

func (c maincmd) logCmd(ctx context.Context, fs *flag.FlagSet, args []string) error {
	var (
		n    = fs.Int("n", 0, "maximum number of commits (0 for all)")
		from = fs.String("from", "", "commit to start from (default HEAD)")
	)
	if err := fs.Parse(args); err != nil {
		return errors.Wrap(err, "parsing args")
	}
	start, err := c.commitArg(ctx, *from)
	if err != nil {
		return err
	}
	return gitblobs.Log(ctx, c.s, start, *n, func(commit *gitblobs.Commit) error {
		fmt.Printf("commit %s\n", commit.Hash)
		if gitblobs.IsMergeCommit(commit) {
			fmt.Print("Merge:")
			for _, p := range commit.ParentHashes {
				fmt.Printf(" %s", p.Short())
			}
			fmt.Println()
		}
		fmt.Printf("Author: %s <%s>\nDate:   %s\n\n    %s\n\n", commit.Author.Name, commit.Author.Email, commit.Author.Timestamp, commit.Message)
		return nil
	})
}

func (c maincmd) snapshot(ctx context.Context, fs *flag.FlagSet, args []string) error {
	var (
		commitstr = fs.String("commit", "", "commit to show (default HEAD)")
		save      = fs.String("save", "", "directory in which to write the files")
	)
	if err := fs.Parse(args); err != nil {
		return errors.Wrap(err, "parsing args")
	}
	h, err := c.commitArg(ctx, *commitstr)
	if err != nil {
		return err
	}
	snap, err := gitblobs.Snapshot(ctx, c.s, h)
	if err != nil {
		return err
	}
	for _, path := range snap.Paths() {
		f := snap.Files[path]
		fmt.Printf("%s %s", f.BlobHash.Short(), path)
		if f.Metadata != nil {
			j, err := json.Marshal(f.Metadata.Data)
			if err != nil {
				return errors.Wrapf(err, "encoding metadata of %s", path)
			}
			fmt.Printf(" %s", j)
		}
		fmt.Println()

		if *save == "" {
			continue
		}
		dest := filepath.Join(*save, filepath.FromSlash(path))
		if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
			return errors.Wrapf(err, "creating directory for %s", dest)
		}
		if err := os.WriteFile(dest, f.Content, 0644); err != nil {
			return errors.Wrapf(err, "writing %s", dest)
		}
	}
	return nil
}

func (c maincmd) branch(ctx context.Context, fs *flag.FlagSet, args []string) error {
	var (
		name      = fs.String("name", "", "branch name")
		commitstr = fs.String("commit", "", "commit for the branch (default HEAD)")
		checkout  = fs.Bool("checkout", false, "make HEAD follow the branch")
	)
	if err := fs.Parse(args); err != nil {
		return errors.Wrap(err, "parsing args")
	}
	ref := gitblobs.NewBranch(*name, "")
	if err := gitblobs.CheckRefName(ref.Name); err != nil {
		return err
	}
	h, err := c.commitArg(ctx, *commitstr)
	if err != nil {
		return err
	}
	if err := c.s.UpdateRef(ctx, ref.Name, h); err != nil {
		return errors.Wrapf(err, "updating %s", ref.Name)
	}
	if *checkout {
		return errors.Wrap(c.s.SetHead(ctx, gitblobs.HeadFromBranch(ref.Name)), "setting HEAD")
	}
	return nil
}

func (c maincmd) refs(ctx context.Context, fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return errors.Wrap(err, "parsing args")
	}
	return c.s.ListRefs(ctx, func(ref gitblobs.Ref) error {
		fmt.Printf("%s %s\n", ref.CommitHash, ref.Name)
		return nil
	})
}

// commitArg parses a commit hash,
// or resolves HEAD if s is empty.
func (c maincmd) commitArg(ctx context.Context, s string) (gitblobs.Hash, error) {
	if s == "" {
		h, err := gitblobs.ResolveHead(ctx, c.s)
		return h, errors.Wrap(err, "resolving HEAD")
	}
	h, err := gitblobs.HashFromHex(s)
	return h, errors.Wrapf(err, "parsing commit %s", s)
}
