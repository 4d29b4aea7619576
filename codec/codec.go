// Package codec converts bundles to and from bytes.
//
// An encoded bundle is the four-byte magic number "GBB1",
// one byte identifying the compression,
// and the compressed msgpack encoding of the bundle.
package codec

import (
	"bytes"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack"

	"github.com/gitblobsdb/gitblobs"
)

// Magic begins every encoded bundle.
const Magic = "GBB1"

// ErrBadMagic is the error returned by Decode for input that is not an encoded bundle.
var ErrBadMagic = errors.New("not an encoded bundle")

type wireBundle struct {
	Version   string            `msgpack:"version"`
	Timestamp string            `msgpack:"timestamp"`
	Extra     map[string]string `msgpack:"extra"`

	Commits  []wireCommit   `msgpack:"commits"`
	Trees    []wireTree     `msgpack:"trees"`
	Blobs    []wireBlob     `msgpack:"blobs"`
	Metadata []wireMetadata `msgpack:"metadata"`
}

type wireSignature struct {
	Name      string `msgpack:"name"`
	Email     string `msgpack:"email"`
	Timestamp string `msgpack:"timestamp"`
}

type wireCommit struct {
	Hash         string        `msgpack:"hash"`
	TreeHash     string        `msgpack:"tree_hash"`
	ParentHashes []string      `msgpack:"parent_hashes"`
	Author       wireSignature `msgpack:"author"`
	Committer    wireSignature `msgpack:"committer"`
	Message      string        `msgpack:"message"`
}

type wireEntry struct {
	BlobHash     string `msgpack:"blob_hash"`
	MetadataHash string `msgpack:"metadata_hash"`
	Type         string `msgpack:"type"`
}

type wireTree struct {
	Hash    string               `msgpack:"hash"`
	Entries map[string]wireEntry `msgpack:"entries"`
}

type wireBlob struct {
	Hash    string `msgpack:"hash"`
	Content []byte `msgpack:"content"`
}

// Metadata travels as its JSON encoding,
// so that arbitrary values survive unchanged.
type wireMetadata struct {
	Hash string `msgpack:"hash"`
	Data []byte `msgpack:"data"`
}

// Encode encodes b with zstd compression.
func Encode(b *gitblobs.Bundle) ([]byte, error) {
	return EncodeWith(b, ZstdCompressor{})
}

// EncodeWith encodes b with the given compression.
// A nil Compressor means no compression.
func EncodeWith(b *gitblobs.Bundle, c Compressor) ([]byte, error) {
	if c == nil {
		c = noCompression{}
	}
	id, err := idOf(c)
	if err != nil {
		return nil, err
	}

	w, err := toWire(b)
	if err != nil {
		return nil, err
	}
	packed, err := msgpack.Marshal(w)
	if err != nil {
		return nil, errors.Wrap(err, "msgpack-encoding bundle")
	}
	compressed, err := c.Compress(packed)
	if err != nil {
		return nil, err
	}

	buf := bytes.NewBufferString(Magic)
	buf.WriteByte(id)
	buf.Write(compressed)
	return buf.Bytes(), nil
}

// Decode decodes the output of Encode or EncodeWith.
// Object hashes are taken as given, not recomputed;
// use gitblobs.Verify to check them.
// Trees and commits with text that is not valid UTF-8 are rejected.
func Decode(data []byte) (*gitblobs.Bundle, error) {
	if len(data) < len(Magic)+1 || string(data[:len(Magic)]) != Magic {
		return nil, ErrBadMagic
	}
	c, err := compressorFor(data[len(Magic)])
	if err != nil {
		return nil, err
	}
	packed, err := c.Uncompress(data[len(Magic)+1:])
	if err != nil {
		return nil, err
	}
	var w wireBundle
	if err := msgpack.Unmarshal(packed, &w); err != nil {
		return nil, errors.Wrap(err, "msgpack-decoding bundle")
	}
	return fromWire(&w)
}

func toWire(b *gitblobs.Bundle) (*wireBundle, error) {
	w := &wireBundle{
		Version:   b.Header.Version,
		Timestamp: b.Header.Timestamp,
		Extra:     b.Header.Extra,
	}
	for _, obj := range b.Objects() {
		switch o := obj.(type) {
		case *gitblobs.Blob:
			w.Blobs = append(w.Blobs, wireBlob{Hash: string(o.Hash), Content: o.Content})

		case *gitblobs.Metadata:
			data, err := json.Marshal(o.Data)
			if err != nil {
				return nil, errors.Wrapf(err, "encoding metadata %s", o.Hash)
			}
			w.Metadata = append(w.Metadata, wireMetadata{Hash: string(o.Hash), Data: data})

		case *gitblobs.Tree:
			entries := make(map[string]wireEntry, len(o.Entries))
			for path, e := range o.Entries {
				entries[path] = wireEntry{BlobHash: string(e.BlobHash), MetadataHash: string(e.MetadataHash), Type: e.Type}
			}
			w.Trees = append(w.Trees, wireTree{Hash: string(o.Hash), Entries: entries})

		case *gitblobs.Commit:
			parents := make([]string, 0, len(o.ParentHashes))
			for _, p := range o.ParentHashes {
				parents = append(parents, string(p))
			}
			w.Commits = append(w.Commits, wireCommit{
				Hash:         string(o.Hash),
				TreeHash:     string(o.TreeHash),
				ParentHashes: parents,
				Author:       wireSignature(o.Author),
				Committer:    wireSignature(o.Committer),
				Message:      o.Message,
			})
		}
	}
	return w, nil
}

func fromWire(w *wireBundle) (*gitblobs.Bundle, error) {
	b := &gitblobs.Bundle{
		ObjectSet: gitblobs.NewObjectSet(),
		Header: gitblobs.Header{
			Version:   w.Version,
			Timestamp: w.Timestamp,
			Extra:     w.Extra,
		},
	}
	if b.Header.Extra == nil {
		b.Header.Extra = make(map[string]string)
	}

	for _, wb := range w.Blobs {
		content := wb.Content
		if content == nil {
			content = []byte{}
		}
		b.Add(&gitblobs.Blob{Hash: gitblobs.Hash(wb.Hash), Content: content})
	}
	for _, wm := range w.Metadata {
		data, err := gitblobs.UnmarshalMetadata(wm.Data)
		if err != nil {
			return nil, errors.Wrapf(err, "decoding metadata %s", wm.Hash)
		}
		b.Add(&gitblobs.Metadata{Hash: gitblobs.Hash(wm.Hash), Data: data})
	}
	for _, wt := range w.Trees {
		entries := make(map[string]gitblobs.TreeEntry, len(wt.Entries))
		for path, e := range wt.Entries {
			entries[path] = gitblobs.TreeEntry{
				BlobHash:     gitblobs.Hash(e.BlobHash),
				MetadataHash: gitblobs.Hash(e.MetadataHash),
				Type:         e.Type,
			}
		}
		if err := gitblobs.CheckUTF8(entries); err != nil {
			return nil, errors.Wrapf(err, "decoding tree %s", wt.Hash)
		}
		b.Add(&gitblobs.Tree{Hash: gitblobs.Hash(wt.Hash), Entries: entries})
	}
	for _, wc := range w.Commits {
		parents := make([]gitblobs.Hash, 0, len(wc.ParentHashes))
		for _, p := range wc.ParentHashes {
			parents = append(parents, gitblobs.Hash(p))
		}
		fields := gitblobs.CommitFields{
			TreeHash:     gitblobs.Hash(wc.TreeHash),
			ParentHashes: parents,
			Author:       gitblobs.Signature(wc.Author),
			Committer:    gitblobs.Signature(wc.Committer),
			Message:      wc.Message,
		}
		if err := gitblobs.CheckUTF8(fields); err != nil {
			return nil, errors.Wrapf(err, "decoding commit %s", wc.Hash)
		}
		b.Add(&gitblobs.Commit{Hash: gitblobs.Hash(wc.Hash), CommitFields: fields})
	}
	return b, nil
}
