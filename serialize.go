package gitblobs

import (
	"bytes"
	"encoding/json"

	"github.com/pkg/errors"
)

// envelope is the stored form of an object:
// {"type": ..., "hash": ..., "content": ...}.
type envelope struct {
	Type    ObjectType      `json:"type"`
	Hash    Hash            `json:"hash"`
	Content json.RawMessage `json:"content"`
}

type blobContent struct {
	Data []byte `json:"data"`
}

type metadataContent struct {
	Data json.RawMessage `json:"data"`
}

type treeContent struct {
	Entries map[string]TreeEntry `json:"entries"`
}

type commitContent struct {
	TreeHash     Hash      `json:"tree_hash"`
	ParentHashes []Hash    `json:"parent_hashes"`
	Author       Signature `json:"author"`
	Committer    Signature `json:"committer"`
	Message      string    `json:"message"`
}

// MarshalObject serializes an object for storage.
// Backends that store bytes use this format.
func MarshalObject(obj Object) ([]byte, error) {
	var content interface{}
	switch o := obj.(type) {
	case *Blob:
		content = blobContent{Data: o.Content}
	case *Metadata:
		data, err := json.Marshal(o.Data)
		if err != nil {
			return nil, errors.Wrapf(err, "marshaling metadata %s", o.Hash)
		}
		content = metadataContent{Data: data}
	case *Tree:
		content = treeContent{Entries: o.Entries}
	case *Commit:
		content = commitContent{
			TreeHash:     o.TreeHash,
			ParentHashes: o.ParentHashes,
			Author:       o.Author,
			Committer:    o.Committer,
			Message:      o.Message,
		}
	default:
		return nil, errors.Errorf("cannot marshal %T", obj)
	}
	raw, err := json.Marshal(content)
	if err != nil {
		return nil, errors.Wrapf(err, "marshaling %s %s", obj.ObjectType(), obj.ObjectHash())
	}
	return json.Marshal(envelope{Type: obj.ObjectType(), Hash: obj.ObjectHash(), Content: raw})
}

// UnmarshalObject parses the output of MarshalObject.
func UnmarshalObject(data []byte) (Object, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, errors.Wrap(err, "unmarshaling object envelope")
	}
	switch env.Type {
	case TypeBlob:
		var c blobContent
		if err := json.Unmarshal(env.Content, &c); err != nil {
			return nil, errors.Wrapf(err, "unmarshaling blob %s", env.Hash)
		}
		if c.Data == nil {
			c.Data = []byte{}
		}
		return &Blob{Hash: env.Hash, Content: c.Data}, nil

	case TypeMetadata:
		var c metadataContent
		if err := json.Unmarshal(env.Content, &c); err != nil {
			return nil, errors.Wrapf(err, "unmarshaling metadata %s", env.Hash)
		}
		data, err := UnmarshalMetadata(c.Data)
		if err != nil {
			return nil, errors.Wrapf(err, "unmarshaling metadata %s", env.Hash)
		}
		return &Metadata{Hash: env.Hash, Data: data}, nil

	case TypeTree:
		var c treeContent
		if err := json.Unmarshal(env.Content, &c); err != nil {
			return nil, errors.Wrapf(err, "unmarshaling tree %s", env.Hash)
		}
		if c.Entries == nil {
			c.Entries = map[string]TreeEntry{}
		}
		return &Tree{Hash: env.Hash, Entries: c.Entries}, nil

	case TypeCommit:
		var c commitContent
		if err := json.Unmarshal(env.Content, &c); err != nil {
			return nil, errors.Wrapf(err, "unmarshaling commit %s", env.Hash)
		}
		if c.ParentHashes == nil {
			c.ParentHashes = []Hash{}
		}
		return &Commit{
			Hash: env.Hash,
			CommitFields: CommitFields{
				TreeHash:     c.TreeHash,
				ParentHashes: c.ParentHashes,
				Author:       c.Author,
				Committer:    c.Committer,
				Message:      c.Message,
			},
		}, nil

	default:
		return nil, errors.Errorf("unknown object type %q", env.Type)
	}
}

// UnmarshalMetadata parses the JSON encoding of a metadata map.
// Numbers are decoded as json.Number,
// so they re-encode (and hash) exactly as they were written.
// Empty input and null both produce an empty map.
func UnmarshalMetadata(data []byte) (map[string]interface{}, error) {
	m := make(map[string]interface{})
	if len(bytes.TrimSpace(data)) == 0 {
		return m, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&m); err != nil {
		return nil, err
	}
	if m == nil {
		m = make(map[string]interface{})
	}
	return m, nil
}
