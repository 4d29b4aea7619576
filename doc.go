// Package gitblobs is a content-addressable, versioned object store
// organized like a Git commit graph.
//
// A store holds four kinds of immutable object:
// blobs (raw bytes),
// metadata (a string-keyed map describing a blob),
// trees (a mapping from path to a blob/metadata pair),
// and commits (a tree plus parent commits, author, committer and message).
// Every object is identified by the SHA2-256 hash of its content,
// so two objects with the same content are the same object,
// wherever and whenever they were created.
// For blobs the hash covers the raw bytes.
// For the other kinds it covers a canonical JSON encoding of the object's fields,
// with map keys sorted.
//
// Commits point at their parents by hash,
// forming a directed acyclic history.
// A ref gives a commit a mutable name (such as refs/heads/main),
// and HEAD designates the current commit,
// either directly (a "detached" HEAD) or by following a ref.
//
// Persistence is delegated to a Store,
// a small interface that backends in the store/ subpackages implement
// (in memory, on the filesystem, in SQLite or PostgreSQL, in Google Cloud Storage).
// Some backends additionally implement ExtStore,
// which adds a full scan of all objects and an all-at-once replacement of the store's contents.
//
// On top of the Store contract,
// the diff subpackage computes the set of objects separating two revisions,
// the merge subpackage three-way merges a divergent history into HEAD,
// and the ff subpackage fast-forwards HEAD along a linear history.
// The objects exchanged between stores travel in a Bundle,
// which the codec subpackage turns into bytes.
package gitblobs
