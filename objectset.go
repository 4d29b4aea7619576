package gitblobs

import "sort"

// ObjectSet holds objects of all four kinds, indexed by hash.
type ObjectSet struct {
	Commits  map[Hash]*Commit
	Trees    map[Hash]*Tree
	Blobs    map[Hash]*Blob
	Metadata map[Hash]*Metadata
}

// NewObjectSet produces an empty ObjectSet.
func NewObjectSet() ObjectSet {
	return ObjectSet{
		Commits:  make(map[Hash]*Commit),
		Trees:    make(map[Hash]*Tree),
		Blobs:    make(map[Hash]*Blob),
		Metadata: make(map[Hash]*Metadata),
	}
}

// Add adds obj to the set.
func (s ObjectSet) Add(obj Object) {
	switch o := obj.(type) {
	case *Commit:
		s.Commits[o.Hash] = o
	case *Tree:
		s.Trees[o.Hash] = o
	case *Blob:
		s.Blobs[o.Hash] = o
	case *Metadata:
		s.Metadata[o.Hash] = o
	}
}

// Has tells whether the set contains an object with the given hash.
func (s ObjectSet) Has(h Hash) bool {
	_, ok := s.Get(h)
	return ok
}

// Get finds an object of any kind by hash.
func (s ObjectSet) Get(h Hash) (Object, bool) {
	if c, ok := s.Commits[h]; ok {
		return c, true
	}
	if t, ok := s.Trees[h]; ok {
		return t, true
	}
	if b, ok := s.Blobs[h]; ok {
		return b, true
	}
	if m, ok := s.Metadata[h]; ok {
		return m, true
	}
	return nil, false
}

// Len is the number of objects in the set.
func (s ObjectSet) Len() int {
	return len(s.Commits) + len(s.Trees) + len(s.Blobs) + len(s.Metadata)
}

// Objects lists the set's objects:
// blobs, then metadata, then trees, then commits,
// each group sorted by hash.
// That order stores every object after the objects it refers to,
// except for commit parents.
func (s ObjectSet) Objects() []Object {
	out := make([]Object, 0, s.Len())
	for _, h := range sortedKeys(s.Blobs) {
		out = append(out, s.Blobs[h])
	}
	for _, h := range sortedKeys(s.Metadata) {
		out = append(out, s.Metadata[h])
	}
	for _, h := range sortedKeys(s.Trees) {
		out = append(out, s.Trees[h])
	}
	for _, h := range sortedKeys(s.Commits) {
		out = append(out, s.Commits[h])
	}
	return out
}

func sortedKeys[T any](m map[Hash]T) []Hash {
	keys := make([]Hash, 0, len(m))
	for h := range m {
		keys = append(keys, h)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Diff is the result of a history walk between two commits:
// the chain of commits from the older to the newer
// and every object needed to reconstruct them.
type Diff struct {
	// Chain runs oldest to newest:
	// the starting commit first and the target commit last.
	Chain []Hash

	Objects ObjectSet
}

// From is the first commit in the chain,
// or "" for an empty chain.
func (d *Diff) From() Hash {
	if len(d.Chain) == 0 {
		return ""
	}
	return d.Chain[0]
}

// To is the last commit in the chain,
// or "" for an empty chain.
func (d *Diff) To() Hash {
	if len(d.Chain) == 0 {
		return ""
	}
	return d.Chain[len(d.Chain)-1]
}
