package merge

import (
	"sort"

	"github.com/gitblobsdb/gitblobs"
)

// Side is one version of a path in a three-way merge.
type Side struct {
	// Present is false when the path does not exist on this side.
	Present bool
	Entry   gitblobs.TreeEntry
}

func sideOf(entries map[string]gitblobs.TreeEntry, path string) Side {
	e, ok := entries[path]
	return Side{Present: ok, Entry: e}
}

func (s Side) same(other Side) bool {
	if !s.Present || !other.Present {
		return s.Present == other.Present
	}
	return s.Entry.Same(other.Entry)
}

// Conflict is a path that was edited incompatibly on the two sides of a merge.
type Conflict struct {
	Path               string
	Base, Ours, Theirs Side
}

// Trees merges the entries of two trees against those of their common base.
// For each path in the union of all three:
//
//   - if ours and theirs agree, that version is kept (a path deleted on both sides stays deleted);
//   - if the path is absent from base and present on one side only, the addition is kept;
//   - if the path is in base and one side deleted it while the other still has it,
//     that is a conflict;
//   - if both sides have the path with different contents, that is a conflict.
//
// Conflicted paths are absent from the merged result.
// Conflicts are in path order.
func Trees(base, ours, theirs map[string]gitblobs.TreeEntry) (map[string]gitblobs.TreeEntry, []Conflict) {
	paths := make(map[string]struct{})
	for _, m := range []map[string]gitblobs.TreeEntry{base, ours, theirs} {
		for p := range m {
			paths[p] = struct{}{}
		}
	}
	sorted := make([]string, 0, len(paths))
	for p := range paths {
		sorted = append(sorted, p)
	}
	sort.Strings(sorted)

	var (
		merged    = make(map[string]gitblobs.TreeEntry)
		conflicts []Conflict
	)
	for _, path := range sorted {
		var (
			b = sideOf(base, path)
			o = sideOf(ours, path)
			t = sideOf(theirs, path)
		)
		if o.same(t) {
			if o.Present {
				merged[path] = o.Entry
			}
			continue
		}
		// Ours and theirs differ.
		// With a base version, one side deleted it or both sides hold different versions.
		if b.Present || (o.Present && t.Present) {
			conflicts = append(conflicts, Conflict{Path: path, Base: b, Ours: o, Theirs: t})
			continue
		}
		if o.Present {
			merged[path] = o.Entry
		} else {
			merged[path] = t.Entry
		}
	}
	return merged, conflicts
}
