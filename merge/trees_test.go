package merge

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/gitblobsdb/gitblobs"
)

func entry(content string) gitblobs.TreeEntry {
	return gitblobs.NewEntry(gitblobs.HashBytes([]byte(content)), "")
}

func TestTrees(t *testing.T) {
	type m = map[string]gitblobs.TreeEntry

	withMeta := entry("1")
	withMeta.MetadataHash = gitblobs.HashBytes([]byte("meta"))

	cases := []struct {
		name               string
		base, ours, theirs m
		want               m
		conflicts          []string
	}{{
		name:   "disjoint additions",
		base:   m{},
		ours:   m{"a": entry("1")},
		theirs: m{"b": entry("2")},
		want:   m{"a": entry("1"), "b": entry("2")},
	}, {
		name:   "same change",
		base:   m{"a": entry("1")},
		ours:   m{"a": entry("2")},
		theirs: m{"a": entry("2")},
		want:   m{"a": entry("2")},
	}, {
		name:   "deleted on both sides",
		base:   m{"a": entry("1"), "b": entry("2")},
		ours:   m{"b": entry("2")},
		theirs: m{"b": entry("2")},
		want:   m{"b": entry("2")},
	}, {
		name:      "delete and modify",
		base:      m{"a": entry("1")},
		ours:      m{},
		theirs:    m{"a": entry("2")},
		want:      m{},
		conflicts: []string{"a"},
	}, {
		name:      "one side unchanged",
		base:      m{"a": entry("1")},
		ours:      m{"a": entry("1")},
		theirs:    m{"a": entry("2")},
		want:      m{},
		conflicts: []string{"a"},
	}, {
		name:      "divergent additions",
		base:      m{},
		ours:      m{"a": entry("1"), "c": entry("3")},
		theirs:    m{"a": entry("2"), "c": entry("3")},
		want:      m{"c": entry("3")},
		conflicts: []string{"a"},
	}, {
		name:      "metadata differs",
		base:      m{"a": entry("0")},
		ours:      m{"a": entry("1")},
		theirs:    m{"a": withMeta},
		want:      m{},
		conflicts: []string{"a"},
	}, {
		name:      "three-way edit",
		base:      m{"a": entry("X"), "z": entry("1")},
		ours:      m{"a": entry("Y"), "z": entry("1")},
		theirs:    m{"a": entry("Z"), "z": entry("1")},
		want:      m{"z": entry("1")},
		conflicts: []string{"a"},
	}}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, conflicts := Trees(tc.base, tc.ours, tc.theirs)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("merged mismatch (-want +got):\n%s", diff)
			}
			var paths []string
			for _, c := range conflicts {
				paths = append(paths, c.Path)
			}
			if diff := cmp.Diff(tc.conflicts, paths); diff != "" {
				t.Errorf("conflicts mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestConflictSides(t *testing.T) {
	_, conflicts := Trees(
		map[string]gitblobs.TreeEntry{"a": entry("1")},
		map[string]gitblobs.TreeEntry{},
		map[string]gitblobs.TreeEntry{"a": entry("2")},
	)
	want := []Conflict{{
		Path:   "a",
		Base:   Side{Present: true, Entry: entry("1")},
		Ours:   Side{},
		Theirs: Side{Present: true, Entry: entry("2")},
	}}
	if diff := cmp.Diff(want, conflicts); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}
