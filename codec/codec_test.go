package codec

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/gitblobsdb/gitblobs"
	"github.com/gitblobsdb/gitblobs/testutil"
)

func TestRoundTrip(t *testing.T) {
	h := testutil.NewHistory(t)
	c0 := h.CommitTree(nil, h.TreeWithMeta(map[string]string{"a.txt": "alpha", "empty": ""}))
	c1 := h.Commit([]gitblobs.Hash{c0.Hash}, map[string]string{"a.txt": "alpha", "b.txt": "beta"})

	d := &gitblobs.Diff{Chain: []gitblobs.Hash{c0.Hash, c1.Hash}, Objects: h.Objects}
	b, err := gitblobs.DiffBundle(d)
	if err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name string
		c    Compressor
	}{
		{"zstd", ZstdCompressor{}},
		{"flate", FlateCompressor{Level: 9}},
		{"none", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			data, err := EncodeWith(b, tc.c)
			if err != nil {
				t.Fatal(err)
			}
			if string(data[:4]) != Magic {
				t.Fatalf("got prefix %q, want %q", data[:4], Magic)
			}
			got, err := Decode(data)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(b, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
			for _, obj := range got.Objects() {
				if err := gitblobs.Verify(obj); err != nil {
					t.Error(err)
				}
			}

			d2, err := gitblobs.BundleDiff(got)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(d.Chain, d2.Chain); diff != "" {
				t.Errorf("chain mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	if _, err := Decode([]byte("nope")); !errors.Is(err, ErrBadMagic) {
		t.Errorf("got %v, want ErrBadMagic", err)
	}
	if _, err := Decode([]byte(Magic + "\x09")); err == nil {
		t.Error("got no error for unknown compression")
	}
	if _, err := Decode([]byte(Magic + "\x01garbage")); err == nil {
		t.Error("got no error for corrupt zstd data")
	}
}

func TestMetadataNumbers(t *testing.T) {
	md, err := gitblobs.NewMetadata(map[string]interface{}{"n": int64(9007199254740993)})
	if err != nil {
		t.Fatal(err)
	}
	b := gitblobs.NewBundle()
	b.Add(md)

	data, err := Encode(b)
	if err != nil {
		t.Fatal(err)
	}
	got, err := Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	gotmd, ok := got.Metadata[md.Hash]
	if !ok {
		t.Fatal("metadata missing after decoding")
	}
	if err := gitblobs.Verify(gotmd); err != nil {
		t.Fatal(err)
	}
	if gotmd.Data["n"] != json.Number("9007199254740993") {
		t.Errorf("got n = %#v", gotmd.Data["n"])
	}
}

func TestDecodeInvalidUTF8(t *testing.T) {
	tree := &gitblobs.Tree{
		Hash:    "t",
		Entries: map[string]gitblobs.TreeEntry{"a\xff": gitblobs.NewEntry("b", "")},
	}
	commit := &gitblobs.Commit{
		Hash:         "c",
		CommitFields: gitblobs.CommitFields{TreeHash: "t", ParentHashes: []gitblobs.Hash{}, Message: "\xfe"},
	}
	for _, obj := range []gitblobs.Object{tree, commit} {
		b := gitblobs.NewBundle()
		b.Add(obj)
		data, err := Encode(b)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := Decode(data); !errors.Is(err, gitblobs.ErrInvalidUTF8) {
			t.Errorf("%s: got %v, want ErrInvalidUTF8", obj.ObjectType(), err)
		}
	}
}

func TestMaxDecodedSize(t *testing.T) {
	defer func(old uint64) { MaxDecodedSize = old }(MaxDecodedSize)

	b := gitblobs.NewBundle()
	b.Add(gitblobs.NewBlob(make([]byte, 1<<20)))

	for _, c := range []Compressor{ZstdCompressor{}, FlateCompressor{Level: 9}} {
		MaxDecodedSize = 1 << 30
		data, err := EncodeWith(b, c)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := Decode(data); err != nil {
			t.Fatalf("%T: %s", c, err)
		}

		MaxDecodedSize = 1 << 16
		if _, err := Decode(data); err == nil {
			t.Errorf("%T: got no error decoding past the size limit", c)
		}
	}
}
