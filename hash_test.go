package gitblobs

import (
	"testing"
	"testing/quick"
)

func TestHashBytes(t *testing.T) {
	// sha256 of the empty string.
	const empty = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if got := HashBytes(nil); got != empty {
		t.Errorf("got %s, want %s", got, empty)
	}
	if !Hash(empty).Valid() {
		t.Error("valid hash reported invalid")
	}
	if Hash("xyz").Valid() {
		t.Error("invalid hash reported valid")
	}
	if got := Hash(empty).Short(); got != "e3b0c44298fc" {
		t.Errorf("got short %s", got)
	}
}

func TestHashFromHex(t *testing.T) {
	const upper = "E3B0C44298FC1C149AFBF4C8996FB92427AE41E4649B934CA495991B7852B855"
	h, err := HashFromHex(upper)
	if err != nil {
		t.Fatal(err)
	}
	if h != HashBytes(nil) {
		t.Errorf("got %s", h)
	}
	for _, bad := range []string{"", "abc", "zz", upper[:62]} {
		if _, err := HashFromHex(bad); err == nil {
			t.Errorf("no error for %q", bad)
		}
	}
}

func TestCanonicalJSON(t *testing.T) {
	cases := []struct {
		in   interface{}
		want string
	}{
		{map[string]interface{}{"b": 1, "a": 2}, `{"a":2,"b":1}`},
		{map[string]interface{}{"z": map[string]interface{}{"y": true, "x": nil}}, `{"z":{"x":null,"y":true}}`},
		{map[string]string{"html": "<a&b>"}, `{"html":"<a&b>"}`},
		{map[string]TreeEntry{"f": NewEntry("b1", "")}, `{"f":{"blob_hash":"b1","metadata_hash":"","type":"file"}}`},
	}
	for _, c := range cases {
		got, err := CanonicalJSON(c.in)
		if err != nil {
			t.Fatal(err)
		}
		if string(got) != c.want {
			t.Errorf("got %s, want %s", got, c.want)
		}
	}

	if _, err := CanonicalJSON(map[string]interface{}{"ch": make(chan int)}); err == nil {
		t.Error("no error encoding a channel")
	}
}

func TestBlobDeterminism(t *testing.T) {
	f := func(b []byte) bool {
		return NewBlob(b).Hash == NewBlob(append([]byte(nil), b...)).Hash
	}
	if err := quick.Check(f, nil); err != nil {
		t.Error(err)
	}
}

func TestContentAddressing(t *testing.T) {
	f := func(b1, b2 []byte) bool {
		if string(b1) == string(b2) {
			return true
		}
		return NewBlob(b1).Hash != NewBlob(b2).Hash
	}
	if err := quick.Check(f, nil); err != nil {
		t.Error(err)
	}
}
