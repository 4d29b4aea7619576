package gitblobs

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"reflect"
	"unicode/utf8"

	"github.com/pkg/errors"
)

// Hash is the lowercase hex encoding of a SHA2-256 digest.
type Hash string

// HashLen is the length of a valid Hash string.
const HashLen = 2 * sha256.Size

func (h Hash) String() string {
	return string(h)
}

// Short is the first 12 characters of h,
// for display.
func (h Hash) Short() string {
	if len(h) <= 12 {
		return string(h)
	}
	return string(h[:12])
}

// Valid tells whether h is a well-formed hash.
func (h Hash) Valid() bool {
	if len(h) != HashLen {
		return false
	}
	_, err := hex.DecodeString(string(h))
	return err == nil
}

// HashFromHex parses a hex string into a Hash,
// normalizing it to lower case.
func HashFromHex(s string) (Hash, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return "", errors.Wrapf(err, "decoding hash %q", s)
	}
	if len(b) != sha256.Size {
		return "", errors.Errorf("hash %q has wrong length %d", s, len(b))
	}
	return Hash(hex.EncodeToString(b)), nil
}

// HashBytes computes the hash of raw data.
func HashBytes(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// HashJSON computes the hash of the canonical JSON encoding of v.
func HashJSON(v interface{}) (Hash, error) {
	b, err := CanonicalJSON(v)
	if err != nil {
		return "", err
	}
	return HashBytes(b), nil
}

// CanonicalJSON encodes v as compact JSON with object keys in sorted order
// and without HTML escaping.
//
// Keys of Go maps are sorted at every nesting level,
// so two maps with the same contents always encode identically.
// Struct fields are emitted in declaration order;
// the structs hashed by this package declare their fields in sorted key order.
//
// Strings anywhere in v must be valid UTF-8,
// otherwise the result is ErrInvalidUTF8.
func CanonicalJSON(v interface{}) ([]byte, error) {
	if err := CheckUTF8(v); err != nil {
		return nil, err
	}
	buf := new(bytes.Buffer)
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, errors.Wrap(err, "encoding canonical JSON")
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// CheckUTF8 reports ErrInvalidUTF8 if any string in v,
// including map keys and struct fields, is not valid UTF-8.
func CheckUTF8(v interface{}) error {
	return checkUTF8(reflect.ValueOf(v))
}

var byteSliceType = reflect.TypeOf([]byte(nil))

func checkUTF8(v reflect.Value) error {
	switch v.Kind() {
	case reflect.String:
		if !utf8.ValidString(v.String()) {
			return errors.Wrapf(ErrInvalidUTF8, "%q", v.String())
		}

	case reflect.Ptr, reflect.Interface:
		if !v.IsNil() {
			return checkUTF8(v.Elem())
		}

	case reflect.Map:
		iter := v.MapRange()
		for iter.Next() {
			if err := checkUTF8(iter.Key()); err != nil {
				return err
			}
			if err := checkUTF8(iter.Value()); err != nil {
				return err
			}
		}

	case reflect.Slice, reflect.Array:
		if v.Type().ConvertibleTo(byteSliceType) {
			// Encoded as base64.
			return nil
		}
		for i := 0; i < v.Len(); i++ {
			if err := checkUTF8(v.Index(i)); err != nil {
				return err
			}
		}

	case reflect.Struct:
		t := v.Type()
		for i := 0; i < v.NumField(); i++ {
			if t.Field(i).PkgPath != "" {
				continue
			}
			if err := checkUTF8(v.Field(i)); err != nil {
				return err
			}
		}
	}
	return nil
}
