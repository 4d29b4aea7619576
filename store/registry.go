// Package store holds the registry of storage backends
// and operations spanning more than one store.
package store

import (
	"context"
	"fmt"
	"sort"

	"github.com/pkg/errors"

	"github.com/gitblobsdb/gitblobs"
)

// Factory creates a store from a configuration map.
// The map is typically decoded from a config file.
type Factory func(context.Context, map[string]interface{}) (gitblobs.Store, error)

var registry = make(map[string]Factory)

// Register makes a backend available to Create under the given key.
// It is normally called from the backend package's init function.
func Register(key string, f Factory) {
	registry[key] = f
}

// Keys lists the registered backends in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(registry))
	for k := range registry {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Create creates a store using the factory registered under key.
func Create(ctx context.Context, key string, conf map[string]interface{}) (gitblobs.Store, error) {
	f, ok := registry[key]
	if !ok {
		return nil, fmt.Errorf("key %s not found in registry", key)
	}
	return f(ctx, conf)
}

// FromConfig creates a store from a configuration map
// whose "type" entry names the registered backend.
func FromConfig(ctx context.Context, conf map[string]interface{}) (gitblobs.Store, error) {
	key, ok := conf["type"].(string)
	if !ok {
		return nil, errors.New(`config has no string "type"`)
	}
	s, err := Create(ctx, key, conf)
	return s, errors.Wrapf(err, "creating %s store", key)
}

// Nested creates the store described by the "nested" table of conf.
// Wrapper backends use it.
func Nested(ctx context.Context, conf map[string]interface{}) (gitblobs.Store, error) {
	nested, ok := conf["nested"].(map[string]interface{})
	if !ok {
		return nil, errors.New(`config has no "nested" table`)
	}
	return FromConfig(ctx, nested)
}

// String gets a required string from conf.
func String(conf map[string]interface{}, key string) (string, error) {
	v, ok := conf[key].(string)
	if !ok {
		return "", errors.Errorf("config has no string %q", key)
	}
	return v, nil
}

// Int gets an integer from conf, or def if the key is absent.
// Numbers decoded from JSON are float64
// and numbers decoded from TOML are int64;
// both are accepted.
func Int(conf map[string]interface{}, key string, def int) (int, error) {
	switch v := conf[key].(type) {
	case nil:
		return def, nil
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	default:
		return 0, errors.Errorf("config value %q has type %T, want a number", key, v)
	}
}
