// Package store is a registry of blob store backends.
// Each backend registers itself in an init function under a short name
// (e.g. "mem", "sqlite3", "pg")
// and can then be created from a JSON-style configuration map with Create.
package store

import (
	"context"
	"fmt"
	"sort"

	"github.com/bobg/lds"
)

// Factory creates a HeadStore from a configuration map.
type Factory func(context.Context, map[string]interface{}) (lds.HeadStore, error)

var registry = make(map[string]Factory)

// Register makes a backend available to Create under the given key.
func Register(key string, f Factory) {
	registry[key] = f
}

// Create creates the HeadStore registered under key.
func Create(ctx context.Context, key string, conf map[string]interface{}) (lds.HeadStore, error) {
	f, ok := registry[key]
	if !ok {
		return nil, fmt.Errorf("key %s not found in registry", key)
	}
	return f(ctx, conf)
}

// Keys lists the registered backend names.
func Keys() []string {
	var keys []string
	for k := range registry {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
