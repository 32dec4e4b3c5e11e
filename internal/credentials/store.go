// Package credentials provides the key-value stores that hold per-account
// token records, plus the record codec layered on top of them.
package credentials

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Store.Get when no value exists for the key.
var ErrNotFound = errors.New("key not found in store")

// ErrListUnsupported is returned by stores that cannot enumerate their keys.
var ErrListUnsupported = errors.New("store does not support listing keys")

// Store defines the interface for reading and persisting credential values
type Store interface {
	// Get returns the value stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)
	// Set stores value under key, overwriting any previous value.
	Set(ctx context.Context, key, value string) error
	// ListKeys returns every key that starts with prefix.
	ListKeys(ctx context.Context, prefix string) ([]string, error)
}
