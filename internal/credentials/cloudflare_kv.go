//go:build js && wasm

package credentials

import (
	"context"
	"fmt"

	"github.com/syumai/workers/cloudflare/kv"
)

// CloudflareKVStore keeps credentials in a Cloudflare Workers KV namespace.
type CloudflareKVStore struct {
	ns *kv.Namespace
}

// NewCloudflareKVStore opens the KV namespace bound under the given name.
// The binding name is configured in wrangler.toml.
func NewCloudflareKVStore(binding string) (*CloudflareKVStore, error) {
	ns, err := kv.NewNamespace(binding)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize KV namespace: %w", err)
	}
	return &CloudflareKVStore{ns: ns}, nil
}

func (c *CloudflareKVStore) Get(ctx context.Context, key string) (string, error) {
	value, err := c.ns.GetString(key, nil)
	if err != nil {
		return "", fmt.Errorf("failed to get %q from KV: %w", key, err)
	}
	// KV returns an empty string for absent keys
	if value == "" {
		return "", ErrNotFound
	}
	return value, nil
}

func (c *CloudflareKVStore) Set(ctx context.Context, key, value string) error {
	if err := c.ns.PutString(key, value, nil); err != nil {
		return fmt.Errorf("failed to store %q in KV: %w", key, err)
	}
	return nil
}

func (c *CloudflareKVStore) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	opts := &kv.ListOptions{Prefix: prefix}
	for {
		result, err := c.ns.List(opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list KV keys: %w", err)
		}
		for _, key := range result.Keys {
			keys = append(keys, key.Name)
		}
		if result.ListComplete {
			return keys, nil
		}
		opts = &kv.ListOptions{Prefix: prefix, Cursor: result.Cursor}
	}
}
