//go:build !js || !wasm

package credentials

import (
	"context"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

// KeyringStore keeps credentials in the operating system keyring (Keychain on
// macOS, Secret Service on Linux, Credential Manager on Windows).
type KeyringStore struct {
	service string
}

// NewKeyringStore creates a keyring store scoped to the given service name.
func NewKeyringStore(service string) *KeyringStore {
	return &KeyringStore{service: service}
}

func (k *KeyringStore) Get(ctx context.Context, key string) (string, error) {
	value, err := keyring.Get(k.service, key)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to read %q from keyring: %w", key, err)
	}
	return value, nil
}

func (k *KeyringStore) Set(ctx context.Context, key, value string) error {
	if err := keyring.Set(k.service, key, value); err != nil {
		return fmt.Errorf("failed to store %q in keyring: %w", key, err)
	}
	return nil
}

// ListKeys is unsupported: OS keyrings expose no portable enumeration API.
func (k *KeyringStore) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	return nil, ErrListUnsupported
}
