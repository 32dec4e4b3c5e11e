package credentials

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	t.Run("missing key returns ErrNotFound", func(t *testing.T) {
		_, err := store.Get(ctx, "token:missing")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("set then get", func(t *testing.T) {
		if err := store.Set(ctx, "token:acme", "tok-123"); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		value, err := store.Get(ctx, "token:acme")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if value != "tok-123" {
			t.Errorf("Expected tok-123, got %s", value)
		}
	})

	t.Run("set overwrites previous value", func(t *testing.T) {
		if err := store.Set(ctx, "token:acme", "tok-456"); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		value, err := store.Get(ctx, "token:acme")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if value != "tok-456" {
			t.Errorf("Expected tok-456, got %s", value)
		}
	})

	t.Run("list keys filters by prefix and sorts", func(t *testing.T) {
		store := NewMemoryStore()
		for key, value := range map[string]string{
			"token:zeta":              "z",
			"token:acme":              "a",
			"token_refreshed_at:acme": "0",
		} {
			if err := store.Set(ctx, key, value); err != nil {
				t.Fatalf("Set failed: %v", err)
			}
		}

		keys, err := store.ListKeys(ctx, "token:")
		if err != nil {
			t.Fatalf("ListKeys failed: %v", err)
		}
		expected := []string{"token:acme", "token:zeta"}
		if !reflect.DeepEqual(keys, expected) {
			t.Errorf("Expected %v, got %v", expected, keys)
		}
	})
}
