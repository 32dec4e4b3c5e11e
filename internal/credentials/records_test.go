package credentials

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestRecordsSaveWritesTwoEntries(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	records := NewRecords(store)

	refreshedAt := time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC)
	err := records.Save(ctx, "acme", &TokenRecord{Token: "tok-123", RefreshedAt: refreshedAt})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	token, err := store.Get(ctx, "token:acme")
	if err != nil {
		t.Fatalf("Get token entry failed: %v", err)
	}
	if token != "tok-123" {
		t.Errorf("Expected tok-123, got %s", token)
	}

	raw, err := store.Get(ctx, "token_refreshed_at:acme")
	if err != nil {
		t.Fatalf("Get timestamp entry failed: %v", err)
	}
	expected := "1748781000000"
	if raw != expected {
		t.Errorf("Expected millisecond timestamp %s, got %s", expected, raw)
	}
}

func TestRecordsLoad(t *testing.T) {
	ctx := context.Background()

	t.Run("roundtrips a saved record", func(t *testing.T) {
		records := NewRecords(NewMemoryStore())
		refreshedAt := time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC)
		if err := records.Save(ctx, "acme", &TokenRecord{Token: "tok-123", RefreshedAt: refreshedAt}); err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		rec, err := records.Load(ctx, "acme")
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if rec.Token != "tok-123" {
			t.Errorf("Expected tok-123, got %s", rec.Token)
		}
		if !rec.RefreshedAt.Equal(refreshedAt) {
			t.Errorf("Expected %v, got %v", refreshedAt, rec.RefreshedAt)
		}
	})

	t.Run("missing token yields ErrNotFound", func(t *testing.T) {
		records := NewRecords(NewMemoryStore())
		_, err := records.Load(ctx, "ghost")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("missing timestamp entry is tolerated", func(t *testing.T) {
		store := NewMemoryStore()
		if err := store.Set(ctx, "token:acme", "tok-123"); err != nil {
			t.Fatalf("Set failed: %v", err)
		}

		rec, err := NewRecords(store).Load(ctx, "acme")
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if rec.Token != "tok-123" {
			t.Errorf("Expected tok-123, got %s", rec.Token)
		}
		if !rec.RefreshedAt.IsZero() {
			t.Errorf("Expected zero refresh time, got %v", rec.RefreshedAt)
		}
	})

	t.Run("malformed timestamp entry is tolerated", func(t *testing.T) {
		store := NewMemoryStore()
		if err := store.Set(ctx, "token:acme", "tok-123"); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		if err := store.Set(ctx, "token_refreshed_at:acme", "not-a-number"); err != nil {
			t.Fatalf("Set failed: %v", err)
		}

		rec, err := NewRecords(store).Load(ctx, "acme")
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if !rec.RefreshedAt.IsZero() {
			t.Errorf("Expected zero refresh time, got %v", rec.RefreshedAt)
		}
	})
}

func TestRecordsAccountIDsAreCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	records := NewRecords(NewMemoryStore())

	if err := records.Save(ctx, "AcMe", &TokenRecord{Token: "tok-123"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	rec, err := records.Load(ctx, "ACME")
	if err != nil {
		t.Fatalf("Load with different casing failed: %v", err)
	}
	if rec.Token != "tok-123" {
		t.Errorf("Expected tok-123, got %s", rec.Token)
	}
}

func TestRecordsAccounts(t *testing.T) {
	ctx := context.Background()
	records := NewRecords(NewMemoryStore())

	for _, accountID := range []string{"zeta", "Acme"} {
		if err := records.Save(ctx, accountID, &TokenRecord{Token: "tok"}); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	accounts, err := records.Accounts(ctx)
	if err != nil {
		t.Fatalf("Accounts failed: %v", err)
	}
	expected := []string{"acme", "zeta"}
	if !reflect.DeepEqual(accounts, expected) {
		t.Errorf("Expected %v, got %v", expected, accounts)
	}
}
