package credentials

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	tokenKeyPrefix       = "token:"
	refreshedAtKeyPrefix = "token_refreshed_at:"
)

// NormalizeAccountID lowercases an account ID so that lookups and store keys
// are case-insensitive.
func NormalizeAccountID(accountID string) string {
	return strings.ToLower(strings.TrimSpace(accountID))
}

// TokenKey returns the store key holding the token for an account.
func TokenKey(accountID string) string {
	return tokenKeyPrefix + NormalizeAccountID(accountID)
}

// RefreshedAtKey returns the store key holding the last-refresh timestamp for
// an account.
func RefreshedAtKey(accountID string) string {
	return refreshedAtKeyPrefix + NormalizeAccountID(accountID)
}

// TokenRecord is the logical unit persisted per account. It spans two store
// entries: the token itself and the millisecond timestamp of its last refresh.
type TokenRecord struct {
	Token       string
	RefreshedAt time.Time
}

// Records reads and writes token records on top of a Store.
type Records struct {
	store Store
}

// NewRecords creates a record codec backed by the given store.
func NewRecords(store Store) *Records {
	return &Records{store: store}
}

// Load reads the token record for an account. A missing token yields
// ErrNotFound. A missing or malformed refresh timestamp is treated as
// unknown rather than an error, because the two entries are written
// separately and the store gives no atomicity across them.
func (r *Records) Load(ctx context.Context, accountID string) (*TokenRecord, error) {
	token, err := r.store.Get(ctx, TokenKey(accountID))
	if err != nil {
		return nil, fmt.Errorf("failed to load token for account %q: %w", NormalizeAccountID(accountID), err)
	}

	rec := &TokenRecord{Token: token}

	raw, err := r.store.Get(ctx, RefreshedAtKey(accountID))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return rec, nil
		}
		return nil, fmt.Errorf("failed to load refresh timestamp for account %q: %w", NormalizeAccountID(accountID), err)
	}

	if ms, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64); err == nil && ms > 0 {
		rec.RefreshedAt = time.UnixMilli(ms).UTC()
	}
	return rec, nil
}

// Save persists a token record as two sequential writes. The token entry goes
// first so an interruption between the writes can only leave an older
// timestamp next to a newer token, never the other way around.
func (r *Records) Save(ctx context.Context, accountID string, rec *TokenRecord) error {
	if err := r.store.Set(ctx, TokenKey(accountID), rec.Token); err != nil {
		return fmt.Errorf("failed to store token for account %q: %w", NormalizeAccountID(accountID), err)
	}

	var ms int64
	if !rec.RefreshedAt.IsZero() {
		ms = rec.RefreshedAt.UnixMilli()
	}
	if err := r.store.Set(ctx, RefreshedAtKey(accountID), strconv.FormatInt(ms, 10)); err != nil {
		return fmt.Errorf("failed to store refresh timestamp for account %q: %w", NormalizeAccountID(accountID), err)
	}
	return nil
}

// Accounts returns the sorted account IDs that currently have a stored token.
func (r *Records) Accounts(ctx context.Context) ([]string, error) {
	keys, err := r.store.ListKeys(ctx, tokenKeyPrefix)
	if err != nil {
		return nil, err
	}

	accounts := make([]string, 0, len(keys))
	for _, key := range keys {
		accounts = append(accounts, strings.TrimPrefix(key, tokenKeyPrefix))
	}
	sort.Strings(accounts)
	return accounts, nil
}
