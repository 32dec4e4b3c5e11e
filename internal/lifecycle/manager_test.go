package lifecycle

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvcrn/igtoken/internal/credentials"
	"github.com/dvcrn/igtoken/internal/instagram"
)

// fakeProvider scripts the remote provider: which tokens validate, and what
// each token exchanges into.
type fakeProvider struct {
	validTokens map[string]bool
	exchanges   map[string]string
	exchangeErr error
	validateErr error

	validated []string
	exchanged []string
}

func (p *fakeProvider) ValidateToken(ctx context.Context, token string) error {
	p.validated = append(p.validated, token)
	if p.validateErr != nil {
		return p.validateErr
	}
	if p.validTokens[token] {
		return nil
	}
	return &instagram.APIError{StatusCode: http.StatusUnauthorized, Type: "OAuthException", Code: 190, Message: "Invalid OAuth access token"}
}

func (p *fakeProvider) ExchangeToken(ctx context.Context, token string) (*instagram.TokenResponse, error) {
	p.exchanged = append(p.exchanged, token)
	if p.exchangeErr != nil {
		return nil, p.exchangeErr
	}
	next, ok := p.exchanges[token]
	if !ok {
		return nil, &instagram.APIError{StatusCode: http.StatusBadRequest, Type: "OAuthException", Code: 190, Message: "Invalid OAuth access token"}
	}
	return &instagram.TokenResponse{AccessToken: next, TokenType: "bearer", ExpiresIn: 5184000}, nil
}

// countingStore counts raw store operations on top of an in-memory store.
type countingStore struct {
	*credentials.MemoryStore
	gets int
	sets int
}

func newCountingStore() *countingStore {
	return &countingStore{MemoryStore: credentials.NewMemoryStore()}
}

func (s *countingStore) Get(ctx context.Context, key string) (string, error) {
	s.gets++
	return s.MemoryStore.Get(ctx, key)
}

func (s *countingStore) Set(ctx context.Context, key, value string) error {
	s.sets++
	return s.MemoryStore.Set(ctx, key, value)
}

// staticRegistry maps account IDs to fallback tokens; "" registers an account
// without a fallback.
type staticRegistry map[string]string

func (r staticRegistry) Fallback(accountID string) (string, bool) {
	token, ok := r[accountID]
	return token, ok
}

func (r staticRegistry) AccountIDs() []string {
	ids := make([]string, 0, len(r))
	for id := range r {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

var testClock = time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC)

func newTestManager(store credentials.Store, provider Provider, registry AccountRegistry, opts ...Option) *Manager {
	opts = append([]Option{WithClock(func() time.Time { return testClock })}, opts...)
	return New(credentials.NewRecords(store), provider, registry, zerolog.Nop(), opts...)
}

func seedRecord(t *testing.T, store credentials.Store, accountID, token string, refreshedAt time.Time) {
	t.Helper()
	records := credentials.NewRecords(store)
	require.NoError(t, records.Save(context.Background(), accountID, &credentials.TokenRecord{Token: token, RefreshedAt: refreshedAt}))
}

func TestResolveToken(t *testing.T) {
	t.Run("returns a valid stored token without writing", func(t *testing.T) {
		store := newCountingStore()
		storedAt := testClock.Add(-24 * time.Hour)
		seedRecord(t, store, "acme", "T0", storedAt)
		store.sets = 0

		provider := &fakeProvider{validTokens: map[string]bool{"T0": true}}
		manager := newTestManager(store, provider, staticRegistry{"acme": "FB"})

		rec, err := manager.ResolveToken(context.Background(), "acme")
		require.NoError(t, err)
		assert.Equal(t, "T0", rec.Token)
		assert.True(t, rec.RefreshedAt.Equal(storedAt))
		assert.Equal(t, []string{"T0"}, provider.validated)
		assert.Empty(t, provider.exchanged)
		assert.Equal(t, 0, store.sets)
	})

	t.Run("refreshes a rejected token and persists the replacement", func(t *testing.T) {
		store := newCountingStore()
		storedAt := testClock.Add(-24 * time.Hour)
		seedRecord(t, store, "acme", "T0", storedAt)

		provider := &fakeProvider{
			validTokens: map[string]bool{"T1": true},
			exchanges:   map[string]string{"T0": "T1"},
		}
		manager := newTestManager(store, provider, staticRegistry{"acme": "FB"})

		rec, err := manager.ResolveToken(context.Background(), "acme")
		require.NoError(t, err)
		assert.Equal(t, "T1", rec.Token)
		assert.True(t, rec.RefreshedAt.Equal(testClock), "expected the reloaded record to carry the persisted timestamp")
		assert.True(t, rec.RefreshedAt.After(storedAt))

		stored, err := store.MemoryStore.Get(context.Background(), "token:acme")
		require.NoError(t, err)
		assert.Equal(t, "T1", stored)
		assert.Equal(t, []string{"T0", "T1"}, provider.validated)
		assert.Equal(t, []string{"T0"}, provider.exchanged)
	})

	t.Run("falls back when the refreshed token is rejected too", func(t *testing.T) {
		store := newCountingStore()
		seedRecord(t, store, "acme", "T0", testClock.Add(-24*time.Hour))
		store.sets = 0

		provider := &fakeProvider{exchanges: map[string]string{"T0": "T1"}}
		manager := newTestManager(store, provider, staticRegistry{"acme": "FB"})

		rec, err := manager.ResolveToken(context.Background(), "acme")
		require.NoError(t, err)
		assert.Equal(t, "FB", rec.Token)

		stored, err := store.MemoryStore.Get(context.Background(), "token:acme")
		require.NoError(t, err)
		assert.Equal(t, "FB", stored)
		// The rejected replacement was persisted before the fallback overwrote it.
		assert.Equal(t, 4, store.sets)
		assert.Equal(t, []string{"T0", "T1"}, provider.validated)
	})

	t.Run("fails with ConfigurationError when nothing is configured", func(t *testing.T) {
		store := newCountingStore()
		provider := &fakeProvider{}
		manager := newTestManager(store, provider, staticRegistry{})

		_, err := manager.ResolveToken(context.Background(), "acme")
		require.Error(t, err)

		var confErr *ConfigurationError
		require.ErrorAs(t, err, &confErr)
		assert.Equal(t, "acme", confErr.AccountID)
		assert.Equal(t, 0, store.sets)
		assert.Empty(t, provider.validated)
	})

	t.Run("a registered account without a fallback is still unusable when empty", func(t *testing.T) {
		store := newCountingStore()
		manager := newTestManager(store, &fakeProvider{}, staticRegistry{"acme": ""})

		_, err := manager.ResolveToken(context.Background(), "acme")
		var confErr *ConfigurationError
		require.ErrorAs(t, err, &confErr)
		assert.Equal(t, 0, store.sets)
	})

	t.Run("seeds a missing record from the fallback token", func(t *testing.T) {
		store := newCountingStore()
		provider := &fakeProvider{validTokens: map[string]bool{"FB": true}}
		manager := newTestManager(store, provider, staticRegistry{"acme": "FB"})

		rec, err := manager.ResolveToken(context.Background(), "acme")
		require.NoError(t, err)
		assert.Equal(t, "FB", rec.Token)
		assert.True(t, rec.RefreshedAt.Equal(testClock))

		stored, err := store.MemoryStore.Get(context.Background(), "token:acme")
		require.NoError(t, err)
		assert.Equal(t, "FB", stored)
		// The seeded token still went through the validation path.
		assert.Equal(t, []string{"FB"}, provider.validated)
	})

	t.Run("back-to-back calls leave the stored token unchanged", func(t *testing.T) {
		store := newCountingStore()
		seedRecord(t, store, "acme", "T0", testClock.Add(-24*time.Hour))

		provider := &fakeProvider{
			validTokens: map[string]bool{"T1": true},
			exchanges:   map[string]string{"T0": "T1"},
		}
		manager := newTestManager(store, provider, staticRegistry{"acme": "FB"})

		first, err := manager.ResolveToken(context.Background(), "acme")
		require.NoError(t, err)
		setsAfterFirst := store.sets

		second, err := manager.ResolveToken(context.Background(), "acme")
		require.NoError(t, err)
		assert.Equal(t, first.Token, second.Token)
		assert.Equal(t, setsAfterFirst, store.sets, "second call must not write")
	})

	t.Run("account IDs are case-insensitive", func(t *testing.T) {
		store := newCountingStore()
		provider := &fakeProvider{validTokens: map[string]bool{"FB": true}}
		manager := newTestManager(store, provider, staticRegistry{"acme": "FB"})

		rec, err := manager.ResolveToken(context.Background(), "AcMe")
		require.NoError(t, err)
		assert.Equal(t, "FB", rec.Token)

		stored, err := store.MemoryStore.Get(context.Background(), "token:acme")
		require.NoError(t, err)
		assert.Equal(t, "FB", stored)
	})
}

func TestEnsureValid(t *testing.T) {
	t.Run("refresh failure surfaces RefreshError when fallback is disabled", func(t *testing.T) {
		store := newCountingStore()
		provider := &fakeProvider{exchangeErr: &instagram.APIError{StatusCode: http.StatusBadRequest, Message: "exchange rejected"}}
		manager := newTestManager(store, provider, staticRegistry{"acme": "FB"})

		_, err := manager.EnsureValid(context.Background(), "acme", "T0")
		require.Error(t, err)

		var refreshErr *RefreshError
		require.ErrorAs(t, err, &refreshErr)
		assert.Equal(t, "acme", refreshErr.AccountID)
		assert.Equal(t, 0, store.sets)
	})

	t.Run("refresh failure uses the fallback when enabled", func(t *testing.T) {
		store := newCountingStore()
		provider := &fakeProvider{exchangeErr: &instagram.APIError{StatusCode: http.StatusBadRequest, Message: "exchange rejected"}}
		manager := newTestManager(store, provider, staticRegistry{"acme": "FB"}, WithFallbackOnRefreshFailure(true))

		token, err := manager.EnsureValid(context.Background(), "acme", "T0")
		require.NoError(t, err)
		assert.Equal(t, "FB", token)

		stored, err := store.MemoryStore.Get(context.Background(), "token:acme")
		require.NoError(t, err)
		assert.Equal(t, "FB", stored)
	})

	t.Run("refresh failure without a fallback stays a RefreshError even when enabled", func(t *testing.T) {
		store := newCountingStore()
		provider := &fakeProvider{exchangeErr: &instagram.APIError{StatusCode: http.StatusBadRequest, Message: "exchange rejected"}}
		manager := newTestManager(store, provider, staticRegistry{"acme": ""}, WithFallbackOnRefreshFailure(true))

		_, err := manager.EnsureValid(context.Background(), "acme", "T0")
		var refreshErr *RefreshError
		require.ErrorAs(t, err, &refreshErr)
	})

	t.Run("exhausted paths end in NoValidTokenError", func(t *testing.T) {
		store := newCountingStore()
		provider := &fakeProvider{exchanges: map[string]string{"T0": "T1"}}
		manager := newTestManager(store, provider, staticRegistry{"acme": ""})

		_, err := manager.EnsureValid(context.Background(), "acme", "T0")
		require.Error(t, err)

		var noToken *NoValidTokenError
		require.ErrorAs(t, err, &noToken)
		assert.Equal(t, "acme", noToken.AccountID)
	})

	t.Run("validation transport errors do not trigger a refresh", func(t *testing.T) {
		store := newCountingStore()
		provider := &fakeProvider{validateErr: errors.New("connection reset by peer")}
		manager := newTestManager(store, provider, staticRegistry{"acme": "FB"})

		_, err := manager.EnsureValid(context.Background(), "acme", "T0")
		require.Error(t, err)
		assert.ErrorContains(t, err, "failed to validate token")
		assert.Empty(t, provider.exchanged)
		assert.Equal(t, 0, store.sets)
	})

	t.Run("a valid token is returned unchanged", func(t *testing.T) {
		store := newCountingStore()
		provider := &fakeProvider{validTokens: map[string]bool{"T0": true}}
		manager := newTestManager(store, provider, staticRegistry{"acme": "FB"})

		token, err := manager.EnsureValid(context.Background(), "acme", "T0")
		require.NoError(t, err)
		assert.Equal(t, "T0", token)
		assert.Equal(t, 0, store.sets)
	})
}

func TestRefreshAll(t *testing.T) {
	t.Run("one failing account never aborts the batch", func(t *testing.T) {
		store := newCountingStore()
		// bravo's fallback is rejected and cannot be exchanged; the others
		// seed and validate cleanly.
		provider := &fakeProvider{validTokens: map[string]bool{"A": true, "C": true}}
		registry := staticRegistry{"alpha": "A", "bravo": "B", "charlie": "C"}
		manager := newTestManager(store, provider, registry)

		report := manager.RefreshAll(context.Background())
		assert.Equal(t, 3, report.Processed)
		assert.Equal(t, 1, report.Failed())
		assert.False(t, report.OK())
		require.Contains(t, report.Failures, "bravo")

		var refreshErr *RefreshError
		assert.ErrorAs(t, report.Failures["bravo"], &refreshErr)

		for _, accountID := range []string{"alpha", "charlie"} {
			_, err := store.MemoryStore.Get(context.Background(), "token:"+accountID)
			assert.NoError(t, err, "account %s should have been processed", accountID)
		}
	})

	t.Run("an empty registry reports a clean run", func(t *testing.T) {
		manager := newTestManager(newCountingStore(), &fakeProvider{}, staticRegistry{})

		report := manager.RefreshAll(context.Background())
		assert.Equal(t, 0, report.Processed)
		assert.True(t, report.OK())
	})
}
