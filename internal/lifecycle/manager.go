// Package lifecycle decides whether an account's token is usable and drives
// the refresh and fallback protocol when it is not. Every resolution
// re-validates against the remote provider; nothing is cached in process, so
// the manager works the same whether it runs in a long-lived server or a
// per-request worker invocation.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvcrn/igtoken/internal/credentials"
	"github.com/dvcrn/igtoken/internal/instagram"
	"github.com/dvcrn/igtoken/internal/metrics"
)

// Provider is the remote endpoint that can check and exchange tokens.
type Provider interface {
	ValidateToken(ctx context.Context, token string) error
	ExchangeToken(ctx context.Context, token string) (*instagram.TokenResponse, error)
}

// AccountRegistry knows which accounts this deployment manages and their
// statically configured fallback tokens.
type AccountRegistry interface {
	// Fallback returns the fallback token for an account. ok is false when
	// the account is not registered at all; a registered account without a
	// fallback returns ("", true).
	Fallback(accountID string) (token string, ok bool)

	// AccountIDs returns all registered account IDs.
	AccountIDs() []string
}

// state enumerates the steps of the validate-refresh-fallback protocol.
type state uint8

const (
	stateValidating state = iota
	stateRefreshing
	stateRevalidating
	stateFallbackRequired
	stateAccepted
)

func (s state) String() string {
	switch s {
	case stateValidating:
		return "validating"
	case stateRefreshing:
		return "refreshing"
	case stateRevalidating:
		return "revalidating"
	case stateFallbackRequired:
		return "fallback_required"
	case stateAccepted:
		return "accepted"
	}
	return "unknown"
}

// Manager drives the token lifecycle for all managed accounts. It holds no
// per-account state between calls; everything durable lives in the store.
type Manager struct {
	records  *credentials.Records
	provider Provider
	registry AccountRegistry
	logger   zerolog.Logger

	fallbackOnRefreshFailure bool
	now                      func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithFallbackOnRefreshFailure makes a failed token exchange fall through to
// the account's configured fallback token instead of surfacing a RefreshError.
func WithFallbackOnRefreshFailure(enabled bool) Option {
	return func(m *Manager) { m.fallbackOnRefreshFailure = enabled }
}

// WithClock overrides the time source used for persisted refresh timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// New creates a Manager on top of the given record store, provider client,
// and account registry.
func New(records *credentials.Records, provider Provider, registry AccountRegistry, logger zerolog.Logger, opts ...Option) *Manager {
	m := &Manager{
		records:  records,
		provider: provider,
		registry: registry,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ResolveToken returns a token record for the account whose token has been
// positively validated against the provider within this call. A missing
// record is seeded from the account's configured fallback token before
// validation; an account with neither fails with ConfigurationError.
func (m *Manager) ResolveToken(ctx context.Context, accountID string) (*credentials.TokenRecord, error) {
	accountID = credentials.NormalizeAccountID(accountID)

	rec, err := m.records.Load(ctx, accountID)
	if errors.Is(err, credentials.ErrNotFound) {
		fallback, ok := m.registry.Fallback(accountID)
		if !ok || fallback == "" {
			return nil, &ConfigurationError{AccountID: accountID, Reason: "no stored token and no fallback token configured"}
		}

		m.logger.Info().Str("account", accountID).Msg("🔑 No stored token, seeding from configured fallback")
		metrics.IncrementFallback(accountID)
		rec, err = m.persist(ctx, accountID, fallback)
		if err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	accepted, err := m.EnsureValid(ctx, accountID, rec.Token)
	if err != nil {
		return nil, err
	}
	if accepted == rec.Token {
		return rec, nil
	}

	// EnsureValid persisted a different token; reload so the caller sees the
	// stored refresh timestamp.
	return m.records.Load(ctx, accountID)
}

// EnsureValid runs the validate-refresh-fallback state machine and returns a
// token the provider accepted during this call. The input token is returned
// unchanged (and nothing is written) when it validates; otherwise every
// replacement token is persisted before it is handed out.
func (m *Manager) EnsureValid(ctx context.Context, accountID, token string) (string, error) {
	accountID = credentials.NormalizeAccountID(accountID)

	current := token
	st := stateValidating
	for {
		m.logger.Debug().Str("account", accountID).Stringer("state", st).Msg("Token lifecycle state")

		switch st {
		case stateValidating:
			err := m.provider.ValidateToken(ctx, current)
			metrics.IncrementValidation(accountID, err == nil)
			if err == nil {
				st = stateAccepted
				break
			}
			if !instagram.IsTokenRejected(err) {
				return "", fmt.Errorf("failed to validate token for account %q: %w", accountID, err)
			}
			m.logger.Info().Str("account", accountID).Msg("🔄 Stored token rejected by provider, refreshing...")
			st = stateRefreshing

		case stateRefreshing:
			resp, err := m.provider.ExchangeToken(ctx, current)
			metrics.IncrementRefresh(accountID, err == nil)
			if err != nil {
				m.logger.Error().Err(err).Str("account", accountID).Msg("❌ Failed to refresh token")
				if m.fallbackOnRefreshFailure && m.hasFallback(accountID) {
					st = stateFallbackRequired
					break
				}
				return "", &RefreshError{AccountID: accountID, Err: err}
			}

			current = resp.AccessToken
			if _, err := m.persist(ctx, accountID, current); err != nil {
				return "", err
			}
			st = stateRevalidating

		case stateRevalidating:
			err := m.provider.ValidateToken(ctx, current)
			metrics.IncrementValidation(accountID, err == nil)
			if err == nil {
				m.logger.Info().Str("account", accountID).Msg("✅ Refreshed token validated successfully")
				st = stateAccepted
				break
			}
			if !instagram.IsTokenRejected(err) {
				return "", fmt.Errorf("failed to validate refreshed token for account %q: %w", accountID, err)
			}
			m.logger.Warn().Str("account", accountID).Msg("⚠️ Refreshed token still rejected, trying fallback")
			st = stateFallbackRequired

		case stateFallbackRequired:
			fallback, ok := m.registry.Fallback(accountID)
			if !ok || fallback == "" {
				return "", &NoValidTokenError{AccountID: accountID}
			}

			m.logger.Info().Str("account", accountID).Msg("🔑 Using configured fallback token")
			metrics.IncrementFallback(accountID)
			if _, err := m.persist(ctx, accountID, fallback); err != nil {
				return "", err
			}
			current = fallback
			st = stateAccepted

		case stateAccepted:
			return current, nil
		}
	}
}

// persist writes a new record for the account, stamped with the current time.
func (m *Manager) persist(ctx context.Context, accountID, token string) (*credentials.TokenRecord, error) {
	rec := &credentials.TokenRecord{Token: token, RefreshedAt: m.now().UTC()}
	if err := m.records.Save(ctx, accountID, rec); err != nil {
		return nil, err
	}
	metrics.SetLastRefresh(accountID, rec.RefreshedAt)
	return rec, nil
}

func (m *Manager) hasFallback(accountID string) bool {
	fallback, ok := m.registry.Fallback(accountID)
	return ok && fallback != ""
}
