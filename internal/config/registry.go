package config

import (
	"sort"

	"github.com/dvcrn/igtoken/internal/credentials"
)

// Registry is the static account registry derived from the accounts table.
type Registry struct {
	fallbacks map[string]string
}

// Registry returns the configured accounts with IDs normalized to lower case.
func (c *Config) Registry() *Registry {
	fallbacks := make(map[string]string, len(c.Accounts))
	for accountID, token := range c.Accounts {
		fallbacks[credentials.NormalizeAccountID(accountID)] = token
	}
	return &Registry{fallbacks: fallbacks}
}

// Fallback returns the configured fallback token for an account. ok is false
// when the account is not configured at all; a configured account without a
// fallback returns ("", true).
func (r *Registry) Fallback(accountID string) (string, bool) {
	token, ok := r.fallbacks[credentials.NormalizeAccountID(accountID)]
	return token, ok
}

// AccountIDs returns the configured account IDs in sorted order.
func (r *Registry) AccountIDs() []string {
	ids := make([]string, 0, len(r.fallbacks))
	for id := range r.fallbacks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
