package lifecycle

import "fmt"

// ConfigurationError means an account has no usable starting point: it is not
// registered, or it has neither a stored token nor a configured fallback.
type ConfigurationError struct {
	AccountID string
	Reason    string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("account %q is not usable: %s", e.AccountID, e.Reason)
}

// RefreshError means the token exchange for an account was rejected or failed
// on the wire, and no fallback was available to cover for it.
type RefreshError struct {
	AccountID string
	Err       error
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("failed to refresh token for account %q: %v", e.AccountID, e.Err)
}

func (e *RefreshError) Unwrap() error { return e.Err }

// NoValidTokenError means every path to a working token was exhausted: the
// stored token was rejected, the refreshed one was rejected too, and the
// account has no fallback token configured.
type NoValidTokenError struct {
	AccountID string
}

func (e *NoValidTokenError) Error() string {
	return fmt.Sprintf("no valid token available for account %q", e.AccountID)
}
