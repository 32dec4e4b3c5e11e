// Package config defines the application configuration and the sources it
// can be loaded from: a TOML file, IGTOKEN_ environment variables, CLI flags,
// or a raw TOML blob pulled out of the credential store by the worker build.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/dvcrn/igtoken/internal/credentials"
	"github.com/dvcrn/igtoken/internal/instagram"
)

// StoreBackend represents the different credential store backends.
type StoreBackend string

const (
	StoreBackendMemory       StoreBackend = "memory"
	StoreBackendFS           StoreBackend = "fs"
	StoreBackendSSM          StoreBackend = "ssm"
	StoreBackendKeyring      StoreBackend = "keyring"
	StoreBackendCloudflareKV StoreBackend = "cloudflare-kv"
)

// Default configuration values
const (
	DefaultServerHost      = "127.0.0.1"
	DefaultServerPort      = 9878
	DefaultShutdownTimeout = 5 * time.Second
	DefaultStoreBackend    = StoreBackendFS
	DefaultKeyringService  = "igtoken"
	DefaultKVBinding       = "igtoken_kv"
)

// ServerConfig holds server-specific configuration.
type ServerConfig struct {
	Host string `json:"host" validate:"hostname_rfc1123|ip"`
	Port uint16 `json:"port"` // Port range 0-65535 handled by uint16 type
}

// ShutdownConfig holds shutdown behavior configuration.
type ShutdownConfig struct {
	// Timeout for graceful shutdown.
	Timeout time.Duration `json:"timeout"`
}

// ProviderConfig holds the remote token provider settings.
type ProviderConfig struct {
	BaseURL      string `json:"base_url" validate:"required,url"`
	ClientID     string `json:"client_id" validate:"required"`
	ClientSecret string `json:"client_secret" validate:"required"`

	// FetchMedia switches the on-demand endpoint from returning the token to
	// returning the account's recent media items.
	FetchMedia bool `json:"fetch_media"`
}

// StoreConfig selects and configures the credential store backend.
type StoreConfig struct {
	Backend StoreBackend `json:"backend" validate:"required,oneof=memory fs ssm keyring cloudflare-kv"`

	// Backend-specific settings (mutually exclusive based on Backend type)
	Path           string `json:"path,omitempty"`            // For fs storage: directory holding one file per key
	SSMPrefix      string `json:"ssm_prefix,omitempty"`      // For ssm storage: parameter name prefix
	KeyringService string `json:"keyring_service,omitempty"` // For keyring storage: service identifier
	KVBinding      string `json:"kv_binding,omitempty"`      // For cloudflare-kv storage: namespace binding name
}

// LifecycleConfig tunes the token lifecycle behavior.
type LifecycleConfig struct {
	// FallbackOnRefreshFailure makes a failed token exchange fall through to
	// the account's configured fallback token instead of failing.
	FallbackOnRefreshFailure bool `json:"fallback_on_refresh_failure"`
}

// AdminConfig guards the administrative endpoints. An empty token disables
// them.
type AdminConfig struct {
	Token string `json:"token"`
}

// Config holds the application's configuration.
type Config struct {
	Server    ServerConfig    `json:"server"`
	Shutdown  ShutdownConfig  `json:"shutdown"`
	Provider  ProviderConfig  `json:"provider"`
	Store     StoreConfig     `json:"store"`
	Lifecycle LifecycleConfig `json:"lifecycle"`
	Admin     AdminConfig     `json:"admin"`

	// Accounts maps each managed account ID to its statically configured
	// fallback token; an empty value registers the account without one.
	Accounts map[string]string `json:"accounts" validate:"min=1"`
}

// Default creates a new Config with default values applied.
func Default() (*Config, error) {
	cfg := &Config{}
	if err := cfg.ApplyDefaults(); err != nil {
		return nil, fmt.Errorf("failed to apply defaults: %w", err)
	}
	return cfg, nil
}

// ApplyDefaults fills unset config fields with sensible defaults.
func (c *Config) ApplyDefaults() error {
	if c.Server.Host == "" {
		c.Server.Host = DefaultServerHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultServerPort
	}
	if c.Shutdown.Timeout == 0 {
		c.Shutdown.Timeout = DefaultShutdownTimeout
	}
	if c.Provider.BaseURL == "" {
		c.Provider.BaseURL = instagram.DefaultBaseURL
	}
	if c.Store.Backend == "" {
		c.Store.Backend = DefaultStoreBackend
	}

	// Dynamic defaults based on store backend
	switch c.Store.Backend {
	case StoreBackendFS:
		if c.Store.Path == "" {
			c.Store.Path = credentials.DefaultStoreDir()
		}
	case StoreBackendKeyring:
		if c.Store.KeyringService == "" {
			c.Store.KeyringService = DefaultKeyringService
		}
	case StoreBackendCloudflareKV:
		if c.Store.KVBinding == "" {
			c.Store.KVBinding = DefaultKVBinding
		}
	}

	return nil
}

// Validate validates the configuration using struct tags and enum values.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}

	switch c.Store.Backend {
	case StoreBackendFS:
		if c.Store.Path == "" {
			return errors.New("path required for fs storage")
		}
	case StoreBackendSSM:
		if c.Store.SSMPrefix == "" {
			return errors.New("ssm_prefix required for ssm storage")
		}
	case StoreBackendKeyring:
		if c.Store.KeyringService == "" {
			return errors.New("keyring_service required for keyring storage")
		}
	case StoreBackendCloudflareKV:
		if c.Store.KVBinding == "" {
			return errors.New("kv_binding required for cloudflare-kv storage")
		}
	}

	for accountID := range c.Accounts {
		if credentials.NormalizeAccountID(accountID) == "" {
			return errors.New("accounts must not have an empty account ID")
		}
	}

	return nil
}
