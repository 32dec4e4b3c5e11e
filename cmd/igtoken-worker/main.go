//go:build js && wasm

package main

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/syumai/workers"

	"github.com/dvcrn/igtoken/internal/app"
	"github.com/dvcrn/igtoken/internal/config"
	"github.com/dvcrn/igtoken/internal/credentials"
	"github.com/dvcrn/igtoken/internal/logger"
)

// bootstrapBinding is the KV namespace the worker reads its own config from.
// The config then names the namespace holding token records, which may be a
// different one.
const bootstrapBinding = "igtoken_kv"

// KV reads await JavaScript promises, so the app is wired lazily on the
// first request instead of in main.
var initApp = sync.OnceValues(func() (*app.App, error) {
	log := logger.New()

	bootstrap, err := credentials.NewCloudflareKVStore(bootstrapBinding)
	if err != nil {
		return nil, fmt.Errorf("failed to open bootstrap KV namespace: %w", err)
	}

	raw, err := bootstrap.Get(context.Background(), config.WorkerConfigKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read config from KV key %q: %w", config.WorkerConfigKey, err)
	}

	cfg, err := config.Parse([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse worker config: %w", err)
	}
	if cfg.Store.Backend != config.StoreBackendCloudflareKV {
		return nil, fmt.Errorf("worker build requires the cloudflare-kv store backend, got %q", cfg.Store.Backend)
	}

	store, err := credentials.NewCloudflareKVStore(cfg.Store.KVBinding)
	if err != nil {
		return nil, fmt.Errorf("failed to open token KV namespace: %w", err)
	}

	log.Info().
		Str("binding", cfg.Store.KVBinding).
		Int("accounts", len(cfg.Accounts)).
		Msg("📦 Using Cloudflare KV token store")
	return app.New(cfg, store, log), nil
})

func main() {
	workers.Serve(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		application, err := initApp()
		if err != nil {
			logger.New().Error().Err(err).Msg("Failed to initialize worker")
			http.Error(w, "worker initialization failed", http.StatusServiceUnavailable)
			return
		}
		application.Server().ServeHTTP(w, r)
	}))
}
