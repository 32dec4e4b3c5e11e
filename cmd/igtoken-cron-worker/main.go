//go:build js && wasm

package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/syumai/workers/cloudflare/cron"

	"github.com/dvcrn/igtoken/internal/app"
	"github.com/dvcrn/igtoken/internal/config"
	"github.com/dvcrn/igtoken/internal/credentials"
	"github.com/dvcrn/igtoken/internal/lifecycle"
	"github.com/dvcrn/igtoken/internal/logger"
)

// bootstrapBinding is the KV namespace the worker reads its own config from.
const bootstrapBinding = "igtoken_kv"

var initManager = sync.OnceValues(func() (*lifecycle.Manager, error) {
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
		Msg("📦 Scheduled refresh worker ready")
	return app.NewManager(cfg, store, log), nil
})

func task(ctx context.Context) error {
	manager, err := initManager()
	if err != nil {
		logger.New().Error().Err(err).Msg("Failed to initialize scheduled worker")
		return err
	}

	report := manager.RefreshAll(ctx)
	if report.Failed() > 0 {
		return fmt.Errorf("bulk refresh failed for %d of %d accounts", report.Failed(), report.Processed)
	}
	return nil
}

func main() {
	cron.ScheduleTask(task)
}
