package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"

	"github.com/dvcrn/igtoken/internal/app"
	"github.com/dvcrn/igtoken/internal/config"
	"github.com/dvcrn/igtoken/internal/credentials"
	"github.com/dvcrn/igtoken/internal/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := &cli.Command{
		Name:  "igtoken-server",
		Usage: "Long-lived token keeper for the Instagram Graph API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to config file",
			},
			&cli.StringFlag{
				Name:  "server--host",
				Usage: "server host",
			},
			&cli.IntFlag{
				Name:  "server--port",
				Usage: "server port",
			},
		},
		Action: run,
	}

	if err := cmd.Run(ctx, os.Args); err != nil {
		log := logger.New()
		log.Fatal().Err(err).Msg("Server failed")
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	log := logger.New()

	configPath := cmd.String("config")
	if configPath == "" {
		if path := credentials.DefaultConfigPath(); credentials.FileExists(path) {
			configPath = path
		}
	}

	cfg, err := config.Load(configPath, cmd, os.Environ)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	store, err := cfg.Store.NewStore(ctx)
	if err != nil {
		return fmt.Errorf("failed to open credential store: %w", err)
	}
	log.Info().
		Str("backend", string(cfg.Store.Backend)).
		Int("accounts", len(cfg.Accounts)).
		Msg("Credential store ready")

	application := app.New(cfg, store, log)
	logStartupAccounts(ctx, application.Records(), cfg.Registry(), log)

	return application.Run(ctx)
}

// logStartupAccounts reports per-account token status right after boot.
// Token values never reach the log, only lengths and timestamps.
func logStartupAccounts(ctx context.Context, records *credentials.Records, registry *config.Registry, log zerolog.Logger) {
	for _, accountID := range registry.AccountIDs() {
		fallback, _ := registry.Fallback(accountID)

		rec, err := records.Load(ctx, accountID)
		if errors.Is(err, credentials.ErrNotFound) {
			if fallback == "" {
				log.Warn().
					Str("account", accountID).
					Msg("⚠️  No stored token and no fallback configured")
				continue
			}
			log.Info().
				Str("account", accountID).
				Int("fallback_length", len(fallback)).
				Msg("📄 No stored token yet, will seed from fallback on first use")
			continue
		}
		if err != nil {
			log.Error().Err(err).
				Str("account", accountID).
				Msg("⚠️  Failed to read stored token at startup")
			continue
		}

		evt := log.Info().
			Str("account", accountID).
			Int("token_length", len(rec.Token)).
			Bool("has_fallback", fallback != "")
		if !rec.RefreshedAt.IsZero() {
			evt = evt.Int("days_since_refresh", int(time.Since(rec.RefreshedAt).Hours()/24))
		}
		evt.Msg("✅ Stored token loaded")
	}
}
