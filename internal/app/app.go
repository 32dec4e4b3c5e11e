// Package app wires configuration, credential store, provider client,
// lifecycle manager and HTTP server into a runnable unit. The native binary
// and the Workers builds share this wiring.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/dvcrn/igtoken/internal/config"
	"github.com/dvcrn/igtoken/internal/credentials"
	"github.com/dvcrn/igtoken/internal/instagram"
	"github.com/dvcrn/igtoken/internal/lifecycle"
	"github.com/dvcrn/igtoken/internal/server"
)

type App struct {
	cfg     *config.Config
	logger  zerolog.Logger
	server  *server.Server
	manager *lifecycle.Manager
	records *credentials.Records
}

// New wires an App from configuration and an opened credential store.
func New(cfg *config.Config, store credentials.Store, logger zerolog.Logger) *App {
	records := credentials.NewRecords(store)
	registry := cfg.Registry()
	client := newClient(cfg, logger)
	manager := lifecycle.New(records, client, registry, logger,
		lifecycle.WithFallbackOnRefreshFailure(cfg.Lifecycle.FallbackOnRefreshFailure))

	opts := server.Options{
		Resolver:   manager,
		Registry:   registry,
		Records:    records,
		AdminToken: cfg.Admin.Token,
	}
	if cfg.Provider.FetchMedia {
		opts.Media = client
	}

	return &App{
		cfg:     cfg,
		logger:  logger,
		server:  server.New(logger, opts),
		manager: manager,
		records: records,
	}
}

// NewManager wires the lifecycle manager alone. The scheduled worker uses
// this directly since it serves no HTTP.
func NewManager(cfg *config.Config, store credentials.Store, logger zerolog.Logger) *lifecycle.Manager {
	return lifecycle.New(credentials.NewRecords(store), newClient(cfg, logger), cfg.Registry(), logger,
		lifecycle.WithFallbackOnRefreshFailure(cfg.Lifecycle.FallbackOnRefreshFailure))
}

func newClient(cfg *config.Config, logger zerolog.Logger) *instagram.Client {
	return instagram.NewClient(logger, cfg.Provider.ClientID, cfg.Provider.ClientSecret,
		instagram.WithBaseURL(cfg.Provider.BaseURL))
}

// Server returns the HTTP handler, for runtimes that bring their own listener.
func (a *App) Server() *server.Server {
	return a.server
}

// Manager returns the token lifecycle manager.
func (a *App) Manager() *lifecycle.Manager {
	return a.manager
}

// Records returns the token record codec over the configured store.
func (a *App) Records() *credentials.Records {
	return a.records
}

// Run serves HTTP until ctx is cancelled, then drains in-flight requests
// within the configured shutdown timeout.
func (a *App) Run(ctx context.Context) error {
	addr := net.JoinHostPort(a.cfg.Server.Host, strconv.Itoa(int(a.cfg.Server.Port)))
	httpServer := &http.Server{
		Addr:    addr,
		Handler: a.server,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info().Str("address", addr).Msg("Starting server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		a.logger.Info().Msg("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Shutdown.Timeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	a.logger.Info().Msg("Server stopped")
	return nil
}
