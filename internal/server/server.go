// Package server exposes the token lifecycle over HTTP: an on-demand fetch
// endpoint for browsers, a scheduled bulk-refresh trigger, and a few
// operational endpoints (health, metrics, admin account listing).
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/dvcrn/igtoken/internal/credentials"
	"github.com/dvcrn/igtoken/internal/instagram"
	"github.com/dvcrn/igtoken/internal/lifecycle"
)

// TokenResolver yields provider-validated tokens for managed accounts.
type TokenResolver interface {
	ResolveToken(ctx context.Context, accountID string) (*credentials.TokenRecord, error)
	RefreshAll(ctx context.Context) lifecycle.Report
}

// MediaAPI fetches recent media once a valid token is in hand.
type MediaAPI interface {
	ResolveBusinessAccount(ctx context.Context, token string) (string, error)
	ListRecentMedia(ctx context.Context, token, userID string) ([]instagram.Media, error)
}

// Options wires the server's collaborators.
type Options struct {
	Resolver TokenResolver
	Registry lifecycle.AccountRegistry
	Records  *credentials.Records

	// Media switches the on-demand endpoint to return recent media items
	// instead of the raw token. Leave nil to serve tokens.
	Media MediaAPI

	// AdminToken guards the admin endpoints; empty disables them.
	AdminToken string
}

type Server struct {
	resolver   TokenResolver
	registry   lifecycle.AccountRegistry
	records    *credentials.Records
	media      MediaAPI
	adminToken string
	mux        *http.ServeMux
	logger     zerolog.Logger
}

func New(logger zerolog.Logger, opts Options) *Server {
	s := &Server{
		resolver:   opts.Resolver,
		registry:   opts.Registry,
		records:    opts.Records,
		media:      opts.Media,
		adminToken: opts.AdminToken,
		mux:        http.NewServeMux(),
		logger:     logger,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/token", s.corsMiddleware(s.tokenHandler))
	s.mux.HandleFunc("/api/refresh", s.refreshHandler)
	s.mux.HandleFunc("/health", s.healthHandler)
	s.mux.Handle("/metrics", promhttp.Handler())
	s.mux.HandleFunc("/admin/accounts", s.adminMiddleware(s.accountsHandler))
	s.mux.HandleFunc("/", s.notFoundHandler)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.loggingMiddleware(s.mux).ServeHTTP(w, r)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := uuid.NewString()
		s.logger.Info().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("uri", r.RequestURI).
			Str("remote_addr", r.RemoteAddr).
			Str("user_agent", r.UserAgent()).
			Msg("Incoming request")
		next.ServeHTTP(w, r)
		s.logger.Info().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("uri", r.RequestURI).
			Dur("duration", time.Since(start)).
			Msg("Finished request")
	})
}

// corsMiddleware permits any origin to call the on-demand endpoint from a
// browser. OPTIONS preflights are answered here and never reach the handler.
func (s *Server) corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next(w, r)
	}
}

// tokenHandler handles GET /api/token?account=<id>. Unknown accounts are
// rejected before any store access.
func (s *Server) tokenHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET, OPTIONS")
		s.writeError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	accountID := credentials.NormalizeAccountID(r.URL.Query().Get("account"))
	if accountID == "" {
		s.writeError(w, "missing account parameter", http.StatusBadRequest)
		return
	}
	if _, ok := s.registry.Fallback(accountID); !ok {
		s.logger.Warn().Str("account", accountID).Msg("Request for unknown account")
		s.writeError(w, "unknown account: "+accountID, http.StatusBadRequest)
		return
	}

	rec, err := s.resolver.ResolveToken(r.Context(), accountID)
	if err != nil {
		s.writeLifecycleError(w, accountID, err)
		return
	}

	if s.media != nil {
		s.writeMedia(w, r, accountID, rec.Token)
		return
	}

	resp := tokenResponse{Status: "ok", Account: accountID, Token: rec.Token}
	if !rec.RefreshedAt.IsZero() {
		resp.LastRefreshedAt = rec.RefreshedAt.UTC().Format(time.RFC3339)
	}
	s.writeJSON(w, resp, http.StatusOK)
}

func (s *Server) writeMedia(w http.ResponseWriter, r *http.Request, accountID, token string) {
	userID, err := s.media.ResolveBusinessAccount(r.Context(), token)
	if err != nil {
		s.logger.Error().Err(err).Str("account", accountID).Msg("Failed to resolve business account")
		s.writeError(w, err.Error(), http.StatusBadGateway)
		return
	}

	items, err := s.media.ListRecentMedia(r.Context(), token, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("account", accountID).Msg("Failed to list recent media")
		s.writeError(w, err.Error(), http.StatusBadGateway)
		return
	}

	s.writeJSON(w, mediaResponse{Status: "ok", Account: accountID, Items: items}, http.StatusOK)
}

// refreshHandler handles POST /api/refresh, the scheduled bulk-refresh
// trigger. The response is aggregate-only.
func (s *Server) refreshHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		s.writeError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	report := s.resolver.RefreshAll(r.Context())
	if !report.OK() {
		s.writeJSON(w, refreshResponse{Status: "error", Processed: report.Processed, Failed: report.Failed()}, http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, refreshResponse{Status: "ok", Processed: report.Processed}, http.StatusOK)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status": "ok"}`))
}

func (s *Server) notFoundHandler(w http.ResponseWriter, r *http.Request) {
	s.logger.Warn().
		Str("method", r.Method).
		Str("uri", r.RequestURI).
		Str("remote_addr", r.RemoteAddr).
		Str("user_agent", r.UserAgent()).
		Msg("Unhandled route")
	http.NotFound(w, r)
}

// writeLifecycleError maps lifecycle failures onto HTTP statuses: accounts
// the deployment cannot serve are the caller's problem (400), provider
// trouble is upstream's (502), and everything else is ours (500).
func (s *Server) writeLifecycleError(w http.ResponseWriter, accountID string, err error) {
	s.logger.Error().Err(err).Str("account", accountID).Msg("Failed to resolve token")

	var confErr *lifecycle.ConfigurationError
	var refreshErr *lifecycle.RefreshError
	var noToken *lifecycle.NoValidTokenError
	switch {
	case errors.As(err, &confErr):
		s.writeError(w, err.Error(), http.StatusBadRequest)
	case errors.As(err, &refreshErr), errors.As(err, &noToken):
		s.writeError(w, err.Error(), http.StatusBadGateway)
	default:
		s.writeError(w, err.Error(), http.StatusInternalServerError)
	}
}

// writeJSON writes a JSON response with the given status code.
func (s *Server) writeJSON(w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes a failure response with a human-readable message.
func (s *Server) writeError(w http.ResponseWriter, message string, status int) {
	s.writeJSON(w, errorResponse{Status: "error", Message: message}, status)
}
