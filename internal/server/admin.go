package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dvcrn/igtoken/internal/credentials"
)

// adminMiddleware checks for a valid admin token from either
// 'Authorization: Bearer <token>' or 'X-API-Key: <token>' headers.
func (s *Server) adminMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.adminToken == "" {
			s.logger.Error().Msg("Admin token not configured")
			http.Error(w, "Admin API not configured", http.StatusInternalServerError)
			return
		}

		var providedToken string
		authHeader := r.Header.Get("Authorization")
		xAPIKeyHeader := r.Header.Get("X-API-Key")

		if authHeader != "" {
			// Expect "Bearer <token>" format, case-insensitive
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				s.logger.Warn().
					Str("method", r.Method).
					Str("uri", r.RequestURI).
					Str("remote_addr", r.RemoteAddr).
					Msg("Invalid Authorization header format for admin endpoint")
				http.Error(w, "Invalid Authorization header format", http.StatusUnauthorized)
				return
			}
			providedToken = parts[1]
		} else if xAPIKeyHeader != "" {
			// Use the key from X-API-Key header directly
			providedToken = xAPIKeyHeader
		} else {
			s.logger.Warn().
				Str("method", r.Method).
				Str("uri", r.RequestURI).
				Str("remote_addr", r.RemoteAddr).
				Msg("Missing required Authorization or X-API-Key header for admin endpoint")
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		if providedToken != s.adminToken {
			s.logger.Warn().
				Str("method", r.Method).
				Str("uri", r.RequestURI).
				Str("remote_addr", r.RemoteAddr).
				Msg("Invalid admin token provided")
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		s.logger.Info().
			Str("method", r.Method).
			Str("uri", r.RequestURI).
			Str("remote_addr", r.RemoteAddr).
			Msg("Admin request authorized")

		next(w, r)
	}
}

// accountsHandler handles GET /admin/accounts. It reports per-account
// metadata only. Token values never leave the store through this endpoint.
func (s *Server) accountsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		s.writeError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	resp := accountsResponse{Status: "ok"}

	stored := make(map[string]bool)
	storedIDs, err := s.records.Accounts(r.Context())
	switch {
	case errors.Is(err, credentials.ErrListUnsupported):
		// Keyring-style backends cannot enumerate keys. Report what the
		// configuration knows and flag the gap.
		resp.StoreListing = "unsupported"
	case err != nil:
		s.logger.Error().Err(err).Msg("Failed to list stored accounts")
		s.writeError(w, "failed to list stored accounts", http.StatusInternalServerError)
		return
	default:
		for _, id := range storedIDs {
			stored[id] = true
		}
	}

	configured := make(map[string]bool)
	for _, id := range s.registry.AccountIDs() {
		configured[id] = true
		fallback, _ := s.registry.Fallback(id)
		status := accountStatus{
			Account:        id,
			Configured:     true,
			HasFallback:    fallback != "",
			HasStoredToken: stored[id],
		}
		if stored[id] {
			status.LastRefreshedAt = s.lastRefreshedAt(r, id)
		}
		resp.Accounts = append(resp.Accounts, status)
	}

	// Stored tokens without a matching account entry are leftovers from a
	// previous configuration. Surface them so an operator can clean up.
	for _, id := range storedIDs {
		if configured[id] {
			continue
		}
		resp.Accounts = append(resp.Accounts, accountStatus{
			Account:         id,
			HasStoredToken:  true,
			LastRefreshedAt: s.lastRefreshedAt(r, id),
		})
	}

	s.writeJSON(w, resp, http.StatusOK)
}

func (s *Server) lastRefreshedAt(r *http.Request, accountID string) string {
	rec, err := s.records.Load(r.Context(), accountID)
	if err != nil || rec.RefreshedAt.IsZero() {
		return ""
	}
	return rec.RefreshedAt.UTC().Format(time.RFC3339)
}
