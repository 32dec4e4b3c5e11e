package server

import "github.com/dvcrn/igtoken/internal/instagram"

// tokenResponse is the success payload of the on-demand token endpoint.
type tokenResponse struct {
	Status          string `json:"status"`
	Account         string `json:"account"`
	Token           string `json:"token"`
	LastRefreshedAt string `json:"last_refreshed_at,omitempty"`
}

// mediaResponse replaces tokenResponse when media fetching is enabled.
type mediaResponse struct {
	Status  string            `json:"status"`
	Account string            `json:"account"`
	Items   []instagram.Media `json:"items"`
}

// refreshResponse is the aggregate result of a bulk refresh run. It never
// carries per-account detail.
type refreshResponse struct {
	Status    string `json:"status"`
	Processed int    `json:"processed"`
	Failed    int    `json:"failed,omitempty"`
}

// errorResponse carries a failure status and a human-readable message.
type errorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// accountStatus describes one account on the admin listing. It carries
// metadata only, never the token itself.
type accountStatus struct {
	Account         string `json:"account"`
	Configured      bool   `json:"configured"`
	HasFallback     bool   `json:"has_fallback"`
	HasStoredToken  bool   `json:"has_stored_token"`
	LastRefreshedAt string `json:"last_refreshed_at,omitempty"`
}

type accountsResponse struct {
	Status       string          `json:"status"`
	Accounts     []accountStatus `json:"accounts"`
	StoreListing string          `json:"store_listing,omitempty"`
}
