package instagram

import (
	"errors"
	"fmt"
	"net/http"
)

// TokenResponse is the payload returned by the token exchange endpoint.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Media is one entry of an account's recent media feed.
type Media struct {
	ID           string `json:"id"`
	Caption      string `json:"caption,omitempty"`
	MediaType    string `json:"media_type"`
	MediaURL     string `json:"media_url,omitempty"`
	Permalink    string `json:"permalink,omitempty"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	Timestamp    string `json:"timestamp,omitempty"`
}

type identityResponse struct {
	ID string `json:"id"`
}

type mediaListResponse struct {
	Data []Media `json:"data"`
}

type accountsResponse struct {
	Data []struct {
		ID                       string `json:"id"`
		InstagramBusinessAccount *struct {
			ID string `json:"id"`
		} `json:"instagram_business_account,omitempty"`
	} `json:"data"`
}

type graphErrorEnvelope struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
		Subcode int    `json:"error_subcode,omitempty"`
		TraceID string `json:"fbtrace_id,omitempty"`
	} `json:"error"`
}

// APIError describes a non-2xx response from the Graph API.
type APIError struct {
	StatusCode int
	Type       string
	Code       int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("graph API returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("graph API returned status %d: %s (type=%s, code=%d)", e.StatusCode, e.Message, e.Type, e.Code)
}

// IsTokenRejected reports whether err is the provider explicitly rejecting
// the presented token. Transport failures and server-side errors are not
// rejections; they say nothing about the token itself.
func IsTokenRejected(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode >= http.StatusBadRequest && apiErr.StatusCode <= http.StatusForbidden
}
