package instagram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
)

const (
	// DefaultBaseURL is the Graph API version this client is built against.
	DefaultBaseURL = "https://graph.facebook.com/v21.0"
)

// HTTPClient is an interface for making HTTP requests
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the Graph API for token validation, token exchange and
// media lookups. It is safe for concurrent use.
type Client struct {
	httpClient   HTTPClient
	baseURL      string
	clientID     string
	clientSecret string
	logger       zerolog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used for Graph API requests.
func WithHTTPClient(httpClient HTTPClient) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// WithBaseURL overrides the Graph API base URL, mainly for tests.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = strings.TrimSuffix(baseURL, "/") }
}

// NewClient creates a Graph API client authenticated as the given app.
func NewClient(logger zerolog.Logger, clientID, clientSecret string, opts ...Option) *Client {
	c := &Client{
		httpClient:   NewHTTPClient(),
		baseURL:      DefaultBaseURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		logger:       logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ValidateToken performs the cheapest authenticated call the API offers. A
// nil return means the provider accepted the token. A rejection comes back
// as an *APIError that IsTokenRejected recognizes.
func (c *Client) ValidateToken(ctx context.Context, token string) error {
	req, err := c.newRequest(ctx, "/me", url.Values{"fields": {"id"}}, token)
	if err != nil {
		return err
	}

	var identity identityResponse
	if err := c.do(req, &identity); err != nil {
		return err
	}

	c.logger.Debug().
		Str("user_id", identity.ID).
		Msg("Token accepted by identity check")
	return nil
}

// ExchangeToken trades a working token for a fresh long-lived one using the
// app credentials.
func (c *Client) ExchangeToken(ctx context.Context, token string) (*TokenResponse, error) {
	params := url.Values{
		"grant_type":        {"fb_exchange_token"},
		"client_id":         {c.clientID},
		"client_secret":     {c.clientSecret},
		"fb_exchange_token": {token},
	}
	req, err := c.newRequest(ctx, "/oauth/access_token", params, "")
	if err != nil {
		return nil, err
	}

	var tokenResp TokenResponse
	if err := c.do(req, &tokenResp); err != nil {
		return nil, err
	}
	if tokenResp.AccessToken == "" {
		return nil, fmt.Errorf("token exchange response contained no access token")
	}

	c.logger.Info().
		Int64("expires_in", tokenResp.ExpiresIn).
		Msg("🔄 Exchanged token for a fresh long-lived one")
	return &tokenResp, nil
}

func (c *Client) newRequest(ctx context.Context, path string, params url.Values, token string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("accept", "application/json")
	if token != "" {
		req.Header.Set("authorization", "Bearer "+token)
	}
	return req, nil
}

// do executes the request and decodes the JSON body into out. Non-2xx
// responses are returned as *APIError.
func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return newAPIError(resp.StatusCode, body)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response body: %w", err)
	}
	return nil
}

func newAPIError(statusCode int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: statusCode}
	var envelope graphErrorEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil {
		apiErr.Type = envelope.Error.Type
		apiErr.Code = envelope.Error.Code
		apiErr.Message = envelope.Error.Message
	}
	return apiErr
}
