//go:build js && wasm

package instagram

import (
	"net/http"
)

// NewHTTPClient creates an HTTP client for the Workers runtime. The wasm
// transport rides on the platform's fetch, which also enforces the
// subrequest deadline, so no client-side timeout is set.
func NewHTTPClient() HTTPClient {
	return http.DefaultClient
}
