// ABOUTME: Shared HTTP client for the completion endpoint
// ABOUTME: Authentication and Accept headers are fixed when the client is built
package llm

import (
	"net/http"
	"time"
)

// Doer sends a single HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

const (
	// APIKeyHeader carries the service credential
	APIKeyHeader  = "api-key"
	jsonMediaType = "application/json"
)

// headerTransport stamps a fixed header set onto every outgoing request
type headerTransport struct {
	base   http.RoundTripper
	header http.Header
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// RoundTrippers must not modify the caller's request
	out := req.Clone(req.Context())
	for key, values := range t.header {
		out.Header[key] = append([]string(nil), values...)
	}
	return t.base.RoundTrip(out)
}

// NewHTTPClient builds the process-wide client used by the gateway.
// A zero timeout leaves the transport default in place. Redirects are not
// followed; a 3xx reply comes back to the caller as is.
func NewHTTPClient(apiKey string, timeout time.Duration) *http.Client {
	header := make(http.Header)
	header.Set(APIKeyHeader, apiKey)
	header.Set("Accept", jsonMediaType)

	return &http.Client{
		Transport: &headerTransport{
			base:   http.DefaultTransport,
			header: header,
		},
		Timeout:       timeout,
		CheckRedirect: noRedirect,
	}
}

func noRedirect(*http.Request, []*http.Request) error {
	return http.ErrUseLastResponse
}
