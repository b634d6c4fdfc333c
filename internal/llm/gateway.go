// ABOUTME: CompletionGateway posts the conversation to the chat-completion endpoint
// ABOUTME: One synchronous POST per call, no retries, explicit error variants
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/log"

	"github.com/harper/converse-standalone/internal/models"
	"github.com/harper/converse-standalone/internal/util"
)

// maxErrorBody bounds how much of a failed response is kept for diagnostics
const maxErrorBody = 512

// GatewayConfig holds what the gateway needs at construction time
type GatewayConfig struct {
	// Endpoint is the absolute URL requests are posted to
	Endpoint string
	// Client is the shared transport. It carries the authentication headers.
	Client Doer
	// Logger receives debug records. Nil discards them.
	Logger *log.Logger
}

// Gateway maps conversation history to completion requests
type Gateway struct {
	endpoint string
	client   Doer
	logger   *log.Logger
}

// NewGateway validates the config and creates a gateway
func NewGateway(cfg GatewayConfig) (*Gateway, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, errors.New("completion endpoint is required")
	}
	u, err := url.Parse(cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("parsing completion endpoint: %w", err)
	}
	if !u.IsAbs() || u.Host == "" {
		return nil, fmt.Errorf("completion endpoint must be an absolute URL, got %q", cfg.Endpoint)
	}
	if cfg.Client == nil {
		return nil, errors.New("http client is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	return &Gateway{
		endpoint: u.String(),
		client:   cfg.Client,
		logger:   logger,
	}, nil
}

// Complete sends history to the service and returns the first choice's text and usage.
// It makes exactly one network call. Errors are *HTTPStatusError, *TransportError,
// or wrap ErrMalformedResponse.
func (g *Gateway) Complete(ctx context.Context, history []models.Turn, maxTokens int, temperature float64) (Completion, error) {
	payload := NewRequestPayload(history, maxTokens, temperature)
	body, err := json.Marshal(payload)
	if err != nil {
		return Completion{}, &TransportError{Err: fmt.Errorf("encoding request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return Completion{}, &TransportError{Err: fmt.Errorf("building request: %w", err)}
	}
	req.Header.Set("Content-Type", jsonMediaType)

	g.logger.Debug("sending completion request", "messages", len(payload.Messages), "max_tokens", maxTokens, "temperature", temperature)

	resp, err := g.client.Do(req)
	if err != nil {
		return Completion{}, &TransportError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody+utf8.UTFMax))
		g.logger.Debug("completion request failed", "status", resp.StatusCode)
		return Completion{}, &HTTPStatusError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(util.TruncateBytes(string(snippet), maxErrorBody)),
		}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Completion{}, &TransportError{Err: fmt.Errorf("reading response: %w", err)}
	}

	completion, err := parseCompletion(data)
	if err != nil {
		g.logger.Debug("completion response rejected", "error", err)
		return Completion{}, err
	}

	g.logger.Debug("completion received",
		"prompt_tokens", completion.Usage.PromptTokens,
		"completion_tokens", completion.Usage.CompletionTokens,
		"total_tokens", completion.TotalTokens)

	return completion, nil
}
