// File: internal/gateway/relay.go
package gateway

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	json "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/formpilot/formpilot-cli/api/schemas"
	"github.com/formpilot/formpilot-cli/internal/config"
)

// RelayProvider message-passes generation calls to a formpilot background
// service, which executes the provider call inside its own trust boundary.
// The orchestrator and queue on this side are indifferent to the hop; only
// latency and failure semantics carry across.
type RelayProvider struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// RelayRequest is the wire form of a relayed generation call.
type RelayRequest struct {
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream,omitempty"`
}

// RelayResponse is the non-streaming wire response.
type RelayResponse struct {
	Text  string `json:"text"`
	Error string `json:"error,omitempty"`
}

// NewRelayProvider constructs a relay pointed at the background service.
func NewRelayProvider(cfg config.LLMConfig, logger *zap.Logger) (*RelayProvider, error) {
	if cfg.RelayURL == "" {
		return nil, fmt.Errorf("relay provider requires llm.relay_url")
	}
	return &RelayProvider{
		baseURL: strings.TrimRight(cfg.RelayURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		logger: logger.Named("provider.relay"),
	}, nil
}

func (p *RelayProvider) Name() string { return "relay" }

// Configured is true whenever a relay URL is present; the credential lives
// on the far side of the boundary.
func (p *RelayProvider) Configured() bool { return p.baseURL != "" }

func (p *RelayProvider) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := p.post(ctx, RelayRequest{Prompt: prompt})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read relay response: %w", err)
	}
	if err := relayStatusError(resp, body); err != nil {
		return "", err
	}

	var rr RelayResponse
	if err := json.Unmarshal(body, &rr); err != nil {
		return "", fmt.Errorf("failed to decode relay response: %w", err)
	}
	if rr.Error != "" {
		return "", fmt.Errorf("relay-side generation failed: %s", rr.Error)
	}
	return rr.Text, nil
}

// GenerateStream reads the relayed response body as a plain-text chunk
// stream, invoking onToken per chunk.
func (p *RelayProvider) GenerateStream(ctx context.Context, prompt string, onToken func(string)) (string, error) {
	resp, err := p.post(ctx, RelayRequest{Prompt: prompt, Stream: true})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", relayStatusError(resp, body)
	}

	var full strings.Builder
	buf := make([]byte, 4096)
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			chunk := string(buf[:n])
			full.WriteString(chunk)
			if onToken != nil {
				onToken(chunk)
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("relay stream read failed: %w", err)
		}
	}
	return full.String(), nil
}

func (p *RelayProvider) post(ctx context.Context, rr RelayRequest) (*http.Response, error) {
	body, err := json.Marshal(rr)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal relay request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create relay request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("relay transport failed: %w", err)
	}
	return resp, nil
}

// relayStatusError maps non-200 relay responses into the gateway taxonomy,
// preserving the rate-limit distinction across the process boundary.
func relayStatusError(resp *http.Response, body []byte) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	err := fmt.Errorf("relay returned status %d: %s", resp.StatusCode, string(body))
	if resp.StatusCode == http.StatusTooManyRequests {
		return &schemas.RateLimitError{
			RetryAfter: parseRetryAfter(resp.Header),
			Err:        err,
		}
	}
	return err
}
