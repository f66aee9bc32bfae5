// File: internal/gateway/httpapi.go
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/formpilot/formpilot-cli/api/schemas"
	"github.com/formpilot/formpilot-cli/internal/config"
)

// HTTPProvider talks to a Gemini-compatible generateContent endpoint over
// raw HTTP. Transient transport failures (network errors, 5xx) are retried
// here with exponential backoff; quota errors are NOT retried at this level
// but surfaced as rate-limit errors for the queue's policy to handle.
type HTTPProvider struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	cfg        config.LLMConfig
	logger     *zap.Logger
}

// -- Wire structures for the generateContent API --

type apiContent struct {
	Parts []apiPart `json:"parts"`
	Role  string    `json:"role,omitempty"`
}

type apiPart struct {
	Text string `json:"text"`
}

type apiGenerationConfig struct {
	Temperature     float32 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type apiRequest struct {
	Contents         []apiContent        `json:"contents"`
	GenerationConfig apiGenerationConfig `json:"generationConfig"`
}

type apiResponse struct {
	Candidates []struct {
		Content      apiContent `json:"content"`
		FinishReason string     `json:"finishReason"`
	} `json:"candidates"`
}

// NewHTTPProvider initializes the raw HTTP client.
func NewHTTPProvider(cfg config.LLMConfig, logger *zap.Logger) (*HTTPProvider, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("http provider requires llm.endpoint")
	}
	return &HTTPProvider{
		endpoint: cfg.Endpoint,
		apiKey:   strings.TrimSpace(cfg.APIKey),
		cfg:      cfg,
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		logger: logger.Named("provider.http"),
	}, nil
}

func (p *HTTPProvider) Name() string { return "http" }

func (p *HTTPProvider) Configured() bool { return p.apiKey != "" }

func (p *HTTPProvider) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(apiRequest{
		Contents: []apiContent{{
			Role:  "user",
			Parts: []apiPart{{Text: prompt}},
		}},
		GenerationConfig: apiGenerationConfig{
			Temperature:     p.cfg.Temperature,
			MaxOutputTokens: p.cfg.MaxTokens,
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request payload: %w", err)
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 2 * time.Minute
	b.MaxInterval = 30 * time.Second

	var responseText string

	operation := func() error {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewBuffer(body))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create HTTP request: %w", err))
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("x-goog-api-key", p.apiKey)

		start := time.Now()
		resp, err := p.httpClient.Do(httpReq)
		if err != nil {
			p.logger.Warn("Network error during generation request, retrying...", zap.Error(err))
			return fmt.Errorf("failed to execute HTTP request: %w", err)
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read response body: %w", err)
		}

		if resp.StatusCode != http.StatusOK {
			return p.handleAPIError(resp, respBody)
		}

		var payload apiResponse
		if err := json.Unmarshal(respBody, &payload); err != nil {
			return backoff.Permanent(fmt.Errorf("failed to decode response payload: %w", err))
		}
		if len(payload.Candidates) == 0 {
			return backoff.Permanent(fmt.Errorf("generation API returned no candidates"))
		}
		candidate := payload.Candidates[0]
		if len(candidate.Content.Parts) == 0 {
			return backoff.Permanent(fmt.Errorf("generation API returned empty content (reason: %s)", candidate.FinishReason))
		}

		p.logger.Debug("Generation complete (HTTP)",
			zap.Duration("duration", time.Since(start)),
			zap.Int("response_len", len(candidate.Content.Parts[0].Text)))
		responseText = candidate.Content.Parts[0].Text
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return "", err
	}
	return responseText, nil
}

// GenerateStream on the raw HTTP transport degrades to a single-shot call:
// the plain generateContent endpoint has no token stream, so the full text
// is delivered as one chunk.
func (p *HTTPProvider) GenerateStream(ctx context.Context, prompt string, onToken func(string)) (string, error) {
	text, err := p.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	if onToken != nil {
		onToken(text)
	}
	return text, nil
}

// handleAPIError classifies a non-200 response. 429 surfaces as a permanent
// rate-limit error (the queue retries it, not this transport loop); 5xx is
// transient and retried here; everything else is permanent.
func (p *HTTPProvider) handleAPIError(resp *http.Response, body []byte) error {
	err := fmt.Errorf("generation API error: status %d, body: %s", resp.StatusCode, string(body))
	p.logger.Error("Generation API returned error status",
		zap.Int("status", resp.StatusCode),
		zap.Int("body_len", len(body)))

	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		return backoff.Permanent(&schemas.RateLimitError{
			RetryAfter: parseRetryAfter(resp.Header),
			Err:        err,
		})
	case http.StatusServiceUnavailable, http.StatusInternalServerError, http.StatusBadGateway:
		return err // Transient, retry.
	default:
		return backoff.Permanent(err)
	}
}
