// File: internal/gateway/gemini.go
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/formpilot/formpilot-cli/api/schemas"
	"github.com/formpilot/formpilot-cli/internal/config"
)

// GeminiProvider generates text through the official Gemini SDK.
type GeminiProvider struct {
	client *genai.Client
	model  *genai.GenerativeModel
	logger *zap.Logger
}

// NewGeminiProvider constructs the SDK client. A missing API key is not an
// error here; it yields an unconfigured provider so callers can fail fast
// through IsConfigured instead of at dial time.
func NewGeminiProvider(cfg config.LLMConfig, logger *zap.Logger) (*GeminiProvider, error) {
	p := &GeminiProvider{logger: logger.Named("provider.gemini")}

	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return p, nil
	}

	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	model := client.GenerativeModel(strings.TrimSpace(cfg.Model))
	model.SetTemperature(cfg.Temperature)
	if cfg.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(cfg.MaxTokens))
	}

	p.client = client
	p.model = model
	return p, nil
}

func (p *GeminiProvider) Name() string { return "gemini" }

func (p *GeminiProvider) Configured() bool { return p.client != nil }

// Close releases the underlying SDK connection.
func (p *GeminiProvider) Close() error {
	if p.client == nil {
		return nil
	}
	return p.client.Close()
}

func (p *GeminiProvider) Generate(ctx context.Context, prompt string) (string, error) {
	if p.model == nil {
		return "", schemas.ErrNotConfigured
	}

	start := time.Now()
	resp, err := p.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", mapGeminiError(err)
	}

	text := firstCandidateText(resp)
	if text == "" {
		return "", fmt.Errorf("gemini returned no text candidates")
	}

	p.logger.Debug("Generation complete",
		zap.Duration("duration", time.Since(start)),
		zap.Int("prompt_len", len(prompt)),
		zap.Int("response_len", len(text)))
	return text, nil
}

func (p *GeminiProvider) GenerateStream(ctx context.Context, prompt string, onToken func(string)) (string, error) {
	if p.model == nil {
		return "", schemas.ErrNotConfigured
	}

	iter := p.model.GenerateContentStream(ctx, genai.Text(prompt))
	var full strings.Builder
	for {
		resp, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return "", mapGeminiError(err)
		}
		chunk := firstCandidateText(resp)
		if chunk == "" {
			continue
		}
		full.WriteString(chunk)
		if onToken != nil {
			onToken(chunk)
		}
	}
	if full.Len() == 0 {
		return "", fmt.Errorf("gemini stream produced no text")
	}
	return full.String(), nil
}

// firstCandidateText extracts the first text part from a response.
func firstCandidateText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		for _, part := range c.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				return string(t)
			}
		}
	}
	return ""
}

// mapGeminiError converts SDK transport errors into the gateway's error
// taxonomy, surfacing 429s as rate-limit errors with any Retry-After hint.
func mapGeminiError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests {
		return &schemas.RateLimitError{
			RetryAfter: parseRetryAfter(apiErr.Header),
			Err:        err,
		}
	}
	return err
}

// parseRetryAfter reads a Retry-After header expressed in seconds.
func parseRetryAfter(h http.Header) time.Duration {
	if h == nil {
		return 0
	}
	raw := h.Get("Retry-After")
	if raw == "" {
		return 0
	}
	secs, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
