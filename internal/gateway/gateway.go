// File: internal/gateway/gateway.go
// Description: The thin transport that turns a prompt into generated text.
// The gateway owns provider selection and raw transport retries; scheduling
// policy (spacing, rate-limit backoff) belongs to the request queue every
// call passes through.

package gateway

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/formpilot/formpilot-cli/api/schemas"
	"github.com/formpilot/formpilot-cli/internal/config"
	"github.com/formpilot/formpilot-cli/internal/requestqueue"
)

// Provider is one concrete generation backend. Implementations surface
// quota exhaustion as *schemas.RateLimitError so the queue's retry policy
// can branch on it; all other failures propagate as-is.
type Provider interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
	GenerateStream(ctx context.Context, prompt string, onToken func(string)) (string, error)
	Configured() bool
}

// Gateway routes every generation call through the shared request queue and
// wraps it in the per-task rate-limit retry policy. It implements
// schemas.Gateway.
type Gateway struct {
	provider Provider
	queue    *requestqueue.Queue
	timeout  time.Duration
	logger   *zap.Logger
}

var _ schemas.Gateway = (*Gateway)(nil)

// New wires a provider to the shared queue.
func New(provider Provider, queue *requestqueue.Queue, timeout time.Duration, logger *zap.Logger) *Gateway {
	return &Gateway{
		provider: provider,
		queue:    queue,
		timeout:  timeout,
		logger:   logger.Named("gateway"),
	}
}

// NewFromConfig selects and constructs the configured provider.
func NewFromConfig(cfg config.LLMConfig, queue *requestqueue.Queue, logger *zap.Logger) (*Gateway, error) {
	var (
		provider Provider
		err      error
	)
	switch cfg.Provider {
	case config.ProviderGemini:
		provider, err = NewGeminiProvider(cfg, logger)
	case config.ProviderHTTP:
		provider, err = NewHTTPProvider(cfg, logger)
	case config.ProviderRelay:
		provider, err = NewRelayProvider(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to construct %q provider: %w", cfg.Provider, err)
	}
	return New(provider, queue, cfg.RequestTimeout, logger), nil
}

// IsConfigured reports whether a credential is present and a client object
// was successfully constructed from it.
func (g *Gateway) IsConfigured() bool {
	return g.provider != nil && g.provider.Configured()
}

// Generate produces a completion for the prompt, serialized behind the
// shared queue. Misconfiguration fails fast before any queue interaction.
func (g *Gateway) Generate(ctx context.Context, prompt string) (string, error) {
	if !g.IsConfigured() {
		return "", schemas.ErrNotConfigured
	}
	task := requestqueue.WithRateLimitRetry(g.queue, func(ctx context.Context) (string, error) {
		callCtx, cancel := g.callContext(ctx)
		defer cancel()
		return g.provider.Generate(callCtx, prompt)
	})
	return g.queue.Enqueue(ctx, task)
}

// GenerateStream is the streaming variant; onToken observes chunks as they
// arrive and the full text is returned on completion.
func (g *Gateway) GenerateStream(ctx context.Context, prompt string, onToken func(string)) (string, error) {
	if !g.IsConfigured() {
		return "", schemas.ErrNotConfigured
	}
	task := requestqueue.WithRateLimitRetry(g.queue, func(ctx context.Context) (string, error) {
		callCtx, cancel := g.callContext(ctx)
		defer cancel()
		return g.provider.GenerateStream(callCtx, prompt, onToken)
	})
	return g.queue.Enqueue(ctx, task)
}

// callContext bounds one provider call. A stalled provider call otherwise
// stalls the whole queue, since dispatch is serialized.
func (g *Gateway) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, g.timeout)
}
