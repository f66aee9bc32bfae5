// internal/gateway/relay_test.go
package gateway

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/formpilot/formpilot-cli/api/schemas"
	"github.com/formpilot/formpilot-cli/internal/config"
)

func newRelayForTest(t *testing.T, baseURL string) *RelayProvider {
	t.Helper()
	p, err := NewRelayProvider(config.LLMConfig{
		Provider:       config.ProviderRelay,
		RelayURL:       baseURL,
		RequestTimeout: 5 * time.Second,
	}, zap.NewNop())
	require.NoError(t, err)
	return p
}

func TestRelayProvider_Generate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/generate", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), `"prompt":"hello"`)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"text":"relayed answer"}`))
	}))
	defer srv.Close()

	p := newRelayForTest(t, srv.URL)
	require.True(t, p.Configured())

	text, err := p.Generate(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "relayed answer", text)
}

func TestRelayProvider_RateLimitSurvivesTheHop(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "9")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":"too many requests"}`))
	}))
	defer srv.Close()

	p := newRelayForTest(t, srv.URL)
	_, err := p.Generate(context.Background(), "hello")

	retryAfter, ok := schemas.AsRateLimit(err)
	require.True(t, ok, "the rate-limit distinction must survive the process boundary")
	assert.Equal(t, 9*time.Second, retryAfter)
}

func TestRelayProvider_RemoteErrorField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"text":"","error":"model unavailable"}`))
	}))
	defer srv.Close()

	p := newRelayForTest(t, srv.URL)
	_, err := p.Generate(context.Background(), "hello")
	assert.ErrorContains(t, err, "model unavailable")
}

func TestRelayProvider_GenerateStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), `"stream":true`)
		flusher := w.(http.Flusher)
		io.WriteString(w, "first ")
		flusher.Flush()
		io.WriteString(w, "second")
	}))
	defer srv.Close()

	p := newRelayForTest(t, srv.URL)
	var got string
	text, err := p.GenerateStream(context.Background(), "hello", func(chunk string) {
		got += chunk
	})
	require.NoError(t, err)
	assert.Equal(t, "first second", text)
	assert.Equal(t, "first second", got)
}

func TestNewRelayProvider_RequiresURL(t *testing.T) {
	_, err := NewRelayProvider(config.LLMConfig{Provider: config.ProviderRelay}, zap.NewNop())
	assert.Error(t, err)
}
