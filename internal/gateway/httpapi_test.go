// internal/gateway/httpapi_test.go
package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/formpilot/formpilot-cli/api/schemas"
	"github.com/formpilot/formpilot-cli/internal/config"
)

const candidateBody = `{"candidates":[{"content":{"parts":[{"text":"generated text"}],"role":"model"},"finishReason":"STOP"}]}`

func newHTTPProviderForTest(t *testing.T, endpoint string) *HTTPProvider {
	t.Helper()
	p, err := NewHTTPProvider(config.LLMConfig{
		Provider:       config.ProviderHTTP,
		Endpoint:       endpoint,
		APIKey:         "test-key",
		RequestTimeout: 5 * time.Second,
		Temperature:    0.4,
		MaxTokens:      256,
	}, zap.NewNop())
	require.NoError(t, err)
	return p
}

func TestHTTPProvider_Generate(t *testing.T) {
	var gotKey atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey.Store(r.Header.Get("x-goog-api-key"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(candidateBody))
	}))
	defer srv.Close()

	p := newHTTPProviderForTest(t, srv.URL)
	require.True(t, p.Configured())

	text, err := p.Generate(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "generated text", text)
	assert.Equal(t, "test-key", gotKey.Load())
}

func TestHTTPProvider_RateLimitNotRetriedByTransport(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := newHTTPProviderForTest(t, srv.URL)
	_, err := p.Generate(context.Background(), "hello")

	retryAfter, ok := schemas.AsRateLimit(err)
	require.True(t, ok, "429 must surface as a rate-limit error")
	assert.Equal(t, 7*time.Second, retryAfter)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls), "quota errors belong to the queue's policy, not the transport loop")
}

func TestHTTPProvider_TransientErrorIsRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(candidateBody))
	}))
	defer srv.Close()

	p := newHTTPProviderForTest(t, srv.URL)
	text, err := p.Generate(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "generated text", text)
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestHTTPProvider_ClientErrorIsPermanent(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	p := newHTTPProviderForTest(t, srv.URL)
	_, err := p.Generate(context.Background(), "hello")
	require.Error(t, err)
	_, isRateLimit := schemas.AsRateLimit(err)
	assert.False(t, isRateLimit)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestHTTPProvider_EmptyCandidatesIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	p := newHTTPProviderForTest(t, srv.URL)
	_, err := p.Generate(context.Background(), "hello")
	assert.ErrorContains(t, err, "no candidates")
}

func TestHTTPProvider_StreamDegradesToSingleShot(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(candidateBody))
	}))
	defer srv.Close()

	p := newHTTPProviderForTest(t, srv.URL)
	var chunks []string
	text, err := p.GenerateStream(context.Background(), "hello", func(chunk string) {
		chunks = append(chunks, chunk)
	})
	require.NoError(t, err)
	assert.Equal(t, "generated text", text)
	assert.Equal(t, []string{"generated text"}, chunks)
}

func TestNewHTTPProvider_RequiresEndpoint(t *testing.T) {
	_, err := NewHTTPProvider(config.LLMConfig{Provider: config.ProviderHTTP}, zap.NewNop())
	assert.Error(t, err)
}
