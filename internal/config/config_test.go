// internal/config/config_test.go
package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, "127.0.0.1:8911", cfg.Server.ListenAddr)
	assert.Equal(t, ProviderGemini, cfg.LLM.Provider)
	assert.Equal(t, 90*time.Second, cfg.LLM.RequestTimeout)
	assert.Equal(t, 1*time.Second, cfg.Queue.BaseDelay)
	assert.Equal(t, 30*time.Second, cfg.Queue.MaxDelay)
	assert.Equal(t, 2*time.Minute, cfg.Queue.ResetAfter)
	assert.Equal(t, 3, cfg.Queue.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.Autofill.AnswerPacing)

	assert.NoError(t, cfg.Validate())
}

func TestNewConfigFromViper_Overrides(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("queue.base_delay", "250ms")
	v.Set("llm.model", "gemini-2.5-pro")

	cfg, err := NewConfigFromViper(v)
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, cfg.Queue.BaseDelay)
	assert.Equal(t, "gemini-2.5-pro", cfg.LLM.Model)
}

func TestNewConfigFromViper_APIKeyFromEnv(t *testing.T) {
	t.Setenv("FORMPILOT_LLM_API_KEY", "env-secret")

	v := viper.New()
	SetDefaults(v)
	cfg, err := NewConfigFromViper(v)
	require.NoError(t, err)
	assert.Equal(t, "env-secret", cfg.LLM.APIKey)
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "non-positive base delay",
			mutate:  func(c *Config) { c.Queue.BaseDelay = 0 },
			wantErr: "queue.base_delay",
		},
		{
			name:    "max delay below base delay",
			mutate:  func(c *Config) { c.Queue.MaxDelay = 500 * time.Millisecond },
			wantErr: "queue.max_delay",
		},
		{
			name:    "non-positive attempts",
			mutate:  func(c *Config) { c.Queue.MaxAttempts = 0 },
			wantErr: "queue.max_attempts",
		},
		{
			name:    "relay without url",
			mutate:  func(c *Config) { c.LLM.Provider = ProviderRelay },
			wantErr: "llm.relay_url",
		},
		{
			name:    "http without endpoint",
			mutate:  func(c *Config) { c.LLM.Provider = ProviderHTTP },
			wantErr: "llm.endpoint",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}
