// File: internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	LLM      LLMConfig      `mapstructure:"llm" yaml:"llm"`
	Queue    QueueConfig    `mapstructure:"queue" yaml:"queue"`
	Autofill AutofillConfig `mapstructure:"autofill" yaml:"autofill"`
}

// LoggerConfig controls the zap logger construction.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"` // console or json
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"` // megabytes
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"` // days
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// ServerConfig configures the background service HTTP surface.
type ServerConfig struct {
	ListenAddr      string        `mapstructure:"listen_addr" yaml:"listen_addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	// RequestsPerSecond caps inbound generate/autofill requests per client.
	RequestsPerSecond float64 `mapstructure:"requests_per_second" yaml:"requests_per_second"`
	RequestBurst      int     `mapstructure:"request_burst" yaml:"request_burst"`
}

// LLMProvider identifies a configured generation backend.
type LLMProvider string

const (
	// ProviderGemini talks to the Gemini API through the official SDK.
	ProviderGemini LLMProvider = "gemini"
	// ProviderHTTP talks to a Gemini-compatible generateContent endpoint
	// over raw HTTP. Useful for self-hosted gateways.
	ProviderHTTP LLMProvider = "http"
	// ProviderRelay forwards prompts to a formpilot background service,
	// which executes the call inside its own trust boundary.
	ProviderRelay LLMProvider = "relay"
)

// LLMConfig defines the generation backend and its transport parameters.
type LLMConfig struct {
	Provider       LLMProvider   `mapstructure:"provider" yaml:"provider"`
	Model          string        `mapstructure:"model" yaml:"model"`
	APIKey         string        `mapstructure:"api_key" yaml:"api_key"`
	Endpoint       string        `mapstructure:"endpoint" yaml:"endpoint"`
	RelayURL       string        `mapstructure:"relay_url" yaml:"relay_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
	Temperature    float32       `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens      int           `mapstructure:"max_tokens" yaml:"max_tokens"`
}

// QueueConfig tunes the global request queue and its rate-limit behavior.
type QueueConfig struct {
	// BaseDelay is the floor for spacing between gateway dispatches.
	BaseDelay time.Duration `mapstructure:"base_delay" yaml:"base_delay"`
	// MaxDelay is the hard ceiling the spacing can grow to under pressure.
	MaxDelay time.Duration `mapstructure:"max_delay" yaml:"max_delay"`
	// ResetAfter is the quiet window after which the spacing snaps back to
	// BaseDelay.
	ResetAfter time.Duration `mapstructure:"reset_after" yaml:"reset_after"`
	// MaxAttempts bounds per-task retries on rate-limit failures.
	MaxAttempts int `mapstructure:"max_attempts" yaml:"max_attempts"`
	// RetryBaseWait seeds the exponential backoff when the provider gives
	// no retry-after hint.
	RetryBaseWait time.Duration `mapstructure:"retry_base_wait" yaml:"retry_base_wait"`
}

// AutofillConfig tunes the field-processing pipeline.
type AutofillConfig struct {
	// AnswerPacing is the extra fixed delay between per-field generation
	// calls inside the answer generator, on top of the queue's own spacing.
	AnswerPacing time.Duration `mapstructure:"answer_pacing" yaml:"answer_pacing"`
}

// NewDefaultConfig creates a configuration populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "formpilot")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Server --
	v.SetDefault("server.listen_addr", "127.0.0.1:8911")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "5m")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.requests_per_second", 4.0)
	v.SetDefault("server.request_burst", 8)

	// -- LLM --
	v.SetDefault("llm.provider", "gemini")
	v.SetDefault("llm.model", "gemini-2.5-flash")
	v.SetDefault("llm.request_timeout", "90s")
	v.SetDefault("llm.temperature", 0.4)
	v.SetDefault("llm.max_tokens", 2048)

	// -- Queue --
	v.SetDefault("queue.base_delay", "1s")
	v.SetDefault("queue.max_delay", "30s")
	v.SetDefault("queue.reset_after", "2m")
	v.SetDefault("queue.max_attempts", 3)
	v.SetDefault("queue.retry_base_wait", "2s")

	// -- Autofill --
	v.SetDefault("autofill.answer_pacing", "500ms")
}

// NewConfigFromViper creates a validated configuration from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	// Bind environment variables for sensitive data.
	v.BindEnv("llm.api_key", "FORMPILOT_LLM_API_KEY")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.Queue.BaseDelay <= 0 {
		return fmt.Errorf("queue.base_delay must be a positive duration")
	}
	if c.Queue.MaxDelay < c.Queue.BaseDelay {
		return fmt.Errorf("queue.max_delay must be >= queue.base_delay")
	}
	if c.Queue.MaxAttempts <= 0 {
		return fmt.Errorf("queue.max_attempts must be a positive integer")
	}
	if c.LLM.Provider == ProviderRelay && c.LLM.RelayURL == "" {
		return fmt.Errorf("llm.relay_url is required when llm.provider is 'relay'")
	}
	if c.LLM.Provider == ProviderHTTP && c.LLM.Endpoint == "" {
		return fmt.Errorf("llm.endpoint is required when llm.provider is 'http'")
	}
	return nil
}
