// ABOUTME: Centralized configuration for the converse CLI
// ABOUTME: Layers flags, environment, an optional config file, and defaults through viper
package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/viper"
)

// Keys used in viper, config files, and flag bindings
const (
	KeyAPIKey        = "api_key"
	KeyEndpoint      = "endpoint"
	KeyMaxTokens     = "max_tokens"
	KeyTemperature   = "temperature"
	KeySystemMessage = "system_message"
	KeyTimeout       = "timeout"
	KeyHistoryWidth  = "history_width"
)

// Defaults
const (
	DefaultMaxTokens     = 100
	DefaultTemperature   = 0.3
	DefaultSystemMessage = "You are a general assistant"
	DefaultHistoryWidth  = 80
)

var (
	// ErrMissingCredential means no API key was supplied
	ErrMissingCredential = errors.New("OPENAI_KEY is not set")
	// ErrMissingEndpoint means no endpoint was supplied
	ErrMissingEndpoint = errors.New("OPENAI_URI is not set")
)

// envNames maps each key to the environment variable it is read from
var envNames = map[string]string{
	KeyAPIKey:        "OPENAI_KEY",
	KeyEndpoint:      "OPENAI_URI",
	KeyMaxTokens:     "CONVERSE_MAX_TOKENS",
	KeyTemperature:   "CONVERSE_TEMPERATURE",
	KeySystemMessage: "CONVERSE_SYSTEM_MESSAGE",
	KeyTimeout:       "CONVERSE_TIMEOUT",
	KeyHistoryWidth:  "CONVERSE_HISTORY_WIDTH",
}

// Config holds all configuration for a chat session
type Config struct {
	// Service settings
	APIKey   string
	Endpoint string
	Timeout  time.Duration

	// Request settings
	MaxTokens     int
	Temperature   float64
	SystemMessage string

	// Display settings
	HistoryWidth int
}

// NewViper returns a viper instance with defaults and environment bindings registered
func NewViper() *viper.Viper {
	v := viper.New()

	v.SetDefault(KeyMaxTokens, DefaultMaxTokens)
	v.SetDefault(KeyTemperature, DefaultTemperature)
	v.SetDefault(KeySystemMessage, DefaultSystemMessage)
	v.SetDefault(KeyTimeout, time.Duration(0))
	v.SetDefault(KeyHistoryWidth, DefaultHistoryWidth)

	for key, env := range envNames {
		// BindEnv only fails when called without a key
		_ = v.BindEnv(key, env)
	}

	return v
}

// Load reads configuration from v. When configFile is non-empty it is read
// first; flags and environment variables still take precedence over it.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", configFile, err)
		}
	}

	cfg := &Config{
		APIKey:        v.GetString(KeyAPIKey),
		Endpoint:      v.GetString(KeyEndpoint),
		Timeout:       v.GetDuration(KeyTimeout),
		MaxTokens:     v.GetInt(KeyMaxTokens),
		Temperature:   v.GetFloat64(KeyTemperature),
		SystemMessage: v.GetString(KeySystemMessage),
		HistoryWidth:  v.GetInt(KeyHistoryWidth),
	}

	return cfg, cfg.Validate()
}

// Validate checks that required settings are present and values are in range
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return ErrMissingCredential
	}
	if c.Endpoint == "" {
		return ErrMissingEndpoint
	}
	u, err := url.Parse(c.Endpoint)
	if err != nil {
		return fmt.Errorf("OPENAI_URI is not a valid URL: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("OPENAI_URI must be an absolute http(s) URL, got %q", c.Endpoint)
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("max_tokens must be positive, got %d", c.MaxTokens)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature must be 0-2, got %f", c.Temperature)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %v", c.Timeout)
	}
	if c.HistoryWidth <= 0 {
		return fmt.Errorf("history_width must be positive, got %d", c.HistoryWidth)
	}
	return nil
}

// EnvName returns the environment variable bound to key
func EnvName(key string) string {
	return envNames[key]
}
