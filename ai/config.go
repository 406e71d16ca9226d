// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package ai

import (
	"errors"
	"strings"
	"time"
)

// Supported completion backends.
const (
	BackendOpenAI = "openai"
	BackendGemini = "gemini"
)

// DefaultOpenAIHost is used when the openai backend is selected without a host.
const DefaultOpenAIHost = "https://api.openai.com/v1"

// Config holds configuration for completion service providers.
type Config struct {
	// Backend selects the completion API: "openai" for any OpenAI-compatible
	// server, "gemini" for the Gemini API.
	Backend string `yaml:"backend"`

	// Host is the base URL of the completion API.
	// Example: "https://api.openai.com/v1", "http://localhost:11434/v1"
	// Empty means the backend default.
	Host string `yaml:"host"`

	// APIKey authenticates against the completion API. Local OpenAI-compatible
	// servers accept an empty key.
	APIKey string `yaml:"api_key"`

	// QueryModel is the model used for query and target profile generation.
	// Example: "gpt-3.5-turbo", "qwen2.5:3b"
	QueryModel string `yaml:"query_model"`

	// RankModel is the model used for relevance ranking.
	// Example: "gpt-4o-mini", "gemini-2.0-flash"
	RankModel string `yaml:"rank_model"`

	// QueryTemperature is the sampling temperature for generation prompts.
	// Default: 0.7
	QueryTemperature float64 `yaml:"query_temperature"`

	// RankTemperature is the sampling temperature for ranking prompts.
	// Default: 0.2
	RankTemperature float64 `yaml:"rank_temperature"`

	// MaxAttempts bounds the attempts per completion call on transient failures.
	// Default: 3
	MaxAttempts int `yaml:"max_attempts"`

	// RetryDelay is the base backoff delay between attempts. It doubles on every retry.
	// Default: 500ms
	RetryDelay time.Duration `yaml:"retry_delay"`
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithBackend sets the completion backend.
func WithBackend(backend string) ConfigOption {
	return func(c *Config) {
		c.Backend = backend
	}
}

// WithHost sets the completion service host URL.
func WithHost(host string) ConfigOption {
	return func(c *Config) {
		c.Host = host
	}
}

// WithAPIKey sets the API key.
func WithAPIKey(key string) ConfigOption {
	return func(c *Config) {
		c.APIKey = key
	}
}

// WithQueryModel sets the model used for generation prompts.
func WithQueryModel(model string) ConfigOption {
	return func(c *Config) {
		c.QueryModel = model
	}
}

// WithRankModel sets the model used for ranking prompts.
func WithRankModel(model string) ConfigOption {
	return func(c *Config) {
		c.RankModel = model
	}
}

// WithModel sets both the query and rank models to the same identifier.
func WithModel(model string) ConfigOption {
	return func(c *Config) {
		c.QueryModel = model
		c.RankModel = model
	}
}

// WithTemperatures sets the generation and ranking temperatures.
func WithTemperatures(query, rank float64) ConfigOption {
	return func(c *Config) {
		c.QueryTemperature = query
		c.RankTemperature = rank
	}
}

// WithRetry sets the attempt budget and base backoff delay per completion call.
func WithRetry(maxAttempts int, delay time.Duration) ConfigOption {
	return func(c *Config) {
		c.MaxAttempts = maxAttempts
		c.RetryDelay = delay
	}
}

// DefaultConfig returns a Config targeting the hosted OpenAI API.
func DefaultConfig() *Config {
	return &Config{
		Backend:          BackendOpenAI,
		QueryModel:       "gpt-3.5-turbo",
		RankModel:        "gpt-4o-mini",
		QueryTemperature: 0.7,
		RankTemperature:  0.2,
		MaxAttempts:      3,
		RetryDelay:       500 * time.Millisecond,
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
//
// Example:
//   cfg := NewConfig(
//       WithHost("http://localhost:11434/v1"),
//       WithModel("qwen2.5:3b"),
//   )
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize ensures the configuration is in a canonical form.
// OpenAI-compatible hosts get the /v1 suffix added if missing.
func (c *Config) Normalize() {
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	if c.Backend == "" {
		c.Backend = BackendOpenAI
	}
	if c.Backend == BackendOpenAI && c.Host == "" {
		c.Host = DefaultOpenAIHost
	}
	if c.Backend == BackendOpenAI && !strings.HasSuffix(c.Host, "/v1") {
		c.Host = strings.TrimSuffix(c.Host, "/")
		c.Host = c.Host + "/v1"
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 1
	}
}

// Validate checks that the configuration is valid and complete.
// It automatically normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	switch c.Backend {
	case BackendOpenAI:
	case BackendGemini:
		if c.APIKey == "" {
			return errors.New("ai config: APIKey is required for the gemini backend")
		}
	default:
		return errors.New("ai config: Backend must be openai or gemini")
	}
	if c.QueryModel == "" {
		return errors.New("ai config: QueryModel is required")
	}
	if c.RankModel == "" {
		return errors.New("ai config: RankModel is required")
	}
	if c.QueryTemperature < 0 || c.QueryTemperature > 2 || c.RankTemperature < 0 || c.RankTemperature > 2 {
		return errors.New("ai config: temperatures must be between 0 and 2")
	}
	if c.MaxAttempts < 1 {
		return errors.New("ai config: MaxAttempts must be at least 1")
	}
	if c.RetryDelay < 0 {
		return errors.New("ai config: RetryDelay cannot be negative")
	}
	return nil
}
