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

// Config holds configuration for AI service providers.
type Config struct {
	// Host is the base URL of the OpenAI-compatible API.
	// Example: "https://api.openai.com/v1", "http://localhost:11434/v1"
	Host string

	// APIKey authenticates against Host. Local servers accept any value.
	APIKey string

	// EmbeddingModel is the model identifier used for chunk embeddings.
	EmbeddingModel string

	// GenerationModel is the chat model used for sermon content generation.
	GenerationModel string

	// FormatModel is the chat model used to punctuate raw transcripts.
	FormatModel string

	// MaxTranscriptChars caps the transcript text sent for content generation.
	// Default: 100000
	MaxTranscriptChars int

	// FormatMinChars is the transcript length below which formatting is skipped.
	// Default: 500
	FormatMinChars int

	// FormatPieceChars is the size of each piece sent to the formatter.
	// Default: 30000
	FormatPieceChars int

	// EmbeddingBatchSize is the number of texts sent per embedding request.
	// Default: 100
	EmbeddingBatchSize int

	// MaxAttempts is the number of attempts per API call, including the first.
	MaxAttempts uint

	// RetryDelay is the base delay between attempts.
	RetryDelay time.Duration
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithHost sets the API base URL.
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

// WithEmbeddingModel sets the embedding model identifier.
func WithEmbeddingModel(model string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingModel = model
	}
}

// WithGenerationModel sets the content generation model identifier.
func WithGenerationModel(model string) ConfigOption {
	return func(c *Config) {
		c.GenerationModel = model
	}
}

// WithFormatModel sets the transcript formatting model identifier.
func WithFormatModel(model string) ConfigOption {
	return func(c *Config) {
		c.FormatModel = model
	}
}

// WithMaxTranscriptChars sets the transcript cap for content generation.
func WithMaxTranscriptChars(n int) ConfigOption {
	return func(c *Config) {
		c.MaxTranscriptChars = n
	}
}

// WithEmbeddingBatchSize sets the number of texts per embedding request.
func WithEmbeddingBatchSize(n int) ConfigOption {
	return func(c *Config) {
		c.EmbeddingBatchSize = n
	}
}

// WithRetry sets the attempt count and base delay for API calls.
func WithRetry(attempts uint, delay time.Duration) ConfigOption {
	return func(c *Config) {
		c.MaxAttempts = attempts
		c.RetryDelay = delay
	}
}

// DefaultConfig returns a Config with defaults for the hosted OpenAI API.
func DefaultConfig() *Config {
	return &Config{
		Host:               "https://api.openai.com/v1",
		EmbeddingModel:     "text-embedding-3-small",
		GenerationModel:    "gpt-4o-mini",
		FormatModel:        "gpt-4o-mini",
		MaxTranscriptChars: 100000,
		FormatMinChars:     500,
		FormatPieceChars:   30000,
		EmbeddingBatchSize: 100,
		MaxAttempts:        3,
		RetryDelay:         time.Second,
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
//
// Example:
//
//	cfg := NewConfig(
//	    WithHost("http://localhost:11434/v1"),
//	    WithEmbeddingModel("nomic-embed-text"),
//	)
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize ensures the configuration is in a canonical form.
// It adds the /v1 suffix to Host if missing, which OpenAI-compatible
// servers (OpenAI, Ollama, vLLM) expect, and fills zero sizes with defaults.
func (c *Config) Normalize() {
	if c.Host != "" && !strings.HasSuffix(c.Host, "/v1") {
		c.Host = strings.TrimSuffix(c.Host, "/") + "/v1"
	}
	if c.FormatModel == "" {
		c.FormatModel = c.GenerationModel
	}
	def := DefaultConfig()
	if c.MaxTranscriptChars <= 0 {
		c.MaxTranscriptChars = def.MaxTranscriptChars
	}
	if c.FormatMinChars <= 0 {
		c.FormatMinChars = def.FormatMinChars
	}
	if c.FormatPieceChars <= 0 {
		c.FormatPieceChars = def.FormatPieceChars
	}
	if c.EmbeddingBatchSize <= 0 {
		c.EmbeddingBatchSize = def.EmbeddingBatchSize
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 1
	}
}

// Validate checks that the configuration is valid and complete.
// It normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	if c.Host == "" {
		return errors.New("ai config: Host is required")
	}
	if c.EmbeddingModel == "" {
		return errors.New("ai config: EmbeddingModel is required")
	}
	if c.GenerationModel == "" {
		return errors.New("ai config: GenerationModel is required")
	}
	if c.RetryDelay < 0 {
		return errors.New("ai config: RetryDelay must not be negative")
	}
	return nil
}
