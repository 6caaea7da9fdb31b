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
	"fmt"
	"net/url"
	"slices"
	"strings"
)

// Provider names accepted in Config.
const (
	ProviderOpenAI  = "openai"
	ProviderOllama  = "ollama"
	ProviderHashing = "hashing"
)

// DefaultHashingDimension is used by the hashing embedder when
// EmbeddingDimension is unset.
const DefaultHashingDimension = 384

// Config holds configuration for AI service providers.
type Config struct {
	// EmbeddingProvider selects the embedder implementation: "openai" for any
	// OpenAI-compatible endpoint, "hashing" for the local offline embedder.
	EmbeddingProvider string

	// EmbeddingHost is the base URL for the embedding service API.
	// Example: "http://localhost:11434/v1" for local OpenAI-compatible server
	EmbeddingHost string

	// EmbeddingModel is the model identifier to use for text embeddings.
	// Example: "all-minilm", "text-embedding-3-small"
	EmbeddingModel string

	// EmbeddingDimension is the expected vector dimension. Zero means
	// "whatever the model returns" for remote providers and
	// DefaultHashingDimension for the hashing provider.
	EmbeddingDimension int

	// GeneratorProvider selects the text generator: "openai" or "ollama".
	GeneratorProvider string

	// GeneratorHost is the base URL for the generation service.
	// The /v1 suffix is only added for the openai provider.
	GeneratorHost string

	// GeneratorModel is the model identifier used for answers.
	// Example: "llama2", "gpt-4o-mini"
	GeneratorModel string

	// APIKey is sent to OpenAI-compatible services. Local servers accept any value.
	APIKey string
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithEmbeddingProvider sets the embedder implementation.
func WithEmbeddingProvider(provider string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingProvider = provider
	}
}

// WithEmbeddingHost sets the embedding service host URL.
func WithEmbeddingHost(host string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
	}
}

// WithEmbeddingModel sets the embedding model identifier.
func WithEmbeddingModel(model string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingModel = model
	}
}

// WithEmbeddingDimension sets the expected embedding dimension.
func WithEmbeddingDimension(dim int) ConfigOption {
	return func(c *Config) {
		c.EmbeddingDimension = dim
	}
}

// WithGeneratorProvider sets the generator implementation.
func WithGeneratorProvider(provider string) ConfigOption {
	return func(c *Config) {
		c.GeneratorProvider = provider
	}
}

// WithGeneratorHost sets the generation service host URL.
func WithGeneratorHost(host string) ConfigOption {
	return func(c *Config) {
		c.GeneratorHost = host
	}
}

// WithGeneratorModel sets the generation model identifier.
func WithGeneratorModel(model string) ConfigOption {
	return func(c *Config) {
		c.GeneratorModel = model
	}
}

// WithAPIKey sets the key sent to OpenAI-compatible services.
func WithAPIKey(key string) ConfigOption {
	return func(c *Config) {
		c.APIKey = key
	}
}

// DefaultConfig returns a Config with sensible defaults for a local Ollama
// install: OpenAI-compatible embeddings and native llama2 generation.
func DefaultConfig() *Config {
	return &Config{
		EmbeddingProvider: ProviderOpenAI,
		EmbeddingHost:     "http://localhost:11434/v1",
		EmbeddingModel:    "all-minilm",
		GeneratorProvider: ProviderOllama,
		GeneratorHost:     "http://localhost:11434",
		GeneratorModel:    "llama2",
		APIKey:            "none",
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
//
// Example:
//
//	cfg := NewConfig(
//	    WithEmbeddingProvider(ProviderHashing),
//	    WithGeneratorModel("mistral"),
//	)
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize ensures the configuration is in a canonical form.
// OpenAI-compatible hosts get a /v1 suffix; native Ollama hosts lose it.
func (c *Config) Normalize() {
	c.EmbeddingProvider = strings.ToLower(strings.TrimSpace(c.EmbeddingProvider))
	c.GeneratorProvider = strings.ToLower(strings.TrimSpace(c.GeneratorProvider))

	if c.EmbeddingProvider == ProviderOpenAI {
		c.EmbeddingHost = withV1(c.EmbeddingHost)
	}
	switch c.GeneratorProvider {
	case ProviderOpenAI:
		c.GeneratorHost = withV1(c.GeneratorHost)
	case ProviderOllama:
		c.GeneratorHost = strings.TrimSuffix(strings.TrimSuffix(c.GeneratorHost, "/"), "/v1")
	}
	if c.EmbeddingProvider == ProviderHashing && c.EmbeddingDimension == 0 {
		c.EmbeddingDimension = DefaultHashingDimension
	}
}

func withV1(host string) string {
	if host == "" || strings.HasSuffix(host, "/v1") {
		return host
	}
	return strings.TrimSuffix(host, "/") + "/v1"
}

// Validate checks the embedding half of the configuration.
// It automatically normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	if !slices.Contains([]string{ProviderOpenAI, ProviderHashing}, c.EmbeddingProvider) {
		return fmt.Errorf("ai config: unknown EmbeddingProvider %q", c.EmbeddingProvider)
	}
	if c.EmbeddingDimension < 0 {
		return errors.New("ai config: EmbeddingDimension must not be negative")
	}
	if c.EmbeddingProvider == ProviderHashing {
		return nil
	}
	if c.EmbeddingHost == "" {
		return errors.New("ai config: EmbeddingHost is required")
	}
	if err := checkURL(c.EmbeddingHost); err != nil {
		return fmt.Errorf("ai config: EmbeddingHost: %w", err)
	}
	if c.EmbeddingModel == "" {
		return errors.New("ai config: EmbeddingModel is required")
	}
	return nil
}

// ValidateGenerator checks the generation half of the configuration.
// Only commands that answer chat requests need it.
func (c *Config) ValidateGenerator() error {
	c.Normalize()

	if !slices.Contains([]string{ProviderOpenAI, ProviderOllama}, c.GeneratorProvider) {
		return fmt.Errorf("ai config: unknown GeneratorProvider %q", c.GeneratorProvider)
	}
	if c.GeneratorHost == "" {
		return errors.New("ai config: GeneratorHost is required")
	}
	if err := checkURL(c.GeneratorHost); err != nil {
		return fmt.Errorf("ai config: GeneratorHost: %w", err)
	}
	if c.GeneratorModel == "" {
		return errors.New("ai config: GeneratorModel is required")
	}
	return nil
}

func checkURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%q is not an absolute URL", raw)
	}
	return nil
}
