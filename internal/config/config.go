// Tiggy Advisor - Conversational Course Recommendation Engine
// Copyright 2026 Tiggy Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tiggyapp/advisor

// Package config loads and validates the advisor configuration.
//
// Configuration is assembled in three layers with koanf: struct defaults,
// an optional YAML file (config.yaml, or the path in CONFIG_PATH), and
// environment variables prefixed ADVISOR_, with __ separating nested keys
// (e.g. ADVISOR_SERVER__PORT, ADVISOR_GENAI__API_KEY). Later layers
// override earlier ones.
package config

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is the root application configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Store     StoreConfig     `koanf:"store"`
	Catalog   CatalogConfig   `koanf:"catalog"`
	Embedding EmbeddingConfig `koanf:"embedding"`
	GenAI     GenAIConfig     `koanf:"genai"`
	Recommend RecommendConfig `koanf:"recommend"`
	Chat      ChatConfig      `koanf:"chat"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	// RateLimitPerMinute bounds requests per client IP.
	RateLimitPerMinute int `koanf:"rate_limit_per_minute" validate:"min=1"`
	// CORSOrigins lists allowed origins for browser clients.
	CORSOrigins []string `koanf:"cors_origins"`
}

// StoreConfig configures the persistent stores.
type StoreConfig struct {
	// CatalogPath is the DuckDB database file holding courses and
	// profiles. Empty means in-memory (tests).
	CatalogPath string `koanf:"catalog_path"`

	// TranscriptPath is the Badger directory for chat transcripts.
	// Empty means in-memory (tests).
	TranscriptPath string `koanf:"transcript_path"`
}

// CatalogConfig configures the in-memory catalog cache.
type CatalogConfig struct {
	// TTL is the snapshot age after which an asynchronous refresh is
	// triggered. In-flight requests keep the stale view meanwhile.
	TTL time.Duration `koanf:"ttl" validate:"min=1s"`
}

// EmbeddingConfig configures the similarity index.
type EmbeddingConfig struct {
	// Dimension is the required embedding vector dimension. Courses
	// with a different dimension are excluded from search.
	Dimension int `koanf:"dimension" validate:"min=1"`

	// SearchK is the default number of nearest neighbours retrieved as
	// recommendation candidates.
	SearchK int `koanf:"search_k" validate:"min=1"`
}

// GenAIConfig configures the external generation service client.
type GenAIConfig struct {
	BaseURL        string        `koanf:"base_url" validate:"required,url"`
	APIKey         string        `koanf:"api_key"`
	Model          string        `koanf:"model"`
	EmbedModel     string        `koanf:"embed_model"`
	RequestTimeout time.Duration `koanf:"request_timeout" validate:"min=1s"`

	// MaxRetries bounds retries of transient failures (timeout,
	// rate-limit, 5xx). Auth and quota errors are never retried.
	MaxRetries int `koanf:"max_retries" validate:"min=0,max=10"`

	// BackoffBase is the initial retry delay; each attempt doubles it
	// and adds jitter.
	BackoffBase time.Duration `koanf:"backoff_base"`

	// MaxConcurrent bounds in-flight outbound calls; excess callers
	// block on a semaphore until a slot frees or their context ends.
	MaxConcurrent int64 `koanf:"max_concurrent" validate:"min=1"`

	// RatePerSecond caps the outbound request rate. Zero disables the
	// limiter.
	RatePerSecond float64 `koanf:"rate_per_second"`

	// Breaker settings: the circuit opens when the failure rate over a
	// rolling window crosses BreakerFailureRate with at least
	// BreakerMinRequests samples, and stays open for BreakerCooldown.
	BreakerFailureRate float64       `koanf:"breaker_failure_rate" validate:"gt=0,lte=1"`
	BreakerMinRequests uint32        `koanf:"breaker_min_requests" validate:"min=1"`
	BreakerCooldown    time.Duration `koanf:"breaker_cooldown"`
}

// RecommendConfig configures the recommendation engine.
type RecommendConfig struct {
	// MaxRecommendations is the number of courses returned to a client.
	MaxRecommendations int `koanf:"max_recommendations" validate:"min=1,max=50"`

	// RerankRetries bounds re-asks of the generation service when its
	// structured response fails validation.
	RerankRetries int `koanf:"rerank_retries" validate:"min=0,max=5"`

	// CoalesceWindow is how long a completed recommendation result keeps
	// satisfying duplicate (user, fingerprint) requests.
	CoalesceWindow time.Duration `koanf:"coalesce_window"`
}

// ChatConfig configures conversation context assembly.
type ChatConfig struct {
	// MaxTurns is the maximum number of past turns kept in the prompt.
	MaxTurns int `koanf:"max_turns" validate:"min=1"`

	// CharBudget bounds total prompt characters contributed by history;
	// the oldest turns are dropped first.
	CharBudget int `koanf:"char_budget" validate:"min=100"`

	// SnippetK is the number of course snippets injected when a message
	// is classified as course-related.
	SnippetK int `koanf:"snippet_k" validate:"min=1"`
}

// LoggingConfig configures the global logger.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Default returns a Config with all default values applied.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:               "0.0.0.0",
			Port:               8080,
			ReadTimeout:        30 * time.Second,
			WriteTimeout:       60 * time.Second,
			ShutdownTimeout:    15 * time.Second,
			RateLimitPerMinute: 120,
			CORSOrigins:        []string{"*"},
		},
		Store: StoreConfig{
			CatalogPath:    "/data/advisor.duckdb",
			TranscriptPath: "/data/transcripts",
		},
		Catalog: CatalogConfig{
			TTL: 15 * time.Minute,
		},
		Embedding: EmbeddingConfig{
			Dimension: 1536,
			SearchK:   20,
		},
		GenAI: GenAIConfig{
			BaseURL:            "https://api.openai.com/v1",
			Model:              "gpt-4o-mini",
			EmbedModel:         "text-embedding-3-small",
			RequestTimeout:     30 * time.Second,
			MaxRetries:         3,
			BackoffBase:        500 * time.Millisecond,
			MaxConcurrent:      8,
			RatePerSecond:      10,
			BreakerFailureRate: 0.6,
			BreakerMinRequests: 10,
			BreakerCooldown:    time.Minute,
		},
		Recommend: RecommendConfig{
			MaxRecommendations: 5,
			RerankRetries:      2,
			CoalesceWindow:     10 * time.Second,
		},
		Chat: ChatConfig{
			MaxTurns:   20,
			CharBudget: 12000,
			SnippetK:   5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	return validator.New(validator.WithRequiredStructEnabled()).Struct(c)
}
