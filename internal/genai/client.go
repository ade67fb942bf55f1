// Tiggy Advisor - Conversational Course Recommendation Engine
// Copyright 2026 Tiggy Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tiggyapp/advisor

// Package genai wraps the external generation service behind a
// resilient client: per-call timeouts, bounded retries with exponential
// backoff and jitter, a failure-rate circuit breaker, a concurrency
// semaphore and an outbound rate limiter. Every dependency on text
// generation or embedding in the advisor goes through this package.
package genai

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/tiggyapp/advisor/internal/config"
	"github.com/tiggyapp/advisor/internal/logging"
	"github.com/tiggyapp/advisor/internal/metrics"
)

// Client is the generation service interface used by the reranker and
// the conversation layer.
type Client interface {
	// Complete runs a chat completion and returns the response text.
	Complete(ctx context.Context, req CompletionRequest) (string, error)

	// Embed returns the embedding vector for a text.
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ResilientClient implements Client over an OpenAI-compatible HTTP
// backend with the full resilience stack applied.
type ResilientClient struct {
	up      upstream
	cfg     config.GenAIConfig
	breaker *gobreaker.CircuitBreaker[any]
	sem     *semaphore.Weighted
	limiter *rate.Limiter
}

// NewClient creates a resilient client for the configured backend.
func NewClient(cfg config.GenAIConfig) *ResilientClient {
	return newResilientClient(cfg, newHTTPTransport(cfg.BaseURL, cfg.APIKey, cfg.Model, cfg.EmbedModel))
}

func newResilientClient(cfg config.GenAIConfig, up upstream) *ResilientClient {
	var limiter *rate.Limiter
	if cfg.RatePerSecond > 0 {
		burst := int(cfg.RatePerSecond)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
	}

	c := &ResilientClient{
		up:      up,
		cfg:     cfg,
		sem:     semaphore.NewWeighted(cfg.MaxConcurrent),
		limiter: limiter,
	}

	c.breaker = gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:    "genai",
		Timeout: cfg.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.BreakerMinRequests {
				return false
			}
			failureRate := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRate >= cfg.BreakerFailureRate
		},
		// Fatal errors are deterministic client-side problems; they say
		// nothing about upstream health and must not trip the breaker.
		IsSuccessful: func(err error) bool {
			return err == nil || isFatal(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.CircuitBreakerState.Set(breakerStateValue(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(from.String(), to.String()).Inc()
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state change")
		},
	})

	return c
}

func breakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateOpen:
		return 2
	case gobreaker.StateHalfOpen:
		return 1
	default:
		return 0
	}
}

// Complete runs a chat completion with the full resilience stack.
func (c *ResilientClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	var result string
	err := c.call(ctx, "complete", func(ctx context.Context) error {
		out, err := c.up.complete(ctx, req)
		result = out
		return err
	})
	return result, err
}

// Embed returns the embedding vector for a text.
func (c *ResilientClient) Embed(ctx context.Context, text string) ([]float32, error) {
	var result []float32
	err := c.call(ctx, "embed", func(ctx context.Context) error {
		out, err := c.up.embed(ctx, text)
		result = out
		return err
	})
	return result, err
}

// call runs fn under the semaphore, rate limiter, circuit breaker and
// retry policy. Transient failures are retried up to MaxRetries times
// with exponential backoff and jitter; fatal and unclassified errors
// return immediately.
func (c *ResilientClient) call(ctx context.Context, op string, fn func(context.Context) error) error {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer c.sem.Release(1)

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := c.sleepBackoff(ctx, attempt); err != nil {
				return err
			}
		}

		err := c.attempt(ctx, op, fn)
		if err == nil {
			return nil
		}

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("%w: %v", ErrServiceDegraded, err)
		}
		if isFatal(err) {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		reason, transient := isTransient(err)
		if !transient {
			return err
		}
		lastErr = err

		if attempt < c.cfg.MaxRetries {
			metrics.GenerationRetries.WithLabelValues(reason).Inc()
			logging.Debug().
				Err(err).
				Str("operation", op).
				Int("attempt", attempt+1).
				Msg("retrying generation call")
		}
	}

	return fmt.Errorf("generation %s failed after %d attempts: %w", op, c.cfg.MaxRetries+1, lastErr)
}

// attempt executes one breaker-guarded call with its own timeout.
func (c *ResilientClient) attempt(ctx context.Context, op string, fn func(context.Context) error) error {
	attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	start := time.Now()
	_, err := c.breaker.Execute(func() (any, error) {
		return nil, fn(attemptCtx)
	})
	metrics.GenerationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	return err
}

// sleepBackoff waits BackoffBase * 2^(attempt-1) plus up to 50% jitter,
// or returns early when the context ends.
func (c *ResilientClient) sleepBackoff(ctx context.Context, attempt int) error {
	base := c.cfg.BackoffBase
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	delay := base << (attempt - 1)
	delay += time.Duration(rand.Int64N(int64(delay)/2 + 1))

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
