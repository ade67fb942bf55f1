// Tiggy Advisor - Conversational Course Recommendation Engine
// Copyright 2026 Tiggy Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tiggyapp/advisor

package genai

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tiggyapp/advisor/internal/config"
)

// stubUpstream scripts upstream responses per call.
type stubUpstream struct {
	calls   atomic.Int64
	respond func(call int64) (string, error)
}

func (s *stubUpstream) complete(ctx context.Context, req CompletionRequest) (string, error) {
	return s.respond(s.calls.Add(1))
}

func (s *stubUpstream) embed(ctx context.Context, text string) ([]float32, error) {
	out, err := s.respond(s.calls.Add(1))
	if err != nil {
		return nil, err
	}
	_ = out
	return []float32{1, 0}, nil
}

func testGenAIConfig() config.GenAIConfig {
	return config.GenAIConfig{
		BaseURL:            "http://localhost:0",
		RequestTimeout:     time.Second,
		MaxRetries:         3,
		BackoffBase:        time.Millisecond,
		MaxConcurrent:      4,
		BreakerFailureRate: 0.6,
		BreakerMinRequests: 100, // keep the breaker out of retry tests
		BreakerCooldown:    50 * time.Millisecond,
	}
}

func TestCompleteRetriesTransientFailures(t *testing.T) {
	up := &stubUpstream{
		respond: func(call int64) (string, error) {
			if call < 3 {
				return "", &transientError{reason: "server_error", err: errors.New("boom")}
			}
			return "ok", nil
		},
	}
	c := newResilientClient(testGenAIConfig(), up)

	out, err := c.Complete(context.Background(), CompletionRequest{})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if out != "ok" {
		t.Errorf("out = %q", out)
	}
	if got := up.calls.Load(); got != 3 {
		t.Errorf("calls = %d, want 3", got)
	}
}

func TestCompleteRetryBudgetExhausted(t *testing.T) {
	up := &stubUpstream{
		respond: func(call int64) (string, error) {
			return "", &transientError{reason: "rate_limited", err: errors.New("429")}
		},
	}
	cfg := testGenAIConfig()
	cfg.MaxRetries = 2
	c := newResilientClient(cfg, up)

	_, err := c.Complete(context.Background(), CompletionRequest{})
	if err == nil {
		t.Fatal("expected error")
	}
	// 1 initial attempt + 2 retries.
	if got := up.calls.Load(); got != 3 {
		t.Errorf("calls = %d, want 3", got)
	}
}

func TestCompleteFatalErrorsNotRetried(t *testing.T) {
	for _, fatal := range []error{ErrUpstreamAuth, ErrQuotaExceeded} {
		up := &stubUpstream{
			respond: func(call int64) (string, error) {
				return "", fatal
			},
		}
		c := newResilientClient(testGenAIConfig(), up)

		_, err := c.Complete(context.Background(), CompletionRequest{})
		if !errors.Is(err, fatal) {
			t.Errorf("err = %v, want %v", err, fatal)
		}
		if got := up.calls.Load(); got != 1 {
			t.Errorf("calls = %d, want 1 for %v", got, fatal)
		}
	}
}

func TestBreakerOpensAndShortCircuits(t *testing.T) {
	up := &stubUpstream{
		respond: func(call int64) (string, error) {
			return "", &transientError{reason: "server_error", err: errors.New("down")}
		},
	}
	cfg := testGenAIConfig()
	cfg.MaxRetries = 0
	cfg.BreakerMinRequests = 3
	cfg.BreakerFailureRate = 0.5
	cfg.BreakerCooldown = time.Minute
	c := newResilientClient(cfg, up)

	ctx := context.Background()
	for range 3 {
		_, _ = c.Complete(ctx, CompletionRequest{})
	}

	before := up.calls.Load()
	_, err := c.Complete(ctx, CompletionRequest{})
	if !errors.Is(err, ErrServiceDegraded) {
		t.Fatalf("err = %v, want ErrServiceDegraded", err)
	}
	if up.calls.Load() != before {
		t.Error("open breaker still reached the upstream")
	}
}

func TestBreakerHalfOpenRecovers(t *testing.T) {
	var healthy atomic.Bool
	up := &stubUpstream{
		respond: func(call int64) (string, error) {
			if healthy.Load() {
				return "ok", nil
			}
			return "", &transientError{reason: "server_error", err: errors.New("down")}
		},
	}
	cfg := testGenAIConfig()
	cfg.MaxRetries = 0
	cfg.BreakerMinRequests = 2
	cfg.BreakerFailureRate = 0.5
	cfg.BreakerCooldown = 20 * time.Millisecond
	c := newResilientClient(cfg, up)

	ctx := context.Background()
	for range 2 {
		_, _ = c.Complete(ctx, CompletionRequest{})
	}
	if _, err := c.Complete(ctx, CompletionRequest{}); !errors.Is(err, ErrServiceDegraded) {
		t.Fatalf("breaker not open: %v", err)
	}

	healthy.Store(true)
	time.Sleep(30 * time.Millisecond)

	out, err := c.Complete(ctx, CompletionRequest{})
	if err != nil {
		t.Fatalf("Complete after cooldown: %v", err)
	}
	if out != "ok" {
		t.Errorf("out = %q", out)
	}
}

func TestCallRespectsContextCancellation(t *testing.T) {
	up := &stubUpstream{
		respond: func(call int64) (string, error) {
			return "", &transientError{reason: "timeout", err: errors.New("slow")}
		},
	}
	cfg := testGenAIConfig()
	cfg.BackoffBase = time.Hour // retry would stall without cancellation
	c := newResilientClient(cfg, up)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := c.Complete(ctx, CompletionRequest{})
	if err == nil {
		t.Fatal("expected error")
	}
	if time.Since(start) > time.Second {
		t.Error("cancellation did not interrupt backoff")
	}
}
