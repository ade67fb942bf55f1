// Tiggy Advisor - Conversational Course Recommendation Engine
// Copyright 2026 Tiggy Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tiggyapp/advisor

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfigValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port too large", func(c *Config) { c.Server.Port = 70000 }},
		{"zero search k", func(c *Config) { c.Embedding.SearchK = 0 }},
		{"breaker rate above one", func(c *Config) { c.GenAI.BreakerFailureRate = 1.5 }},
		{"too many retries", func(c *Config) { c.GenAI.MaxRetries = 99 }},
		{"bad base url", func(c *Config) { c.GenAI.BaseURL = "not a url" }},
		{"zero max recommendations", func(c *Config) { c.Recommend.MaxRecommendations = 0 }},
		{"tiny char budget", func(c *Config) { c.Chat.CharBudget = 10 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoadLayersFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := []byte("server:\n  port: 9001\ncatalog:\n  ttl: 5m\n")
	if err := os.WriteFile(path, yaml, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("ADVISOR_SERVER__PORT", "9002") // env overrides file
	t.Setenv("ADVISOR_GENAI__API_KEY", "test-key")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 9002 {
		t.Errorf("Port = %d, want 9002 (env wins)", cfg.Server.Port)
	}
	if cfg.Catalog.TTL != 5*time.Minute {
		t.Errorf("TTL = %v, want 5m (from file)", cfg.Catalog.TTL)
	}
	if cfg.GenAI.APIKey != "test-key" {
		t.Errorf("APIKey = %q", cfg.GenAI.APIKey)
	}
	// Untouched values keep their defaults.
	if cfg.Recommend.MaxRecommendations != 5 {
		t.Errorf("MaxRecommendations = %d, want 5", cfg.Recommend.MaxRecommendations)
	}
}
