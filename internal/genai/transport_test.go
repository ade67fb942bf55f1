// Tiggy Advisor - Conversational Course Recommendation Engine
// Copyright 2026 Tiggy Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tiggyapp/advisor

package genai

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestTransportComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("auth header = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"hello"}}]}`))
	}))
	defer srv.Close()

	tr := newHTTPTransport(srv.URL, "secret", "gpt-4o-mini", "")
	out, err := tr.complete(context.Background(), CompletionRequest{
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if out != "hello" {
		t.Errorf("out = %q", out)
	}
}

func TestTransportEmbed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("path = %q", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"data":[{"embedding":[0.5,0.5]}]}`))
	}))
	defer srv.Close()

	tr := newHTTPTransport(srv.URL, "", "", "text-embedding-3-small")
	vec, err := tr.embed(context.Background(), "databases")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if len(vec) != 2 || vec[0] != 0.5 {
		t.Errorf("vec = %v", vec)
	}
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantFatal error
		wantRetry string
	}{
		{"unauthorized", 401, `{"error":{"message":"bad key"}}`, ErrUpstreamAuth, ""},
		{"forbidden", 403, ``, ErrUpstreamAuth, ""},
		{"quota", 429, `{"error":{"code":"insufficient_quota","message":"billing"}}`, ErrQuotaExceeded, ""},
		{"rate limit", 429, `{"error":{"message":"slow down"}}`, nil, "rate_limited"},
		{"server error", 503, ``, nil, "server_error"},
		{"gateway timeout", 504, ``, nil, "server_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classifyStatus(tt.status, []byte(tt.body))
			if tt.wantFatal != nil {
				if !errors.Is(err, tt.wantFatal) {
					t.Errorf("err = %v, want %v", err, tt.wantFatal)
				}
				return
			}
			reason, ok := isTransient(err)
			if !ok || reason != tt.wantRetry {
				t.Errorf("transient = %q/%v, want %q", reason, ok, tt.wantRetry)
			}
		})
	}
}
