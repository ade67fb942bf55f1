// Tiggy Advisor - Conversational Course Recommendation Engine
// Copyright 2026 Tiggy Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tiggyapp/advisor

package genai

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
)

// Message is one turn of a completion prompt.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest describes one generation call.
type CompletionRequest struct {
	Messages    []Message
	Temperature float64
	MaxTokens   int

	// JSONMode asks the upstream for a JSON-object response, used by
	// the reranker.
	JSONMode bool
}

// upstream is the raw generation backend. The resilient client wraps it
// with retries, rate limiting and the circuit breaker.
type upstream interface {
	complete(ctx context.Context, req CompletionRequest) (string, error)
	embed(ctx context.Context, text string) ([]float32, error)
}

// httpTransport talks to an OpenAI-compatible API over HTTP.
type httpTransport struct {
	baseURL    string
	apiKey     string
	model      string
	embedModel string
	client     *http.Client
}

func newHTTPTransport(baseURL, apiKey, model, embedModel string) *httpTransport {
	return &httpTransport{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		embedModel: embedModel,
		// Per-call deadlines come from the caller's context.
		client: &http.Client{},
	}
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	Temperature    float64         `json:"temperature,omitempty"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type embedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

type apiErrorBody struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

func (t *httpTransport) complete(ctx context.Context, req CompletionRequest) (string, error) {
	body := chatRequest{
		Model:       t.model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if req.JSONMode {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	var out chatResponse
	if err := t.post(ctx, "/chat/completions", body, &out); err != nil {
		return "", err
	}
	if len(out.Choices) == 0 {
		return "", &transientError{reason: "server_error", err: errors.New("empty choices")}
	}
	return out.Choices[0].Message.Content, nil
}

func (t *httpTransport) embed(ctx context.Context, text string) ([]float32, error) {
	var out embedResponse
	if err := t.post(ctx, "/embeddings", embedRequest{Model: t.embedModel, Input: text}, &out); err != nil {
		return nil, err
	}
	if len(out.Data) == 0 {
		return nil, &transientError{reason: "server_error", err: errors.New("empty embedding data")}
	}
	return out.Data[0].Embedding, nil
}

func (t *httpTransport) post(ctx context.Context, path string, in, out interface{}) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if t.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+t.apiKey)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return &transientError{reason: "timeout", err: err}
		}
		if errors.Is(err, context.Canceled) {
			return err
		}
		return &transientError{reason: "server_error", err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &transientError{reason: "server_error", err: fmt.Errorf("read body: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return classifyStatus(resp.StatusCode, raw)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// classifyStatus maps an upstream error response to a typed error:
// fatal for auth and quota problems, transient for everything worth
// retrying.
func classifyStatus(status int, body []byte) error {
	var apiErr apiErrorBody
	_ = json.Unmarshal(body, &apiErr)
	detail := apiErr.Error.Message
	if detail == "" {
		detail = strings.TrimSpace(string(body))
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrUpstreamAuth, detail)
	case status == http.StatusTooManyRequests:
		if apiErr.Error.Code == "insufficient_quota" || apiErr.Error.Type == "insufficient_quota" {
			return fmt.Errorf("%w: %s", ErrQuotaExceeded, detail)
		}
		return &transientError{reason: "rate_limited", err: fmt.Errorf("status %d: %s", status, detail)}
	case status == http.StatusRequestTimeout:
		return &transientError{reason: "timeout", err: fmt.Errorf("status %d: %s", status, detail)}
	case status >= 500:
		return &transientError{reason: "server_error", err: fmt.Errorf("status %d: %s", status, detail)}
	default:
		return fmt.Errorf("generation service status %d: %s", status, detail)
	}
}
