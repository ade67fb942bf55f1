// Tiggy Advisor - Conversational Course Recommendation Engine
// Copyright 2026 Tiggy Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tiggyapp/advisor

package conversation

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/tiggyapp/advisor/internal/catalog"
	"github.com/tiggyapp/advisor/internal/config"
	"github.com/tiggyapp/advisor/internal/embedding"
	"github.com/tiggyapp/advisor/internal/genai"
	"github.com/tiggyapp/advisor/internal/models"
)

type memCourses struct {
	courses []models.Course
}

func (m *memCourses) ListCourses(ctx context.Context) ([]models.Course, error) {
	return m.courses, nil
}

func (m *memCourses) ReplaceCourses(ctx context.Context, courses []models.Course) error {
	m.courses = courses
	return nil
}

type stubClient struct {
	reply    string
	err      error
	received []genai.Message
}

func (s *stubClient) Complete(ctx context.Context, req genai.CompletionRequest) (string, error) {
	s.received = req.Messages
	return s.reply, s.err
}

func (s *stubClient) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

func chatCourses() []models.Course {
	return []models.Course{
		{ID: "1", Code: "COS 126", Title: "Computer Science", Schedule: "MWF", Embedding: []float32{1, 0, 0}},
		{ID: "2", Code: "COS 217", Title: "Systems Programming", Instructor: "J. Doe", Embedding: []float32{0.9, 0.1, 0}},
		{ID: "3", Code: "HIS 201", Title: "World History", Distributions: []string{"HA"}, Embedding: []float32{0, 1, 0}},
	}
}

func newTestBuilder(t *testing.T, client genai.Client) *Builder {
	t.Helper()
	cache := catalog.NewCache(&memCourses{courses: chatCourses()}, time.Minute, nil)
	snap, err := cache.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	index := embedding.NewIndex(3)
	index.Rebuild(snap)

	cfg := config.ChatConfig{MaxTurns: 4, CharBudget: 1000, SnippetK: 2}
	return NewBuilder(cfg, cache, index, client)
}

func TestBuildInjectsSubjectSnippets(t *testing.T) {
	b := newTestBuilder(t, &stubClient{})

	msgs := b.Build(context.Background(), &models.Chat{}, nil, "any computer science courses?")

	var snippet string
	for _, m := range msgs {
		if m.Role == "system" && strings.Contains(m.Content, "Relevant courses") {
			snippet = m.Content
		}
	}
	if snippet == "" {
		t.Fatal("no snippet message injected")
	}
	if !strings.Contains(snippet, "COS 126") || !strings.Contains(snippet, "COS 217") {
		t.Errorf("snippet missing department courses: %q", snippet)
	}
	if strings.Contains(snippet, "HIS 201") {
		t.Errorf("snippet has unrelated course: %q", snippet)
	}
	// Missing instructor defaults to TBA, compact days are expanded.
	if !strings.Contains(snippet, "instructor: TBA") {
		t.Errorf("snippet missing TBA default: %q", snippet)
	}
	if !strings.Contains(snippet, "Mon, Wed, Fri") {
		t.Errorf("snippet missing expanded days: %q", snippet)
	}
}

func TestBuildInjectsRequirementSnippets(t *testing.T) {
	b := newTestBuilder(t, &stubClient{})

	msgs := b.Build(context.Background(), &models.Chat{}, nil, "I need an HA course")

	var snippet string
	for _, m := range msgs {
		if strings.Contains(m.Content, "Relevant courses") {
			snippet = m.Content
		}
	}
	if !strings.Contains(snippet, "HIS 201") {
		t.Errorf("snippet missing HA course: %q", snippet)
	}
}

func TestBuildSkipsSnippetsForSmallTalk(t *testing.T) {
	b := newTestBuilder(t, &stubClient{})

	msgs := b.Build(context.Background(), &models.Chat{}, nil, "good morning!")

	for _, m := range msgs {
		if strings.Contains(m.Content, "Relevant courses") {
			t.Error("snippets injected for small talk")
		}
	}
}

func TestBuildMergesHistoryByTimestamp(t *testing.T) {
	b := newTestBuilder(t, &stubClient{})
	base := time.Now()

	chat := &models.Chat{
		UserTurns: []models.ConversationTurn{
			{Role: models.RoleUser, Text: "first", Timestamp: base},
			{Role: models.RoleUser, Text: "third", Timestamp: base.Add(2 * time.Second)},
		},
		AssistantTurns: []models.ConversationTurn{
			{Role: models.RoleAssistant, Text: "second", Timestamp: base.Add(time.Second)},
		},
	}

	msgs := b.Build(context.Background(), chat, nil, "hello")

	var history []string
	for _, m := range msgs {
		if m.Role != "system" {
			history = append(history, m.Content)
		}
	}
	want := []string{"first", "second", "third", "hello"}
	if len(history) != len(want) {
		t.Fatalf("history = %v", history)
	}
	for i, w := range want {
		if history[i] != w {
			t.Errorf("history[%d] = %q, want %q", i, history[i], w)
		}
	}
}

func TestTruncateTurns(t *testing.T) {
	mkTurns := func(texts ...string) []models.ConversationTurn {
		out := make([]models.ConversationTurn, len(texts))
		for i, txt := range texts {
			out[i] = models.ConversationTurn{Text: txt}
		}
		return out
	}

	t.Run("turn budget drops oldest", func(t *testing.T) {
		got := truncateTurns(mkTurns("a", "b", "c", "d"), 2, 0)
		if len(got) != 2 || got[0].Text != "c" {
			t.Errorf("got = %v", got)
		}
	})

	t.Run("char budget drops oldest", func(t *testing.T) {
		got := truncateTurns(mkTurns("aaaa", "bbbb", "cc"), 10, 6)
		if len(got) != 2 || got[0].Text != "bbbb" {
			t.Errorf("got = %v", got)
		}
	})

	t.Run("within budgets unchanged", func(t *testing.T) {
		got := truncateTurns(mkTurns("a", "b"), 10, 100)
		if len(got) != 2 {
			t.Errorf("got = %v", got)
		}
	})
}
