// Tiggy Advisor - Conversational Course Recommendation Engine
// Copyright 2026 Tiggy Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tiggyapp/advisor

// Package conversation implements the chat side of the advisor:
// transcript management, prompt context assembly with history
// truncation, intent classification, and course snippet injection.
package conversation

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/tiggyapp/advisor/internal/catalog"
	"github.com/tiggyapp/advisor/internal/config"
	"github.com/tiggyapp/advisor/internal/embedding"
	"github.com/tiggyapp/advisor/internal/genai"
	"github.com/tiggyapp/advisor/internal/logging"
	"github.com/tiggyapp/advisor/internal/models"
)

// chatSystemPrompt sets the advisor persona for chat completions.
const chatSystemPrompt = `You are Tiggy, a friendly course advisor for university students. You help students pick courses, plan their schedule, and understand distribution requirements. Keep answers short and conversational. When you mention a course, use its course code. Only discuss courses from the provided context; if you don't know, say so.`

// Builder assembles the completion messages for a chat turn: the
// persona, relevant course snippets chosen by the message's intent, and
// the truncated conversation history.
type Builder struct {
	cfg    config.ChatConfig
	cache  *catalog.Cache
	index  *embedding.Index
	client genai.Client
}

// NewBuilder creates a context builder.
func NewBuilder(cfg config.ChatConfig, cache *catalog.Cache, index *embedding.Index, client genai.Client) *Builder {
	return &Builder{cfg: cfg, cache: cache, index: index, client: client}
}

// Build returns the messages for one chat completion. The incoming
// message is appended last; history is merged from both turn sequences
// by timestamp and truncated to the turn and character budgets, oldest
// first. Snippet lookup failures degrade to no snippets rather than
// failing the chat.
func (b *Builder) Build(ctx context.Context, chat *models.Chat, profile *models.UserProfile, message string) []genai.Message {
	messages := []genai.Message{{Role: "system", Content: chatSystemPrompt}}

	if snippets := b.courseSnippets(ctx, message); snippets != "" {
		messages = append(messages, genai.Message{
			Role:    "system",
			Content: "Relevant courses this term:\n" + snippets,
		})
	}
	if profile != nil && !profile.Sparse() {
		messages = append(messages, genai.Message{
			Role:    "system",
			Content: profileSummary(profile),
		})
	}

	history := models.MergeTurns(chat.UserTurns, chat.AssistantTurns)
	for _, turn := range truncateTurns(history, b.cfg.MaxTurns, b.cfg.CharBudget) {
		messages = append(messages, genai.Message{
			Role:    string(turn.Role),
			Content: turn.Text,
		})
	}

	return append(messages, genai.Message{Role: "user", Content: message})
}

// truncateTurns keeps the newest turns within both budgets, dropping
// the oldest first.
func truncateTurns(turns []models.ConversationTurn, maxTurns, charBudget int) []models.ConversationTurn {
	if maxTurns > 0 && len(turns) > maxTurns {
		turns = turns[len(turns)-maxTurns:]
	}

	if charBudget > 0 {
		total := 0
		start := len(turns)
		for i := len(turns) - 1; i >= 0; i-- {
			total += len(turns[i].Text)
			if total > charBudget {
				break
			}
			start = i
		}
		turns = turns[start:]
	}

	return turns
}

// courseSnippets selects courses to inject based on the message's
// intent: department listing for subject questions, requirement
// matches for distribution questions, semantic neighbours otherwise.
func (b *Builder) courseSnippets(ctx context.Context, message string) string {
	cls := Classify(message)
	if !cls.CourseRelated() {
		return ""
	}

	snap, err := b.cache.Snapshot(ctx)
	if err != nil {
		logger := logging.Ctx(ctx)
		logger.Warn().Err(err).Msg("no catalog snapshot for chat snippets")
		return ""
	}

	var picked []models.Course
	switch cls.Intent {
	case IntentSubject:
		picked = coursesWithPrefix(snap, cls.Subject, b.cfg.SnippetK)
	case IntentRequirement:
		picked = coursesWithDistribution(snap, cls.Distribution, b.cfg.SnippetK)
	default:
		picked = b.semanticMatches(ctx, snap, message)
	}
	if len(picked) == 0 {
		return ""
	}

	lines := make([]string, 0, len(picked))
	for i := range picked {
		lines = append(lines, formatSnippet(&picked[i]))
	}
	return strings.Join(lines, "\n")
}

// semanticMatches embeds the message and returns the nearest courses.
func (b *Builder) semanticMatches(ctx context.Context, snap *catalog.Snapshot, message string) []models.Course {
	vec, err := b.client.Embed(ctx, message)
	if err != nil {
		logger := logging.Ctx(ctx)
		logger.Warn().Err(err).Msg("embedding unavailable for chat snippets")
		return nil
	}
	candidates, err := b.index.Search(vec, b.cfg.SnippetK)
	if err != nil {
		return nil
	}

	ids := make([]string, len(candidates))
	for i, cand := range candidates {
		ids[i] = cand.CourseID
	}
	return catalog.CoursesByIDs(snap, ids)
}

// coursesWithPrefix lists courses of one department, in catalog order.
func coursesWithPrefix(snap *catalog.Snapshot, dept string, limit int) []models.Course {
	var out []models.Course
	for i := range snap.Courses {
		if strings.HasPrefix(snap.Courses[i].Code, dept+" ") {
			out = append(out, snap.Courses[i])
			if len(out) == limit {
				break
			}
		}
	}
	return out
}

// coursesWithDistribution lists courses satisfying one requirement.
func coursesWithDistribution(snap *catalog.Snapshot, code string, limit int) []models.Course {
	var out []models.Course
	for i := range snap.Courses {
		if snap.Courses[i].SatisfiesAny([]string{code}) {
			out = append(out, snap.Courses[i])
			if len(out) == limit {
				break
			}
		}
	}
	return out
}

// formatSnippet renders one course line for prompt injection.
func formatSnippet(c *models.Course) string {
	instructor := c.Instructor
	if instructor == "" {
		instructor = "TBA"
	}
	schedule := models.ExpandMeetingDays(c.Schedule)
	if schedule == "" {
		schedule = "TBA"
	}

	line := fmt.Sprintf("- %s: %s (instructor: %s, meets: %s", c.Code, c.Title, instructor, schedule)
	if len(c.Distributions) > 0 {
		line += ", satisfies: " + strings.Join(c.Distributions, "/")
	}
	return line + ")"
}

// profileSummary renders the student profile for the system context.
func profileSummary(p *models.UserProfile) string {
	var b strings.Builder
	b.WriteString("About this student:")
	if p.ClassYear != "" {
		fmt.Fprintf(&b, " class of %s.", p.ClassYear)
	}
	if p.Concentration != "" {
		fmt.Fprintf(&b, " Concentrating in %s.", p.Concentration)
	}
	if len(p.CompletedCourses) > 0 {
		codes := make([]string, 0, len(p.CompletedCourses))
		for code := range p.CompletedCourses {
			codes = append(codes, code)
		}
		sort.Strings(codes)
		fmt.Fprintf(&b, " Already completed: %s.", strings.Join(codes, ", "))
	}
	if len(p.RemainingDistributions) > 0 {
		fmt.Fprintf(&b, " Still needs: %s.", strings.Join(p.RemainingDistributions, ", "))
	}
	return b.String()
}
