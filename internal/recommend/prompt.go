// Tiggy Advisor - Conversational Course Recommendation Engine
// Copyright 2026 Tiggy Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tiggyapp/advisor

package recommend

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/tiggyapp/advisor/internal/catalog"
	"github.com/tiggyapp/advisor/internal/genai"
	"github.com/tiggyapp/advisor/internal/models"
)

// rerankSystemPrompt instructs the model to act as a course advisor and
// answer with a strict JSON object.
const rerankSystemPrompt = `You are an academic course advisor. Given a student profile and a list of candidate courses, pick the best matches and order them from most to least suitable.

Respond with a JSON object of this exact shape:
{"recommendations":[{"code":"<course code>","rationale":"<one sentence why this course fits>"}]}

Rules:
- Only use course codes from the candidate list.
- Never recommend a course the student already completed.
- Never repeat a course code.`

// maxPromptDescriptionLen bounds per-course description text in the
// prompt.
const maxPromptDescriptionLen = 280

// buildRerankMessages assembles the completion messages for one rerank
// call.
func buildRerankMessages(snap *catalog.Snapshot, candidates []models.CandidateScore, profile *models.UserProfile, query string, limit int) []genai.Message {
	var b strings.Builder

	fmt.Fprintf(&b, "Pick and order the %d best courses for this student.\n\n", limit)

	b.WriteString("Student profile:\n")
	if profile != nil {
		if profile.ClassYear != "" {
			fmt.Fprintf(&b, "- Class year: %s\n", profile.ClassYear)
		}
		if profile.Concentration != "" {
			fmt.Fprintf(&b, "- Concentration: %s\n", profile.Concentration)
		}
		if len(profile.CompletedCourses) > 0 {
			codes := make([]string, 0, len(profile.CompletedCourses))
			for code := range profile.CompletedCourses {
				codes = append(codes, code)
			}
			sort.Strings(codes)
			fmt.Fprintf(&b, "- Completed courses: %s\n", strings.Join(codes, ", "))
		}
		if len(profile.RemainingDistributions) > 0 {
			fmt.Fprintf(&b, "- Remaining distribution requirements: %s\n", strings.Join(profile.RemainingDistributions, ", "))
		}
		if len(profile.FavoriteClasses) > 0 {
			fmt.Fprintf(&b, "- Favorite classes so far: %s\n", strings.Join(profile.FavoriteClasses, ", "))
		}
	}
	if query != "" {
		fmt.Fprintf(&b, "- The student asked: %q\n", query)
	}

	b.WriteString("\nCandidate courses:\n")
	for _, cand := range candidates {
		course, ok := snap.Course(cand.CourseID)
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "- %s: %s", course.Code, course.Title)
		if len(course.Distributions) > 0 {
			fmt.Fprintf(&b, " [%s]", strings.Join(course.Distributions, ", "))
		}
		if course.Description != "" {
			fmt.Fprintf(&b, ": %s", truncateDescription(course.Description))
		}
		b.WriteString("\n")
	}

	return []genai.Message{
		{Role: "system", Content: rerankSystemPrompt},
		{Role: "user", Content: b.String()},
	}
}

// truncateDescription caps a description at maxPromptDescriptionLen
// bytes, never splitting a multi-byte rune.
func truncateDescription(desc string) string {
	if len(desc) <= maxPromptDescriptionLen {
		return desc
	}
	cut := maxPromptDescriptionLen
	for cut > 0 && !utf8.RuneStart(desc[cut]) {
		cut--
	}
	return desc[:cut] + "..."
}
