// Tiggy Advisor - Conversational Course Recommendation Engine
// Copyright 2026 Tiggy Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tiggyapp/advisor

package models

import (
	"regexp"
	"strings"
)

// Course represents one catalog entry for the current term.
type Course struct {
	// ID is the unique course identifier (registrar course id).
	ID string `json:"id"`

	// Code is the normalized course code, e.g. "COS 126".
	Code string `json:"code"`

	// Title is the course title.
	Title string `json:"title"`

	// Description is the catalog description.
	Description string `json:"description"`

	// Credits is the credit value of the course.
	Credits float64 `json:"credits"`

	// Distributions lists the distribution requirement codes the course
	// satisfies (e.g. "QCR", "HA").
	Distributions []string `json:"distributions,omitempty"`

	// Schedule is a formatted meeting string, e.g. "Mon, Wed 10:00-10:50".
	Schedule string `json:"schedule"`

	// Instructor is the first listed instructor, or "TBA".
	Instructor string `json:"instructor"`

	// Format is the class format, e.g. "Lecture", "Seminar".
	Format string `json:"format"`

	// Embedding is the precomputed semantic vector for the course text.
	// Courses whose embedding does not match the index dimension are
	// excluded from similarity search.
	Embedding []float32 `json:"-"`
}

// SatisfiesAny reports whether the course carries at least one of the
// given distribution codes.
func (c *Course) SatisfiesAny(distributions []string) bool {
	for _, want := range distributions {
		for _, have := range c.Distributions {
			if strings.EqualFold(have, want) {
				return true
			}
		}
	}
	return false
}

// SearchText returns the text representation used when embedding a course.
func (c *Course) SearchText() string {
	parts := []string{c.Code, c.Title}
	if c.Description != "" {
		parts = append(parts, c.Description)
	}
	if len(c.Distributions) > 0 {
		parts = append(parts, strings.Join(c.Distributions, " "))
	}
	return strings.Join(parts, "\n")
}

// courseCodePattern matches "SUBJECT NUMBER" with an optional separator,
// e.g. "COS 126", "COS126", "cos-126".
var courseCodePattern = regexp.MustCompile(`^([A-Z]{2,4})[\s-]?(\d{3}[A-Z]?)$`)

// NormalizeCourseCode converts a course code in any accepted format to the
// canonical "SUBJECT NUMBER" form. Returns "" if the input is not a valid
// course code.
func NormalizeCourseCode(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	code = strings.Trim(code, `"'`)
	code = strings.Join(strings.Fields(strings.ReplaceAll(code, "-", " ")), " ")

	m := courseCodePattern.FindStringSubmatch(code)
	if m == nil {
		return ""
	}
	return m[1] + " " + m[2]
}

// dayNames expands registrar single-letter meeting days.
var dayNames = map[rune]string{
	'M': "Mon", 'T': "Tue", 'W': "Wed", 'R': "Thu", 'F': "Fri",
}

// ExpandMeetingDays converts a compact registrar day string like "MWF"
// to "Mon, Wed, Fri". Strings that are not compact day codes pass
// through unchanged.
func ExpandMeetingDays(days string) string {
	if days == "" {
		return days
	}
	expanded := make([]string, 0, len(days))
	for _, r := range days {
		name, ok := dayNames[r]
		if !ok {
			return days
		}
		expanded = append(expanded, name)
	}
	return strings.Join(expanded, ", ")
}

// CandidateScore is the transient similarity-search result for one course.
type CandidateScore struct {
	// CourseID identifies the scored course.
	CourseID string `json:"course_id"`

	// Code is the normalized course code, carried for deterministic
	// tie-breaking and prompt assembly.
	Code string `json:"code"`

	// Similarity is the cosine similarity against the query vector, in
	// [-1, 1].
	Similarity float64 `json:"similarity"`

	// Eligible is set by the eligibility filter.
	Eligible bool `json:"eligible"`

	// Rank is the final position assigned after reranking (0-based).
	Rank int `json:"rank"`
}

// RecommendedCourse pairs a course with the rationale produced by the
// generative reranker. Rationale is empty on degraded results.
type RecommendedCourse struct {
	Course    Course `json:"course"`
	Rationale string `json:"rationale,omitempty"`
}

// RecommendationResult is the ordered outcome of one recommendation
// request.
type RecommendationResult struct {
	// Courses is ordered by final rank.
	Courses []RecommendedCourse `json:"courses"`

	// Advisory carries an informational message when eligibility
	// constraints were relaxed or the profile is missing key fields.
	// It never blocks results.
	Advisory string `json:"advisory,omitempty"`

	// Degraded is true when the generative rerank failed and the order
	// is pure similarity ranking.
	Degraded bool `json:"degraded"`

	// RelaxationApplied is true when the eligibility filter had to drop
	// constraints to produce a non-empty candidate set.
	RelaxationApplied bool `json:"relaxation_applied"`
}
