// Tiggy Advisor - Conversational Course Recommendation Engine
// Copyright 2026 Tiggy Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tiggyapp/advisor

package models

import (
	"hash/fnv"
	"sort"
	"strconv"
	"strings"
)

// UserProfile is the student profile used to personalize recommendations.
type UserProfile struct {
	// ID is the unique user identifier.
	ID string `json:"id"`

	// ClassYear is the student's graduating class, e.g. "2027".
	ClassYear string `json:"class_year,omitempty"`

	// Concentration is the declared major/department code, e.g. "COS".
	// Optional; empty when undeclared.
	Concentration string `json:"concentration,omitempty"`

	// CompletedCourses maps normalized course codes to the grade
	// received ("" when no grade is recorded).
	CompletedCourses map[string]string `json:"completed_courses,omitempty"`

	// RemainingDistributions lists distribution requirement codes the
	// student still needs to satisfy.
	RemainingDistributions []string `json:"remaining_distributions,omitempty"`

	// FavoriteClasses is informational only and never filters results.
	FavoriteClasses []string `json:"favorite_classes,omitempty"`
}

// HasCompleted reports whether the given course code (any accepted format)
// is in the completed set.
func (p *UserProfile) HasCompleted(code string) bool {
	normalized := NormalizeCourseCode(code)
	if normalized == "" {
		return false
	}
	_, ok := p.CompletedCourses[normalized]
	return ok
}

// Sparse reports whether the profile is missing the fields that matter
// most for recommendation quality. Sparse profiles still get results,
// plus an advisory to improve their data.
func (p *UserProfile) Sparse() bool {
	return p.Concentration == "" && len(p.CompletedCourses) == 0
}

// Fingerprint returns a stable hash over the recommendation-relevant
// profile fields plus an optional free-text query. Concurrent requests
// with the same fingerprint share one in-flight computation.
func (p *UserProfile) Fingerprint(query string) string {
	completed := make([]string, 0, len(p.CompletedCourses))
	for code := range p.CompletedCourses {
		completed = append(completed, code)
	}
	sort.Strings(completed)

	remaining := append([]string(nil), p.RemainingDistributions...)
	sort.Strings(remaining)

	h := fnv.New64a()
	for _, part := range []string{
		p.ID,
		p.ClassYear,
		strings.ToUpper(p.Concentration),
		strings.Join(completed, ","),
		strings.Join(remaining, ","),
		strings.TrimSpace(strings.ToLower(query)),
	} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return strconv.FormatUint(h.Sum64(), 16)
}
