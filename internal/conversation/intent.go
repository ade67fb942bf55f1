// Tiggy Advisor - Conversational Course Recommendation Engine
// Copyright 2026 Tiggy Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tiggyapp/advisor

package conversation

import (
	"strings"

	"github.com/tiggyapp/advisor/internal/models"
)

// Intent is the coarse classification of a chat message, used to decide
// what context gets injected into the prompt.
type Intent int

const (
	// IntentGeneral is small talk or anything not about courses.
	IntentGeneral Intent = iota

	// IntentSubject asks about a subject area ("any good computer
	// science classes?").
	IntentSubject

	// IntentRequirement asks about distribution requirements ("what
	// satisfies my QCR?").
	IntentRequirement

	// IntentCourse mentions courses without a clear subject or
	// requirement focus.
	IntentCourse
)

// Classification is the result of classifying one message.
type Classification struct {
	Intent Intent

	// Subject is the department code when Intent is IntentSubject.
	Subject string

	// Distribution is the normalized requirement code when Intent is
	// IntentRequirement.
	Distribution string
}

// CourseRelated reports whether course snippets should be injected for
// this message.
func (c Classification) CourseRelated() bool {
	return c.Intent != IntentGeneral
}

// subjectKeywords maps spoken subject names to department codes.
// Ordered so longer, more specific phrases match first and results are
// deterministic.
var subjectKeywords = []struct {
	keyword string
	dept    string
}{
	{"computer science", "COS"},
	{"neuroscience", "NEU"},
	{"programming", "COS"},
	{"mathematics", "MAT"},
	{"engineering", "EGR"},
	{"anthropology", "ANT"},
	{"psychology", "PSY"},
	{"philosophy", "PHI"},
	{"economics", "ECO"},
	{"chemistry", "CHM"},
	{"sociology", "SOC"},
	{"politics", "POL"},
	{"biology", "EEB"},
	{"physics", "PHY"},
	{"history", "HIS"},
	{"english", "ENG"},
	{"music", "MUS"},
	{"math", "MAT"},
	{"art", "ART"},
}

// distributionCodes is the set of valid distribution requirement codes.
var distributionCodes = map[string]bool{
	"CD": true, "EC": true, "EM": true, "HA": true,
	"LA": true, "QCR": true, "SEL": true, "SEN": true, "SA": true,
}

// distributionAliases maps legacy and spoken variants onto canonical
// codes.
var distributionAliases = map[string]string{
	"STL": "SEL",
	"STN": "SEN",
	"QR":  "QCR",
}

// distributionKeywords maps requirement phrases onto canonical codes.
var distributionKeywords = []struct {
	keyword string
	code    string
}{
	{"culture and difference", "CD"},
	{"epistemology", "EC"},
	{"ethical thought", "EM"},
	{"moral values", "EM"},
	{"historical analysis", "HA"},
	{"literature and the arts", "LA"},
	{"quantitative", "QCR"},
	{"computational reasoning", "QCR"},
	{"science and engineering", "SEL"},
	{"social analysis", "SA"},
}

// courseWords are generic signals that a message is about courses.
var courseWords = []string{
	"course", "class", "classes", "take next", "recommend",
	"semester", "enroll", "prerequisite", "credits",
}

// NormalizeDistribution canonicalizes a distribution code, resolving
// aliases. Returns "" for unknown codes.
func NormalizeDistribution(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if canonical, ok := distributionAliases[code]; ok {
		return canonical
	}
	if distributionCodes[code] {
		return code
	}
	return ""
}

// Classify determines the intent of a chat message. A subject-area
// match takes priority over a requirement match, so "history courses
// for my HA requirement" is treated as a subject question.
func Classify(message string) Classification {
	lower := strings.ToLower(message)

	for _, sk := range subjectKeywords {
		if containsPhrase(lower, sk.keyword) {
			return Classification{Intent: IntentSubject, Subject: sk.dept}
		}
	}

	for _, dk := range distributionKeywords {
		if containsPhrase(lower, dk.keyword) {
			return Classification{Intent: IntentRequirement, Distribution: dk.code}
		}
	}
	// Explicit codes like "QCR" or the legacy "STL".
	for _, word := range strings.FieldsFunc(strings.ToUpper(message), func(r rune) bool {
		return r < 'A' || r > 'Z'
	}) {
		if code := NormalizeDistribution(word); code != "" {
			return Classification{Intent: IntentRequirement, Distribution: code}
		}
	}

	if models.NormalizeCourseCode(firstCodeCandidate(message)) != "" {
		return Classification{Intent: IntentCourse}
	}
	for _, word := range courseWords {
		if containsPhrase(lower, word) {
			return Classification{Intent: IntentCourse}
		}
	}

	return Classification{Intent: IntentGeneral}
}

// containsPhrase reports whether phrase occurs in text on word
// boundaries, so "art" does not match inside "department".
func containsPhrase(text, phrase string) bool {
	clean := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		return ' '
	}, text)
	return strings.Contains(" "+strings.Join(strings.Fields(clean), " ")+" ", " "+phrase+" ")
}

// firstCodeCandidate extracts the first token pair that could be a
// course code, e.g. "COS 126" out of "is COS 126 hard?".
func firstCodeCandidate(message string) string {
	fields := strings.Fields(message)
	for i := range fields {
		if i+1 < len(fields) {
			if code := models.NormalizeCourseCode(fields[i] + " " + fields[i+1]); code != "" {
				return code
			}
		}
		if code := models.NormalizeCourseCode(fields[i]); code != "" {
			return code
		}
	}
	return ""
}
