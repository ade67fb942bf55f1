// Tiggy Advisor - Conversational Course Recommendation Engine
// Copyright 2026 Tiggy Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tiggyapp/advisor

package recommend

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tiggyapp/advisor/internal/catalog"
	"github.com/tiggyapp/advisor/internal/genai"
	"github.com/tiggyapp/advisor/internal/logging"
	"github.com/tiggyapp/advisor/internal/models"
)

// ErrInvalidRerank is returned when the generation service keeps
// producing responses that fail structural validation.
var ErrInvalidRerank = errors.New("recommend: invalid rerank response")

// Reranker asks the generation service to order eligible candidates
// and attach a one-sentence rationale to each. Responses that fail
// validation are retried a bounded number of times.
type Reranker struct {
	client  genai.Client
	retries int
}

// NewReranker creates a reranker with the given retry budget for
// malformed responses.
func NewReranker(client genai.Client, retries int) *Reranker {
	return &Reranker{client: client, retries: retries}
}

// rankedCourse is one entry of a parsed rerank response.
type rankedCourse struct {
	Code      string `json:"code"`
	Rationale string `json:"rationale"`
}

// Rerank returns at most limit courses in the model's preferred order.
// Every returned code is guaranteed to come from the candidate list,
// with no duplicates. Transport errors and persistent validation
// failures surface as errors; the engine then falls back to similarity
// order.
func (r *Reranker) Rerank(ctx context.Context, snap *catalog.Snapshot, candidates []models.CandidateScore, profile *models.UserProfile, query string, limit int) ([]models.RecommendedCourse, error) {
	messages := buildRerankMessages(snap, candidates, profile, query, limit)

	allowed := make(map[string]string, len(candidates)) // code -> course ID
	for _, cand := range candidates {
		allowed[cand.Code] = cand.CourseID
	}

	var lastErr error
	for attempt := 0; attempt <= r.retries; attempt++ {
		raw, err := r.client.Complete(ctx, genai.CompletionRequest{
			Messages:    messages,
			Temperature: 0.2,
			JSONMode:    true,
		})
		if err != nil {
			return nil, err
		}

		ranked, err := validateRanked(parseRecommendations(raw), allowed, limit)
		if err == nil {
			return resolveCourses(snap, ranked, allowed), nil
		}

		lastErr = err
		logging.Warn().
			Err(err).
			Int("attempt", attempt+1).
			Msg("rerank response failed validation")
	}

	return nil, fmt.Errorf("%w: %v", ErrInvalidRerank, lastErr)
}

// validateRanked enforces the structural contract: non-empty, codes
// drawn from the candidate set, no duplicates. Entries beyond limit are
// dropped.
func validateRanked(ranked []rankedCourse, allowed map[string]string, limit int) ([]rankedCourse, error) {
	if len(ranked) == 0 {
		return nil, errors.New("no course codes found")
	}

	seen := make(map[string]bool, len(ranked))
	out := make([]rankedCourse, 0, limit)
	for _, rc := range ranked {
		code := models.NormalizeCourseCode(rc.Code)
		if code == "" {
			return nil, fmt.Errorf("unparseable course code %q", rc.Code)
		}
		if _, ok := allowed[code]; !ok {
			return nil, fmt.Errorf("course %s not in candidate set", code)
		}
		if seen[code] {
			return nil, fmt.Errorf("duplicate course %s", code)
		}
		seen[code] = true

		rc.Code = code
		out = append(out, rc)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// resolveCourses maps validated entries back to full course records.
func resolveCourses(snap *catalog.Snapshot, ranked []rankedCourse, allowed map[string]string) []models.RecommendedCourse {
	out := make([]models.RecommendedCourse, 0, len(ranked))
	for _, rc := range ranked {
		course, ok := snap.Course(allowed[rc.Code])
		if !ok {
			continue
		}
		out = append(out, models.RecommendedCourse{
			Course:    *course,
			Rationale: strings.TrimSpace(rc.Rationale),
		})
	}
	return out
}

// looseCodePattern finds course codes anywhere in free text, used as a
// fallback when the response is not the requested JSON.
var looseCodePattern = regexp.MustCompile(`\b([A-Z]{2,4})[\s-]?(\d{3}[A-Z]?)\b`)

// parseRecommendations extracts ranked courses from a model response.
// It tries the requested JSON shape first, then any recognizable JSON
// list, and finally falls back to scanning the text for course codes.
func parseRecommendations(raw string) []rankedCourse {
	raw = strings.TrimSpace(raw)

	// Models sometimes wrap JSON in a markdown fence despite JSON mode.
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSuffix(strings.TrimSpace(raw), "```")
		raw = strings.TrimSpace(raw)
	}

	if ranked := parseJSONRecommendations(raw); len(ranked) > 0 {
		return ranked
	}

	// Fallback: pull course codes out of the prose, preserving order.
	var out []rankedCourse
	seen := make(map[string]bool)
	for _, m := range looseCodePattern.FindAllStringSubmatch(raw, -1) {
		code := m[1] + " " + m[2]
		if seen[code] {
			continue
		}
		seen[code] = true
		out = append(out, rankedCourse{Code: code})
	}
	return out
}

// parseJSONRecommendations handles the JSON response shapes the model
// produces: the requested {"recommendations":[...]}, sibling key names,
// or a bare list. List items may be objects or plain code strings.
func parseJSONRecommendations(raw string) []rankedCourse {
	var root interface{}
	if err := json.Unmarshal([]byte(raw), &root); err != nil {
		return nil
	}

	var list []interface{}
	switch v := root.(type) {
	case []interface{}:
		list = v
	case map[string]interface{}:
		for _, key := range []string{"recommendations", "courses", "course_codes"} {
			if items, ok := v[key].([]interface{}); ok {
				list = items
				break
			}
		}
		if list == nil {
			// Any list-valued field as a last resort.
			for _, val := range v {
				if items, ok := val.([]interface{}); ok {
					list = items
					break
				}
			}
		}
	}

	out := make([]rankedCourse, 0, len(list))
	for _, item := range list {
		switch it := item.(type) {
		case string:
			out = append(out, rankedCourse{Code: it})
		case map[string]interface{}:
			rc := rankedCourse{}
			if code, ok := it["code"].(string); ok {
				rc.Code = code
			} else if code, ok := it["course_code"].(string); ok {
				rc.Code = code
			}
			if rationale, ok := it["rationale"].(string); ok {
				rc.Rationale = rationale
			} else if reason, ok := it["reason"].(string); ok {
				rc.Rationale = reason
			}
			if rc.Code != "" {
				out = append(out, rc)
			}
		}
	}
	return out
}
