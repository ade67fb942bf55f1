// Tiggy Advisor - Conversational Course Recommendation Engine
// Copyright 2026 Tiggy Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tiggyapp/advisor

// Package eligibility filters recommendation candidates against a
// student profile. Constraints are applied as a relaxation ladder so
// the filter never empties the candidate set: completed courses are
// dropped first, then distribution preferences are applied, and each
// constraint is relaxed in turn if it would leave nothing to recommend.
package eligibility

import (
	"github.com/tiggyapp/advisor/internal/catalog"
	"github.com/tiggyapp/advisor/internal/logging"
	"github.com/tiggyapp/advisor/internal/metrics"
	"github.com/tiggyapp/advisor/internal/models"
)

// AdvisorySparseProfile is shown when the profile has no completed
// courses to personalize against.
const AdvisorySparseProfile = "To get more personalized recommendations, please add your past courses in the Settings page. In the meantime, here are some broadly popular courses you might enjoy."

// AdvisoryRelaxed is shown when distribution preferences had to be
// relaxed to produce results.
const AdvisoryRelaxed = "None of the best matches satisfy your remaining distribution requirements, so these are ranked on fit with your interests alone."

// Result is the outcome of one filter application.
type Result struct {
	// Candidates is the surviving candidate list, in input order.
	Candidates []models.CandidateScore

	// RelaxationApplied is true when a constraint was dropped to keep
	// the candidate set non-empty.
	RelaxationApplied bool

	// Advisory is an informational message for the student, or "".
	Advisory string
}

// Filter applies profile constraints to similarity candidates.
type Filter struct{}

// NewFilter creates an eligibility filter.
func NewFilter() *Filter {
	return &Filter{}
}

// Apply filters candidates for the given profile, consulting the
// snapshot for course attributes. A non-empty input always yields a
// non-empty output; constraints are relaxed before the set can become
// empty. Relative candidate order is preserved at every rung.
func (f *Filter) Apply(snap *catalog.Snapshot, candidates []models.CandidateScore, profile *models.UserProfile) Result {
	if len(candidates) == 0 {
		return Result{}
	}

	// Rung 1: drop courses the student already completed.
	notCompleted := make([]models.CandidateScore, 0, len(candidates))
	for _, cand := range candidates {
		if profile != nil && profile.HasCompleted(cand.Code) {
			continue
		}
		notCompleted = append(notCompleted, cand)
	}

	if len(notCompleted) == 0 {
		// Every candidate is already completed. Return the unfiltered
		// set rather than nothing.
		metrics.EligibilityRelaxations.WithLabelValues("unfiltered").Inc()
		logging.Debug().
			Int("candidates", len(candidates)).
			Msg("all candidates completed, returning unfiltered set")
		return Result{
			Candidates:        markEligible(candidates),
			RelaxationApplied: true,
			Advisory:          AdvisoryRelaxed,
		}
	}

	result := Result{Candidates: markEligible(notCompleted)}

	// Rung 2: prefer courses satisfying a remaining distribution
	// requirement, when the profile declares any.
	if profile != nil && len(profile.RemainingDistributions) > 0 {
		matching := make([]models.CandidateScore, 0, len(notCompleted))
		for _, cand := range notCompleted {
			course, ok := snap.Course(cand.CourseID)
			if ok && course.SatisfiesAny(profile.RemainingDistributions) {
				matching = append(matching, cand)
			}
		}

		if len(matching) > 0 {
			result.Candidates = markEligible(matching)
		} else {
			// Rung 3: relax the distribution constraint.
			metrics.EligibilityRelaxations.WithLabelValues("distribution").Inc()
			result.RelaxationApplied = true
			result.Advisory = AdvisoryRelaxed
		}
	}

	if profile != nil && profile.Sparse() && result.Advisory == "" {
		result.Advisory = AdvisorySparseProfile
	}

	return result
}

// markEligible copies candidates with the Eligible flag set, leaving
// the input untouched.
func markEligible(candidates []models.CandidateScore) []models.CandidateScore {
	out := make([]models.CandidateScore, len(candidates))
	for i, cand := range candidates {
		cand.Eligible = true
		out[i] = cand
	}
	return out
}
