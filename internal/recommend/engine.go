// Tiggy Advisor - Conversational Course Recommendation Engine
// Copyright 2026 Tiggy Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tiggyapp/advisor

// Package recommend implements the course recommendation engine:
// similarity retrieval over the embedding index, eligibility filtering,
// generative reranking with rationale text, and single-flight
// coalescing of identical concurrent requests.
package recommend

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/tiggyapp/advisor/internal/catalog"
	"github.com/tiggyapp/advisor/internal/config"
	"github.com/tiggyapp/advisor/internal/eligibility"
	"github.com/tiggyapp/advisor/internal/embedding"
	"github.com/tiggyapp/advisor/internal/genai"
	"github.com/tiggyapp/advisor/internal/logging"
	"github.com/tiggyapp/advisor/internal/metrics"
	"github.com/tiggyapp/advisor/internal/models"
)

// Request is one recommendation request.
type Request struct {
	// Profile is the requesting student's profile. Required.
	Profile *models.UserProfile

	// Query is an optional free-text interest, e.g. from a chat
	// message. Empty means "recommend from my profile".
	Query string

	// Limit overrides the configured recommendation count when in
	// (0, MaxRecommendations].
	Limit int
}

// Engine composes the recommendation pipeline. Identical concurrent
// requests (same user, same profile fingerprint) share one in-flight
// computation.
type Engine struct {
	cache    *catalog.Cache
	index    *embedding.Index
	filter   *eligibility.Filter
	client   genai.Client
	reranker *Reranker
	cfg      config.RecommendConfig
	searchK  int

	group singleflight.Group

	// recent holds completed results for cfg.CoalesceWindow so a burst
	// of identical requests outlasting the in-flight window still shares
	// one computation. Zero window disables the hold.
	mu     sync.Mutex
	recent map[string]heldResult
}

type heldResult struct {
	result  *models.RecommendationResult
	expires time.Time
}

// computeTimeout bounds one detached pipeline run so an abandoned
// computation cannot run forever.
const computeTimeout = 2 * time.Minute

// NewEngine creates a recommendation engine.
func NewEngine(cache *catalog.Cache, index *embedding.Index, client genai.Client, cfg config.RecommendConfig, searchK int) *Engine {
	return &Engine{
		cache:    cache,
		index:    index,
		filter:   eligibility.NewFilter(),
		client:   client,
		reranker: NewReranker(client, cfg.RerankRetries),
		cfg:      cfg,
		searchK:  searchK,
		recent:   make(map[string]heldResult),
	}
}

// Recommend produces an ordered, personalized course list. A failing
// or degraded generation service never fails the request: the result
// falls back to similarity order with Degraded set.
func (e *Engine) Recommend(ctx context.Context, req Request) (*models.RecommendationResult, error) {
	if req.Profile == nil {
		return nil, errors.New("recommend: profile required")
	}

	limit := req.Limit
	if limit <= 0 || limit > e.cfg.MaxRecommendations {
		limit = e.cfg.MaxRecommendations
	}

	key := fmt.Sprintf("%s:%s:%d", req.Profile.ID, req.Profile.Fingerprint(req.Query), limit)
	if res := e.held(key); res != nil {
		metrics.RecommendationsCoalesced.Inc()
		return res, nil
	}

	ch := e.group.DoChan(key, func() (interface{}, error) {
		// The computation is shared by every coalesced caller, so it
		// must not die with the one that happened to initiate it.
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), computeTimeout)
		defer cancel()
		return e.compute(cctx, req, limit)
	})

	select {
	case <-ctx.Done():
		// The computation keeps running for any sharers; give its
		// result a brief grace to arrive before giving up.
		select {
		case r := <-ch:
			if r.Err == nil {
				return r.Val.(*models.RecommendationResult), nil
			}
		case <-time.After(100 * time.Millisecond):
		}
		return nil, ctx.Err()
	case r := <-ch:
		if r.Shared {
			metrics.RecommendationsCoalesced.Inc()
		}
		if r.Err != nil {
			metrics.Recommendations.WithLabelValues("error").Inc()
			return nil, r.Err
		}
		res := r.Val.(*models.RecommendationResult)
		e.hold(key, res)
		return res, nil
	}
}

// held returns a recent result for key, or nil.
func (e *Engine) held(key string) *models.RecommendationResult {
	if e.cfg.CoalesceWindow <= 0 {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	h, ok := e.recent[key]
	if !ok {
		return nil
	}
	if time.Now().After(h.expires) {
		delete(e.recent, key)
		return nil
	}
	return h.result
}

func (e *Engine) hold(key string, res *models.RecommendationResult) {
	if e.cfg.CoalesceWindow <= 0 {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.recent) >= 256 {
		now := time.Now()
		for k, h := range e.recent {
			if now.After(h.expires) {
				delete(e.recent, k)
			}
		}
	}
	e.recent[key] = heldResult{result: res, expires: time.Now().Add(e.cfg.CoalesceWindow)}
}

// compute runs the full pipeline once per coalescing key.
func (e *Engine) compute(ctx context.Context, req Request, limit int) (*models.RecommendationResult, error) {
	snap, err := e.cache.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	queryVec, err := e.client.Embed(ctx, buildQueryText(req.Profile, req.Query))
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	candidates, err := e.index.Search(queryVec, e.searchK)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}
	if len(candidates) == 0 {
		return &models.RecommendationResult{}, nil
	}

	filtered := e.filter.Apply(snap, candidates, req.Profile)

	result := &models.RecommendationResult{
		Advisory:          filtered.Advisory,
		RelaxationApplied: filtered.RelaxationApplied,
	}

	ranked, err := e.reranker.Rerank(ctx, snap, filtered.Candidates, req.Profile, req.Query, limit)
	if err != nil {
		logger := logging.Ctx(ctx)
		logger.Warn().Err(err).Msg("rerank unavailable, falling back to similarity order")
		result.Courses = similarityFallback(snap, filtered.Candidates, limit)
		result.Degraded = true
		metrics.Recommendations.WithLabelValues("degraded").Inc()
		return result, nil
	}

	result.Courses = ranked
	metrics.Recommendations.WithLabelValues("reranked").Inc()
	return result, nil
}

// similarityFallback takes the top candidates in similarity order
// without rationales.
func similarityFallback(snap *catalog.Snapshot, candidates []models.CandidateScore, limit int) []models.RecommendedCourse {
	if limit > len(candidates) {
		limit = len(candidates)
	}
	out := make([]models.RecommendedCourse, 0, limit)
	for _, cand := range candidates[:limit] {
		course, ok := snap.Course(cand.CourseID)
		if !ok {
			continue
		}
		out = append(out, models.RecommendedCourse{Course: *course})
	}
	return out
}

// buildQueryText derives the embedding query from the free-text query
// when present, otherwise from the profile's interest signals.
func buildQueryText(profile *models.UserProfile, query string) string {
	if strings.TrimSpace(query) != "" {
		return strings.TrimSpace(query)
	}

	var parts []string
	if profile.Concentration != "" {
		parts = append(parts, "courses related to a "+profile.Concentration+" concentration")
	}
	if len(profile.FavoriteClasses) > 0 {
		parts = append(parts, "similar to "+strings.Join(profile.FavoriteClasses, ", "))
	}
	if len(profile.RemainingDistributions) > 0 {
		parts = append(parts, "satisfying "+strings.Join(profile.RemainingDistributions, ", ")+" distribution requirements")
	}
	if len(parts) == 0 {
		return "broadly popular introductory courses across departments"
	}
	return strings.Join(parts, ", ")
}
