// Tiggy Advisor - Conversational Course Recommendation Engine
// Copyright 2026 Tiggy Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tiggyapp/advisor

// Package metrics provides Prometheus instrumentation for the advisor
// engine: catalog staleness, index size, generation-client behaviour
// (latency, retries, circuit breaker state), and recommendation outcomes.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Catalog cache metrics

	// CatalogAge tracks the age of the active catalog snapshot in
	// seconds. Rises past the TTL when refreshes fail.
	CatalogAge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "advisor_catalog_snapshot_age_seconds",
			Help: "Age of the active course catalog snapshot in seconds",
		},
	)

	// CatalogSize is the number of courses in the active snapshot.
	CatalogSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "advisor_catalog_courses",
			Help: "Number of courses in the active catalog snapshot",
		},
	)

	// CatalogRefreshes counts refresh attempts by outcome.
	CatalogRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "advisor_catalog_refreshes_total",
			Help: "Total catalog refresh attempts",
		},
		[]string{"result"}, // "success", "failure"
	)

	// CatalogStale is 1 while the active snapshot is older than the TTL.
	CatalogStale = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "advisor_catalog_stale",
			Help: "1 when the active catalog snapshot is older than its TTL",
		},
	)

	// Embedding index metrics

	// IndexSize is the number of searchable course vectors.
	IndexSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "advisor_embedding_index_vectors",
			Help: "Number of course vectors in the embedding index",
		},
	)

	// IndexExcluded counts courses excluded from the index for missing
	// or mis-dimensioned embeddings.
	IndexExcluded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "advisor_embedding_index_excluded_total",
			Help: "Courses excluded from the index due to missing embeddings",
		},
	)

	// Generation client metrics

	// GenerationDuration measures external generation call latency.
	GenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "advisor_generation_duration_seconds",
			Help:    "Duration of external generation service calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"}, // "complete", "embed"
	)

	// GenerationRetries counts retry attempts by reason.
	GenerationRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "advisor_generation_retries_total",
			Help: "Total generation call retries",
		},
		[]string{"reason"}, // "timeout", "rate_limited", "server_error"
	)

	// CircuitBreakerState reports the breaker state (0=closed,
	// 1=half-open, 2=open).
	CircuitBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "advisor_generation_breaker_state",
			Help: "Generation circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)

	// CircuitBreakerTransitions counts breaker state changes.
	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "advisor_generation_breaker_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"from", "to"},
	)

	// Recommendation metrics

	// Recommendations counts recommendation requests by outcome.
	Recommendations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "advisor_recommendations_total",
			Help: "Total recommendation requests",
		},
		[]string{"outcome"}, // "reranked", "degraded", "error"
	)

	// RecommendationsCoalesced counts requests served by a shared
	// in-flight computation.
	RecommendationsCoalesced = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "advisor_recommendations_coalesced_total",
			Help: "Recommendation requests coalesced into a shared computation",
		},
	)

	// EligibilityRelaxations counts relaxation ladder activations by
	// rung.
	EligibilityRelaxations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "advisor_eligibility_relaxations_total",
			Help: "Eligibility filter relaxations applied",
		},
		[]string{"rung"}, // "distribution", "unfiltered"
	)

	// HTTP metrics

	// HTTPRequestDuration measures handler latency by route and status.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "advisor_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method", "status"},
	)
)
