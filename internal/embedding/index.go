// Tiggy Advisor - Conversational Course Recommendation Engine
// Copyright 2026 Tiggy Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tiggyapp/advisor

// Package embedding provides the in-memory course similarity index:
// unit-normalized vectors searched by cosine similarity, rebuilt
// atomically whenever the catalog refreshes.
package embedding

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync/atomic"

	"github.com/tiggyapp/advisor/internal/catalog"
	"github.com/tiggyapp/advisor/internal/logging"
	"github.com/tiggyapp/advisor/internal/metrics"
	"github.com/tiggyapp/advisor/internal/models"
)

// ErrDimensionMismatch is returned when a query vector does not match
// the index dimension.
var ErrDimensionMismatch = errors.New("embedding: query dimension mismatch")

// ErrZeroVector is returned for queries with zero magnitude, which have
// no cosine direction.
var ErrZeroVector = errors.New("embedding: zero query vector")

type entry struct {
	courseID string
	code     string
	vec      []float32 // unit-normalized
}

type indexState struct {
	snapshotID string
	entries    []entry
}

// Index is a brute-force cosine similarity index over course
// embeddings. Rebuilds swap the whole state atomically, so searches
// always see a consistent vector set and never block on a rebuild.
type Index struct {
	dimension int
	state     atomic.Pointer[indexState]
}

// NewIndex creates an empty index requiring vectors of the given
// dimension.
func NewIndex(dimension int) *Index {
	ix := &Index{dimension: dimension}
	ix.state.Store(&indexState{})
	return ix
}

// Rebuild replaces the index contents from a catalog snapshot. Courses
// with a missing or mis-dimensioned embedding are excluded and logged;
// they remain in the catalog and can still be recommended by code.
func (ix *Index) Rebuild(snap *catalog.Snapshot) {
	entries := make([]entry, 0, len(snap.Courses))
	excluded := 0

	for i := range snap.Courses {
		c := &snap.Courses[i]
		if len(c.Embedding) != ix.dimension {
			excluded++
			metrics.IndexExcluded.Inc()
			logging.Debug().
				Str("course", c.Code).
				Int("dimension", len(c.Embedding)).
				Msg("course excluded from similarity index")
			continue
		}

		vec, ok := normalize(c.Embedding)
		if !ok {
			excluded++
			metrics.IndexExcluded.Inc()
			logging.Debug().Str("course", c.Code).Msg("course has zero embedding, excluded")
			continue
		}

		entries = append(entries, entry{courseID: c.ID, code: c.Code, vec: vec})
	}

	// Pre-sort by code so equal-similarity results come out in code
	// order without a multi-key comparison per search.
	sort.Slice(entries, func(i, j int) bool { return entries[i].code < entries[j].code })

	ix.state.Store(&indexState{snapshotID: snap.ID, entries: entries})
	metrics.IndexSize.Set(float64(len(entries)))

	logging.Info().
		Str("snapshot_id", snap.ID).
		Int("vectors", len(entries)).
		Int("excluded", excluded).
		Msg("similarity index rebuilt")
}

// Size returns the number of searchable vectors.
func (ix *Index) Size() int {
	return len(ix.state.Load().entries)
}

// SnapshotID returns the catalog snapshot the index was built from.
func (ix *Index) SnapshotID() string {
	return ix.state.Load().snapshotID
}

// Search returns the k nearest courses to the query by cosine
// similarity, ordered by descending similarity with ties broken by
// ascending course code. The result is deterministic for identical
// index contents and query. Fewer than k results are returned when the
// index is smaller than k.
func (ix *Index) Search(query []float32, k int) ([]models.CandidateScore, error) {
	if len(query) != ix.dimension {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(query), ix.dimension)
	}
	q, ok := normalize(query)
	if !ok {
		return nil, ErrZeroVector
	}

	state := ix.state.Load()
	scored := make([]models.CandidateScore, 0, len(state.entries))
	for i := range state.entries {
		e := &state.entries[i]
		scored = append(scored, models.CandidateScore{
			CourseID:   e.courseID,
			Code:       e.code,
			Similarity: dot(q, e.vec),
		})
	}

	// Entries are code-sorted, so the stable sort leaves ties in
	// ascending code order.
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Similarity > scored[j].Similarity
	})

	if k > len(scored) {
		k = len(scored)
	}
	return scored[:k], nil
}

// normalize returns a unit-length copy of v, or false when v has zero
// magnitude.
func normalize(v []float32) ([]float32, bool) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return nil, false
	}
	norm := math.Sqrt(sum)

	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out, true
}

// dot computes the inner product of two unit vectors, i.e. their cosine
// similarity.
func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
