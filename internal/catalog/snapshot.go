// Tiggy Advisor - Conversational Course Recommendation Engine
// Copyright 2026 Tiggy Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tiggyapp/advisor

// Package catalog maintains the in-memory course catalog cache: an
// immutable snapshot refreshed from the course store on a TTL, swapped
// atomically so readers never block on refreshes.
package catalog

import (
	"time"

	"github.com/tiggyapp/advisor/internal/models"
)

// Snapshot is an immutable view of the course catalog. Readers holding
// a snapshot keep a consistent view even while a refresh swaps in a
// newer one.
type Snapshot struct {
	// ID uniquely identifies this snapshot generation.
	ID string

	// Courses holds every course of the term.
	Courses []models.Course

	// CreatedAt is when this snapshot was built.
	CreatedAt time.Time

	byID   map[string]*models.Course
	byCode map[string]*models.Course
}

// newSnapshot builds the lookup maps for a course list. The slice is
// owned by the snapshot afterwards and must not be mutated.
func newSnapshot(id string, courses []models.Course, createdAt time.Time) *Snapshot {
	s := &Snapshot{
		ID:        id,
		Courses:   courses,
		CreatedAt: createdAt,
		byID:      make(map[string]*models.Course, len(courses)),
		byCode:    make(map[string]*models.Course, len(courses)),
	}
	for i := range courses {
		c := &courses[i]
		s.byID[c.ID] = c
		s.byCode[c.Code] = c
	}
	return s
}

// Course returns the course with the given ID.
func (s *Snapshot) Course(id string) (*models.Course, bool) {
	c, ok := s.byID[id]
	return c, ok
}

// CourseByCode returns the course with the given normalized code.
func (s *Snapshot) CourseByCode(code string) (*models.Course, bool) {
	c, ok := s.byCode[models.NormalizeCourseCode(code)]
	return c, ok
}

// Len returns the number of courses in the snapshot.
func (s *Snapshot) Len() int {
	return len(s.Courses)
}

// Age returns how old the snapshot is.
func (s *Snapshot) Age() time.Duration {
	return time.Since(s.CreatedAt)
}
