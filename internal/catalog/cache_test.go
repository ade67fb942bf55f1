// Tiggy Advisor - Conversational Course Recommendation Engine
// Copyright 2026 Tiggy Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tiggyapp/advisor

package catalog

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tiggyapp/advisor/internal/models"
)

// fakeCourseStore is a CourseStore returning a fixed list, optionally
// failing.
type fakeCourseStore struct {
	mu      sync.Mutex
	courses []models.Course
	err     error
	calls   int
}

func (f *fakeCourseStore) ListCourses(ctx context.Context) ([]models.Course, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return append([]models.Course(nil), f.courses...), nil
}

func (f *fakeCourseStore) ReplaceCourses(ctx context.Context, courses []models.Course) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.courses = courses
	return nil
}

func (f *fakeCourseStore) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func testCourses() []models.Course {
	return []models.Course{
		{ID: "1", Code: "COS 126", Title: "Computer Science"},
		{ID: "2", Code: "HIS 201", Title: "World History"},
	}
}

func TestSnapshotInitialLoad(t *testing.T) {
	src := &fakeCourseStore{courses: testCourses()}
	cache := NewCache(src, time.Minute, nil)

	snap, err := cache.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.Len() != 2 {
		t.Errorf("Len = %d, want 2", snap.Len())
	}
	if _, ok := snap.Course("1"); !ok {
		t.Error("Course(1) not found")
	}
	if c, ok := snap.CourseByCode("cos-126"); !ok || c.ID != "1" {
		t.Errorf("CourseByCode(cos-126) = %v, %v", c, ok)
	}
}

func TestSnapshotImmutableAcrossRefresh(t *testing.T) {
	src := &fakeCourseStore{courses: testCourses()}
	cache := NewCache(src, time.Minute, nil)
	ctx := context.Background()

	first, err := cache.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	src.courses = testCourses()[:1]
	if err := cache.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	// The held snapshot must keep its original contents.
	if first.Len() != 2 {
		t.Errorf("held snapshot Len = %d, want 2", first.Len())
	}

	second, err := cache.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot (second): %v", err)
	}
	if second.Len() != 1 {
		t.Errorf("new snapshot Len = %d, want 1", second.Len())
	}
	if first.ID == second.ID {
		t.Error("snapshot ID unchanged across refresh")
	}
}

func TestStaleSnapshotServedOnRefreshFailure(t *testing.T) {
	src := &fakeCourseStore{courses: testCourses()}
	cache := NewCache(src, time.Nanosecond, nil)
	ctx := context.Background()

	if _, err := cache.Snapshot(ctx); err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	// Source now fails; the TTL has long expired.
	src.setErr(errors.New("feed down"))
	time.Sleep(time.Millisecond)

	snap, err := cache.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot (stale): %v", err)
	}
	if snap.Len() != 2 {
		t.Errorf("stale snapshot Len = %d, want 2", snap.Len())
	}
	if !cache.Stale() {
		t.Error("Stale() = false, want true")
	}
}

func TestRefreshPublishesEvent(t *testing.T) {
	pubsub := NewPubSub()
	defer pubsub.Close()

	msgs, err := pubsub.Subscribe(context.Background(), TopicRefreshed)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	src := &fakeCourseStore{courses: testCourses()}
	cache := NewCache(src, time.Minute, pubsub)

	if err := cache.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	select {
	case msg := <-msgs:
		msg.Ack()
	case <-time.After(2 * time.Second):
		t.Fatal("no refresh event received")
	}
}
