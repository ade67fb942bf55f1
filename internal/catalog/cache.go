// Tiggy Advisor - Conversational Course Recommendation Engine
// Copyright 2026 Tiggy Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tiggyapp/advisor

package catalog

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tiggyapp/advisor/internal/logging"
	"github.com/tiggyapp/advisor/internal/metrics"
	"github.com/tiggyapp/advisor/internal/models"
	"github.com/tiggyapp/advisor/internal/store"
)

// Cache serves immutable catalog snapshots with a TTL. Stale snapshots
// keep serving while a background refresh runs (stale-while-revalidate);
// when a refresh fails, the previous snapshot stays active.
type Cache struct {
	source    store.CourseStore
	ttl       time.Duration
	publisher message.Publisher

	current    atomic.Pointer[Snapshot]
	refreshing atomic.Bool
}

// NewCache creates a catalog cache. The publisher may be nil, in which
// case refresh events are not emitted.
func NewCache(source store.CourseStore, ttl time.Duration, publisher message.Publisher) *Cache {
	return &Cache{
		source:    source,
		ttl:       ttl,
		publisher: publisher,
	}
}

// Snapshot returns the active snapshot. When none has been loaded yet,
// it refreshes synchronously; when the active one is past the TTL, it
// returns the stale snapshot immediately and refreshes in the
// background. Requests never wait on a refresh of an existing snapshot.
func (c *Cache) Snapshot(ctx context.Context) (*Snapshot, error) {
	snap := c.current.Load()
	if snap == nil {
		if err := c.Refresh(ctx); err != nil {
			return nil, fmt.Errorf("initial catalog load: %w", err)
		}
		return c.current.Load(), nil
	}

	if snap.Age() > c.ttl {
		metrics.CatalogStale.Set(1)
		c.refreshAsync()
	}
	metrics.CatalogAge.Set(snap.Age().Seconds())

	return snap, nil
}

// refreshAsync starts a background refresh unless one is already
// running.
func (c *Cache) refreshAsync() {
	if !c.refreshing.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer c.refreshing.Store(false)

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := c.Refresh(ctx); err != nil {
			// Keep serving the stale snapshot.
			logging.Error().Err(err).Msg("background catalog refresh failed, serving stale snapshot")
		}
	}()
}

// Refresh loads the catalog from the store, builds a new snapshot and
// swaps it in atomically. On failure the active snapshot is untouched.
func (c *Cache) Refresh(ctx context.Context) error {
	courses, err := c.source.ListCourses(ctx)
	if err != nil {
		metrics.CatalogRefreshes.WithLabelValues("failure").Inc()
		return fmt.Errorf("list courses: %w", err)
	}

	snap := newSnapshot(uuid.New().String(), courses, time.Now().UTC())
	c.current.Store(snap)

	metrics.CatalogRefreshes.WithLabelValues("success").Inc()
	metrics.CatalogSize.Set(float64(snap.Len()))
	metrics.CatalogAge.Set(0)
	metrics.CatalogStale.Set(0)

	logging.Info().
		Str("snapshot_id", snap.ID).
		Int("courses", snap.Len()).
		Msg("catalog snapshot refreshed")

	c.publishRefreshed(snap)
	return nil
}

// publishRefreshed emits a RefreshedEvent for the new snapshot.
func (c *Cache) publishRefreshed(snap *Snapshot) {
	if c.publisher == nil {
		return
	}

	payload, err := json.Marshal(RefreshedEvent{
		SnapshotID:  snap.ID,
		Courses:     snap.Len(),
		RefreshedAt: snap.CreatedAt,
	})
	if err != nil {
		logging.Error().Err(err).Msg("marshal refresh event")
		return
	}

	msg := message.NewMessage(uuid.New().String(), payload)
	if err := c.publisher.Publish(TopicRefreshed, msg); err != nil {
		logging.Error().Err(err).Msg("publish refresh event")
	}
}

// Stale reports whether the active snapshot is older than the TTL.
// A cache with no snapshot yet is considered stale.
func (c *Cache) Stale() bool {
	snap := c.current.Load()
	return snap == nil || snap.Age() > c.ttl
}

// Current returns the active snapshot without triggering any refresh,
// or nil when none has been loaded.
func (c *Cache) Current() *Snapshot {
	return c.current.Load()
}

// CoursesByIDs resolves candidate IDs against the given snapshot,
// skipping unknown IDs.
func CoursesByIDs(snap *Snapshot, ids []string) []models.Course {
	out := make([]models.Course, 0, len(ids))
	for _, id := range ids {
		if c, ok := snap.Course(id); ok {
			out = append(out, *c)
		}
	}
	return out
}
