// Tiggy Advisor - Conversational Course Recommendation Engine
// Copyright 2026 Tiggy Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tiggyapp/advisor

package embedding

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/tiggyapp/advisor/internal/catalog"
	"github.com/tiggyapp/advisor/internal/logging"
)

// Rebuilder subscribes to catalog refresh events and rebuilds the index
// from the new snapshot. It runs as a supervised service.
type Rebuilder struct {
	subscriber message.Subscriber
	cache      *catalog.Cache
	index      *Index
}

// NewRebuilder creates a rebuilder wiring the catalog event bus to the
// index.
func NewRebuilder(subscriber message.Subscriber, cache *catalog.Cache, index *Index) *Rebuilder {
	return &Rebuilder{
		subscriber: subscriber,
		cache:      cache,
		index:      index,
	}
}

// Serve consumes refresh events until the context is cancelled,
// rebuilding the index from the current catalog snapshot for each.
func (r *Rebuilder) Serve(ctx context.Context) error {
	msgs, err := r.subscriber.Subscribe(ctx, catalog.TopicRefreshed)
	if err != nil {
		return err
	}

	// A refresh may have happened before the subscription existed.
	if snap := r.cache.Current(); snap != nil && snap.ID != r.index.SnapshotID() {
		r.index.Rebuild(snap)
	}

	logging.Info().Msg("index rebuilder started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			if snap := r.cache.Current(); snap != nil && snap.ID != r.index.SnapshotID() {
				r.index.Rebuild(snap)
			}
			msg.Ack()
		}
	}
}

// String names the service in supervisor logs.
func (r *Rebuilder) String() string {
	return "embedding.Rebuilder"
}
