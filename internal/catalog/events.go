// Tiggy Advisor - Conversational Course Recommendation Engine
// Copyright 2026 Tiggy Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tiggyapp/advisor

package catalog

import (
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// TopicRefreshed carries RefreshedEvent messages after each successful
// catalog refresh. The embedding index subscribes to rebuild itself.
const TopicRefreshed = "catalog.refreshed"

// RefreshedEvent announces a new active catalog snapshot.
type RefreshedEvent struct {
	SnapshotID  string    `json:"snapshot_id"`
	Courses     int       `json:"courses"`
	RefreshedAt time.Time `json:"refreshed_at"`
}

// NewPubSub creates the in-process pub/sub bus used for catalog events.
// Subscribers registered before publishing receive every message.
func NewPubSub() *gochannel.GoChannel {
	return gochannel.NewGoChannel(
		gochannel.Config{
			OutputChannelBuffer: 16,
		},
		watermill.NopLogger{},
	)
}
