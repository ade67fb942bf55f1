// Tiggy Advisor - Conversational Course Recommendation Engine
// Copyright 2026 Tiggy Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tiggyapp/advisor

package models

import (
	"sort"
	"time"
)

// Role identifies the author of a conversation turn.
type Role string

const (
	// RoleUser marks a student-authored turn.
	RoleUser Role = "user"
	// RoleAssistant marks a model-authored turn.
	RoleAssistant Role = "assistant"
)

// ConversationTurn is one message in a chat transcript.
type ConversationTurn struct {
	// Role is the author of the turn.
	Role Role `json:"role"`

	// Text is the message content.
	Text string `json:"text"`

	// Timestamp is when the turn was recorded.
	Timestamp time.Time `json:"timestamp"`
}

// Chat is a stored conversation. User and assistant turns are persisted
// as independent sequences, mirroring the transcript store layout.
type Chat struct {
	ID             string             `json:"id"`
	UserID         string             `json:"user_id"`
	UserTurns      []ConversationTurn `json:"user_turns"`
	AssistantTurns []ConversationTurn `json:"assistant_turns"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

// MergeTurns merges independently stored turn sequences into one sequence
// strictly ordered by timestamp. Ties keep the original relative insertion
// order (stable sort) and are never broken by role.
func MergeTurns(sequences ...[]ConversationTurn) []ConversationTurn {
	total := 0
	for _, seq := range sequences {
		total += len(seq)
	}

	merged := make([]ConversationTurn, 0, total)
	for _, seq := range sequences {
		merged = append(merged, seq...)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Timestamp.Before(merged[j].Timestamp)
	})

	return merged
}
