// Tiggy Advisor - Conversational Course Recommendation Engine
// Copyright 2026 Tiggy Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tiggyapp/advisor

// Package models defines the shared data types of the advisor engine:
// courses, student profiles, conversation turns, recommendation results,
// and the API response envelope.
//
// Courses and profiles are owned by the persistent store; the engine only
// reads snapshots of them. CandidateScore and RecommendationResult are
// transient, created per request and never persisted. ConversationTurn
// values are read from transcript storage and are immutable within a
// request.
package models
