// Tiggy Advisor - Conversational Course Recommendation Engine
// Copyright 2026 Tiggy Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tiggyapp/advisor

// Package store provides the persistent storage layer: a DuckDB-backed
// store for courses and user profiles, and a BadgerDB-backed store for
// chat transcripts.
package store

import (
	"context"
	"errors"

	"github.com/tiggyapp/advisor/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("store: not found")

// CourseStore persists the course catalog for the current term.
type CourseStore interface {
	// ListCourses returns every course of the current term.
	ListCourses(ctx context.Context) ([]models.Course, error)

	// ReplaceCourses atomically replaces the catalog contents.
	ReplaceCourses(ctx context.Context, courses []models.Course) error
}

// ProfileStore persists student profiles.
type ProfileStore interface {
	// GetProfile returns the profile for the given user ID, or
	// ErrNotFound.
	GetProfile(ctx context.Context, userID string) (*models.UserProfile, error)

	// PutProfile creates or updates a profile.
	PutProfile(ctx context.Context, profile *models.UserProfile) error
}

// TranscriptStore persists chat transcripts. User and assistant turns
// are stored as independent sequences per chat.
type TranscriptStore interface {
	// CreateChat stores a new empty chat.
	CreateChat(ctx context.Context, chat *models.Chat) error

	// GetChat returns a chat by ID, or ErrNotFound.
	GetChat(ctx context.Context, chatID string) (*models.Chat, error)

	// ListChats returns all chats belonging to a user, newest first.
	ListChats(ctx context.Context, userID string) ([]*models.Chat, error)

	// AppendTurn appends a turn to the sequence matching its role and
	// bumps the chat's UpdatedAt.
	AppendTurn(ctx context.Context, chatID string, turn models.ConversationTurn) error

	// DeleteChat removes a chat and its transcript.
	DeleteChat(ctx context.Context, chatID string) error
}
