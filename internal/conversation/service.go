// Tiggy Advisor - Conversational Course Recommendation Engine
// Copyright 2026 Tiggy Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tiggyapp/advisor

package conversation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/tiggyapp/advisor/internal/genai"
	"github.com/tiggyapp/advisor/internal/logging"
	"github.com/tiggyapp/advisor/internal/models"
	"github.com/tiggyapp/advisor/internal/store"
)

// FallbackReply is returned when the generation service cannot produce
// a response. The turn is still recorded so the transcript stays
// coherent.
const FallbackReply = "I'm sorry, I'm having trouble responding right now. Please try again in a moment."

// Service manages chats end to end: transcript CRUD and the
// send-message flow. The generation client is called at most once per
// message; its internal retry policy is the only retry layer.
type Service struct {
	transcripts store.TranscriptStore
	profiles    store.ProfileStore
	builder     *Builder
	client      genai.Client
}

// NewService creates a chat service.
func NewService(transcripts store.TranscriptStore, profiles store.ProfileStore, builder *Builder, client genai.Client) *Service {
	return &Service{
		transcripts: transcripts,
		profiles:    profiles,
		builder:     builder,
		client:      client,
	}
}

// CreateChat starts a new empty chat for a user.
func (s *Service) CreateChat(ctx context.Context, userID string) (*models.Chat, error) {
	now := time.Now().UTC()
	chat := &models.Chat{
		ID:        uuid.New().String(),
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.transcripts.CreateChat(ctx, chat); err != nil {
		return nil, err
	}
	return chat, nil
}

// GetChat returns a chat by ID.
func (s *Service) GetChat(ctx context.Context, chatID string) (*models.Chat, error) {
	return s.transcripts.GetChat(ctx, chatID)
}

// ListChats returns a user's chats, newest first.
func (s *Service) ListChats(ctx context.Context, userID string) ([]*models.Chat, error) {
	return s.transcripts.ListChats(ctx, userID)
}

// DeleteChat removes a chat and its transcript.
func (s *Service) DeleteChat(ctx context.Context, chatID string) error {
	return s.transcripts.DeleteChat(ctx, chatID)
}

// SendMessage records the student's message, produces the assistant
// reply and records it too. Generation failures yield FallbackReply
// instead of an error so the student always gets an answer; only
// transcript failures are surfaced.
func (s *Service) SendMessage(ctx context.Context, chatID, message string, timestamp time.Time) (string, error) {
	chat, err := s.transcripts.GetChat(ctx, chatID)
	if err != nil {
		return "", err
	}

	if timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}
	userTurn := models.ConversationTurn{
		Role:      models.RoleUser,
		Text:      message,
		Timestamp: timestamp,
	}
	if err := s.transcripts.AppendTurn(ctx, chatID, userTurn); err != nil {
		return "", err
	}

	profile := s.loadProfile(ctx, chat.UserID)
	messages := s.builder.Build(ctx, chat, profile, message)

	reply, err := s.client.Complete(ctx, genai.CompletionRequest{
		Messages:    messages,
		Temperature: 0.7,
	})
	if err != nil {
		logger := logging.Ctx(ctx)
		logger.Warn().Err(err).Str("chat_id", chatID).Msg("chat completion failed, sending fallback")
		reply = FallbackReply
	}

	assistantTurn := models.ConversationTurn{
		Role:      models.RoleAssistant,
		Text:      reply,
		Timestamp: time.Now().UTC(),
	}
	if err := s.transcripts.AppendTurn(ctx, chatID, assistantTurn); err != nil {
		return "", err
	}

	return reply, nil
}

// loadProfile fetches the user's profile, tolerating absence.
func (s *Service) loadProfile(ctx context.Context, userID string) *models.UserProfile {
	profile, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			logger := logging.Ctx(ctx)
			logger.Warn().Err(err).Msg("profile lookup failed")
		}
		return &models.UserProfile{ID: userID}
	}
	return profile
}
