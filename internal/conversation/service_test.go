// Tiggy Advisor - Conversational Course Recommendation Engine
// Copyright 2026 Tiggy Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tiggyapp/advisor

package conversation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tiggyapp/advisor/internal/models"
	"github.com/tiggyapp/advisor/internal/store"
)

type memProfiles struct {
	profiles map[string]*models.UserProfile
}

func (m *memProfiles) GetProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	if p, ok := m.profiles[userID]; ok {
		return p, nil
	}
	return nil, store.ErrNotFound
}

func (m *memProfiles) PutProfile(ctx context.Context, profile *models.UserProfile) error {
	m.profiles[profile.ID] = profile
	return nil
}

func newTestService(t *testing.T, client *stubClient) *Service {
	t.Helper()
	transcripts, err := store.OpenBadgerTranscripts("")
	if err != nil {
		t.Fatalf("OpenBadgerTranscripts: %v", err)
	}
	t.Cleanup(func() { _ = transcripts.Close() })

	builder := newTestBuilder(t, client)
	profiles := &memProfiles{profiles: map[string]*models.UserProfile{}}
	return NewService(transcripts, profiles, builder, client)
}

func TestSendMessageRecordsBothTurns(t *testing.T) {
	client := &stubClient{reply: "Try COS 126!"}
	svc := newTestService(t, client)
	ctx := context.Background()

	chat, err := svc.CreateChat(ctx, "user-1")
	if err != nil {
		t.Fatalf("CreateChat: %v", err)
	}

	reply, err := svc.SendMessage(ctx, chat.ID, "what should I take?", time.Now())
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if reply != "Try COS 126!" {
		t.Errorf("reply = %q", reply)
	}

	stored, err := svc.GetChat(ctx, chat.ID)
	if err != nil {
		t.Fatalf("GetChat: %v", err)
	}
	if len(stored.UserTurns) != 1 || len(stored.AssistantTurns) != 1 {
		t.Errorf("turns = %d/%d, want 1/1", len(stored.UserTurns), len(stored.AssistantTurns))
	}
	if stored.AssistantTurns[0].Text != "Try COS 126!" {
		t.Errorf("assistant turn = %q", stored.AssistantTurns[0].Text)
	}
}

func TestSendMessageFallbackOnGenerationFailure(t *testing.T) {
	client := &stubClient{err: errors.New("upstream down")}
	svc := newTestService(t, client)
	ctx := context.Background()

	chat, err := svc.CreateChat(ctx, "user-1")
	if err != nil {
		t.Fatalf("CreateChat: %v", err)
	}

	reply, err := svc.SendMessage(ctx, chat.ID, "hello?", time.Time{})
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if reply != FallbackReply {
		t.Errorf("reply = %q, want fallback", reply)
	}

	// The fallback is still recorded in the transcript.
	stored, _ := svc.GetChat(ctx, chat.ID)
	if len(stored.AssistantTurns) != 1 || stored.AssistantTurns[0].Text != FallbackReply {
		t.Errorf("assistant turns = %+v", stored.AssistantTurns)
	}
}

func TestSendMessageUnknownChat(t *testing.T) {
	svc := newTestService(t, &stubClient{reply: "hi"})

	_, err := svc.SendMessage(context.Background(), "missing", "hello", time.Now())
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestChatCRUD(t *testing.T) {
	svc := newTestService(t, &stubClient{reply: "hi"})
	ctx := context.Background()

	a, err := svc.CreateChat(ctx, "user-1")
	if err != nil {
		t.Fatalf("CreateChat: %v", err)
	}
	b, err := svc.CreateChat(ctx, "user-1")
	if err != nil {
		t.Fatalf("CreateChat: %v", err)
	}
	if a.ID == b.ID {
		t.Error("chat IDs not unique")
	}

	chats, err := svc.ListChats(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListChats: %v", err)
	}
	if len(chats) != 2 {
		t.Errorf("len = %d, want 2", len(chats))
	}

	if err := svc.DeleteChat(ctx, a.ID); err != nil {
		t.Fatalf("DeleteChat: %v", err)
	}
	chats, _ = svc.ListChats(ctx, "user-1")
	if len(chats) != 1 || chats[0].ID != b.ID {
		t.Errorf("after delete: %v", chats)
	}
}
