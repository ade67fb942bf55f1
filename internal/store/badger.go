// Tiggy Advisor - Conversational Course Recommendation Engine
// Copyright 2026 Tiggy Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tiggyapp/advisor

package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tiggyapp/advisor/internal/logging"
	"github.com/tiggyapp/advisor/internal/models"
)

// Key prefixes for BadgerDB storage
const (
	chatKeyPrefix     = "chat:"
	chatUserKeyPrefix = "chat_user:"
)

// BadgerTranscriptStore implements TranscriptStore on BadgerDB. Chats
// are stored whole under chat:<id>, with a chat_user:<userID>:<chatID>
// secondary key for per-user listing.
type BadgerTranscriptStore struct {
	db *badger.DB
}

// OpenBadgerTranscripts opens (or creates) a Badger database at path.
// An empty path opens an in-memory database, used by tests.
func OpenBadgerTranscripts(path string) (*BadgerTranscriptStore, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}

	logging.Info().Str("path", path).Msg("transcript store opened")
	return &BadgerTranscriptStore{db: db}, nil
}

// Close closes the underlying database.
func (s *BadgerTranscriptStore) Close() error {
	return s.db.Close()
}

// CreateChat stores a new empty chat.
func (s *BadgerTranscriptStore) CreateChat(ctx context.Context, chat *models.Chat) error {
	data, err := json.Marshal(chat)
	if err != nil {
		return fmt.Errorf("marshal chat: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		chatKey := []byte(chatKeyPrefix + chat.ID)
		if err := txn.Set(chatKey, data); err != nil {
			return fmt.Errorf("set chat: %w", err)
		}

		userKey := []byte(chatUserKeyPrefix + chat.UserID + ":" + chat.ID)
		if err := txn.Set(userKey, []byte(chat.ID)); err != nil {
			return fmt.Errorf("set user mapping: %w", err)
		}

		return nil
	})
}

// GetChat returns a chat by ID, or ErrNotFound.
func (s *BadgerTranscriptStore) GetChat(ctx context.Context, chatID string) (*models.Chat, error) {
	var chat models.Chat

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(chatKeyPrefix + chatID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get chat: %w", err)
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &chat)
		})
	})
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

// ListChats returns all chats belonging to a user, newest first by
// UpdatedAt.
func (s *BadgerTranscriptStore) ListChats(ctx context.Context, userID string) ([]*models.Chat, error) {
	var chats []*models.Chat

	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(chatUserKeyPrefix + userID + ":")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var chatID string
			err := it.Item().Value(func(val []byte) error {
				chatID = string(val)
				return nil
			})
			if err != nil {
				return fmt.Errorf("read user mapping: %w", err)
			}

			item, err := txn.Get([]byte(chatKeyPrefix + chatID))
			if errors.Is(err, badger.ErrKeyNotFound) {
				// Orphaned mapping; skip.
				continue
			}
			if err != nil {
				return fmt.Errorf("get chat %s: %w", chatID, err)
			}

			var chat models.Chat
			err = item.Value(func(val []byte) error {
				return json.Unmarshal(val, &chat)
			})
			if err != nil {
				return fmt.Errorf("unmarshal chat %s: %w", chatID, err)
			}
			chats = append(chats, &chat)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(chats, func(i, j int) bool {
		return chats[i].UpdatedAt.After(chats[j].UpdatedAt)
	})
	return chats, nil
}

// AppendTurn appends a turn to the sequence matching its role and bumps
// the chat's UpdatedAt. Returns ErrNotFound for unknown chats.
func (s *BadgerTranscriptStore) AppendTurn(ctx context.Context, chatID string, turn models.ConversationTurn) error {
	return s.db.Update(func(txn *badger.Txn) error {
		key := []byte(chatKeyPrefix + chatID)
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get chat: %w", err)
		}

		var chat models.Chat
		err = item.Value(func(val []byte) error {
			return json.Unmarshal(val, &chat)
		})
		if err != nil {
			return fmt.Errorf("unmarshal chat: %w", err)
		}

		switch turn.Role {
		case models.RoleAssistant:
			chat.AssistantTurns = append(chat.AssistantTurns, turn)
		default:
			chat.UserTurns = append(chat.UserTurns, turn)
		}
		chat.UpdatedAt = time.Now().UTC()

		data, err := json.Marshal(&chat)
		if err != nil {
			return fmt.Errorf("marshal chat: %w", err)
		}
		return txn.Set(key, data)
	})
}

// DeleteChat removes a chat and its user mapping. Deleting an unknown
// chat is a no-op.
func (s *BadgerTranscriptStore) DeleteChat(ctx context.Context, chatID string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		key := []byte(chatKeyPrefix + chatID)
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get chat: %w", err)
		}

		var chat models.Chat
		err = item.Value(func(val []byte) error {
			return json.Unmarshal(val, &chat)
		})
		if err != nil {
			return fmt.Errorf("unmarshal chat: %w", err)
		}

		if err := txn.Delete(key); err != nil {
			return fmt.Errorf("delete chat: %w", err)
		}
		userKey := []byte(chatUserKeyPrefix + chat.UserID + ":" + chatID)
		if err := txn.Delete(userKey); err != nil {
			return fmt.Errorf("delete user mapping: %w", err)
		}
		return nil
	})
}
