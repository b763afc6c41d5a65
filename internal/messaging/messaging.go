// Package messaging manages direct-message conversations between two users.
//
// A conversation is keyed by models.PairKey of its participants, so each pair
// of users has at most one thread.
package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mmynk/mealsplit/internal/models"
	"github.com/mmynk/mealsplit/internal/storage"
)

// MaxContentLength bounds a single message body in bytes.
const MaxContentLength = 2000

// ErrInvalidMessage is returned for empty, oversized or self-addressed messages.
var ErrInvalidMessage = errors.New("invalid message")

// ErrNotParticipant is returned when a user reads or updates a conversation
// they are not part of.
var ErrNotParticipant = errors.New("not a participant of this conversation")

// Service implements the inbox operations on top of a ConversationStore.
type Service struct {
	store storage.ConversationStore
}

// NewService creates a messaging service.
func NewService(store storage.ConversationStore) *Service {
	return &Service{store: store}
}

// Send stores a message from senderID to receiverID.
func (s *Service) Send(ctx context.Context, senderID, receiverID, content string) (*models.Message, error) {
	content = strings.TrimSpace(content)
	switch {
	case senderID == "" || receiverID == "":
		return nil, fmt.Errorf("%w: sender and receiver are required", ErrInvalidMessage)
	case senderID == receiverID:
		return nil, fmt.Errorf("%w: cannot message yourself", ErrInvalidMessage)
	case content == "":
		return nil, fmt.Errorf("%w: content is empty", ErrInvalidMessage)
	case len(content) > MaxContentLength:
		return nil, fmt.Errorf("%w: content exceeds %d bytes", ErrInvalidMessage, MaxContentLength)
	}

	msg := &models.Message{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
	}
	if err := s.store.SaveMessage(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// Inbox lists the user's conversations, most recent first.
func (s *Service) Inbox(ctx context.Context, userID string) ([]*models.Conversation, error) {
	return s.store.ListConversations(ctx, userID)
}

// Chat returns the messages of a conversation the user participates in.
func (s *Service) Chat(ctx context.Context, userID, conversationID string) ([]*models.Message, error) {
	conv, err := s.store.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !isParticipant(conv, userID) {
		return nil, ErrNotParticipant
	}
	return s.store.ListMessages(ctx, conversationID)
}

// MarkRead clears the user's unread count for a conversation they take part
// in. A conversation that does not exist is ignored.
func (s *Service) MarkRead(ctx context.Context, userID, conversationID string) error {
	conv, err := s.store.GetConversation(ctx, conversationID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if !isParticipant(conv, userID) {
		return ErrNotParticipant
	}
	return s.store.MarkConversationRead(ctx, conversationID, userID)
}

// DeleteConversation removes a conversation by pair key. A conversation that
// does not exist is not an error.
func (s *Service) DeleteConversation(ctx context.Context, pairKey string) error {
	err := s.store.DeleteConversation(ctx, pairKey)
	if errors.Is(err, storage.ErrNotFound) {
		slog.Debug("Conversation already gone", "conversation_id", pairKey)
		return nil
	}
	return err
}

// ClearAll deletes every conversation of the user.
func (s *Service) ClearAll(ctx context.Context, userID string) error {
	return s.store.DeleteConversationsForUser(ctx, userID)
}

func isParticipant(conv *models.Conversation, userID string) bool {
	for _, id := range conv.Participants {
		if id == userID {
			return true
		}
	}
	return false
}
