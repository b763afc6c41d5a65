package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/mealsplit/internal/models"
	"github.com/mmynk/mealsplit/internal/storage"
)

// SaveMessage inserts a message, creating the conversation on first contact.
func (s *SQLiteStore) SaveMessage(ctx context.Context, msg *models.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	msg.ConversationID = models.PairKey(msg.SenderID, msg.ReceiverID)
	now := msg.CreatedAt.UnixNano()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO conversations (id, updated_at) VALUES (?, ?) ON CONFLICT(id) DO NOTHING`,
		msg.ConversationID, now,
	)
	if err != nil {
		return fmt.Errorf("failed to create conversation: %w", err)
	}
	for i, userID := range []string{msg.SenderID, msg.ReceiverID} {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO conversation_members (conversation_id, user_id, position)
			 VALUES (?, ?, ?) ON CONFLICT(conversation_id, user_id) DO NOTHING`,
			msg.ConversationID, userID, i,
		)
		if err != nil {
			return fmt.Errorf("failed to add conversation member: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE conversations
		 SET last_content = ?, last_sender_id = ?, last_created_at = ?, last_is_read = 0, updated_at = ?
		 WHERE id = ?`,
		msg.Content, msg.SenderID, now, now, msg.ConversationID,
	)
	if err != nil {
		return fmt.Errorf("failed to update conversation preview: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE conversation_members SET unread_count = unread_count + 1
		 WHERE conversation_id = ? AND user_id = ?`,
		msg.ConversationID, msg.ReceiverID,
	)
	if err != nil {
		return fmt.Errorf("failed to bump unread count: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO messages (id, conversation_id, sender_id, receiver_id, content, is_read, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.ConversationID, msg.SenderID, msg.ReceiverID, msg.Content, msg.IsRead, now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetConversation retrieves a conversation with its participants and unread counts.
func (s *SQLiteStore) GetConversation(ctx context.Context, conversationID string) (*models.Conversation, error) {
	conv := &models.Conversation{ID: conversationID}
	var (
		lastContent   sql.NullString
		lastSenderID  sql.NullString
		lastCreatedAt sql.NullInt64
		lastIsRead    bool
		updatedAt     int64
	)

	err := s.db.QueryRowContext(ctx,
		`SELECT last_content, last_sender_id, last_created_at, last_is_read, updated_at
		 FROM conversations WHERE id = ?`,
		conversationID,
	).Scan(&lastContent, &lastSenderID, &lastCreatedAt, &lastIsRead, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("conversation %s: %w", conversationID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}

	conv.UpdatedAt = time.Unix(0, updatedAt).UTC()
	if lastCreatedAt.Valid {
		conv.LastMessage = &models.MessagePreview{
			Content:   lastContent.String,
			SenderID:  lastSenderID.String,
			CreatedAt: time.Unix(0, lastCreatedAt.Int64).UTC(),
			IsRead:    lastIsRead,
		}
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, unread_count FROM conversation_members
		 WHERE conversation_id = ? ORDER BY position`,
		conversationID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation members: %w", err)
	}
	defer rows.Close()

	conv.UnreadCounts = make(map[string]int, 2)
	for rows.Next() {
		var userID string
		var unread int
		if err := rows.Scan(&userID, &unread); err != nil {
			return nil, fmt.Errorf("failed to scan conversation member: %w", err)
		}
		conv.Participants = append(conv.Participants, userID)
		conv.UnreadCounts[userID] = unread
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate conversation members: %w", err)
	}

	return conv, nil
}

// ListConversations returns a user's conversations, most recently updated first.
func (s *SQLiteStore) ListConversations(ctx context.Context, userID string) ([]*models.Conversation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT c.id FROM conversations c
		 JOIN conversation_members m ON m.conversation_id = c.id
		 WHERE m.user_id = ?
		 ORDER BY c.updated_at DESC, c.id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan conversation id: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate conversations: %w", err)
	}

	conversations := make([]*models.Conversation, 0, len(ids))
	for _, id := range ids {
		conv, err := s.GetConversation(ctx, id)
		if err != nil {
			return nil, err
		}
		conversations = append(conversations, conv)
	}

	return conversations, nil
}

// ListMessages returns a conversation's messages oldest first.
func (s *SQLiteStore) ListMessages(ctx context.Context, conversationID string) ([]*models.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, conversation_id, sender_id, receiver_id, content, is_read, created_at
		 FROM messages WHERE conversation_id = ? ORDER BY created_at ASC, id`,
		conversationID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var messages []*models.Message
	for rows.Next() {
		msg := &models.Message{}
		var createdAt int64
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.SenderID, &msg.ReceiverID,
			&msg.Content, &msg.IsRead, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msg.CreatedAt = time.Unix(0, createdAt).UTC()
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}

	return messages, nil
}

// MarkConversationRead clears userID's unread count and read receipts.
func (s *SQLiteStore) MarkConversationRead(ctx context.Context, conversationID, userID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE conversation_members SET unread_count = 0 WHERE conversation_id = ? AND user_id = ?`,
		conversationID, userID,
	); err != nil {
		return fmt.Errorf("failed to reset unread count: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE messages SET is_read = 1 WHERE conversation_id = ? AND receiver_id = ?`,
		conversationID, userID,
	); err != nil {
		return fmt.Errorf("failed to mark messages read: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE conversations SET last_is_read = 1 WHERE id = ? AND last_sender_id <> ?`,
		conversationID, userID,
	); err != nil {
		return fmt.Errorf("failed to mark preview read: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// DeleteConversation removes a conversation; members and messages cascade.
func (s *SQLiteStore) DeleteConversation(ctx context.Context, conversationID string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM conversations WHERE id = ?", conversationID)
	if err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("conversation %s: %w", conversationID, storage.ErrNotFound)
	}
	return nil
}

// DeleteConversationsForUser removes every conversation the user is part of.
func (s *SQLiteStore) DeleteConversationsForUser(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM conversations WHERE id IN
		 (SELECT conversation_id FROM conversation_members WHERE user_id = ?)`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete conversations for user: %w", err)
	}
	return nil
}
