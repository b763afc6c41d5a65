package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mmynk/mealsplit/internal/models"
	"github.com/mmynk/mealsplit/internal/storage"
)

func (s *PostgresStore) SaveMessage(ctx context.Context, msg *models.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	msg.ConversationID = models.PairKey(msg.SenderID, msg.ReceiverID)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seed := &conversationRow{
			ID:           msg.ConversationID,
			Participants: pq.StringArray{msg.SenderID, msg.ReceiverID},
			UnreadCounts: map[string]int{msg.SenderID: 0, msg.ReceiverID: 0},
			UpdatedAt:    msg.CreatedAt,
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(seed).Error; err != nil {
			return fmt.Errorf("failed to create conversation: %w", err)
		}

		var conv conversationRow
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", msg.ConversationID).
			First(&conv).Error
		if err != nil {
			return fmt.Errorf("failed to lock conversation: %w", err)
		}

		if conv.UnreadCounts == nil {
			conv.UnreadCounts = make(map[string]int, 2)
		}
		conv.UnreadCounts[msg.ReceiverID]++
		lastAt := msg.CreatedAt
		conv.LastContent = msg.Content
		conv.LastSenderID = msg.SenderID
		conv.LastCreatedAt = &lastAt
		conv.LastIsRead = false
		conv.UpdatedAt = msg.CreatedAt
		if err := tx.Save(&conv).Error; err != nil {
			return fmt.Errorf("failed to update conversation preview: %w", err)
		}

		row := &messageRow{
			ID:             msg.ID,
			ConversationID: msg.ConversationID,
			SenderID:       msg.SenderID,
			ReceiverID:     msg.ReceiverID,
			Content:        msg.Content,
			IsRead:         msg.IsRead,
			CreatedAt:      msg.CreatedAt,
		}
		if err := tx.Create(row).Error; err != nil {
			return fmt.Errorf("failed to insert message: %w", err)
		}
		return nil
	})
}

func (s *PostgresStore) GetConversation(ctx context.Context, conversationID string) (*models.Conversation, error) {
	var row conversationRow
	if err := s.db.WithContext(ctx).Where("id = ?", conversationID).First(&row).Error; err != nil {
		return nil, convertNotFoundError(err, "conversation", conversationID)
	}
	return row.toModel(), nil
}

func (s *PostgresStore) ListConversations(ctx context.Context, userID string) ([]*models.Conversation, error) {
	var rows []conversationRow
	err := s.db.WithContext(ctx).
		Where("participants @> ?", pq.StringArray{userID}).
		Order("updated_at DESC, id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}

	conversations := make([]*models.Conversation, len(rows))
	for i := range rows {
		conversations[i] = rows[i].toModel()
	}
	return conversations, nil
}

func (s *PostgresStore) ListMessages(ctx context.Context, conversationID string) ([]*models.Message, error) {
	var rows []messageRow
	err := s.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC, id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	messages := make([]*models.Message, len(rows))
	for i := range rows {
		messages[i] = rows[i].toModel()
	}
	return messages, nil
}

func (s *PostgresStore) MarkConversationRead(ctx context.Context, conversationID, userID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var conv conversationRow
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", conversationID).
			First(&conv).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to lock conversation: %w", err)
		}

		if conv.UnreadCounts == nil {
			conv.UnreadCounts = make(map[string]int, 2)
		}
		conv.UnreadCounts[userID] = 0
		if conv.LastSenderID != userID {
			conv.LastIsRead = true
		}
		if err := tx.Save(&conv).Error; err != nil {
			return fmt.Errorf("failed to reset unread count: %w", err)
		}

		err = tx.Model(&messageRow{}).
			Where("conversation_id = ? AND receiver_id = ?", conversationID, userID).
			Update("is_read", true).Error
		if err != nil {
			return fmt.Errorf("failed to mark messages read: %w", err)
		}
		return nil
	})
}

func (s *PostgresStore) DeleteConversation(ctx context.Context, conversationID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("conversation_id = ?", conversationID).Delete(&messageRow{}).Error; err != nil {
			return fmt.Errorf("failed to delete messages: %w", err)
		}
		result := tx.Where("id = ?", conversationID).Delete(&conversationRow{})
		if result.Error != nil {
			return fmt.Errorf("failed to delete conversation: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("conversation %s: %w", conversationID, storage.ErrNotFound)
		}
		return nil
	})
}

func (s *PostgresStore) DeleteConversationsForUser(ctx context.Context, userID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ids []string
		err := tx.Model(&conversationRow{}).
			Where("participants @> ?", pq.StringArray{userID}).
			Pluck("id", &ids).Error
		if err != nil {
			return fmt.Errorf("failed to find conversations: %w", err)
		}
		if len(ids) == 0 {
			return nil
		}
		if err := tx.Where("conversation_id IN ?", ids).Delete(&messageRow{}).Error; err != nil {
			return fmt.Errorf("failed to delete messages: %w", err)
		}
		if err := tx.Where("id IN ?", ids).Delete(&conversationRow{}).Error; err != nil {
			return fmt.Errorf("failed to delete conversations: %w", err)
		}
		return nil
	})
}
