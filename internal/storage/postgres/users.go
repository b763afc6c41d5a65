package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/mmynk/mealsplit/internal/models"
)

func (s *PostgresStore) CreateUser(ctx context.Context, user *models.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	row := &userRow{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		CreatedAt: user.CreatedAt,
	}
	if user.ActiveSplitID != "" {
		active := user.ActiveSplitID
		row.ActiveSplitID = &active
	}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetUser(ctx context.Context, userID string) (*models.User, error) {
	var row userRow
	if err := s.db.WithContext(ctx).Where("id = ?", userID).First(&row).Error; err != nil {
		return nil, convertNotFoundError(err, "user", userID)
	}
	user := &models.User{
		ID:        row.ID,
		Name:      row.Name,
		Email:     row.Email,
		CreatedAt: row.CreatedAt.UTC(),
	}
	if row.ActiveSplitID != nil {
		user.ActiveSplitID = *row.ActiveSplitID
	}
	return user, nil
}

// SetActiveSplit overwrites the pointer; "" stores NULL. No row matched is fine.
func (s *PostgresStore) SetActiveSplit(ctx context.Context, userID, splitID string) error {
	var value interface{}
	if splitID != "" {
		value = splitID
	}
	err := s.db.WithContext(ctx).
		Model(&userRow{}).
		Where("id = ?", userID).
		Update("active_split_id", value).Error
	if err != nil {
		return fmt.Errorf("failed to set active split: %w", err)
	}
	return nil
}
