package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mmynk/mealsplit/internal/models"
	"github.com/mmynk/mealsplit/internal/storage"
)

// CreateUser inserts a new user into the database.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *models.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO users (id, name, email, active_split_id, created_at)
		VALUES (?, ?, ?, NULLIF(?, ''), ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		user.ID,
		user.Name,
		user.Email,
		user.ActiveSplitID,
		user.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetUser retrieves a user by their ID.
func (s *SQLiteStore) GetUser(ctx context.Context, userID string) (*models.User, error) {
	query := `
		SELECT id, name, email, active_split_id, created_at
		FROM users
		WHERE id = ?
	`

	user := &models.User{}
	var activeSplitID sql.NullString
	var createdAt int64
	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&activeSplitID,
		&createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", userID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by ID: %w", err)
	}

	user.ActiveSplitID = activeSplitID.String
	user.CreatedAt = time.Unix(0, createdAt).UTC()

	return user, nil
}

// SetActiveSplit overwrites the user's active split pointer; "" stores NULL.
func (s *SQLiteStore) SetActiveSplit(ctx context.Context, userID, splitID string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE users SET active_split_id = NULLIF(?, '') WHERE id = ?",
		splitID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to set active split: %w", err)
	}
	return nil
}
