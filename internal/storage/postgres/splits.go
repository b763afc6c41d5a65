package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/mmynk/mealsplit/internal/models"
	"github.com/mmynk/mealsplit/internal/storage"
)

func (s *PostgresStore) CreateSplit(ctx context.Context, split *models.Split) error {
	if split.ID == "" {
		split.ID = uuid.New().String()
	}
	if split.CreatedAt.IsZero() {
		split.CreatedAt = time.Now().UTC()
	}
	split.Version = 1

	if err := s.db.WithContext(ctx).Create(splitRowFrom(split)).Error; err != nil {
		return fmt.Errorf("failed to create split: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetSplit(ctx context.Context, splitID string) (*models.Split, error) {
	var row splitRow
	if err := s.db.WithContext(ctx).Where("id = ?", splitID).First(&row).Error; err != nil {
		return nil, convertNotFoundError(err, "split", splitID)
	}
	return row.toModel(), nil
}

func (s *PostgresStore) ListSplits(ctx context.Context, filter storage.SplitFilter) ([]*models.Split, error) {
	q := s.db.WithContext(ctx).Model(&splitRow{})
	if filter.Closed != nil {
		q = q.Where("is_closed = ?", *filter.Closed)
	}
	if filter.Member != "" {
		q = q.Where("people_joined @> ?", pq.StringArray{filter.Member})
	}
	q = q.Order("created_at DESC, id")
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	var rows []splitRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list splits: %w", err)
	}

	splits := make([]*models.Split, len(rows))
	for i := range rows {
		splits[i] = rows[i].toModel()
	}
	return splits, nil
}

// UpdateSplit writes the set fields in one UPDATE, bumping version. With
// ExpectVersion set the row must still be at that version.
func (s *PostgresStore) UpdateSplit(ctx context.Context, splitID string, update storage.SplitUpdate) (*models.Split, error) {
	values := map[string]interface{}{
		"version": gorm.Expr("version + 1"),
	}
	if update.PeopleJoined != nil {
		values["people_joined"] = pq.StringArray(update.PeopleJoined)
	}
	if update.IsClosed != nil {
		values["is_closed"] = *update.IsClosed
	}
	if update.CreatorID != nil {
		values["creator_id"] = *update.CreatorID
	}
	if update.CreatorName != nil {
		values["creator_name"] = *update.CreatorName
	}

	var updated *models.Split
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Model(&splitRow{}).Where("id = ?", splitID)
		if update.ExpectVersion > 0 {
			q = q.Where("version = ?", update.ExpectVersion)
		}
		result := q.Updates(values)
		if result.Error != nil {
			return fmt.Errorf("failed to update split: %w", result.Error)
		}

		var row splitRow
		if err := tx.Where("id = ?", splitID).First(&row).Error; err != nil {
			return convertNotFoundError(err, "split", splitID)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("split %s: %w", splitID, storage.ErrStaleWrite)
		}
		updated = row.toModel()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *PostgresStore) DeleteSplit(ctx context.Context, splitID string) error {
	result := s.db.WithContext(ctx).Where("id = ?", splitID).Delete(&splitRow{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete split: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("split %s: %w", splitID, storage.ErrNotFound)
	}
	return nil
}
