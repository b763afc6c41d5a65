// Package postgres provides a PostgreSQL implementation of storage.Store built on GORM.
//
// Split membership and conversation participants are stored as text[] columns so
// "contains" filters map directly onto the @> operator.
package postgres

import (
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mmynk/mealsplit/internal/models"
	"github.com/mmynk/mealsplit/internal/storage"
)

var _ storage.Store = (*PostgresStore)(nil)

// Config contains PostgreSQL connection settings.
type Config struct {
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
}

// ApplyDefaults fills in missing pool settings.
func (c *Config) ApplyDefaults() {
	if c.MaxOpenConns == 0 {
		c.MaxOpenConns = 25
	}
	if c.MaxIdleConns == 0 {
		c.MaxIdleConns = 5
	}
}

// PostgresStore implements storage.Store using GORM over PostgreSQL.
type PostgresStore struct {
	db *gorm.DB
}

// New connects to PostgreSQL and migrates the schema.
func New(cfg Config) (*PostgresStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}
	cfg.ApplyDefaults()

	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying database: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)

	if err := db.AutoMigrate(&splitRow{}, &userRow{}, &conversationRow{}, &messageRow{}); err != nil {
		return nil, fmt.Errorf("failed to run database migration: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// Close closes the underlying connection pool.
func (s *PostgresStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

type splitRow struct {
	ID           string `gorm:"primaryKey"`
	CreatorID    string `gorm:"not null"`
	CreatorName  string
	ScheduledAt  *time.Time
	PeopleNeeded int            `gorm:"not null"`
	PeopleJoined pq.StringArray `gorm:"type:text[];not null"`
	IsClosed     bool           `gorm:"index;not null;default:false"`
	VendorID     string
	VendorName   string
	Description  string
	Location     string
	CreatedAt    time.Time `gorm:"index"`
	Version      int64     `gorm:"not null;default:1"`
}

func (splitRow) TableName() string { return "splits" }

func (r *splitRow) toModel() *models.Split {
	split := &models.Split{
		ID:           r.ID,
		CreatorID:    r.CreatorID,
		CreatorName:  r.CreatorName,
		PeopleNeeded: r.PeopleNeeded,
		PeopleJoined: []string(r.PeopleJoined),
		IsClosed:     r.IsClosed,
		VendorID:     r.VendorID,
		VendorName:   r.VendorName,
		Description:  r.Description,
		Location:     r.Location,
		CreatedAt:    r.CreatedAt.UTC(),
		Version:      r.Version,
	}
	if r.ScheduledAt != nil {
		t := r.ScheduledAt.UTC()
		split.ScheduledAt = &t
	}
	return split
}

func splitRowFrom(split *models.Split) *splitRow {
	return &splitRow{
		ID:           split.ID,
		CreatorID:    split.CreatorID,
		CreatorName:  split.CreatorName,
		ScheduledAt:  split.ScheduledAt,
		PeopleNeeded: split.PeopleNeeded,
		PeopleJoined: pq.StringArray(split.PeopleJoined),
		IsClosed:     split.IsClosed,
		VendorID:     split.VendorID,
		VendorName:   split.VendorName,
		Description:  split.Description,
		Location:     split.Location,
		CreatedAt:    split.CreatedAt,
		Version:      split.Version,
	}
}

type userRow struct {
	ID            string `gorm:"primaryKey"`
	Name          string
	Email         string
	ActiveSplitID *string
	CreatedAt     time.Time
}

func (userRow) TableName() string { return "users" }

type conversationRow struct {
	ID            string         `gorm:"primaryKey"`
	Participants  pq.StringArray `gorm:"type:text[];not null"`
	UnreadCounts  map[string]int `gorm:"type:jsonb;serializer:json"`
	LastContent   string
	LastSenderID  string
	LastCreatedAt *time.Time
	LastIsRead    bool
	UpdatedAt     time.Time `gorm:"index;autoUpdateTime:false"`
}

func (conversationRow) TableName() string { return "conversations" }

func (r *conversationRow) toModel() *models.Conversation {
	conv := &models.Conversation{
		ID:           r.ID,
		Participants: []string(r.Participants),
		UnreadCounts: r.UnreadCounts,
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
	if conv.UnreadCounts == nil {
		conv.UnreadCounts = make(map[string]int, 2)
	}
	if r.LastCreatedAt != nil {
		conv.LastMessage = &models.MessagePreview{
			Content:   r.LastContent,
			SenderID:  r.LastSenderID,
			CreatedAt: r.LastCreatedAt.UTC(),
			IsRead:    r.LastIsRead,
		}
	}
	return conv
}

type messageRow struct {
	ID             string `gorm:"primaryKey"`
	ConversationID string `gorm:"index;not null"`
	SenderID       string `gorm:"not null"`
	ReceiverID     string `gorm:"not null"`
	Content        string `gorm:"not null"`
	IsRead         bool   `gorm:"not null;default:false"`
	CreatedAt      time.Time
}

func (messageRow) TableName() string { return "messages" }

func (r *messageRow) toModel() *models.Message {
	return &models.Message{
		ID:             r.ID,
		ConversationID: r.ConversationID,
		SenderID:       r.SenderID,
		ReceiverID:     r.ReceiverID,
		Content:        r.Content,
		IsRead:         r.IsRead,
		CreatedAt:      r.CreatedAt.UTC(),
	}
}

// convertNotFoundError maps gorm.ErrRecordNotFound onto storage.ErrNotFound.
func convertNotFoundError(err error, what, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %s: %w", what, id, storage.ErrNotFound)
	}
	return err
}
