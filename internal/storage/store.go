// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/mealsplit/internal/models"
)

var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrStaleWrite is returned by a version-checked update when the row changed
	// since it was read.
	ErrStaleWrite = errors.New("row was modified concurrently")
)

// SplitFilter selects splits for ListSplits. Zero-valued fields do not filter.
type SplitFilter struct {
	// Member keeps only splits whose joined set contains this user ID.
	Member string

	// Closed keeps only splits whose closed flag equals *Closed.
	Closed *bool

	// Limit caps the number of rows returned. Zero means no limit.
	Limit int
}

// SplitUpdate is a partial update of a split row. Nil fields are left unchanged.
type SplitUpdate struct {
	PeopleJoined []string
	IsClosed     *bool
	CreatorID    *string
	CreatorName  *string

	// ExpectVersion, when positive, makes the update conditional on the row still
	// being at that version. A mismatch fails with ErrStaleWrite.
	ExpectVersion int64
}

// SplitStore is the row-level contract the split engine needs.
type SplitStore interface {
	// CreateSplit persists a new split. ID, CreatedAt and Version are populated
	// by the store when unset.
	CreateSplit(ctx context.Context, split *models.Split) error

	// GetSplit retrieves a split by ID. Returns ErrNotFound if absent.
	GetSplit(ctx context.Context, splitID string) (*models.Split, error)

	// ListSplits returns splits matching the filter, newest first.
	ListSplits(ctx context.Context, filter SplitFilter) ([]*models.Split, error)

	// UpdateSplit applies a partial update in a single atomic write and returns
	// the updated row. Returns ErrNotFound if absent.
	UpdateSplit(ctx context.Context, splitID string, update SplitUpdate) (*models.Split, error)

	// DeleteSplit removes a split. Returns ErrNotFound if absent.
	DeleteSplit(ctx context.Context, splitID string) error
}

// UserStore holds the user fields the split engine reads and writes.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error

	// GetUser retrieves a user by ID. Returns ErrNotFound if absent.
	GetUser(ctx context.Context, userID string) (*models.User, error)

	// SetActiveSplit overwrites the user's active split pointer. An empty splitID
	// clears it. Updating a user that does not exist is not an error.
	SetActiveSplit(ctx context.Context, userID, splitID string) error
}

// ConversationStore persists direct-message threads.
type ConversationStore interface {
	// GetConversation retrieves a conversation by ID. Returns ErrNotFound if absent.
	GetConversation(ctx context.Context, conversationID string) (*models.Conversation, error)

	// ListConversations returns the conversations a user participates in,
	// most recently updated first.
	ListConversations(ctx context.Context, userID string) ([]*models.Conversation, error)

	// SaveMessage stores a message, creating its conversation if needed and
	// updating the preview and the receiver's unread count.
	SaveMessage(ctx context.Context, msg *models.Message) error

	// ListMessages returns a conversation's messages in chronological order.
	ListMessages(ctx context.Context, conversationID string) ([]*models.Message, error)

	// MarkConversationRead resets userID's unread count. Missing conversations are ignored.
	MarkConversationRead(ctx context.Context, conversationID, userID string) error

	// DeleteConversation removes a conversation and its messages.
	// Returns ErrNotFound if absent.
	DeleteConversation(ctx context.Context, conversationID string) error

	// DeleteConversationsForUser removes every conversation userID participates in.
	DeleteConversationsForUser(ctx context.Context, userID string) error
}

// Store defines the full storage surface used by the service.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL)
// without changing the service layer.
type Store interface {
	SplitStore
	UserStore
	ConversationStore

	// Close releases any resources held by the store.
	Close() error
}
