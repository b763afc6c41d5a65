package models

import (
	"sort"
	"strings"
	"time"
)

// PairKeySeparator joins the two sorted user IDs of a conversation key.
const PairKeySeparator = "_"

// PairKey returns the canonical conversation ID for two users.
// The IDs are sorted so PairKey(a, b) == PairKey(b, a).
func PairKey(a, b string) string {
	pair := []string{a, b}
	sort.Strings(pair)
	return strings.Join(pair, PairKeySeparator)
}

// Conversation is a direct-message thread between exactly two users.
type Conversation struct {
	// ID is PairKey of the two participants.
	ID string

	// Participants holds both user IDs in the order the thread was opened.
	Participants []string

	// LastMessage is a preview of the most recent message, nil for an empty thread.
	LastMessage *MessagePreview

	// UnreadCounts maps participant ID to the number of unread messages for them.
	UnreadCounts map[string]int

	// UpdatedAt is when the last message was sent.
	UpdatedAt time.Time
}

// MessagePreview is the denormalized last message shown in an inbox listing.
type MessagePreview struct {
	Content   string
	SenderID  string
	CreatedAt time.Time
	IsRead    bool
}

// Message is a single direct message.
type Message struct {
	// ID is the unique identifier for the message (UUID format).
	ID string

	// ConversationID is the PairKey of sender and receiver.
	ConversationID string

	SenderID   string
	ReceiverID string
	Content    string
	IsRead     bool
	CreatedAt  time.Time
}
