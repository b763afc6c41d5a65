package api

import (
	"time"

	"github.com/mmynk/mealsplit/internal/models"
)

// Split is the wire form of a meal split.
type Split struct {
	ID           string     `json:"id"`
	CreatorID    string     `json:"creator_id"`
	CreatorName  string     `json:"creator_name"`
	ScheduledAt  *time.Time `json:"scheduled_at,omitempty"`
	PeopleNeeded int        `json:"people_needed"`
	PeopleJoined []string   `json:"people_joined"`
	IsClosed     bool       `json:"is_closed"`
	VendorID     string     `json:"vendor_id,omitempty"`
	VendorName   string     `json:"vendor_name,omitempty"`
	Description  string     `json:"description,omitempty"`
	Location     string     `json:"location,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// SplitFromModel converts a stored split to its wire form.
func SplitFromModel(s *models.Split) *Split {
	if s == nil {
		return nil
	}
	joined := s.PeopleJoined
	if joined == nil {
		joined = []string{}
	}
	return &Split{
		ID:           s.ID,
		CreatorID:    s.CreatorID,
		CreatorName:  s.CreatorName,
		ScheduledAt:  s.ScheduledAt,
		PeopleNeeded: s.PeopleNeeded,
		PeopleJoined: joined,
		IsClosed:     s.IsClosed,
		VendorID:     s.VendorID,
		VendorName:   s.VendorName,
		Description:  s.Description,
		Location:     s.Location,
		CreatedAt:    s.CreatedAt,
	}
}

// SplitsFromModels converts a list of splits.
func SplitsFromModels(splits []*models.Split) []*Split {
	out := make([]*Split, len(splits))
	for i, s := range splits {
		out[i] = SplitFromModel(s)
	}
	return out
}

type CreateSplitRequest struct {
	// CreatorName overrides the name stored on the creator's user record.
	CreatorName  string     `json:"creator_name,omitempty"`
	PeopleNeeded int        `json:"people_needed"`
	ScheduledAt  *time.Time `json:"scheduled_at,omitempty"`
	VendorID     string     `json:"vendor_id,omitempty"`
	VendorName   string     `json:"vendor_name,omitempty"`
	Description  string     `json:"description,omitempty"`
	Location     string     `json:"location,omitempty"`
}

type CreateSplitResponse struct {
	Split *Split `json:"split"`
}

type JoinSplitRequest struct {
	SplitID string `json:"split_id"`
}

type JoinSplitResponse struct {
	Split *Split `json:"split"`
}

type LeaveSplitRequest struct {
	SplitID string `json:"split_id"`
}

type LeaveSplitResponse struct {
	Removed      bool   `json:"removed"`
	SplitDeleted bool   `json:"split_deleted"`
	NewCreatorID string `json:"new_creator_id,omitempty"`
}

type MarkCompleteRequest struct {
	SplitID string `json:"split_id"`
}

type MarkCompleteResponse struct {
	Split *Split `json:"split"`
}

type DeleteSplitRequest struct {
	SplitID string `json:"split_id"`
}

type DeleteSplitResponse struct{}

type GetSplitRequest struct {
	SplitID string `json:"split_id"`
}

type GetSplitResponse struct {
	Split *Split `json:"split"`
}

type ListSplitsRequest struct{}

type ListSplitsResponse struct {
	Splits []*Split `json:"splits"`
}

type GetActivityRequest struct {
	Limit int `json:"limit,omitempty"`
}

type GetActivityResponse struct {
	Splits []*Split `json:"splits"`
}

// Message is the wire form of a direct message.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	ReceiverID     string    `json:"receiver_id"`
	Content        string    `json:"content"`
	IsRead         bool      `json:"is_read"`
	CreatedAt      time.Time `json:"created_at"`
}

// MessageFromModel converts a stored message to its wire form.
func MessageFromModel(m *models.Message) *Message {
	return &Message{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		ReceiverID:     m.ReceiverID,
		Content:        m.Content,
		IsRead:         m.IsRead,
		CreatedAt:      m.CreatedAt,
	}
}

// MessagePreview is the last message shown in an inbox row.
type MessagePreview struct {
	Content   string    `json:"content"`
	SenderID  string    `json:"sender_id"`
	CreatedAt time.Time `json:"created_at"`
	IsRead    bool      `json:"is_read"`
}

// Conversation is an inbox row as seen by one participant.
type Conversation struct {
	ID           string          `json:"id"`
	Participants []string        `json:"participants"`
	LastMessage  *MessagePreview `json:"last_message,omitempty"`
	UnreadCount  int             `json:"unread_count"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// ConversationFromModel converts a conversation for viewerID.
func ConversationFromModel(c *models.Conversation, viewerID string) *Conversation {
	out := &Conversation{
		ID:           c.ID,
		Participants: c.Participants,
		UnreadCount:  c.UnreadCounts[viewerID],
		UpdatedAt:    c.UpdatedAt,
	}
	if c.LastMessage != nil {
		out.LastMessage = &MessagePreview{
			Content:   c.LastMessage.Content,
			SenderID:  c.LastMessage.SenderID,
			CreatedAt: c.LastMessage.CreatedAt,
			IsRead:    c.LastMessage.IsRead,
		}
	}
	return out
}

type SendMessageRequest struct {
	ReceiverID string `json:"receiver_id"`
	Content    string `json:"content"`
}

type SendMessageResponse struct {
	Message *Message `json:"message"`
}

type GetInboxRequest struct{}

type GetInboxResponse struct {
	Conversations []*Conversation `json:"conversations"`
}

type GetChatRequest struct {
	ConversationID string `json:"conversation_id"`
}

type GetChatResponse struct {
	Messages []*Message `json:"messages"`
}

type MarkReadRequest struct {
	ConversationID string `json:"conversation_id"`
}

type MarkReadResponse struct{}

type DeleteConversationRequest struct {
	ConversationID string `json:"conversation_id"`
}

type DeleteConversationResponse struct{}

type ClearInboxRequest struct{}

type ClearInboxResponse struct{}

// User is the caller's profile as the split engine sees it.
type User struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email,omitempty"`
	ActiveSplitID string    `json:"active_split_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// UserFromModel converts a stored user to its wire form.
func UserFromModel(u *models.User) *User {
	return &User{
		ID:            u.ID,
		Name:          u.Name,
		Email:         u.Email,
		ActiveSplitID: u.ActiveSplitID,
		CreatedAt:     u.CreatedAt,
	}
}

// GetProfileRequest registers the caller on first use. Name and Email are
// only applied when the record is created.
type GetProfileRequest struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

type GetProfileResponse struct {
	User *User `json:"user"`
	// ActiveSplit is the split the pointer references, when it still exists.
	ActiveSplit *Split `json:"active_split,omitempty"`
}
