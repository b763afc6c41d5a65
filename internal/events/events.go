// Package events publishes split lifecycle notifications.
//
// Publishing is fire-and-forget: a Publisher never fails the mutation that
// produced the event, it only logs.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/mmynk/mealsplit/internal/models"
)

// Type names a lifecycle transition.
type Type string

const (
	SplitCreated      Type = "created"
	SplitJoined       Type = "joined"
	SplitLeft         Type = "left"
	SplitClosed       Type = "closed"
	SplitDeleted      Type = "deleted"
	SplitOwnerChanged Type = "owner_changed"
)

// Event describes one transition of one split. UserID is the acting user when
// there is one. The membership snapshot is taken after the transition.
type Event struct {
	Type         Type      `json:"type"`
	SplitID      string    `json:"split_id"`
	UserID       string    `json:"user_id,omitempty"`
	CreatorID    string    `json:"creator_id,omitempty"`
	PeopleJoined []string  `json:"people_joined,omitempty"`
	IsClosed     bool      `json:"is_closed"`
	At           time.Time `json:"at"`
}

// NewEvent builds an event from the split's current state. A nil split yields
// an event carrying only the type, split ID and user.
func NewEvent(t Type, splitID, userID string, split *models.Split) Event {
	e := Event{Type: t, SplitID: splitID, UserID: userID, At: time.Now().UTC()}
	if split != nil {
		e.CreatorID = split.CreatorID
		e.PeopleJoined = append([]string(nil), split.PeopleJoined...)
		e.IsClosed = split.IsClosed
	}
	return e
}

// Publisher delivers lifecycle events.
type Publisher interface {
	Publish(ctx context.Context, event Event)
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) {}

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

// Events returns a copy of the recorded events in publish order.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Types returns the recorded event types in publish order.
func (r *Recorder) Types() []Type {
	events := r.Events()
	types := make([]Type, len(events))
	for i, e := range events {
		types[i] = e.Type
	}
	return types
}
