package events

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mmynk/mealsplit/internal/models"
)

func TestSubject(t *testing.T) {
	assert.Equal(t, "mealsplit.split.created", Subject(SplitCreated))
	assert.Equal(t, "mealsplit.split.owner_changed", Subject(SplitOwnerChanged))
}

func TestRecorder(t *testing.T) {
	r := &Recorder{}
	ctx := context.Background()
	r.Publish(ctx, Event{Type: SplitJoined, SplitID: "s1"})
	r.Publish(ctx, Event{Type: SplitClosed, SplitID: "s1"})

	assert.Equal(t, []Type{SplitJoined, SplitClosed}, r.Types())
	assert.Len(t, r.Events(), 2)
}

func TestNopDoesNotPanic(t *testing.T) {
	var p Publisher = Nop{}
	p.Publish(context.Background(), Event{Type: SplitDeleted})
}

func TestNewEventSnapshotsSplit(t *testing.T) {
	split := &models.Split{ID: "s1", CreatorID: "u1", PeopleJoined: []string{"u1", "u2"}, IsClosed: true}
	e := NewEvent(SplitJoined, split.ID, "u2", split)
	split.PeopleJoined[0] = "changed"

	assert.Equal(t, "s1", e.SplitID)
	assert.Equal(t, "u2", e.UserID)
	assert.Equal(t, "u1", e.CreatorID)
	assert.Equal(t, []string{"u1", "u2"}, e.PeopleJoined)
	assert.True(t, e.IsClosed)
	assert.False(t, e.At.IsZero())

	e = NewEvent(SplitDeleted, "s2", "", nil)
	assert.Empty(t, e.PeopleJoined)
}
