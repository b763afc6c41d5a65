package models

import "time"

// Split represents a shared-meal proposal that other users can join until it is full.
type Split struct {
	// ID is the unique identifier for the split (UUID format).
	ID string

	// CreatorID is the user who currently owns the split.
	// Ownership moves to the earliest remaining participant when the creator leaves.
	CreatorID string

	// CreatorName is a denormalized copy of the creator's display name.
	// It may be stale if the name lookup failed during an ownership transfer.
	CreatorName string

	// ScheduledAt is when the meal takes place. Nil means no time was set,
	// and such splits never cause scheduling conflicts.
	ScheduledAt *time.Time

	// PeopleNeeded is the capacity: the split closes once this many users have joined.
	PeopleNeeded int

	// PeopleJoined is the ordered list of participant user IDs.
	// The creator is first at creation time; later joiners are appended in join order.
	PeopleJoined []string

	// IsClosed marks the split as no longer accepting joiners, either because
	// it reached capacity or because it was marked complete.
	IsClosed bool

	// VendorID optionally references the vendor the meal is from.
	VendorID string

	// VendorName is the display name of the vendor.
	VendorName string

	// Description is free text shown on the split card (e.g., "Large pizza, 4 slices each").
	Description string

	// Location is where participants meet.
	Location string

	// CreatedAt is when the split was created.
	CreatedAt time.Time

	// Version is incremented by the store on every update and is used for
	// compare-and-swap writes of the membership fields.
	Version int64
}

// HasMember reports whether userID is in the joined set.
func (s *Split) HasMember(userID string) bool {
	for _, id := range s.PeopleJoined {
		if id == userID {
			return true
		}
	}
	return false
}

// IsFull reports whether the joined set has reached capacity.
func (s *Split) IsFull() bool {
	return len(s.PeopleJoined) >= s.PeopleNeeded
}

// Without returns a copy of the joined set with userID removed, preserving order.
func (s *Split) Without(userID string) []string {
	remaining := make([]string, 0, len(s.PeopleJoined))
	for _, id := range s.PeopleJoined {
		if id != userID {
			remaining = append(remaining, id)
		}
	}
	return remaining
}

// With returns a copy of the joined set with userID appended.
func (s *Split) With(userID string) []string {
	joined := make([]string, 0, len(s.PeopleJoined)+1)
	joined = append(joined, s.PeopleJoined...)
	return append(joined, userID)
}
