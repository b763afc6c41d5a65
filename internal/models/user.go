package models

import "time"

// User is the part of a user account the split engine reads and writes.
// Accounts themselves are created by the auth provider; this service only
// mirrors the fields it needs.
type User struct {
	// ID is the unique identifier for the user.
	ID string

	// Name is the display name, copied onto splits the user creates or inherits.
	Name string

	// Email is the user's email address.
	Email string

	// ActiveSplitID points at the split the user most recently created or joined.
	// Empty means no pointer. It is written by the split engine and only read
	// by profile views; membership is always decided from Split.PeopleJoined.
	ActiveSplitID string

	// CreatedAt is when the user record was created.
	CreatedAt time.Time
}
