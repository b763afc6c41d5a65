// Package models defines the core domain models for the meal split service.
//
// # Models
//
//   - Split: a shared-meal proposal with a capacity and an ordered set of joined users
//   - User: the slice of a user record the split engine touches (name, active split)
//   - Conversation / Message: direct-message threads between two users
//
// # Design Principles
//
// 1. **Plain structs**: storage backends map rows onto these types; no ORM tags here
// 2. **IDs, not pointers**: relationships are expressed with ID strings
// 3. **Weak references stay weak**: User.ActiveSplitID is a display convenience and is
// never consulted to decide membership; Split.PeopleJoined is the source of truth
//
// # Conversations and splits
//
// A Conversation is not owned by a Split, but when a participant leaves a split the
// thread between that participant and the split creator is deleted. Conversations are
// keyed by PairKey so either participant can find the thread without a lookup table.
package models
