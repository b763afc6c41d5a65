package coordinator

import (
	"context"
	"log/slog"

	"github.com/mmynk/mealsplit/internal/models"
)

// UserReader looks up display names for ownership transfer.
type UserReader interface {
	GetUser(ctx context.Context, userID string) (*models.User, error)
}

// Ownership is the creator chosen after the previous creator left.
type Ownership struct {
	CreatorID   string
	CreatorName string

	// NameResolved is false when the name lookup failed; the caller keeps the
	// stale creator name in that case.
	NameResolved bool
}

// TransferOwnership picks the first remaining participant as the new creator.
// Appends preserve join order, so that is the earliest joiner still present.
// A failed name lookup does not stop the transfer. Empty remaining returns
// the zero Ownership.
func TransferOwnership(ctx context.Context, users UserReader, remaining []string) Ownership {
	if len(remaining) == 0 {
		return Ownership{}
	}

	next := Ownership{CreatorID: remaining[0]}
	user, err := users.GetUser(ctx, next.CreatorID)
	if err != nil {
		slog.Warn("Could not resolve new creator name, keeping previous name",
			"user_id", next.CreatorID, "error", err)
		return next
	}

	next.CreatorName = user.Name
	next.NameResolved = true
	return next
}
