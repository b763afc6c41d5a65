package coordinator

import (
	"context"
	"time"

	"github.com/mmynk/mealsplit/internal/models"
	"github.com/mmynk/mealsplit/internal/storage"
)

// ConflictWindow is the minimum spacing between two open splits of one user.
const ConflictWindow = 4 * time.Hour

// SplitLister is the read side of the split store.
type SplitLister interface {
	ListSplits(ctx context.Context, filter storage.SplitFilter) ([]*models.Split, error)
}

// ConflictChecker detects scheduling overlaps across a user's open splits.
type ConflictChecker struct {
	splits SplitLister
	window time.Duration
}

// NewConflictChecker creates a checker. A non-positive window means ConflictWindow.
func NewConflictChecker(splits SplitLister, window time.Duration) *ConflictChecker {
	if window <= 0 {
		window = ConflictWindow
	}
	return &ConflictChecker{splits: splits, window: window}
}

// Window returns the configured conflict window.
func (c *ConflictChecker) Window() time.Duration {
	return c.window
}

// HasConflict reports whether userID has an open split scheduled strictly
// within the window of candidate.
func (c *ConflictChecker) HasConflict(ctx context.Context, userID string, candidate time.Time) (bool, error) {
	split, err := c.FindConflict(ctx, userID, candidate)
	if err != nil {
		return false, err
	}
	return split != nil, nil
}

// FindConflict returns the first open split of userID whose scheduled time is
// within the window of candidate, or nil. Closed splits and splits without a
// scheduled time never conflict.
func (c *ConflictChecker) FindConflict(ctx context.Context, userID string, candidate time.Time) (*models.Split, error) {
	open := false
	splits, err := c.splits.ListSplits(ctx, storage.SplitFilter{Member: userID, Closed: &open})
	if err != nil {
		return nil, &StoreError{Op: "list open splits", Err: err}
	}

	for _, split := range splits {
		if split.ScheduledAt == nil {
			continue
		}
		delta := candidate.Sub(*split.ScheduledAt)
		if delta < 0 {
			delta = -delta
		}
		if delta < c.window {
			return split, nil
		}
	}
	return nil, nil
}
