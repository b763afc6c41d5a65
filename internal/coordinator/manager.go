// Package coordinator implements the meal split lifecycle: create, join,
// leave, complete and delete, with the scheduling conflict window, ownership
// transfer and the best-effort side effects on user pointers and conversations.
//
// Every mutation of one split runs inside a per-split lock and writes with a
// version check, so two joiners can never both take the last slot.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/mmynk/mealsplit/internal/events"
	"github.com/mmynk/mealsplit/internal/locks"
	"github.com/mmynk/mealsplit/internal/metrics"
	"github.com/mmynk/mealsplit/internal/models"
	"github.com/mmynk/mealsplit/internal/storage"
)

// DefaultActivityLimit is the number of splits RecentForUser returns when no
// limit is given.
const DefaultActivityLimit = 3

var validate = validator.New()

// Store is the storage surface the manager needs.
type Store interface {
	storage.SplitStore
	storage.UserStore
}

// ConversationDeleter removes the direct-message thread for a pair key.
// A missing conversation must not be reported as an error.
type ConversationDeleter interface {
	DeleteConversation(ctx context.Context, pairKey string) error
}

// CreateParams are the inputs of Create.
type CreateParams struct {
	CreatorID    string `validate:"required"`
	CreatorName  string
	PeopleNeeded int `validate:"min=1"`
	ScheduledAt  *time.Time
	VendorID     string
	VendorName   string
	Description  string `validate:"max=500"`
	Location     string `validate:"max=200"`
}

// LeaveResult acknowledges a Leave.
type LeaveResult struct {
	// Removed is true when the user was a member and has been removed.
	Removed bool

	// SplitDeleted is true when the user was the last member.
	SplitDeleted bool

	// NewCreatorID is set when the leaver was the creator and ownership moved.
	NewCreatorID string
}

// Manager owns the state transitions of splits.
type Manager struct {
	store     Store
	locker    locks.Locker
	conflicts *ConflictChecker
	cleanup   ConversationDeleter
	events    events.Publisher
	window    time.Duration
}

// Option configures a Manager.
type Option func(*Manager)

// WithLocker replaces the default in-process lock table.
func WithLocker(l locks.Locker) Option {
	return func(m *Manager) { m.locker = l }
}

// WithPublisher sets the lifecycle event publisher.
func WithPublisher(p events.Publisher) Option {
	return func(m *Manager) { m.events = p }
}

// WithConflictWindow overrides ConflictWindow.
func WithConflictWindow(d time.Duration) Option {
	return func(m *Manager) { m.window = d }
}

// NewManager creates a Manager. cleanup may be nil, which disables
// conversation cleanup.
func NewManager(store Store, cleanup ConversationDeleter, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		cleanup: cleanup,
		locker:  locks.NewLocal(),
		events:  events.Nop{},
	}
	for _, opt := range opts {
		opt(m)
	}
	m.conflicts = NewConflictChecker(store, m.window)
	return m
}

// Conflicts returns the manager's conflict checker.
func (m *Manager) Conflicts() *ConflictChecker {
	return m.conflicts
}

// Create persists a new open split with the creator as its only member.
func (m *Manager) Create(ctx context.Context, params CreateParams) (split *models.Split, err error) {
	defer func() { metrics.RecordOperation("create", outcome(err)) }()

	if err := validate.Struct(params); err != nil {
		return nil, validationError(err)
	}

	if params.ScheduledAt != nil {
		if err := m.checkConflict(ctx, "create", params.CreatorID, *params.ScheduledAt); err != nil {
			return nil, err
		}
	}

	creatorName := params.CreatorName
	if creatorName == "" {
		if user, err := m.store.GetUser(ctx, params.CreatorID); err == nil {
			creatorName = user.Name
		}
	}

	split = &models.Split{
		CreatorID:    params.CreatorID,
		CreatorName:  creatorName,
		ScheduledAt:  params.ScheduledAt,
		PeopleNeeded: params.PeopleNeeded,
		PeopleJoined: []string{params.CreatorID},
		IsClosed:     false,
		VendorID:     params.VendorID,
		VendorName:   params.VendorName,
		Description:  params.Description,
		Location:     params.Location,
	}
	if err := m.store.CreateSplit(ctx, split); err != nil {
		return nil, &StoreError{Op: "create split", Err: err}
	}

	m.setPointer(ctx, params.CreatorID, split.ID)
	m.publish(ctx, events.SplitCreated, split.ID, params.CreatorID, split)

	slog.Info("Split created", "split_id", split.ID, "creator_id", split.CreatorID, "people_needed", split.PeopleNeeded)
	return split, nil
}

// Join appends userID to the split, closing it when capacity is reached.
func (m *Manager) Join(ctx context.Context, splitID, userID string) (updated *models.Split, err error) {
	defer func() { metrics.RecordOperation("join", outcome(err)) }()

	if splitID == "" || userID == "" {
		return nil, invalidArgument("split id and user id are required")
	}

	release, err := m.lock(ctx, splitID)
	if err != nil {
		return nil, err
	}
	defer release()

	split, err := m.getSplit(ctx, splitID)
	if err != nil {
		return nil, err
	}
	if split.HasMember(userID) {
		return nil, &AlreadyJoinedError{SplitID: splitID, UserID: userID}
	}
	if split.IsClosed || split.IsFull() {
		return nil, &SplitClosedError{SplitID: splitID}
	}
	if split.ScheduledAt != nil {
		if err := m.checkConflict(ctx, "join", userID, *split.ScheduledAt); err != nil {
			return nil, err
		}
	}

	joined := split.With(userID)
	closed := len(joined) >= split.PeopleNeeded
	updated, err = m.store.UpdateSplit(ctx, splitID, storage.SplitUpdate{
		PeopleJoined:  joined,
		IsClosed:      &closed,
		ExpectVersion: split.Version,
	})
	if err != nil {
		return nil, m.writeError("join split", splitID, err)
	}

	m.setPointer(ctx, userID, splitID)
	m.publish(ctx, events.SplitJoined, splitID, userID, updated)
	if closed {
		m.publish(ctx, events.SplitClosed, splitID, userID, updated)
	}

	slog.Info("User joined split", "split_id", splitID, "user_id", userID,
		"joined", len(updated.PeopleJoined), "people_needed", updated.PeopleNeeded, "closed", updated.IsClosed)
	return updated, nil
}

// Leave removes userID from the split. The user's active split pointer is
// cleared before anything else and stays cleared even if later steps fail.
// A missing split or a non-member leaver is a successful no-op.
func (m *Manager) Leave(ctx context.Context, splitID, userID string) (result *LeaveResult, err error) {
	defer func() { metrics.RecordOperation("leave", outcome(err)) }()

	if userID == "" {
		return nil, invalidArgument("user id is required")
	}
	m.setPointer(ctx, userID, "")

	result = &LeaveResult{}
	if splitID == "" {
		return result, nil
	}

	release, err := m.lock(ctx, splitID)
	if err != nil {
		return nil, err
	}
	defer release()

	split, err := m.store.GetSplit(ctx, splitID)
	if errors.Is(err, storage.ErrNotFound) {
		slog.Info("Leave on missing split, pointer cleared", "split_id", splitID, "user_id", userID)
		return result, nil
	}
	if err != nil {
		return nil, &StoreError{Op: "get split", Err: err}
	}
	if !split.HasMember(userID) {
		return result, nil
	}

	remaining := split.Without(userID)
	result.Removed = true

	if len(remaining) == 0 {
		if err := m.store.DeleteSplit(ctx, splitID); err != nil && !errors.Is(err, storage.ErrNotFound) {
			return nil, &StoreError{Op: "delete split", Err: err}
		}
		result.SplitDeleted = true
		m.publish(ctx, events.SplitLeft, splitID, userID, nil)
		m.publish(ctx, events.SplitDeleted, splitID, userID, nil)
		slog.Info("Last member left, split deleted", "split_id", splitID, "user_id", userID)
		return result, nil
	}

	wasCreator := split.CreatorID == userID
	closed := len(remaining) >= split.PeopleNeeded
	update := storage.SplitUpdate{
		PeopleJoined:  remaining,
		IsClosed:      &closed,
		ExpectVersion: split.Version,
	}
	if wasCreator {
		owner := TransferOwnership(ctx, m.store, remaining)
		update.CreatorID = &owner.CreatorID
		if owner.NameResolved {
			update.CreatorName = &owner.CreatorName
		}
		result.NewCreatorID = owner.CreatorID
		metrics.RecordOwnershipTransfer(owner.NameResolved)
	}

	updated, err := m.store.UpdateSplit(ctx, splitID, update)
	if err != nil {
		return nil, m.writeError("leave split", splitID, err)
	}

	if !wasCreator {
		m.cleanupConversation(ctx, userID, split.CreatorID)
	}

	m.publish(ctx, events.SplitLeft, splitID, userID, updated)
	if wasCreator {
		m.publish(ctx, events.SplitOwnerChanged, splitID, result.NewCreatorID, updated)
	}

	slog.Info("User left split", "split_id", splitID, "user_id", userID,
		"remaining", len(remaining), "new_creator_id", result.NewCreatorID)
	return result, nil
}

// MarkComplete closes the split regardless of how many have joined.
func (m *Manager) MarkComplete(ctx context.Context, splitID string) (updated *models.Split, err error) {
	defer func() { metrics.RecordOperation("complete", outcome(err)) }()

	if splitID == "" {
		return nil, invalidArgument("split id is required")
	}

	release, err := m.lock(ctx, splitID)
	if err != nil {
		return nil, err
	}
	defer release()

	split, err := m.getSplit(ctx, splitID)
	if err != nil {
		return nil, err
	}

	closed := true
	updated, err = m.store.UpdateSplit(ctx, splitID, storage.SplitUpdate{
		IsClosed:      &closed,
		ExpectVersion: split.Version,
	})
	if err != nil {
		return nil, m.writeError("complete split", splitID, err)
	}

	m.publish(ctx, events.SplitClosed, splitID, "", updated)
	slog.Info("Split marked complete", "split_id", splitID, "joined", len(updated.PeopleJoined))
	return updated, nil
}

// Delete removes the split unconditionally.
func (m *Manager) Delete(ctx context.Context, splitID string) (err error) {
	defer func() { metrics.RecordOperation("delete", outcome(err)) }()

	if splitID == "" {
		return invalidArgument("split id is required")
	}

	release, err := m.lock(ctx, splitID)
	if err != nil {
		return err
	}
	defer release()

	if err := m.store.DeleteSplit(ctx, splitID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return &NotFoundError{SplitID: splitID}
		}
		return &StoreError{Op: "delete split", Err: err}
	}

	m.publish(ctx, events.SplitDeleted, splitID, "", nil)
	slog.Info("Split deleted", "split_id", splitID)
	return nil
}

// Get returns one split.
func (m *Manager) Get(ctx context.Context, splitID string) (*models.Split, error) {
	if splitID == "" {
		return nil, invalidArgument("split id is required")
	}
	return m.getSplit(ctx, splitID)
}

// List returns every open split plus, when viewerID is set, the viewer's
// closed splits, newest first.
func (m *Manager) List(ctx context.Context, viewerID string) ([]*models.Split, error) {
	open := false
	splits, err := m.store.ListSplits(ctx, storage.SplitFilter{Closed: &open})
	if err != nil {
		return nil, &StoreError{Op: "list open splits", Err: err}
	}

	if viewerID != "" {
		closed := true
		mine, err := m.store.ListSplits(ctx, storage.SplitFilter{Member: viewerID, Closed: &closed})
		if err != nil {
			slog.Warn("Failed to list viewer's closed splits", "user_id", viewerID, "error", err)
		} else {
			seen := make(map[string]bool, len(splits))
			for _, s := range splits {
				seen[s.ID] = true
			}
			for _, s := range mine {
				if !seen[s.ID] {
					splits = append(splits, s)
				}
			}
		}
	}

	sort.SliceStable(splits, func(i, j int) bool {
		return splits[i].CreatedAt.After(splits[j].CreatedAt)
	})
	return splits, nil
}

// RecentForUser returns the newest splits containing userID.
func (m *Manager) RecentForUser(ctx context.Context, userID string, limit int) ([]*models.Split, error) {
	if userID == "" {
		return nil, invalidArgument("user id is required")
	}
	if limit <= 0 {
		limit = DefaultActivityLimit
	}
	splits, err := m.store.ListSplits(ctx, storage.SplitFilter{Member: userID, Limit: limit})
	if err != nil {
		return nil, &StoreError{Op: "list user splits", Err: err}
	}
	return splits, nil
}

func (m *Manager) lock(ctx context.Context, splitID string) (func(), error) {
	start := time.Now()
	release, err := m.locker.Lock(ctx, "split:"+splitID)
	metrics.ObserveLockWait(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("failed to lock split %s: %w", splitID, err)
	}
	return release, nil
}

func (m *Manager) getSplit(ctx context.Context, splitID string) (*models.Split, error) {
	split, err := m.store.GetSplit(ctx, splitID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, &NotFoundError{SplitID: splitID}
	}
	if err != nil {
		return nil, &StoreError{Op: "get split", Err: err}
	}
	return split, nil
}

func (m *Manager) writeError(op, splitID string, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return &NotFoundError{SplitID: splitID}
	}
	return &StoreError{Op: op, Err: err}
}

func (m *Manager) checkConflict(ctx context.Context, op, userID string, at time.Time) error {
	existing, err := m.conflicts.FindConflict(ctx, userID, at)
	if err != nil {
		return err
	}
	if existing != nil {
		metrics.RecordConflict(op)
		slog.Info("Scheduling conflict", "op", op, "user_id", userID, "existing_split_id", existing.ID)
		return &ConflictError{UserID: userID, SplitID: existing.ID, Window: m.conflicts.Window()}
	}
	return nil
}

// setPointer writes the user's active split pointer. Failures are logged only.
func (m *Manager) setPointer(ctx context.Context, userID, splitID string) {
	if err := m.store.SetActiveSplit(ctx, userID, splitID); err != nil {
		metrics.RecordSideEffectFailure(metrics.KindPointerSync)
		slog.Warn("Failed to update active split pointer", "user_id", userID, "split_id", splitID, "error", err)
	}
}

// cleanupConversation deletes the thread between leaver and creator. Failures
// are logged only.
func (m *Manager) cleanupConversation(ctx context.Context, leaverID, creatorID string) {
	if m.cleanup == nil || leaverID == creatorID {
		return
	}
	key := models.PairKey(leaverID, creatorID)
	if err := m.cleanup.DeleteConversation(ctx, key); err != nil {
		metrics.RecordSideEffectFailure(metrics.KindConversationCleanup)
		slog.Warn("Failed to delete conversation", "conversation_id", key, "error", err)
	}
}

func (m *Manager) publish(ctx context.Context, t events.Type, splitID, userID string, split *models.Split) {
	m.events.Publish(ctx, events.NewEvent(t, splitID, userID, split))
}
