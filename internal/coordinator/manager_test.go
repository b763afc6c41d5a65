package coordinator

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/mealsplit/internal/events"
	"github.com/mmynk/mealsplit/internal/models"
	"github.com/mmynk/mealsplit/internal/storage"
	"github.com/mmynk/mealsplit/internal/storage/sqlite"
)

// hookStore wraps the SQLite store so tests can fail individual calls.
type hookStore struct {
	*sqlite.SQLiteStore
	getUserErr   error
	setActiveErr error
}

func (h *hookStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	if h.getUserErr != nil {
		return nil, h.getUserErr
	}
	return h.SQLiteStore.GetUser(ctx, id)
}

func (h *hookStore) SetActiveSplit(ctx context.Context, userID, splitID string) error {
	if h.setActiveErr != nil {
		return h.setActiveErr
	}
	return h.SQLiteStore.SetActiveSplit(ctx, userID, splitID)
}

type recordingCleanup struct {
	mu   sync.Mutex
	keys []string
	err  error
}

func (r *recordingCleanup) DeleteConversation(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys = append(r.keys, key)
	return r.err
}

func (r *recordingCleanup) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.keys...)
}

type fixture struct {
	store   *hookStore
	mgr     *Manager
	cleanup *recordingCleanup
	events  *events.Recorder
}

var baseTime = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	for id, name := range map[string]string{"u1": "Ana", "u2": "Ben", "u3": "Cy", "u4": "Di"} {
		require.NoError(t, db.CreateUser(ctx, &models.User{ID: id, Name: name}))
	}

	f := &fixture{
		store:   &hookStore{SQLiteStore: db},
		cleanup: &recordingCleanup{},
		events:  &events.Recorder{},
	}
	f.mgr = NewManager(f.store, f.cleanup, WithPublisher(f.events))
	return f
}

func (f *fixture) create(t *testing.T, creator string, capacity int, when *time.Time) *models.Split {
	t.Helper()
	split, err := f.mgr.Create(context.Background(), CreateParams{
		CreatorID:    creator,
		PeopleNeeded: capacity,
		ScheduledAt:  when,
	})
	require.NoError(t, err)
	return split
}

func (f *fixture) pointer(t *testing.T, userID string) string {
	t.Helper()
	user, err := f.store.SQLiteStore.GetUser(context.Background(), userID)
	require.NoError(t, err)
	return user.ActiveSplitID
}

func (f *fixture) get(t *testing.T, splitID string) *models.Split {
	t.Helper()
	split, err := f.store.GetSplit(context.Background(), splitID)
	require.NoError(t, err)
	return split
}

func TestCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("creator is sole member and pointer is set", func(t *testing.T) {
		f := newFixture(t)
		split := f.create(t, "u1", 3, at(baseTime))

		assert.Equal(t, []string{"u1"}, split.PeopleJoined)
		assert.Equal(t, "u1", split.CreatorID)
		assert.Equal(t, "Ana", split.CreatorName)
		assert.False(t, split.IsClosed)
		assert.Equal(t, split.ID, f.pointer(t, "u1"))
		assert.Equal(t, []events.Type{events.SplitCreated}, f.events.Types())
	})

	t.Run("capacity one still starts open", func(t *testing.T) {
		f := newFixture(t)
		split := f.create(t, "u1", 1, nil)
		assert.False(t, split.IsClosed)
	})

	t.Run("explicit creator name wins", func(t *testing.T) {
		f := newFixture(t)
		split, err := f.mgr.Create(ctx, CreateParams{CreatorID: "u1", CreatorName: "Ana B.", PeopleNeeded: 2})
		require.NoError(t, err)
		assert.Equal(t, "Ana B.", split.CreatorName)
	})

	t.Run("validation", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.mgr.Create(ctx, CreateParams{CreatorID: "u1", PeopleNeeded: 0})
		assert.ErrorIs(t, err, ErrInvalidArgument)

		_, err = f.mgr.Create(ctx, CreateParams{PeopleNeeded: 2})
		assert.ErrorIs(t, err, ErrInvalidArgument)

		splits, err := f.store.ListSplits(ctx, storage.SplitFilter{})
		require.NoError(t, err)
		assert.Empty(t, splits)
	})

	t.Run("scenario B: overlapping create is rejected without a write", func(t *testing.T) {
		f := newFixture(t)
		x := f.create(t, "u1", 3, at(baseTime))

		_, err := f.mgr.Create(ctx, CreateParams{
			CreatorID:    "u1",
			PeopleNeeded: 3,
			ScheduledAt:  at(baseTime.Add(2 * time.Hour)),
		})
		var conflict *ConflictError
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, x.ID, conflict.SplitID)

		splits, err := f.store.ListSplits(ctx, storage.SplitFilter{Member: "u1"})
		require.NoError(t, err)
		assert.Len(t, splits, 1)
		assert.Equal(t, x.ID, f.pointer(t, "u1"))
	})

	t.Run("untimed create skips conflict check", func(t *testing.T) {
		f := newFixture(t)
		f.create(t, "u1", 3, at(baseTime))
		f.create(t, "u1", 3, nil)
	})

	t.Run("pointer failure does not fail create", func(t *testing.T) {
		f := newFixture(t)
		f.store.setActiveErr = errors.New("users table locked")
		split := f.create(t, "u1", 2, nil)
		assert.NotEmpty(t, split.ID)
	})
}

func TestJoin(t *testing.T) {
	ctx := context.Background()

	t.Run("scenario A: reaching capacity closes the split", func(t *testing.T) {
		f := newFixture(t)
		split := f.create(t, "u1", 2, at(baseTime))

		updated, err := f.mgr.Join(ctx, split.ID, "u2")
		require.NoError(t, err)
		assert.Equal(t, []string{"u1", "u2"}, updated.PeopleJoined)
		assert.True(t, updated.IsClosed)
		assert.Equal(t, split.ID, f.pointer(t, "u2"))
		assert.Equal(t,
			[]events.Type{events.SplitCreated, events.SplitJoined, events.SplitClosed},
			f.events.Types())
	})

	t.Run("join below capacity stays open and preserves order", func(t *testing.T) {
		f := newFixture(t)
		split := f.create(t, "u1", 4, nil)

		_, err := f.mgr.Join(ctx, split.ID, "u3")
		require.NoError(t, err)
		updated, err := f.mgr.Join(ctx, split.ID, "u2")
		require.NoError(t, err)
		assert.Equal(t, []string{"u1", "u3", "u2"}, updated.PeopleJoined)
		assert.False(t, updated.IsClosed)
	})

	t.Run("missing split", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.mgr.Join(ctx, "nope", "u2")
		assert.True(t, IsNotFound(err))
	})

	t.Run("joining twice is rejected with no state change", func(t *testing.T) {
		f := newFixture(t)
		split := f.create(t, "u1", 3, nil)
		_, err := f.mgr.Join(ctx, split.ID, "u2")
		require.NoError(t, err)
		before := f.get(t, split.ID)

		_, err = f.mgr.Join(ctx, split.ID, "u2")
		assert.True(t, IsAlreadyJoined(err))

		after := f.get(t, split.ID)
		assert.Equal(t, before.PeopleJoined, after.PeopleJoined)
		assert.Equal(t, before.Version, after.Version)
	})

	t.Run("closed split rejects joiners", func(t *testing.T) {
		f := newFixture(t)
		split := f.create(t, "u1", 3, nil)
		_, err := f.mgr.MarkComplete(ctx, split.ID)
		require.NoError(t, err)

		_, err = f.mgr.Join(ctx, split.ID, "u2")
		assert.True(t, IsSplitClosed(err))
		assert.Equal(t, []string{"u1"}, f.get(t, split.ID).PeopleJoined)
	})

	t.Run("conflict on join performs no write", func(t *testing.T) {
		f := newFixture(t)
		mine := f.create(t, "u2", 3, at(baseTime.Add(time.Hour)))
		other := f.create(t, "u1", 3, at(baseTime))

		_, err := f.mgr.Join(ctx, other.ID, "u2")
		assert.True(t, IsConflict(err))
		assert.Equal(t, []string{"u1"}, f.get(t, other.ID).PeopleJoined)
		assert.Equal(t, mine.ID, f.pointer(t, "u2"))
	})

	t.Run("closed split of joiner does not conflict", func(t *testing.T) {
		f := newFixture(t)
		mine := f.create(t, "u2", 3, at(baseTime))
		_, err := f.mgr.MarkComplete(ctx, mine.ID)
		require.NoError(t, err)
		other := f.create(t, "u1", 3, at(baseTime))

		_, err = f.mgr.Join(ctx, other.ID, "u2")
		assert.NoError(t, err)
	})

	t.Run("validation", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.mgr.Join(ctx, "", "u2")
		assert.ErrorIs(t, err, ErrInvalidArgument)
	})
}

func TestConcurrentJoinNeverOvershoots(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	split := f.create(t, "u1", 3, nil)

	joiners := []string{"j1", "j2", "j3", "j4", "j5", "j6", "j7", "j8"}
	var wg sync.WaitGroup
	var mu sync.Mutex
	var succeeded, closedErrs int
	for _, id := range joiners {
		wg.Add(1)
		go func(userID string) {
			defer wg.Done()
			_, err := f.mgr.Join(ctx, split.ID, userID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case IsSplitClosed(err):
				closedErrs++
			default:
				t.Errorf("unexpected join error: %v", err)
			}
		}(id)
	}
	wg.Wait()

	assert.Equal(t, 2, succeeded)
	assert.Equal(t, len(joiners)-2, closedErrs)

	final := f.get(t, split.ID)
	assert.Len(t, final.PeopleJoined, 3)
	assert.True(t, final.IsClosed)
}

func TestLeave(t *testing.T) {
	ctx := context.Background()

	t.Run("scenario C: creator leaves and first remaining takes over", func(t *testing.T) {
		f := newFixture(t)
		split := f.create(t, "u1", 4, nil)
		for _, u := range []string{"u2", "u3"} {
			_, err := f.mgr.Join(ctx, split.ID, u)
			require.NoError(t, err)
		}

		result, err := f.mgr.Leave(ctx, split.ID, "u1")
		require.NoError(t, err)
		assert.True(t, result.Removed)
		assert.False(t, result.SplitDeleted)
		assert.Equal(t, "u2", result.NewCreatorID)

		got := f.get(t, split.ID)
		assert.Equal(t, "u2", got.CreatorID)
		assert.Equal(t, "Ben", got.CreatorName)
		assert.Equal(t, []string{"u2", "u3"}, got.PeopleJoined)
		assert.Empty(t, f.cleanup.Keys())
		assert.Contains(t, f.events.Types(), events.SplitOwnerChanged)
	})

	t.Run("scenario D: member leaves and conversation with creator is removed", func(t *testing.T) {
		f := newFixture(t)
		split := f.create(t, "u1", 2, nil)
		_, err := f.mgr.Join(ctx, split.ID, "u2")
		require.NoError(t, err)
		require.True(t, f.get(t, split.ID).IsClosed)

		result, err := f.mgr.Leave(ctx, split.ID, "u2")
		require.NoError(t, err)
		assert.True(t, result.Removed)
		assert.Empty(t, result.NewCreatorID)

		got := f.get(t, split.ID)
		assert.Equal(t, []string{"u1"}, got.PeopleJoined)
		assert.False(t, got.IsClosed)
		assert.Equal(t, "u1", got.CreatorID)
		assert.Equal(t, []string{models.PairKey("u1", "u2")}, f.cleanup.Keys())
		assert.Empty(t, f.pointer(t, "u2"))
	})

	t.Run("scenario E: last member leaving deletes the split", func(t *testing.T) {
		f := newFixture(t)
		split := f.create(t, "u1", 2, nil)

		result, err := f.mgr.Leave(ctx, split.ID, "u1")
		require.NoError(t, err)
		assert.True(t, result.SplitDeleted)

		_, err = f.store.GetSplit(ctx, split.ID)
		assert.ErrorIs(t, err, storage.ErrNotFound)
		assert.Empty(t, f.cleanup.Keys())
		assert.Empty(t, f.pointer(t, "u1"))
	})

	t.Run("missing split still clears pointer", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.store.SetActiveSplit(ctx, "u3", "gone"))

		result, err := f.mgr.Leave(ctx, "gone", "u3")
		require.NoError(t, err)
		assert.False(t, result.Removed)
		assert.Empty(t, f.pointer(t, "u3"))
	})

	t.Run("non-member leave is a no-op", func(t *testing.T) {
		f := newFixture(t)
		split := f.create(t, "u1", 3, nil)
		before := f.get(t, split.ID)

		result, err := f.mgr.Leave(ctx, split.ID, "u4")
		require.NoError(t, err)
		assert.False(t, result.Removed)

		after := f.get(t, split.ID)
		assert.Equal(t, before.Version, after.Version)
		assert.Empty(t, f.cleanup.Keys())
	})

	t.Run("leave reduces membership by exactly one", func(t *testing.T) {
		f := newFixture(t)
		split := f.create(t, "u1", 5, nil)
		for _, u := range []string{"u2", "u3", "u4"} {
			_, err := f.mgr.Join(ctx, split.ID, u)
			require.NoError(t, err)
		}

		_, err := f.mgr.Leave(ctx, split.ID, "u3")
		require.NoError(t, err)
		assert.Equal(t, []string{"u1", "u2", "u4"}, f.get(t, split.ID).PeopleJoined)
	})

	t.Run("creator name lookup failure keeps stale name", func(t *testing.T) {
		f := newFixture(t)
		split := f.create(t, "u1", 3, nil)
		_, err := f.mgr.Join(ctx, split.ID, "u2")
		require.NoError(t, err)

		f.store.getUserErr = errors.New("lookup timeout")
		result, err := f.mgr.Leave(ctx, split.ID, "u1")
		require.NoError(t, err)
		assert.Equal(t, "u2", result.NewCreatorID)

		got := f.get(t, split.ID)
		assert.Equal(t, "u2", got.CreatorID)
		assert.Equal(t, "Ana", got.CreatorName)
	})

	t.Run("cleanup failure does not fail leave", func(t *testing.T) {
		f := newFixture(t)
		f.cleanup.err = errors.New("messaging down")
		split := f.create(t, "u1", 3, nil)
		_, err := f.mgr.Join(ctx, split.ID, "u2")
		require.NoError(t, err)

		result, err := f.mgr.Leave(ctx, split.ID, "u2")
		require.NoError(t, err)
		assert.True(t, result.Removed)
		assert.Equal(t, []string{"u1"}, f.get(t, split.ID).PeopleJoined)
	})

	t.Run("pointer failure does not fail leave", func(t *testing.T) {
		f := newFixture(t)
		split := f.create(t, "u1", 3, nil)
		_, err := f.mgr.Join(ctx, split.ID, "u2")
		require.NoError(t, err)

		f.store.setActiveErr = errors.New("users table locked")
		result, err := f.mgr.Leave(ctx, split.ID, "u2")
		require.NoError(t, err)
		assert.True(t, result.Removed)
	})

	t.Run("leaving a completed split recomputes closed from size", func(t *testing.T) {
		f := newFixture(t)
		split := f.create(t, "u1", 3, nil)
		_, err := f.mgr.Join(ctx, split.ID, "u2")
		require.NoError(t, err)
		_, err = f.mgr.MarkComplete(ctx, split.ID)
		require.NoError(t, err)

		_, err = f.mgr.Leave(ctx, split.ID, "u2")
		require.NoError(t, err)
		assert.False(t, f.get(t, split.ID).IsClosed)
	})
}

func TestMarkCompleteAndDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("mark complete closes regardless of size", func(t *testing.T) {
		f := newFixture(t)
		split := f.create(t, "u1", 5, nil)

		updated, err := f.mgr.MarkComplete(ctx, split.ID)
		require.NoError(t, err)
		assert.True(t, updated.IsClosed)
		assert.Equal(t, []string{"u1"}, updated.PeopleJoined)
	})

	t.Run("mark complete missing", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.mgr.MarkComplete(ctx, "nope")
		assert.True(t, IsNotFound(err))
	})

	t.Run("delete", func(t *testing.T) {
		f := newFixture(t)
		split := f.create(t, "u1", 5, nil)

		require.NoError(t, f.mgr.Delete(ctx, split.ID))
		_, err := f.mgr.Get(ctx, split.ID)
		assert.True(t, IsNotFound(err))

		assert.True(t, IsNotFound(f.mgr.Delete(ctx, split.ID)))
		assert.Equal(t, events.SplitDeleted, f.events.Types()[len(f.events.Types())-1])
	})
}

func TestListAndRecent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	a := f.create(t, "u1", 3, nil)
	time.Sleep(2 * time.Millisecond)
	b := f.create(t, "u2", 2, nil)
	time.Sleep(2 * time.Millisecond)
	c := f.create(t, "u3", 3, nil)

	_, err := f.mgr.Join(ctx, b.ID, "u1")
	require.NoError(t, err)
	require.True(t, f.get(t, b.ID).IsClosed)

	ids := func(splits []*models.Split) []string {
		out := make([]string, len(splits))
		for i, s := range splits {
			out[i] = s.ID
		}
		return out
	}

	t.Run("anonymous sees only open splits", func(t *testing.T) {
		got, err := f.mgr.List(ctx, "")
		require.NoError(t, err)
		assert.Equal(t, []string{c.ID, a.ID}, ids(got))
	})

	t.Run("viewer also sees own closed splits", func(t *testing.T) {
		got, err := f.mgr.List(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, []string{c.ID, b.ID, a.ID}, ids(got))

		got, err = f.mgr.List(ctx, "u4")
		require.NoError(t, err)
		assert.Equal(t, []string{c.ID, a.ID}, ids(got))
	})

	t.Run("recent activity is capped", func(t *testing.T) {
		got, err := f.mgr.RecentForUser(ctx, "u1", 0)
		require.NoError(t, err)
		assert.Equal(t, []string{b.ID, a.ID}, ids(got))

		got, err = f.mgr.RecentForUser(ctx, "u1", 1)
		require.NoError(t, err)
		assert.Equal(t, []string{b.ID}, ids(got))
	})
}

func TestOpenSplitInvariant(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	split := f.create(t, "u1", 3, nil)

	steps := []func() error{
		func() error { _, err := f.mgr.Join(ctx, split.ID, "u2"); return err },
		func() error { _, err := f.mgr.Leave(ctx, split.ID, "u1"); return err },
		func() error { _, err := f.mgr.Join(ctx, split.ID, "u3"); return err },
		func() error { _, err := f.mgr.Join(ctx, split.ID, "u4"); return err },
		func() error { _, err := f.mgr.Leave(ctx, split.ID, "u3"); return err },
	}
	for i, step := range steps {
		require.NoError(t, step(), "step %d", i)
		got := f.get(t, split.ID)
		if !got.IsClosed {
			assert.Less(t, len(got.PeopleJoined), got.PeopleNeeded, "step %d", i)
		}
		assert.True(t, got.HasMember(got.CreatorID), "step %d", i)
	}
}
