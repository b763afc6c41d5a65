package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/mealsplit/internal/auth"
	"github.com/mmynk/mealsplit/internal/coordinator"
	"github.com/mmynk/mealsplit/internal/messaging"
	"github.com/mmynk/mealsplit/internal/middleware"
	"github.com/mmynk/mealsplit/internal/models"
	"github.com/mmynk/mealsplit/internal/storage/sqlite"
	"github.com/mmynk/mealsplit/pkg/api"
)

type testEnv struct {
	store    *sqlite.SQLiteStore
	splits   *api.SplitClient
	messages *api.MessageClient
	users    *api.UserClient
	jwt      *auth.JWTManager
}

// setupTestServer serves all three services over httptest with real JWT auth.
func setupTestServer(t *testing.T) *testEnv {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	for id, name := range map[string]string{"alice": "Alice", "bob": "Bob", "carol": "Carol"} {
		require.NoError(t, store.CreateUser(ctx, &models.User{ID: id, Name: name}))
	}

	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	interceptors := connect.WithInterceptors(middleware.Authenticate(jwtManager, PublicProcedures...))

	msgs := messaging.NewService(store)
	manager := coordinator.NewManager(store, msgs)

	mux := http.NewServeMux()
	mux.Handle(api.NewSplitServiceHandler(NewSplitService(manager, store), interceptors))
	mux.Handle(api.NewMessageServiceHandler(NewMessageService(msgs), interceptors))
	mux.Handle(api.NewUserServiceHandler(NewUserService(store, store), interceptors))

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return &testEnv{
		store:    store,
		splits:   api.NewSplitClient(server.Client(), server.URL),
		messages: api.NewMessageClient(server.Client(), server.URL),
		users:    api.NewUserClient(server.Client(), server.URL),
		jwt:      jwtManager,
	}
}

// as wraps msg in a request authenticated as userID.
func as[T any](t *testing.T, env *testEnv, userID, role string, msg *T) *connect.Request[T] {
	t.Helper()
	token, err := env.jwt.Generate(userID, "", role)
	require.NoError(t, err)
	req := connect.NewRequest(msg)
	req.Header().Set("Authorization", "Bearer "+token)
	return req
}

func createSplit(t *testing.T, env *testEnv, userID string, msg *api.CreateSplitRequest) *api.Split {
	t.Helper()
	resp, err := env.splits.CreateSplit(context.Background(), as(t, env, userID, "", msg))
	require.NoError(t, err)
	return resp.Msg.Split
}

func TestCreateAndJoin(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()

	split := createSplit(t, env, "alice", &api.CreateSplitRequest{PeopleNeeded: 2, Description: "Pizza"})
	assert.Equal(t, "alice", split.CreatorID)
	assert.Equal(t, "Alice", split.CreatorName)
	assert.Equal(t, []string{"alice"}, split.PeopleJoined)
	assert.False(t, split.IsClosed)

	joined, err := env.splits.JoinSplit(ctx, as(t, env, "bob", "", &api.JoinSplitRequest{SplitID: split.ID}))
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, joined.Msg.Split.PeopleJoined)
	assert.True(t, joined.Msg.Split.IsClosed)

	_, err = env.splits.JoinSplit(ctx, as(t, env, "bob", "", &api.JoinSplitRequest{SplitID: split.ID}))
	assert.Equal(t, connect.CodeAlreadyExists, connect.CodeOf(err))

	_, err = env.splits.JoinSplit(ctx, as(t, env, "carol", "", &api.JoinSplitRequest{SplitID: split.ID}))
	assert.Equal(t, connect.CodeFailedPrecondition, connect.CodeOf(err))
}

func TestCreateSplitErrors(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()

	t.Run("unauthenticated", func(t *testing.T) {
		_, err := env.splits.CreateSplit(ctx, connect.NewRequest(&api.CreateSplitRequest{PeopleNeeded: 2}))
		assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
	})

	t.Run("invalid capacity", func(t *testing.T) {
		_, err := env.splits.CreateSplit(ctx, as(t, env, "alice", "", &api.CreateSplitRequest{PeopleNeeded: 0}))
		assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
	})

	t.Run("conflict", func(t *testing.T) {
		at := time.Date(2026, 6, 1, 18, 0, 0, 0, time.UTC)
		createSplit(t, env, "bob", &api.CreateSplitRequest{PeopleNeeded: 3, ScheduledAt: &at})

		later := at.Add(2 * time.Hour)
		_, err := env.splits.CreateSplit(ctx, as(t, env, "bob", "", &api.CreateSplitRequest{PeopleNeeded: 3, ScheduledAt: &later}))
		require.Error(t, err)
		assert.Equal(t, connect.CodeFailedPrecondition, connect.CodeOf(err))

		var connectErr *connect.Error
		require.ErrorAs(t, err, &connectErr)
		assert.Equal(t, "You have another split scheduled within 4 hours of this time.", connectErr.Message())
	})
}

func TestLeaveSplit(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()

	split := createSplit(t, env, "alice", &api.CreateSplitRequest{PeopleNeeded: 3})
	_, err := env.splits.JoinSplit(ctx, as(t, env, "bob", "", &api.JoinSplitRequest{SplitID: split.ID}))
	require.NoError(t, err)

	resp, err := env.splits.LeaveSplit(ctx, as(t, env, "alice", "", &api.LeaveSplitRequest{SplitID: split.ID}))
	require.NoError(t, err)
	assert.True(t, resp.Msg.Removed)
	assert.False(t, resp.Msg.SplitDeleted)
	assert.Equal(t, "bob", resp.Msg.NewCreatorID)

	got, err := env.splits.GetSplit(ctx, as(t, env, "bob", "", &api.GetSplitRequest{SplitID: split.ID}))
	require.NoError(t, err)
	assert.Equal(t, "bob", got.Msg.Split.CreatorID)
	assert.Equal(t, "Bob", got.Msg.Split.CreatorName)

	resp, err = env.splits.LeaveSplit(ctx, as(t, env, "bob", "", &api.LeaveSplitRequest{SplitID: split.ID}))
	require.NoError(t, err)
	assert.True(t, resp.Msg.SplitDeleted)

	_, err = env.splits.GetSplit(ctx, as(t, env, "bob", "", &api.GetSplitRequest{SplitID: split.ID}))
	assert.Equal(t, connect.CodeNotFound, connect.CodeOf(err))

	// Leaving a split that is gone is still a success.
	resp, err = env.splits.LeaveSplit(ctx, as(t, env, "bob", "", &api.LeaveSplitRequest{SplitID: split.ID}))
	require.NoError(t, err)
	assert.False(t, resp.Msg.Removed)
}

func TestLeaveDeletesConversationWithCreator(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()

	split := createSplit(t, env, "alice", &api.CreateSplitRequest{PeopleNeeded: 3})
	_, err := env.splits.JoinSplit(ctx, as(t, env, "bob", "", &api.JoinSplitRequest{SplitID: split.ID}))
	require.NoError(t, err)
	_, err = env.messages.SendMessage(ctx, as(t, env, "bob", "", &api.SendMessageRequest{ReceiverID: "alice", Content: "see you there"}))
	require.NoError(t, err)

	_, err = env.splits.LeaveSplit(ctx, as(t, env, "bob", "", &api.LeaveSplitRequest{SplitID: split.ID}))
	require.NoError(t, err)

	inbox, err := env.messages.GetInbox(ctx, as(t, env, "alice", "", &api.GetInboxRequest{}))
	require.NoError(t, err)
	assert.Empty(t, inbox.Msg.Conversations)
}

func TestCompleteAndDeletePermissions(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()

	split := createSplit(t, env, "alice", &api.CreateSplitRequest{PeopleNeeded: 4})

	_, err := env.splits.MarkComplete(ctx, as(t, env, "bob", "", &api.MarkCompleteRequest{SplitID: split.ID}))
	assert.Equal(t, connect.CodePermissionDenied, connect.CodeOf(err))

	done, err := env.splits.MarkComplete(ctx, as(t, env, "alice", "", &api.MarkCompleteRequest{SplitID: split.ID}))
	require.NoError(t, err)
	assert.True(t, done.Msg.Split.IsClosed)

	_, err = env.splits.DeleteSplit(ctx, as(t, env, "bob", "", &api.DeleteSplitRequest{SplitID: split.ID}))
	assert.Equal(t, connect.CodePermissionDenied, connect.CodeOf(err))

	_, err = env.splits.DeleteSplit(ctx, as(t, env, "carol", auth.RoleAdmin, &api.DeleteSplitRequest{SplitID: split.ID}))
	require.NoError(t, err)

	_, err = env.splits.DeleteSplit(ctx, as(t, env, "alice", "", &api.DeleteSplitRequest{SplitID: split.ID}))
	assert.Equal(t, connect.CodeNotFound, connect.CodeOf(err))
}

func TestListAndActivity(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()

	open := createSplit(t, env, "alice", &api.CreateSplitRequest{PeopleNeeded: 3})
	full := createSplit(t, env, "bob", &api.CreateSplitRequest{PeopleNeeded: 2})
	_, err := env.splits.JoinSplit(ctx, as(t, env, "carol", "", &api.JoinSplitRequest{SplitID: full.ID}))
	require.NoError(t, err)

	ids := func(splits []*api.Split) []string {
		out := make([]string, len(splits))
		for i, s := range splits {
			out[i] = s.ID
		}
		return out
	}

	alice, err := env.splits.ListSplits(ctx, as(t, env, "alice", "", &api.ListSplitsRequest{}))
	require.NoError(t, err)
	assert.Equal(t, []string{open.ID}, ids(alice.Msg.Splits))

	carol, err := env.splits.ListSplits(ctx, as(t, env, "carol", "", &api.ListSplitsRequest{}))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{open.ID, full.ID}, ids(carol.Msg.Splits))

	activity, err := env.splits.GetActivity(ctx, as(t, env, "carol", "", &api.GetActivityRequest{}))
	require.NoError(t, err)
	assert.Equal(t, []string{full.ID}, ids(activity.Msg.Splits))

	t.Run("anonymous", func(t *testing.T) {
		list, err := env.splits.ListSplits(ctx, connect.NewRequest(&api.ListSplitsRequest{}))
		require.NoError(t, err)
		assert.Equal(t, []string{open.ID}, ids(list.Msg.Splits))

		got, err := env.splits.GetSplit(ctx, connect.NewRequest(&api.GetSplitRequest{SplitID: full.ID}))
		require.NoError(t, err)
		assert.Equal(t, full.ID, got.Msg.Split.ID)

		_, err = env.splits.GetActivity(ctx, connect.NewRequest(&api.GetActivityRequest{}))
		assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
	})
}

func TestMessages(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()

	sent, err := env.messages.SendMessage(ctx, as(t, env, "alice", "", &api.SendMessageRequest{ReceiverID: "bob", Content: "  hi  "}))
	require.NoError(t, err)
	assert.Equal(t, "hi", sent.Msg.Message.Content)
	convID := models.PairKey("alice", "bob")
	assert.Equal(t, convID, sent.Msg.Message.ConversationID)

	inbox, err := env.messages.GetInbox(ctx, as(t, env, "bob", "", &api.GetInboxRequest{}))
	require.NoError(t, err)
	require.Len(t, inbox.Msg.Conversations, 1)
	assert.Equal(t, 1, inbox.Msg.Conversations[0].UnreadCount)
	require.NotNil(t, inbox.Msg.Conversations[0].LastMessage)
	assert.Equal(t, "hi", inbox.Msg.Conversations[0].LastMessage.Content)

	_, err = env.messages.MarkRead(ctx, as(t, env, "carol", "", &api.MarkReadRequest{ConversationID: convID}))
	assert.Equal(t, connect.CodePermissionDenied, connect.CodeOf(err))
	inbox, err = env.messages.GetInbox(ctx, as(t, env, "bob", "", &api.GetInboxRequest{}))
	require.NoError(t, err)
	assert.Equal(t, 1, inbox.Msg.Conversations[0].UnreadCount)

	_, err = env.messages.MarkRead(ctx, as(t, env, "bob", "", &api.MarkReadRequest{ConversationID: convID}))
	require.NoError(t, err)
	inbox, err = env.messages.GetInbox(ctx, as(t, env, "bob", "", &api.GetInboxRequest{}))
	require.NoError(t, err)
	assert.Equal(t, 0, inbox.Msg.Conversations[0].UnreadCount)

	chat, err := env.messages.GetChat(ctx, as(t, env, "alice", "", &api.GetChatRequest{ConversationID: convID}))
	require.NoError(t, err)
	require.Len(t, chat.Msg.Messages, 1)

	_, err = env.messages.GetChat(ctx, as(t, env, "carol", "", &api.GetChatRequest{ConversationID: convID}))
	assert.Equal(t, connect.CodePermissionDenied, connect.CodeOf(err))

	_, err = env.messages.SendMessage(ctx, as(t, env, "alice", "", &api.SendMessageRequest{ReceiverID: "alice", Content: "me"}))
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))

	_, err = env.messages.DeleteConversation(ctx, as(t, env, "carol", "", &api.DeleteConversationRequest{ConversationID: convID}))
	assert.Equal(t, connect.CodePermissionDenied, connect.CodeOf(err))

	_, err = env.messages.ClearInbox(ctx, as(t, env, "bob", "", &api.ClearInboxRequest{}))
	require.NoError(t, err)
	inbox, err = env.messages.GetInbox(ctx, as(t, env, "alice", "", &api.GetInboxRequest{}))
	require.NoError(t, err)
	assert.Empty(t, inbox.Msg.Conversations)
}

func TestGetProfile(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()

	t.Run("registers new user", func(t *testing.T) {
		resp, err := env.users.GetProfile(ctx, as(t, env, "dave", "", &api.GetProfileRequest{Name: "Dave"}))
		require.NoError(t, err)
		assert.Equal(t, "dave", resp.Msg.User.ID)
		assert.Equal(t, "Dave", resp.Msg.User.Name)
		assert.Nil(t, resp.Msg.ActiveSplit)

		// Name is only applied on creation.
		resp, err = env.users.GetProfile(ctx, as(t, env, "dave", "", &api.GetProfileRequest{Name: "David"}))
		require.NoError(t, err)
		assert.Equal(t, "Dave", resp.Msg.User.Name)
	})

	t.Run("active split", func(t *testing.T) {
		split := createSplit(t, env, "alice", &api.CreateSplitRequest{PeopleNeeded: 2})

		resp, err := env.users.GetProfile(ctx, as(t, env, "alice", "", &api.GetProfileRequest{}))
		require.NoError(t, err)
		assert.Equal(t, split.ID, resp.Msg.User.ActiveSplitID)
		require.NotNil(t, resp.Msg.ActiveSplit)
		assert.Equal(t, split.ID, resp.Msg.ActiveSplit.ID)
	})

	t.Run("unregistered creator", func(t *testing.T) {
		split := createSplit(t, env, "erin", &api.CreateSplitRequest{PeopleNeeded: 3, CreatorName: "Erin"})

		resp, err := env.users.GetProfile(ctx, as(t, env, "erin", "", &api.GetProfileRequest{}))
		require.NoError(t, err)
		assert.Equal(t, "Erin", resp.Msg.User.Name)
		assert.Equal(t, split.ID, resp.Msg.User.ActiveSplitID)
		require.NotNil(t, resp.Msg.ActiveSplit)
		assert.Equal(t, split.ID, resp.Msg.ActiveSplit.ID)
	})

	t.Run("unregistered joiner", func(t *testing.T) {
		split := createSplit(t, env, "bob", &api.CreateSplitRequest{PeopleNeeded: 3})
		_, err := env.splits.JoinSplit(ctx, as(t, env, "frank", "", &api.JoinSplitRequest{SplitID: split.ID}))
		require.NoError(t, err)

		user, err := env.store.GetUser(ctx, "frank")
		require.NoError(t, err)
		assert.Equal(t, split.ID, user.ActiveSplitID)
	})
}
