package service

import (
	"context"
	"errors"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/mealsplit/internal/middleware"
	"github.com/mmynk/mealsplit/internal/models"
	"github.com/mmynk/mealsplit/internal/storage"
	"github.com/mmynk/mealsplit/pkg/api"
)

// UserService mirrors token identities into the user table.
type UserService struct {
	users  storage.UserStore
	splits storage.SplitStore
}

// NewUserService creates a new UserService.
func NewUserService(users storage.UserStore, splits storage.SplitStore) *UserService {
	return &UserService{users: users, splits: splits}
}

// GetProfile returns the caller's user record, creating it on first use.
func (s *UserService) GetProfile(ctx context.Context, req *connect.Request[api.GetProfileRequest]) (*connect.Response[api.GetProfileResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	name := req.Msg.Name
	if name == "" {
		name = middleware.GetUserName(ctx)
	}
	user, err := ensureUser(ctx, s.users, userID, name, req.Msg.Email)
	if err != nil {
		return nil, toConnectError("GetProfile", err)
	}

	resp := &api.GetProfileResponse{User: api.UserFromModel(user)}
	if user.ActiveSplitID != "" {
		split, err := s.splits.GetSplit(ctx, user.ActiveSplitID)
		switch {
		case err == nil:
			resp.ActiveSplit = api.SplitFromModel(split)
		case errors.Is(err, storage.ErrNotFound):
			// The pointer is weak and may outlive its split.
		default:
			slog.Warn("Failed to load active split", "user_id", userID, "split_id", user.ActiveSplitID, "error", err)
		}
	}

	return connect.NewResponse(resp), nil
}

// ensureUser returns the stored user, creating the row on first use so the
// active split pointer has somewhere to live. name and email apply only on
// creation.
func ensureUser(ctx context.Context, users storage.UserStore, userID, name, email string) (*models.User, error) {
	user, err := users.GetUser(ctx, userID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	user = &models.User{ID: userID, Name: name, Email: email}
	if err := users.CreateUser(ctx, user); err != nil {
		// A concurrent first request may have created it.
		if existing, getErr := users.GetUser(ctx, userID); getErr == nil {
			return existing, nil
		}
		return nil, err
	}

	slog.Info("User registered", "user_id", userID)
	return user, nil
}
