package service

import (
	"context"
	"fmt"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/mealsplit/internal/coordinator"
	"github.com/mmynk/mealsplit/internal/middleware"
	"github.com/mmynk/mealsplit/internal/models"
	"github.com/mmynk/mealsplit/internal/storage"
	"github.com/mmynk/mealsplit/pkg/api"
)

// SplitService implements the Connect SplitService on top of the coordinator.
type SplitService struct {
	manager *coordinator.Manager
	users   storage.UserStore
}

// NewSplitService creates a new SplitService. users is used to register
// callers on their first Create or Join.
func NewSplitService(manager *coordinator.Manager, users storage.UserStore) *SplitService {
	return &SplitService{manager: manager, users: users}
}

// canManage reports whether the caller may complete or delete the split.
func canManage(ctx context.Context, split *models.Split) bool {
	return split.CreatorID == middleware.GetUserID(ctx) || middleware.IsAdmin(ctx)
}

// CreateSplit opens a new split owned by the caller.
func (s *SplitService) CreateSplit(ctx context.Context, req *connect.Request[api.CreateSplitRequest]) (*connect.Response[api.CreateSplitResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	name := req.Msg.CreatorName
	if name == "" {
		name = middleware.GetUserName(ctx)
	}
	if _, err := ensureUser(ctx, s.users, userID, name, ""); err != nil {
		return nil, toConnectError("CreateSplit", err)
	}

	split, err := s.manager.Create(ctx, coordinator.CreateParams{
		CreatorID:    userID,
		CreatorName:  name,
		PeopleNeeded: req.Msg.PeopleNeeded,
		ScheduledAt:  req.Msg.ScheduledAt,
		VendorID:     req.Msg.VendorID,
		VendorName:   req.Msg.VendorName,
		Description:  req.Msg.Description,
		Location:     req.Msg.Location,
	})
	if err != nil {
		return nil, toConnectError("CreateSplit", err)
	}

	return connect.NewResponse(&api.CreateSplitResponse{Split: api.SplitFromModel(split)}), nil
}

// JoinSplit adds the caller to a split.
func (s *SplitService) JoinSplit(ctx context.Context, req *connect.Request[api.JoinSplitRequest]) (*connect.Response[api.JoinSplitResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	if _, err := ensureUser(ctx, s.users, userID, middleware.GetUserName(ctx), ""); err != nil {
		return nil, toConnectError("JoinSplit", err)
	}

	split, err := s.manager.Join(ctx, req.Msg.SplitID, userID)
	if err != nil {
		return nil, toConnectError("JoinSplit", err)
	}

	return connect.NewResponse(&api.JoinSplitResponse{Split: api.SplitFromModel(split)}), nil
}

// LeaveSplit removes the caller from a split.
func (s *SplitService) LeaveSplit(ctx context.Context, req *connect.Request[api.LeaveSplitRequest]) (*connect.Response[api.LeaveSplitResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	result, err := s.manager.Leave(ctx, req.Msg.SplitID, userID)
	if err != nil {
		return nil, toConnectError("LeaveSplit", err)
	}

	return connect.NewResponse(&api.LeaveSplitResponse{
		Removed:      result.Removed,
		SplitDeleted: result.SplitDeleted,
		NewCreatorID: result.NewCreatorID,
	}), nil
}

// MarkComplete closes a split. Only the creator or an admin may do this.
func (s *SplitService) MarkComplete(ctx context.Context, req *connect.Request[api.MarkCompleteRequest]) (*connect.Response[api.MarkCompleteResponse], error) {
	if _, err := requireUser(ctx); err != nil {
		return nil, err
	}

	split, err := s.manager.Get(ctx, req.Msg.SplitID)
	if err != nil {
		return nil, toConnectError("MarkComplete", err)
	}
	if !canManage(ctx, split) {
		return nil, connect.NewError(connect.CodePermissionDenied, fmt.Errorf("only the creator can complete this split"))
	}

	split, err = s.manager.MarkComplete(ctx, req.Msg.SplitID)
	if err != nil {
		return nil, toConnectError("MarkComplete", err)
	}

	return connect.NewResponse(&api.MarkCompleteResponse{Split: api.SplitFromModel(split)}), nil
}

// DeleteSplit removes a split. Only the creator or an admin may do this.
func (s *SplitService) DeleteSplit(ctx context.Context, req *connect.Request[api.DeleteSplitRequest]) (*connect.Response[api.DeleteSplitResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	split, err := s.manager.Get(ctx, req.Msg.SplitID)
	if err != nil {
		return nil, toConnectError("DeleteSplit", err)
	}
	if !canManage(ctx, split) {
		return nil, connect.NewError(connect.CodePermissionDenied, fmt.Errorf("only the creator can delete this split"))
	}

	if err := s.manager.Delete(ctx, req.Msg.SplitID); err != nil {
		return nil, toConnectError("DeleteSplit", err)
	}

	slog.Info("Split deleted by request", "split_id", req.Msg.SplitID, "user_id", userID, "admin", middleware.IsAdmin(ctx))
	return connect.NewResponse(&api.DeleteSplitResponse{}), nil
}

// GetSplit returns one split.
func (s *SplitService) GetSplit(ctx context.Context, req *connect.Request[api.GetSplitRequest]) (*connect.Response[api.GetSplitResponse], error) {
	split, err := s.manager.Get(ctx, req.Msg.SplitID)
	if err != nil {
		return nil, toConnectError("GetSplit", err)
	}
	return connect.NewResponse(&api.GetSplitResponse{Split: api.SplitFromModel(split)}), nil
}

// ListSplits returns the open splits, plus the caller's closed ones when
// the request is authenticated. Anonymous callers see open splits only.
func (s *SplitService) ListSplits(ctx context.Context, req *connect.Request[api.ListSplitsRequest]) (*connect.Response[api.ListSplitsResponse], error) {
	splits, err := s.manager.List(ctx, middleware.GetUserID(ctx))
	if err != nil {
		return nil, toConnectError("ListSplits", err)
	}
	return connect.NewResponse(&api.ListSplitsResponse{Splits: api.SplitsFromModels(splits)}), nil
}

// GetActivity returns the caller's most recent splits.
func (s *SplitService) GetActivity(ctx context.Context, req *connect.Request[api.GetActivityRequest]) (*connect.Response[api.GetActivityResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	splits, err := s.manager.RecentForUser(ctx, userID, req.Msg.Limit)
	if err != nil {
		return nil, toConnectError("GetActivity", err)
	}
	return connect.NewResponse(&api.GetActivityResponse{Splits: api.SplitsFromModels(splits)}), nil
}
