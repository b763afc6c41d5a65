package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/mealsplit/internal/coordinator"
	"github.com/mmynk/mealsplit/internal/messaging"
	"github.com/mmynk/mealsplit/internal/middleware"
	"github.com/mmynk/mealsplit/internal/storage"
)

var errAuthRequired = errors.New("authentication required")

// requireUser returns the authenticated caller's ID.
func requireUser(ctx context.Context) (string, error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return "", connect.NewError(connect.CodeUnauthenticated, errAuthRequired)
	}
	return userID, nil
}

// toConnectError maps domain errors onto Connect status codes. Errors without
// a more specific code are logged and returned as Internal.
func toConnectError(op string, err error) error {
	var connectErr *connect.Error
	switch {
	case errors.As(err, &connectErr):
		return err
	case errors.Is(err, coordinator.ErrInvalidArgument), errors.Is(err, messaging.ErrInvalidMessage):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case coordinator.IsConflict(err), coordinator.IsSplitClosed(err):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	case coordinator.IsAlreadyJoined(err):
		return connect.NewError(connect.CodeAlreadyExists, err)
	case coordinator.IsNotFound(err), errors.Is(err, storage.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, messaging.ErrNotParticipant):
		return connect.NewError(connect.CodePermissionDenied, err)
	case errors.Is(err, context.Canceled):
		return connect.NewError(connect.CodeCanceled, err)
	case errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	default:
		slog.Error(op+" failed", "error", err)
		return connect.NewError(connect.CodeInternal, fmt.Errorf("%s failed", op))
	}
}
