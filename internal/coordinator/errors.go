package coordinator

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidArgument is wrapped by every input validation failure.
var ErrInvalidArgument = errors.New("invalid argument")

// ConflictError means the user already holds an open split within the
// conflict window of the requested time.
type ConflictError struct {
	UserID string
	// SplitID is the existing split that caused the conflict.
	SplitID string
	Window  time.Duration
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("You have another split scheduled within %s of this time.", describeWindow(e.Window))
}

// NotFoundError means the referenced split does not exist.
type NotFoundError struct {
	SplitID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("split %s not found", e.SplitID)
}

// AlreadyJoinedError means the user is already in the split's joined set.
type AlreadyJoinedError struct {
	SplitID string
	UserID  string
}

func (e *AlreadyJoinedError) Error() string {
	return "Already joined."
}

// SplitClosedError means the split is full or was marked complete.
type SplitClosedError struct {
	SplitID string
}

func (e *SplitClosedError) Error() string {
	return fmt.Sprintf("split %s is closed to new members", e.SplitID)
}

// StoreError wraps a failure of the backing store.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// IsConflict reports whether err is a *ConflictError.
func IsConflict(err error) bool {
	var target *ConflictError
	return errors.As(err, &target)
}

// IsNotFound reports whether err is a *NotFoundError.
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsAlreadyJoined reports whether err is an *AlreadyJoinedError.
func IsAlreadyJoined(err error) bool {
	var target *AlreadyJoinedError
	return errors.As(err, &target)
}

// IsSplitClosed reports whether err is a *SplitClosedError.
func IsSplitClosed(err error) bool {
	var target *SplitClosedError
	return errors.As(err, &target)
}

func invalidArgument(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// validationError converts validator output into an ErrInvalidArgument error
// naming the first failing field.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		if fe.Param() != "" {
			return invalidArgument("%s must satisfy %s=%s", fe.Field(), fe.Tag(), fe.Param())
		}
		return invalidArgument("%s is %s", fe.Field(), fe.Tag())
	}
	return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
}

// outcome labels err for metrics.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidArgument):
		return "invalid"
	case IsConflict(err):
		return "conflict"
	case IsNotFound(err):
		return "not_found"
	case IsAlreadyJoined(err):
		return "already_joined"
	case IsSplitClosed(err):
		return "closed"
	default:
		return "error"
	}
}

func describeWindow(d time.Duration) string {
	if d > 0 && d%time.Hour == 0 {
		hours := int(d / time.Hour)
		if hours == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", hours)
	}
	return d.String()
}
