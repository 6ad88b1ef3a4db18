package services

import "errors"

// Sentinel errors for the session and attendance operations. Handlers map
// these to HTTP statuses and stable machine-readable codes.
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidState     = errors.New("invalid session state for this operation")
	ErrDuplicateSession = errors.New("a live session already exists for this lesson and group")
	ErrNotEnrolled      = errors.New("participant is not enrolled in this group")
	ErrLeaderAbsent     = errors.New("session leader has not joined yet")
	ErrForbidden        = errors.New("operation not permitted for this account")
	ErrExternalService  = errors.New("conference service unavailable")
)
