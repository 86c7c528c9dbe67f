// Package services defines the business logic for candidate matching,
// conversations, and notifications. This file centralizes common
// service-level error values so that they can be consistently returned by
// service methods and checked by callers.
//
// These errors are intended for internal use by the service layer;
// translation into user-facing messages or HTTP status codes is performed at
// the handler layer.
package services

import "errors"

// Matching errors.
var (
	// ErrProfileNotFound indicates that a referenced user has no profile.
	ErrProfileNotFound = errors.New("profile not found")

	// ErrMatchNotFound indicates that the requested match does not exist.
	ErrMatchNotFound = errors.New("match not found")

	// ErrDuplicateMatch is returned when a match already exists for the pair,
	// in either order and in any status.
	ErrDuplicateMatch = errors.New("match already exists for this pair")

	// ErrNotParticipant is returned when the acting user is neither side of
	// the match they are trying to respond to.
	ErrNotParticipant = errors.New("user is not a participant of this match")

	// ErrInvalidTransition is returned when a status change is not permitted:
	// either the target status is unknown or the match already left pending.
	ErrInvalidTransition = errors.New("match status transition not permitted")

	// ErrSelfMatch is returned when a user requests a match with themselves.
	ErrSelfMatch = errors.New("cannot match with yourself")

	// ErrInvalidFilters is returned when candidate filters are malformed
	// (e.g. min age above max age).
	ErrInvalidFilters = errors.New("invalid candidate filters")
)

// Conversation errors.
var (
	// ErrSelfMessage is returned when sender and receiver are the same user.
	ErrSelfMessage = errors.New("cannot message yourself")

	// ErrEmptyMessage is returned when a message body is blank after trimming.
	ErrEmptyMessage = errors.New("message body is empty")

	// ErrMessageTooLong is returned when a message body exceeds the
	// configured maximum rune count.
	ErrMessageTooLong = errors.New("message body too long")
)

// Notification errors.
var (
	// ErrNotificationNotFound indicates that the entry does not exist or is
	// not owned by the acting user.
	ErrNotificationNotFound = errors.New("notification not found")
)
