package services

import "errors"

var (
	// ErrInvalidWeek marks a week date that is not a rotation Monday or
	// lies beyond the lookahead horizon.
	ErrInvalidWeek = errors.New("invalid week")

	// ErrUnknownMember marks a referenced member that does not exist or
	// is no longer active.
	ErrUnknownMember = errors.New("unknown member")

	// ErrInvalidParticipants marks identical members on both sides of a
	// swap/takeover, or a caller whose assumed assignee no longer
	// matches the ledger (lost-update guard).
	ErrInvalidParticipants = errors.New("invalid participants")

	// ErrNoActiveSwap marks a cancellation against a week without a
	// planned override.
	ErrNoActiveSwap = errors.New("no active swap")

	// ErrInvariantViolation marks an internal consistency failure. It
	// indicates a bug and is always logged.
	ErrInvariantViolation = errors.New("invariant violation")

	// ErrBusy marks a week-lock acquisition timeout; safe to retry.
	ErrBusy = errors.New("busy")

	// ErrInvalidDispatch marks a malformed notification dispatch record.
	ErrInvalidDispatch = errors.New("invalid dispatch record")
)
