package errors

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrMethodDisabled      = errors.New("payout method disabled")

	// ErrConflict signals the row status changed underfoot; callers
	// re-read and either no-op or surface the new state, never overwrite.
	ErrConflict = errors.New("concurrent state change")

	// ErrTransferInFlight rejects a second dispatch while a live
	// transfer already exists for the withdrawal.
	ErrTransferInFlight = errors.New("transfer already in flight")

	ErrScheduleMalformed = errors.New("settlement schedule malformed")
)
