// Package errs defines the engine's error taxonomy (spec.md §7) as a set of
// sentinel errors, in the wrap-and-unwrap style used across the retrieved
// pack: construct with a sentinel-wrapping helper, test with errors.Is.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound marks an unknown auction or user.
	ErrNotFound = errors.New("not found")
	// ErrBadRequest marks a malformed id, validation failure, or non-numeric amount.
	ErrBadRequest = errors.New("bad request")
	// ErrIllegalState marks an operation invalid for the aggregate's current state:
	// starting a non-draft auction, bidding on a non-active auction or closed
	// round, closing a round whose deadline has not elapsed.
	ErrIllegalState = errors.New("illegal state")
	// ErrRoundEnded marks a bid admitted at or after the round's endTime.
	ErrRoundEnded = errors.New("round ended")
	// ErrInsufficientBalance marks a Ledger-raised over-debit.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrConflict marks a lost optimistic-concurrency race; callers may retry.
	ErrConflict = errors.New("conflict")
	// ErrInternal marks an unexpected Store/Ledger failure.
	ErrInternal = errors.New("internal error")
)

// NotFound wraps ErrNotFound with context, e.g. NotFound("auction", id).
func NotFound(kind, id string) error {
	if id == "" {
		return fmt.Errorf("%s: %w", kind, ErrNotFound)
	}
	return fmt.Errorf("%s %q: %w", kind, id, ErrNotFound)
}

// BadRequest wraps ErrBadRequest with a reason.
func BadRequest(reason string) error {
	return fmt.Errorf("%s: %w", reason, ErrBadRequest)
}

// IllegalState wraps ErrIllegalState with a reason.
func IllegalState(reason string) error {
	return fmt.Errorf("%s: %w", reason, ErrIllegalState)
}

// RoundEnded wraps ErrRoundEnded with context.
func RoundEnded(auctionID string, roundNumber int) error {
	return fmt.Errorf("auction %q round %d has ended: %w", auctionID, roundNumber, ErrRoundEnded)
}

// InsufficientBalance wraps ErrInsufficientBalance with context.
func InsufficientBalance(userID string) error {
	return fmt.Errorf("user %q: %w", userID, ErrInsufficientBalance)
}

// Conflict wraps ErrConflict with context.
func Conflict(reason string) error {
	return fmt.Errorf("%s: %w", reason, ErrConflict)
}

// Internal wraps ErrInternal around an underlying cause.
func Internal(cause error) error {
	return fmt.Errorf("%w: %w", ErrInternal, cause)
}

func Is(err, target error) bool { return errors.Is(err, target) }
