package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTarget means a target type that needs an id was given none,
	// or the id points at something that cannot be resolved.
	ErrInvalidTarget = errors.New("invalid notification target")

	ErrUnknownTargetType = errors.New("unknown target type")

	ErrNoTargetsResolved = errors.New("no recipients resolved")

	ErrNoTokensFound = errors.New("no device tokens found")

	ErrInvalidInput = errors.New("invalid input")

	ErrNotFound = errors.New("not found")
)

// TokenFailure is a per-token rejection reported by the push provider.
// It can be attributed to a recipient and drives token pruning.
type TokenFailure struct {
	UserID string
	Token  string
	Err    error
}

func (e *TokenFailure) Error() string {
	return fmt.Sprintf("push rejected for user %s: %v", e.UserID, e.Err)
}

func (e *TokenFailure) Unwrap() error {
	return e.Err
}

// BatchFailure is a provider-level failure of a whole multicast batch.
// No token in the batch can be blamed, so nothing is pruned.
type BatchFailure struct {
	Offset int
	Size   int
	Err    error
}

func (e *BatchFailure) Error() string {
	return fmt.Sprintf("multicast batch at offset %d (%d tokens) failed: %v", e.Offset, e.Size, e.Err)
}

func (e *BatchFailure) Unwrap() error {
	return e.Err
}
