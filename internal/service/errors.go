package service

import (
	"errors"
	"fmt"
)

// Validation errors are deterministic for the state a transaction read and
// are never retried.
var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrSlotUnavailable     = errors.New("slot unavailable")
	ErrInvalidBay          = errors.New("bay index out of range")
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrInvalidSlot         = errors.New("slot name is required")
	ErrInvalidPrincipal    = errors.New("principal id is required")
)

var (
	// ErrConflict is returned when every attempt of a reservation lost
	// against concurrent writers.
	ErrConflict = errors.New("reservation conflict, retries exhausted")

	// ErrRequestInProgress is returned when a reservation with the same
	// idempotency key is still being processed.
	ErrRequestInProgress = errors.New("request with this idempotency key is in progress")

	// ErrIdempotencyMismatch is returned when an idempotency key is reused
	// for a different slot or bay.
	ErrIdempotencyMismatch = errors.New("idempotency key reused for a different bay")

	// ErrShortCodeExhausted is returned when no free short code was found
	// at the widest configured width.
	ErrShortCodeExhausted = errors.New("short code space exhausted")

	ErrAccountNotFound = errors.New("account not found")
	ErrSlotNotFound    = errors.New("slot not found")
	ErrSlotExists      = errors.New("slot already exists")
)

// InfrastructureError reports a store or broker failure that aborted the
// call.  Nothing was committed when it is returned.
type InfrastructureError struct {
	Op  string
	Err error
}

func (e *InfrastructureError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *InfrastructureError) Unwrap() error { return e.Err }

func infra(op string, err error) error {
	return &InfrastructureError{Op: op, Err: err}
}

// IsInfrastructure reports whether err is an InfrastructureError.
func IsInfrastructure(err error) bool {
	var ie *InfrastructureError
	return errors.As(err, &ie)
}
