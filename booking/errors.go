/*
errors.go - Centralized error taxonomy for the booking engine

PURPOSE:
  All engine failures fall into four kinds. Every failure is a deterministic
  function of input: the engine never retries internally, so the same call
  with the same entities always fails the same way.

ERROR CATEGORIES:
  1. Validation  - malformed input; surfaced verbatim, never retried
  2. Capacity    - a balance or capacity invariant would be violated
  3. OverRefund  - a refund request exceeds the available balance
  4. Eligibility - the target session is unsuitable for the child

USAGE:
  The API layer maps kinds to HTTP status codes:

    if errors.Is(err, booking.ErrOverRefund) { ... 409 ... }

  Structured types carry the detail a caller needs to offer a corrected
  action (e.g. OverRefundError.MaxRefundable).

SEE ALSO:
  - blockbooking: CapacityError / OverRefundError producers
  - transfer: CapacityError / EligibilityError producers
*/
package booking

import (
	"errors"
	"fmt"

	"github.com/courtside/booking-engine/money"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is returned for malformed input: negative amounts, zero
	// sessions, missing required fields.
	ErrValidation = errors.New("validation failed")

	// ErrCapacity is returned when an operation would violate a balance or
	// capacity invariant. Retrying without changing the request cannot succeed.
	ErrCapacity = errors.New("capacity exceeded")

	// ErrOverRefund is returned when a refund request exceeds the available
	// balance.
	ErrOverRefund = errors.New("refund exceeds available balance")

	// ErrEligibility is returned when a session's age range excludes the child.
	ErrEligibility = errors.New("session not eligible for child")

	// ErrNotFound is returned by stores when a referenced entity doesn't exist.
	ErrNotFound = errors.New("not found")

	// ErrConcurrentModification is returned when optimistic locking detects
	// that the entity changed under the caller. Safe to retry after reloading.
	ErrConcurrentModification = errors.New("concurrent modification detected")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError reports which field of an input was malformed.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError builds a field-level validation failure.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// CapacityError reports a balance or capacity invariant that blocked an
// operation: deducting from an empty package, transferring into a full session.
type CapacityError struct {
	Resource  string // "session" or "package"
	ID        string
	Requested int
	Available int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("%s %s: requested %d, available %d",
		e.Resource, e.ID, e.Requested, e.Available)
}

func (e *CapacityError) Unwrap() error { return ErrCapacity }

// OverRefundError reports a refund past the remaining balance. MaxRefundable
// lets the caller offer a corrected amount instead of a dead end.
type OverRefundError struct {
	PackageID         string
	RequestedSessions int
	RemainingSessions int
	MaxRefundable     money.Amount
}

func (e *OverRefundError) Error() string {
	return fmt.Sprintf("package %s: refund of %d sessions exceeds %d remaining (max refundable %s)",
		e.PackageID, e.RequestedSessions, e.RemainingSessions, e.MaxRefundable)
}

func (e *OverRefundError) Unwrap() error { return ErrOverRefund }

// EligibilityError reports an age-range rejection for a target session.
type EligibilityError struct {
	SessionID string
	ChildAge  int
	MinAge    int
	MaxAge    int
}

func (e *EligibilityError) Error() string {
	return fmt.Sprintf("session %s: child age %d outside range %d-%d",
		e.SessionID, e.ChildAge, e.MinAge, e.MaxAge)
}

func (e *EligibilityError) Unwrap() error { return ErrEligibility }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError reports whether the error is due to the caller's request
// rather than an internal failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrCapacity) ||
		errors.Is(err, ErrOverRefund) ||
		errors.Is(err, ErrEligibility)
}

// IsNotFound reports whether the error indicates a missing entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsRetryable reports whether the error might succeed after reloading state.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}
