/*
Package booking defines the entities shared by every part of the booking
financial lifecycle engine.

PURPOSE:
  A Booking is one child's reservation for one Session. The engine packages
  (refund, discount, blockbooking, transfer) all operate over these types,
  always value-in/value-out: an operation takes the current entity state and
  returns the next state, never mutating in place. The storage layer relies
  on that to detect staleness and retry (optimistic, single-writer-per-entity).

KEY CONCEPTS IN THIS FILE (types.go):
  - Booking: reservation + its payment/refund state
  - Session: a bookable time slot (read-only here; owned by scheduling)
  - DaysUntil: the single day-counting convention shared by refund tiers
    and early-bird discounts

SEE ALSO:
  - errors.go: the error taxonomy every engine package reports through
  - refund: cancellation outcomes
  - transfer: moving a booking between sessions
*/
package booking

import (
	"time"

	"github.com/courtside/booking-engine/money"
)

// =============================================================================
// BOOKING - One child's reservation for one session
// =============================================================================

// PaymentStatus tracks how much of the booking's money has moved.
type PaymentStatus string

const (
	PaymentPending           PaymentStatus = "pending"
	PaymentPaid              PaymentStatus = "paid"
	PaymentFailed            PaymentStatus = "failed"
	PaymentRefunded          PaymentStatus = "refunded"
	PaymentPartiallyRefunded PaymentStatus = "partially_refunded"
)

// Status is the reservation lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusWaitlist  Status = "waitlist"
)

// Booking is one child's reservation for one session.
//
// INVARIANTS:
//   - RefundedAmount <= Amount, always
//   - Status == cancelled => Amount is never mutated again
//
// Bookings are created on successful or pending payment, mutated by
// cancellation and transfer, and never deleted.
type Booking struct {
	ID              string
	SessionID       string
	ChildID         string
	ParentID        string
	Amount          money.Amount // what was originally paid
	RefundedAmount  money.Amount
	PaymentStatus   PaymentStatus
	Status          Status
	TransferredFrom string // previous session id, set by transfer
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Refundable is the headroom left before RefundedAmount hits Amount.
func (b Booking) Refundable() money.Amount {
	return b.Amount - b.RefundedAmount
}

// =============================================================================
// SESSION - A bookable time slot
// =============================================================================

// Session is a bookable coaching slot. The core only reads sessions;
// capacity counters are owned by the scheduling collaborator.
type Session struct {
	ID        string
	Name      string
	Price     money.Amount
	StartDate time.Time
	DayOfWeek time.Weekday
	Capacity  int
	Enrolled  int

	// Age limits, inclusive. Zero means unbounded on that side.
	MinAge int
	MaxAge int
}

// IsFull reports whether the session has no open places.
func (s Session) IsFull() bool {
	return s.Capacity > 0 && s.Enrolled >= s.Capacity
}

// AcceptsAge reports whether a child of the given age may attend.
func (s Session) AcceptsAge(age int) bool {
	if s.MinAge > 0 && age < s.MinAge {
		return false
	}
	if s.MaxAge > 0 && age > s.MaxAge {
		return false
	}
	return true
}

// =============================================================================
// DAY COUNTING
// =============================================================================

// DaysUntil returns the whole days from now until sessionDate, flooring
// partial days and clamping at zero for sessions in the past. Refund tiers
// and early-bird cutoffs both use this convention, so "10 days before"
// means the same thing everywhere.
func DaysUntil(sessionDate, now time.Time) int {
	d := int(sessionDate.Sub(now).Hours() / 24)
	if d < 0 {
		return 0
	}
	return d
}
