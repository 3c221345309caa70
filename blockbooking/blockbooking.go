/*
Package blockbooking tracks prepaid session packages.

PURPOSE:
  A block booking is a prepaid bundle: pay for 10 sessions up front, burn
  one per attendance. This package is the accounting for that bundle -
  purchased, used, refunded - with an append-only usage trail.

STATE MACHINE:
  active -> exhausted        (last remaining session deducted)
  active|exhausted -> refunded   (refund consumes the whole balance)
  any non-terminal -> cancelled  (admin override)
  active -> expired          (read-time only, never stored)

  refunded and cancelled are terminal.

CRITICAL INVARIANTS:
  1. DeductedSessions + RefundedSessions <= TotalSessions, always
  2. Both counters are monotonically non-decreasing
  3. Usage records are append-only; no transition rewrites history
  4. Remaining() never goes negative - a deduct on an empty package fails,
     it does not silently overdraw

VALUE SEMANTICS:
  Every transition takes the current Package and returns the next one.
  Nothing mutates in place, so the storage layer can compare-and-swap on a
  version column and reject stale writers. Two concurrent deducts of the
  last session cannot both commit.

EXPIRY:
  EffectiveStatus derives "expired" at read time when ExpiresAt has passed
  with sessions still unused. The stored record keeps its real state, so a
  later manual refund or cancel still works and history is never erased.

SEE ALSO:
  - booking/errors.go: CapacityError, OverRefundError
  - store/sqlite: version-checked persistence
*/
package blockbooking

import (
	"time"

	"github.com/courtside/booking-engine/booking"
	"github.com/courtside/booking-engine/money"
)

// =============================================================================
// PACKAGE - The prepaid bundle
// =============================================================================

// Status is the package lifecycle state.
type Status string

const (
	StatusActive    Status = "active"
	StatusExhausted Status = "exhausted"
	StatusExpired   Status = "expired" // derived, never stored
	StatusRefunded  Status = "refunded"
	StatusCancelled Status = "cancelled"
)

// IsTerminal reports whether no further transitions are allowed.
func (s Status) IsTerminal() bool {
	return s == StatusRefunded || s == StatusCancelled
}

// UsageRecord is one deduction: the audit trail entry for one attended
// session. Append-only.
type UsageRecord struct {
	ID          string
	SessionDate time.Time
	CoachID     string
	Notes       string
	CreatedAt   time.Time
}

// Package is a prepaid session bundle.
type Package struct {
	ID               string
	ParentID         string
	ChildID          string
	TotalSessions    int
	TotalPaid        money.Amount
	PricePerSession  money.Amount // 0 = derive from TotalPaid/TotalSessions
	DeductedSessions int
	RefundedSessions int
	RefundedAmount   money.Amount
	Status           Status
	ExpiresAt        *time.Time
	Usage            []UsageRecord
	CreatedAt        time.Time
	UpdatedAt        time.Time

	// Version supports optimistic concurrency at the store. The engine
	// never touches it.
	Version int
}

// Remaining is the derived balance: sessions bought minus used minus
// refunded.
func (p Package) Remaining() int {
	return p.TotalSessions - p.DeductedSessions - p.RefundedSessions
}

// SessionPrice is the per-session rate used to convert between session
// counts and money, falling back to the average paid rate.
func (p Package) SessionPrice() money.Amount {
	if p.PricePerSession > 0 {
		return p.PricePerSession
	}
	if p.TotalSessions == 0 {
		return 0
	}
	return p.TotalPaid / money.Amount(p.TotalSessions)
}

// MaxRefundable is the money value of the sessions still on the balance.
func (p Package) MaxRefundable() money.Amount {
	return p.SessionPrice() * money.Amount(p.Remaining())
}

// =============================================================================
// PURCHASE
// =============================================================================

// PurchaseInput is the request to create a new package.
type PurchaseInput struct {
	ID              string
	ParentID        string
	ChildID         string
	TotalSessions   int
	TotalPaid       money.Amount
	PricePerSession money.Amount
	ExpiresAt       *time.Time
	Now             time.Time
}

// Purchase creates an active package with zeroed counters.
func Purchase(in PurchaseInput) (Package, error) {
	if in.TotalSessions <= 0 {
		return Package{}, booking.NewValidationError("totalSessions", "must be positive")
	}
	if in.TotalPaid < 0 {
		return Package{}, booking.NewValidationError("totalPaid", "must not be negative")
	}
	if in.PricePerSession < 0 {
		return Package{}, booking.NewValidationError("pricePerSession", "must not be negative")
	}

	return Package{
		ID:              in.ID,
		ParentID:        in.ParentID,
		ChildID:         in.ChildID,
		TotalSessions:   in.TotalSessions,
		TotalPaid:       in.TotalPaid,
		PricePerSession: in.PricePerSession,
		Status:          StatusActive,
		ExpiresAt:       in.ExpiresAt,
		CreatedAt:       in.Now,
		UpdatedAt:       in.Now,
	}, nil
}

// =============================================================================
// DEDUCT
// =============================================================================

// Deduct burns one session: appends the usage record and increments the
// counter. Moving through the last remaining session flips the package to
// exhausted.
func Deduct(p Package, usage UsageRecord) (Package, error) {
	if p.Status.IsTerminal() {
		return p, booking.NewValidationError("status", "package is "+string(p.Status))
	}
	if p.Remaining() <= 0 {
		return p, &booking.CapacityError{
			Resource:  "package",
			ID:        p.ID,
			Requested: 1,
			Available: p.Remaining(),
		}
	}
	if p.Status != StatusActive {
		return p, booking.NewValidationError("status", "package is "+string(p.Status))
	}

	next := p
	next.Usage = append(append([]UsageRecord(nil), p.Usage...), usage)
	next.DeductedSessions++
	next.UpdatedAt = usage.CreatedAt
	if next.Remaining() == 0 {
		next.Status = StatusExhausted
	}
	return next, nil
}

// =============================================================================
// REFUND
// =============================================================================

// RefundRequest asks for money back. Callers supply either a session count
// or a direct amount; the engine derives the other from SessionPrice.
type RefundRequest struct {
	SessionsToRefund int
	RefundAmount     money.Amount
	Reason           string
	Now              time.Time
}

// RefundOutcome reports what actually moved.
type RefundOutcome struct {
	SessionsRefunded int
	AmountRefunded   money.Amount
}

// Refund returns sessions to money. Consuming every remaining session
// moves the package to refunded; a partial refund leaves the current
// non-terminal state with a reduced balance.
func Refund(p Package, req RefundRequest) (Package, RefundOutcome, error) {
	if p.Status.IsTerminal() {
		return p, RefundOutcome{}, booking.NewValidationError("status", "package is "+string(p.Status))
	}
	if req.SessionsToRefund < 0 || req.RefundAmount < 0 {
		return p, RefundOutcome{}, booking.NewValidationError("refund", "must not be negative")
	}
	if req.SessionsToRefund == 0 && req.RefundAmount == 0 {
		return p, RefundOutcome{}, booking.NewValidationError("refund", "sessionsToRefund or refundAmount required")
	}

	price := p.SessionPrice()

	sessions := req.SessionsToRefund
	amount := req.RefundAmount
	switch {
	case sessions > 0 && amount == 0:
		amount = price * money.Amount(sessions)
	case sessions == 0 && amount > 0:
		if price <= 0 {
			return p, RefundOutcome{}, booking.NewValidationError("refundAmount", "package has no per-session price")
		}
		// Round the derived count up: refunded money always takes whole
		// sessions off the balance, so a partial session's worth can't be
		// refunded and stay usable.
		sessions = int((amount + price - 1) / price)
	}

	if sessions > p.Remaining() || amount > p.MaxRefundable() {
		return p, RefundOutcome{}, &booking.OverRefundError{
			PackageID:         p.ID,
			RequestedSessions: sessions,
			RemainingSessions: p.Remaining(),
			MaxRefundable:     p.MaxRefundable(),
		}
	}

	next := p
	next.RefundedSessions += sessions
	next.RefundedAmount += amount
	next.UpdatedAt = req.Now
	if next.Remaining() == 0 {
		next.Status = StatusRefunded
	}
	return next, RefundOutcome{SessionsRefunded: sessions, AmountRefunded: amount}, nil
}

// =============================================================================
// EXPIRY & CANCEL
// =============================================================================

// EffectiveStatus is the status presented to callers: expired when the
// package's deadline has passed with sessions still unused. The stored
// record is not changed, so usage history survives and a manual refund or
// cancel after the deadline still works.
func EffectiveStatus(p Package, now time.Time) Status {
	if p.ExpiresAt == nil || p.Status.IsTerminal() {
		return p.Status
	}
	if (p.Status == StatusActive || p.Status == StatusExhausted) &&
		now.After(*p.ExpiresAt) && p.Remaining() > 0 {
		return StatusExpired
	}
	return p.Status
}

// Cancel is the admin override: any non-terminal state moves to cancelled.
// Counters and usage history are left untouched.
func Cancel(p Package, now time.Time) (Package, error) {
	if p.Status.IsTerminal() {
		return p, booking.NewValidationError("status", "package is already "+string(p.Status))
	}
	next := p
	next.Status = StatusCancelled
	next.UpdatedAt = now
	return next, nil
}
