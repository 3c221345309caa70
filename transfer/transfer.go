/*
Package transfer computes the monetary consequence of moving a booking
between sessions.

PURPOSE:
  Reconcile answers one question: what has to happen to the money when a
  booking moves from session A to session B? Three answers exist:

    target costs more  -> checkout_required: collect the difference first,
                          the booking is NOT rewritten here
    target costs less  -> refund_and_transfer: booking rewritten now, the
                          difference refunded (capped at what's refundable)
    same price         -> transfer_only: booking rewritten, no money moves

REFUSALS:
  A full target session refuses the transfer with a CapacityError before
  any price is computed. An age-ineligible child refuses with an
  EligibilityError. Neither refusal touches the booking.

SEE ALSO:
  - booking.Session.IsFull / AcceptsAge: the checks applied here
  - refund: full cancellations, which use policy tiers instead of a delta
*/
package transfer

import (
	"time"

	"github.com/courtside/booking-engine/booking"
	"github.com/courtside/booking-engine/money"
)

// Action tells the caller what side effect the transfer requires.
type Action string

const (
	// ActionTransferOnly moves the booking with no monetary change.
	ActionTransferOnly Action = "transfer_only"

	// ActionRefundAndTransfer moves the booking and refunds the price
	// difference.
	ActionRefundAndTransfer Action = "refund_and_transfer"

	// ActionCheckoutRequired means the target is more expensive: the caller
	// must collect the difference before committing the session change.
	ActionCheckoutRequired Action = "checkout_required"
)

// Result is the reconciliation outcome. Booking carries the next state of
// the booking; for checkout_required it is the input unchanged, since the
// session is not rewritten until payment succeeds.
type Result struct {
	Action          Action
	PriceDifference money.Amount // target price minus current price
	RefundAmount    money.Amount // actually refunded, never past Refundable
	RefundShortfall money.Amount // portion of the delta that could not be refunded
	Booking         booking.Booking
}

// Reconcile computes the action and monetary delta for moving b from
// current to target, for a child of the given age.
//
// Capacity is checked before anything else: a full session refuses the
// transfer regardless of price. Eligibility comes next. Only then is the
// price difference computed.
func Reconcile(current, target booking.Session, b booking.Booking, childAge int, now time.Time) (Result, error) {
	if b.Status == booking.StatusCancelled {
		return Result{}, booking.NewValidationError("status", "booking is cancelled")
	}
	if b.SessionID != current.ID {
		return Result{}, booking.NewValidationError("sessionId", "booking does not belong to the current session")
	}
	if current.ID == target.ID {
		return Result{}, booking.NewValidationError("targetSessionId", "target session is the current session")
	}

	if target.IsFull() {
		return Result{}, &booking.CapacityError{
			Resource:  "session",
			ID:        target.ID,
			Requested: 1,
			Available: target.Capacity - target.Enrolled,
		}
	}
	if !target.AcceptsAge(childAge) {
		return Result{}, &booking.EligibilityError{
			SessionID: target.ID,
			ChildAge:  childAge,
			MinAge:    target.MinAge,
			MaxAge:    target.MaxAge,
		}
	}

	diff := target.Price - current.Price

	if diff > 0 {
		// The booking is untouched until the caller collects the difference.
		return Result{
			Action:          ActionCheckoutRequired,
			PriceDifference: diff,
			Booking:         b,
		}, nil
	}

	next := b
	next.TransferredFrom = current.ID
	next.SessionID = target.ID
	next.UpdatedAt = now

	if diff == 0 {
		return Result{
			Action:  ActionTransferOnly,
			Booking: next,
		}, nil
	}

	owed := -diff
	refund := owed.Min(b.Refundable())
	next.RefundedAmount += refund
	if next.RefundedAmount > 0 && next.PaymentStatus == booking.PaymentPaid {
		next.PaymentStatus = booking.PaymentPartiallyRefunded
	}

	return Result{
		Action:          ActionRefundAndTransfer,
		PriceDifference: diff,
		RefundAmount:    refund,
		RefundShortfall: owed - refund,
		Booking:         next,
	}, nil
}
