/*
Package refund evaluates tiered cancellation policies.

PURPOSE:
  Turns "parent cancels N days before the session" into a refund percentage
  and amount. A policy is an ordered set of tiers: cancel at least 30 days
  out for 100%, at least 14 for 50%, at least 7 for 25%, closer than that
  for nothing.

TIER SELECTION:
  Rules are sorted by DaysBeforeSession DESCENDING and the first rule whose
  threshold is <= days-until-session wins. That picks the most generous tier
  the booking still qualifies for, not the nearest threshold:

    tiers [{30,100},{14,50},{7,25}], session in 10 days
    -> 10 < 30, 10 < 14, 10 >= 7 -> 25%

  No qualifying rule, or a policy with no rules at all, means 0%. Absence of
  policy is a conservative default, not a full refund.

AMOUNT:
  Always computed off the ORIGINAL paid amount, never a prior partial
  refund. Rounding happens once, in money.PercentOf.

SEE ALSO:
  - booking.DaysUntil: the day-counting convention
  - CancelBooking: applies an Outcome to a booking as a state transition
*/
package refund

import (
	"fmt"
	"sort"
	"time"

	"github.com/courtside/booking-engine/booking"
	"github.com/courtside/booking-engine/money"
)

// =============================================================================
// POLICY - Ordered refund tiers
// =============================================================================

// Rule is one tier: cancel at least DaysBeforeSession days out to receive
// RefundPercent of the original amount.
type Rule struct {
	DaysBeforeSession int
	RefundPercent     money.Percent
}

// Policy is a named, staff-managed set of refund tiers.
type Policy struct {
	ID    string
	Name  string
	Rules []Rule
}

// Validate checks tier sanity: non-negative thresholds, percentages in
// [0, 100]. Called when staff create or edit a policy.
func (p Policy) Validate() error {
	for i, r := range p.Rules {
		if r.DaysBeforeSession < 0 {
			return booking.NewValidationError(
				fmt.Sprintf("rules[%d].daysBeforeSession", i), "must not be negative")
		}
		if r.RefundPercent.IsNegative() || r.RefundPercent.GreaterThan(money.NewPercent(100)) {
			return booking.NewValidationError(
				fmt.Sprintf("rules[%d].refundPercentage", i), "must be between 0 and 100")
		}
	}
	return nil
}

// =============================================================================
// EVALUATION
// =============================================================================

// Outcome is the result of evaluating a policy against a cancellation time.
type Outcome struct {
	RefundPercent    money.Percent
	RefundAmount     money.Amount
	DaysUntilSession int
	Explanation      string
}

// Evaluate computes the refund for cancelling a booking of originalAmount
// for a session on sessionDate, at time now. Pure: no I/O, no clock reads.
//
// The caller must reject past sessions before evaluating; a past session
// clamps to 0 days and falls into whatever tier covers day zero.
func Evaluate(p Policy, sessionDate, now time.Time, originalAmount money.Amount) Outcome {
	days := booking.DaysUntil(sessionDate, now)

	if len(p.Rules) == 0 {
		return Outcome{
			RefundPercent:    money.NewPercent(0),
			DaysUntilSession: days,
			Explanation:      "no refund policy configured: no refund",
		}
	}

	// Most generous qualifying tier first.
	rules := make([]Rule, len(p.Rules))
	copy(rules, p.Rules)
	sort.SliceStable(rules, func(i, j int) bool {
		return rules[i].DaysBeforeSession > rules[j].DaysBeforeSession
	})

	for _, r := range rules {
		if r.DaysBeforeSession <= days {
			return Outcome{
				RefundPercent:    r.RefundPercent,
				RefundAmount:     money.PercentOf(originalAmount, r.RefundPercent),
				DaysUntilSession: days,
				Explanation: fmt.Sprintf(
					"cancelled %d days before the session: %s%% tier applies (%d+ days)",
					days, r.RefundPercent.String(), r.DaysBeforeSession),
			}
		}
	}

	return Outcome{
		RefundPercent:    money.NewPercent(0),
		DaysUntilSession: days,
		Explanation: fmt.Sprintf(
			"cancelled %d days before the session: inside the no-refund window", days),
	}
}

// =============================================================================
// CANCELLATION TRANSITION
// =============================================================================

// CancelBooking evaluates the policy and returns the booking's next state:
// status cancelled, refund fields set, payment status downgraded to match.
//
// Guards:
//   - an already-cancelled booking is rejected (no double refund)
//   - a session that already started is rejected; this is the caller-side
//     check Evaluate assumes has happened
func CancelBooking(p Policy, b booking.Booking, sessionDate, now time.Time) (booking.Booking, Outcome, error) {
	if b.Status == booking.StatusCancelled {
		return b, Outcome{}, booking.NewValidationError("status", "booking is already cancelled")
	}
	if !sessionDate.After(now) {
		return b, Outcome{}, booking.NewValidationError("sessionDate", "session has already started")
	}

	out := Evaluate(p, sessionDate, now, b.Amount)

	next := b
	next.Status = booking.StatusCancelled
	next.RefundedAmount = (b.RefundedAmount + out.RefundAmount).Min(b.Amount)
	switch {
	case next.RefundedAmount == 0:
		// nothing moved; payment status unchanged
	case next.RefundedAmount == next.Amount:
		next.PaymentStatus = booking.PaymentRefunded
	default:
		next.PaymentStatus = booking.PaymentPartiallyRefunded
	}
	return next, out, nil
}
