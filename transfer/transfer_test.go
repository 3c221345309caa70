package transfer_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courtside/booking-engine/booking"
	"github.com/courtside/booking-engine/money"
	"github.com/courtside/booking-engine/transfer"
)

var now = time.Date(2026, time.April, 10, 12, 0, 0, 0, time.UTC)

func session(id string, price money.Amount) booking.Session {
	return booking.Session{
		ID:       id,
		Name:     "Saturday Football " + id,
		Price:    price,
		Capacity: 12,
		Enrolled: 5,
	}
}

func paidBooking(sessionID string, amount money.Amount) booking.Booking {
	return booking.Booking{
		ID:            "bkg-1",
		SessionID:     sessionID,
		ChildID:       "child-1",
		ParentID:      "parent-1",
		Amount:        amount,
		PaymentStatus: booking.PaymentPaid,
		Status:        booking.StatusConfirmed,
	}
}

func TestReconcile_CheaperTargetRefundsAndTransfers(t *testing.T) {
	// GIVEN: a £30 booking moving to a £25 session
	// WHEN: reconciling
	// THEN: booking rewritten now, £5 refunded

	current := session("sess-a", 3000)
	target := session("sess-b", 2500)
	b := paidBooking("sess-a", 3000)

	res, err := transfer.Reconcile(current, target, b, 8, now)
	require.NoError(t, err)

	assert.Equal(t, transfer.ActionRefundAndTransfer, res.Action)
	assert.Equal(t, money.Amount(-500), res.PriceDifference)
	assert.Equal(t, money.Amount(500), res.RefundAmount)
	assert.Equal(t, money.Amount(0), res.RefundShortfall)

	assert.Equal(t, "sess-b", res.Booking.SessionID)
	assert.Equal(t, "sess-a", res.Booking.TransferredFrom)
	assert.Equal(t, money.Amount(500), res.Booking.RefundedAmount)
	assert.Equal(t, booking.PaymentPartiallyRefunded, res.Booking.PaymentStatus)

	// The input booking is an immutable snapshot.
	assert.Equal(t, "sess-a", b.SessionID)
	assert.Equal(t, money.Amount(0), b.RefundedAmount)
}

func TestReconcile_DearerTargetRequiresCheckout(t *testing.T) {
	current := session("sess-a", 2500)
	target := session("sess-b", 3000)
	b := paidBooking("sess-a", 2500)

	res, err := transfer.Reconcile(current, target, b, 8, now)
	require.NoError(t, err)

	assert.Equal(t, transfer.ActionCheckoutRequired, res.Action)
	assert.Equal(t, money.Amount(500), res.PriceDifference)
	assert.Equal(t, money.Amount(0), res.RefundAmount)

	// Not rewritten until the difference is collected.
	assert.Equal(t, "sess-a", res.Booking.SessionID)
	assert.Empty(t, res.Booking.TransferredFrom)
}

func TestReconcile_EqualPriceTransfersOnly(t *testing.T) {
	current := session("sess-a", 3000)
	target := session("sess-b", 3000)
	b := paidBooking("sess-a", 3000)

	res, err := transfer.Reconcile(current, target, b, 8, now)
	require.NoError(t, err)

	assert.Equal(t, transfer.ActionTransferOnly, res.Action)
	assert.Equal(t, money.Amount(0), res.PriceDifference)
	assert.Equal(t, "sess-b", res.Booking.SessionID)
	assert.Equal(t, "sess-a", res.Booking.TransferredFrom)
	assert.Equal(t, booking.PaymentPaid, res.Booking.PaymentStatus)
}

func TestReconcile_RefundCappedWithShortfall(t *testing.T) {
	// GIVEN: a booking with only £2 of refund headroom left
	// WHEN: the transfer owes £5 back
	// THEN: £2 refunded, £3 reported as shortfall, never silently dropped

	current := session("sess-a", 3000)
	target := session("sess-b", 2500)
	b := paidBooking("sess-a", 3000)
	b.RefundedAmount = 2800

	res, err := transfer.Reconcile(current, target, b, 8, now)
	require.NoError(t, err)

	assert.Equal(t, transfer.ActionRefundAndTransfer, res.Action)
	assert.Equal(t, money.Amount(200), res.RefundAmount)
	assert.Equal(t, money.Amount(300), res.RefundShortfall)
	assert.Equal(t, b.Amount, res.Booking.RefundedAmount)
}

func TestReconcile_FullTargetRefusedBeforePricing(t *testing.T) {
	current := session("sess-a", 3000)
	target := session("sess-b", 2500)
	target.Enrolled = target.Capacity
	b := paidBooking("sess-a", 3000)

	_, err := transfer.Reconcile(current, target, b, 8, now)
	assert.ErrorIs(t, err, booking.ErrCapacity)

	var capErr *booking.CapacityError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, "sess-b", capErr.ID)
	assert.Equal(t, 0, capErr.Available)
}

func TestReconcile_AgeIneligibleRefused(t *testing.T) {
	current := session("sess-a", 3000)
	target := session("sess-b", 2500)
	target.MinAge = 9
	target.MaxAge = 12
	b := paidBooking("sess-a", 3000)

	_, err := transfer.Reconcile(current, target, b, 8, now)
	assert.ErrorIs(t, err, booking.ErrEligibility)

	var eligErr *booking.EligibilityError
	require.ErrorAs(t, err, &eligErr)
	assert.Equal(t, 8, eligErr.ChildAge)
	assert.Equal(t, 9, eligErr.MinAge)
}

func TestReconcile_Validation(t *testing.T) {
	current := session("sess-a", 3000)
	target := session("sess-b", 2500)

	t.Run("cancelled booking", func(t *testing.T) {
		b := paidBooking("sess-a", 3000)
		b.Status = booking.StatusCancelled
		_, err := transfer.Reconcile(current, target, b, 8, now)
		assert.ErrorIs(t, err, booking.ErrValidation)
	})

	t.Run("booking on a different session", func(t *testing.T) {
		b := paidBooking("sess-z", 3000)
		_, err := transfer.Reconcile(current, target, b, 8, now)
		assert.ErrorIs(t, err, booking.ErrValidation)
	})

	t.Run("target is current", func(t *testing.T) {
		b := paidBooking("sess-a", 3000)
		_, err := transfer.Reconcile(current, current, b, 8, now)
		assert.ErrorIs(t, err, booking.ErrValidation)
	})
}

func TestReconcile_DeltaSymmetry(t *testing.T) {
	// Moving A->B and then B->A (with unchanged prices) produces negated
	// price differences.

	a := session("sess-a", 3000)
	b := session("sess-b", 2500)
	bkg := paidBooking("sess-a", 3000)

	first, err := transfer.Reconcile(a, b, bkg, 8, now)
	require.NoError(t, err)
	require.Equal(t, transfer.ActionRefundAndTransfer, first.Action)

	second, err := transfer.Reconcile(b, a, first.Booking, 8, now)
	require.NoError(t, err)
	assert.Equal(t, transfer.ActionCheckoutRequired, second.Action)
	assert.Equal(t, -first.PriceDifference, second.PriceDifference)
}
