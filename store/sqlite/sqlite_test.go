package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courtside/booking-engine/blockbooking"
	"github.com/courtside/booking-engine/booking"
	"github.com/courtside/booking-engine/factory"
	"github.com/courtside/booking-engine/money"
	"github.com/courtside/booking-engine/refund"
	"github.com/courtside/booking-engine/store/sqlite"
)

var now = time.Date(2026, time.June, 1, 10, 0, 0, 0, time.UTC)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSessionRoundTrip(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	sess := booking.Session{
		ID:        "sess-1",
		Name:      "Saturday Football U10",
		Price:     3000,
		StartDate: now.AddDate(0, 0, 14),
		DayOfWeek: time.Saturday,
		Capacity:  12,
		Enrolled:  5,
		MinAge:    8,
		MaxAge:    10,
	}
	require.NoError(t, store.SaveSession(ctx, sess))

	got, err := store.GetSession(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, sess.Name, got.Name)
	assert.Equal(t, money.Amount(3000), got.Price)
	assert.Equal(t, time.Saturday, got.DayOfWeek)
	assert.True(t, got.StartDate.Equal(sess.StartDate))

	_, err = store.GetSession(ctx, "missing")
	assert.ErrorIs(t, err, booking.ErrNotFound)
}

func TestBookingRoundTrip(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	b := booking.Booking{
		ID:            "bkg-1",
		SessionID:     "sess-1",
		ChildID:       "child-1",
		ParentID:      "parent-1",
		Amount:        3000,
		PaymentStatus: booking.PaymentPaid,
		Status:        booking.StatusConfirmed,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	require.NoError(t, store.SaveBooking(ctx, b))

	// Cancellation is an upsert of the mutated fields.
	b.Status = booking.StatusCancelled
	b.RefundedAmount = 1500
	b.PaymentStatus = booking.PaymentPartiallyRefunded
	require.NoError(t, store.SaveBooking(ctx, b))

	got, err := store.GetBooking(ctx, "bkg-1")
	require.NoError(t, err)
	assert.Equal(t, booking.StatusCancelled, got.Status)
	assert.Equal(t, money.Amount(1500), got.RefundedAmount)
	assert.Equal(t, booking.PaymentPartiallyRefunded, got.PaymentStatus)

	list, err := store.ListBookingsByParent(ctx, "parent-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestRefundPolicyRoundTrip(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	f := factory.NewRuleFactory()

	policy, err := f.ParseRefundPolicy(factory.StandardRefundPolicyJSON("std", "Standard"))
	require.NoError(t, err)
	require.NoError(t, store.SaveRefundPolicy(ctx, policy))

	got, err := store.GetRefundPolicy(ctx, "std")
	require.NoError(t, err)
	require.Len(t, got.Rules, 3)
	assert.Equal(t, 30, got.Rules[0].DaysBeforeSession)
	assert.True(t, got.Rules[0].RefundPercent.Equal(money.NewPercent(100)))

	require.NoError(t, store.DeleteRefundPolicy(ctx, "std"))
	_, err = store.GetRefundPolicy(ctx, "std")
	assert.ErrorIs(t, err, booking.ErrNotFound)
}

func TestSaveRefundPolicy_RejectsInvalid(t *testing.T) {
	store := newStore(t)

	bad := refundPolicyWithPercent(t, 150)
	err := store.SaveRefundPolicy(context.Background(), bad)
	assert.ErrorIs(t, err, booking.ErrValidation)
}

func TestDiscountRules_ActiveFilter(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	f := factory.NewRuleFactory()

	sibling, err := f.ParseDiscountRule(factory.SiblingDiscountJSON("sib-20", 20, 1))
	require.NoError(t, err)
	require.NoError(t, store.SaveDiscountRule(ctx, sibling))

	bulk, err := f.ParseDiscountRule(factory.BulkDiscountJSON("bulk-10", 10, 3, 2))
	require.NoError(t, err)
	bulk.IsActive = false
	require.NoError(t, store.SaveDiscountRule(ctx, bulk))

	active, err := store.ListDiscountRules(ctx, true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "sib-20", active[0].ID)

	all, err := store.ListDiscountRules(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestPackage_InsertAndReload(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	pkg := newPackage(t)
	saved, err := store.SavePackage(ctx, pkg)
	require.NoError(t, err)
	assert.Equal(t, 1, saved.Version)

	got, err := store.GetPackage(ctx, pkg.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, got.TotalSessions)
	assert.Equal(t, money.Amount(20000), got.TotalPaid)
	assert.Equal(t, blockbooking.StatusActive, got.Status)
	assert.Equal(t, 1, got.Version)
}

func TestPackage_VersionCheckedUpdate(t *testing.T) {
	// GIVEN: two callers loaded the same package version
	// WHEN: both try to save a transition
	// THEN: the second save loses with ErrConcurrentModification

	store := newStore(t)
	ctx := context.Background()

	saved, err := store.SavePackage(ctx, newPackage(t))
	require.NoError(t, err)

	first, err := blockbooking.Deduct(saved, blockbooking.UsageRecord{
		ID: "use-1", SessionDate: now, CreatedAt: now,
	})
	require.NoError(t, err)
	second, err := blockbooking.Deduct(saved, blockbooking.UsageRecord{
		ID: "use-2", SessionDate: now.AddDate(0, 0, 7), CreatedAt: now,
	})
	require.NoError(t, err)

	_, err = store.SavePackage(ctx, first)
	require.NoError(t, err)

	_, err = store.SavePackage(ctx, second)
	assert.ErrorIs(t, err, booking.ErrConcurrentModification)
	assert.True(t, booking.IsRetryable(err))

	// The loser reloads and recomputes on the fresh version.
	fresh, err := store.GetPackage(ctx, saved.ID)
	require.NoError(t, err)
	retried, err := blockbooking.Deduct(fresh, blockbooking.UsageRecord{
		ID: "use-2", SessionDate: now.AddDate(0, 0, 7), CreatedAt: now,
	})
	require.NoError(t, err)
	stored, err := store.SavePackage(ctx, retried)
	require.NoError(t, err)
	assert.Equal(t, 3, stored.Version)
	assert.Equal(t, 2, stored.DeductedSessions)
}

func TestPackage_UsageHistoryPersisted(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	saved, err := store.SavePackage(ctx, newPackage(t))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		next, err := blockbooking.Deduct(saved, blockbooking.UsageRecord{
			ID:          usageID(i),
			SessionDate: now.AddDate(0, 0, i*7),
			CoachID:     "coach-1",
			CreatedAt:   now.AddDate(0, 0, i*7),
		})
		require.NoError(t, err)
		saved, err = store.SavePackage(ctx, next)
		require.NoError(t, err)
	}

	got, err := store.GetPackage(ctx, saved.ID)
	require.NoError(t, err)
	require.Len(t, got.Usage, 3)
	assert.Equal(t, usageID(0), got.Usage[0].ID)
	assert.Equal(t, "coach-1", got.Usage[2].CoachID)
}

func TestListPackagesByParent(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	pkg := newPackage(t)
	_, err := store.SavePackage(ctx, pkg)
	require.NoError(t, err)

	list, err := store.ListPackagesByParent(ctx, pkg.ParentID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, pkg.ID, list[0].ID)

	empty, err := store.ListPackagesByParent(ctx, "someone-else")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

// Helpers

func newPackage(t *testing.T) blockbooking.Package {
	t.Helper()
	pkg, err := blockbooking.Purchase(blockbooking.PurchaseInput{
		ID:              "pkg-1",
		ParentID:        "parent-1",
		ChildID:         "child-1",
		TotalSessions:   10,
		TotalPaid:       20000,
		PricePerSession: 2000,
		Now:             now,
	})
	require.NoError(t, err)
	return pkg
}

func usageID(i int) string {
	return "use-" + string(rune('1'+i))
}

func refundPolicyWithPercent(t *testing.T, percent float64) refund.Policy {
	t.Helper()
	return refund.Policy{
		ID:   "bad",
		Name: "Bad",
		Rules: []refund.Rule{
			{DaysBeforeSession: 7, RefundPercent: decimal.NewFromFloat(percent)},
		},
	}
}
