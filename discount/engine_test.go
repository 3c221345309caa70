package discount_test

import (
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courtside/booking-engine/discount"
	"github.com/courtside/booking-engine/money"
)

var bookedAt = time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)

func threeSiblingCart(price money.Amount) discount.Cart {
	session := bookedAt.AddDate(0, 0, 20)
	return discount.Cart{
		ParentID: "parent-1",
		BookedAt: bookedAt,
		Items: []discount.Item{
			{ChildID: "child-a", SessionID: "sess-1", SessionDate: session, BasePrice: price},
			{ChildID: "child-b", SessionID: "sess-1", SessionDate: session, BasePrice: price},
			{ChildID: "child-c", SessionID: "sess-1", SessionDate: session, BasePrice: price},
		},
	}
}

func siblingRule(priority int, percent int64, basis discount.Basis) discount.Rule {
	return discount.Rule{
		ID: "sibling-20", Name: "Sibling discount", Type: discount.TypeSibling,
		Kind: discount.KindPercentage, Value: money.NewPercent(percent),
		AppliesTo: basis, Priority: priority, IsActive: true,
	}
}

func bulkRule(priority int, percent int64, threshold int, basis discount.Basis) discount.Rule {
	return discount.Rule{
		ID: "bulk-10", Name: "Bulk discount", Type: discount.TypeBulk,
		Kind: discount.KindPercentage, Value: money.NewPercent(percent),
		AppliesTo: basis, Priority: priority, IsActive: true, MinCartSize: threshold,
	}
}

func TestApply_SiblingThenBulkStacking(t *testing.T) {
	// GIVEN: 3 siblings at £50 each, sibling 20% (priority 1, additional)
	//        and bulk 10% at threshold 3 (priority 2, additional)
	// WHEN: pricing the cart
	// THEN: children 2 and 3 get 20% off first, then all three get 10%
	//       off the running price

	rules := []discount.Rule{
		siblingRule(1, 20, discount.BasisAdditional),
		bulkRule(2, 10, 3, discount.BasisAdditional),
	}
	priced := discount.Apply(threeSiblingCart(5000), rules)
	require.Len(t, priced, 3)

	// First child: full price, then 10% bulk -> 4500
	assert.Equal(t, money.Amount(4500), priced[0].FinalPrice)
	require.Len(t, priced[0].AppliedDiscounts, 1)
	assert.Equal(t, discount.TypeBulk, priced[0].AppliedDiscounts[0].Type)

	// Siblings: 5000 - 20% = 4000, then -10% = 3600
	for _, p := range priced[1:] {
		assert.Equal(t, money.Amount(3600), p.FinalPrice)
		require.Len(t, p.AppliedDiscounts, 2)
		assert.Equal(t, discount.TypeSibling, p.AppliedDiscounts[0].Type)
		assert.Equal(t, money.Amount(1000), p.AppliedDiscounts[0].Amount)
		assert.Equal(t, discount.TypeBulk, p.AppliedDiscounts[1].Type)
		assert.Equal(t, money.Amount(400), p.AppliedDiscounts[1].Amount)
	}
}

func TestApply_BasisTotalIgnoresEarlierDiscounts(t *testing.T) {
	// A total-basis bulk rule computes off the original £50, not the
	// sibling-reduced running price.
	rules := []discount.Rule{
		siblingRule(1, 20, discount.BasisAdditional),
		bulkRule(2, 10, 3, discount.BasisTotal),
	}
	priced := discount.Apply(threeSiblingCart(5000), rules)

	// Sibling item: 5000 - 1000 (20%) - 500 (10% of base) = 3500
	assert.Equal(t, money.Amount(3500), priced[1].FinalPrice)
	assert.Equal(t, money.Amount(500), priced[1].AppliedDiscounts[1].Amount)
}

func TestApply_ShuffledRulesAreDeterministic(t *testing.T) {
	// Shuffling the input rule slice never changes the output: the
	// priority sort is internal.
	rules := []discount.Rule{
		siblingRule(1, 20, discount.BasisAdditional),
		bulkRule(2, 10, 3, discount.BasisAdditional),
		{
			ID: "early-5", Name: "Early bird", Type: discount.TypeEarlyBird,
			Kind: discount.KindPercentage, Value: money.NewPercent(5),
			AppliesTo: discount.BasisAdditional, Priority: 3, IsActive: true,
			MinDaysBefore: 14,
		},
	}

	want := discount.Apply(threeSiblingCart(5000), rules)

	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 10; trial++ {
		shuffled := make([]discount.Rule, len(rules))
		copy(shuffled, rules)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

		got := discount.Apply(threeSiblingCart(5000), shuffled)
		assert.Equal(t, want, got)
	}
}

func TestApply_EqualPriorityTieBreaksOnID(t *testing.T) {
	// Two fixed rules at the same priority: ID order decides, so either
	// input order yields the same result.
	a := discount.Rule{ID: "a", Type: discount.TypeBulk, Kind: discount.KindFixed,
		Value: decimal.NewFromInt(3000), AppliesTo: discount.BasisAdditional,
		Priority: 1, IsActive: true, MinCartSize: 1}
	b := discount.Rule{ID: "b", Type: discount.TypeBulk, Kind: discount.KindFixed,
		Value: decimal.NewFromInt(4000), AppliesTo: discount.BasisAdditional,
		Priority: 1, IsActive: true, MinCartSize: 1}

	cart := discount.Cart{BookedAt: bookedAt, Items: []discount.Item{
		{ChildID: "c", SessionDate: bookedAt.AddDate(0, 0, 5), BasePrice: 5000},
	}}

	first := discount.Apply(cart, []discount.Rule{a, b})
	second := discount.Apply(cart, []discount.Rule{b, a})
	assert.Equal(t, first, second)
}

func TestApply_FixedDiscountClampsAtZero(t *testing.T) {
	// GIVEN: a £20 item and a £30 fixed discount
	// WHEN: pricing
	// THEN: price clamps at zero and the recorded discount is the £20
	//       actually taken, not the nominal £30

	rule := discount.Rule{
		ID: "fixed-30", Name: "Voucher", Type: discount.TypeBulk,
		Kind: discount.KindFixed, Value: decimal.NewFromInt(3000),
		AppliesTo: discount.BasisAdditional, Priority: 1, IsActive: true, MinCartSize: 1,
	}
	cart := discount.Cart{BookedAt: bookedAt, Items: []discount.Item{
		{ChildID: "c", SessionDate: bookedAt.AddDate(0, 0, 5), BasePrice: 2000},
	}}

	priced := discount.Apply(cart, []discount.Rule{rule})
	assert.Equal(t, money.Amount(0), priced[0].FinalPrice)
	require.Len(t, priced[0].AppliedDiscounts, 1)
	assert.Equal(t, money.Amount(2000), priced[0].AppliedDiscounts[0].Amount)
}

func TestApply_NoPriceEverNegative(t *testing.T) {
	// Stacking a clamping fixed rule with a total-basis percentage rule
	// still never goes negative.
	rules := []discount.Rule{
		{ID: "fixed", Type: discount.TypeBulk, Kind: discount.KindFixed,
			Value: decimal.NewFromInt(4900), AppliesTo: discount.BasisAdditional,
			Priority: 1, IsActive: true, MinCartSize: 1},
		{ID: "pct", Type: discount.TypeBulk, Kind: discount.KindPercentage,
			Value: money.NewPercent(50), AppliesTo: discount.BasisTotal,
			Priority: 2, IsActive: true, MinCartSize: 1},
	}
	cart := discount.Cart{BookedAt: bookedAt, Items: []discount.Item{
		{ChildID: "c", SessionDate: bookedAt.AddDate(0, 0, 5), BasePrice: 5000},
	}}

	priced := discount.Apply(cart, rules)
	// 5000 - 4900 = 100 running; 50% of base would be 2500, clamped to 100.
	assert.Equal(t, money.Amount(0), priced[0].FinalPrice)
	assert.Equal(t, money.Amount(100), priced[0].AppliedDiscounts[1].Amount)
}

func TestApply_SiblingFirstChildFullPrice(t *testing.T) {
	priced := discount.Apply(threeSiblingCart(5000), []discount.Rule{
		siblingRule(1, 20, discount.BasisAdditional),
	})

	assert.Equal(t, money.Amount(5000), priced[0].FinalPrice)
	assert.Empty(t, priced[0].AppliedDiscounts)
	assert.Equal(t, money.Amount(4000), priced[1].FinalPrice)
	assert.Equal(t, money.Amount(4000), priced[2].FinalPrice)
}

func TestApply_SiblingOrdinalFollowsFirstAppearance(t *testing.T) {
	// The same child twice is still one child: both of child-a's items
	// stay full price, child-b's is discounted.
	session := bookedAt.AddDate(0, 0, 20)
	cart := discount.Cart{BookedAt: bookedAt, Items: []discount.Item{
		{ChildID: "child-a", SessionID: "s1", SessionDate: session, BasePrice: 5000},
		{ChildID: "child-a", SessionID: "s2", SessionDate: session, BasePrice: 5000},
		{ChildID: "child-b", SessionID: "s1", SessionDate: session, BasePrice: 5000},
	}}

	priced := discount.Apply(cart, []discount.Rule{siblingRule(1, 20, discount.BasisAdditional)})
	assert.Equal(t, money.Amount(5000), priced[0].FinalPrice)
	assert.Equal(t, money.Amount(5000), priced[1].FinalPrice)
	assert.Equal(t, money.Amount(4000), priced[2].FinalPrice)
}

func TestApply_BulkThresholdNotMet(t *testing.T) {
	cart := discount.Cart{BookedAt: bookedAt, Items: []discount.Item{
		{ChildID: "a", SessionDate: bookedAt.AddDate(0, 0, 5), BasePrice: 5000},
		{ChildID: "b", SessionDate: bookedAt.AddDate(0, 0, 5), BasePrice: 5000},
	}}
	priced := discount.Apply(cart, []discount.Rule{bulkRule(1, 10, 3, discount.BasisAdditional)})
	assert.Equal(t, money.Amount(5000), priced[0].FinalPrice)
	assert.Equal(t, money.Amount(5000), priced[1].FinalPrice)
}

func TestApply_EarlyBirdCutoff(t *testing.T) {
	rule := discount.Rule{
		ID: "early", Type: discount.TypeEarlyBird, Kind: discount.KindPercentage,
		Value: money.NewPercent(10), AppliesTo: discount.BasisAdditional,
		Priority: 1, IsActive: true, MinDaysBefore: 14,
	}

	near := discount.Cart{BookedAt: bookedAt, Items: []discount.Item{
		{ChildID: "a", SessionDate: bookedAt.AddDate(0, 0, 13), BasePrice: 5000},
	}}
	far := discount.Cart{BookedAt: bookedAt, Items: []discount.Item{
		{ChildID: "a", SessionDate: bookedAt.AddDate(0, 0, 14), BasePrice: 5000},
	}}

	assert.Equal(t, money.Amount(5000), discount.Apply(near, []discount.Rule{rule})[0].FinalPrice)
	assert.Equal(t, money.Amount(4500), discount.Apply(far, []discount.Rule{rule})[0].FinalPrice)
}

func TestApply_InactiveRulesIgnored(t *testing.T) {
	rule := siblingRule(1, 20, discount.BasisAdditional)
	rule.IsActive = false
	priced := discount.Apply(threeSiblingCart(5000), []discount.Rule{rule})
	for _, p := range priced {
		assert.Equal(t, money.Amount(5000), p.FinalPrice)
		assert.Empty(t, p.AppliedDiscounts)
	}
}

func TestRule_Validate(t *testing.T) {
	cases := []struct {
		name string
		rule discount.Rule
		ok   bool
	}{
		{"valid sibling", siblingRule(1, 20, discount.BasisAdditional), true},
		{"percentage over 100", siblingRule(1, 150, discount.BasisAdditional), false},
		{"bulk without threshold", discount.Rule{Type: discount.TypeBulk,
			Kind: discount.KindPercentage, Value: money.NewPercent(10),
			AppliesTo: discount.BasisTotal}, false},
		{"early bird without cutoff", discount.Rule{Type: discount.TypeEarlyBird,
			Kind: discount.KindPercentage, Value: money.NewPercent(10),
			AppliesTo: discount.BasisTotal}, false},
		{"unknown type", discount.Rule{Type: "loyalty", Kind: discount.KindPercentage,
			Value: money.NewPercent(10), AppliesTo: discount.BasisTotal}, false},
		{"negative fixed", discount.Rule{Type: discount.TypeBulk, Kind: discount.KindFixed,
			Value: decimal.NewFromInt(-100), AppliesTo: discount.BasisTotal, MinCartSize: 2}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.rule.Validate()
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
