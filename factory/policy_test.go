package factory_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courtside/booking-engine/booking"
	"github.com/courtside/booking-engine/discount"
	"github.com/courtside/booking-engine/factory"
	"github.com/courtside/booking-engine/money"
	"github.com/courtside/booking-engine/refund"
)

func TestParseRefundPolicy_Standard(t *testing.T) {
	f := factory.NewRuleFactory()

	policy, err := f.ParseRefundPolicy(factory.StandardRefundPolicyJSON("std", "Standard Cancellation"))
	require.NoError(t, err)

	assert.Equal(t, "std", policy.ID)
	require.Len(t, policy.Rules, 3)
	assert.Equal(t, 30, policy.Rules[0].DaysBeforeSession)
	assert.True(t, policy.Rules[0].RefundPercent.Equal(money.NewPercent(100)))

	// The parsed policy evaluates like a hand-built one.
	now := time.Date(2026, time.May, 1, 0, 0, 0, 0, time.UTC)
	out := refund.Evaluate(policy, now.AddDate(0, 0, 10), now, 6000)
	assert.Equal(t, money.Amount(1500), out.RefundAmount)
}

func TestParseRefundPolicy_RejectsBadTiers(t *testing.T) {
	f := factory.NewRuleFactory()

	_, err := f.ParseRefundPolicy(`{
		"id": "bad", "name": "Bad",
		"rules": [{"days_before_session": 7, "refund_percentage": 150}]
	}`)
	assert.ErrorIs(t, err, booking.ErrValidation)
}

func TestParseRefundPolicy_MalformedJSON(t *testing.T) {
	f := factory.NewRuleFactory()
	_, err := f.ParseRefundPolicy(`{"id": `)
	assert.Error(t, err)
}

func TestRefundPolicyRoundTrip(t *testing.T) {
	f := factory.NewRuleFactory()

	original, err := f.ParseRefundPolicy(factory.StandardRefundPolicyJSON("std", "Standard"))
	require.NoError(t, err)

	parsed, err := f.RefundPolicyFromJSON(f.RefundPolicyToJSON(original))
	require.NoError(t, err)
	assert.Equal(t, original.ID, parsed.ID)
	require.Len(t, parsed.Rules, len(original.Rules))
	for i := range parsed.Rules {
		assert.True(t, parsed.Rules[i].RefundPercent.Equal(original.Rules[i].RefundPercent))
	}
}

func TestParseDiscountRule_Presets(t *testing.T) {
	f := factory.NewRuleFactory()

	sibling, err := f.ParseDiscountRule(factory.SiblingDiscountJSON("sib-20", 20, 1))
	require.NoError(t, err)
	assert.Equal(t, discount.TypeSibling, sibling.Type)
	assert.Equal(t, discount.KindPercentage, sibling.Kind)
	assert.Equal(t, discount.BasisAdditional, sibling.AppliesTo)
	assert.True(t, sibling.Value.Equal(money.NewPercent(20)))
	assert.True(t, sibling.IsActive)

	bulk, err := f.ParseDiscountRule(factory.BulkDiscountJSON("bulk-10", 10, 3, 2))
	require.NoError(t, err)
	assert.Equal(t, discount.TypeBulk, bulk.Type)
	assert.Equal(t, 3, bulk.MinCartSize)

	early, err := f.ParseDiscountRule(factory.EarlyBirdDiscountJSON("early-500", 500, 14, 3))
	require.NoError(t, err)
	assert.Equal(t, discount.TypeEarlyBird, early.Type)
	assert.Equal(t, discount.KindFixed, early.Kind)
	assert.Equal(t, 14, early.MinDaysBefore)
}

func TestParseDiscountRule_RejectsNegativeValue(t *testing.T) {
	f := factory.NewRuleFactory()

	_, err := f.ParseDiscountRule(`{
		"id": "neg", "name": "Negative", "type": "sibling",
		"discount": {"kind": "percentage", "value": -5},
		"priority": 1, "is_active": true
	}`)
	assert.ErrorIs(t, err, booking.ErrValidation)
}

func TestDiscountRuleRoundTrip(t *testing.T) {
	f := factory.NewRuleFactory()

	original, err := f.ParseDiscountRule(factory.BulkDiscountJSON("bulk-10", 10, 3, 2))
	require.NoError(t, err)

	parsed, err := f.DiscountRuleFromJSON(f.DiscountRuleToJSON(original))
	require.NoError(t, err)
	assert.Equal(t, original.ID, parsed.ID)
	assert.Equal(t, original.Type, parsed.Type)
	assert.Equal(t, original.MinCartSize, parsed.MinCartSize)
	assert.True(t, parsed.Value.Equal(original.Value))
}
