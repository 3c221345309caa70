/*
presets.go - Ready-made JSON definitions for common configurations

PURPOSE:
  Convenience builders for the policies and rules most clubs start with.
  Each returns a JSON string suitable for ParseRefundPolicy /
  ParseDiscountRule, so presets flow through exactly the same validation
  as staff-authored JSON.
*/
package factory

import "fmt"

// StandardRefundPolicyJSON is the common three-tier cancellation policy:
// full refund 30+ days out, half at 14+, a quarter at 7+, nothing closer.
func StandardRefundPolicyJSON(id, name string) string {
	return fmt.Sprintf(`{
		"id": %q,
		"name": %q,
		"rules": [
			{"days_before_session": 30, "refund_percentage": 100},
			{"days_before_session": 14, "refund_percentage": 50},
			{"days_before_session": 7, "refund_percentage": 25}
		]
	}`, id, name)
}

// NoRefundPolicyJSON is a policy with no tiers: every cancellation
// refunds nothing.
func NoRefundPolicyJSON(id, name string) string {
	return fmt.Sprintf(`{"id": %q, "name": %q, "rules": []}`, id, name)
}

// SiblingDiscountJSON gives each sibling after the first a percentage off,
// computed on the running discounted price.
func SiblingDiscountJSON(id string, percent float64, priority int) string {
	return fmt.Sprintf(`{
		"id": %q,
		"name": "Sibling Discount",
		"type": "sibling",
		"discount": {"kind": "percentage", "value": %g, "applies_to": "additional"},
		"priority": %d,
		"is_active": true
	}`, id, percent, priority)
}

// BulkDiscountJSON gives every item a percentage off once the cart reaches
// minCartSize items.
func BulkDiscountJSON(id string, percent float64, minCartSize, priority int) string {
	return fmt.Sprintf(`{
		"id": %q,
		"name": "Bulk Booking Discount",
		"type": "bulk",
		"discount": {"kind": "percentage", "value": %g, "applies_to": "additional"},
		"priority": %d,
		"is_active": true,
		"min_cart_size": %d
	}`, id, percent, priority, minCartSize)
}

// EarlyBirdDiscountJSON takes a fixed amount (minor units) off items booked
// at least minDaysBefore days ahead of the session.
func EarlyBirdDiscountJSON(id string, pence int64, minDaysBefore, priority int) string {
	return fmt.Sprintf(`{
		"id": %q,
		"name": "Early Bird Discount",
		"type": "early_bird",
		"discount": {"kind": "fixed", "value": %d, "applies_to": "additional"},
		"priority": %d,
		"is_active": true,
		"min_days_before": %d
	}`, id, pence, priority, minDaysBefore)
}
