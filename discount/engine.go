/*
engine.go - Priority-ordered discount stacking

APPLICATION ORDER:
  1. Filter to active rules
  2. Sort by (Priority asc, ID asc) - the ID tie-break keeps equal-priority
     rule sets deterministic under input shuffle
  3. For each rule in order, for each eligible item: compute the reduction
     off the rule's basis, clamp at the running price, subtract

ELIGIBILITY PER VARIANT:
  sibling:    children after the first distinct child in the cart. Ordinal
              is first-appearance order of ChildID, so the first-enrolled
              child stays full price.
  bulk:       every item, once the cart holds at least MinCartSize items
  early_bird: items whose session is at least MinDaysBefore days out from
              the cart's BookedAt (same day convention as refund tiers)
*/
package discount

import (
	"sort"

	"github.com/courtside/booking-engine/booking"
	"github.com/courtside/booking-engine/money"
)

// Apply prices the cart through the given rules. Pure: the cart and rules
// are read only, and the same inputs always produce the same output
// regardless of the rules' slice order.
func Apply(cart Cart, rules []Rule) []PricedItem {
	active := make([]Rule, 0, len(rules))
	for _, r := range rules {
		if r.IsActive {
			active = append(active, r)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		if active[i].Priority != active[j].Priority {
			return active[i].Priority < active[j].Priority
		}
		return active[i].ID < active[j].ID
	})

	siblingOrdinal := childOrdinals(cart)

	priced := make([]PricedItem, len(cart.Items))
	for i, item := range cart.Items {
		priced[i] = PricedItem{Item: item, FinalPrice: item.BasePrice}
	}

	for _, rule := range active {
		for i := range priced {
			if !eligible(rule, cart, priced[i].Item, siblingOrdinal) {
				continue
			}

			base := priced[i].FinalPrice
			if rule.AppliesTo == BasisTotal {
				base = priced[i].BasePrice
			}

			var reduction money.Amount
			switch rule.Kind {
			case KindPercentage:
				reduction = money.PercentOf(base, rule.Value)
			case KindFixed:
				reduction = money.Amount(rule.Value.Round(0).IntPart())
			default:
				continue
			}

			// Never drive an item below zero; record what was taken.
			reduction = reduction.Min(priced[i].FinalPrice).Max(0)
			if reduction == 0 {
				continue
			}

			priced[i].FinalPrice -= reduction
			priced[i].AppliedDiscounts = append(priced[i].AppliedDiscounts, Applied{
				RuleID:   rule.ID,
				RuleName: rule.Name,
				Type:     rule.Type,
				Amount:   reduction,
			})
		}
	}

	return priced
}

// eligible reports whether a rule covers an item in this cart.
func eligible(rule Rule, cart Cart, item Item, ordinal map[string]int) bool {
	switch rule.Type {
	case TypeSibling:
		return ordinal[item.ChildID] > 0
	case TypeBulk:
		return rule.MinCartSize > 0 && len(cart.Items) >= rule.MinCartSize
	case TypeEarlyBird:
		return booking.DaysUntil(item.SessionDate, cart.BookedAt) >= rule.MinDaysBefore
	default:
		return false
	}
}

// childOrdinals maps each ChildID to its first-appearance position in the
// cart. Ordinal 0 is the first-enrolled child.
func childOrdinals(cart Cart) map[string]int {
	ordinals := make(map[string]int)
	next := 0
	for _, item := range cart.Items {
		if _, seen := ordinals[item.ChildID]; !seen {
			ordinals[item.ChildID] = next
			next++
		}
	}
	return ordinals
}

// Validate checks a staff-submitted rule before it is stored.
func (r Rule) Validate() error {
	switch r.Type {
	case TypeSibling, TypeBulk, TypeEarlyBird:
	default:
		return booking.NewValidationError("type", "unknown discount type")
	}
	switch r.Kind {
	case KindPercentage:
		if r.Value.IsNegative() || r.Value.GreaterThan(money.NewPercent(100)) {
			return booking.NewValidationError("value", "percentage must be between 0 and 100")
		}
	case KindFixed:
		if r.Value.IsNegative() {
			return booking.NewValidationError("value", "fixed discount must not be negative")
		}
	default:
		return booking.NewValidationError("kind", "unknown discount kind")
	}
	switch r.AppliesTo {
	case BasisTotal, BasisAdditional:
	default:
		return booking.NewValidationError("appliesTo", "must be total or additional")
	}
	if r.Type == TypeBulk && r.MinCartSize <= 0 {
		return booking.NewValidationError("minCartSize", "bulk rules need a positive threshold")
	}
	if r.Type == TypeEarlyBird && r.MinDaysBefore <= 0 {
		return booking.NewValidationError("minDaysBefore", "early bird rules need a positive cutoff")
	}
	return nil
}
