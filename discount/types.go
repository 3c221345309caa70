/*
Package discount prices a cart of bookable items through staff-configured
discount rules.

PURPOSE:
  Parents book several children at once; staff configure sibling, bulk, and
  early-bird discounts that stack. This package decides, deterministically,
  what each item in the cart actually costs.

KEY CONCEPTS IN THIS FILE (types.go):
  - Rule: a tagged variant (sibling | bulk | early_bird) with a shared
    shape - each variant is a pure predicate over the same cart
  - Cart/Item: plain input data, one item per child per session
  - PricedItem/Applied: the output, recording each discount actually taken

STACKING:
  Rules apply in Priority order (lower first). A rule with AppliesTo=total
  computes its reduction off the item's ORIGINAL price; AppliesTo=additional
  computes off the running price left by earlier rules. Either way the
  reduction is clamped so no item price goes below zero, and the recorded
  Applied amount is what was actually taken, not the nominal value.

DETERMINISM:
  Candidate rules are sorted by (Priority, ID) before application, so
  shuffling the input slice never changes the output.

SEE ALSO:
  - engine.go: Apply and the per-variant eligibility predicates
*/
package discount

import (
	"time"

	"github.com/courtside/booking-engine/money"
)

// =============================================================================
// RULES - Tagged discount variants
// =============================================================================

// Type tags the rule variant.
type Type string

const (
	TypeSibling   Type = "sibling"
	TypeBulk      Type = "bulk"
	TypeEarlyBird Type = "early_bird"
)

// Kind is how the discount value is interpreted.
type Kind string

const (
	KindPercentage Kind = "percentage"
	KindFixed      Kind = "fixed" // Value is minor currency units
)

// Basis selects the price the discount is computed from.
type Basis string

const (
	// BasisTotal computes off the item's original base price.
	BasisTotal Basis = "total"
	// BasisAdditional computes off the running post-discount price.
	// Identical to BasisTotal for a lone percentage rule; the two diverge
	// once rules stack or a fixed discount is in play.
	BasisAdditional Basis = "additional"
)

// Rule is one staff-configured discount. Only active rules participate.
type Rule struct {
	ID        string
	Name      string
	Type      Type
	Kind      Kind
	Value     money.Percent // percentage, or minor units for KindFixed
	AppliesTo Basis
	Priority  int // lower = applied first
	IsActive  bool

	// Variant thresholds. MinCartSize gates bulk rules; MinDaysBefore is
	// the early-bird cutoff in whole days before the session.
	MinCartSize   int
	MinDaysBefore int
}

// =============================================================================
// CART - Input shape
// =============================================================================

// Item is one bookable line: one child attending one session.
type Item struct {
	ChildID     string
	SessionID   string
	SessionDate time.Time
	BasePrice   money.Amount
}

// Cart is a single parent's checkout. BookedAt is when the booking is being
// made; early-bird cutoffs count days from here.
type Cart struct {
	ParentID string
	BookedAt time.Time
	Items    []Item
}

// =============================================================================
// PRICED OUTPUT
// =============================================================================

// Applied records one discount taken against one item.
type Applied struct {
	RuleID   string
	RuleName string
	Type     Type
	Amount   money.Amount // the reduction actually taken, post-clamp
}

// PricedItem is an item with its discounts and final price.
type PricedItem struct {
	Item
	AppliedDiscounts []Applied
	FinalPrice       money.Amount
}

// TotalDiscount sums the reductions taken on this item.
func (p PricedItem) TotalDiscount() money.Amount {
	var total money.Amount
	for _, a := range p.AppliedDiscounts {
		total += a.Amount
	}
	return total
}
