/*
Package factory provides JSON to Go policy and rule conversion.

PURPOSE:
  Converts JSON definitions into refund.Policy and discount.Rule values.
  This enables configuration without code changes - staff can define
  refund tiers and discount rules in JSON, and the factory creates the
  proper Go structs.

WHY JSON?
  - Non-developers can modify policies and rules
  - Easy integration with the admin UI
  - Version control for policy definitions
  - Database storage of rule configs

JSON SCHEMA (refund policy):
  {
    "id": "standard-cancellation",
    "name": "Standard Cancellation",
    "rules": [
      {"days_before_session": 30, "refund_percentage": 100},
      {"days_before_session": 14, "refund_percentage": 50},
      {"days_before_session": 7, "refund_percentage": 25}
    ]
  }

JSON SCHEMA (discount rule):
  {
    "id": "sibling-20",
    "name": "Sibling Discount",
    "type": "sibling",
    "discount": {"kind": "percentage", "value": 20, "applies_to": "additional"},
    "priority": 1,
    "is_active": true
  }

  For "kind": "fixed", value is in minor currency units (pence).
  "bulk" rules read min_cart_size; "early_bird" rules read min_days_before.

USAGE:
  factory := NewRuleFactory()

  policy, err := factory.ParseRefundPolicy(jsonString)
  rule, err := factory.ParseDiscountRule(jsonString)

  // From a preset (recommended)
  policy, err := factory.ParseRefundPolicy(StandardRefundPolicyJSON("std", "Standard"))

SEE ALSO:
  - refund: Policy type definition and tier evaluation
  - discount: Rule type definition and stacking engine
*/
package factory

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/courtside/booking-engine/discount"
	"github.com/courtside/booking-engine/refund"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// RefundPolicyJSON is the JSON representation of a tiered refund policy.
type RefundPolicyJSON struct {
	ID    string           `json:"id"`
	Name  string           `json:"name"`
	Rules []RefundTierJSON `json:"rules"`
}

// RefundTierJSON is one tier of a refund policy.
type RefundTierJSON struct {
	DaysBeforeSession int     `json:"days_before_session"`
	RefundPercentage  float64 `json:"refund_percentage"`
}

// DiscountRuleJSON is the JSON representation of a discount rule.
type DiscountRuleJSON struct {
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	Type          string       `json:"type"` // sibling, bulk, early_bird
	Discount      DiscountJSON `json:"discount"`
	Priority      int          `json:"priority"`
	IsActive      bool         `json:"is_active"`
	MinCartSize   int          `json:"min_cart_size,omitempty"`   // bulk only
	MinDaysBefore int          `json:"min_days_before,omitempty"` // early_bird only
}

// DiscountJSON carries the reduction itself: a percentage, or a fixed
// amount in minor units.
type DiscountJSON struct {
	Kind      string  `json:"kind"`  // percentage, fixed
	Value     float64 `json:"value"` // percent for percentage, pence for fixed
	AppliesTo string  `json:"applies_to,omitempty"`
}

// =============================================================================
// RULE FACTORY
// =============================================================================

// RuleFactory converts JSON policies and rules to Go structs.
type RuleFactory struct{}

// NewRuleFactory creates a new rule factory.
func NewRuleFactory() *RuleFactory {
	return &RuleFactory{}
}

// ParseRefundPolicy parses a JSON string into a validated refund.Policy.
func (f *RuleFactory) ParseRefundPolicy(jsonStr string) (refund.Policy, error) {
	var pj RefundPolicyJSON
	if err := json.Unmarshal([]byte(jsonStr), &pj); err != nil {
		return refund.Policy{}, fmt.Errorf("failed to parse refund policy JSON: %w", err)
	}
	return f.RefundPolicyFromJSON(pj)
}

// RefundPolicyFromJSON converts RefundPolicyJSON to a refund.Policy.
func (f *RuleFactory) RefundPolicyFromJSON(pj RefundPolicyJSON) (refund.Policy, error) {
	policy := refund.Policy{
		ID:   pj.ID,
		Name: pj.Name,
	}
	for _, tj := range pj.Rules {
		policy.Rules = append(policy.Rules, refund.Rule{
			DaysBeforeSession: tj.DaysBeforeSession,
			RefundPercent:     decimal.NewFromFloat(tj.RefundPercentage),
		})
	}
	if err := policy.Validate(); err != nil {
		return refund.Policy{}, err
	}
	return policy, nil
}

// RefundPolicyToJSON converts a refund.Policy back to its JSON form.
func (f *RuleFactory) RefundPolicyToJSON(policy refund.Policy) RefundPolicyJSON {
	pj := RefundPolicyJSON{
		ID:   policy.ID,
		Name: policy.Name,
	}
	for _, tier := range policy.Rules {
		pct, _ := tier.RefundPercent.Float64()
		pj.Rules = append(pj.Rules, RefundTierJSON{
			DaysBeforeSession: tier.DaysBeforeSession,
			RefundPercentage:  pct,
		})
	}
	return pj
}

// ParseDiscountRule parses a JSON string into a validated discount.Rule.
func (f *RuleFactory) ParseDiscountRule(jsonStr string) (discount.Rule, error) {
	var rj DiscountRuleJSON
	if err := json.Unmarshal([]byte(jsonStr), &rj); err != nil {
		return discount.Rule{}, fmt.Errorf("failed to parse discount rule JSON: %w", err)
	}
	return f.DiscountRuleFromJSON(rj)
}

// DiscountRuleFromJSON converts DiscountRuleJSON to a discount.Rule.
func (f *RuleFactory) DiscountRuleFromJSON(rj DiscountRuleJSON) (discount.Rule, error) {
	rule := discount.Rule{
		ID:            rj.ID,
		Name:          rj.Name,
		Type:          parseDiscountType(rj.Type),
		Kind:          parseDiscountKind(rj.Discount.Kind),
		Value:         decimal.NewFromFloat(rj.Discount.Value),
		AppliesTo:     parseBasis(rj.Discount.AppliesTo),
		Priority:      rj.Priority,
		IsActive:      rj.IsActive,
		MinCartSize:   rj.MinCartSize,
		MinDaysBefore: rj.MinDaysBefore,
	}
	if err := rule.Validate(); err != nil {
		return discount.Rule{}, err
	}
	return rule, nil
}

// DiscountRuleToJSON converts a discount.Rule back to its JSON form.
func (f *RuleFactory) DiscountRuleToJSON(rule discount.Rule) DiscountRuleJSON {
	value, _ := rule.Value.Float64()
	return DiscountRuleJSON{
		ID:   rule.ID,
		Name: rule.Name,
		Type: string(rule.Type),
		Discount: DiscountJSON{
			Kind:      string(rule.Kind),
			Value:     value,
			AppliesTo: string(rule.AppliesTo),
		},
		Priority:      rule.Priority,
		IsActive:      rule.IsActive,
		MinCartSize:   rule.MinCartSize,
		MinDaysBefore: rule.MinDaysBefore,
	}
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

func parseDiscountType(s string) discount.Type {
	switch s {
	case "bulk":
		return discount.TypeBulk
	case "early_bird":
		return discount.TypeEarlyBird
	default:
		return discount.TypeSibling
	}
}

func parseDiscountKind(s string) discount.Kind {
	if s == "fixed" {
		return discount.KindFixed
	}
	return discount.KindPercentage
}

func parseBasis(s string) discount.Basis {
	if s == "total" {
		return discount.BasisTotal
	}
	return discount.BasisAdditional
}
