/*
scenarios.go - Demo scenario loaders

PURPOSE:
  Seeds the store with recognisable data sets so the API can be explored
  without hand-crafting every entity. Each scenario wipes the store and
  loads a self-contained world.

SCENARIOS:
  - club-basics:  a week of sessions, the standard refund policy, and the
                  usual sibling/bulk/early-bird discounts
  - term-packages: block bookings in several lifecycle states
  - strict-studio: a no-refund studio with tight age bands

SEE ALSO:
  - factory/presets.go: the policy and rule JSON used for seeding
*/
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/courtside/booking-engine/blockbooking"
	"github.com/courtside/booking-engine/booking"
	"github.com/courtside/booking-engine/factory"
	"github.com/courtside/booking-engine/money"
)

var scenarios = []ScenarioDTO{
	{
		ID:          "club-basics",
		Name:        "Club basics",
		Description: "A week of coaching sessions with the standard refund policy and sibling, bulk, and early-bird discounts.",
	},
	{
		ID:          "term-packages",
		Name:        "Term packages",
		Description: "Block bookings in several states: fresh, part-used, nearly exhausted, and one past its expiry date.",
	},
	{
		ID:          "strict-studio",
		Name:        "Strict studio",
		Description: "A no-refund venue with narrow age bands, for exercising eligibility and refusal paths.",
	},
}

// ListScenarios returns the available scenarios and which one is loaded.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"scenarios": scenarios,
		"current":   h.currentScenario,
	})
}

// LoadScenario wipes the store and loads the named scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx := r.Context()
	if err := h.Store.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset store", err)
		return
	}

	var err error
	switch req.ScenarioID {
	case "club-basics":
		err = h.loadClubBasics(ctx)
	case "term-packages":
		err = h.loadTermPackages(ctx)
	case "strict-studio":
		err = h.loadStrictStudio(ctx)
	default:
		writeError(w, http.StatusBadRequest, "Unknown scenario: "+req.ScenarioID, nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}

	h.currentScenario = req.ScenarioID
	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// ResetData wipes the store.
func (h *Handler) ResetData(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset store", err)
		return
	}
	h.currentScenario = ""
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// =============================================================================
// SCENARIO BUILDERS
// =============================================================================

func (h *Handler) loadClubBasics(ctx context.Context) error {
	now := h.now()
	weekday := func(days int) time.Time {
		return now.AddDate(0, 0, days).Truncate(24 * time.Hour).Add(17 * time.Hour)
	}

	sessions := []booking.Session{
		{ID: "sess-tennis-mon", Name: "Monday Tennis", Price: 3000, StartDate: weekday(21), Capacity: 12, Enrolled: 5, MinAge: 6, MaxAge: 11},
		{ID: "sess-tennis-wed", Name: "Wednesday Tennis", Price: 2500, StartDate: weekday(23), Capacity: 12, Enrolled: 8, MinAge: 6, MaxAge: 11},
		{ID: "sess-football-sat", Name: "Saturday Football", Price: 2000, StartDate: weekday(26), Capacity: 20, Enrolled: 14, MinAge: 5, MaxAge: 9},
		{ID: "sess-swim-sun", Name: "Sunday Swimming", Price: 3500, StartDate: weekday(27), Capacity: 8, Enrolled: 8, MinAge: 4, MaxAge: 12},
	}
	for i := range sessions {
		sessions[i].DayOfWeek = sessions[i].StartDate.Weekday()
		if err := h.Store.SaveSession(ctx, sessions[i]); err != nil {
			return err
		}
	}

	if err := h.seedPolicy(ctx, factory.StandardRefundPolicyJSON("policy-standard", "Standard Refund Policy")); err != nil {
		return err
	}

	for _, ruleJSON := range []string{
		factory.SiblingDiscountJSON("rule-sibling", 10, 10),
		factory.BulkDiscountJSON("rule-bulk", 5, 3, 20),
		factory.EarlyBirdDiscountJSON("rule-early-bird", 500, 30, 30),
	} {
		if err := h.seedRule(ctx, ruleJSON); err != nil {
			return err
		}
	}

	b := booking.Booking{
		ID: "bkg-demo-1", SessionID: "sess-tennis-mon", ChildID: "child-ella",
		ParentID: "parent-hart", Amount: 3000, PaymentStatus: booking.PaymentPaid,
		Status: booking.StatusConfirmed, CreatedAt: now, UpdatedAt: now,
	}
	return h.Store.SaveBooking(ctx, b)
}

func (h *Handler) loadTermPackages(ctx context.Context) error {
	now := h.now()
	termEnd := now.AddDate(0, 3, 0)
	lastTerm := now.AddDate(0, -1, 0)

	fresh, err := blockbooking.Purchase(blockbooking.PurchaseInput{
		ID: "pkg-fresh", ParentID: "parent-hart", ChildID: "child-ella",
		TotalSessions: 10, TotalPaid: 20000, PricePerSession: 2000,
		ExpiresAt: &termEnd, Now: now,
	})
	if err != nil {
		return err
	}
	if _, err := h.Store.SavePackage(ctx, fresh); err != nil {
		return err
	}

	partUsed, err := blockbooking.Purchase(blockbooking.PurchaseInput{
		ID: "pkg-part-used", ParentID: "parent-hart", ChildID: "child-sam",
		TotalSessions: 10, TotalPaid: 20000, PricePerSession: 2000,
		ExpiresAt: &termEnd, Now: now.AddDate(0, -1, 0),
	})
	if err != nil {
		return err
	}
	for i := 0; i < 6; i++ {
		partUsed, err = blockbooking.Deduct(partUsed, blockbooking.UsageRecord{
			ID:          "use-part-" + string(rune('a'+i)),
			SessionDate: now.AddDate(0, 0, -28+7*i),
			CoachID:     "coach-reyes",
			CreatedAt:   now.AddDate(0, 0, -28+7*i),
		})
		if err != nil {
			return err
		}
	}
	if _, err := h.Store.SavePackage(ctx, partUsed); err != nil {
		return err
	}

	expired, err := blockbooking.Purchase(blockbooking.PurchaseInput{
		ID: "pkg-expired", ParentID: "parent-osei", ChildID: "child-kofi",
		TotalSessions: 5, TotalPaid: 12500, PricePerSession: 2500,
		ExpiresAt: &lastTerm, Now: now.AddDate(0, -4, 0),
	})
	if err != nil {
		return err
	}
	expired, err = blockbooking.Deduct(expired, blockbooking.UsageRecord{
		ID: "use-exp-a", SessionDate: now.AddDate(0, -3, 0), CreatedAt: now.AddDate(0, -3, 0),
	})
	if err != nil {
		return err
	}
	if _, err := h.Store.SavePackage(ctx, expired); err != nil {
		return err
	}

	return h.seedPolicy(ctx, factory.StandardRefundPolicyJSON("policy-standard", "Standard Refund Policy"))
}

func (h *Handler) loadStrictStudio(ctx context.Context) error {
	now := h.now()
	sessions := []booking.Session{
		{ID: "sess-ballet-tue", Name: "Tuesday Ballet", Price: money.Amount(4000), StartDate: now.AddDate(0, 0, 10), Capacity: 6, Enrolled: 2, MinAge: 7, MaxAge: 8},
		{ID: "sess-ballet-thu", Name: "Thursday Ballet", Price: money.Amount(4500), StartDate: now.AddDate(0, 0, 12), Capacity: 6, Enrolled: 6, MinAge: 9, MaxAge: 10},
	}
	for i := range sessions {
		sessions[i].DayOfWeek = sessions[i].StartDate.Weekday()
		if err := h.Store.SaveSession(ctx, sessions[i]); err != nil {
			return err
		}
	}
	return h.seedPolicy(ctx, factory.NoRefundPolicyJSON("policy-no-refund", "No Refunds"))
}

func (h *Handler) seedPolicy(ctx context.Context, policyJSON string) error {
	policy, err := h.Factory.ParseRefundPolicy(policyJSON)
	if err != nil {
		return err
	}
	return h.Store.SaveRefundPolicy(ctx, policy)
}

func (h *Handler) seedRule(ctx context.Context, ruleJSON string) error {
	rule, err := h.Factory.ParseDiscountRule(ruleJSON)
	if err != nil {
		return err
	}
	return h.Store.SaveDiscountRule(ctx, rule)
}
