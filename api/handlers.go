/*
handlers.go - HTTP API handlers for the booking engine

PURPOSE:
  Exposes the booking financial lifecycle engine via REST API. Handles
  HTTP request/response, JSON serialization, and delegates to domain
  logic. The engine itself never performs I/O: handlers load entities,
  call the pure operations, and persist the returned next-state.

ENDPOINTS:
  Sessions:
    GET    /api/sessions                 List sessions
    POST   /api/sessions                 Create/update a session
    GET    /api/sessions/{id}            Get a session

  Bookings:
    POST   /api/bookings                 Create a booking
    GET    /api/bookings                 List bookings (?parent_id=)
    GET    /api/bookings/{id}            Get a booking
    POST   /api/bookings/{id}/cancel     Cancel with a refund policy
    POST   /api/bookings/{id}/transfer   Transfer to another session

  Cart:
    POST   /api/cart/price               Price a cart with active discounts

  Refund policies:
    GET/POST /api/policies, GET/PUT/DELETE /api/policies/{id}

  Discount rules:
    GET/POST /api/discount-rules, GET/PUT/DELETE /api/discount-rules/{id}

  Packages:
    POST   /api/packages                 Purchase a block booking
    GET    /api/packages                 List packages (?parent_id=)
    GET    /api/packages/{id}            Get a package (effective status)
    POST   /api/packages/{id}/deduct     Record one session taken
    POST   /api/packages/{id}/refund     Refund sessions or an amount
    POST   /api/packages/{id}/cancel     Admin cancel

  Scenarios:
    GET    /api/scenarios                List demo scenarios
    POST   /api/scenarios/load           Load a demo scenario
    POST   /api/scenarios/reset          Wipe all data

ERROR HANDLING:
  Domain error kinds map to HTTP status:
  - 400: validation, eligibility (the request itself is wrong)
  - 404: not found
  - 409: capacity, over-refund, concurrent modification
  - 500: everything else

CONCURRENCY:
  Package transitions are optimistic: the handler loads, computes, and
  saves with a version check, retrying a bounded number of times when the
  save reports a concurrent modification.

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/courtside/booking-engine/blockbooking"
	"github.com/courtside/booking-engine/booking"
	"github.com/courtside/booking-engine/discount"
	"github.com/courtside/booking-engine/factory"
	"github.com/courtside/booking-engine/money"
	"github.com/courtside/booking-engine/refund"
	"github.com/courtside/booking-engine/transfer"
)

// saveRetries bounds the reload-and-recompute loop for package
// transitions that lose an optimistic save.
const saveRetries = 3

// Store is the persistence surface the handlers need. Both store/sqlite
// and store/mongo satisfy it.
type Store interface {
	SaveSession(ctx context.Context, s booking.Session) error
	GetSession(ctx context.Context, id string) (booking.Session, error)
	ListSessions(ctx context.Context) ([]booking.Session, error)

	SaveBooking(ctx context.Context, b booking.Booking) error
	GetBooking(ctx context.Context, id string) (booking.Booking, error)
	ListBookingsByParent(ctx context.Context, parentID string) ([]booking.Booking, error)

	SaveRefundPolicy(ctx context.Context, p refund.Policy) error
	GetRefundPolicy(ctx context.Context, id string) (refund.Policy, error)
	ListRefundPolicies(ctx context.Context) ([]refund.Policy, error)
	DeleteRefundPolicy(ctx context.Context, id string) error

	SaveDiscountRule(ctx context.Context, r discount.Rule) error
	GetDiscountRule(ctx context.Context, id string) (discount.Rule, error)
	ListDiscountRules(ctx context.Context, activeOnly bool) ([]discount.Rule, error)
	DeleteDiscountRule(ctx context.Context, id string) error

	SavePackage(ctx context.Context, p blockbooking.Package) (blockbooking.Package, error)
	GetPackage(ctx context.Context, id string) (blockbooking.Package, error)
	ListPackagesByParent(ctx context.Context, parentID string) ([]blockbooking.Package, error)

	Reset(ctx context.Context) error
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store   Store
	Factory *factory.RuleFactory

	// Clock is injectable for tests; defaults to time.Now.
	Clock func() time.Time

	currentScenario string
}

// NewHandler creates a new handler with the given store.
func NewHandler(store Store) *Handler {
	return &Handler{
		Store:   store,
		Factory: factory.NewRuleFactory(),
		Clock:   time.Now,
	}
}

func (h *Handler) now() time.Time {
	return h.Clock().UTC()
}

// =============================================================================
// SESSION HANDLERS
// =============================================================================

// ListSessions returns all sessions.
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.Store.ListSessions(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list sessions", err)
		return
	}

	dtos := make([]SessionDTO, len(sessions))
	for i, s := range sessions {
		dtos[i] = toSessionDTO(s)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetSession returns a single session.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.Store.GetSession(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "Failed to get session", err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionDTO(sess))
}

// SaveSession creates or updates a session.
func (h *Handler) SaveSession(w http.ResponseWriter, r *http.Request) {
	var req SaveSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	startDate, err := time.Parse(time.RFC3339, req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start_date (use RFC 3339)", err)
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.Price < 0 {
		writeError(w, http.StatusBadRequest, "Price must not be negative", nil)
		return
	}

	sess := booking.Session{
		ID:        req.ID,
		Name:      req.Name,
		Price:     money.Amount(req.Price),
		StartDate: startDate,
		DayOfWeek: startDate.Weekday(),
		Capacity:  req.Capacity,
		Enrolled:  req.Enrolled,
		MinAge:    req.MinAge,
		MaxAge:    req.MaxAge,
	}
	if err := h.Store.SaveSession(r.Context(), sess); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save session", err)
		return
	}
	writeJSON(w, http.StatusCreated, toSessionDTO(sess))
}

// =============================================================================
// BOOKING HANDLERS
// =============================================================================

// CreateBooking creates a booking for a session. The session must exist
// and have an open place.
func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req CreateBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx := r.Context()
	sess, err := h.Store.GetSession(ctx, req.SessionID)
	if err != nil {
		writeDomainError(w, "Failed to load session", err)
		return
	}
	if sess.IsFull() {
		writeDomainError(w, "Session is full", &booking.CapacityError{
			Resource: "session", ID: sess.ID, Requested: 1,
			Available: sess.Capacity - sess.Enrolled,
		})
		return
	}

	amount := money.Amount(req.Amount)
	if amount == 0 {
		amount = sess.Price
	}
	paymentStatus := booking.PaymentStatus(req.PaymentStatus)
	if paymentStatus == "" {
		paymentStatus = booking.PaymentPaid
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	now := h.now()
	b := booking.Booking{
		ID:            req.ID,
		SessionID:     req.SessionID,
		ChildID:       req.ChildID,
		ParentID:      req.ParentID,
		Amount:        amount,
		PaymentStatus: paymentStatus,
		Status:        booking.StatusConfirmed,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := h.Store.SaveBooking(ctx, b); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save booking", err)
		return
	}

	// Enrollment counting is owned by scheduling; the counter here keeps
	// the demo store self-consistent.
	sess.Enrolled++
	if err := h.Store.SaveSession(ctx, sess); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update session", err)
		return
	}

	writeJSON(w, http.StatusCreated, toBookingDTO(b))
}

// GetBooking returns a single booking.
func (h *Handler) GetBooking(w http.ResponseWriter, r *http.Request) {
	b, err := h.Store.GetBooking(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "Failed to get booking", err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingDTO(b))
}

// ListBookings returns bookings for a parent.
func (h *Handler) ListBookings(w http.ResponseWriter, r *http.Request) {
	parentID := r.URL.Query().Get("parent_id")
	if parentID == "" {
		writeError(w, http.StatusBadRequest, "parent_id query parameter is required", nil)
		return
	}

	bookings, err := h.Store.ListBookingsByParent(r.Context(), parentID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list bookings", err)
		return
	}

	dtos := make([]BookingDTO, len(bookings))
	for i, b := range bookings {
		dtos[i] = toBookingDTO(b)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CancelBooking cancels a booking under a refund policy and reports how
// much the payment gateway should refund.
func (h *Handler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	var req CancelBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx := r.Context()
	b, err := h.Store.GetBooking(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "Failed to load booking", err)
		return
	}
	sess, err := h.Store.GetSession(ctx, b.SessionID)
	if err != nil {
		writeDomainError(w, "Failed to load session", err)
		return
	}
	policy, err := h.Store.GetRefundPolicy(ctx, req.PolicyID)
	if err != nil {
		writeDomainError(w, "Failed to load refund policy", err)
		return
	}

	next, outcome, err := refund.CancelBooking(policy, b, sess.StartDate, h.now())
	if err != nil {
		writeDomainError(w, "Cancellation refused", err)
		return
	}
	if err := h.Store.SaveBooking(ctx, next); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save booking", err)
		return
	}

	writeJSON(w, http.StatusOK, CancelBookingResponse{
		Booking:          toBookingDTO(next),
		RefundPercent:    outcome.RefundPercent.String(),
		RefundAmount:     int64(outcome.RefundAmount),
		DaysUntilSession: outcome.DaysUntilSession,
		Explanation:      outcome.Explanation,
	})
}

// TransferBooking reconciles a move to another session. The booking is
// only rewritten when the action allows an immediate transfer.
func (h *Handler) TransferBooking(w http.ResponseWriter, r *http.Request) {
	var req TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx := r.Context()
	b, err := h.Store.GetBooking(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "Failed to load booking", err)
		return
	}
	current, err := h.Store.GetSession(ctx, b.SessionID)
	if err != nil {
		writeDomainError(w, "Failed to load current session", err)
		return
	}
	target, err := h.Store.GetSession(ctx, req.TargetSessionID)
	if err != nil {
		writeDomainError(w, "Failed to load target session", err)
		return
	}

	res, err := transfer.Reconcile(current, target, b, req.ChildAge, h.now())
	if err != nil {
		writeDomainError(w, "Transfer refused", err)
		return
	}

	if res.Action != transfer.ActionCheckoutRequired {
		if err := h.Store.SaveBooking(ctx, res.Booking); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to save booking", err)
			return
		}
		current.Enrolled--
		target.Enrolled++
		if err := h.Store.SaveSession(ctx, current); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to update session", err)
			return
		}
		if err := h.Store.SaveSession(ctx, target); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to update session", err)
			return
		}
	}

	writeJSON(w, http.StatusOK, toTransferResponse(res))
}

// =============================================================================
// CART PRICING
// =============================================================================

// PriceCart prices a cart of child/session pairs against the active
// discount rules.
func (h *Handler) PriceCart(w http.ResponseWriter, r *http.Request) {
	var req PriceCartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if len(req.Items) == 0 {
		writeError(w, http.StatusBadRequest, "Cart is empty", nil)
		return
	}

	bookedAt := h.now()
	if req.BookedAt != "" {
		t, err := time.Parse(time.RFC3339, req.BookedAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid booked_at (use RFC 3339)", err)
			return
		}
		bookedAt = t
	}

	ctx := r.Context()
	cart := discount.Cart{ParentID: req.ParentID, BookedAt: bookedAt}
	for _, ref := range req.Items {
		sess, err := h.Store.GetSession(ctx, ref.SessionID)
		if err != nil {
			writeDomainError(w, "Failed to load session", err)
			return
		}
		cart.Items = append(cart.Items, discount.Item{
			ChildID:     ref.ChildID,
			SessionID:   sess.ID,
			SessionDate: sess.StartDate,
			BasePrice:   sess.Price,
		})
	}

	rules, err := h.Store.ListDiscountRules(ctx, true)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load discount rules", err)
		return
	}

	priced := discount.Apply(cart, rules)
	resp := PriceCartResponse{Items: []PricedItemDTO{}}
	for _, p := range priced {
		dto := toPricedItemDTO(p)
		resp.Items = append(resp.Items, dto)
		resp.Total += dto.FinalPrice
		resp.TotalDiscount += dto.TotalDiscount
	}
	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// REFUND POLICY HANDLERS
// =============================================================================

// ListPolicies returns all refund policies.
func (h *Handler) ListPolicies(w http.ResponseWriter, r *http.Request) {
	policies, err := h.Store.ListRefundPolicies(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list policies", err)
		return
	}

	dtos := make([]factory.RefundPolicyJSON, len(policies))
	for i, p := range policies {
		dtos[i] = h.Factory.RefundPolicyToJSON(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetPolicy returns a single refund policy.
func (h *Handler) GetPolicy(w http.ResponseWriter, r *http.Request) {
	policy, err := h.Store.GetRefundPolicy(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "Failed to get policy", err)
		return
	}
	writeJSON(w, http.StatusOK, h.Factory.RefundPolicyToJSON(policy))
}

// SavePolicy creates or updates a refund policy from its JSON form.
func (h *Handler) SavePolicy(w http.ResponseWriter, r *http.Request) {
	var pj factory.RefundPolicyJSON
	if err := json.NewDecoder(r.Body).Decode(&pj); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if pj.ID == "" {
		pj.ID = uuid.NewString()
	}

	policy, err := h.Factory.RefundPolicyFromJSON(pj)
	if err != nil {
		writeDomainError(w, "Invalid policy", err)
		return
	}
	if err := h.Store.SaveRefundPolicy(r.Context(), policy); err != nil {
		writeDomainError(w, "Failed to save policy", err)
		return
	}
	writeJSON(w, http.StatusCreated, h.Factory.RefundPolicyToJSON(policy))
}

// DeletePolicy removes a refund policy.
func (h *Handler) DeletePolicy(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteRefundPolicy(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete policy", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "deleted"})
}

// =============================================================================
// DISCOUNT RULE HANDLERS
// =============================================================================

// ListDiscountRules returns discount rules; ?active=true filters to
// active rules only.
func (h *Handler) ListDiscountRules(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"
	rules, err := h.Store.ListDiscountRules(r.Context(), activeOnly)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list discount rules", err)
		return
	}

	dtos := make([]factory.DiscountRuleJSON, len(rules))
	for i, rule := range rules {
		dtos[i] = h.Factory.DiscountRuleToJSON(rule)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetDiscountRule returns a single discount rule.
func (h *Handler) GetDiscountRule(w http.ResponseWriter, r *http.Request) {
	rule, err := h.Store.GetDiscountRule(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "Failed to get discount rule", err)
		return
	}
	writeJSON(w, http.StatusOK, h.Factory.DiscountRuleToJSON(rule))
}

// SaveDiscountRule creates or updates a discount rule from its JSON form.
func (h *Handler) SaveDiscountRule(w http.ResponseWriter, r *http.Request) {
	var rj factory.DiscountRuleJSON
	if err := json.NewDecoder(r.Body).Decode(&rj); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if rj.ID == "" {
		rj.ID = uuid.NewString()
	}

	rule, err := h.Factory.DiscountRuleFromJSON(rj)
	if err != nil {
		writeDomainError(w, "Invalid discount rule", err)
		return
	}
	if err := h.Store.SaveDiscountRule(r.Context(), rule); err != nil {
		writeDomainError(w, "Failed to save discount rule", err)
		return
	}
	writeJSON(w, http.StatusCreated, h.Factory.DiscountRuleToJSON(rule))
}

// DeleteDiscountRule removes a discount rule.
func (h *Handler) DeleteDiscountRule(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteDiscountRule(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete discount rule", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "deleted"})
}

// =============================================================================
// PACKAGE HANDLERS
// =============================================================================

// PurchasePackage buys a block booking.
func (h *Handler) PurchasePackage(w http.ResponseWriter, r *http.Request) {
	var req PurchasePackageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	var expiresAt *time.Time
	if req.ExpiresAt != "" {
		t, err := time.Parse(time.RFC3339, req.ExpiresAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid expires_at (use RFC 3339)", err)
			return
		}
		expiresAt = &t
	}

	now := h.now()
	pkg, err := blockbooking.Purchase(blockbooking.PurchaseInput{
		ID:              req.ID,
		ParentID:        req.ParentID,
		ChildID:         req.ChildID,
		TotalSessions:   req.TotalSessions,
		TotalPaid:       money.Amount(req.TotalPaid),
		PricePerSession: money.Amount(req.PricePerSession),
		ExpiresAt:       expiresAt,
		Now:             now,
	})
	if err != nil {
		writeDomainError(w, "Invalid package", err)
		return
	}

	saved, err := h.Store.SavePackage(r.Context(), pkg)
	if err != nil {
		writeDomainError(w, "Failed to save package", err)
		return
	}
	writeJSON(w, http.StatusCreated, toPackageDTO(saved, now))
}

// GetPackage returns a package with its effective status.
func (h *Handler) GetPackage(w http.ResponseWriter, r *http.Request) {
	pkg, err := h.Store.GetPackage(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "Failed to get package", err)
		return
	}
	writeJSON(w, http.StatusOK, toPackageDTO(pkg, h.now()))
}

// ListPackages returns a parent's packages.
func (h *Handler) ListPackages(w http.ResponseWriter, r *http.Request) {
	parentID := r.URL.Query().Get("parent_id")
	if parentID == "" {
		writeError(w, http.StatusBadRequest, "parent_id query parameter is required", nil)
		return
	}

	packages, err := h.Store.ListPackagesByParent(r.Context(), parentID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list packages", err)
		return
	}

	now := h.now()
	dtos := make([]PackageDTO, len(packages))
	for i, p := range packages {
		dtos[i] = toPackageDTO(p, now)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// DeductPackage records one session taken against a package.
func (h *Handler) DeductPackage(w http.ResponseWriter, r *http.Request) {
	var req DeductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	sessionDate, err := time.Parse(time.RFC3339, req.SessionDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid session_date (use RFC 3339)", err)
		return
	}
	if req.UsageID == "" {
		req.UsageID = uuid.NewString()
	}

	usage := blockbooking.UsageRecord{
		ID:          req.UsageID,
		SessionDate: sessionDate,
		CoachID:     req.CoachID,
		Notes:       req.Notes,
		CreatedAt:   h.now(),
	}

	saved, err := h.savePackageTransition(r.Context(), chi.URLParam(r, "id"),
		func(p blockbooking.Package) (blockbooking.Package, error) {
			return blockbooking.Deduct(p, usage)
		})
	if err != nil {
		writeDomainError(w, "Deduction refused", err)
		return
	}
	writeJSON(w, http.StatusOK, toPackageDTO(saved, h.now()))
}

// RefundPackage refunds sessions or an amount from a package.
func (h *Handler) RefundPackage(w http.ResponseWriter, r *http.Request) {
	var req RefundPackageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var outcome blockbooking.RefundOutcome
	saved, err := h.savePackageTransition(r.Context(), chi.URLParam(r, "id"),
		func(p blockbooking.Package) (blockbooking.Package, error) {
			next, out, err := blockbooking.Refund(p, blockbooking.RefundRequest{
				SessionsToRefund: req.SessionsToRefund,
				RefundAmount:     money.Amount(req.RefundAmount),
				Reason:           req.Reason,
				Now:              h.now(),
			})
			outcome = out
			return next, err
		})
	if err != nil {
		writeDomainError(w, "Refund refused", err)
		return
	}

	writeJSON(w, http.StatusOK, RefundPackageResponse{
		Package:          toPackageDTO(saved, h.now()),
		SessionsRefunded: outcome.SessionsRefunded,
		AmountRefunded:   int64(outcome.AmountRefunded),
	})
}

// CancelPackage is the admin override that terminates a package.
func (h *Handler) CancelPackage(w http.ResponseWriter, r *http.Request) {
	saved, err := h.savePackageTransition(r.Context(), chi.URLParam(r, "id"),
		func(p blockbooking.Package) (blockbooking.Package, error) {
			return blockbooking.Cancel(p, h.now())
		})
	if err != nil {
		writeDomainError(w, "Cancel refused", err)
		return
	}
	writeJSON(w, http.StatusOK, toPackageDTO(saved, h.now()))
}

// savePackageTransition runs a load-compute-save cycle with bounded
// retries on optimistic save conflicts.
func (h *Handler) savePackageTransition(ctx context.Context, id string,
	apply func(blockbooking.Package) (blockbooking.Package, error)) (blockbooking.Package, error) {

	var lastErr error
	for attempt := 0; attempt < saveRetries; attempt++ {
		pkg, err := h.Store.GetPackage(ctx, id)
		if err != nil {
			return blockbooking.Package{}, err
		}
		next, err := apply(pkg)
		if err != nil {
			return blockbooking.Package{}, err
		}
		saved, err := h.Store.SavePackage(ctx, next)
		if err == nil {
			return saved, nil
		}
		if !booking.IsRetryable(err) {
			return blockbooking.Package{}, err
		}
		lastErr = err
	}
	return blockbooking.Package{}, lastErr
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps engine error kinds to HTTP status codes.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	writeError(w, statusFor(err), message, err)
}

func statusFor(err error) int {
	switch {
	case booking.IsNotFound(err):
		return http.StatusNotFound
	case booking.IsRetryable(err):
		return http.StatusConflict
	case isConflict(err):
		return http.StatusConflict
	case booking.IsClientError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func isConflict(err error) bool {
	return errors.Is(err, booking.ErrCapacity) || errors.Is(err, booking.ErrOverRefund)
}
