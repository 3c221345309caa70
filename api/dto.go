/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

TYPES:
  Session:   SessionDTO, SaveSessionRequest
  Booking:   BookingDTO, CreateBookingRequest, CancelBookingRequest,
             CancelBookingResponse, TransferRequest, TransferResponse
  Cart:      PriceCartRequest, PricedItemDTO
  Policy:    factory.RefundPolicyJSON is used directly
  Rules:     factory.DiscountRuleJSON is used directly
  Package:   PackageDTO, PurchasePackageRequest, DeductRequest,
             RefundPackageRequest, RefundPackageResponse

VALIDATION:
  Validation is done in handlers and the domain packages, not in DTOs.
  DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/policy.go: RefundPolicyJSON and DiscountRuleJSON
*/
package api

import (
	"time"

	"github.com/courtside/booking-engine/blockbooking"
	"github.com/courtside/booking-engine/booking"
	"github.com/courtside/booking-engine/discount"
	"github.com/courtside/booking-engine/transfer"
)

// =============================================================================
// SESSION TYPES
// =============================================================================

// SessionDTO represents a session in API responses.
type SessionDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	StartDate string `json:"start_date"`
	DayOfWeek string `json:"day_of_week"`
	Capacity  int    `json:"capacity"`
	Enrolled  int    `json:"enrolled"`
	MinAge    int    `json:"min_age,omitempty"`
	MaxAge    int    `json:"max_age,omitempty"`
}

// SaveSessionRequest is the request to create or update a session.
type SaveSessionRequest struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	StartDate string `json:"start_date"` // RFC 3339
	Capacity  int    `json:"capacity"`
	Enrolled  int    `json:"enrolled"`
	MinAge    int    `json:"min_age"`
	MaxAge    int    `json:"max_age"`
}

func toSessionDTO(s booking.Session) SessionDTO {
	return SessionDTO{
		ID:        s.ID,
		Name:      s.Name,
		Price:     int64(s.Price),
		StartDate: s.StartDate.Format(time.RFC3339),
		DayOfWeek: s.DayOfWeek.String(),
		Capacity:  s.Capacity,
		Enrolled:  s.Enrolled,
		MinAge:    s.MinAge,
		MaxAge:    s.MaxAge,
	}
}

// =============================================================================
// BOOKING TYPES
// =============================================================================

// BookingDTO represents a booking in API responses.
type BookingDTO struct {
	ID              string `json:"id"`
	SessionID       string `json:"session_id"`
	ChildID         string `json:"child_id"`
	ParentID        string `json:"parent_id"`
	Amount          int64  `json:"amount"`
	RefundedAmount  int64  `json:"refunded_amount"`
	PaymentStatus   string `json:"payment_status"`
	Status          string `json:"status"`
	TransferredFrom string `json:"transferred_from,omitempty"`
	CreatedAt       string `json:"created_at,omitempty"`
	UpdatedAt       string `json:"updated_at,omitempty"`
}

// CreateBookingRequest is the request to create a booking. A zero amount
// means "charge the session price".
type CreateBookingRequest struct {
	ID            string `json:"id,omitempty"`
	SessionID     string `json:"session_id"`
	ChildID       string `json:"child_id"`
	ParentID      string `json:"parent_id"`
	Amount        int64  `json:"amount,omitempty"`
	PaymentStatus string `json:"payment_status,omitempty"`
}

// CancelBookingRequest names the policy governing the cancellation.
type CancelBookingRequest struct {
	PolicyID string `json:"policy_id"`
}

// CancelBookingResponse reports the cancellation outcome. RefundAmount is
// what the payment gateway should be instructed to move.
type CancelBookingResponse struct {
	Booking          BookingDTO `json:"booking"`
	RefundPercent    string     `json:"refund_percent"`
	RefundAmount     int64      `json:"refund_amount"`
	DaysUntilSession int        `json:"days_until_session"`
	Explanation      string     `json:"explanation"`
}

// TransferRequest asks to move a booking to another session.
type TransferRequest struct {
	TargetSessionID string `json:"target_session_id"`
	ChildAge        int    `json:"child_age"`
}

// TransferResponse reports the reconciliation outcome. For
// checkout_required the booking is unchanged and PriceDifference is what
// the caller must collect before committing the move.
type TransferResponse struct {
	Action          string     `json:"action"`
	PriceDifference int64      `json:"price_difference"`
	RefundAmount    int64      `json:"refund_amount,omitempty"`
	RefundShortfall int64      `json:"refund_shortfall,omitempty"`
	Booking         BookingDTO `json:"booking"`
}

func toBookingDTO(b booking.Booking) BookingDTO {
	return BookingDTO{
		ID:              b.ID,
		SessionID:       b.SessionID,
		ChildID:         b.ChildID,
		ParentID:        b.ParentID,
		Amount:          int64(b.Amount),
		RefundedAmount:  int64(b.RefundedAmount),
		PaymentStatus:   string(b.PaymentStatus),
		Status:          string(b.Status),
		TransferredFrom: b.TransferredFrom,
		CreatedAt:       b.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       b.UpdatedAt.Format(time.RFC3339),
	}
}

func toTransferResponse(res transfer.Result) TransferResponse {
	return TransferResponse{
		Action:          string(res.Action),
		PriceDifference: int64(res.PriceDifference),
		RefundAmount:    int64(res.RefundAmount),
		RefundShortfall: int64(res.RefundShortfall),
		Booking:         toBookingDTO(res.Booking),
	}
}

// =============================================================================
// CART TYPES
// =============================================================================

// PriceCartRequest prices a cart against the active discount rules.
// Sessions are referenced by id; prices and dates come from the store.
type PriceCartRequest struct {
	ParentID string        `json:"parent_id"`
	BookedAt string        `json:"booked_at,omitempty"` // RFC 3339, defaults to now
	Items    []CartItemRef `json:"items"`
}

// CartItemRef is one child/session pair in a cart.
type CartItemRef struct {
	ChildID   string `json:"child_id"`
	SessionID string `json:"session_id"`
}

// AppliedDiscountDTO is one discount taken off an item.
type AppliedDiscountDTO struct {
	RuleID   string `json:"rule_id"`
	RuleName string `json:"rule_name"`
	Type     string `json:"type"`
	Amount   int64  `json:"amount"`
}

// PricedItemDTO is the priced result for one cart item.
type PricedItemDTO struct {
	ChildID       string               `json:"child_id"`
	SessionID     string               `json:"session_id"`
	BasePrice     int64                `json:"base_price"`
	FinalPrice    int64                `json:"final_price"`
	TotalDiscount int64                `json:"total_discount"`
	Discounts     []AppliedDiscountDTO `json:"discounts"`
}

// PriceCartResponse wraps the priced items with cart totals.
type PriceCartResponse struct {
	Items         []PricedItemDTO `json:"items"`
	Total         int64           `json:"total"`
	TotalDiscount int64           `json:"total_discount"`
}

func toPricedItemDTO(p discount.PricedItem) PricedItemDTO {
	dto := PricedItemDTO{
		ChildID:       p.Item.ChildID,
		SessionID:     p.Item.SessionID,
		BasePrice:     int64(p.Item.BasePrice),
		FinalPrice:    int64(p.FinalPrice),
		TotalDiscount: int64(p.TotalDiscount()),
		Discounts:     []AppliedDiscountDTO{},
	}
	for _, a := range p.AppliedDiscounts {
		dto.Discounts = append(dto.Discounts, AppliedDiscountDTO{
			RuleID:   a.RuleID,
			RuleName: a.RuleName,
			Type:     string(a.Type),
			Amount:   int64(a.Amount),
		})
	}
	return dto
}

// =============================================================================
// PACKAGE TYPES
// =============================================================================

// PackageDTO represents a block booking in API responses. Status is the
// effective status, with expiry derived at read time.
type PackageDTO struct {
	ID                string           `json:"id"`
	ParentID          string           `json:"parent_id"`
	ChildID           string           `json:"child_id"`
	TotalSessions     int              `json:"total_sessions"`
	TotalPaid         int64            `json:"total_paid"`
	PricePerSession   int64            `json:"price_per_session"`
	DeductedSessions  int              `json:"deducted_sessions"`
	RefundedSessions  int              `json:"refunded_sessions"`
	RefundedAmount    int64            `json:"refunded_amount"`
	RemainingSessions int              `json:"remaining_sessions"`
	Status            string           `json:"status"`
	ExpiresAt         string           `json:"expires_at,omitempty"`
	Usage             []UsageRecordDTO `json:"usage"`
}

// UsageRecordDTO is one deduction in a package's audit trail.
type UsageRecordDTO struct {
	ID          string `json:"id"`
	SessionDate string `json:"session_date"`
	CoachID     string `json:"coach_id,omitempty"`
	Notes       string `json:"notes,omitempty"`
	CreatedAt   string `json:"created_at"`
}

// PurchasePackageRequest is the request to buy a block booking.
type PurchasePackageRequest struct {
	ID              string `json:"id,omitempty"`
	ParentID        string `json:"parent_id"`
	ChildID         string `json:"child_id"`
	TotalSessions   int    `json:"total_sessions"`
	TotalPaid       int64  `json:"total_paid"`
	PricePerSession int64  `json:"price_per_session,omitempty"`
	ExpiresAt       string `json:"expires_at,omitempty"` // RFC 3339
}

// DeductRequest records one session taken against a package.
type DeductRequest struct {
	UsageID     string `json:"usage_id,omitempty"`
	SessionDate string `json:"session_date"` // RFC 3339
	CoachID     string `json:"coach_id,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

// RefundPackageRequest refunds sessions from a package. Exactly one of
// sessions_to_refund or refund_amount must be set.
type RefundPackageRequest struct {
	SessionsToRefund int    `json:"sessions_to_refund,omitempty"`
	RefundAmount     int64  `json:"refund_amount,omitempty"`
	Reason           string `json:"reason,omitempty"`
}

// RefundPackageResponse reports what actually moved.
type RefundPackageResponse struct {
	Package          PackageDTO `json:"package"`
	SessionsRefunded int        `json:"sessions_refunded"`
	AmountRefunded   int64      `json:"amount_refunded"`
}

func toPackageDTO(p blockbooking.Package, now time.Time) PackageDTO {
	dto := PackageDTO{
		ID:                p.ID,
		ParentID:          p.ParentID,
		ChildID:           p.ChildID,
		TotalSessions:     p.TotalSessions,
		TotalPaid:         int64(p.TotalPaid),
		PricePerSession:   int64(p.PricePerSession),
		DeductedSessions:  p.DeductedSessions,
		RefundedSessions:  p.RefundedSessions,
		RefundedAmount:    int64(p.RefundedAmount),
		RemainingSessions: p.Remaining(),
		Status:            string(blockbooking.EffectiveStatus(p, now)),
		Usage:             []UsageRecordDTO{},
	}
	if p.ExpiresAt != nil {
		dto.ExpiresAt = p.ExpiresAt.Format(time.RFC3339)
	}
	for _, u := range p.Usage {
		dto.Usage = append(dto.Usage, UsageRecordDTO{
			ID:          u.ID,
			SessionDate: u.SessionDate.Format(time.RFC3339),
			CoachID:     u.CoachID,
			Notes:       u.Notes,
			CreatedAt:   u.CreatedAt.Format(time.RFC3339),
		})
	}
	return dto
}

// =============================================================================
// ERROR & SCENARIO TYPES
// =============================================================================

// ErrorResponse is the standard error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// ScenarioDTO describes a loadable demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest selects a demo scenario.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}
