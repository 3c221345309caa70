/*
Package mongo provides a MongoDB-backed implementation of the storage layer.

PURPOSE:
  The document-store counterpart of store/sqlite, offering the same
  surface: sessions, bookings, refund policies, discount rules, and block
  booking packages. Clubs running a shared document database use this;
  single-node deployments use SQLite.

COLLECTIONS:
  sessions, bookings, refund_policies, discount_rules, block_bookings

  Packages embed their usage history in the document, so a package and
  its audit trail load and save atomically at the document level.

OPTIMISTIC LOCKING:
  SavePackage replaces the document only when the stored version matches
  the version the caller loaded, using a filtered ReplaceOne. A miss
  returns booking.ErrConcurrentModification and the caller reloads.

USAGE:
  store, err := mongo.New(ctx, "mongodb://localhost:27017", "courtside")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close(ctx)

SEE ALSO:
  - store/sqlite: the relational implementation of the same surface
  - api: the Store interface both implementations satisfy
*/
package mongo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/courtside/booking-engine/blockbooking"
	"github.com/courtside/booking-engine/booking"
	"github.com/courtside/booking-engine/discount"
	"github.com/courtside/booking-engine/factory"
	"github.com/courtside/booking-engine/money"
	"github.com/courtside/booking-engine/refund"
)

// Store implements the storage surface using MongoDB.
type Store struct {
	client  *mongo.Client
	db      *mongo.Database
	factory *factory.RuleFactory
}

// New connects to MongoDB and prepares the collections.
func New(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	s := &Store{
		client:  client,
		db:      client.Database(database),
		factory: factory.NewRuleFactory(),
	}
	if err := s.ensureIndexes(ctx); err != nil {
		client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

// Close disconnects from MongoDB.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	_, err := s.db.Collection("bookings").Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.M{"parent_id": 1}},
		{Keys: bson.M{"session_id": 1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create booking indexes: %w", err)
	}
	_, err = s.db.Collection("block_bookings").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.M{"parent_id": 1},
	})
	if err != nil {
		return fmt.Errorf("failed to create package index: %w", err)
	}
	return nil
}

// =============================================================================
// DOCUMENT TYPES
// =============================================================================

type sessionDoc struct {
	ID        string    `bson:"_id"`
	Name      string    `bson:"name"`
	Price     int64     `bson:"price"`
	StartDate time.Time `bson:"start_date"`
	DayOfWeek int       `bson:"day_of_week"`
	Capacity  int       `bson:"capacity"`
	Enrolled  int       `bson:"enrolled"`
	MinAge    int       `bson:"min_age"`
	MaxAge    int       `bson:"max_age"`
}

type bookingDoc struct {
	ID              string    `bson:"_id"`
	SessionID       string    `bson:"session_id"`
	ChildID         string    `bson:"child_id"`
	ParentID        string    `bson:"parent_id"`
	Amount          int64     `bson:"amount"`
	RefundedAmount  int64     `bson:"refunded_amount"`
	PaymentStatus   string    `bson:"payment_status"`
	Status          string    `bson:"status"`
	TransferredFrom string    `bson:"transferred_from,omitempty"`
	CreatedAt       time.Time `bson:"created_at"`
	UpdatedAt       time.Time `bson:"updated_at"`
}

type policyDoc struct {
	ID         string    `bson:"_id"`
	Name       string    `bson:"name"`
	ConfigJSON string    `bson:"config_json"`
	UpdatedAt  time.Time `bson:"updated_at"`
}

type ruleDoc struct {
	ID         string    `bson:"_id"`
	Name       string    `bson:"name"`
	Priority   int       `bson:"priority"`
	IsActive   bool      `bson:"is_active"`
	ConfigJSON string    `bson:"config_json"`
	UpdatedAt  time.Time `bson:"updated_at"`
}

type usageDoc struct {
	ID          string    `bson:"id"`
	SessionDate time.Time `bson:"session_date"`
	CoachID     string    `bson:"coach_id,omitempty"`
	Notes       string    `bson:"notes,omitempty"`
	CreatedAt   time.Time `bson:"created_at"`
}

type packageDoc struct {
	ID               string     `bson:"_id"`
	ParentID         string     `bson:"parent_id"`
	ChildID          string     `bson:"child_id"`
	TotalSessions    int        `bson:"total_sessions"`
	TotalPaid        int64      `bson:"total_paid"`
	PricePerSession  int64      `bson:"price_per_session"`
	DeductedSessions int        `bson:"deducted_sessions"`
	RefundedSessions int        `bson:"refunded_sessions"`
	RefundedAmount   int64      `bson:"refunded_amount"`
	Status           string     `bson:"status"`
	ExpiresAt        *time.Time `bson:"expires_at,omitempty"`
	Usage            []usageDoc `bson:"usage"`
	Version          int        `bson:"version"`
	CreatedAt        time.Time  `bson:"created_at"`
	UpdatedAt        time.Time  `bson:"updated_at"`
}

// =============================================================================
// SESSION STORE
// =============================================================================

// SaveSession inserts or updates a session.
func (s *Store) SaveSession(ctx context.Context, sess booking.Session) error {
	doc := sessionDoc{
		ID:        sess.ID,
		Name:      sess.Name,
		Price:     int64(sess.Price),
		StartDate: sess.StartDate,
		DayOfWeek: int(sess.DayOfWeek),
		Capacity:  sess.Capacity,
		Enrolled:  sess.Enrolled,
		MinAge:    sess.MinAge,
		MaxAge:    sess.MaxAge,
	}
	_, err := s.db.Collection("sessions").ReplaceOne(ctx,
		bson.M{"_id": sess.ID}, doc, options.Replace().SetUpsert(true))
	return err
}

// GetSession retrieves a session by ID.
func (s *Store) GetSession(ctx context.Context, id string) (booking.Session, error) {
	var doc sessionDoc
	err := s.db.Collection("sessions").FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return booking.Session{}, fmt.Errorf("session %s: %w", id, booking.ErrNotFound)
	}
	if err != nil {
		return booking.Session{}, err
	}
	return doc.toSession(), nil
}

// ListSessions returns all sessions ordered by start date.
func (s *Store) ListSessions(ctx context.Context) ([]booking.Session, error) {
	cur, err := s.db.Collection("sessions").Find(ctx, bson.M{},
		options.Find().SetSort(bson.M{"start_date": 1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var sessions []booking.Session
	for cur.Next(ctx) {
		var doc sessionDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		sessions = append(sessions, doc.toSession())
	}
	return sessions, cur.Err()
}

func (d sessionDoc) toSession() booking.Session {
	return booking.Session{
		ID:        d.ID,
		Name:      d.Name,
		Price:     money.Amount(d.Price),
		StartDate: d.StartDate,
		DayOfWeek: time.Weekday(d.DayOfWeek),
		Capacity:  d.Capacity,
		Enrolled:  d.Enrolled,
		MinAge:    d.MinAge,
		MaxAge:    d.MaxAge,
	}
}

// =============================================================================
// BOOKING STORE
// =============================================================================

// SaveBooking inserts or updates a booking.
func (s *Store) SaveBooking(ctx context.Context, b booking.Booking) error {
	doc := bookingDoc{
		ID:              b.ID,
		SessionID:       b.SessionID,
		ChildID:         b.ChildID,
		ParentID:        b.ParentID,
		Amount:          int64(b.Amount),
		RefundedAmount:  int64(b.RefundedAmount),
		PaymentStatus:   string(b.PaymentStatus),
		Status:          string(b.Status),
		TransferredFrom: b.TransferredFrom,
		CreatedAt:       b.CreatedAt,
		UpdatedAt:       b.UpdatedAt,
	}
	_, err := s.db.Collection("bookings").ReplaceOne(ctx,
		bson.M{"_id": b.ID}, doc, options.Replace().SetUpsert(true))
	return err
}

// GetBooking retrieves a booking by ID.
func (s *Store) GetBooking(ctx context.Context, id string) (booking.Booking, error) {
	var doc bookingDoc
	err := s.db.Collection("bookings").FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return booking.Booking{}, fmt.Errorf("booking %s: %w", id, booking.ErrNotFound)
	}
	if err != nil {
		return booking.Booking{}, err
	}
	return doc.toBooking(), nil
}

// ListBookingsByParent returns a parent's bookings, newest first.
func (s *Store) ListBookingsByParent(ctx context.Context, parentID string) ([]booking.Booking, error) {
	cur, err := s.db.Collection("bookings").Find(ctx,
		bson.M{"parent_id": parentID},
		options.Find().SetSort(bson.M{"created_at": -1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var bookings []booking.Booking
	for cur.Next(ctx) {
		var doc bookingDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		bookings = append(bookings, doc.toBooking())
	}
	return bookings, cur.Err()
}

func (d bookingDoc) toBooking() booking.Booking {
	return booking.Booking{
		ID:              d.ID,
		SessionID:       d.SessionID,
		ChildID:         d.ChildID,
		ParentID:        d.ParentID,
		Amount:          money.Amount(d.Amount),
		RefundedAmount:  money.Amount(d.RefundedAmount),
		PaymentStatus:   booking.PaymentStatus(d.PaymentStatus),
		Status:          booking.Status(d.Status),
		TransferredFrom: d.TransferredFrom,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
}

// =============================================================================
// REFUND POLICY STORE
// =============================================================================

// SaveRefundPolicy validates and saves a refund policy.
func (s *Store) SaveRefundPolicy(ctx context.Context, p refund.Policy) error {
	if err := p.Validate(); err != nil {
		return err
	}

	config, err := json.Marshal(s.factory.RefundPolicyToJSON(p))
	if err != nil {
		return fmt.Errorf("failed to encode refund policy: %w", err)
	}

	doc := policyDoc{ID: p.ID, Name: p.Name, ConfigJSON: string(config), UpdatedAt: time.Now().UTC()}
	_, err = s.db.Collection("refund_policies").ReplaceOne(ctx,
		bson.M{"_id": p.ID}, doc, options.Replace().SetUpsert(true))
	return err
}

// GetRefundPolicy retrieves a refund policy by ID.
func (s *Store) GetRefundPolicy(ctx context.Context, id string) (refund.Policy, error) {
	var doc policyDoc
	err := s.db.Collection("refund_policies").FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return refund.Policy{}, fmt.Errorf("refund policy %s: %w", id, booking.ErrNotFound)
	}
	if err != nil {
		return refund.Policy{}, err
	}
	return s.factory.ParseRefundPolicy(doc.ConfigJSON)
}

// ListRefundPolicies returns all refund policies.
func (s *Store) ListRefundPolicies(ctx context.Context) ([]refund.Policy, error) {
	cur, err := s.db.Collection("refund_policies").Find(ctx, bson.M{},
		options.Find().SetSort(bson.M{"name": 1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var policies []refund.Policy
	for cur.Next(ctx) {
		var doc policyDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		p, err := s.factory.ParseRefundPolicy(doc.ConfigJSON)
		if err != nil {
			return nil, err
		}
		policies = append(policies, p)
	}
	return policies, cur.Err()
}

// DeleteRefundPolicy removes a refund policy.
func (s *Store) DeleteRefundPolicy(ctx context.Context, id string) error {
	_, err := s.db.Collection("refund_policies").DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// =============================================================================
// DISCOUNT RULE STORE
// =============================================================================

// SaveDiscountRule validates and saves a discount rule.
func (s *Store) SaveDiscountRule(ctx context.Context, r discount.Rule) error {
	if err := r.Validate(); err != nil {
		return err
	}

	config, err := json.Marshal(s.factory.DiscountRuleToJSON(r))
	if err != nil {
		return fmt.Errorf("failed to encode discount rule: %w", err)
	}

	doc := ruleDoc{
		ID: r.ID, Name: r.Name, Priority: r.Priority, IsActive: r.IsActive,
		ConfigJSON: string(config), UpdatedAt: time.Now().UTC(),
	}
	_, err = s.db.Collection("discount_rules").ReplaceOne(ctx,
		bson.M{"_id": r.ID}, doc, options.Replace().SetUpsert(true))
	return err
}

// GetDiscountRule retrieves a discount rule by ID.
func (s *Store) GetDiscountRule(ctx context.Context, id string) (discount.Rule, error) {
	var doc ruleDoc
	err := s.db.Collection("discount_rules").FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return discount.Rule{}, fmt.Errorf("discount rule %s: %w", id, booking.ErrNotFound)
	}
	if err != nil {
		return discount.Rule{}, err
	}
	return s.factory.ParseDiscountRule(doc.ConfigJSON)
}

// ListDiscountRules returns discount rules, optionally only active ones.
func (s *Store) ListDiscountRules(ctx context.Context, activeOnly bool) ([]discount.Rule, error) {
	filter := bson.M{}
	if activeOnly {
		filter = bson.M{"is_active": true}
	}

	cur, err := s.db.Collection("discount_rules").Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "priority", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var rules []discount.Rule
	for cur.Next(ctx) {
		var doc ruleDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		r, err := s.factory.ParseDiscountRule(doc.ConfigJSON)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, cur.Err()
}

// DeleteDiscountRule removes a discount rule.
func (s *Store) DeleteDiscountRule(ctx context.Context, id string) error {
	_, err := s.db.Collection("discount_rules").DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// =============================================================================
// BLOCK BOOKING STORE
// =============================================================================

// SavePackage persists a package transition with a version check, returning
// the stored state. Version 0 inserts; otherwise the replace is filtered on
// the loaded version and a miss returns booking.ErrConcurrentModification.
func (s *Store) SavePackage(ctx context.Context, p blockbooking.Package) (blockbooking.Package, error) {
	coll := s.db.Collection("block_bookings")

	if p.Version == 0 {
		p.Version = 1
		_, err := coll.InsertOne(ctx, toPackageDoc(p))
		if mongo.IsDuplicateKeyError(err) {
			return blockbooking.Package{}, fmt.Errorf("package %s: %w", p.ID, booking.ErrConcurrentModification)
		}
		if err != nil {
			return blockbooking.Package{}, err
		}
		return p, nil
	}

	loaded := p.Version
	p.Version++
	res, err := coll.ReplaceOne(ctx,
		bson.M{"_id": p.ID, "version": loaded}, toPackageDoc(p))
	if err != nil {
		return blockbooking.Package{}, err
	}
	if res.MatchedCount == 0 {
		return blockbooking.Package{}, fmt.Errorf("package %s: %w", p.ID, booking.ErrConcurrentModification)
	}
	return p, nil
}

// GetPackage retrieves a package and its usage history.
func (s *Store) GetPackage(ctx context.Context, id string) (blockbooking.Package, error) {
	var doc packageDoc
	err := s.db.Collection("block_bookings").FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return blockbooking.Package{}, fmt.Errorf("package %s: %w", id, booking.ErrNotFound)
	}
	if err != nil {
		return blockbooking.Package{}, err
	}
	return doc.toPackage(), nil
}

// ListPackagesByParent returns a parent's packages, newest first.
func (s *Store) ListPackagesByParent(ctx context.Context, parentID string) ([]blockbooking.Package, error) {
	cur, err := s.db.Collection("block_bookings").Find(ctx,
		bson.M{"parent_id": parentID},
		options.Find().SetSort(bson.M{"created_at": -1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var packages []blockbooking.Package
	for cur.Next(ctx) {
		var doc packageDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		packages = append(packages, doc.toPackage())
	}
	return packages, cur.Err()
}

func toPackageDoc(p blockbooking.Package) packageDoc {
	doc := packageDoc{
		ID:               p.ID,
		ParentID:         p.ParentID,
		ChildID:          p.ChildID,
		TotalSessions:    p.TotalSessions,
		TotalPaid:        int64(p.TotalPaid),
		PricePerSession:  int64(p.PricePerSession),
		DeductedSessions: p.DeductedSessions,
		RefundedSessions: p.RefundedSessions,
		RefundedAmount:   int64(p.RefundedAmount),
		Status:           string(p.Status),
		ExpiresAt:        p.ExpiresAt,
		Version:          p.Version,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
	for _, u := range p.Usage {
		doc.Usage = append(doc.Usage, usageDoc{
			ID:          u.ID,
			SessionDate: u.SessionDate,
			CoachID:     u.CoachID,
			Notes:       u.Notes,
			CreatedAt:   u.CreatedAt,
		})
	}
	return doc
}

func (d packageDoc) toPackage() blockbooking.Package {
	p := blockbooking.Package{
		ID:               d.ID,
		ParentID:         d.ParentID,
		ChildID:          d.ChildID,
		TotalSessions:    d.TotalSessions,
		TotalPaid:        money.Amount(d.TotalPaid),
		PricePerSession:  money.Amount(d.PricePerSession),
		DeductedSessions: d.DeductedSessions,
		RefundedSessions: d.RefundedSessions,
		RefundedAmount:   money.Amount(d.RefundedAmount),
		Status:           blockbooking.Status(d.Status),
		ExpiresAt:        d.ExpiresAt,
		Version:          d.Version,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
	}
	for _, u := range d.Usage {
		p.Usage = append(p.Usage, blockbooking.UsageRecord{
			ID:          u.ID,
			SessionDate: u.SessionDate,
			CoachID:     u.CoachID,
			Notes:       u.Notes,
			CreatedAt:   u.CreatedAt,
		})
	}
	return p
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset drops all collections (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	for _, name := range []string{"sessions", "bookings", "refund_policies", "discount_rules", "block_bookings"} {
		if err := s.db.Collection(name).Drop(ctx); err != nil {
			return err
		}
	}
	return nil
}
