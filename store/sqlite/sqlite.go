/*
Package sqlite provides a SQLite-backed implementation of the storage layer.

PURPOSE:
  Persists sessions, bookings, refund policies, discount rules, and block
  booking packages. In production the same patterns apply to PostgreSQL -
  only minor SQL dialect differences.

KEY TABLES:
  sessions:        Bookable coaching slots
  bookings:        Reservations with payment/refund state
  refund_policies: Tiered cancellation policies (config as JSON)
  discount_rules:  Staff-managed discount rules (config as JSON)
  block_bookings:  Prepaid packages, versioned for optimistic locking
  usage_records:   Append-only audit trail of package deductions

OPTIMISTIC LOCKING:
  The engine computes package transitions value-in/value-out; the store is
  where concurrent writers are detected. SavePackage only updates a row
  whose version matches the version the caller loaded. A mismatched
  version returns booking.ErrConcurrentModification and the caller
  reloads and recomputes.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/courtside.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - store/mongo: the document-store implementation of the same surface
  - api: the Store interface both implementations satisfy
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/courtside/booking-engine/blockbooking"
	"github.com/courtside/booking-engine/booking"
	"github.com/courtside/booking-engine/discount"
	"github.com/courtside/booking-engine/factory"
	"github.com/courtside/booking-engine/money"
	"github.com/courtside/booking-engine/refund"
)

// Store implements the storage surface using SQLite.
type Store struct {
	db      *sql.DB
	mu      sync.RWMutex
	factory *factory.RuleFactory
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db, factory: factory.NewRuleFactory()}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Sessions (bookable coaching slots)
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		price INTEGER NOT NULL,
		start_date TEXT NOT NULL,
		day_of_week INTEGER NOT NULL,
		capacity INTEGER NOT NULL,
		enrolled INTEGER NOT NULL DEFAULT 0,
		min_age INTEGER NOT NULL DEFAULT 0,
		max_age INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_start_date
		ON sessions(start_date);

	-- Bookings (never deleted; cancellation is a status change)
	CREATE TABLE IF NOT EXISTS bookings (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		child_id TEXT NOT NULL,
		parent_id TEXT NOT NULL,
		amount INTEGER NOT NULL,
		refunded_amount INTEGER NOT NULL DEFAULT 0,
		payment_status TEXT NOT NULL,
		status TEXT NOT NULL,
		transferred_from TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_bookings_session
		ON bookings(session_id);
	CREATE INDEX IF NOT EXISTS idx_bookings_parent
		ON bookings(parent_id);

	-- Refund Policies (tier config as JSON)
	CREATE TABLE IF NOT EXISTS refund_policies (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		config_json TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Discount Rules (rule config as JSON; hot columns broken out)
	CREATE TABLE IF NOT EXISTS discount_rules (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		priority INTEGER NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		config_json TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_discount_rules_active
		ON discount_rules(is_active, priority);

	-- Block Bookings (versioned for optimistic locking)
	CREATE TABLE IF NOT EXISTS block_bookings (
		id TEXT PRIMARY KEY,
		parent_id TEXT NOT NULL,
		child_id TEXT NOT NULL,
		total_sessions INTEGER NOT NULL,
		total_paid INTEGER NOT NULL,
		price_per_session INTEGER NOT NULL DEFAULT 0,
		deducted_sessions INTEGER NOT NULL DEFAULT 0,
		refunded_sessions INTEGER NOT NULL DEFAULT 0,
		refunded_amount INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		expires_at TEXT,
		version INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_block_bookings_parent
		ON block_bookings(parent_id);

	-- Usage Records (append-only; the audit trail is never rewritten)
	CREATE TABLE IF NOT EXISTS usage_records (
		id TEXT PRIMARY KEY,
		package_id TEXT NOT NULL,
		session_date TEXT NOT NULL,
		coach_id TEXT,
		notes TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_usage_records_package
		ON usage_records(package_id, created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// SESSION STORE
// =============================================================================

// SaveSession inserts or updates a session.
func (s *Store) SaveSession(ctx context.Context, sess booking.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO sessions (id, name, price, start_date, day_of_week, capacity, enrolled, min_age, max_age)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			price = excluded.price,
			start_date = excluded.start_date,
			day_of_week = excluded.day_of_week,
			capacity = excluded.capacity,
			enrolled = excluded.enrolled,
			min_age = excluded.min_age,
			max_age = excluded.max_age
	`

	_, err := s.db.ExecContext(ctx, query,
		sess.ID, sess.Name, int64(sess.Price),
		sess.StartDate.Format(time.RFC3339),
		int(sess.DayOfWeek), sess.Capacity, sess.Enrolled, sess.MinAge, sess.MaxAge,
	)
	return err
}

// GetSession retrieves a session by ID.
func (s *Store) GetSession(ctx context.Context, id string) (booking.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sess booking.Session
	var price int64
	var startDate string
	var dayOfWeek int

	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, price, start_date, day_of_week, capacity, enrolled, min_age, max_age FROM sessions WHERE id = ?",
		id,
	).Scan(&sess.ID, &sess.Name, &price, &startDate, &dayOfWeek,
		&sess.Capacity, &sess.Enrolled, &sess.MinAge, &sess.MaxAge)

	if err == sql.ErrNoRows {
		return booking.Session{}, fmt.Errorf("session %s: %w", id, booking.ErrNotFound)
	}
	if err != nil {
		return booking.Session{}, err
	}

	sess.Price = money.Amount(price)
	sess.StartDate, _ = time.Parse(time.RFC3339, startDate)
	sess.DayOfWeek = time.Weekday(dayOfWeek)
	return sess, nil
}

// ListSessions returns all sessions ordered by start date.
func (s *Store) ListSessions(ctx context.Context) ([]booking.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, price, start_date, day_of_week, capacity, enrolled, min_age, max_age FROM sessions ORDER BY start_date",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []booking.Session
	for rows.Next() {
		var sess booking.Session
		var price int64
		var startDate string
		var dayOfWeek int
		if err := rows.Scan(&sess.ID, &sess.Name, &price, &startDate, &dayOfWeek,
			&sess.Capacity, &sess.Enrolled, &sess.MinAge, &sess.MaxAge); err != nil {
			return nil, err
		}
		sess.Price = money.Amount(price)
		sess.StartDate, _ = time.Parse(time.RFC3339, startDate)
		sess.DayOfWeek = time.Weekday(dayOfWeek)
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// =============================================================================
// BOOKING STORE
// =============================================================================

// SaveBooking inserts or updates a booking.
func (s *Store) SaveBooking(ctx context.Context, b booking.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO bookings
		(id, session_id, child_id, parent_id, amount, refunded_amount, payment_status, status, transferred_from, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			session_id = excluded.session_id,
			refunded_amount = excluded.refunded_amount,
			payment_status = excluded.payment_status,
			status = excluded.status,
			transferred_from = excluded.transferred_from,
			updated_at = excluded.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		b.ID, b.SessionID, b.ChildID, b.ParentID,
		int64(b.Amount), int64(b.RefundedAmount),
		string(b.PaymentStatus), string(b.Status),
		nullString(b.TransferredFrom),
		b.CreatedAt.Format(time.RFC3339),
		b.UpdatedAt.Format(time.RFC3339),
	)
	return err
}

// GetBooking retrieves a booking by ID.
func (s *Store) GetBooking(ctx context.Context, id string) (booking.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT id, session_id, child_id, parent_id, amount, refunded_amount,
		        payment_status, status, transferred_from, created_at, updated_at
		 FROM bookings WHERE id = ?`, id)

	b, err := scanBooking(row)
	if err == sql.ErrNoRows {
		return booking.Booking{}, fmt.Errorf("booking %s: %w", id, booking.ErrNotFound)
	}
	return b, err
}

// ListBookingsByParent returns a parent's bookings, newest first.
func (s *Store) ListBookingsByParent(ctx context.Context, parentID string) ([]booking.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, child_id, parent_id, amount, refunded_amount,
		        payment_status, status, transferred_from, created_at, updated_at
		 FROM bookings WHERE parent_id = ? ORDER BY created_at DESC`, parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []booking.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (booking.Booking, error) {
	var b booking.Booking
	var amount, refunded int64
	var paymentStatus, status, createdAt, updatedAt string
	var transferredFrom sql.NullString

	err := row.Scan(&b.ID, &b.SessionID, &b.ChildID, &b.ParentID,
		&amount, &refunded, &paymentStatus, &status, &transferredFrom,
		&createdAt, &updatedAt)
	if err != nil {
		return b, err
	}

	b.Amount = money.Amount(amount)
	b.RefundedAmount = money.Amount(refunded)
	b.PaymentStatus = booking.PaymentStatus(paymentStatus)
	b.Status = booking.Status(status)
	b.TransferredFrom = transferredFrom.String
	b.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	b.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return b, nil
}

// =============================================================================
// REFUND POLICY STORE
// =============================================================================

// SaveRefundPolicy validates and saves a refund policy.
func (s *Store) SaveRefundPolicy(ctx context.Context, p refund.Policy) error {
	if err := p.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	config, err := json.Marshal(s.factory.RefundPolicyToJSON(p))
	if err != nil {
		return fmt.Errorf("failed to encode refund policy: %w", err)
	}

	query := `
		INSERT INTO refund_policies (id, name, config_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			config_json = excluded.config_json,
			updated_at = excluded.updated_at
	`

	now := time.Now().UTC().Format(time.RFC3339)
	_, err = s.db.ExecContext(ctx, query, p.ID, p.Name, string(config), now, now)
	return err
}

// GetRefundPolicy retrieves a refund policy by ID.
func (s *Store) GetRefundPolicy(ctx context.Context, id string) (refund.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var config string
	err := s.db.QueryRowContext(ctx,
		"SELECT config_json FROM refund_policies WHERE id = ?", id,
	).Scan(&config)

	if err == sql.ErrNoRows {
		return refund.Policy{}, fmt.Errorf("refund policy %s: %w", id, booking.ErrNotFound)
	}
	if err != nil {
		return refund.Policy{}, err
	}

	return s.factory.ParseRefundPolicy(config)
}

// ListRefundPolicies returns all refund policies.
func (s *Store) ListRefundPolicies(ctx context.Context) ([]refund.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT config_json FROM refund_policies ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var policies []refund.Policy
	for rows.Next() {
		var config string
		if err := rows.Scan(&config); err != nil {
			return nil, err
		}
		p, err := s.factory.ParseRefundPolicy(config)
		if err != nil {
			return nil, err
		}
		policies = append(policies, p)
	}
	return policies, rows.Err()
}

// DeleteRefundPolicy removes a refund policy.
func (s *Store) DeleteRefundPolicy(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM refund_policies WHERE id = ?", id)
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

	s.mu.Lock()
	defer s.mu.Unlock()

	config, err := json.Marshal(s.factory.DiscountRuleToJSON(r))
	if err != nil {
		return fmt.Errorf("failed to encode discount rule: %w", err)
	}

	query := `
		INSERT INTO discount_rules (id, name, priority, is_active, config_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			priority = excluded.priority,
			is_active = excluded.is_active,
			config_json = excluded.config_json,
			updated_at = excluded.updated_at
	`

	now := time.Now().UTC().Format(time.RFC3339)
	_, err = s.db.ExecContext(ctx, query, r.ID, r.Name, r.Priority, r.IsActive, string(config), now, now)
	return err
}

// GetDiscountRule retrieves a discount rule by ID.
func (s *Store) GetDiscountRule(ctx context.Context, id string) (discount.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var config string
	err := s.db.QueryRowContext(ctx,
		"SELECT config_json FROM discount_rules WHERE id = ?", id,
	).Scan(&config)

	if err == sql.ErrNoRows {
		return discount.Rule{}, fmt.Errorf("discount rule %s: %w", id, booking.ErrNotFound)
	}
	if err != nil {
		return discount.Rule{}, err
	}

	return s.factory.ParseDiscountRule(config)
}

// ListDiscountRules returns discount rules, optionally only active ones.
func (s *Store) ListDiscountRules(ctx context.Context, activeOnly bool) ([]discount.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT config_json FROM discount_rules ORDER BY priority, id"
	if activeOnly {
		query = "SELECT config_json FROM discount_rules WHERE is_active = TRUE ORDER BY priority, id"
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []discount.Rule
	for rows.Next() {
		var config string
		if err := rows.Scan(&config); err != nil {
			return nil, err
		}
		r, err := s.factory.ParseDiscountRule(config)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

// DeleteDiscountRule removes a discount rule.
func (s *Store) DeleteDiscountRule(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM discount_rules WHERE id = ?", id)
	return err
}

// =============================================================================
// BLOCK BOOKING STORE
// =============================================================================

// SavePackage persists a package transition with a version check, returning
// the stored state. A package with Version 0 is inserted; otherwise the
// update only lands if the stored version still matches, and a mismatch
// returns booking.ErrConcurrentModification so the caller can reload and
// recompute.
func (s *Store) SavePackage(ctx context.Context, p blockbooking.Package) (blockbooking.Package, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return blockbooking.Package{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var expiresAt *string
	if p.ExpiresAt != nil {
		t := p.ExpiresAt.Format(time.RFC3339)
		expiresAt = &t
	}

	if p.Version == 0 {
		query := `
			INSERT INTO block_bookings
			(id, parent_id, child_id, total_sessions, total_paid, price_per_session,
			 deducted_sessions, refunded_sessions, refunded_amount, status, expires_at,
			 version, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)
		`
		_, err = tx.ExecContext(ctx, query,
			p.ID, p.ParentID, p.ChildID, p.TotalSessions,
			int64(p.TotalPaid), int64(p.PricePerSession),
			p.DeductedSessions, p.RefundedSessions, int64(p.RefundedAmount),
			string(p.Status), expiresAt,
			p.CreatedAt.Format(time.RFC3339), p.UpdatedAt.Format(time.RFC3339),
		)
		if err != nil {
			if strings.Contains(err.Error(), "UNIQUE constraint failed") {
				return blockbooking.Package{}, fmt.Errorf("package %s: %w", p.ID, booking.ErrConcurrentModification)
			}
			return blockbooking.Package{}, err
		}
		p.Version = 1
	} else {
		query := `
			UPDATE block_bookings SET
				deducted_sessions = ?,
				refunded_sessions = ?,
				refunded_amount = ?,
				status = ?,
				expires_at = ?,
				version = version + 1,
				updated_at = ?
			WHERE id = ? AND version = ?
		`
		res, err := tx.ExecContext(ctx, query,
			p.DeductedSessions, p.RefundedSessions, int64(p.RefundedAmount),
			string(p.Status), expiresAt,
			p.UpdatedAt.Format(time.RFC3339),
			p.ID, p.Version,
		)
		if err != nil {
			return blockbooking.Package{}, err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return blockbooking.Package{}, err
		}
		if affected == 0 {
			return blockbooking.Package{}, fmt.Errorf("package %s: %w", p.ID, booking.ErrConcurrentModification)
		}
		p.Version++
	}

	// Usage is append-only; existing rows are left alone.
	for _, u := range p.Usage {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO usage_records (id, package_id, session_date, coach_id, notes, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO NOTHING
		`, u.ID, p.ID, u.SessionDate.Format(time.RFC3339),
			nullString(u.CoachID), nullString(u.Notes),
			u.CreatedAt.Format(time.RFC3339))
		if err != nil {
			return blockbooking.Package{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return blockbooking.Package{}, err
	}
	return p, nil
}

// GetPackage retrieves a package and its usage history.
func (s *Store) GetPackage(ctx context.Context, id string) (blockbooking.Package, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT id, parent_id, child_id, total_sessions, total_paid, price_per_session,
		        deducted_sessions, refunded_sessions, refunded_amount, status, expires_at,
		        version, created_at, updated_at
		 FROM block_bookings WHERE id = ?`, id)

	p, err := scanPackage(row)
	if err == sql.ErrNoRows {
		return blockbooking.Package{}, fmt.Errorf("package %s: %w", id, booking.ErrNotFound)
	}
	if err != nil {
		return blockbooking.Package{}, err
	}

	p.Usage, err = s.loadUsage(ctx, id)
	return p, err
}

// ListPackagesByParent returns a parent's packages, newest first. Usage
// history is included.
func (s *Store) ListPackagesByParent(ctx context.Context, parentID string) ([]blockbooking.Package, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, parent_id, child_id, total_sessions, total_paid, price_per_session,
		        deducted_sessions, refunded_sessions, refunded_amount, status, expires_at,
		        version, created_at, updated_at
		 FROM block_bookings WHERE parent_id = ? ORDER BY created_at DESC`, parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var packages []blockbooking.Package
	for rows.Next() {
		p, err := scanPackage(rows)
		if err != nil {
			return nil, err
		}
		packages = append(packages, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range packages {
		packages[i].Usage, err = s.loadUsage(ctx, packages[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return packages, nil
}

func scanPackage(row rowScanner) (blockbooking.Package, error) {
	var p blockbooking.Package
	var totalPaid, pricePerSession, refundedAmount int64
	var status, createdAt, updatedAt string
	var expiresAt sql.NullString

	err := row.Scan(&p.ID, &p.ParentID, &p.ChildID, &p.TotalSessions,
		&totalPaid, &pricePerSession,
		&p.DeductedSessions, &p.RefundedSessions, &refundedAmount,
		&status, &expiresAt, &p.Version, &createdAt, &updatedAt)
	if err != nil {
		return p, err
	}

	p.TotalPaid = money.Amount(totalPaid)
	p.PricePerSession = money.Amount(pricePerSession)
	p.RefundedAmount = money.Amount(refundedAmount)
	p.Status = blockbooking.Status(status)
	if expiresAt.Valid {
		t, _ := time.Parse(time.RFC3339, expiresAt.String)
		p.ExpiresAt = &t
	}
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	p.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return p, nil
}

func (s *Store) loadUsage(ctx context.Context, packageID string) ([]blockbooking.UsageRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_date, coach_id, notes, created_at
		 FROM usage_records WHERE package_id = ? ORDER BY created_at`, packageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var usage []blockbooking.UsageRecord
	for rows.Next() {
		var u blockbooking.UsageRecord
		var sessionDate, createdAt string
		var coachID, notes sql.NullString
		if err := rows.Scan(&u.ID, &sessionDate, &coachID, &notes, &createdAt); err != nil {
			return nil, err
		}
		u.SessionDate, _ = time.Parse(time.RFC3339, sessionDate)
		u.CoachID = coachID.String
		u.Notes = notes.String
		u.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		usage = append(usage, u)
	}
	return usage, rows.Err()
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"usage_records", "block_bookings", "bookings", "sessions", "refund_policies", "discount_rules"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
