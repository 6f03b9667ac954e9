/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements holiday.Store, attendance.Store and correction.Store on one
  database, plus the transaction runner the correction workflow commits
  through. The same SQL runs on PostgreSQL with minor dialect changes.

INTERFACES IMPLEMENTED:
  holiday.Store:         Public holidays, weekly rules, per-user exceptions
  attendance.Store:      Attendance days and break records
  correction.Store:      Correction requests and effective values
  correction.TxRunner:   WithTx over *sql.Tx

KEY TABLES:
  public_holidays:                         One row per holiday date
  weekly_holidays:                         Recurring weekday rules
  holiday_exceptions:                      Per-user overrides (user_id, date) unique
  attendance:                              One row per (user_id, date)
  break_records:                           Breaks, cascade-deleted with the day
  attendance_correction_requests:          The workflow state
  attendance_correction_effective_values:  One row per approved request

STORAGE FORMATS:
  Dates are "YYYY-MM-DD" text, wall-clock timestamps are
  "YYYY-MM-DDTHH:MM:SS.fffffffff" text, instants are
  "YYYY-MM-DDTHH:MM:SS.fffffffffZ" UTC text and work hours are decimal
  text. Timestamps always carry nine fractional digits so ORDER BY on
  them matches time order.

CONCURRENCY:
  Uses sync.RWMutex plus a single connection. WithTx holds the write lock
  for the whole transaction; repos handed to the callback skip locking.

USAGE:
  store, err := sqlite.New("./data/attendance.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  engine := holiday.NewEngine(store.Holidays())

MIGRATION:
  Schema is auto-migrated on New().

SEE ALSO:
  - store/memory: In-memory implementation for tests
  - correction/request.go: UnitOfWork and TxRunner
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/correction"
	"github.com/warp/attendance-engine/generic"
	"github.com/warp/attendance-engine/holiday"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
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

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Public holidays (company wide)
	CREATE TABLE IF NOT EXISTS public_holidays (
		id TEXT PRIMARY KEY,
		date TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	-- Weekly holiday rules, weekday 0 = Monday
	CREATE TABLE IF NOT EXISTS weekly_holidays (
		id TEXT PRIMARY KEY,
		weekday INTEGER NOT NULL CHECK (weekday BETWEEN 0 AND 6),
		starts_on TEXT NOT NULL,
		ends_on TEXT,
		enforced_from TEXT NOT NULL,
		enforced_to TEXT,
		created_by TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_weekly_holidays_enforced
		ON weekly_holidays(enforced_from, enforced_to);

	-- Per-user overrides
	CREATE TABLE IF NOT EXISTS holiday_exceptions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		date TEXT NOT NULL,
		is_holiday_override BOOLEAN NOT NULL DEFAULT FALSE,
		reason TEXT NOT NULL DEFAULT '',
		created_by TEXT NOT NULL,
		created_at TEXT NOT NULL,
		UNIQUE(user_id, date)
	);

	-- Attendance days
	CREATE TABLE IF NOT EXISTS attendance (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		date TEXT NOT NULL,
		clock_in_time TEXT,
		clock_out_time TEXT,
		status TEXT NOT NULL DEFAULT 'present',
		total_work_hours TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		UNIQUE(user_id, date)
	);

	CREATE TABLE IF NOT EXISTS break_records (
		id TEXT PRIMARY KEY,
		attendance_id TEXT NOT NULL REFERENCES attendance(id) ON DELETE CASCADE,
		break_start_time TEXT NOT NULL,
		break_end_time TEXT,
		duration_minutes INTEGER,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_break_records_attendance
		ON break_records(attendance_id, break_start_time);

	-- Correction workflow
	CREATE TABLE IF NOT EXISTS attendance_correction_requests (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		attendance_id TEXT NOT NULL REFERENCES attendance(id),
		date TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		reason TEXT NOT NULL,
		original_snapshot TEXT NOT NULL,
		proposed_values TEXT NOT NULL,
		decision_comment TEXT,
		approved_by TEXT,
		approved_at TEXT,
		rejected_by TEXT,
		rejected_at TEXT,
		cancelled_at TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_correction_requests_user
		ON attendance_correction_requests(user_id, created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_correction_requests_status
		ON attendance_correction_requests(status, created_at DESC);

	CREATE TABLE IF NOT EXISTS attendance_correction_effective_values (
		source_request_id TEXT PRIMARY KEY REFERENCES attendance_correction_requests(id),
		attendance_id TEXT NOT NULL REFERENCES attendance(id),
		clock_in_time TEXT,
		clock_out_time TEXT,
		breaks_json TEXT NOT NULL,
		applied_by TEXT NOT NULL,
		applied_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_effective_values_attendance
		ON attendance_correction_effective_values(attendance_id, applied_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// SUB-STORES
// =============================================================================

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// conn is shared by every repo. inTx is set when the caller already holds
// the write lock through WithTx.
type conn struct {
	s    *Store
	db   dbtx
	inTx bool
}

func (c conn) rlock() func() {
	if c.inTx {
		return func() {}
	}
	c.s.mu.RLock()
	return c.s.mu.RUnlock
}

func (c conn) lock() func() {
	if c.inTx {
		return func() {}
	}
	c.s.mu.Lock()
	return c.s.mu.Unlock
}

func (s *Store) conn() conn { return conn{s: s, db: s.db} }

// Holidays returns the holiday store.
func (s *Store) Holidays() holiday.Store { return holidayRepo{s.conn()} }

// Attendance returns the attendance store.
func (s *Store) Attendance() attendance.Store { return attendanceRepo{s.conn()} }

// Corrections returns the correction request store.
func (s *Store) Corrections() correction.Store { return correctionRepo{s.conn()} }

// =============================================================================
// TRANSACTIONAL STORE (correction.TxRunner interface)
// =============================================================================

// WithTx executes a function within a database transaction. The transaction
// commits when fn returns nil and rolls back otherwise.
func (s *Store) WithTx(ctx context.Context, fn func(uow correction.UnitOfWork) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(txStore{conn{s: s, db: sqlTx, inTx: true}}); err != nil {
		return err
	}

	return sqlTx.Commit()
}

type txStore struct {
	c conn
}

func (ts txStore) Attendance() attendance.Store  { return attendanceRepo{ts.c} }
func (ts txStore) Corrections() correction.Store { return correctionRepo{ts.c} }

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Children first so foreign keys hold.
	tables := []string{
		"attendance_correction_effective_values",
		"attendance_correction_requests",
		"break_records",
		"attendance",
		"holiday_exceptions",
		"weekly_holidays",
		"public_holidays",
	}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// Helper functions

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// Fixed-width layouts. RFC3339Nano drops trailing zeros, which breaks
// string ordering within the same second.
const (
	instantLayout   = "2006-01-02T15:04:05.000000000Z07:00"
	localTimeLayout = "2006-01-02T15:04:05.000000000"
)

func formatInstant(t time.Time) string {
	return t.UTC().Format(instantLayout)
}

func parseInstant(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func formatLocalTime(lt generic.LocalTime) string {
	return lt.Time().Format(localTimeLayout)
}

func nullInstant(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatInstant(*t), Valid: true}
}

func parseNullInstant(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid {
		return nil, nil
	}
	t, err := parseInstant(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullDate(d *generic.Date) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func parseNullDate(ns sql.NullString) (*generic.Date, error) {
	if !ns.Valid {
		return nil, nil
	}
	d, err := generic.ParseDate(ns.String)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func nullLocalTime(lt *generic.LocalTime) sql.NullString {
	if lt == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatLocalTime(*lt), Valid: true}
}

func parseNullLocalTime(ns sql.NullString) (*generic.LocalTime, error) {
	if !ns.Valid {
		return nil, nil
	}
	lt, err := generic.ParseLocalTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &lt, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func parseNullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}

// expectOneRow maps a zero-row UPDATE or DELETE to generic.ErrNotFound.
func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return generic.ErrNotFound
	}
	return nil
}

func noRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
