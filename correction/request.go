/*
Package correction implements attendance correction requests.

PURPOSE:
  An employee proposes new clock-in/out and break times for a past day.
  The request stores a snapshot of the day as it was and the proposed
  snapshot. An admin approves or rejects it; approval rewrites the day in a
  single transaction.

STATE MACHINE:

	          update (owner)
	            +---+
	            v   |
	        +---------+  approve (admin)   +----------+
	 create | Pending |------------------->| Approved |
	 ------>|         |  reject (admin)    +----------+
	        |         |------------------->| Rejected |
	        |         |  cancel (owner)    +----------+
	        |         |------------------->| Cancelled|
	        |         |  approve, stale    +----------+
	        |         |------------------->| Conflict |
	        +---------+                    +----------+

  Only Pending moves. Every other state is terminal. Requests are never
  deleted.

STALENESS:
  Approval rebuilds the day's snapshot inside the transaction. If it no
  longer equals the stored original, the request becomes Conflict and the
  day is left alone.

SEE ALSO:
  - snapshot.go: Snapshot, Proposal, validation
  - workflow.go: Service operations
  - applier.go:  Transactional write-back
*/
package correction

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/generic"
)

// =============================================================================
// STATUS
// =============================================================================

type Status int

const (
	StatusPending Status = iota
	StatusApproved
	StatusRejected
	StatusCancelled
	StatusConflict
)

var statusNames = map[Status]string{
	StatusPending:   "pending",
	StatusApproved:  "approved",
	StatusRejected:  "rejected",
	StatusCancelled: "cancelled",
	StatusConflict:  "conflict",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// ParseStatus is exact: "Pending" or " pending" are rejected.
func ParseStatus(s string) (Status, error) {
	for st, name := range statusNames {
		if name == s {
			return st, nil
		}
	}
	return StatusPending, fmt.Errorf("unknown correction status %q", s)
}

func (s Status) IsTerminal() bool { return s != StatusPending }

func (s Status) MarshalJSON() ([]byte, error) { return json.Marshal(s.String()) }

// =============================================================================
// REQUEST
// =============================================================================

// Request is a correction request. The snapshot documents are kept in their
// stored JSON form and decoded on demand.
type Request struct {
	ID               string
	UserID           string
	AttendanceID     string
	Date             generic.Date
	Status           Status
	Reason           string
	OriginalSnapshot json.RawMessage
	ProposedValues   json.RawMessage
	DecisionComment  *string
	ApprovedBy       *string
	ApprovedAt       *time.Time
	RejectedBy       *string
	RejectedAt       *time.Time
	CancelledAt      *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (r *Request) ParseOriginalSnapshot() (Snapshot, error) {
	s, err := ParseSnapshot(r.OriginalSnapshot)
	if err != nil {
		return Snapshot{}, generic.Internal(err, "stored original snapshot is unreadable")
	}
	return s, nil
}

func (r *Request) ParseProposedValues() (Snapshot, error) {
	s, err := ParseSnapshot(r.ProposedValues)
	if err != nil {
		return Snapshot{}, generic.Internal(err, "stored proposed values are unreadable")
	}
	return s, nil
}

// EffectiveValue records what an approved request wrote. One row per
// request, never updated.
type EffectiveValue struct {
	SourceRequestID string
	AttendanceID    string
	ClockIn         *generic.LocalTime
	ClockOut        *generic.LocalTime
	Breaks          []BreakItem
	AppliedBy       string
	AppliedAt       time.Time
}

// ListFilter selects requests for the admin listing. Page starts at 1.
type ListFilter struct {
	Status  *Status
	UserID  string
	Page    int
	PerPage int
}

const (
	DefaultPerPage = 20
	MaxPerPage     = 100
)

// Normalize clamps paging to valid values.
func (f ListFilter) Normalize() ListFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	switch {
	case f.PerPage <= 0:
		f.PerPage = DefaultPerPage
	case f.PerPage > MaxPerPage:
		f.PerPage = MaxPerPage
	}
	return f
}

func (f ListFilter) Offset() int { return (f.Page - 1) * f.PerPage }

// =============================================================================
// STORAGE INTERFACES
// =============================================================================

// Store persists requests and effective values.
//
// FindByID returns (nil, nil) for unknown ids. Save rewrites the mutable
// fields of an existing request and returns generic.ErrNotFound for
// unknown ids. SaveEffectiveValue returns generic.ErrDuplicate when the
// request already has one.
type Store interface {
	Create(ctx context.Context, r Request) error
	FindByID(ctx context.Context, id string) (*Request, error)
	Save(ctx context.Context, r Request) error
	// ListByUser is newest first.
	ListByUser(ctx context.Context, userID string) ([]Request, error)
	// List is newest first and expects a normalized filter.
	List(ctx context.Context, filter ListFilter) ([]Request, error)

	SaveEffectiveValue(ctx context.Context, v EffectiveValue) error
	ListEffectiveValues(ctx context.Context, attendanceID string) ([]EffectiveValue, error)
}

// UnitOfWork exposes tx-scoped stores. Everything done through one unit
// commits or rolls back together.
type UnitOfWork interface {
	Attendance() attendance.Store
	Corrections() Store
}

// TxRunner runs fn in a transaction: commit when fn returns nil, rollback
// otherwise.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(uow UnitOfWork) error) error
}
