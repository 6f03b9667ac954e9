package correction

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/generic"
)

const maxTextLength = 500

// CreateInput is an employee's new correction for one day.
type CreateInput struct {
	Date     generic.Date
	Reason   string
	Proposal Proposal
}

// UpdateInput replaces the reason and proposal of a pending request.
type UpdateInput struct {
	Reason   string
	Proposal Proposal
}

// =============================================================================
// SERVICE
// =============================================================================

// Service runs the correction request workflow.
type Service struct {
	attendance attendance.Store
	requests   Store
	tx         TxRunner
	applier    Applier
	log        logrus.FieldLogger

	Now func() time.Time
}

func NewService(att attendance.Store, requests Store, tx TxRunner, log logrus.FieldLogger) *Service {
	return &Service{attendance: att, requests: requests, tx: tx, log: log, Now: time.Now}
}

// Create stores a pending request for one of the actor's attendance days.
func (s *Service) Create(ctx context.Context, actor generic.Actor, in CreateInput) (*Request, error) {
	reason, err := validateText(in.Reason, "reason")
	if err != nil {
		return nil, err
	}

	att, err := s.attendance.FindByUserAndDate(ctx, actor.UserID, in.Date)
	if err != nil {
		return nil, generic.Internal(err, "failed to load attendance")
	}
	if att == nil {
		return nil, generic.NotFound("No attendance record found for specified date")
	}
	breaks, err := s.attendance.ListBreaks(ctx, att.ID)
	if err != nil {
		return nil, generic.Internal(err, "failed to load breaks")
	}

	original := BuildSnapshot(*att, breaks)
	proposed, err := checkProposal(original, in.Proposal)
	if err != nil {
		return nil, err
	}

	originalDoc, err := original.Document()
	if err != nil {
		return nil, generic.Internal(err, "failed to encode snapshot")
	}
	proposedDoc, err := proposed.Document()
	if err != nil {
		return nil, generic.Internal(err, "failed to encode snapshot")
	}

	now := s.Now().UTC()
	req := Request{
		ID:               uuid.NewString(),
		UserID:           actor.UserID,
		AttendanceID:     att.ID,
		Date:             in.Date,
		Status:           StatusPending,
		Reason:           reason,
		OriginalSnapshot: originalDoc,
		ProposedValues:   proposedDoc,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.requests.Create(ctx, req); err != nil {
		return nil, generic.Internal(err, "failed to create correction request")
	}

	s.logTransition(&req, actor, "attendance correction requested")
	return &req, nil
}

// Update replaces the reason and proposal of the actor's pending request.
// The proposal is diffed against the original captured at creation.
func (s *Service) Update(ctx context.Context, actor generic.Actor, id string, in UpdateInput) (*Request, error) {
	reason, err := validateText(in.Reason, "reason")
	if err != nil {
		return nil, err
	}

	var updated *Request
	err = s.tx.WithTx(ctx, func(uow UnitOfWork) error {
		req, err := findOwned(ctx, uow.Corrections(), actor, id)
		if err != nil {
			return err
		}
		if req.Status != StatusPending {
			return generic.Conflict("Only pending requests can be updated")
		}
		original, err := req.ParseOriginalSnapshot()
		if err != nil {
			return err
		}
		proposed, err := checkProposal(original, in.Proposal)
		if err != nil {
			return err
		}
		doc, err := proposed.Document()
		if err != nil {
			return generic.Internal(err, "failed to encode snapshot")
		}

		req.Reason = reason
		req.ProposedValues = doc
		req.UpdatedAt = s.Now().UTC()
		if err := uow.Corrections().Save(ctx, *req); err != nil {
			return generic.Internal(err, "failed to update correction request")
		}
		updated = req
		return nil
	})
	if err != nil {
		return nil, generic.Internal(err, "failed to update correction request")
	}

	s.logTransition(updated, actor, "attendance correction updated")
	return updated, nil
}

// Approve applies the proposal to the attendance day. The status change,
// the attendance rewrite and the effective value commit together. When the
// day changed since submission the request becomes Conflict instead and a
// Conflict error is returned.
func (s *Service) Approve(ctx context.Context, actor generic.Actor, id, comment string) (*Request, error) {
	if err := generic.RequireAdmin(actor); err != nil {
		return nil, err
	}
	comment, err := validateText(comment, "comment")
	if err != nil {
		return nil, err
	}

	var (
		result *Request
		stale  bool
	)
	err = s.tx.WithTx(ctx, func(uow UnitOfWork) error {
		req, err := findPending(ctx, uow.Corrections(), id)
		if err != nil {
			return err
		}
		original, err := req.ParseOriginalSnapshot()
		if err != nil {
			return err
		}
		proposed, err := req.ParseProposedValues()
		if err != nil {
			return err
		}

		live, err := liveSnapshot(ctx, uow.Attendance(), req.AttendanceID)
		if err != nil {
			return err
		}

		now := s.Now().UTC()
		req.DecisionComment = &comment
		req.UpdatedAt = now
		result = req

		if !live.Equal(original) {
			stale = true
			req.Status = StatusConflict
			if err := uow.Corrections().Save(ctx, *req); err != nil {
				return generic.Internal(err, "failed to update correction request")
			}
			return nil
		}

		if err := s.applier.Apply(ctx, uow, ApplyInput{
			RequestID:    req.ID,
			AttendanceID: req.AttendanceID,
			Proposed:     proposed,
			AppliedBy:    actor.UserID,
			AppliedAt:    now,
		}); err != nil {
			return err
		}

		req.Status = StatusApproved
		req.ApprovedBy = &actor.UserID
		req.ApprovedAt = &now
		if err := uow.Corrections().Save(ctx, *req); err != nil {
			return generic.Internal(err, "failed to update correction request")
		}
		return nil
	})
	if err != nil {
		if !generic.IsClientError(err) {
			s.log.WithError(err).WithField("request_id", id).Error("attendance correction approval rolled back")
		}
		return nil, generic.Internal(err, "failed to approve correction request")
	}

	if stale {
		s.logTransition(result, actor, "attendance correction marked conflict")
		return nil, generic.Conflict("Attendance record changed after request submission. Please resubmit.")
	}
	s.logTransition(result, actor, "attendance correction approved")
	return result, nil
}

// Reject closes a pending request without touching attendance.
func (s *Service) Reject(ctx context.Context, actor generic.Actor, id, comment string) (*Request, error) {
	if err := generic.RequireAdmin(actor); err != nil {
		return nil, err
	}
	comment, err := validateText(comment, "comment")
	if err != nil {
		return nil, err
	}

	var result *Request
	err = s.tx.WithTx(ctx, func(uow UnitOfWork) error {
		req, err := findPending(ctx, uow.Corrections(), id)
		if err != nil {
			return err
		}
		now := s.Now().UTC()
		req.Status = StatusRejected
		req.RejectedBy = &actor.UserID
		req.RejectedAt = &now
		req.DecisionComment = &comment
		req.UpdatedAt = now
		if err := uow.Corrections().Save(ctx, *req); err != nil {
			return generic.Internal(err, "failed to update correction request")
		}
		result = req
		return nil
	})
	if err != nil {
		return nil, generic.Internal(err, "failed to reject correction request")
	}

	s.logTransition(result, actor, "attendance correction rejected")
	return result, nil
}

// Cancel withdraws the actor's own pending request.
func (s *Service) Cancel(ctx context.Context, actor generic.Actor, id string) (*Request, error) {
	var result *Request
	err := s.tx.WithTx(ctx, func(uow UnitOfWork) error {
		req, err := findOwned(ctx, uow.Corrections(), actor, id)
		if err != nil {
			return err
		}
		if req.Status != StatusPending {
			return generic.Conflict("Only pending requests can be cancelled")
		}
		now := s.Now().UTC()
		req.Status = StatusCancelled
		req.CancelledAt = &now
		req.UpdatedAt = now
		if err := uow.Corrections().Save(ctx, *req); err != nil {
			return generic.Internal(err, "failed to update correction request")
		}
		result = req
		return nil
	})
	if err != nil {
		return nil, generic.Internal(err, "failed to cancel correction request")
	}

	s.logTransition(result, actor, "attendance correction cancelled")
	return result, nil
}

// =============================================================================
// QUERIES
// =============================================================================

// Get returns a request to its owner or to an admin.
func (s *Service) Get(ctx context.Context, actor generic.Actor, id string) (*Request, error) {
	if actor.IsAdmin() {
		req, err := s.requests.FindByID(ctx, id)
		if err != nil {
			return nil, generic.Internal(err, "failed to load correction request")
		}
		if req == nil {
			return nil, generic.NotFound("Attendance correction request not found")
		}
		return req, nil
	}
	return findOwned(ctx, s.requests, actor, id)
}

// ListMine returns the actor's requests, newest first.
func (s *Service) ListMine(ctx context.Context, actor generic.Actor) ([]Request, error) {
	list, err := s.requests.ListByUser(ctx, actor.UserID)
	if err != nil {
		return nil, generic.Internal(err, "failed to list correction requests")
	}
	return list, nil
}

// List returns requests matching the filter for admins, newest first.
func (s *Service) List(ctx context.Context, actor generic.Actor, filter ListFilter) ([]Request, error) {
	if err := generic.RequireAdmin(actor); err != nil {
		return nil, err
	}
	list, err := s.requests.List(ctx, filter.Normalize())
	if err != nil {
		return nil, generic.Internal(err, "failed to list correction requests")
	}
	return list, nil
}

// EffectiveValues returns the corrections applied to an attendance day.
func (s *Service) EffectiveValues(ctx context.Context, actor generic.Actor, attendanceID string) ([]EffectiveValue, error) {
	if err := generic.RequireAdmin(actor); err != nil {
		return nil, err
	}
	list, err := s.requests.ListEffectiveValues(ctx, attendanceID)
	if err != nil {
		return nil, generic.Internal(err, "failed to list effective values")
	}
	return list, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func (s *Service) logTransition(req *Request, actor generic.Actor, msg string) {
	s.log.WithFields(logrus.Fields{
		"request_id": req.ID,
		"user_id":    req.UserID,
		"actor_id":   actor.UserID,
		"status":     req.Status.String(),
	}).Info(msg)
}

// checkProposal builds the proposed snapshot and rejects no-op or
// out-of-order proposals.
func checkProposal(original Snapshot, p Proposal) (Snapshot, error) {
	proposed := p.Apply(original)
	if proposed.Equal(original) {
		return Snapshot{}, generic.BadRequest("At least one field must be changed")
	}
	if err := proposed.Validate(); err != nil {
		return Snapshot{}, err
	}
	return proposed, nil
}

// validateText trims s and requires 1 to 500 characters.
func validateText(s, field string) (string, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return "", generic.BadRequest("%s is required", field)
	}
	if utf8.RuneCountInString(trimmed) > maxTextLength {
		return "", generic.BadRequest("%s must be between 1 and %d characters", field, maxTextLength)
	}
	return trimmed, nil
}

// findOwned hides other users' requests behind NotFound.
func findOwned(ctx context.Context, store Store, actor generic.Actor, id string) (*Request, error) {
	req, err := store.FindByID(ctx, id)
	if err != nil {
		return nil, generic.Internal(err, "failed to load correction request")
	}
	if req == nil || !actor.Owns(req.UserID) {
		return nil, generic.NotFound("Attendance correction request not found")
	}
	return req, nil
}

func findPending(ctx context.Context, store Store, id string) (*Request, error) {
	req, err := store.FindByID(ctx, id)
	if err != nil {
		return nil, generic.Internal(err, "failed to load correction request")
	}
	if req == nil {
		return nil, generic.NotFound("Attendance correction request not found")
	}
	if req.Status != StatusPending {
		return nil, generic.Conflict("Request not found or already processed")
	}
	return req, nil
}

func liveSnapshot(ctx context.Context, store attendance.Store, attendanceID string) (Snapshot, error) {
	att, err := store.FindByID(ctx, attendanceID)
	if err != nil {
		return Snapshot{}, generic.Internal(err, "failed to load attendance")
	}
	if att == nil {
		return Snapshot{}, generic.NotFound("attendance record not found")
	}
	breaks, err := store.ListBreaks(ctx, att.ID)
	if err != nil {
		return Snapshot{}, generic.Internal(err, "failed to load breaks")
	}
	return BuildSnapshot(*att, breaks), nil
}
