package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/warp/attendance-engine/correction"
	"github.com/warp/attendance-engine/generic"
)

// =============================================================================
// CORRECTION STORE (correction.Store interface)
// =============================================================================

type correctionRepo struct {
	conn
}

const requestColumns = `id, user_id, attendance_id, date, status, reason, original_snapshot, proposed_values,
	decision_comment, approved_by, approved_at, rejected_by, rejected_at, cancelled_at, created_at, updated_at`

func (r correctionRepo) Create(ctx context.Context, req correction.Request) error {
	defer r.lock()()

	query := `
		INSERT INTO attendance_correction_requests (` + requestColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		req.ID,
		req.UserID,
		req.AttendanceID,
		req.Date.String(),
		req.Status.String(),
		req.Reason,
		string(req.OriginalSnapshot),
		string(req.ProposedValues),
		nullString(req.DecisionComment),
		nullString(req.ApprovedBy),
		nullInstant(req.ApprovedAt),
		nullString(req.RejectedBy),
		nullInstant(req.RejectedAt),
		nullInstant(req.CancelledAt),
		formatInstant(req.CreatedAt),
		formatInstant(req.UpdatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return generic.ErrDuplicate
		}
		return fmt.Errorf("failed to create correction request: %w", err)
	}
	return nil
}

func (r correctionRepo) FindByID(ctx context.Context, id string) (*correction.Request, error) {
	defer r.rlock()()

	row := r.db.QueryRowContext(ctx,
		`SELECT `+requestColumns+` FROM attendance_correction_requests WHERE id = ?`, id)
	req, err := scanRequest(row)
	if noRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load correction request: %w", err)
	}
	return &req, nil
}

// Save rewrites the mutable fields. Identity, owner, attendance and date
// never change after creation.
func (r correctionRepo) Save(ctx context.Context, req correction.Request) error {
	defer r.lock()()

	query := `
		UPDATE attendance_correction_requests
		SET status = ?, reason = ?, original_snapshot = ?, proposed_values = ?, decision_comment = ?,
		    approved_by = ?, approved_at = ?, rejected_by = ?, rejected_at = ?,
		    cancelled_at = ?, updated_at = ?
		WHERE id = ?
	`
	res, err := r.db.ExecContext(ctx, query,
		req.Status.String(),
		req.Reason,
		string(req.OriginalSnapshot),
		string(req.ProposedValues),
		nullString(req.DecisionComment),
		nullString(req.ApprovedBy),
		nullInstant(req.ApprovedAt),
		nullString(req.RejectedBy),
		nullInstant(req.RejectedAt),
		nullInstant(req.CancelledAt),
		formatInstant(req.UpdatedAt),
		req.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to save correction request: %w", err)
	}
	return expectOneRow(res)
}

func (r correctionRepo) ListByUser(ctx context.Context, userID string) ([]correction.Request, error) {
	defer r.rlock()()

	query := `
		SELECT ` + requestColumns + `
		FROM attendance_correction_requests
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
	`
	return r.queryRequests(ctx, query, userID)
}

func (r correctionRepo) List(ctx context.Context, filter correction.ListFilter) ([]correction.Request, error) {
	defer r.rlock()()

	query := `SELECT ` + requestColumns + ` FROM attendance_correction_requests WHERE 1 = 1`
	var args []any
	if filter.Status != nil {
		query += ` AND status = ?`
		args = append(args, filter.Status.String())
	}
	if filter.UserID != "" {
		query += ` AND user_id = ?`
		args = append(args, filter.UserID)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, filter.PerPage, filter.Offset())

	return r.queryRequests(ctx, query, args...)
}

func (r correctionRepo) queryRequests(ctx context.Context, query string, args ...any) ([]correction.Request, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query correction requests: %w", err)
	}
	defer rows.Close()

	var list []correction.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, req)
	}
	return list, rows.Err()
}

func scanRequest(row scanner) (correction.Request, error) {
	var (
		req                                 correction.Request
		dateStr, status, original, proposed string
		created, updated                    string
		comment, approvedBy, rejectedBy     sql.NullString
		approvedAt, rejectedAt, cancelledAt sql.NullString
	)
	err := row.Scan(
		&req.ID, &req.UserID, &req.AttendanceID, &dateStr, &status, &req.Reason, &original, &proposed,
		&comment, &approvedBy, &approvedAt, &rejectedBy, &rejectedAt, &cancelledAt, &created, &updated,
	)
	if err != nil {
		return req, err
	}

	if req.Date, err = generic.ParseDate(dateStr); err != nil {
		return req, err
	}
	if req.Status, err = correction.ParseStatus(status); err != nil {
		return req, err
	}
	req.OriginalSnapshot = json.RawMessage(original)
	req.ProposedValues = json.RawMessage(proposed)
	req.DecisionComment = parseNullString(comment)
	req.ApprovedBy = parseNullString(approvedBy)
	req.RejectedBy = parseNullString(rejectedBy)
	if req.ApprovedAt, err = parseNullInstant(approvedAt); err != nil {
		return req, err
	}
	if req.RejectedAt, err = parseNullInstant(rejectedAt); err != nil {
		return req, err
	}
	if req.CancelledAt, err = parseNullInstant(cancelledAt); err != nil {
		return req, err
	}
	if req.CreatedAt, err = parseInstant(created); err != nil {
		return req, err
	}
	if req.UpdatedAt, err = parseInstant(updated); err != nil {
		return req, err
	}
	return req, nil
}

// -----------------------------------------------------------------------------
// Effective values
// -----------------------------------------------------------------------------

func (r correctionRepo) SaveEffectiveValue(ctx context.Context, v correction.EffectiveValue) error {
	defer r.lock()()

	breaks := v.Breaks
	if breaks == nil {
		breaks = []correction.BreakItem{}
	}
	breaksJSON, err := json.Marshal(breaks)
	if err != nil {
		return fmt.Errorf("failed to encode breaks: %w", err)
	}

	query := `
		INSERT INTO attendance_correction_effective_values
		(source_request_id, attendance_id, clock_in_time, clock_out_time, breaks_json, applied_by, applied_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.ExecContext(ctx, query,
		v.SourceRequestID,
		v.AttendanceID,
		nullLocalTime(v.ClockIn),
		nullLocalTime(v.ClockOut),
		string(breaksJSON),
		v.AppliedBy,
		formatInstant(v.AppliedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return generic.ErrDuplicate
		}
		return fmt.Errorf("failed to save effective value: %w", err)
	}
	return nil
}

func (r correctionRepo) ListEffectiveValues(ctx context.Context, attendanceID string) ([]correction.EffectiveValue, error) {
	defer r.rlock()()

	query := `
		SELECT source_request_id, attendance_id, clock_in_time, clock_out_time, breaks_json, applied_by, applied_at
		FROM attendance_correction_effective_values
		WHERE attendance_id = ?
		ORDER BY applied_at ASC
	`
	rows, err := r.db.QueryContext(ctx, query, attendanceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query effective values: %w", err)
	}
	defer rows.Close()

	var list []correction.EffectiveValue
	for rows.Next() {
		var (
			v                   correction.EffectiveValue
			clockIn, clockOut   sql.NullString
			breaksJSON, applied string
		)
		if err := rows.Scan(&v.SourceRequestID, &v.AttendanceID, &clockIn, &clockOut, &breaksJSON, &v.AppliedBy, &applied); err != nil {
			return nil, err
		}
		if v.ClockIn, err = parseNullLocalTime(clockIn); err != nil {
			return nil, err
		}
		if v.ClockOut, err = parseNullLocalTime(clockOut); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(breaksJSON), &v.Breaks); err != nil {
			return nil, fmt.Errorf("failed to decode breaks: %w", err)
		}
		if v.AppliedAt, err = parseInstant(applied); err != nil {
			return nil, err
		}
		list = append(list, v)
	}
	return list, rows.Err()
}
