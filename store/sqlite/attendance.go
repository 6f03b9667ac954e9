package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/generic"
)

// =============================================================================
// ATTENDANCE STORE (attendance.Store interface)
// =============================================================================

type attendanceRepo struct {
	conn
}

const attendanceColumns = `id, user_id, date, clock_in_time, clock_out_time, status, total_work_hours, created_at, updated_at`

func (r attendanceRepo) FindByUserAndDate(ctx context.Context, userID string, date generic.Date) (*attendance.Attendance, error) {
	defer r.rlock()()

	row := r.db.QueryRowContext(ctx,
		`SELECT `+attendanceColumns+` FROM attendance WHERE user_id = ? AND date = ?`,
		userID, date.String())
	return findAttendance(row)
}

func (r attendanceRepo) FindByID(ctx context.Context, id string) (*attendance.Attendance, error) {
	defer r.rlock()()

	row := r.db.QueryRowContext(ctx, `SELECT `+attendanceColumns+` FROM attendance WHERE id = ?`, id)
	return findAttendance(row)
}

func (r attendanceRepo) Create(ctx context.Context, a attendance.Attendance) error {
	defer r.lock()()

	query := `
		INSERT INTO attendance (` + attendanceColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		a.ID,
		a.UserID,
		a.Date.String(),
		nullLocalTime(a.ClockIn),
		nullLocalTime(a.ClockOut),
		a.Status.String(),
		nullDecimal(a.TotalWorkHours),
		formatInstant(a.CreatedAt),
		formatInstant(a.UpdatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return generic.ErrDuplicate
		}
		return fmt.Errorf("failed to create attendance: %w", err)
	}
	return nil
}

func (r attendanceRepo) Update(ctx context.Context, a attendance.Attendance) error {
	defer r.lock()()

	query := `
		UPDATE attendance
		SET clock_in_time = ?, clock_out_time = ?, status = ?, total_work_hours = ?, updated_at = ?
		WHERE id = ?
	`
	res, err := r.db.ExecContext(ctx, query,
		nullLocalTime(a.ClockIn),
		nullLocalTime(a.ClockOut),
		a.Status.String(),
		nullDecimal(a.TotalWorkHours),
		formatInstant(a.UpdatedAt),
		a.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update attendance: %w", err)
	}
	return expectOneRow(res)
}

func findAttendance(row *sql.Row) (*attendance.Attendance, error) {
	a, err := scanAttendance(row)
	if noRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load attendance: %w", err)
	}
	return &a, nil
}

func scanAttendance(row scanner) (attendance.Attendance, error) {
	var (
		a                          attendance.Attendance
		dateStr, status            string
		created, updated           string
		clockIn, clockOut, hoursNS sql.NullString
	)
	if err := row.Scan(&a.ID, &a.UserID, &dateStr, &clockIn, &clockOut, &status, &hoursNS, &created, &updated); err != nil {
		return a, err
	}
	var err error
	if a.Date, err = generic.ParseDate(dateStr); err != nil {
		return a, err
	}
	if a.ClockIn, err = parseNullLocalTime(clockIn); err != nil {
		return a, err
	}
	if a.ClockOut, err = parseNullLocalTime(clockOut); err != nil {
		return a, err
	}
	if a.Status, err = attendance.ParseStatus(status); err != nil {
		return a, err
	}
	if a.TotalWorkHours, err = parseNullDecimal(hoursNS); err != nil {
		return a, err
	}
	if a.CreatedAt, err = parseInstant(created); err != nil {
		return a, err
	}
	if a.UpdatedAt, err = parseInstant(updated); err != nil {
		return a, err
	}
	return a, nil
}

// -----------------------------------------------------------------------------
// Breaks
// -----------------------------------------------------------------------------

const breakColumns = `id, attendance_id, break_start_time, break_end_time, duration_minutes, created_at, updated_at`

func (r attendanceRepo) ListBreaks(ctx context.Context, attendanceID string) ([]attendance.BreakRecord, error) {
	defer r.rlock()()

	query := `
		SELECT ` + breakColumns + `
		FROM break_records
		WHERE attendance_id = ?
		ORDER BY break_start_time ASC, break_end_time IS NULL ASC, break_end_time ASC, id ASC
	`
	rows, err := r.db.QueryContext(ctx, query, attendanceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query breaks: %w", err)
	}
	defer rows.Close()

	var breaks []attendance.BreakRecord
	for rows.Next() {
		b, err := scanBreak(rows)
		if err != nil {
			return nil, err
		}
		breaks = append(breaks, b)
	}
	return breaks, rows.Err()
}

func (r attendanceRepo) FindBreak(ctx context.Context, id string) (*attendance.BreakRecord, error) {
	defer r.rlock()()

	row := r.db.QueryRowContext(ctx, `SELECT `+breakColumns+` FROM break_records WHERE id = ?`, id)
	return findBreak(row)
}

func (r attendanceRepo) FindActiveBreak(ctx context.Context, attendanceID string) (*attendance.BreakRecord, error) {
	defer r.rlock()()

	query := `
		SELECT ` + breakColumns + `
		FROM break_records
		WHERE attendance_id = ? AND break_end_time IS NULL
		ORDER BY break_start_time DESC
		LIMIT 1
	`
	return findBreak(r.db.QueryRowContext(ctx, query, attendanceID))
}

func (r attendanceRepo) CreateBreak(ctx context.Context, b attendance.BreakRecord) error {
	defer r.lock()()

	query := `
		INSERT INTO break_records (` + breakColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		b.ID,
		b.AttendanceID,
		formatLocalTime(b.Start),
		nullLocalTime(b.End),
		nullInt64(b.DurationMinutes),
		formatInstant(b.CreatedAt),
		formatInstant(b.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create break: %w", err)
	}
	return nil
}

func (r attendanceRepo) UpdateBreak(ctx context.Context, b attendance.BreakRecord) error {
	defer r.lock()()

	query := `
		UPDATE break_records
		SET break_start_time = ?, break_end_time = ?, duration_minutes = ?, updated_at = ?
		WHERE id = ?
	`
	res, err := r.db.ExecContext(ctx, query,
		formatLocalTime(b.Start),
		nullLocalTime(b.End),
		nullInt64(b.DurationMinutes),
		formatInstant(b.UpdatedAt),
		b.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update break: %w", err)
	}
	return expectOneRow(res)
}

func (r attendanceRepo) DeleteBreaksByAttendance(ctx context.Context, attendanceID string) error {
	defer r.lock()()

	if _, err := r.db.ExecContext(ctx, `DELETE FROM break_records WHERE attendance_id = ?`, attendanceID); err != nil {
		return fmt.Errorf("failed to delete breaks: %w", err)
	}
	return nil
}

func findBreak(row *sql.Row) (*attendance.BreakRecord, error) {
	b, err := scanBreak(row)
	if noRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load break: %w", err)
	}
	return &b, nil
}

func scanBreak(row scanner) (attendance.BreakRecord, error) {
	var (
		b                       attendance.BreakRecord
		start, created, updated string
		end                     sql.NullString
		minutes                 sql.NullInt64
	)
	if err := row.Scan(&b.ID, &b.AttendanceID, &start, &end, &minutes, &created, &updated); err != nil {
		return b, err
	}
	var err error
	if b.Start, err = generic.ParseLocalTime(start); err != nil {
		return b, err
	}
	if b.End, err = parseNullLocalTime(end); err != nil {
		return b, err
	}
	if minutes.Valid {
		m := minutes.Int64
		b.DurationMinutes = &m
	}
	if b.CreatedAt, err = parseInstant(created); err != nil {
		return b, err
	}
	if b.UpdatedAt, err = parseInstant(updated); err != nil {
		return b, err
	}
	return b, nil
}

func nullDecimal(d *decimal.Decimal) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func parseNullDecimal(ns sql.NullString) (*decimal.Decimal, error) {
	if !ns.Valid {
		return nil, nil
	}
	d, err := decimal.NewFromString(ns.String)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}
