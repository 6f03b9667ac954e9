package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/warp/attendance-engine/generic"
	"github.com/warp/attendance-engine/holiday"
)

// =============================================================================
// HOLIDAY STORE (holiday.Store interface)
// =============================================================================

type holidayRepo struct {
	conn
}

const publicHolidayColumns = `id, date, name, description, created_at`

func (r holidayRepo) SavePublicHoliday(ctx context.Context, h holiday.PublicHoliday) error {
	defer r.lock()()

	query := `
		INSERT INTO public_holidays (id, date, name, description, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			date = excluded.date,
			name = excluded.name,
			description = excluded.description
	`
	_, err := r.db.ExecContext(ctx, query, h.ID, h.Date.String(), h.Name, h.Description, formatInstant(h.CreatedAt))
	if err != nil {
		if isUniqueConstraintError(err) {
			return generic.ErrDuplicate
		}
		return fmt.Errorf("failed to save public holiday: %w", err)
	}
	return nil
}

func (r holidayRepo) FindPublicHoliday(ctx context.Context, date generic.Date) (*holiday.PublicHoliday, error) {
	defer r.rlock()()

	row := r.db.QueryRowContext(ctx,
		`SELECT `+publicHolidayColumns+` FROM public_holidays WHERE date = ?`, date.String())
	h, err := scanPublicHoliday(row)
	if noRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find public holiday: %w", err)
	}
	return &h, nil
}

func (r holidayRepo) ListPublicHolidays(ctx context.Context) ([]holiday.PublicHoliday, error) {
	defer r.rlock()()
	return r.queryPublicHolidays(ctx, `SELECT `+publicHolidayColumns+` FROM public_holidays ORDER BY date ASC`)
}

func (r holidayRepo) ListPublicHolidaysBetween(ctx context.Context, from, to generic.Date) ([]holiday.PublicHoliday, error) {
	defer r.rlock()()

	query := `
		SELECT ` + publicHolidayColumns + `
		FROM public_holidays
		WHERE date >= ? AND date <= ?
		ORDER BY date ASC
	`
	return r.queryPublicHolidays(ctx, query, from.String(), to.String())
}

func (r holidayRepo) DeletePublicHoliday(ctx context.Context, id string) error {
	defer r.lock()()

	res, err := r.db.ExecContext(ctx, `DELETE FROM public_holidays WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete public holiday: %w", err)
	}
	return expectOneRow(res)
}

func (r holidayRepo) queryPublicHolidays(ctx context.Context, query string, args ...any) ([]holiday.PublicHoliday, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query public holidays: %w", err)
	}
	defer rows.Close()

	var list []holiday.PublicHoliday
	for rows.Next() {
		h, err := scanPublicHoliday(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, h)
	}
	return list, rows.Err()
}

func scanPublicHoliday(row scanner) (holiday.PublicHoliday, error) {
	var (
		h                 holiday.PublicHoliday
		dateStr, createdS string
	)
	if err := row.Scan(&h.ID, &dateStr, &h.Name, &h.Description, &createdS); err != nil {
		return h, err
	}
	var err error
	if h.Date, err = generic.ParseDate(dateStr); err != nil {
		return h, err
	}
	if h.CreatedAt, err = parseInstant(createdS); err != nil {
		return h, err
	}
	return h, nil
}

// -----------------------------------------------------------------------------
// Weekly rules
// -----------------------------------------------------------------------------

func (r holidayRepo) SaveWeeklyRule(ctx context.Context, w holiday.WeeklyRule) error {
	defer r.lock()()

	query := `
		INSERT INTO weekly_holidays
		(id, weekday, starts_on, ends_on, enforced_from, enforced_to, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			weekday = excluded.weekday,
			starts_on = excluded.starts_on,
			ends_on = excluded.ends_on,
			enforced_from = excluded.enforced_from,
			enforced_to = excluded.enforced_to
	`
	_, err := r.db.ExecContext(ctx, query,
		w.ID,
		w.Weekday,
		w.StartsOn.String(),
		nullDate(w.EndsOn),
		w.EnforcedFrom.String(),
		nullDate(w.EnforcedTo),
		w.CreatedBy,
		formatInstant(w.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save weekly rule: %w", err)
	}
	return nil
}

func (r holidayRepo) ListWeeklyRules(ctx context.Context) ([]holiday.WeeklyRule, error) {
	defer r.rlock()()

	query := `
		SELECT id, weekday, starts_on, ends_on, enforced_from, enforced_to, created_by, created_at
		FROM weekly_holidays
		ORDER BY enforced_from ASC, weekday ASC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query weekly rules: %w", err)
	}
	defer rows.Close()

	var rules []holiday.WeeklyRule
	for rows.Next() {
		w, err := scanWeeklyRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, w)
	}
	return rules, rows.Err()
}

func (r holidayRepo) DeleteWeeklyRule(ctx context.Context, id string) error {
	defer r.lock()()

	res, err := r.db.ExecContext(ctx, `DELETE FROM weekly_holidays WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete weekly rule: %w", err)
	}
	return expectOneRow(res)
}

func scanWeeklyRule(row scanner) (holiday.WeeklyRule, error) {
	var (
		w                               holiday.WeeklyRule
		startsOn, enforcedFrom, created string
		endsOn, enforcedTo              sql.NullString
	)
	if err := row.Scan(&w.ID, &w.Weekday, &startsOn, &endsOn, &enforcedFrom, &enforcedTo, &w.CreatedBy, &created); err != nil {
		return w, err
	}
	var err error
	if w.StartsOn, err = generic.ParseDate(startsOn); err != nil {
		return w, err
	}
	if w.EndsOn, err = parseNullDate(endsOn); err != nil {
		return w, err
	}
	if w.EnforcedFrom, err = generic.ParseDate(enforcedFrom); err != nil {
		return w, err
	}
	if w.EnforcedTo, err = parseNullDate(enforcedTo); err != nil {
		return w, err
	}
	if w.CreatedAt, err = parseInstant(created); err != nil {
		return w, err
	}
	return w, nil
}

// -----------------------------------------------------------------------------
// Exceptions
// -----------------------------------------------------------------------------

const exceptionColumns = `id, user_id, date, is_holiday_override, reason, created_by, created_at`

func (r holidayRepo) SaveException(ctx context.Context, e holiday.Exception) error {
	defer r.lock()()

	query := `
		INSERT INTO holiday_exceptions (` + exceptionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		e.ID, e.UserID, e.Date.String(), e.Override, e.Reason, e.CreatedBy, formatInstant(e.CreatedAt))
	if err != nil {
		if isUniqueConstraintError(err) {
			return generic.ErrDuplicate
		}
		return fmt.Errorf("failed to save holiday exception: %w", err)
	}
	return nil
}

func (r holidayRepo) FindException(ctx context.Context, userID string, date generic.Date) (*holiday.Exception, error) {
	defer r.rlock()()

	row := r.db.QueryRowContext(ctx,
		`SELECT `+exceptionColumns+` FROM holiday_exceptions WHERE user_id = ? AND date = ?`,
		userID, date.String())
	e, err := scanException(row)
	if noRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find holiday exception: %w", err)
	}
	return &e, nil
}

func (r holidayRepo) ListExceptions(ctx context.Context, userID string, from, to *generic.Date) ([]holiday.Exception, error) {
	defer r.rlock()()

	query := `SELECT ` + exceptionColumns + ` FROM holiday_exceptions WHERE user_id = ?`
	args := []any{userID}
	if from != nil {
		query += ` AND date >= ?`
		args = append(args, from.String())
	}
	if to != nil {
		query += ` AND date <= ?`
		args = append(args, to.String())
	}
	query += ` ORDER BY date ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query holiday exceptions: %w", err)
	}
	defer rows.Close()

	var list []holiday.Exception
	for rows.Next() {
		e, err := scanException(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, rows.Err()
}

func (r holidayRepo) ListExceptionsBetween(ctx context.Context, userID string, from, to generic.Date) ([]holiday.Exception, error) {
	return r.ListExceptions(ctx, userID, &from, &to)
}

func (r holidayRepo) DeleteException(ctx context.Context, userID, id string) error {
	defer r.lock()()

	res, err := r.db.ExecContext(ctx, `DELETE FROM holiday_exceptions WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete holiday exception: %w", err)
	}
	return expectOneRow(res)
}

func scanException(row scanner) (holiday.Exception, error) {
	var (
		e                holiday.Exception
		dateStr, created string
	)
	if err := row.Scan(&e.ID, &e.UserID, &dateStr, &e.Override, &e.Reason, &e.CreatedBy, &created); err != nil {
		return e, err
	}
	var err error
	if e.Date, err = generic.ParseDate(dateStr); err != nil {
		return e, err
	}
	if e.CreatedAt, err = parseInstant(created); err != nil {
		return e, err
	}
	return e, nil
}
