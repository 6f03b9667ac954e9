package attendance

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/warp/attendance-engine/generic"
	"github.com/warp/attendance-engine/holiday"
)

// HolidayDecider is the part of the holiday engine the clock needs.
type HolidayDecider interface {
	Decide(ctx context.Context, date generic.Date, userID string) (holiday.Decision, error)
}

// Clock states reported by Status.
const (
	ClockNotStarted = "not_started"
	ClockClockedIn  = "clocked_in"
	ClockOnBreak    = "on_break"
	ClockClockedOut = "clocked_out"
)

// StatusView is the clock state of one day.
type StatusView struct {
	Date          generic.Date
	State         string
	AttendanceID  string
	ActiveBreakID string
	ClockIn       *generic.LocalTime
	ClockOut      *generic.LocalTime
}

// =============================================================================
// SERVICE
// =============================================================================

// Service runs the clock-in/out and break operations for the acting user.
type Service struct {
	store    Store
	holidays HolidayDecider
	log      logrus.FieldLogger

	// Now is the wall clock in the company time zone. Timestamps keep the
	// wall-clock reading and drop the zone.
	Now func() time.Time
}

func NewService(store Store, holidays HolidayDecider, log logrus.FieldLogger) *Service {
	return &Service{store: store, holidays: holidays, log: log, Now: time.Now}
}

// ClockIn starts the day. date defaults to today.
func (s *Service) ClockIn(ctx context.Context, actor generic.Actor, date *generic.Date) (*Day, error) {
	now := s.Now()
	day := s.dayOrToday(date, now)
	if err := s.rejectIfHoliday(ctx, day, actor.UserID); err != nil {
		return nil, err
	}

	clockIn := generic.LocalTimeOf(now)
	att, err := s.store.FindByUserAndDate(ctx, actor.UserID, day)
	if err != nil {
		return nil, generic.Internal(err, "failed to load attendance")
	}

	if att != nil {
		if att.IsClockedIn() {
			return nil, generic.BadRequest("Already clocked in today")
		}
		att.ClockIn = &clockIn
		att.UpdatedAt = now.UTC()
		if err := s.store.Update(ctx, *att); err != nil {
			return nil, generic.Internal(err, "failed to update attendance")
		}
	} else {
		att = &Attendance{
			ID:        uuid.NewString(),
			UserID:    actor.UserID,
			Date:      day,
			ClockIn:   &clockIn,
			Status:    StatusPresent,
			CreatedAt: now.UTC(),
			UpdatedAt: now.UTC(),
		}
		if err := s.store.Create(ctx, *att); err != nil {
			if errors.Is(err, generic.ErrDuplicate) {
				return nil, generic.BadRequest("Already clocked in today")
			}
			return nil, generic.Internal(err, "failed to create attendance")
		}
	}

	s.log.WithFields(logrus.Fields{
		"attendance_id": att.ID,
		"user_id":       actor.UserID,
		"date":          day.String(),
	}).Info("clocked in")
	return s.loadDay(ctx, att)
}

// ClockOut ends the day and computes total work hours.
func (s *Service) ClockOut(ctx context.Context, actor generic.Actor, date *generic.Date) (*Day, error) {
	now := s.Now()
	day := s.dayOrToday(date, now)
	if err := s.rejectIfHoliday(ctx, day, actor.UserID); err != nil {
		return nil, err
	}

	att, err := s.store.FindByUserAndDate(ctx, actor.UserID, day)
	if err != nil {
		return nil, generic.Internal(err, "failed to load attendance")
	}
	if att == nil {
		return nil, generic.NotFound("No attendance record found for today")
	}
	if att.IsClockedOut() {
		return nil, generic.BadRequest("Already clocked out today")
	}
	if !att.IsClockedIn() {
		return nil, generic.BadRequest("Must clock in before clocking out")
	}

	active, err := s.store.FindActiveBreak(ctx, att.ID)
	if err != nil {
		return nil, generic.Internal(err, "failed to load breaks")
	}
	if active != nil {
		return nil, generic.BadRequest("Break in progress. End break before clocking out")
	}

	breaks, err := s.store.ListBreaks(ctx, att.ID)
	if err != nil {
		return nil, generic.Internal(err, "failed to load breaks")
	}
	clockOut := generic.LocalTimeOf(now)
	att.ClockOut = &clockOut
	att.Recalculate(breaks)
	att.UpdatedAt = now.UTC()
	if err := s.store.Update(ctx, *att); err != nil {
		return nil, generic.Internal(err, "failed to update attendance")
	}

	s.log.WithFields(logrus.Fields{
		"attendance_id": att.ID,
		"user_id":       actor.UserID,
		"hours":         att.TotalWorkHours.String(),
	}).Info("clocked out")
	return &Day{Attendance: *att, Breaks: breaks}, nil
}

// StartBreak opens a break on one of the actor's attendance records.
func (s *Service) StartBreak(ctx context.Context, actor generic.Actor, attendanceID string) (*BreakRecord, error) {
	now := s.Now()
	att, err := s.ownedAttendance(ctx, actor, attendanceID)
	if err != nil {
		return nil, err
	}
	if !att.IsClockedIn() || att.IsClockedOut() {
		return nil, generic.BadRequest("Must be clocked in to start break")
	}

	active, err := s.store.FindActiveBreak(ctx, att.ID)
	if err != nil {
		return nil, generic.Internal(err, "failed to load breaks")
	}
	if active != nil {
		return nil, generic.BadRequest("Break already in progress")
	}

	b := BreakRecord{
		ID:           uuid.NewString(),
		AttendanceID: att.ID,
		Start:        generic.LocalTimeOf(now),
		CreatedAt:    now.UTC(),
		UpdatedAt:    now.UTC(),
	}
	if err := s.store.CreateBreak(ctx, b); err != nil {
		return nil, generic.Internal(err, "failed to create break")
	}

	s.log.WithFields(logrus.Fields{"attendance_id": att.ID, "break_id": b.ID}).Info("break started")
	return &b, nil
}

// EndBreak closes a break. Work hours are recomputed when the day is
// already clocked out.
func (s *Service) EndBreak(ctx context.Context, actor generic.Actor, breakID string) (*BreakRecord, error) {
	now := s.Now()
	b, err := s.store.FindBreak(ctx, breakID)
	if err != nil {
		return nil, generic.Internal(err, "failed to load break")
	}
	if b == nil {
		return nil, generic.NotFound("break record not found")
	}
	if !b.IsActive() {
		return nil, generic.BadRequest("Break already ended")
	}
	att, err := s.ownedAttendance(ctx, actor, b.AttendanceID)
	if err != nil {
		return nil, err
	}

	b.Close(generic.LocalTimeOf(now), now.UTC())
	if err := s.store.UpdateBreak(ctx, *b); err != nil {
		return nil, generic.Internal(err, "failed to update break")
	}

	if att.IsClockedOut() {
		breaks, err := s.store.ListBreaks(ctx, att.ID)
		if err != nil {
			return nil, generic.Internal(err, "failed to load breaks")
		}
		att.Recalculate(breaks)
		att.UpdatedAt = now.UTC()
		if err := s.store.Update(ctx, *att); err != nil {
			return nil, generic.Internal(err, "failed to update attendance")
		}
	}

	s.log.WithFields(logrus.Fields{
		"attendance_id": att.ID,
		"break_id":      b.ID,
		"minutes":       *b.DurationMinutes,
	}).Info("break ended")
	return b, nil
}

// Get returns the actor's attendance for a day.
func (s *Service) Get(ctx context.Context, actor generic.Actor, date generic.Date) (*Day, error) {
	att, err := s.store.FindByUserAndDate(ctx, actor.UserID, date)
	if err != nil {
		return nil, generic.Internal(err, "failed to load attendance")
	}
	if att == nil {
		return nil, generic.NotFound("attendance record not found")
	}
	return s.loadDay(ctx, att)
}

// Status reports where the actor is in the clock cycle. date defaults to today.
func (s *Service) Status(ctx context.Context, actor generic.Actor, date *generic.Date) (StatusView, error) {
	day := s.dayOrToday(date, s.Now())
	view := StatusView{Date: day, State: ClockNotStarted}

	att, err := s.store.FindByUserAndDate(ctx, actor.UserID, day)
	if err != nil {
		return view, generic.Internal(err, "failed to load attendance")
	}
	if att == nil {
		return view, nil
	}
	view.AttendanceID = att.ID
	view.ClockIn = att.ClockIn
	view.ClockOut = att.ClockOut

	switch {
	case att.IsClockedOut():
		view.State = ClockClockedOut
	case att.IsClockedIn():
		active, err := s.store.FindActiveBreak(ctx, att.ID)
		if err != nil {
			return view, generic.Internal(err, "failed to load breaks")
		}
		if active != nil {
			view.State = ClockOnBreak
			view.ActiveBreakID = active.ID
		} else {
			view.State = ClockClockedIn
		}
	}
	return view, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func (s *Service) dayOrToday(date *generic.Date, now time.Time) generic.Date {
	if date != nil {
		return *date
	}
	return generic.DateOf(now)
}

func (s *Service) rejectIfHoliday(ctx context.Context, date generic.Date, userID string) error {
	decision, err := s.holidays.Decide(ctx, date, userID)
	if err != nil {
		return err
	}
	if decision.IsHoliday {
		return generic.Forbidden("%s is a %s. Submit an overtime request before clocking in/out.", date, decision.Label())
	}
	return nil
}

func (s *Service) ownedAttendance(ctx context.Context, actor generic.Actor, id string) (*Attendance, error) {
	att, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, generic.Internal(err, "failed to load attendance")
	}
	if att == nil {
		return nil, generic.NotFound("attendance record not found")
	}
	if !actor.Owns(att.UserID) {
		return nil, generic.Forbidden("attendance record belongs to another user")
	}
	return att, nil
}

func (s *Service) loadDay(ctx context.Context, att *Attendance) (*Day, error) {
	breaks, err := s.store.ListBreaks(ctx, att.ID)
	if err != nil {
		return nil, generic.Internal(err, "failed to load breaks")
	}
	return &Day{Attendance: *att, Breaks: breaks}, nil
}
