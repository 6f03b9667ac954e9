package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/correction"
	"github.com/warp/attendance-engine/generic"
	"github.com/warp/attendance-engine/holiday"
	"github.com/warp/attendance-engine/store/sqlite"
)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func lt(hour, min int) generic.LocalTime {
	return generic.NewLocalTime(2025, time.January, 10, hour, min, 0)
}

func ltp(hour, min int) *generic.LocalTime {
	v := lt(hour, min)
	return &v
}

var day = generic.NewDate(2025, time.January, 10)

func seedDay(t *testing.T, store *sqlite.Store) attendance.Attendance {
	t.Helper()
	ctx := context.Background()
	hours := decimal.RequireFromString("8")
	att := attendance.Attendance{
		ID:             "att-1",
		UserID:         "u1",
		Date:           day,
		ClockIn:        ltp(9, 0),
		ClockOut:       ltp(18, 0),
		Status:         attendance.StatusPresent,
		TotalWorkHours: &hours,
		CreatedAt:      time.Date(2025, time.January, 10, 9, 0, 0, 0, time.UTC),
		UpdatedAt:      time.Date(2025, time.January, 10, 18, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.Attendance().Create(ctx, att))
	minutes := int64(60)
	require.NoError(t, store.Attendance().CreateBreak(ctx, attendance.BreakRecord{
		ID: "br-1", AttendanceID: "att-1", Start: lt(12, 0), End: ltp(13, 0), DurationMinutes: &minutes,
	}))
	return att
}

// =============================================================================
// HOLIDAYS
// =============================================================================

func TestSQLite_Holidays_RoundTripAndUniqueness(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	holidays := store.Holidays()
	newYear := generic.NewDate(2025, time.January, 1)

	require.NoError(t, holidays.SavePublicHoliday(ctx, holiday.PublicHoliday{ID: "h1", Date: newYear, Name: "New Year"}))
	err := holidays.SavePublicHoliday(ctx, holiday.PublicHoliday{ID: "h2", Date: newYear, Name: "Again"})
	assert.ErrorIs(t, err, generic.ErrDuplicate)

	found, err := holidays.FindPublicHoliday(ctx, newYear)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "New Year", found.Name)

	missing, err := holidays.FindPublicHoliday(ctx, newYear.AddDays(1))
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, holidays.DeletePublicHoliday(ctx, "h1"))
	assert.ErrorIs(t, holidays.DeletePublicHoliday(ctx, "h1"), generic.ErrNotFound)
}

func TestSQLite_Holidays_WeeklyRulesKeepOpenEnds(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	end := generic.NewDate(2025, time.March, 31)

	require.NoError(t, store.Holidays().SaveWeeklyRule(ctx, holiday.WeeklyRule{
		ID: "w1", Weekday: 2, StartsOn: day, EnforcedFrom: day, CreatedBy: "admin",
	}))
	require.NoError(t, store.Holidays().SaveWeeklyRule(ctx, holiday.WeeklyRule{
		ID: "w2", Weekday: 5, StartsOn: day.AddDays(-5), EndsOn: &end, EnforcedFrom: day.AddDays(-5), EnforcedTo: &end, CreatedBy: "admin",
	}))

	rules, err := store.Holidays().ListWeeklyRules(ctx)
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, "w2", rules[0].ID, "ordered by enforced_from")
	require.NotNil(t, rules[0].EnforcedTo)
	assert.Equal(t, end, *rules[0].EnforcedTo)
	assert.Nil(t, rules[1].EndsOn)
	assert.Nil(t, rules[1].EnforcedTo)
}

func TestSQLite_Holidays_EngineOverSQLite(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	wednesday := generic.NewDate(2025, time.January, 8)
	require.NoError(t, store.Holidays().SaveWeeklyRule(ctx, holiday.WeeklyRule{
		ID: "wed", Weekday: 2, StartsOn: generic.NewDate(2025, time.January, 1), EnforcedFrom: generic.NewDate(2025, time.January, 1), CreatedBy: "admin",
	}))
	require.NoError(t, store.Holidays().SaveException(ctx, holiday.Exception{
		ID: "e1", UserID: "u1", Date: wednesday, Override: false, Reason: "on call", CreatedBy: "admin",
	}))
	err := store.Holidays().SaveException(ctx, holiday.Exception{ID: "e2", UserID: "u1", Date: wednesday, CreatedBy: "admin"})
	assert.ErrorIs(t, err, generic.ErrDuplicate)

	engine := holiday.NewEngine(store.Holidays())

	decision, err := engine.Decide(ctx, wednesday, "u1")
	require.NoError(t, err)
	assert.Equal(t, holiday.Decision{IsHoliday: false, Reason: holiday.ReasonExceptionOverride}, decision)

	entries, err := engine.ListMonth(ctx, 2025, time.January, "u1")
	require.NoError(t, err)
	assert.Len(t, entries, 4, "Jan 8 is worked, leaving 1, 15, 22, 29")

	assert.ErrorIs(t, store.Holidays().DeleteException(ctx, "u2", "e1"), generic.ErrNotFound)
}

// =============================================================================
// ATTENDANCE
// =============================================================================

func TestSQLite_Attendance_RoundTrip(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	seedDay(t, store)

	got, err := store.Attendance().FindByUserAndDate(ctx, "u1", day)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "att-1", got.ID)
	assert.True(t, lt(9, 0).Equal(*got.ClockIn))
	assert.True(t, decimal.RequireFromString("8").Equal(*got.TotalWorkHours))
	assert.Equal(t, attendance.StatusPresent, got.Status)

	err = store.Attendance().Create(ctx, attendance.Attendance{ID: "att-2", UserID: "u1", Date: day})
	assert.ErrorIs(t, err, generic.ErrDuplicate)

	breaks, err := store.Attendance().ListBreaks(ctx, "att-1")
	require.NoError(t, err)
	require.Len(t, breaks, 1)
	assert.Equal(t, int64(60), *breaks[0].DurationMinutes)

	active, err := store.Attendance().FindActiveBreak(ctx, "att-1")
	require.NoError(t, err)
	assert.Nil(t, active)

	assert.ErrorIs(t, store.Attendance().Update(ctx, attendance.Attendance{ID: "missing"}), generic.ErrNotFound)
}

func TestSQLite_ListBreaks_SameStartOrderedByEnd(t *testing.T) {
	// GIVEN: br-1 12:00-13:00 plus a shorter and an open break at 12:00,
	// and one starting a fraction of a second later
	store := newStore(t)
	ctx := context.Background()
	seedDay(t, store)
	later := generic.LocalTimeOf(time.Date(2025, time.January, 10, 12, 0, 0, 250_000_000, time.UTC))
	for _, b := range []attendance.BreakRecord{
		{ID: "br-0", AttendanceID: "att-1", Start: lt(12, 0)},
		{ID: "br-2", AttendanceID: "att-1", Start: lt(12, 0), End: ltp(12, 30)},
		{ID: "br-a", AttendanceID: "att-1", Start: later, End: ltp(12, 20)},
	} {
		require.NoError(t, store.Attendance().CreateBreak(ctx, b))
	}

	// WHEN: Listed
	breaks, err := store.Attendance().ListBreaks(ctx, "att-1")

	// THEN: Start, then end with the open break last
	require.NoError(t, err)
	ids := make([]string, 0, len(breaks))
	for _, b := range breaks {
		ids = append(ids, b.ID)
	}
	assert.Equal(t, []string{"br-2", "br-1", "br-0", "br-a"}, ids)
	assert.True(t, later.Equal(breaks[3].Start), "sub-second start survives storage")
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func TestSQLite_WithTx_RollsBackOnError(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	seedDay(t, store)

	boom := errors.New("boom")
	err := store.WithTx(ctx, func(uow correction.UnitOfWork) error {
		require.NoError(t, uow.Attendance().DeleteBreaksByAttendance(ctx, "att-1"))
		return boom
	})

	assert.ErrorIs(t, err, boom)
	breaks, err := store.Attendance().ListBreaks(ctx, "att-1")
	require.NoError(t, err)
	assert.Len(t, breaks, 1)
}

func TestSQLite_CorrectionApproval_EndToEnd(t *testing.T) {
	// GIVEN: A day with clock-out 18:00 and a pending request for 19:00
	store := newStore(t)
	ctx := context.Background()
	seedDay(t, store)
	logger, _ := test.NewNullLogger()
	svc := correction.NewService(store.Attendance(), store.Corrections(), store, logger)

	employee := generic.Actor{UserID: "u1", Role: generic.RoleEmployee}
	admin := generic.Actor{UserID: "admin-1", Role: generic.RoleAdmin}
	req, err := svc.Create(ctx, employee, correction.CreateInput{
		Date: day, Reason: "left late", Proposal: correction.Proposal{ClockOut: ltp(19, 0)},
	})
	require.NoError(t, err)

	// WHEN: Approved
	approved, err := svc.Approve(ctx, admin, req.ID, "ok")

	// THEN: Attendance rewritten inside the transaction
	require.NoError(t, err)
	assert.Equal(t, correction.StatusApproved, approved.Status)

	att, err := store.Attendance().FindByID(ctx, "att-1")
	require.NoError(t, err)
	assert.True(t, lt(19, 0).Equal(*att.ClockOut))
	assert.True(t, decimal.NewFromInt(9).Equal(*att.TotalWorkHours), att.TotalWorkHours.String())

	values, err := store.Corrections().ListEffectiveValues(ctx, "att-1")
	require.NoError(t, err)
	require.Len(t, values, 1)
	require.Len(t, values[0].Breaks, 1)

	// AND: The stored request reads back with its audit fields
	stored, err := store.Corrections().FindByID(ctx, req.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.ApprovedAt)
	assert.Equal(t, "admin-1", *stored.ApprovedBy)
	assert.JSONEq(t, string(req.OriginalSnapshot), string(stored.OriginalSnapshot))

	// AND: A second effective value for the same request is refused
	err = store.Corrections().SaveEffectiveValue(ctx, correction.EffectiveValue{
		SourceRequestID: req.ID, AttendanceID: "att-1", AppliedBy: "admin-1",
	})
	assert.ErrorIs(t, err, generic.ErrDuplicate)
}

func TestSQLite_Corrections_ListFiltersAndPages(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	seedDay(t, store)
	base := time.Date(2025, time.January, 11, 9, 0, 0, 0, time.UTC)

	for i, id := range []string{"r1", "r2", "r3"} {
		status := correction.StatusPending
		if id == "r1" {
			status = correction.StatusRejected
		}
		require.NoError(t, store.Corrections().Create(ctx, correction.Request{
			ID: id, UserID: "u1", AttendanceID: "att-1", Date: day, Status: status, Reason: "r",
			OriginalSnapshot: []byte(`{}`), ProposedValues: []byte(`{}`),
			CreatedAt: base.Add(time.Duration(i) * time.Hour), UpdatedAt: base,
		}))
	}

	pending := correction.StatusPending
	list, err := store.Corrections().List(ctx, correction.ListFilter{Status: &pending}.Normalize())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "r3", list[0].ID)

	page2, err := store.Corrections().List(ctx, correction.ListFilter{Page: 2, PerPage: 2})
	require.NoError(t, err)
	require.Len(t, page2, 1)
	assert.Equal(t, "r1", page2[0].ID)

	mine, err := store.Corrections().ListByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, mine, 3)

	require.NoError(t, store.Reset(ctx))
	mine, err = store.Corrections().ListByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, mine)
}

func TestSQLite_Corrections_NewestFirstWithinTheSameSecond(t *testing.T) {
	// GIVEN: Two requests created 3ms apart in the same second. The newer
	// one has the smaller ID so only created_at can put it first.
	store := newStore(t)
	ctx := context.Background()
	seedDay(t, store)
	older := time.Date(2025, time.January, 11, 10, 0, 0, 120_000_000, time.UTC)
	newer := time.Date(2025, time.January, 11, 10, 0, 0, 123_000_000, time.UTC)
	for id, created := range map[string]time.Time{"r-b": older, "r-a": newer} {
		require.NoError(t, store.Corrections().Create(ctx, correction.Request{
			ID: id, UserID: "u1", AttendanceID: "att-1", Date: day, Status: correction.StatusPending, Reason: "r",
			OriginalSnapshot: []byte(`{}`), ProposedValues: []byte(`{}`),
			CreatedAt: created, UpdatedAt: created,
		}))
	}

	// WHEN: Listed for the user and for the admin
	mine, err := store.Corrections().ListByUser(ctx, "u1")
	require.NoError(t, err)
	all, err := store.Corrections().List(ctx, correction.ListFilter{}.Normalize())
	require.NoError(t, err)

	// THEN: Newest first in both
	require.Len(t, mine, 2)
	assert.Equal(t, "r-a", mine[0].ID)
	assert.True(t, newer.Equal(mine[0].CreatedAt))
	require.Len(t, all, 2)
	assert.Equal(t, "r-a", all[0].ID)
}
