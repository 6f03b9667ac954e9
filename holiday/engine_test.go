package holiday_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/attendance-engine/generic"
	"github.com/warp/attendance-engine/holiday"
	"github.com/warp/attendance-engine/store/memory"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func date(y int, m time.Month, d int) generic.Date { return generic.NewDate(y, m, d) }

func newEngine(t *testing.T) (*holiday.Engine, holiday.Store) {
	t.Helper()
	store := memory.New().Holidays()
	return holiday.NewEngine(store), store
}

func addPublic(t *testing.T, store holiday.Store, d generic.Date, name string) {
	t.Helper()
	require.NoError(t, store.SavePublicHoliday(context.Background(), holiday.PublicHoliday{
		ID: "ph-" + d.String(), Date: d, Name: name,
	}))
}

// addWeekly stores a rule for a Monday-based weekday.
func addWeekly(t *testing.T, store holiday.Store, id string, weekday int, from generic.Date, to *generic.Date) {
	t.Helper()
	require.NoError(t, store.SaveWeeklyRule(context.Background(), holiday.WeeklyRule{
		ID: id, Weekday: weekday, StartsOn: from, EndsOn: to, EnforcedFrom: from, EnforcedTo: to, CreatedBy: "admin",
	}))
}

func addException(t *testing.T, store holiday.Store, userID string, d generic.Date, override bool) {
	t.Helper()
	require.NoError(t, store.SaveException(context.Background(), holiday.Exception{
		ID: "exc-" + userID + "-" + d.String(), UserID: userID, Date: d, Override: override, CreatedBy: "admin",
	}))
}

// =============================================================================
// DECIDE
// =============================================================================

func TestDecide_NoSources_IsWorkingDay(t *testing.T) {
	engine, _ := newEngine(t)

	decision, err := engine.Decide(context.Background(), date(2025, time.January, 8), "u1")

	require.NoError(t, err)
	assert.Equal(t, holiday.Decision{IsHoliday: false, Reason: holiday.ReasonNone}, decision)
	assert.Equal(t, "working day", decision.Label())
}

func TestDecide_WeeklyRuleOnWednesday(t *testing.T) {
	// GIVEN: Wednesday (weekday 2) is a holiday from 2025-01-01, open ended
	engine, store := newEngine(t)
	addWeekly(t, store, "wed", 2, date(2025, time.January, 1), nil)

	// WHEN: Deciding 2025-01-08 (a Wednesday) without a user
	decision, err := engine.Decide(context.Background(), date(2025, time.January, 8), "")

	// THEN: Weekly holiday
	require.NoError(t, err)
	assert.Equal(t, holiday.Decision{IsHoliday: true, Reason: holiday.ReasonWeeklyHoliday}, decision)

	// Thursday is not
	decision, err = engine.Decide(context.Background(), date(2025, time.January, 9), "")
	require.NoError(t, err)
	assert.False(t, decision.IsHoliday)
}

func TestDecide_WeeklyRuleRespectsEnforcedWindow(t *testing.T) {
	engine, store := newEngine(t)
	end := date(2025, time.January, 31)
	addWeekly(t, store, "wed", 2, date(2025, time.January, 8), &end)

	cases := []struct {
		day  generic.Date
		want bool
	}{
		{date(2025, time.January, 1), false},  // before enforced_from
		{date(2025, time.January, 8), true},   // first day
		{date(2025, time.January, 29), true},  // last Wednesday inside
		{date(2025, time.February, 5), false}, // after enforced_to
	}
	for _, tc := range cases {
		decision, err := engine.Decide(context.Background(), tc.day, "")
		require.NoError(t, err)
		assert.Equal(t, tc.want, decision.IsHoliday, tc.day.String())
	}
}

func TestDecide_PublicHolidayBeatsWeeklyRule(t *testing.T) {
	engine, store := newEngine(t)
	addWeekly(t, store, "wed", 2, date(2025, time.January, 1), nil)
	addPublic(t, store, date(2025, time.January, 1), "New Year")

	decision, err := engine.Decide(context.Background(), date(2025, time.January, 1), "u1")

	require.NoError(t, err)
	assert.Equal(t, holiday.Decision{IsHoliday: true, Reason: holiday.ReasonPublicHoliday}, decision)
	assert.Equal(t, "public holiday", decision.Label())
}

func TestDecide_ExceptionOverridesEverything(t *testing.T) {
	// GIVEN: 2025-01-01 is a public holiday and a weekly holiday,
	// but u1 has a working-day exception
	engine, store := newEngine(t)
	addWeekly(t, store, "wed", 2, date(2025, time.January, 1), nil)
	addPublic(t, store, date(2025, time.January, 1), "New Year")
	addException(t, store, "u1", date(2025, time.January, 1), false)

	// WHEN: Deciding for u1
	decision, err := engine.Decide(context.Background(), date(2025, time.January, 1), "u1")

	// THEN: Working day, decided by the exception
	require.NoError(t, err)
	assert.Equal(t, holiday.Decision{IsHoliday: false, Reason: holiday.ReasonExceptionOverride}, decision)

	// Other users still get the public holiday
	decision, err = engine.Decide(context.Background(), date(2025, time.January, 1), "u2")
	require.NoError(t, err)
	assert.Equal(t, holiday.ReasonPublicHoliday, decision.Reason)
}

func TestDecide_ForcedHolidayException(t *testing.T) {
	engine, store := newEngine(t)
	addException(t, store, "u1", date(2025, time.January, 9), true)

	decision, err := engine.Decide(context.Background(), date(2025, time.January, 9), "u1")

	require.NoError(t, err)
	assert.Equal(t, holiday.Decision{IsHoliday: true, Reason: holiday.ReasonExceptionOverride}, decision)
	assert.Equal(t, "forced holiday", decision.Label())
}

func TestDecide_EmptyUserIgnoresExceptions(t *testing.T) {
	engine, store := newEngine(t)
	addException(t, store, "u1", date(2025, time.January, 9), true)

	decision, err := engine.Decide(context.Background(), date(2025, time.January, 9), "")

	require.NoError(t, err)
	assert.False(t, decision.IsHoliday)
}

// failingReader fails every read.
type failingReader struct{ err error }

func (f failingReader) FindException(context.Context, string, generic.Date) (*holiday.Exception, error) {
	return nil, f.err
}
func (f failingReader) FindPublicHoliday(context.Context, generic.Date) (*holiday.PublicHoliday, error) {
	return nil, f.err
}
func (f failingReader) ListWeeklyRules(context.Context) ([]holiday.WeeklyRule, error) {
	return nil, f.err
}
func (f failingReader) ListPublicHolidaysBetween(context.Context, generic.Date, generic.Date) ([]holiday.PublicHoliday, error) {
	return nil, f.err
}
func (f failingReader) ListExceptionsBetween(context.Context, string, generic.Date, generic.Date) ([]holiday.Exception, error) {
	return nil, f.err
}

func TestDecide_StoreFailureIsInternal(t *testing.T) {
	boom := errors.New("connection reset")
	engine := holiday.NewEngine(failingReader{err: boom})

	_, err := engine.Decide(context.Background(), date(2025, time.January, 8), "u1")

	assert.ErrorIs(t, err, generic.ErrInternal)
	assert.ErrorIs(t, err, boom)

	_, err = engine.ListMonth(context.Background(), 2025, time.January, "u1")
	assert.ErrorIs(t, err, generic.ErrInternal)
}

// =============================================================================
// LIST MONTH
// =============================================================================

func TestListMonth_WeeklyRuleMaterializesEveryOccurrence(t *testing.T) {
	// GIVEN: Wednesday holiday from 2025-01-01
	engine, store := newEngine(t)
	addWeekly(t, store, "wed", 2, date(2025, time.January, 1), nil)

	// WHEN: Listing January 2025
	entries, err := engine.ListMonth(context.Background(), 2025, time.January, "")

	// THEN: 1, 8, 15, 22, 29
	require.NoError(t, err)
	require.Len(t, entries, 5)
	for i, day := range []int{1, 8, 15, 22, 29} {
		assert.Equal(t, date(2025, time.January, day), entries[i].Date)
		assert.Equal(t, holiday.ReasonWeeklyHoliday, entries[i].Reason)
	}
}

func TestListMonth_ExceptionsAddAndRemoveDates(t *testing.T) {
	// GIVEN: Wednesdays off, public holiday on the 1st,
	// u1 works on the 8th and has a forced holiday on the 10th
	engine, store := newEngine(t)
	addWeekly(t, store, "wed", 2, date(2025, time.January, 1), nil)
	addPublic(t, store, date(2025, time.January, 1), "New Year")
	addException(t, store, "u1", date(2025, time.January, 8), false)
	addException(t, store, "u1", date(2025, time.January, 10), true)

	// WHEN: Listing January for u1
	entries, err := engine.ListMonth(context.Background(), 2025, time.January, "u1")
	require.NoError(t, err)

	// THEN: Ascending, unique, winner-tagged
	want := []holiday.CalendarEntry{
		{Date: date(2025, time.January, 1), Reason: holiday.ReasonPublicHoliday},
		{Date: date(2025, time.January, 10), Reason: holiday.ReasonExceptionOverride},
		{Date: date(2025, time.January, 15), Reason: holiday.ReasonWeeklyHoliday},
		{Date: date(2025, time.January, 22), Reason: holiday.ReasonWeeklyHoliday},
		{Date: date(2025, time.January, 29), Reason: holiday.ReasonWeeklyHoliday},
	}
	assert.Equal(t, want, entries)
}

func TestListMonth_AgreesWithDecideForEveryDay(t *testing.T) {
	engine, store := newEngine(t)
	end := date(2025, time.March, 19)
	addWeekly(t, store, "wed", 2, date(2025, time.February, 12), &end)
	addWeekly(t, store, "sun", 6, date(2025, time.January, 1), nil)
	addPublic(t, store, date(2025, time.March, 3), "Spring Day")
	addException(t, store, "u1", date(2025, time.March, 9), false)
	addException(t, store, "u1", date(2025, time.March, 11), true)

	entries, err := engine.ListMonth(context.Background(), 2025, time.March, "u1")
	require.NoError(t, err)

	listed := make(map[generic.Date]holiday.Reason)
	for i, e := range entries {
		if i > 0 {
			assert.True(t, entries[i-1].Date.Before(e.Date), "entries must be strictly ascending")
		}
		listed[e.Date] = e.Reason
	}

	month, err := generic.MonthPeriod(2025, time.March)
	require.NoError(t, err)
	for _, d := range month.Days() {
		decision, err := engine.Decide(context.Background(), d, "u1")
		require.NoError(t, err)
		reason, ok := listed[d]
		assert.Equal(t, decision.IsHoliday, ok, d.String())
		if ok {
			assert.Equal(t, decision.Reason, reason, d.String())
		}
	}
}

func TestListMonth_InvalidMonthIsBadRequest(t *testing.T) {
	engine, _ := newEngine(t)

	_, err := engine.ListMonth(context.Background(), 2025, time.Month(13), "")

	assert.ErrorIs(t, err, generic.ErrBadRequest)
}

func TestReason_ParseIsExact(t *testing.T) {
	r, err := holiday.ParseReason("weekly_holiday")
	require.NoError(t, err)
	assert.Equal(t, holiday.ReasonWeeklyHoliday, r)

	_, err = holiday.ParseReason("Weekly_Holiday")
	assert.Error(t, err)
}
