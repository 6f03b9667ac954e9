package generic_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/attendance-engine/generic"
)

func TestDate_WeekdayIndex_IsMondayBased(t *testing.T) {
	// 2025-01-06 is a Monday, 2025-01-12 is a Sunday
	for i := 0; i < 7; i++ {
		d := generic.NewDate(2025, time.January, 6+i)
		assert.Equal(t, i, d.WeekdayIndex(), d.String())
	}
}

func TestDate_NewDateNormalizesOverflow(t *testing.T) {
	assert.Equal(t, generic.Date{Year: 2025, Month: time.March, Day: 1}, generic.NewDate(2025, time.February, 29))
	assert.Equal(t, generic.NewDate(2024, time.February, 29), generic.EndOfMonth(2024, time.February))
}

func TestDate_JSONRoundTrip(t *testing.T) {
	d := generic.NewDate(2025, time.January, 8)
	data, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `"2025-01-08"`, string(data))

	var back generic.Date
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, d, back)

	assert.Error(t, json.Unmarshal([]byte(`"08/01/2025"`), &back))
}

func TestLocalTime_ParseAcceptedLayouts(t *testing.T) {
	want := generic.NewLocalTime(2025, time.January, 10, 9, 0, 0)

	for _, input := range []string{
		"2025-01-10T09:00:00",
		"2025-01-10 09:00:00",
		"2025-01-10T09:00",
		"2025-01-10T09:00:00+09:00",
	} {
		got, err := generic.ParseLocalTime(input)
		require.NoError(t, err, input)
		assert.True(t, want.Equal(got), input)
	}

	_, err := generic.ParseLocalTime("yesterday")
	assert.Error(t, err)
}

func TestLocalTime_DropsZoneKeepsWallClock(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*3600)
	lt := generic.LocalTimeOf(time.Date(2025, time.January, 10, 18, 30, 0, 0, tokyo))

	assert.Equal(t, "2025-01-10T18:30:00", lt.String())
	assert.Equal(t, generic.NewDate(2025, time.January, 10), lt.Date())
}

func TestLocalTimePtrEqual(t *testing.T) {
	a := generic.NewLocalTime(2025, time.January, 10, 9, 0, 0)
	b := generic.NewLocalTime(2025, time.January, 10, 9, 0, 0)
	c := generic.NewLocalTime(2025, time.January, 10, 9, 0, 1)

	assert.True(t, generic.LocalTimePtrEqual(nil, nil))
	assert.True(t, generic.LocalTimePtrEqual(&a, &b))
	assert.False(t, generic.LocalTimePtrEqual(&a, nil))
	assert.False(t, generic.LocalTimePtrEqual(&a, &c))
}

func TestCompareSpan_StartThenEndWithOpenLast(t *testing.T) {
	noon := generic.NewLocalTime(2025, time.January, 10, 12, 0, 0)
	half := generic.NewLocalTime(2025, time.January, 10, 12, 30, 0)
	one := generic.NewLocalTime(2025, time.January, 10, 13, 0, 0)

	assert.Equal(t, -1, generic.CompareSpan(noon, &one, half, nil))
	assert.Equal(t, -1, generic.CompareSpan(noon, &half, noon, &one))
	assert.Equal(t, 1, generic.CompareSpan(noon, nil, noon, &one))
	assert.Equal(t, -1, generic.CompareSpan(noon, &one, noon, nil))
	assert.Equal(t, 0, generic.CompareSpan(noon, nil, noon, nil))
	assert.Equal(t, 0, generic.CompareSpan(noon, &half, noon, &half))
}

func TestPeriod_Occurrences(t *testing.T) {
	// GIVEN: January 2025 (starts on a Wednesday)
	month, err := generic.MonthPeriod(2025, time.January)
	require.NoError(t, err)

	// WHEN: Listing Wednesdays
	wednesdays := month.Occurrences(time.Wednesday)

	// THEN: 1, 8, 15, 22, 29
	require.Len(t, wednesdays, 5)
	assert.Equal(t, generic.NewDate(2025, time.January, 1), wednesdays[0])
	assert.Equal(t, generic.NewDate(2025, time.January, 29), wednesdays[4])

	mondays := month.Occurrences(time.Monday)
	require.Len(t, mondays, 4)
	assert.Equal(t, generic.NewDate(2025, time.January, 6), mondays[0])
}

func TestMonthPeriod_InvalidMonth(t *testing.T) {
	_, err := generic.MonthPeriod(2025, time.Month(13))
	assert.ErrorIs(t, err, generic.ErrBadRequest)

	_, err = generic.MonthPeriod(2025, time.Month(0))
	assert.ErrorIs(t, err, generic.ErrBadRequest)
}

func TestOpenPeriod_ContainsAndOverlaps(t *testing.T) {
	end := generic.NewDate(2025, time.January, 31)
	closed := generic.OpenPeriod{From: generic.NewDate(2025, time.January, 1), To: &end}
	open := generic.OpenPeriod{From: generic.NewDate(2025, time.January, 1)}

	assert.True(t, closed.Contains(end))
	assert.False(t, closed.Contains(end.AddDays(1)))
	assert.True(t, open.Contains(generic.NewDate(2030, time.June, 1)))
	assert.False(t, open.Contains(generic.NewDate(2024, time.December, 31)))

	feb, _ := generic.MonthPeriod(2025, time.February)
	assert.False(t, closed.Overlaps(feb))
	assert.True(t, open.Overlaps(feb))
}
