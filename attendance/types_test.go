package attendance_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/generic"
)

func lt(hour, min, sec int) generic.LocalTime {
	return generic.NewLocalTime(2025, time.January, 10, hour, min, sec)
}

func TestBreakMinutes_FloorsAndClamps(t *testing.T) {
	assert.Equal(t, int64(60), attendance.BreakMinutes(lt(12, 0, 0), lt(13, 0, 0)))
	assert.Equal(t, int64(14), attendance.BreakMinutes(lt(12, 0, 0), lt(12, 14, 59)))
	assert.Equal(t, int64(0), attendance.BreakMinutes(lt(13, 0, 0), lt(12, 0, 0)))
}

func TestSortBreaks_TotalOrder(t *testing.T) {
	end := func(h, m int) *generic.LocalTime {
		v := lt(h, m, 0)
		return &v
	}
	breaks := []attendance.BreakRecord{
		{ID: "late", Start: lt(15, 0, 0), End: end(15, 10)},
		{ID: "open", Start: lt(12, 0, 0)},
		{ID: "long", Start: lt(12, 0, 0), End: end(13, 0)},
		{ID: "short-b", Start: lt(12, 0, 0), End: end(12, 30)},
		{ID: "short-a", Start: lt(12, 0, 0), End: end(12, 30)},
	}

	attendance.SortBreaks(breaks)

	ids := make([]string, 0, len(breaks))
	for _, b := range breaks {
		ids = append(ids, b.ID)
	}
	assert.Equal(t, []string{"short-a", "short-b", "long", "open", "late"}, ids)
}

func TestWorkHours(t *testing.T) {
	cases := []struct {
		name   string
		in     generic.LocalTime
		out    generic.LocalTime
		breaks int64
		want   string
	}{
		{"full day with lunch", lt(9, 0, 0), lt(19, 0, 0), 60, "9"},
		{"quarter hours", lt(9, 0, 0), lt(17, 15, 0), 0, "8.25"},
		{"breaks exceed shift", lt(9, 0, 0), lt(10, 0, 0), 90, "0"},
		{"clock out before in", lt(10, 0, 0), lt(9, 0, 0), 0, "0"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := attendance.WorkHours(tc.in, tc.out, tc.breaks)
			assert.True(t, decimal.RequireFromString(tc.want).Equal(got), got.String())
		})
	}
}

func TestTotalBreakMinutes_SkipsOpenBreaks(t *testing.T) {
	thirty := int64(30)
	end := lt(15, 10, 0)
	breaks := []attendance.BreakRecord{
		{Start: lt(12, 0, 0), DurationMinutes: &thirty},
		{Start: lt(15, 0, 0), End: &end},
		{Start: lt(16, 0, 0)},
	}

	assert.Equal(t, int64(40), attendance.TotalBreakMinutes(breaks))
}

func TestRecalculate_ClearsWhileOpen(t *testing.T) {
	in := lt(9, 0, 0)
	a := attendance.Attendance{ClockIn: &in}
	stale := decimal.NewFromInt(3)
	a.TotalWorkHours = &stale

	a.Recalculate(nil)

	assert.Nil(t, a.TotalWorkHours)
}
