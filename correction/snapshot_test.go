package correction_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/correction"
	"github.com/warp/attendance-engine/generic"
)

func TestBuildSnapshot_OrdersBreaksByStart(t *testing.T) {
	in, out := at(9, 0), at(18, 0)
	snap := correction.BuildSnapshot(
		attendance.Attendance{ClockIn: &in, ClockOut: &out},
		[]attendance.BreakRecord{
			{Start: at(15, 0)},
			{Start: at(12, 0), End: ptr(at(12, 30))},
		},
	)

	require.Len(t, snap.Breaks, 2)
	assert.True(t, at(12, 0).Equal(snap.Breaks[0].Start))
	assert.Nil(t, snap.Breaks[1].End)
}

func TestBuildSnapshot_SameStartOrdersByEndWithOpenBreakLast(t *testing.T) {
	in := at(9, 0)
	att := attendance.Attendance{ClockIn: &in}
	records := []attendance.BreakRecord{
		{ID: "a", Start: at(12, 0)},
		{ID: "b", Start: at(12, 0), End: ptr(at(13, 0))},
		{ID: "c", Start: at(12, 0), End: ptr(at(12, 30))},
	}
	reversed := []attendance.BreakRecord{records[2], records[1], records[0]}

	snap := correction.BuildSnapshot(att, records)

	require.Len(t, snap.Breaks, 3)
	assert.True(t, at(12, 30).Equal(*snap.Breaks[0].End))
	assert.True(t, at(13, 0).Equal(*snap.Breaks[1].End))
	assert.Nil(t, snap.Breaks[2].End)
	assert.True(t, snap.Equal(correction.BuildSnapshot(att, reversed)), "input order does not matter")
}

func TestSnapshot_EqualTreatsNilAndEmptyBreaksAlike(t *testing.T) {
	a := correction.Snapshot{ClockIn: ptr(at(9, 0))}
	b := correction.Snapshot{ClockIn: ptr(at(9, 0)), Breaks: []correction.BreakItem{}}
	assert.True(t, a.Equal(b))

	b.ClockOut = ptr(at(18, 0))
	assert.False(t, a.Equal(b))

	c := correction.Snapshot{ClockIn: ptr(at(9, 0)), Breaks: []correction.BreakItem{{Start: at(12, 0)}}}
	d := correction.Snapshot{ClockIn: ptr(at(9, 0)), Breaks: []correction.BreakItem{{Start: at(12, 0), End: ptr(at(13, 0))}}}
	assert.False(t, c.Equal(d))
}

func TestSnapshot_Validate(t *testing.T) {
	cases := []struct {
		name string
		snap correction.Snapshot
		want string
	}{
		{
			"missing clock in",
			correction.Snapshot{ClockOut: ptr(at(18, 0))},
			"clock_in_time is required",
		},
		{
			"clock out before clock in",
			correction.Snapshot{ClockIn: ptr(at(9, 0)), ClockOut: ptr(at(8, 0))},
			"clock_out_time must be later than clock_in_time",
		},
		{
			"break ends before it starts",
			correction.Snapshot{ClockIn: ptr(at(9, 0)), Breaks: []correction.BreakItem{{Start: at(13, 0), End: ptr(at(12, 0))}}},
			"break_end_time must be later than break_start_time",
		},
		{
			"open break before clock in",
			correction.Snapshot{ClockIn: ptr(at(9, 0)), Breaks: []correction.BreakItem{{Start: at(8, 0)}}},
			"break_start_time must be later than clock_in_time",
		},
		{
			"break ends after clock out",
			correction.Snapshot{ClockIn: ptr(at(9, 0)), ClockOut: ptr(at(17, 0)), Breaks: []correction.BreakItem{{Start: at(16, 30), End: ptr(at(17, 30))}}},
			"break_end_time must be earlier than clock_out_time",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.snap.Validate()
			assert.ErrorIs(t, err, generic.ErrBadRequest)
			assert.Equal(t, tc.want, generic.MessageOf(err))
		})
	}

	valid := correction.Snapshot{
		ClockIn:  ptr(at(9, 0)),
		ClockOut: ptr(at(18, 0)),
		Breaks:   []correction.BreakItem{{Start: at(9, 0), End: ptr(at(18, 0))}, {Start: at(10, 0)}},
	}
	assert.NoError(t, valid.Validate())
}

func TestSnapshot_DocumentShape(t *testing.T) {
	doc, err := correction.Snapshot{ClockIn: ptr(at(9, 0))}.Document()
	require.NoError(t, err)
	assert.JSONEq(t, `{"clock_in_time":"2025-01-10T09:00:00","clock_out_time":null,"breaks":[]}`, string(doc))

	parsed, err := correction.ParseSnapshot(doc)
	require.NoError(t, err)
	assert.True(t, parsed.Equal(correction.Snapshot{ClockIn: ptr(at(9, 0))}))
}

func TestProposal_Apply(t *testing.T) {
	original := correction.Snapshot{
		ClockIn:  ptr(at(9, 0)),
		ClockOut: ptr(at(18, 0)),
		Breaks:   []correction.BreakItem{{Start: at(12, 0), End: ptr(at(13, 0))}},
	}

	kept := correction.Proposal{ClockIn: ptr(at(8, 30))}.Apply(original)
	assert.True(t, at(8, 30).Equal(*kept.ClockIn))
	assert.True(t, at(18, 0).Equal(*kept.ClockOut))
	assert.Len(t, kept.Breaks, 1)

	cleared := correction.Proposal{Breaks: []correction.BreakItem{}}.Apply(original)
	assert.Empty(t, cleared.Breaks)
	assert.Len(t, original.Breaks, 1, "original is not modified")

	proposed := []correction.BreakItem{{Start: at(15, 0)}, {Start: at(12, 0), End: ptr(at(12, 45))}}
	sorted := correction.Proposal{Breaks: proposed}.Apply(original)
	require.Len(t, sorted.Breaks, 2)
	assert.True(t, at(12, 0).Equal(sorted.Breaks[0].Start))
	assert.True(t, at(15, 0).Equal(proposed[0].Start), "caller's slice is not reordered")
}
