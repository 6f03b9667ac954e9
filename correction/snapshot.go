package correction

import (
	"encoding/json"
	"sort"

	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/generic"
)

// =============================================================================
// SNAPSHOT - Immutable capture of one attendance day
// =============================================================================

// BreakItem is one break inside a snapshot.
type BreakItem struct {
	Start generic.LocalTime  `json:"break_start_time"`
	End   *generic.LocalTime `json:"break_end_time"`
}

func (b BreakItem) Equal(other BreakItem) bool {
	return b.Start.Equal(other.Start) && generic.LocalTimePtrEqual(b.End, other.End)
}

// sortBreakItems orders items by start, then end with an open break last.
func sortBreakItems(items []BreakItem) {
	sort.SliceStable(items, func(i, j int) bool {
		return generic.CompareSpan(items[i].Start, items[i].End, items[j].Start, items[j].End) < 0
	})
}

// Snapshot is the clock-in/out and break set of a day. Its JSON shape is
// stored verbatim and must stay stable:
//
//	{"clock_in_time": ts|null, "clock_out_time": ts|null,
//	 "breaks": [{"break_start_time": ts, "break_end_time": ts|null}]}
type Snapshot struct {
	ClockIn  *generic.LocalTime `json:"clock_in_time"`
	ClockOut *generic.LocalTime `json:"clock_out_time"`
	Breaks   []BreakItem        `json:"breaks"`
}

// BuildSnapshot captures the attendance and its breaks, ordered by start
// then end.
func BuildSnapshot(att attendance.Attendance, breaks []attendance.BreakRecord) Snapshot {
	items := make([]BreakItem, 0, len(breaks))
	for _, b := range breaks {
		items = append(items, BreakItem{Start: b.Start, End: b.End})
	}
	sortBreakItems(items)
	return Snapshot{ClockIn: att.ClockIn, ClockOut: att.ClockOut, Breaks: items}
}

// Equal compares field by field. A nil and an empty break list are equal.
func (s Snapshot) Equal(other Snapshot) bool {
	if !generic.LocalTimePtrEqual(s.ClockIn, other.ClockIn) ||
		!generic.LocalTimePtrEqual(s.ClockOut, other.ClockOut) ||
		len(s.Breaks) != len(other.Breaks) {
		return false
	}
	for i := range s.Breaks {
		if !s.Breaks[i].Equal(other.Breaks[i]) {
			return false
		}
	}
	return true
}

// Validate checks the temporal ordering of the snapshot. Overlap between
// breaks is not checked.
func (s Snapshot) Validate() error {
	if s.ClockIn == nil {
		return generic.BadRequest("clock_in_time is required")
	}
	clockIn := *s.ClockIn
	if s.ClockOut != nil && s.ClockOut.Before(clockIn) {
		return generic.BadRequest("clock_out_time must be later than clock_in_time")
	}
	for _, b := range s.Breaks {
		if b.End != nil && b.End.Before(b.Start) {
			return generic.BadRequest("break_end_time must be later than break_start_time")
		}
		if b.Start.Before(clockIn) {
			return generic.BadRequest("break_start_time must be later than clock_in_time")
		}
		if b.End != nil && s.ClockOut != nil && b.End.After(*s.ClockOut) {
			return generic.BadRequest("break_end_time must be earlier than clock_out_time")
		}
	}
	return nil
}

// Document encodes the snapshot in its stored form.
func (s Snapshot) Document() (json.RawMessage, error) {
	if s.Breaks == nil {
		s.Breaks = []BreakItem{}
	}
	return json.Marshal(s)
}

// ParseSnapshot decodes a stored document.
func ParseSnapshot(doc []byte) (Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(doc, &s); err != nil {
		return Snapshot{}, err
	}
	return s, nil
}

// =============================================================================
// PROPOSAL - Partial edit applied on top of a snapshot
// =============================================================================

// Proposal carries the fields the employee wants to change. A nil field
// keeps the original value. Breaks replace the whole set when non-nil, so
// an empty non-nil slice removes every break.
type Proposal struct {
	ClockIn  *generic.LocalTime
	ClockOut *generic.LocalTime
	Breaks   []BreakItem
}

// Apply returns the proposed snapshot. Proposed breaks are put in snapshot
// order so a pure reordering compares equal to the original.
func (p Proposal) Apply(original Snapshot) Snapshot {
	proposed := original
	if p.ClockIn != nil {
		proposed.ClockIn = p.ClockIn
	}
	if p.ClockOut != nil {
		proposed.ClockOut = p.ClockOut
	}
	if p.Breaks != nil {
		proposed.Breaks = append([]BreakItem{}, p.Breaks...)
		sortBreakItems(proposed.Breaks)
	}
	return proposed
}
