/*
Package attendance records when employees work.

PURPOSE:
  One Attendance row per (user, day) holds the clock-in/out timestamps and
  the derived total work hours. Each day owns an ordered set of breaks.
  Clock-in and clock-out are refused on holidays.

KEY TYPES:
  - Status:      present | absent | late | half_day (closed set)
  - Attendance:  the day record
  - BreakRecord: one break inside the day
  - Day:         an attendance with its breaks, the unit handed to callers

WORK HOURS:
  total = (clock_out - clock_in) - sum(break minutes)
  Each break contributes whole minutes, never negative. The total never
  drops below zero and is expressed in hours as a decimal.

SEE ALSO:
  - service.go:           Clock and break operations
  - correction/applier.go: Rewrites attendance on approved corrections
*/
package attendance

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/attendance-engine/generic"
)

// =============================================================================
// STATUS
// =============================================================================

type Status int

const (
	StatusPresent Status = iota
	StatusAbsent
	StatusLate
	StatusHalfDay
)

var statusNames = map[Status]string{
	StatusPresent: "present",
	StatusAbsent:  "absent",
	StatusLate:    "late",
	StatusHalfDay: "half_day",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status(%d)", int(s))
}

func ParseStatus(s string) (Status, error) {
	for st, name := range statusNames {
		if name == s {
			return st, nil
		}
	}
	return StatusPresent, fmt.Errorf("unknown attendance status %q", s)
}

// =============================================================================
// ATTENDANCE
// =============================================================================

type Attendance struct {
	ID             string
	UserID         string
	Date           generic.Date
	ClockIn        *generic.LocalTime
	ClockOut       *generic.LocalTime
	Status         Status
	TotalWorkHours *decimal.Decimal
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (a *Attendance) IsClockedIn() bool  { return a.ClockIn != nil }
func (a *Attendance) IsClockedOut() bool { return a.ClockOut != nil }

// Recalculate sets TotalWorkHours from the clock times and the given breaks.
// The total is cleared while the day is still open.
func (a *Attendance) Recalculate(breaks []BreakRecord) {
	if a.ClockIn == nil || a.ClockOut == nil {
		a.TotalWorkHours = nil
		return
	}
	hours := WorkHours(*a.ClockIn, *a.ClockOut, TotalBreakMinutes(breaks))
	a.TotalWorkHours = &hours
}

// =============================================================================
// BREAKS
// =============================================================================

type BreakRecord struct {
	ID              string
	AttendanceID    string
	Start           generic.LocalTime
	End             *generic.LocalTime
	DurationMinutes *int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (b *BreakRecord) IsActive() bool { return b.End == nil }

// SortBreaks orders breaks by start, then end with an open break last, then ID.
func SortBreaks(breaks []BreakRecord) {
	sort.Slice(breaks, func(i, j int) bool {
		if c := generic.CompareSpan(breaks[i].Start, breaks[i].End, breaks[j].Start, breaks[j].End); c != 0 {
			return c < 0
		}
		return breaks[i].ID < breaks[j].ID
	})
}

// Close ends the break and records its duration.
func (b *BreakRecord) Close(end generic.LocalTime, now time.Time) {
	minutes := BreakMinutes(b.Start, end)
	b.End = &end
	b.DurationMinutes = &minutes
	b.UpdatedAt = now
}

// Day is an attendance record with its breaks ordered by start time.
type Day struct {
	Attendance Attendance
	Breaks     []BreakRecord
}

// ActiveBreak returns the open break, if any.
func (d *Day) ActiveBreak() *BreakRecord {
	for i := range d.Breaks {
		if d.Breaks[i].IsActive() {
			return &d.Breaks[i]
		}
	}
	return nil
}

// =============================================================================
// WORK HOURS
// =============================================================================

// BreakMinutes is the whole number of minutes between start and end,
// never negative.
func BreakMinutes(start, end generic.LocalTime) int64 {
	minutes := int64(end.Sub(start) / time.Minute)
	if minutes < 0 {
		return 0
	}
	return minutes
}

// TotalBreakMinutes sums the closed breaks. Open breaks contribute nothing.
func TotalBreakMinutes(breaks []BreakRecord) int64 {
	var total int64
	for _, b := range breaks {
		switch {
		case b.DurationMinutes != nil:
			if *b.DurationMinutes > 0 {
				total += *b.DurationMinutes
			}
		case b.End != nil:
			total += BreakMinutes(b.Start, *b.End)
		}
	}
	return total
}

// WorkHours returns worked hours between clock-in and clock-out minus the
// break minutes, floored at zero.
func WorkHours(clockIn, clockOut generic.LocalTime, breakMinutes int64) decimal.Decimal {
	gross := int64(clockOut.Sub(clockIn) / time.Minute)
	net := gross - breakMinutes
	if net < 0 {
		net = 0
	}
	return decimal.NewFromInt(net).Div(decimal.NewFromInt(60))
}
