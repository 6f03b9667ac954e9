/*
Package holiday decides whether a day is a non-working day.

PURPOSE:
  Three rule sources feed one decision, in strict precedence order:

    1. Per-user exception     (override=true forces a holiday,
                               override=false forces a working day)
    2. Public holiday         (company wide, one per date)
    3. Weekly holiday rule    (recurring weekday inside an enforced window)

  The first source that has an opinion wins. A day nobody has an opinion
  about is a working day.

KEY TYPES:
  - Reason:        which source decided (closed set)
  - Decision:      {IsHoliday, Reason}
  - CalendarEntry: one holiday day of a month
  - PublicHoliday, WeeklyRule, Exception: the rule sources

SEE ALSO:
  - engine.go:   Decide and ListMonth
  - admin.go:    Creating and deleting rule sources
  - store.go:    Storage interfaces
*/
package holiday

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/warp/attendance-engine/generic"
)

// =============================================================================
// REASON - Which rule source decided
// =============================================================================

type Reason int

const (
	ReasonNone Reason = iota
	ReasonPublicHoliday
	ReasonWeeklyHoliday
	ReasonExceptionOverride
)

var reasonNames = map[Reason]string{
	ReasonNone:              "none",
	ReasonPublicHoliday:     "public_holiday",
	ReasonWeeklyHoliday:     "weekly_holiday",
	ReasonExceptionOverride: "exception_override",
}

func (r Reason) String() string {
	if name, ok := reasonNames[r]; ok {
		return name
	}
	return fmt.Sprintf("reason(%d)", int(r))
}

func ParseReason(s string) (Reason, error) {
	for r, name := range reasonNames {
		if name == s {
			return r, nil
		}
	}
	return ReasonNone, fmt.Errorf("unknown holiday reason %q", s)
}

func (r Reason) MarshalJSON() ([]byte, error) { return json.Marshal(r.String()) }

func (r *Reason) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseReason(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// =============================================================================
// DECISION
// =============================================================================

// Decision is the outcome for one (date, user) pair.
type Decision struct {
	IsHoliday bool
	Reason    Reason
}

var workingDay = Decision{IsHoliday: false, Reason: ReasonNone}

// Label is the human-readable name used in messages shown to employees.
func (d Decision) Label() string {
	if !d.IsHoliday {
		return "working day"
	}
	switch d.Reason {
	case ReasonPublicHoliday:
		return "public holiday"
	case ReasonWeeklyHoliday:
		return "weekly holiday"
	case ReasonExceptionOverride:
		return "forced holiday"
	}
	return "holiday"
}

// CalendarEntry is one holiday day in a month listing.
type CalendarEntry struct {
	Date   generic.Date
	Reason Reason
}

// =============================================================================
// RULE SOURCES
// =============================================================================

// PublicHoliday is a company-wide non-working date.
type PublicHoliday struct {
	ID          string
	Date        generic.Date
	Name        string
	Description string
	CreatedAt   time.Time
}

// WeeklyRule marks one weekday (0 = Monday .. 6 = Sunday) as non-working
// inside [EnforcedFrom, EnforcedTo]. StartsOn/EndsOn record what the admin
// asked for; only the enforced window drives recurrence.
type WeeklyRule struct {
	ID           string
	Weekday      int
	StartsOn     generic.Date
	EndsOn       *generic.Date
	EnforcedFrom generic.Date
	EnforcedTo   *generic.Date
	CreatedBy    string
	CreatedAt    time.Time
}

// Window returns the enforced range of the rule.
func (r WeeklyRule) Window() generic.OpenPeriod {
	return generic.OpenPeriod{From: r.EnforcedFrom, To: r.EnforcedTo}
}

// Matches returns true if the rule marks the given day as a holiday.
func (r WeeklyRule) Matches(d generic.Date) bool {
	return d.WeekdayIndex() == r.Weekday && r.Window().Contains(d)
}

// TimeWeekday converts the Monday-based index back to time.Weekday.
func (r WeeklyRule) TimeWeekday() time.Weekday {
	return time.Weekday((r.Weekday + 1) % 7)
}

// Exception overrides every other source for one user on one day.
type Exception struct {
	ID        string
	UserID    string
	Date      generic.Date
	Override  bool
	Reason    string
	CreatedBy string
	CreatedAt time.Time
}
