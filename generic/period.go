package generic

import "time"

// =============================================================================
// PERIOD - Inclusive range of calendar days
// =============================================================================

// Period is the inclusive day range [Start, End]. An open End is expressed
// with OpenPeriod instead of a sentinel date.
type Period struct {
	Start Date
	End   Date
}

// MonthPeriod returns the first and last day of a calendar month.
func MonthPeriod(year int, month time.Month) (Period, error) {
	if month < time.January || month > time.December {
		return Period{}, BadRequest("month must be between 1 and 12")
	}
	if year < 1 || year > 9999 {
		return Period{}, BadRequest("year must be between 1 and 9999")
	}
	return Period{Start: StartOfMonth(year, month), End: EndOfMonth(year, month)}, nil
}

// Contains returns true if the day is within the period [Start, End].
func (p Period) Contains(d Date) bool {
	return d.AfterOrEqual(p.Start) && d.BeforeOrEqual(p.End)
}

// Days returns all days in the period.
func (p Period) Days() []Date {
	var days []Date
	for current := p.Start; current.BeforeOrEqual(p.End); current = current.AddDays(1) {
		days = append(days, current)
	}
	return days
}

// Occurrences returns each day of the period that falls on the given weekday.
func (p Period) Occurrences(wd time.Weekday) []Date {
	offset := (int(wd) - int(p.Start.Weekday()) + 7) % 7
	var days []Date
	for current := p.Start.AddDays(offset); current.BeforeOrEqual(p.End); current = current.AddDays(7) {
		days = append(days, current)
	}
	return days
}

func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}

// =============================================================================
// OPEN PERIOD - Range whose end may be absent
// =============================================================================

// OpenPeriod is [From, To] where a nil To extends forever.
type OpenPeriod struct {
	From Date
	To   *Date
}

func (p OpenPeriod) Contains(d Date) bool {
	if d.Before(p.From) {
		return false
	}
	return p.To == nil || d.BeforeOrEqual(*p.To)
}

// Overlaps returns true if any day of the closed period lies inside p.
func (p OpenPeriod) Overlaps(other Period) bool {
	if other.End.Before(p.From) {
		return false
	}
	return p.To == nil || other.Start.BeforeOrEqual(*p.To)
}
