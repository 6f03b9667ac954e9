package generic

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// DATE - Calendar day without a time zone
// =============================================================================

// DateLayout is the wire and storage format of a Date.
const DateLayout = "2006-01-02"

// Date is a calendar day. It is comparable and safe to use as a map key.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate normalizes overflowing values the way time.Date does.
func NewDate(year int, month time.Month, day int) Date {
	return DateOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// DateOf returns the calendar day of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q (use YYYY-MM-DD): %w", s, err)
	}
	return DateOf(t), nil
}

// Time returns midnight UTC of the day.
func (d Date) Time() time.Time { return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC) }

// Comparison
func (d Date) Compare(other Date) int {
	switch {
	case d.Year != other.Year:
		return cmpInt(d.Year, other.Year)
	case d.Month != other.Month:
		return cmpInt(int(d.Month), int(other.Month))
	default:
		return cmpInt(d.Day, other.Day)
	}
}
func (d Date) Before(other Date) bool        { return d.Compare(other) < 0 }
func (d Date) After(other Date) bool         { return d.Compare(other) > 0 }
func (d Date) Equal(other Date) bool         { return d == other }
func (d Date) BeforeOrEqual(other Date) bool { return d.Compare(other) <= 0 }
func (d Date) AfterOrEqual(other Date) bool  { return d.Compare(other) >= 0 }

// Arithmetic
func (d Date) AddDays(n int) Date { return NewDate(d.Year, d.Month, d.Day+n) }

// Properties
func (d Date) Weekday() time.Weekday { return d.Time().Weekday() }
func (d Date) IsZero() bool          { return d == Date{} }

// WeekdayIndex numbers the week from Monday (0) to Sunday (6).
func (d Date) WeekdayIndex() int { return WeekdayIndex(d.Weekday()) }

// WeekdayIndex converts a time.Weekday to the Monday-based numbering used
// by weekly holiday rules.
func WeekdayIndex(wd time.Weekday) int { return (int(wd) + 6) % 7 }

func (d Date) String() string { return d.Time().Format(DateLayout) }

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// =============================================================================
// LOCAL TIME - Wall-clock date-time without a zone
// =============================================================================

// LocalTimeLayout is the canonical wire and storage format of a LocalTime.
const LocalTimeLayout = "2006-01-02T15:04:05"

// localTimeOutLayout keeps sub-second precision only when present.
const localTimeOutLayout = "2006-01-02T15:04:05.999999999"

var localTimeInputLayouts = []string{
	LocalTimeLayout,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	time.RFC3339Nano,
}

// LocalTime is a wall-clock timestamp. The zone is dropped on construction
// so two values with the same wall clock compare equal.
type LocalTime struct {
	t time.Time
}

func NewLocalTime(year int, month time.Month, day, hour, min, sec int) LocalTime {
	return LocalTime{t: time.Date(year, month, day, hour, min, sec, 0, time.UTC)}
}

// LocalTimeOf keeps the wall clock of t in its own location.
func LocalTimeOf(t time.Time) LocalTime {
	return LocalTime{t: time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)}
}

// ParseLocalTime accepts the canonical layout, a space separator, minute
// precision and RFC 3339 (whose offset is discarded).
func ParseLocalTime(s string) (LocalTime, error) {
	s = strings.TrimSpace(s)
	for _, layout := range localTimeInputLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return LocalTimeOf(t), nil
		}
	}
	return LocalTime{}, fmt.Errorf("invalid local time %q (use YYYY-MM-DDTHH:MM:SS)", s)
}

func (lt LocalTime) Time() time.Time { return lt.t }
func (lt LocalTime) Date() Date      { return DateOf(lt.t) }
func (lt LocalTime) IsZero() bool    { return lt.t.IsZero() }

func (lt LocalTime) Before(other LocalTime) bool       { return lt.t.Before(other.t) }
func (lt LocalTime) After(other LocalTime) bool        { return lt.t.After(other.t) }
func (lt LocalTime) Equal(other LocalTime) bool        { return lt.t.Equal(other.t) }
func (lt LocalTime) Sub(other LocalTime) time.Duration { return lt.t.Sub(other.t) }
func (lt LocalTime) Add(d time.Duration) LocalTime     { return LocalTime{t: lt.t.Add(d)} }

func (lt LocalTime) String() string { return lt.t.Format(localTimeOutLayout) }

func (lt LocalTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(lt.String())
}

func (lt *LocalTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseLocalTime(s)
	if err != nil {
		return err
	}
	*lt = parsed
	return nil
}

// LocalTimePtrEqual compares two optional timestamps; two absent values are equal.
func LocalTimePtrEqual(a, b *LocalTime) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

// CompareSpan orders two start/end pairs by start, then by end. An open end
// sorts after any closed one.
func CompareSpan(aStart LocalTime, aEnd *LocalTime, bStart LocalTime, bEnd *LocalTime) int {
	if c := aStart.t.Compare(bStart.t); c != 0 {
		return c
	}
	switch {
	case aEnd == nil && bEnd == nil:
		return 0
	case aEnd == nil:
		return 1
	case bEnd == nil:
		return -1
	}
	return aEnd.t.Compare(bEnd.t)
}

// =============================================================================
// TIME UTILITIES
// =============================================================================

func StartOfMonth(year int, month time.Month) Date { return Date{Year: year, Month: month, Day: 1} }
func EndOfMonth(year int, month time.Month) Date   { return NewDate(year, month+1, 0) }

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
