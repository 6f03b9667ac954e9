package holiday

import (
	"context"
	"sort"
	"time"

	"github.com/warp/attendance-engine/generic"
)

// =============================================================================
// ENGINE - Single-day decisions and month calendars
// =============================================================================

// Engine is stateless apart from its reader and safe for concurrent use.
type Engine struct {
	sources SourceReader
}

func NewEngine(sources SourceReader) *Engine {
	return &Engine{sources: sources}
}

// Decide returns the holiday decision for a day. An empty userID skips the
// exception lookup.
func (e *Engine) Decide(ctx context.Context, date generic.Date, userID string) (Decision, error) {
	if userID != "" {
		exc, err := e.sources.FindException(ctx, userID, date)
		if err != nil {
			return Decision{}, generic.Internal(err, "failed to load holiday exception")
		}
		if exc != nil {
			// Later sources cannot change the answer.
			return resolve(exc, false, nil, date), nil
		}
	}

	public, err := e.sources.FindPublicHoliday(ctx, date)
	if err != nil {
		return Decision{}, generic.Internal(err, "failed to load public holiday")
	}
	if public != nil {
		return resolve(nil, true, nil, date), nil
	}

	rules, err := e.sources.ListWeeklyRules(ctx)
	if err != nil {
		return Decision{}, generic.Internal(err, "failed to load weekly holiday rules")
	}
	return resolve(nil, false, rules, date), nil
}

// ListMonth returns every holiday day of the month in ascending order,
// each tagged with the source that won for that day.
func (e *Engine) ListMonth(ctx context.Context, year int, month time.Month, userID string) ([]CalendarEntry, error) {
	period, err := generic.MonthPeriod(year, month)
	if err != nil {
		return nil, err
	}

	publics, err := e.sources.ListPublicHolidaysBetween(ctx, period.Start, period.End)
	if err != nil {
		return nil, generic.Internal(err, "failed to load public holidays")
	}
	rules, err := e.sources.ListWeeklyRules(ctx)
	if err != nil {
		return nil, generic.Internal(err, "failed to load weekly holiday rules")
	}

	exceptions := make(map[generic.Date]*Exception)
	if userID != "" {
		list, err := e.sources.ListExceptionsBetween(ctx, userID, period.Start, period.End)
		if err != nil {
			return nil, generic.Internal(err, "failed to load holiday exceptions")
		}
		for i := range list {
			exceptions[list[i].Date] = &list[i]
		}
	}

	candidates := make(map[generic.Date]struct{})
	publicDays := make(map[generic.Date]bool, len(publics))
	for _, p := range publics {
		publicDays[p.Date] = true
		candidates[p.Date] = struct{}{}
	}
	for d := range exceptions {
		candidates[d] = struct{}{}
	}

	var active []WeeklyRule
	for _, rule := range rules {
		if !rule.Window().Overlaps(period) {
			continue
		}
		active = append(active, rule)
		for _, d := range period.Occurrences(rule.TimeWeekday()) {
			if rule.Matches(d) {
				candidates[d] = struct{}{}
			}
		}
	}

	entries := make([]CalendarEntry, 0, len(candidates))
	for d := range candidates {
		decision := resolve(exceptions[d], publicDays[d], active, d)
		if decision.IsHoliday {
			entries = append(entries, CalendarEntry{Date: d, Reason: decision.Reason})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Date.Before(entries[j].Date)
	})
	return entries, nil
}

// resolve applies the precedence order to already-loaded sources.
// Decide and ListMonth both go through here so they cannot disagree.
func resolve(exception *Exception, public bool, rules []WeeklyRule, date generic.Date) Decision {
	if exception != nil {
		return Decision{IsHoliday: exception.Override, Reason: ReasonExceptionOverride}
	}
	if public {
		return Decision{IsHoliday: true, Reason: ReasonPublicHoliday}
	}
	for _, rule := range rules {
		if rule.Matches(date) {
			return Decision{IsHoliday: true, Reason: ReasonWeeklyHoliday}
		}
	}
	return workingDay
}
