package holiday

import (
	"context"

	"github.com/warp/attendance-engine/generic"
)

// =============================================================================
// STORAGE INTERFACES
// =============================================================================

// SourceReader is everything the decision engine reads.
// Single-row finders return (nil, nil) when nothing matches.
type SourceReader interface {
	FindException(ctx context.Context, userID string, date generic.Date) (*Exception, error)
	FindPublicHoliday(ctx context.Context, date generic.Date) (*PublicHoliday, error)
	ListWeeklyRules(ctx context.Context) ([]WeeklyRule, error)

	// Month-range readers, both bounds inclusive.
	ListPublicHolidaysBetween(ctx context.Context, from, to generic.Date) ([]PublicHoliday, error)
	ListExceptionsBetween(ctx context.Context, userID string, from, to generic.Date) ([]Exception, error)
}

// Store adds the administrative writes.
//
// Save* return generic.ErrDuplicate on a uniqueness violation (public holiday
// date, exception user+date). Delete* return generic.ErrNotFound when no
// row was removed.
type Store interface {
	SourceReader

	SavePublicHoliday(ctx context.Context, h PublicHoliday) error
	ListPublicHolidays(ctx context.Context) ([]PublicHoliday, error)
	DeletePublicHoliday(ctx context.Context, id string) error

	SaveWeeklyRule(ctx context.Context, r WeeklyRule) error
	DeleteWeeklyRule(ctx context.Context, id string) error

	SaveException(ctx context.Context, e Exception) error
	// ListExceptions filters by optional inclusive bounds, ordered by date.
	ListExceptions(ctx context.Context, userID string, from, to *generic.Date) ([]Exception, error)
	DeleteException(ctx context.Context, userID, id string) error
}
