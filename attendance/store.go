package attendance

import (
	"context"

	"github.com/warp/attendance-engine/generic"
)

// Store persists attendance days and their breaks.
//
// Finders return (nil, nil) when nothing matches. Create returns
// generic.ErrDuplicate when the user already has a record for the day.
// Update and UpdateBreak return generic.ErrNotFound for unknown ids.
type Store interface {
	FindByUserAndDate(ctx context.Context, userID string, date generic.Date) (*Attendance, error)
	FindByID(ctx context.Context, id string) (*Attendance, error)
	Create(ctx context.Context, a Attendance) error
	Update(ctx context.Context, a Attendance) error

	// ListBreaks is ordered as SortBreaks orders.
	ListBreaks(ctx context.Context, attendanceID string) ([]BreakRecord, error)
	FindBreak(ctx context.Context, id string) (*BreakRecord, error)
	FindActiveBreak(ctx context.Context, attendanceID string) (*BreakRecord, error)
	CreateBreak(ctx context.Context, b BreakRecord) error
	UpdateBreak(ctx context.Context, b BreakRecord) error
	DeleteBreaksByAttendance(ctx context.Context, attendanceID string) error
}
