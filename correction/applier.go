package correction

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/generic"
)

// =============================================================================
// APPLIER - Writes an approved snapshot back to the attendance tables
// =============================================================================

// ApplyInput names the approved request and the values to write.
type ApplyInput struct {
	RequestID    string
	AttendanceID string
	Proposed     Snapshot
	AppliedBy    string
	AppliedAt    time.Time
}

// Applier rewrites one attendance day. It only works inside a caller's unit
// of work and never commits on its own.
type Applier struct{}

// Apply updates the clock times and work hours, replaces the break set and
// records the effective value. Any failure leaves the caller to roll back.
func (Applier) Apply(ctx context.Context, uow UnitOfWork, in ApplyInput) error {
	attendances := uow.Attendance()

	att, err := attendances.FindByID(ctx, in.AttendanceID)
	if err != nil {
		return generic.Internal(err, "failed to load attendance")
	}
	if att == nil {
		return generic.Internal(errors.New("attendance row vanished"), "failed to apply correction")
	}

	breaks := make([]attendance.BreakRecord, 0, len(in.Proposed.Breaks))
	for _, item := range in.Proposed.Breaks {
		b := attendance.BreakRecord{
			ID:           uuid.NewString(),
			AttendanceID: att.ID,
			Start:        item.Start,
			CreatedAt:    in.AppliedAt,
			UpdatedAt:    in.AppliedAt,
		}
		if item.End != nil {
			b.Close(*item.End, in.AppliedAt)
		}
		breaks = append(breaks, b)
	}

	att.ClockIn = in.Proposed.ClockIn
	att.ClockOut = in.Proposed.ClockOut
	att.Recalculate(breaks)
	att.UpdatedAt = in.AppliedAt
	if err := attendances.Update(ctx, *att); err != nil {
		return generic.Internal(err, "failed to update attendance")
	}

	if err := attendances.DeleteBreaksByAttendance(ctx, att.ID); err != nil {
		return generic.Internal(err, "failed to delete breaks")
	}
	for _, b := range breaks {
		if err := attendances.CreateBreak(ctx, b); err != nil {
			return generic.Internal(err, "failed to create break")
		}
	}

	effective := EffectiveValue{
		SourceRequestID: in.RequestID,
		AttendanceID:    att.ID,
		ClockIn:         in.Proposed.ClockIn,
		ClockOut:        in.Proposed.ClockOut,
		Breaks:          in.Proposed.Breaks,
		AppliedBy:       in.AppliedBy,
		AppliedAt:       in.AppliedAt,
	}
	if err := uow.Corrections().SaveEffectiveValue(ctx, effective); err != nil {
		return generic.Internal(err, "failed to record effective values")
	}
	return nil
}
