/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

TYPES:
  Holidays:
    HolidayCheckDTO, CalendarDTO, PublicHolidayDTO, WeeklyRuleDTO,
    HolidayExceptionDTO

  Attendance:
    AttendanceDTO, BreakDTO, ClockStatusDTO

  Corrections:
    CorrectionRequestDTO, EffectiveValueDTO, CorrectionBodyRequest

  Scenarios:
    ScenarioDTO, LoadScenarioRequest

TIME FORMATS:
  Dates are "YYYY-MM-DD". Clock and break times are wall-clock
  "YYYY-MM-DDTHH:MM:SS" without an offset. Audit instants are RFC 3339 UTC.
  Work hours are decimal strings ("8.25").

SEE ALSO:
  - handlers.go: Uses these types
  - correction/snapshot.go: Snapshot JSON shape
*/
package api

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/correction"
	"github.com/warp/attendance-engine/generic"
	"github.com/warp/attendance-engine/holiday"
)

// =============================================================================
// HOLIDAYS
// =============================================================================

type HolidayCheckDTO struct {
	Date      generic.Date   `json:"date"`
	UserID    string         `json:"user_id,omitempty"`
	IsHoliday bool           `json:"is_holiday"`
	Reason    holiday.Reason `json:"reason"`
	Label     string         `json:"label"`
}

type CalendarDTO struct {
	Year     int                `json:"year"`
	Month    int                `json:"month"`
	UserID   string             `json:"user_id,omitempty"`
	Holidays []CalendarEntryDTO `json:"holidays"`
}

type CalendarEntryDTO struct {
	Date   generic.Date   `json:"date"`
	Reason holiday.Reason `json:"reason"`
}

type PublicHolidayDTO struct {
	ID          string       `json:"id"`
	Date        generic.Date `json:"date"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	CreatedAt   string       `json:"created_at"`
}

type CreatePublicHolidayRequest struct {
	Date        generic.Date `json:"date"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
}

// WeeklyRuleDTO uses Monday-based weekdays (0 = Monday ... 6 = Sunday).
type WeeklyRuleDTO struct {
	ID           string        `json:"id"`
	Weekday      int           `json:"weekday"`
	StartsOn     generic.Date  `json:"starts_on"`
	EndsOn       *generic.Date `json:"ends_on"`
	EnforcedFrom generic.Date  `json:"enforced_from"`
	EnforcedTo   *generic.Date `json:"enforced_to"`
	CreatedBy    string        `json:"created_by"`
	CreatedAt    string        `json:"created_at"`
}

type CreateWeeklyRuleRequest struct {
	Weekday  *int          `json:"weekday"`
	StartsOn generic.Date  `json:"starts_on"`
	EndsOn   *generic.Date `json:"ends_on"`
}

type HolidayExceptionDTO struct {
	ID                string       `json:"id"`
	UserID            string       `json:"user_id"`
	Date              generic.Date `json:"date"`
	IsHolidayOverride bool         `json:"is_holiday_override"`
	Reason            string       `json:"reason,omitempty"`
	CreatedBy         string       `json:"created_by"`
	CreatedAt         string       `json:"created_at"`
}

type CreateHolidayExceptionRequest struct {
	Date              generic.Date `json:"date"`
	IsHolidayOverride *bool        `json:"is_holiday_override"`
	Reason            string       `json:"reason"`
}

// =============================================================================
// ATTENDANCE
// =============================================================================

type AttendanceDTO struct {
	ID             string             `json:"id"`
	UserID         string             `json:"user_id"`
	Date           generic.Date       `json:"date"`
	ClockIn        *generic.LocalTime `json:"clock_in_time"`
	ClockOut       *generic.LocalTime `json:"clock_out_time"`
	Status         string             `json:"status"`
	TotalWorkHours *decimal.Decimal   `json:"total_work_hours"`
	Breaks         []BreakDTO         `json:"breaks"`
	CreatedAt      string             `json:"created_at"`
	UpdatedAt      string             `json:"updated_at"`
}

type BreakDTO struct {
	ID              string             `json:"id"`
	AttendanceID    string             `json:"attendance_id"`
	Start           generic.LocalTime  `json:"break_start_time"`
	End             *generic.LocalTime `json:"break_end_time"`
	DurationMinutes *int64             `json:"duration_minutes"`
}

type ClockStatusDTO struct {
	Date          generic.Date       `json:"date"`
	State         string             `json:"state"`
	AttendanceID  string             `json:"attendance_id,omitempty"`
	ActiveBreakID string             `json:"active_break_id,omitempty"`
	ClockIn       *generic.LocalTime `json:"clock_in_time"`
	ClockOut      *generic.LocalTime `json:"clock_out_time"`
}

// ClockRequest is the optional body of clock-in and clock-out.
type ClockRequest struct {
	Date *generic.Date `json:"date"`
}

type BreakStartRequest struct {
	AttendanceID string `json:"attendance_id"`
}

type BreakEndRequest struct {
	BreakID string `json:"break_id"`
}

// =============================================================================
// CORRECTIONS
// =============================================================================

// CorrectionBodyRequest is the body of create and update. Omitted fields
// keep the original; "breaks": [] removes every break.
type CorrectionBodyRequest struct {
	Date     generic.Date            `json:"date"`
	Reason   string                  `json:"reason"`
	ClockIn  *generic.LocalTime      `json:"clock_in_time"`
	ClockOut *generic.LocalTime      `json:"clock_out_time"`
	Breaks   *[]correction.BreakItem `json:"breaks"`
}

func (b CorrectionBodyRequest) proposal() correction.Proposal {
	p := correction.Proposal{ClockIn: b.ClockIn, ClockOut: b.ClockOut}
	if b.Breaks != nil {
		p.Breaks = append([]correction.BreakItem{}, (*b.Breaks)...)
	}
	return p
}

type DecisionRequest struct {
	Comment string `json:"comment"`
}

type CorrectionRequestDTO struct {
	ID               string          `json:"id"`
	UserID           string          `json:"user_id"`
	AttendanceID     string          `json:"attendance_id"`
	Date             generic.Date    `json:"date"`
	Status           string          `json:"status"`
	Reason           string          `json:"reason"`
	OriginalSnapshot json.RawMessage `json:"original_snapshot"`
	ProposedValues   json.RawMessage `json:"proposed_values"`
	DecisionComment  *string         `json:"decision_comment"`
	ApprovedBy       *string         `json:"approved_by"`
	ApprovedAt       *string         `json:"approved_at"`
	RejectedBy       *string         `json:"rejected_by"`
	RejectedAt       *string         `json:"rejected_at"`
	CancelledAt      *string         `json:"cancelled_at"`
	CreatedAt        string          `json:"created_at"`
	UpdatedAt        string          `json:"updated_at"`
}

type EffectiveValueDTO struct {
	SourceRequestID string                 `json:"source_request_id"`
	AttendanceID    string                 `json:"attendance_id"`
	ClockIn         *generic.LocalTime     `json:"clock_in_time"`
	ClockOut        *generic.LocalTime     `json:"clock_out_time"`
	Breaks          []correction.BreakItem `json:"breaks"`
	AppliedBy       string                 `json:"applied_by"`
	AppliedAt       string                 `json:"applied_at"`
}

// =============================================================================
// SCENARIOS / ERRORS
// =============================================================================

type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func formatInstant(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatInstantPtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatInstant(*t)
	return &s
}

func toCalendarEntryDTOs(entries []holiday.CalendarEntry) []CalendarEntryDTO {
	dtos := make([]CalendarEntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = CalendarEntryDTO{Date: e.Date, Reason: e.Reason}
	}
	return dtos
}

func toPublicHolidayDTO(h holiday.PublicHoliday) PublicHolidayDTO {
	return PublicHolidayDTO{
		ID:          h.ID,
		Date:        h.Date,
		Name:        h.Name,
		Description: h.Description,
		CreatedAt:   formatInstant(h.CreatedAt),
	}
}

func toWeeklyRuleDTO(r holiday.WeeklyRule) WeeklyRuleDTO {
	return WeeklyRuleDTO{
		ID:           r.ID,
		Weekday:      r.Weekday,
		StartsOn:     r.StartsOn,
		EndsOn:       r.EndsOn,
		EnforcedFrom: r.EnforcedFrom,
		EnforcedTo:   r.EnforcedTo,
		CreatedBy:    r.CreatedBy,
		CreatedAt:    formatInstant(r.CreatedAt),
	}
}

func toHolidayExceptionDTO(e holiday.Exception) HolidayExceptionDTO {
	return HolidayExceptionDTO{
		ID:                e.ID,
		UserID:            e.UserID,
		Date:              e.Date,
		IsHolidayOverride: e.Override,
		Reason:            e.Reason,
		CreatedBy:         e.CreatedBy,
		CreatedAt:         formatInstant(e.CreatedAt),
	}
}

func toBreakDTO(b attendance.BreakRecord) BreakDTO {
	return BreakDTO{
		ID:              b.ID,
		AttendanceID:    b.AttendanceID,
		Start:           b.Start,
		End:             b.End,
		DurationMinutes: b.DurationMinutes,
	}
}

func toAttendanceDTO(d attendance.Day) AttendanceDTO {
	a := d.Attendance
	breaks := make([]BreakDTO, 0, len(d.Breaks))
	for _, b := range d.Breaks {
		breaks = append(breaks, toBreakDTO(b))
	}
	return AttendanceDTO{
		ID:             a.ID,
		UserID:         a.UserID,
		Date:           a.Date,
		ClockIn:        a.ClockIn,
		ClockOut:       a.ClockOut,
		Status:         a.Status.String(),
		TotalWorkHours: a.TotalWorkHours,
		Breaks:         breaks,
		CreatedAt:      formatInstant(a.CreatedAt),
		UpdatedAt:      formatInstant(a.UpdatedAt),
	}
}

func toCorrectionRequestDTO(r correction.Request) CorrectionRequestDTO {
	return CorrectionRequestDTO{
		ID:               r.ID,
		UserID:           r.UserID,
		AttendanceID:     r.AttendanceID,
		Date:             r.Date,
		Status:           r.Status.String(),
		Reason:           r.Reason,
		OriginalSnapshot: r.OriginalSnapshot,
		ProposedValues:   r.ProposedValues,
		DecisionComment:  r.DecisionComment,
		ApprovedBy:       r.ApprovedBy,
		ApprovedAt:       formatInstantPtr(r.ApprovedAt),
		RejectedBy:       r.RejectedBy,
		RejectedAt:       formatInstantPtr(r.RejectedAt),
		CancelledAt:      formatInstantPtr(r.CancelledAt),
		CreatedAt:        formatInstant(r.CreatedAt),
		UpdatedAt:        formatInstant(r.UpdatedAt),
	}
}

func toCorrectionRequestDTOs(list []correction.Request) []CorrectionRequestDTO {
	dtos := make([]CorrectionRequestDTO, len(list))
	for i, r := range list {
		dtos[i] = toCorrectionRequestDTO(r)
	}
	return dtos
}

func toEffectiveValueDTO(v correction.EffectiveValue) EffectiveValueDTO {
	breaks := v.Breaks
	if breaks == nil {
		breaks = []correction.BreakItem{}
	}
	return EffectiveValueDTO{
		SourceRequestID: v.SourceRequestID,
		AttendanceID:    v.AttendanceID,
		ClockIn:         v.ClockIn,
		ClockOut:        v.ClockOut,
		Breaks:          breaks,
		AppliedBy:       v.AppliedBy,
		AppliedAt:       formatInstant(v.AppliedAt),
	}
}
