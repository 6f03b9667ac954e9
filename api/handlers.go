/*
handlers.go - HTTP API handlers for holidays and attendance

PURPOSE:
  Exposes the holiday engine, the holiday administration service and the
  attendance clock via REST API. Handles HTTP request/response and JSON
  serialization, and delegates every rule to the domain services.

ENDPOINTS:
  Holidays:
    GET    /api/holidays/check              Is a date a holiday for a user?
    GET    /api/holidays/calendar           Holidays of one month

  Holiday administration (admin role):
    GET    /api/admin/holidays               List public holidays
    POST   /api/admin/holidays               Create public holiday
    DELETE /api/admin/holidays/{id}          Delete public holiday
    GET    /api/admin/weekly-holidays        List weekly rules
    POST   /api/admin/weekly-holidays        Create weekly rule
    DELETE /api/admin/weekly-holidays/{id}   Delete weekly rule
    GET    /api/admin/users/{userID}/holiday-exceptions
    POST   /api/admin/users/{userID}/holiday-exceptions
    DELETE /api/admin/users/{userID}/holiday-exceptions/{id}

  Attendance (acting user):
    POST   /api/attendance/clock-in
    POST   /api/attendance/clock-out
    POST   /api/attendance/break-start
    POST   /api/attendance/break-end
    GET    /api/attendance                  Day with breaks (?date=)
    GET    /api/attendance/status           Clock state (?date=)

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Store: Database access (reset, health)
  - Engine / Holidays / Attendance / Corrections: domain services

ERROR HANDLING:
  Domain errors carry a kind that maps to an HTTP status:
  - 400: Validation errors, invalid input
  - 401: Missing or unknown caller identity
  - 403: Role or holiday refusal
  - 404: Resource not found (also for other users' resources)
  - 409: Conflict (not pending, stale attendance)
  - 500: Internal errors (cause logged, never returned)

SEE ALSO:
  - corrections.go: Correction request handlers
  - dto.go: Request/response data structures
  - middleware.go: Caller identity and request logging
  - server.go: Router setup
*/
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/correction"
	"github.com/warp/attendance-engine/generic"
	"github.com/warp/attendance-engine/holiday"
	"github.com/warp/attendance-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Options configures a Handler.
type Options struct {
	Logger      logrus.FieldLogger
	Clock       func() time.Time
	CORSOrigins []string
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store       *sqlite.Store
	Engine      *holiday.Engine
	Holidays    *holiday.AdminService
	Attendance  *attendance.Service
	Corrections *correction.Service

	log         logrus.FieldLogger
	clock       func() time.Time
	corsOrigins []string

	// Track currently loaded scenario
	mu              sync.Mutex
	currentScenario string
}

// NewHandler wires the domain services over the given store.
func NewHandler(store *sqlite.Store, opts Options) *Handler {
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	engine := holiday.NewEngine(store.Holidays())

	holidays := holiday.NewAdminService(store.Holidays(), log.WithField("component", "holidays"))
	holidays.Now = clock

	clockSvc := attendance.NewService(store.Attendance(), engine, log.WithField("component", "attendance"))
	clockSvc.Now = clock

	corrections := correction.NewService(store.Attendance(), store.Corrections(), store, log.WithField("component", "corrections"))
	corrections.Now = clock

	return &Handler{
		Store:       store,
		Engine:      engine,
		Holidays:    holidays,
		Attendance:  clockSvc,
		Corrections: corrections,
		log:         log,
		clock:       clock,
		corsOrigins: opts.CORSOrigins,
	}
}

// Health reports whether the database answers.
// GET /healthz
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Ping(r.Context()); err != nil {
		h.log.WithError(err).Error("health check failed")
		writeError(w, http.StatusServiceUnavailable, "Database unavailable", nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HOLIDAY ENDPOINTS
// =============================================================================

// CheckHoliday decides one date for one user.
// GET /api/holidays/check?date=2025-01-08&user_id=u1
func (h *Handler) CheckHoliday(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r.Context())

	date, err := requiredDate(r, "date")
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	userID, err := targetUser(actor, r.URL.Query().Get("user_id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	decision, err := h.Engine.Decide(r.Context(), date, userID)
	if err != nil {
		h.writeServiceError(w, r, generic.Internal(err, "failed to decide holiday"))
		return
	}

	writeJSON(w, http.StatusOK, HolidayCheckDTO{
		Date:      date,
		UserID:    userID,
		IsHoliday: decision.IsHoliday,
		Reason:    decision.Reason,
		Label:     decision.Label(),
	})
}

// GetCalendar lists the holidays of one month.
// GET /api/holidays/calendar?year=2025&month=1&user_id=u1
func (h *Handler) GetCalendar(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r.Context())
	q := r.URL.Query()

	year, err := requiredInt(q.Get("year"), "year")
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	month, err := requiredInt(q.Get("month"), "month")
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	userID, err := targetUser(actor, q.Get("user_id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	entries, err := h.Engine.ListMonth(r.Context(), year, time.Month(month), userID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, CalendarDTO{
		Year:     year,
		Month:    month,
		UserID:   userID,
		Holidays: toCalendarEntryDTOs(entries),
	})
}

// ListPublicHolidays returns every public holiday.
// GET /api/admin/holidays
func (h *Handler) ListPublicHolidays(w http.ResponseWriter, r *http.Request) {
	list, err := h.Holidays.ListPublicHolidays(r.Context(), actorFrom(r.Context()))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	dtos := make([]PublicHolidayDTO, len(list))
	for i, ph := range list {
		dtos[i] = toPublicHolidayDTO(ph)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreatePublicHoliday adds a company-wide holiday.
// POST /api/admin/holidays
func (h *Handler) CreatePublicHoliday(w http.ResponseWriter, r *http.Request) {
	var req CreatePublicHolidayRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	created, err := h.Holidays.CreatePublicHoliday(r.Context(), actorFrom(r.Context()), holiday.CreatePublicHolidayInput{
		Date:        req.Date,
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPublicHolidayDTO(*created))
}

// DeletePublicHoliday removes a public holiday.
// DELETE /api/admin/holidays/{id}
func (h *Handler) DeletePublicHoliday(w http.ResponseWriter, r *http.Request) {
	if err := h.Holidays.DeletePublicHoliday(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListWeeklyRules returns every weekly rule.
// GET /api/admin/weekly-holidays
func (h *Handler) ListWeeklyRules(w http.ResponseWriter, r *http.Request) {
	list, err := h.Holidays.ListWeeklyRules(r.Context(), actorFrom(r.Context()))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	dtos := make([]WeeklyRuleDTO, len(list))
	for i, rule := range list {
		dtos[i] = toWeeklyRuleDTO(rule)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateWeeklyRule adds a recurring weekday holiday.
// POST /api/admin/weekly-holidays
func (h *Handler) CreateWeeklyRule(w http.ResponseWriter, r *http.Request) {
	var req CreateWeeklyRuleRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if req.Weekday == nil {
		h.writeServiceError(w, r, generic.BadRequest("weekday is required"))
		return
	}

	created, err := h.Holidays.CreateWeeklyRule(r.Context(), actorFrom(r.Context()), holiday.CreateWeeklyRuleInput{
		Weekday:  *req.Weekday,
		StartsOn: req.StartsOn,
		EndsOn:   req.EndsOn,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toWeeklyRuleDTO(*created))
}

// DeleteWeeklyRule removes a weekly rule.
// DELETE /api/admin/weekly-holidays/{id}
func (h *Handler) DeleteWeeklyRule(w http.ResponseWriter, r *http.Request) {
	if err := h.Holidays.DeleteWeeklyRule(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListHolidayExceptions returns a user's exceptions, optionally bounded.
// GET /api/admin/users/{userID}/holiday-exceptions?from=&to=
func (h *Handler) ListHolidayExceptions(w http.ResponseWriter, r *http.Request) {
	from, err := optionalDate(r, "from")
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	to, err := optionalDate(r, "to")
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	list, err := h.Holidays.ListExceptions(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "userID"), from, to)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	dtos := make([]HolidayExceptionDTO, len(list))
	for i, e := range list {
		dtos[i] = toHolidayExceptionDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateHolidayException forces a holiday or a working day for one user.
// POST /api/admin/users/{userID}/holiday-exceptions
func (h *Handler) CreateHolidayException(w http.ResponseWriter, r *http.Request) {
	var req CreateHolidayExceptionRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if req.IsHolidayOverride == nil {
		h.writeServiceError(w, r, generic.BadRequest("is_holiday_override is required"))
		return
	}

	created, err := h.Holidays.CreateException(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "userID"), holiday.CreateExceptionInput{
		Date:     req.Date,
		Override: *req.IsHolidayOverride,
		Reason:   req.Reason,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toHolidayExceptionDTO(*created))
}

// DeleteHolidayException removes one of a user's exceptions.
// DELETE /api/admin/users/{userID}/holiday-exceptions/{id}
func (h *Handler) DeleteHolidayException(w http.ResponseWriter, r *http.Request) {
	err := h.Holidays.DeleteException(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "userID"), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// ATTENDANCE ENDPOINTS
// =============================================================================

// ClockIn starts the acting user's day.
// POST /api/attendance/clock-in  {"date": "2025-01-10"} (optional)
func (h *Handler) ClockIn(w http.ResponseWriter, r *http.Request) {
	var req ClockRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	day, err := h.Attendance.ClockIn(r.Context(), actorFrom(r.Context()), req.Date)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAttendanceDTO(*day))
}

// ClockOut ends the acting user's day.
// POST /api/attendance/clock-out  {"date": "2025-01-10"} (optional)
func (h *Handler) ClockOut(w http.ResponseWriter, r *http.Request) {
	var req ClockRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	day, err := h.Attendance.ClockOut(r.Context(), actorFrom(r.Context()), req.Date)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAttendanceDTO(*day))
}

// StartBreak opens a break.
// POST /api/attendance/break-start  {"attendance_id": "..."}
func (h *Handler) StartBreak(w http.ResponseWriter, r *http.Request) {
	var req BreakStartRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if req.AttendanceID == "" {
		h.writeServiceError(w, r, generic.BadRequest("attendance_id is required"))
		return
	}

	br, err := h.Attendance.StartBreak(r.Context(), actorFrom(r.Context()), req.AttendanceID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toBreakDTO(*br))
}

// EndBreak closes a break.
// POST /api/attendance/break-end  {"break_id": "..."}
func (h *Handler) EndBreak(w http.ResponseWriter, r *http.Request) {
	var req BreakEndRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if req.BreakID == "" {
		h.writeServiceError(w, r, generic.BadRequest("break_id is required"))
		return
	}

	br, err := h.Attendance.EndBreak(r.Context(), actorFrom(r.Context()), req.BreakID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBreakDTO(*br))
}

// GetAttendance returns the acting user's day with its breaks.
// GET /api/attendance?date=2025-01-10
func (h *Handler) GetAttendance(w http.ResponseWriter, r *http.Request) {
	date, err := optionalDate(r, "date")
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if date == nil {
		today := generic.DateOf(h.clock())
		date = &today
	}

	day, err := h.Attendance.Get(r.Context(), actorFrom(r.Context()), *date)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAttendanceDTO(*day))
}

// GetClockStatus reports where the acting user is in the clock cycle.
// GET /api/attendance/status?date=2025-01-10
func (h *Handler) GetClockStatus(w http.ResponseWriter, r *http.Request) {
	date, err := optionalDate(r, "date")
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	view, err := h.Attendance.Status(r.Context(), actorFrom(r.Context()), date)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ClockStatusDTO{
		Date:          view.Date,
		State:         view.State,
		AttendanceID:  view.AttendanceID,
		ActiveBreakID: view.ActiveBreakID,
		ClockIn:       view.ClockIn,
		ClockOut:      view.ClockOut,
	})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

var errorStatus = map[error]int{
	generic.ErrNotFound:   http.StatusNotFound,
	generic.ErrBadRequest: http.StatusBadRequest,
	generic.ErrForbidden:  http.StatusForbidden,
	generic.ErrConflict:   http.StatusConflict,
	generic.ErrInternal:   http.StatusInternalServerError,
}

var errorCode = map[error]string{
	generic.ErrNotFound:   "not_found",
	generic.ErrBadRequest: "bad_request",
	generic.ErrForbidden:  "forbidden",
	generic.ErrConflict:   "conflict",
	generic.ErrInternal:   "internal",
}

// writeServiceError maps a domain error to its status. Internal causes are
// logged and replaced by the generic message.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	kind := generic.KindOf(err)
	status := errorStatus[kind]
	if kind == generic.ErrInternal {
		h.log.WithFields(logrus.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		}).WithError(err).Error("request failed")
	}
	writeJSON(w, status, ErrorResponse{Error: generic.MessageOf(err), Code: errorCode[kind]})
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return generic.BadRequest("Invalid request body: %v", err)
	}
	return nil
}

// decodeOptionalJSON accepts an empty body.
func decodeOptionalJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return generic.BadRequest("Invalid request body: %v", err)
	}
	return nil
}

func requiredDate(r *http.Request, name string) (generic.Date, error) {
	d, err := optionalDate(r, name)
	if err != nil {
		return generic.Date{}, err
	}
	if d == nil {
		return generic.Date{}, generic.BadRequest("%s is required", name)
	}
	return *d, nil
}

func optionalDate(r *http.Request, name string) (*generic.Date, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	d, err := generic.ParseDate(raw)
	if err != nil {
		return nil, generic.BadRequest("invalid %s %q (use YYYY-MM-DD)", name, raw)
	}
	return &d, nil
}

func requiredInt(raw, name string) (int, error) {
	if raw == "" {
		return 0, generic.BadRequest("%s is required", name)
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, generic.BadRequest("invalid %s %q", name, raw)
	}
	return n, nil
}

func optionalInt(raw, name string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	return requiredInt(raw, name)
}

// targetUser resolves the user a holiday query is about. Employees may
// only ask about themselves.
func targetUser(actor generic.Actor, requested string) (string, error) {
	if requested == "" || requested == actor.UserID {
		return actor.UserID, nil
	}
	if !actor.IsAdmin() {
		return "", generic.Forbidden("cannot query holidays of another user")
	}
	return requested, nil
}
