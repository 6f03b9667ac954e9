/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	data for demos. Each scenario sets up holiday rules and, where useful,
	attendance days and correction requests that exercise the workflow.

AVAILABLE SCENARIOS:

	holiday-calendar: Weekends, public holidays and per-user exceptions
	attendance-demo:  holiday-calendar plus a week of attendance for
	                  emp-alice, one forgotten clock-out and a pending
	                  correction for it

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Create holiday rules through the admin service as a system admin
 3. Write attendance days and breaks directly to the store
 4. Submit correction requests through the correction service

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "attendance-demo"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Create loader function: loadXxxScenario(ctx)
 3. Add case to loadScenario

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Handler and helpers
  - cmd/server/main.go: -seed flag loads a scenario at startup
*/
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/correction"
	"github.com/warp/attendance-engine/generic"
	"github.com/warp/attendance-engine/holiday"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "holiday-calendar",
		Name:        "Holiday Calendar",
		Description: "Weekend rules, January public holidays and per-user exceptions",
	},
	{
		ID:          "attendance-demo",
		Name:        "Attendance Demo",
		Description: "Holiday calendar plus a week of attendance with a pending correction",
	},
}

// seedActor creates scenario data. System admins may create rules that
// start in the past.
var seedActor = generic.Actor{UserID: "scenario-loader", Role: generic.RoleSystemAdmin}

// ListScenarios returns available scenarios.
// GET /api/scenarios
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
// GET /api/scenarios/current
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	if current == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, ScenarioDTO{ID: current, Name: current})
}

// LoadScenario resets the database and loads a predefined scenario.
// POST /api/scenarios/load  {"scenario_id": "attendance-demo"}
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	if err := h.LoadScenarioByID(r.Context(), req.ScenarioID); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// ResetDatabase clears all data.
// POST /api/scenarios/reset
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.Store.Reset(r.Context()); err != nil {
		h.writeServiceError(w, r, generic.Internal(err, "Failed to reset database"))
		return
	}
	h.currentScenario = ""

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// LoadScenarioByID resets the database and loads the named scenario.
func (h *Handler) LoadScenarioByID(ctx context.Context, id string) error {
	var loader func(context.Context) error
	switch id {
	case "holiday-calendar":
		loader = h.loadHolidayCalendarScenario
	case "attendance-demo":
		loader = h.loadAttendanceDemoScenario
	default:
		return generic.BadRequest("Unknown scenario %q", id)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.Store.Reset(ctx); err != nil {
		return generic.Internal(err, "Failed to reset database")
	}
	h.currentScenario = ""

	if err := loader(ctx); err != nil {
		return generic.Internal(err, "Failed to load scenario %s", id)
	}

	h.currentScenario = id
	h.log.WithField("scenario", id).Info("scenario loaded")
	return nil
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

var (
	demoYearStart = generic.NewDate(2025, time.January, 1)
	demoWeekStart = generic.NewDate(2025, time.January, 6) // Monday
)

func (h *Handler) loadHolidayCalendarScenario(ctx context.Context) error {
	// Saturday and Sunday off for the whole year
	yearEnd := generic.NewDate(2025, time.December, 31)
	for _, weekday := range []int{5, 6} {
		if _, err := h.Holidays.CreateWeeklyRule(ctx, seedActor, holiday.CreateWeeklyRuleInput{
			Weekday:  weekday,
			StartsOn: demoYearStart,
			EndsOn:   &yearEnd,
		}); err != nil {
			return err
		}
	}

	publics := []holiday.CreatePublicHolidayInput{
		{Date: generic.NewDate(2025, time.January, 1), Name: "New Year's Day"},
		{Date: generic.NewDate(2025, time.January, 2), Name: "New Year Holiday"},
		{Date: generic.NewDate(2025, time.January, 13), Name: "Coming of Age Day"},
	}
	for _, p := range publics {
		if _, err := h.Holidays.CreatePublicHoliday(ctx, seedActor, p); err != nil {
			return err
		}
	}

	// emp-bob covers the Saturday shift and takes the Wednesday off instead
	exceptions := []holiday.CreateExceptionInput{
		{Date: generic.NewDate(2025, time.January, 11), Override: false, Reason: "Weekend shift"},
		{Date: generic.NewDate(2025, time.January, 8), Override: true, Reason: "Compensatory day off"},
	}
	for _, e := range exceptions {
		if _, err := h.Holidays.CreateException(ctx, seedActor, "emp-bob", e); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) loadAttendanceDemoScenario(ctx context.Context) error {
	if err := h.loadHolidayCalendarScenario(ctx); err != nil {
		return err
	}

	// emp-alice works 09:00-18:00 with a lunch break, Monday to Friday.
	// Thursday she forgot to clock out.
	var forgotten generic.Date
	for i := 0; i < 5; i++ {
		day := demoWeekStart.AddDays(i)
		clockOut := 18
		if day.Weekday() == time.Thursday {
			forgotten = day
			clockOut = 0
		}
		if err := h.seedDay(ctx, "emp-alice", day, 9, clockOut); err != nil {
			return err
		}
	}

	out := generic.NewLocalTime(forgotten.Year, forgotten.Month, forgotten.Day, 18, 30, 0)
	_, err := h.Corrections.Create(ctx, generic.Actor{UserID: "emp-alice", Role: generic.RoleEmployee}, correction.CreateInput{
		Date:     forgotten,
		Reason:   "Forgot to clock out before leaving",
		Proposal: correction.Proposal{ClockOut: &out},
	})
	return err
}

// seedDay writes one attendance day with a 12:00-13:00 break. A zero
// clockOutHour leaves the day open.
func (h *Handler) seedDay(ctx context.Context, userID string, day generic.Date, clockInHour, clockOutHour int) error {
	now := h.clock().UTC()
	in := generic.NewLocalTime(day.Year, day.Month, day.Day, clockInHour, 0, 0)
	att := attendance.Attendance{
		ID:        uuid.NewString(),
		UserID:    userID,
		Date:      day,
		ClockIn:   &in,
		Status:    attendance.StatusPresent,
		CreatedAt: now,
		UpdatedAt: now,
	}

	breakEnd := generic.NewLocalTime(day.Year, day.Month, day.Day, 13, 0, 0)
	br := attendance.BreakRecord{
		ID:           uuid.NewString(),
		AttendanceID: att.ID,
		Start:        generic.NewLocalTime(day.Year, day.Month, day.Day, 12, 0, 0),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	br.Close(breakEnd, now)

	if clockOutHour > 0 {
		out := generic.NewLocalTime(day.Year, day.Month, day.Day, clockOutHour, 0, 0)
		att.ClockOut = &out
	}
	att.Recalculate([]attendance.BreakRecord{br})

	if err := h.Store.Attendance().Create(ctx, att); err != nil {
		return fmt.Errorf("seed attendance %s: %w", day, err)
	}
	if err := h.Store.Attendance().CreateBreak(ctx, br); err != nil {
		return fmt.Errorf("seed break %s: %w", day, err)
	}
	return nil
}
