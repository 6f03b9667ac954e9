/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:     Unique ID per request for tracing
  2. RequestLogger: One logrus line per request (carries the request ID)
  3. Recoverer:     Panic recovery (500 instead of crash)
  4. CORS:          Cross-origin requests for frontend
  5. RequireActor:  Caller identity from X-User-ID / X-User-Role (API only)

ROUTE GROUPS:
  /healthz                        Liveness and database ping
  /api/scenarios/*                Demo scenarios (no identity required)
  /api/holidays/*                 Holiday checks
  /api/attendance/*               Clock-in/out and breaks
  /api/attendance-corrections/*   Employee correction requests
  /api/admin/*                    Holiday administration and request review

SECURITY NOTE:
  Identity headers are trusted as-is. The server is meant to sit behind a
  gateway that authenticates callers and sets them.

SEE ALSO:
  - handlers.go, corrections.go: Handler implementations
  - middleware.go: RequireActor, RequestLogger
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(h.log))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   h.corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", HeaderUserID, HeaderUserRole},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: true,
	}))

	r.Get("/healthz", h.Health)

	r.Route("/api", func(r chi.Router) {
		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})

		r.Group(func(r chi.Router) {
			r.Use(RequireActor)

			// Holiday routes
			r.Route("/holidays", func(r chi.Router) {
				r.Get("/check", h.CheckHoliday)
				r.Get("/calendar", h.GetCalendar)
			})

			// Attendance routes
			r.Route("/attendance", func(r chi.Router) {
				r.Get("/", h.GetAttendance)
				r.Get("/status", h.GetClockStatus)
				r.Post("/clock-in", h.ClockIn)
				r.Post("/clock-out", h.ClockOut)
				r.Post("/break-start", h.StartBreak)
				r.Post("/break-end", h.EndBreak)
			})

			// Correction request routes
			r.Route("/attendance-corrections", func(r chi.Router) {
				r.Get("/", h.ListMyCorrections)
				r.Post("/", h.CreateCorrection)
				r.Get("/{id}", h.GetCorrection)
				r.Put("/{id}", h.UpdateCorrection)
				r.Post("/{id}/cancel", h.CancelCorrection)
			})

			// Admin routes
			r.Route("/admin", func(r chi.Router) {
				r.Route("/holidays", func(r chi.Router) {
					r.Get("/", h.ListPublicHolidays)
					r.Post("/", h.CreatePublicHoliday)
					r.Delete("/{id}", h.DeletePublicHoliday)
				})

				r.Route("/weekly-holidays", func(r chi.Router) {
					r.Get("/", h.ListWeeklyRules)
					r.Post("/", h.CreateWeeklyRule)
					r.Delete("/{id}", h.DeleteWeeklyRule)
				})

				r.Route("/users/{userID}/holiday-exceptions", func(r chi.Router) {
					r.Get("/", h.ListHolidayExceptions)
					r.Post("/", h.CreateHolidayException)
					r.Delete("/{id}", h.DeleteHolidayException)
				})

				r.Route("/attendance-corrections", func(r chi.Router) {
					r.Get("/", h.ListCorrections)
					r.Get("/{id}", h.GetCorrection)
					r.Post("/{id}/approve", h.ApproveCorrection)
					r.Post("/{id}/reject", h.RejectCorrection)
				})

				r.Get("/attendance/{attendanceID}/effective-values", h.ListEffectiveValues)
			})
		})
	})

	return r
}
