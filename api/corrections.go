package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/warp/attendance-engine/correction"
	"github.com/warp/attendance-engine/generic"
)

// =============================================================================
// EMPLOYEE CORRECTION ENDPOINTS
// =============================================================================

// CreateCorrection submits a correction for one of the caller's days.
// POST /api/attendance-corrections
func (h *Handler) CreateCorrection(w http.ResponseWriter, r *http.Request) {
	var req CorrectionBodyRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if req.Date.IsZero() {
		h.writeServiceError(w, r, generic.BadRequest("date is required"))
		return
	}

	created, err := h.Corrections.Create(r.Context(), actorFrom(r.Context()), correction.CreateInput{
		Date:     req.Date,
		Reason:   req.Reason,
		Proposal: req.proposal(),
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCorrectionRequestDTO(*created))
}

// ListMyCorrections returns the caller's requests, newest first.
// GET /api/attendance-corrections
func (h *Handler) ListMyCorrections(w http.ResponseWriter, r *http.Request) {
	list, err := h.Corrections.ListMine(r.Context(), actorFrom(r.Context()))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCorrectionRequestDTOs(list))
}

// GetCorrection returns one request to its owner or an admin.
// GET /api/attendance-corrections/{id}
func (h *Handler) GetCorrection(w http.ResponseWriter, r *http.Request) {
	req, err := h.Corrections.Get(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCorrectionRequestDTO(*req))
}

// UpdateCorrection replaces the reason and proposal of a pending request.
// PUT /api/attendance-corrections/{id}
func (h *Handler) UpdateCorrection(w http.ResponseWriter, r *http.Request) {
	var req CorrectionBodyRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	updated, err := h.Corrections.Update(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id"), correction.UpdateInput{
		Reason:   req.Reason,
		Proposal: req.proposal(),
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCorrectionRequestDTO(*updated))
}

// CancelCorrection withdraws a pending request.
// POST /api/attendance-corrections/{id}/cancel
func (h *Handler) CancelCorrection(w http.ResponseWriter, r *http.Request) {
	cancelled, err := h.Corrections.Cancel(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCorrectionRequestDTO(*cancelled))
}

// =============================================================================
// ADMIN CORRECTION ENDPOINTS
// =============================================================================

// ListCorrections returns requests for review.
// GET /api/admin/attendance-corrections?status=pending&user_id=&page=1&per_page=20
func (h *Handler) ListCorrections(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var filter correction.ListFilter

	if raw := q.Get("status"); raw != "" {
		status, err := correction.ParseStatus(raw)
		if err != nil {
			h.writeServiceError(w, r, generic.BadRequest("invalid status %q", raw))
			return
		}
		filter.Status = &status
	}
	filter.UserID = q.Get("user_id")

	var err error
	if filter.Page, err = optionalInt(q.Get("page"), "page"); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if filter.PerPage, err = optionalInt(q.Get("per_page"), "per_page"); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	list, err := h.Corrections.List(r.Context(), actorFrom(r.Context()), filter)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCorrectionRequestDTOs(list))
}

// ApproveCorrection applies a pending request to its attendance day.
// POST /api/admin/attendance-corrections/{id}/approve  {"comment": "..."}
func (h *Handler) ApproveCorrection(w http.ResponseWriter, r *http.Request) {
	var req DecisionRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	approved, err := h.Corrections.Approve(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id"), req.Comment)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCorrectionRequestDTO(*approved))
}

// RejectCorrection closes a pending request without touching attendance.
// POST /api/admin/attendance-corrections/{id}/reject  {"comment": "..."}
func (h *Handler) RejectCorrection(w http.ResponseWriter, r *http.Request) {
	var req DecisionRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	rejected, err := h.Corrections.Reject(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id"), req.Comment)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCorrectionRequestDTO(*rejected))
}

// ListEffectiveValues returns what approved corrections wrote to a day.
// GET /api/admin/attendance/{attendanceID}/effective-values
func (h *Handler) ListEffectiveValues(w http.ResponseWriter, r *http.Request) {
	values, err := h.Corrections.EffectiveValues(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "attendanceID"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	dtos := make([]EffectiveValueDTO, len(values))
	for i, v := range values {
		dtos[i] = toEffectiveValueDTO(v)
	}
	writeJSON(w, http.StatusOK, dtos)
}
