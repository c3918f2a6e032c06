package shift

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/rollcall-hq/rollcall/internal/geo"
	"github.com/rollcall-hq/rollcall/internal/identity"
	"github.com/rollcall-hq/rollcall/internal/perimeter"
	"github.com/rollcall-hq/rollcall/internal/platform/httpx"
)

// Handler exposes clock-in/out and shift reads.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers shift routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/clock-in", h.clockIn)
	r.Post("/clock-out", h.clockOut)
	r.Get("/state", h.currentState)
	r.Get("/history", h.history)
	r.Get("/", h.staffOverview)
}

type clockInRequest struct {
	Lat  *float64 `json:"lat" validate:"required"`
	Lng  *float64 `json:"lng" validate:"required"`
	Note string   `json:"note"`
}

func (h *Handler) clockIn(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity.FromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}

	var req clockInRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.ProblemCode(w, http.StatusBadRequest, "validation_failed", "Validation Failed", "request body must be valid JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		h.respondError(w, ErrLocationRequired)
		return
	}

	rec, err := h.service.ClockIn(r.Context(), ident, *req.Lat, *req.Lng, req.Note)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, rec)
}

type clockOutRequest struct {
	Lat  *float64 `json:"lat"`
	Lng  *float64 `json:"lng"`
	Note string   `json:"note"`
}

func (h *Handler) clockOut(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity.FromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}

	var req clockOutRequest
	if r.ContentLength > 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.ProblemCode(w, http.StatusBadRequest, "validation_failed", "Validation Failed", "request body must be valid JSON")
			return
		}
	}

	result, err := h.service.ClockOut(r.Context(), ident, req.Lat, req.Lng, req.Note)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) currentState(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity.FromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}

	state, err := h.service.CurrentState(r.Context(), ident.UserID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, state)
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity.FromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}

	records, err := h.service.History(r.Context(), ident.UserID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"shifts": records})
}

func (h *Handler) staffOverview(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity.FromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}

	records, err := h.service.StaffOverview(r.Context(), ident.OrganizationID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"shifts": records})
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrLocationRequired):
		httpx.ProblemCode(w, http.StatusBadRequest, "location_required", "Validation Failed", "clock-in requires a location { lat, lng }")
	case errors.Is(err, geo.ErrOutOfRange), errors.Is(err, geo.ErrNotNumeric):
		httpx.ProblemCode(w, http.StatusBadRequest, "invalid_coordinate", "Validation Failed", "latitude must be in [-90, 90] and longitude in [-180, 180]")
	case errors.Is(err, ErrOutsidePerimeter):
		httpx.ProblemCode(w, http.StatusBadRequest, "outside_perimeter", "Validation Failed", "you must be within the work perimeter to clock in")
	case errors.Is(err, ErrAlreadyOnDuty):
		httpx.ProblemCode(w, http.StatusConflict, "already_on_duty", "Conflict", "an open shift already exists")
	case errors.Is(err, ErrNoActiveShift):
		httpx.ProblemCode(w, http.StatusNotFound, "no_active_shift", "Not Found", "no active shift found")
	case errors.Is(err, perimeter.ErrNotConfigured):
		httpx.ProblemCode(w, http.StatusNotFound, "perimeter_not_configured", "Not Found", "no perimeter configured for this organization")
	case errors.Is(err, httpx.ErrUnavailable):
		httpx.RespondError(w, err)
	default:
		h.logger.Error("shift request failed", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
