package perimeter

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/rollcall-hq/rollcall/internal/geo"
	"github.com/rollcall-hq/rollcall/internal/identity"
	"github.com/rollcall-hq/rollcall/internal/platform/httpx"
)

// Handler exposes perimeter configuration and membership checks.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers perimeter routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.getPerimeter)
	r.Put("/", h.setPerimeter)
	r.Post("/check", h.checkMembership)
}

type coordinatePayload struct {
	Lat *float64 `json:"lat" validate:"required"`
	Lng *float64 `json:"lng" validate:"required"`
}

type setPerimeterRequest struct {
	Center *coordinatePayload `json:"center" validate:"required"`
	Radius *float64           `json:"radius" validate:"required"`
}

func (h *Handler) setPerimeter(w http.ResponseWriter, r *http.Request) {
	id, ok := identity.FromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}

	var req setPerimeterRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.ProblemCode(w, http.StatusBadRequest, "validation_failed", "Validation Failed", "request body must be valid JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.ProblemCode(w, http.StatusBadRequest, "validation_failed", "Validation Failed", "center {lat, lng} and radius are required")
		return
	}

	p, err := h.service.Set(r.Context(), id.OrganizationID, *req.Center.Lat, *req.Center.Lng, *req.Radius)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) getPerimeter(w http.ResponseWriter, r *http.Request) {
	id, ok := identity.FromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}

	p, err := h.service.Get(r.Context(), id.OrganizationID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

type checkMembershipRequest struct {
	Lat *float64 `json:"lat" validate:"required"`
	Lng *float64 `json:"lng" validate:"required"`
}

func (h *Handler) checkMembership(w http.ResponseWriter, r *http.Request) {
	id, ok := identity.FromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}

	var req checkMembershipRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.ProblemCode(w, http.StatusBadRequest, "validation_failed", "Validation Failed", "request body must be valid JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.ProblemCode(w, http.StatusBadRequest, "validation_failed", "Validation Failed", "lat and lng are required")
		return
	}

	point, err := geo.New(*req.Lat, *req.Lng)
	if err != nil {
		h.respondError(w, err)
		return
	}

	eval, err := h.service.CheckMembership(r.Context(), id.OrganizationID, point)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, eval)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, geo.ErrOutOfRange):
		httpx.ProblemCode(w, http.StatusBadRequest, "invalid_coordinate", "Validation Failed", "latitude must be in [-90, 90] and longitude in [-180, 180]")
	case errors.Is(err, geo.ErrNotNumeric):
		httpx.ProblemCode(w, http.StatusBadRequest, "invalid_coordinate", "Validation Failed", "latitude and longitude must be finite numbers")
	case errors.Is(err, ErrInvalidRadius):
		httpx.ProblemCode(w, http.StatusBadRequest, "invalid_radius", "Validation Failed", err.Error())
	case errors.Is(err, ErrNotConfigured):
		httpx.ProblemCode(w, http.StatusNotFound, "perimeter_not_configured", "Not Found", "no perimeter configured for this organization")
	case errors.Is(err, httpx.ErrUnavailable):
		httpx.RespondError(w, err)
	default:
		h.logger.Error("perimeter request failed", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
