package location

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/rollcall-hq/rollcall/internal/geo"
	"github.com/rollcall-hq/rollcall/internal/identity"
	"github.com/rollcall-hq/rollcall/internal/platform/httpx"
)

// Handler exposes the last-known-location mirror.
type Handler struct {
	logger    *slog.Logger
	store     *Store
	validator *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, store *Store) *Handler {
	return &Handler{logger: logger, store: store, validator: validator.New()}
}

// MountRoutes registers location routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/current", h.current)
	r.Post("/update", h.update)
}

type updateRequest struct {
	Lat *float64 `json:"lat" validate:"required"`
	Lng *float64 `json:"lng" validate:"required"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity.FromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}

	var req updateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.ProblemCode(w, http.StatusBadRequest, "validation_failed", "Validation Failed", "request body must be valid JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.ProblemCode(w, http.StatusBadRequest, "validation_failed", "Validation Failed", "lat and lng are required")
		return
	}

	coord, err := geo.New(*req.Lat, *req.Lng)
	if err != nil {
		httpx.ProblemCode(w, http.StatusBadRequest, "invalid_coordinate", "Validation Failed", "latitude must be in [-90, 90] and longitude in [-180, 180]")
		return
	}

	pos, err := h.store.Update(r.Context(), ident.UserID, coord, time.Now())
	if err != nil {
		h.logger.Error("update location failed", slog.Any("error", err))
		httpx.RespondError(w, httpx.ErrUnavailable)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"location": pos})
}

func (h *Handler) current(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity.FromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}

	pos, err := h.store.Current(r.Context(), ident.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.ProblemCode(w, http.StatusNotFound, "location_not_found", "Not Found", "no recent location for this user")
			return
		}
		h.logger.Error("fetch location failed", slog.Any("error", err))
		httpx.RespondError(w, httpx.ErrUnavailable)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"location": pos})
}
