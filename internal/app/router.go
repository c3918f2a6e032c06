package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rollcall-hq/rollcall/internal/identity"
	"github.com/rollcall-hq/rollcall/internal/location"
	"github.com/rollcall-hq/rollcall/internal/observability"
	"github.com/rollcall-hq/rollcall/internal/perimeter"
	"github.com/rollcall-hq/rollcall/internal/shift"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	Verifier         identity.Verifier
	PerimeterHandler *perimeter.Handler
	ShiftHandler     *shift.Handler
	LocationHandler  *location.Handler
	Metrics          *observability.Metrics
}

// NewRouter constructs the chi.Router with Rollcall defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	// Everything else requires a verified identity.
	r.Group(func(r chi.Router) {
		r.Use(identity.Middleware(params.Verifier, params.Logger))

		r.Route("/perimeter", params.PerimeterHandler.MountRoutes)
		r.Route("/shifts", params.ShiftHandler.MountRoutes)
		r.Route("/location", params.LocationHandler.MountRoutes)
	})

	return r
}
