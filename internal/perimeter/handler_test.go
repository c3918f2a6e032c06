package perimeter

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rollcall-hq/rollcall/internal/identity"
	"github.com/rollcall-hq/rollcall/internal/platform/httpx"
	_ "github.com/rollcall-hq/rollcall/testing"
)

func newHandlerRouter(t *testing.T) http.Handler {
	t.Helper()
	svc, _ := newTestService(t)
	r := chi.NewRouter()
	handler := NewHandler(slog.Default(), svc)
	r.Route("/perimeter", handler.MountRoutes)
	return r
}

func perimeterRequest(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	ident := identity.Identity{UserID: "manager-1", OrganizationID: "org-1"}
	req = req.WithContext(identity.ContextWithIdentity(req.Context(), ident))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) httpx.ProblemDetail {
	t.Helper()
	var problem httpx.ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	return problem
}

func TestSetAndGetPerimeterEndpoints(t *testing.T) {
	router := newHandlerRouter(t)

	rec := perimeterRequest(t, router, http.MethodPut, "/perimeter", `{"center":{"lat":40.0,"lng":-74.0},"radius":1000}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var p Perimeter
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.Equal(t, "org-1", p.OrgID)
	assert.Equal(t, 1000.0, p.RadiusMeters)

	rec = perimeterRequest(t, router, http.MethodGet, "/perimeter", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.Equal(t, 40.0, p.Center.Lat)
}

func TestGetPerimeterNotConfigured(t *testing.T) {
	router := newHandlerRouter(t)

	rec := perimeterRequest(t, router, http.MethodGet, "/perimeter", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "perimeter_not_configured", decodeProblem(t, rec).Code)
}

func TestSetPerimeterValidation(t *testing.T) {
	router := newHandlerRouter(t)

	cases := []struct {
		name string
		body string
		code string
	}{
		{"missing center", `{"radius":1000}`, "validation_failed"},
		{"missing radius", `{"center":{"lat":40.0,"lng":-74.0}}`, "validation_failed"},
		{"latitude out of range", `{"center":{"lat":999,"lng":0},"radius":1000}`, "invalid_coordinate"},
		{"radius too small", `{"center":{"lat":40.0,"lng":-74.0},"radius":0.5}`, "invalid_radius"},
		{"negative radius", `{"center":{"lat":40.0,"lng":-74.0},"radius":-5}`, "invalid_radius"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := perimeterRequest(t, router, http.MethodPut, "/perimeter", tc.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tc.code, decodeProblem(t, rec).Code)
		})
	}
}

func TestCheckMembershipEndpoint(t *testing.T) {
	router := newHandlerRouter(t)

	rec := perimeterRequest(t, router, http.MethodPut, "/perimeter", `{"center":{"lat":40.0,"lng":-74.0},"radius":1000}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = perimeterRequest(t, router, http.MethodPost, "/perimeter/check", `{"lat":40.0,"lng":-74.0}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var eval Evaluation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &eval))
	assert.True(t, eval.Inside)
	assert.Equal(t, 0.0, eval.DistanceMeters)

	rec = perimeterRequest(t, router, http.MethodPost, "/perimeter/check", `{"lat":40.01,"lng":-74.0}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &eval))
	assert.False(t, eval.Inside)
}

func TestCheckMembershipEndpointErrors(t *testing.T) {
	router := newHandlerRouter(t)

	rec := perimeterRequest(t, router, http.MethodPost, "/perimeter/check", `{"lat":40.0,"lng":-74.0}`)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "perimeter_not_configured", decodeProblem(t, rec).Code)

	rec = perimeterRequest(t, router, http.MethodPost, "/perimeter/check", `{"lat":999,"lng":0}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_coordinate", decodeProblem(t, rec).Code)

	rec = perimeterRequest(t, router, http.MethodPost, "/perimeter/check", `{"lng":-74.0}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_failed", decodeProblem(t, rec).Code)
}
