package identity_test

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rollcall-hq/rollcall/internal/identity"
	_ "github.com/rollcall-hq/rollcall/testing"
)

const testSecret = "test-secret"

func testLogger() *slog.Logger {
	return slog.Default()
}

func signToken(t *testing.T, claims jwt.MapClaims, secret string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestVerifyExtractsClaims(t *testing.T) {
	verifier := identity.NewJWTVerifier(testSecret)
	token := signToken(t, jwt.MapClaims{
		"sub":     "user-1",
		"org_id":  "org-1",
		"name":    "Ada Lovelace",
		"picture": "https://example.com/ada.png",
		"exp":     time.Now().Add(time.Hour).Unix(),
	}, testSecret)

	ident, err := verifier.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", ident.UserID)
	assert.Equal(t, "org-1", ident.OrganizationID)
	assert.Equal(t, "Ada Lovelace", ident.DisplayName)
	assert.Equal(t, "https://example.com/ada.png", ident.AvatarURL)
}

func TestVerifyDefaultsOrganization(t *testing.T) {
	verifier := identity.NewJWTVerifier(testSecret)
	token := signToken(t, jwt.MapClaims{"sub": "user-1"}, testSecret)

	ident, err := verifier.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, identity.DefaultOrganization, ident.OrganizationID)
}

func TestVerifyRejections(t *testing.T) {
	verifier := identity.NewJWTVerifier(testSecret)

	_, err := verifier.Verify(context.Background(), "")
	require.ErrorIs(t, err, identity.ErrTokenMissing)

	_, err = verifier.Verify(context.Background(), "not-a-token")
	require.ErrorIs(t, err, identity.ErrTokenInvalid)

	wrongKey := signToken(t, jwt.MapClaims{"sub": "user-1"}, "other-secret")
	_, err = verifier.Verify(context.Background(), wrongKey)
	require.ErrorIs(t, err, identity.ErrTokenInvalid)

	expired := signToken(t, jwt.MapClaims{
		"sub": "user-1",
		"exp": time.Now().Add(-time.Hour).Unix(),
	}, testSecret)
	_, err = verifier.Verify(context.Background(), expired)
	require.ErrorIs(t, err, identity.ErrTokenInvalid)

	noSubject := signToken(t, jwt.MapClaims{"org_id": "org-1"}, testSecret)
	_, err = verifier.Verify(context.Background(), noSubject)
	require.ErrorIs(t, err, identity.ErrTokenInvalid)
}

func TestMiddleware(t *testing.T) {
	verifier := identity.NewJWTVerifier(testSecret)
	var seen identity.Identity
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = identity.FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	handler := identity.Middleware(verifier, testLogger())(next)

	token := signToken(t, jwt.MapClaims{"sub": "user-1", "org_id": "org-1"}, testSecret)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-1", seen.UserID)
	assert.Equal(t, "org-1", seen.OrganizationID)
}

func TestMiddlewareRejectsMissingToken(t *testing.T) {
	verifier := identity.NewJWTVerifier(testSecret)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run without identity")
	})
	handler := identity.Middleware(verifier, testLogger())(next)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMiddlewareRejectsMalformedHeader(t *testing.T) {
	verifier := identity.NewJWTVerifier(testSecret)
	handler := identity.Middleware(verifier, testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
