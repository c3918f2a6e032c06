package identity

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/rollcall-hq/rollcall/internal/platform/httpx"
)

// Middleware rejects requests without a verifiable bearer token and places
// the caller identity into the request context.
func Middleware(verifier Verifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			id, err := verifier.Verify(r.Context(), token)
			if err != nil {
				logger.Warn("token verification failed",
					slog.String("path", r.URL.Path),
					slog.Any("error", err))
				httpx.ProblemCode(w, http.StatusUnauthorized, "unauthorized", "Unauthorized", "a valid bearer token is required")
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithIdentity(r.Context(), id)))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
