package auth

import (
	"context"
	"fmt"
	"net/http"

	"ms-invites/internal/logger"
	"ms-invites/internal/utils"
)

type contextKey string

const userIDKey contextKey = "user_id"

// Verifier validates a raw bearer token and returns its subject.
type Verifier interface {
	Verify(ctx context.Context, raw string) (string, error)
}

// Middleware rejects requests without a valid bearer token and stores the
// token subject in the request context.
func Middleware(v Verifier, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, err := ExtractTokenFromRequest(r)
			if err == nil {
				var sub string
				if sub, err = v.Verify(r.Context(), raw); err == nil {
					ctx := context.WithValue(r.Context(), userIDKey, sub)
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
			}
			log.Warn("AUTH", fmt.Sprintf("%s %s rejected: %v", r.Method, r.URL.Path, err))
			utils.WriteJSON(w, http.StatusUnauthorized, utils.ErrorResponse("unauthorized", err))
		})
	}
}

// UserID returns the authenticated subject, or "" outside the middleware.
func UserID(ctx context.Context) string {
	if uid, ok := ctx.Value(userIDKey).(string); ok {
		return uid
	}
	return ""
}
