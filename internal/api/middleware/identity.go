package middleware

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/notes2gogo/backend/internal/infrastructure/observability"
	apperrors "github.com/notes2gogo/backend/pkg/errors"
)

// UserIDHeader names the caller identity set by the upstream authenticator
const UserIDHeader = "X-User-ID"

// ParseUserID reads a positive user id from the identity header
func ParseUserID(r *http.Request) (int64, bool) {
	raw := strings.TrimSpace(r.Header.Get(UserIDHeader))
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}

// IdentityMiddleware stores the caller's user id in the request context.
// Requests without a valid identity are answered with 401, except the
// paths listed in public.
func IdentityMiddleware(public ...string) func(http.Handler) http.Handler {
	open := make(map[string]struct{}, len(public))
	for _, p := range public {
		open[p] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := open[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			userID, ok := ParseUserID(r)
			if !ok {
				appErr := apperrors.NewUnauthorizedError("missing or invalid " + UserIDHeader + " header")
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				json.NewEncoder(w).Encode(map[string]string{"error": appErr.Message})
				return
			}

			ctx := observability.ContextWithUserID(r.Context(), userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
