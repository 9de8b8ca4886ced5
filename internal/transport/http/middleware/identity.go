package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/IgorGrieder/linkquota/internal/constants"
	"github.com/IgorGrieder/linkquota/pkg/httputils"
	"github.com/google/uuid"
)

const UserIDHeader = "X-User-Id"

type userIDKey struct{}

// IdentityMiddleware reads the caller's identity from the X-User-Id header.
// A malformed value is always rejected; a missing one only when required.
func IdentityMiddleware(required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get(UserIDHeader))
			if raw == "" {
				if required {
					httputils.WriteAPIError(w, r, constants.ErrUnauthorized)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			id, err := uuid.Parse(raw)
			if err != nil || id == uuid.Nil {
				httputils.WriteAPIError(w, r, constants.ErrInvalidIdentity)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), id)))
		})
	}
}

func WithUserID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, userIDKey{}, id)
}

// UserIDFromContext returns the identity stored by IdentityMiddleware.
func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(userIDKey{}).(uuid.UUID)
	return id, ok
}
