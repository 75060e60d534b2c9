package middleware

import (
	"net/http"

	"github.com/baechuer/silverback/internal/domain"
	"github.com/baechuer/silverback/internal/logger"
)

// RequireRole enforces the role hierarchy of roles. It must run after
// UserStatus. Unknown role codes on either side are server errors, never a
// silent allow or deny.
func RequireRole(roles *domain.RoleRegistry, minRole string, writeErr WriteErrFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := CurrentUser(r.Context())
			if !ok {
				// Auth not applied
				writeErr(w, r, domain.ErrInvalidToken("missing"))
				return
			}

			allowed, err := roles.HasRole(u.Role, minRole)
			if err != nil {
				logger.WithCtx(r.Context()).Error().Err(err).
					Str("user_id", u.ID).Str("role", u.Role).Str("required", minRole).
					Msg("role lookup failed")
				writeErr(w, r, err)
				return
			}
			if !allowed {
				err := domain.ErrNoPermission(minRole)
				reject(r.Context(), err, "email", u.Email)
				writeErr(w, r, err)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
