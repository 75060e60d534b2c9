package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/baechuer/silverback/internal/application/auth"
	"github.com/baechuer/silverback/internal/domain"
	"github.com/baechuer/silverback/internal/logger"
)

type TokenVerifier interface {
	VerifyAccessToken(token string) (auth.TokenClaims, error)
}

// UserLoader is the source of truth for the user behind a token. Users are
// loaded on every request; nothing is cached across requests.
type UserLoader interface {
	GetByID(ctx context.Context, id string) (domain.User, error)
}

type WriteErrFunc func(http.ResponseWriter, *http.Request, error)

// UserStatus authenticates the bearer token, loads the user and rejects
// accounts whose status may not use the API. On success the user is
// attached to the request context.
func UserStatus(verifier TokenVerifier, users UserLoader, writeErr WriteErrFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, err := authenticate(r, verifier, users)
			if err != nil {
				writeErr(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithCurrentUser(r.Context(), u)))
		})
	}
}

// Permission is UserStatus followed by a minimum role check. An empty
// minRole only authenticates.
func Permission(verifier TokenVerifier, users UserLoader, roles *domain.RoleRegistry, minRole string, writeErr WriteErrFunc) func(http.Handler) http.Handler {
	status := UserStatus(verifier, users, writeErr)
	if minRole == "" {
		return status
	}
	role := RequireRole(roles, minRole, writeErr)
	return func(next http.Handler) http.Handler {
		return status(role(next))
	}
}

// authenticate runs token -> claims -> user -> status, in that order.
func authenticate(r *http.Request, verifier TokenVerifier, users UserLoader) (domain.User, error) {
	ctx := r.Context()

	raw, err := bearerToken(r)
	if err != nil {
		reject(ctx, err, "token", "")
		return domain.User{}, err
	}

	claims, err := verifier.VerifyAccessToken(raw)
	if err != nil {
		reject(ctx, err, "token", tokenFragment(raw))
		return domain.User{}, err
	}
	if strings.TrimSpace(claims.UserID) == "" {
		err := domain.ErrInvalidToken("payload")
		reject(ctx, err, "token", tokenFragment(raw))
		return domain.User{}, err
	}

	u, err := users.GetByID(ctx, claims.UserID)
	if err != nil {
		reject(ctx, err, "user_id", claims.UserID)
		return domain.User{}, err
	}

	if err := domain.StatusError(u.Status); err != nil {
		reject(ctx, err, "email", u.Email)
		return domain.User{}, err
	}
	return u, nil
}

func bearerToken(r *http.Request) (string, error) {
	h := r.Header.Get("Authorization")
	if h == "" {
		return "", domain.ErrInvalidToken("missing")
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", domain.ErrInvalidToken("malformed_header")
	}
	raw := strings.TrimSpace(parts[1])
	if raw == "" {
		return "", domain.ErrInvalidToken("malformed_header")
	}
	return raw, nil
}

func reject(ctx context.Context, err error, idKey, idVal string) {
	ev := logger.WithCtx(ctx).Warn().Str("gate", "auth")
	if de, ok := domain.As(err); ok {
		ev = ev.Str("reason", de.Code)
		if r := de.Meta["reason"]; r != "" {
			ev = ev.Str("detail", r)
		}
	} else {
		ev = ev.Err(err)
	}
	if idVal != "" {
		ev = ev.Str(idKey, idVal)
	}
	ev.Msg("request rejected")
}

// tokenFragment is enough of a token to correlate log lines without
// making the log a credential store.
func tokenFragment(tok string) string {
	if len(tok) <= 12 {
		return "***"
	}
	return tok[:8] + "..." + tok[len(tok)-4:]
}
