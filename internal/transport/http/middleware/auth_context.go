package middleware

import (
	"context"

	"github.com/baechuer/silverback/internal/domain"
)

type ctxKey string

const ctxCurrentUser ctxKey = "current_user"

// WithCurrentUser attaches the authenticated user to ctx.
func WithCurrentUser(ctx context.Context, u domain.User) context.Context {
	return context.WithValue(ctx, ctxCurrentUser, u)
}

// CurrentUser returns the user attached by UserStatus / Permission.
func CurrentUser(ctx context.Context) (domain.User, bool) {
	u, ok := ctx.Value(ctxCurrentUser).(domain.User)
	return u, ok && u.ID != ""
}
