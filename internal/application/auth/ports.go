package auth

import (
	"context"
	"time"

	"github.com/baechuer/silverback/internal/domain"
)

/*
UserRepo
--------
Persistence port for the account flows. Each write is a single statement.
*/
type UserRepo interface {
	GetByID(ctx context.Context, id string) (domain.User, error)
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	GetByResetToken(ctx context.Context, token string) (domain.User, error)
	GetByRefreshToken(ctx context.Context, token string) (domain.User, error)
	Create(ctx context.Context, u domain.User) (domain.User, error)

	UpdatePasswordHash(ctx context.Context, userID, hash string) error
	SetResetToken(ctx context.Context, userID, token string) error
	SetRefreshToken(ctx context.Context, userID string, token *string) error

	// ConsumeResetToken sets the password, clears the reset and refresh
	// tokens and moves the user from fromStatus to toStatus, all in one
	// statement matched on the token. A token can therefore succeed once.
	ConsumeResetToken(ctx context.Context, token, hash, fromStatus, toStatus string) (domain.User, error)
}

/*
PasswordHasher
--------------
Abstracts bcrypt.
*/
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash string, password string) error // nil if match
}

// TokenClaims is what the permission gate needs from a verified token.
type TokenClaims struct {
	UserID    string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type TokenSigner interface {
	SignAccessToken(userID string, ttl time.Duration) (string, error)
}

// TokenGenerator produces opaque random tokens.
type TokenGenerator interface {
	NewToken() (string, error)
}

/*
Notifier
--------
Sends account emails. Implementations must return immediately and deliver
in the background; failures are logged, never reported to the caller.
*/
type Notifier interface {
	PasswordReset(ctx context.Context, u domain.User, token string)
	Invitation(ctx context.Context, u domain.User, token string)
}
