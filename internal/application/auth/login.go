package auth

import (
	"context"
	"strings"

	"github.com/baechuer/silverback/internal/domain"
)

// Login authenticates by email and password. Unknown email and wrong
// password produce the same error.
func (s *Service) Login(ctx context.Context, email, password string) (AuthResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return AuthResult{}, domain.ErrInvalidCredentials()
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if domain.Is(err, domain.CodeUserNotFound) {
			s.audit(ctx, "auth.login", map[string]string{"result": "failed", "email": email, "reason": "unknown_email"})
			return AuthResult{}, domain.ErrInvalidCredentials()
		}
		return AuthResult{}, err
	}

	if err := s.hasher.Compare(u.PasswordHash, password); err != nil {
		s.audit(ctx, "auth.login", map[string]string{"result": "failed", "email": email, "reason": "bad_password"})
		return AuthResult{}, domain.ErrInvalidCredentials()
	}

	// Only after the password matched, so status does not leak for guesses.
	if err := domain.StatusError(u.Status); err != nil {
		s.audit(ctx, "auth.login", map[string]string{"result": "failed", "user_id": u.ID, "reason": domainCode(err)})
		return AuthResult{}, err
	}

	toks, err := s.issueTokens(ctx, u.ID)
	if err != nil {
		return AuthResult{}, err
	}

	s.audit(ctx, "auth.login", map[string]string{"result": "success", "user_id": u.ID})
	return AuthResult{User: u, Tokens: toks}, nil
}

// Refresh exchanges a refresh token for a new pair. The old refresh token
// stops working.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (AuthResult, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return AuthResult{}, domain.ErrRefreshTokenInvalid()
	}

	u, err := s.users.GetByRefreshToken(ctx, refreshToken)
	if err != nil {
		if domain.Is(err, domain.CodeUserNotFound) {
			return AuthResult{}, domain.ErrRefreshTokenInvalid()
		}
		return AuthResult{}, err
	}
	if err := domain.StatusError(u.Status); err != nil {
		return AuthResult{}, err
	}

	toks, err := s.issueTokens(ctx, u.ID)
	if err != nil {
		return AuthResult{}, err
	}
	return AuthResult{User: u, Tokens: toks}, nil
}

// Logout drops the stored refresh token. Access tokens stay valid until
// they expire.
func (s *Service) Logout(ctx context.Context, userID string) error {
	if userID == "" {
		return domain.ErrInvalidToken("missing")
	}
	if err := s.users.SetRefreshToken(ctx, userID, nil); err != nil {
		return err
	}
	s.audit(ctx, "auth.logout", map[string]string{"user_id": userID})
	return nil
}
