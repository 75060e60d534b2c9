package auth

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/baechuer/silverback/internal/domain"
)

type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// Register creates a self-registered USER and logs them in.
func (s *Service) Register(ctx context.Context, in RegisterInput) (AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || in.Password == "" {
		return AuthResult{}, domain.ErrInvalidField("email/password", "empty")
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return AuthResult{}, domain.ErrHashFailed(err)
	}

	u, err := s.users.Create(ctx, domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		PasswordHash: hash,
		Role:         domain.RoleUser,
		Status:       domain.StatusRegistered,
	})
	if err != nil {
		return AuthResult{}, err
	}

	toks, err := s.issueTokens(ctx, u.ID)
	if err != nil {
		return AuthResult{}, err
	}

	s.audit(ctx, "auth.register", map[string]string{"user_id": u.ID, "email": u.Email})
	return AuthResult{User: u, Tokens: toks}, nil
}

// ConfirmRegistration completes an admin invitation: the invitee picks a
// password with the token from their email and becomes REGISTERED.
func (s *Service) ConfirmRegistration(ctx context.Context, token, password string) (AuthResult, error) {
	if token == "" {
		return AuthResult{}, domain.ErrMissingField("token")
	}
	if password == "" {
		return AuthResult{}, domain.ErrMissingField("password")
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return AuthResult{}, domain.ErrHashFailed(err)
	}

	u, err := s.users.ConsumeResetToken(ctx, token, hash, domain.StatusCompleteRegistration, domain.StatusRegistered)
	if err != nil {
		s.audit(ctx, "auth.register_confirm", map[string]string{"result": "error", "error_code": domainCode(err)})
		return AuthResult{}, err
	}

	toks, err := s.issueTokens(ctx, u.ID)
	if err != nil {
		return AuthResult{}, err
	}

	s.audit(ctx, "auth.register_confirm", map[string]string{"result": "success", "user_id": u.ID})
	return AuthResult{User: u, Tokens: toks}, nil
}
