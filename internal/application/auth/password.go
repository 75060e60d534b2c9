package auth

import (
	"context"
	"strings"

	"github.com/baechuer/silverback/internal/domain"
)

// ChangePassword changes the password of an authenticated user.
func (s *Service) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if userID == "" {
		return domain.ErrInvalidToken("missing")
	}
	if oldPassword == "" || newPassword == "" {
		return domain.ErrInvalidField("password", "empty")
	}

	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.hasher.Compare(u.PasswordHash, oldPassword); err != nil {
		return domain.ErrInvalidCredentials()
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return domain.ErrHashFailed(err)
	}
	if err := s.users.UpdatePasswordHash(ctx, userID, hash); err != nil {
		return err
	}

	s.audit(ctx, "auth.password_change", map[string]string{"user_id": userID})
	return nil
}

// ForgotPassword stores a fresh reset token and queues the reset email.
// It reports success whether or not the email is known; callers always
// answer 200 so the endpoint cannot be used to enumerate accounts.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return domain.ErrMissingField("email")
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if domain.Is(err, domain.CodeUserNotFound) {
			s.audit(ctx, "auth.password_reset_requested", map[string]string{"email": email, "result": "unknown_email"})
			return nil
		}
		return err
	}
	if u.Status != domain.StatusRegistered {
		s.audit(ctx, "auth.password_reset_requested", map[string]string{"user_id": u.ID, "result": "skipped_" + strings.ToLower(u.Status)})
		return nil
	}

	token, err := s.tokens.NewToken()
	if err != nil {
		return err
	}
	if err := s.users.SetResetToken(ctx, u.ID, token); err != nil {
		return err
	}

	s.notify.PasswordReset(ctx, u, token)
	s.audit(ctx, "auth.password_reset_requested", map[string]string{"user_id": u.ID, "result": "sent"})
	return nil
}

// ValidateResetToken reports whether token can still be used.
func (s *Service) ValidateResetToken(ctx context.Context, token string) error {
	if token == "" {
		return domain.ErrMissingField("token")
	}
	u, err := s.users.GetByResetToken(ctx, token)
	if err != nil {
		if domain.Is(err, domain.CodeUserNotFound) {
			return domain.ErrResetTokenNotFound()
		}
		return err
	}
	if u.Status == domain.StatusBlocked {
		return domain.ErrResetTokenNotFound()
	}
	return nil
}

// ResetPassword consumes token and sets the new password.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if token == "" {
		return domain.ErrMissingField("token")
	}
	if newPassword == "" {
		return domain.ErrMissingField("password")
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return domain.ErrHashFailed(err)
	}

	u, err := s.users.ConsumeResetToken(ctx, token, hash, domain.StatusRegistered, domain.StatusRegistered)
	if err != nil {
		s.audit(ctx, "auth.password_reset_completed", map[string]string{"result": "error", "error_code": domainCode(err)})
		return err
	}

	s.audit(ctx, "auth.password_reset_completed", map[string]string{"result": "success", "user_id": u.ID})
	return nil
}

// Me returns the profile of the authenticated user.
func (s *Service) Me(ctx context.Context, userID string) (domain.User, error) {
	if userID == "" {
		return domain.User{}, domain.ErrInvalidToken("missing")
	}
	return s.users.GetByID(ctx, userID)
}
