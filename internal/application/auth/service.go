package auth

import (
	"context"
	"time"

	"github.com/baechuer/silverback/internal/domain"
)

type Service struct {
	users  UserRepo
	hasher PasswordHasher
	signer TokenSigner
	tokens TokenGenerator
	notify Notifier

	accessTTL time.Duration
	audit     func(ctx context.Context, action string, fields map[string]string)
}

type Config struct {
	AccessTTL time.Duration
}

func NewService(
	users UserRepo,
	hasher PasswordHasher,
	signer TokenSigner,
	tokens TokenGenerator,
	notify Notifier,
	cfg Config,
) *Service {
	ttl := cfg.AccessTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Service{
		users:     users,
		hasher:    hasher,
		signer:    signer,
		tokens:    tokens,
		notify:    notify,
		accessTTL: ttl,
		audit:     func(context.Context, string, map[string]string) {},
	}
}

func (s *Service) WithAudit(fn func(ctx context.Context, action string, fields map[string]string)) *Service {
	if fn != nil {
		s.audit = fn
	}
	return s
}

// AuthTokens is the token pair returned by register, login and refresh.
type AuthTokens struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64 // seconds
	TokenType    string
}

type AuthResult struct {
	User   domain.User
	Tokens AuthTokens
}

// issueTokens signs an access token and rotates the stored refresh token.
func (s *Service) issueTokens(ctx context.Context, userID string) (AuthTokens, error) {
	access, err := s.signer.SignAccessToken(userID, s.accessTTL)
	if err != nil {
		return AuthTokens{}, domain.ErrTokenSignFailed(err)
	}

	refresh, err := s.tokens.NewToken()
	if err != nil {
		return AuthTokens{}, err
	}
	if err := s.users.SetRefreshToken(ctx, userID, &refresh); err != nil {
		return AuthTokens{}, err
	}

	return AuthTokens{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.accessTTL.Seconds()),
		TokenType:    "Bearer",
	}, nil
}

func domainCode(err error) string {
	if err == nil {
		return ""
	}
	if de, ok := domain.As(err); ok {
		return de.Code
	}
	return "non_domain_error"
}
