// Package codes manages code types (LANGUAGES, USER_STATUSES, ...) and the
// codes they own.
package codes

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/baechuer/silverback/internal/domain"
)

type Repo interface {
	ListCodeTypes(ctx context.Context, f domain.Filters) (domain.Page[domain.CodeType], error)
	GetCodeType(ctx context.Context, code string) (domain.CodeType, error)
	CreateCodeType(ctx context.Context, ct domain.CodeType) (domain.CodeType, error)

	ListCodes(ctx context.Context, codeTypeID string, f domain.CodeFilters) (domain.Page[domain.Code], error)
	CreateCode(ctx context.Context, c domain.Code) (domain.Code, error)
	SetDeprecated(ctx context.Context, codeTypeID, codeID string, deprecated bool) (domain.Code, error)
}

type Service struct {
	repo Repo
}

func NewService(repo Repo) *Service {
	return &Service{repo: repo}
}

func (s *Service) ListCodeTypes(ctx context.Context, f domain.Filters) (domain.Page[domain.CodeType], error) {
	return s.repo.ListCodeTypes(ctx, f)
}

type CodeTypeInput struct {
	Code        string
	Name        string
	Description *string
}

func (s *Service) CreateCodeType(ctx context.Context, in CodeTypeInput) (domain.CodeType, error) {
	code := normalizeCode(in.Code)
	if code == "" {
		return domain.CodeType{}, domain.ErrMissingField("code")
	}
	return s.repo.CreateCodeType(ctx, domain.CodeType{
		ID:          uuid.NewString(),
		Code:        code,
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
	})
}

// ListCodes lists the codes of a type. Deprecated codes are hidden unless
// f.ShowDeprecated is set.
func (s *Service) ListCodes(ctx context.Context, codeType string, f domain.CodeFilters) (domain.Page[domain.Code], error) {
	ct, err := s.repo.GetCodeType(ctx, normalizeCode(codeType))
	if err != nil {
		return domain.Page[domain.Code]{}, err
	}
	return s.repo.ListCodes(ctx, ct.ID, f)
}

type CodeInput struct {
	Code        string
	Name        string
	Description *string
}

func (s *Service) CreateCode(ctx context.Context, codeType string, in CodeInput) (domain.Code, error) {
	code := normalizeCode(in.Code)
	if code == "" {
		return domain.Code{}, domain.ErrMissingField("code")
	}
	ct, err := s.repo.GetCodeType(ctx, normalizeCode(codeType))
	if err != nil {
		return domain.Code{}, err
	}
	return s.repo.CreateCode(ctx, domain.Code{
		ID:          uuid.NewString(),
		CodeTypeID:  ct.ID,
		Code:        code,
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
	})
}

func (s *Service) SetDeprecated(ctx context.Context, codeType, codeID string, deprecated bool) (domain.Code, error) {
	ct, err := s.repo.GetCodeType(ctx, normalizeCode(codeType))
	if err != nil {
		return domain.Code{}, err
	}
	return s.repo.SetDeprecated(ctx, ct.ID, codeID, deprecated)
}

// Codes are stored upper-case, e.g. "en" becomes "EN".
func normalizeCode(c string) string {
	return strings.ToUpper(strings.TrimSpace(c))
}
