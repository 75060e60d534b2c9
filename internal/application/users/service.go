// Package users implements administration of accounts and self-service
// profile edits.
package users

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/baechuer/silverback/internal/domain"
)

type Repo interface {
	List(ctx context.Context, f domain.Filters) (domain.Page[domain.User], error)
	GetByID(ctx context.Context, id string) (domain.User, error)
	Create(ctx context.Context, u domain.User) (domain.User, error)
	Update(ctx context.Context, id string, p domain.UserPatch) (domain.User, error)
	Delete(ctx context.Context, id string) error
}

type PasswordHasher interface {
	Hash(password string) (string, error)
}

type TokenGenerator interface {
	NewToken() (string, error)
}

type Inviter interface {
	Invitation(ctx context.Context, u domain.User, token string)
}

type Service struct {
	repo   Repo
	roles  *domain.RoleRegistry
	hasher PasswordHasher
	tokens TokenGenerator
	invite Inviter
	audit  func(ctx context.Context, action string, fields map[string]string)
}

func NewService(repo Repo, roles *domain.RoleRegistry, hasher PasswordHasher, tokens TokenGenerator, invite Inviter) *Service {
	return &Service{
		repo:   repo,
		roles:  roles,
		hasher: hasher,
		tokens: tokens,
		invite: invite,
		audit:  func(context.Context, string, map[string]string) {},
	}
}

func (s *Service) WithAudit(fn func(ctx context.Context, action string, fields map[string]string)) *Service {
	if fn != nil {
		s.audit = fn
	}
	return s
}

func (s *Service) List(ctx context.Context, f domain.Filters) (domain.Page[domain.User], error) {
	return s.repo.List(ctx, f)
}

func (s *Service) Get(ctx context.Context, id string) (domain.User, error) {
	return s.repo.GetByID(ctx, id)
}

type CreateInput struct {
	Email     string
	FirstName string
	LastName  string
	Role      string
}

// Create invites a user. The account starts in COMPLETE_REGISTRATION with
// an unusable password; the invitee sets one through the emailed link.
func (s *Service) Create(ctx context.Context, actor domain.User, in CreateInput) (domain.User, error) {
	role := in.Role
	if role == "" {
		role = domain.RoleUser
	}
	if !s.roles.IsValid(role) {
		return domain.User{}, domain.ErrInvalidRole(role)
	}
	if err := s.requireAtLeast(actor, role); err != nil {
		return domain.User{}, err
	}

	token, err := s.tokens.NewToken()
	if err != nil {
		return domain.User{}, err
	}
	unusable, err := s.tokens.NewToken()
	if err != nil {
		return domain.User{}, err
	}
	hash, err := s.hasher.Hash(unusable)
	if err != nil {
		return domain.User{}, domain.ErrHashFailed(err)
	}

	u, err := s.repo.Create(ctx, domain.User{
		ID:                 uuid.NewString(),
		Email:              strings.ToLower(strings.TrimSpace(in.Email)),
		FirstName:          strings.TrimSpace(in.FirstName),
		LastName:           strings.TrimSpace(in.LastName),
		PasswordHash:       hash,
		Role:               role,
		Status:             domain.StatusCompleteRegistration,
		ResetPasswordToken: &token,
	})
	if err != nil {
		return domain.User{}, err
	}

	s.invite.Invitation(ctx, u, token)
	s.audit(ctx, "users.create", map[string]string{"actor_id": actor.ID, "target_id": u.ID, "role": role})
	return u, nil
}

// Update applies an admin edit. Actors cannot change their own role or
// status, touch users ranked above them, or grant a role above their own.
func (s *Service) Update(ctx context.Context, actor domain.User, id string, p domain.UserPatch) (domain.User, error) {
	const action = "users.update"
	audit := func(err error, extra map[string]string) {
		fields := map[string]string{"actor_id": actor.ID, "target_id": id, "result": "success"}
		if err != nil {
			fields["result"] = "error"
			fields["error_code"] = domainCode(err)
		}
		for k, v := range extra {
			fields[k] = v
		}
		s.audit(ctx, action, fields)
	}

	if p.Role != nil && !s.roles.IsValid(*p.Role) {
		err := domain.ErrInvalidRole(*p.Role)
		audit(err, nil)
		return domain.User{}, err
	}
	if p.Status != nil && !domain.IsValidStatus(*p.Status) {
		err := domain.ErrInvalidStatus(*p.Status)
		audit(err, nil)
		return domain.User{}, err
	}
	if actor.ID == id && (p.Role != nil || p.Status != nil) {
		err := domain.ErrCannotAffectSelf()
		audit(err, nil)
		return domain.User{}, err
	}

	target, err := s.repo.GetByID(ctx, id)
	if err != nil {
		audit(err, nil)
		return domain.User{}, err
	}
	if err := s.requireAtLeast(actor, target.Role); err != nil {
		audit(err, nil)
		return domain.User{}, err
	}
	if p.Role != nil {
		if err := s.requireAtLeast(actor, *p.Role); err != nil {
			audit(err, nil)
			return domain.User{}, err
		}
	}
	if p.Empty() {
		return target, nil
	}

	u, err := s.repo.Update(ctx, id, p)
	extra := map[string]string{}
	if p.Role != nil && *p.Role != target.Role {
		extra["old_role"], extra["new_role"] = target.Role, *p.Role
	}
	if p.Status != nil && *p.Status != target.Status {
		extra["old_status"], extra["new_status"] = target.Status, *p.Status
	}
	audit(err, extra)
	return u, err
}

// UpdateProfile lets a user edit their own names.
func (s *Service) UpdateProfile(ctx context.Context, userID string, firstName, lastName *string) (domain.User, error) {
	p := domain.UserPatch{FirstName: trimmed(firstName), LastName: trimmed(lastName)}
	if p.Empty() {
		return s.repo.GetByID(ctx, userID)
	}
	return s.repo.Update(ctx, userID, p)
}

func (s *Service) Delete(ctx context.Context, actor domain.User, id string) error {
	if actor.ID == id {
		return domain.ErrCannotAffectSelf()
	}
	target, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.requireAtLeast(actor, target.Role); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.audit(ctx, "users.delete", map[string]string{"actor_id": actor.ID, "target_id": id, "email": target.Email})
	return nil
}

func (s *Service) requireAtLeast(actor domain.User, role string) error {
	ok, err := s.roles.HasRole(actor.Role, role)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrNoPermission(role)
	}
	return nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

func domainCode(err error) string {
	if de, ok := domain.As(err); ok {
		return de.Code
	}
	return "non_domain_error"
}
