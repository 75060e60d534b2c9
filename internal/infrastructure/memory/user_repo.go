package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/baechuer/silverback/internal/domain"
)

// UserRepo is a process-local user store with the same contract as the
// postgres repository. Used by tests.
type UserRepo struct {
	mu   sync.RWMutex
	byID map[string]domain.User
	now  func() time.Time
}

func NewUserRepo() *UserRepo {
	return &UserRepo{byID: make(map[string]domain.User), now: time.Now}
}

var userList = listSpec[domain.User]{
	defaultLimit: 50,
	defaultLess:  func(a, b domain.User) bool { return a.Email > b.Email },
	sortFields: map[string]func(domain.User) string{
		"email":     func(u domain.User) string { return u.Email },
		"firstName": func(u domain.User) string { return u.FirstName },
		"lastName":  func(u domain.User) string { return u.LastName },
		"status":    func(u domain.User) string { return u.Status },
		"createdAt": func(u domain.User) string { return u.CreatedAt.Format(time.RFC3339Nano) },
	},
	search: []func(domain.User) string{
		func(u domain.User) string { return u.ID },
		func(u domain.User) string { return u.Email },
		func(u domain.User) string { return u.FirstName },
		func(u domain.User) string { return u.LastName },
	},
}

func (r *UserRepo) find(match func(domain.User) bool) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.byID {
		if match(u) {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrUserNotFound()
}

func (r *UserRepo) GetByID(_ context.Context, id string) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byID[strings.TrimSpace(id)]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound()
	}
	return u, nil
}

func (r *UserRepo) GetByEmail(_ context.Context, email string) (domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return domain.User{}, domain.ErrMissingField("email")
	}
	return r.find(func(u domain.User) bool { return strings.EqualFold(u.Email, email) })
}

func (r *UserRepo) GetByResetToken(_ context.Context, token string) (domain.User, error) {
	return r.find(func(u domain.User) bool {
		return token != "" && u.ResetPasswordToken != nil && *u.ResetPasswordToken == token
	})
}

func (r *UserRepo) GetByRefreshToken(_ context.Context, token string) (domain.User, error) {
	return r.find(func(u domain.User) bool {
		return token != "" && u.RefreshToken != nil && *u.RefreshToken == token
	})
}

func (r *UserRepo) List(_ context.Context, f domain.Filters) (domain.Page[domain.User], error) {
	r.mu.RLock()
	items := make([]domain.User, 0, len(r.byID))
	for _, u := range r.byID {
		items = append(items, u)
	}
	r.mu.RUnlock()
	return applyList(items, f, userList), nil
}

func (r *UserRepo) Create(_ context.Context, u domain.User) (domain.User, error) {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if u.ID == "" {
		return domain.User{}, domain.ErrMissingField("id")
	}
	if u.Email == "" {
		return domain.User{}, domain.ErrMissingField("email")
	}
	if u.PasswordHash == "" {
		return domain.User{}, domain.ErrMissingField("password_hash")
	}
	if u.Role == "" {
		u.Role = domain.RoleUser
	}
	if u.Status == "" {
		u.Status = domain.StatusRegistered
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, other := range r.byID {
		if other.Email == u.Email {
			return domain.User{}, domain.ErrEmailAlreadyExists()
		}
	}
	now := r.now()
	u.CreatedAt, u.UpdatedAt = now, now
	r.byID[u.ID] = u
	return u, nil
}

func (r *UserRepo) mutate(id string, fn func(*domain.User)) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound()
	}
	fn(&u)
	u.UpdatedAt = r.now()
	r.byID[id] = u
	return u, nil
}

func (r *UserRepo) Update(_ context.Context, id string, p domain.UserPatch) (domain.User, error) {
	return r.mutate(id, func(u *domain.User) {
		if p.FirstName != nil {
			u.FirstName = *p.FirstName
		}
		if p.LastName != nil {
			u.LastName = *p.LastName
		}
		if p.Role != nil {
			u.Role = *p.Role
		}
		if p.Status != nil {
			u.Status = *p.Status
		}
	})
}

func (r *UserRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return domain.ErrUserNotFound()
	}
	delete(r.byID, id)
	return nil
}

func (r *UserRepo) UpdatePasswordHash(_ context.Context, userID, hash string) error {
	if hash == "" {
		return domain.ErrMissingField("password_hash")
	}
	_, err := r.mutate(userID, func(u *domain.User) { u.PasswordHash = hash })
	return err
}

func (r *UserRepo) SetResetToken(_ context.Context, userID, token string) error {
	_, err := r.mutate(userID, func(u *domain.User) { u.ResetPasswordToken = &token })
	return err
}

func (r *UserRepo) SetRefreshToken(_ context.Context, userID string, token *string) error {
	_, err := r.mutate(userID, func(u *domain.User) { u.RefreshToken = token })
	return err
}

// ConsumeResetToken matches the single UPDATE of the postgres store: token
// and status are checked and cleared under one lock.
func (r *UserRepo) ConsumeResetToken(_ context.Context, token, hash, fromStatus, toStatus string) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, u := range r.byID {
		if token == "" || u.ResetPasswordToken == nil || *u.ResetPasswordToken != token || u.Status != fromStatus {
			continue
		}
		u.PasswordHash = hash
		u.Status = toStatus
		u.ResetPasswordToken = nil
		u.RefreshToken = nil
		u.UpdatedAt = r.now()
		r.byID[id] = u
		return u, nil
	}
	return domain.User{}, domain.ErrResetTokenNotFound()
}
