package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/baechuer/silverback/internal/domain"
)

type auditEntry struct {
	action string
	fields map[string]string
}

type fakeUserRepo struct {
	mu sync.Mutex

	byID map[string]domain.User

	getErr    error
	createErr error
	writeErr  error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byID: map[string]domain.User{}}
}

func (f *fakeUserRepo) put(u domain.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[u.ID] = u
}

func (f *fakeUserRepo) get(id string) domain.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byID[id]
}

func (f *fakeUserRepo) find(match func(domain.User) bool) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return domain.User{}, f.getErr
	}
	for _, u := range f.byID {
		if match(u) {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrUserNotFound()
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id string) (domain.User, error) {
	return f.find(func(u domain.User) bool { return u.ID == id })
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	return f.find(func(u domain.User) bool { return strings.EqualFold(u.Email, email) })
}

func (f *fakeUserRepo) GetByResetToken(ctx context.Context, token string) (domain.User, error) {
	return f.find(func(u domain.User) bool { return u.ResetPasswordToken != nil && *u.ResetPasswordToken == token })
}

func (f *fakeUserRepo) GetByRefreshToken(ctx context.Context, token string) (domain.User, error) {
	return f.find(func(u domain.User) bool { return u.RefreshToken != nil && *u.RefreshToken == token })
}

func (f *fakeUserRepo) Create(ctx context.Context, u domain.User) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return domain.User{}, f.createErr
	}
	for _, existing := range f.byID {
		if strings.EqualFold(existing.Email, u.Email) {
			return domain.User{}, domain.ErrEmailAlreadyExists()
		}
	}
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	f.byID[u.ID] = u
	return u, nil
}

func (f *fakeUserRepo) update(id string, fn func(*domain.User)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	u, ok := f.byID[id]
	if !ok {
		return domain.ErrUserNotFound()
	}
	fn(&u)
	f.byID[id] = u
	return nil
}

func (f *fakeUserRepo) UpdatePasswordHash(ctx context.Context, userID, hash string) error {
	return f.update(userID, func(u *domain.User) { u.PasswordHash = hash })
}

func (f *fakeUserRepo) SetResetToken(ctx context.Context, userID, token string) error {
	return f.update(userID, func(u *domain.User) { u.ResetPasswordToken = &token })
}

func (f *fakeUserRepo) SetRefreshToken(ctx context.Context, userID string, token *string) error {
	return f.update(userID, func(u *domain.User) { u.RefreshToken = token })
}

func (f *fakeUserRepo) ConsumeResetToken(ctx context.Context, token, hash, fromStatus, toStatus string) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return domain.User{}, f.writeErr
	}
	for id, u := range f.byID {
		if u.ResetPasswordToken != nil && *u.ResetPasswordToken == token && u.Status == fromStatus {
			u.PasswordHash = hash
			u.ResetPasswordToken = nil
			u.RefreshToken = nil
			u.Status = toStatus
			f.byID[id] = u
			return u, nil
		}
	}
	return domain.User{}, domain.ErrResetTokenNotFound()
}

type fakeHasher struct {
	hashErr error
}

func (h *fakeHasher) Hash(pw string) (string, error) {
	if h.hashErr != nil {
		return "", h.hashErr
	}
	return "hash:" + pw, nil
}

func (h *fakeHasher) Compare(hash, pw string) error {
	if hash != "hash:"+pw {
		return errors.New("mismatch")
	}
	return nil
}

type fakeSigner struct {
	err error
}

func (s *fakeSigner) SignAccessToken(userID string, ttl time.Duration) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "access:" + userID, nil
}

type fakeTokens struct {
	mu sync.Mutex
	n  int
}

func (g *fakeTokens) NewToken() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("tok-%d", g.n), nil
}

type sentMail struct {
	kind  string
	email string
	token string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentMail
}

func (n *fakeNotifier) PasswordReset(ctx context.Context, u domain.User, token string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentMail{kind: "reset", email: u.Email, token: token})
}

func (n *fakeNotifier) Invitation(ctx context.Context, u domain.User, token string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentMail{kind: "invite", email: u.Email, token: token})
}

type testEnv struct {
	svc    *Service
	users  *fakeUserRepo
	hasher *fakeHasher
	signer *fakeSigner
	notify *fakeNotifier
	audits *[]auditEntry
}

func newSvcForTest(t *testing.T) testEnv {
	t.Helper()

	env := testEnv{
		users:  newFakeUserRepo(),
		hasher: &fakeHasher{},
		signer: &fakeSigner{},
		notify: &fakeNotifier{},
		audits: &[]auditEntry{},
	}
	var mu sync.Mutex
	env.svc = NewService(env.users, env.hasher, env.signer, &fakeTokens{}, env.notify, Config{AccessTTL: time.Hour}).
		WithAudit(func(_ context.Context, action string, fields map[string]string) {
			mu.Lock()
			defer mu.Unlock()
			*env.audits = append(*env.audits, auditEntry{action: action, fields: fields})
		})
	return env
}

func seedUser(env testEnv, id, email, password, status string) domain.User {
	u := domain.User{
		ID:           id,
		Email:        email,
		PasswordHash: "hash:" + password,
		Role:         domain.RoleUser,
		Status:       status,
	}
	env.users.put(u)
	return u
}

func requireErrCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error code=%q, got nil", code)
	}
	if !domain.Is(err, code) {
		t.Fatalf("expected code=%q, got err=%v", code, err)
	}
}
