package http_handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/baechuer/silverback/internal/application/auth"
	"github.com/baechuer/silverback/internal/application/codes"
	"github.com/baechuer/silverback/internal/application/users"
	"github.com/baechuer/silverback/internal/domain"
	"github.com/baechuer/silverback/internal/infrastructure/memory"
	"github.com/baechuer/silverback/internal/infrastructure/security"
	"github.com/baechuer/silverback/internal/transport/http/middleware"
)

// captureNotifier records the tokens that would have been emailed.
type captureNotifier struct {
	mu      sync.Mutex
	resets  map[string]string
	invites map[string]string
}

func newCaptureNotifier() *captureNotifier {
	return &captureNotifier{resets: map[string]string{}, invites: map[string]string{}}
}

func (n *captureNotifier) PasswordReset(_ context.Context, u domain.User, token string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.resets[u.Email] = token
}

func (n *captureNotifier) Invitation(_ context.Context, u domain.User, token string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.invites[u.Email] = token
}

func (n *captureNotifier) resetFor(email string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.resets[email]
}

func (n *captureNotifier) inviteFor(email string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.invites[email]
}

type testEnv struct {
	users  *memory.UserRepo
	codes  *memory.CodeRepo
	hasher *security.BcryptHasher
	notify *captureNotifier
	roles  *domain.RoleRegistry

	authH  *AuthHandler
	usersH *UsersHandler
	codesH *CodesHandler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		users:  memory.NewUserRepo(),
		codes:  memory.NewCodeRepo(),
		hasher: security.NewBcryptHasher(4),
		notify: newCaptureNotifier(),
		roles:  domain.DefaultRoles(),
	}
	signer := security.NewJWTSigner("test-secret", "silverback", "silverback-api")
	tokens := security.NewRandomTokens(32)

	authSvc := auth.NewService(env.users, env.hasher, signer, tokens, env.notify, auth.Config{AccessTTL: time.Hour})
	usersSvc := users.NewService(env.users, env.roles, env.hasher, tokens, env.notify)

	env.authH = NewAuthHandler(authSvc)
	env.usersH = NewUsersHandler(usersSvc, authSvc, env.roles)
	env.codesH = NewCodesHandler(codes.NewService(env.codes))
	return env
}

// seedUser stores a REGISTERED user with the given password.
func (e *testEnv) seedUser(t *testing.T, id, email, role, password string) domain.User {
	t.Helper()
	hash, err := e.hasher.Hash(password)
	require.NoError(t, err)
	u, err := e.users.Create(context.Background(), domain.User{
		ID:           id,
		Email:        email,
		FirstName:    "Test",
		LastName:     "User",
		PasswordHash: hash,
		Role:         role,
		Status:       domain.StatusRegistered,
	})
	require.NoError(t, err)
	return u
}

// mustJSONBody marshals v to JSON and returns an io.Reader for request body.
func mustJSONBody(t *testing.T, v any) io.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(b)
}

// mustReadData decodes the {"data": ...} envelope into out.
func mustReadData(t *testing.T, r io.Reader, out any) {
	t.Helper()
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	raw, err := io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &env), "body=%s", raw)
	require.NotEmpty(t, env.Data, "body=%s", raw)
	require.NoError(t, json.Unmarshal(env.Data, out), "body=%s", raw)
}

type listBody[T any] struct {
	Data       []T `json:"data"`
	TotalCount int `json:"totalCount"`
}

func mustReadList[T any](t *testing.T, r io.Reader) listBody[T] {
	t.Helper()
	var out listBody[T]
	require.NoError(t, json.NewDecoder(r).Decode(&out))
	return out
}

func errorCodeOf(t *testing.T, r io.Reader) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(r).Decode(&body))
	return body.Error.Code
}

// withUser attaches u as the authenticated user, as the auth gates would.
func withUser(req *http.Request, u domain.User) *http.Request {
	return req.WithContext(middleware.WithCurrentUser(req.Context(), u))
}

// withURLParams injects chi URL params (e.g. /users/{id}) into request context.
func withURLParams(req *http.Request, kv ...string) *http.Request {
	rctx := chi.RouteContext(req.Context())
	if rctx == nil {
		rctx = chi.NewRouteContext()
	}
	for i := 0; i+1 < len(kv); i += 2 {
		rctx.URLParams.Add(kv[i], kv[i+1])
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}
