package http_handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baechuer/silverback/internal/domain"
	"github.com/baechuer/silverback/internal/transport/http/dto"
)

func TestUsersList_PaginatesWithTotalCount(t *testing.T) {
	env := newTestEnv(t)
	for i := 0; i < 25; i++ {
		env.seedUser(t, fmt.Sprintf("u%02d", i), fmt.Sprintf("user%02d@example.com", i), domain.RoleUser, "Passw0rdX")
	}

	rr := httptest.NewRecorder()
	env.usersH.List(rr, httptest.NewRequest(http.MethodGet, "/users?limit=10&offset=20", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	body := mustReadList[dto.UserView](t, rr.Body)
	assert.Len(t, body.Data, 5)
	assert.Equal(t, 25, body.TotalCount)
}

func TestUsersList_SearchAndIgnoredSort(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "u1", "ada@example.com", domain.RoleAdmin, "Passw0rdX")
	env.seedUser(t, "u2", "grace@example.com", domain.RoleUser, "Passw0rdX")
	env.seedUser(t, "u3", "alan@example.com", domain.RoleUser, "Passw0rdX")

	rr := httptest.NewRecorder()
	env.usersH.List(rr, httptest.NewRequest(http.MethodGet, "/users?search=GRACE", nil))
	body := mustReadList[dto.UserView](t, rr.Body)
	require.Len(t, body.Data, 1)
	assert.Equal(t, "grace@example.com", body.Data[0].Email)

	rr = httptest.NewRecorder()
	env.usersH.List(rr, httptest.NewRequest(http.MethodGet, "/users?sortField=role&sortOrder=ASC&limit=abc", nil))
	body = mustReadList[dto.UserView](t, rr.Body)
	require.Len(t, body.Data, 3)
	assert.Equal(t, []string{"grace@example.com", "alan@example.com", "ada@example.com"},
		[]string{body.Data[0].Email, body.Data[1].Email, body.Data[2].Email})
}

func TestUsersGet_NotFound(t *testing.T) {
	env := newTestEnv(t)

	rr := httptest.NewRecorder()
	env.usersH.Get(rr, withURLParams(httptest.NewRequest(http.MethodGet, "/users/missing", nil), "id", "missing"))

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, domain.CodeUserNotFound, errorCodeOf(t, rr.Body))
}

func TestUsersCreate_InvitesAndConfirms(t *testing.T) {
	env := newTestEnv(t)
	admin := env.seedUser(t, "admin", "admin@example.com", domain.RoleAdmin, "Passw0rdX")

	req := httptest.NewRequest(http.MethodPost, "/users", mustJSONBody(t, map[string]any{
		"email": "new@example.com", "firstName": "New", "lastName": "Person", "role": "user",
	}))
	rr := httptest.NewRecorder()
	env.usersH.Create(rr, withUser(req, admin))

	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var created dto.UserView
	mustReadData(t, rr.Body, &created)
	assert.Equal(t, domain.RoleUser, created.Role)
	assert.Equal(t, domain.StatusCompleteRegistration, created.Status)

	token := env.notify.inviteFor("new@example.com")
	require.NotEmpty(t, token)

	rr = httptest.NewRecorder()
	env.authH.ConfirmRegistration(rr, httptest.NewRequest(http.MethodPost, "/auth/register/confirm", mustJSONBody(t, map[string]any{
		"token": token, "password": "Ch0senPass",
	})))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var confirmed dto.AuthData
	mustReadData(t, rr.Body, &confirmed)
	assert.Equal(t, domain.StatusRegistered, confirmed.User.Status)
	assert.NotEmpty(t, confirmed.Tokens.AccessToken)
}

func TestUsersCreate_CannotGrantHigherRole(t *testing.T) {
	env := newTestEnv(t)
	admin := env.seedUser(t, "admin", "admin@example.com", domain.RoleAdmin, "Passw0rdX")

	req := httptest.NewRequest(http.MethodPost, "/users", mustJSONBody(t, map[string]any{
		"email": "boss@example.com", "firstName": "B", "lastName": "S", "role": domain.RoleSuperuser,
	}))
	rr := httptest.NewRecorder()
	env.usersH.Create(rr, withUser(req, admin))

	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, domain.CodeNoPermission, errorCodeOf(t, rr.Body))
}

func TestUsersUpdate(t *testing.T) {
	env := newTestEnv(t)
	admin := env.seedUser(t, "admin", "admin@example.com", domain.RoleAdmin, "Passw0rdX")
	env.seedUser(t, "u1", "ada@example.com", domain.RoleUser, "Passw0rdX")

	patch := func(id string, body map[string]any) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPatch, "/users/"+id, mustJSONBody(t, body))
		rr := httptest.NewRecorder()
		env.usersH.Update(rr, withURLParams(withUser(req, admin), "id", id))
		return rr
	}

	rr := patch("u1", map[string]any{"status": "blocked"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var u dto.UserView
	mustReadData(t, rr.Body, &u)
	assert.Equal(t, domain.StatusBlocked, u.Status)

	assert.Equal(t, http.StatusBadRequest, patch("u1", map[string]any{"role": "emperor"}).Code)
	assert.Equal(t, http.StatusForbidden, patch("admin", map[string]any{"role": domain.RoleUser}).Code)
}

func TestUsersDelete(t *testing.T) {
	env := newTestEnv(t)
	admin := env.seedUser(t, "admin", "admin@example.com", domain.RoleAdmin, "Passw0rdX")
	env.seedUser(t, "u1", "ada@example.com", domain.RoleUser, "Passw0rdX")
	env.seedUser(t, "root", "root@example.com", domain.RoleSuperuser, "Passw0rdX")

	del := func(id string) int {
		req := httptest.NewRequest(http.MethodDelete, "/users/"+id, nil)
		rr := httptest.NewRecorder()
		env.usersH.Delete(rr, withURLParams(withUser(req, admin), "id", id))
		return rr.Code
	}

	assert.Equal(t, http.StatusForbidden, del("admin"))
	assert.Equal(t, http.StatusForbidden, del("root"))
	assert.Equal(t, http.StatusNoContent, del("u1"))
	assert.Equal(t, http.StatusNotFound, del("u1"))
}

func TestMe_AndUpdateMe(t *testing.T) {
	env := newTestEnv(t)
	u := env.seedUser(t, "u1", "ada@example.com", domain.RoleUser, "Passw0rdX")

	rr := httptest.NewRecorder()
	env.usersH.Me(rr, withUser(httptest.NewRequest(http.MethodGet, "/me", nil), u))
	require.Equal(t, http.StatusOK, rr.Code)
	var me dto.UserView
	mustReadData(t, rr.Body, &me)
	assert.Equal(t, "ada@example.com", me.Email)

	req := httptest.NewRequest(http.MethodPatch, "/me", mustJSONBody(t, map[string]any{"firstName": "  Augusta "}))
	rr = httptest.NewRecorder()
	env.usersH.UpdateMe(rr, withUser(req, u))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	mustReadData(t, rr.Body, &me)
	assert.Equal(t, "Augusta", me.FirstName)
	assert.Equal(t, "User", me.LastName)
}

func TestUpdateMe_RoleIsNotAccepted(t *testing.T) {
	env := newTestEnv(t)
	u := env.seedUser(t, "u1", "ada@example.com", domain.RoleUser, "Passw0rdX")

	req := httptest.NewRequest(http.MethodPatch, "/me", mustJSONBody(t, map[string]any{"role": domain.RoleSuperuser}))
	rr := httptest.NewRecorder()
	env.usersH.UpdateMe(rr, withUser(req, u))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRoles_ListsRegistry(t *testing.T) {
	env := newTestEnv(t)

	rr := httptest.NewRecorder()
	env.usersH.Roles(rr, httptest.NewRequest(http.MethodGet, "/roles", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var roles []dto.RoleView
	mustReadData(t, rr.Body, &roles)
	codes := make([]string, 0, len(roles))
	for _, r := range roles {
		codes = append(codes, r.Code)
	}
	assert.ElementsMatch(t, []string{domain.RoleUser, domain.RoleAdmin, domain.RoleSuperuser}, codes)
}
