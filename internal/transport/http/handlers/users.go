package http_handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/baechuer/silverback/internal/application/auth"
	"github.com/baechuer/silverback/internal/application/users"
	"github.com/baechuer/silverback/internal/domain"
	"github.com/baechuer/silverback/internal/logger"
	"github.com/baechuer/silverback/internal/transport/http/dto"
	"github.com/baechuer/silverback/internal/transport/http/middleware"
	"github.com/baechuer/silverback/internal/transport/http/response"
)

type UsersHandler struct {
	svc   *users.Service
	auth  *auth.Service
	roles *domain.RoleRegistry
}

func NewUsersHandler(svc *users.Service, authSvc *auth.Service, roles *domain.RoleRegistry) *UsersHandler {
	return &UsersHandler{svc: svc, auth: authSvc, roles: roles}
}

func actor(r *http.Request) (domain.User, error) {
	u, ok := middleware.CurrentUser(r.Context())
	if !ok {
		return domain.User{}, domain.ErrInvalidToken("missing")
	}
	return u, nil
}

// List handles GET /users.
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := h.svc.List(r.Context(), filtersFromQuery(r))
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.List(w, dto.NewUserViews(page.Items), page.TotalCount)
}

// Get handles GET /users/{id}.
func (h *UsersHandler) Get(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, dto.NewUserView(u))
}

// Create handles POST /users: an admin invites a new account.
func (h *UsersHandler) Create(w http.ResponseWriter, r *http.Request) {
	a, err := actor(r)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	var req dto.CreateUserRequest
	if err := response.DecodeJSON(w, r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	req.Normalize()
	if err := dto.Validate(req); err != nil {
		response.WriteError(w, r, err)
		return
	}

	u, err := h.svc.Create(r.Context(), a, users.CreateInput{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      req.Role,
	})
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	logger.WithCtx(r.Context()).Info().
		Str("actor_id", a.ID).
		Str("user_id", u.ID).
		Str("role", u.Role).
		Msg("user_invited")

	response.Created(w, dto.NewUserView(u))
}

// Update handles PATCH /users/{id}.
func (h *UsersHandler) Update(w http.ResponseWriter, r *http.Request) {
	a, err := actor(r)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	var req dto.UpdateUserRequest
	if err := response.DecodeJSON(w, r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	req.Normalize()
	if err := dto.Validate(req); err != nil {
		response.WriteError(w, r, err)
		return
	}

	u, err := h.svc.Update(r.Context(), a, chi.URLParam(r, "id"), domain.UserPatch{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      req.Role,
		Status:    req.Status,
	})
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, dto.NewUserView(u))
}

// Delete handles DELETE /users/{id}.
func (h *UsersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	a, err := actor(r)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.svc.Delete(r.Context(), a, id); err != nil {
		response.WriteError(w, r, err)
		return
	}

	logger.WithCtx(r.Context()).Info().
		Str("actor_id", a.ID).
		Str("user_id", id).
		Msg("user_deleted")

	response.NoContent(w)
}

// Me handles GET /me.
func (h *UsersHandler) Me(w http.ResponseWriter, r *http.Request) {
	a, err := actor(r)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	u, err := h.auth.Me(r.Context(), a.ID)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, dto.NewUserView(u))
}

// UpdateMe handles PATCH /me. Only names are editable by the owner.
func (h *UsersHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	a, err := actor(r)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	var req dto.UpdateProfileRequest
	if err := response.DecodeJSON(w, r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := dto.Validate(req); err != nil {
		response.WriteError(w, r, err)
		return
	}

	u, err := h.svc.UpdateProfile(r.Context(), a.ID, req.FirstName, req.LastName)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, dto.NewUserView(u))
}

// Roles handles GET /roles.
func (h *UsersHandler) Roles(w http.ResponseWriter, r *http.Request) {
	response.OK(w, dto.NewRoleViews(h.roles.All()))
}
