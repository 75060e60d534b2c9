package domain

import "sort"

const (
	RoleUser      = "USER"
	RoleAdmin     = "ADMIN"
	RoleSuperuser = "SUPERUSER"
)

type Role struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Level       int    `json:"level"`
	Description string `json:"description,omitempty"`
}

// HasRole reports whether r is at least as privileged as required.
func (r Role) HasRole(required Role) bool {
	return r.Level >= required.Level
}

// RoleRegistry is the fixed role table. It is built once at startup and
// never mutated, so it is safe to share between goroutines.
type RoleRegistry struct {
	byCode map[string]Role
}

func NewRoleRegistry(roles ...Role) *RoleRegistry {
	m := make(map[string]Role, len(roles))
	for _, r := range roles {
		m[r.Code] = r
	}
	return &RoleRegistry{byCode: m}
}

// DefaultRoles returns the registry shipped with the service.
func DefaultRoles() *RoleRegistry {
	return NewRoleRegistry(
		Role{Code: RoleUser, Name: "User", Level: 0, Description: "Regular user"},
		Role{Code: RoleAdmin, Name: "Admin", Level: 10, Description: "Manages users and codes"},
		Role{Code: RoleSuperuser, Name: "Superuser", Level: 999, Description: "Full access"},
	)
}

// Lookup resolves a role code. An unknown code is a configuration or data
// problem, reported as an internal error rather than a permission outcome.
func (rr *RoleRegistry) Lookup(code string) (Role, error) {
	r, ok := rr.byCode[code]
	if !ok {
		return Role{}, ErrUnknownRole(code)
	}
	return r, nil
}

func (rr *RoleRegistry) IsValid(code string) bool {
	_, ok := rr.byCode[code]
	return ok
}

// HasRole compares two role codes by level.
func (rr *RoleRegistry) HasRole(have, required string) (bool, error) {
	h, err := rr.Lookup(have)
	if err != nil {
		return false, err
	}
	req, err := rr.Lookup(required)
	if err != nil {
		return false, err
	}
	return h.HasRole(req), nil
}

// All returns the roles ordered by level, lowest first.
func (rr *RoleRegistry) All() []Role {
	out := make([]Role, 0, len(rr.byCode))
	for _, r := range rr.byCode {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Level < out[j].Level })
	return out
}
