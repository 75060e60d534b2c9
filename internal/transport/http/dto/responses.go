package dto

import (
	"time"

	"github.com/baechuer/silverback/internal/application/auth"
	"github.com/baechuer/silverback/internal/domain"
)

// UserView is the user payload of every endpoint. Secrets (hash, tokens)
// never leave the service.
type UserView struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Role      string    `json:"role"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func NewUserView(u domain.User) UserView {
	return UserView{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      u.Role,
		Status:    u.Status,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func NewUserViews(us []domain.User) []UserView {
	out := make([]UserView, 0, len(us))
	for _, u := range us {
		out = append(out, NewUserView(u))
	}
	return out
}

type TokensView struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	TokenType    string `json:"tokenType"` // "Bearer"
	ExpiresIn    int64  `json:"expiresIn"` // seconds
}

// AuthData is returned by register, login, refresh and register/confirm.
type AuthData struct {
	User   UserView   `json:"user"`
	Tokens TokensView `json:"tokens"`
}

func NewAuthData(r auth.AuthResult) AuthData {
	return AuthData{
		User: NewUserView(r.User),
		Tokens: TokensView{
			AccessToken:  r.Tokens.AccessToken,
			RefreshToken: r.Tokens.RefreshToken,
			TokenType:    r.Tokens.TokenType,
			ExpiresIn:    r.Tokens.ExpiresIn,
		},
	}
}

type StatusView struct {
	Status string `json:"status"`
}

type ValidView struct {
	Valid bool `json:"valid"`
}

type RoleView struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Level       int    `json:"level"`
	Description string `json:"description,omitempty"`
}

func NewRoleViews(rs []domain.Role) []RoleView {
	out := make([]RoleView, 0, len(rs))
	for _, r := range rs {
		out = append(out, RoleView{Code: r.Code, Name: r.Name, Level: r.Level, Description: r.Description})
	}
	return out
}

type CodeTypeView struct {
	ID          string    `json:"id"`
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func NewCodeTypeView(ct domain.CodeType) CodeTypeView {
	return CodeTypeView{
		ID:          ct.ID,
		Code:        ct.Code,
		Name:        ct.Name,
		Description: ct.Description,
		CreatedAt:   ct.CreatedAt,
		UpdatedAt:   ct.UpdatedAt,
	}
}

func NewCodeTypeViews(cts []domain.CodeType) []CodeTypeView {
	out := make([]CodeTypeView, 0, len(cts))
	for _, ct := range cts {
		out = append(out, NewCodeTypeView(ct))
	}
	return out
}

type CodeView struct {
	ID          string    `json:"id"`
	CodeTypeID  string    `json:"codeTypeId"`
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	Deprecated  bool      `json:"deprecated"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func NewCodeView(c domain.Code) CodeView {
	return CodeView{
		ID:          c.ID,
		CodeTypeID:  c.CodeTypeID,
		Code:        c.Code,
		Name:        c.Name,
		Description: c.Description,
		Deprecated:  c.Deprecated,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func NewCodeViews(cs []domain.Code) []CodeView {
	out := make([]CodeView, 0, len(cs))
	for _, c := range cs {
		out = append(out, NewCodeView(c))
	}
	return out
}
