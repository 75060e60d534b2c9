package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/baechuer/silverback/internal/domain"
	"github.com/baechuer/silverback/internal/infrastructure/db/filter"
)

type UserRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

var userColumns = []string{
	"id", "email", "first_name", "last_name", "password_hash", "role", "status",
	"reset_password_token", "refresh_token", "created_at", "updated_at",
}

var userColumnList = joinColumns(userColumns)

func joinColumns(cols []string) string { return strings.Join(cols, ", ") }

// UserListOptions is the list contract of GET /users.
var UserListOptions = filter.Options{
	DefaultLimit: 50,
	DefaultSort:  []string{"email DESC"},
	SortFields: map[string]string{
		"email":     "email",
		"firstName": "first_name",
		"lastName":  "last_name",
		"status":    "status",
		"createdAt": "created_at",
	},
	SearchFields: []string{"id", "email", "first_name", "last_name"},
}

type userRow struct {
	ID                 string
	Email              string
	FirstName          string
	LastName           string
	PasswordHash       string
	Role               string
	Status             string
	ResetPasswordToken sql.NullString
	RefreshToken       sql.NullString
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

type scanner interface {
	Scan(dest ...any) error
}

func (ur *userRow) targets() []any {
	return []any{
		&ur.ID, &ur.Email, &ur.FirstName, &ur.LastName, &ur.PasswordHash, &ur.Role, &ur.Status,
		&ur.ResetPasswordToken, &ur.RefreshToken, &ur.CreatedAt, &ur.UpdatedAt,
	}
}

func scanUser(s scanner) (domain.User, error) {
	var ur userRow
	if err := s.Scan(ur.targets()...); err != nil {
		return domain.User{}, err
	}
	return ur.toDomain(), nil
}

func (ur userRow) toDomain() domain.User {
	return domain.User{
		ID:                 ur.ID,
		Email:              ur.Email,
		FirstName:          ur.FirstName,
		LastName:           ur.LastName,
		PasswordHash:       ur.PasswordHash,
		Role:               ur.Role,
		Status:             ur.Status,
		ResetPasswordToken: nullable(ur.ResetPasswordToken),
		RefreshToken:       nullable(ur.RefreshToken),
		CreatedAt:          ur.CreatedAt,
		UpdatedAt:          ur.UpdatedAt,
	}
}

func nullable(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (r *UserRepo) getOne(ctx context.Context, where string, arg any) (domain.User, error) {
	q := "SELECT " + userColumnList + " FROM users WHERE " + where + " LIMIT 1"
	u, err := scanUser(r.db.QueryRowContext(ctx, q, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, domain.ErrUserNotFound()
		}
		return domain.User{}, domain.ErrDBUnavailable(err)
	}
	return u, nil
}

// ---------- reads ----------

func (r *UserRepo) GetByID(ctx context.Context, id string) (domain.User, error) {
	// ids are uuids; anything else cannot exist and would fail the cast
	if _, err := uuid.Parse(strings.TrimSpace(id)); err != nil {
		return domain.User{}, domain.ErrUserNotFound()
	}
	return r.getOne(ctx, "id = $1", strings.TrimSpace(id))
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	email = normalizeEmail(email)
	if email == "" {
		return domain.User{}, domain.ErrMissingField("email")
	}
	return r.getOne(ctx, "lower(email) = $1", email)
}

func (r *UserRepo) GetByResetToken(ctx context.Context, token string) (domain.User, error) {
	if token == "" {
		return domain.User{}, domain.ErrUserNotFound()
	}
	return r.getOne(ctx, "reset_password_token = $1", token)
}

func (r *UserRepo) GetByRefreshToken(ctx context.Context, token string) (domain.User, error) {
	if token == "" {
		return domain.User{}, domain.ErrUserNotFound()
	}
	return r.getOne(ctx, "refresh_token = $1", token)
}

// List returns one page of users and the total before pagination, in a
// single query.
func (r *UserRepo) List(ctx context.Context, f domain.Filters) (domain.Page[domain.User], error) {
	b := filter.WithTotalCount(filter.Psql.Select(userColumns...).From("users"))
	q, args, err := filter.Apply(b, f, UserListOptions).ToSql()
	if err != nil {
		return domain.Page[domain.User]{}, domain.ErrInternal(err)
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return domain.Page[domain.User]{}, domain.ErrDBUnavailable(err)
	}
	defer rows.Close()

	page := domain.Page[domain.User]{Items: []domain.User{}}
	for rows.Next() {
		var ur userRow
		if err := rows.Scan(append(ur.targets(), &page.TotalCount)...); err != nil {
			return domain.Page[domain.User]{}, domain.ErrDBUnavailable(err)
		}
		page.Items = append(page.Items, ur.toDomain())
	}
	if err := rows.Err(); err != nil {
		return domain.Page[domain.User]{}, domain.ErrDBUnavailable(err)
	}
	return page, nil
}

// ---------- writes ----------

func (r *UserRepo) Create(ctx context.Context, u domain.User) (domain.User, error) {
	u.Email = normalizeEmail(u.Email)
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

	q := `
INSERT INTO users (id, email, first_name, last_name, password_hash, role, status, reset_password_token)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING ` + userColumnList

	created, err := scanUser(r.db.QueryRowContext(ctx, q,
		u.ID, u.Email, u.FirstName, u.LastName, u.PasswordHash, u.Role, u.Status, u.ResetPasswordToken,
	))
	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return domain.User{}, domain.ErrEmailAlreadyExists()
		}
		return domain.User{}, domain.ErrDBUnavailable(err)
	}
	return created, nil
}

func (r *UserRepo) Update(ctx context.Context, id string, p domain.UserPatch) (domain.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.User{}, domain.ErrUserNotFound()
	}

	set := map[string]any{"updated_at": sq.Expr("now()")}
	if p.FirstName != nil {
		set["first_name"] = *p.FirstName
	}
	if p.LastName != nil {
		set["last_name"] = *p.LastName
	}
	if p.Role != nil {
		set["role"] = *p.Role
	}
	if p.Status != nil {
		set["status"] = *p.Status
	}

	q, args, err := filter.Psql.Update("users").
		SetMap(set).
		Where(sq.Eq{"id": id}).
		Suffix("RETURNING " + userColumnList).
		ToSql()
	if err != nil {
		return domain.User{}, domain.ErrInternal(err)
	}

	u, err := scanUser(r.db.QueryRowContext(ctx, q, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, domain.ErrUserNotFound()
		}
		return domain.User{}, domain.ErrDBUnavailable(err)
	}
	return u, nil
}

func (r *UserRepo) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return domain.ErrUserNotFound()
	}
	return r.execOne(ctx, `DELETE FROM users WHERE id = $1`, id)
}

func (r *UserRepo) UpdatePasswordHash(ctx context.Context, userID, hash string) error {
	if hash == "" {
		return domain.ErrMissingField("password_hash")
	}
	return r.execOne(ctx, `UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`, userID, hash)
}

func (r *UserRepo) SetResetToken(ctx context.Context, userID, token string) error {
	return r.execOne(ctx, `UPDATE users SET reset_password_token = $2, updated_at = now() WHERE id = $1`, userID, token)
}

func (r *UserRepo) SetRefreshToken(ctx context.Context, userID string, token *string) error {
	return r.execOne(ctx, `UPDATE users SET refresh_token = $2, updated_at = now() WHERE id = $1`, userID, token)
}

func (r *UserRepo) ConsumeResetToken(ctx context.Context, token, hash, fromStatus, toStatus string) (domain.User, error) {
	if token == "" {
		return domain.User{}, domain.ErrResetTokenNotFound()
	}
	q := `
UPDATE users
SET password_hash = $2, status = $3, reset_password_token = NULL, refresh_token = NULL, updated_at = now()
WHERE reset_password_token = $1 AND status = $4
RETURNING ` + userColumnList

	u, err := scanUser(r.db.QueryRowContext(ctx, q, token, hash, toStatus, fromStatus))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, domain.ErrResetTokenNotFound()
		}
		return domain.User{}, domain.ErrDBUnavailable(err)
	}
	return u, nil
}

// execOne runs a single-row write and maps "no row" to user_not_found.
func (r *UserRepo) execOne(ctx context.Context, q string, args ...any) error {
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return domain.ErrDBUnavailable(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domain.ErrDBUnavailable(err)
	}
	if n == 0 {
		return domain.ErrUserNotFound()
	}
	return nil
}
