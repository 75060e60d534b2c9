package postgres

import (
	"context"
	"database/sql"
	"errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/baechuer/silverback/internal/domain"
	"github.com/baechuer/silverback/internal/infrastructure/db/filter"
)

type CodeRepo struct {
	db *sql.DB
}

func NewCodeRepo(db *sql.DB) *CodeRepo {
	return &CodeRepo{db: db}
}

var (
	codeTypeColumns = []string{"id", "code", "name", "description", "created_at", "updated_at"}
	codeColumns     = []string{"id", "code_type_id", "code", "name", "description", "deprecated", "created_at", "updated_at"}
)

var CodeTypeListOptions = filter.Options{
	DefaultLimit: 50,
	DefaultSort:  []string{"code ASC"},
	SortFields: map[string]string{
		"code":      "code",
		"name":      "name",
		"createdAt": "created_at",
	},
	SearchFields: []string{"code", "name"},
}

var CodeListOptions = filter.Options{
	DefaultLimit: 50,
	DefaultSort:  []string{"code ASC"},
	SortFields: map[string]string{
		"code":      "code",
		"name":      "name",
		"createdAt": "created_at",
	},
	SearchFields: []string{"code", "name", "description"},
}

func codeTypeTargets(ct *domain.CodeType, desc *sql.NullString) []any {
	return []any{&ct.ID, &ct.Code, &ct.Name, desc, &ct.CreatedAt, &ct.UpdatedAt}
}

func codeTargets(c *domain.Code, desc *sql.NullString) []any {
	return []any{&c.ID, &c.CodeTypeID, &c.Code, &c.Name, desc, &c.Deprecated, &c.CreatedAt, &c.UpdatedAt}
}

// ---------- code types ----------

func (r *CodeRepo) ListCodeTypes(ctx context.Context, f domain.Filters) (domain.Page[domain.CodeType], error) {
	b := filter.WithTotalCount(filter.Psql.Select(codeTypeColumns...).From("code_types"))
	q, args, err := filter.Apply(b, f, CodeTypeListOptions).ToSql()
	if err != nil {
		return domain.Page[domain.CodeType]{}, domain.ErrInternal(err)
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return domain.Page[domain.CodeType]{}, domain.ErrDBUnavailable(err)
	}
	defer rows.Close()

	page := domain.Page[domain.CodeType]{Items: []domain.CodeType{}}
	for rows.Next() {
		var (
			ct   domain.CodeType
			desc sql.NullString
		)
		if err := rows.Scan(append(codeTypeTargets(&ct, &desc), &page.TotalCount)...); err != nil {
			return domain.Page[domain.CodeType]{}, domain.ErrDBUnavailable(err)
		}
		ct.Description = nullable(desc)
		page.Items = append(page.Items, ct)
	}
	if err := rows.Err(); err != nil {
		return domain.Page[domain.CodeType]{}, domain.ErrDBUnavailable(err)
	}
	return page, nil
}

func (r *CodeRepo) GetCodeType(ctx context.Context, code string) (domain.CodeType, error) {
	q, args, err := filter.Psql.Select(codeTypeColumns...).From("code_types").
		Where(sq.Eq{"code": code}).Limit(1).ToSql()
	if err != nil {
		return domain.CodeType{}, domain.ErrInternal(err)
	}

	var (
		ct   domain.CodeType
		desc sql.NullString
	)
	if err := r.db.QueryRowContext(ctx, q, args...).Scan(codeTypeTargets(&ct, &desc)...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.CodeType{}, domain.ErrCodeTypeNotFound(code)
		}
		return domain.CodeType{}, domain.ErrDBUnavailable(err)
	}
	ct.Description = nullable(desc)
	return ct, nil
}

func (r *CodeRepo) CreateCodeType(ctx context.Context, ct domain.CodeType) (domain.CodeType, error) {
	q, args, err := filter.Psql.Insert("code_types").
		Columns("id", "code", "name", "description").
		Values(ct.ID, ct.Code, ct.Name, ct.Description).
		Suffix("RETURNING created_at, updated_at").
		ToSql()
	if err != nil {
		return domain.CodeType{}, domain.ErrInternal(err)
	}

	if err := r.db.QueryRowContext(ctx, q, args...).Scan(&ct.CreatedAt, &ct.UpdatedAt); err != nil {
		if _, ok := uniqueViolation(err); ok {
			return domain.CodeType{}, domain.ErrCodeDuplicate(ct.Code)
		}
		return domain.CodeType{}, domain.ErrDBUnavailable(err)
	}
	return ct, nil
}

// ---------- codes ----------

func (r *CodeRepo) ListCodes(ctx context.Context, codeTypeID string, f domain.CodeFilters) (domain.Page[domain.Code], error) {
	b := filter.Psql.Select(codeColumns...).From("codes").Where(sq.Eq{"code_type_id": codeTypeID})
	if !f.ShowDeprecated {
		b = b.Where(sq.Eq{"deprecated": false})
	}
	q, args, err := filter.Apply(filter.WithTotalCount(b), f.Filters, CodeListOptions).ToSql()
	if err != nil {
		return domain.Page[domain.Code]{}, domain.ErrInternal(err)
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return domain.Page[domain.Code]{}, domain.ErrDBUnavailable(err)
	}
	defer rows.Close()

	page := domain.Page[domain.Code]{Items: []domain.Code{}}
	for rows.Next() {
		var (
			c    domain.Code
			desc sql.NullString
		)
		if err := rows.Scan(append(codeTargets(&c, &desc), &page.TotalCount)...); err != nil {
			return domain.Page[domain.Code]{}, domain.ErrDBUnavailable(err)
		}
		c.Description = nullable(desc)
		page.Items = append(page.Items, c)
	}
	if err := rows.Err(); err != nil {
		return domain.Page[domain.Code]{}, domain.ErrDBUnavailable(err)
	}
	return page, nil
}

func (r *CodeRepo) CreateCode(ctx context.Context, c domain.Code) (domain.Code, error) {
	q, args, err := filter.Psql.Insert("codes").
		Columns("id", "code_type_id", "code", "name", "description", "deprecated").
		Values(c.ID, c.CodeTypeID, c.Code, c.Name, c.Description, c.Deprecated).
		Suffix("RETURNING created_at, updated_at").
		ToSql()
	if err != nil {
		return domain.Code{}, domain.ErrInternal(err)
	}

	if err := r.db.QueryRowContext(ctx, q, args...).Scan(&c.CreatedAt, &c.UpdatedAt); err != nil {
		if _, ok := uniqueViolation(err); ok {
			return domain.Code{}, domain.ErrCodeDuplicate(c.Code)
		}
		return domain.Code{}, domain.ErrDBUnavailable(err)
	}
	return c, nil
}

func (r *CodeRepo) SetDeprecated(ctx context.Context, codeTypeID, codeID string, deprecated bool) (domain.Code, error) {
	if _, err := uuid.Parse(codeID); err != nil {
		return domain.Code{}, domain.ErrCodeNotFound()
	}

	q, args, err := filter.Psql.Update("codes").
		Set("deprecated", deprecated).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"id": codeID, "code_type_id": codeTypeID}).
		Suffix("RETURNING " + joinColumns(codeColumns)).
		ToSql()
	if err != nil {
		return domain.Code{}, domain.ErrInternal(err)
	}

	var (
		c    domain.Code
		desc sql.NullString
	)
	if err := r.db.QueryRowContext(ctx, q, args...).Scan(codeTargets(&c, &desc)...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Code{}, domain.ErrCodeNotFound()
		}
		return domain.Code{}, domain.ErrDBUnavailable(err)
	}
	c.Description = nullable(desc)
	return c, nil
}
