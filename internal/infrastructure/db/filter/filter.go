// Package filter applies the shared list contract (pagination, sorting and
// free-text search) to squirrel select builders.
package filter

import (
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/baechuer/silverback/internal/domain"
)

// TotalCountColumn is the alias of the windowed count appended by WithTotalCount.
const TotalCountColumn = "total_count"

// Psql is the statement builder every repository starts from.
var Psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Options describe what a given list endpoint allows.
type Options struct {
	DefaultLimit  int
	DefaultOffset int
	// DefaultSort is applied when no whitelisted sort field was requested,
	// e.g. []string{"email DESC"}.
	DefaultSort []string
	// SortFields maps API field names to column expressions.
	SortFields map[string]string
	// SearchFields are the columns matched by Search. Empty disables search.
	SearchFields []string
}

// Apply adds search, ordering and pagination to b. It does not touch the
// builder passed in; squirrel builders are immutable values.
func Apply(b sq.SelectBuilder, f domain.Filters, o Options) sq.SelectBuilder {
	b = applySearch(b, f.Search, o.SearchFields)
	b = applySort(b, f, o)
	return applyPage(b, f, o)
}

// WithTotalCount adds the pre-pagination row count to every returned row.
// When offset is past the end no rows come back, so the count reads as 0.
func WithTotalCount(b sq.SelectBuilder) sq.SelectBuilder {
	return b.Column("COUNT(*) OVER() AS " + TotalCountColumn)
}

func applySearch(b sq.SelectBuilder, search string, fields []string) sq.SelectBuilder {
	if search == "" || len(fields) == 0 {
		return b
	}
	pattern := "%" + escapeLike(search) + "%"
	or := make(sq.Or, 0, len(fields))
	for _, col := range fields {
		or = append(or, sq.Expr("CAST("+col+" AS TEXT) ILIKE ?", pattern))
	}
	return b.Where(or)
}

// Unknown sort fields fall back to the default order instead of failing.
func applySort(b sq.SelectBuilder, f domain.Filters, o Options) sq.SelectBuilder {
	if col, ok := o.SortFields[f.SortField]; ok && f.SortField != "" {
		dir := "ASC"
		if strings.EqualFold(f.SortOrder, "desc") {
			dir = "DESC"
		}
		return b.OrderBy(col + " " + dir)
	}
	if len(o.DefaultSort) > 0 {
		return b.OrderBy(o.DefaultSort...)
	}
	return b
}

func applyPage(b sq.SelectBuilder, f domain.Filters, o Options) sq.SelectBuilder {
	limit := f.PageLimit(o.DefaultLimit)
	offset := o.DefaultOffset
	if f.Offset > 0 {
		offset = f.Offset
	}
	if limit > 0 {
		b = b.Limit(uint64(limit))
	}
	if offset > 0 {
		b = b.Offset(uint64(offset))
	}
	return b
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
