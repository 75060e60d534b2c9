package filter

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baechuer/silverback/internal/domain"
)

type Filters = domain.Filters

var userOpts = Options{
	DefaultLimit: 50,
	DefaultSort:  []string{"email DESC"},
	SortFields: map[string]string{
		"email":     "email",
		"firstName": "first_name",
	},
	SearchFields: []string{"email", "first_name"},
}

func TestApply_DefaultsOnly(t *testing.T) {
	q, args, err := Apply(Psql.Select("id", "email").From("users"), Filters{}, userOpts).ToSql()
	require.NoError(t, err)

	assert.Equal(t, "SELECT id, email FROM users ORDER BY email DESC LIMIT 50", q)
	assert.Empty(t, args)
}

func TestApply_PaginationAndCount(t *testing.T) {
	b := WithTotalCount(Psql.Select("id").From("users"))
	q, _, err := Apply(b, Filters{Limit: 10, Offset: 20}, userOpts).ToSql()
	require.NoError(t, err)

	assert.Equal(t, "SELECT id, COUNT(*) OVER() AS total_count FROM users ORDER BY email DESC LIMIT 10 OFFSET 20", q)
}

func TestApply_NonPositivePageFallsBackToDefault(t *testing.T) {
	q, _, err := Apply(Psql.Select("id").From("users"), Filters{Limit: -3, Offset: -1}, userOpts).ToSql()
	require.NoError(t, err)

	assert.Contains(t, q, "LIMIT 50")
	assert.NotContains(t, q, "OFFSET")
}

func TestApply_LimitClampedToMaxPageSize(t *testing.T) {
	q, _, err := Apply(Psql.Select("id").From("users"), Filters{Limit: 100000000}, userOpts).ToSql()
	require.NoError(t, err)

	assert.Contains(t, q, fmt.Sprintf("LIMIT %d", domain.MaxPageSize))
	assert.NotContains(t, q, "100000000")
}

func TestApply_WhitelistedSortReplacesDefault(t *testing.T) {
	q, _, err := Apply(Psql.Select("id").From("users"), Filters{SortField: "firstName", SortOrder: "asc"}, userOpts).ToSql()
	require.NoError(t, err)

	assert.Contains(t, q, "ORDER BY first_name ASC")
	assert.NotContains(t, q, "email DESC")
}

func TestApply_SortOrderDesc(t *testing.T) {
	q, _, err := Apply(Psql.Select("id").From("users"), Filters{SortField: "email", SortOrder: "desc"}, userOpts).ToSql()
	require.NoError(t, err)

	assert.Contains(t, q, "ORDER BY email DESC")
}

func TestApply_UnknownSortFieldKeepsDefault(t *testing.T) {
	q, _, err := Apply(Psql.Select("id").From("users"), Filters{SortField: "role", SortOrder: "asc"}, userOpts).ToSql()
	require.NoError(t, err)

	assert.Contains(t, q, "ORDER BY email DESC")
	assert.NotContains(t, q, "role")
}

func TestApply_SearchAcrossFields(t *testing.T) {
	q, args, err := Apply(Psql.Select("id").From("users"), Filters{Search: "ada"}, userOpts).ToSql()
	require.NoError(t, err)

	assert.Contains(t, q, "WHERE (CAST(email AS TEXT) ILIKE $1 OR CAST(first_name AS TEXT) ILIKE $2)")
	assert.Equal(t, []interface{}{"%ada%", "%ada%"}, args)
}

func TestApply_SearchEscapesWildcards(t *testing.T) {
	_, args, err := Apply(Psql.Select("id").From("users"), Filters{Search: `50%_off\`}, userOpts).ToSql()
	require.NoError(t, err)

	require.NotEmpty(t, args)
	assert.Equal(t, `%50\%\_off\\%`, args[0])
}

func TestApply_SearchWithoutFieldsIsNoop(t *testing.T) {
	opts := userOpts
	opts.SearchFields = nil

	q, args, err := Apply(Psql.Select("id").From("users"), Filters{Search: "ada"}, opts).ToSql()
	require.NoError(t, err)

	assert.NotContains(t, q, "WHERE")
	assert.Empty(t, args)
}

func TestApply_KeepsExistingWhere(t *testing.T) {
	b := Psql.Select("id").From("codes").Where("code_type_id = ?", "ct-1")
	q, args, err := Apply(b, Filters{Search: "en"}, Options{SearchFields: []string{"code"}}).ToSql()
	require.NoError(t, err)

	assert.Equal(t, "SELECT id FROM codes WHERE code_type_id = $1 AND (CAST(code AS TEXT) ILIKE $2)", q)
	assert.Equal(t, []interface{}{"ct-1", "%en%"}, args)
}

func TestApply_Idempotent(t *testing.T) {
	f := Filters{Limit: 5, Offset: 5, SortField: "email", SortOrder: "desc", Search: "x"}
	fresh := func() (string, []interface{}) {
		q, args, err := Apply(WithTotalCount(Psql.Select("id").From("users")), f, userOpts).ToSql()
		require.NoError(t, err)
		return q, args
	}

	q1, a1 := fresh()
	q2, a2 := fresh()
	assert.Equal(t, q1, q2)
	assert.Equal(t, a1, a2)
}
