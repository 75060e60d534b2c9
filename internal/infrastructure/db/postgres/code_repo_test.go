package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baechuer/silverback/internal/domain"
)

func TestCodeRepo_ListCodes_HidesDeprecatedByDefault(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewCodeRepo(db)

	now := time.Now()
	rows := sqlmock.NewRows(append(append([]string{}, codeColumns...), "total_count")).
		AddRow("c1", "ct1", "EN", "English", nil, false, now, now, 1)

	mock.ExpectQuery("FROM codes WHERE code_type_id = \\$1 AND deprecated = \\$2 AND \\(CAST\\(code AS TEXT\\) ILIKE \\$3").
		WithArgs("ct1", false, "%English%", "%English%", "%English%").
		WillReturnRows(rows)

	page, err := repo.ListCodes(context.Background(), "ct1", domain.CodeFilters{Filters: domain.Filters{Search: "English"}})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "EN", page.Items[0].Code)
	assert.Nil(t, page.Items[0].Description)
	assert.Equal(t, 1, page.TotalCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCodeRepo_ListCodes_ShowDeprecated(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewCodeRepo(db)

	mock.ExpectQuery("FROM codes WHERE code_type_id = \\$1 ORDER BY code ASC").
		WithArgs("ct1").
		WillReturnRows(sqlmock.NewRows(append(append([]string{}, codeColumns...), "total_count")))

	_, err = repo.ListCodes(context.Background(), "ct1", domain.CodeFilters{ShowDeprecated: true})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCodeRepo_GetCodeType_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewCodeRepo(db)

	mock.ExpectQuery("FROM code_types WHERE code =").
		WithArgs("NOPE").
		WillReturnRows(sqlmock.NewRows(codeTypeColumns))

	_, err = repo.GetCodeType(context.Background(), "NOPE")
	var de *domain.Error
	require.ErrorAs(t, err, &de)
	assert.Equal(t, domain.KindNotFound, de.Kind)
}

func TestCodeRepo_CreateCode_Duplicate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewCodeRepo(db)

	mock.ExpectQuery("INSERT INTO codes").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "codes_type_code_uq"})

	_, err = repo.CreateCode(context.Background(), domain.Code{ID: "c1", CodeTypeID: "ct1", Code: "EN"})
	assert.True(t, domain.Is(err, domain.CodeCodeDuplicate))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCodeRepo_SetDeprecated_UnknownCode(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewCodeRepo(db)

	_, err = repo.SetDeprecated(context.Background(), "ct1", "bogus", true)
	var de *domain.Error
	require.ErrorAs(t, err, &de)
	assert.Equal(t, domain.KindNotFound, de.Kind)
	assert.NoError(t, mock.ExpectationsWereMet())
}
