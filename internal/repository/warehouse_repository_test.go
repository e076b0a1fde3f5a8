package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/special-ed-api/internal/registry"
)

func newWarehouseMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "postgres"), mock, func() { db.Close() }
}

var (
	studentTable = registry.Locator{Namespace: "groups", Table: "student"}
	stagingTable = registry.Locator{Namespace: "groups", Table: "tmp_student_abc"}
)

func TestWarehouseRepositoryColumns(t *testing.T) {
	db, mock, cleanup := newWarehouseMock(t)
	defer cleanup()
	repo := NewWarehouseRepository(db)

	mock.ExpectQuery("SELECT column_name FROM information_schema.columns").
		WithArgs("groups", "student").
		WillReturnRows(sqlmock.NewRows([]string{"column_name"}).AddRow("student_id").AddRow("first_name"))

	columns, err := repo.Columns(context.Background(), studentTable)
	require.NoError(t, err)
	assert.Equal(t, []string{"student_id", "first_name"}, columns)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWarehouseRepositoryColumnsMissingTable(t *testing.T) {
	db, mock, cleanup := newWarehouseMock(t)
	defer cleanup()
	repo := NewWarehouseRepository(db)

	mock.ExpectQuery("SELECT column_name FROM information_schema.columns").
		WithArgs("groups", "student").
		WillReturnRows(sqlmock.NewRows([]string{"column_name"}))

	_, err := repo.Columns(context.Background(), studentTable)
	assert.ErrorIs(t, err, ErrTableNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWarehouseRepositoryCreateStaging(t *testing.T) {
	db, mock, cleanup := newWarehouseMock(t)
	defer cleanup()
	repo := NewWarehouseRepository(db)

	mock.ExpectExec(`CREATE UNLOGGED TABLE "groups"\."tmp_student_[0-9a-f]{32}" \(LIKE "groups"\."student" INCLUDING DEFAULTS\)`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	staging, err := repo.CreateStaging(context.Background(), studentTable)
	require.NoError(t, err)
	assert.Equal(t, "groups", staging.Namespace)
	assert.Regexp(t, `^tmp_student_[0-9a-f]{32}$`, staging.Table)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWarehouseRepositoryLoadRows(t *testing.T) {
	db, mock, cleanup := newWarehouseMock(t)
	defer cleanup()
	repo := NewWarehouseRepository(db)

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(regexp.QuoteMeta(`COPY "groups"."tmp_student_abc" ("student_id", "first_name") FROM STDIN`))
	prep.ExpectExec().WithArgs("S001", "Ana").WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().WithArgs("S002", nil).WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := repo.LoadRows(context.Background(), stagingTable, []string{"student_id", "first_name"}, [][]interface{}{
		{"S001", "Ana"},
		{"S002", nil},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWarehouseRepositoryLoadRowsRollsBack(t *testing.T) {
	db, mock, cleanup := newWarehouseMock(t)
	defer cleanup()
	repo := NewWarehouseRepository(db)

	mock.ExpectBegin()
	prep := mock.ExpectPrepare("COPY")
	prep.ExpectExec().WithArgs("S001").WillReturnError(errors.New("copy failed"))
	mock.ExpectRollback()

	err := repo.LoadRows(context.Background(), stagingTable, []string{"student_id"}, [][]interface{}{{"S001"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "copy row 1")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWarehouseRepositoryMerge(t *testing.T) {
	db, mock, cleanup := newWarehouseMock(t)
	defer cleanup()
	repo := NewWarehouseRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`MERGE INTO "groups"."student" AS t`)).
		WillReturnResult(sqlmock.NewResult(0, 2))

	affected, err := repo.Merge(context.Background(), studentTable, stagingTable, "student_id", []string{"student_id", "first_name"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, affected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWarehouseRepositoryDropTable(t *testing.T) {
	db, mock, cleanup := newWarehouseMock(t)
	defer cleanup()
	repo := NewWarehouseRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`DROP TABLE IF EXISTS "groups"."tmp_student_abc"`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.DropTable(context.Background(), stagingTable))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBuildMergeStatement(t *testing.T) {
	query := BuildMergeStatement(studentTable, stagingTable, "student_id", []string{"student_id", "first_name", "date_of_birth"})

	expected := `MERGE INTO "groups"."student" AS t
USING "groups"."tmp_student_abc" AS s
ON t."student_id" = s."student_id"
WHEN MATCHED THEN UPDATE SET "first_name" = s."first_name", "date_of_birth" = s."date_of_birth"
WHEN NOT MATCHED THEN INSERT ("student_id", "first_name", "date_of_birth") VALUES (s."student_id", s."first_name", s."date_of_birth")`
	assert.Equal(t, expected, query)
	assert.Equal(t, query, BuildMergeStatement(studentTable, stagingTable, "student_id", []string{"student_id", "first_name", "date_of_birth"}))
}

func TestBuildMergeStatementKeyOnly(t *testing.T) {
	query := BuildMergeStatement(studentTable, stagingTable, "student_id", []string{"student_id"})
	assert.Contains(t, query, "WHEN MATCHED THEN DO NOTHING")
	assert.NotContains(t, query, "UPDATE SET")
}

func TestBuildMergeStatementQuotesIdentifiers(t *testing.T) {
	query := BuildMergeStatement(studentTable, stagingTable, "student_id", []string{"student_id", `odd"name`})
	assert.Contains(t, query, `"odd""name" = s."odd""name"`)
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(&pq.Error{Code: "55P03"}))
	assert.True(t, IsTransient(&pq.Error{Code: "40001"}))
	assert.True(t, IsTransient(errors.Join(errors.New("merge"), &pq.Error{Code: "57P03"})))
	assert.False(t, IsTransient(&pq.Error{Code: "42P01"}))
	assert.False(t, IsTransient(errors.New("boom")))
	assert.False(t, IsTransient(nil))
}
