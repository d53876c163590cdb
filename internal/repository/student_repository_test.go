package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academia-api/internal/models"
	"github.com/noah-isme/academia-api/pkg/database"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

var studentRowColumns = []string{"id", "full_name", "document", "id_number", "sex", "birth_date", "phone", "email", "street", "number", "neighborhood", "city", "state", "photo_path", "enrolled_on", "active", "created_at", "updated_at"}

func studentRow(rows *sqlmock.Rows, id, name string, active bool) *sqlmock.Rows {
	now := time.Now()
	day := time.Date(1994, 6, 1, 0, 0, 0, 0, time.UTC)
	return rows.AddRow(id, name, "12345678901", "998877", "F", day, "5574999998888", nil, nil, nil, nil, "Jacobina", "BA", nil, day, active, now, now)
}

func TestStudentRepositoryListActiveWithSearch(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	rows := studentRow(sqlmock.NewRows(studentRowColumns), "s1", "Ana Souza", true)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM students s WHERE 1=1 AND s.active = $1 AND (LOWER(s.full_name) LIKE $2 ESCAPE '\' OR s.document LIKE $2 ESCAPE '\') ORDER BY s.full_name ASC`)).
		WithArgs(true, "%ana%").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("FROM student_modalities sm JOIN modalities m ON m.id = sm.modality_id WHERE sm.student_id = ANY($1)")).
		WithArgs(pq.Array([]string{"s1"})).
		WillReturnRows(sqlmock.NewRows([]string{"student_id", "id", "name", "created_at"}).
			AddRow("s1", "m1", "Muay Thai", time.Now()).
			AddRow("s1", "m2", "Musculação", time.Now()))

	active := true
	students, err := repo.List(context.Background(), models.StudentFilter{Active: &active, Search: " Ana "})
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, "Ana Souza", students[0].FullName)
	assert.Len(t, students[0].Modalities, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryListSearchMatchesWildcardsLiterally(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`(LOWER(s.full_name) LIKE $1 ESCAPE '\' OR s.document LIKE $1 ESCAPE '\')`)).
		WithArgs(`%50\%\_a\\b%`).
		WillReturnRows(sqlmock.NewRows(studentRowColumns))

	students, err := repo.List(context.Background(), models.StudentFilter{Search: `50%_A\b`})
	require.NoError(t, err)
	assert.Empty(t, students)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryListEmptySkipsModalities(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM students s WHERE 1=1 ORDER BY s.full_name ASC")).
		WillReturnRows(sqlmock.NewRows(studentRowColumns))

	students, err := repo.List(context.Background(), models.StudentFilter{})
	require.NoError(t, err)
	assert.Empty(t, students)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryFindByIDNotFound(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery("FROM students s WHERE s.id = \\$1").WithArgs("missing").WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestStudentRepositoryCreateLinksModalities(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO students").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO student_modalities").
		WithArgs(sqlmock.AnyArg(), pq.Array([]string{"m1"})).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	student := &models.Student{FullName: "Ana Souza", Document: "12345678901", IDNumber: "998877", Sex: models.SexFemale, City: "Jacobina", State: "BA", Active: true}
	require.NoError(t, repo.Create(context.Background(), student, []string{"m1"}))
	assert.NotEmpty(t, student.ID)
	assert.False(t, student.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryCreateDuplicateDocument(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO students").WillReturnError(&pq.Error{Code: "23505", Constraint: "students_document_key"})
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &models.Student{FullName: "Ana"}, []string{"m1"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, database.ErrUniqueViolation))
	assert.Contains(t, err.Error(), "students_document_key")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryUpdateReplacesLinks(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE students SET").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM student_modalities WHERE student_id = $1")).WithArgs("s1").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("INSERT INTO student_modalities").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Update(context.Background(), &models.Student{ID: "s1", FullName: "Ana"}, []string{"m2"}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryUpdateMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE students SET").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Update(context.Background(), &models.Student{ID: "gone"}, []string{"m1"})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM students WHERE id = $1")).WithArgs("s1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM students WHERE id = $1")).WithArgs("s1").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Delete(context.Background(), "s1"))
	assert.ErrorIs(t, repo.Delete(context.Background(), "s1"), sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
