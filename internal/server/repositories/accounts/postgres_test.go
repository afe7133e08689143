package accounts

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/diagnexus/internal/common"
	"github.com/dmitrijs2005/diagnexus/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var accountColumns = []string{"user_id", "role", "name", "email", "password_hash", "is_active", "updated_by", "updated_date", "created_at"}

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return NewPostgresRepository(db), mock
}

func TestCreate_Success(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	now := time.Now()
	mock.ExpectQuery(`(?s)^INSERT\s+INTO\s+users\s*\(role,\s*name,\s*email,\s*password_hash,\s*is_active,\s*updated_by\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4,\s*\$5,\s*\$6\)\s*RETURNING\s+user_id,\s*updated_date,\s*created_at\s*$`).
		WithArgs("Doctor", "Dr. Smith", "smith@hospital.com", "hash", true, int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "updated_date", "created_at"}).AddRow(int64(7), now, now))

	actor := int64(1)
	a := &models.Account{Role: models.RoleDoctor, Name: "Dr. Smith", Email: "smith@hospital.com", PasswordHash: "hash", IsActive: true, UpdatedBy: &actor}
	got, err := repo.Create(context.Background(), a)
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.ID)
	assert.Equal(t, now, got.CreatedAt)
}

func TestCreate_DuplicateEmail(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`(?s)^INSERT\s+INTO\s+users`).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	_, err := repo.Create(context.Background(), &models.Account{Role: models.RolePatient, Email: "dup@example.com"})
	assert.ErrorIs(t, err, common.ErrorConflict)
}

func TestCreate_DBError(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`(?s)^INSERT\s+INTO\s+users`).
		WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), &models.Account{})
	require.Error(t, err)
	assert.Regexp(t, regexp.MustCompile(`db error: .*db down`), err.Error())
}

func TestGetByEmail_Found(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	now := time.Now()
	mock.ExpectQuery(`(?s)^SELECT\s+user_id,.*FROM\s+users\s+WHERE\s+email\s*=\s*\$1\s*$`).
		WithArgs("alice@example.com").
		WillReturnRows(sqlmock.NewRows(accountColumns).
			AddRow(int64(1), "Admin", "Alice Johnson", "alice@example.com", "hash", true, nil, now, now))

	got, err := repo.GetByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.ID)
	assert.Equal(t, models.RoleAdmin, got.Role)
	assert.Nil(t, got.UpdatedBy)
	assert.True(t, got.IsActive)
}

func TestGetByID_UpdatedBySet(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	now := time.Now()
	mock.ExpectQuery(`(?s)^SELECT\s+user_id,.*FROM\s+users\s+WHERE\s+user_id\s*=\s*\$1\s*$`).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows(accountColumns).
			AddRow(int64(3), "Patient", "John Doe", "john.doe@example.com", "hash", false, int64(1), now, now))

	got, err := repo.GetByID(context.Background(), 3)
	require.NoError(t, err)
	require.NotNil(t, got.UpdatedBy)
	assert.Equal(t, int64(1), *got.UpdatedBy)
	assert.False(t, got.IsActive)
}

func TestGetByID_NotFound(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`(?s)^SELECT.*FROM\s+users`).
		WithArgs(int64(404)).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), 404)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestList(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	now := time.Now()
	mock.ExpectQuery(`(?s)^SELECT.*FROM\s+users\s+WHERE\s+is_active\s*=\s*true\s+ORDER\s+BY\s+created_at\s+DESC`).
		WillReturnRows(sqlmock.NewRows(accountColumns).
			AddRow(int64(2), "Doctor", "Dr. Smith", "smith@hospital.com", "h", true, nil, now, now).
			AddRow(int64(1), "Admin", "Alice Johnson", "alice@example.com", "h", true, nil, now, now))

	got, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Dr. Smith", got[0].Name)
}

func TestList_Empty(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`(?s)^SELECT.*FROM\s+users`).WillReturnRows(sqlmock.NewRows(accountColumns))

	got, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestUpdate(t *testing.T) {
	actor := int64(1)
	a := &models.Account{ID: 5, Role: models.RolePatient, Name: "N", Email: "n@example.com", PasswordHash: "h", IsActive: true, UpdatedBy: &actor}

	t.Run("ok", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectExec(`(?s)^UPDATE\s+users\s+SET\s+role\s*=\s*\$1.*WHERE\s+user_id\s*=\s*\$7`).
			WithArgs("Patient", "N", "n@example.com", "h", true, int64(1), int64(5)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		assert.NoError(t, repo.Update(context.Background(), a))
	})

	t.Run("missing row", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectExec(`(?s)^UPDATE\s+users`).WillReturnResult(sqlmock.NewResult(0, 0))
		assert.ErrorIs(t, repo.Update(context.Background(), a), common.ErrorNotFound)
	})

	t.Run("duplicate email", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectExec(`(?s)^UPDATE\s+users`).WillReturnError(&pgconn.PgError{Code: "23505"})
		assert.ErrorIs(t, repo.Update(context.Background(), a), common.ErrorConflict)
	})
}

func TestSoftDelete(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectExec(`(?s)^UPDATE\s+users\s+SET\s+is_active\s*=\s*false`).
			WithArgs(int64(1), int64(3)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		assert.NoError(t, repo.SoftDelete(context.Background(), 3, 1))
	})

	t.Run("not found", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectExec(`(?s)^UPDATE\s+users`).WillReturnResult(sqlmock.NewResult(0, 0))
		assert.ErrorIs(t, repo.SoftDelete(context.Background(), 3, 1), common.ErrorNotFound)
	})
}

func TestCount(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM users`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(3)))

	n, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}
