package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/classmark/classmark-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func userRows(users ...*models.User) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"id", "email", "password_hash", "full_name", "role", "class_id", "roll_no", "subject", "gender", "active", "last_login", "created_at", "updated_at"})
	for _, u := range users {
		rows.AddRow(u.ID, u.Email, u.PasswordHash, u.FullName, u.Role, u.ClassID, u.RollNo, u.Subject, u.Gender, u.Active, u.LastLogin, u.CreatedAt, u.UpdatedAt)
	}
	return rows
}

func TestUserRepositoryFindByEmail(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewUserRepository(db)
	classID := "FY"
	user := &models.User{
		ID: "u-1", Email: "a@school.test", PasswordHash: "hash", FullName: "Alice",
		Role: models.RoleStudent, ClassID: &classID, Active: true,
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, email, password_hash")).
		WithArgs("a@school.test").
		WillReturnRows(userRows(user))

	found, err := repo.FindByEmail(context.Background(), "a@school.test")
	require.NoError(t, err)
	require.Equal(t, "u-1", found.ID)
	require.Equal(t, models.RoleStudent, found.Role)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryFindByEmailMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewUserRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, email, password_hash")).
		WithArgs("nobody@school.test").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByEmail(context.Background(), "nobody@school.test")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryExistsByRollNoScopesRoleAndClass(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewUserRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(")).
		WithArgs(models.RoleStudent, "FY", "7", "s-9").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.ExistsByRollNo(context.Background(), "FY", "7", "s-9")
	require.NoError(t, err)
	require.True(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryListFiltersAndCounts(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewUserRepository(db)
	role := models.RoleStudent
	classID := "FY"
	student := &models.User{
		ID: "s-1", Email: "s@school.test", FullName: "Stu", Role: role,
		ClassID: &classID, Active: true, CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, email, password_hash")).
		WithArgs(role, "FY").
		WillReturnRows(userRows(student))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WithArgs(role, "FY").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	users, total, err := repo.List(context.Background(), models.UserFilter{Role: &role, ClassID: "FY"})
	require.NoError(t, err)
	require.Len(t, users, 1)
	require.Equal(t, 1, total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewUserRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	user := &models.User{Email: "n@school.test", FullName: "New", Role: models.RoleTeacher, Active: true}
	require.NoError(t, repo.Create(context.Background(), user))
	require.NotEmpty(t, user.ID, "an id is assigned when absent")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryDeleteIsHardDelete(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewUserRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM users WHERE id = $1")).
		WithArgs("u-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), "u-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryRefreshTokenLifecycle(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewUserRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO refresh_tokens")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	token := &models.RefreshToken{UserID: "u-1", Token: "tok", ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, repo.CreateRefreshToken(context.Background(), token))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, user_id, token")).
		WithArgs("tok").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "token", "expires_at", "created_at", "revoked", "revoked_at", "ip_address", "user_agent"}).
			AddRow(token.ID, "u-1", "tok", token.ExpiresAt, time.Now(), false, nil, "", ""))
	found, err := repo.FindRefreshToken(context.Background(), "tok")
	require.NoError(t, err)
	require.Equal(t, "u-1", found.UserID)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE refresh_tokens SET revoked = TRUE")).
		WithArgs(token.ID, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.RevokeRefreshToken(context.Background(), token.ID, time.Now()))
	require.NoError(t, mock.ExpectationsWereMet())
}
