package users

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/socialhub/internal/common"
	"github.com/dmitrijs2005/socialhub/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresRepository(db), mock
}

func TestCreate_Success(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	created := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`(?s)^INSERT\s+INTO\s+users\b.*RETURNING id, created_at$`).
		WithArgs("a@b.c", []byte("hash"), []byte(`{"full_name":"Ann"}`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("u1", created))

	u, err := repo.Create(context.Background(), &models.User{
		Email:        "a@b.c",
		PasswordHash: []byte("hash"),
		Metadata:     map[string]any{"full_name": "Ann"},
	})
	require.NoError(t, err)
	require.Equal(t, "u1", u.ID)
	require.Equal(t, created, u.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_EmailTaken(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`INSERT\s+INTO\s+users`).
		WithArgs("a@b.c", []byte("hash"), []byte(`{}`)).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	_, err := repo.Create(context.Background(), &models.User{Email: "a@b.c", PasswordHash: []byte("hash")})
	require.ErrorIs(t, err, common.ErrEmailTaken)
}

func TestGetByEmail_Found(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	created := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`(?s)SELECT .* FROM users WHERE email = \$1`).
		WithArgs("a@b.c").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password_hash", "metadata", "recovery_token", "recovery_sent_at", "created_at"}).
			AddRow("u1", "a@b.c", []byte("hash"), []byte(`{"company":"Acme"}`), "", nil, created))

	u, err := repo.GetByEmail(context.Background(), "a@b.c")
	require.NoError(t, err)
	require.Equal(t, "u1", u.ID)
	require.Equal(t, "Acme", u.Metadata["company"])
	require.True(t, u.RecoverySentAt.IsZero())
}

func TestGetByID_NotFound(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`FROM users WHERE id = \$1`).
		WithArgs("nope").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "nope")
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestGetByID_DBError(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`FROM users WHERE id = \$1`).
		WithArgs("u1").
		WillReturnError(errors.New("db down"))

	_, err := repo.GetByID(context.Background(), "u1")
	require.ErrorContains(t, err, "db down")
	require.NotErrorIs(t, err, common.ErrNotFound)
}

func TestSetRecoveryToken(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	at := time.Now()

	mock.ExpectExec(`UPDATE users SET recovery_token`).
		WithArgs("u1", "tok", at).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE users SET recovery_token`).
		WithArgs("u2", "tok", at).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.SetRecoveryToken(context.Background(), "u1", "tok", at))
	require.ErrorIs(t, repo.SetRecoveryToken(context.Background(), "u2", "tok", at), common.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
